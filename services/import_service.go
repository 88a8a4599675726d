package services

import (
	"context"
	"fmt"

	"train-live-viewer/models"
)

// CatalogSource reads line and station pages from the mirror
type CatalogSource interface {
	GetLine(ctx context.Context, lineID string) (*models.Line, []models.LineStation, error)
	GetStation(ctx context.Context, stationID string) (*models.StationDetail, error)
}

// Importer copies catalog data from the mirror into the store
type Importer struct {
	source   CatalogSource
	stations *StationService
}

func NewImporter(source CatalogSource, stations *StationService) *Importer {
	return &Importer{source: source, stations: stations}
}

// ImportLine stores a line and every station on it
func (i *Importer) ImportLine(ctx context.Context, lineID string) (*models.ImportResponse, error) {
	line, stations, err := i.source.GetLine(ctx, lineID)
	if err != nil {
		return nil, fmt.Errorf("fetch line %s: %w", lineID, err)
	}
	if err := i.stations.UpsertLine(ctx, *line, stations); err != nil {
		return nil, err
	}
	return &models.ImportResponse{
		Success: true,
		Message: fmt.Sprintf("Successfully imported %d stations for line %s", len(stations), line.NameZh),
	}, nil
}

// ImportStationDetail stores the detail and exits of a station
func (i *Importer) ImportStationDetail(ctx context.Context, stationID string) (*models.ImportResponse, error) {
	detail, err := i.source.GetStation(ctx, stationID)
	if err != nil {
		return nil, fmt.Errorf("fetch station %s: %w", stationID, err)
	}
	if err := i.stations.UpsertStationDetail(ctx, *detail); err != nil {
		return nil, err
	}
	return &models.ImportResponse{
		Success: true,
		Message: fmt.Sprintf("Successfully imported station details for %s", detail.Name),
	}, nil
}
