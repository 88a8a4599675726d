package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"train-live-viewer/models"
)

type fakeCatalog struct {
	err error
}

func (f fakeCatalog) GetLine(ctx context.Context, lineID string) (*models.Line, []models.LineStation, error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	return &models.Line{ID: lineID, NameZh: "西部幹線"}, []models.LineStation{
		{StationID: "1000", StationName: "臺北", Sequence: 1, LineID: lineID},
		{StationID: "1020", StationName: "板橋", Sequence: 2, LineID: lineID},
	}, nil
}

func (f fakeCatalog) GetStation(ctx context.Context, stationID string) (*models.StationDetail, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.StationDetail{StationID: stationID, Name: "臺北", Address: "臺北市中正區"}, nil
}

func TestImporter(t *testing.T) {
	ctx := context.Background()
	stations := NewStationService(newTestDB(t))
	imp := NewImporter(fakeCatalog{}, stations)

	resp, err := imp.ImportLine(ctx, "WL")
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, "Successfully imported 2 stations for line 西部幹線", resp.Message)

	resp, err = imp.ImportStationDetail(ctx, "1000")
	require.NoError(t, err)
	assert.Equal(t, "Successfully imported station details for 臺北", resp.Message)

	all, err := stations.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	name, ok := stations.NameOf(ctx, "1020")
	require.True(t, ok)
	assert.Equal(t, "板橋", name)
}

func TestImporterUpstreamFailure(t *testing.T) {
	imp := NewImporter(fakeCatalog{err: ErrTrainNotFound}, NewStationService(newTestDB(t)))

	_, err := imp.ImportLine(context.Background(), "WL")
	assert.True(t, errors.Is(err, ErrTrainNotFound))
	_, err = imp.ImportStationDetail(context.Background(), "1000")
	assert.True(t, errors.Is(err, ErrTrainNotFound))
}
