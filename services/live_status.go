package services

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"train-live-viewer/models"
)

// TrainSource fetches static detail and live status of a train
type TrainSource interface {
	GetDetail(ctx context.Context, trainNo string) (*models.TripDetail, error)
	GetLive(ctx context.Context, trainNo string) (*models.LiveSnapshot, error)
}

// Classify derives the status of one stop. The next-station marker wins
// over the clock, and a stop whose departure is still ahead shows no delay.
func Classify(trainNo string, stop models.StopTime, snap *models.LiveSnapshot, now time.Time) models.StopStatus {
	key := models.LiveKey{TrainNo: trainNo, StationID: stop.StationID}

	if snap != nil {
		if v, ok := snap.StationLive[key]; ok && v == 0 {
			return models.StopStatus{Kind: models.StatusNextStation}
		}
	}

	if dep, ok := departureOn(stop.DepartureTime, now); ok && now.Before(dep) {
		return models.StopStatus{Kind: models.StatusUpcoming}
	}

	if snap == nil {
		return models.StopStatus{Kind: models.StatusUnknown}
	}

	delay, ok := snap.TrainLive[key]
	switch {
	case !ok:
		return models.StopStatus{Kind: models.StatusUnknown}
	case delay == 0:
		return models.StopStatus{Kind: models.StatusOnTime}
	default:
		return models.StopStatus{Kind: models.StatusDelayed, DelayMinutes: delay}
	}
}

// departureOn places an "HH:MM" time on now's calendar date
func departureOn(hhmm string, now time.Time) (time.Time, bool) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return time.Time{}, false
	}
	return time.Date(now.Year(), now.Month(), now.Day(), t.Hour(), t.Minute(), 0, 0, now.Location()), true
}

// BuildTimetable pairs each stop of a train with its display name and live
// status. Live entries are looked up under the requested train number.
func BuildTimetable(trainNo string, detail *models.TripDetail, names map[string]string, snap *models.LiveSnapshot, now time.Time) []models.TimetableRow {
	rows := make([]models.TimetableRow, 0, len(detail.Stops))
	for _, stop := range detail.Stops {
		status := Classify(trainNo, stop, snap, now)
		rows = append(rows, models.TimetableRow{
			Sequence:      stop.Sequence,
			StationID:     stop.StationID,
			StationName:   stationName(names, stop.StationID),
			ArrivalTime:   stop.ArrivalTime,
			DepartureTime: stop.DepartureTime,
			Status:        status,
			StatusLabel:   status.Label(),
		})
	}
	return rows
}

func stationName(names map[string]string, id string) string {
	if name, ok := names[id]; ok && name != "" {
		return name
	}
	return id
}

// FetchTrain loads detail and live status concurrently
func FetchTrain(ctx context.Context, src TrainSource, trainNo string) (*models.TripDetail, *models.LiveSnapshot, error) {
	var (
		detail *models.TripDetail
		snap   *models.LiveSnapshot
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		detail, err = src.GetDetail(gctx, trainNo)
		return err
	})
	g.Go(func() error {
		var err error
		snap, err = src.GetLive(gctx, trainNo)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return detail, snap, nil
}

// BuildTrainResponse assembles the one-shot train view
func BuildTrainResponse(trainNo string, detail *models.TripDetail, names map[string]string, snap *models.LiveSnapshot, now time.Time) models.TrainResponse {
	resp := models.TrainResponse{
		TrainNo:      detail.TrainNo,
		TrainType:    detail.TrainType,
		StartStation: stationName(names, detail.StartStationID),
		StartTime:    detail.StartTime,
		EndStation:   stationName(names, detail.EndStationID),
		EndTime:      detail.EndTime,
		Direction:    detail.DirectionLabel(),
		Note:         detail.Note,
		Remarks:      detail.Remarks,
		Timetable:    BuildTimetable(trainNo, detail, names, snap, now),
	}
	if resp.TrainType == "" {
		resp.TrainType = "未知車種"
	}
	if snap != nil {
		resp.LiveUpdateTime = snap.UpdateTime
	}
	return resp
}
