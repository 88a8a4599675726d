package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"train-live-viewer/models"
)

func key(station string) models.LiveKey {
	return models.LiveKey{TrainNo: "123", StationID: station}
}

func TestClassify(t *testing.T) {
	now := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		stop  models.StopTime
		snap  *models.LiveSnapshot
		want  models.StopStatus
		label string
	}{
		{
			name:  "next station wins over future departure",
			stop:  models.StopTime{StationID: "3300", DepartureTime: "10:00"},
			snap:  &models.LiveSnapshot{StationLive: map[models.LiveKey]int{key("3300"): 0}},
			want:  models.StopStatus{Kind: models.StatusNextStation},
			label: "下一站",
		},
		{
			name: "future departure hides delay",
			stop: models.StopTime{StationID: "3300", DepartureTime: "10:00"},
			snap: &models.LiveSnapshot{
				StationLive: map[models.LiveKey]int{},
				TrainLive:   map[models.LiveKey]int{key("3300"): 5},
			},
			want:  models.StopStatus{Kind: models.StatusUpcoming},
			label: "-",
		},
		{
			name:  "passed on time",
			stop:  models.StopTime{StationID: "1000", DepartureTime: "08:00"},
			snap:  &models.LiveSnapshot{TrainLive: map[models.LiveKey]int{key("1000"): 0}},
			want:  models.StopStatus{Kind: models.StatusOnTime},
			label: "準點",
		},
		{
			name:  "passed late",
			stop:  models.StopTime{StationID: "1000", DepartureTime: "08:00"},
			snap:  &models.LiveSnapshot{TrainLive: map[models.LiveKey]int{key("1000"): 7}},
			want:  models.StopStatus{Kind: models.StatusDelayed, DelayMinutes: 7},
			label: "晚7分",
		},
		{
			name:  "departure equal to now counts as passed",
			stop:  models.StopTime{StationID: "1000", DepartureTime: "09:00"},
			snap:  &models.LiveSnapshot{TrainLive: map[models.LiveKey]int{key("1000"): 2}},
			want:  models.StopStatus{Kind: models.StatusDelayed, DelayMinutes: 2},
			label: "晚2分",
		},
		{
			name:  "no data",
			stop:  models.StopTime{StationID: "1000", DepartureTime: "08:00"},
			snap:  &models.LiveSnapshot{},
			want:  models.StopStatus{Kind: models.StatusUnknown},
			label: "-",
		},
		{
			name:  "non-zero station marker is not next",
			stop:  models.StopTime{StationID: "1000", DepartureTime: "08:00"},
			snap:  &models.LiveSnapshot{StationLive: map[models.LiveKey]int{key("1000"): 1}},
			want:  models.StopStatus{Kind: models.StatusUnknown},
			label: "-",
		},
		{
			name:  "unparseable departure falls through to delay",
			stop:  models.StopTime{StationID: "1000", DepartureTime: ""},
			snap:  &models.LiveSnapshot{TrainLive: map[models.LiveKey]int{key("1000"): 0}},
			want:  models.StopStatus{Kind: models.StatusOnTime},
			label: "準點",
		},
		{
			name:  "no snapshot",
			stop:  models.StopTime{StationID: "1000", DepartureTime: "08:00"},
			snap:  nil,
			want:  models.StopStatus{Kind: models.StatusUnknown},
			label: "-",
		},
		{
			name:  "no snapshot future departure",
			stop:  models.StopTime{StationID: "3300", DepartureTime: "10:00"},
			snap:  nil,
			want:  models.StopStatus{Kind: models.StatusUpcoming},
			label: "-",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify("123", tt.stop, tt.snap, now)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.label, got.Label())
		})
	}
}

func TestBuildTimetable(t *testing.T) {
	now := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	detail := &models.TripDetail{
		TrainNo: "123",
		Stops: []models.StopTime{
			{StationID: "1000", ArrivalTime: "08:00", DepartureTime: "08:00", Sequence: 1},
			{StationID: "3300", ArrivalTime: "10:00", DepartureTime: "10:02", Sequence: 2},
			{StationID: "4400", ArrivalTime: "12:30", DepartureTime: "12:30", Sequence: 3},
		},
	}
	snap := &models.LiveSnapshot{
		TrainLive:   map[models.LiveKey]int{key("1000"): 3},
		StationLive: map[models.LiveKey]int{key("3300"): 0},
	}
	names := map[string]string{"1000": "臺北", "3300": "臺中"}

	rows := BuildTimetable("123", detail, names, snap, now)
	require.Len(t, rows, 3)
	assert.Equal(t, "臺北", rows[0].StationName)
	assert.Equal(t, "晚3分", rows[0].StatusLabel)
	assert.Equal(t, "下一站", rows[1].StatusLabel)
	// unknown names fall back to the id
	assert.Equal(t, "4400", rows[2].StationName)
	assert.Equal(t, models.StatusUpcoming, rows[2].Status.Kind)
}

func TestBuildTimetableKeysOnRequestedTrain(t *testing.T) {
	now := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	// the mirror reports the number in its own form
	detail := &models.TripDetail{
		TrainNo: "0123",
		Stops:   []models.StopTime{{StationID: "1000", DepartureTime: "08:00", Sequence: 1}},
	}
	snap := &models.LiveSnapshot{TrainLive: map[models.LiveKey]int{key("1000"): 6}}

	rows := BuildTimetable("123", detail, nil, snap, now)
	require.Len(t, rows, 1)
	assert.Equal(t, models.StopStatus{Kind: models.StatusDelayed, DelayMinutes: 6}, rows[0].Status)

	resp := BuildTrainResponse("123", detail, nil, snap, now)
	assert.Equal(t, "晚6分", resp.Timetable[0].StatusLabel)
}

func TestBuildTrainResponse(t *testing.T) {
	detail := &models.TripDetail{
		TrainNo:        "123",
		StartStationID: "1000",
		EndStationID:   "4400",
		Direction:      0,
		Remarks:        []string{"每日行駛"},
	}
	updated := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

	resp := BuildTrainResponse("123", detail, map[string]string{"1000": "臺北"}, &models.LiveSnapshot{UpdateTime: updated}, updated)
	assert.Equal(t, "未知車種", resp.TrainType)
	assert.Equal(t, "臺北", resp.StartStation)
	assert.Equal(t, "4400", resp.EndStation)
	assert.Equal(t, "順行", resp.Direction)
	assert.Equal(t, updated, resp.LiveUpdateTime)
	assert.Empty(t, resp.Timetable)
}

type fakeTrains struct {
	detail    *models.TripDetail
	detailErr error
	snaps     chan *models.LiveSnapshot
	liveErr   error
	liveCalls atomic.Int32
}

func (f *fakeTrains) GetDetail(ctx context.Context, trainNo string) (*models.TripDetail, error) {
	if f.detailErr != nil {
		return nil, f.detailErr
	}
	return f.detail, nil
}

func (f *fakeTrains) GetLive(ctx context.Context, trainNo string) (*models.LiveSnapshot, error) {
	f.liveCalls.Add(1)
	if f.liveErr != nil {
		return nil, f.liveErr
	}
	select {
	case s := <-f.snaps:
		return s, nil
	default:
		return &models.LiveSnapshot{UpdateTime: time.Now()}, nil
	}
}

func TestFetchTrain(t *testing.T) {
	src := &fakeTrains{detail: &models.TripDetail{TrainNo: "123"}}
	detail, snap, err := FetchTrain(context.Background(), src, "123")
	require.NoError(t, err)
	assert.Equal(t, "123", detail.TrainNo)
	assert.NotNil(t, snap)

	src.liveErr = ErrLiveUnavailable
	_, _, err = FetchTrain(context.Background(), src, "123")
	assert.True(t, errors.Is(err, ErrLiveUnavailable))

	src = &fakeTrains{detailErr: ErrTrainNotFound}
	_, _, err = FetchTrain(context.Background(), src, "123")
	assert.True(t, errors.Is(err, ErrTrainNotFound))
}
