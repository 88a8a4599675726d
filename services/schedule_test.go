package services

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"train-live-viewer/models"
)

func tripDeparting(no, origin, dep string) models.Trip {
	return models.Trip{
		TrainNo: no,
		Stops: []models.StopTime{
			{StationID: origin, DepartureTime: dep, ArrivalTime: dep, Sequence: 1},
			{StationID: "9999", DepartureTime: "23:00", ArrivalTime: "23:00", Sequence: 2},
		},
	}
}

func trainNos(trips []models.Trip) []string {
	out := make([]string, len(trips))
	for i, t := range trips {
		out[i] = t.TrainNo
	}
	return out
}

func TestParseHHMM(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"08:00", 800, true},
		{"23:59", 2359, true},
		{"00:05", 5, true},
		{"", 0, false},
		{"ab:cd", 0, false},
	}

	for _, tt := range tests {
		got, ok := ParseHHMM(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestFilterAndSortByDeparture(t *testing.T) {
	trips := []models.Trip{
		tripDeparting("A", "1000", "08:00"),
		tripDeparting("B", "1000", "09:30"),
		tripDeparting("C", "1000", "07:15"),
	}

	w, err := ParseTimeWindow("08:00", "09:00")
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, trainNos(FilterByWindow(trips, "1000", w)))

	sorted := SortByDeparture(trips, "1000")
	assert.Equal(t, []string{"C", "A", "B"}, trainNos(sorted))
	// input untouched
	assert.Equal(t, []string{"A", "B", "C"}, trainNos(trips))
}

func TestFilterByWindowBounds(t *testing.T) {
	trips := []models.Trip{
		tripDeparting("A", "1000", "08:00"),
		tripDeparting("B", "1000", "09:00"),
		tripDeparting("C", "1000", "10:00"),
		{TrainNo: "D", Stops: []models.StopTime{{StationID: "2000", DepartureTime: "09:00"}}},
	}

	tests := []struct {
		name   string
		window models.TimeWindow
		want   []string
	}{
		{"open window keeps all", models.TimeWindow{}, []string{"A", "B", "C", "D"}},
		{"start only", models.TimeWindow{Start: intPtr(900)}, []string{"B", "C"}},
		{"end only inclusive", models.TimeWindow{End: intPtr(900)}, []string{"A", "B"}},
		{"both inclusive", models.TimeWindow{Start: intPtr(800), End: intPtr(1000)}, []string{"A", "B", "C"}},
		{"empty range", models.TimeWindow{Start: intPtr(1100), End: intPtr(1200)}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, trainNos(FilterByWindow(trips, "1000", tt.window)))
		})
	}
}

func TestSortByDepartureIsStableForMissingOrigin(t *testing.T) {
	trips := []models.Trip{
		{TrainNo: "X", Stops: []models.StopTime{{StationID: "2000", DepartureTime: "06:00"}}},
		{TrainNo: "Y", Stops: []models.StopTime{{StationID: "3000", DepartureTime: "05:00"}}},
	}

	assert.Equal(t, []string{"X", "Y"}, trainNos(SortByDeparture(trips, "1000")))
}

func TestParseTimeWindowRejectsGarbage(t *testing.T) {
	for _, bound := range []string{"soon", "12:3", "9", "99:99", "+8:00", "24:00", "0800"} {
		_, err := ParseTimeWindow(bound, "")
		assert.Error(t, err, bound)
		_, err = ParseTimeWindow("", bound)
		assert.Error(t, err, bound)
	}

	w, err := ParseTimeWindow(" 9:05", "23:59")
	require.NoError(t, err)
	assert.Equal(t, 905, *w.Start)
	assert.Equal(t, 2359, *w.End)

	w, err = ParseTimeWindow("", "")
	require.NoError(t, err)
	assert.True(t, w.IsOpen())
}

func TestValidateQueryDate(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Taipei")
	require.NoError(t, err)
	now := time.Date(2024, 3, 10, 23, 30, 0, 0, loc)

	tests := []struct {
		date    string
		wantErr bool
	}{
		{"2024-03-09", false},
		{"2024-03-10", false},
		{"2024-03-24", false},
		{"2024-03-08", true},
		{"2024-03-25", true},
		{"10/03/2024", true},
	}

	for _, tt := range tests {
		err := ValidateQueryDate(tt.date, now, loc)
		if tt.wantErr {
			assert.Error(t, err, tt.date)
		} else {
			assert.NoError(t, err, tt.date)
		}
	}

	err = ValidateQueryDate("2024-04-30", now, loc)
	assert.True(t, errors.Is(err, ErrDateOutOfRange))
}
