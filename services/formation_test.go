package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"train-live-viewer/models"
)

func assets(cars []models.Car) []string {
	out := make([]string, len(cars))
	for i, c := range cars {
		out[i] = c.AssetNumber
	}
	return out
}

func TestIsEngine(t *testing.T) {
	tests := []struct {
		asset string
		want  bool
	}{
		{"E1001", true},
		{"E500", true},
		{"E5", true},
		{"E6001", false},
		{"E0123", false},
		{"EMU3001", false},
		{"e1001", false},
		{"40TP32850", false},
		{"", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, IsEngine(tt.asset), tt.asset)
	}
}

func TestOrderFormation(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"two engines at the ends", []string{"C1", "E101", "C2", "E202"}, []string{"E101", "C1", "C2", "E202"}},
		{"middle engines dropped", []string{"E101", "C1", "E303", "C2", "E202"}, []string{"E101", "C1", "C2", "E202"}},
		{"single engine leads", []string{"C1", "C2", "E101"}, []string{"E101", "C1", "C2"}},
		{"no engines", []string{"C1", "C2"}, []string{"C1", "C2"}},
		{"empty", nil, []string{}},
		{"duplicates keep first position", []string{"C1", "C2", "C1", "C3"}, []string{"C1", "C2", "C3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cars []models.Car
			for i, a := range tt.in {
				cars = append(cars, models.Car{AssetNumber: a, TrainSequence: i + 1})
			}
			got := OrderFormation(cars)
			assert.Equal(t, tt.want, assets(got))
			for _, c := range got {
				assert.Equal(t, IsEngine(c.AssetNumber), c.IsEngine, c.AssetNumber)
			}
		})
	}
}

func TestDedupeCarsFirstWins(t *testing.T) {
	cars := []models.Car{
		{AssetNumber: "A", TrainSequence: 1},
		{AssetNumber: "B", TrainSequence: 2},
		{AssetNumber: "A", TrainSequence: 9},
	}

	got := DedupeCars(cars)
	assert.Equal(t, []string{"A", "B"}, assets(got))
	assert.Equal(t, 1, got[0].TrainSequence)
}

func TestNavigationOrderKeepsEveryCar(t *testing.T) {
	cars := []models.Car{
		{AssetNumber: "E101"}, {AssetNumber: "C1"}, {AssetNumber: "E303"},
		{AssetNumber: "C1"}, {AssetNumber: "E202"},
	}

	assert.Equal(t, []string{"E101", "C1", "E303", "E202"}, NavigationOrder(cars))
}
