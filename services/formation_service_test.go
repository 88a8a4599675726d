package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"train-live-viewer/models"
)

func carsOf(assetNums ...string) []models.Car {
	out := make([]models.Car, len(assetNums))
	for i, a := range assetNums {
		out[i] = models.Car{AssetNumber: a, TrainSequence: i + 1}
	}
	return out
}

func TestResolveUsesLatestDate(t *testing.T) {
	ctx := context.Background()
	svc := NewFormationService(newTestDB(t), 30*24*time.Hour)

	_, err := svc.SaveFormation(ctx, models.FormationRequest{TrainNo: "123", Date: "2024-03-01", Cars: carsOf("OLD1", "OLD2")})
	require.NoError(t, err)
	_, err = svc.SaveFormation(ctx, models.FormationRequest{TrainNo: "123", Date: "2024-03-02", Cars: carsOf("C1", "E101", "C2")})
	require.NoError(t, err)
	_, err = svc.SaveFormation(ctx, models.FormationRequest{TrainNo: "123", Date: "2024-03-02", Cars: carsOf("C2", "E202", "C3")})
	require.NoError(t, err)
	_, err = svc.SaveFormation(ctx, models.FormationRequest{TrainNo: "456", Date: "2024-03-05", Cars: carsOf("X1")})
	require.NoError(t, err)

	date, err := svc.LatestFormationDate(ctx, "123")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-02", date)

	f, err := svc.Resolve(ctx, "123")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-02", f.Date)
	assert.Equal(t, []string{"E101", "C1", "C2", "C3", "E202"}, assets(f.Cars))
	assert.Equal(t, []string{"C1", "E101", "C2", "E202", "C3"}, f.AllCars)
}

func TestResolveUnknownTrain(t *testing.T) {
	svc := NewFormationService(newTestDB(t), 30*24*time.Hour)

	_, err := svc.Resolve(context.Background(), "999")
	assert.True(t, errors.Is(err, ErrFormationNotFound))
}

func TestResolveStoreUnavailable(t *testing.T) {
	db := newTestDB(t)
	svc := NewFormationService(db, 30*24*time.Hour)
	db.Close()

	_, err := svc.Resolve(context.Background(), "123")
	assert.True(t, errors.Is(err, ErrDataUnavailable))
}

func TestSaveFormationValidates(t *testing.T) {
	svc := NewFormationService(newTestDB(t), 30*24*time.Hour)
	ctx := context.Background()

	_, err := svc.SaveFormation(ctx, models.FormationRequest{TrainNo: "1", Date: "03/02/2024", Cars: carsOf("A")})
	assert.True(t, errors.Is(err, ErrInvalidInput))

	_, err = svc.SaveFormation(ctx, models.FormationRequest{TrainNo: "1", Date: "2024-03-02"})
	assert.True(t, errors.Is(err, ErrInvalidInput))

	_, err = svc.SaveFormation(ctx, models.FormationRequest{TrainNo: "1", Date: "2024-03-02", Cars: []models.Car{{AssetNumber: ""}}})
	assert.True(t, errors.Is(err, ErrInvalidInput))

	// nothing half-written
	_, err = svc.LatestFormationDate(ctx, "1")
	assert.True(t, errors.Is(err, ErrFormationNotFound))
}

func TestHistoryWindowAndOrder(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 31, 12, 0, 0, 0, time.UTC)
	svc := NewFormationService(newTestDB(t), 30*24*time.Hour)
	svc.now = func() time.Time { return now }

	for _, d := range []int{1, 10, 45} {
		_, err := svc.AddMaintenance(ctx, models.MaintenanceRecord{
			AssetNumber:     "C1",
			MaintenanceDate: now.AddDate(0, 0, -d),
			MaintenanceType: "inspection",
			Completed:       d > 5,
		})
		require.NoError(t, err)
	}
	_, err := svc.AddMaintenance(ctx, models.MaintenanceRecord{AssetNumber: "C2", MaintenanceDate: now.AddDate(0, 0, -2)})
	require.NoError(t, err)

	resolved := now.AddDate(0, 0, -3)
	note := "replaced relay"
	_, err = svc.AddFault(ctx, models.FaultRecord{
		AssetNumber: "C1", FaultDate: now.AddDate(0, 0, -5), FaultType: "door",
		Resolved: true, ResolutionDate: &resolved, ResolutionDescription: &note,
	})
	require.NoError(t, err)
	_, err = svc.AddFault(ctx, models.FaultRecord{AssetNumber: "C1", FaultDate: now.AddDate(0, 0, -2), FaultType: "hvac"})
	require.NoError(t, err)

	_, err = svc.AddDepotEntry(ctx, models.DepotEntryRecord{AssetNumber: "C1", EntryDate: now.AddDate(0, 0, -20), DepotName: "Qidu"})
	require.NoError(t, err)
	_, err = svc.AddDepotEntry(ctx, models.DepotEntryRecord{AssetNumber: "C1", EntryDate: now.AddDate(0, 0, -31), DepotName: "Fugang"})
	require.NoError(t, err)

	h, err := svc.History(ctx, "C1")
	require.NoError(t, err)

	require.Len(t, h.Maintenance, 2)
	assert.True(t, h.Maintenance[0].MaintenanceDate.Equal(now.AddDate(0, 0, -1)))
	assert.True(t, h.Maintenance[1].MaintenanceDate.Equal(now.AddDate(0, 0, -10)))
	assert.Equal(t, "in_progress", h.Maintenance[0].Status())
	assert.Equal(t, "completed", h.Maintenance[1].Status())

	require.Len(t, h.Faults, 2)
	assert.Equal(t, "hvac", h.Faults[0].FaultType)
	assert.Equal(t, "unresolved", h.Faults[0].Status())
	assert.Nil(t, h.Faults[0].ResolutionDate)
	assert.Equal(t, "resolved", h.Faults[1].Status())
	require.NotNil(t, h.Faults[1].ResolutionDescription)
	assert.Equal(t, note, *h.Faults[1].ResolutionDescription)

	require.Len(t, h.DepotEntries, 1)
	assert.Equal(t, "Qidu", h.DepotEntries[0].DepotName)
	assert.Equal(t, "in_depot", h.DepotEntries[0].Status())
}

func TestHistoryEmptyCar(t *testing.T) {
	svc := NewFormationService(newTestDB(t), 30*24*time.Hour)

	h, err := svc.History(context.Background(), "NOPE")
	require.NoError(t, err)
	assert.Empty(t, h.Maintenance)
	assert.Empty(t, h.Faults)
	assert.Empty(t, h.DepotEntries)
}

func TestAddRecordRequiresDate(t *testing.T) {
	svc := NewFormationService(newTestDB(t), 30*24*time.Hour)
	ctx := context.Background()

	_, err := svc.AddMaintenance(ctx, models.MaintenanceRecord{AssetNumber: "C1"})
	assert.True(t, errors.Is(err, ErrInvalidInput))
	_, err = svc.AddFault(ctx, models.FaultRecord{AssetNumber: "C1"})
	assert.True(t, errors.Is(err, ErrInvalidInput))
	_, err = svc.AddDepotEntry(ctx, models.DepotEntryRecord{AssetNumber: "C1"})
	assert.True(t, errors.Is(err, ErrInvalidInput))
}
