package services

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"train-live-viewer/models"
)

// FormationService reads car assignments and per-car history
type FormationService struct {
	db       *sql.DB
	lookback time.Duration
	now      func() time.Time
}

func NewFormationService(db *sql.DB, lookback time.Duration) *FormationService {
	return &FormationService{db: db, lookback: lookback, now: time.Now}
}

// LatestFormationDate returns the most recent service date recorded for a train
func (s *FormationService) LatestFormationDate(ctx context.Context, trainNo string) (string, error) {
	var latest sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT MAX(trans_date)
		FROM formations
		WHERE train_no = $1
	`, trainNo).Scan(&latest)
	if err != nil {
		return "", storeError("load latest formation date", err)
	}
	if !latest.Valid || latest.String == "" {
		return "", fmt.Errorf("train %s: %w", trainNo, ErrFormationNotFound)
	}
	return latest.String, nil
}

// Resolve returns the display-ordered formation of a train on its latest date
func (s *FormationService) Resolve(ctx context.Context, trainNo string) (*models.Formation, error) {
	date, err := s.LatestFormationDate(ctx, trainNo)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT c.train_seq, c.asset_num
		FROM formations f
		JOIN cars c ON c.formation_id = f.id
		WHERE f.train_no = $1 AND f.trans_date = $2
		ORDER BY f.id, c.id
	`, trainNo, date)
	if err != nil {
		return nil, storeError("load formation cars", err)
	}
	defer rows.Close()

	var cars []models.Car
	for rows.Next() {
		var c models.Car
		if err := rows.Scan(&c.TrainSequence, &c.AssetNumber); err != nil {
			return nil, storeError("scan formation car", err)
		}
		cars = append(cars, c)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("load formation cars", err)
	}

	return &models.Formation{
		TrainNo: trainNo,
		Date:    date,
		Cars:    OrderFormation(cars),
		AllCars: NavigationOrder(cars),
	}, nil
}

// History returns the records of a car inside the lookback window, newest first
func (s *FormationService) History(ctx context.Context, assetNumber string) (*models.CarHistory, error) {
	since := s.now().Add(-s.lookback).UTC()
	h := &models.CarHistory{
		AssetNumber:  assetNumber,
		Maintenance:  []models.MaintenanceRecord{},
		Faults:       []models.FaultRecord{},
		DepotEntries: []models.DepotEntryRecord{},
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, asset_num, maintenance_date, maintenance_type, description, completed
		FROM maintenance_records
		WHERE asset_num = $1 AND maintenance_date >= $2
		ORDER BY maintenance_date DESC, id DESC
	`, assetNumber, since)
	if err != nil {
		return nil, storeError("load maintenance records", err)
	}
	for rows.Next() {
		var r models.MaintenanceRecord
		if err := rows.Scan(&r.ID, &r.AssetNumber, &r.MaintenanceDate, &r.MaintenanceType, &r.Description, &r.Completed); err != nil {
			rows.Close()
			return nil, storeError("scan maintenance record", err)
		}
		h.Maintenance = append(h.Maintenance, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, storeError("load maintenance records", err)
	}

	rows, err = s.db.QueryContext(ctx, `
		SELECT id, asset_num, fault_date, fault_type, description, resolved, resolution_date, resolution_description
		FROM fault_records
		WHERE asset_num = $1 AND fault_date >= $2
		ORDER BY fault_date DESC, id DESC
	`, assetNumber, since)
	if err != nil {
		return nil, storeError("load fault records", err)
	}
	for rows.Next() {
		var r models.FaultRecord
		if err := rows.Scan(&r.ID, &r.AssetNumber, &r.FaultDate, &r.FaultType, &r.Description, &r.Resolved,
			&r.ResolutionDate, &r.ResolutionDescription); err != nil {
			rows.Close()
			return nil, storeError("scan fault record", err)
		}
		h.Faults = append(h.Faults, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, storeError("load fault records", err)
	}

	rows, err = s.db.QueryContext(ctx, `
		SELECT id, asset_num, entry_date, depot_name, reason, released, release_date
		FROM depot_entry_records
		WHERE asset_num = $1 AND entry_date >= $2
		ORDER BY entry_date DESC, id DESC
	`, assetNumber, since)
	if err != nil {
		return nil, storeError("load depot entries", err)
	}
	for rows.Next() {
		var r models.DepotEntryRecord
		if err := rows.Scan(&r.ID, &r.AssetNumber, &r.EntryDate, &r.DepotName, &r.Reason, &r.Released, &r.ReleaseDate); err != nil {
			rows.Close()
			return nil, storeError("scan depot entry", err)
		}
		h.DepotEntries = append(h.DepotEntries, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, storeError("load depot entries", err)
	}

	return h, nil
}

// SaveFormation records the cars assigned to a train on a service date
func (s *FormationService) SaveFormation(ctx context.Context, req models.FormationRequest) (int64, error) {
	if _, err := time.Parse(queryDateLayout, req.Date); err != nil {
		return 0, fmt.Errorf("%w: date must be YYYY-MM-DD: %q", ErrInvalidInput, req.Date)
	}
	if len(req.Cars) == 0 {
		return 0, fmt.Errorf("%w: formation has no cars", ErrInvalidInput)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, storeError("begin formation insert", err)
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO formations (train_no, trans_date)
		VALUES ($1, $2)
		RETURNING id
	`, req.TrainNo, req.Date).Scan(&id)
	if err != nil {
		return 0, storeError("insert formation", err)
	}

	for _, c := range req.Cars {
		if c.AssetNumber == "" {
			return 0, fmt.Errorf("%w: car without asset number", ErrInvalidInput)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO cars (formation_id, train_seq, asset_num)
			VALUES ($1, $2, $3)
		`, id, c.TrainSequence, c.AssetNumber); err != nil {
			return 0, storeError("insert car", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, storeError("commit formation insert", err)
	}
	log.Printf("Saved formation %d for train %s on %s (%d cars)", id, req.TrainNo, req.Date, len(req.Cars))
	return id, nil
}

// AddMaintenance stores a maintenance record for a car
func (s *FormationService) AddMaintenance(ctx context.Context, r models.MaintenanceRecord) (*models.MaintenanceRecord, error) {
	if r.MaintenanceDate.IsZero() {
		return nil, fmt.Errorf("%w: maintenance_date is required", ErrInvalidInput)
	}
	r.MaintenanceDate = r.MaintenanceDate.UTC()
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO maintenance_records (asset_num, maintenance_date, maintenance_type, description, completed)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, r.AssetNumber, r.MaintenanceDate, r.MaintenanceType, r.Description, r.Completed).Scan(&r.ID)
	if err != nil {
		return nil, storeError("insert maintenance record", err)
	}
	return &r, nil
}

// AddFault stores a fault record for a car
func (s *FormationService) AddFault(ctx context.Context, r models.FaultRecord) (*models.FaultRecord, error) {
	if r.FaultDate.IsZero() {
		return nil, fmt.Errorf("%w: fault_date is required", ErrInvalidInput)
	}
	r.FaultDate = r.FaultDate.UTC()
	if r.ResolutionDate != nil {
		t := r.ResolutionDate.UTC()
		r.ResolutionDate = &t
	}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO fault_records (asset_num, fault_date, fault_type, description, resolved, resolution_date, resolution_description)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, r.AssetNumber, r.FaultDate, r.FaultType, r.Description, r.Resolved, r.ResolutionDate, r.ResolutionDescription).Scan(&r.ID)
	if err != nil {
		return nil, storeError("insert fault record", err)
	}
	return &r, nil
}

// AddDepotEntry stores a depot visit for a car
func (s *FormationService) AddDepotEntry(ctx context.Context, r models.DepotEntryRecord) (*models.DepotEntryRecord, error) {
	if r.EntryDate.IsZero() {
		return nil, fmt.Errorf("%w: entry_date is required", ErrInvalidInput)
	}
	r.EntryDate = r.EntryDate.UTC()
	if r.ReleaseDate != nil {
		t := r.ReleaseDate.UTC()
		r.ReleaseDate = &t
	}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO depot_entry_records (asset_num, entry_date, depot_name, reason, released, release_date)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, r.AssetNumber, r.EntryDate, r.DepotName, r.Reason, r.Released, r.ReleaseDate).Scan(&r.ID)
	if err != nil {
		return nil, storeError("insert depot entry", err)
	}
	return &r, nil
}
