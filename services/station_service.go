package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"regexp"
	"sync"

	"train-live-viewer/models"
)

// cityPattern lists the administrative regions a station address can start with
var cityPattern = regexp.MustCompile(`臺北市|新北市|基隆市|宜蘭縣|桃園市|新竹市|新竹縣|苗栗縣|台中市|彰化縣|南投縣|雲林縣|嘉義市|嘉義縣|台南市|高雄市|屏東縣|台東縣|花蓮縣`)

// CityOf returns the region named earliest in the address, or nil
func CityOf(address string) *string {
	city := cityPattern.FindString(address)
	if city == "" {
		return nil
	}
	return &city
}

// StationService reads and writes the station catalog
type StationService struct {
	db *sql.DB

	mu    sync.Mutex
	names map[string]string
}

func NewStationService(db *sql.DB) *StationService {
	return &StationService{db: db}
}

// LoadAll returns every station ordered by name
func (s *StationService) LoadAll(ctx context.Context) ([]models.Station, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.station_id, s.station_name, COALESCE(d.address, '')
		FROM stations s
		LEFT JOIN station_details d ON d.station_id = s.station_id
		ORDER BY s.station_name, s.station_id
	`)
	if err != nil {
		return nil, storeError("load stations", err)
	}
	defer rows.Close()

	stations := []models.Station{}
	for rows.Next() {
		var st models.Station
		if err := rows.Scan(&st.ID, &st.Name, &st.Address); err != nil {
			return nil, storeError("scan station", err)
		}
		st.City = CityOf(st.Address)
		stations = append(stations, st)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("load stations", err)
	}

	return stations, nil
}

// NameMap returns the station id to name map. The map is read once and
// kept for the life of the service; a failed read is not cached.
func (s *StationService) NameMap(ctx context.Context) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.names != nil {
		return s.names, nil
	}

	rows, err := s.db.QueryContext(ctx, `SELECT station_id, station_name FROM stations`)
	if err != nil {
		return nil, storeError("load station names", err)
	}
	defer rows.Close()

	names := make(map[string]string)
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, storeError("scan station name", err)
		}
		names[id] = name
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("load station names", err)
	}

	s.names = names
	return names, nil
}

// NameOf resolves a station id to its display name
func (s *StationService) NameOf(ctx context.Context, id string) (string, bool) {
	names, err := s.NameMap(ctx)
	if err != nil {
		log.Printf("Error loading station names: %v", err)
		return "", false
	}
	name, ok := names[id]
	return name, ok
}

func (s *StationService) resetNames() {
	s.mu.Lock()
	s.names = nil
	s.mu.Unlock()
}

// Detail returns the descriptive data of a station with its exits
func (s *StationService) Detail(ctx context.Context, id string) (*models.StationDetail, error) {
	var d models.StationDetail
	err := s.db.QueryRowContext(ctx, `
		SELECT station_id, station_uid, station_name, station_name_en, longitude, latitude,
			address, phone, station_class, url
		FROM station_details
		WHERE station_id = $1
	`, id).Scan(&d.StationID, &d.StationUID, &d.Name, &d.NameEn, &d.Longitude, &d.Latitude,
		&d.Address, &d.Phone, &d.StationClass, &d.URL)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("station %s: %w", id, ErrStationNotFound)
	}
	if err != nil {
		return nil, storeError("load station detail", err)
	}
	d.City = CityOf(d.Address)

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, station_id, exit_name, longitude, latitude, location, has_stair, has_escalator, has_elevator
		FROM station_exits
		WHERE station_id = $1
		ORDER BY id
	`, id)
	if err != nil {
		return nil, storeError("load station exits", err)
	}
	defer rows.Close()

	d.Exits = []models.StationExit{}
	for rows.Next() {
		var e models.StationExit
		if err := rows.Scan(&e.ID, &e.StationID, &e.Name, &e.Longitude, &e.Latitude, &e.Location,
			&e.HasStair, &e.HasEscalator, &e.HasElevator); err != nil {
			return nil, storeError("scan station exit", err)
		}
		d.Exits = append(d.Exits, e)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("load station exits", err)
	}

	return &d, nil
}

// UpsertStations writes station rows keyed by station id
func (s *StationService) UpsertStations(ctx context.Context, stations []models.LineStation) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storeError("begin station upsert", err)
	}
	defer tx.Rollback()

	if err := upsertStations(ctx, tx, stations); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return storeError("commit station upsert", err)
	}
	s.resetNames()
	return nil
}

// UpsertLine writes a line and its stations in one transaction
func (s *StationService) UpsertLine(ctx context.Context, line models.Line, stations []models.LineStation) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storeError("begin line upsert", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO lines (line_id, line_name_zh, line_name_en, line_section_name_zh, line_section_name_en, is_branch, update_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (line_id) DO UPDATE SET
			line_name_zh = excluded.line_name_zh,
			line_name_en = excluded.line_name_en,
			line_section_name_zh = excluded.line_section_name_zh,
			line_section_name_en = excluded.line_section_name_en,
			is_branch = excluded.is_branch,
			update_time = excluded.update_time
	`, line.ID, line.NameZh, line.NameEn, line.SectionNameZh, line.SectionNameEn, line.IsBranch, line.UpdateTime.UTC())
	if err != nil {
		return storeError("upsert line", err)
	}

	if err := upsertStations(ctx, tx, stations); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return storeError("commit line upsert", err)
	}
	s.resetNames()
	log.Printf("Imported line %s with %d stations", line.ID, len(stations))
	return nil
}

func upsertStations(ctx context.Context, tx *sql.Tx, stations []models.LineStation) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO stations (station_id, station_name, sequence, line_id, traveled_distance)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (station_id) DO UPDATE SET
			station_name = excluded.station_name,
			sequence = excluded.sequence,
			line_id = excluded.line_id,
			traveled_distance = excluded.traveled_distance
	`)
	if err != nil {
		return storeError("prepare station upsert", err)
	}
	defer stmt.Close()

	for _, st := range stations {
		if _, err := stmt.ExecContext(ctx, st.StationID, st.StationName, st.Sequence, st.LineID, st.TraveledDistance); err != nil {
			return storeError("upsert station "+st.StationID, err)
		}
	}
	return nil
}

// UpsertStationDetail writes a station detail and replaces its exits by key
func (s *StationService) UpsertStationDetail(ctx context.Context, d models.StationDetail) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storeError("begin station detail upsert", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO station_details (station_id, station_uid, station_name, station_name_en, longitude, latitude,
			address, phone, station_class, url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (station_id) DO UPDATE SET
			station_uid = excluded.station_uid,
			station_name = excluded.station_name,
			station_name_en = excluded.station_name_en,
			longitude = excluded.longitude,
			latitude = excluded.latitude,
			address = excluded.address,
			phone = excluded.phone,
			station_class = excluded.station_class,
			url = excluded.url
	`, d.StationID, d.StationUID, d.Name, d.NameEn, d.Longitude, d.Latitude, d.Address, d.Phone, d.StationClass, d.URL)
	if err != nil {
		return storeError("upsert station detail", err)
	}

	for _, e := range d.Exits {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO station_exits (id, station_id, exit_name, longitude, latitude, location, has_stair, has_escalator, has_elevator)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (station_id, id) DO UPDATE SET
				exit_name = excluded.exit_name,
				longitude = excluded.longitude,
				latitude = excluded.latitude,
				location = excluded.location,
				has_stair = excluded.has_stair,
				has_escalator = excluded.has_escalator,
				has_elevator = excluded.has_elevator
		`, e.ID, d.StationID, e.Name, e.Longitude, e.Latitude, e.Location, e.HasStair, e.HasEscalator, e.HasElevator)
		if err != nil {
			return storeError("upsert station exit "+e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return storeError("commit station detail upsert", err)
	}
	log.Printf("Imported station detail %s with %d exits", d.StationID, len(d.Exits))
	return nil
}
