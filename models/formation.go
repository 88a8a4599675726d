package models

import "time"

// Car is one vehicle assigned to a train
type Car struct {
	AssetNumber   string `json:"asset_number"`
	TrainSequence int    `json:"train_sequence"`
	IsEngine      bool   `json:"is_engine"`
}

// Formation is the display-ordered set of cars of a train on its latest service date
type Formation struct {
	TrainNo string `json:"train_no"`
	Date    string `json:"date"`
	Cars    []Car  `json:"cars"`
	// AllCars is the de-duplicated car list used for previous/next navigation
	AllCars []string `json:"all_cars"`
}

// FormationRequest writes one formation row with its cars
type FormationRequest struct {
	TrainNo string `json:"train_no" binding:"required"`
	Date    string `json:"date" binding:"required"`
	Cars    []Car  `json:"cars" binding:"required,min=1"`
}

// MaintenanceRecord is a routine maintenance entry for a car
type MaintenanceRecord struct {
	ID              int64     `json:"id"`
	AssetNumber     string    `json:"asset_number"`
	MaintenanceDate time.Time `json:"maintenance_date"`
	MaintenanceType string    `json:"maintenance_type"`
	Description     string    `json:"description"`
	Completed       bool      `json:"completed"`
}

// Status returns "completed" or "in_progress"
func (r MaintenanceRecord) Status() string {
	if r.Completed {
		return "completed"
	}
	return "in_progress"
}

// FaultRecord is a reported fault of a car
type FaultRecord struct {
	ID                    int64      `json:"id"`
	AssetNumber           string     `json:"asset_number"`
	FaultDate             time.Time  `json:"fault_date"`
	FaultType             string     `json:"fault_type"`
	Description           string     `json:"description"`
	Resolved              bool       `json:"resolved"`
	ResolutionDate        *time.Time `json:"resolution_date,omitempty"`
	ResolutionDescription *string    `json:"resolution_description,omitempty"`
}

// Status returns "resolved" or "unresolved"
func (r FaultRecord) Status() string {
	if r.Resolved {
		return "resolved"
	}
	return "unresolved"
}

// DepotEntryRecord is a visit of a car to a maintenance facility
type DepotEntryRecord struct {
	ID          int64      `json:"id"`
	AssetNumber string     `json:"asset_number"`
	EntryDate   time.Time  `json:"entry_date"`
	DepotName   string     `json:"depot_name"`
	Reason      string     `json:"reason"`
	Released    bool       `json:"released"`
	ReleaseDate *time.Time `json:"release_date,omitempty"`
}

// Status returns "released" or "in_depot"
func (r DepotEntryRecord) Status() string {
	if r.Released {
		return "released"
	}
	return "in_depot"
}

// CarHistory groups the recent records of one car
type CarHistory struct {
	AssetNumber  string              `json:"asset_number"`
	Maintenance  []MaintenanceRecord `json:"maintenance"`
	Faults       []FaultRecord       `json:"faults"`
	DepotEntries []DepotEntryRecord  `json:"depot_entries"`
}

// CarDetail is the per-car view used while stepping through a formation
type CarDetail struct {
	AssetNumber string      `json:"asset_number"`
	Index       int         `json:"index"`
	Total       int         `json:"total"`
	Previous    string      `json:"previous,omitempty"`
	Next        string      `json:"next,omitempty"`
	History     *CarHistory `json:"history"`
}
