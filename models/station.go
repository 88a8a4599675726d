package models

import "time"

// Station represents a railway station in the search catalog
type Station struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Address string  `json:"address,omitempty"`
	City    *string `json:"city"`
}

// LineStation is a station row as it is stored per line
type LineStation struct {
	StationID        string  `json:"station_id"`
	StationName      string  `json:"station_name"`
	Sequence         int     `json:"sequence"`
	LineID           string  `json:"line_id"`
	TraveledDistance float64 `json:"traveled_distance"`
}

// Line represents a railway line
type Line struct {
	ID            string    `json:"line_id"`
	NameZh        string    `json:"line_name_zh"`
	NameEn        string    `json:"line_name_en"`
	SectionNameZh string    `json:"line_section_name_zh"`
	SectionNameEn string    `json:"line_section_name_en"`
	IsBranch      bool      `json:"is_branch"`
	UpdateTime    time.Time `json:"update_time"`
}

// StationDetail holds the descriptive data of a single station
type StationDetail struct {
	StationID    string        `json:"station_id"`
	StationUID   string        `json:"station_uid"`
	Name         string        `json:"station_name"`
	NameEn       string        `json:"station_name_en"`
	Longitude    float64       `json:"longitude"`
	Latitude     float64       `json:"latitude"`
	Address      string        `json:"address"`
	Phone        string        `json:"phone"`
	StationClass string        `json:"station_class"`
	URL          string        `json:"url"`
	City         *string       `json:"city"`
	Exits        []StationExit `json:"exits"`
}

// StationExit represents one exit of a station
type StationExit struct {
	ID           string  `json:"id"`
	StationID    string  `json:"station_id"`
	Name         string  `json:"exit_name"`
	Longitude    float64 `json:"longitude"`
	Latitude     float64 `json:"latitude"`
	Location     string  `json:"location"`
	HasStair     bool    `json:"has_stair"`
	HasEscalator int     `json:"has_escalator"`
	HasElevator  bool    `json:"has_elevator"`
}

// ImportRequest identifies a line or station to import from the mirror
type ImportRequest struct {
	ID string `json:"id" binding:"required"`
}

// ImportResponse reports the outcome of an import
type ImportResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
