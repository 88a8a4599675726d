package models

import (
	"fmt"
	"time"
)

// TripDetail is the static description of a train service
type TripDetail struct {
	TrainNo        string     `json:"train_no"`
	TrainType      string     `json:"train_type"`
	StartStationID string     `json:"start_station_id"`
	StartTime      string     `json:"start_time"`
	EndStationID   string     `json:"end_station_id"`
	EndTime        string     `json:"end_time"`
	Direction      int        `json:"direction"`
	Note           string     `json:"note"`
	Remarks        []string   `json:"remarks"`
	Stops          []StopTime `json:"stops"`
}

// DirectionLabel returns the display label of the running direction
func (d TripDetail) DirectionLabel() string {
	if d.Direction == 0 {
		return "順行"
	}
	return "逆行"
}

// LiveKey identifies a train at a station in a live snapshot
type LiveKey struct {
	TrainNo   string
	StationID string
}

// LiveSnapshot is a point-in-time delay and position report for a train.
// Both maps are sparse: a missing key means no data.
type LiveSnapshot struct {
	UpdateTime  time.Time
	TrainLive   map[LiveKey]int
	StationLive map[LiveKey]int
}

// StatusKind classifies a stop against a live snapshot
type StatusKind string

const (
	StatusUpcoming    StatusKind = "upcoming"
	StatusNextStation StatusKind = "next_station"
	StatusOnTime      StatusKind = "on_time"
	StatusDelayed     StatusKind = "delayed"
	StatusUnknown     StatusKind = "unknown"
)

// StopStatus is the live status of one stop
type StopStatus struct {
	Kind         StatusKind `json:"kind"`
	DelayMinutes int        `json:"delay_minutes,omitempty"`
}

// Label renders the status the way the timetable shows it
func (s StopStatus) Label() string {
	switch s.Kind {
	case StatusNextStation:
		return "下一站"
	case StatusOnTime:
		return "準點"
	case StatusDelayed:
		return fmt.Sprintf("晚%d分", s.DelayMinutes)
	default:
		return "-"
	}
}

// TimetableRow is one stop of a train with its live status
type TimetableRow struct {
	Sequence      int        `json:"sequence"`
	StationID     string     `json:"station_id"`
	StationName   string     `json:"station_name"`
	ArrivalTime   string     `json:"arrival_time"`
	DepartureTime string     `json:"departure_time"`
	Status        StopStatus `json:"status"`
	StatusLabel   string     `json:"status_label"`
}

// TrainResponse is the one-shot train view
type TrainResponse struct {
	TrainNo        string         `json:"train_no"`
	TrainType      string         `json:"train_type"`
	StartStation   string         `json:"start_station"`
	StartTime      string         `json:"start_time"`
	EndStation     string         `json:"end_station"`
	EndTime        string         `json:"end_time"`
	Direction      string         `json:"direction"`
	Note           string         `json:"note"`
	Remarks        []string       `json:"remarks"`
	LiveUpdateTime time.Time      `json:"live_update_time"`
	Timetable      []TimetableRow `json:"timetable"`
}
