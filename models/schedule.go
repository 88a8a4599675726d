package models

// Trip is one scheduled train service returned by an origin/destination search
type Trip struct {
	TrainNo          string     `json:"train_no"`
	Direction        int        `json:"direction"`
	TrainType        string     `json:"train_type"`
	StartStationName string     `json:"start_station_name"`
	EndStationName   string     `json:"end_station_name"`
	Note             string     `json:"note,omitempty"`
	Stops            []StopTime `json:"stops"`
}

// StopTime is a scheduled call of a trip at a station.
// Times are same-day "HH:MM" strings.
type StopTime struct {
	StationID     string `json:"station_id"`
	StationName   string `json:"station_name"`
	ArrivalTime   string `json:"arrival_time"`
	DepartureTime string `json:"departure_time"`
	Sequence      int    `json:"sequence"`
}

// StopAt returns the stop of the trip at the given station
func (t Trip) StopAt(stationID string) (StopTime, bool) {
	for _, s := range t.Stops {
		if s.StationID == stationID {
			return s, true
		}
	}
	return StopTime{}, false
}

// TimeWindow bounds departure times at the origin stop as HHMM integers.
// A nil bound is open.
type TimeWindow struct {
	Start *int
	End   *int
}

// Contains reports whether hhmm falls inside the window, bounds inclusive
func (w TimeWindow) Contains(hhmm int) bool {
	if w.Start != nil && hhmm < *w.Start {
		return false
	}
	if w.End != nil && hhmm > *w.End {
		return false
	}
	return true
}

// IsOpen reports whether neither bound is set
func (w TimeWindow) IsOpen() bool {
	return w.Start == nil && w.End == nil
}

// ScheduleRequest represents a schedule search query
type ScheduleRequest struct {
	Origin      string `form:"from" binding:"required"`
	Destination string `form:"to" binding:"required"`
	Date        string `form:"date" binding:"required"`
	Start       string `form:"start"`
	End         string `form:"end"`
}

// ScheduleResponse wraps the trips found for a search
type ScheduleResponse struct {
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
	Date        string `json:"date"`
	Count       int    `json:"count"`
	Trips       []Trip `json:"trips"`
}
