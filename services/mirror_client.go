package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"train-live-viewer/config"
	"train-live-viewer/metrics"
	"train-live-viewer/models"
)

// MirrorClient reads train detail, live status and catalog pages from the
// timetable mirror site
type MirrorClient struct {
	baseURL string
	dataURL string
	loc     *time.Location
	client  *http.Client
	metrics *metrics.Collector
}

func NewMirrorClient(cfg *config.Config, m *metrics.Collector) *MirrorClient {
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	return &MirrorClient{
		baseURL: cfg.MirrorBaseURL,
		dataURL: cfg.MirrorDataURL,
		loc:     loc,
		client: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		metrics: m,
	}
}

// flexString accepts a JSON string or number
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	*f = flexString(b)
	return nil
}

func (c *MirrorClient) get(ctx context.Context, source, endpoint string, params url.Values) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.URL.RawQuery = params.Encode()
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	c.metrics.ObserveUpstream(source, start, err)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to call mirror: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return resp.StatusCode, body, nil
}

func isSuccess(status int) bool {
	return status >= 200 && status <= 299
}

// GetDetail returns the static description of a train
func (c *MirrorClient) GetDetail(ctx context.Context, trainNo string) (*models.TripDetail, error) {
	endpoint := fmt.Sprintf("%s/railway/train/%s.json", c.dataURL, url.PathEscape(trainNo))
	status, body, err := c.get(ctx, "mirror_train", endpoint, url.Values{"id": {trainNo}})
	if err != nil {
		return nil, fmt.Errorf("train %s: %w: %w", trainNo, ErrTrainNotFound, err)
	}
	if !isSuccess(status) {
		return nil, fmt.Errorf("train %s: %w: mirror returned status %d", trainNo, ErrTrainNotFound, status)
	}

	var payload struct {
		PageProps struct {
			Train *struct {
				No                string `json:"no"`
				TrainTypeName     string `json:"trainTypeName"`
				StartingStationID string `json:"startingStationId"`
				StartingTime      string `json:"startingTime"`
				EndingStationID   string `json:"endingStationId"`
				EndingTime        string `json:"endingTime"`
				Direction         int    `json:"direction"`
				Note              string `json:"note"`
				WheelChairFlag    bool   `json:"wheelChairFlag"`
				BreastFeedFlag    bool   `json:"breastFeedFlag"`
				DailyFlag         bool   `json:"dailyFlag"`
				StopTimes         []struct {
					Seq           int    `json:"seq"`
					StationID     string `json:"stationId"`
					ArrivalTime   string `json:"arrivalTime"`
					DepartureTime string `json:"departureTime"`
				} `json:"stopTimes"`
			} `json:"train"`
		} `json:"pageProps"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("train %s: %w: failed to parse JSON response: %w", trainNo, ErrTrainNotFound, err)
	}
	t := payload.PageProps.Train
	if t == nil {
		return nil, fmt.Errorf("train %s: %w", trainNo, ErrTrainNotFound)
	}

	detail := &models.TripDetail{
		TrainNo:        t.No,
		TrainType:      t.TrainTypeName,
		StartStationID: t.StartingStationID,
		StartTime:      t.StartingTime,
		EndStationID:   t.EndingStationID,
		EndTime:        t.EndingTime,
		Direction:      t.Direction,
		Note:           t.Note,
		Remarks:        []string{},
		Stops:          make([]models.StopTime, 0, len(t.StopTimes)),
	}
	if detail.TrainNo == "" {
		detail.TrainNo = trainNo
	}
	if t.WheelChairFlag {
		detail.Remarks = append(detail.Remarks, "身障旅客專用座位")
	}
	if t.BreastFeedFlag {
		detail.Remarks = append(detail.Remarks, "哺(集)乳室")
	}
	if t.DailyFlag {
		detail.Remarks = append(detail.Remarks, "每日行駛")
	}
	for _, st := range t.StopTimes {
		detail.Stops = append(detail.Stops, models.StopTime{
			StationID:     st.StationID,
			ArrivalTime:   st.ArrivalTime,
			DepartureTime: st.DepartureTime,
			Sequence:      st.Seq,
		})
	}

	return detail, nil
}

// GetLive returns the current delay and position report of a train
func (c *MirrorClient) GetLive(ctx context.Context, trainNo string) (*models.LiveSnapshot, error) {
	status, body, err := c.get(ctx, "mirror_live", c.baseURL+"/api/get-train-live", url.Values{"no": {trainNo}})
	if err != nil {
		return nil, fmt.Errorf("train %s: %w: %w", trainNo, ErrLiveUnavailable, err)
	}
	if !isSuccess(status) {
		return nil, fmt.Errorf("train %s: %w: mirror returned status %d", trainNo, ErrLiveUnavailable, status)
	}

	var payload struct {
		LiveUpdateTime string         `json:"liveUpdateTime"`
		TrainLiveMap   map[string]int `json:"trainLiveMap"`
		StationLiveMap map[string]int `json:"stationLiveMap"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("train %s: %w: failed to parse JSON response: %w", trainNo, ErrLiveUnavailable, err)
	}

	snap := &models.LiveSnapshot{
		UpdateTime:  c.parseUpdateTime(payload.LiveUpdateTime),
		TrainLive:   liveMap(payload.TrainLiveMap),
		StationLive: liveMap(payload.StationLiveMap),
	}
	return snap, nil
}

// liveMap converts "trainNo_stationId" keys; malformed keys are skipped
func liveMap(raw map[string]int) map[models.LiveKey]int {
	out := make(map[models.LiveKey]int, len(raw))
	for k, v := range raw {
		trainNo, stationID, ok := strings.Cut(k, "_")
		if !ok || trainNo == "" || stationID == "" {
			continue
		}
		out[models.LiveKey{TrainNo: trainNo, StationID: stationID}] = v
	}
	return out
}

var updateTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006/01/02 15:04:05",
	"2006-01-02T15:04:05",
}

func (c *MirrorClient) parseUpdateTime(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range updateTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, c.loc); err == nil {
			return t
		}
	}
	if s != "" {
		log.Printf("Unrecognised live update time %q", s)
	}
	return time.Now().In(c.loc)
}

// GetLine returns a line with its stations
func (c *MirrorClient) GetLine(ctx context.Context, lineID string) (*models.Line, []models.LineStation, error) {
	endpoint := fmt.Sprintf("%s/railway/line/%s.json", c.dataURL, url.PathEscape(lineID))
	status, body, err := c.get(ctx, "mirror_line", endpoint, url.Values{"id": {lineID}})
	if err != nil {
		return nil, nil, err
	}
	if !isSuccess(status) {
		return nil, nil, fmt.Errorf("line %s: mirror returned status %d", lineID, status)
	}

	var payload struct {
		PageProps struct {
			Stations []struct {
				StationID        flexString `json:"StationID"`
				StationName      string     `json:"StationName"`
				Sequence         int        `json:"Sequence"`
				TraveledDistance float64    `json:"TraveledDistance"`
			} `json:"stations"`
			Line *struct {
				LineID            string `json:"LineID"`
				LineNameZh        string `json:"LineNameZh"`
				LineNameEn        string `json:"LineNameEn"`
				LineSectionNameZh string `json:"LineSectionNameZh"`
				LineSectionNameEn string `json:"LineSectionNameEn"`
				IsBranch          bool   `json:"IsBranch"`
				UpdateTime        string `json:"UpdateTime"`
			} `json:"line"`
		} `json:"pageProps"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, nil, fmt.Errorf("line %s: failed to parse JSON response: %w", lineID, err)
	}
	l := payload.PageProps.Line
	if l == nil {
		return nil, nil, fmt.Errorf("line %s: missing line data", lineID)
	}

	line := &models.Line{
		ID:            l.LineID,
		NameZh:        l.LineNameZh,
		NameEn:        l.LineNameEn,
		SectionNameZh: l.LineSectionNameZh,
		SectionNameEn: l.LineSectionNameEn,
		IsBranch:      l.IsBranch,
	}
	if t, err := time.Parse(time.RFC3339, l.UpdateTime); err == nil {
		line.UpdateTime = t
	}

	stations := make([]models.LineStation, 0, len(payload.PageProps.Stations))
	for _, s := range payload.PageProps.Stations {
		stations = append(stations, models.LineStation{
			StationID:        string(s.StationID),
			StationName:      s.StationName,
			Sequence:         s.Sequence,
			LineID:           l.LineID,
			TraveledDistance: s.TraveledDistance,
		})
	}
	return line, stations, nil
}

// GetStation returns the descriptive data of a station with its exits
func (c *MirrorClient) GetStation(ctx context.Context, stationID string) (*models.StationDetail, error) {
	endpoint := fmt.Sprintf("%s/railway/station/%s.json", c.dataURL, url.PathEscape(stationID))
	status, body, err := c.get(ctx, "mirror_station", endpoint, url.Values{"id": {stationID}})
	if err != nil {
		return nil, err
	}
	if !isSuccess(status) {
		return nil, fmt.Errorf("station %s: mirror returned status %d", stationID, status)
	}

	var payload struct {
		PageProps struct {
			Station *struct {
				ID           flexString `json:"id"`
				UID          string     `json:"uid"`
				Name         string     `json:"name"`
				NameEn       string     `json:"nameEn"`
				Longitude    float64    `json:"longitude"`
				Latitude     float64    `json:"latitude"`
				Address      string     `json:"address"`
				Phone        string     `json:"phone"`
				StationClass flexString `json:"stationClass"`
				URL          string     `json:"url"`
				Exits        []struct {
					ID        flexString `json:"id"`
					Name      string     `json:"name"`
					Longitude float64    `json:"longitude"`
					Latitude  float64    `json:"latitude"`
					Location  string     `json:"location"`
					Stair     bool       `json:"stair"`
					Escalator int        `json:"escalator"`
					Elevator  bool       `json:"elevator"`
				} `json:"exits"`
			} `json:"station"`
		} `json:"pageProps"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("station %s: failed to parse JSON response: %w", stationID, err)
	}
	s := payload.PageProps.Station
	if s == nil {
		return nil, fmt.Errorf("station %s: %w", stationID, ErrStationNotFound)
	}

	detail := &models.StationDetail{
		StationID:    string(s.ID),
		StationUID:   s.UID,
		Name:         s.Name,
		NameEn:       s.NameEn,
		Longitude:    s.Longitude,
		Latitude:     s.Latitude,
		Address:      s.Address,
		Phone:        s.Phone,
		StationClass: string(s.StationClass),
		URL:          s.URL,
		City:         CityOf(s.Address),
		Exits:        make([]models.StationExit, 0, len(s.Exits)),
	}
	if detail.StationID == "" {
		detail.StationID = stationID
	}
	for _, e := range s.Exits {
		detail.Exits = append(detail.Exits, models.StationExit{
			ID:           string(e.ID),
			StationID:    detail.StationID,
			Name:         e.Name,
			Longitude:    e.Longitude,
			Latitude:     e.Latitude,
			Location:     e.Location,
			HasStair:     e.Stair,
			HasEscalator: e.Escalator,
			HasElevator:  e.Elevator,
		})
	}
	return detail, nil
}
