package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/bluele/gcache"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"train-live-viewer/config"
	"train-live-viewer/metrics"
	"train-live-viewer/models"
)

const scheduleCacheSize = 512

// TDXClient queries the TDX open data timetable API
type TDXClient struct {
	baseURL string
	client  *http.Client
	cache   gcache.Cache
	metrics *metrics.Collector
}

// NewTDXClient creates a client. When credentials are configured every
// request carries a client-credentials bearer token that is refreshed on expiry.
func NewTDXClient(cfg *config.Config, m *metrics.Collector) *TDXClient {
	base := &http.Client{Timeout: cfg.RequestTimeout}
	client := base

	if cfg.TDXClientID != "" && cfg.TDXClientSecret != "" {
		cc := clientcredentials.Config{
			ClientID:     cfg.TDXClientID,
			ClientSecret: cfg.TDXClientSecret,
			TokenURL:     cfg.TDXAuthURL,
			AuthStyle:    oauth2.AuthStyleInParams,
		}
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
		client = cc.Client(ctx)
		client.Timeout = cfg.RequestTimeout
	}

	var cache gcache.Cache
	if cfg.ScheduleCacheTTL > 0 {
		cache = gcache.New(scheduleCacheSize).LRU().Expiration(cfg.ScheduleCacheTTL).Build()
	}

	return &TDXClient{
		baseURL: cfg.TDXAPIURL,
		client:  client,
		cache:   cache,
		metrics: m,
	}
}

type tdxName struct {
	ZhTw string `json:"Zh_tw"`
	En   string `json:"En"`
}

type tdxTimetable struct {
	TrainInfo struct {
		TrainNo             string  `json:"TrainNo"`
		Direction           int     `json:"Direction"`
		TrainTypeName       tdxName `json:"TrainTypeName"`
		StartingStationName tdxName `json:"StartingStationName"`
		EndingStationName   tdxName `json:"EndingStationName"`
		Note                string  `json:"Note"`
	} `json:"TrainInfo"`
	StopTimes []struct {
		StopSequence  int     `json:"StopSequence"`
		StationID     string  `json:"StationID"`
		StationName   tdxName `json:"StationName"`
		ArrivalTime   string  `json:"ArrivalTime"`
		DepartureTime string  `json:"DepartureTime"`
	} `json:"StopTimes"`
}

// Search returns the trips scheduled between two stations on a date (YYYY-MM-DD)
func (c *TDXClient) Search(ctx context.Context, originID, destID, date string) ([]models.Trip, error) {
	key := originID + "|" + destID + "|" + date
	if c.cache != nil {
		if v, err := c.cache.Get(key); err == nil {
			c.metrics.CacheHit("schedule")
			return v.([]models.Trip), nil
		}
		c.metrics.CacheMiss("schedule")
	}

	endpoint := fmt.Sprintf("%s/Rail/TRA/DailyTrainTimetable/OD/%s/to/%s/%s",
		c.baseURL, url.PathEscape(originID), url.PathEscape(destID), url.PathEscape(date))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %w", ErrScheduleQueryFailed, err)
	}
	// OData options are sent literally, url.Values would escape the '$'
	req.URL.RawQuery = "$top=1000&$format=JSON"
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	c.metrics.ObserveUpstream("tdx", start, err)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScheduleQueryFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		log.Printf("TDX returned status %d: %s", resp.StatusCode, string(bodyBytes))
		return nil, fmt.Errorf("%w: API returned status %d", ErrScheduleQueryFailed, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response body: %w", ErrScheduleQueryFailed, err)
	}

	trips := parseTimetables(body)
	if c.cache != nil {
		_ = c.cache.Set(key, trips)
	}
	return trips, nil
}

// parseTimetables converts the OD response. A body without a usable
// TrainTimetables list is an empty result.
func parseTimetables(body []byte) []models.Trip {
	var payload struct {
		TrainTimetables []tdxTimetable `json:"TrainTimetables"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		log.Printf("Failed to parse TDX timetable response: %v", err)
		return []models.Trip{}
	}

	trips := make([]models.Trip, 0, len(payload.TrainTimetables))
	for _, tt := range payload.TrainTimetables {
		trip := models.Trip{
			TrainNo:          tt.TrainInfo.TrainNo,
			Direction:        tt.TrainInfo.Direction,
			TrainType:        tt.TrainInfo.TrainTypeName.ZhTw,
			StartStationName: tt.TrainInfo.StartingStationName.ZhTw,
			EndStationName:   tt.TrainInfo.EndingStationName.ZhTw,
			Note:             tt.TrainInfo.Note,
			Stops:            make([]models.StopTime, 0, len(tt.StopTimes)),
		}
		for _, st := range tt.StopTimes {
			trip.Stops = append(trip.Stops, models.StopTime{
				StationID:     st.StationID,
				StationName:   st.StationName.ZhTw,
				ArrivalTime:   st.ArrivalTime,
				DepartureTime: st.DepartureTime,
				Sequence:      st.StopSequence,
			})
		}
		trips = append(trips, trip)
	}
	return trips
}
