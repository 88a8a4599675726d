package handlers

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"train-live-viewer/services"
)

// Handler serves the HTTP API
type Handler struct {
	Stations   *services.StationService
	Schedules  *services.TDXClient
	Trains     *services.MirrorClient
	Formations *services.FormationService
	Views      *services.ViewRegistry
	Importer   *services.Importer
	Location   *time.Location

	// Now is the clock used for date checks and live status
	Now func() time.Time
}

func (h *Handler) location() *time.Location {
	if h.Location != nil {
		return h.Location
	}
	return time.Local
}

func (h *Handler) now() time.Time {
	now := time.Now
	if h.Now != nil {
		now = h.Now
	}
	return now().In(h.location())
}

// Register adds the API routes to a router group
func (h *Handler) Register(api *gin.RouterGroup) {
	// Station routes
	api.GET("/stations", h.GetStations)
	api.GET("/stations/:id", h.GetStation)

	// Schedule and train routes
	api.GET("/schedules", h.SearchSchedules)
	api.GET("/trains/:trainNo", h.GetTrain)
	api.GET("/trains/:trainNo/formation", h.GetFormation)
	api.GET("/cars/:assetNum/history", h.GetCarHistory)

	// Live views
	api.POST("/views", h.OpenView)
	api.GET("/views", h.ListViews)
	api.GET("/views/:id", h.GetView)
	api.DELETE("/views/:id", h.CloseView)
	api.GET("/views/:id/formation", h.GetViewFormation)
	api.GET("/views/:id/cars/:assetNum", h.SelectCar)
	api.POST("/views/:id/cars/next", h.NextCar)
	api.POST("/views/:id/cars/previous", h.PreviousCar)

	// Ingest
	api.POST("/import/lines", h.ImportLine)
	api.POST("/import/station-details", h.ImportStationDetail)
	api.POST("/formations", h.CreateFormation)
	api.POST("/cars/:assetNum/maintenance", h.AddMaintenance)
	api.POST("/cars/:assetNum/faults", h.AddFault)
	api.POST("/cars/:assetNum/depot-entries", h.AddDepotEntry)
}

// respondError maps service errors to status codes. Client errors echo the
// cause, server side failures only the message.
func respondError(c *gin.Context, err error, msg string) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrInvalidInput), errors.Is(err, services.ErrDateOutOfRange):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrTrainNotFound),
		errors.Is(err, services.ErrFormationNotFound),
		errors.Is(err, services.ErrStationNotFound),
		errors.Is(err, services.ErrViewNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrScheduleQueryFailed), errors.Is(err, services.ErrLiveUnavailable):
		status = http.StatusBadGateway
	case errors.Is(err, services.ErrDataUnavailable):
		status = http.StatusServiceUnavailable
	}

	log.Printf("%s: %v", msg, err)
	if status < http.StatusInternalServerError {
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(status, gin.H{"error": msg})
}
