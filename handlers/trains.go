package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"train-live-viewer/models"
	"train-live-viewer/services"
)

// SearchSchedules lists the trips between two stations on a date
func (h *Handler) SearchSchedules(c *gin.Context) {
	var req models.ScheduleRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := services.ValidateQueryDate(req.Date, h.now(), h.location()); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	window, err := services.ParseTimeWindow(req.Start, req.End)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	log.Printf("Schedule search: %s -> %s on %s", req.Origin, req.Destination, req.Date)

	trips, err := h.Schedules.Search(c.Request.Context(), req.Origin, req.Destination, req.Date)
	if err != nil {
		respondError(c, err, "Failed to fetch train schedules")
		return
	}

	trips = services.SortByDeparture(services.FilterByWindow(trips, req.Origin, window), req.Origin)
	c.JSON(http.StatusOK, models.ScheduleResponse{
		Origin:      req.Origin,
		Destination: req.Destination,
		Date:        req.Date,
		Count:       len(trips),
		Trips:       trips,
	})
}

// GetTrain returns the timetable of a train with its current live status
func (h *Handler) GetTrain(c *gin.Context) {
	trainNo := c.Param("trainNo")
	ctx := c.Request.Context()

	detail, snap, err := services.FetchTrain(ctx, h.Trains, trainNo)
	if err != nil {
		respondError(c, err, "Failed to load train")
		return
	}

	names, err := h.Stations.NameMap(ctx)
	if err != nil {
		log.Printf("Error loading station names: %v", err)
		names = map[string]string{}
	}

	c.JSON(http.StatusOK, services.BuildTrainResponse(trainNo, detail, names, snap, h.now()))
}

// GetFormation returns the latest formation of a train
func (h *Handler) GetFormation(c *gin.Context) {
	formation, err := h.Formations.Resolve(c.Request.Context(), c.Param("trainNo"))
	if err != nil {
		respondError(c, err, "Failed to load train formation")
		return
	}

	c.JSON(http.StatusOK, formation)
}

// GetCarHistory returns the recent maintenance, fault and depot records of a car
func (h *Handler) GetCarHistory(c *gin.Context) {
	history, err := h.Formations.History(c.Request.Context(), c.Param("assetNum"))
	if err != nil {
		respondError(c, err, "Failed to load car history")
		return
	}

	c.JSON(http.StatusOK, history)
}

// CreateFormation records a formation
func (h *Handler) CreateFormation(c *gin.Context) {
	var req models.FormationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id, err := h.Formations.SaveFormation(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "Failed to save formation")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": id})
}

// AddMaintenance records a maintenance entry for a car
func (h *Handler) AddMaintenance(c *gin.Context) {
	var rec models.MaintenanceRecord
	if err := c.ShouldBindJSON(&rec); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rec.AssetNumber = c.Param("assetNum")

	saved, err := h.Formations.AddMaintenance(c.Request.Context(), rec)
	if err != nil {
		respondError(c, err, "Failed to save maintenance record")
		return
	}

	c.JSON(http.StatusCreated, saved)
}

// AddFault records a fault for a car
func (h *Handler) AddFault(c *gin.Context) {
	var rec models.FaultRecord
	if err := c.ShouldBindJSON(&rec); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rec.AssetNumber = c.Param("assetNum")

	saved, err := h.Formations.AddFault(c.Request.Context(), rec)
	if err != nil {
		respondError(c, err, "Failed to save fault record")
		return
	}

	c.JSON(http.StatusCreated, saved)
}

// AddDepotEntry records a depot visit for a car
func (h *Handler) AddDepotEntry(c *gin.Context) {
	var rec models.DepotEntryRecord
	if err := c.ShouldBindJSON(&rec); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rec.AssetNumber = c.Param("assetNum")

	saved, err := h.Formations.AddDepotEntry(c.Request.Context(), rec)
	if err != nil {
		respondError(c, err, "Failed to save depot entry")
		return
	}

	c.JSON(http.StatusCreated, saved)
}
