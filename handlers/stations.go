package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"train-live-viewer/models"
)

// GetStations returns all stations for the search inputs
func (h *Handler) GetStations(c *gin.Context) {
	stations, err := h.Stations.LoadAll(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to retrieve stations")
		return
	}

	c.JSON(http.StatusOK, stations)
}

// GetStation returns the detail and exits of a station
func (h *Handler) GetStation(c *gin.Context) {
	detail, err := h.Stations.Detail(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to retrieve station")
		return
	}

	c.JSON(http.StatusOK, detail)
}

// ImportLine imports a line and its stations from the mirror
func (h *Handler) ImportLine(c *gin.Context) {
	var req models.ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.Importer.ImportLine(c.Request.Context(), req.ID)
	if err != nil {
		respondError(c, err, "Failed to import stations data")
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ImportStationDetail imports station detail and exits from the mirror
func (h *Handler) ImportStationDetail(c *gin.Context) {
	var req models.ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.Importer.ImportStationDetail(c.Request.Context(), req.ID)
	if err != nil {
		respondError(c, err, "Failed to import station details")
		return
	}

	c.JSON(http.StatusOK, resp)
}
