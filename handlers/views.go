package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"train-live-viewer/models"
	"train-live-viewer/services"
)

type openViewRequest struct {
	TrainNo string `json:"train_no" binding:"required"`
}

// OpenView opens a live view of a train and starts refreshing it
func (h *Handler) OpenView(c *gin.Context) {
	var req openViewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	view, err := h.Views.Open(c.Request.Context(), req.TrainNo)
	if err != nil {
		respondError(c, err, "Failed to open live view")
		return
	}

	c.JSON(http.StatusCreated, view.Response(h.now()))
}

// ListViews returns the open live views
func (h *Handler) ListViews(c *gin.Context) {
	views := h.Views.List()
	out := make([]gin.H, 0, len(views))
	for _, v := range views {
		out = append(out, gin.H{
			"id":         v.ID,
			"train_no":   v.TrainNo,
			"created_at": v.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, out)
}

// GetView returns the current timetable and refresh state of a view
func (h *Handler) GetView(c *gin.Context) {
	view, err := h.Views.Get(c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to load live view")
		return
	}

	c.JSON(http.StatusOK, view.Response(h.now()))
}

// CloseView stops refreshing a view and removes it
func (h *Handler) CloseView(c *gin.Context) {
	if err := h.Views.Close(c.Param("id")); err != nil {
		respondError(c, err, "Failed to close live view")
		return
	}

	c.Status(http.StatusNoContent)
}

// GetViewFormation resolves the formation of the train shown in a view
func (h *Handler) GetViewFormation(c *gin.Context) {
	view, err := h.Views.Get(c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to load live view")
		return
	}

	formation, err := view.Formation.Open(c.Request.Context(), view.TrainNo)
	if err != nil {
		respondError(c, err, "Failed to load train formation")
		return
	}

	c.JSON(http.StatusOK, formation)
}

// SelectCar shows a car of the view's formation with its history
func (h *Handler) SelectCar(c *gin.Context) {
	h.withFormation(c, func(fv *services.FormationView) (*models.CarDetail, error) {
		return fv.Select(c.Request.Context(), c.Param("assetNum"))
	})
}

// NextCar steps to the following car
func (h *Handler) NextCar(c *gin.Context) {
	h.withFormation(c, func(fv *services.FormationView) (*models.CarDetail, error) {
		return fv.Next(c.Request.Context())
	})
}

// PreviousCar steps to the preceding car
func (h *Handler) PreviousCar(c *gin.Context) {
	h.withFormation(c, func(fv *services.FormationView) (*models.CarDetail, error) {
		return fv.Previous(c.Request.Context())
	})
}

func (h *Handler) withFormation(c *gin.Context, fn func(*services.FormationView) (*models.CarDetail, error)) {
	view, err := h.Views.Get(c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to load live view")
		return
	}

	// Car navigation needs the formation of the view's train
	if _, err := view.Formation.Open(c.Request.Context(), view.TrainNo); err != nil {
		respondError(c, err, "Failed to load train formation")
		return
	}

	detail, err := fn(view.Formation)
	if err != nil {
		respondError(c, err, "Failed to load car")
		return
	}

	c.JSON(http.StatusOK, detail)
}
