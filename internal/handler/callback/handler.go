package callback

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/dunning-api/internal/handler"
	"github.com/jwalitptl/dunning-api/internal/model"
	"github.com/jwalitptl/dunning-api/internal/service/delivery"
	apperrors "github.com/jwalitptl/dunning-api/pkg/errors"
)

// Handler receives asynchronous delivery callbacks from the email provider.
type Handler struct {
	tracker *delivery.Tracker
}

func NewHandler(tracker *delivery.Tracker) *Handler {
	return &Handler{tracker: tracker}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	deliveries := r.Group("/deliveries")
	{
		deliveries.POST("/callback", h.Callback)
	}
}

func (h *Handler) Callback(c *gin.Context) {
	var event model.DeliveryEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	if err := h.tracker.ApplyCallback(c.Request.Context(), &event); err != nil {
		if appErr, ok := err.(*apperrors.AppError); ok {
			switch appErr.Code {
			case apperrors.ErrNotFound:
				c.JSON(http.StatusNotFound, handler.NewErrorResponse("unknown provider message id"))
				return
			case apperrors.ErrValidation:
				// Out-of-order or duplicate events are acknowledged so the
				// provider stops retrying them.
				c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"ignored": true}))
				return
			}
		}
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse("failed to process delivery event"))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}
