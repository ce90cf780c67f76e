package run

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/dunning-api/internal/handler"
	"github.com/jwalitptl/dunning-api/internal/model"
	"github.com/jwalitptl/dunning-api/internal/repository"
	"github.com/jwalitptl/dunning-api/internal/service/dispatch"
)

// Handler exposes the manual trigger and run history. A manual trigger goes
// through the same claim as the scheduler, so overlapping invocations are
// safe.
type Handler struct {
	svc  *dispatch.Service
	runs repository.RunRepository
}

func NewHandler(svc *dispatch.Service, runs repository.RunRepository) *Handler {
	return &Handler{svc: svc, runs: runs}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	reminders := r.Group("/reminders")
	{
		reminders.POST("/run", h.Trigger)
		reminders.GET("/runs", h.ListRuns)
	}
}

func (h *Handler) Trigger(c *gin.Context) {
	actor := model.Actor(c.GetHeader("X-Actor"))
	if actor == "" {
		actor = "manual"
	}

	ctx := model.WithActor(c.Request.Context(), actor)
	summary, err := h.svc.RunAutoSendCycle(ctx, time.Now())
	if err != nil {
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(summary))
}

func (h *Handler) ListRuns(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 500 {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid limit"))
			return
		}
		limit = parsed
	}

	runs, err := h.runs.List(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse("failed to list runs"))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(runs))
}
