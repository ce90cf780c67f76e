package bucketconfig

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/jwalitptl/dunning-api/internal/handler"
	"github.com/jwalitptl/dunning-api/internal/model"
	"github.com/jwalitptl/dunning-api/internal/repository"
	apperrors "github.com/jwalitptl/dunning-api/pkg/errors"
)

// Handler exposes the operator surface for per-bucket scheduling config. The
// watermark is deliberately unreachable from here; only the dispatcher's
// claim can move it.
type Handler struct {
	repo repository.BucketConfigRepository
}

func NewHandler(repo repository.BucketConfigRepository) *Handler {
	return &Handler{repo: repo}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	configs := r.Group("/bucket-configs")
	{
		configs.POST("", h.Create)
		configs.GET("", h.List)
		configs.GET("/:id", h.Get)
		configs.PATCH("/:id", h.Update)
		configs.DELETE("/:id", h.Delete)
	}
}

func bindingErrorMessage(err error) string {
	if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
		return "invalid field: " + verrs[0].Field()
	}
	return err.Error()
}

func toWeekdaySet(days []int) model.WeekdaySet {
	set := make(model.WeekdaySet, 0, len(days))
	for _, d := range days {
		set = append(set, time.Weekday(d))
	}
	return set
}

func (h *Handler) Create(c *gin.Context) {
	var req model.CreateBucketConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(bindingErrorMessage(err)))
		return
	}

	bucketID := model.BucketID(req.BucketID)
	if !bucketID.IsValid() {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("unknown bucket id"))
		return
	}

	cfg := &model.BucketConfig{
		TenantID:        req.TenantID,
		BucketID:        bucketID,
		AutoSendEnabled: req.AutoSendEnabled,
		TemplateID:      req.TemplateID,
		SendHour:        req.SendHour,
		SendDays:        toWeekdaySet(req.SendDays),
	}
	if err := h.repo.Create(c.Request.Context(), cfg); err != nil {
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse("failed to create bucket config"))
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(cfg))
}

func (h *Handler) List(c *gin.Context) {
	tenantID, err := uuid.Parse(c.Query("tenant_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("tenant_id is required"))
		return
	}

	configs, err := h.repo.List(c.Request.Context(), tenantID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse("failed to list bucket configs"))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(configs))
}

func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid id"))
		return
	}

	cfg, err := h.repo.Get(c.Request.Context(), id)
	if err != nil {
		if appErr, ok := err.(*apperrors.AppError); ok && appErr.Code == apperrors.ErrNotFound {
			c.JSON(http.StatusNotFound, handler.NewAppErrorResponse(appErr))
			return
		}
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse("bucket config not found"))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(cfg))
}

func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid id"))
		return
	}

	var req model.UpdateBucketConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(bindingErrorMessage(err)))
		return
	}

	cfg, err := h.repo.Get(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, handler.NewErrorResponse("bucket config not found"))
		return
	}

	if req.AutoSendEnabled != nil {
		cfg.AutoSendEnabled = *req.AutoSendEnabled
	}
	if req.TemplateID != nil {
		cfg.TemplateID = *req.TemplateID
	}
	if req.SendHour != nil {
		cfg.SendHour = *req.SendHour
	}
	if len(req.SendDays) > 0 {
		cfg.SendDays = toWeekdaySet(req.SendDays)
	}

	if err := h.repo.Update(c.Request.Context(), cfg); err != nil {
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse("failed to update bucket config"))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(cfg))
}

func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid id"))
		return
	}

	if err := h.repo.Delete(c.Request.Context(), id); err != nil {
		if appErr, ok := err.(*apperrors.AppError); ok && appErr.Code == apperrors.ErrNotFound {
			c.JSON(http.StatusNotFound, handler.NewAppErrorResponse(appErr))
			return
		}
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse("failed to delete bucket config"))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}
