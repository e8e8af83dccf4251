package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-bulletin-api/internal/models"
	"github.com/noah-isme/sma-bulletin-api/internal/service"
	appErrors "github.com/noah-isme/sma-bulletin-api/pkg/errors"
	"github.com/noah-isme/sma-bulletin-api/pkg/response"
)

type welcomeService interface {
	List(ctx context.Context) ([]models.WelcomeAsset, error)
	Get(ctx context.Context, id int64) (*models.WelcomeAsset, error)
	Create(ctx context.Context, req service.WelcomeAssetRequest) (*models.WelcomeAsset, error)
	Update(ctx context.Context, id int64, req service.WelcomeAssetRequest) (*models.WelcomeAsset, error)
	Delete(ctx context.Context, id int64) error
	Reorder(ctx context.Context, req service.ReorderRequest) ([]models.WelcomeAsset, error)
	Public(ctx context.Context) ([]models.PublicWelcomeAsset, error)
	OpenMedia(token string) (*service.MediaFile, error)
}

// WelcomeHandler serves welcome slides and their media.
type WelcomeHandler struct {
	service welcomeService
}

// NewWelcomeHandler creates a new handler.
func NewWelcomeHandler(svc welcomeService) *WelcomeHandler {
	return &WelcomeHandler{service: svc}
}

// Public godoc
// @Summary Active welcome slides
// @Description Slides in display order with signed media links
// @Tags Welcome
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /welcome [get]
func (h *WelcomeHandler) Public(c *gin.Context) {
	assets, err := h.service.Public(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, assets)
}

// Media godoc
// @Summary Stream welcome media
// @Tags Welcome
// @Param token query string true "Signed media token"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Router /welcome/media [get]
func (h *WelcomeHandler) Media(c *gin.Context) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "media token is required"))
		return
	}
	media, err := h.service.OpenMedia(token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer media.File.Close()

	info, err := media.File.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read media file"))
		return
	}
	c.Header("Content-Type", media.ContentType)
	c.Header("Cache-Control", "private, max-age=300")
	http.ServeContent(c.Writer, c.Request, media.Name, info.ModTime(), media.File)
}

// List godoc
// @Summary List all welcome slides
// @Tags Welcome
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /welcome/assets [get]
func (h *WelcomeHandler) List(c *gin.Context) {
	assets, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, assets)
}

// Get godoc
// @Summary Get welcome slide
// @Tags Welcome
// @Produce json
// @Param id path int true "Slide ID"
// @Success 200 {object} response.Envelope
// @Router /welcome/assets/{id} [get]
func (h *WelcomeHandler) Get(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	asset, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, asset)
}

// Create godoc
// @Summary Create welcome slide
// @Tags Welcome
// @Accept json
// @Produce json
// @Param payload body service.WelcomeAssetRequest true "Slide payload"
// @Success 201 {object} response.Envelope
// @Router /welcome/assets [post]
func (h *WelcomeHandler) Create(c *gin.Context) {
	var req service.WelcomeAssetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid welcome payload"))
		return
	}
	asset, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, asset)
}

// Update godoc
// @Summary Replace welcome slide
// @Tags Welcome
// @Accept json
// @Produce json
// @Param id path int true "Slide ID"
// @Param payload body service.WelcomeAssetRequest true "Slide payload"
// @Success 200 {object} response.Envelope
// @Router /welcome/assets/{id} [put]
func (h *WelcomeHandler) Update(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req service.WelcomeAssetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid welcome payload"))
		return
	}
	asset, err := h.service.Update(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, asset)
}

// Delete godoc
// @Summary Delete welcome slide
// @Tags Welcome
// @Param id path int true "Slide ID"
// @Success 204
// @Router /welcome/assets/{id} [delete]
func (h *WelcomeHandler) Delete(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Reorder godoc
// @Summary Reorder welcome slides
// @Tags Welcome
// @Accept json
// @Produce json
// @Param payload body service.ReorderRequest true "Move or full order"
// @Success 200 {object} response.Envelope
// @Router /welcome/assets/reorder [post]
func (h *WelcomeHandler) Reorder(c *gin.Context) {
	var req service.ReorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid reorder payload"))
		return
	}
	assets, err := h.service.Reorder(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, assets)
}
