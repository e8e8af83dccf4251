package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-bulletin-api/internal/models"
	"github.com/noah-isme/sma-bulletin-api/internal/service"
	"github.com/noah-isme/sma-bulletin-api/internal/visibility"
	appErrors "github.com/noah-isme/sma-bulletin-api/pkg/errors"
	"github.com/noah-isme/sma-bulletin-api/pkg/response"
)

type announcementService interface {
	List(ctx context.Context, filter models.AnnouncementFilter) ([]models.Announcement, *models.Pagination, error)
	Active(ctx context.Context, now time.Time) ([]models.Announcement, error)
	Get(ctx context.Context, id int64) (*models.Announcement, error)
	Create(ctx context.Context, req service.AnnouncementRequest, actorID string) (*models.Announcement, error)
	Update(ctx context.Context, id int64, req service.AnnouncementRequest) (*models.Announcement, error)
	Delete(ctx context.Context, id int64) error
}

type announcementExporter interface {
	Announcements(ctx context.Context, filter models.AnnouncementFilter, format service.ExportFormat) (*service.ExportFile, error)
}

// AnnouncementHandler exposes announcement endpoints.
type AnnouncementHandler struct {
	service  announcementService
	exporter announcementExporter
	clock    clock
	resolver *visibility.Resolver
}

// NewAnnouncementHandler creates a new handler.
func NewAnnouncementHandler(svc announcementService, exporter announcementExporter, clk clock, resolver *visibility.Resolver) *AnnouncementHandler {
	if resolver == nil {
		resolver = visibility.NewResolver(nil)
	}
	return &AnnouncementHandler{service: svc, exporter: exporter, clock: clk, resolver: resolver}
}

// List godoc
// @Summary List announcements
// @Tags Announcements
// @Produce json
// @Param active query bool false "Only active"
// @Param alert query bool false "Only alerts"
// @Param q query string false "Search title and content"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /announcements [get]
func (h *AnnouncementHandler) List(c *gin.Context) {
	filter, err := h.filter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	items, page, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, page)
}

// Active godoc
// @Summary Announcements visible on a day
// @Tags Announcements
// @Produce json
// @Param at query string false "Reference date, defaults to now"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /announcements/active [get]
func (h *AnnouncementHandler) Active(c *gin.Context) {
	at, err := referenceInstant(c, h.resolver, h.clock)
	if err != nil {
		response.Error(c, err)
		return
	}
	items, err := h.service.Active(c.Request.Context(), at)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, items)
}

// Get godoc
// @Summary Get announcement
// @Tags Announcements
// @Produce json
// @Param id path int true "Announcement ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /announcements/{id} [get]
func (h *AnnouncementHandler) Get(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	item, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, item)
}

// Create godoc
// @Summary Create announcement
// @Tags Announcements
// @Accept json
// @Produce json
// @Param payload body service.AnnouncementRequest true "Announcement payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /announcements [post]
func (h *AnnouncementHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.AnnouncementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid announcement payload"))
		return
	}
	item, err := h.service.Create(c.Request.Context(), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// Update godoc
// @Summary Replace announcement
// @Tags Announcements
// @Accept json
// @Produce json
// @Param id path int true "Announcement ID"
// @Param payload body service.AnnouncementRequest true "Announcement payload"
// @Success 200 {object} response.Envelope
// @Router /announcements/{id} [put]
func (h *AnnouncementHandler) Update(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req service.AnnouncementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid announcement payload"))
		return
	}
	item, err := h.service.Update(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, item)
}

// Delete godoc
// @Summary Delete announcement
// @Tags Announcements
// @Param id path int true "Announcement ID"
// @Success 204
// @Router /announcements/{id} [delete]
func (h *AnnouncementHandler) Delete(c *gin.Context) {
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

// Export godoc
// @Summary Export announcements
// @Tags Announcements
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Router /announcements/export [get]
func (h *AnnouncementHandler) Export(c *gin.Context) {
	format, err := service.ParseExportFormat(c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	filter, err := h.filter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	file, err := h.exporter.Announcements(c.Request.Context(), filter, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}

func (h *AnnouncementHandler) filter(c *gin.Context) (models.AnnouncementFilter, error) {
	from, err := queryDate(c, h.resolver, "from")
	if err != nil {
		return models.AnnouncementFilter{}, err
	}
	to, err := queryDate(c, h.resolver, "to")
	if err != nil {
		return models.AnnouncementFilter{}, err
	}
	return models.AnnouncementFilter{
		ActiveOnly: queryBool(c, "active"),
		AlertOnly:  queryBool(c, "alert"),
		Search:     strings.TrimSpace(c.Query("q")),
		From:       from,
		To:         to,
		Page:       queryInt(c, "page"),
		PageSize:   queryInt(c, "page_size"),
	}, nil
}
