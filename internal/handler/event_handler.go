package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-bulletin-api/internal/models"
	"github.com/noah-isme/sma-bulletin-api/internal/service"
	"github.com/noah-isme/sma-bulletin-api/internal/visibility"
	appErrors "github.com/noah-isme/sma-bulletin-api/pkg/errors"
	"github.com/noah-isme/sma-bulletin-api/pkg/response"
)

type eventService interface {
	List(ctx context.Context, filter models.CalendarFilter) ([]models.CalendarEvent, *models.Pagination, error)
	Active(ctx context.Context, now time.Time, calendarIDs []int64) ([]models.CalendarEvent, error)
	Get(ctx context.Context, id int64) (*models.CalendarEvent, error)
	Create(ctx context.Context, req service.EventRequest, actorID string) (*models.CalendarEvent, error)
	Update(ctx context.Context, id int64, req service.EventRequest) (*models.CalendarEvent, error)
	Delete(ctx context.Context, id int64) error
}

type eventExporter interface {
	Events(ctx context.Context, filter models.CalendarFilter, format service.ExportFormat) (*service.ExportFile, error)
}

// EventHandler exposes calendar event endpoints.
type EventHandler struct {
	service  eventService
	exporter eventExporter
	clock    clock
	resolver *visibility.Resolver
}

// NewEventHandler creates a new handler.
func NewEventHandler(svc eventService, exporter eventExporter, clk clock, resolver *visibility.Resolver) *EventHandler {
	if resolver == nil {
		resolver = visibility.NewResolver(nil)
	}
	return &EventHandler{service: svc, exporter: exporter, clock: clk, resolver: resolver}
}

// List godoc
// @Summary List events
// @Tags Events
// @Produce json
// @Param calendar_id query string false "Comma separated calendar ids"
// @Param active query bool false "Only active events"
// @Param from query string false "Events ending on or after this date"
// @Param to query string false "Events starting on or before this date"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /events [get]
func (h *EventHandler) List(c *gin.Context) {
	filter, err := h.filter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	events, page, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, events, page)
}

// Active godoc
// @Summary Events visible on a day
// @Tags Events
// @Produce json
// @Param at query string false "Reference date, defaults to now"
// @Param calendar_id query string false "Comma separated calendar ids"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /events/active [get]
func (h *EventHandler) Active(c *gin.Context) {
	at, err := referenceInstant(c, h.resolver, h.clock)
	if err != nil {
		response.Error(c, err)
		return
	}
	calendarIDs, err := queryIDs(c, "calendar_id")
	if err != nil {
		response.Error(c, err)
		return
	}
	events, err := h.service.Active(c.Request.Context(), at, calendarIDs)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, events)
}

// Get godoc
// @Summary Get event
// @Tags Events
// @Produce json
// @Param id path int true "Event ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /events/{id} [get]
func (h *EventHandler) Get(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	event, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, event)
}

// Create godoc
// @Summary Create event
// @Tags Events
// @Accept json
// @Produce json
// @Param payload body service.EventRequest true "Event payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /events [post]
func (h *EventHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid event payload"))
		return
	}
	event, err := h.service.Create(c.Request.Context(), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, event)
}

// Update godoc
// @Summary Replace event
// @Tags Events
// @Accept json
// @Produce json
// @Param id path int true "Event ID"
// @Param payload body service.EventRequest true "Event payload"
// @Success 200 {object} response.Envelope
// @Router /events/{id} [put]
func (h *EventHandler) Update(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req service.EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid event payload"))
		return
	}
	event, err := h.service.Update(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, event)
}

// Delete godoc
// @Summary Delete event
// @Tags Events
// @Param id path int true "Event ID"
// @Success 204
// @Router /events/{id} [delete]
func (h *EventHandler) Delete(c *gin.Context) {
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
// @Summary Export events
// @Tags Events
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Router /events/export [get]
func (h *EventHandler) Export(c *gin.Context) {
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
	file, err := h.exporter.Events(c.Request.Context(), filter, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}

func (h *EventHandler) filter(c *gin.Context) (models.CalendarFilter, error) {
	calendarIDs, err := queryIDs(c, "calendar_id")
	if err != nil {
		return models.CalendarFilter{}, err
	}
	from, err := queryDate(c, h.resolver, "from")
	if err != nil {
		return models.CalendarFilter{}, err
	}
	to, err := queryDate(c, h.resolver, "to")
	if err != nil {
		return models.CalendarFilter{}, err
	}
	return models.CalendarFilter{
		CalendarIDs: calendarIDs,
		ActiveOnly:  queryBool(c, "active"),
		From:        from,
		To:          to,
		Page:        queryInt(c, "page"),
		PageSize:    queryInt(c, "page_size"),
	}, nil
}
