package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-bulletin-api/internal/models"
	"github.com/noah-isme/sma-bulletin-api/internal/service"
	appErrors "github.com/noah-isme/sma-bulletin-api/pkg/errors"
	"github.com/noah-isme/sma-bulletin-api/pkg/response"
)

const icsContentType = "text/calendar; charset=utf-8"

type calendarService interface {
	List(ctx context.Context, activeOnly bool) ([]models.Calendar, error)
	Get(ctx context.Context, id int64) (*models.Calendar, error)
	Create(ctx context.Context, req service.CalendarRequest) (*models.Calendar, error)
	Update(ctx context.Context, id int64, req service.CalendarRequest) (*models.Calendar, error)
	Delete(ctx context.Context, id int64) error
}

type calendarFeed interface {
	Calendar(ctx context.Context, calendarID int64) ([]byte, string, error)
}

// CalendarHandler exposes calendar endpoints, including the iCalendar feed.
type CalendarHandler struct {
	service calendarService
	ics     calendarFeed
}

// NewCalendarHandler creates a new handler.
func NewCalendarHandler(svc calendarService, ics calendarFeed) *CalendarHandler {
	return &CalendarHandler{service: svc, ics: ics}
}

// List godoc
// @Summary List calendars
// @Tags Calendars
// @Produce json
// @Param active query bool false "Only active calendars"
// @Success 200 {object} response.Envelope
// @Router /calendars [get]
func (h *CalendarHandler) List(c *gin.Context) {
	calendars, err := h.service.List(c.Request.Context(), queryBool(c, "active"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, calendars)
}

// Get godoc
// @Summary Get calendar
// @Tags Calendars
// @Produce json
// @Param id path int true "Calendar ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /calendars/{id} [get]
func (h *CalendarHandler) Get(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	calendar, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, calendar)
}

// Create godoc
// @Summary Create calendar
// @Tags Calendars
// @Accept json
// @Produce json
// @Param payload body service.CalendarRequest true "Calendar payload"
// @Success 201 {object} response.Envelope
// @Router /calendars [post]
func (h *CalendarHandler) Create(c *gin.Context) {
	var req service.CalendarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid calendar payload"))
		return
	}
	calendar, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, calendar)
}

// Update godoc
// @Summary Replace calendar
// @Tags Calendars
// @Accept json
// @Produce json
// @Param id path int true "Calendar ID"
// @Param payload body service.CalendarRequest true "Calendar payload"
// @Success 200 {object} response.Envelope
// @Router /calendars/{id} [put]
func (h *CalendarHandler) Update(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req service.CalendarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid calendar payload"))
		return
	}
	calendar, err := h.service.Update(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, calendar)
}

// Delete godoc
// @Summary Delete calendar
// @Tags Calendars
// @Param id path int true "Calendar ID"
// @Success 204
// @Router /calendars/{id} [delete]
func (h *CalendarHandler) Delete(c *gin.Context) {
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

// ICS godoc
// @Summary Calendar as iCalendar
// @Description Active events of the calendar as an RFC 5545 feed
// @Tags Calendars
// @Produce text/calendar
// @Param id path int true "Calendar ID"
// @Success 200 {file} file
// @Failure 404 {object} response.Envelope
// @Router /calendars/{id}/ics [get]
func (h *CalendarHandler) ICS(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	body, filename, err := h.ics.Calendar(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, filename, icsContentType, body)
}
