package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-bulletin-api/internal/models"
	"github.com/noah-isme/sma-bulletin-api/internal/visibility"
	appErrors "github.com/noah-isme/sma-bulletin-api/pkg/errors"
)

type eventRepository interface {
	List(ctx context.Context, filter models.CalendarFilter) ([]models.CalendarEvent, int, error)
	ListActive(ctx context.Context, calendarIDs []int64) ([]models.CalendarEvent, error)
	GetByID(ctx context.Context, id int64) (*models.CalendarEvent, error)
	Create(ctx context.Context, event *models.CalendarEvent) error
	Update(ctx context.Context, event *models.CalendarEvent) error
	Delete(ctx context.Context, id int64) error
}

type calendarLookup interface {
	GetByID(ctx context.Context, id int64) (*models.Calendar, error)
}

// EventRequest is the payload for creating or replacing an event. Dates are
// YYYY-MM-DD or any datetime form the resolver accepts.
type EventRequest struct {
	CalendarID  int64   `json:"calendar_id" validate:"required,gt=0"`
	Title       string  `json:"title" validate:"required,max=200"`
	Description string  `json:"description" validate:"max=5000"`
	Location    *string `json:"location" validate:"omitempty,max=200"`
	EventDate   string  `json:"event_date" validate:"required"`
	EndDate     *string `json:"end_date"`
	IsActive    *bool   `json:"is_active"`
	IsAlert     bool    `json:"is_alert"`
}

// EventService manages calendar events.
type EventService struct {
	repo      eventRepository
	calendars calendarLookup
	resolver  *visibility.Resolver
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	hooks     contentHooks
}

// NewEventService constructs the service.
func NewEventService(repo eventRepository, calendars calendarLookup, resolver *visibility.Resolver, cache feedCache, queue jobEnqueuer, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *EventService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if resolver == nil {
		resolver = visibility.NewResolver(nil)
	}
	return &EventService{
		repo:      repo,
		calendars: calendars,
		resolver:  resolver,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		hooks:     contentHooks{cache: cache, queue: queue, logger: logger},
	}
}

// List returns paginated events.
func (s *EventService) List(ctx context.Context, filter models.CalendarFilter) ([]models.CalendarEvent, *models.Pagination, error) {
	events, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list events")
	}
	return events, pageOf(filter.Page, filter.PageSize, 50, 200, total), nil
}

// Active returns the events visible at now, ordered by date.
func (s *EventService) Active(ctx context.Context, now time.Time, calendarIDs []int64) ([]models.CalendarEvent, error) {
	events, _, err := s.active(ctx, now, calendarIDs)
	return events, err
}

func (s *EventService) active(ctx context.Context, now time.Time, calendarIDs []int64) ([]models.CalendarEvent, int, error) {
	events, err := s.repo.ListActive(ctx, calendarIDs)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list active events")
	}
	visible, skipped := visibleAt(s.resolver, events, now, string(models.FeedItemEvent), visibility.FromEvent,
		func(e models.CalendarEvent) int64 { return e.ID }, s.metrics, s.logger)
	return visible, skipped, nil
}

// Get returns an event by id.
func (s *EventService) Get(ctx context.Context, id int64) (*models.CalendarEvent, error) {
	event, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}
	return event, nil
}

// Create adds an event. Active alert events are broadcast to every user.
func (s *EventService) Create(ctx context.Context, req EventRequest, actorID string) (*models.CalendarEvent, error) {
	event := &models.CalendarEvent{IsActive: true, CreatedBy: actorID}
	if err := s.apply(ctx, event, req); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, event); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create event")
	}
	s.logger.Info("event created", zap.Int64("id", event.ID), zap.Int64("calendar_id", event.CalendarID), zap.Bool("alert", event.IsAlert))
	s.hooks.changed(ctx, "event")
	if event.IsAlert && event.IsActive {
		s.hooks.broadcast(models.NotificationBroadcast{
			Type:  models.NotificationAlert,
			Title: event.Title,
			Body:  event.EventDate.Format(visibility.DayLayout),
		})
	}
	return event, nil
}

// Update replaces an event's fields.
func (s *EventService) Update(ctx context.Context, id int64, req EventRequest) (*models.CalendarEvent, error) {
	event, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(ctx, event, req); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, event); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update event")
	}
	s.hooks.changed(ctx, "event")
	return event, nil
}

// Delete removes an event.
func (s *EventService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete event")
	}
	s.hooks.changed(ctx, "event")
	return nil
}

func (s *EventService) apply(ctx context.Context, event *models.CalendarEvent, req EventRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid event payload")
	}
	start, err := s.resolver.ParseDate(req.EventDate)
	if err != nil {
		return err
	}
	var end *time.Time
	if req.EndDate != nil && strings.TrimSpace(*req.EndDate) != "" {
		parsed, err := s.resolver.ParseDate(*req.EndDate)
		if err != nil {
			return err
		}
		if parsed.Before(start) {
			return appErrors.Clone(appErrors.ErrValidation, "end_date must not be before event_date")
		}
		end = &parsed
	}
	if s.calendars != nil {
		if _, err := s.calendars.GetByID(ctx, req.CalendarID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrValidation, "calendar does not exist")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load calendar")
		}
	}

	event.CalendarID = req.CalendarID
	event.Title = strings.TrimSpace(req.Title)
	event.Description = req.Description
	event.Location = req.Location
	event.EventDate = start
	event.EndDate = end
	event.IsAlert = req.IsAlert
	if req.IsActive != nil {
		event.IsActive = *req.IsActive
	}
	return nil
}
