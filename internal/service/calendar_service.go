package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-bulletin-api/internal/models"
	appErrors "github.com/noah-isme/sma-bulletin-api/pkg/errors"
)

type calendarRepository interface {
	List(ctx context.Context, activeOnly bool) ([]models.Calendar, error)
	GetByID(ctx context.Context, id int64) (*models.Calendar, error)
	Create(ctx context.Context, calendar *models.Calendar) error
	Update(ctx context.Context, calendar *models.Calendar) error
	Delete(ctx context.Context, id int64) error
}

// CalendarRequest is the payload for creating or replacing a calendar.
type CalendarRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Color       string `json:"color" validate:"omitempty,hexcolor"`
	Description string `json:"description" validate:"max=500"`
	IsActive    *bool  `json:"is_active"`
}

// CalendarService manages calendars.
type CalendarService struct {
	repo      calendarRepository
	validator *validator.Validate
	logger    *zap.Logger
	hooks     contentHooks
}

// NewCalendarService constructs the service.
func NewCalendarService(repo calendarRepository, cache feedCache, queue jobEnqueuer, validate *validator.Validate, logger *zap.Logger) *CalendarService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CalendarService{repo: repo, validator: validate, logger: logger, hooks: contentHooks{cache: cache, queue: queue, logger: logger}}
}

// List returns calendars, optionally only active ones.
func (s *CalendarService) List(ctx context.Context, activeOnly bool) ([]models.Calendar, error) {
	calendars, err := s.repo.List(ctx, activeOnly)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list calendars")
	}
	return calendars, nil
}

// Get returns a calendar by id.
func (s *CalendarService) Get(ctx context.Context, id int64) (*models.Calendar, error) {
	calendar, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "calendar not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load calendar")
	}
	return calendar, nil
}

// Create adds a calendar.
func (s *CalendarService) Create(ctx context.Context, req CalendarRequest) (*models.Calendar, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid calendar payload")
	}
	calendar := &models.Calendar{IsActive: true}
	applyCalendarRequest(calendar, req)
	if err := s.repo.Create(ctx, calendar); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create calendar")
	}
	return calendar, nil
}

// Update replaces a calendar's fields.
func (s *CalendarService) Update(ctx context.Context, id int64, req CalendarRequest) (*models.Calendar, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid calendar payload")
	}
	calendar, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	applyCalendarRequest(calendar, req)
	if err := s.repo.Update(ctx, calendar); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "calendar not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update calendar")
	}
	s.hooks.changed(ctx, "calendar")
	return calendar, nil
}

// Delete removes a calendar and, through the schema, its events.
func (s *CalendarService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "calendar not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete calendar")
	}
	s.hooks.changed(ctx, "calendar")
	return nil
}

func applyCalendarRequest(calendar *models.Calendar, req CalendarRequest) {
	calendar.Name = strings.TrimSpace(req.Name)
	calendar.Color = strings.ToLower(req.Color)
	calendar.Description = strings.TrimSpace(req.Description)
	if req.IsActive != nil {
		calendar.IsActive = *req.IsActive
	}
}
