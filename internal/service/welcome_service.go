package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"mime"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-bulletin-api/internal/models"
	appErrors "github.com/noah-isme/sma-bulletin-api/pkg/errors"
	"github.com/noah-isme/sma-bulletin-api/pkg/storage"
)

const defaultSlideSeconds = 8

type welcomeRepository interface {
	List(ctx context.Context, activeOnly bool) ([]models.WelcomeAsset, error)
	GetByID(ctx context.Context, id int64) (*models.WelcomeAsset, error)
	Create(ctx context.Context, asset *models.WelcomeAsset) error
	Update(ctx context.Context, asset *models.WelcomeAsset) error
	Delete(ctx context.Context, id int64) error
	UpdatePositions(ctx context.Context, orderedIDs []int64) error
}

type mediaStore interface {
	Open(relPath string) (*os.File, error)
	Exists(relPath string) bool
}

type mediaSigner interface {
	Sign(subject, relPath string) (string, time.Time, error)
	Verify(token string) (storage.SignedToken, error)
}

// WelcomeAssetRequest is the payload for creating or replacing a slide. The
// media file must already exist in media storage.
type WelcomeAssetRequest struct {
	Title           string                  `json:"title" validate:"required,max=200"`
	Caption         string                  `json:"caption" validate:"max=500"`
	MediaType       models.WelcomeMediaType `json:"media_type" validate:"required,oneof=IMAGE VIDEO"`
	MediaPath       string                  `json:"media_path" validate:"required,max=500"`
	DurationSeconds int                     `json:"duration_seconds" validate:"gte=0,lte=600"`
	IsActive        *bool                   `json:"is_active"`
}

// ReorderRequest moves one slide (From, To) or sets the full order (OrderedIDs).
type ReorderRequest struct {
	From       *int    `json:"from"`
	To         *int    `json:"to"`
	OrderedIDs []int64 `json:"ordered_ids"`
}

// MediaFile is an opened welcome media file.
type MediaFile struct {
	File        *os.File
	Name        string
	ContentType string
}

// WelcomeService manages welcome page slides and their media links.
type WelcomeService struct {
	repo      welcomeRepository
	media     mediaStore
	signer    mediaSigner
	apiPrefix string
	validator *validator.Validate
	logger    *zap.Logger
	hooks     contentHooks
}

// NewWelcomeService constructs the service.
func NewWelcomeService(repo welcomeRepository, media mediaStore, signer mediaSigner, apiPrefix string, cache feedCache, queue jobEnqueuer, validate *validator.Validate, logger *zap.Logger) *WelcomeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WelcomeService{
		repo:      repo,
		media:     media,
		signer:    signer,
		apiPrefix: strings.TrimRight(apiPrefix, "/"),
		validator: validate,
		logger:    logger,
		hooks:     contentHooks{cache: cache, queue: queue, logger: logger},
	}
}

// ReorderAssets moves the slide at from to index to, keeping every other
// slide's relative order, and renumbers positions 0..n-1. The input slice is
// not modified.
func ReorderAssets(assets []models.WelcomeAsset, from, to int) ([]models.WelcomeAsset, error) {
	n := len(assets)
	if from < 0 || from >= n || to < 0 || to >= n {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("reorder indices must be within 0..%d", n-1))
	}
	out := make([]models.WelcomeAsset, 0, n)
	moved := assets[from]
	for i, asset := range assets {
		if i == from {
			continue
		}
		out = append(out, asset)
	}
	out = append(out[:to], append([]models.WelcomeAsset{moved}, out[to:]...)...)
	for i := range out {
		out[i].Position = i
	}
	return out, nil
}

// OrderByIDs arranges assets to follow orderedIDs, which must name every
// asset exactly once.
func OrderByIDs(assets []models.WelcomeAsset, orderedIDs []int64) ([]models.WelcomeAsset, error) {
	if len(orderedIDs) != len(assets) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "ordered_ids must list every welcome asset exactly once")
	}
	byID := make(map[int64]models.WelcomeAsset, len(assets))
	for _, asset := range assets {
		byID[asset.ID] = asset
	}
	out := make([]models.WelcomeAsset, 0, len(assets))
	for i, id := range orderedIDs {
		asset, ok := byID[id]
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, "ordered_ids must list every welcome asset exactly once")
		}
		delete(byID, id)
		asset.Position = i
		out = append(out, asset)
	}
	return out, nil
}

// List returns every slide in display order.
func (s *WelcomeService) List(ctx context.Context) ([]models.WelcomeAsset, error) {
	assets, err := s.repo.List(ctx, false)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list welcome assets")
	}
	return assets, nil
}

// Get returns one slide.
func (s *WelcomeService) Get(ctx context.Context, id int64) (*models.WelcomeAsset, error) {
	asset, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "welcome asset not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load welcome asset")
	}
	return asset, nil
}

// Create appends a slide to the rotation.
func (s *WelcomeService) Create(ctx context.Context, req WelcomeAssetRequest) (*models.WelcomeAsset, error) {
	asset := &models.WelcomeAsset{IsActive: true}
	if err := s.apply(asset, req); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, asset); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create welcome asset")
	}
	s.hooks.changed(ctx, "welcome_asset")
	return asset, nil
}

// Update replaces a slide's fields. Position is left alone.
func (s *WelcomeService) Update(ctx context.Context, id int64, req WelcomeAssetRequest) (*models.WelcomeAsset, error) {
	asset, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(asset, req); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, asset); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "welcome asset not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update welcome asset")
	}
	s.hooks.changed(ctx, "welcome_asset")
	return asset, nil
}

// Delete removes a slide and closes the gap it leaves in the ordering.
func (s *WelcomeService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "welcome asset not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete welcome asset")
	}
	remaining, err := s.repo.List(ctx, false)
	if err == nil {
		err = s.repo.UpdatePositions(ctx, assetIDs(remaining))
	}
	if err != nil {
		s.logger.Warn("failed to compact welcome asset positions", zap.Error(err))
	}
	s.hooks.changed(ctx, "welcome_asset")
	return nil
}

// Reorder applies req and persists the resulting positions.
func (s *WelcomeService) Reorder(ctx context.Context, req ReorderRequest) ([]models.WelcomeAsset, error) {
	assets, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	var ordered []models.WelcomeAsset
	switch {
	case len(req.OrderedIDs) > 0:
		ordered, err = OrderByIDs(assets, req.OrderedIDs)
	case req.From != nil && req.To != nil:
		ordered, err = ReorderAssets(assets, *req.From, *req.To)
	default:
		err = appErrors.Clone(appErrors.ErrValidation, "either from/to or ordered_ids is required")
	}
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdatePositions(ctx, assetIDs(ordered)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "welcome assets changed during reorder")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reorder welcome assets")
	}
	s.hooks.changed(ctx, "welcome_asset")
	return ordered, nil
}

// Public returns active slides in order with signed media URLs.
func (s *WelcomeService) Public(ctx context.Context) ([]models.PublicWelcomeAsset, error) {
	assets, err := s.repo.List(ctx, true)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list welcome assets")
	}
	out := make([]models.PublicWelcomeAsset, 0, len(assets))
	for _, asset := range assets {
		token, expiresAt, err := s.signer.Sign(fmt.Sprintf("welcome-%d", asset.ID), asset.MediaPath)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign media url")
		}
		out = append(out, models.PublicWelcomeAsset{
			WelcomeAsset:   asset,
			MediaURL:       s.apiPrefix + "/welcome/media?token=" + url.QueryEscape(token),
			MediaExpiresAt: expiresAt,
		})
	}
	return out, nil
}

// OpenMedia resolves a signed media token to an open file. The caller closes it.
func (s *WelcomeService) OpenMedia(token string) (*MediaFile, error) {
	claims, err := s.signer.Verify(token)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status, "invalid or expired media link")
	}
	f, err := s.media.Open(claims.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) || errors.Is(err, storage.ErrOutsideRoot) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "media file not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open media file")
	}
	name := path.Base(claims.Path)
	contentType := mime.TypeByExtension(path.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return &MediaFile{File: f, Name: name, ContentType: contentType}, nil
}

func (s *WelcomeService) apply(asset *models.WelcomeAsset, req WelcomeAssetRequest) error {
	req.MediaType = models.WelcomeMediaType(strings.ToUpper(string(req.MediaType)))
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid welcome asset payload")
	}
	mediaPath := strings.TrimPrefix(path.Clean("/"+req.MediaPath), "/")
	if s.media != nil && !s.media.Exists(mediaPath) {
		return appErrors.Clone(appErrors.ErrValidation, "media_path does not point at a stored file")
	}
	asset.Title = strings.TrimSpace(req.Title)
	asset.Caption = strings.TrimSpace(req.Caption)
	asset.MediaType = req.MediaType
	asset.MediaPath = mediaPath
	asset.DurationSeconds = req.DurationSeconds
	if asset.DurationSeconds == 0 {
		asset.DurationSeconds = defaultSlideSeconds
	}
	if req.IsActive != nil {
		asset.IsActive = *req.IsActive
	}
	return nil
}

func assetIDs(assets []models.WelcomeAsset) []int64 {
	ids := make([]int64, len(assets))
	for i, asset := range assets {
		ids[i] = asset.ID
	}
	return ids
}
