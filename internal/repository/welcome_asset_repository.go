package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-bulletin-api/internal/models"
)

const welcomeAssetColumns = "id, title, caption, media_type, media_path, position, duration_seconds, is_active, created_at, updated_at"

// WelcomeAssetRepository persists welcome page slides.
type WelcomeAssetRepository struct {
	db *sqlx.DB
}

// NewWelcomeAssetRepository constructs the repository.
func NewWelcomeAssetRepository(db *sqlx.DB) *WelcomeAssetRepository {
	return &WelcomeAssetRepository{db: db}
}

// List returns assets in display order.
func (r *WelcomeAssetRepository) List(ctx context.Context, activeOnly bool) ([]models.WelcomeAsset, error) {
	query := "SELECT " + welcomeAssetColumns + " FROM welcome_assets"
	if activeOnly {
		query += " WHERE is_active = TRUE"
	}
	query += " ORDER BY position ASC, id ASC"
	var assets []models.WelcomeAsset
	if err := r.db.SelectContext(ctx, &assets, query); err != nil {
		return nil, fmt.Errorf("list welcome assets: %w", err)
	}
	return assets, nil
}

// GetByID returns one asset.
func (r *WelcomeAssetRepository) GetByID(ctx context.Context, id int64) (*models.WelcomeAsset, error) {
	query := "SELECT " + welcomeAssetColumns + " FROM welcome_assets WHERE id = $1"
	var asset models.WelcomeAsset
	if err := r.db.GetContext(ctx, &asset, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get welcome asset: %w", err)
	}
	return &asset, nil
}

// Create appends an asset after the current last position.
func (r *WelcomeAssetRepository) Create(ctx context.Context, asset *models.WelcomeAsset) error {
	now := time.Now().UTC()
	asset.CreatedAt = now
	asset.UpdatedAt = now
	const query = `INSERT INTO welcome_assets (title, caption, media_type, media_path, position, duration_seconds, is_active, created_at, updated_at)
VALUES ($1, $2, $3, $4, (SELECT COALESCE(MAX(position) + 1, 0) FROM welcome_assets), $5, $6, $7, $8)
RETURNING id, position`
	row := r.db.QueryRowxContext(ctx, query,
		asset.Title, asset.Caption, asset.MediaType, asset.MediaPath, asset.DurationSeconds,
		asset.IsActive, asset.CreatedAt, asset.UpdatedAt)
	if err := row.Scan(&asset.ID, &asset.Position); err != nil {
		return fmt.Errorf("create welcome asset: %w", err)
	}
	return nil
}

// Update modifies asset content. Position is only changed through UpdatePositions.
func (r *WelcomeAssetRepository) Update(ctx context.Context, asset *models.WelcomeAsset) error {
	asset.UpdatedAt = time.Now().UTC()
	const query = `UPDATE welcome_assets SET title = :title, caption = :caption, media_type = :media_type, media_path = :media_path,
duration_seconds = :duration_seconds, is_active = :is_active, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, asset)
	if err != nil {
		return fmt.Errorf("update welcome asset: %w", err)
	}
	return requireAffected(res, "update welcome asset")
}

// Delete removes an asset.
func (r *WelcomeAssetRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM welcome_assets WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete welcome asset: %w", err)
	}
	return requireAffected(res, "delete welcome asset")
}

// UpdatePositions stores orderedIDs[i] at position i in one transaction.
func (r *WelcomeAssetRepository) UpdatePositions(ctx context.Context, orderedIDs []int64) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reorder: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	for position, id := range orderedIDs {
		res, execErr := tx.ExecContext(ctx, "UPDATE welcome_assets SET position = $1, updated_at = $2 WHERE id = $3", position, now, id)
		if execErr != nil {
			return fmt.Errorf("reorder welcome asset %d: %w", id, execErr)
		}
		if affErr := requireAffected(res, "reorder welcome asset"); affErr != nil {
			return affErr
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit reorder: %w", err)
	}
	return nil
}
