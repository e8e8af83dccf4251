package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-bulletin-api/internal/models"
)

var announcementRowColumns = []string{"id", "title", "content", "is_active", "is_alert", "visibility_start_at", "visibility_end_at", "created_by", "created_at", "updated_at"}

func TestAnnouncementRepositoryListSearch(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAnnouncementRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(announcementRowColumns).
		AddRow(1, "Library closed", "Closed for stocktake", true, false, nil, nil, "u1", now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM announcements WHERE 1=1 AND is_active = TRUE AND (LOWER(title) LIKE $1 OR LOWER(content) LIKE $1)")).
		WithArgs("%library%").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM announcements WHERE 1=1 AND is_active = TRUE AND (LOWER(title) LIKE $1 OR LOWER(content) LIKE $1)")).
		WithArgs("%library%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	items, total, err := repo.List(context.Background(), models.AnnouncementFilter{ActiveOnly: true, Search: "Library"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, items, 1)
	assert.Nil(t, items[0].VisibilityEndAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAnnouncementRepositoryListActive(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAnnouncementRepository(db)

	now := time.Now()
	start := now.Add(-24 * time.Hour)
	rows := sqlmock.NewRows(announcementRowColumns).
		AddRow(2, "Uniform day", "", true, true, start, now, "u1", now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM announcements WHERE is_active = TRUE ORDER BY COALESCE(visibility_start_at, created_at) DESC, id DESC")).
		WillReturnRows(rows)

	items, err := repo.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.True(t, items[0].IsAlert)
	assert.Equal(t, start, items[0].StartMarker())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAnnouncementRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAnnouncementRepository(db)

	mock.ExpectQuery("INSERT INTO announcements").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))

	item := &models.Announcement{Title: "Hello", IsActive: true}
	require.NoError(t, repo.Create(context.Background(), item))
	assert.Equal(t, int64(11), item.ID)
	assert.False(t, item.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}
