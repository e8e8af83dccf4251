package service

import (
	"context"
	"database/sql"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-bulletin-api/internal/models"
	appErrors "github.com/noah-isme/sma-bulletin-api/pkg/errors"
	"github.com/noah-isme/sma-bulletin-api/pkg/storage"
)

type memoryWelcomeRepo struct {
	assets         map[int64]*models.WelcomeAsset
	nextID         int64
	positionsErr   error
	savedPositions [][]int64
}

func newMemoryWelcomeRepo(assets ...models.WelcomeAsset) *memoryWelcomeRepo {
	repo := &memoryWelcomeRepo{assets: make(map[int64]*models.WelcomeAsset)}
	for i := range assets {
		a := assets[i]
		repo.assets[a.ID] = &a
		if a.ID > repo.nextID {
			repo.nextID = a.ID
		}
	}
	return repo
}

func (r *memoryWelcomeRepo) List(ctx context.Context, activeOnly bool) ([]models.WelcomeAsset, error) {
	out := make([]models.WelcomeAsset, 0, len(r.assets))
	for _, a := range r.assets {
		if activeOnly && !a.IsActive {
			continue
		}
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Position == out[j].Position {
			return out[i].ID < out[j].ID
		}
		return out[i].Position < out[j].Position
	})
	return out, nil
}

func (r *memoryWelcomeRepo) GetByID(ctx context.Context, id int64) (*models.WelcomeAsset, error) {
	a, ok := r.assets[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *a
	return &cp, nil
}

func (r *memoryWelcomeRepo) Create(ctx context.Context, asset *models.WelcomeAsset) error {
	r.nextID++
	asset.ID = r.nextID
	asset.Position = len(r.assets)
	cp := *asset
	r.assets[asset.ID] = &cp
	return nil
}

func (r *memoryWelcomeRepo) Update(ctx context.Context, asset *models.WelcomeAsset) error {
	if _, ok := r.assets[asset.ID]; !ok {
		return sql.ErrNoRows
	}
	cp := *asset
	r.assets[asset.ID] = &cp
	return nil
}

func (r *memoryWelcomeRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := r.assets[id]; !ok {
		return sql.ErrNoRows
	}
	delete(r.assets, id)
	return nil
}

func (r *memoryWelcomeRepo) UpdatePositions(ctx context.Context, orderedIDs []int64) error {
	if r.positionsErr != nil {
		return r.positionsErr
	}
	r.savedPositions = append(r.savedPositions, orderedIDs)
	for i, id := range orderedIDs {
		if a, ok := r.assets[id]; ok {
			a.Position = i
		}
	}
	return nil
}

func slides(ids ...int64) []models.WelcomeAsset {
	out := make([]models.WelcomeAsset, len(ids))
	for i, id := range ids {
		out[i] = models.WelcomeAsset{ID: id, Position: i, IsActive: true, MediaPath: "slides/" + string(rune('a'+i)) + ".png"}
	}
	return out
}

func ids(assets []models.WelcomeAsset) []int64 {
	return assetIDs(assets)
}

func TestReorderAssets(t *testing.T) {
	input := slides(10, 20, 30, 40)

	out, err := ReorderAssets(input, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, []int64{20, 30, 10, 40}, ids(out))
	for i, a := range out {
		assert.Equal(t, i, a.Position)
	}
	assert.Equal(t, []int64{10, 20, 30, 40}, ids(input), "input must stay untouched")

	out, err = ReorderAssets(input, 3, 0)
	require.NoError(t, err)
	assert.Equal(t, []int64{40, 10, 20, 30}, ids(out))

	out, err = ReorderAssets(input, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, []int64{10, 20, 30, 40}, ids(out))

	_, err = ReorderAssets(input, 0, 4)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	_, err = ReorderAssets(nil, 0, 0)
	assert.Error(t, err)
}

func TestOrderByIDs(t *testing.T) {
	out, err := OrderByIDs(slides(1, 2, 3), []int64{3, 1, 2})
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 1, 2}, ids(out))
	assert.Equal(t, 0, out[0].Position)

	_, err = OrderByIDs(slides(1, 2, 3), []int64{3, 1})
	assert.Error(t, err)
	_, err = OrderByIDs(slides(1, 2, 3), []int64{3, 3, 1})
	assert.Error(t, err)
	_, err = OrderByIDs(slides(1, 2, 3), []int64{3, 4, 1})
	assert.Error(t, err)
}

type welcomeFixture struct {
	svc    *WelcomeService
	repo   *memoryWelcomeRepo
	store  *storage.LocalStorage
	signer *storage.SignedURLSigner
	queue  *recordingQueue
}

func newWelcomeFixture(t *testing.T, assets ...models.WelcomeAsset) welcomeFixture {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "slides"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "slides", "a.png"), []byte("png-bytes"), 0o644))
	store, err := storage.NewLocalStorage(dir)
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("test-secret", time.Hour)
	repo := newMemoryWelcomeRepo(assets...)
	queue := &recordingQueue{}
	svc := NewWelcomeService(repo, store, signer, "/api/v1/", &recordingCache{}, queue, nil, nil)
	return welcomeFixture{svc: svc, repo: repo, store: store, signer: signer, queue: queue}
}

func TestWelcomeServiceCreateValidatesMedia(t *testing.T) {
	f := newWelcomeFixture(t)
	ctx := context.Background()

	asset, err := f.svc.Create(ctx, WelcomeAssetRequest{Title: "Welcome", MediaType: "image", MediaPath: "/slides/../slides/a.png"})
	require.NoError(t, err)
	assert.Equal(t, models.WelcomeMediaImage, asset.MediaType)
	assert.Equal(t, "slides/a.png", asset.MediaPath)
	assert.Equal(t, defaultSlideSeconds, asset.DurationSeconds)
	assert.Equal(t, []string{JobSignageRefresh}, f.queue.types())

	_, err = f.svc.Create(ctx, WelcomeAssetRequest{Title: "Missing", MediaType: "IMAGE", MediaPath: "slides/nope.png"})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = f.svc.Create(ctx, WelcomeAssetRequest{Title: "Audio", MediaType: "AUDIO", MediaPath: "slides/a.png"})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestWelcomeServiceReorder(t *testing.T) {
	f := newWelcomeFixture(t, slides(1, 2, 3)...)
	ctx := context.Background()
	from, to := 2, 0

	out, err := f.svc.Reorder(ctx, ReorderRequest{From: &from, To: &to})
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 1, 2}, ids(out))
	assert.Equal(t, [][]int64{{3, 1, 2}}, f.repo.savedPositions)

	out, err = f.svc.Reorder(ctx, ReorderRequest{OrderedIDs: []int64{1, 2, 3}})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, ids(out))

	_, err = f.svc.Reorder(ctx, ReorderRequest{})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	f.repo.positionsErr = sql.ErrNoRows
	_, err = f.svc.Reorder(ctx, ReorderRequest{OrderedIDs: []int64{3, 2, 1}})
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestWelcomeServiceDeleteCompactsPositions(t *testing.T) {
	f := newWelcomeFixture(t, slides(1, 2, 3)...)

	require.NoError(t, f.svc.Delete(context.Background(), 2))
	remaining, err := f.svc.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3}, ids(remaining))
	assert.Equal(t, 1, remaining[1].Position)
}

func TestWelcomeServicePublicSignsMedia(t *testing.T) {
	assets := slides(1, 2)
	assets[1].IsActive = false
	f := newWelcomeFixture(t, assets...)

	public, err := f.svc.Public(context.Background())
	require.NoError(t, err)
	require.Len(t, public, 1)
	assert.True(t, strings.HasPrefix(public[0].MediaURL, "/api/v1/welcome/media?token="))
	assert.False(t, public[0].MediaExpiresAt.IsZero())

	u, err := url.Parse(public[0].MediaURL)
	require.NoError(t, err)
	media, err := f.svc.OpenMedia(u.Query().Get("token"))
	require.NoError(t, err)
	defer media.File.Close()
	body, err := io.ReadAll(media.File)
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(body))
	assert.Equal(t, "a.png", media.Name)
	assert.Equal(t, "image/png", media.ContentType)
}

func TestWelcomeServiceOpenMediaErrors(t *testing.T) {
	f := newWelcomeFixture(t)

	_, err := f.svc.OpenMedia("garbage")
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	token, _, err := f.signer.Sign("welcome-1", "slides/gone.png")
	require.NoError(t, err)
	_, err = f.svc.OpenMedia(token)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	token, _, err = f.signer.Sign("welcome-1", "../etc/passwd")
	require.NoError(t, err)
	_, err = f.svc.OpenMedia(token)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
