package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-bulletin-api/internal/middleware"
	"github.com/noah-isme/sma-bulletin-api/internal/models"
	"github.com/noah-isme/sma-bulletin-api/internal/service"
)

type fakeNotificationSrv struct {
	userID   string
	filter   models.NotificationFilter
	markedID int64
}

func (f *fakeNotificationSrv) List(_ context.Context, userID string, filter models.NotificationFilter) ([]models.NotificationView, *models.Pagination, error) {
	f.userID = userID
	f.filter = filter
	return []models.NotificationView{}, &models.Pagination{Page: 1, PageSize: 20}, nil
}

func (f *fakeNotificationSrv) UnreadCount(_ context.Context, userID string) (int, error) {
	f.userID = userID
	return 4, nil
}

func (f *fakeNotificationSrv) Create(_ context.Context, req service.CreateNotificationRequest) (*service.CreateNotificationResult, error) {
	if len(req.UserIDs) == 0 {
		return &service.CreateNotificationResult{Queued: true}, nil
	}
	return &service.CreateNotificationResult{Created: []models.NotificationView{{}}}, nil
}

func (f *fakeNotificationSrv) MarkRead(_ context.Context, id int64, userID string) error {
	f.markedID = id
	f.userID = userID
	return nil
}

func (f *fakeNotificationSrv) MarkAllRead(_ context.Context, userID string) (int64, error) {
	f.userID = userID
	return 3, nil
}

func withUser(c *gin.Context, id string) {
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: id, Role: models.RoleStudent})
}

func TestNotificationListScopesToUser(t *testing.T) {
	srv := &fakeNotificationSrv{}
	h := NewNotificationHandler(srv)

	c, rec := testContext(http.MethodGet, "/notifications?unread=true", nil)
	withUser(c, "u-7")
	h.List(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u-7", srv.userID)
	assert.True(t, srv.filter.UnreadOnly)
}

func TestNotificationListRequiresUser(t *testing.T) {
	h := NewNotificationHandler(&fakeNotificationSrv{})
	c, rec := testContext(http.MethodGet, "/notifications", nil)
	h.List(c)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestNotificationCountsAndMarks(t *testing.T) {
	srv := &fakeNotificationSrv{}
	h := NewNotificationHandler(srv)

	c, rec := testContext(http.MethodGet, "/notifications/unread-count", nil)
	withUser(c, "u-1")
	h.UnreadCount(c)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":{"unread":4}}`, rec.Body.String())

	c, rec = testContext(http.MethodPost, "/notifications/read-all", nil)
	withUser(c, "u-1")
	h.MarkAllRead(c)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":{"updated":3}}`, rec.Body.String())

	c, rec = testContext(http.MethodPost, "/notifications/12/read", nil)
	c.Params = gin.Params{{Key: "id", Value: "12"}}
	withUser(c, "u-1")
	h.MarkRead(c)
	c.Writer.WriteHeaderNow()
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, int64(12), srv.markedID)
}

func TestNotificationCreateStatus(t *testing.T) {
	h := NewNotificationHandler(&fakeNotificationSrv{})

	c, rec := testContext(http.MethodPost, "/notifications", []byte(`{"type":"ANNOUNCEMENT","title":"Hi"}`))
	h.Create(c)
	assert.Equal(t, http.StatusAccepted, rec.Code)

	c, rec = testContext(http.MethodPost, "/notifications", []byte(`{"user_ids":["u-1"],"type":"ANNOUNCEMENT","title":"Hi"}`))
	h.Create(c)
	assert.Equal(t, http.StatusCreated, rec.Code)
}
