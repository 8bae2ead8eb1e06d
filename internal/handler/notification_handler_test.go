package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-facility-api/internal/models"
	appErrors "github.com/noah-isme/sma-facility-api/pkg/errors"
)

type notificationServiceMock struct {
	items      []models.Notification
	listErr    error
	markErr    error
	lastUnread bool
	markedID   string
}

func (m *notificationServiceMock) List(ctx context.Context, claims *models.JWTClaims, unreadOnly bool, page, pageSize int) ([]models.Notification, *models.Pagination, error) {
	m.lastUnread = unreadOnly
	return m.items, &models.Pagination{Page: 1, PageSize: 20, TotalCount: len(m.items)}, m.listErr
}

func (m *notificationServiceMock) MarkRead(ctx context.Context, id string, claims *models.JWTClaims) error {
	m.markedID = id
	return m.markErr
}

func TestNotificationHandlerList(t *testing.T) {
	mockSvc := &notificationServiceMock{items: []models.Notification{{ID: "n-1"}}}
	handler := NewNotificationHandler(mockSvc)

	c, w := testContext(t, http.MethodGet, "/notifications?unread=true", nil)

	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, mockSvc.lastUnread)
	assert.Contains(t, w.Body.String(), "n-1")
}

func TestNotificationHandlerMarkRead(t *testing.T) {
	mockSvc := &notificationServiceMock{}
	handler := NewNotificationHandler(mockSvc)

	c, w := testContext(t, http.MethodPost, "/notifications/n-1/read", nil)
	c.Params = gin.Params{{Key: "id", Value: "n-1"}}

	handler.MarkRead(c)
	c.Writer.WriteHeaderNow()
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "n-1", mockSvc.markedID)
}

func TestNotificationHandlerMarkReadNotFound(t *testing.T) {
	handler := NewNotificationHandler(&notificationServiceMock{markErr: appErrors.ErrNotFound})

	c, w := testContext(t, http.MethodPost, "/notifications/n-9/read", nil)
	c.Params = gin.Params{{Key: "id", Value: "n-9"}}

	handler.MarkRead(c)
	require.Equal(t, http.StatusNotFound, w.Code)
}
