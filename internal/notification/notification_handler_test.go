package notification_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go-hrms/internal/notification"
	notificationerrors "go-hrms/internal/notification/errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type apiEnvelope struct {
	Ok    bool            `json:"ok"`
	Data  json.RawMessage `json:"data"`
	Error *apiError       `json:"error"`
}

func decodeEnvelope(t *testing.T, body []byte) apiEnvelope {
	t.Helper()
	var env apiEnvelope
	err := json.Unmarshal(body, &env)
	assert.NoError(t, err)
	return env
}

type fakeNotificationService struct {
	listForUserFn func(ctx context.Context, userID string) ([]notification.NotificationResponse, error)
	unreadCountFn func(ctx context.Context, userID string) (int64, error)
	markReadFn    func(ctx context.Context, userID, id string) (notification.NotificationResponse, error)
	markAllReadFn func(ctx context.Context, userID string) (int64, error)
}

func (f *fakeNotificationService) ListForUser(ctx context.Context, userID string) ([]notification.NotificationResponse, error) {
	return f.listForUserFn(ctx, userID)
}
func (f *fakeNotificationService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	return f.unreadCountFn(ctx, userID)
}
func (f *fakeNotificationService) MarkRead(ctx context.Context, userID, id string) (notification.NotificationResponse, error) {
	return f.markReadFn(ctx, userID, id)
}
func (f *fakeNotificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	return f.markAllReadFn(ctx, userID)
}

func TestNotificationHandler_ListForUser(t *testing.T) {
	t.Run("success paginates", func(t *testing.T) {
		userID := uuid.New().String()

		rows := make([]notification.NotificationResponse, 12)
		for i := range rows {
			rows[i] = notification.NotificationResponse{ID: uuid.New().String(), UserID: userID}
		}

		svc := &fakeNotificationService{
			listForUserFn: func(ctx context.Context, uid string) ([]notification.NotificationResponse, error) {
				assert.Equal(t, userID, uid)
				return rows, nil
			},
		}

		h := notification.NewHandler(svc)
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/notifications/user?page=2&page_size=10", nil)
		c.Set("user_id", userID)

		h.ListForUser(c)

		assert.Equal(t, http.StatusOK, w.Code)
		env := decodeEnvelope(t, w.Body.Bytes())
		var got []notification.NotificationResponse
		assert.NoError(t, json.Unmarshal(env.Data, &got))
		assert.Len(t, got, 2)
	})
}

func TestNotificationHandler_UnreadCount(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		userID := uuid.New().String()

		svc := &fakeNotificationService{
			unreadCountFn: func(ctx context.Context, uid string) (int64, error) {
				assert.Equal(t, userID, uid)
				return 5, nil
			},
		}

		h := notification.NewHandler(svc)
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/notifications/unread-count", nil)
		c.Set("user_id", userID)

		h.UnreadCount(c)

		assert.Equal(t, http.StatusOK, w.Code)
		env := decodeEnvelope(t, w.Body.Bytes())
		var got notification.UnreadCountResponse
		assert.NoError(t, json.Unmarshal(env.Data, &got))
		assert.Equal(t, int64(5), got.Count)
	})
}

func TestNotificationHandler_MarkRead(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		userID := uuid.New().String()
		notificationID := uuid.New().String()

		svc := &fakeNotificationService{
			markReadFn: func(ctx context.Context, uid, id string) (notification.NotificationResponse, error) {
				assert.Equal(t, userID, uid)
				assert.Equal(t, notificationID, id)
				return notification.NotificationResponse{ID: id, UserID: uid, Read: true}, nil
			},
		}

		h := notification.NewHandler(svc)
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodPut, "/notifications/"+notificationID+"/mark-read", nil)
		c.Params = gin.Params{{Key: "id", Value: notificationID}}
		c.Set("user_id", userID)

		h.MarkRead(c)

		assert.Equal(t, http.StatusOK, w.Code)
		env := decodeEnvelope(t, w.Body.Bytes())
		var got notification.NotificationResponse
		assert.NoError(t, json.Unmarshal(env.Data, &got))
		assert.True(t, got.Read)
	})

	t.Run("negative not found", func(t *testing.T) {
		notificationID := uuid.New().String()

		svc := &fakeNotificationService{
			markReadFn: func(ctx context.Context, uid, id string) (notification.NotificationResponse, error) {
				return notification.NotificationResponse{}, notificationerrors.ErrNotificationNotFound
			},
		}

		h := notification.NewHandler(svc)
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodPut, "/notifications/"+notificationID+"/mark-read", nil)
		c.Params = gin.Params{{Key: "id", Value: notificationID}}
		c.Set("user_id", uuid.New().String())

		h.MarkRead(c)

		assert.Equal(t, http.StatusNotFound, w.Code)
		env := decodeEnvelope(t, w.Body.Bytes())
		assert.False(t, env.Ok)
		assert.Equal(t, "NOT_FOUND", env.Error.Code)
	})
}

func TestNotificationHandler_MarkAllRead(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		userID := uuid.New().String()

		svc := &fakeNotificationService{
			markAllReadFn: func(ctx context.Context, uid string) (int64, error) {
				return 7, nil
			},
		}

		h := notification.NewHandler(svc)
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodPut, "/notifications/mark-all-read", nil)
		c.Set("user_id", userID)

		h.MarkAllRead(c)

		assert.Equal(t, http.StatusOK, w.Code)
		env := decodeEnvelope(t, w.Body.Bytes())
		var got notification.MarkReadResponse
		assert.NoError(t, json.Unmarshal(env.Data, &got))
		assert.Equal(t, int64(7), got.Marked)
	})
}
