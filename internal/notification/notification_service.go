package notification

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	notificationerrors "go-hrms/internal/notification/errors"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const UnreadCountKeyPrefix = "notifications:unread:"

const unreadCountTTL = 30 * time.Second

func GetUnreadCountKey(userID string) string {
	return UnreadCountKeyPrefix + userID
}

//go:generate mockgen -source=notification_service.go -destination=mock/notification_service_mock.go -package=mock
type Service interface {
	ListForUser(ctx context.Context, userID string) ([]NotificationResponse, error)
	UnreadCount(ctx context.Context, userID string) (int64, error)
	MarkRead(ctx context.Context, userID, id string) (NotificationResponse, error)
	MarkAllRead(ctx context.Context, userID string) (int64, error)
}

type service struct {
	repo   Repository
	rdb    *redis.Client
	sf     *singleflight.Group
	logger *zap.Logger
}

func NewService(repo Repository, rdb *redis.Client, logger ...*zap.Logger) Service {
	l := zap.L().Named("notification.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("notification.service")
	}
	return &service{repo: repo, rdb: rdb, sf: &singleflight.Group{}, logger: l}
}

// NewUnread builds an unread notification row. Producers such as the leave
// workflow persist it through Repository.WithTx inside their own transaction.
func NewUnread(userID uuid.UUID, message string) *Notification {
	return &Notification{
		ID:        uuid.New(),
		UserID:    userID,
		Message:   message,
		Read:      false,
		CreatedAt: time.Now().UTC(),
	}
}

// InvalidateUnreadCount drops the cached unread counts for the given users.
// Callers that write notification rows outside this package invoke it after
// their transaction commits.
func InvalidateUnreadCount(ctx context.Context, rdb *redis.Client, logger *zap.Logger, userIDs ...string) {
	if rdb == nil {
		return
	}
	for _, userID := range userIDs {
		if err := rdb.Del(ctx, GetUnreadCountKey(userID)).Err(); err != nil && logger != nil {
			logger.Warn("unread count cache invalidation failed",
				zap.String("user_id", userID),
				zap.Error(err),
			)
		}
	}
}

func (s *service) ListForUser(ctx context.Context, userID string) ([]NotificationResponse, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return nil, notificationerrors.ErrInvalidUserID
	}

	rows, err := s.repo.FindAllByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	resp := make([]NotificationResponse, len(rows))
	for i, n := range rows {
		resp[i] = mapToResponse(n)
	}
	return resp, nil
}

// UnreadCount reads the cached count when present; recomputes behind a
// singleflight otherwise. Every write path invalidates the key.
func (s *service) UnreadCount(ctx context.Context, userID string) (int64, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return 0, notificationerrors.ErrInvalidUserID
	}

	if s.rdb != nil {
		if val, err := s.rdb.Get(ctx, GetUnreadCountKey(userID)).Result(); err == nil {
			if count, parseErr := strconv.ParseInt(val, 10, 64); parseErr == nil {
				return count, nil
			}
		}
	}

	v, err, _ := s.sf.Do(GetUnreadCountKey(userID), func() (any, error) {
		count, err := s.repo.CountUnread(ctx, userID)
		if err != nil {
			return nil, err
		}
		if s.rdb != nil {
			if err := s.rdb.Set(ctx, GetUnreadCountKey(userID), strconv.FormatInt(count, 10), unreadCountTTL).Err(); err != nil {
				s.logger.Warn("unread count cache set failed", zap.String("user_id", userID), zap.Error(err))
			}
		}
		return count, nil
	})
	if err != nil {
		return 0, err
	}
	return v.(int64), nil
}

// MarkRead is idempotent: marking an already-read notification succeeds
// without touching the row again.
func (s *service) MarkRead(ctx context.Context, userID, id string) (NotificationResponse, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return NotificationResponse{}, notificationerrors.ErrInvalidUserID
	}
	if _, err := uuid.Parse(id); err != nil {
		return NotificationResponse{}, notificationerrors.ErrInvalidNotificationID
	}

	n, err := s.repo.FindByIDAndUser(ctx, userID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return NotificationResponse{}, notificationerrors.ErrNotificationNotFound
		}
		return NotificationResponse{}, err
	}

	if n.Read {
		return mapToResponse(*n), nil
	}

	if err := s.repo.MarkRead(ctx, userID, id); err != nil {
		s.logger.Error("mark read persist failed", zap.String("notification_id", id), zap.Error(err))
		return NotificationResponse{}, err
	}
	n.Read = true

	s.invalidateUnreadCount(ctx, userID)
	return mapToResponse(*n), nil
}

func (s *service) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return 0, notificationerrors.ErrInvalidUserID
	}

	marked, err := s.repo.MarkAllRead(ctx, userID)
	if err != nil {
		s.logger.Error("mark all read persist failed", zap.String("user_id", userID), zap.Error(err))
		return 0, err
	}

	s.invalidateUnreadCount(ctx, userID)
	return marked, nil
}

func (s *service) invalidateUnreadCount(ctx context.Context, userID string) {
	InvalidateUnreadCount(ctx, s.rdb, s.logger, userID)
}

func mapToResponse(n Notification) NotificationResponse {
	return NotificationResponse{
		ID:        n.ID.String(),
		UserID:    n.UserID.String(),
		Message:   n.Message,
		Read:      n.Read,
		CreatedAt: n.CreatedAt.Format(time.RFC3339),
	}
}
