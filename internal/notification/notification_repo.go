package notification

import (
	"context"
	"database/sql"
	"time"
)

// Repository is raw database/sql rather than gorm: Create runs inside the
// leave workflow's transaction via WithTx, so it must honor the *sql.Tx it
// is handed.
//
//go:generate mockgen -source=notification_repo.go -destination=mock/notification_repo_mock.go -package=mock
type Repository interface {
	WithTx(tx *sql.Tx) Repository
	Create(ctx context.Context, n *Notification) error
	FindAllByUser(ctx context.Context, userID string) ([]Notification, error)
	FindByIDAndUser(ctx context.Context, userID, id string) (*Notification, error)
	CountUnread(ctx context.Context, userID string) (int64, error)
	MarkRead(ctx context.Context, userID, id string) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
}

type repository struct {
	db *sql.DB
	tx *sql.Tx
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *sql.Tx) Repository {
	return &repository{db: r.db, tx: tx}
}

func (r *repository) Create(ctx context.Context, n *Notification) error {
	query := `
        INSERT INTO notifications (id, user_id, message, read, created_at)
        VALUES ($1, $2, $3, $4, $5)
    `

	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	_, err := r.execer().ExecContext(
		ctx, query,
		n.ID, n.UserID, n.Message, n.Read, n.CreatedAt,
	)
	return err
}

func (r *repository) FindAllByUser(ctx context.Context, userID string) ([]Notification, error) {
	query := `
SELECT id, user_id, message, read, created_at
FROM notifications
WHERE user_id = $1
ORDER BY created_at DESC
`

	rows, err := r.querier().QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Message, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, n)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *repository) FindByIDAndUser(ctx context.Context, userID, id string) (*Notification, error) {
	query := `
SELECT id, user_id, message, read, created_at
FROM notifications
WHERE id = $1 AND user_id = $2
`

	var n Notification
	err := r.querier().QueryRowContext(ctx, query, id, userID).
		Scan(&n.ID, &n.UserID, &n.Message, &n.Read, &n.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *repository) CountUnread(ctx context.Context, userID string) (int64, error) {
	query := `
SELECT COUNT(*)
FROM notifications
WHERE user_id = $1 AND read = FALSE
`

	var count int64
	err := r.querier().QueryRowContext(ctx, query, userID).Scan(&count)
	return count, err
}

func (r *repository) MarkRead(ctx context.Context, userID, id string) error {
	query := `
UPDATE notifications
SET read = TRUE
WHERE id = $1 AND user_id = $2
`
	_, err := r.execer().ExecContext(ctx, query, id, userID)
	return err
}

func (r *repository) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	query := `
UPDATE notifications
SET read = TRUE
WHERE user_id = $1 AND read = FALSE
`
	res, err := r.execer().ExecContext(ctx, query, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *repository) execer() interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
} {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

func (r *repository) querier() interface {
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
} {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}
