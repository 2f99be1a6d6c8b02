package leave

import (
	"context"
	"database/sql"
	"time"

	"gorm.io/gorm"
)

//go:generate mockgen -source=leave_repo.go -destination=mock/leave_repo_mock.go -package=mock
type Repository interface {
	WithTx(tx *sql.Tx) Repository
	Create(ctx context.Context, l *LeaveRequest) error
	FindByID(ctx context.Context, id string) (*LeaveRequest, error)
	FindAllByEmployee(ctx context.Context, employeeID string) ([]LeaveRequest, error)
	FindAll(ctx context.Context, status string) ([]LeaveRequest, error)
	UpdateDecision(ctx context.Context, l *LeaveRequest) (bool, error)
	HasOverlappingPeriod(ctx context.Context, employeeID string, startDate, endDate time.Time) (bool, error)
	SumApprovedDaysByType(ctx context.Context, employeeID string, year int) (map[string]int, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// WithTx rebinds the repository onto tx. Statements issued through the
// returned repository execute on tx and commit or roll back with it.
func (r *repository) WithTx(tx *sql.Tx) Repository {
	session := r.db.Session(&gorm.Session{NewDB: true})
	session.Statement.ConnPool = tx
	return &repository{db: session}
}

func (r *repository) Create(ctx context.Context, l *LeaveRequest) error {
	return r.db.WithContext(ctx).Create(l).Error
}

func (r *repository) FindByID(ctx context.Context, id string) (*LeaveRequest, error) {
	var l LeaveRequest
	err := r.db.WithContext(ctx).
		Preload("Employee").
		First(&l, "id = ?", id).Error
	return &l, err
}

func (r *repository) FindAllByEmployee(ctx context.Context, employeeID string) ([]LeaveRequest, error) {
	var leaves []LeaveRequest
	err := r.db.WithContext(ctx).
		Where("employee_id = ?", employeeID).
		Order("start_date DESC").
		Find(&leaves).Error
	return leaves, err
}

func (r *repository) FindAll(ctx context.Context, status string) ([]LeaveRequest, error) {
	db := r.db.WithContext(ctx).Preload("Employee")
	if status != "" {
		db = db.Where("status = ?", status)
	}

	var leaves []LeaveRequest
	err := db.Order("created_at DESC").Find(&leaves).Error
	return leaves, err
}

// UpdateDecision persists the decision only while the row is still PENDING.
// The status guard serializes concurrent deciders: the loser updates no row
// and must treat the request as already decided.
func (r *repository) UpdateDecision(ctx context.Context, l *LeaveRequest) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&LeaveRequest{}).
		Where("id = ? AND status = ?", l.ID, StatusPending).
		Updates(map[string]interface{}{
			"status":           l.Status,
			"decided_by":       l.DecidedBy,
			"decided_at":       l.DecidedAt,
			"rejection_reason": l.RejectionReason,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// HasOverlappingPeriod reports whether the employee already has a pending or
// approved request touching [startDate, endDate]. Rejected requests do not
// block the period.
func (r *repository) HasOverlappingPeriod(ctx context.Context, employeeID string, startDate, endDate time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&LeaveRequest{}).
		Where("employee_id = ?", employeeID).
		Where("status <> ?", StatusRejected).
		Where("NOT (end_date < ? OR start_date > ?)", startDate, endDate).
		Count(&count).Error
	return count > 0, err
}

// SumApprovedDaysByType totals approved leave days per type for requests
// starting in the given calendar year. Balances are always derived from this,
// never stored.
func (r *repository) SumApprovedDaysByType(ctx context.Context, employeeID string, year int) (map[string]int, error) {
	yearStart := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	yearEnd := time.Date(year+1, time.January, 1, 0, 0, 0, 0, time.UTC)

	var rows []struct {
		LeaveType string
		Days      int
	}
	err := r.db.WithContext(ctx).
		Model(&LeaveRequest{}).
		Select("leave_type, COALESCE(SUM(total_days), 0) AS days").
		Where("employee_id = ?", employeeID).
		Where("status = ?", StatusApproved).
		Where("start_date >= ? AND start_date < ?", yearStart, yearEnd).
		Group("leave_type").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	taken := make(map[string]int, len(rows))
	for _, row := range rows {
		taken[row.LeaveType] = row.Days
	}
	return taken, nil
}
