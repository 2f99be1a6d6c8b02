package leave

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"go-hrms/internal/employee"
	"go-hrms/internal/events"
	leaveerrors "go-hrms/internal/leave/errors"
	"go-hrms/internal/messaging/kafka"
	"go-hrms/internal/notification"
	"go-hrms/internal/rbac"
	"go-hrms/internal/shared/contextutil"
)

//go:generate mockgen -source=leave_service.go -destination=mock/leave_service_mock.go -package=mock
type Service interface {
	Submit(ctx context.Context, employeeID string, req SubmitLeaveRequest) (LeaveResponse, error)
	Approve(ctx context.Context, approverID, id string) (LeaveResponse, error)
	Reject(ctx context.Context, approverID, id, rejectionReason string) (LeaveResponse, error)
	ListForEmployee(ctx context.Context, employeeID string) ([]LeaveResponse, error)
	ListAll(ctx context.Context, status string) ([]LeaveResponse, error)
	GetBalance(ctx context.Context, employeeID string, year int) (BalanceResponse, error)
}

type service struct {
	db            *sql.DB
	repo          Repository
	employees     employee.Repository
	notifications notification.Repository
	outbox        kafka.OutboxRepository
	rdb           *redis.Client
	logger        *zap.Logger
}

func NewService(
	db *sql.DB,
	repo Repository,
	employees employee.Repository,
	notifications notification.Repository,
	outbox kafka.OutboxRepository,
	rdb *redis.Client,
	logger ...*zap.Logger,
) Service {
	l := zap.L().Named("leave.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("leave.service")
	}
	return &service{
		db:            db,
		repo:          repo,
		employees:     employees,
		notifications: notifications,
		outbox:        outbox,
		rdb:           rdb,
		logger:        l,
	}
}

func (s *service) Submit(ctx context.Context, employeeID string, req SubmitLeaveRequest) (LeaveResponse, error) {
	s.logger.Debug("submit leave requested",
		zap.String("employee_id", employeeID),
		zap.String("leave_type", req.LeaveType),
		zap.String("start_date", req.StartDate),
		zap.String("end_date", req.EndDate),
	)

	employeeUUID, err := uuid.Parse(employeeID)
	if err != nil {
		return LeaveResponse{}, leaveerrors.ErrInvalidEmployeeID
	}
	startDate, err := parseDate(req.StartDate)
	if err != nil {
		return LeaveResponse{}, err
	}
	endDate, err := parseDate(req.EndDate)
	if err != nil {
		return LeaveResponse{}, err
	}
	if startDate.After(endDate) {
		return LeaveResponse{}, leaveerrors.ErrInvalidDateRange
	}
	totalDays := int(endDate.Sub(startDate).Hours()/24) + 1

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("submit leave begin tx failed", zap.Error(err))
		return LeaveResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	emp, err := s.employees.FindByID(ctx, employeeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return LeaveResponse{}, leaveerrors.ErrEmployeeNotFound
		}
		s.logger.Error("submit leave employee lookup failed", zap.Error(err))
		return LeaveResponse{}, err
	}

	overlap, err := qtx.HasOverlappingPeriod(ctx, employeeID, startDate, endDate)
	if err != nil {
		s.logger.Error("submit leave overlap check failed", zap.Error(err))
		return LeaveResponse{}, err
	}
	if overlap {
		s.logger.Warn("submit leave overlap detected",
			zap.String("employee_id", employeeID),
			zap.String("start_date", req.StartDate),
			zap.String("end_date", req.EndDate),
		)
		return LeaveResponse{}, leaveerrors.ErrLeaveOverlap
	}

	remaining, err := s.remainingDays(ctx, qtx, employeeID, req.LeaveType, startDate.Year())
	if err != nil {
		s.logger.Error("submit leave balance check failed", zap.Error(err))
		return LeaveResponse{}, err
	}
	if totalDays > remaining {
		s.logger.Warn("submit leave insufficient balance",
			zap.String("employee_id", employeeID),
			zap.String("leave_type", req.LeaveType),
			zap.Int("requested_days", totalDays),
			zap.Int("remaining_days", remaining),
		)
		return LeaveResponse{}, leaveerrors.ErrInsufficientBalance
	}

	l := &LeaveRequest{
		ID:         uuid.New(),
		EmployeeID: employeeUUID,
		LeaveType:  req.LeaveType,
		StartDate:  startDate,
		EndDate:    endDate,
		TotalDays:  totalDays,
		Reason:     req.Reason,
		Status:     StatusPending,
	}
	if err := qtx.Create(ctx, l); err != nil {
		s.logger.Error("submit leave persist failed", zap.Error(err))
		return LeaveResponse{}, err
	}

	hrUsers, err := s.employees.FindAllByRole(ctx, rbac.RoleHR)
	if err != nil {
		s.logger.Error("submit leave hr lookup failed", zap.Error(err))
		return LeaveResponse{}, err
	}

	message := fmt.Sprintf(
		"%s requested %s leave from %s to %s (%d days)",
		emp.FullName(), l.LeaveType, req.StartDate, req.EndDate, totalDays,
	)
	ntx := s.notifications.WithTx(tx)
	notifiedUserIDs := make([]string, 0, len(hrUsers))
	for _, hr := range hrUsers {
		if err := ntx.Create(ctx, notification.NewUnread(hr.ID, message)); err != nil {
			s.logger.Error("submit leave notification persist failed",
				zap.String("recipient_id", hr.ID.String()),
				zap.Error(err),
			)
			return LeaveResponse{}, err
		}
		notifiedUserIDs = append(notifiedUserIDs, hr.ID.String())
	}

	if err := s.enqueueLifecycleEvent(ctx, tx, events.LeaveSubmittedEvent, *l); err != nil {
		s.logger.Error("submit leave outbox persist failed", zap.Error(err))
		return LeaveResponse{}, err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("submit leave commit failed", zap.Error(err))
		return LeaveResponse{}, err
	}
	notification.InvalidateUnreadCount(ctx, s.rdb, s.logger, notifiedUserIDs...)

	meta := contextutil.ExtractMetadata(ctx)
	s.logger.Info("submit leave success",
		zap.String("leave_id", l.ID.String()),
		zap.String("employee_id", employeeID),
		zap.String("request_id", meta.RequestID),
		zap.Int("notified_hr_users", len(notifiedUserIDs)),
	)

	l.Employee = emp
	return mapToResponse(*l), nil
}

func (s *service) Approve(ctx context.Context, approverID, id string) (LeaveResponse, error) {
	return s.decide(ctx, approverID, id, StatusApproved, nil)
}

func (s *service) Reject(ctx context.Context, approverID, id, rejectionReason string) (LeaveResponse, error) {
	if rejectionReason == "" {
		return LeaveResponse{}, leaveerrors.ErrRejectionReasonRequired
	}
	return s.decide(ctx, approverID, id, StatusRejected, &rejectionReason)
}

// decide moves a pending request to its terminal status. APPROVED and
// REJECTED are final: a second decision on the same request fails with
// ErrNotPending no matter which direction it goes.
func (s *service) decide(ctx context.Context, approverID, id, targetStatus string, rejectionReason *string) (LeaveResponse, error) {
	s.logger.Debug("decide leave requested",
		zap.String("leave_id", id),
		zap.String("approver_id", approverID),
		zap.String("target_status", targetStatus),
	)

	approverUUID, err := uuid.Parse(approverID)
	if err != nil {
		return LeaveResponse{}, leaveerrors.ErrInvalidApproverID
	}
	if _, err := uuid.Parse(id); err != nil {
		return LeaveResponse{}, leaveerrors.ErrInvalidLeaveID
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("decide leave begin tx failed", zap.Error(err))
		return LeaveResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	l, err := qtx.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return LeaveResponse{}, leaveerrors.ErrLeaveNotFound
		}
		return LeaveResponse{}, err
	}
	if !l.Pending() {
		s.logger.Warn("decide leave already decided",
			zap.String("leave_id", id),
			zap.String("status", l.Status),
		)
		return LeaveResponse{}, leaveerrors.ErrNotPending
	}

	if targetStatus == StatusApproved {
		remaining, err := s.remainingDays(ctx, qtx, l.EmployeeID.String(), l.LeaveType, l.StartDate.Year())
		if err != nil {
			s.logger.Error("decide leave balance check failed", zap.Error(err))
			return LeaveResponse{}, err
		}
		if l.TotalDays > remaining {
			s.logger.Warn("decide leave insufficient balance",
				zap.String("leave_id", id),
				zap.String("leave_type", l.LeaveType),
				zap.Int("requested_days", l.TotalDays),
				zap.Int("remaining_days", remaining),
			)
			return LeaveResponse{}, leaveerrors.ErrInsufficientBalance
		}
	}

	now := time.Now().UTC()
	l.Status = targetStatus
	l.DecidedBy = &approverUUID
	l.DecidedAt = &now
	l.RejectionReason = rejectionReason

	decided, err := qtx.UpdateDecision(ctx, l)
	if err != nil {
		s.logger.Error("decide leave persist failed",
			zap.String("leave_id", id),
			zap.Error(err),
		)
		return LeaveResponse{}, err
	}
	if !decided {
		// A concurrent decider committed between our read and this update.
		s.logger.Warn("decide leave lost to concurrent decision",
			zap.String("leave_id", id),
		)
		return LeaveResponse{}, leaveerrors.ErrNotPending
	}

	verb := "approved"
	eventType := events.LeaveApprovedEvent
	if targetStatus == StatusRejected {
		verb = "rejected"
		eventType = events.LeaveRejectedEvent
	}
	message := fmt.Sprintf(
		"Your %s leave request from %s to %s was %s",
		l.LeaveType,
		l.StartDate.Format("2006-01-02"),
		l.EndDate.Format("2006-01-02"),
		verb,
	)
	if targetStatus == StatusRejected && rejectionReason != nil {
		message = fmt.Sprintf("%s: %s", message, *rejectionReason)
	}

	ntx := s.notifications.WithTx(tx)
	if err := ntx.Create(ctx, notification.NewUnread(l.EmployeeID, message)); err != nil {
		s.logger.Error("decide leave notification persist failed",
			zap.String("leave_id", id),
			zap.Error(err),
		)
		return LeaveResponse{}, err
	}

	if err := s.enqueueLifecycleEvent(ctx, tx, eventType, *l); err != nil {
		s.logger.Error("decide leave outbox persist failed", zap.Error(err))
		return LeaveResponse{}, err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("decide leave commit failed",
			zap.String("leave_id", id),
			zap.Error(err),
		)
		return LeaveResponse{}, err
	}
	notification.InvalidateUnreadCount(ctx, s.rdb, s.logger, l.EmployeeID.String())

	meta := contextutil.ExtractMetadata(ctx)
	s.logger.Info("decide leave success",
		zap.String("leave_id", id),
		zap.String("status", targetStatus),
		zap.String("request_id", meta.RequestID),
		zap.String("actor_user_id", meta.UserID),
	)
	return mapToResponse(*l), nil
}

func (s *service) ListForEmployee(ctx context.Context, employeeID string) ([]LeaveResponse, error) {
	if _, err := uuid.Parse(employeeID); err != nil {
		return nil, leaveerrors.ErrInvalidEmployeeID
	}

	leaves, err := s.repo.FindAllByEmployee(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	return mapToListResponse(leaves), nil
}

func (s *service) ListAll(ctx context.Context, status string) ([]LeaveResponse, error) {
	leaves, err := s.repo.FindAll(ctx, status)
	if err != nil {
		return nil, err
	}
	return mapToListResponse(leaves), nil
}

// GetBalance derives the per-type balance from approved requests in the given
// calendar year. Nothing is read from a stored counter, so the result cannot
// drift from the request history.
func (s *service) GetBalance(ctx context.Context, employeeID string, year int) (BalanceResponse, error) {
	if _, err := uuid.Parse(employeeID); err != nil {
		return BalanceResponse{}, leaveerrors.ErrInvalidEmployeeID
	}

	if _, err := s.employees.FindByID(ctx, employeeID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return BalanceResponse{}, leaveerrors.ErrEmployeeNotFound
		}
		return BalanceResponse{}, err
	}

	taken, err := s.repo.SumApprovedDaysByType(ctx, employeeID, year)
	if err != nil {
		return BalanceResponse{}, err
	}

	balances := make(map[string]TypeBalance, len(Allotments))
	totalRemaining := 0
	for leaveType, allotted := range Allotments {
		remaining := allotted - taken[leaveType]
		if remaining < 0 {
			remaining = 0
		}
		balances[leaveType] = TypeBalance{
			Allotted:  allotted,
			Taken:     taken[leaveType],
			Remaining: remaining,
		}
		totalRemaining += remaining
	}

	return BalanceResponse{
		EmployeeID:     employeeID,
		Year:           year,
		Balances:       balances,
		TotalRemaining: totalRemaining,
	}, nil
}

func (s *service) remainingDays(ctx context.Context, repo Repository, employeeID, leaveType string, year int) (int, error) {
	taken, err := repo.SumApprovedDaysByType(ctx, employeeID, year)
	if err != nil {
		return 0, err
	}
	remaining := Allotments[leaveType] - taken[leaveType]
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

func (s *service) enqueueLifecycleEvent(ctx context.Context, tx *sql.Tx, eventType string, l LeaveRequest) error {
	payload, err := json.Marshal(events.LeaveLifecycleEvent{
		EventType:  eventType,
		RequestID:  l.ID.String(),
		EmployeeID: l.EmployeeID.String(),
		LeaveType:  l.LeaveType,
		StartDate:  l.StartDate.Format("2006-01-02"),
		EndDate:    l.EndDate.Format("2006-01-02"),
		TotalDays:  l.TotalDays,
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	return s.outbox.WithTx(tx).Create(ctx, kafka.OutboxEvent{
		ID:            uuid.New().String(),
		RequestID:     contextutil.GetRequestID(ctx),
		AggregateType: "leave_request",
		AggregateID:   l.ID.String(),
		EventType:     eventType,
		Topic:         events.LeaveLifecycleTopic,
		Payload:       payload,
		Status:        kafka.OutboxStatusPending,
	})
}

func parseDate(v string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}, leaveerrors.ErrInvalidDateFormat
	}
	return t, nil
}

func mapToResponse(l LeaveRequest) LeaveResponse {
	resp := LeaveResponse{
		ID:         l.ID.String(),
		EmployeeID: l.EmployeeID.String(),
		LeaveType:  l.LeaveType,
		StartDate:  l.StartDate.Format("2006-01-02"),
		EndDate:    l.EndDate.Format("2006-01-02"),
		TotalDays:  l.TotalDays,
		Reason:     l.Reason,
		Status:     l.Status,
	}
	if l.Employee != nil {
		resp.EmployeeName = l.Employee.FullName()
	}
	if l.DecidedBy != nil {
		v := l.DecidedBy.String()
		resp.DecidedBy = &v
	}
	if l.DecidedAt != nil {
		v := l.DecidedAt.Format(time.RFC3339)
		resp.DecidedAt = &v
	}
	resp.RejectionReason = l.RejectionReason
	return resp
}

func mapToListResponse(leaves []LeaveRequest) []LeaveResponse {
	resp := make([]LeaveResponse, len(leaves))
	for i, l := range leaves {
		resp[i] = mapToResponse(l)
	}
	return resp
}
