package attendance

import (
	"context"
	"database/sql"
	"errors"
	"time"

	attendanceerrors "go-hrms/internal/attendance/errors"
	"go-hrms/internal/employee"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:generate mockgen -source=attendance_service.go -destination=mock/attendance_service_mock.go -package=mock
type Service interface {
	CheckIn(ctx context.Context, employeeID string, req CheckInRequest) (AttendanceResponse, error)
	CheckOut(ctx context.Context, employeeID string, req CheckOutRequest) (AttendanceResponse, error)
	ListRecords(ctx context.Context, employeeID, startDate, endDate string) ([]AttendanceResponse, error)
	ListAllByDate(ctx context.Context, date string) ([]AttendanceResponse, error)
	Summary(ctx context.Context, date string) (SummaryResponse, error)
}

type service struct {
	db        *sql.DB
	repo      Repository
	employees employee.Repository
	logger    *zap.Logger
}

func NewService(db *sql.DB, repo Repository, employees employee.Repository, logger ...*zap.Logger) Service {
	l := zap.L().Named("attendance.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("attendance.service")
	}
	return &service{db: db, repo: repo, employees: employees, logger: l}
}

func (s *service) CheckIn(ctx context.Context, employeeID string, req CheckInRequest) (AttendanceResponse, error) {
	s.logger.Debug("check-in requested", zap.String("employee_id", employeeID))

	if _, err := uuid.Parse(employeeID); err != nil {
		return AttendanceResponse{}, attendanceerrors.ErrInvalidEmployeeID
	}

	at, err := parseTimestamp(req.At)
	if err != nil {
		return AttendanceResponse{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("check-in begin tx failed", zap.Error(err))
		return AttendanceResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	if _, err := s.employees.FindByID(ctx, employeeID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return AttendanceResponse{}, attendanceerrors.ErrEmployeeNotFound
		}
		return AttendanceResponse{}, err
	}

	// An unclosed session blocks any new check-in, regardless of date.
	open, err := qtx.FindOpenByEmployee(ctx, employeeID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return AttendanceResponse{}, err
	}
	if err == nil && open != nil {
		s.logger.Warn("check-in blocked by open session",
			zap.String("employee_id", employeeID),
			zap.String("open_date", open.WorkDate.Format("2006-01-02")),
		)
		return AttendanceResponse{}, attendanceerrors.ErrOpenSession
	}

	date := dateOf(at)
	existing, err := qtx.FindByEmployeeAndDate(ctx, employeeID, date)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return AttendanceResponse{}, err
	}
	if err == nil && existing != nil {
		return AttendanceResponse{}, attendanceerrors.ErrAlreadyCheckedIn
	}

	row := &Attendance{
		ID:         uuid.New(),
		EmployeeID: uuid.MustParse(employeeID),
		WorkDate:   date,
		CheckIn:    at,
		Status:     StatusPresent,
		LateEntry:  isLateEntry(at),
	}

	if err := qtx.Create(ctx, row); err != nil {
		// The unique index on (employee_id, work_date) closes the race
		// between two concurrent check-ins.
		if isUniqueViolation(err) {
			return AttendanceResponse{}, attendanceerrors.ErrAlreadyCheckedIn
		}
		s.logger.Error("check-in persist failed", zap.Error(err))
		return AttendanceResponse{}, err
	}
	if err := tx.Commit(); err != nil {
		s.logger.Error("check-in commit failed", zap.Error(err))
		return AttendanceResponse{}, err
	}

	s.logger.Info("check-in success",
		zap.String("attendance_id", row.ID.String()),
		zap.String("employee_id", employeeID),
		zap.Bool("late_entry", row.LateEntry),
	)
	return mapToResponse(*row), nil
}

func (s *service) CheckOut(ctx context.Context, employeeID string, req CheckOutRequest) (AttendanceResponse, error) {
	s.logger.Debug("check-out requested",
		zap.String("employee_id", employeeID),
		zap.String("date", req.Date),
	)

	if _, err := uuid.Parse(employeeID); err != nil {
		return AttendanceResponse{}, attendanceerrors.ErrInvalidEmployeeID
	}

	at, err := parseTimestamp(req.At)
	if err != nil {
		return AttendanceResponse{}, err
	}

	date := dateOf(at)
	if req.Date != "" {
		date, err = parseDate(req.Date)
		if err != nil {
			return AttendanceResponse{}, err
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("check-out begin tx failed", zap.Error(err))
		return AttendanceResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	row, err := qtx.FindByEmployeeAndDate(ctx, employeeID, date)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return AttendanceResponse{}, attendanceerrors.ErrNoOpenSession
		}
		return AttendanceResponse{}, err
	}
	if !row.Open() {
		return AttendanceResponse{}, attendanceerrors.ErrAlreadyCheckedOut
	}
	if !at.After(row.CheckIn) {
		return AttendanceResponse{}, attendanceerrors.ErrCheckOutBeforeCheckIn
	}

	row.CheckOut = &at
	row.EarlyExit = isEarlyExit(at)

	if err := qtx.Update(ctx, row); err != nil {
		s.logger.Error("check-out persist failed", zap.Error(err))
		return AttendanceResponse{}, err
	}
	if err := tx.Commit(); err != nil {
		s.logger.Error("check-out commit failed", zap.Error(err))
		return AttendanceResponse{}, err
	}

	s.logger.Info("check-out success",
		zap.String("attendance_id", row.ID.String()),
		zap.String("employee_id", employeeID),
		zap.Bool("early_exit", row.EarlyExit),
	)
	return mapToResponse(*row), nil
}

func (s *service) ListRecords(ctx context.Context, employeeID, startDate, endDate string) ([]AttendanceResponse, error) {
	if _, err := uuid.Parse(employeeID); err != nil {
		return nil, attendanceerrors.ErrInvalidEmployeeID
	}

	start, err := parseDate(startDate)
	if err != nil {
		return nil, err
	}
	end, err := parseDate(endDate)
	if err != nil {
		return nil, err
	}

	rows, err := s.repo.FindByEmployeeAndRange(ctx, employeeID, start, end)
	if err != nil {
		return nil, err
	}
	return mapToListResponse(rows), nil
}

func (s *service) ListAllByDate(ctx context.Context, date string) ([]AttendanceResponse, error) {
	d, err := parseDate(date)
	if err != nil {
		return nil, err
	}

	rows, err := s.repo.FindAllByDate(ctx, d)
	if err != nil {
		return nil, err
	}
	return mapToListResponse(rows), nil
}

func (s *service) Summary(ctx context.Context, date string) (SummaryResponse, error) {
	d, err := parseDate(date)
	if err != nil {
		return SummaryResponse{}, err
	}

	todays, err := s.repo.FindAllByDate(ctx, d)
	if err != nil {
		return SummaryResponse{}, err
	}

	headcount, err := s.employees.CountAll(ctx)
	if err != nil {
		return SummaryResponse{}, err
	}

	daySummary := Summarize(todays)

	absenteePct := 0.0
	if headcount > 0 {
		absenteePct = float64(headcount-int64(daySummary.PresentDays)) / float64(headcount) * 100
	}

	monthStart := time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
	monthRows, err := s.repo.FindAllByRange(ctx, monthStart, d)
	if err != nil {
		return SummaryResponse{}, err
	}

	hoursByDate := make(map[string]float64)
	for _, r := range monthRows {
		hoursByDate[r.WorkDate.Format("2006-01-02")] += workingHours(r)
	}

	monthly := make([]DailyHours, 0, d.Day())
	for day := 1; day <= d.Day(); day++ {
		cur := time.Date(d.Year(), d.Month(), day, 0, 0, 0, 0, time.UTC).Format("2006-01-02")
		monthly = append(monthly, DailyHours{Date: cur, Hours: hoursByDate[cur]})
	}

	return SummaryResponse{
		Date:                d.Format("2006-01-02"),
		TotalPresent:        daySummary.PresentDays,
		AbsenteePercentage:  absenteePct,
		LateArrivals:        daySummary.LateCount,
		EarlyExits:          daySummary.EarlyExitCount,
		MonthlyWorkingHours: monthly,
	}, nil
}

// parseTimestamp keeps the submitted offset, so the late and early flags
// compare the employee's wall clock rather than its UTC conversion.
func parseTimestamp(v string) (time.Time, error) {
	if v == "" {
		return time.Now().UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, attendanceerrors.ErrInvalidTimestamp
	}
	return t, nil
}

func parseDate(v string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}, attendanceerrors.ErrInvalidDateFormat
	}
	return t, nil
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func mapToResponse(a Attendance) AttendanceResponse {
	resp := AttendanceResponse{
		ID:           a.ID.String(),
		EmployeeID:   a.EmployeeID.String(),
		Date:         a.WorkDate.Format("2006-01-02"),
		CheckIn:      a.CheckIn.Format(time.RFC3339),
		Status:       a.Status,
		LateEntry:    a.LateEntry,
		EarlyExit:    a.EarlyExit,
		WorkingHours: workingHours(a),
	}
	if a.CheckOut != nil {
		v := a.CheckOut.Format(time.RFC3339)
		resp.CheckOut = &v
	}
	if a.Employee != nil {
		resp.EmployeeName = a.Employee.FirstName + " " + a.Employee.LastName
	}
	return resp
}

func mapToListResponse(rows []Attendance) []AttendanceResponse {
	resp := make([]AttendanceResponse, len(rows))
	for i, r := range rows {
		resp[i] = mapToResponse(r)
	}
	return resp
}
