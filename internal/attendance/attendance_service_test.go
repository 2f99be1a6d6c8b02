package attendance_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"go-hrms/internal/attendance"
	"go-hrms/internal/employee"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

type fakeAttendanceRepository struct {
	withTxFn                 func(tx *sql.Tx) attendance.Repository
	createFn                 func(ctx context.Context, a *attendance.Attendance) error
	findOpenByEmployeeFn     func(ctx context.Context, employeeID string) (*attendance.Attendance, error)
	findByEmployeeAndDateFn  func(ctx context.Context, employeeID string, date time.Time) (*attendance.Attendance, error)
	findByEmployeeAndRangeFn func(ctx context.Context, employeeID string, start, end time.Time) ([]attendance.Attendance, error)
	findAllByDateFn          func(ctx context.Context, date time.Time) ([]attendance.Attendance, error)
	findAllByRangeFn         func(ctx context.Context, start, end time.Time) ([]attendance.Attendance, error)
	updateFn                 func(ctx context.Context, a *attendance.Attendance) error
}

func (f *fakeAttendanceRepository) WithTx(tx *sql.Tx) attendance.Repository {
	if f.withTxFn != nil {
		return f.withTxFn(tx)
	}
	return f
}

func (f *fakeAttendanceRepository) Create(ctx context.Context, a *attendance.Attendance) error {
	if f.createFn != nil {
		return f.createFn(ctx, a)
	}
	return nil
}

func (f *fakeAttendanceRepository) FindOpenByEmployee(ctx context.Context, employeeID string) (*attendance.Attendance, error) {
	if f.findOpenByEmployeeFn != nil {
		return f.findOpenByEmployeeFn(ctx, employeeID)
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeAttendanceRepository) FindByEmployeeAndDate(ctx context.Context, employeeID string, date time.Time) (*attendance.Attendance, error) {
	if f.findByEmployeeAndDateFn != nil {
		return f.findByEmployeeAndDateFn(ctx, employeeID, date)
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeAttendanceRepository) FindByEmployeeAndRange(ctx context.Context, employeeID string, start, end time.Time) ([]attendance.Attendance, error) {
	if f.findByEmployeeAndRangeFn != nil {
		return f.findByEmployeeAndRangeFn(ctx, employeeID, start, end)
	}
	return nil, nil
}

func (f *fakeAttendanceRepository) FindAllByDate(ctx context.Context, date time.Time) ([]attendance.Attendance, error) {
	if f.findAllByDateFn != nil {
		return f.findAllByDateFn(ctx, date)
	}
	return nil, nil
}

func (f *fakeAttendanceRepository) FindAllByRange(ctx context.Context, start, end time.Time) ([]attendance.Attendance, error) {
	if f.findAllByRangeFn != nil {
		return f.findAllByRangeFn(ctx, start, end)
	}
	return nil, nil
}

func (f *fakeAttendanceRepository) Update(ctx context.Context, a *attendance.Attendance) error {
	if f.updateFn != nil {
		return f.updateFn(ctx, a)
	}
	return nil
}

type fakeEmployeeRepository struct {
	findByIDFn      func(ctx context.Context, id string) (*employee.Employee, error)
	findAllByRoleFn func(ctx context.Context, role string) ([]employee.Employee, error)
	countAllFn      func(ctx context.Context) (int64, error)
}

func (f *fakeEmployeeRepository) FindByID(ctx context.Context, id string) (*employee.Employee, error) {
	if f.findByIDFn != nil {
		return f.findByIDFn(ctx, id)
	}
	return &employee.Employee{ID: uuid.New()}, nil
}

func (f *fakeEmployeeRepository) FindAllByRole(ctx context.Context, role string) ([]employee.Employee, error) {
	if f.findAllByRoleFn != nil {
		return f.findAllByRoleFn(ctx, role)
	}
	return nil, nil
}

func (f *fakeEmployeeRepository) CountAll(ctx context.Context) (int64, error) {
	if f.countAllFn != nil {
		return f.countAllFn(ctx)
	}
	return 0, nil
}

type attendanceServiceDeps struct {
	db        *sql.DB
	sqlMock   sqlmock.Sqlmock
	service   attendance.Service
	repo      *fakeAttendanceRepository
	employees *fakeEmployeeRepository
}

func setupAttendanceServiceTest(t *testing.T) *attendanceServiceDeps {
	t.Helper()

	db, sqlMock, err := sqlmock.New()
	assert.NoError(t, err)

	repo := &fakeAttendanceRepository{}
	employees := &fakeEmployeeRepository{}
	svc := attendance.NewService(db, repo, employees)

	return &attendanceServiceDeps{
		db:        db,
		sqlMock:   sqlMock,
		service:   svc,
		repo:      repo,
		employees: employees,
	}
}

func expectTx(t *testing.T, mock sqlmock.Sqlmock, commit bool) {
	t.Helper()
	mock.ExpectBegin()
	if commit {
		mock.ExpectCommit()
	} else {
		mock.ExpectRollback()
	}
}

func TestAttendanceService_CheckIn(t *testing.T) {
	ctx := context.Background()
	employeeID := uuid.New().String()

	t.Run("success flags late entry after nine", func(t *testing.T) {
		deps := setupAttendanceServiceTest(t)
		defer deps.db.Close()

		expectTx(t, deps.sqlMock, true)
		deps.repo.createFn = func(ctx context.Context, a *attendance.Attendance) error {
			assert.Equal(t, attendance.StatusPresent, a.Status)
			assert.True(t, a.LateEntry)
			assert.Equal(t, "2026-03-02", a.WorkDate.Format("2006-01-02"))
			return nil
		}

		resp, err := deps.service.CheckIn(ctx, employeeID, attendance.CheckInRequest{
			At: "2026-03-02T09:15:00Z",
		})

		assert.NoError(t, err)
		assert.True(t, resp.LateEntry)
		assert.Equal(t, "2026-03-02", resp.Date)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("success on time before nine", func(t *testing.T) {
		deps := setupAttendanceServiceTest(t)
		defer deps.db.Close()

		expectTx(t, deps.sqlMock, true)

		resp, err := deps.service.CheckIn(ctx, employeeID, attendance.CheckInRequest{
			At: "2026-03-02T08:59:00Z",
		})

		assert.NoError(t, err)
		assert.False(t, resp.LateEntry)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("success exactly at nine is not late", func(t *testing.T) {
		deps := setupAttendanceServiceTest(t)
		defer deps.db.Close()

		expectTx(t, deps.sqlMock, true)

		resp, err := deps.service.CheckIn(ctx, employeeID, attendance.CheckInRequest{
			At: "2026-03-02T09:00:00Z",
		})

		assert.NoError(t, err)
		assert.False(t, resp.LateEntry)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("success offset timestamp keeps local clock", func(t *testing.T) {
		deps := setupAttendanceServiceTest(t)
		defer deps.db.Close()

		expectTx(t, deps.sqlMock, true)
		deps.repo.createFn = func(ctx context.Context, a *attendance.Attendance) error {
			assert.True(t, a.LateEntry)
			assert.Equal(t, "2026-03-02", a.WorkDate.Format("2006-01-02"))
			return nil
		}

		// 09:10 at UTC+05:30 is 03:40 UTC; the submitted wall clock decides.
		resp, err := deps.service.CheckIn(ctx, employeeID, attendance.CheckInRequest{
			At: "2026-03-02T09:10:00+05:30",
		})

		assert.NoError(t, err)
		assert.True(t, resp.LateEntry)
		assert.Equal(t, "2026-03-02", resp.Date)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("negative open session on another date blocks check-in", func(t *testing.T) {
		deps := setupAttendanceServiceTest(t)
		defer deps.db.Close()

		expectTx(t, deps.sqlMock, false)
		deps.repo.findOpenByEmployeeFn = func(ctx context.Context, eid string) (*attendance.Attendance, error) {
			return &attendance.Attendance{
				ID:         uuid.New(),
				EmployeeID: uuid.MustParse(employeeID),
				WorkDate:   time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
				CheckIn:    time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
			}, nil
		}

		_, err := deps.service.CheckIn(ctx, employeeID, attendance.CheckInRequest{
			At: "2026-03-02T09:00:00Z",
		})

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "open session")
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("negative duplicate check-in same date", func(t *testing.T) {
		deps := setupAttendanceServiceTest(t)
		defer deps.db.Close()

		expectTx(t, deps.sqlMock, false)
		closed := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
		deps.repo.findByEmployeeAndDateFn = func(ctx context.Context, eid string, date time.Time) (*attendance.Attendance, error) {
			return &attendance.Attendance{
				ID:       uuid.New(),
				WorkDate: date,
				CheckIn:  time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC),
				CheckOut: &closed,
			}, nil
		}

		_, err := deps.service.CheckIn(ctx, employeeID, attendance.CheckInRequest{
			At: "2026-03-02T14:00:00Z",
		})

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "already checked in")
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("negative unknown employee", func(t *testing.T) {
		deps := setupAttendanceServiceTest(t)
		defer deps.db.Close()

		expectTx(t, deps.sqlMock, false)
		deps.employees.findByIDFn = func(ctx context.Context, id string) (*employee.Employee, error) {
			return nil, gorm.ErrRecordNotFound
		}

		_, err := deps.service.CheckIn(ctx, employeeID, attendance.CheckInRequest{})

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "employee not found")
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("negative invalid employee id", func(t *testing.T) {
		deps := setupAttendanceServiceTest(t)
		defer deps.db.Close()

		_, err := deps.service.CheckIn(ctx, "not-a-uuid", attendance.CheckInRequest{})

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "invalid employee id")
	})
}

func TestAttendanceService_CheckOut(t *testing.T) {
	ctx := context.Background()
	employeeID := uuid.New().String()

	openRecord := func(checkIn time.Time) *attendance.Attendance {
		return &attendance.Attendance{
			ID:         uuid.New(),
			EmployeeID: uuid.MustParse(employeeID),
			WorkDate:   time.Date(checkIn.Year(), checkIn.Month(), checkIn.Day(), 0, 0, 0, 0, time.UTC),
			CheckIn:    checkIn,
			Status:     attendance.StatusPresent,
		}
	}

	t.Run("success flags early exit before half past five", func(t *testing.T) {
		deps := setupAttendanceServiceTest(t)
		defer deps.db.Close()

		expectTx(t, deps.sqlMock, true)
		deps.repo.findByEmployeeAndDateFn = func(ctx context.Context, eid string, date time.Time) (*attendance.Attendance, error) {
			return openRecord(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)), nil
		}
		deps.repo.updateFn = func(ctx context.Context, a *attendance.Attendance) error {
			assert.NotNil(t, a.CheckOut)
			assert.True(t, a.EarlyExit)
			return nil
		}

		resp, err := deps.service.CheckOut(ctx, employeeID, attendance.CheckOutRequest{
			At: "2026-03-02T17:00:00Z",
		})

		assert.NoError(t, err)
		assert.True(t, resp.EarlyExit)
		assert.InDelta(t, 8.0, resp.WorkingHours, 0.0001)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("success full day is 8.5 hours and not early", func(t *testing.T) {
		deps := setupAttendanceServiceTest(t)
		defer deps.db.Close()

		expectTx(t, deps.sqlMock, true)
		deps.repo.findByEmployeeAndDateFn = func(ctx context.Context, eid string, date time.Time) (*attendance.Attendance, error) {
			return openRecord(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)), nil
		}

		resp, err := deps.service.CheckOut(ctx, employeeID, attendance.CheckOutRequest{
			At: "2026-03-02T17:30:00Z",
		})

		assert.NoError(t, err)
		assert.False(t, resp.EarlyExit)
		assert.InDelta(t, 8.5, resp.WorkingHours, 0.0001)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("success offset timestamp keeps local clock", func(t *testing.T) {
		deps := setupAttendanceServiceTest(t)
		defer deps.db.Close()

		expectTx(t, deps.sqlMock, true)
		deps.repo.findByEmployeeAndDateFn = func(ctx context.Context, eid string, date time.Time) (*attendance.Attendance, error) {
			return openRecord(time.Date(2026, 3, 2, 9, 0, 0, 0, time.FixedZone("", 5*3600+1800))), nil
		}

		// 17:45 at UTC+05:30 is 12:15 UTC; the submitted wall clock decides.
		resp, err := deps.service.CheckOut(ctx, employeeID, attendance.CheckOutRequest{
			At: "2026-03-02T17:45:00+05:30",
		})

		assert.NoError(t, err)
		assert.False(t, resp.EarlyExit)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("negative no record for date", func(t *testing.T) {
		deps := setupAttendanceServiceTest(t)
		defer deps.db.Close()

		expectTx(t, deps.sqlMock, false)

		_, err := deps.service.CheckOut(ctx, employeeID, attendance.CheckOutRequest{
			At: "2026-03-02T17:00:00Z",
		})

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "no open session")
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("negative already checked out", func(t *testing.T) {
		deps := setupAttendanceServiceTest(t)
		defer deps.db.Close()

		expectTx(t, deps.sqlMock, false)
		out := time.Date(2026, 3, 2, 17, 0, 0, 0, time.UTC)
		deps.repo.findByEmployeeAndDateFn = func(ctx context.Context, eid string, date time.Time) (*attendance.Attendance, error) {
			rec := openRecord(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
			rec.CheckOut = &out
			return rec, nil
		}

		_, err := deps.service.CheckOut(ctx, employeeID, attendance.CheckOutRequest{
			At: "2026-03-02T18:00:00Z",
		})

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "already checked out")
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("negative check-out before check-in", func(t *testing.T) {
		deps := setupAttendanceServiceTest(t)
		defer deps.db.Close()

		expectTx(t, deps.sqlMock, false)
		deps.repo.findByEmployeeAndDateFn = func(ctx context.Context, eid string, date time.Time) (*attendance.Attendance, error) {
			return openRecord(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)), nil
		}

		_, err := deps.service.CheckOut(ctx, employeeID, attendance.CheckOutRequest{
			At: "2026-03-02T08:00:00Z",
		})

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "check_out must be later than check_in")
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})
}

func TestAttendanceService_Summary(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		deps := setupAttendanceServiceTest(t)
		defer deps.db.Close()

		day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
		out := time.Date(2026, 3, 2, 17, 30, 0, 0, time.UTC)
		deps.repo.findAllByDateFn = func(ctx context.Context, date time.Time) ([]attendance.Attendance, error) {
			assert.True(t, day.Equal(date))
			return []attendance.Attendance{
				{
					WorkDate:  day,
					CheckIn:   time.Date(2026, 3, 2, 9, 15, 0, 0, time.UTC),
					CheckOut:  &out,
					Status:    attendance.StatusPresent,
					LateEntry: true,
				},
				{
					WorkDate: day,
					CheckIn:  time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
					Status:   attendance.StatusPresent,
				},
			}, nil
		}
		deps.employees.countAllFn = func(ctx context.Context) (int64, error) {
			return 4, nil
		}
		deps.repo.findAllByRangeFn = func(ctx context.Context, start, end time.Time) ([]attendance.Attendance, error) {
			assert.Equal(t, "2026-03-01", start.Format("2006-01-02"))
			return nil, nil
		}

		resp, err := deps.service.Summary(ctx, "2026-03-02")

		assert.NoError(t, err)
		assert.Equal(t, 2, resp.TotalPresent)
		assert.InDelta(t, 50.0, resp.AbsenteePercentage, 0.0001)
		assert.Equal(t, 1, resp.LateArrivals)
		assert.Len(t, resp.MonthlyWorkingHours, 2)
	})

	t.Run("negative invalid date", func(t *testing.T) {
		deps := setupAttendanceServiceTest(t)
		defer deps.db.Close()

		_, err := deps.service.Summary(ctx, "02-03-2026")

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "invalid date format")
	})
}

func TestAttendanceService_ListRecords(t *testing.T) {
	ctx := context.Background()
	employeeID := uuid.New().String()

	t.Run("success", func(t *testing.T) {
		deps := setupAttendanceServiceTest(t)
		defer deps.db.Close()

		deps.repo.findByEmployeeAndRangeFn = func(ctx context.Context, eid string, start, end time.Time) ([]attendance.Attendance, error) {
			assert.Equal(t, employeeID, eid)
			return []attendance.Attendance{
				{
					ID:         uuid.New(),
					EmployeeID: uuid.MustParse(employeeID),
					WorkDate:   time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
					CheckIn:    time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
					Status:     attendance.StatusPresent,
				},
			}, nil
		}

		resp, err := deps.service.ListRecords(ctx, employeeID, "2026-03-01", "2026-03-31")

		assert.NoError(t, err)
		assert.Len(t, resp, 1)
		assert.Equal(t, employeeID, resp[0].EmployeeID)
	})

	t.Run("negative bad range dates", func(t *testing.T) {
		deps := setupAttendanceServiceTest(t)
		defer deps.db.Close()

		_, err := deps.service.ListRecords(ctx, employeeID, "March 1", "2026-03-31")

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "invalid date format")
	})
}
