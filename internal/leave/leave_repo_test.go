package leave_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"go-hrms/internal/leave"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Two independent connections: one backing the gorm handle the repository is
// built on, one carrying the caller's transaction. A statement that shows up
// on the first would escape the transaction.
type leaveRepoDeps struct {
	gormDB   *gorm.DB
	baseMock sqlmock.Sqlmock
	txConn   *sql.DB
	txMock   sqlmock.Sqlmock
}

func setupLeaveRepoTest(t *testing.T) *leaveRepoDeps {
	t.Helper()

	baseConn, baseMock, err := sqlmock.New()
	assert.NoError(t, err)
	t.Cleanup(func() { baseConn.Close() })

	txConn, txMock, err := sqlmock.New()
	assert.NoError(t, err)
	t.Cleanup(func() { txConn.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: baseConn}), &gorm.Config{})
	assert.NoError(t, err)

	return &leaveRepoDeps{gormDB: gormDB, baseMock: baseMock, txConn: txConn, txMock: txMock}
}

func TestLeaveRepository_WithTxUsesTransactionConn(t *testing.T) {
	deps := setupLeaveRepoTest(t)
	repo := leave.NewRepository(deps.gormDB)

	deps.txMock.ExpectBegin()
	deps.txMock.ExpectQuery(`SELECT count\(\*\) FROM "leave_requests"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	deps.txMock.ExpectRollback()

	tx, err := deps.txConn.Begin()
	assert.NoError(t, err)

	overlap, err := repo.WithTx(tx).HasOverlappingPeriod(
		context.Background(),
		uuid.NewString(),
		time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC),
	)

	assert.NoError(t, err)
	assert.True(t, overlap)
	assert.NoError(t, tx.Rollback())
	assert.NoError(t, deps.txMock.ExpectationsWereMet())
	assert.NoError(t, deps.baseMock.ExpectationsWereMet())
}

func TestLeaveRepository_UpdateDecision(t *testing.T) {
	decidedBy := uuid.New()
	decidedAt := time.Date(2026, 4, 9, 10, 0, 0, 0, time.UTC)

	decided := func() *leave.LeaveRequest {
		return &leave.LeaveRequest{
			ID:         uuid.New(),
			EmployeeID: uuid.New(),
			LeaveType:  leave.TypeAnnual,
			Status:     leave.StatusApproved,
			DecidedBy:  &decidedBy,
			DecidedAt:  &decidedAt,
		}
	}

	t.Run("success updates the pending row in the transaction", func(t *testing.T) {
		deps := setupLeaveRepoTest(t)
		repo := leave.NewRepository(deps.gormDB)

		deps.txMock.ExpectBegin()
		deps.txMock.ExpectExec(`UPDATE "leave_requests" SET`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		deps.txMock.ExpectCommit()

		tx, err := deps.txConn.Begin()
		assert.NoError(t, err)

		ok, err := repo.WithTx(tx).UpdateDecision(context.Background(), decided())

		assert.NoError(t, err)
		assert.True(t, ok)
		assert.NoError(t, tx.Commit())
		assert.NoError(t, deps.txMock.ExpectationsWereMet())
		assert.NoError(t, deps.baseMock.ExpectationsWereMet())
	})

	t.Run("negative already decided row matches nothing", func(t *testing.T) {
		deps := setupLeaveRepoTest(t)
		repo := leave.NewRepository(deps.gormDB)

		deps.txMock.ExpectBegin()
		deps.txMock.ExpectExec(`UPDATE "leave_requests" SET`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		deps.txMock.ExpectRollback()

		tx, err := deps.txConn.Begin()
		assert.NoError(t, err)

		ok, err := repo.WithTx(tx).UpdateDecision(context.Background(), decided())

		assert.NoError(t, err)
		assert.False(t, ok)
		assert.NoError(t, tx.Rollback())
		assert.NoError(t, deps.txMock.ExpectationsWereMet())
	})
}
