package attendance

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	StatusPresent = "PRESENT"
	StatusAbsent  = "ABSENT"
)

// Workday bounds used to derive the late-entry and early-exit flags.
// Global constants, not per-employee shift configuration.
const (
	workdayStartHour   = 9
	workdayStartMinute = 0
	workdayEndHour     = 17
	workdayEndMinute   = 30
)

type Attendance struct {
	ID         uuid.UUID      `gorm:"column:id;type:uuid;primaryKey;default:gen_random_uuid()"`
	EmployeeID uuid.UUID      `gorm:"column:employee_id;type:uuid;not null;uniqueIndex:idx_attendances_employee_date"`
	WorkDate   time.Time      `gorm:"column:work_date;type:date;not null;uniqueIndex:idx_attendances_employee_date"`
	CheckIn    time.Time      `gorm:"column:check_in;type:timestamptz;not null"`
	CheckOut   *time.Time     `gorm:"column:check_out;type:timestamptz"`
	Status     string         `gorm:"column:status;type:varchar(20);not null;default:PRESENT"`
	LateEntry  bool           `gorm:"column:late_entry;not null;default:false"`
	EarlyExit  bool           `gorm:"column:early_exit;not null;default:false"`
	CreatedAt  time.Time      `gorm:"column:created_at"`
	UpdatedAt  time.Time      `gorm:"column:updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"column:deleted_at;index"`
	Employee   *EmployeeRef   `gorm:"foreignKey:EmployeeID;references:ID"`
}

func (Attendance) TableName() string {
	return "attendances"
}

type EmployeeRef struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	FirstName string    `gorm:"column:first_name"`
	LastName  string    `gorm:"column:last_name"`
}

func (EmployeeRef) TableName() string {
	return "employees"
}

// Open reports whether this record is the employee's open session.
func (a Attendance) Open() bool {
	return a.CheckOut == nil
}

// isLateEntry is true when the clock time of t falls after workday start.
func isLateEntry(t time.Time) bool {
	h, m, _ := t.Clock()
	return h > workdayStartHour || (h == workdayStartHour && m > workdayStartMinute)
}

// isEarlyExit is true when the clock time of t falls before workday end.
func isEarlyExit(t time.Time) bool {
	h, m, _ := t.Clock()
	return h < workdayEndHour || (h == workdayEndHour && m < workdayEndMinute)
}
