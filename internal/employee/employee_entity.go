package employee

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Employee struct {
	ID        uuid.UUID      `gorm:"column:id;type:uuid;primaryKey;default:gen_random_uuid()"`
	FirstName string         `gorm:"column:first_name;type:varchar(100);not null"`
	LastName  string         `gorm:"column:last_name;type:varchar(100);not null"`
	Email     string         `gorm:"column:email;type:varchar(255);not null;uniqueIndex"`
	Role      string         `gorm:"column:role;type:varchar(20);not null;default:'EMPLOYEE';index"`
	CreatedAt time.Time      `gorm:"column:created_at"`
	UpdatedAt time.Time      `gorm:"column:updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index"`
}

func (Employee) TableName() string {
	return "employees"
}

func (e Employee) FullName() string {
	return e.FirstName + " " + e.LastName
}
