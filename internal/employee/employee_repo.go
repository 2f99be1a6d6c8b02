package employee

import (
	"context"

	"gorm.io/gorm"
)

// Employees are a read-only input to the workflow engine; their CRUD lives
// elsewhere. This repo only resolves identities and the HR recipient set.
//
//go:generate mockgen -source=employee_repo.go -destination=mock/employee_repo_mock.go -package=mock
type Repository interface {
	FindByID(ctx context.Context, id string) (*Employee, error)
	FindAllByRole(ctx context.Context, role string) ([]Employee, error)
	CountAll(ctx context.Context) (int64, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) FindByID(ctx context.Context, id string) (*Employee, error) {
	var e Employee
	err := r.db.WithContext(ctx).
		First(&e, "id = ?", id).Error
	return &e, err
}

func (r *repository) FindAllByRole(ctx context.Context, role string) ([]Employee, error) {
	var rows []Employee
	err := r.db.WithContext(ctx).
		Where("UPPER(role) = UPPER(?)", role).
		Find(&rows).Error
	return rows, err
}

func (r *repository) CountAll(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&Employee{}).
		Count(&count).Error
	return count, err
}
