package repository

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ticketops/ticket-notifier/internal/domain"
)

// DepartmentRepository exposes department display names, notification pools
// and branding.
type DepartmentRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Department, error)
	ListActive(ctx context.Context) ([]domain.Department, error)
}

type departmentRepository struct {
	pool *pgxpool.Pool
}

// NewDepartmentRepository returns a Postgres-backed implementation.
func NewDepartmentRepository(pool *pgxpool.Pool) DepartmentRepository {
	return &departmentRepository{pool: pool}
}

func (r *departmentRepository) GetByID(ctx context.Context, id string) (*domain.Department, error) {
	const query = `
        SELECT id, name, notification_pool, branding_color, branding_logo_url, is_active
        FROM departments WHERE id=$1`

	var (
		dept    domain.Department
		poolRaw []byte
	)
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&dept.ID,
		&dept.Name,
		&poolRaw,
		&dept.BrandingColor,
		&dept.BrandingLogoURL,
		&dept.IsActive,
	); err != nil {
		return nil, err
	}
	if len(poolRaw) > 0 {
		_ = json.Unmarshal(poolRaw, &dept.NotificationPool)
	}
	return &dept, nil
}

func (r *departmentRepository) ListActive(ctx context.Context) ([]domain.Department, error) {
	const query = `
        SELECT id, name, notification_pool, branding_color, branding_logo_url, is_active
        FROM departments WHERE is_active`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Department
	for rows.Next() {
		var (
			dept    domain.Department
			poolRaw []byte
		)
		if err := rows.Scan(
			&dept.ID,
			&dept.Name,
			&poolRaw,
			&dept.BrandingColor,
			&dept.BrandingLogoURL,
			&dept.IsActive,
		); err != nil {
			return nil, err
		}
		if len(poolRaw) > 0 {
			_ = json.Unmarshal(poolRaw, &dept.NotificationPool)
		}
		result = append(result, dept)
	}
	return result, rows.Err()
}
