package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ticketops/ticket-notifier/internal/domain"
)

// SLAConfigRepository loads the SLA hour-budget cascade. Each sweep reads a
// fresh copy; the loaded config is immutable within a run.
type SLAConfigRepository interface {
	Load(ctx context.Context) (*domain.SLAConfig, error)
}

type slaConfigRepository struct {
	pool *pgxpool.Pool
}

// NewSLAConfigRepository returns a Postgres-backed implementation.
func NewSLAConfigRepository(pool *pgxpool.Pool) SLAConfigRepository {
	return &slaConfigRepository{pool: pool}
}

func (r *slaConfigRepository) Load(ctx context.Context) (*domain.SLAConfig, error) {
	cfg := &domain.SLAConfig{
		CategoryHours: make(map[domain.CategoryKey]float64),
		PriorityHours: make(map[domain.PriorityKey]float64),
	}

	const categoryQuery = `SELECT department_id, type, subcategory, hours FROM sla_category_hours`
	rows, err := r.pool.Query(ctx, categoryQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			key   domain.CategoryKey
			hours float64
		)
		if err := rows.Scan(&key.Department, &key.Type, &key.Subcategory, &hours); err != nil {
			return nil, err
		}
		cfg.CategoryHours[key] = hours
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	const priorityQuery = `SELECT department_id, priority, hours FROM sla_priority_hours`
	rows, err = r.pool.Query(ctx, priorityQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			department string
			priority   string
			hours      float64
		)
		if err := rows.Scan(&department, &priority, &hours); err != nil {
			return nil, err
		}
		cfg.PriorityHours[domain.PriorityKey{
			Department: department,
			Priority:   domain.TicketPriority(priority),
		}] = hours
	}
	return cfg, rows.Err()
}
