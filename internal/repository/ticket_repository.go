package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ticketops/ticket-notifier/internal/domain"
)

// TicketRepository encapsulates ticket store access. The warning marker is
// the only field this pipeline ever writes.
type TicketRepository interface {
	List(ctx context.Context) ([]domain.Ticket, error)
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	// MarkWarningSent sets the warning marker only when it is still absent,
	// reporting whether this call won the write.
	MarkWarningSent(ctx context.Context, id string, at time.Time) (bool, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, department_id, type, subcategory, priority, status,
               owner_email, assignees, created_at, ticket_date, closed_at, sla_warning_sent_at`

func (r *ticketRepository) List(ctx context.Context) ([]domain.Ticket, error) {
	const query = `SELECT ` + ticketColumns + ` FROM tickets`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	const query = `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	rows, err := r.pool.Query(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, pgx.ErrNoRows
	}
	return scanTicket(rows)
}

func (r *ticketRepository) MarkWarningSent(ctx context.Context, id string, at time.Time) (bool, error) {
	const query = `
        UPDATE tickets SET sla_warning_sent_at=$1
        WHERE id=$2 AND sla_warning_sent_at IS NULL`
	cmd, err := r.pool.Exec(ctx, query, at, id)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func scanTicket(rows pgx.Rows) (*domain.Ticket, error) {
	var (
		ticket       domain.Ticket
		priority     string
		status       string
		assigneesRaw []byte
	)
	if err := rows.Scan(
		&ticket.ID,
		&ticket.DepartmentID,
		&ticket.Type,
		&ticket.Subcategory,
		&priority,
		&status,
		&ticket.OwnerEmail,
		&assigneesRaw,
		&ticket.CreatedAt,
		&ticket.TicketDate,
		&ticket.ClosedAt,
		&ticket.WarningSentAt,
	); err != nil {
		return nil, err
	}
	ticket.Priority = domain.NormalizePriority(priority)
	ticket.Status = domain.TicketStatus(status)
	if len(assigneesRaw) > 0 {
		// tolerate malformed assignee payloads; the list just comes up empty
		_ = json.Unmarshal(assigneesRaw, &ticket.Assignees)
	}
	return &ticket, nil
}
