package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"kitstock-api/internal/model"

	"github.com/jmoiron/sqlx"
)

const returnColumns = `id, order_id, customer_name, customer_email, customer_phone,
	ticket_type, reason, status, created_at, updated_at`

// SQLReturnRepository implements ReturnRepository on a SQL backend.
type SQLReturnRepository struct {
	db *sqlx.DB
}

// NewSQLReturnRepository creates a new SQL return ticket repository.
func NewSQLReturnRepository(db *sqlx.DB) *SQLReturnRepository {
	return &SQLReturnRepository{db: db}
}

// Create stores a new ticket.
func (r *SQLReturnRepository) Create(ctx context.Context, ticket *model.ReturnTicket) error {
	_, err := r.db.NamedExecContext(ctx, `INSERT INTO return_tickets (`+returnColumns+`) VALUES
		(:id, :order_id, :customer_name, :customer_email, :customer_phone,
		 :ticket_type, :reason, :status, :created_at, :updated_at)`, ticket)
	if err != nil {
		return fmt.Errorf("failed to create return ticket: %w", err)
	}
	return nil
}

// List returns every ticket, oldest first.
func (r *SQLReturnRepository) List(ctx context.Context) ([]model.ReturnTicket, error) {
	tickets := []model.ReturnTicket{}
	if err := r.db.SelectContext(ctx, &tickets, `SELECT `+returnColumns+` FROM return_tickets ORDER BY id`); err != nil {
		return nil, fmt.Errorf("failed to list return tickets: %w", err)
	}
	return tickets, nil
}

// GetByID returns a ticket by id.
func (r *SQLReturnRepository) GetByID(ctx context.Context, id string) (*model.ReturnTicket, error) {
	var ticket model.ReturnTicket
	err := r.db.GetContext(ctx, &ticket, r.db.Rebind(`SELECT `+returnColumns+` FROM return_tickets WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get return ticket: %w", err)
	}
	return &ticket, nil
}

// UpdateStatus moves the ticket from one status to another.
func (r *SQLReturnRepository) UpdateStatus(ctx context.Context, id string, from, to model.ReturnStatus) (*model.ReturnTicket, error) {
	query := r.db.Rebind(`UPDATE return_tickets SET status = ?, updated_at = ? WHERE id = ? AND status = ?`)
	res, err := r.db.ExecContext(ctx, query, to, time.Now().UTC(), id, from)
	if err != nil {
		return nil, fmt.Errorf("failed to update return ticket: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to update return ticket: %w", err)
	}

	ticket, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, model.ErrInvalidTransition
	}
	return ticket, nil
}

// Ensure SQLReturnRepository implements ReturnRepository
var _ ReturnRepository = (*SQLReturnRepository)(nil)
