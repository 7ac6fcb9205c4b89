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

const codColumns = `id, order_id, order_no, customer_name, customer_email, customer_phone,
	invoice_id, invoice_url, amount, status, created_at, updated_at`

// SQLCODRepository implements CODRepository on a SQL backend.
type SQLCODRepository struct {
	db *sqlx.DB
}

// NewSQLCODRepository creates a new SQL COD order repository.
func NewSQLCODRepository(db *sqlx.DB) *SQLCODRepository {
	return &SQLCODRepository{db: db}
}

// Create stores a new order.
func (r *SQLCODRepository) Create(ctx context.Context, order *model.CODOrder) error {
	_, err := r.db.NamedExecContext(ctx, `INSERT INTO cod_orders (`+codColumns+`) VALUES
		(:id, :order_id, :order_no, :customer_name, :customer_email, :customer_phone,
		 :invoice_id, :invoice_url, :amount, :status, :created_at, :updated_at)`, order)
	if err != nil {
		return fmt.Errorf("failed to create cod order: %w", err)
	}
	return nil
}

// List returns every order, oldest first.
func (r *SQLCODRepository) List(ctx context.Context) ([]model.CODOrder, error) {
	orders := []model.CODOrder{}
	if err := r.db.SelectContext(ctx, &orders, `SELECT `+codColumns+` FROM cod_orders ORDER BY id`); err != nil {
		return nil, fmt.Errorf("failed to list cod orders: %w", err)
	}
	return orders, nil
}

// GetByID returns an order by id.
func (r *SQLCODRepository) GetByID(ctx context.Context, id string) (*model.CODOrder, error) {
	var order model.CODOrder
	err := r.db.GetContext(ctx, &order, r.db.Rebind(`SELECT `+codColumns+` FROM cod_orders WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cod order: %w", err)
	}
	return &order, nil
}

// UpdateStatus moves the order from one status to another.
func (r *SQLCODRepository) UpdateStatus(ctx context.Context, id string, from, to model.CODStatus) (*model.CODOrder, error) {
	query := r.db.Rebind(`UPDATE cod_orders SET status = ?, updated_at = ? WHERE id = ? AND status = ?`)
	res, err := r.db.ExecContext(ctx, query, to, time.Now().UTC(), id, from)
	if err != nil {
		return nil, fmt.Errorf("failed to update cod order: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to update cod order: %w", err)
	}

	order, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, model.ErrInvalidTransition
	}
	return order, nil
}

// Ensure SQLCODRepository implements CODRepository
var _ CODRepository = (*SQLCODRepository)(nil)
