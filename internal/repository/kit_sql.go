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

const kitColumns = `id, serial_numbers, batch_numbers, status, order_id, invoice_url, invoice_id, created_at, updated_at`

// SQLKitRepository implements KitRepository on PostgreSQL, MySQL or SQLite.
type SQLKitRepository struct {
	db      *sqlx.DB
	dialect Dialect
}

// NewSQLKitRepository creates a new SQL kit repository.
func NewSQLKitRepository(db *sqlx.DB, d Dialect) *SQLKitRepository {
	return &SQLKitRepository{db: db, dialect: d}
}

// List returns every kit.
func (r *SQLKitRepository) List(ctx context.Context) ([]model.Kit, error) {
	kits := []model.Kit{}
	if err := r.db.SelectContext(ctx, &kits, `SELECT `+kitColumns+` FROM kits ORDER BY id`); err != nil {
		return nil, fmt.Errorf("failed to list kits: %w", err)
	}
	return kits, nil
}

// ListAvailable returns at most limit available kits.
func (r *SQLKitRepository) ListAvailable(ctx context.Context, limit int) ([]model.Kit, error) {
	if limit < 1 {
		return nil, fmt.Errorf("%w: limit must be positive, got %d", model.ErrInvalidInput, limit)
	}
	kits := []model.Kit{}
	query := r.db.Rebind(`SELECT ` + kitColumns + ` FROM kits WHERE status = ? ORDER BY id LIMIT ?`)
	if err := r.db.SelectContext(ctx, &kits, query, model.KitAvailable, limit); err != nil {
		return nil, fmt.Errorf("failed to list available kits: %w", err)
	}
	return kits, nil
}

// Counts returns inventory counts per status.
func (r *SQLKitRepository) Counts(ctx context.Context) (model.KitCounts, error) {
	var rows []struct {
		Status model.KitStatus `db:"status"`
		N      int64           `db:"n"`
	}
	if err := r.db.SelectContext(ctx, &rows, `SELECT status, COUNT(*) AS n FROM kits GROUP BY status`); err != nil {
		return model.KitCounts{}, fmt.Errorf("failed to count kits: %w", err)
	}

	var c model.KitCounts
	for _, row := range rows {
		switch row.Status {
		case model.KitAvailable:
			c.Available = row.N
		case model.KitSold:
			c.Sold = row.N
		}
		c.Total += row.N
	}
	return c, nil
}

// GetByID returns a kit by id.
func (r *SQLKitRepository) GetByID(ctx context.Context, id string) (*model.Kit, error) {
	var kit model.Kit
	err := r.db.GetContext(ctx, &kit, r.db.Rebind(`SELECT `+kitColumns+` FROM kits WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get kit: %w", err)
	}
	return &kit, nil
}

// GetByIDs returns the kits that exist among ids.
func (r *SQLKitRepository) GetByIDs(ctx context.Context, ids []string) ([]model.Kit, error) {
	kits := []model.Kit{}
	if len(ids) == 0 {
		return kits, nil
	}
	query, args, err := inQuery(r.db, `SELECT `+kitColumns+` FROM kits WHERE id IN (?) ORDER BY id`, ids)
	if err != nil {
		return nil, err
	}
	if err := r.db.SelectContext(ctx, &kits, query, args...); err != nil {
		return nil, fmt.Errorf("failed to get kits: %w", err)
	}
	return kits, nil
}

// ListByOrder returns every kit stamped with orderID.
func (r *SQLKitRepository) ListByOrder(ctx context.Context, orderID string) ([]model.Kit, error) {
	kits := []model.Kit{}
	query := r.db.Rebind(`SELECT ` + kitColumns + ` FROM kits WHERE order_id = ? ORDER BY id`)
	if err := r.db.SelectContext(ctx, &kits, query, orderID); err != nil {
		return nil, fmt.Errorf("failed to list kits by order: %w", err)
	}
	return kits, nil
}

// InsertMany stores new kits in one transaction.
func (r *SQLKitRepository) InsertMany(ctx context.Context, kits []model.Kit) error {
	if len(kits) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertKits(ctx, tx, kits); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func insertKits(ctx context.Context, tx *sqlx.Tx, kits []model.Kit) error {
	const query = `INSERT INTO kits (` + kitColumns + `) VALUES
		(:id, :serial_numbers, :batch_numbers, :status, :order_id, :invoice_url, :invoice_id, :created_at, :updated_at)`

	stmt, err := tx.PrepareNamedContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for i := range kits {
		if _, err := stmt.ExecContext(ctx, &kits[i]); err != nil {
			return fmt.Errorf("failed to insert kit %s: %w", kits[i].ID, err)
		}
	}
	return nil
}

// ClaimAvailable flips exactly n available kits to sold. Selection and the
// guarded updates share one transaction, so a shortfall leaves nothing
// claimed.
func (r *SQLKitRepository) ClaimAvailable(ctx context.Context, n int, stamp model.SaleStamp) ([]model.Kit, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: claim size must be positive, got %d", model.ErrInvalidInput, n)
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var ids []string
	query := tx.Rebind(`SELECT id FROM kits WHERE status = ? ORDER BY id LIMIT ?` + r.dialect.lockSuffix)
	if err := tx.SelectContext(ctx, &ids, query, model.KitAvailable, n); err != nil {
		return nil, fmt.Errorf("failed to select available kits: %w", err)
	}
	if len(ids) < n {
		return nil, model.ErrInsufficientInventory
	}

	update := tx.Rebind(`UPDATE kits SET status = ?, order_id = ?, invoice_url = ?, invoice_id = ?, updated_at = ?
		WHERE id = ? AND status = ?`)
	now := time.Now().UTC()
	for _, id := range ids {
		res, err := tx.ExecContext(ctx, update,
			model.KitSold, stamp.OrderID, stamp.InvoiceURL, stamp.InvoiceID, now, id, model.KitAvailable)
		if err != nil {
			return nil, fmt.Errorf("failed to claim kit %s: %w", id, err)
		}
		if affected, err := res.RowsAffected(); err != nil {
			return nil, fmt.Errorf("failed to claim kit %s: %w", id, err)
		} else if affected != 1 {
			return nil, model.ErrConflict
		}
	}

	claimed := []model.Kit{}
	sel, args, err := inQuery(tx, `SELECT `+kitColumns+` FROM kits WHERE id IN (?) ORDER BY id`, ids)
	if err != nil {
		return nil, err
	}
	if err := tx.SelectContext(ctx, &claimed, sel, args...); err != nil {
		return nil, fmt.Errorf("failed to load claimed kits: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return claimed, nil
}

// MergeSold rewrites the target aggregate and deletes the absorbed kits.
func (r *SQLKitRepository) MergeSold(ctx context.Context, target *model.Kit, absorbedIDs []string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	target.UpdatedAt = time.Now().UTC()
	res, err := tx.NamedExecContext(ctx, `UPDATE kits SET serial_numbers = :serial_numbers, batch_numbers = :batch_numbers,
		order_id = :order_id, invoice_url = :invoice_url, invoice_id = :invoice_id, updated_at = :updated_at
		WHERE id = :id AND status = 'sold'`, target)
	if err != nil {
		return fmt.Errorf("failed to update aggregate: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected != 1 {
		return model.ErrConflict
	}

	if len(absorbedIDs) > 0 {
		query, args, err := inQuery(tx, `DELETE FROM kits WHERE id IN (?) AND status = ? AND order_id = ?`,
			absorbedIDs, model.KitSold, target.OrderID)
		if err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("failed to delete absorbed kits: %w", err)
		}
		if affected, _ := res.RowsAffected(); affected != int64(len(absorbedIDs)) {
			return model.ErrConflict
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ReplaceSold deletes the sold kits and inserts fresh ones atomically.
func (r *SQLKitRepository) ReplaceSold(ctx context.Context, soldIDs []string, fresh []model.Kit) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query, args, err := inQuery(tx, `DELETE FROM kits WHERE id IN (?) AND status = ?`, soldIDs, model.KitSold)
	if err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to delete sold kits: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected != int64(len(soldIDs)) {
		return model.ErrNotSold
	}

	if err := insertKits(ctx, tx, fresh); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// DeleteAvailable deletes the available kits among ids.
func (r *SQLKitRepository) DeleteAvailable(ctx context.Context, ids []string) ([]string, error) {
	deleted := []string{}
	if len(ids) == 0 {
		return deleted, nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query, args, err := inQuery(tx, `SELECT id FROM kits WHERE id IN (?) AND status = ? ORDER BY id`+r.dialect.lockSuffix,
		ids, model.KitAvailable)
	if err != nil {
		return nil, err
	}
	if err := tx.SelectContext(ctx, &deleted, query, args...); err != nil {
		return nil, fmt.Errorf("failed to select kits: %w", err)
	}
	if len(deleted) == 0 {
		return deleted, nil
	}

	query, args, err = inQuery(tx, `DELETE FROM kits WHERE id IN (?) AND status = ?`, deleted, model.KitAvailable)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("failed to delete kits: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return deleted, nil
}

// Ensure SQLKitRepository implements KitRepository
var _ KitRepository = (*SQLKitRepository)(nil)
