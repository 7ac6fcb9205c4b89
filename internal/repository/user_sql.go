package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"kitstock-api/internal/model"

	"github.com/jmoiron/sqlx"
)

// SQLUserRepository implements UserRepository on a SQL backend.
type SQLUserRepository struct {
	db *sqlx.DB
}

// NewSQLUserRepository creates a new SQL user repository.
func NewSQLUserRepository(db *sqlx.DB) *SQLUserRepository {
	return &SQLUserRepository{db: db}
}

// GetByUsername returns a user by name.
func (r *SQLUserRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	var u model.User
	query := r.db.Rebind(`SELECT id, username, password_hash, created_at FROM users WHERE username = ?`)
	err := r.db.GetContext(ctx, &u, query, username)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

// Create stores a new user.
func (r *SQLUserRepository) Create(ctx context.Context, user *model.User) error {
	if _, err := r.GetByUsername(ctx, user.Username); err == nil {
		return model.ErrDuplicate
	} else if !errors.Is(err, model.ErrNotFound) {
		return err
	}

	_, err := r.db.NamedExecContext(ctx,
		`INSERT INTO users (id, username, password_hash, created_at) VALUES (:id, :username, :password_hash, :created_at)`,
		user)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// Ensure SQLUserRepository implements UserRepository
var _ UserRepository = (*SQLUserRepository)(nil)
