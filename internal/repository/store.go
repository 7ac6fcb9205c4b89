package repository

import (
	"context"
	"fmt"

	"kitstock-api/internal/config"
)

// Store bundles the repositories of one backend.
type Store struct {
	Kits    KitRepository
	COD     CODRepository
	Returns ReturnRepository
	Users   UserRepository

	kind  string
	ping  func(ctx context.Context) error
	close func() error
}

// Kind returns the backend name (mongodb, postgres, mysql or sqlite).
func (s *Store) Kind() string { return s.kind }

// Ping checks that the backend is reachable.
func (s *Store) Ping(ctx context.Context) error { return s.ping(ctx) }

// Close releases the backend connection.
func (s *Store) Close() error { return s.close() }

// Open connects to the configured backend and prepares its schema. It fails
// if the backend is unreachable.
func Open(ctx context.Context, cfg config.StoreConfig) (*Store, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	switch cfg.Kind() {
	case "mongodb":
		return OpenMongo(ctx, cfg.MongoURL, cfg.MongoDatabase)
	case "postgres":
		return OpenSQL(ctx, DialectPostgres, cfg.PostgresDSN())
	case "mysql":
		return OpenSQL(ctx, DialectMySQL, cfg.MySQLDSN())
	case "sqlite":
		return OpenSQL(ctx, DialectSQLite, cfg.SQLitePath)
	}
	return nil, fmt.Errorf("unsupported store type %q", cfg.Type)
}
