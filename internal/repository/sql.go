package repository

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite" // Pure Go SQLite driver - no CGO required
)

//go:embed migrations
var migrations embed.FS

// Dialect describes one SQL backend.
type Dialect struct {
	Name       string
	driver     string
	goose      goose.Dialect
	lockSuffix string // row lock clause for claim queries
}

var (
	DialectPostgres = Dialect{Name: "postgres", driver: "postgres", goose: goose.DialectPostgres, lockSuffix: " FOR UPDATE SKIP LOCKED"}
	DialectMySQL    = Dialect{Name: "mysql", driver: "mysql", goose: goose.DialectMySQL, lockSuffix: " FOR UPDATE SKIP LOCKED"}
	DialectSQLite   = Dialect{Name: "sqlite", driver: "sqlite", goose: goose.DialectSQLite3}
)

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// OpenSQL connects to a SQL backend, applies the embedded migrations and
// returns a Store backed by it.
func OpenSQL(ctx context.Context, d Dialect, dsn string) (*Store, error) {
	if d == DialectSQLite {
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create sqlite directory: %w", err)
			}
		}
		dsn = fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)", dsn)
	}

	db, err := sqlx.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", d.Name, err)
	}

	if d == DialectSQLite {
		db.SetMaxOpenConns(1) // SQLite only supports 1 writer
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s: %w", d.Name, err)
	}

	if err := migrate(ctx, db, d); err != nil {
		db.Close()
		return nil, err
	}

	log.Info().Str("store", d.Name).Msg("SQL store initialized")
	return &Store{
		Kits:    NewSQLKitRepository(db, d),
		COD:     NewSQLCODRepository(db),
		Returns: NewSQLReturnRepository(db),
		Users:   NewSQLUserRepository(db),
		kind:    d.Name,
		ping:    db.PingContext,
		close:   db.Close,
	}, nil
}

// migrate brings the schema up to date. It runs once at startup.
func migrate(ctx context.Context, db *sqlx.DB, d Dialect) error {
	fsys, err := fs.Sub(migrations, "migrations/"+d.Name)
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}

	provider, err := goose.NewProvider(d.goose, db.DB, fsys)
	if err != nil {
		return fmt.Errorf("failed to create migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("goose up error: %w", err)
	}
	for _, r := range results {
		log.Info().Str("migration", r.Source.Path).Dur("duration", r.Duration).Msg("Migration applied")
	}
	return nil
}

// inQuery expands an IN (?) clause and rebinds it for the connection's driver.
func inQuery(db sqlx.ExtContext, query string, args ...any) (string, []any, error) {
	q, a, err := sqlx.In(query, args...)
	if err != nil {
		return "", nil, fmt.Errorf("failed to build query: %w", err)
	}
	return db.Rebind(q), a, nil
}
