package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/bugreport/internal/store/migrations"
)

type Dialect int

const (
	SQLite Dialect = iota
	Postgres
)

func (d Dialect) String() string {
	if d == Postgres {
		return "postgres"
	}
	return "sqlite"
}

// DB is a database handle that knows which SQL dialect it speaks. Queries
// are written with ? placeholders and rebound for Postgres.
type DB struct {
	*sql.DB
	dialect Dialect
	pool    *pgxpool.Pool
	url     string
}

// DialectFor picks the backend from the DATABASE_URL scheme.
func DialectFor(url string) Dialect {
	if strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://") {
		return Postgres
	}
	return SQLite
}

// Open connects to url, runs pending migrations and pings the database.
func Open(ctx context.Context, url string) (*DB, error) {
	var db *DB
	switch DialectFor(url) {
	case Postgres:
		pool, err := pgxpool.New(ctx, url)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		db = &DB{DB: stdlib.OpenDBFromPool(pool), dialect: Postgres, pool: pool, url: url}
	default:
		sqlDB, err := sql.Open("sqlite", url)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		// One writer at a time prevents SQLITE_BUSY under concurrent requests
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
		sqlDB.SetConnMaxLifetime(0)
		db = &DB{DB: sqlDB, dialect: SQLite, url: url}
	}

	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", db.dialect, err)
	}
	return db, nil
}

func (db *DB) Dialect() Dialect {
	return db.dialect
}

// Ping satisfies the health check.
func (db *DB) Ping(ctx context.Context) error {
	return db.PingContext(ctx)
}

func (db *DB) Close() error {
	err := db.DB.Close()
	if db.pool != nil {
		db.pool.Close()
	}
	return err
}

// Migrate applies all pending up migrations. No pending migration is not an
// error.
func (db *DB) Migrate() error {
	return db.withMigrator(func(m *migrate.Migrate) error {
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return err
		}
		return nil
	})
}

// MigrateDown rolls back every migration.
func (db *DB) MigrateDown() error {
	return db.withMigrator(func(m *migrate.Migrate) error {
		if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return err
		}
		return nil
	})
}

// Version reports the current schema version.
func (db *DB) Version() (uint, bool, error) {
	var (
		v     uint
		dirty bool
	)
	err := db.withMigrator(func(m *migrate.Migrate) error {
		var err error
		v, dirty, err = m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			return nil
		}
		return err
	})
	return v, dirty, err
}

// withMigrator runs fn against a migrator for this database. Postgres
// migrations run on their own connection, closed before returning. SQLite
// shares the single handle, which the driver would close along with the
// migrator, so it is left open.
func (db *DB) withMigrator(fn func(*migrate.Migrate) error) error {
	sourceDriver, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return err
	}

	if db.dialect == Postgres {
		m, err := migrate.NewWithSourceInstance("iofs", sourceDriver, migrateURL(db.url))
		if err != nil {
			return err
		}
		defer func() {
			if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
				slog.Warn("store: close migrator", "source_error", srcErr, "db_error", dbErr)
			}
		}()
		return fn(m)
	}

	dbDriver, err := sqlite.WithInstance(db.DB, &sqlite.Config{})
	if err != nil {
		return err
	}
	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite", dbDriver)
	if err != nil {
		return err
	}
	return fn(m)
}

// migrateURL swaps a postgres:// or postgresql:// scheme for the pgx5://
// scheme the migrate driver registers.
func migrateURL(url string) string {
	_, rest, _ := strings.Cut(url, "://")
	return "pgx5://" + rest
}

// rebind rewrites ? placeholders as $1, $2, ... for Postgres.
func (db *DB) rebind(query string) string {
	if db.dialect != Postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
