package moderation

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq" // postgres driver
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Archive stores report events in PostgreSQL for moderator review.
type Archive struct {
	db *sql.DB
}

// OpenArchive connects to PostgreSQL, runs the embedded schema migrations,
// and returns a ready archive.
func OpenArchive(dsn string) (*Archive, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("moderation: open postgres: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("moderation: postgres connection failed: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Archive{db: db}, nil
}

// runMigrations applies the embedded SQL migrations.
func runMigrations(db *sql.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("moderation: load migrations: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("moderation: migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return fmt.Errorf("moderation: migration setup: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("moderation: migrate up: %w", err)
	}
	return nil
}

// Insert archives one report event.
func (a *Archive) Insert(ctx context.Context, ev ReportEvent) error {
	const query = `
		INSERT INTO abuse_reports (reporter, reported, tally, block_seconds, permanent, reported_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := a.db.ExecContext(ctx, query,
		ev.Reporter,
		ev.Reported,
		ev.Tally,
		ev.BlockSeconds,
		ev.Permanent,
		time.Unix(ev.Ts, 0).UTC(),
	)
	if err != nil {
		return fmt.Errorf("moderation: insert report: %w", err)
	}
	return nil
}

// CountAgainst returns the number of archived reports filed against a user.
func (a *Archive) CountAgainst(ctx context.Context, reported string) (int, error) {
	const query = `SELECT COUNT(*) FROM abuse_reports WHERE reported = $1`

	var count int
	if err := a.db.QueryRowContext(ctx, query, reported).Scan(&count); err != nil {
		return 0, fmt.Errorf("moderation: count reports: %w", err)
	}
	return count, nil
}

// Close closes the database handle.
func (a *Archive) Close() error {
	return a.db.Close()
}
