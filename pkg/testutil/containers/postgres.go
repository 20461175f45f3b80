//go:build integration

package containers

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"

	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
)

// PostgresContainer wraps a testcontainers PostgreSQL instance with the
// pharmacy schema applied.
type PostgresContainer struct {
	Container testcontainers.Container
	URL       string
	DB        *sql.DB
}

// schema mirrors the production migrations closely enough for store tests.
const schema = `
CREATE TABLE IF NOT EXISTS seniors (
	id            UUID PRIMARY KEY,
	first_name    TEXT NOT NULL,
	last_name     TEXT NOT NULL,
	birthdate     TIMESTAMPTZ,
	address       TEXT,
	health_status TEXT
);

CREATE TABLE IF NOT EXISTS medicines (
	id    UUID PRIMARY KEY,
	name  TEXT NOT NULL DEFAULT '',
	stock INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS orders (
	id                UUID PRIMARY KEY,
	senior_id         UUID,
	total_amount      NUMERIC(12,2) NOT NULL,
	discounted_amount NUMERIC(12,2) NOT NULL,
	has_discount      BOOLEAN NOT NULL DEFAULT FALSE,
	status            TEXT NOT NULL,
	note              TEXT NOT NULL DEFAULT '',
	created_at        TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS order_lines (
	order_id    UUID NOT NULL REFERENCES orders (id),
	item_id     UUID NOT NULL,
	quantity    INTEGER NOT NULL,
	unit_price  NUMERIC(12,2) NOT NULL,
	total_price NUMERIC(12,2) NOT NULL
);
`

// NewPostgresContainer starts a PostgreSQL container and applies the schema.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("botica"),
		tcpostgres.WithUsername("botica"),
		tcpostgres.WithPassword("botica"),
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	url, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get postgres connection string: %v", err)
	}

	db, err := sql.Open("postgres", url)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to open postgres connection: %v", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to ping postgres: %v", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to apply schema: %v", err)
	}

	return &PostgresContainer{
		Container: container,
		URL:       url,
		DB:        db,
	}
}

// TruncateTables clears the given tables between tests. Pass tables in
// dependency order so foreign keys do not get in the way.
func (p *PostgresContainer) TruncateTables(ctx context.Context, tables ...string) error {
	if len(tables) == 0 {
		return nil
	}
	query := fmt.Sprintf("TRUNCATE TABLE %s CASCADE", strings.Join(tables, ", "))
	if _, err := p.DB.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("truncate tables: %w", err)
	}
	return nil
}
