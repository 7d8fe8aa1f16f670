//go:build integration

package store

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/MikeSquared-Agency/Verdant/internal/dataset"
	"github.com/MikeSquared-Agency/Verdant/internal/scoring"
)

func setupTestDB(t *testing.T) *PostgresSource {
	t.Helper()
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	ctx := context.Background()
	s, err := NewPostgresSource(ctx, dbURL)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}

	_, err = s.pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS verdant_packaging (
		material TEXT PRIMARY KEY,
		cost_per_unit NUMERIC NOT NULL,
		recyclability DOUBLE PRECISION NOT NULL,
		measured_on DATE NOT NULL)`)
	if err != nil {
		t.Fatalf("create table: %v", err)
	}

	t.Cleanup(func() {
		_, _ = s.pool.Exec(ctx, "DROP TABLE IF EXISTS verdant_packaging")
		s.Close()
	})
	return s
}

func TestLoadTable(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	_, err := s.pool.Exec(ctx, `INSERT INTO verdant_packaging VALUES
		('Glass', 1.20, 90, '2024-01-31'),
		('PET', 0.40, 55, '2024-01-31')`)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	tbl, err := s.LoadTable(ctx, "SELECT material, cost_per_unit, recyclability, measured_on FROM verdant_packaging ORDER BY material")
	if err != nil {
		t.Fatalf("LoadTable failed: %v", err)
	}
	if len(tbl.Rows) != 2 || tbl.Columns[0] != "material" {
		t.Fatalf("unexpected table %+v", tbl)
	}

	err = dataset.Validate(tbl, []dataset.ColumnRequirement{
		{Name: "material", Type: dataset.Category},
		{Name: "cost_per_unit", Type: dataset.Numeric},
		{Name: "recyclability", Type: dataset.Numeric},
		{Name: "measured_on", Type: dataset.Date},
	})
	if err != nil {
		t.Errorf("loaded table should validate: %v", err)
	}
	if v, _ := tbl.Value(0, "cost_per_unit"); v != "1.2" {
		t.Errorf("expected numeric 1.2, got %q", v)
	}
}

func TestLoadTableEmpty(t *testing.T) {
	s := setupTestDB(t)

	_, err := s.LoadTable(context.Background(), "SELECT * FROM verdant_packaging")
	var eie *scoring.EmptyInputError
	if !errors.As(err, &eie) {
		t.Errorf("expected EmptyInputError, got %v", err)
	}
}
