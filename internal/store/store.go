package store

import (
	"context"

	"github.com/MikeSquared-Agency/Verdant/internal/dataset"
)

// Source loads candidate tables from a database.
type Source interface {
	LoadTable(ctx context.Context, query string, args ...any) (*dataset.Table, error)
	Ping(ctx context.Context) error
	Close() error
}
