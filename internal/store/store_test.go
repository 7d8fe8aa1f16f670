package store

import (
	"math/big"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

func TestFormatValue(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, ""},
		{"text", "Glass", "Glass"},
		{"bytes", []byte("PET"), "PET"},
		{"bool", true, "true"},
		{"int32", int32(42), "42"},
		{"int64", int64(-7), "-7"},
		{"float64", 2.5, "2.5"},
		{"float32", float32(0.25), "0.25"},
		{"date", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), "2024-03-01"},
		{"timestamp", time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC), "2024-03-01T10:30:00Z"},
		{"numeric", pgtype.Numeric{Int: big.NewInt(1234), Exp: -2, Valid: true}, "12.34"},
		{"null numeric", pgtype.Numeric{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatValue(tt.in); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
