package observability

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestClassifyDBErr(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{err: &pgconn.PgError{Code: "23505"}, want: "unique_violation"},
		{err: fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23502"}), want: "not_null_violation"},
		{err: &pgconn.PgError{Code: "42P01"}, want: "pg_42P01"},
		{err: errors.New("context deadline exceeded"), want: "timeout"},
		{err: errors.New("failed to connect: connection refused"), want: "connection"},
		{err: errors.New("boom"), want: "unknown"},
	}

	for _, tt := range tests {
		if got := classifyDBErr(tt.err); got != tt.want {
			t.Fatalf("classifyDBErr(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestObserveDB(t *testing.T) {
	p := NewProm(prometheus.NewRegistry())

	_ = p.ObserveDB("users.exists", func() error { return nil })
	_ = p.ObserveDB("users.role", func() error { return pgx.ErrNoRows })
	err := p.ObserveDB("users.create", func() error { return &pgconn.PgError{Code: "23505"} })

	if err == nil {
		t.Fatalf("ObserveDB must return fn's error")
	}

	if got := testutil.ToFloat64(p.DbErrorsTotal.WithLabelValues("users.create", "unique_violation")); got != 1 {
		t.Fatalf("unique_violation count = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(p.DbErrorsTotal); got != 1 {
		t.Fatalf("no_rows must not be counted as an error, got %d series", got)
	}
}

func TestProm_NilReceiver(t *testing.T) {
	var p *Prom

	called := false
	if err := p.ObserveDB("op", func() error { called = true; return nil }); err != nil || !called {
		t.Fatalf("nil Prom must still run fn")
	}

	p.ObserveAuth("register", "USER_CREATED")
	p.ObserveRateLimited("/api/login")
}
