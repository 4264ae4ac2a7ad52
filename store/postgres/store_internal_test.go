package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/xraph/stockledger"
	"github.com/xraph/stockledger/txn"
)

func TestMapErr(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		conflict bool
	}{
		{"serialization failure", &pgconn.PgError{Code: "40001"}, true},
		{"deadlock", &pgconn.PgError{Code: "40P01"}, true},
		{"unique violation", &pgconn.PgError{Code: "23505"}, true},
		{"wrapped unique violation", fmt.Errorf("exec: %w", &pgconn.PgError{Code: "23505"}), true},
		{"check violation", &pgconn.PgError{Code: "23514"}, false},
		{"plain error", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapErr("op", tt.err)
			if errors.Is(got, txn.ErrConflict) != tt.conflict {
				t.Errorf("mapErr(%v): conflict = %v, want %v", tt.err, !tt.conflict, tt.conflict)
			}
			if !errors.Is(got, tt.err) {
				t.Errorf("mapErr must keep the cause in the chain")
			}
		})
	}
}

func TestNotFound(t *testing.T) {
	if err := notFound("get", pgx.ErrNoRows, stockledger.ErrSaleNotFound); !errors.Is(err, stockledger.ErrSaleNotFound) {
		t.Errorf("expected ErrSaleNotFound, got %v", err)
	}
	boom := errors.New("boom")
	if err := notFound("get", boom, stockledger.ErrSaleNotFound); !errors.Is(err, boom) || errors.Is(err, stockledger.ErrSaleNotFound) {
		t.Errorf("unexpected mapping: %v", err)
	}
}

func TestPlaceholders(t *testing.T) {
	if got := insert("t", "a, b, c"); got != "INSERT INTO t (a, b, c) VALUES ($1, $2, $3)" {
		t.Errorf("insert: %s", got)
	}

	f := &filter{}
	f.add("store_id = ?", "s")
	f.add("product_id = ?", "p")
	q, args := f.query("id", "t", 10)
	want := "SELECT id FROM t WHERE store_id = $1 AND product_id = $2 ORDER BY seq DESC LIMIT $3"
	if q != want {
		t.Errorf("query:\n got %s\nwant %s", q, want)
	}
	if len(args) != 3 || args[2] != 10 {
		t.Errorf("args: %v", args)
	}
}
