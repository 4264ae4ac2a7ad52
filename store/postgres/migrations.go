package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the stockledger store (PostgreSQL).
var Migrations = migrate.NewGroup("stockledger")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_stockledger_products",
			Version: "20250101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS stockledger_products (
    store_id           TEXT        NOT NULL,
    id                 TEXT        NOT NULL,
    name               TEXT        NOT NULL DEFAULT '',
    price              NUMERIC     NOT NULL DEFAULT 0,
    stock_count        NUMERIC     NOT NULL DEFAULT 0,
    reorder_level      NUMERIC,
    reorder_threshold  NUMERIC,
    last_received_at   TIMESTAMPTZ,
    last_received_qty  NUMERIC,
    last_received_cost NUMERIC,
    version            BIGINT      NOT NULL DEFAULT 0,
    created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (store_id, id)
);`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS stockledger_products`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_stockledger_sales",
			Version: "20250101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS stockledger_sales (
    store_id            TEXT        NOT NULL,
    id                  TEXT        NOT NULL,
    lines               JSONB       NOT NULL DEFAULT '[]',
    subtotal            NUMERIC     NOT NULL,
    item_discount_total NUMERIC     NOT NULL,
    sale_discount       NUMERIC     NOT NULL,
    discount_total      NUMERIC     NOT NULL,
    tax_total           NUMERIC     NOT NULL,
    total               NUMERIC     NOT NULL,
    payment             JSONB,
    customer            JSONB,
    note                TEXT        NOT NULL DEFAULT '',
    created_by          TEXT        NOT NULL DEFAULT '',
    created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (store_id, id)
);

CREATE TABLE IF NOT EXISTS stockledger_sale_items (
    id              TEXT        PRIMARY KEY,
    store_id        TEXT        NOT NULL,
    sale_id         TEXT        NOT NULL,
    position        INT         NOT NULL,
    product_id      TEXT        NOT NULL,
    type            TEXT        NOT NULL DEFAULT '',
    qty             NUMERIC     NOT NULL,
    price           NUMERIC     NOT NULL,
    tax_rate        NUMERIC     NOT NULL,
    discount_amount NUMERIC     NOT NULL,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_stockledger_sale_items_sale ON stockledger_sale_items (store_id, sale_id, position);`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS stockledger_sale_items, stockledger_sales`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_stockledger_entries",
			Version: "20250101000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS stockledger_entries (
    seq        BIGSERIAL   PRIMARY KEY,
    id         TEXT        NOT NULL UNIQUE,
    store_id   TEXT        NOT NULL,
    product_id TEXT        NOT NULL,
    qty_change NUMERIC     NOT NULL,
    type       TEXT        NOT NULL,
    ref_id     TEXT        NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_stockledger_entries_product ON stockledger_entries (store_id, product_id, seq DESC);`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS stockledger_entries`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_stockledger_receipts",
			Version: "20250101000004",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS stockledger_receipts (
    seq         BIGSERIAL   PRIMARY KEY,
    id          TEXT        NOT NULL UNIQUE,
    store_id    TEXT        NOT NULL,
    product_id  TEXT        NOT NULL,
    qty         NUMERIC     NOT NULL,
    supplier    TEXT        NOT NULL,
    reference   TEXT        NOT NULL,
    unit_cost   NUMERIC,
    total_cost  NUMERIC,
    stock_after NUMERIC     NOT NULL,
    created_by  TEXT        NOT NULL DEFAULT '',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_stockledger_receipts_store ON stockledger_receipts (store_id, seq DESC);`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS stockledger_receipts`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_stockledger_alerts",
			Version: "20250101000005",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS stockledger_alerts (
    seq          BIGSERIAL   PRIMARY KEY,
    id           TEXT        NOT NULL UNIQUE,
    type         TEXT        NOT NULL,
    store_id     TEXT        NOT NULL,
    product_id   TEXT        NOT NULL,
    product_name TEXT        NOT NULL DEFAULT '',
    stock_count  NUMERIC     NOT NULL,
    threshold    NUMERIC     NOT NULL,
    ref_id       TEXT        NOT NULL,
    created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_stockledger_alerts_store ON stockledger_alerts (store_id, seq DESC);`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS stockledger_alerts`)
				return err
			},
		},
	)
}
