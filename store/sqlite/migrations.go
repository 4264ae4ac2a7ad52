package sqlite

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the stockledger store (SQLite).
var Migrations = migrate.NewGroup("stockledger")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_stockledger_products",
			Version: "20250101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS stockledger_products (
    store_id           TEXT    NOT NULL,
    id                 TEXT    NOT NULL,
    name               TEXT    NOT NULL DEFAULT '',
    price              TEXT    NOT NULL DEFAULT '0',
    stock_count        TEXT    NOT NULL DEFAULT '0',
    reorder_level      TEXT,
    reorder_threshold  TEXT,
    last_received_at   INTEGER,
    last_received_qty  TEXT,
    last_received_cost TEXT,
    version            INTEGER NOT NULL DEFAULT 0,
    created_at         INTEGER NOT NULL,
    updated_at         INTEGER NOT NULL,
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
    store_id            TEXT    NOT NULL,
    id                  TEXT    NOT NULL,
    lines               TEXT    NOT NULL DEFAULT '[]',
    subtotal            TEXT    NOT NULL,
    item_discount_total TEXT    NOT NULL,
    sale_discount       TEXT    NOT NULL,
    discount_total      TEXT    NOT NULL,
    tax_total           TEXT    NOT NULL,
    total               TEXT    NOT NULL,
    payment             TEXT,
    customer            TEXT,
    note                TEXT    NOT NULL DEFAULT '',
    created_by          TEXT    NOT NULL DEFAULT '',
    created_at          INTEGER NOT NULL,
    PRIMARY KEY (store_id, id)
);

CREATE TABLE IF NOT EXISTS stockledger_sale_items (
    id              TEXT    PRIMARY KEY,
    store_id        TEXT    NOT NULL,
    sale_id         TEXT    NOT NULL,
    position        INTEGER NOT NULL,
    product_id      TEXT    NOT NULL,
    type            TEXT    NOT NULL DEFAULT '',
    qty             TEXT    NOT NULL,
    price           TEXT    NOT NULL,
    tax_rate        TEXT    NOT NULL,
    discount_amount TEXT    NOT NULL,
    created_at      INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_stockledger_sale_items_sale ON stockledger_sale_items (store_id, sale_id, position);`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS stockledger_sale_items; DROP TABLE IF EXISTS stockledger_sales`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_stockledger_entries",
			Version: "20250101000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS stockledger_entries (
    seq        INTEGER PRIMARY KEY AUTOINCREMENT,
    id         TEXT    NOT NULL UNIQUE,
    store_id   TEXT    NOT NULL,
    product_id TEXT    NOT NULL,
    qty_change TEXT    NOT NULL,
    type       TEXT    NOT NULL,
    ref_id     TEXT    NOT NULL,
    created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_stockledger_entries_product ON stockledger_entries (store_id, product_id, seq);`)
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
    seq         INTEGER PRIMARY KEY AUTOINCREMENT,
    id          TEXT    NOT NULL UNIQUE,
    store_id    TEXT    NOT NULL,
    product_id  TEXT    NOT NULL,
    qty         TEXT    NOT NULL,
    supplier    TEXT    NOT NULL,
    reference   TEXT    NOT NULL,
    unit_cost   TEXT,
    total_cost  TEXT,
    stock_after TEXT    NOT NULL,
    created_by  TEXT    NOT NULL DEFAULT '',
    created_at  INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_stockledger_receipts_store ON stockledger_receipts (store_id, seq);`)
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
    seq          INTEGER PRIMARY KEY AUTOINCREMENT,
    id           TEXT    NOT NULL UNIQUE,
    type         TEXT    NOT NULL,
    store_id     TEXT    NOT NULL,
    product_id   TEXT    NOT NULL,
    product_name TEXT    NOT NULL DEFAULT '',
    stock_count  TEXT    NOT NULL,
    threshold    TEXT    NOT NULL,
    ref_id       TEXT    NOT NULL,
    created_at   INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_stockledger_alerts_store ON stockledger_alerts (store_id, seq);`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS stockledger_alerts`)
				return err
			},
		},
	)
}
