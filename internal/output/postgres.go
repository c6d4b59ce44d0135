package output

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/pricemerge/internal/catalog"
)

// DBTX is the subset of pgx used to write snapshots.
// Satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
}

// PostgresSink upserts the snapshot: suppliers by name, products by item
// number with their offers stored as JSONB. Rows absent from the snapshot are
// left in place.
type PostgresSink struct {
	Pool *pgxpool.Pool
}

func (s *PostgresSink) Name() string { return "postgres" }

const (
	createSuppliers = `CREATE TABLE IF NOT EXISTS suppliers (
	name       TEXT PRIMARY KEY,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

	createProducts = `CREATE TABLE IF NOT EXISTS products (
	item_no         TEXT PRIMARY KEY,
	description     TEXT NOT NULL DEFAULT '',
	manufacturer    TEXT NOT NULL DEFAULT '',
	brand           TEXT NOT NULL DEFAULT '',
	size            TEXT NOT NULL DEFAULT '',
	supplier_offers JSONB NOT NULL DEFAULT '[]'::jsonb,
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
)`

	upsertSupplier = `INSERT INTO suppliers (name) VALUES ($1)
ON CONFLICT (name) DO UPDATE SET updated_at = now()`

	upsertProduct = `INSERT INTO products (item_no, description, manufacturer, brand, size, supplier_offers)
VALUES ($1, $2, $3, $4, $5, $6::jsonb)
ON CONFLICT (item_no) DO UPDATE SET
	description     = EXCLUDED.description,
	manufacturer    = EXCLUDED.manufacturer,
	brand           = EXCLUDED.brand,
	size            = EXCLUDED.size,
	supplier_offers = EXCLUDED.supplier_offers,
	updated_at      = now()`
)

// Write runs the whole upsert in one transaction.
func (s *PostgresSink) Write(ctx context.Context, snap catalog.Snapshot) error {
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return writeErr(s.Name(), fmt.Errorf("begin transaction: %w", err))
	}
	defer tx.Rollback(ctx)

	if _, err := writeSnapshot(ctx, tx, snap); err != nil {
		return writeErr(s.Name(), err)
	}
	if err := tx.Commit(ctx); err != nil {
		return writeErr(s.Name(), fmt.Errorf("commit: %w", err))
	}
	return nil
}

// writeSnapshot creates the tables if needed and upserts snap.
// Returns the number of rows affected.
func writeSnapshot(ctx context.Context, db DBTX, snap catalog.Snapshot) (int64, error) {
	for _, stmt := range []string{createSuppliers, createProducts} {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return 0, fmt.Errorf("create schema: %w", err)
		}
	}

	var affected int64
	for _, name := range snap.Suppliers {
		tag, err := db.Exec(ctx, upsertSupplier, name)
		if err != nil {
			return affected, fmt.Errorf("upsert supplier %s: %w", name, err)
		}
		affected += tag.RowsAffected()
	}

	for _, p := range snap.Products {
		offers := p.SupplierOffers
		if offers == nil {
			offers = []catalog.Offer{}
		}
		offersJSON, err := json.Marshal(offers)
		if err != nil {
			return affected, fmt.Errorf("encode offers for %s: %w", p.ItemNo, err)
		}
		tag, err := db.Exec(ctx, upsertProduct, p.ItemNo, p.Description, p.Manufacturer, p.Brand, p.Size, string(offersJSON))
		if err != nil {
			return affected, fmt.Errorf("upsert product %s: %w", p.ItemNo, err)
		}
		affected += tag.RowsAffected()
	}
	return affected, nil
}
