package output

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/JonMunkholm/pricemerge/internal/catalog"
)

// SQLiteSink writes the snapshot into a fresh SQLite database file.
// The database is built next to Path and renamed over it only after the
// transaction commits, so a failed write leaves the previous file intact.
type SQLiteSink struct {
	Path string
}

func (s *SQLiteSink) Name() string { return "sqlite" }

var sqliteSchema = []string{
	`CREATE TABLE suppliers (
		position INTEGER NOT NULL,
		name     TEXT PRIMARY KEY
	)`,
	`CREATE TABLE products (
		position     INTEGER NOT NULL,
		item_no      TEXT PRIMARY KEY,
		description  TEXT NOT NULL,
		manufacturer TEXT NOT NULL,
		brand        TEXT NOT NULL,
		size         TEXT NOT NULL
	)`,
	`CREATE TABLE offers (
		item_no           TEXT NOT NULL REFERENCES products(item_no),
		position          INTEGER NOT NULL,
		supplier_name     TEXT NOT NULL,
		original_price    REAL NOT NULL,
		original_currency TEXT NOT NULL,
		normalized_price  REAL NOT NULL,
		catalog_no        TEXT NOT NULL,
		PRIMARY KEY (item_no, position)
	)`,
	`CREATE INDEX idx_products_manufacturer ON products(manufacturer)`,
	`CREATE INDEX idx_offers_supplier ON offers(supplier_name)`,
}

func (s *SQLiteSink) Write(ctx context.Context, snap catalog.Snapshot) error {
	tmp, err := os.CreateTemp(filepath.Dir(s.Path), "."+filepath.Base(s.Path)+".*.tmp")
	if err != nil {
		return writeErr(s.Name(), err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)
	if err := tmp.Close(); err != nil {
		return writeErr(s.Name(), err)
	}

	db, err := sql.Open("sqlite", tmpName)
	if err != nil {
		return writeErr(s.Name(), err)
	}
	if err := writeSQLite(ctx, db, snap); err != nil {
		db.Close()
		return writeErr(s.Name(), err)
	}
	if err := db.Close(); err != nil {
		return writeErr(s.Name(), err)
	}

	if err := os.Rename(tmpName, s.Path); err != nil {
		return writeErr(s.Name(), err)
	}
	return nil
}

func writeSQLite(ctx context.Context, db *sql.DB, snap catalog.Snapshot) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range sqliteSchema {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}

	supplierStmt, err := tx.PrepareContext(ctx, `INSERT INTO suppliers (position, name) VALUES (?, ?)`)
	if err != nil {
		return err
	}
	defer supplierStmt.Close()
	for i, name := range snap.Suppliers {
		if _, err := supplierStmt.ExecContext(ctx, i, name); err != nil {
			return err
		}
	}

	productStmt, err := tx.PrepareContext(ctx, `INSERT INTO products (position, item_no, description, manufacturer, brand, size) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer productStmt.Close()

	offerStmt, err := tx.PrepareContext(ctx, `INSERT INTO offers (item_no, position, supplier_name, original_price, original_currency, normalized_price, catalog_no) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer offerStmt.Close()

	for i, p := range snap.Products {
		if _, err := productStmt.ExecContext(ctx, i, p.ItemNo, p.Description, p.Manufacturer, p.Brand, p.Size); err != nil {
			return err
		}
		for j, o := range p.SupplierOffers {
			if _, err := offerStmt.ExecContext(ctx, p.ItemNo, j, o.SupplierName, o.OriginalPrice, o.OriginalCurrency, o.NormalizedPrice, o.CatalogNo); err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}
