/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements ledger.Store and ledger.TxStore using SQLite. In production,
  the same patterns apply to PostgreSQL - only minor SQL dialect
  differences.

APPEND-ONLY ENFORCEMENT:
  The transactions table is append-only:
  - No UPDATE statements on transactions
  - No DELETE statements on transactions

KEY TABLES:
  products:     Current balance per product (sku has a UNIQUE index)
  transactions: Immutable ledger of all stock changes

SKU UNIQUENESS:
  Enforced by the database's UNIQUE index, so two concurrent creates with
  the same sku deterministically resolve: one insert succeeds, the other
  fails the constraint and surfaces DuplicateSKUError.

TIMESTAMP ORDERING:
  Transaction timestamps are stored as integer unix nanoseconds so that
  ORDER BY compares numerically. Ties are broken by the autoincrement seq
  column, which is insertion order.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety on top of SQLite's single-writer
  model. With PostgreSQL, database-level concurrency control (row locks,
  SELECT FOR UPDATE) handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/stock.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  engine := ledger.NewEngine(store)

SEE ALSO:
  - ledger/store.go: Interface definitions
  - ledger/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/stock-ledger/ledger"
)

// Ensure Store implements the full transactional interface.
var _ ledger.TxStore = (*Store)(nil)

// Store implements ledger.TxStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows one writer at a time, and the driver gives every pool
	// connection its own database when dbPath is ":memory:". A single
	// connection sidesteps both.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Products (current balance per sku)
	CREATE TABLE IF NOT EXISTS products (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		sku TEXT NOT NULL,
		current_stock INTEGER NOT NULL CHECK (current_stock >= 0),
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- CRITICAL: sku uniqueness is enforced here, atomically with the insert
	CREATE UNIQUE INDEX IF NOT EXISTS idx_products_sku ON products(sku);

	-- Transactions (append-only ledger)
	-- seq is insertion order; it breaks timestamp ties in history queries
	CREATE TABLE IF NOT EXISTS transactions (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		product_id TEXT NOT NULL REFERENCES products(id),
		tx_type TEXT NOT NULL CHECK (tx_type IN ('INITIAL', 'INCREASE', 'DECREASE')),
		quantity INTEGER NOT NULL CHECK (quantity >= 0),
		timestamp INTEGER NOT NULL
	);

	-- History hot path: per-product, newest first
	CREATE INDEX IF NOT EXISTS idx_transactions_product_ts
		ON transactions(product_id, timestamp DESC, seq);
	`

	_, err := s.db.Exec(schema)
	return err
}

// dbtx is satisfied by both *sql.DB and *sql.Tx so the same helpers can
// run directly or inside a transaction.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// PRODUCT STORE (ledger.ProductStore interface)
// =============================================================================

// InsertProduct adds a product. The sku uniqueness check rides on the
// UNIQUE index, making check+insert a single atomic step.
func (s *Store) InsertProduct(ctx context.Context, p ledger.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return insertProduct(ctx, s.db, p)
}

func insertProduct(ctx context.Context, db dbtx, p ledger.Product) error {
	query := `
		INSERT INTO products (id, name, sku, current_stock, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := db.ExecContext(ctx, query,
		string(p.ID),
		p.Name,
		p.SKU,
		p.CurrentStock,
		p.CreatedAt.UTC().Format(time.RFC3339Nano),
		p.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return &ledger.DuplicateSKUError{SKU: p.SKU}
		}
		return storeFault("failed to insert product", err)
	}
	return nil
}

// GetProduct returns the product or ledger.ErrNotFound.
func (s *Store) GetProduct(ctx context.Context, id ledger.ProductID) (ledger.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return getProduct(ctx, s.db, id)
}

func getProduct(ctx context.Context, db dbtx, id ledger.ProductID) (ledger.Product, error) {
	query := `
		SELECT id, name, sku, current_stock, created_at, updated_at
		FROM products WHERE id = ?
	`
	p, err := scanProduct(db.QueryRowContext(ctx, query, string(id)))
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.Product{}, ledger.ErrNotFound
	}
	if err != nil {
		return ledger.Product{}, storeFault("failed to get product", err)
	}
	return p, nil
}

// ListProducts returns all products in creation order.
func (s *Store) ListProducts(ctx context.Context) ([]ledger.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, name, sku, current_stock, created_at, updated_at
		FROM products ORDER BY created_at ASC, id ASC
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, storeFault("failed to list products", err)
	}
	defer rows.Close()

	var products []ledger.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, storeFault("failed to scan product", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// UpdateStock is a compare-and-set: the WHERE clause carries the expected
// balance, so a concurrent change makes the update a no-op and surfaces
// ErrConcurrentModification instead of losing it.
func (s *Store) UpdateStock(ctx context.Context, id ledger.ProductID, expected, newStock int, updatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return updateStock(ctx, s.db, id, expected, newStock, updatedAt)
}

func updateStock(ctx context.Context, db dbtx, id ledger.ProductID, expected, newStock int, updatedAt time.Time) error {
	query := `
		UPDATE products SET current_stock = ?, updated_at = ?
		WHERE id = ? AND current_stock = ?
	`
	res, err := db.ExecContext(ctx, query,
		newStock,
		updatedAt.UTC().Format(time.RFC3339Nano),
		string(id),
		expected,
	)
	if err != nil {
		return storeFault("failed to update stock", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return storeFault("failed to update stock", err)
	}
	if affected == 0 {
		// Distinguish "unknown product" from "balance moved underneath us"
		if _, err := getProduct(ctx, db, id); err != nil {
			return err
		}
		return ledger.ErrConcurrentModification
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (ledger.Product, error) {
	var (
		p         ledger.Product
		id        string
		createdAt string
		updatedAt string
	)
	if err := row.Scan(&id, &p.Name, &p.SKU, &p.CurrentStock, &createdAt, &updatedAt); err != nil {
		return ledger.Product{}, err
	}
	p.ID = ledger.ProductID(id)
	p.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	p.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return p, nil
}

// =============================================================================
// TRANSACTION LOG (ledger.TransactionLog interface)
// =============================================================================

// Append adds a transaction to the ledger.
func (s *Store) Append(ctx context.Context, tx ledger.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return appendTx(ctx, s.db, tx)
}

func appendTx(ctx context.Context, db dbtx, tx ledger.Transaction) error {
	query := `
		INSERT INTO transactions (id, product_id, tx_type, quantity, timestamp)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err := db.ExecContext(ctx, query,
		string(tx.ID),
		string(tx.ProductID),
		string(tx.Type),
		tx.Quantity,
		tx.Timestamp.UTC().UnixNano(),
	)
	if err != nil {
		return storeFault("failed to append transaction", err)
	}
	return nil
}

// History returns the product's transactions, newest first.
// Equal timestamps fall back to seq, i.e. insertion order.
func (s *Store) History(ctx context.Context, id ledger.ProductID) ([]ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, product_id, tx_type, quantity, timestamp
		FROM transactions
		WHERE product_id = ?
		ORDER BY timestamp DESC, seq ASC
	`
	rows, err := s.db.QueryContext(ctx, query, string(id))
	if err != nil {
		return nil, storeFault("failed to query transactions", err)
	}
	defer rows.Close()

	var transactions []ledger.Transaction
	for rows.Next() {
		var (
			tx        ledger.Transaction
			txID      string
			productID string
			txType    string
			ts        int64
		)
		if err := rows.Scan(&txID, &productID, &txType, &tx.Quantity, &ts); err != nil {
			return nil, storeFault("failed to scan transaction", err)
		}
		tx.ID = ledger.TransactionID(txID)
		tx.ProductID = ledger.ProductID(productID)
		tx.Type = ledger.TransactionType(txType)
		tx.Timestamp = time.Unix(0, ts).UTC()
		transactions = append(transactions, tx)
	}
	return transactions, rows.Err()
}

// =============================================================================
// TRANSACTIONAL STORE (ledger.TxStore interface)
// =============================================================================

// WithTx executes a function within a database transaction.
// The balance update and its log append commit or roll back together.
func (s *Store) WithTx(ctx context.Context, fn func(ledger.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storeFault("failed to begin transaction", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return storeFault("failed to commit transaction", err)
	}
	return nil
}

// txStore runs the store operations against an open *sql.Tx. The parent
// already holds the write lock for the duration of WithTx.
type txStore struct {
	tx *sql.Tx
}

func (t *txStore) InsertProduct(ctx context.Context, p ledger.Product) error {
	return insertProduct(ctx, t.tx, p)
}

func (t *txStore) GetProduct(ctx context.Context, id ledger.ProductID) (ledger.Product, error) {
	return getProduct(ctx, t.tx, id)
}

func (t *txStore) ListProducts(ctx context.Context) ([]ledger.Product, error) {
	query := `
		SELECT id, name, sku, current_stock, created_at, updated_at
		FROM products ORDER BY created_at ASC, id ASC
	`
	rows, err := t.tx.QueryContext(ctx, query)
	if err != nil {
		return nil, storeFault("failed to list products", err)
	}
	defer rows.Close()

	var products []ledger.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, storeFault("failed to scan product", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (t *txStore) UpdateStock(ctx context.Context, id ledger.ProductID, expected, newStock int, updatedAt time.Time) error {
	return updateStock(ctx, t.tx, id, expected, newStock, updatedAt)
}

func (t *txStore) Append(ctx context.Context, tx ledger.Transaction) error {
	return appendTx(ctx, t.tx, tx)
}

func (t *txStore) History(ctx context.Context, id ledger.ProductID) ([]ledger.Transaction, error) {
	query := `
		SELECT id, product_id, tx_type, quantity, timestamp
		FROM transactions
		WHERE product_id = ?
		ORDER BY timestamp DESC, seq ASC
	`
	rows, err := t.tx.QueryContext(ctx, query, string(id))
	if err != nil {
		return nil, storeFault("failed to query transactions", err)
	}
	defer rows.Close()

	var transactions []ledger.Transaction
	for rows.Next() {
		var (
			tx        ledger.Transaction
			txID      string
			productID string
			txType    string
			ts        int64
		)
		if err := rows.Scan(&txID, &productID, &txType, &tx.Quantity, &ts); err != nil {
			return nil, storeFault("failed to scan transaction", err)
		}
		tx.ID = ledger.TransactionID(txID)
		tx.ProductID = ledger.ProductID(productID)
		tx.Type = ledger.TransactionType(txType)
		tx.Timestamp = time.Unix(0, ts).UTC()
		transactions = append(transactions, tx)
	}
	return transactions, rows.Err()
}

// =============================================================================
// HELPERS
// =============================================================================

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}

// storeFault tags unexpected database errors as ErrStoreUnavailable so
// callers can treat them as retryable without inspecting driver errors.
func storeFault(msg string, err error) error {
	return fmt.Errorf("%s: %w", msg, errors.Join(ledger.ErrStoreUnavailable, err))
}
