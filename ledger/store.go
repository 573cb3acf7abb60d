/*
store.go - Persistence interfaces for products and the transaction log

PURPOSE:
  Defines the interface between the engine and the database. Two concerns,
  kept as separate interfaces: the ProductStore (current balances) and the
  TransactionLog (append-only history). A Store provides both; a TxStore
  additionally lets the engine commit a balance update and its log entry
  as one atomic unit.

APPEND-ONLY CONTRACT:
  The TransactionLog has no Update or Delete. Corrections to a balance are
  made with new INCREASE/DECREASE transactions, never by editing history.

ATOMIC UNIT:
  WithTx() is the atomicity boundary: the engine updates the balance and
  appends the matching transaction inside one WithTx call. Either both
  writes commit or neither does — a failed decrease must leave the product
  and its history byte-for-byte unchanged.

IMPLEMENTATIONS:
  - ledger/store/memory.go: In-memory, snapshot-rollback transactions
  - store/sqlite/sqlite.go: SQLite with real SQL transactions

SEE ALSO:
  - engine.go: The only writer through these interfaces
*/
package ledger

import (
	"context"
	"time"
)

// =============================================================================
// PRODUCT STORE - Current balance per product
// =============================================================================

// ProductStore holds the authoritative current stock per product.
type ProductStore interface {
	// InsertProduct adds a new product. The SKU uniqueness check and the
	// insert are a single atomic step: of two concurrent inserts with the
	// same (normalized) SKU, exactly one succeeds and the other gets
	// ErrDuplicateSKU.
	InsertProduct(ctx context.Context, p Product) error

	// GetProduct returns the product or ErrNotFound.
	GetProduct(ctx context.Context, id ProductID) (Product, error)

	// ListProducts returns all products, ordered by creation time.
	ListProducts(ctx context.Context) ([]Product, error)

	// UpdateStock is a compare-and-set on the balance: it commits newStock
	// only if the stored balance still equals expected, bumping the
	// product's UpdatedAt to updatedAt. A mismatch returns
	// ErrConcurrentModification and writes nothing.
	UpdateStock(ctx context.Context, id ProductID, expected, newStock int, updatedAt time.Time) error
}

// =============================================================================
// TRANSACTION LOG - Append-only history
// =============================================================================

// TransactionLog is the immutable record of every stock change.
// IMPORTANT: Append-only. No Update, No Delete. Ever.
type TransactionLog interface {
	// Append persists one transaction. This is the ONLY write operation.
	Append(ctx context.Context, tx Transaction) error

	// History returns the product's transactions sorted by timestamp
	// descending (most recent first); equal timestamps keep insertion
	// order. Safe to call repeatedly; no cursor state.
	History(ctx context.Context, id ProductID) ([]Transaction, error)
}

// =============================================================================
// COMBINED STORE
// =============================================================================

// Store is what the engine holds for its entire lifetime. The engine is
// the only component that writes through it.
type Store interface {
	ProductStore
	TransactionLog
}

// TxStore wraps Store with transaction support.
// WithTx executes fn against a transactional view of the store: if fn
// returns an error the whole unit rolls back, otherwise it commits.
type TxStore interface {
	Store

	WithTx(ctx context.Context, fn func(Store) error) error
}
