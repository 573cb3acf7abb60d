/*
Package ledger provides the core stock ledger engine.

PURPOSE:
  This package tracks a quantity-on-hand balance per product and keeps an
  append-only record of every change to it. The two are kept mutually
  consistent: the stored balance always equals the net of the recorded
  transactions, and it never goes negative.

KEY CONCEPTS IN THIS FILE (types.go):
  - Product: The balance holder (id, name, sku, current stock)
  - Transaction: An immutable ledger entry recording one stock change
  - ProductID/TransactionID: Type-safe identifiers

DESIGN PRINCIPLES:
  1. Immutability: Transactions are never modified or deleted
  2. Single writer path: Only the Engine mutates products and the log
  3. Auditability: Every balance is explainable by replaying its log
  4. Type Safety: Strong typing for IDs prevents mixing product/transaction IDs

LIFECYCLE:
  A product is created exactly once, together with one INITIAL transaction
  recording its starting stock (zero included). Every later change appends
  exactly one INCREASE or DECREASE transaction and updates the balance as a
  single atomic unit. Products are never deleted.

SEE ALSO:
  - engine.go: The atomic mutation operations
  - store.go: Persistence interfaces
  - summary.go: Derived statistics and log replay
*/
package ledger

import (
	"strings"
	"time"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type ProductID string
type TransactionID string

// NormalizeSKU canonicalizes a SKU for storage and uniqueness checks.
// SKUs are case-insensitive: "lp101" and "LP101" are the same product.
func NormalizeSKU(sku string) string {
	return strings.ToUpper(strings.TrimSpace(sku))
}

// =============================================================================
// PRODUCT - Balance holder
// =============================================================================

// Product holds the current stock for one tracked item.
//
// INVARIANTS:
//   - CurrentStock >= 0 at all times
//   - CurrentStock equals the net of the product's transaction log:
//     sum(INITIAL + INCREASE quantities) - sum(DECREASE quantities)
//
// ID and SKU are immutable once set. UpdatedAt is bumped on every stock
// mutation.
type Product struct {
	ID           ProductID
	Name         string
	SKU          string
	CurrentStock int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// =============================================================================
// TRANSACTION - Immutable stock change record
// =============================================================================

type TransactionType string

const (
	TxInitial  TransactionType = "INITIAL"  // Starting stock recorded at creation
	TxIncrease TransactionType = "INCREASE" // Stock added
	TxDecrease TransactionType = "DECREASE" // Stock removed
)

// Direction selects which way AdjustStock moves the balance.
type Direction string

const (
	Increase Direction = "INCREASE"
	Decrease Direction = "DECREASE"
)

// TransactionType returns the log entry type a direction produces.
func (d Direction) TransactionType() TransactionType {
	if d == Decrease {
		return TxDecrease
	}
	return TxIncrease
}

// Transaction is one immutable entry in a product's ledger.
// Quantity is strictly positive for INCREASE/DECREASE; an INITIAL entry
// carries the starting stock, which may be zero. The Type carries the
// sign. Timestamp is the history sort key (descending, most recent first).
type Transaction struct {
	ID        TransactionID
	ProductID ProductID
	Type      TransactionType
	Quantity  int
	Timestamp time.Time
}
