/*
engine.go - The atomic stock mutation engine

PURPOSE:
  The Engine orchestrates the ProductStore and TransactionLog to provide
  the three mutating operations (create, increase, decrease) and the read
  operations (summary, history), enforcing the non-negative-stock
  invariant and the atomicity of balance update + log append.

CRITICAL SECTION:
  The read-modify-write of the balance together with the append of its
  transaction is the atomicity boundary. Two concurrent adjustments on the
  SAME product are serialized by a per-product mutex; adjustments on
  different products never block each other. The store's compare-and-set
  backstops the lock: if anything mutates the balance outside the engine,
  the commit fails with ErrConcurrentModification instead of losing an
  update.

WHY A PER-PRODUCT LOCK?
  The naive sequence "read stock, check sufficiency, write stock, append"
  has a classic lost-update race: two decreases can both pass the check
  against the same balance. Holding the product's lock across the whole
  sequence makes it one indivisible step.

NOT IDEMPOTENT:
  AdjustStock applied twice legitimately changes state twice. Callers
  needing idempotence must dedupe by an external request id.

SEE ALSO:
  - store.go: Persistence interfaces
  - summary.go: Derived statistics
*/
package ledger

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// ENGINE
// =============================================================================

// Engine is the single writer of products and transactions. It holds its
// store for its entire lifetime; there is no ambient global state.
type Engine struct {
	store TxStore

	// NewID generates identifiers for products and transactions.
	// Replaceable so an outer layer can propagate its own ids.
	NewID func() string

	// Now is the clock. Replaceable in tests.
	Now func() time.Time

	mu    sync.Mutex
	locks map[ProductID]*sync.Mutex
}

// NewEngine creates an engine writing through the given store.
func NewEngine(store TxStore) *Engine {
	return &Engine{
		store: store,
		NewID: uuid.NewString,
		Now:   func() time.Time { return time.Now().UTC() },
		locks: make(map[ProductID]*sync.Mutex),
	}
}

// lockProduct returns the mutex serializing writers for one product.
// Locks are allocated lazily and never released: products are never
// deleted, and a mutex per product is cheap.
func (e *Engine) lockProduct(id ProductID) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.locks[id]
	if !ok {
		l = &sync.Mutex{}
		e.locks[id] = l
	}
	return l
}

// =============================================================================
// CREATE
// =============================================================================

// CreateProduct inserts a new product with the given starting stock and
// records one INITIAL transaction for it, atomically.
//
// The SKU is normalized to uppercase before the uniqueness check. A zero
// initial stock is valid and still produces an INITIAL entry, so every
// product has at least one transaction.
func (e *Engine) CreateProduct(ctx context.Context, name, sku string, initialStock int) (Product, error) {
	name = strings.TrimSpace(name)
	sku = NormalizeSKU(sku)
	if name == "" || sku == "" || initialStock < 0 {
		return Product{}, ErrInvalidArgument
	}

	now := e.Now()
	p := Product{
		ID:           ProductID(e.NewID()),
		Name:         name,
		SKU:          sku,
		CurrentStock: initialStock,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	tx := Transaction{
		ID:        TransactionID(e.NewID()),
		ProductID: p.ID,
		Type:      TxInitial,
		Quantity:  initialStock,
		Timestamp: now,
	}

	err := e.store.WithTx(ctx, func(s Store) error {
		if err := s.InsertProduct(ctx, p); err != nil {
			return err
		}
		return s.Append(ctx, tx)
	})
	if err != nil {
		return Product{}, err
	}
	return p, nil
}

// =============================================================================
// ADJUST
// =============================================================================

// AdjustStock moves a product's balance by quantity in the given
// direction and appends the matching transaction, as one atomic unit.
//
// A DECREASE larger than the current balance aborts with
// ErrInsufficientStock and makes NO state change: no log entry, no
// balance change.
func (e *Engine) AdjustStock(ctx context.Context, id ProductID, quantity int, direction Direction) (Product, error) {
	if quantity <= 0 {
		return Product{}, ErrInvalidArgument
	}
	if direction != Increase && direction != Decrease {
		return Product{}, ErrInvalidArgument
	}

	lock := e.lockProduct(id)
	lock.Lock()
	defer lock.Unlock()

	p, err := e.store.GetProduct(ctx, id)
	if err != nil {
		return Product{}, err
	}

	newStock := p.CurrentStock + quantity
	if direction == Decrease {
		if quantity > p.CurrentStock {
			return Product{}, &InsufficientStockError{
				ProductID: id,
				Available: p.CurrentStock,
				Requested: quantity,
			}
		}
		newStock = p.CurrentStock - quantity
	}

	now := e.Now()
	tx := Transaction{
		ID:        TransactionID(e.NewID()),
		ProductID: id,
		Type:      direction.TransactionType(),
		Quantity:  quantity,
		Timestamp: now,
	}

	err = e.store.WithTx(ctx, func(s Store) error {
		if err := s.UpdateStock(ctx, id, p.CurrentStock, newStock, now); err != nil {
			return err
		}
		return s.Append(ctx, tx)
	})
	if err != nil {
		return Product{}, err
	}

	p.CurrentStock = newStock
	p.UpdatedAt = now
	return p, nil
}

// IncreaseStock is shorthand for AdjustStock with direction Increase.
func (e *Engine) IncreaseStock(ctx context.Context, id ProductID, quantity int) (Product, error) {
	return e.AdjustStock(ctx, id, quantity, Increase)
}

// DecreaseStock is shorthand for AdjustStock with direction Decrease.
func (e *Engine) DecreaseStock(ctx context.Context, id ProductID, quantity int) (Product, error) {
	return e.AdjustStock(ctx, id, quantity, Decrease)
}

// =============================================================================
// READS
// =============================================================================

// Summarize returns the product's identity, its current balance, and the
// totals derived from its transaction log.
func (e *Engine) Summarize(ctx context.Context, id ProductID) (Summary, error) {
	p, err := e.store.GetProduct(ctx, id)
	if err != nil {
		return Summary{}, err
	}
	txs, err := e.store.History(ctx, id)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(p, txs), nil
}

// History returns the product's transactions, most recent first.
// The product's existence is checked first so a missing product is
// reported as ErrNotFound rather than as an empty history (which cannot
// occur: creation always logs an INITIAL entry).
func (e *Engine) History(ctx context.Context, id ProductID) ([]Transaction, error) {
	if _, err := e.store.GetProduct(ctx, id); err != nil {
		return nil, err
	}
	return e.store.History(ctx, id)
}

// ListProducts returns all products, ordered by creation time.
func (e *Engine) ListProducts(ctx context.Context) ([]Product, error) {
	return e.store.ListProducts(ctx)
}
