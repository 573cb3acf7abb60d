// Package store provides an in-memory Store implementation (for testing/dev).
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/warp/stock-ledger/ledger"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu       sync.RWMutex
	products map[ledger.ProductID]ledger.Product
	order    []ledger.ProductID // creation order, for ListProducts
	skus     map[string]ledger.ProductID
	log      map[ledger.ProductID][]ledger.Transaction // insertion order
}

func NewMemory() *Memory {
	return &Memory{
		products: make(map[ledger.ProductID]ledger.Product),
		skus:     make(map[string]ledger.ProductID),
		log:      make(map[ledger.ProductID][]ledger.Transaction),
	}
}

// InsertProduct adds a product. The SKU check and the insert happen under
// one lock section, so concurrent creates with the same SKU resolve
// deterministically: one wins, the other gets DuplicateSKUError.
func (m *Memory) InsertProduct(_ context.Context, p ledger.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertProductLocked(p)
}

func (m *Memory) insertProductLocked(p ledger.Product) error {
	if _, exists := m.skus[p.SKU]; exists {
		return &ledger.DuplicateSKUError{SKU: p.SKU}
	}
	m.products[p.ID] = p
	m.order = append(m.order, p.ID)
	m.skus[p.SKU] = p.ID
	return nil
}

func (m *Memory) GetProduct(_ context.Context, id ledger.ProductID) (ledger.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.products[id]
	if !ok {
		return ledger.Product{}, ledger.ErrNotFound
	}
	return p, nil
}

func (m *Memory) ListProducts(_ context.Context) ([]ledger.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]ledger.Product, 0, len(m.order))
	for _, id := range m.order {
		result = append(result, m.products[id])
	}
	return result, nil
}

// UpdateStock commits newStock only if the stored balance still equals
// expected (compare-and-set).
func (m *Memory) UpdateStock(_ context.Context, id ledger.ProductID, expected, newStock int, updatedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateStockLocked(id, expected, newStock, updatedAt)
}

func (m *Memory) updateStockLocked(id ledger.ProductID, expected, newStock int, updatedAt time.Time) error {
	p, ok := m.products[id]
	if !ok {
		return ledger.ErrNotFound
	}
	if p.CurrentStock != expected {
		return ledger.ErrConcurrentModification
	}
	p.CurrentStock = newStock
	p.UpdatedAt = updatedAt
	m.products[id] = p
	return nil
}

// Append adds a single transaction. Append-only.
func (m *Memory) Append(_ context.Context, tx ledger.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appendLocked(tx)
	return nil
}

func (m *Memory) appendLocked(tx ledger.Transaction) {
	m.log[tx.ProductID] = append(m.log[tx.ProductID], tx)
}

// History returns the product's transactions, newest first. The stable
// sort keeps insertion order for equal timestamps.
func (m *Memory) History(_ context.Context, id ledger.ProductID) ([]ledger.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]ledger.Transaction, len(m.log[id]))
	copy(result, m.log[id])
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Timestamp.After(result[j].Timestamp)
	})
	return result, nil
}

// =============================================================================
// TRANSACTIONAL MEMORY STORE
// =============================================================================

// TxMemory wraps Memory with transaction support.
type TxMemory struct {
	*Memory
}

func NewTxMemory() *TxMemory {
	return &TxMemory{Memory: NewMemory()}
}

// WithTx executes fn within a transaction.
// For the memory store this is simulated with a snapshot + rollback on error.
func (tm *TxMemory) WithTx(_ context.Context, fn func(ledger.Store) error) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	snapshot := tm.snapshot()

	view := &txMemoryView{parent: tm}
	if err := fn(view); err != nil {
		tm.restore(snapshot)
		return err
	}
	return nil
}

func (tm *TxMemory) snapshot() memorySnapshot {
	productsCopy := make(map[ledger.ProductID]ledger.Product, len(tm.products))
	for k, v := range tm.products {
		productsCopy[k] = v
	}
	skusCopy := make(map[string]ledger.ProductID, len(tm.skus))
	for k, v := range tm.skus {
		skusCopy[k] = v
	}
	logCopy := make(map[ledger.ProductID][]ledger.Transaction, len(tm.log))
	for k, v := range tm.log {
		logCopy[k] = append([]ledger.Transaction{}, v...)
	}
	return memorySnapshot{
		products: productsCopy,
		order:    append([]ledger.ProductID{}, tm.order...),
		skus:     skusCopy,
		log:      logCopy,
	}
}

func (tm *TxMemory) restore(s memorySnapshot) {
	tm.products = s.products
	tm.order = s.order
	tm.skus = s.skus
	tm.log = s.log
}

type memorySnapshot struct {
	products map[ledger.ProductID]ledger.Product
	order    []ledger.ProductID
	skus     map[string]ledger.ProductID
	log      map[ledger.ProductID][]ledger.Transaction
}

// txMemoryView writes directly against the parent, which already holds
// the lock for the duration of WithTx.
type txMemoryView struct {
	parent *TxMemory
}

func (tv *txMemoryView) InsertProduct(_ context.Context, p ledger.Product) error {
	return tv.parent.insertProductLocked(p)
}

func (tv *txMemoryView) GetProduct(_ context.Context, id ledger.ProductID) (ledger.Product, error) {
	p, ok := tv.parent.products[id]
	if !ok {
		return ledger.Product{}, ledger.ErrNotFound
	}
	return p, nil
}

func (tv *txMemoryView) ListProducts(_ context.Context) ([]ledger.Product, error) {
	result := make([]ledger.Product, 0, len(tv.parent.order))
	for _, id := range tv.parent.order {
		result = append(result, tv.parent.products[id])
	}
	return result, nil
}

func (tv *txMemoryView) UpdateStock(_ context.Context, id ledger.ProductID, expected, newStock int, updatedAt time.Time) error {
	return tv.parent.updateStockLocked(id, expected, newStock, updatedAt)
}

func (tv *txMemoryView) Append(_ context.Context, tx ledger.Transaction) error {
	tv.parent.appendLocked(tx)
	return nil
}

func (tv *txMemoryView) History(_ context.Context, id ledger.ProductID) ([]ledger.Transaction, error) {
	result := make([]ledger.Transaction, len(tv.parent.log[id]))
	copy(result, tv.parent.log[id])
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Timestamp.After(result[j].Timestamp)
	})
	return result, nil
}
