package sqlite_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/stock-ledger/ledger"
	"github.com/warp/stock-ledger/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func product(id, sku string, stock int) ledger.Product {
	now := time.Now().UTC()
	return ledger.Product{
		ID:           ledger.ProductID(id),
		Name:         "Product " + id,
		SKU:          sku,
		CurrentStock: stock,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// =============================================================================
// PRODUCT STORE
// =============================================================================

func TestSQLite_InsertAndGetProduct(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := product("p-1", "LP101", 10)
	require.NoError(t, s.InsertProduct(ctx, p))

	got, err := s.GetProduct(ctx, "p-1")
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
	assert.Equal(t, p.Name, got.Name)
	assert.Equal(t, "LP101", got.SKU)
	assert.Equal(t, 10, got.CurrentStock)
}

func TestSQLite_GetProduct_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetProduct(context.Background(), "nope")
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestSQLite_DuplicateSKU_UniqueConstraint(t *testing.T) {
	// The UNIQUE index makes check+insert one atomic step.

	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.InsertProduct(ctx, product("p-1", "LP101", 10)))

	err := s.InsertProduct(ctx, product("p-2", "LP101", 3))
	assert.ErrorIs(t, err, ledger.ErrDuplicateSKU)

	var dupErr *ledger.DuplicateSKUError
	require.ErrorAs(t, err, &dupErr)
	assert.Equal(t, "LP101", dupErr.SKU)
}

func TestSQLite_UpdateStock_CompareAndSet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.InsertProduct(ctx, product("p-1", "LP101", 10)))

	require.NoError(t, s.UpdateStock(ctx, "p-1", 10, 7, time.Now()))

	got, err := s.GetProduct(ctx, "p-1")
	require.NoError(t, err)
	assert.Equal(t, 7, got.CurrentStock)

	// Stale expected value is a conflict, not a silent lost update
	err = s.UpdateStock(ctx, "p-1", 10, 99, time.Now())
	assert.ErrorIs(t, err, ledger.ErrConcurrentModification)

	got, err = s.GetProduct(ctx, "p-1")
	require.NoError(t, err)
	assert.Equal(t, 7, got.CurrentStock)
}

func TestSQLite_UpdateStock_UnknownProduct(t *testing.T) {
	s := newTestStore(t)

	err := s.UpdateStock(context.Background(), "nope", 0, 1, time.Now())
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

// =============================================================================
// TRANSACTION LOG
// =============================================================================

func TestSQLite_History_NewestFirst_StableTies(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.InsertProduct(ctx, product("p-1", "LP101", 10)))

	base := time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC)
	entries := []ledger.Transaction{
		{ID: "a", ProductID: "p-1", Type: ledger.TxInitial, Quantity: 10, Timestamp: base},
		{ID: "b", ProductID: "p-1", Type: ledger.TxIncrease, Quantity: 1, Timestamp: base.Add(time.Minute)},
		{ID: "c", ProductID: "p-1", Type: ledger.TxDecrease, Quantity: 2, Timestamp: base.Add(time.Minute)},
	}
	for _, tx := range entries {
		require.NoError(t, s.Append(ctx, tx))
	}

	txs, err := s.History(ctx, "p-1")
	require.NoError(t, err)
	require.Len(t, txs, 3)

	// b and c share a timestamp: seq (insertion order) breaks the tie
	assert.Equal(t, ledger.TransactionID("b"), txs[0].ID)
	assert.Equal(t, ledger.TransactionID("c"), txs[1].ID)
	assert.Equal(t, ledger.TransactionID("a"), txs[2].ID)

	for i := 1; i < len(txs); i++ {
		assert.False(t, txs[i].Timestamp.After(txs[i-1].Timestamp))
	}
}

// =============================================================================
// TRANSACTIONAL STORE
// =============================================================================

func TestSQLite_WithTx_RollsBackOnError(t *testing.T) {
	// A failed unit must leave both the product and the log untouched.

	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.InsertProduct(ctx, product("p-1", "LP101", 5)))

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(txs ledger.Store) error {
		if err := txs.UpdateStock(ctx, "p-1", 5, 2, time.Now()); err != nil {
			return err
		}
		if err := txs.Append(ctx, ledger.Transaction{
			ID: "t-1", ProductID: "p-1", Type: ledger.TxDecrease, Quantity: 3, Timestamp: time.Now(),
		}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.GetProduct(ctx, "p-1")
	require.NoError(t, err)
	assert.Equal(t, 5, got.CurrentStock, "balance change must be rolled back")

	history, err := s.History(ctx, "p-1")
	require.NoError(t, err)
	assert.Empty(t, history, "log append must be rolled back")
}

func TestSQLite_WithTx_CommitsBalanceAndLogTogether(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.InsertProduct(ctx, product("p-1", "LP101", 5)))

	err := s.WithTx(ctx, func(txs ledger.Store) error {
		if err := txs.UpdateStock(ctx, "p-1", 5, 2, time.Now()); err != nil {
			return err
		}
		return txs.Append(ctx, ledger.Transaction{
			ID: "t-1", ProductID: "p-1", Type: ledger.TxDecrease, Quantity: 3, Timestamp: time.Now(),
		})
	})
	require.NoError(t, err)

	got, err := s.GetProduct(ctx, "p-1")
	require.NoError(t, err)
	assert.Equal(t, 2, got.CurrentStock)

	history, err := s.History(ctx, "p-1")
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

// =============================================================================
// ENGINE OVER SQLITE
// =============================================================================

func TestSQLite_EngineEndToEnd(t *testing.T) {
	// The full engine running against the SQLite store: create, adjust,
	// reject an overdraw, and verify the stored/derived equality.

	s := newTestStore(t)
	ctx := context.Background()
	engine := ledger.NewEngine(s)

	p, err := engine.CreateProduct(ctx, "Laptop", "lp101", 10)
	require.NoError(t, err)
	assert.Equal(t, "LP101", p.SKU)

	_, err = engine.AdjustStock(ctx, p.ID, 5, ledger.Increase)
	require.NoError(t, err)

	_, err = engine.AdjustStock(ctx, p.ID, 20, ledger.Decrease)
	assert.ErrorIs(t, err, ledger.ErrInsufficientStock)

	summary, err := engine.Summarize(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 15, summary.CurrentStock)
	assert.Equal(t, 15, summary.TotalIncreased)
	assert.Equal(t, 0, summary.TotalDecreased)

	txs, err := engine.History(ctx, p.ID)
	require.NoError(t, err)
	replayed, _, _ := ledger.Replay(txs)
	assert.Equal(t, summary.CurrentStock, replayed)
}

func TestSQLite_EngineConcurrentDecreases(t *testing.T) {
	// Same race property as the memory-store test, against real SQL
	// transactions: no lost updates, no negative stock.

	const (
		stock   = 20
		callers = 30
	)

	s := newTestStore(t)
	ctx := context.Background()
	engine := ledger.NewEngine(s)

	p, err := engine.CreateProduct(ctx, "Hot Item", "hot-1", stock)
	require.NoError(t, err)

	var (
		wg           sync.WaitGroup
		mu           sync.Mutex
		succeeded    int
		insufficient int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := engine.AdjustStock(ctx, p.ID, 1, ledger.Decrease)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, ledger.ErrInsufficientStock):
				insufficient++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, stock, succeeded)
	assert.Equal(t, callers-stock, insufficient)

	summary, err := engine.Summarize(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.CurrentStock)
	assert.Equal(t, stock, summary.TotalDecreased)
}
