package ledger_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/warp/stock-ledger/ledger"
)

func tx(txType ledger.TransactionType, qty int) ledger.Transaction {
	return ledger.Transaction{
		ID:        "tx",
		ProductID: "p-1",
		Type:      txType,
		Quantity:  qty,
		Timestamp: time.Now(),
	}
}

func TestReplay_InitialCountsAsIncrease(t *testing.T) {
	// The starting stock is summed into totalIncreased, same as increases.

	txs := []ledger.Transaction{
		tx(ledger.TxInitial, 10),
		tx(ledger.TxIncrease, 5),
		tx(ledger.TxDecrease, 3),
	}

	stock, increased, decreased := ledger.Replay(txs)
	assert.Equal(t, 15, increased)
	assert.Equal(t, 3, decreased)
	assert.Equal(t, 12, stock)
}

func TestReplay_EmptyLog(t *testing.T) {
	stock, increased, decreased := ledger.Replay(nil)
	assert.Equal(t, 0, stock)
	assert.Equal(t, 0, increased)
	assert.Equal(t, 0, decreased)
}

func TestSummarize_UsesStoredBalance(t *testing.T) {
	// Summarize trusts the product's stored balance for CurrentStock;
	// the totals come from the log.

	p := ledger.Product{
		ID:           "p-1",
		Name:         "Laptop",
		SKU:          "LP101",
		CurrentStock: 12,
	}
	txs := []ledger.Transaction{
		tx(ledger.TxInitial, 10),
		tx(ledger.TxIncrease, 5),
		tx(ledger.TxDecrease, 3),
	}

	s := ledger.Summarize(p, txs)
	assert.Equal(t, ledger.ProductID("p-1"), s.ProductID)
	assert.Equal(t, "Laptop", s.Name)
	assert.Equal(t, "LP101", s.SKU)
	assert.Equal(t, 12, s.CurrentStock)
	assert.Equal(t, 15, s.TotalIncreased)
	assert.Equal(t, 3, s.TotalDecreased)
	assert.Equal(t, s.TotalIncreased-s.TotalDecreased, s.CurrentStock)
}

func TestNormalizeSKU(t *testing.T) {
	assert.Equal(t, "LP101", ledger.NormalizeSKU("lp101"))
	assert.Equal(t, "LP101", ledger.NormalizeSKU("  Lp101 "))
	assert.Equal(t, "", ledger.NormalizeSKU("   "))
}
