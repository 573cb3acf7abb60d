/*
summary.go - Derived statistics from the transaction log

PURPOSE:
  Computes {currentStock, totalIncreased, totalDecreased} for a product.
  Summarize uses the stored balance (the authoritative field); Replay
  recomputes the balance purely from the log.

KEY INVARIANT:
  CurrentStock == TotalIncreased - TotalDecreased

  Replay exists so tests can verify this stored/derived equality. It is
  NOT a second mutation path: production code always reads the stored
  balance, and only the engine writes it.

SEMANTICS:
  TotalIncreased sums INITIAL and INCREASE quantities — the starting
  stock counts as an increase. TotalDecreased sums DECREASE quantities.

SEE ALSO:
  - engine.go: Engine.Summarize wires this to the store
*/
package ledger

// Summary is the product identity plus the totals derived from its log.
type Summary struct {
	ProductID      ProductID
	Name           string
	SKU            string
	CurrentStock   int
	TotalIncreased int
	TotalDecreased int
}

// Summarize builds a Summary from the stored balance and the product's
// transactions. The stored field is trusted for CurrentStock; the totals
// come from the log.
func Summarize(p Product, txs []Transaction) Summary {
	increased, decreased := tally(txs)
	return Summary{
		ProductID:      p.ID,
		Name:           p.Name,
		SKU:            p.SKU,
		CurrentStock:   p.CurrentStock,
		TotalIncreased: increased,
		TotalDecreased: decreased,
	}
}

// Replay recomputes the balance by replaying the transaction log.
// Returns (netStock, totalIncreased, totalDecreased). Used to check the
// stored balance against its history.
func Replay(txs []Transaction) (stock, increased, decreased int) {
	increased, decreased = tally(txs)
	return increased - decreased, increased, decreased
}

func tally(txs []Transaction) (increased, decreased int) {
	for _, tx := range txs {
		switch tx.Type {
		case TxInitial, TxIncrease:
			increased += tx.Quantity
		case TxDecrease:
			decreased += tx.Quantity
		}
	}
	return increased, decreased
}
