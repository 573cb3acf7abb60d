/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Shape validation (missing fields, wrong types) is done in handlers;
  business validation (non-negative stock, sku uniqueness) lives in the
  engine. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/warp/stock-ledger/ledger"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// ProductDTO represents a product in API responses.
type ProductDTO struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	SKU          string `json:"sku"`
	CurrentStock int    `json:"current_stock"`
	CreatedAt    string `json:"created_at,omitempty"`
	UpdatedAt    string `json:"updated_at,omitempty"`
}

// CreateProductRequest is the request to create a product.
// InitialStock is a pointer so a missing field can be told apart from an
// explicit zero (zero is a valid starting stock).
type CreateProductRequest struct {
	Name         string `json:"name"`
	SKU          string `json:"sku"`
	InitialStock *int   `json:"initial_stock"`
}

// AdjustStockRequest is the request body for increase/decrease endpoints.
type AdjustStockRequest struct {
	Quantity int `json:"quantity"`
}

// SummaryDTO is the product summary: identity, current balance, and the
// totals derived from the transaction log.
type SummaryDTO struct {
	Product        ProductIdentityDTO `json:"product"`
	CurrentStock   int                `json:"current_stock"`
	TotalIncreased int                `json:"total_increased"`
	TotalDecreased int                `json:"total_decreased"`
}

// ProductIdentityDTO carries just the identity fields inside a summary.
type ProductIdentityDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	SKU  string `json:"sku"`
}

// TransactionDTO represents a ledger transaction.
type TransactionDTO struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id"`
	Type      string `json:"type"`
	Quantity  int    `json:"quantity"`
	Timestamp string `json:"timestamp"`
}

// ErrorResponse is the JSON body for error replies.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERTERS
// =============================================================================

func toProductDTO(p ledger.Product) ProductDTO {
	return ProductDTO{
		ID:           string(p.ID),
		Name:         p.Name,
		SKU:          p.SKU,
		CurrentStock: p.CurrentStock,
		CreatedAt:    p.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    p.UpdatedAt.Format(time.RFC3339),
	}
}

func toSummaryDTO(s ledger.Summary) SummaryDTO {
	return SummaryDTO{
		Product: ProductIdentityDTO{
			ID:   string(s.ProductID),
			Name: s.Name,
			SKU:  s.SKU,
		},
		CurrentStock:   s.CurrentStock,
		TotalIncreased: s.TotalIncreased,
		TotalDecreased: s.TotalDecreased,
	}
}

func toTransactionDTO(tx ledger.Transaction) TransactionDTO {
	return TransactionDTO{
		ID:        string(tx.ID),
		ProductID: string(tx.ProductID),
		Type:      string(tx.Type),
		Quantity:  tx.Quantity,
		Timestamp: tx.Timestamp.Format(time.RFC3339Nano),
	}
}

func toTransactionDTOs(txs []ledger.Transaction) []TransactionDTO {
	dtos := make([]TransactionDTO, len(txs))
	for i, tx := range txs {
		dtos[i] = toTransactionDTO(tx)
	}
	return dtos
}
