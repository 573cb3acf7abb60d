/*
handlers.go - HTTP API handlers for the stock ledger

PURPOSE:
  Exposes the ledger engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to the engine. The invariant lives in
  the engine; this layer only translates.

ENDPOINTS:
  Products:
    GET    /api/products                      List all products
    POST   /api/products                      Create product (+ INITIAL tx)
    GET    /api/products/{id}                 Product summary
    GET    /api/products/{id}/transactions    Transaction history
    POST   /api/products/{id}/increase        Increase stock
    POST   /api/products/{id}/decrease        Decrease stock

ERROR HANDLING:
  Engine error kinds map to HTTP status:
  - 400: ErrInvalidArgument (bad input shape or values)
  - 404: ErrNotFound
  - 409: ErrDuplicateSKU, ErrInsufficientStock
  - 503: ErrStoreUnavailable (caller may retry)
  - 500: anything else

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/warp/stock-ledger/ledger"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Engine *ledger.Engine
}

// NewHandler creates a new handler around the given engine.
func NewHandler(engine *ledger.Engine) *Handler {
	return &Handler{Engine: engine}
}

// =============================================================================
// PRODUCT HANDLERS
// =============================================================================

// ListProducts returns all products.
// GET /api/products
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.Engine.ListProducts(r.Context())
	if err != nil {
		writeEngineError(w, "Failed to list products", err)
		return
	}

	dtos := make([]ProductDTO, len(products))
	for i, p := range products {
		dtos[i] = toProductDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateProduct creates a product together with its INITIAL transaction.
// POST /api/products
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" || req.SKU == "" || req.InitialStock == nil {
		writeError(w, http.StatusBadRequest, "Missing required fields: name, sku, initial_stock", nil)
		return
	}

	p, err := h.Engine.CreateProduct(r.Context(), req.Name, req.SKU, *req.InitialStock)
	if err != nil {
		writeEngineError(w, "Failed to create product", err)
		return
	}

	writeJSON(w, http.StatusCreated, toProductDTO(p))
}

// GetSummary returns the product summary with totals derived from the log.
// GET /api/products/{id}
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	id := ledger.ProductID(chi.URLParam(r, "id"))

	summary, err := h.Engine.Summarize(r.Context(), id)
	if err != nil {
		writeEngineError(w, "Failed to summarize product", err)
		return
	}

	writeJSON(w, http.StatusOK, toSummaryDTO(summary))
}

// GetTransactions returns the product's history, most recent first.
// GET /api/products/{id}/transactions
func (h *Handler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	id := ledger.ProductID(chi.URLParam(r, "id"))

	txs, err := h.Engine.History(r.Context(), id)
	if err != nil {
		writeEngineError(w, "Failed to fetch transactions", err)
		return
	}

	writeJSON(w, http.StatusOK, toTransactionDTOs(txs))
}

// =============================================================================
// STOCK ADJUSTMENT HANDLERS
// =============================================================================

// IncreaseStock adds quantity to the product's balance.
// POST /api/products/{id}/increase
func (h *Handler) IncreaseStock(w http.ResponseWriter, r *http.Request) {
	h.adjustStock(w, r, ledger.Increase)
}

// DecreaseStock removes quantity from the product's balance.
// POST /api/products/{id}/decrease
func (h *Handler) DecreaseStock(w http.ResponseWriter, r *http.Request) {
	h.adjustStock(w, r, ledger.Decrease)
}

func (h *Handler) adjustStock(w http.ResponseWriter, r *http.Request, direction ledger.Direction) {
	id := ledger.ProductID(chi.URLParam(r, "id"))

	var req AdjustStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Quantity <= 0 {
		writeError(w, http.StatusBadRequest, "Quantity must be greater than 0", nil)
		return
	}

	p, err := h.Engine.AdjustStock(r.Context(), id, req.Quantity, direction)
	if err != nil {
		writeEngineError(w, "Failed to adjust stock", err)
		return
	}

	writeJSON(w, http.StatusOK, toProductDTO(p))
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

// writeEngineError maps engine error kinds to HTTP status codes.
func writeEngineError(w http.ResponseWriter, message string, err error) {
	switch {
	case errors.Is(err, ledger.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, message, err)
	case errors.Is(err, ledger.ErrNotFound):
		writeError(w, http.StatusNotFound, "Product not found", nil)
	case errors.Is(err, ledger.ErrDuplicateSKU):
		writeError(w, http.StatusConflict, "SKU already exists", err)
	case errors.Is(err, ledger.ErrInsufficientStock):
		writeError(w, http.StatusConflict, "Insufficient stock", err)
	case errors.Is(err, ledger.ErrStoreUnavailable):
		writeError(w, http.StatusServiceUnavailable, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
