/*
errors.go - Centralized error types for the ledger engine

PURPOSE:
  All error kinds in one place for consistency and discoverability.
  Every failure the engine can surface is one of these kinds, so callers
  (and the HTTP layer) can branch with errors.Is.

ERROR CATEGORIES:
  1. Validation errors - malformed input (ErrInvalidArgument)
  2. Business rule violations - ErrDuplicateSKU, ErrInsufficientStock
  3. Lookup failures - ErrNotFound
  4. Store-level failures - ErrStoreUnavailable, ErrConcurrentModification

USAGE:
  if errors.Is(err, ledger.ErrInsufficientStock) {
      // reject the decrease; nothing was written
  }

SEE ALSO:
  - engine.go: Produces these errors
  - api/handlers.go: Maps them to HTTP status codes
*/
package ledger

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidArgument is returned for malformed input: empty name or sku,
	// negative initial stock, non-positive quantity.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotFound is returned when a product id references no known product.
	ErrNotFound = errors.New("product not found")

	// ErrDuplicateSKU is returned when a create would reuse an existing SKU.
	// SKU comparison is case-insensitive (see NormalizeSKU).
	ErrDuplicateSKU = errors.New("sku already exists")

	// ErrInsufficientStock is returned when a decrease would take the balance
	// below zero. The operation has no side effects: no balance change and
	// no log entry.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrConcurrentModification is returned when the store's compare-and-set
	// detects that the balance changed underneath a writer. The engine's
	// per-product lock prevents this in normal operation; seeing it means a
	// writer bypassed the engine.
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// ErrStoreUnavailable wraps unexpected storage faults (connectivity,
	// corruption). Retrying is the caller's concern; the engine never
	// retries on its own.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InsufficientStockError reports how far short the balance fell.
type InsufficientStockError struct {
	ProductID ProductID
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: available %d, requested %d",
		e.ProductID, e.Available, e.Requested)
}

func (e *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock
}

// DuplicateSKUError reports which normalized SKU collided.
type DuplicateSKUError struct {
	SKU string
}

func (e *DuplicateSKUError) Error() string {
	return fmt.Sprintf("sku already exists: %s", e.SKU)
}

func (e *DuplicateSKUError) Unwrap() error {
	return ErrDuplicateSKU
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input
// or a violated business rule, rather than a fault in the system.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidArgument) ||
		errors.Is(err, ErrDuplicateSKU) ||
		errors.Is(err, ErrInsufficientStock)
}

// IsNotFound returns true if the error indicates a missing product.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable) ||
		errors.Is(err, ErrConcurrentModification)
}
