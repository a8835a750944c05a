package orders

// Error carries a machine-readable code the client can act on.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Code + ": " + e.Message }

var (
	ErrCartMismatch = &Error{Code: "CART_MISMATCH",
		Message: "idempotency key was used with a different cart; mint a new key"}
	ErrIdempotencyKeyExpired = &Error{Code: "IDEMPOTENCY_KEY_EXPIRED",
		Message: "order or payment session for this key is no longer reusable; retry with a fresh key"}
	ErrInsufficientStock = &Error{Code: "INSUFFICIENT_STOCK",
		Message: "requested quantity exceeds available stock"}
	ErrInvalidCart = &Error{Code: "INVALID_CART",
		Message: "cart is empty or contains invalid items"}
	ErrProviderUnavailable = &Error{Code: "PAYMENT_PROVIDER_UNAVAILABLE",
		Message: "payment processor unreachable; order is pending and the request may be retried"}
	ErrOrderNotFound = &Error{Code: "ORDER_NOT_FOUND", Message: "order not found"}

	// internal coordination errors, never surfaced with these codes
	ErrAlreadyPaid         = &Error{Code: "ALREADY_PAID", Message: "order is already paid"}
	ErrIdempotencyConflict = &Error{Code: "IDEMPOTENCY_CONFLICT", Message: "lost idempotency key insert race"}
	ErrNoTransition        = &Error{Code: "NO_TRANSITION", Message: "fulfillment state unchanged"}
)
