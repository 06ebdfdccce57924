package order

import "errors"

var (
	ErrNotFound          = errors.New("order not found")
	ErrPurchaseNotFound  = errors.New("purchase not found")
	ErrInvalidState      = errors.New("invalid order state for this transition")
	ErrDuplicateCallback = errors.New("transaction already settled")
	ErrInternal          = errors.New("internal order error")
)
