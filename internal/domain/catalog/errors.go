package catalog

import "errors"

var (
	ErrNotFound       = errors.New("item not found")
	ErrMethodNotFound = errors.New("payment method not found")
	ErrInternal       = errors.New("internal catalog error")
)
