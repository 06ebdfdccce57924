package gateway

import "errors"

var (
	ErrTxnNotFound       = errors.New("payment transaction not found")
	ErrDuplicateCallback = errors.New("callback already processed")
	ErrAmountMismatch    = errors.New("callback amount does not match transaction")
	ErrMethodDisabled    = errors.New("payment method is disabled")
	ErrInternal          = errors.New("internal gateway error")
)
