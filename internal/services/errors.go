package services

import "errors"

// Ledger operations reject bad input by returning one of these sentinels and
// leaving state untouched. Nothing a caller can pass makes an operation
// fatal; the errors exist so the View can tell the user what happened.
var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrNotFound       = errors.New("not found")
	ErrNotPortionable = errors.New("recipe cannot be portioned")
)
