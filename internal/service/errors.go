package service

import "errors"

var (
	ErrCategoryNotFound   = errors.New("category not found")
	ErrProductNotFound    = errors.New("product not found")
	ErrCartItemNotFound   = errors.New("cart item not found")
	ErrQuantityInvalid    = errors.New("quantity must be > 0")
	ErrEmptyCart          = errors.New("cart is empty")
	ErrIncompleteCheckout = errors.New("checkout is not confirmed")
	ErrValidation         = errors.New("invalid input")
	ErrProductUnavailable = errors.New("product is no longer available")
	ErrCommitConflict     = errors.New("order commit already in progress")
	ErrPartialCommit      = errors.New("order committed partially, needs reconciliation")
)
