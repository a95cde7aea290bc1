package ledger

import "errors"

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrRefNotFound         = errors.New("merchant_ref not found")
	ErrDuplicateRef        = errors.New("merchant_ref already exists")
	ErrInsufficientBalance = errors.New("insufficient balance")
)
