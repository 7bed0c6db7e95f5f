package portfolio

import "errors"

var (
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrInvalidPrice        = errors.New("price must be positive")
	ErrInvalidFee          = errors.New("fee must not be negative")
	ErrInvalidDate         = errors.New("invalid transaction date")
	ErrInvalidKind         = errors.New("unknown transaction kind")
	ErrInsufficientBalance = errors.New("insufficient balance for sell")
	ErrIndexOutOfRange     = errors.New("transaction index out of range")
	ErrAssetNotFound       = errors.New("asset not found in portfolio")
)
