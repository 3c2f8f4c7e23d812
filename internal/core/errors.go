// AngelaMos | 2026
// errors.go

package core

import (
	"errors"
)

// Generic infrastructure errors. Repositories and clients wrap these so
// callers can branch with errors.Is without knowing the storage technology.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrDuplicateKey = errors.New("duplicate key")
	ErrInvalidInput = errors.New("invalid input")
)

// Domain errors for the subscription lifecycle.
var (
	ErrUserNotFound             = errors.New("user not found")
	ErrEmailTaken               = errors.New("email already registered")
	ErrWalletNotFound           = errors.New("wallet not registered")
	ErrActiveSubscriptionExists = errors.New("active subscription already exists")
	ErrSubscriptionNotFound     = errors.New("subscription not found")
	ErrSubscriptionCanceled     = errors.New("subscription already canceled")
	ErrInsufficientBalance      = errors.New("insufficient wallet balance")
	ErrWalletTransaction        = errors.New("wallet transaction failed")
)
