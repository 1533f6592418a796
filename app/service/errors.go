package service

import "errors"

var (
	ErrOrderNotFound       = errors.New("order not found")
	ErrAlreadyTerminal     = errors.New("order is not pending")
	ErrExpired             = errors.New("expired")
	ErrAmountMismatch      = errors.New("confirmed amount does not match order amount")
	ErrInvalidSignature    = errors.New("callback rejected")
	ErrReplayDetected      = errors.New("replay detected")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidAmount       = errors.New("amount must be a positive integer")
	ErrInvalidProduct      = errors.New("invalid product")
	ErrOrderNumberConflict = errors.New("order number conflict, retry with a new number")
	ErrTierNotFound        = errors.New("membership tier not found")
	ErrNoActiveSub         = errors.New("no active subscription")
	ErrInvalidCallback     = errors.New("invalid callback")
)
