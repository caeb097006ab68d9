package domain

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrUnknownToken  = errors.New("unknown token")
	ErrInvalidMarket = errors.New("invalid market")
	ErrMalformedBook = errors.New("malformed order book")
	ErrUpstream      = errors.New("upstream error")
	ErrLockHeld      = errors.New("lock already held")
	ErrInvalidAmount = errors.New("invalid amount")
)
