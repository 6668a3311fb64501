package session

import (
	"errors"

	"github.com/fjod/go_kitchen/internal/cart"
)

var (
	ErrSignInRequired  = errors.New("sign-in required")
	ErrInvalidItem     = cart.ErrInvalidItem
	ErrNotOrderable    = errors.New("dish cannot be ordered")
	ErrRateLimited     = errors.New("too many requests")
	ErrSessionNotFound = errors.New("session not found")
)
