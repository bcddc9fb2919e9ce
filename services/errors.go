package services

import "errors"

// Sentinel errors services return so handlers can map them to status codes
// without string matching.
var (
	ErrUnknownTier    = errors.New("unknown tier")
	ErrTierFull       = errors.New("tier is full")
	ErrDuplicateEmail = errors.New("email already registered")
	ErrCodeCollision  = errors.New("referral code collision, please retry")
	ErrNotFound       = errors.New("not found")
	ErrNotVerified    = errors.New("entry is not verified")
	ErrRequiresAuth   = errors.New("identity verification required")
	ErrInvalidAddress = errors.New("invalid wallet address")
	ErrNotConfigured  = errors.New("integration not configured")
)
