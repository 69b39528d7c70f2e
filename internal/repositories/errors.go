package repositories

import "errors"

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
	// ErrLostClaim means the item is no longer PROCESSING, so the caller does
	// not own it anymore.
	ErrLostClaim = errors.New("queue item is not claimed")
)
