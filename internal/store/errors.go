package store

import (
	"fmt"

	"citypulse/internal/models"
)

var (
	// ErrNotFound matches models.ErrNotFound so handlers can map it without importing store.
	ErrNotFound  = fmt.Errorf("store: run %w", models.ErrNotFound)
)
