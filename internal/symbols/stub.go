//go:build !cgo

package symbols

import (
	"context"
	"errors"
	"log/slog"
)

// ErrNoCGO is returned when tree-sitter is not compiled in.
var ErrNoCGO = errors.New("source parsing requires CGO")

// Load always fails without CGO.
func Load(ctx context.Context, root string, opts LoadOptions, logger *slog.Logger) (*Project, error) {
	return nil, ErrNoCGO
}

// ParseSource always fails without CGO.
func ParseSource(ctx context.Context, rel string, src []byte) (*Project, error) {
	return nil, ErrNoCGO
}

// IsAvailable returns false when CGO is disabled.
func IsAvailable() bool {
	return false
}
