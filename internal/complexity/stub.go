//go:build !cgo

package complexity

import (
	"context"
	"errors"
)

// ErrNoCGO is returned when tree-sitter is not compiled in.
var ErrNoCGO = errors.New("tree-sitter analysis requires CGO")

// Analyzer is unavailable without CGO.
type Analyzer struct{}

// NewAnalyzer returns nil when CGO is disabled.
func NewAnalyzer() *Analyzer {
	return nil
}

// AnalyzeSource always fails without CGO.
func (a *Analyzer) AnalyzeSource(ctx context.Context, path string, source []byte, lang Language) (*FileComplexity, error) {
	return nil, ErrNoCGO
}

// IsFunctionNode reports whether a node type starts a function body.
func IsFunctionNode(nodeType string) bool {
	return false
}

// IsAvailable returns false when CGO is disabled.
func IsAvailable() bool {
	return false
}
