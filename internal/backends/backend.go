// Package backends selects the usage source the reference resolver reads.
package backends

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"pluginrefs/internal/backends/scip"
	"pluginrefs/internal/errors"
	"pluginrefs/internal/symbols"
)

// BackendID uniquely identifies a usage backend
type BackendID string

const (
	// BackendTreeSitter answers from the parsed project arena
	BackendTreeSitter BackendID = "treesitter"
	// BackendSCIP answers from a scip-typescript index, falling back to
	// the arena for property accesses
	BackendSCIP BackendID = "scip"
)

// UsageFinder returns usage sites for a symbol target.
type UsageFinder interface {
	Usages(t symbols.Target) ([]symbols.Location, error)
}

// Options selects and configures a backend.
type Options struct {
	Backend BackendID
	// IndexPath is resolved against the repo root when relative.
	IndexPath string
	// Command regenerates the index before loading it when set.
	Command []string
	// Commit is the snapshot commit, used to detect stale indexes.
	Commit string
	// Strict fails instead of falling back when the index is unusable.
	Strict bool
}

// Select returns the finder for a snapshot. A SCIP index that is missing
// or unreadable falls back to the tree-sitter arena unless Strict is set.
func Select(ctx context.Context, project *symbols.Project, opts Options, logger *slog.Logger) (UsageFinder, BackendID, error) {
	switch opts.Backend {
	case "", BackendTreeSitter:
		return project, BackendTreeSitter, nil
	case BackendSCIP:
	default:
		return nil, "", errors.New(errors.ConfigInvalid, fmt.Sprintf("unknown reference backend %q", opts.Backend), nil)
	}

	path := scip.IndexPath(project.Root(), opts.IndexPath)
	if len(opts.Command) > 0 {
		command := strings.Join(opts.Command, " ")
		logger.Info("Generating SCIP index", "command", command)
		if err := scip.Generate(ctx, project.Root(), command); err != nil {
			return fallback(project, opts, logger, err)
		}
	}
	index, err := scip.LoadIndex(path)
	if err != nil {
		return fallback(project, opts, logger, err)
	}
	if opts.Commit != "" && index.IsStale(opts.Commit) {
		logger.Warn("SCIP index may not match the snapshot",
			"indexedCommit", index.IndexedCommit,
			"commit", opts.Commit,
		)
	}
	logger.Info("Using SCIP index", "path", path, "documents", len(index.Documents))
	return scip.NewFinder(index, project), BackendSCIP, nil
}

func fallback(project *symbols.Project, opts Options, logger *slog.Logger, err error) (UsageFinder, BackendID, error) {
	if opts.Strict {
		return nil, "", err
	}
	logger.Warn("SCIP index unavailable, using tree-sitter", "error", err.Error())
	return project, BackendTreeSitter, nil
}
