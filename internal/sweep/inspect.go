package sweep

import (
	"context"
	"log/slog"

	"pluginrefs/internal/apisurface"
	"pluginrefs/internal/config"
	"pluginrefs/internal/errors"
	"pluginrefs/internal/plugins"
	"pluginrefs/internal/symbols"
)

// Registry discovers the plugins of the tree at root without indexing.
func Registry(cfg *config.Config, root string, logger *slog.Logger) (*plugins.Registry, *plugins.Result, error) {
	discovered, err := plugins.Discover(root, PluginOptions(cfg), logger)
	if err != nil {
		return nil, nil, err
	}
	return plugins.NewRegistry(root, discovered.Plugins, cfg.Plugins.RestrictedDirs), discovered, nil
}

// Surface extracts the API symbols of the tree at root as a sweep of kind
// would see them. entryFiles replaces the configured filters when set.
func Surface(ctx context.Context, cfg *config.Config, root string, kind Kind, entryFiles []string, logger *slog.Logger) ([]symbols.APISymbol, []apisurface.Failure, error) {
	registry, _, err := Registry(cfg, root, logger)
	if err != nil {
		return nil, nil, err
	}
	project, err := symbols.Load(ctx, root, LoadOptions(cfg), logger)
	if err != nil {
		return nil, nil, errors.New(errors.ExtractionFailure, "Failed to load project", err)
	}
	filters := entryFiles
	if len(filters) == 0 {
		filters = EntryFilters(cfg, kind)
	}
	syms, failures := apisurface.Extract(project, apisurface.SelectEntryFiles(project, filters), registry, logger)
	return syms, failures, nil
}
