// Package sweep re-derives plugin cross-references at each configured
// checkout point and indexes the results.
package sweep

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"pluginrefs/internal/apisurface"
	"pluginrefs/internal/backends"
	"pluginrefs/internal/backends/git"
	"pluginrefs/internal/codemetrics"
	"pluginrefs/internal/config"
	"pluginrefs/internal/docstore"
	"pluginrefs/internal/errors"
	"pluginrefs/internal/lock"
	"pluginrefs/internal/plugins"
	"pluginrefs/internal/references"
	"pluginrefs/internal/symbols"
)

// Checkout is the working tree the runner moves between snapshots.
type Checkout interface {
	Dir() string
	CheckoutToPoint(ctx context.Context, point string) (string, error)
	CommitDate(ctx context.Context) (time.Time, error)
}

// Runner executes sweeps. It is not safe for concurrent use; the checkout
// lock keeps separate processes apart.
type Runner struct {
	cfg      *config.Config
	checkout Checkout
	locker   lock.Locker
	indexer  *docstore.Indexer
	archiver Archiver
	rules    codemetrics.RuleSet
	logger   *slog.Logger

	// EntryFiles replaces the configured entry-file filters when set.
	EntryFiles []string

	now func() time.Time
}

// NewRunner wires a runner. archiver may be nil.
func NewRunner(cfg *config.Config, checkout Checkout, locker lock.Locker, store docstore.Store, archiver Archiver, logger *slog.Logger) *Runner {
	return &Runner{
		cfg:      cfg,
		checkout: checkout,
		locker:   locker,
		indexer:  docstore.NewIndexer(store, cfg.Store.BatchSize, logger),
		archiver: archiver,
		rules:    codemetrics.DefaultRules(),
		logger:   logger,
		now:      time.Now,
	}
}

// SetRules replaces the capability rules of the code sweep.
func (r *Runner) SetRules(rs codemetrics.RuleSet) {
	r.rules = rs
}

// Run processes every configured checkout point in order while holding
// the checkout lock. A failing snapshot is recorded and the sweep moves
// on, unless sweep.failFast is set, in which case Run returns the report
// so far together with the snapshot's error.
func (r *Runner) Run(ctx context.Context, kind Kind) (*SweepReport, error) {
	report := &SweepReport{
		ID:        uuid.NewString(),
		Kind:      kind,
		Repo:      r.cfg.Repo.Name,
		StartedAt: r.now().UTC(),
	}
	if err := r.locker.Acquire(ctx); err != nil {
		return nil, err
	}
	defer func() {
		if err := r.locker.Release(context.Background()); err != nil {
			r.logger.Warn("Failed to release checkout lock", "error", err.Error())
		}
	}()

	r.logger.Info("Starting sweep", "id", report.ID, "kind", kind, "snapshots", len(r.cfg.Snapshots.Points))
	var sweepErr error
	for _, point := range r.cfg.Snapshots.Points {
		if err := ctx.Err(); err != nil {
			sweepErr = err
			break
		}
		res := r.runSnapshot(ctx, kind, point)
		report.Results = append(report.Results, res)
		if res.Status == StatusFailure {
			r.logger.Error("Snapshot failed", "point", point, "code", res.ErrorCode, "error", res.Error)
			if r.cfg.Sweep.FailFast {
				sweepErr = res.err
				break
			}
			continue
		}
		r.logger.Info("Snapshot indexed",
			"point", point,
			"commit", res.CommitHash,
			"status", res.Status,
			"references", res.References,
			"documents", res.Documents,
			"durationMs", res.DurationMs,
		)
	}
	report.FinishedAt = r.now().UTC()

	r.logger.Info("Sweep finished",
		"id", report.ID,
		"success", report.Count(StatusSuccess),
		"partial", report.Count(StatusPartial),
		"failure", report.Count(StatusFailure),
	)
	if r.archiver != nil {
		if err := r.archiver.Archive(context.WithoutCancel(ctx), report); err != nil {
			r.logger.Warn("Failed to archive sweep report", "error", err.Error())
		}
	}
	return report, sweepErr
}

func (r *Runner) runSnapshot(ctx context.Context, kind Kind, point string) SnapshotResult {
	start := r.now()
	res := SnapshotResult{Point: point}
	finish := func(err error) SnapshotResult {
		res.DurationMs = r.now().Sub(start).Milliseconds()
		switch {
		case err != nil:
			res.Status = StatusFailure
			res.Error = err.Error()
			res.ErrorCode = string(errors.CodeOf(err))
			res.err = err
		case len(res.Skipped) > 0:
			res.Status = StatusPartial
		default:
			res.Status = StatusSuccess
		}
		return res
	}

	snap, err := r.checkoutPoint(ctx, point)
	if err != nil {
		return finish(err)
	}
	res.CommitHash = snap.CommitHash
	res.CommitDate = snap.CommitDate

	root := r.checkout.Dir()
	discovered, err := plugins.Discover(root, r.pluginOptions(), r.logger)
	if err != nil {
		return finish(err)
	}
	for _, f := range discovered.Failures {
		res.Skipped = append(res.Skipped, f.Error())
	}
	// Ownership is rebuilt for every snapshot.
	registry := plugins.NewRegistry(root, discovered.Plugins, r.cfg.Plugins.RestrictedDirs)
	res.Plugins = registry.Len()

	if kind == KindCode {
		return finish(r.indexCode(ctx, root, registry, snap, &res))
	}
	return finish(r.indexReferences(ctx, kind, root, registry, discovered.Plugins, snap, &res))
}

func (r *Runner) checkoutPoint(ctx context.Context, point string) (docstore.Snapshot, error) {
	hash, err := r.checkout.CheckoutToPoint(ctx, point)
	if err != nil {
		return docstore.Snapshot{}, err
	}
	date, err := r.checkout.CommitDate(ctx)
	if err != nil {
		return docstore.Snapshot{}, err
	}
	snap := docstore.Snapshot{CommitHash: hash, CommitDate: date}
	if !git.IsHead(point) {
		snap.DateLabel = point
	}
	return snap, nil
}

func (r *Runner) indexReferences(ctx context.Context, kind Kind, root string, registry *plugins.Registry, infos []plugins.PluginInfo, snap docstore.Snapshot, res *SnapshotResult) error {
	project, err := symbols.Load(ctx, root, r.loadOptions(), r.logger)
	if err != nil {
		return errors.New(errors.ExtractionFailure, "Failed to load project", err)
	}

	entries := apisurface.SelectEntryFiles(project, r.entryFilters(kind))
	syms, failures := apisurface.Extract(project, entries, registry, r.logger)
	for _, f := range failures {
		res.Skipped = append(res.Skipped, f.Error())
	}
	res.Symbols = len(syms)

	finder, backendID, err := backends.Select(ctx, project, backends.Options{
		Backend:   backends.BackendID(r.cfg.Extraction.ReferenceBackend),
		IndexPath: r.cfg.Extraction.SCIPIndex,
		Command:   r.cfg.Extraction.SCIPCommand,
		Commit:    snap.CommitHash,
		Strict:    r.cfg.Extraction.SCIPStrict,
	}, r.logger)
	if err != nil {
		return err
	}
	res.Backend = string(backendID)

	collected := references.Collect(syms, registry, finder, r.logger)
	for _, e := range collected.Errors {
		res.Skipped = append(res.Skipped, e.Error())
	}
	res.References = collected.Total

	repo := r.cfg.Repo.Name
	if err := r.write(ctx, snap, docstore.KindReferences, docstore.ReferenceDocuments(repo, collected.Facts), docstore.ReferenceMapping, res); err != nil {
		return err
	}
	if kind != KindAPI {
		return nil
	}
	if err := r.write(ctx, snap, docstore.KindAPI, docstore.APIDocuments(repo, syms, collected.PerSymbol, registry), docstore.APIMapping, res); err != nil {
		return err
	}
	return r.write(ctx, snap, docstore.KindPlugins, docstore.PluginDocuments(repo, infos, syms, collected.Facts), docstore.PluginMapping, res)
}

func (r *Runner) indexCode(ctx context.Context, root string, registry *plugins.Registry, snap docstore.Snapshot, res *SnapshotResult) error {
	files, err := codemetrics.Analyze(ctx, root, registry, codemetrics.Options{
		Extensions: r.cfg.CodeMetrics.Extensions,
		Exclude:    r.cfg.CodeMetrics.Exclude,
		Rules:      r.rules,
	}, r.logger)
	if err != nil {
		return errors.New(errors.ExtractionFailure, "Failed to analyze files", err)
	}
	res.Files = len(files)
	return r.write(ctx, snap, docstore.KindCode, docstore.CodeDocuments(r.cfg.Repo.Name, files), docstore.CodeMapping, res)
}

// write indexes docs under snapshot-scoped ids, and for head snapshots
// also into the -latest index under snapshot-independent ids.
func (r *Runner) write(ctx context.Context, snap docstore.Snapshot, kind string, docs []docstore.Document, mapping docstore.Mapping, res *SnapshotResult) error {
	index := docstore.IndexName(r.cfg.Store.IndexPrefix, r.cfg.Repo.Name, kind)
	n, err := r.indexer.IndexDocuments(ctx, docs, docstore.SnapshotID(snap), snap, index, mapping)
	res.Documents += n
	if err != nil {
		return err
	}
	if !snap.IsHead() {
		return nil
	}
	n, err = r.indexer.IndexDocuments(ctx, docs, docstore.LatestID, snap, docstore.LatestName(index), mapping)
	res.Documents += n
	return err
}

func (r *Runner) entryFilters(kind Kind) []string {
	if len(r.EntryFiles) > 0 {
		return r.EntryFiles
	}
	return EntryFilters(r.cfg, kind)
}

// EntryFilters returns the configured entry-file filters of a sweep kind.
func EntryFilters(cfg *config.Config, kind Kind) []string {
	if kind == KindContracts {
		if len(cfg.Extraction.ContractEntryFiles) > 0 {
			return cfg.Extraction.ContractEntryFiles
		}
		return apisurface.DefaultContractEntryFiles
	}
	if len(cfg.Extraction.APIEntryFiles) > 0 {
		return cfg.Extraction.APIEntryFiles
	}
	return apisurface.DefaultAPIEntryFiles
}

func (r *Runner) pluginOptions() plugins.Options {
	return PluginOptions(r.cfg)
}

// PluginOptions maps the plugins section of cfg onto discovery options.
func PluginOptions(cfg *config.Config) plugins.Options {
	opts := plugins.DefaultOptions()
	if len(cfg.Plugins.Dirs) > 0 {
		opts.Dirs = cfg.Plugins.Dirs
	}
	if len(cfg.Plugins.Manifests) > 0 {
		opts.Manifests = cfg.Plugins.Manifests
	}
	opts.RestrictedDirs = cfg.Plugins.RestrictedDirs
	opts.Declarations = cfg.Plugins.Declarations
	if len(cfg.Extraction.Ignore) > 0 {
		opts.Ignore = cfg.Extraction.Ignore
	}
	return opts
}

func (r *Runner) loadOptions() symbols.LoadOptions {
	return LoadOptions(r.cfg)
}

// LoadOptions maps the extraction section of cfg onto project loading.
func LoadOptions(cfg *config.Config) symbols.LoadOptions {
	return symbols.LoadOptions{
		Extensions:  cfg.Extraction.Extensions,
		Exclude:     cfg.Extraction.Ignore,
		TSConfig:    cfg.Extraction.TSConfig,
		Workers:     cfg.Extraction.Workers,
		MaxFileSize: cfg.Extraction.MaxFileSizeBytes,
	}
}

// CheckoutOptions maps the repo section of cfg onto the git checkout. The
// declarations file and SCIP index are kept through the post-checkout
// clean when they live inside the checkout untracked.
func CheckoutOptions(cfg *config.Config) git.Options {
	opts := git.Options{
		Branch:  cfg.Repo.Branch,
		Timeout: time.Duration(cfg.Repo.GitTimeoutSeconds) * time.Second,
	}
	for _, p := range []string{cfg.Plugins.Declarations, cfg.Extraction.SCIPIndex} {
		if p != "" && !filepath.IsAbs(p) {
			opts.Keep = append(opts.Keep, p)
		}
	}
	return opts
}
