package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"pluginrefs/internal/backends/git"
	"pluginrefs/internal/codemetrics"
	"pluginrefs/internal/errors"
	"pluginrefs/internal/lock"
	"pluginrefs/internal/sweep"
)

var (
	sweepFile     string
	sweepPoints   []string
	sweepFailFast bool
	sweepFormat   string
)

var sweepCmd = &cobra.Command{
	Use:   "sweep <api|contracts|code>",
	Short: "Index cross-plugin references at every configured snapshot",
	Long: `Check out each configured snapshot in turn, rebuild the plugin registry,
extract the API surface, resolve cross-plugin references and index them.

  api        exported symbols of public/index.ts and server/index.ts
  contracts  lifecycle contracts of public/plugin.ts and server/plugin.ts
  code       per-file metrics of every source file

Examples:
  pluginrefs sweep api
  pluginrefs sweep contracts --file src/plugins/data/public/plugin.ts
  pluginrefs sweep code --point 2020-01-01 --point head`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{string(sweep.KindAPI), string(sweep.KindContracts), string(sweep.KindCode)},
	RunE:      runSweep,
}

func init() {
	sweepCmd.Flags().StringVar(&sweepFile, "file", "", "Only extract entry files whose path contains this value")
	sweepCmd.Flags().StringSliceVar(&sweepPoints, "point", nil, "Checkout points to sweep instead of snapshots.points")
	sweepCmd.Flags().BoolVar(&sweepFailFast, "fail-fast", false, "Stop at the first failing snapshot")
	sweepCmd.Flags().StringVar(&sweepFormat, "format", "human", "Output format (json, human)")
	rootCmd.AddCommand(sweepCmd)
}

func runSweep(cmd *cobra.Command, args []string) error {
	kind, err := sweep.ParseKind(args[0])
	if err != nil {
		return err
	}
	format, err := parseFormat(sweepFormat)
	if err != nil {
		return err
	}
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.Close()
	cfg := e.cfg
	if len(sweepPoints) > 0 {
		cfg.Snapshots.Points = sweepPoints
	}
	if sweepFailFast {
		cfg.Sweep.FailFast = true
	}
	ctx := cmd.Context()

	checkout, err := git.Open(ctx, cfg.Repo.URL, cfg.Repo.LocalDir, sweep.CheckoutOptions(cfg), e.logger)
	if err != nil {
		return err
	}
	store, err := sweep.OpenStore(ctx, cfg.Store, e.logger)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()
	archiver, err := sweep.NewArchiver(cfg.Report)
	if err != nil {
		return errors.New(errors.ConfigInvalid, "Failed to configure report archive", err)
	}

	locker := lock.New(cfg.Lock, cfg.LockDir())
	defer func() { _ = locker.Close() }()

	runner := sweep.NewRunner(cfg, checkout, locker, store, archiver, e.logger)
	if cfg.CodeMetrics.RulesFile != "" {
		rules, err := codemetrics.LoadRules(cfg.CodeMetrics.RulesFile)
		if err != nil {
			return errors.New(errors.ConfigInvalid, "Failed to load capability rules", err)
		}
		runner.SetRules(rules)
	}
	if sweepFile != "" {
		runner.EntryFiles = []string{sweepFile}
	}

	report, runErr := runner.Run(ctx, kind)
	if report != nil {
		if format == FormatJSON {
			if err := writeJSON(os.Stdout, report); err != nil {
				return err
			}
		} else {
			printReport(report)
		}
	}
	if runErr != nil {
		return runErr
	}
	for _, res := range report.Results {
		if res.Status == sweep.StatusFailure {
			return fmt.Errorf("%d of %d snapshots failed: %w", report.Count(sweep.StatusFailure), len(report.Results), res.Err())
		}
	}
	return nil
}

func printReport(report *sweep.SweepReport) {
	fmt.Printf("Sweep %s (%s) of %s\n\n", report.ID, report.Kind, report.Repo)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "POINT\tCOMMIT\tSTATUS\tPLUGINS\tSYMBOLS\tREFERENCES\tDOCUMENTS\tDURATION")
	for _, r := range report.Results {
		point := r.Point
		if point == "" {
			point = git.HeadPoint
		}
		commit := r.CommitHash
		if len(commit) > 10 {
			commit = commit[:10]
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%s\n",
			point, commit, r.Status, r.Plugins, r.Symbols, r.References, r.Documents,
			(time.Duration(r.DurationMs) * time.Millisecond).String())
	}
	_ = w.Flush()
	for _, r := range report.Results {
		if r.Error != "" {
			fmt.Printf("\n%s: %s\n", r.Point, r.Error)
		}
		for _, s := range r.Skipped {
			fmt.Printf("  skipped: %s\n", s)
		}
	}
}
