package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"pluginrefs/internal/lock"
)

var lockCmd = &cobra.Command{
	Use:   "lock",
	Short: "Manage the checkout lock",
}

var lockReleaseCmd = &cobra.Command{
	Use:   "release",
	Short: "Remove the checkout lock regardless of its owner",
	Long: `Remove a checkout lock left behind by a crashed sweep. Only run this
when no sweep is in progress.`,
	Args: cobra.NoArgs,
	RunE: runLockRelease,
}

func init() {
	lockCmd.AddCommand(lockReleaseCmd)
	rootCmd.AddCommand(lockCmd)
}

func runLockRelease(cmd *cobra.Command, args []string) error {
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.Close()

	locker := lock.New(e.cfg.Lock, e.cfg.LockDir())
	defer func() { _ = locker.Close() }()
	if err := locker.ForceRelease(cmd.Context()); err != nil {
		return err
	}
	e.logger.Info("Released checkout lock")
	fmt.Println("Checkout lock released.")
	return nil
}
