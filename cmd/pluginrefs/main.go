package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"pluginrefs/internal/errors"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		printError(err)
		os.Exit(1)
	}
}

// printError writes err with the suggested fixes of its code.
func printError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	for _, fix := range errors.GetSuggestedFixes(errors.CodeOf(err)) {
		switch fix.Type {
		case errors.RunCommand:
			fmt.Fprintf(os.Stderr, "  try: %s  (%s)\n", fix.Command, fix.Description)
		case errors.EditConfig:
			fmt.Fprintf(os.Stderr, "  check %s: %s\n", fix.Key, fix.Description)
		}
	}
}
