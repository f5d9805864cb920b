package scip

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"pluginrefs/internal/errors"
)

const generateTimeout = 2 * time.Hour

// Generate runs an indexer command such as "scip-typescript index" in the
// repo root. The command must write the index to the configured path.
func Generate(ctx context.Context, repoRoot, command string) error {
	args := strings.Fields(command)
	if len(args) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, generateTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = repoRoot
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return errors.New(
			errors.ReferenceIndexMissing,
			fmt.Sprintf("indexer %q failed: %s", args[0], strings.TrimSpace(stderr.String())),
			err,
		)
	}
	return nil
}
