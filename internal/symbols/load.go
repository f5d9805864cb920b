//go:build cgo

package symbols

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"pluginrefs/internal/complexity"
	"pluginrefs/internal/discover"
	"pluginrefs/internal/paths"
)

// Load discovers and parses the project's source files. Files that cannot
// be read are kept with Err set so callers can report them.
func Load(ctx context.Context, root string, opts LoadOptions, logger *slog.Logger) (*Project, error) {
	start := time.Now()
	files, err := discover.Files(root, discover.Options{
		Extensions:  opts.extensions(),
		Exclude:     opts.Exclude,
		MaxFileSize: opts.MaxFileSize,
		UseGit:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("discovering source files: %w", err)
	}
	logger.Debug("Discovered source files", "count", len(files), "root", root)

	parsed, err := parseConcurrent(ctx, root, files, opts.workers())
	if err != nil {
		return nil, err
	}
	p, err := buildProject(root, parsed, opts.TSConfig)
	if err != nil {
		return nil, err
	}
	if opts.TSConfig != "" && p.tsconfig != paths.NormalizePath(opts.TSConfig) {
		logger.Warn("Configured tsconfig not found, path aliases may not resolve",
			"configured", opts.TSConfig,
			"using", p.tsconfig,
		)
	}

	var syntax, failed int
	for _, f := range p.files {
		if f.Err != nil {
			failed++
		} else if f.SyntaxErrors {
			syntax++
		}
	}
	logger.Info("Loaded project",
		"files", len(files),
		"failed", failed,
		"syntaxErrors", syntax,
		"duration", time.Since(start).Round(time.Millisecond).String(),
	)
	return p, nil
}

// parseConcurrent fans files out to workers, each owning one parser.
func parseConcurrent(ctx context.Context, root string, files []string, workers int) ([]*parsedFile, error) {
	results := make([]*parsedFile, len(files))
	work := make(chan int)
	done := make(chan struct{})

	if workers > len(files) {
		workers = len(files)
	}
	for w := 0; w < workers; w++ {
		go func() {
			defer func() { done <- struct{}{} }()
			tsp := complexity.NewParser()
			defer tsp.Close()
			for i := range work {
				results[i] = parseFile(ctx, tsp, root, files[i])
			}
		}()
	}

	var cancelled error
feed:
	for i := range files {
		select {
		case work <- i:
		case <-ctx.Done():
			cancelled = ctx.Err()
			break feed
		}
	}
	close(work)
	for w := 0; w < workers; w++ {
		<-done
	}
	if cancelled != nil {
		return nil, cancelled
	}
	return results, nil
}

func parseFile(ctx context.Context, tsp *complexity.Parser, root, rel string) *parsedFile {
	lang, ok := languageFor(rel)
	if !ok {
		return &parsedFile{path: rel, err: fmt.Errorf("unsupported file type: %s", rel)}
	}
	src, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		return &parsedFile{path: rel, language: lang, err: err}
	}
	return parseSource(ctx, tsp, rel, src, lang)
}

func languageFor(rel string) (complexity.Language, bool) {
	return complexity.LanguageFromExtension(strings.ToLower(filepath.Ext(rel)))
}

// ParseSource builds a single-file project from source text.
func ParseSource(ctx context.Context, rel string, src []byte) (*Project, error) {
	lang, ok := languageFor(rel)
	if !ok {
		return nil, fmt.Errorf("unsupported file type: %s", rel)
	}
	tsp := complexity.NewParser()
	defer tsp.Close()
	pf := parseSource(ctx, tsp, rel, src, lang)
	return buildProject("", []*parsedFile{pf}, "")
}

// IsAvailable reports whether the tree-sitter loader is compiled in.
func IsAvailable() bool {
	return true
}
