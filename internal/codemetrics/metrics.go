// Package codemetrics computes whole-file metrics of a checkout and
// attributes every file to its plugin and team.
package codemetrics

import (
	"context"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"pluginrefs/internal/complexity"
	"pluginrefs/internal/discover"
	"pluginrefs/internal/plugins"
)

// QATeam owns test infrastructure; all of its files count as tests.
const QATeam = "kibana-qa"

// FileMetrics describes one source file of a snapshot.
type FileMetrics struct {
	Path     string `json:"fullFilename"`
	Dirs     string `json:"dirs"`
	Filename string `json:"filename"`
	// Ext has no leading dot.
	Ext          string   `json:"ext"`
	Plugin       string   `json:"plugin"`
	TeamOwner    string   `json:"teamOwner"`
	IsTestFile   bool     `json:"isTestFile"`
	Lines        int      `json:"loc"`
	SourceLines  int      `json:"source"`
	CommentLines int      `json:"comment"`
	BlankLines   int      `json:"blank"`
	AnyCount     int      `json:"anyCount"`
	AnyOverLoc   float64  `json:"anyCountOverLoc"`
	Capabilities []string `json:"capabilities"`

	Functions     int     `json:"functions"`
	MaxCyclomatic int     `json:"maxCyclomatic"`
	AvgCyclomatic float64 `json:"avgCyclomatic"`
}

// HasCapability reports whether a rule tagged the file.
func (m FileMetrics) HasCapability(tag string) bool {
	for _, c := range m.Capabilities {
		if c == tag {
			return true
		}
	}
	return false
}

// Options controls Analyze.
type Options struct {
	Extensions []string
	Exclude    []string
	Rules      RuleSet
}

// DefaultOptions covers script, markup and style files and skips build
// output.
func DefaultOptions() Options {
	return Options{
		Extensions: []string{".js", ".ts", ".jsx", ".tsx", ".html", ".css", ".scss"},
		Exclude:    []string{"node_modules", "optimize/bundles", "x-pack/build", "target/"},
		Rules:      DefaultRules(),
	}
}

// Analyze computes metrics for every matching file under root, in path
// order. Unreadable files are logged and skipped.
func Analyze(ctx context.Context, root string, registry *plugins.Registry, opts Options, logger *slog.Logger) ([]FileMetrics, error) {
	start := time.Now()
	files, err := discover.Files(root, discover.Options{
		Extensions: opts.Extensions,
		Exclude:    opts.Exclude,
	})
	if err != nil {
		return nil, err
	}

	analyzer := complexity.NewAnalyzer()
	out := make([]FileMetrics, 0, len(files))
	for _, rel := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		code, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
		if err != nil {
			logger.Warn("Skipping unreadable file", "file", rel, "error", err.Error())
			continue
		}
		m := measure(rel, string(code), registry, opts.Rules)
		if complexity.IsAvailable() {
			addComplexity(ctx, analyzer, &m, code)
		}
		out = append(out, m)
	}
	logger.Info("Analyzed files",
		"files", len(out),
		"duration", time.Since(start).Round(time.Millisecond).String(),
	)
	return out, nil
}

func measure(rel, code string, registry *plugins.Registry, rules RuleSet) FileMetrics {
	dir, filename := path.Split(rel)
	dir = strings.TrimSuffix(dir, "/")
	ext := strings.TrimPrefix(path.Ext(filename), ".")

	m := FileMetrics{
		Path:      rel,
		Dirs:      dir,
		Filename:  filename,
		Ext:       ext,
		Plugin:    plugins.NoPlugin,
		TeamOwner: plugins.NoOwner,
	}
	if p, ok := registry.ResolveOwner(rel); ok {
		m.Plugin = p.Name
		if p.TeamOwner != "" {
			m.TeamOwner = p.TeamOwner
		}
	}

	lc := CountLines(code, ext)
	m.Lines = lc.Total
	m.SourceLines = lc.Source
	m.CommentLines = lc.Comment
	m.BlankLines = lc.Blank
	m.AnyCount = strings.Count(code, ": any")
	if m.Lines > 0 {
		m.AnyOverLoc = float64(m.AnyCount) / float64(m.Lines)
	}
	m.IsTestFile = IsTestFile(dir, filename, m.TeamOwner)
	m.Capabilities = rules.Match(code)
	return m
}

// IsTestFile reports whether a file is test code: it lives under a
// __tests__, test or test_utils directory, has ".test." in its name, or
// belongs to the QA team.
func IsTestFile(dir, filename, team string) bool {
	if strings.Contains(filename, ".test.") || team == QATeam {
		return true
	}
	for _, seg := range strings.Split(dir, "/") {
		switch seg {
		case "__tests__", "test", "test_utils":
			return true
		}
	}
	return false
}

func addComplexity(ctx context.Context, analyzer *complexity.Analyzer, m *FileMetrics, code []byte) {
	lang, ok := complexity.LanguageFromExtension("." + m.Ext)
	if !ok {
		return
	}
	fc, err := analyzer.AnalyzeSource(ctx, m.Path, code, lang)
	if err != nil {
		return
	}
	m.Functions = fc.FunctionCount
	m.MaxCyclomatic = fc.MaxCyclomatic
	m.AvgCyclomatic = fc.AverageCyclomatic
}
