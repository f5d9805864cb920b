package symbols

import "runtime"

// LoadOptions controls which files are parsed.
type LoadOptions struct {
	Extensions []string
	Exclude    []string
	// TSConfig is a repo-relative tsconfig.json used for path aliases.
	TSConfig    string
	Workers     int
	MaxFileSize int64
}

// DefaultExtensions are the source types the loader parses.
var DefaultExtensions = []string{".ts", ".tsx", ".js", ".jsx"}

func (o LoadOptions) extensions() []string {
	if len(o.Extensions) == 0 {
		return DefaultExtensions
	}
	return o.Extensions
}

func (o LoadOptions) workers() int {
	if o.Workers > 0 {
		return o.Workers
	}
	return runtime.GOMAXPROCS(0)
}
