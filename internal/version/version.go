// Package version holds build information stamped in with ldflags:
// go build -ldflags "-X pluginrefs/internal/version.Version=1.2.0 -X pluginrefs/internal/version.Commit=abc123"
package version

var (
	Version   = "0.4.0"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// Info returns the version with a short commit suffix when known.
func Info() string {
	if Commit != "unknown" && len(Commit) > 7 {
		return Version + " (" + Commit[:7] + ")"
	}
	return Version
}

// Full returns multi-line build information for `pluginrefs version`.
func Full() string {
	return "pluginrefs " + Version + "\n" +
		"commit: " + Commit + "\n" +
		"built:  " + BuildDate
}
