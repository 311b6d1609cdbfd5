// Package buildinfo holds build-time metadata injected via -ldflags.
package buildinfo

// Version is the semantic version or tag for this build.
// Inject via: -X github.com/garyellow/quizbot-go/internal/buildinfo.Version=...
var Version = ""

// Commit is the git commit SHA for this build.
// Inject via: -X github.com/garyellow/quizbot-go/internal/buildinfo.Commit=...
var Commit = ""

// BuildDate is the RFC3339 build timestamp.
// Inject via: -X github.com/garyellow/quizbot-go/internal/buildinfo.BuildDate=...
var BuildDate = ""

// Release names this build for error reports: the version when set,
// otherwise the short commit, otherwise "dev".
func Release() string {
	switch {
	case Version != "":
		return Version
	case len(Commit) >= 7:
		return Commit[:7]
	case Commit != "":
		return Commit
	default:
		return "dev"
	}
}

// Fields returns the metadata as log fields.
func Fields() map[string]any {
	return map[string]any{
		"version":    Release(),
		"commit":     Commit,
		"build_date": BuildDate,
	}
}
