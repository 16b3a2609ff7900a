package version

import "fmt"

// Build metadata, overridden at build time with
// -ldflags "-X github.com/ericogr/skirmish/internal/version.Version=...".
var (
	Version = "dev"
	Commit  = "none"
	Date    = ""
	Dirty   = "false"
)

// String renders the build metadata on one line for startup logs.
func String() string {
	s := fmt.Sprintf("%s (%s)", Version, Commit)
	if Dirty == "true" {
		s += " dirty"
	}
	if Date != "" {
		s += " built " + Date
	}
	return s
}
