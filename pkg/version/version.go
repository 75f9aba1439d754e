package version

import "fmt"

// Application version information, set at build time with
// -ldflags "-X github.com/kdeps/kxlate/pkg/version.Version=..."
var (
	Version = "dev"
	Commit  = ""
)

// DefaultUserAgent identifies kxlate in outbound requests.
const DefaultUserAgent = "kxlate"

// String renders the version with the short commit when known.
func String() string {
	if Commit == "" {
		return Version
	}
	commit := Commit
	if len(commit) > 7 {
		commit = commit[:7]
	}
	return fmt.Sprintf("%s (%s)", Version, commit)
}

// UserAgent returns the User-Agent header value for forwarded requests.
func UserAgent() string {
	return DefaultUserAgent + "/" + Version
}
