// Package version provides build-time version information.
package version

// Set at build time with -ldflags "-X bookfold/internal/version.Version=..."
var (
	// Version is the semantic version
	Version = "0.3.0"

	// BuildTime is the UTC time when the binary was built
	BuildTime = "unknown"

	// GitCommit is the git commit hash
	GitCommit = "unknown"
)

// String returns a one-line version description for logs and the about dialog.
func String() string {
	return Version + " (" + GitCommit + ", built " + BuildTime + ")"
}
