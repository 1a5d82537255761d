// Package version carries build metadata set through -ldflags.
package version

// Set via -ldflags "-X github.com/ephod/getID3/version.version=...".
var (
	version = "0.1.0-dev"
	name    = "getid3"
	commit  = "undefined"
	date    = "undefined"
)

// Version returns the compile time version.
func Version() string { return version }

// Name returns the compile time name.
func Name() string { return name }

// Commit returns the compile time commit.
func Commit() string { return commit }

// Date returns the compile time build date.
func Date() string { return date }

// String renders version, commit and date for --version output.
func String() string {
	return version + " (" + commit + " - " + date + ")"
}
