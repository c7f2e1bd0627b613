// Package settings provides build metadata, per-run options and context
// helpers shared by the fleetgrid CLI and its packages.
package settings

// CliBinaryName is the canonical binary name for this tool.
const CliBinaryName = "fleetgrid"

// VersionInformation is populated at build time via ldflags and holds the
// commit hash, semantic version, and build timestamp of the running binary.
var VersionInformation = VersionInfo{
	Commit:       "unknown",
	BuildVersion: "v0.0.0-nightly",
	BuildTime:    "unknown",
}

// VersionInfo holds metadata about the build.
type VersionInfo struct {
	Commit       string
	BuildVersion string
	BuildTime    string
}

// Run holds the options of a single invocation: logging, output and the
// config file that was resolved for it.
type Run struct {
	MinLogLevel int8
	LogFile     string
	ConfigFile  string
	IsQuiet     bool
	NoColor     bool
	ExitOnError bool
}

// NewCliParams returns the defaults used by the CLI before flags are parsed.
func NewCliParams() *Run {
	return &Run{
		MinLogLevel: 0,
		IsQuiet:     false,
		NoColor:     false,
		ExitOnError: true,
	}
}

// LogToFile reports whether log lines must go to a file rather than stderr,
// which is the case whenever a full-screen view owns the terminal.
func (r *Run) LogToFile() bool {
	return r != nil && r.LogFile != ""
}
