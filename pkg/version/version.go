package version

import (
	"fmt"
	"runtime"
)

// Name is reported to MCP hosts during the initialize handshake.
const Name = "confluence-mcp"

// Version information. These will be set by build flags.
var (
	Version   = "dev"
	GitCommit = ""
	BuildDate = ""
)

// BuildInfo contains detailed version information
type BuildInfo struct {
	Version   string
	GitCommit string
	BuildDate string
	GoVersion string
	Platform  string
}

// Get returns the current build information
func Get() BuildInfo {
	return BuildInfo{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

// ServerVersion is the version string advertised in serverInfo.
// Development builds advertise 0.0.0-dev so hosts always see a semver.
func ServerVersion() string {
	if Version == "" || Version == "dev" {
		return "0.0.0-dev"
	}
	return Version
}

// String returns a formatted version string
func (b BuildInfo) String() string {
	result := fmt.Sprintf("%s version %s", Name, b.Version)

	if b.GitCommit != "" {
		result += fmt.Sprintf(" (%s)", b.GitCommit)
	}

	if b.BuildDate != "" {
		result += fmt.Sprintf(" built on %s", b.BuildDate)
	}

	result += fmt.Sprintf(" %s %s", b.GoVersion, b.Platform)

	return result
}
