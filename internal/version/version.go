// Package version holds build metadata injected with -ldflags, e.g.
//
//	go build -ldflags "-X github.com/smazurov/ambiled/internal/version.Version=1.2.0"
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
)

var (
	// Version is the application version, set via ldflags during build.
	Version = "dev"
	// GitCommit is the git commit hash, set via ldflags during build.
	GitCommit = "unknown"
	// BuildDate is the build timestamp, set via ldflags during build.
	BuildDate = "unknown"
	// BuildID is the build identifier, set via ldflags during build.
	BuildID = "unknown"
)

// Info contains version and build metadata.
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	BuildID   string `json:"build_id"`
	GoVersion string `json:"go_version"`
	Compiler  string `json:"compiler"`
	Platform  string `json:"platform"`
}

var readBuildInfo = sync.OnceValue(func() map[string]string {
	settings := map[string]string{}
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			settings[s.Key] = s.Value
		}
	}
	return settings
})

// Get returns version and build information. Values not set via ldflags
// fall back to the VCS stamp go build records.
func Get() Info {
	info := Info{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		BuildID:   BuildID,
		GoVersion: runtime.Version(),
		Compiler:  runtime.Compiler,
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
	vcs := readBuildInfo()
	if info.GitCommit == "unknown" && vcs["vcs.revision"] != "" {
		info.GitCommit = vcs["vcs.revision"]
		if vcs["vcs.modified"] == "true" {
			info.GitCommit += "-dirty"
		}
	}
	if info.BuildDate == "unknown" && vcs["vcs.time"] != "" {
		info.BuildDate = vcs["vcs.time"]
	}
	return info
}

// String returns the application version string.
func String() string {
	return Version
}

// Short returns the version with an abbreviated commit, e.g. "1.2.0 (a1b2c3d)".
func Short() string {
	commit := Get().GitCommit
	if len(commit) > 7 && commit != "unknown" {
		commit = commit[:7]
	}
	return fmt.Sprintf("%s (%s)", Version, commit)
}
