// Package version reports which build of roboroute is running.
package version

import "runtime/debug"

// Set with -ldflags "-X github.com/pdrpinto/roboroute/internal/version.Version=...".
// Commit and BuildDate fall back to the VCS stamp the go tool embeds.
var (
	Version   = "0.3.0-dev"
	Commit    = ""
	BuildDate = ""
)

// Build is the resolved build description.
type Build struct {
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	BuildDate string `json:"build_date,omitempty"`
	Dirty     bool   `json:"dirty,omitempty"`
	GoVersion string `json:"go_version,omitempty"`
}

// Read resolves the build. Linker-set values win over the embedded stamp.
func Read() Build {
	b := Build{Version: Version, Commit: Commit, BuildDate: BuildDate}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return b
	}
	return fromBuildInfo(b, info)
}

func fromBuildInfo(b Build, info *debug.BuildInfo) Build {
	b.GoVersion = info.GoVersion
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			if b.Commit == "" {
				b.Commit = setting.Value
			}
		case "vcs.time":
			if b.BuildDate == "" {
				b.BuildDate = setting.Value
			}
		case "vcs.modified":
			b.Dirty = setting.Value == "true"
		}
	}
	return b
}

// ShortCommit is the first 12 characters of the commit, with a "+dirty"
// suffix for builds from a modified tree.
func (b Build) ShortCommit() string {
	commit := b.Commit
	if len(commit) > 12 {
		commit = commit[:12]
	}
	if commit != "" && b.Dirty {
		commit += "+dirty"
	}
	return commit
}
