// SPDX-License-Identifier: MIT
//
// Package build carries build metadata (name, version, commit, build
// time) injected at compile time via -ldflags. Development builds fall
// back to "dev" placeholders so the binary still runs without them.
package build

// Populated by -ldflags at release time.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
)

// Info holds the resolved build metadata.
type Info struct {
	Name    string
	Time    string
	Commit  string
	Version string
}

// GetInfo returns the build metadata, substituting development
// placeholders for any field not set by the linker.
func GetInfo() Info {
	info := Info{
		Name:    buildName,
		Time:    buildTime,
		Commit:  buildCommit,
		Version: buildVersion,
	}
	if info.Name == "" {
		info.Name = "tuner"
	}
	if info.Time == "" {
		info.Time = "unknown"
	}
	if info.Commit == "" {
		info.Commit = "none"
	}
	if info.Version == "" {
		info.Version = "dev"
	}
	return info
}
