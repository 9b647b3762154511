// SPDX-License-Identifier: MIT
//
// Package build exposes metadata stamped into the binary at link time and
// the optional features that were compiled in.
//
//	go build -ldflags "-X denoise/pkg/build.buildName=denoise -X denoise/pkg/build.buildVersion=0.1.0 ..."
package build

import (
	"fmt"
	"sort"
	"sync"
)

type ldFlags struct {
	Name    string
	Time    string
	Commit  string
	Version string
}

// Package-level variables populated by -ldflags. Development builds keep
// the "unknown" defaults.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
	buildFlags   = &ldFlags{
		Name:    "denoise",
		Time:    "unknown",
		Commit:  "unknown",
		Version: "unknown",
	}
)

// Initialize validates and copies the ldflags variables into the build
// info. It returns an error naming the first missing flag; the defaults
// stay in place in that case.
func Initialize() error {
	if buildName == "" {
		return fmt.Errorf("BuildName is required")
	}
	if buildTime == "" {
		return fmt.Errorf("BuildTime is required")
	}
	if buildCommit == "" {
		return fmt.Errorf("BuildCommit is required")
	}
	if buildVersion == "" {
		return fmt.Errorf("BuildVersion is required")
	}

	buildFlags.Name = buildName
	buildFlags.Time = buildTime
	buildFlags.Commit = buildCommit
	buildFlags.Version = buildVersion

	return nil
}

// GetBuildFlags returns the current build information.
func GetBuildFlags() *ldFlags {
	return buildFlags
}

// Capability is a compile-time feature and whether this binary has it.
type Capability struct {
	Name    string
	Enabled bool
}

var (
	capMu        sync.RWMutex
	capabilities = map[string]bool{}
)

// RegisterCapability records a compile-time feature. Packages call it from
// init, so the set is complete before main runs.
func RegisterCapability(name string, enabled bool) {
	capMu.Lock()
	capabilities[name] = enabled
	capMu.Unlock()
}

// Capabilities returns the registered features sorted by name.
func Capabilities() []Capability {
	capMu.RLock()
	defer capMu.RUnlock()

	out := make([]Capability, 0, len(capabilities))
	for name, enabled := range capabilities {
		out = append(out, Capability{Name: name, Enabled: enabled})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// HasCapability reports whether name was registered and enabled.
func HasCapability(name string) bool {
	capMu.RLock()
	defer capMu.RUnlock()
	return capabilities[name]
}
