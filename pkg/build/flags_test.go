// SPDX-License-Identifier: MIT
package build

import (
	"testing"
)

// withLinkerVars sets the -ldflags variables for the duration of t and
// restores them, and the published build info, afterwards.
func withLinkerVars(t *testing.T, name, built, commit, version string) {
	t.Helper()
	saved := [4]string{buildName, buildTime, buildCommit, buildVersion}
	savedFlags := *buildFlags
	t.Cleanup(func() {
		buildName, buildTime, buildCommit, buildVersion = saved[0], saved[1], saved[2], saved[3]
		*buildFlags = savedFlags
	})
	buildName, buildTime, buildCommit, buildVersion = name, built, commit, version
}

func TestInitializeRequiresEveryFlag(t *testing.T) {
	full := [4]string{"denoise", "2026-01-02T03:04:05Z", "abcdef123", "v0.3.0"}
	names := [4]string{"BuildName", "BuildTime", "BuildCommit", "BuildVersion"}

	for i, missing := range names {
		t.Run(missing, func(t *testing.T) {
			vars := full
			vars[i] = ""
			withLinkerVars(t, vars[0], vars[1], vars[2], vars[3])
			before := *GetBuildFlags()

			err := Initialize()
			if err == nil {
				t.Fatal("Initialize() expected error, got nil")
			}
			if want := missing + " is required"; err.Error() != want {
				t.Errorf("Initialize() error = %q, want %q", err, want)
			}
			if got := *GetBuildFlags(); got != before {
				t.Errorf("failed Initialize changed build info: %+v", got)
			}
		})
	}
}

func TestInitializeCopiesFlags(t *testing.T) {
	withLinkerVars(t, "denoise", "2026-01-02T03:04:05Z", "abcdef123", "v0.3.0")

	if err := Initialize(); err != nil {
		t.Fatalf("Initialize() unexpected error: %v", err)
	}
	want := ldFlags{Name: "denoise", Time: "2026-01-02T03:04:05Z", Commit: "abcdef123", Version: "v0.3.0"}
	if got := *GetBuildFlags(); got != want {
		t.Errorf("GetBuildFlags() = %+v, want %+v", got, want)
	}
}

func TestDevelopmentDefaults(t *testing.T) {
	if GetBuildFlags().Name == "" {
		t.Error("build name must never be empty")
	}
}

func TestCapabilities(t *testing.T) {
	RegisterCapability("zz-test-feature", false)
	RegisterCapability("aa-test-feature", true)

	if !HasCapability("aa-test-feature") {
		t.Error("HasCapability(aa-test-feature) = false, want true")
	}
	if HasCapability("zz-test-feature") {
		t.Error("HasCapability(zz-test-feature) = true, want false")
	}
	if HasCapability("never-registered") {
		t.Error("HasCapability on an unknown name = true")
	}

	caps := Capabilities()
	for i := 1; i < len(caps); i++ {
		if caps[i-1].Name > caps[i].Name {
			t.Fatalf("Capabilities() not sorted: %v", caps)
		}
	}
	if len(caps) == 0 || caps[0].Name != "aa-test-feature" || !caps[0].Enabled {
		t.Errorf("Capabilities()[0] = %+v, want aa-test-feature enabled", caps)
	}

	RegisterCapability("aa-test-feature", false)
	if HasCapability("aa-test-feature") {
		t.Error("re-registering must overwrite the previous state")
	}
}
