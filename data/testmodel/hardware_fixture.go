package testmodel

import (
	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"
)

// HardwareFixture is one synthetic hardware topology from the embedded fixture data,
// plus the capability report assertions that topology must produce. The hardware
// document itself is opaque to the harness: it is written into a mock cache directory
// exactly as loaded, and only the server under test interprets it.
type HardwareFixture struct {
	Name              string              `json:"name"`
	RequiresOS        string              `json:"requires_os"`
	RequiresArch      string              `json:"requires_arch"`
	Hardware          ldvalue.Value       `json:"hardware"`
	ExpectSupported   map[string][]string `json:"expect_supported"`
	ExpectUnsupported map[string][]string `json:"expect_unsupported"`
}

func (f HardwareFixture) GetName() string { return f.Name }

// AppliesTo reports whether the fixture can be verified on the given platform, in
// runtime.GOOS/GOARCH terms. Hardware detection in the server is compiled in, so a
// fixture for some other OS or architecture is unobservable and must be skipped
// rather than asserted.
func (f HardwareFixture) AppliesTo(goos, goarch string) bool {
	if f.RequiresOS != "" && f.RequiresOS != fixtureOSName(goos) {
		return false
	}
	if f.RequiresArch != "" && f.RequiresArch != fixtureArchName(goarch) {
		return false
	}
	return true
}

// Fixture files name platforms the way the server's own detection reports them, not
// the way the Go runtime does.
func fixtureOSName(goos string) string {
	switch goos {
	case "darwin":
		return "macos"
	default:
		return goos
	}
}

func fixtureArchName(goarch string) string {
	switch goarch {
	case "amd64":
		return "x86_64"
	default:
		return goarch
	}
}
