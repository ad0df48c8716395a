package testmodel

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHardwareFixtureAppliesTo(t *testing.T) {
	for _, p := range []struct {
		requiresOS   string
		requiresArch string
		goos         string
		goarch       string
		expect       bool
	}{
		{"windows", "x86_64", "windows", "amd64", true},
		{"windows", "x86_64", "linux", "amd64", false},
		{"windows", "x86_64", "windows", "arm64", false},
		{"linux", "x86_64", "linux", "amd64", true},
		{"macos", "arm64", "darwin", "arm64", true},
		{"macos", "arm64", "darwin", "amd64", false},
		{"macos", "arm64", "linux", "arm64", false},
		{"", "", "windows", "amd64", true},
		{"", "", "linux", "arm64", true},
		{"linux", "", "linux", "arm64", true},
	} {
		desc := fmt.Sprintf("requires %q/%q on %s/%s", p.requiresOS, p.requiresArch, p.goos, p.goarch)
		t.Run(desc, func(t *testing.T) {
			f := HardwareFixture{Name: "x", RequiresOS: p.requiresOS, RequiresArch: p.requiresArch}
			assert.Equal(t, p.expect, f.AppliesTo(p.goos, p.goarch))
		})
	}
}
