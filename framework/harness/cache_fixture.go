package harness

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lemonade-sdk/server-test-harness/framework"

	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"
)

const hardwareInfoFileName = "hardware_info.json"

// CacheFixtureDir is an isolated temporary cache directory seeded with a synthetic
// hardware description. Pointing the server's cache directory override at it makes the
// server's capability resolution run against the synthetic hardware instead of
// whatever this machine really has. Each instance is removed exactly once, no matter
// how the test that created it ends.
type CacheFixtureDir struct {
	name    string
	path    string
	logger  framework.Logger
	removed bool
}

// NewCacheFixtureDir creates the directory and writes the hardware description into
// it. The version must be the binary's own reported version, character for character:
// the server treats a cache written by any other version as stale and silently
// replaces it with live detection, which would defeat the fixture.
func NewCacheFixtureDir(
	name string,
	version string,
	hardware ldvalue.Value,
	logger framework.Logger,
) (*CacheFixtureDir, error) {
	if logger == nil {
		logger = framework.NullLogger()
	}

	dir, err := os.MkdirTemp("", fmt.Sprintf("lemonade_test_%s_", name))
	if err != nil {
		return nil, fmt.Errorf("could not create mock cache directory: %w", err)
	}

	doc := struct {
		Version  string        `json:"version"`
		Hardware ldvalue.Value `json:"hardware"`
	}{Version: version, Hardware: hardware}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		_ = os.RemoveAll(dir)
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(dir, hardwareInfoFileName), data, 0o600); err != nil {
		_ = os.RemoveAll(dir)
		return nil, fmt.Errorf("could not write %s: %w", hardwareInfoFileName, err)
	}

	logger.Printf("Created mock cache %s (version=%s)", dir, version)
	return &CacheFixtureDir{name: name, path: dir, logger: logger}, nil
}

// Path returns the directory path.
func (c *CacheFixtureDir) Path() string { return c.path }

// Env returns the start option that points a server at this directory.
func (c *CacheFixtureDir) Env() StartOption {
	return WithEnvVar(EnvVarCacheDir, c.path)
}

// Remove deletes the directory. It never fails, and calling it more than once has no
// effect; callers usually register it with the test scope's cleanup list right after
// creation so that it runs on every outcome.
func (c *CacheFixtureDir) Remove() {
	if c.removed {
		return
	}
	c.removed = true
	if err := os.RemoveAll(c.path); err != nil {
		c.logger.Printf("Warning: failed to clean up mock cache %s: %s", c.path, err)
	}
}
