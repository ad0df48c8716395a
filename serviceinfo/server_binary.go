// Package serviceinfo provides a data model for information about the server binary under test.
package serviceinfo

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/launchdarkly/go-semver"
)

const versionQueryTimeout = time.Second * 10

// ServerBinary is identifying information about the server executable that the test harness
// is going to run.
type ServerBinary struct {
	// Path is the absolute path of the executable.
	Path string

	// Version is the parsed server version. Tests use this for version-sensitive behavior
	// such as stamping hardware cache fixtures.
	Version semver.Version

	// VersionString is the version exactly as the executable reported it, such as "8.1.11".
	VersionString string
}

// QueryServerBinary verifies that the given path is a runnable server executable and asks it
// for its version. The version subcommand prints a single line such as
// "lemonade-server version 8.1.11"; we take the last field and require it to be a valid
// semantic version.
func QueryServerBinary(path string) (ServerBinary, error) {
	absPath, err := resolveBinaryPath(path)
	if err != nil {
		return ServerBinary{}, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), versionQueryTimeout)
	defer cancel()
	out, err := exec.CommandContext(ctx, absPath, "--version").CombinedOutput()
	if err != nil {
		return ServerBinary{}, fmt.Errorf("could not run %s --version: %w (output: %q)",
			absPath, err, strings.TrimSpace(string(out)))
	}

	versionString, err := parseVersionOutput(string(out))
	if err != nil {
		return ServerBinary{}, err
	}
	version, err := semver.Parse(versionString)
	if err != nil {
		return ServerBinary{}, fmt.Errorf("server reported version %q which is not a valid semantic version", versionString)
	}

	return ServerBinary{Path: absPath, Version: version, VersionString: versionString}, nil
}

func resolveBinaryPath(path string) (string, error) {
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		return path, nil
	}
	// Fall back to a PATH lookup so "--server lemonade-server" works when it is installed.
	absPath, err := exec.LookPath(path)
	if err != nil {
		return "", fmt.Errorf("server executable not found at %q", path)
	}
	return absPath, nil
}

func parseVersionOutput(out string) (string, error) {
	// The output may include extra startup chatter before the version line, so scan every
	// line and take the last field of the one that mentions a version.
	var lastLine string
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lastLine = line
		}
		if strings.Contains(strings.ToLower(line), "version") {
			fields := strings.Fields(line)
			return fields[len(fields)-1], nil
		}
	}
	if lastLine == "" {
		return "", fmt.Errorf("server did not print any version information")
	}
	fields := strings.Fields(lastLine)
	return fields[len(fields)-1], nil
}
