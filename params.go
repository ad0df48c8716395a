package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/lemonade-sdk/server-test-harness/data/testmodel"
	"github.com/lemonade-sdk/server-test-harness/framework/harness"
	"github.com/lemonade-sdk/server-test-harness/framework/lmtest"
	"github.com/lemonade-sdk/server-test-harness/servicedef"
)

type commandParams struct {
	serverPath         string
	port               int
	wrappedServer      string
	backend            string
	serverPerTest      bool
	startupTimeout     time.Duration
	filters            lmtest.RegexFilters
	capabilities       capabilityOverrides
	failFast           bool
	jUnitFile          string
	skipFile           string
	recordFailures     string
	debug              bool
	debugAll           bool
	leaveServerRunning bool
	showVersion        bool
}

func (c *commandParams) Read(args []string) bool {
	fs := flag.NewFlagSet("", flag.ExitOnError)
	fs.StringVar(&c.serverPath, "server", "", "path to the lemonade-server binary")
	fs.IntVar(&c.port, "port", servicedef.DefaultPort, "port the server under test will listen on")
	fs.StringVar(&c.wrappedServer, "wrapped-server", servicedef.WrappedServerLlamaCpp,
		"which wrapped server to test (llamacpp, ryzenai, flm, sd-cpp, whispercpp)")
	fs.StringVar(&c.backend, "backend", "",
		"acceleration backend for the wrapped server (vulkan, rocm, cpu, hybrid, npu)")
	fs.BoolVar(&c.serverPerTest, "server-per-test", false,
		"start and stop the server for each test instead of once per run")
	fs.DurationVar(&c.startupTimeout, "startup-timeout", harness.DefaultStartupTimeout,
		"how long to wait for the server port to open")
	fs.Var(&c.filters.MustMatch, "run", "regex pattern(s) to select tests to run")
	fs.Var(&c.filters.MustNotMatch, "skip", "regex pattern(s) to select tests not to run")
	fs.Var(&c.capabilities, "capability",
		"capability override(s) in the form server/feature=BOOL")
	fs.BoolVar(&c.failFast, "fail-fast", false, "stop the run at the first failure")
	fs.StringVar(&c.jUnitFile, "junit", "", "write JUnit XML output to the specified path")
	fs.StringVar(&c.skipFile, "skip-file", "",
		"file with one test ID per line to skip, as written by -record-failures")
	fs.StringVar(&c.recordFailures, "record-failures", "",
		"file to write the IDs of failed tests to")
	fs.BoolVar(&c.debug, "debug", false, "enable debug logging for failed tests")
	fs.BoolVar(&c.debugAll, "debug-all", false, "enable debug logging for all tests")
	fs.BoolVar(&c.leaveServerRunning, "leave-server-running", false,
		"leave the server process up when the run ends")
	fs.BoolVar(&c.showVersion, "version", false, "print the harness version and exit")

	if err := fs.Parse(args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		fs.Usage()
		return false
	}
	if c.showVersion {
		return true
	}
	if c.serverPath == "" {
		fmt.Fprintln(os.Stderr, "-server is required")
		fs.Usage()
		return false
	}
	return true
}

// capabilityOverrides accumulates repeated --capability flags.
type capabilityOverrides []testmodel.CapabilityOverride

func (c *capabilityOverrides) String() string {
	ss := make([]string, 0, len(*c))
	for _, o := range *c {
		ss = append(ss, fmt.Sprintf("%s/%s=%t", o.Server, o.Feature, o.Supported))
	}
	return strings.Join(ss, ", ")
}

func (c *capabilityOverrides) Set(value string) error {
	override, err := testmodel.ParseCapabilityOverride(value)
	if err != nil {
		return err
	}
	*c = append(*c, override)
	return nil
}
