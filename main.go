package main

import (
	"bufio"
	_ "embed" // this is required in order for go:embed to work
	"fmt"
	"log"
	"os"
	"regexp"
	"strings"

	"github.com/lemonade-sdk/server-test-harness/data"
	"github.com/lemonade-sdk/server-test-harness/framework"
	"github.com/lemonade-sdk/server-test-harness/framework/harness"
	"github.com/lemonade-sdk/server-test-harness/framework/lmtest"
	"github.com/lemonade-sdk/server-test-harness/servertests"
	"github.com/lemonade-sdk/server-test-harness/serviceinfo"
)

//go:embed VERSION
var versionString string // comes from the VERSION file which we update for each release

func main() {
	fmt.Printf("server-test-harness v%s\n", strings.TrimSpace(versionString))

	var params commandParams
	if !params.Read(os.Args) {
		os.Exit(1)
	}
	if params.showVersion {
		return
	}

	results, err := run(params)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if !results.OK() {
		os.Exit(1)
	}
}

func run(params commandParams) (*lmtest.Results, error) {
	if params.skipFile != "" {
		if err := loadSuppressions(&params); err != nil {
			return nil, err
		}
	}

	mainDebugLogger := framework.NullLogger()
	if params.debugAll {
		mainDebugLogger = log.New(os.Stdout, "", log.LstdFlags)
	}

	binary, err := serviceinfo.QueryServerBinary(params.serverPath)
	if err != nil {
		return nil, err
	}
	fmt.Printf("Server binary: %s (version %s)\n", binary.Path, binary.VersionString)

	matrix, err := data.LoadCapabilityMatrix()
	if err != nil {
		return nil, err
	}
	capabilities := matrix.WithOverrides(params.capabilities).Resolve(params.wrappedServer)

	serverHarness := harness.NewServerHarness(harness.ServerHarnessConfig{
		Binary:        binary,
		Port:          params.port,
		WrappedServer: params.wrappedServer,
		Backend:       params.backend,
		// The multi-model tests assume this limit; see the LRU eviction test.
		ExtraServeArgs: []string{"--max-loaded-models", "2"},
		StartupTimeout: params.startupTimeout,
	}, mainDebugLogger)

	var lifecycle harness.Lifecycle
	if params.serverPerTest {
		lifecycle = harness.NewPerTestLifecycle(serverHarness)
	} else {
		lifecycle = harness.NewPerSuiteLifecycle(serverHarness, params.leaveServerRunning, mainDebugLogger)
	}

	var testLogger lmtest.TestLogger
	consoleLogger := lmtest.ConsoleTestLogger{
		DebugOutputOnFailure: params.debug || params.debugAll,
		DebugOutputOnSuccess: params.debugAll,
	}
	if params.jUnitFile == "" {
		testLogger = consoleLogger
	} else {
		testLogger = &lmtest.MultiTestLogger{Loggers: []lmtest.TestLogger{
			consoleLogger,
			lmtest.NewJUnitTestLogger(params.jUnitFile, binary, params.filters),
		}}
	}

	results := servertests.RunServerTestSuite(
		serverHarness, lifecycle, capabilities, params.failFast, params.filters, testLogger)

	fmt.Println()
	logErr := testLogger.EndLog(results)

	if logErr != nil {
		return nil, fmt.Errorf("error writing log: %v", logErr)
	}

	if params.recordFailures != "" {
		f, err := os.Create(params.recordFailures)
		if err != nil {
			return nil, fmt.Errorf("cannot create suppression file: %v", err)
		}
		for _, test := range results.Failures {
			fmt.Fprintln(f, test.TestID)
		}
		_ = f.Close()
	}

	return &results, nil
}

func loadSuppressions(params *commandParams) error {
	file, err := os.Open(params.skipFile)
	if err != nil {
		return fmt.Errorf("cannot open provided suppression file: %v", err)
	}
	defer func() { _ = file.Close() }()
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		// Ignore blank lines
		if strings.TrimSpace(line) == "" {
			continue
		}
		escaped := regexp.QuoteMeta(line)
		if err := params.filters.MustNotMatch.Set(escaped); err != nil {
			return fmt.Errorf("cannot parse suppression: %v", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("while processing suppression file: %v", err)
	}
	return nil
}
