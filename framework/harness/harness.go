package harness

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/lemonade-sdk/server-test-harness/framework"
	"github.com/lemonade-sdk/server-test-harness/framework/helpers"
	"github.com/lemonade-sdk/server-test-harness/servicedef"
	"github.com/lemonade-sdk/server-test-harness/serviceinfo"

	"golang.org/x/exp/slices"
)

const (
	// EnvVarCacheDir redirects where the server persists its model and hardware
	// detection cache. The fixture injector points this at a directory it controls.
	EnvVarCacheDir = "LEMONADE_CACHE_DIR"

	// EnvVarCIMode makes the server start headless and invalidate its hardware cache
	// on every launch. It must not be present in the child environment when a test
	// depends on an injected cache surviving startup.
	EnvVarCIMode = "LEMONADE_CI_MODE"

	// DefaultStartupTimeout is how long StartServer waits for the port to open when
	// the harness was not configured with its own bound.
	DefaultStartupTimeout = time.Second * 60

	defaultLogLevel = "debug"
)

// ServerHarness knows how to launch and shut down instances of the server binary under
// test. It is the only component that touches the process level; everything above it
// talks to the server over HTTP.
//
// It contains no domain-specific test logic, but only provides a general mechanism for
// test suites to build on.
type ServerHarness struct {
	binary         serviceinfo.ServerBinary
	port           int
	wrappedServer  string
	backend        string
	extraServeArgs []string
	startupTimeout time.Duration
	logger         framework.Logger
}

// ServerHarnessConfig holds the per-run process configuration, normally taken straight
// from the command line.
type ServerHarnessConfig struct {
	// Binary identifies the server executable, as resolved by serviceinfo.
	Binary serviceinfo.ServerBinary

	// Port is the port the server will be told to listen on. Zero means the server's
	// own default port.
	Port int

	// WrappedServer names which wrapped inference engine this run is testing, such as
	// "llamacpp" or "sd-cpp". It decides which backend selection flag is passed.
	WrappedServer string

	// Backend is the acceleration backend for the wrapped server (vulkan, rocm, cpu,
	// hybrid, npu). Empty means the server picks.
	Backend string

	// ExtraServeArgs are appended to every serve command line for this run.
	ExtraServeArgs []string

	// StartupTimeout bounds the wait for the server port; zero means
	// DefaultStartupTimeout.
	StartupTimeout time.Duration
}

// NewServerHarness creates a ServerHarness. It does not start anything.
func NewServerHarness(config ServerHarnessConfig, logger framework.Logger) *ServerHarness {
	if logger == nil {
		logger = framework.NullLogger()
	}
	port := config.Port
	if port == 0 {
		port = servicedef.DefaultPort
	}
	timeout := config.StartupTimeout
	if timeout == 0 {
		timeout = DefaultStartupTimeout
	}
	return &ServerHarness{
		binary:         config.Binary,
		port:           port,
		wrappedServer:  config.WrappedServer,
		backend:        config.Backend,
		extraServeArgs: config.ExtraServeArgs,
		startupTimeout: timeout,
		logger:         logger,
	}
}

func (h *ServerHarness) Binary() serviceinfo.ServerBinary { return h.binary }

func (h *ServerHarness) Port() int { return h.port }

// BaseURL returns the API base URL of the server this harness launches.
func (h *ServerHarness) BaseURL() string { return servicedef.BaseURL(h.port) }

func (h *ServerHarness) WrappedServer() string { return h.wrappedServer }

func (h *ServerHarness) Backend() string { return h.backend }

// StopAnyServer clears out any server instance that is already running, such as one
// left behind by an earlier crashed run. It does not need a handle and never fails.
func (h *ServerHarness) StopAnyServer() {
	StopAnyServer(h.binary.Path, h.logger)
}

// StartServer launches one server process and blocks until it is ready for traffic:
// the command is spawned with its output relays attached, then the port is polled
// until it opens, then a fixed settle delay is applied. If the port never opens, or
// the process dies first, the process is cleaned up before the error is returned.
func (h *ServerHarness) StartServer(options ...StartOption) (*ServerProcessHandle, error) {
	var config startConfig
	if err := helpers.ApplyOptions(&config, options...); err != nil {
		return nil, err
	}

	args := h.buildServeArgs(config)
	env := buildEnv(config)

	handle, err := startServerProcess(h.binary.Path, args, env, h.port, h.logger)
	if err != nil {
		return nil, fmt.Errorf("could not start server process: %w", err)
	}

	timeout := h.startupTimeout
	if config.startupTimeout > 0 {
		timeout = config.startupTimeout
	}
	portReady := make(chan error, 1)
	go func() {
		portReady <- WaitForPort(h.port, timeout, h.logger)
	}()
	select {
	case err := <-portReady:
		if err != nil {
			handle.Stop()
			return nil, err
		}
	case <-handle.Exited():
		handle.Stop()
		return nil, fmt.Errorf("server process exited before opening port %d", h.port)
	}

	h.logger.Printf("Port %d is open, waiting %s for the server to finish initializing", h.port, startupSettleDelay)
	time.Sleep(startupSettleDelay)
	h.logger.Printf("Server started successfully")

	return handle, nil
}

func (h *ServerHarness) buildServeArgs(config startConfig) []string {
	args := []string{"serve"}

	// The tray app requires a display server, which CI containers do not have.
	if runtime.GOOS == "windows" || os.Getenv(EnvVarCIMode) != "" || config.forceNoTray {
		args = append(args, "--no-tray")
	}

	args = append(args, "--log-level", defaultLogLevel)

	if h.port != servicedef.DefaultPort {
		args = append(args, "--port", strconv.Itoa(h.port))
	}

	if h.backend != "" {
		switch h.wrappedServer {
		case servicedef.WrappedServerLlamaCpp:
			args = append(args, "--llamacpp", h.backend)
		case servicedef.WrappedServerSDCpp:
			args = append(args, "--sdcpp", h.backend)
		}
	}

	args = append(args, h.extraServeArgs...)
	args = append(args, config.extraArgs...)
	return args
}

// buildEnv computes the child environment: our own environment with the requested
// variables removed, then the requested overrides applied in sorted order.
func buildEnv(config startConfig) []string {
	drop := func(key string) bool {
		if _, ok := config.envOverrides[key]; ok {
			return true
		}
		for _, removed := range config.envRemovals {
			if key == removed {
				return true
			}
		}
		return false
	}

	var env []string
	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		if !drop(key) {
			env = append(env, kv)
		}
	}

	keys := make([]string, 0, len(config.envOverrides))
	for key := range config.envOverrides {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	for _, key := range keys {
		env = append(env, key+"="+config.envOverrides[key])
	}
	return env
}

type startConfig struct {
	extraArgs      []string
	envOverrides   map[string]string
	envRemovals    []string
	forceNoTray    bool
	startupTimeout time.Duration
}

// StartOption is the interface for optional configuration parameters to StartServer.
type StartOption helpers.ConfigOption[startConfig]

type startOptionExtraArgs struct{ args []string }

func (o startOptionExtraArgs) Configure(c *startConfig) error {
	c.extraArgs = append(c.extraArgs, o.args...)
	return nil
}

// WithExtraArgs appends arguments to the serve command line for this start only.
func WithExtraArgs(args ...string) StartOption { return startOptionExtraArgs{args} }

type startOptionEnvVar struct{ key, value string }

func (o startOptionEnvVar) Configure(c *startConfig) error {
	if c.envOverrides == nil {
		c.envOverrides = make(map[string]string)
	}
	c.envOverrides[o.key] = o.value
	return nil
}

// WithEnvVar sets an environment variable in the child process, replacing any value
// inherited from our own environment.
func WithEnvVar(key, value string) StartOption { return startOptionEnvVar{key, value} }

type startOptionEnvRemoval struct{ key string }

func (o startOptionEnvRemoval) Configure(c *startConfig) error {
	c.envRemovals = append(c.envRemovals, o.key)
	return nil
}

// WithoutEnvVar guarantees the variable is absent from the child environment, even if
// it is set in ours.
func WithoutEnvVar(key string) StartOption { return startOptionEnvRemoval{key} }

type startOptionNoTray struct{}

func (o startOptionNoTray) Configure(c *startConfig) error {
	c.forceNoTray = true
	return nil
}

// WithNoTray forces the headless flag onto the serve command line regardless of
// platform or CI detection.
func WithNoTray() StartOption { return startOptionNoTray{} }

type startOptionStartupTimeout struct{ timeout time.Duration }

func (o startOptionStartupTimeout) Configure(c *startConfig) error {
	c.startupTimeout = o.timeout
	return nil
}

// WithStartupTimeout overrides the harness's startup timeout for this start only.
func WithStartupTimeout(timeout time.Duration) StartOption {
	return startOptionStartupTimeout{timeout}
}
