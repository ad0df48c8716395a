package harness

import (
	"context"
	"os/exec"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/lemonade-sdk/server-test-harness/framework"
)

const (
	serviceManagerName     = "lemonade-server"
	serviceManagerTimeout  = time.Second * 5
	stopSubcommandTimeout  = time.Second * 30
	stopSubcommandSettle   = time.Second * 2
	terminationGracePeriod = time.Second * 10
	killConfirmationDelay  = time.Second * 5
)

// ServerProcessHandle wraps one running server process, its two output relays, and the
// watcher that observes its exit. A handle is exclusively owned by the lifecycle scope
// that created it and lives from StartServer until Stop.
type ServerProcessHandle struct {
	binaryPath string
	port       int
	cmd        *exec.Cmd
	exited     chan struct{}
	logger     framework.Logger
}

// Stop shuts the server down, trying each strategy in order: a best-effort service
// manager stop, the binary's own stop subcommand, and finally direct signaling with a
// grace period before a forced kill. It never fails: stopping an already-dead server is
// normal during cleanup, so every error is logged and absorbed. Each call makes exactly
// one full cleanup attempt, and calling it again on a stopped handle is harmless.
func (h *ServerProcessHandle) Stop() {
	StopAnyServer(h.binaryPath, h.logger)

	// The stop subcommand returns before the server has necessarily finished
	// exiting, so give it a moment before concluding it needs to be signaled.
	select {
	case <-h.exited:
		return
	case <-time.After(stopSubcommandSettle):
	}

	h.logger.Printf("Server process %d is still running, signaling it directly", h.cmd.Process.Pid)
	if err := h.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		h.logger.Printf("Could not signal server process (%s), killing it", err)
		h.kill()
		return
	}
	select {
	case <-h.exited:
	case <-time.After(terminationGracePeriod):
		h.logger.Printf("Server process did not exit within %s of SIGTERM, killing it", terminationGracePeriod)
		h.kill()
	}
}

// Exited returns a channel that is closed once the process has been observed to exit.
func (h *ServerProcessHandle) Exited() <-chan struct{} {
	return h.exited
}

func (h *ServerProcessHandle) kill() {
	if err := h.cmd.Process.Kill(); err != nil {
		h.logger.Printf("Could not kill server process: %s", err)
		return
	}
	select {
	case <-h.exited:
	case <-time.After(killConfirmationDelay):
		h.logger.Printf("Server process still not reaped %s after kill", killConfirmationDelay)
	}
}

// StopAnyServer runs the out-of-band stop strategies, the ones that do not need a
// process handle: a service manager stop where one might be managing the server, then
// the binary's own stop subcommand. It is used both as the first half of
// ServerProcessHandle.Stop and on its own before starting a server, to clear out any
// instance left over from a previous run. All failures are logged and absorbed.
func StopAnyServer(binaryPath string, logger framework.Logger) {
	if stopServerViaServiceManager(logger) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), stopSubcommandTimeout)
	defer cancel()
	output, err := exec.CommandContext(ctx, binaryPath, "stop").CombinedOutput()
	if len(output) > 0 {
		logger.Printf("Output from %s stop: %s", binaryPath, strings.TrimSpace(string(output)))
	}
	if ctx.Err() != nil {
		logger.Printf("Warning: stop command timed out")
	} else if err != nil {
		logger.Printf("Warning: failed to stop server: %s", err)
	}
}

// On Linux the server may be running as a systemd unit, in which case stopping our own
// child process would just cause the unit to be restarted. Returns true only if the
// unit was active and the stop succeeded; any other outcome falls through to the next
// strategy.
func stopServerViaServiceManager(logger framework.Logger) bool {
	if runtime.GOOS != "linux" {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), serviceManagerTimeout)
	defer cancel()
	if err := exec.CommandContext(ctx, "systemctl", "is-active", "--quiet", serviceManagerName).Run(); err != nil {
		return false
	}

	logger.Printf("Stopping %s via systemctl", serviceManagerName)
	stopCtx, stopCancel := context.WithTimeout(context.Background(), stopSubcommandTimeout)
	defer stopCancel()
	output, err := exec.CommandContext(stopCtx, "sudo", "systemctl", "stop", serviceManagerName).CombinedOutput()
	if err != nil {
		logger.Printf("Warning: systemctl stop failed (%s): %s", err, strings.TrimSpace(string(output)))
		return false
	}
	logger.Printf("Stopped %s via systemctl", serviceManagerName)
	return true
}

// startServerProcess spawns the binary and wires up its output relays and exit watcher.
// It returns as soon as the process has started; readiness is the caller's concern.
func startServerProcess(
	binaryPath string,
	args []string,
	env []string,
	port int,
	logger framework.Logger,
) (*ServerProcessHandle, error) {
	cmd := exec.Command(binaryPath, args...) //nolint:gosec // the whole point is to run a caller-specified binary
	cmd.Env = env

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}

	logger.Printf("Starting server: %s %s", binaryPath, strings.Join(args, " "))
	if err := cmd.Start(); err != nil {
		return nil, err
	}

	RelayLines(stdout, serverStdoutPrefix, logger)
	RelayLines(stderr, serverStderrPrefix, logger)

	h := &ServerProcessHandle{
		binaryPath: binaryPath,
		port:       port,
		cmd:        cmd,
		exited:     make(chan struct{}),
		logger:     logger,
	}
	go func() {
		// Wait also tears down the output pipes, so a line the relays have not read
		// by the time the process exits can be lost. That is acceptable here; the
		// relays are deliberately fire-and-forget.
		err := cmd.Wait()
		if err != nil {
			logger.Printf("Server process exited: %s", err)
		} else {
			logger.Printf("Server process exited normally")
		}
		close(h.exited)
	}()
	return h, nil
}
