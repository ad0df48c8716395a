package harness

import (
	"fmt"
	"net"
	"time"

	"github.com/lemonade-sdk/server-test-harness/framework"
)

const (
	portPollInterval = time.Second

	// How long to keep waiting after the port opens before sending any requests. The
	// listener comes up before the server's internal subsystems have finished
	// initializing, so a connection succeeding is necessary but not sufficient.
	startupSettleDelay = time.Second * 5
)

// WaitForPort polls the local TCP port until something is accepting connections on it,
// retrying at a fixed interval. On timeout it returns an error naming the bound that
// was exceeded; this is fatal to the run, since nothing downstream can work without a
// listening server.
func WaitForPort(port int, timeout time.Duration, logger framework.Logger) error {
	logger.Printf("Waiting for server to open port %d", port)
	deadline := time.Now().Add(timeout)
	for {
		conn, err := net.DialTimeout("tcp", fmt.Sprintf("localhost:%d", port), portPollInterval)
		if err == nil {
			_ = conn.Close()
			return nil
		}
		if !time.Now().Before(deadline) {
			return fmt.Errorf("server failed to start within %s (port %d never opened)", timeout, port)
		}
		time.Sleep(portPollInterval)
	}
}
