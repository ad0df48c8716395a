package harness

import (
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/lemonade-sdk/server-test-harness/framework"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// grabs an ephemeral port that nothing is listening on
func unusedPort(t *testing.T) int {
	l, err := net.Listen("tcp", "localhost:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())
	return port
}

func TestWaitForPortSucceedsWhenListening(t *testing.T) {
	l, err := net.Listen("tcp", "localhost:0")
	require.NoError(t, err)
	defer l.Close()
	port := l.Addr().(*net.TCPAddr).Port

	err = WaitForPort(port, time.Second*5, framework.NullLogger())
	assert.NoError(t, err)
}

func TestWaitForPortTimesOut(t *testing.T) {
	port := unusedPort(t)

	err := WaitForPort(port, time.Millisecond*1500, framework.NullLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to start within")
	assert.Contains(t, err.Error(), fmt.Sprintf("port %d", port))
}
