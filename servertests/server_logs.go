package servertests

import (
	"net/http"
	"time"

	"github.com/lemonade-sdk/server-test-harness/framework/lmtest"
	"github.com/lemonade-sdk/server-test-harness/servicedef"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func doLogStreamingTests(t *lmtest.T) {
	t.Run("advertised in health", doLogStreamAdvertisedTest)
	t.Run("delivers log lines", doLogStreamDeliveryTest)
}

func doLogStreamAdvertisedTest(t *lmtest.T) {
	requireFeature(t, servicedef.FeatureLogStreaming)
	client := RequireServer(t)

	health := client.Health(t)
	require.True(t, health.LogStreaming.IsDefined(),
		"health should advertise log streaming transports")
	assert.True(t, health.LogStreaming.Value().SSE, "the SSE transport should be available")
}

func doLogStreamDeliveryTest(t *lmtest.T) {
	requireFeature(t, servicedef.FeatureLogStreaming)
	client := RequireServer(t)

	// Poke the server in the background so the stream has something to say even if it
	// starts with an empty backlog.
	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			select {
			case <-done:
				return
			case <-time.After(300 * time.Millisecond):
				resp, err := http.Get(client.baseURL + servicedef.EndpointHealth)
				if err == nil {
					resp.Body.Close()
				}
			}
		}
	}()

	lines := client.ReadLogStream(t, 5, 10*time.Second)
	require.NotEmpty(t, lines, "the log stream should deliver at least one line")
}
