package mockserver

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lemonade-sdk/server-test-harness/framework"
	"github.com/lemonade-sdk/server-test-harness/framework/helpers"
	"github.com/lemonade-sdk/server-test-harness/servicedef"

	"github.com/launchdarkly/eventsource"
	"github.com/launchdarkly/go-test-helpers/v2/httphelpers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireLogEvent(t *testing.T, stream *eventsource.Stream) eventsource.Event {
	return helpers.RequireValueWithMessage(t, stream.Events, time.Second*5, "timed out waiting for a log line")
}

func TestLogStreamReplaysBufferedLinesToNewClients(t *testing.T) {
	service := NewLogStreamService(framework.NullLogger())
	defer service.Close()
	service.Append("line one")
	service.Append("line two")

	httphelpers.WithServer(service, func(server *httptest.Server) {
		req, _ := http.NewRequest("GET", server.URL, nil)
		stream, err := eventsource.SubscribeWithRequest("", req)
		require.NoError(t, err)
		defer stream.Close()

		assert.Equal(t, "line one", requireLogEvent(t, stream).Data())
		assert.Equal(t, "line two", requireLogEvent(t, stream).Data())

		service.Append("line three")
		assert.Equal(t, "line three", requireLogEvent(t, stream).Data())
	})

	assert.Equal(t, []string{"line one", "line two", "line three"}, service.Lines())
}

func TestLogStreamRejectsNonGETRequests(t *testing.T) {
	service := NewLogStreamService(framework.NullLogger())
	defer service.Close()

	httphelpers.WithServer(service, func(server *httptest.Server) {
		resp, err := http.Post(server.URL, "application/json", nil)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	})
}

func TestServerActivityAppearsInLogStream(t *testing.T) {
	withMockServer(t, Config{}, func(server *httptest.Server, service *MockInferenceServer) {
		status, _ := getJSON(t, apiURL(server, servicedef.EndpointModels))
		require.Equal(t, http.StatusOK, status)

		req, _ := http.NewRequest("GET", apiURL(server, servicedef.EndpointLogStream), nil)
		stream, err := eventsource.SubscribeWithRequest("", req)
		require.NoError(t, err)
		defer stream.Close()

		assert.Equal(t, "GET "+servicedef.APIPrefix+servicedef.EndpointModels,
			requireLogEvent(t, stream).Data())

		// The log stream request itself must not be logged, or every reader would see
		// an endless feed of its own connection.
		assert.NotContains(t, service.logs.Lines(), "GET "+servicedef.APIPrefix+servicedef.EndpointLogStream)
	})
}
