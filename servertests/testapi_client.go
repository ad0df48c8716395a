package servertests

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/lemonade-sdk/server-test-harness/framework"
	"github.com/lemonade-sdk/server-test-harness/framework/lmtest"
	"github.com/lemonade-sdk/server-test-harness/servicedef"

	"github.com/launchdarkly/eventsource"
	"github.com/stretchr/testify/require"
)

// requestTimeout bounds every API call. Generation endpoints can take minutes when the
// server runs on modest hardware; anything slower than this is treated as a hang.
const requestTimeout = time.Minute * 5

const maxLoggedBodyBytes = 1000

// APIClient makes requests to the server under test and decodes the responses.
// Methods that take a test scope treat any transport error, non-2xx status, or
// malformed body as an immediate test failure, so test code only ever sees valid
// responses.
type APIClient struct {
	baseURL    string
	httpClient *http.Client
	logger     framework.Logger
}

func NewAPIClient(baseURL string, logger framework.Logger) *APIClient {
	if logger == nil {
		logger = framework.NullLogger()
	}
	return &APIClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: requestTimeout},
		logger:     logger,
	}
}

// Health queries GET /health.
func (c *APIClient) Health(t *lmtest.T) servicedef.HealthResponse {
	var resp servicedef.HealthResponse
	c.getJSON(t, servicedef.EndpointHealth, &resp)
	return resp
}

// Models queries GET /models. With showAll the server lists every registry entry, not
// just the downloaded ones, including per-model metadata such as image defaults.
func (c *APIClient) Models(t *lmtest.T, showAll bool) servicedef.ModelList {
	path := servicedef.EndpointModels
	if showAll {
		path += "?show_all=true"
	}
	var resp servicedef.ModelList
	c.getJSON(t, path, &resp)
	return resp
}

// LoadModel tells the server to load a model into memory via POST /load.
func (c *APIClient) LoadModel(t *lmtest.T, modelName string) servicedef.StatusResponse {
	var resp servicedef.StatusResponse
	c.postJSON(t, servicedef.EndpointLoad, servicedef.LoadModelParams{ModelName: modelName}, &resp)
	return resp
}

// UnloadModel unloads one model by name via POST /unload.
func (c *APIClient) UnloadModel(t *lmtest.T, modelName string) servicedef.StatusResponse {
	var resp servicedef.StatusResponse
	c.postJSON(t, servicedef.EndpointUnload, servicedef.UnloadModelParams{ModelName: modelName}, &resp)
	return resp
}

// UnloadAllModels unloads every loaded model via POST /unload with an empty body.
func (c *APIClient) UnloadAllModels(t *lmtest.T) servicedef.StatusResponse {
	var resp servicedef.StatusResponse
	c.postJSON(t, servicedef.EndpointUnload, servicedef.UnloadModelParams{}, &resp)
	return resp
}

// ChatCompletion requests a non-streaming chat completion.
func (c *APIClient) ChatCompletion(t *lmtest.T, req servicedef.ChatCompletionRequest) servicedef.ChatCompletionResponse {
	req.Stream = false
	var resp servicedef.ChatCompletionResponse
	c.postJSON(t, servicedef.EndpointChatCompletions, req, &resp)
	require.NotEmpty(t, resp.Choices, "chat completion response had no choices")
	return resp
}

// ChatCompletionChunks requests a streamed chat completion and returns every chunk, in
// arrival order, up to the [DONE] sentinel.
func (c *APIClient) ChatCompletionChunks(t *lmtest.T, req servicedef.ChatCompletionRequest) []servicedef.ChatCompletionChunk {
	req.Stream = true
	var chunks []servicedef.ChatCompletionChunk
	c.readStream(t, servicedef.EndpointChatCompletions, req, func(data string) {
		var chunk servicedef.ChatCompletionChunk
		require.NoError(t, json.Unmarshal([]byte(data), &chunk), "malformed chunk %q", data)
		chunks = append(chunks, chunk)
	})
	require.NotEmpty(t, chunks, "stream ended without producing any chunks")
	return chunks
}

// Completion requests a non-streaming text completion.
func (c *APIClient) Completion(t *lmtest.T, req servicedef.CompletionRequest) servicedef.CompletionResponse {
	req.Stream = false
	var resp servicedef.CompletionResponse
	c.postJSON(t, servicedef.EndpointCompletions, req, &resp)
	require.NotEmpty(t, resp.Choices, "completion response had no choices")
	return resp
}

// CompletionChunks requests a streamed text completion and returns every frame up to
// the [DONE] sentinel.
func (c *APIClient) CompletionChunks(t *lmtest.T, req servicedef.CompletionRequest) []servicedef.CompletionResponse {
	req.Stream = true
	var chunks []servicedef.CompletionResponse
	c.readStream(t, servicedef.EndpointCompletions, req, func(data string) {
		var chunk servicedef.CompletionResponse
		require.NoError(t, json.Unmarshal([]byte(data), &chunk), "malformed chunk %q", data)
		chunks = append(chunks, chunk)
	})
	require.NotEmpty(t, chunks, "stream ended without producing any chunks")
	return chunks
}

// CreateResponse requests a non-streaming response from POST /responses.
func (c *APIClient) CreateResponse(t *lmtest.T, req servicedef.ResponsesRequest) servicedef.ResponsesResponse {
	req.Stream = false
	var resp servicedef.ResponsesResponse
	c.postJSON(t, servicedef.EndpointResponses, req, &resp)
	require.NotEmpty(t, resp.Output, "response had no output items")
	return resp
}

// ResponseEvents requests a streamed response and returns every event in arrival
// order. Unlike the chat and completions streams, this stream has no [DONE] sentinel;
// it simply ends after the completed event.
func (c *APIClient) ResponseEvents(t *lmtest.T, req servicedef.ResponsesRequest) []servicedef.ResponsesStreamEvent {
	req.Stream = true
	var events []servicedef.ResponsesStreamEvent
	c.readStream(t, servicedef.EndpointResponses, req, func(data string) {
		var event servicedef.ResponsesStreamEvent
		require.NoError(t, json.Unmarshal([]byte(data), &event), "malformed event %q", data)
		events = append(events, event)
	})
	require.NotEmpty(t, events, "stream ended without producing any events")
	return events
}

// Embeddings requests embedding vectors via POST /embeddings.
func (c *APIClient) Embeddings(t *lmtest.T, req servicedef.EmbeddingsRequest) servicedef.EmbeddingsResponse {
	var resp servicedef.EmbeddingsResponse
	c.postJSON(t, servicedef.EndpointEmbeddings, req, &resp)
	require.NotEmpty(t, resp.Data, "embeddings response had no data")
	return resp
}

// Rerank scores documents against a query via POST /reranking.
func (c *APIClient) Rerank(t *lmtest.T, req servicedef.RerankingRequest) servicedef.RerankingResponse {
	var resp servicedef.RerankingResponse
	c.postJSON(t, servicedef.EndpointReranking, req, &resp)
	require.NotEmpty(t, resp.Results, "reranking response had no results")
	return resp
}

// GenerateImages requests image generation via POST /images/generations.
func (c *APIClient) GenerateImages(t *lmtest.T, req servicedef.ImageGenerationRequest) servicedef.ImageGenerationResponse {
	var resp servicedef.ImageGenerationResponse
	c.postJSON(t, servicedef.EndpointImageGenerations, req, &resp)
	require.NotEmpty(t, resp.Data, "image generation response had no data")
	return resp
}

// SystemInfo queries GET /system-info and parses the capability report.
func (c *APIClient) SystemInfo(t *lmtest.T) servicedef.SystemInfoReport {
	resp, err := c.get(servicedef.EndpointSystemInfo)
	body := c.requireOK(t, resp, err)
	report, err := servicedef.ParseSystemInfoReport(body)
	require.NoError(t, err)
	return report
}

// PostExpectingError sends a request the server is expected to reject and returns the
// status code and raw body. It fails the test only if no response arrives at all, or
// if the server accepted the request after all.
func (c *APIClient) PostExpectingError(t *lmtest.T, path string, body interface{}) (int, string) {
	resp, err := c.post(path, body)
	require.NoError(t, err)
	data, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.NoError(t, err)
	c.logger.Printf("Got expected-error response (%d): %s", resp.StatusCode, describeBody(data))
	require.GreaterOrEqual(t, resp.StatusCode, 400,
		"expected the server to reject this request, but got status %d", resp.StatusCode)
	return resp.StatusCode, string(data)
}

// ReadLogStream connects to the server's SSE log stream and reads events until it has
// maxEvents of them or the timeout elapses, whichever comes first. A timeout is not a
// failure; the caller decides whether the lines it got back are enough.
func (c *APIClient) ReadLogStream(t *lmtest.T, maxEvents int, timeout time.Duration) []string {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+servicedef.EndpointLogStream, nil)
	require.NoError(t, err)
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode, "log stream request was rejected")

	decoder := eventsource.NewDecoder(resp.Body)
	var lines []string
	for len(lines) < maxEvents {
		event, err := decoder.Decode()
		if err != nil {
			break // timeout or end of stream; the caller judges what was collected
		}
		c.logger.Printf("Log stream event: %s", event.Data())
		lines = append(lines, event.Data())
	}
	return lines
}

func (c *APIClient) get(path string) (*http.Response, error) {
	c.logger.Printf("Sending GET %s", path)
	return c.httpClient.Get(c.baseURL + path)
}

func (c *APIClient) post(path string, body interface{}) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	c.logger.Printf("Sending POST %s: %s", path, string(data))
	resp, err := c.httpClient.Post(c.baseURL+path, "application/json", bytes.NewReader(data))
	return resp, err
}

func (c *APIClient) getJSON(t *lmtest.T, path string, target interface{}) {
	resp, err := c.get(path)
	body := c.requireOK(t, resp, err)
	require.NoError(t, json.Unmarshal(body, target), "malformed response body from GET %s", path)
}

func (c *APIClient) postJSON(t *lmtest.T, path string, body, target interface{}) {
	resp, err := c.post(path, body)
	respBody := c.requireOK(t, resp, err)
	require.NoError(t, json.Unmarshal(respBody, target), "malformed response body from POST %s", path)
}

// requireOK consumes the response, requiring a 2xx status, and returns the body.
func (c *APIClient) requireOK(t *lmtest.T, resp *http.Response, err error) []byte {
	require.NoError(t, err, "request to the server failed")
	data, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.NoError(t, err, "could not read response body")
	c.logger.Printf("Got response (%d): %s", resp.StatusCode, describeBody(data))
	require.Less(t, resp.StatusCode, 300, "server returned status %d: %s", resp.StatusCode, string(data))
	return data
}

// readStream POSTs the request and feeds the data payload of each SSE event to handle,
// stopping at the [DONE] sentinel or at the end of the stream.
func (c *APIClient) readStream(t *lmtest.T, path string, body interface{}, handle func(data string)) {
	err := c.forEachStreamEvent(path, body, func(data string) error {
		handle(data)
		return nil
	})
	require.NoError(t, err)
}

// forEachStreamEvent is the error-returning core of the stream readers. It makes no
// test assertions, so it is also safe to call from goroutines other than the test's
// own, which the concurrent streaming tests rely on.
func (c *APIClient) forEachStreamEvent(path string, body interface{}, handle func(data string) error) error {
	resp, err := c.post(path, body)
	if err != nil {
		return fmt.Errorf("request to the server failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server rejected the stream request with status %d: %s", resp.StatusCode, string(data))
	}
	if contentType := resp.Header.Get("Content-Type"); !strings.Contains(contentType, "text/event-stream") {
		return fmt.Errorf("expected an SSE response from POST %s but Content-Type was %q", path, contentType)
	}

	decoder := eventsource.NewDecoder(resp.Body)
	for {
		event, err := decoder.Decode()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("error while reading the event stream: %w", err)
		}
		if event.Data() == "[DONE]" {
			return nil
		}
		c.logger.Printf("Stream event: %s", event.Data())
		if err := handle(event.Data()); err != nil {
			return err
		}
	}
}

// CollectChatStream reads one whole streamed chat completion and returns the
// concatenated content plus the number of chunks that carried content. Unlike
// ChatCompletionChunks it reports problems as an ordinary error instead of failing the
// test, so concurrent tests can run several of these on separate goroutines and assert
// on the collected outcomes afterward.
func (c *APIClient) CollectChatStream(req servicedef.ChatCompletionRequest) (string, int, error) {
	req.Stream = true
	var text strings.Builder
	contentChunks := 0
	err := c.forEachStreamEvent(servicedef.EndpointChatCompletions, req, func(data string) error {
		var chunk servicedef.ChatCompletionChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			return fmt.Errorf("malformed chunk %q: %w", data, err)
		}
		if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content.IsDefined() {
			text.WriteString(chunk.Choices[0].Delta.Content.Value())
			contentChunks++
		}
		return nil
	})
	return text.String(), contentChunks, err
}

// CollectCompletionStream is the text-completion counterpart of CollectChatStream.
func (c *APIClient) CollectCompletionStream(req servicedef.CompletionRequest) (string, int, error) {
	req.Stream = true
	var text strings.Builder
	textChunks := 0
	err := c.forEachStreamEvent(servicedef.EndpointCompletions, req, func(data string) error {
		var chunk servicedef.CompletionResponse
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			return fmt.Errorf("malformed chunk %q: %w", data, err)
		}
		if len(chunk.Choices) > 0 && chunk.Choices[0].Text != "" {
			text.WriteString(chunk.Choices[0].Text)
			textChunks++
		}
		return nil
	})
	return text.String(), textChunks, err
}

func describeBody(data []byte) string {
	if len(data) <= maxLoggedBodyBytes {
		return string(data)
	}
	return fmt.Sprintf("%s... (%d bytes)", data[:maxLoggedBodyBytes], len(data))
}
