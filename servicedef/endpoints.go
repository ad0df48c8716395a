package servicedef

import "fmt"

// DefaultPort is the port the server listens on when no --port flag is given.
const DefaultPort = 8000

// APIPrefix is the path prefix of the current API generation. The server also answers on
// /api/v0, /v0, and /v1, but the harness always talks to the canonical prefix.
const APIPrefix = "/api/v1"

// Endpoint paths, relative to APIPrefix.
const (
	EndpointHealth           = "/health"
	EndpointModels           = "/models"
	EndpointLoad             = "/load"
	EndpointUnload           = "/unload"
	EndpointPull             = "/pull"
	EndpointDelete           = "/delete"
	EndpointChatCompletions  = "/chat/completions"
	EndpointCompletions      = "/completions"
	EndpointResponses        = "/responses"
	EndpointEmbeddings       = "/embeddings"
	EndpointReranking        = "/reranking"
	EndpointImageGenerations = "/images/generations"
	EndpointSystemInfo       = "/system-info"
	EndpointLogStream        = "/logs/stream"
)

// BaseURL returns the root URL of the server's API for the given port, without a
// trailing slash.
func BaseURL(port int) string {
	return fmt.Sprintf("http://localhost:%d%s", port, APIPrefix)
}
