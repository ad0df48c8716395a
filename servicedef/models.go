package servicedef

import (
	o "github.com/lemonade-sdk/server-test-harness/framework/opt"

	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"
)

// ModelList is the response body of GET /models.
type ModelList struct {
	Object string  `json:"object"`
	Data   []Model `json:"data"`
}

// Find returns the model with the given ID, if the list contains it.
func (l ModelList) Find(id string) o.Maybe[Model] {
	for _, m := range l.Data {
		if m.ID == id {
			return o.Some(m)
		}
	}
	return o.None[Model]()
}

// Model is one entry in the model registry. Without show_all=true the server lists only
// downloaded models, matching OpenAI API behavior.
type Model struct {
	ID            string                 `json:"id"`
	Object        string                 `json:"object,omitempty"`
	Created       int64                  `json:"created,omitempty"`
	OwnedBy       string                 `json:"owned_by,omitempty"`
	Checkpoint    string                 `json:"checkpoint,omitempty"`
	Recipe        string                 `json:"recipe,omitempty"`
	Downloaded    bool                   `json:"downloaded,omitempty"`
	Suggested     bool                   `json:"suggested,omitempty"`
	Labels        []string               `json:"labels,omitempty"`
	Size          float64                `json:"size,omitempty"`
	RecipeOptions ldvalue.Value          `json:"recipe_options,omitempty"`
	ImageDefaults o.Maybe[ImageDefaults] `json:"image_defaults,omitempty"`
}

// ImageDefaults is the per-model default image generation parameters exposed under
// /models?show_all=true for image models.
type ImageDefaults struct {
	Steps    int     `json:"steps"`
	CfgScale float64 `json:"cfg_scale"`
	Width    int     `json:"width"`
	Height   int     `json:"height"`
}

// LoadModelParams is the request body for POST /load.
type LoadModelParams struct {
	ModelName string `json:"model_name"`
}

// UnloadModelParams is the request body for POST /unload. An empty ModelName unloads
// every loaded model.
type UnloadModelParams struct {
	ModelName string `json:"model_name,omitempty"`
}

// PullModelParams is the request body for POST /pull and POST /delete.
type PullModelParams struct {
	ModelName string `json:"model_name"`
}

// StatusResponse is the generic success/error body of the model management endpoints.
type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

const StatusSuccess = "success"

// HealthResponse is the response body of GET /health. ModelLoaded is null when nothing
// is loaded, which is why it is a Maybe rather than a plain string.
type HealthResponse struct {
	Status          string                    `json:"status"`
	Version         string                    `json:"version,omitempty"`
	ModelLoaded     o.Maybe[string]           `json:"model_loaded"`
	AllModelsLoaded []LoadedModel             `json:"all_models_loaded"`
	MaxModels       ldvalue.Value             `json:"max_models,omitempty"`
	LogStreaming    o.Maybe[LogStreamingInfo] `json:"log_streaming,omitempty"`
}

// LoadedModelNames returns the names of the currently loaded models, in report order.
func (h HealthResponse) LoadedModelNames() []string {
	names := make([]string, 0, len(h.AllModelsLoaded))
	for _, m := range h.AllModelsLoaded {
		names = append(names, m.ModelName)
	}
	return names
}

// LoadedModel describes one currently loaded model in the health report.
type LoadedModel struct {
	ModelName  string `json:"model_name"`
	Checkpoint string `json:"checkpoint,omitempty"`
	Type       string `json:"type,omitempty"`
	Device     string `json:"device,omitempty"`
	BackendURL string `json:"backend_url,omitempty"`
	Recipe     string `json:"recipe,omitempty"`
	LastUse    int64  `json:"last_use,omitempty"`
}

// LogStreamingInfo advertises which log streaming transports the server provides.
type LogStreamingInfo struct {
	SSE       bool `json:"sse"`
	WebSocket bool `json:"websocket"`
}
