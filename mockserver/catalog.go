package mockserver

import (
	"sort"

	"github.com/lemonade-sdk/server-test-harness/servicedef"

	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"
)

// Model type names as they appear in the server's health report and per-type load
// limits. Each type has its own least-recently-used eviction pool.
const (
	ModelTypeLLM       = "llm"
	ModelTypeEmbedding = "embedding"
	ModelTypeReranking = "reranking"
	ModelTypeAudio     = "audio"
	ModelTypeImage     = "image"
)

// modelCreatedTimestamp is the fixed created time the real server reports for every
// model, since the registry has no meaningful creation date.
const modelCreatedTimestamp = 1234567890

// ModelSpec describes one entry in the mock server's model registry.
//
// A non-empty FilterReason marks a model that exists in the registry but is filtered
// out on the current system; such a model is omitted from listings and produces a
// model_not_supported error when a request names it, imitating how the real server
// treats models whose hardware requirements are unmet.
type ModelSpec struct {
	ID            string
	Checkpoint    string
	Recipe        string
	Type          string
	Downloaded    bool
	Suggested     bool
	Labels        []string
	Size          float64
	RecipeOptions ldvalue.Value
	ImageDefaults *servicedef.ImageDefaults
	FilterReason  string
}

// modelJSON is the wire representation of one model in GET /models and GET
// /models/{id}. Size and image_defaults are omitted when absent; everything else is
// always present, even when empty.
type modelJSON struct {
	ID            string                    `json:"id"`
	Object        string                    `json:"object"`
	Created       int64                     `json:"created"`
	OwnedBy       string                    `json:"owned_by"`
	Checkpoint    string                    `json:"checkpoint"`
	Recipe        string                    `json:"recipe"`
	Downloaded    bool                      `json:"downloaded"`
	Suggested     bool                      `json:"suggested"`
	Labels        []string                  `json:"labels"`
	RecipeOptions ldvalue.Value             `json:"recipe_options"`
	Size          float64                   `json:"size,omitempty"`
	ImageDefaults *servicedef.ImageDefaults `json:"image_defaults,omitempty"`
}

func (m ModelSpec) toJSON() modelJSON {
	labels := m.Labels
	if labels == nil {
		labels = []string{}
	}
	options := m.RecipeOptions
	if options.IsNull() {
		options = ldvalue.ObjectBuild().Build()
	}
	return modelJSON{
		ID:            m.ID,
		Object:        "model",
		Created:       modelCreatedTimestamp,
		OwnedBy:       "lemonade",
		Checkpoint:    m.Checkpoint,
		Recipe:        m.Recipe,
		Downloaded:    m.Downloaded,
		Suggested:     m.Suggested,
		Labels:        labels,
		RecipeOptions: options,
		Size:          m.Size,
		ImageDefaults: m.ImageDefaults,
	}
}

// device is the device name this model is reported to run on in the health report's
// loaded-model entries.
func (m ModelSpec) device() string {
	switch m.Recipe {
	case "llamacpp", "sd-cpp":
		return "gpu"
	case "ryzenai-llm", "flm":
		return "npu"
	default:
		return "cpu"
	}
}

// DefaultCatalog returns the model registry the mock server starts with unless the
// configuration supplies its own. It covers every model type, includes models that are
// registered but not downloaded, and includes models filtered out by system
// requirements, so tests can reach every branch of the model resolution logic.
func DefaultCatalog() []ModelSpec {
	return []ModelSpec{
		{
			ID:         "Qwen3-0.6B-GGUF",
			Checkpoint: "unsloth/Qwen3-0.6B-GGUF:Q4_K_M",
			Recipe:     "llamacpp",
			Type:       ModelTypeLLM,
			Downloaded: true,
			Suggested:  true,
			Labels:     []string{"reasoning"},
			Size:       0.5,
		},
		{
			ID:         "Llama-3.2-1B-Instruct-GGUF",
			Checkpoint: "bartowski/Llama-3.2-1B-Instruct-GGUF:Q4_K_M",
			Recipe:     "llamacpp",
			Type:       ModelTypeLLM,
			Downloaded: true,
			Size:       0.8,
		},
		{
			ID:         "Gemma-3-270M-it-GGUF",
			Checkpoint: "unsloth/gemma-3-270m-it-GGUF:Q8_0",
			Recipe:     "llamacpp",
			Type:       ModelTypeLLM,
			Downloaded: true,
			Size:       0.3,
		},
		{
			ID:         "Qwen2.5-7B-Instruct-GGUF",
			Checkpoint: "bartowski/Qwen2.5-7B-Instruct-GGUF:Q4_K_M",
			Recipe:     "llamacpp",
			Type:       ModelTypeLLM,
			Size:       4.7,
		},
		{
			ID:         "nomic-embed-text-v1-GGUF",
			Checkpoint: "nomic-ai/nomic-embed-text-v1-GGUF:Q8_0",
			Recipe:     "llamacpp",
			Type:       ModelTypeEmbedding,
			Downloaded: true,
			Labels:     []string{"embeddings"},
			Size:       0.1,
		},
		{
			ID:         "bge-reranker-v2-m3-GGUF",
			Checkpoint: "gpustack/bge-reranker-v2-m3-GGUF:Q8_0",
			Recipe:     "llamacpp",
			Type:       ModelTypeReranking,
			Downloaded: true,
			Labels:     []string{"reranking"},
			Size:       0.6,
		},
		{
			ID:         "Whisper-Base",
			Checkpoint: "ggerganov/whisper.cpp:base",
			Recipe:     "whispercpp",
			Type:       ModelTypeAudio,
			Downloaded: true,
			Size:       0.1,
		},
		{
			ID:            "SD-Turbo",
			Checkpoint:    "stabilityai/sd-turbo",
			Recipe:        "sd-cpp",
			Type:          ModelTypeImage,
			Downloaded:    true,
			Size:          2.3,
			ImageDefaults: &servicedef.ImageDefaults{Steps: 4, CfgScale: 1.0, Width: 512, Height: 512},
		},
		{
			ID:            "SDXL-Base-1.0",
			Checkpoint:    "stabilityai/stable-diffusion-xl-base-1.0",
			Recipe:        "sd-cpp",
			Type:          ModelTypeImage,
			Size:          6.9,
			ImageDefaults: &servicedef.ImageDefaults{Steps: 20, CfgScale: 7.5, Width: 1024, Height: 1024},
		},
		{
			ID:           "Llama-3.2-1B-Instruct-Hybrid",
			Checkpoint:   "amd/Llama-3.2-1B-Instruct-hybrid",
			Recipe:       "ryzenai-llm",
			Type:         ModelTypeLLM,
			Size:         1.2,
			FilterReason: "This model requires an AMD Ryzen AI 300 series processor.",
		},
		{
			ID:           "Llama-3.2-1B-Instruct-FLM",
			Checkpoint:   "FastFlowLM/Llama-3.2-1B-Instruct",
			Recipe:       "flm",
			Type:         ModelTypeLLM,
			Size:         1.2,
			FilterReason: "This model requires an AMD Ryzen AI 300 series processor.",
		},
	}
}

// sortModelsByID orders models the way the real server lists them.
func sortModelsByID(models []ModelSpec) {
	sort.Slice(models, func(i, j int) bool { return models[i].ID < models[j].ID })
}
