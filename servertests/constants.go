package servertests

import (
	"github.com/lemonade-sdk/server-test-harness/servicedef"

	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"
)

// Well-known models from the server's built-in registry. The primary chat model
// depends on which wrapped server the run is driving; the rest are fixed because only
// llamacpp supports the features that use them.
const (
	defaultChatModel   = "Qwen3-0.6B-GGUF"
	ryzenAIChatModel   = "Llama-3.2-1B-Instruct-Hybrid"
	flmChatModel       = "Llama-3.2-1B-Instruct-FLM"
	secondaryChatModel = "Llama-3.2-1B-Instruct-GGUF"
	tertiaryChatModel  = "Gemma-3-270M-it-GGUF"
	embeddingModel     = "nomic-embed-text-v1-GGUF"
	rerankingModel     = "bge-reranker-v2-m3-GGUF"
	imageModel         = "SD-Turbo"
	imageModelXL       = "SDXL-Base-1.0"
)

const testPrompt = "Once upon a time"

// chatModel returns the primary chat model for the wrapped server under test.
func (c ServerTestContext) chatModel() string {
	switch c.harness.WrappedServer() {
	case servicedef.WrappedServerRyzenAI:
		return ryzenAIChatModel
	case servicedef.WrappedServerFLM:
		return flmChatModel
	default:
		return defaultChatModel
	}
}

func standardMessages() []servicedef.Message {
	return []servicedef.Message{
		{Role: "user", Content: "Hello, how are you today?"},
	}
}

func responsesMessages() []servicedef.Message {
	return []servicedef.Message{
		{Role: "user", Content: "Say hello in a complete sentence."},
	}
}

// sampleTool is a calculator function declaration; generation tests ask the model to
// invoke it with a specific expression.
func sampleTool() servicedef.Tool {
	return servicedef.Tool{
		Type: "function",
		Function: servicedef.ToolFunction{
			Name:        "calculator_calculate",
			Description: "Evaluate a mathematical expression",
			Parameters: ldvalue.ObjectBuild().
				SetString("type", "object").
				Set("properties", ldvalue.ObjectBuild().
					Set("expression", ldvalue.ObjectBuild().
						SetString("type", "string").
						SetString("description", "The expression to evaluate").
						Build()).
					Build()).
				Set("required", ldvalue.ArrayOf(ldvalue.String("expression"))).
				Build(),
		},
	}
}

func intPtr(n int) *int { return &n }

func int64Ptr(n int64) *int64 { return &n }

func floatPtr(f float64) *float64 { return &f }
