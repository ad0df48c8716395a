package servicedef

// Feature names used in the capability matrix. Each name identifies an optional piece of
// server functionality that some wrapped servers provide and others do not; tests that
// exercise a feature are skipped when the matrix marks it unsupported for the wrapped
// server under test.
const (
	FeatureChatCompletions          = "chat_completions"
	FeatureChatCompletionsStreaming = "chat_completions_streaming"
	FeatureChatCompletionsAsync     = "chat_completions_async"
	FeatureCompletions              = "completions"
	FeatureCompletionsStreaming     = "completions_streaming"
	FeatureCompletionsAsync         = "completions_async"
	FeatureResponsesAPI             = "responses_api"
	FeatureResponsesAPIStreaming    = "responses_api_streaming"
	FeatureStopParameter            = "stop_parameter"
	FeatureEchoParameter            = "echo_parameter"
	FeatureToolCalls                = "tool_calls"
	FeatureToolCallsStreaming       = "tool_calls_streaming"
	FeatureGenerationParameters     = "generation_parameters"
	FeatureEmbeddings               = "embeddings"
	FeatureReranking                = "reranking"
	FeatureMultiModel               = "multi_model"
	FeatureImageGeneration          = "image_generation"
	FeatureLogStreaming             = "log_streaming"
)

// Names of the wrapped servers that the capability matrix describes.
const (
	WrappedServerLlamaCpp   = "llamacpp"
	WrappedServerRyzenAI    = "ryzenai"
	WrappedServerFLM        = "flm"
	WrappedServerSDCpp      = "sd-cpp"
	WrappedServerWhisperCpp = "whispercpp"
)
