package mockserver

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/lemonade-sdk/server-test-harness/framework/opt"
	"github.com/lemonade-sdk/server-test-harness/servicedef"
)

// lexicon supplies filler words once the request's own words run out.
var lexicon = []string{
	"the", "of", "and", "to", "in", "is", "it", "that", "for", "with",
	"model", "server", "token", "stream", "result", "answer", "value",
	"light", "water", "stone", "paper", "glass", "river", "cloud",
}

const defaultGenerationTokens = 16

// generationRequest collects every input that influences text generation. The output
// is a pure function of these fields: repeating a request reproduces its text, and
// changing any sampling parameter produces different text, which is what makes
// determinism tests against the mock self-checking.
type generationRequest struct {
	model         string
	source        string
	maxTokens     int
	temperature   *float64
	topP          *float64
	topK          *int
	repeatPenalty *float64
	seed          *int64
	stop          []string
}

func (g generationRequest) fingerprint() int64 {
	h := fnv.New64a()
	write := func(parts ...interface{}) {
		for _, p := range parts {
			fmt.Fprintf(h, "%v\x00", p)
		}
	}
	write(g.model, g.source, g.maxTokens)
	write(derefOr(g.temperature, 1.0), derefOr(g.topP, 1.0), derefOr(g.topK, 40),
		derefOr(g.repeatPenalty, 1.0), derefOr(g.seed, -1))
	return int64(h.Sum64())
}

func derefOr[V any](ptr *V, ifNil V) V {
	if ptr != nil {
		return *ptr
	}
	return ifNil
}

// generatedWords derives the output word sequence for a request fingerprint: a seeded
// shuffle of the source text's own words, then lexicon filler, truncated to count. The
// shuffle guarantees that every source word appears when count allows, so requests can
// provoke stop sequences by putting them in the prompt.
func generatedWords(seed int64, source string, count int) []string {
	words := strings.Fields(source)
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(words), func(i, j int) { words[i], words[j] = words[j], words[i] })
	for len(words) < count {
		words = append(words, lexicon[rng.Intn(len(lexicon))])
	}
	return words[:count]
}

// generateText produces the completion text, reporting whether generation ended at a
// stop sequence rather than at the token limit.
func generateText(g generationRequest) (string, bool) {
	count := g.maxTokens
	if count <= 0 {
		count = defaultGenerationTokens
	}
	text := strings.Join(generatedWords(g.fingerprint(), g.source, count), " ")
	return truncateAtStop(text, g.stop)
}

// truncateAtStop cuts the text at the earliest occurrence of any stop sequence. The
// stop sequence itself is not included in the result.
func truncateAtStop(text string, stop []string) (string, bool) {
	cut := -1
	for _, s := range stop {
		if s == "" {
			continue
		}
		if i := strings.Index(text, s); i >= 0 && (cut < 0 || i < cut) {
			cut = i
		}
	}
	if cut < 0 {
		return text, false
	}
	return strings.TrimRight(text[:cut], " "), true
}

func usageFor(source, generated string) servicedef.Usage {
	promptTokens := len(strings.Fields(source))
	if promptTokens == 0 {
		promptTokens = 1
	}
	completionTokens := len(strings.Fields(generated))
	return servicedef.Usage{
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		TotalTokens:      promptTokens + completionTokens,
	}
}

func concatMessages(messages []servicedef.Message) string {
	parts := make([]string, 0, len(messages))
	for _, m := range messages {
		if m.Content != "" {
			parts = append(parts, m.Content)
		}
	}
	return strings.Join(parts, "\n")
}

// toolCallFor fabricates the single deterministic tool call produced when a request
// supplies tools: the first tool is invoked with every declared parameter set to the
// last word of the source text, which is where instructions like "with expression set
// to 1+1" put the interesting value.
func toolCallFor(tools []servicedef.Tool, source string, fingerprint int64) servicedef.ToolCall {
	tool := tools[0]
	value := ""
	if words := strings.Fields(source); len(words) > 0 {
		value = words[len(words)-1]
	}
	args := map[string]string{}
	properties := tool.Function.Parameters.GetByKey("properties")
	for _, key := range properties.Keys(nil) {
		args[key] = value
	}
	argsJSON, _ := json.Marshal(args)
	return servicedef.ToolCall{
		ID:   fmt.Sprintf("call_%08x", uint32(fingerprint)),
		Type: "function",
		Function: servicedef.ToolCallFunction{
			Name:      tool.Function.Name,
			Arguments: string(argsJSON),
		},
	}
}

// sseWriter writes request-scoped server-sent event frames, flushing after each one so
// a consumer sees frames as they are produced rather than all at once at body close.
type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func newSSEWriter(w http.ResponseWriter) sseWriter {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)
	return sseWriter{w: w, flusher: flusher}
}

func (s sseWriter) sendData(data interface{}) {
	bytes, _ := json.Marshal(data)
	fmt.Fprintf(s.w, "data: %s\n\n", bytes)
	s.flush()
}

func (s sseWriter) sendNamedEvent(name string, data interface{}) {
	bytes, _ := json.Marshal(data)
	fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", name, bytes)
	s.flush()
}

func (s sseWriter) sendDone() {
	fmt.Fprint(s.w, "data: [DONE]\n\n")
	s.flush()
}

func (s sseWriter) flush() {
	if s.flusher != nil {
		s.flusher.Flush()
	}
}

// contentDeltas splits generated text into the per-word increments a streamed response
// carries; concatenating them reproduces the text exactly.
func contentDeltas(text string) []string {
	words := strings.Fields(text)
	deltas := make([]string, 0, len(words))
	for i, word := range words {
		if i == 0 {
			deltas = append(deltas, word)
		} else {
			deltas = append(deltas, " "+word)
		}
	}
	return deltas
}

func (s *MockInferenceServer) postChatCompletions(w http.ResponseWriter, r *http.Request) {
	var req servicedef.ChatCompletionRequest
	if !s.parseRequestBody(w, r, &req) {
		return
	}
	spec, ok := s.resolveModel(w, req.Model)
	if !ok {
		return
	}
	if spec.Type != ModelTypeLLM {
		s.writeJSON(w, http.StatusBadRequest, invalidRequestError(
			"This model does not support chat completion. Only LLM models support this endpoint."))
		return
	}

	maxTokens := req.MaxCompletionTokens
	if maxTokens == nil {
		maxTokens = req.MaxTokens
	}
	gen := generationRequest{
		model:         spec.ID,
		source:        concatMessages(req.Messages),
		maxTokens:     derefOr(maxTokens, 0),
		temperature:   req.Temperature,
		topP:          req.TopP,
		topK:          req.TopK,
		repeatPenalty: req.RepeatPenalty,
		seed:          req.Seed,
		stop:          req.Stop,
	}
	fingerprint := gen.fingerprint()
	id := fmt.Sprintf("chatcmpl-%08x", uint32(fingerprint))
	created := time.Now().Unix()

	var toolCall *servicedef.ToolCall
	text, stopped := "", false
	finish := ""
	if len(req.Tools) > 0 {
		call := toolCallFor(req.Tools, gen.source, fingerprint)
		toolCall = &call
		finish = "tool_calls"
	} else {
		text, stopped = generateText(gen)
		if stopped {
			finish = "stop"
		} else {
			finish = "length"
		}
	}
	usage := usageFor(gen.source, text)

	if req.Stream {
		s.streamChatCompletion(w, streamedChat{
			id: id, created: created, model: spec.ID,
			text: text, toolCall: toolCall, finish: finish, usage: usage,
			includeUsage: req.StreamOptions != nil && req.StreamOptions.IncludeUsage,
		})
		return
	}

	message := servicedef.Message{Role: "assistant", Content: text}
	if toolCall != nil {
		message.ToolCalls = []servicedef.ToolCall{*toolCall}
	}
	s.writeJSON(w, http.StatusOK, servicedef.ChatCompletionResponse{
		ID:      id,
		Object:  "chat.completion",
		Created: created,
		Model:   spec.ID,
		Choices: []servicedef.ChatChoice{{Index: 0, Message: message, FinishReason: finish}},
		Usage:   usage,
	})
}

type streamedChat struct {
	id           string
	created      int64
	model        string
	text         string
	toolCall     *servicedef.ToolCall
	finish       string
	usage        servicedef.Usage
	includeUsage bool
}

func (s *MockInferenceServer) streamChatCompletion(w http.ResponseWriter, out streamedChat) {
	sse := newSSEWriter(w)
	chunk := func(choices []servicedef.ChatChunkChoice, usage opt.Maybe[servicedef.Usage]) servicedef.ChatCompletionChunk {
		return servicedef.ChatCompletionChunk{
			ID:      out.id,
			Object:  "chat.completion.chunk",
			Created: out.created,
			Model:   out.model,
			Choices: choices,
			Usage:   usage,
		}
	}
	noUsage := opt.None[servicedef.Usage]()

	sse.sendData(chunk([]servicedef.ChatChunkChoice{
		{Delta: servicedef.ChatDelta{Role: "assistant"}},
	}, noUsage))

	if out.toolCall != nil {
		call := *out.toolCall
		call.Index = 0
		sse.sendData(chunk([]servicedef.ChatChunkChoice{
			{Delta: servicedef.ChatDelta{ToolCalls: []servicedef.ToolCall{call}}},
		}, noUsage))
	} else {
		for _, delta := range contentDeltas(out.text) {
			sse.sendData(chunk([]servicedef.ChatChunkChoice{
				{Delta: servicedef.ChatDelta{Content: opt.Some(delta)}},
			}, noUsage))
		}
	}

	sse.sendData(chunk([]servicedef.ChatChunkChoice{
		{FinishReason: opt.Some(out.finish)},
	}, noUsage))
	if out.includeUsage {
		sse.sendData(chunk([]servicedef.ChatChunkChoice{}, opt.Some(out.usage)))
	}
	sse.sendDone()
}

func (s *MockInferenceServer) postCompletions(w http.ResponseWriter, r *http.Request) {
	var req servicedef.CompletionRequest
	if !s.parseRequestBody(w, r, &req) {
		return
	}
	spec, ok := s.resolveModel(w, req.Model)
	if !ok {
		return
	}
	if spec.Type != ModelTypeLLM {
		s.writeJSON(w, http.StatusBadRequest, invalidRequestError(
			"This model does not support completion. Only LLM models support this endpoint."))
		return
	}

	gen := generationRequest{
		model:       spec.ID,
		source:      req.Prompt,
		maxTokens:   derefOr(req.MaxTokens, 0),
		temperature: req.Temperature,
		topP:        req.TopP,
		stop:        req.Stop,
	}
	text, stopped := generateText(gen)
	finish := "length"
	if stopped {
		finish = "stop"
	}
	usage := usageFor(gen.source, text)
	if req.Echo {
		if text == "" {
			text = req.Prompt
		} else {
			text = req.Prompt + " " + text
		}
	}
	id := fmt.Sprintf("cmpl-%08x", uint32(gen.fingerprint()))
	created := time.Now().Unix()

	if req.Stream {
		sse := newSSEWriter(w)
		for _, delta := range contentDeltas(text) {
			sse.sendData(servicedef.CompletionResponse{
				ID: id, Object: "text_completion", Created: created, Model: spec.ID,
				Choices: []servicedef.CompletionChoice{{Index: 0, Text: delta}},
			})
		}
		sse.sendData(servicedef.CompletionResponse{
			ID: id, Object: "text_completion", Created: created, Model: spec.ID,
			Choices: []servicedef.CompletionChoice{{Index: 0, FinishReason: finish}},
			Usage:   usage,
		})
		sse.sendDone()
		return
	}

	s.writeJSON(w, http.StatusOK, servicedef.CompletionResponse{
		ID: id, Object: "text_completion", Created: created, Model: spec.ID,
		Choices: []servicedef.CompletionChoice{{Index: 0, Text: text, FinishReason: finish}},
		Usage:   usage,
	})
}

func (s *MockInferenceServer) postResponses(w http.ResponseWriter, r *http.Request) {
	var req servicedef.ResponsesRequest
	if !s.parseRequestBody(w, r, &req) {
		return
	}
	spec, ok := s.resolveModel(w, req.Model)
	if !ok {
		return
	}

	gen := generationRequest{
		model:       spec.ID,
		source:      concatMessages(req.Input),
		maxTokens:   derefOr(req.MaxOutputTokens, 0),
		temperature: req.Temperature,
	}
	text, _ := generateText(gen)
	id := fmt.Sprintf("resp_%08x", uint32(gen.fingerprint()))
	full := servicedef.ResponsesResponse{
		ID:     id,
		Object: "response",
		Model:  spec.ID,
		Output: []servicedef.ResponseOutput{{
			Type: "message",
			Role: "assistant",
			Content: []servicedef.ResponseOutputContent{{
				Type: "output_text",
				Text: text,
			}},
		}},
	}

	if !req.Stream {
		s.writeJSON(w, http.StatusOK, full)
		return
	}

	sse := newSSEWriter(w)
	inProgress := full
	inProgress.Output = []servicedef.ResponseOutput{}
	sse.sendNamedEvent(servicedef.ResponseEventCreated, servicedef.ResponsesStreamEvent{
		Type:     servicedef.ResponseEventCreated,
		Response: opt.Some(inProgress),
	})
	for _, delta := range contentDeltas(text) {
		sse.sendNamedEvent(servicedef.ResponseEventOutputTextDelta, servicedef.ResponsesStreamEvent{
			Type:  servicedef.ResponseEventOutputTextDelta,
			Delta: delta,
		})
	}
	sse.sendNamedEvent(servicedef.ResponseEventCompleted, servicedef.ResponsesStreamEvent{
		Type:     servicedef.ResponseEventCompleted,
		Response: opt.Some(full),
	})
}
