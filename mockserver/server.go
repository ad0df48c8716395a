package mockserver

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/lemonade-sdk/server-test-harness/framework"
	"github.com/lemonade-sdk/server-test-harness/servicedef"

	"github.com/gorilla/mux"
	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"
)

// apiPrefixes are the path prefixes the real server answers on. Every route is
// registered under all four so tests can verify prefix-independence.
var apiPrefixes = []string{"/api/v0", "/api/v1", "/v0", "/v1"}

const (
	// DefaultVersion is the server version the mock reports unless configured otherwise.
	DefaultVersion = "8.1.4"

	// DefaultMaxLoadedModels matches the real server's default --max-loaded-models.
	DefaultMaxLoadedModels = 1
)

// Config is the optional configuration of a MockInferenceServer. Zero values select
// the defaults.
type Config struct {
	Version         string
	MaxLoadedModels int
	Catalog         []ModelSpec
	SystemInfo      ldvalue.Value
}

// MockInferenceServer is an in-process imitation of the lemonade-server HTTP API. It
// reproduces the wire-level behavior the harness depends on (response shapes, status
// codes, error envelopes, model auto-loading and per-type LRU eviction, SSE streaming)
// with deterministic canned inference, so that harness components and suite plumbing
// can be tested without a real server binary.
type MockInferenceServer struct {
	version    string
	catalog    []ModelSpec
	registry   *modelRegistry
	systemInfo ldvalue.Value
	logs       *LogStreamService
	handler    http.Handler
	logger     framework.Logger
	lock       sync.RWMutex
}

// NewMockInferenceServer creates a mock server. It implements http.Handler; serve it
// with httptest.NewServer or mount it wherever a real server's API would be.
func NewMockInferenceServer(config Config, logger framework.Logger) *MockInferenceServer {
	if config.Version == "" {
		config.Version = DefaultVersion
	}
	if config.MaxLoadedModels == 0 {
		config.MaxLoadedModels = DefaultMaxLoadedModels
	}
	if config.Catalog == nil {
		config.Catalog = DefaultCatalog()
	}
	if config.SystemInfo.IsNull() {
		config.SystemInfo = DefaultSystemInfo()
	}

	s := &MockInferenceServer{
		version:    config.Version,
		catalog:    append([]ModelSpec(nil), config.Catalog...),
		registry:   newModelRegistry(config.MaxLoadedModels),
		systemInfo: config.SystemInfo,
		logs:       NewLogStreamService(logger),
		logger:     logger,
	}

	router := mux.NewRouter()
	for _, prefix := range apiPrefixes {
		api := router.PathPrefix(prefix).Subrouter()
		api.HandleFunc(servicedef.EndpointHealth, s.getHealth).Methods("GET", "HEAD")
		api.HandleFunc(servicedef.EndpointModels, s.getModels).Methods("GET", "HEAD")
		api.HandleFunc(servicedef.EndpointModels+"/{id}", s.getModelByID).Methods("GET")
		api.HandleFunc(servicedef.EndpointLoad, s.postLoad).Methods("POST")
		api.HandleFunc(servicedef.EndpointUnload, s.postUnload).Methods("POST")
		api.HandleFunc(servicedef.EndpointPull, s.postPull).Methods("POST")
		api.HandleFunc(servicedef.EndpointDelete, s.postDelete).Methods("POST")
		api.HandleFunc(servicedef.EndpointChatCompletions, s.postChatCompletions).Methods("POST")
		api.HandleFunc(servicedef.EndpointCompletions, s.postCompletions).Methods("POST")
		api.HandleFunc(servicedef.EndpointResponses, s.postResponses).Methods("POST")
		api.HandleFunc(servicedef.EndpointEmbeddings, s.postEmbeddings).Methods("POST")
		api.HandleFunc(servicedef.EndpointReranking, s.postReranking).Methods("POST")
		api.HandleFunc(servicedef.EndpointImageGenerations, s.postImageGenerations).Methods("POST")
		api.HandleFunc(servicedef.EndpointSystemInfo, s.getSystemInfo).Methods("GET", "HEAD")
		api.HandleFunc(servicedef.EndpointLogStream, s.getLogStream).Methods("GET")
	}
	s.handler = router

	return s
}

func (s *MockInferenceServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.logger.Printf("Received %s %s", r.Method, r.URL)
	if r.URL.Path != "" && !strings.HasSuffix(r.URL.Path, servicedef.EndpointLogStream) {
		s.logs.Append(fmt.Sprintf("%s %s", r.Method, r.URL.Path))
	}
	s.handler.ServeHTTP(w, r)
}

// Close releases the resources held by the mock's streaming endpoints.
func (s *MockInferenceServer) Close() {
	s.logs.Close()
}

// Version returns the version string the mock reports in its health response.
func (s *MockInferenceServer) Version() string { return s.version }

// SetSystemInfo replaces the document served by GET /system-info.
func (s *MockInferenceServer) SetSystemInfo(info ldvalue.Value) {
	s.lock.Lock()
	s.systemInfo = info
	s.lock.Unlock()
}

// AppendLogLine adds a line to the log stream served by GET /logs/stream.
func (s *MockInferenceServer) AppendLogLine(line string) {
	s.logs.Append(line)
}

// catalogModel returns the catalog entry with the given ID, including entries filtered
// out by system requirements. The caller must hold the lock.
func (s *MockInferenceServer) catalogModel(modelID string) (ModelSpec, bool) {
	for _, m := range s.catalog {
		if m.ID == modelID {
			return m, true
		}
	}
	return ModelSpec{}, false
}

// supportedModelIDs returns the sorted IDs of the models available on this system. The
// caller must hold the lock.
func (s *MockInferenceServer) supportedModelIDs() []string {
	ids := make([]string, 0, len(s.catalog))
	for _, m := range s.catalog {
		if m.FilterReason == "" {
			ids = append(ids, m.ID)
		}
	}
	sort.Strings(ids)
	return ids
}

// errorEnvelope is the structured error body produced by model resolution and request
// validation failures. Simpler failures use a bare {"error": "<message>"} object
// instead, written by writeRawError.
type errorEnvelope struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Message        string `json:"message"`
	Type           string `json:"type"`
	Param          string `json:"param,omitempty"`
	Code           string `json:"code,omitempty"`
	RequestedModel string `json:"requested_model,omitempty"`
}

func invalidRequestError(message string) errorEnvelope {
	return errorEnvelope{Error: errorDetail{Message: message, Type: "invalid_request_error"}}
}

// modelResolutionError builds the status and body for a model that could not be
// resolved: a filtered model yields model_not_supported, anything else yields
// model_not_found with up to three suggestions. The caller must hold the lock.
func (s *MockInferenceServer) modelResolutionError(modelID string) (int, errorEnvelope) {
	if spec, ok := s.catalogModel(modelID); ok && spec.FilterReason != "" {
		message := fmt.Sprintf("Model '%s' is not available on this system. %s", modelID, spec.FilterReason)
		return http.StatusNotFound, errorEnvelope{Error: errorDetail{
			Message:        message,
			Type:           "model_not_supported",
			Param:          "model",
			Code:           "model_not_supported",
			RequestedModel: modelID,
		}}
	}

	message := fmt.Sprintf("Model '%s' was not found. ", modelID)
	if ids := s.supportedModelIDs(); len(ids) > 0 {
		suggested := ids
		if len(suggested) > 3 {
			suggested = suggested[:3]
		}
		quoted := make([]string, 0, len(suggested))
		for _, id := range suggested {
			quoted = append(quoted, "'"+id+"'")
		}
		message += "Available models include: " + strings.Join(quoted, ", ")
		if len(ids) > 3 {
			message += fmt.Sprintf(", and %d more", len(ids)-3)
		}
		message += ". "
	}
	message += "Use 'lemonade-server list' or GET /api/v1/models?show_all=true to see all available models."

	return http.StatusNotFound, errorEnvelope{Error: errorDetail{
		Message:        message,
		Type:           "model_not_found",
		Param:          "model",
		Code:           "model_not_found",
		RequestedModel: modelID,
	}}
}

// resolveModel implements the model resolution every inference endpoint shares: an
// explicit model name is looked up and auto-loaded (possibly evicting another model of
// the same type), an empty name falls back to the most recently used loaded model, and
// an empty name with nothing loaded is a 400. When resolution fails, the error response
// has already been written and ok is false.
func (s *MockInferenceServer) resolveModel(w http.ResponseWriter, modelID string) (ModelSpec, bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	now := time.Now()

	if modelID == "" {
		spec, ok := s.registry.mostRecentlyUsed()
		if !ok {
			s.writeRawError(w, http.StatusBadRequest, "No model loaded and no model specified in request")
			return ModelSpec{}, false
		}
		s.registry.touch(spec.ID, now)
		return spec, true
	}

	spec, ok := s.catalogModel(modelID)
	if !ok || spec.FilterReason != "" {
		status, envelope := s.modelResolutionError(modelID)
		s.writeJSON(w, status, envelope)
		return ModelSpec{}, false
	}
	for _, evicted := range s.registry.load(spec, now) {
		s.logger.Printf("Evicted %s to stay within the loaded-model limit", evicted)
	}
	return spec, true
}

// parseRequestBody decodes a JSON request body, writing the 400 response itself when
// the body is malformed.
func (s *MockInferenceServer) parseRequestBody(w http.ResponseWriter, r *http.Request, target interface{}) bool {
	body, err := io.ReadAll(r.Body)
	if err == nil {
		err = json.Unmarshal(body, target)
	}
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, invalidRequestError(fmt.Sprintf("Invalid JSON: %s", err)))
		return false
	}
	return true
}

func (s *MockInferenceServer) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	data, err := json.Marshal(body)
	if err != nil {
		s.logger.Printf("Failed to marshal mock response body: %s", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeRawError writes the unstructured {"error": "<message>"} body some endpoints use.
func (s *MockInferenceServer) writeRawError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

type healthJSON struct {
	Status          string            `json:"status"`
	Version         string            `json:"version"`
	ModelLoaded     *string           `json:"model_loaded"`
	AllModelsLoaded []loadedModelJSON `json:"all_models_loaded"`
	MaxModels       map[string]int    `json:"max_models"`
	LogStreaming    logStreamingJSON  `json:"log_streaming"`
}

type loadedModelJSON struct {
	ModelName     string        `json:"model_name"`
	Checkpoint    string        `json:"checkpoint"`
	Type          string        `json:"type"`
	Device        string        `json:"device"`
	BackendURL    string        `json:"backend_url"`
	Recipe        string        `json:"recipe"`
	RecipeOptions ldvalue.Value `json:"recipe_options"`
	LastUse       int64         `json:"last_use"`
}

type logStreamingJSON struct {
	SSE       bool `json:"sse"`
	WebSocket bool `json:"websocket"`
}

func (s *MockInferenceServer) getHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method == "HEAD" {
		w.WriteHeader(http.StatusOK)
		return
	}

	s.lock.RLock()
	loaded := s.registry.all()
	mostRecent, hasLoaded := s.registry.mostRecentlyUsed()
	maxPerType := s.registry.maxPerType
	s.lock.RUnlock()

	var modelLoaded *string
	if hasLoaded {
		name := mostRecent.ID
		modelLoaded = &name
	}
	entries := make([]loadedModelJSON, 0, len(loaded))
	for _, m := range loaded {
		options := m.spec.RecipeOptions
		if options.IsNull() {
			options = ldvalue.ObjectBuild().Build()
		}
		entries = append(entries, loadedModelJSON{
			ModelName:     m.spec.ID,
			Checkpoint:    m.spec.Checkpoint,
			Type:          m.spec.Type,
			Device:        m.spec.device(),
			BackendURL:    "http://localhost:8081",
			Recipe:        m.spec.Recipe,
			RecipeOptions: options,
			LastUse:       m.lastUse.UnixMilli(),
		})
	}

	s.writeJSON(w, http.StatusOK, healthJSON{
		Status:          "ok",
		Version:         s.version,
		ModelLoaded:     modelLoaded,
		AllModelsLoaded: entries,
		MaxModels: map[string]int{
			ModelTypeLLM:       maxPerType,
			ModelTypeEmbedding: maxPerType,
			ModelTypeReranking: maxPerType,
			ModelTypeAudio:     maxPerType,
			ModelTypeImage:     maxPerType,
		},
		LogStreaming: logStreamingJSON{SSE: true, WebSocket: false},
	})
}

func (s *MockInferenceServer) getModels(w http.ResponseWriter, r *http.Request) {
	if r.Method == "HEAD" {
		w.WriteHeader(http.StatusOK)
		return
	}
	showAll := r.URL.Query().Get("show_all") == "true"

	s.lock.RLock()
	models := append([]ModelSpec(nil), s.catalog...)
	s.lock.RUnlock()

	sortModelsByID(models)
	data := make([]modelJSON, 0, len(models))
	for _, m := range models {
		if m.FilterReason != "" {
			continue
		}
		if !showAll && !m.Downloaded {
			continue
		}
		data = append(data, m.toJSON())
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"object": "list", "data": data})
}

func (s *MockInferenceServer) getModelByID(w http.ResponseWriter, r *http.Request) {
	modelID := mux.Vars(r)["id"]

	s.lock.RLock()
	defer s.lock.RUnlock()
	spec, ok := s.catalogModel(modelID)
	if !ok || spec.FilterReason != "" {
		status, envelope := s.modelResolutionError(modelID)
		s.writeJSON(w, status, envelope)
		return
	}
	s.writeJSON(w, http.StatusOK, spec.toJSON())
}

type loadResultJSON struct {
	Status     string `json:"status"`
	ModelName  string `json:"model_name"`
	Checkpoint string `json:"checkpoint"`
	Recipe     string `json:"recipe"`
}

func (s *MockInferenceServer) postLoad(w http.ResponseWriter, r *http.Request) {
	var params servicedef.LoadModelParams
	if !s.parseRequestBody(w, r, &params) {
		return
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	spec, ok := s.catalogModel(params.ModelName)
	if !ok || spec.FilterReason != "" {
		status, envelope := s.modelResolutionError(params.ModelName)
		s.writeJSON(w, status, envelope)
		return
	}
	if !spec.Downloaded {
		// The real server downloads on first load; here it just becomes downloaded.
		s.setDownloaded(params.ModelName, true)
		spec.Downloaded = true
	}
	for _, evicted := range s.registry.load(spec, time.Now()) {
		s.logger.Printf("Evicted %s to stay within the loaded-model limit", evicted)
	}
	s.writeJSON(w, http.StatusOK, loadResultJSON{
		Status:     servicedef.StatusSuccess,
		ModelName:  spec.ID,
		Checkpoint: spec.Checkpoint,
		Recipe:     spec.Recipe,
	})
}

func (s *MockInferenceServer) postUnload(w http.ResponseWriter, r *http.Request) {
	// Parse errors and absent fields both mean "unload everything".
	modelID := ""
	if body, err := io.ReadAll(r.Body); err == nil && len(body) > 0 {
		var params struct {
			ModelName string `json:"model_name"`
			Model     string `json:"model"`
		}
		if json.Unmarshal(body, &params) == nil {
			modelID = params.ModelName
			if modelID == "" {
				modelID = params.Model
			}
		}
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	if modelID == "" {
		s.registry.removeAll()
		s.writeJSON(w, http.StatusOK, servicedef.StatusResponse{
			Status:  servicedef.StatusSuccess,
			Message: "All models unloaded successfully",
		})
		return
	}
	if !s.registry.remove(modelID) {
		s.writeRawError(w, http.StatusNotFound, fmt.Sprintf("Model not loaded: %s", modelID))
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":     servicedef.StatusSuccess,
		"message":    "Model unloaded successfully",
		"model_name": modelID,
	})
}

// setDownloaded updates the downloaded flag of a catalog entry in place. The caller
// must hold the lock.
func (s *MockInferenceServer) setDownloaded(modelID string, downloaded bool) {
	for i := range s.catalog {
		if s.catalog[i].ID == modelID {
			s.catalog[i].Downloaded = downloaded
			return
		}
	}
}

type pullRequestJSON struct {
	ModelName  string `json:"model_name"`
	Checkpoint string `json:"checkpoint"`
	Recipe     string `json:"recipe"`
	Stream     bool   `json:"stream"`
}

// pullProgressJSON is the payload of the progress and complete events emitted by a
// streaming pull.
type pullProgressJSON struct {
	File            string  `json:"file"`
	FileIndex       int     `json:"file_index"`
	TotalFiles      int     `json:"total_files"`
	BytesDownloaded int64   `json:"bytes_downloaded"`
	BytesTotal      int64   `json:"bytes_total"`
	Percent         float64 `json:"percent"`
}

func (s *MockInferenceServer) postPull(w http.ResponseWriter, r *http.Request) {
	var params pullRequestJSON
	if !s.parseRequestBody(w, r, &params) {
		return
	}
	if params.ModelName == "" {
		s.writeRawError(w, http.StatusInternalServerError, "Missing 'model_name' field in request")
		return
	}

	if params.Checkpoint != "" || params.Recipe != "" {
		if !strings.HasPrefix(params.ModelName, "user.") {
			s.writeRawError(w, http.StatusBadRequest, fmt.Sprintf(
				"When providing 'checkpoint' or 'recipe', the model name must include the "+
					"`user.` prefix, for example `user.Phi-4-Mini-GGUF`. Received: %s", params.ModelName))
			return
		}
	}

	s.lock.Lock()
	if _, ok := s.catalogModel(params.ModelName); ok {
		s.setDownloaded(params.ModelName, true)
	} else if strings.HasPrefix(params.ModelName, "user.") {
		s.catalog = append(s.catalog, ModelSpec{
			ID:         params.ModelName,
			Checkpoint: params.Checkpoint,
			Recipe:     params.Recipe,
			Type:       ModelTypeLLM,
			Downloaded: true,
		})
	} else {
		s.lock.Unlock()
		s.writeRawError(w, http.StatusInternalServerError, fmt.Sprintf("Model not found: %s", params.ModelName))
		return
	}
	s.lock.Unlock()

	if params.Stream {
		sse := newSSEWriter(w)
		file := params.ModelName + ".gguf"
		sse.sendNamedEvent("progress", pullProgressJSON{
			File: file, FileIndex: 1, TotalFiles: 1,
			BytesDownloaded: 512, BytesTotal: 1024, Percent: 50,
		})
		sse.sendNamedEvent("complete", pullProgressJSON{
			File: file, FileIndex: 1, TotalFiles: 1,
			BytesDownloaded: 1024, BytesTotal: 1024, Percent: 100,
		})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":     servicedef.StatusSuccess,
		"model_name": params.ModelName,
	})
}

func (s *MockInferenceServer) postDelete(w http.ResponseWriter, r *http.Request) {
	var params struct {
		Model     string `json:"model"`
		ModelName string `json:"model_name"`
	}
	if !s.parseRequestBody(w, r, &params) {
		return
	}
	modelID := params.Model
	if modelID == "" {
		modelID = params.ModelName
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	if _, ok := s.catalogModel(modelID); !ok {
		s.writeRawError(w, http.StatusInternalServerError, fmt.Sprintf("Model not found: %s", modelID))
		return
	}
	// A loaded model is unloaded first, like the real server releasing file locks.
	s.registry.remove(modelID)
	s.setDownloaded(modelID, false)
	s.writeJSON(w, http.StatusOK, servicedef.StatusResponse{
		Status:  servicedef.StatusSuccess,
		Message: fmt.Sprintf("Deleted model: %s", modelID),
	})
}

func (s *MockInferenceServer) getLogStream(w http.ResponseWriter, r *http.Request) {
	s.logs.ServeHTTP(w, r)
}
