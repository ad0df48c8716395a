package mockserver

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"image"
	"image/png"
	"io"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/lemonade-sdk/server-test-harness/servicedef"
)

func (s *MockInferenceServer) postImageGenerations(w http.ResponseWriter, r *http.Request) {
	// Validation order matters here and is part of the contract: malformed JSON, then
	// missing prompt, then missing model, then unknown model.
	body, err := io.ReadAll(r.Body)
	var req servicedef.ImageGenerationRequest
	if err == nil {
		err = json.Unmarshal(body, &req)
	}
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, invalidRequestError(fmt.Sprintf("Invalid JSON: %s", err)))
		return
	}
	if req.Prompt == "" {
		s.writeJSON(w, http.StatusBadRequest, invalidRequestError("Missing 'prompt' field in request"))
		return
	}
	if req.Model == "" {
		s.writeJSON(w, http.StatusBadRequest, invalidRequestError("Missing 'model' field in request"))
		return
	}
	spec, ok := s.resolveModel(w, req.Model)
	if !ok {
		return
	}

	defaults := spec.ImageDefaults
	if defaults == nil {
		defaults = &servicedef.ImageDefaults{Steps: 20, CfgScale: 7.5, Width: 512, Height: 512}
	}
	width, height := parseImageSize(req.Size, defaults.Width, defaults.Height)
	steps := derefOr(req.Steps, defaults.Steps)
	cfgScale := derefOr(req.CfgScale, defaults.CfgScale)
	count := derefOr(req.N, 1)
	if count < 1 {
		count = 1
	}

	// Absent an explicit seed the real server picks one at random; the mock derives one
	// from the request instead so that identical requests produce identical images.
	h := fnv.New64a()
	fmt.Fprintf(h, "%s\x00%s\x00%d\x00%g\x00%dx%d", spec.ID, req.Prompt, steps, cfgScale, width, height)
	seed := derefOr(req.Seed, int64(h.Sum64()))

	data := make([]servicedef.ImageData, 0, count)
	for i := 0; i < count; i++ {
		encoded := renderPNG(width, height, seed+int64(i))
		data = append(data, servicedef.ImageData{B64JSON: base64.StdEncoding.EncodeToString(encoded)})
	}
	s.writeJSON(w, http.StatusOK, servicedef.ImageGenerationResponse{
		Created: time.Now().Unix(),
		Data:    data,
	})
}

// parseImageSize interprets a "WIDTHxHEIGHT" size string, falling back to the given
// defaults when the string is absent or malformed.
func parseImageSize(size string, defaultWidth, defaultHeight int) (int, int) {
	ws, hs, found := strings.Cut(size, "x")
	if !found {
		return defaultWidth, defaultHeight
	}
	width, werr := strconv.Atoi(ws)
	height, herr := strconv.Atoi(hs)
	if werr != nil || herr != nil || width < 1 || height < 1 {
		return defaultWidth, defaultHeight
	}
	return width, height
}

// renderPNG produces a deterministic noise image of the requested dimensions. Nothing
// about the pixels is meaningful; what matters is that the bytes are a valid PNG whose
// size scales with the requested dimensions.
func renderPNG(width, height int, seed int64) []byte {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	rng := rand.New(rand.NewSource(seed))
	_, _ = rng.Read(img.Pix)
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 0xff
	}
	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}
