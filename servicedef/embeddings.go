package servicedef

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"
)

// Values for EmbeddingsRequest.EncodingFormat.
const (
	EncodingFormatFloat  = "float"
	EncodingFormatBase64 = "base64"
)

// EmbeddingsRequest is the request body for POST /embeddings. Input is either a single
// JSON string or an array of strings.
type EmbeddingsRequest struct {
	Model          string        `json:"model"`
	Input          ldvalue.Value `json:"input"`
	EncodingFormat string        `json:"encoding_format,omitempty"`
}

type EmbeddingsResponse struct {
	Object string          `json:"object"`
	Model  string          `json:"model,omitempty"`
	Data   []EmbeddingData `json:"data"`
	Usage  Usage           `json:"usage"`
}

// EmbeddingData is one embedding vector. Depending on the requested encoding format,
// Embedding is either a JSON array of numbers or a base64 string of little-endian
// float32 values.
type EmbeddingData struct {
	Object    string        `json:"object,omitempty"`
	Index     int           `json:"index"`
	Embedding ldvalue.Value `json:"embedding"`
}

// FloatVector returns the embedding as a float slice, decoding the base64 packed-float32
// representation if that is what the server sent.
func (d EmbeddingData) FloatVector() ([]float64, error) {
	switch d.Embedding.Type() {
	case ldvalue.ArrayType:
		out := make([]float64, 0, d.Embedding.Count())
		for i := 0; i < d.Embedding.Count(); i++ {
			out = append(out, d.Embedding.GetByIndex(i).Float64Value())
		}
		return out, nil
	case ldvalue.StringType:
		raw, err := base64.StdEncoding.DecodeString(d.Embedding.StringValue())
		if err != nil {
			return nil, fmt.Errorf("embedding is not valid base64: %w", err)
		}
		if len(raw)%4 != 0 {
			return nil, fmt.Errorf("base64 embedding has %d bytes, not a multiple of 4", len(raw))
		}
		out := make([]float64, 0, len(raw)/4)
		for i := 0; i < len(raw); i += 4 {
			bits := binary.LittleEndian.Uint32(raw[i:])
			out = append(out, float64(math.Float32frombits(bits)))
		}
		return out, nil
	default:
		return nil, fmt.Errorf("embedding has unexpected JSON type %s", d.Embedding.Type())
	}
}
