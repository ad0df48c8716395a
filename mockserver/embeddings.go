package mockserver

import (
	"encoding/base64"
	"encoding/binary"
	"hash/fnv"
	"math"
	"net/http"
	"strings"
	"unicode"

	"github.com/lemonade-sdk/server-test-harness/servicedef"

	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"
)

const embeddingDimension = 384

// normalizedWords lowercases the text and strips surrounding punctuation from each
// word, so lexical comparisons see "Pasta." and "pasta" as the same word.
func normalizedWords(text string) []string {
	fields := strings.Fields(strings.ToLower(text))
	words := make([]string, 0, len(fields))
	for _, f := range fields {
		w := strings.TrimFunc(f, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsNumber(r)
		})
		if w != "" {
			words = append(words, w)
		}
	}
	return words
}

func distinctWords(text string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range normalizedWords(text) {
		set[w] = true
	}
	return set
}

// embeddingVector maps text to a unit vector in which each word contributes to a bucket
// chosen by hashing it. Identical texts get identical vectors, and texts sharing words
// share buckets, so lexical overlap shows up as cosine similarity.
func embeddingVector(text string) []float64 {
	v := make([]float64, embeddingDimension)
	total := 0.0
	for _, w := range normalizedWords(text) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		v[int(h.Sum32())%embeddingDimension]++
		total++
	}
	if total == 0 {
		v[0] = 1
		return v
	}
	norm := 0.0
	for _, x := range v {
		norm += x * x
	}
	norm = math.Sqrt(norm)
	for i := range v {
		v[i] /= norm
	}
	return v
}

// packFloat32Base64 encodes a vector the way the base64 encoding format transports it:
// little-endian float32 values, base64-encoded.
func packFloat32Base64(vec []float64) string {
	buf := make([]byte, 4*len(vec))
	for i, x := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(float32(x)))
	}
	return base64.StdEncoding.EncodeToString(buf)
}

func (s *MockInferenceServer) postEmbeddings(w http.ResponseWriter, r *http.Request) {
	var req servicedef.EmbeddingsRequest
	if !s.parseRequestBody(w, r, &req) {
		return
	}
	spec, ok := s.resolveModel(w, req.Model)
	if !ok {
		return
	}

	var inputs []string
	switch req.Input.Type() {
	case ldvalue.StringType:
		inputs = []string{req.Input.StringValue()}
	case ldvalue.ArrayType:
		for i := 0; i < req.Input.Count(); i++ {
			inputs = append(inputs, req.Input.GetByIndex(i).StringValue())
		}
	default:
		s.writeRawError(w, http.StatusInternalServerError, "Invalid 'input' field in request")
		return
	}

	promptTokens := 0
	data := make([]servicedef.EmbeddingData, 0, len(inputs))
	for i, text := range inputs {
		promptTokens += len(normalizedWords(text))
		vec := embeddingVector(text)
		var embedding ldvalue.Value
		if req.EncodingFormat == servicedef.EncodingFormatBase64 {
			embedding = ldvalue.String(packFloat32Base64(vec))
		} else {
			arr := ldvalue.ArrayBuild()
			for _, x := range vec {
				arr.Add(ldvalue.Float64(x))
			}
			embedding = arr.Build()
		}
		data = append(data, servicedef.EmbeddingData{Object: "embedding", Index: i, Embedding: embedding})
	}

	s.writeJSON(w, http.StatusOK, servicedef.EmbeddingsResponse{
		Object: "list",
		Model:  spec.ID,
		Data:   data,
		Usage:  servicedef.Usage{PromptTokens: promptTokens, TotalTokens: promptTokens},
	})
}

// rerankingScore rates a document's relevance to a query as the fraction of the query's
// distinct words the document contains.
func rerankingScore(query, document string) float64 {
	queryWords := distinctWords(query)
	if len(queryWords) == 0 {
		return 0
	}
	docWords := distinctWords(document)
	matched := 0
	for w := range queryWords {
		if docWords[w] {
			matched++
		}
	}
	return float64(matched) / float64(len(queryWords))
}

func (s *MockInferenceServer) postReranking(w http.ResponseWriter, r *http.Request) {
	var req servicedef.RerankingRequest
	if !s.parseRequestBody(w, r, &req) {
		return
	}
	spec, ok := s.resolveModel(w, req.Model)
	if !ok {
		return
	}

	results := make([]servicedef.RerankingResult, 0, len(req.Documents))
	for i, doc := range req.Documents {
		results = append(results, servicedef.RerankingResult{
			Index:          i,
			RelevanceScore: rerankingScore(req.Query, doc),
		})
	}
	s.writeJSON(w, http.StatusOK, servicedef.RerankingResponse{
		Object:  "list",
		Model:   spec.ID,
		Results: results,
	})
}
