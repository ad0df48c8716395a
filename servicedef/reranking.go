package servicedef

// RerankingRequest is the request body for POST /reranking.
type RerankingRequest struct {
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	Model     string   `json:"model"`
}

type RerankingResponse struct {
	Object  string            `json:"object,omitempty"`
	Model   string            `json:"model,omitempty"`
	Results []RerankingResult `json:"results"`
}

// RerankingResult scores one input document; Index refers to the document's position in
// the request. Results are not guaranteed to arrive sorted.
type RerankingResult struct {
	Index          int     `json:"index"`
	RelevanceScore float64 `json:"relevance_score"`
}
