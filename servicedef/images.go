package servicedef

// ImageGenerationRequest is the request body for POST /images/generations.
type ImageGenerationRequest struct {
	Model          string   `json:"model"`
	Prompt         string   `json:"prompt,omitempty"`
	Size           string   `json:"size,omitempty"`
	Steps          *int     `json:"steps,omitempty"`
	CfgScale       *float64 `json:"cfg_scale,omitempty"`
	Seed           *int64   `json:"seed,omitempty"`
	N              *int     `json:"n,omitempty"`
	ResponseFormat string   `json:"response_format,omitempty"`
}

type ImageGenerationResponse struct {
	Created int64       `json:"created"`
	Data    []ImageData `json:"data"`
}

type ImageData struct {
	B64JSON string `json:"b64_json"`
}

// PNGMagic is the first four bytes of every PNG file; generated images must decode to
// data beginning with it.
var PNGMagic = []byte{0x89, 'P', 'N', 'G'}
