package opinion

// DetectRequest is one chunk to classify against a persons whitelist.
type DetectRequest struct {
	ChunkID string   `json:"chunk_id" validate:"required"`
	Start   float64  `json:"start" validate:"gte=0"`
	End     float64  `json:"end" validate:"gte=0"`
	Text    string   `json:"text" validate:"required"`
	Persons []string `json:"persons"`
}

// DetectBatchRequest classifies several chunks in order.
type DetectBatchRequest struct {
	Items []DetectRequest `json:"items" validate:"required,min=1,dive"`
}
