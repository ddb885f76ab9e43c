package entity

import "encoding/json"

// FieldConfidence carries the per-field score and, when the inference service
// reports one, the location of the value in the source document.
type FieldConfidence struct {
	Confidence float32 `json:"confidence"`
	Location   string  `json:"location,omitempty"` // e.g. "page 2", "line 14"
}

// ExtractionResult is the immutable outcome of a single extraction.
// Produced by the extraction engine, consumed by the review router.
type ExtractionResult struct {
	Success        bool                       `json:"success"`
	Data           json.RawMessage            `json:"data,omitempty"`
	Confidence     float32                    `json:"confidence"` // 0..1
	Fields         map[string]FieldConfidence `json:"fields,omitempty"`
	ErrorMsg       string                     `json:"error,omitempty"`
	RequiresReview bool                       `json:"requires_review"`
	CacheHit       bool                       `json:"cache_hit,omitempty"`
}
