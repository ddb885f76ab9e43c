package inference

import "context"

// Request is a structured-completion request sent to the inference service.
type Request struct {
	ActorID string         // limiting scope (owner id); used by the gateway, not the wire call
	System  string         // system instruction
	Content string         // user content (normalized text, OCR output, headers+samples)
	Schema  map[string]any // JSON Schema the reply must match
	Context map[string]any // semantic context; also feeds the cache fingerprint
}

// Response is the raw structured reply.
type Response struct {
	Content  []byte `json:"content"` // JSON document from the service
	CacheHit bool   `json:"cache_hit"`
}

// Client is the interface the pipeline depends on. The gateway wraps a Client
// with caching, rate limiting and retries; adapters never call one directly.
type Client interface {
	Complete(ctx context.Context, req Request) (Response, error)
}
