// Package extract turns normalized content into confidence-scored structured
// records, one document type at a time.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/docintake/constants"
	"github.com/joseph-ayodele/docintake/internal/common"
	"github.com/joseph-ayodele/docintake/internal/entity"
	"github.com/joseph-ayodele/docintake/internal/inference"
	"github.com/joseph-ayodele/docintake/internal/schema"
)

// ReviewThreshold is the confidence below which a result always requires
// human review.
const ReviewThreshold = 0.8

// fallbackConfidence is assumed when a structurally valid reply carries no
// confidence at all; low enough to route to review.
const fallbackConfidence = 0.5

// Engine selects the instruction for a document type, invokes the inference
// service through the gateway, validates the reply shape and scores it.
type Engine struct {
	client inference.Client
	log    *slog.Logger
}

func NewEngine(client inference.Client, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{client: client, log: logger}
}

// Extract runs one extraction. The returned result is always usable by the
// review router; the error is non-nil only for infrastructure failures
// (rate limiting, exhausted retries) that the orchestrator records on the
// task. A malformed reply is a failed-but-reviewable result, not an error.
func (e *Engine) Extract(ctx context.Context, content string, docType constants.DocumentType, actorID string) (entity.ExtractionResult, error) {
	start := time.Now()

	system := BuildSystemPrompt(docType)
	if system == "" {
		// Unrecognized type fails fast without consuming an inference call.
		e.log.Warn("extract.unknown_type", "doc_type", docType)
		return entity.ExtractionResult{
			Success:        false,
			RequiresReview: true,
			ErrorMsg:       fmt.Sprintf("unrecognized document type: %s", docType),
		}, nil
	}

	shape := schema.ResponseShape(docType)
	resp, err := e.client.Complete(ctx, inference.Request{
		ActorID: actorID,
		System:  system,
		Content: content,
		Schema:  shape,
		Context: map[string]any{"document_type": string(docType)},
	})
	if err != nil {
		e.log.Error("extract.service_failed",
			"doc_type", docType,
			"error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return entity.ExtractionResult{
			Success:        false,
			RequiresReview: true,
			ErrorMsg:       err.Error(),
		}, err
	}

	result := e.score(docType, shape, resp)
	e.log.Info("extract.done",
		"doc_type", docType,
		"success", result.Success,
		"confidence", result.Confidence,
		"requires_review", result.RequiresReview,
		"cache_hit", resp.CacheHit,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}

// score validates the reply shape and derives confidences. A shape failure
// is downgraded to a failed-but-reviewable result, preserving any confidence
// the service reported.
func (e *Engine) score(docType constants.DocumentType, shape map[string]any, resp inference.Response) entity.ExtractionResult {
	reported, fields := reportedConfidence(resp.Content)

	if err := ValidateAgainstShape(shape, resp.Content); err != nil {
		sverr := &common.SchemaValidationError{DocType: string(docType), Cause: err}
		e.log.Warn("extract.shape_invalid", "doc_type", docType, "error", err)
		res := entity.ExtractionResult{
			Success:        false,
			Fields:         fields,
			RequiresReview: true,
			ErrorMsg:       sverr.Error(),
			CacheHit:       resp.CacheHit,
		}
		if reported != nil {
			res.Confidence = *reported
		}
		return res
	}

	// A reported confidence wins even when it is 0; the fallbacks cover only
	// replies that omit the field entirely.
	var confidence float32
	switch {
	case reported != nil:
		confidence = *reported
	case len(fields) > 0:
		confidence = meanFieldConfidence(fields)
	default:
		confidence = fallbackConfidence
	}

	return entity.ExtractionResult{
		Success:        true,
		Data:           stripBookkeeping(resp.Content),
		Confidence:     confidence,
		Fields:         fields,
		RequiresReview: confidence < ReviewThreshold,
		CacheHit:       resp.CacheHit,
	}
}

// reportedConfidence pulls the overall and per-field confidences out of a
// reply without assuming it is otherwise well-formed. A nil first return
// means the reply carried no overall confidence; an explicit 0 comes back as
// a non-nil pointer.
func reportedConfidence(raw []byte) (*float32, map[string]entity.FieldConfidence) {
	var probe struct {
		Confidence      *float32                          `json:"confidence"`
		FieldConfidence map[string]entity.FieldConfidence `json:"field_confidence"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, nil
	}
	return probe.Confidence, probe.FieldConfidence
}

func meanFieldConfidence(fields map[string]entity.FieldConfidence) float32 {
	if len(fields) == 0 {
		return 0
	}
	var sum float32
	for _, fc := range fields {
		sum += fc.Confidence
	}
	return sum / float32(len(fields))
}

// stripBookkeeping removes the scoring fields so Data carries only the
// extracted record.
func stripBookkeeping(raw []byte) json.RawMessage {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return raw
	}
	delete(m, "confidence")
	delete(m, "field_confidence")
	b, err := json.Marshal(m)
	if err != nil {
		return raw
	}
	return b
}
