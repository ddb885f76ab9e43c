package extract

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/joseph-ayodele/docintake/constants"
	"github.com/joseph-ayodele/docintake/internal/entity"
)

// ExtractPages extracts every page of a multi-page document and merges the
// page results. Page failures are tolerated as long as at least one page
// succeeds; the per-page error from the last infrastructure failure is
// carried on an all-failed merge.
func (e *Engine) ExtractPages(ctx context.Context, pages []string, docType constants.DocumentType, actorID string) (entity.ExtractionResult, error) {
	if len(pages) == 0 {
		return entity.ExtractionResult{
			Success:        false,
			RequiresReview: true,
			ErrorMsg:       "document has no pages",
		}, nil
	}

	results := make([]entity.ExtractionResult, 0, len(pages))
	var lastErr error
	for i, page := range pages {
		res, err := e.Extract(ctx, page, docType, actorID)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return entity.ExtractionResult{}, ctx.Err()
			}
		}
		e.log.Debug("extract.page_done", "page", i+1, "success", res.Success, "confidence", res.Confidence)
		results = append(results, res)
	}

	merged := MergePages(results)
	if !merged.Success {
		return merged, lastErr
	}
	return merged, nil
}

// MergePages joins page results into one record. Fields are unioned with
// later pages winning on key conflicts; the merged confidence is the mean of
// the successful pages' confidences. A merge with zero successful pages
// fails.
func MergePages(pages []entity.ExtractionResult) entity.ExtractionResult {
	data := make(map[string]any)
	fields := make(map[string]entity.FieldConfidence)
	var confidenceSum float32
	succeeded := 0

	for _, page := range pages {
		if !page.Success {
			continue
		}
		succeeded++
		confidenceSum += page.Confidence

		var pageData map[string]any
		if len(page.Data) > 0 {
			if err := json.Unmarshal(page.Data, &pageData); err == nil {
				for k, v := range pageData {
					data[k] = v
				}
			}
		}
		for k, fc := range page.Fields {
			fields[k] = fc
		}
	}

	if succeeded == 0 {
		return entity.ExtractionResult{
			Success:        false,
			RequiresReview: true,
			ErrorMsg:       fmt.Sprintf("all %d pages failed extraction", len(pages)),
		}
	}

	merged, err := json.Marshal(data)
	if err != nil {
		return entity.ExtractionResult{
			Success:        false,
			RequiresReview: true,
			ErrorMsg:       fmt.Sprintf("merge pages: %v", err),
		}
	}

	confidence := confidenceSum / float32(succeeded)
	out := entity.ExtractionResult{
		Success:        true,
		Data:           merged,
		Confidence:     confidence,
		RequiresReview: confidence < ReviewThreshold,
	}
	if len(fields) > 0 {
		out.Fields = fields
	}
	return out
}
