// Package review classifies extraction results and drives the human
// approve/reject/edit workflow for the ones automation cannot accept.
package review

import (
	"github.com/joseph-ayodele/docintake/constants"
	"github.com/joseph-ayodele/docintake/internal/entity"
)

// Confidence bands for routing. The boundary itself auto-approves; just
// below it does not.
const (
	autoApproveThreshold = 0.8
	manualEntryThreshold = 0.5
)

// Route deterministically classifies a result. Failed extractions (malformed
// replies, unreadable content) always land in manual entry regardless of any
// confidence the service reported.
func Route(res entity.ExtractionResult) constants.ReviewDisposition {
	switch {
	case !res.Success:
		return constants.DispositionManualEntry
	case res.Confidence >= autoApproveThreshold && !res.RequiresReview:
		return constants.DispositionAutoApproved
	case res.Confidence >= manualEntryThreshold:
		return constants.DispositionNeedsReview
	default:
		return constants.DispositionManualEntry
	}
}
