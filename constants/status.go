package constants

// TaskStatus is the canonical lifecycle status for rows in tasks.
type TaskStatus string

// Stable values (store these exact strings in DB).
const (
	TaskStatusPending    TaskStatus = "PENDING"    // created, waiting for a worker
	TaskStatusProcessing TaskStatus = "PROCESSING" // picked up by a worker
	TaskStatusCompleted  TaskStatus = "COMPLETED"  // terminal success
	TaskStatusFailed     TaskStatus = "FAILED"     // terminal failure
	TaskStatusCancelled  TaskStatus = "CANCELLED"  // terminal, cancelled by caller
)

// Terminal reports whether s is one of the terminal statuses.
func (s TaskStatus) Terminal() bool {
	switch s {
	case TaskStatusCompleted, TaskStatusFailed, TaskStatusCancelled:
		return true
	}
	return false
}

// TaskType identifies the kind of work a task carries.
type TaskType string

const (
	TaskTypeEmailExtraction TaskType = "email_extraction"
	TaskTypeDocumentOCR     TaskType = "document_ocr"
	TaskTypeCSVMapping      TaskType = "csv_mapping"
)

// ValidTaskType reports whether t is a known task type.
func ValidTaskType(t TaskType) bool {
	switch t {
	case TaskTypeEmailExtraction, TaskTypeDocumentOCR, TaskTypeCSVMapping:
		return true
	}
	return false
}

// ReviewDisposition is the routing decision for an extraction result.
type ReviewDisposition string

const (
	DispositionAutoApproved ReviewDisposition = "auto_approved"
	DispositionNeedsReview  ReviewDisposition = "needs_review"
	DispositionManualEntry  ReviewDisposition = "manual_entry"
)

// ReviewStatus tracks a queued review item through the human workflow.
type ReviewStatus string

const (
	ReviewStatusOpen     ReviewStatus = "OPEN"
	ReviewStatusApproved ReviewStatus = "APPROVED"
	ReviewStatusRejected ReviewStatus = "REJECTED"
)
