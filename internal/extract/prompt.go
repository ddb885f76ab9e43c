package extract

import (
	"strings"

	"github.com/joseph-ayodele/docintake/constants"
)

// BuildSystemPrompt composes the type-specific instruction the inference
// service receives. Returns "" for an unrecognized document type.
func BuildSystemPrompt(docType constants.DocumentType) string {
	common := []string{
		"Return ONLY JSON that matches the provided JSON Schema.",
		"Use ISO-8601 dates (YYYY-MM-DD).",
		"Include a 'confidence' number between 0 and 1 for the overall extraction,",
		"and a 'field_confidence' object giving each extracted field a confidence and, where possible, a location such as 'page 1' or 'line 12'.",
		"Never output null. If a field is not present in the document, omit it.",
		"Never guess values that are not visible in the content.",
	}

	var specific []string
	switch docType {
	case constants.DocTypeDBSCertificate:
		specific = []string{
			"You are reading a UK DBS (Disclosure and Barring Service) certificate or a message describing one.",
			"Extract the certificate holder's full name, the 12-digit certificate number, the issue date, and the expiry or renewal-due date if shown.",
			"'check_type' MUST be exactly one of: " + strings.Join(constants.DBSCheckTypes, ", ") + ".",
			"The certificate number is exactly 12 digits; do not pad or truncate it.",
		}
	case constants.DocTypeDonation:
		specific = []string{
			"You are reading a donation record: a bank notification, a giving-platform email, or a scanned donation form.",
			"Extract the donor's name, the amount as a plain decimal string, and the donation date.",
			"'donor_type' MUST be exactly one of: " + strings.Join(constants.DonorTypes, ", ") + ".",
			"'gift_aid' is true only when a gift aid declaration is explicitly indicated.",
		}
	case constants.DocTypeExpenseReceipt:
		specific = []string{
			"You are a receipts parser reading a purchase receipt.",
			"Extract the merchant name, the transaction date, and the total as a plain decimal string.",
			"Currency must be a 3-letter ISO 4217 code if shown.",
		}
	default:
		return ""
	}

	return strings.Join(append(specific, common...), " ")
}
