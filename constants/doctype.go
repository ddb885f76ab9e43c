package constants

// DocumentType selects the instruction template and expected response shape
// for an extraction.
type DocumentType string

const (
	DocTypeDBSCertificate DocumentType = "dbs_certificate"
	DocTypeDonation       DocumentType = "donation"
	DocTypeExpenseReceipt DocumentType = "expense_receipt"
)

// ValidDocumentType reports whether t has an instruction template.
func ValidDocumentType(t DocumentType) bool {
	switch t {
	case DocTypeDBSCertificate, DocTypeDonation, DocTypeExpenseReceipt:
		return true
	}
	return false
}

// DBSCheckTypes are the accepted values for a DBS certificate's check type.
var DBSCheckTypes = []string{"basic", "standard", "enhanced", "enhanced_barred"}

// DonorTypes are the accepted values for a donation's donor type.
var DonorTypes = []string{"individual", "organisation", "anonymous"}
