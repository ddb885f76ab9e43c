// Package schema defines the target record shapes that imports and
// extractions are mapped onto.
package schema

import (
	"fmt"

	"github.com/joseph-ayodele/docintake/constants"
	"github.com/joseph-ayodele/docintake/internal/tabular"
)

// FieldType is the declared type of one target schema field.
type FieldType string

const (
	FieldString  FieldType = "string"
	FieldNumber  FieldType = "number"
	FieldDate    FieldType = "date"
	FieldBoolean FieldType = "boolean"
	FieldEmail   FieldType = "email"
	FieldPhone   FieldType = "phone"
)

// Field is a named, typed slot in a target record shape.
type Field struct {
	Name        string    `json:"name"`
	Type        FieldType `json:"type"`
	Required    bool      `json:"required"`
	Description string    `json:"description,omitempty"`
}

// TargetSchema is an ordered set of fields a source column or extracted value
// must be mapped to.
type TargetSchema struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Fields []Field `json:"fields"`
}

// RequiredFields returns the names of all required fields, in order.
func (s *TargetSchema) RequiredFields() []string {
	var out []string
	for _, f := range s.Fields {
		if f.Required {
			out = append(out, f.Name)
		}
	}
	return out
}

// Field returns the field named name, or nil.
func (s *TargetSchema) Field(name string) *Field {
	for i := range s.Fields {
		if s.Fields[i].Name == name {
			return &s.Fields[i]
		}
	}
	return nil
}

// Compatible reports whether a column of inferred type ct can feed a field of
// type ft. String columns feed anything; mixed columns feed only strings.
func Compatible(ct tabular.ColumnType, ft FieldType) bool {
	switch ct {
	case tabular.TypeString:
		return true
	case tabular.TypeMixed:
		return ft == FieldString
	case tabular.TypeNumber:
		return ft == FieldNumber || ft == FieldString
	case tabular.TypeDate:
		return ft == FieldDate || ft == FieldString
	case tabular.TypeBoolean:
		return ft == FieldBoolean || ft == FieldString
	case tabular.TypeEmail:
		return ft == FieldEmail || ft == FieldString
	case tabular.TypePhone:
		return ft == FieldPhone || ft == FieldString
	}
	return false
}

// Builtin schemas, keyed by id.
var builtin = map[string]*TargetSchema{
	"dbs_check": {
		ID:   "dbs_check",
		Name: "DBS Check",
		Fields: []Field{
			{Name: "person_name", Type: FieldString, Required: true, Description: "Full name of the person the certificate was issued to"},
			{Name: "dbs_certificate_number", Type: FieldString, Required: true, Description: "12-digit certificate number"},
			{Name: "issue_date", Type: FieldDate, Required: true, Description: "Date the certificate was issued"},
			{Name: "expiry_date", Type: FieldDate, Required: false, Description: "Date the check is due for renewal"},
			{Name: "check_type", Type: FieldString, Required: false, Description: "One of: basic, standard, enhanced, enhanced_barred"},
			{Name: "email", Type: FieldEmail, Required: false, Description: "Contact email address"},
		},
	},
	"donation": {
		ID:   "donation",
		Name: "Donation",
		Fields: []Field{
			{Name: "donor_name", Type: FieldString, Required: true, Description: "Name of the donor"},
			{Name: "amount", Type: FieldNumber, Required: true, Description: "Donation amount as a plain decimal"},
			{Name: "donation_date", Type: FieldDate, Required: true, Description: "Date the donation was received"},
			{Name: "donor_type", Type: FieldString, Required: false, Description: "One of: individual, organisation, anonymous"},
			{Name: "gift_aid", Type: FieldBoolean, Required: false, Description: "Whether a gift aid declaration is held"},
			{Name: "email", Type: FieldEmail, Required: false, Description: "Donor contact email"},
			{Name: "phone", Type: FieldPhone, Required: false, Description: "Donor contact phone number"},
		},
	},
	"expense_receipt": {
		ID:   "expense_receipt",
		Name: "Expense Receipt",
		Fields: []Field{
			{Name: "merchant_name", Type: FieldString, Required: true, Description: "Merchant or supplier name"},
			{Name: "tx_date", Type: FieldDate, Required: true, Description: "Transaction date"},
			{Name: "total", Type: FieldNumber, Required: true, Description: "Total amount as a plain decimal"},
			{Name: "currency_code", Type: FieldString, Required: false, Description: "ISO 4217 currency code"},
			{Name: "category", Type: FieldString, Required: false, Description: "Expense category label"},
		},
	},
}

// ByID returns the builtin schema with the given id.
func ByID(id string) (*TargetSchema, error) {
	s, ok := builtin[id]
	if !ok {
		return nil, fmt.Errorf("unknown schema id: %s", id)
	}
	return s, nil
}

// IDs lists the builtin schema ids in stable order.
func IDs() []string {
	return []string{"dbs_check", "donation", "expense_receipt"}
}

// ForDocumentType returns the target schema an extraction of the given
// document type feeds.
func ForDocumentType(t constants.DocumentType) (*TargetSchema, error) {
	switch t {
	case constants.DocTypeDBSCertificate:
		return builtin["dbs_check"], nil
	case constants.DocTypeDonation:
		return builtin["donation"], nil
	case constants.DocTypeExpenseReceipt:
		return builtin["expense_receipt"], nil
	}
	return nil, fmt.Errorf("no schema for document type: %s", t)
}
