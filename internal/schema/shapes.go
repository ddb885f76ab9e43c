package schema

import "github.com/joseph-ayodele/docintake/constants"

// ResponseShape returns the JSON-Schema (draft 2020-12 subset) the inference
// service's reply must match for the given document type, as a generic map.
// We pass it to the service as a structured output constraint and also use it
// locally to validate.
func ResponseShape(t constants.DocumentType) map[string]any {
	switch t {
	case constants.DocTypeDBSCertificate:
		return dbsCertificateShape()
	case constants.DocTypeDonation:
		return donationShape()
	case constants.DocTypeExpenseReceipt:
		return expenseReceiptShape()
	}
	return nil
}

func dbsCertificateShape() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"person_name":            map[string]any{"type": "string", "minLength": 1},
			"dbs_certificate_number": map[string]any{"type": "string", "pattern": `^\d{12}$`},
			"issue_date":             dateProp(),
			"expiry_date":            dateProp(),
			"check_type":             map[string]any{"type": "string", "enum": constants.DBSCheckTypes},
			"email":                  map[string]any{"type": "string"},
			"confidence":             confidenceProp(),
			"field_confidence":       fieldConfidenceProp(),
		},
		"required": []string{"person_name", "dbs_certificate_number", "issue_date"},
	}
}

func donationShape() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"donor_name":       map[string]any{"type": "string", "minLength": 1},
			"amount":           decimalProp(),
			"donation_date":    dateProp(),
			"donor_type":       map[string]any{"type": "string", "enum": constants.DonorTypes},
			"gift_aid":         map[string]any{"type": "boolean"},
			"email":            map[string]any{"type": "string"},
			"phone":            map[string]any{"type": "string"},
			"confidence":       confidenceProp(),
			"field_confidence": fieldConfidenceProp(),
		},
		"required": []string{"donor_name", "amount", "donation_date"},
	}
}

func expenseReceiptShape() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"merchant_name":    map[string]any{"type": "string", "minLength": 1},
			"tx_date":          dateProp(),
			"total":            decimalProp(),
			"currency_code":    map[string]any{"type": "string", "minLength": 3, "maxLength": 3},
			"category":         map[string]any{"type": "string"},
			"confidence":       confidenceProp(),
			"field_confidence": fieldConfidenceProp(),
		},
		"required": []string{"merchant_name", "tx_date", "total"},
	}
}

// MappingShape constrains a column-mapping suggestion reply: one entry per
// target field naming a source column (or null) with optional confidence.
func MappingShape(target *TargetSchema) map[string]any {
	fieldNames := make([]any, 0, len(target.Fields))
	for _, f := range target.Fields {
		fieldNames = append(fieldNames, f.Name)
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"mappings": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":                 "object",
					"additionalProperties": false,
					"properties": map[string]any{
						"target_field":  map[string]any{"type": "string", "enum": fieldNames},
						"source_column": map[string]any{"type": []any{"string", "null"}},
						"confidence":    confidenceProp(),
						"rationale":     map[string]any{"type": "string"},
					},
					"required": []string{"target_field", "source_column"},
				},
			},
		},
		"required": []string{"mappings"},
	}
}

func dateProp() map[string]any {
	return map[string]any{"type": "string", "pattern": `^\d{4}-\d{2}-\d{2}$`}
}

func decimalProp() map[string]any {
	return map[string]any{"type": "string", "pattern": `^-?\d+(\.\d{1,2})?$`}
}

func confidenceProp() map[string]any {
	return map[string]any{"type": "number", "minimum": 0.0, "maximum": 1.0}
}

func fieldConfidenceProp() map[string]any {
	return map[string]any{
		"type": "object",
		"additionalProperties": map[string]any{
			"type":                 "object",
			"additionalProperties": false,
			"properties": map[string]any{
				"confidence": confidenceProp(),
				"location":   map[string]any{"type": "string"},
			},
			"required": []string{"confidence"},
		},
	}
}
