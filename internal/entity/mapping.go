package entity

// FieldMapping links one target schema field to a source column, or to no
// column when nothing suitable was found.
type FieldMapping struct {
	TargetField  string  `json:"target_field"`
	SourceColumn *string `json:"source_column"` // nil = unmapped
	Confidence   float32 `json:"confidence"`
	Rationale    string  `json:"rationale,omitempty"`
}

// ColumnMapping aggregates the per-field mappings for one import.
// MissingRequiredFields always lists every required target field without a
// mapping; it is recomputed after every edit.
type ColumnMapping struct {
	Mappings              []FieldMapping `json:"mappings"`
	UnmappedSourceColumns []string       `json:"unmapped_source_columns"`
	MissingRequiredFields []string       `json:"missing_required_fields"`
}

// Get returns the mapping for target field name, or nil.
func (m *ColumnMapping) Get(name string) *FieldMapping {
	for i := range m.Mappings {
		if m.Mappings[i].TargetField == name {
			return &m.Mappings[i]
		}
	}
	return nil
}

// Valid reports whether every required target field is mapped.
func (m *ColumnMapping) Valid() bool {
	return len(m.MissingRequiredFields) == 0
}
