// Package mapping matches source columns to a target schema using type
// heuristics plus inference-service suggestions.
package mapping

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joseph-ayodele/docintake/internal/entity"
	"github.com/joseph-ayodele/docintake/internal/inference"
	"github.com/joseph-ayodele/docintake/internal/schema"
	"github.com/joseph-ayodele/docintake/internal/tabular"
)

// Confidence assignments when the service does not score a suggestion
// itself. Service-reported confidence always wins when present.
const (
	typeCompatibleConfidence = 0.8
	typeMismatchConfidence   = 0.5
	userOverrideConfidence   = 0.9
)

const userOverrideRationale = "user selected"

// Mapper produces ColumnMappings for parsed tabular data.
type Mapper struct {
	client inference.Client
	log    *slog.Logger
}

func NewMapper(client inference.Client, logger *slog.Logger) *Mapper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mapper{client: client, log: logger}
}

// suggestion is one entry of the service's mapping reply.
type suggestion struct {
	TargetField  string   `json:"target_field"`
	SourceColumn *string  `json:"source_column"`
	Confidence   *float32 `json:"confidence,omitempty"`
	Rationale    string   `json:"rationale,omitempty"`
}

// MapColumns asks the inference service for a best-effort mapping and
// reconciles it with the parsed headers and inferred column types. It never
// returns an error: on service failure the result is all-unmapped with every
// required field listed as missing, so callers fall back to manual mapping.
func (m *Mapper) MapColumns(ctx context.Context, parsed *tabular.ParseResult, target *schema.TargetSchema, actorID string) entity.ColumnMapping {
	start := time.Now()

	suggestions, err := m.requestSuggestions(ctx, parsed, target, actorID)
	if err != nil {
		m.log.Warn("mapping.service_failed", "schema_id", target.ID, "error", err)
		out := allUnmapped(target, "mapping service unavailable")
		Recompute(parsed.Headers, target, &out)
		return out
	}

	byField := make(map[string]suggestion, len(suggestions))
	for _, s := range suggestions {
		byField[s.TargetField] = s
	}

	headerSet := make(map[string]bool, len(parsed.Headers))
	for _, h := range parsed.Headers {
		headerSet[h] = true
	}

	out := entity.ColumnMapping{Mappings: make([]entity.FieldMapping, 0, len(target.Fields))}
	for _, field := range target.Fields {
		fm := entity.FieldMapping{TargetField: field.Name}

		s, ok := byField[field.Name]
		if ok && s.SourceColumn != nil && headerSet[*s.SourceColumn] {
			col := *s.SourceColumn
			fm.SourceColumn = &col
			fm.Rationale = s.Rationale
			switch {
			case s.Confidence != nil:
				fm.Confidence = *s.Confidence
			case schema.Compatible(parsed.DataTypes[col].Type, field.Type):
				fm.Confidence = typeCompatibleConfidence
			default:
				fm.Confidence = typeMismatchConfidence
			}
		} else if ok && s.SourceColumn != nil {
			// Suggested column does not exist among the parsed headers.
			fm.Rationale = fmt.Sprintf("suggested column %q not found", *s.SourceColumn)
		}

		out.Mappings = append(out.Mappings, fm)
	}

	Recompute(parsed.Headers, target, &out)
	m.log.Info("mapping.done",
		"schema_id", target.ID,
		"mapped", len(out.Mappings)-len(out.MissingRequiredFields),
		"missing_required", len(out.MissingRequiredFields),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out
}

// SetOverride applies a manual column choice. Overrides always carry the
// fixed user confidence and rationale. column "" clears the mapping.
// The aggregate lists are recomputed afterwards.
func SetOverride(parsed *tabular.ParseResult, target *schema.TargetSchema, mapping *entity.ColumnMapping, fieldName, column string) error {
	if target.Field(fieldName) == nil {
		return fmt.Errorf("unknown target field: %s", fieldName)
	}

	fm := mapping.Get(fieldName)
	if fm == nil {
		mapping.Mappings = append(mapping.Mappings, entity.FieldMapping{TargetField: fieldName})
		fm = &mapping.Mappings[len(mapping.Mappings)-1]
	}

	if column == "" {
		fm.SourceColumn = nil
		fm.Confidence = 0
		fm.Rationale = userOverrideRationale
	} else {
		found := false
		for _, h := range parsed.Headers {
			if h == column {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("column %q not found among parsed headers", column)
		}
		col := column
		fm.SourceColumn = &col
		fm.Confidence = userOverrideConfidence
		fm.Rationale = userOverrideRationale
	}

	Recompute(parsed.Headers, target, mapping)
	return nil
}

// Recompute rebuilds UnmappedSourceColumns and MissingRequiredFields from
// the current per-field mappings. Call it after every edit.
func Recompute(headers []string, target *schema.TargetSchema, mapping *entity.ColumnMapping) {
	used := make(map[string]bool)
	mapped := make(map[string]bool)
	for _, fm := range mapping.Mappings {
		if fm.SourceColumn != nil {
			used[*fm.SourceColumn] = true
			mapped[fm.TargetField] = true
		}
	}

	mapping.UnmappedSourceColumns = mapping.UnmappedSourceColumns[:0]
	for _, h := range headers {
		if h != "" && !used[h] {
			mapping.UnmappedSourceColumns = append(mapping.UnmappedSourceColumns, h)
		}
	}

	mapping.MissingRequiredFields = mapping.MissingRequiredFields[:0]
	for _, name := range target.RequiredFields() {
		if !mapped[name] {
			mapping.MissingRequiredFields = append(mapping.MissingRequiredFields, name)
		}
	}
}

// Transform applies a mapping to every parsed row, producing target-field
// keyed records.
func Transform(parsed *tabular.ParseResult, mapping *entity.ColumnMapping) []map[string]string {
	colIndex := make(map[string]int, len(parsed.Headers))
	for i, h := range parsed.Headers {
		colIndex[h] = i
	}

	out := make([]map[string]string, 0, len(parsed.Rows))
	for _, row := range parsed.Rows {
		rec := make(map[string]string)
		for _, fm := range mapping.Mappings {
			if fm.SourceColumn == nil {
				continue
			}
			if i, ok := colIndex[*fm.SourceColumn]; ok && i < len(row) {
				rec[fm.TargetField] = strings.TrimSpace(row[i])
			}
		}
		out = append(out, rec)
	}
	return out
}

func (m *Mapper) requestSuggestions(ctx context.Context, parsed *tabular.ParseResult, target *schema.TargetSchema, actorID string) ([]suggestion, error) {
	resp, err := m.client.Complete(ctx, inference.Request{
		ActorID: actorID,
		System:  buildMappingPrompt(target),
		Content: buildMappingContent(parsed, target),
		Schema:  schema.MappingShape(target),
		Context: map[string]any{"schema_id": target.ID},
	})
	if err != nil {
		return nil, err
	}

	var reply struct {
		Mappings []suggestion `json:"mappings"`
	}
	if err := json.Unmarshal(resp.Content, &reply); err != nil {
		return nil, fmt.Errorf("decode mapping reply: %w", err)
	}
	return reply.Mappings, nil
}

func buildMappingPrompt(target *schema.TargetSchema) string {
	return strings.Join([]string{
		"You map spreadsheet columns onto the " + target.Name + " record shape.",
		"Return ONLY JSON that matches the provided JSON Schema.",
		"For each target field pick the single best source column, or null when no column fits.",
		"Use the sample values to judge fit, not just the header names.",
		"Include a confidence between 0 and 1 and a one-sentence rationale per mapping.",
	}, " ")
}

func buildMappingContent(parsed *tabular.ParseResult, target *schema.TargetSchema) string {
	var b strings.Builder
	b.WriteString("Target fields:\n")
	for _, f := range target.Fields {
		required := ""
		if f.Required {
			required = " (required)"
		}
		fmt.Fprintf(&b, "- %s [%s]%s: %s\n", f.Name, f.Type, required, f.Description)
	}

	b.WriteString("\nSource columns:\n")
	for _, h := range parsed.Headers {
		info := parsed.DataTypes[h]
		fmt.Fprintf(&b, "- %s [%s]", h, info.Type)
		if len(info.Examples) > 0 {
			fmt.Fprintf(&b, " e.g. %s", strings.Join(info.Examples, ", "))
		}
		b.WriteString("\n")
	}

	if len(parsed.SampleRows) > 0 {
		b.WriteString("\nSample rows:\n")
		for _, row := range parsed.SampleRows {
			b.WriteString(strings.Join(row, " | "))
			b.WriteString("\n")
		}
	}
	return b.String()
}

func allUnmapped(target *schema.TargetSchema, rationale string) entity.ColumnMapping {
	out := entity.ColumnMapping{Mappings: make([]entity.FieldMapping, 0, len(target.Fields))}
	for _, f := range target.Fields {
		out.Mappings = append(out.Mappings, entity.FieldMapping{
			TargetField: f.Name,
			Rationale:   rationale,
		})
	}
	return out
}
