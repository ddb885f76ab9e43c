// Package pipeline wires the ingestion adapters to the extraction engine,
// the schema mapper and the review router, and exposes them as task
// handlers for the orchestrator.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/docintake/constants"
	"github.com/joseph-ayodele/docintake/internal/entity"
	"github.com/joseph-ayodele/docintake/internal/extract"
	"github.com/joseph-ayodele/docintake/internal/mapping"
	"github.com/joseph-ayodele/docintake/internal/normalize"
	"github.com/joseph-ayodele/docintake/internal/review"
	"github.com/joseph-ayodele/docintake/internal/schema"
	"github.com/joseph-ayodele/docintake/internal/tabular"
	"github.com/joseph-ayodele/docintake/internal/task"
)

// Processor coordinates normalize → extract/map → review for each task type.
type Processor struct {
	engine  *extract.Engine
	mapper  *mapping.Mapper
	reviews *review.Service
	log     *slog.Logger
}

func NewProcessor(engine *extract.Engine, mapper *mapping.Mapper, reviews *review.Service, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{engine: engine, mapper: mapper, reviews: reviews, log: logger}
}

// Register binds every task type to its handler.
func (p *Processor) Register(o *task.Orchestrator) {
	o.RegisterHandler(constants.TaskTypeEmailExtraction, p.HandleEmailExtraction)
	o.RegisterHandler(constants.TaskTypeDocumentOCR, p.HandleDocumentOCR)
	o.RegisterHandler(constants.TaskTypeCSVMapping, p.HandleCSVMapping)
}

// EmailExtractionInput is the payload of an email_extraction task.
type EmailExtractionInput struct {
	Email        normalize.EmailMessage `json:"email"`
	DocumentType constants.DocumentType `json:"document_type"`
}

// DocumentOCRInput is the payload of a document_ocr task. Pages carry the
// page text in reading order; the declared type is optional and defaults to
// a DBS certificate, the most common scanned upload.
type DocumentOCRInput struct {
	Pages        []string               `json:"pages"`
	DocumentType constants.DocumentType `json:"document_type,omitempty"`
}

// CSVMappingInput is the payload of a csv_mapping task.
type CSVMappingInput struct {
	Data      []byte `json:"data"`
	Delimiter string `json:"delimiter,omitempty"`
	SchemaID  string `json:"schema_id"`
}

// ExtractionOutput is what an extraction task records as its output.
type ExtractionOutput struct {
	Result       entity.ExtractionResult     `json:"result"`
	Disposition  constants.ReviewDisposition `json:"disposition"`
	ReviewItemID string                      `json:"review_item_id,omitempty"`
}

// MappingOutput is what a csv_mapping task records as its output.
type MappingOutput struct {
	Headers   []string                        `json:"headers"`
	RowCount  int                             `json:"row_count"`
	DataTypes map[string]tabular.DataTypeInfo `json:"data_types"`
	Mapping   entity.ColumnMapping            `json:"mapping"`
	Records   []map[string]string             `json:"records,omitempty"`
}

// HandleEmailExtraction normalizes a forwarded email and extracts the
// declared document type from its text.
func (p *Processor) HandleEmailExtraction(ctx context.Context, t *entity.Task) (json.RawMessage, *float32, error) {
	var input EmailExtractionInput
	if err := json.Unmarshal(t.Input, &input); err != nil {
		return nil, nil, fmt.Errorf("decode email_extraction input: %w", err)
	}

	content, err := normalize.Email(input.Email)
	if err != nil {
		return nil, nil, fmt.Errorf("normalize email: %w", err)
	}

	text := content.Text
	// CSV attachments carry tabular payloads past the markup stripper so the
	// engine sees the rows too.
	for _, att := range content.Attachments {
		if strings.Contains(att.ContentType, "csv") || strings.Contains(att.ContentType, "text/plain") {
			text += "\n\nAttachment " + att.Filename + ":\n" + string(att.Data)
		}
	}

	result, err := p.engine.Extract(ctx, text, input.DocumentType, t.OwnerID.String())
	return p.finishExtraction(ctx, t, text, result, err)
}

// HandleDocumentOCR extracts a scanned or photographed document, merging
// multi-page results.
func (p *Processor) HandleDocumentOCR(ctx context.Context, t *entity.Task) (json.RawMessage, *float32, error) {
	var input DocumentOCRInput
	if err := json.Unmarshal(t.Input, &input); err != nil {
		return nil, nil, fmt.Errorf("decode document_ocr input: %w", err)
	}
	docType := input.DocumentType
	if docType == "" {
		docType = constants.DocTypeDBSCertificate
	}

	result, err := p.engine.ExtractPages(ctx, input.Pages, docType, t.OwnerID.String())
	return p.finishExtraction(ctx, t, strings.Join(input.Pages, "\n\n"), result, err)
}

// HandleCSVMapping parses a delimited file and maps its columns onto the
// requested target schema. A failed mapping service still yields a usable
// all-unmapped output for manual mapping.
func (p *Processor) HandleCSVMapping(ctx context.Context, t *entity.Task) (json.RawMessage, *float32, error) {
	var input CSVMappingInput
	if err := json.Unmarshal(t.Input, &input); err != nil {
		return nil, nil, fmt.Errorf("decode csv_mapping input: %w", err)
	}

	target, err := schema.ByID(input.SchemaID)
	if err != nil {
		return nil, nil, err
	}

	var delim rune
	if input.Delimiter != "" {
		delim = []rune(input.Delimiter)[0]
	}
	parsed, err := tabular.Parse(input.Data, delim)
	if err != nil {
		return nil, nil, fmt.Errorf("parse delimited file: %w", err)
	}

	colMapping := p.mapper.MapColumns(ctx, parsed, target, t.OwnerID.String())

	output := MappingOutput{
		Headers:   parsed.Headers,
		RowCount:  parsed.RowCount,
		DataTypes: parsed.DataTypes,
		Mapping:   colMapping,
	}
	if colMapping.Valid() {
		output.Records = mapping.Transform(parsed, &colMapping)
	}

	raw, err := json.Marshal(output)
	if err != nil {
		return nil, nil, fmt.Errorf("encode mapping output: %w", err)
	}

	confidence := mappingConfidence(colMapping)
	return raw, &confidence, nil
}

// finishExtraction routes the result and shapes the task output. An
// infrastructure error fails the task; a reviewable failure completes it
// with the routing attached.
func (p *Processor) finishExtraction(ctx context.Context, t *entity.Task, originalContent string, result entity.ExtractionResult, err error) (json.RawMessage, *float32, error) {
	if err != nil {
		return nil, nil, err
	}

	output := ExtractionOutput{Result: result, Disposition: review.Route(result)}
	item, enqErr := p.reviews.Enqueue(ctx, t.ID, originalContent, result)
	if enqErr != nil {
		// Commit failures for auto-approved data must surface on the task.
		return nil, nil, enqErr
	}
	if item != nil {
		output.Disposition = item.Disposition
		// Auto-approved items are committed, not queued; their ids are not
		// retrievable and must not leak into the task output.
		if item.Status == constants.ReviewStatusOpen {
			output.ReviewItemID = item.ID.String()
		}
	}

	raw, marshalErr := json.Marshal(output)
	if marshalErr != nil {
		return nil, nil, fmt.Errorf("encode extraction output: %w", marshalErr)
	}
	confidence := result.Confidence
	return raw, &confidence, nil
}

// mappingConfidence is the mean confidence of the mapped fields; 0 when
// nothing mapped.
func mappingConfidence(m entity.ColumnMapping) float32 {
	var sum float32
	count := 0
	for _, fm := range m.Mappings {
		if fm.SourceColumn != nil {
			sum += fm.Confidence
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return sum / float32(count)
}
