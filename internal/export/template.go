// Package export produces import templates for the builtin target schemas.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/docintake/internal/schema"
)

// Service renders a header row plus illustrative sample rows typed per
// field: dates as calendar dates, booleans as Yes/No tokens, currency as
// plain decimals.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

const templateSampleRows = 2

// TemplateCSV returns a delimited template for the given schema id.
func (s *Service) TemplateCSV(schemaID string) ([]byte, error) {
	target, err := schema.ByID(schemaID)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	headers := make([]string, 0, len(target.Fields))
	for _, f := range target.Fields {
		headers = append(headers, f.Name)
	}
	if err := w.Write(headers); err != nil {
		return nil, fmt.Errorf("write header row: %w", err)
	}

	for i := 0; i < templateSampleRows; i++ {
		row := make([]string, 0, len(target.Fields))
		for _, f := range target.Fields {
			row = append(row, sampleValue(f, i))
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("write sample row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("csv flush: %w", err)
	}

	s.logger.Info("export.template.csv.ok", "schema_id", schemaID, "fields", len(target.Fields))
	return buf.Bytes(), nil
}

// TemplateXLSX returns the same template as an XLSX workbook.
func (s *Service) TemplateXLSX(schemaID string) ([]byte, error) {
	target, err := schema.ByID(schemaID)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	const sheet = "Template"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)
	_ = f.DeleteSheet("Sheet1")

	for col, field := range target.Fields {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		_ = f.SetCellValue(sheet, cell, field.Name)
	}
	for i := 0; i < templateSampleRows; i++ {
		for col, field := range target.Fields {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+2)
			_ = f.SetCellValue(sheet, cell, sampleValue(field, i))
		}
	}

	lastCol, _ := excelize.ColumnNumberToName(len(target.Fields))
	_ = f.SetColWidth(sheet, "A", lastCol, 22)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.template.xlsx.ok", "schema_id", schemaID, "fields", len(target.Fields))
	return buf.Bytes(), nil
}

// sampleValue renders an illustrative value for one field. Two variants per
// type so the sample rows differ.
func sampleValue(f schema.Field, variant int) string {
	switch f.Type {
	case schema.FieldDate:
		d := time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC)
		if variant > 0 {
			d = d.AddDate(0, 1, 3)
		}
		return d.Format("2006-01-02")
	case schema.FieldNumber:
		if variant > 0 {
			return "125.00"
		}
		return "50.00"
	case schema.FieldBoolean:
		if variant > 0 {
			return "No"
		}
		return "Yes"
	case schema.FieldEmail:
		if variant > 0 {
			return "j.smith@example.org"
		}
		return "jane.doe@example.org"
	case schema.FieldPhone:
		if variant > 0 {
			return "020 7946 0812"
		}
		return "07700 900123"
	default:
		return sampleString(f.Name, variant)
	}
}

func sampleString(name string, variant int) string {
	samples := map[string][2]string{
		"person_name":            {"Jane Doe", "John Smith"},
		"donor_name":             {"Jane Doe", "Acme Trust"},
		"merchant_name":          {"Stationery Supplies Ltd", "Cloud Hosting Co"},
		"dbs_certificate_number": {"123456789012", "987654321098"},
		"check_type":             {"enhanced", "basic"},
		"donor_type":             {"individual", "organisation"},
		"currency_code":          {"GBP", "GBP"},
		"category":               {"Office Supplies", "Software Subscription"},
	}
	if pair, ok := samples[name]; ok {
		return pair[variant%2]
	}
	if variant > 0 {
		return "Sample " + name + " 2"
	}
	return "Sample " + name
}
