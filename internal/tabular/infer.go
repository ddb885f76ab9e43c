package tabular

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ColumnType is the inferred semantic type of one column.
type ColumnType string

const (
	TypeString  ColumnType = "string"
	TypeNumber  ColumnType = "number"
	TypeDate    ColumnType = "date"
	TypeBoolean ColumnType = "boolean"
	TypeEmail   ColumnType = "email"
	TypePhone   ColumnType = "phone"
	TypeMixed   ColumnType = "mixed"
)

// DataTypeInfo describes one column after inference.
type DataTypeInfo struct {
	Type       ColumnType `json:"type"`
	Format     string     `json:"format,omitempty"` // date layout when Type == date
	Nullable   bool       `json:"nullable"`
	Examples   []string   `json:"examples,omitempty"`
	Confidence float32    `json:"confidence"`
}

// matchThreshold is the fraction of non-null values a candidate type must
// match to be chosen.
const matchThreshold = 0.8

// mixedFloor: a best candidate between this and the threshold means the
// column holds a recognizable but inconsistent type.
const mixedFloor = 0.5

// typePriority breaks ties deterministically when two candidates match the
// same fraction, regardless of map iteration order.
var typePriority = []ColumnType{TypeBoolean, TypeNumber, TypeDate, TypeEmail, TypePhone}

var (
	reEmail = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	rePhone = regexp.MustCompile(`^\+?[0-9][0-9 ().-]{5,18}[0-9]$`)
)

// dateLayouts is the fixed set of layouts tried for date columns, in
// preference order.
var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"01/02/2006",
	"2006/01/02",
	"02-01-2006",
	"2 Jan 2006",
	"Jan 2, 2006",
}

const dateFormatSamples = 10

// InferTypes computes a DataTypeInfo per column from the non-null values.
// The result is deterministic for identical input.
func InferTypes(headers []string, rows [][]string) map[string]DataTypeInfo {
	out := make(map[string]DataTypeInfo, len(headers))
	for col, header := range headers {
		if header == "" {
			continue
		}

		var values []string
		nullable := false
		for _, row := range rows {
			v := ""
			if col < len(row) {
				v = strings.TrimSpace(row[col])
			}
			if v == "" {
				nullable = true
				continue
			}
			values = append(values, v)
		}

		info := inferColumn(values)
		info.Nullable = nullable || len(values) == 0
		info.Examples = exampleValues(values, 3)
		out[header] = info
	}
	return out
}

func inferColumn(values []string) DataTypeInfo {
	if len(values) == 0 {
		return DataTypeInfo{Type: TypeString, Confidence: 1}
	}

	matchers := map[ColumnType]func(string) bool{
		TypeBoolean: isBoolean,
		TypeNumber:  isNumber,
		TypeDate:    isDate,
		TypeEmail:   reEmail.MatchString,
		TypePhone:   rePhone.MatchString,
	}

	best := TypeString
	var bestFraction float32
	for _, candidate := range typePriority {
		matched := 0
		for _, v := range values {
			if matchers[candidate](v) {
				matched++
			}
		}
		fraction := float32(matched) / float32(len(values))
		if fraction > bestFraction {
			best, bestFraction = candidate, fraction
		}
	}

	switch {
	case bestFraction > matchThreshold:
		info := DataTypeInfo{Type: best, Confidence: bestFraction}
		if best == TypeDate {
			info.Format = inferDateFormat(values)
		}
		return info
	case bestFraction >= mixedFloor:
		return DataTypeInfo{Type: TypeMixed, Confidence: bestFraction}
	default:
		return DataTypeInfo{Type: TypeString, Confidence: 1}
	}
}

func isBoolean(v string) bool {
	switch strings.ToLower(v) {
	case "true", "false", "yes", "no", "t", "f":
		return true
	}
	return false
}

func isNumber(v string) bool {
	s := strings.ReplaceAll(v, ",", "")
	// Leading-zero digit runs are identifiers or phone numbers, not numbers.
	if len(s) > 1 && s[0] == '0' && !strings.Contains(s, ".") {
		return false
	}
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

func isDate(v string) bool {
	for _, layout := range dateLayouts {
		if _, err := time.Parse(layout, v); err == nil {
			return true
		}
	}
	return false
}

// inferDateFormat samples up to 10 values and returns the layout matching the
// most of them; layout preference order breaks ties.
func inferDateFormat(values []string) string {
	sample := values
	if len(sample) > dateFormatSamples {
		sample = sample[:dateFormatSamples]
	}

	bestLayout := dateLayouts[0]
	bestCount := -1
	for _, layout := range dateLayouts {
		count := 0
		for _, v := range sample {
			if _, err := time.Parse(layout, v); err == nil {
				count++
			}
		}
		if count > bestCount {
			bestLayout, bestCount = layout, count
		}
	}
	return bestLayout
}

func exampleValues(values []string, n int) []string {
	var out []string
	seen := make(map[string]bool, n)
	for _, v := range values {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
		if len(out) == n {
			break
		}
	}
	return out
}
