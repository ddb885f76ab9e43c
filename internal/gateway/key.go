package gateway

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// contextAllowList is the fixed set of context fields that participate in the
// cache key. Anything else in the request context is ignored so incidental
// fields (request ids, timestamps) cannot fragment the cache.
var contextAllowList = []string{
	"document_type",
	"schema_id",
	"charity_type",
	"region",
	"annual_income",
	"staff_count",
}

// numericBuckets maps allow-listed numeric fields to their bucket width.
// Values are rounded down to the nearest bucket so near-identical requests
// share an entry.
var numericBuckets = map[string]float64{
	"annual_income": 10000,
	"staff_count":   10,
}

// Key derives the cache key for a request: a SHA-256 of the normalized text
// and a fingerprint of the allow-listed context fields. Case and whitespace
// variations of the text hash identically.
func Key(text string, reqContext map[string]any) string {
	h := sha256.New()
	h.Write([]byte(normalizeText(text)))
	h.Write([]byte{0})
	h.Write([]byte(fingerprint(reqContext)))
	return hex.EncodeToString(h.Sum(nil))
}

func normalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(s))), " ")
}

// fingerprint renders the allow-listed context fields as a stable
// "key=value|key=value" string, bucketing numeric fields.
func fingerprint(reqContext map[string]any) string {
	if len(reqContext) == 0 {
		return ""
	}

	keys := make([]string, 0, len(contextAllowList))
	for _, k := range contextAllowList {
		if _, ok := reqContext[k]; ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+renderValue(k, reqContext[k]))
	}
	return strings.Join(parts, "|")
}

func renderValue(key string, v any) string {
	if width, ok := numericBuckets[key]; ok {
		if f, ok := asFloat(v); ok {
			bucket := math.Floor(f/width) * width
			return strconv.FormatFloat(bucket, 'f', -1, 64)
		}
	}
	switch t := v.(type) {
	case string:
		return normalizeText(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	}
	return 0, false
}
