package entity

import "time"

// Sentinel is the placeholder value written for any field the extraction
// service did not supply.
const Sentinel = "N/A"

// StatusSuccess marks a record produced from a successful extraction.
// Failed extractions carry a "Failed: <reason>" status instead.
const StatusSuccess = "Success"

// ExtractedRecord is the structured result of extracting one page.
// Fields is keyed by the configured column names; missing keys read as
// the sentinel via Field.
type ExtractedRecord struct {
	SourceURL string
	ScrapedAt time.Time
	Status    string
	Fields    map[string]string
}

// Field returns the value for a named field, or the sentinel when the
// field is absent or empty.
func (r *ExtractedRecord) Field(name string) string {
	if r.Fields == nil {
		return Sentinel
	}
	v, ok := r.Fields[name]
	if !ok || v == "" {
		return Sentinel
	}
	return v
}

// NewFallbackRecord builds the record substituted when extraction fails:
// every configured field is the sentinel and the status carries the reason.
func NewFallbackRecord(sourceURL string, fields []string, reason string, at time.Time) *ExtractedRecord {
	m := make(map[string]string, len(fields))
	for _, f := range fields {
		m[f] = Sentinel
	}
	return &ExtractedRecord{
		SourceURL: sourceURL,
		ScrapedAt: at,
		Status:    "Failed: " + reason,
		Fields:    m,
	}
}
