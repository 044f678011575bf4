package sheets

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/user/scraper-service/internal/entity"
)

func TestBuildRow_FixedWidthWithSentinels(t *testing.T) {
	t.Parallel()

	fields := []string{"Scheduled", "Location", "Organizer", "Tags", "Title", "Theme", "Speakers"}
	rec := &entity.ExtractedRecord{
		SourceURL: "https://example.org/event/1",
		ScrapedAt: time.Date(2025, 10, 2, 9, 30, 0, 0, time.UTC),
		Status:    entity.StatusSuccess,
		Fields: map[string]string{
			"Scheduled": "2 October 2025",
			"Title":     "Ocean Dialogue",
		},
	}

	row := BuildRow(rec, fields)

	assert.Len(t, row, len(metaColumns)+len(fields), "row width must equal header width")
	assert.Equal(t, "2025-10-02 09:30:00", row[0])
	assert.Equal(t, "https://example.org/event/1", row[1])
	assert.Equal(t, entity.StatusSuccess, row[2])
	assert.Equal(t, "2 October 2025", row[3])
	assert.Equal(t, entity.Sentinel, row[4], "missing Location defaults to sentinel")
	assert.Equal(t, "Ocean Dialogue", row[7])
	assert.Equal(t, entity.Sentinel, row[9], "missing Speakers defaults to sentinel")
}

func TestBuildRow_FallbackRecord(t *testing.T) {
	t.Parallel()

	fields := []string{"Scheduled", "Location"}
	rec := entity.NewFallbackRecord("https://example.org/event/2", fields,
		"extraction service returned an empty response",
		time.Date(2025, 10, 2, 9, 30, 0, 0, time.UTC))

	row := BuildRow(rec, fields)

	assert.Len(t, row, len(metaColumns)+len(fields))
	assert.Equal(t, "Failed: extraction service returned an empty response", row[2])
	assert.NotEqual(t, entity.StatusSuccess, row[2])
	assert.Equal(t, entity.Sentinel, row[3])
	assert.Equal(t, entity.Sentinel, row[4])
}

func TestParseRowIndex(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want int64
	}{
		{"Events!A42:J42", 42},
		{"Events!A5", 5},
		{"'My Sheet'!B120:K120", 120},
		{"garbage", 0},
		{"", 0},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, parseRowIndex(tt.in), "range %q", tt.in)
	}
}
