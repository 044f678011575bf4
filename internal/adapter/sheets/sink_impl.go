package sheets

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/user/scraper-service/internal/entity"
	"github.com/user/scraper-service/internal/repository"
)

const timestampLayout = "2006-01-02 15:04:05"

// Leading columns written before the configured extraction fields.
var metaColumns = []string{"Scraped At", "Source URL", "Status"}

var updatedRangeRe = regexp.MustCompile(`![A-Z]+(\d+)`)

// Sink implements repository.SinkRepository against one worksheet of a
// Google spreadsheet.
type Sink struct {
	svc           *sheets.Service
	spreadsheetID string
	worksheet     string
	fields        []string

	// Numeric sheet ID, resolved once; needed only by the cosmetic
	// formatting requests.
	sheetID    int64
	sheetIDSet bool
}

var _ repository.SinkRepository = (*Sink)(nil)

// NewSink authenticates with a service-account credentials file and binds
// to the named worksheet.
func NewSink(ctx context.Context, credentialsFile, spreadsheetID, worksheet string, fields []string) (*Sink, error) {
	svc, err := sheets.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(sheets.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}
	return &Sink{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		worksheet:     worksheet,
		fields:        fields,
	}, nil
}

// Header returns the full column header: meta columns then the configured
// extraction fields. Every appended row has exactly this width.
func (s *Sink) Header() []string {
	h := make([]string, 0, len(metaColumns)+len(s.fields))
	h = append(h, metaColumns...)
	h = append(h, s.fields...)
	return h
}

// EnsureHeader writes the header row if the destination has none yet.
// Idempotent: a populated first row is left alone.
func (s *Sink) EnsureHeader(ctx context.Context) error {
	resp, err := s.svc.Spreadsheets.Values.
		Get(s.spreadsheetID, s.worksheet+"!1:1").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to read header range: %w", err)
	}
	if len(resp.Values) > 0 && len(resp.Values[0]) > 0 {
		return nil
	}

	header := s.Header()
	row := make([]interface{}, len(header))
	for i, h := range header {
		row[i] = h
	}
	_, err = s.svc.Spreadsheets.Values.
		Update(s.spreadsheetID, s.worksheet+"!A1", &sheets.ValueRange{Values: [][]interface{}{row}}).
		ValueInputOption("RAW").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to write header row: %w", err)
	}

	// One-time presentation only; a formatting failure never blocks runs.
	if err := s.formatHeader(ctx, len(header)); err != nil {
		slog.Warn("Header formatting failed", "error", err)
	}
	return nil
}

// Append writes one record as a fixed-width row and returns its 1-based
// row index.
func (s *Sink) Append(ctx context.Context, record *entity.ExtractedRecord) (int64, error) {
	row := BuildRow(record, s.fields)
	resp, err := s.svc.Spreadsheets.Values.
		Append(s.spreadsheetID, s.worksheet+"!A1", &sheets.ValueRange{Values: [][]interface{}{row}}).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("failed to append row for %s: %w", record.SourceURL, err)
	}

	rowIndex := parseRowIndex(resp.Updates.UpdatedRange)

	// Wrap long text columns; cosmetic, the data write is already committed.
	if rowIndex > 0 {
		if err := s.wrapRow(ctx, rowIndex, len(row)); err != nil {
			slog.Warn("Row formatting failed", "row", rowIndex, "error", err)
		}
	}
	return rowIndex, nil
}

// AppendSummary writes the session-end separator row describing the run.
func (s *Sink) AppendSummary(ctx context.Context, summary *entity.RunSummary) error {
	width := len(s.Header())
	row := make([]interface{}, width)
	row[0] = fmt.Sprintf("Run complete (%s): %s to %s, %d items, %d failures",
		summary.Kind,
		summary.StartedAt.Format(timestampLayout),
		summary.FinishedAt.Format(timestampLayout),
		summary.ItemsFound,
		summary.Failures,
	)
	for i := 1; i < width; i++ {
		row[i] = ""
	}

	resp, err := s.svc.Spreadsheets.Values.
		Append(s.spreadsheetID, s.worksheet+"!A1", &sheets.ValueRange{Values: [][]interface{}{row}}).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to append summary row: %w", err)
	}

	if rowIndex := parseRowIndex(resp.Updates.UpdatedRange); rowIndex > 0 {
		if err := s.mergeRow(ctx, rowIndex, width); err != nil {
			slog.Warn("Summary row merge failed", "row", rowIndex, "error", err)
		}
	}
	return nil
}

// BuildRow produces the deterministic cell sequence for a record: the meta
// columns followed by the configured fields, sentinel-defaulted. The row
// length always equals the header length.
func BuildRow(record *entity.ExtractedRecord, fields []string) []interface{} {
	row := make([]interface{}, 0, len(metaColumns)+len(fields))
	row = append(row,
		record.ScrapedAt.Format(timestampLayout),
		record.SourceURL,
		record.Status,
	)
	for _, f := range fields {
		row = append(row, record.Field(f))
	}
	return row
}

// parseRowIndex extracts the 1-based row number from an A1-notation updated
// range like "Events!A42:J42". Returns 0 when the range is unparseable.
func parseRowIndex(updatedRange string) int64 {
	m := updatedRangeRe.FindStringSubmatch(updatedRange)
	if m == nil {
		return 0
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func (s *Sink) resolveSheetID(ctx context.Context) (int64, error) {
	if s.sheetIDSet {
		return s.sheetID, nil
	}
	meta, err := s.svc.Spreadsheets.Get(s.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("failed to read spreadsheet metadata: %w", err)
	}
	for _, sh := range meta.Sheets {
		if sh.Properties != nil && sh.Properties.Title == s.worksheet {
			s.sheetID = sh.Properties.SheetId
			s.sheetIDSet = true
			return s.sheetID, nil
		}
	}
	return 0, fmt.Errorf("worksheet %q not found in spreadsheet", s.worksheet)
}

func (s *Sink) formatHeader(ctx context.Context, width int) error {
	sheetID, err := s.resolveSheetID(ctx)
	if err != nil {
		return err
	}
	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{
					SheetId:          sheetID,
					StartRowIndex:    0,
					EndRowIndex:      1,
					StartColumnIndex: 0,
					EndColumnIndex:   int64(width),
				},
				Cell: &sheets.CellData{
					UserEnteredFormat: &sheets.CellFormat{
						TextFormat:      &sheets.TextFormat{Bold: true},
						BackgroundColor: &sheets.Color{Red: 0.85, Green: 0.92, Blue: 0.83},
					},
				},
				Fields: "userEnteredFormat(textFormat,backgroundColor)",
			},
		}},
	}
	_, err = s.svc.Spreadsheets.BatchUpdate(s.spreadsheetID, req).Context(ctx).Do()
	return err
}

func (s *Sink) wrapRow(ctx context.Context, rowIndex int64, width int) error {
	sheetID, err := s.resolveSheetID(ctx)
	if err != nil {
		return err
	}
	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{
					SheetId:          sheetID,
					StartRowIndex:    rowIndex - 1,
					EndRowIndex:      rowIndex,
					StartColumnIndex: 0,
					EndColumnIndex:   int64(width),
				},
				Cell: &sheets.CellData{
					UserEnteredFormat: &sheets.CellFormat{WrapStrategy: "WRAP"},
				},
				Fields: "userEnteredFormat.wrapStrategy",
			},
		}},
	}
	_, err = s.svc.Spreadsheets.BatchUpdate(s.spreadsheetID, req).Context(ctx).Do()
	return err
}

func (s *Sink) mergeRow(ctx context.Context, rowIndex int64, width int) error {
	sheetID, err := s.resolveSheetID(ctx)
	if err != nil {
		return err
	}
	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			MergeCells: &sheets.MergeCellsRequest{
				MergeType: "MERGE_ALL",
				Range: &sheets.GridRange{
					SheetId:          sheetID,
					StartRowIndex:    rowIndex - 1,
					EndRowIndex:      rowIndex,
					StartColumnIndex: 0,
					EndColumnIndex:   int64(width),
				},
			},
		}},
	}
	_, err = s.svc.Spreadsheets.BatchUpdate(s.spreadsheetID, req).Context(ctx).Do()
	return err
}
