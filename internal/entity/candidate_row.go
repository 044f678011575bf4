package entity

// CandidateRow is one table row provisionally identifying an event before
// date filtering. Rows are deduplicated by DetailURL for the lifetime of
// one run and never persisted.
type CandidateRow struct {
	RawDateText string
	DetailURL   string
	ListTitle   string
}

// PageContent is the rendered text capture of a single page, after
// stripping navigation chrome and squashing whitespace.
type PageContent struct {
	Title           string
	MetaDescription string
	Text            string
	HTTPStatusCode  int
}
