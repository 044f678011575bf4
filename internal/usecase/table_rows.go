package usecase

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/user/scraper-service/internal/entity"
	"github.com/user/scraper-service/pkg/utils"
)

// Detail-link probing order over table columns: the title column usually
// carries the link, but some revisions of the markup put it in the venue
// column or on the date cell itself.
var linkColumnPriority = []int{1, 2, 0}

// ParseCandidateRows reads all data rows out of a table HTML snapshot.
// Section-header rows (month banners, colspan rows) come through with no
// detail URL and non-date text; the date filter weeds them out downstream.
func ParseCandidateRows(html, pageURL string) ([]entity.CandidateRow, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse table HTML: %w", err)
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid table page URL %q: %w", pageURL, err)
	}

	var rows []entity.CandidateRow
	doc.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		tds := tr.Find("td")
		if tds.Length() == 0 {
			// th-only header row
			return
		}
		detailURL, title := probeDetailLink(tds, base)
		rows = append(rows, entity.CandidateRow{
			RawDateText: collapseSpace(tds.Eq(0).Text()),
			DetailURL:   detailURL,
			ListTitle:   title,
		})
	})
	return rows, nil
}

// probeDetailLink walks the candidate columns in priority order and returns
// the first usable link plus a title for it. An empty URL means the row has
// no detail page.
func probeDetailLink(tds *goquery.Selection, base *url.URL) (string, string) {
	for _, idx := range linkColumnPriority {
		if idx >= tds.Length() {
			continue
		}
		cell := tds.Eq(idx)
		link := cell.Find("a[href]").First()
		if link.Length() == 0 {
			continue
		}
		href := strings.TrimSpace(link.AttrOr("href", ""))
		if href == "" || strings.HasPrefix(href, "#") {
			continue
		}
		abs, err := utils.ToAbsoluteURL(base, href)
		if err != nil {
			continue
		}
		title := collapseSpace(link.Text())
		if title == "" {
			title = collapseSpace(cell.Text())
		}
		return abs, title
	}

	if tds.Length() > 1 {
		return "", collapseSpace(tds.Eq(1).Text())
	}
	return "", ""
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
