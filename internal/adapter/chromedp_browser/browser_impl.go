package chromedp_browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/user/scraper-service/internal/entity"
	"github.com/user/scraper-service/internal/repository"
)

const userAgent = `Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36`

// Rendered page text is capped before being handed to the extraction
// service; anything past this is navigation chrome or repeated boilerplate.
const maxTextLen = 20000

// settleTimeout bounds the best-effort waits after navigation. Exceeding it
// is logged and tolerated, never fatal.
const settleTimeout = 10 * time.Second

var whitespaceRe = regexp.MustCompile(`\s+`)

// scrollScript walks the page to the bottom to trigger lazy loading, then
// returns to the top. Resolves once the full height has been covered.
const scrollScript = `new Promise(resolve => {
	let scrollHeight = document.body.scrollHeight;
	let currentScroll = 0;
	const distance = 100;
	const timer = setInterval(() => {
		window.scrollBy(0, distance);
		currentScroll += distance;
		if (currentScroll >= scrollHeight) {
			clearInterval(timer);
			window.scrollTo(0, 0);
			resolve(true);
		}
	}, 100);
})`

// pageTextScript strips non-content elements and returns the text of the
// main content region, falling back to the whole body.
const pageTextScript = `(() => {
	const unwanted = document.querySelectorAll(
		'script, style, nav, header, footer, .cookie-banner, .modal, iframe, noscript'
	);
	unwanted.forEach(el => el.remove());
	let main = document.querySelector('main')
		|| document.querySelector('[role="main"]')
		|| document.querySelector('.main-content')
		|| document.querySelector('#main')
		|| document.body;
	return main.innerText;
})()`

const metaDescriptionScript = `(() => {
	const meta = document.querySelector('meta[name="description"]');
	return meta ? meta.content : '';
})()`

// TableOptions selects the DOM elements of the paginated table widget.
type TableOptions struct {
	// TableSelector matches the rendered data table.
	TableSelector string
	// NextSelector matches the "next page" control when one exists.
	NextSelector string
}

// DefaultTableOptions matches the Drupal views table the events calendar
// renders.
func DefaultTableOptions() TableOptions {
	return TableOptions{
		TableSelector: ".view-content table",
		NextSelector:  "li.pager__item--next a",
	}
}

// Browser implements repository.BrowserRepository on top of a shared
// headless Chromium allocator. One Browser serves the whole process; each
// render or table session gets its own tab.
type Browser struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
	timeout     time.Duration
	table       TableOptions
}

// New launches the shared exec allocator. Close must be called on shutdown.
func New(pageLoadTimeout time.Duration, table TableOptions) *Browser {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(userAgent),
	)
	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)
	return &Browser{
		allocCtx:    allocCtx,
		allocCancel: cancel,
		timeout:     pageLoadTimeout,
		table:       table,
	}
}

// Close tears down the allocator and every browser it spawned.
func (b *Browser) Close() {
	b.allocCancel()
}

// RenderPage navigates to a URL, scrolls it to trigger lazy loading, and
// returns the cleaned main-content text plus title and meta description.
func (b *Browser) RenderPage(ctx context.Context, url string) (*entity.PageContent, error) {
	tabCtx, cancel := chromedp.NewContext(b.allocCtx)
	defer cancel()

	tabCtx, timeoutCancel := context.WithTimeout(tabCtx, b.timeout)
	defer timeoutCancel()

	// Capture the main document's HTTP status from network events; the
	// navigate action itself does not expose it.
	var statusCode int
	chromedp.ListenTarget(tabCtx, func(ev interface{}) {
		if resp, ok := ev.(*network.EventResponseReceived); ok {
			if resp.Type == network.ResourceTypeDocument && statusCode == 0 {
				statusCode = int(resp.Response.Status)
			}
		}
	})

	if err := chromedp.Run(tabCtx,
		network.Enable(),
		chromedp.Navigate(url),
	); err != nil {
		return nil, classifyRunError(ctx, tabCtx, err)
	}

	// Best-effort settle: a slow page still gets scraped with whatever has
	// rendered by now.
	waitCtx, waitCancel := context.WithTimeout(tabCtx, settleTimeout)
	if err := chromedp.Run(waitCtx, chromedp.WaitReady("body", chromedp.ByQuery)); err != nil {
		slog.Warn("Timed out waiting for body, continuing with partial render", "url", url, "error", err)
	}
	waitCancel()

	if err := chromedp.Run(tabCtx, chromedp.Evaluate(scrollScript, nil, awaitPromise)); err != nil {
		slog.Warn("Lazy-load scroll failed, continuing", "url", url, "error", err)
	}

	var title, metaDesc, text string
	if err := chromedp.Run(tabCtx,
		chromedp.Title(&title),
		chromedp.Evaluate(metaDescriptionScript, &metaDesc),
		chromedp.Evaluate(pageTextScript, &text),
	); err != nil {
		return nil, classifyRunError(ctx, tabCtx, err)
	}

	text = whitespaceRe.ReplaceAllString(text, " ")
	text = strings.TrimSpace(text)
	if len(text) < 100 {
		slog.Warn("Very little content extracted, possible anti-bot protection",
			"url", url, "chars", len(text))
	}
	if len(text) > maxTextLen {
		text = text[:maxTextLen]
	}

	return &entity.PageContent{
		Title:           title,
		MetaDescription: metaDesc,
		Text:            text,
		HTTPStatusCode:  statusCode,
	}, nil
}

// OpenTable navigates to the events calendar and waits for the table widget
// to render, returning a session for page-by-page walking.
func (b *Browser) OpenTable(ctx context.Context, url string) (repository.TableSession, error) {
	tabCtx, cancel := chromedp.NewContext(b.allocCtx)

	navCtx, navCancel := context.WithTimeout(tabCtx, b.timeout)
	defer navCancel()

	if err := chromedp.Run(navCtx, chromedp.Navigate(url)); err != nil {
		cancel()
		return nil, classifyRunError(ctx, navCtx, err)
	}

	waitCtx, waitCancel := context.WithTimeout(tabCtx, b.timeout)
	if err := chromedp.Run(waitCtx, chromedp.WaitVisible(b.table.TableSelector, chromedp.ByQuery)); err != nil {
		slog.Warn("Timed out waiting for table widget, continuing best-effort",
			"url", url, "selector", b.table.TableSelector, "error", err)
	}
	waitCancel()

	return &tableSession{
		ctx:     tabCtx,
		cancel:  cancel,
		opts:    b.table,
		timeout: b.timeout,
	}, nil
}

func awaitPromise(p *runtime.EvaluateParams) *runtime.EvaluateParams {
	return p.WithAwaitPromise(true)
}

// classifyRunError maps chromedp failures onto the repository sentinels so
// use cases can bucket them without knowing about chromedp.
func classifyRunError(parent, task context.Context, err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded) || task.Err() == context.DeadlineExceeded:
		return fmt.Errorf("%w: %v", repository.ErrCrawlTimeout, err)
	case parent.Err() != nil:
		return parent.Err()
	default:
		return fmt.Errorf("%w: %v", repository.ErrNavigationFailed, err)
	}
}
