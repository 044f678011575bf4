package chromedp_browser

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/user/scraper-service/internal/repository"
)

// hasNextScript reports whether an enabled "next page" control is present.
const hasNextScriptTpl = `(() => {
	const el = document.querySelector(%q);
	if (!el) return false;
	if (el.disabled) return false;
	return !el.classList.contains('disabled') && !el.closest('.disabled');
})()`

type tableSession struct {
	ctx     context.Context
	cancel  context.CancelFunc
	opts    TableOptions
	timeout time.Duration
}

var _ repository.TableSession = (*tableSession)(nil)

// PageHTML snapshots the outer HTML of the table widget on the current page.
func (s *tableSession) PageHTML(ctx context.Context) (string, error) {
	runCtx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()

	var html string
	if err := chromedp.Run(runCtx,
		chromedp.OuterHTML(s.opts.TableSelector, &html, chromedp.ByQuery),
	); err != nil {
		return "", classifyRunError(ctx, runCtx, err)
	}
	return html, nil
}

// NextPage clicks the "next" control if one is present and enabled. It
// reports false when the control is missing, which ends the walk.
func (s *tableSession) NextPage(ctx context.Context) (bool, error) {
	runCtx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()

	var hasNext bool
	script := fmt.Sprintf(hasNextScriptTpl, s.opts.NextSelector)
	if err := chromedp.Run(runCtx, chromedp.Evaluate(script, &hasNext)); err != nil {
		return false, classifyRunError(ctx, runCtx, err)
	}
	if !hasNext {
		return false, nil
	}

	if err := chromedp.Run(runCtx, chromedp.Click(s.opts.NextSelector, chromedp.ByQuery)); err != nil {
		return false, classifyRunError(ctx, runCtx, err)
	}

	// The widget swaps the table in place; give it a bounded settle wait
	// and carry on regardless.
	waitCtx, waitCancel := context.WithTimeout(s.ctx, settleTimeout)
	if err := chromedp.Run(waitCtx, chromedp.WaitVisible(s.opts.TableSelector, chromedp.ByQuery)); err != nil {
		slog.Warn("Timed out waiting for next table page, continuing", "error", err)
	}
	waitCancel()

	return true, nil
}

// Close releases the tab backing this session.
func (s *tableSession) Close() {
	s.cancel()
}
