package fetch

import (
	"context"
	"time"

	"github.com/chromedp/chromedp"
)

// Browser renders JavaScript-heavy pages in headless Chrome. One browser
// process is shared; each Render gets its own tab.
type Browser struct {
	browserCtx    context.Context
	browserCancel context.CancelFunc
	allocCancel   context.CancelFunc
}

func NewBrowser() *Browser {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.DisableGPU,
		chromedp.NoSandbox,
		chromedp.Headless,
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	return &Browser{
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		allocCancel:   allocCancel,
	}
}

// Render navigates to rawURL and returns the page HTML once the body is
// ready. When scroll is set it scrolls to the bottom three times with a
// pause between each so lazily loaded reviews attach to the DOM.
func (b *Browser) Render(ctx context.Context, rawURL string, timeout time.Duration, scroll bool) (string, error) {
	// tab contexts descend from the browser, not the caller
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	tabCtx, tabCancel := chromedp.NewContext(b.browserCtx)
	defer tabCancel()
	timeoutCtx, timeoutCancel := context.WithTimeout(tabCtx, timeout)
	defer timeoutCancel()

	tasks := []chromedp.Action{
		chromedp.Navigate(rawURL),
		chromedp.WaitReady("body"),
	}
	if scroll {
		for i := 0; i < 3; i++ {
			tasks = append(tasks,
				chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil),
				chromedp.Sleep(2*time.Second),
			)
		}
	}
	var html string
	tasks = append(tasks, chromedp.OuterHTML("html", &html))

	if err := chromedp.Run(timeoutCtx, tasks...); err != nil {
		return "", err
	}
	return html, nil
}

func (b *Browser) Close() {
	b.browserCancel()
	b.allocCancel()
}
