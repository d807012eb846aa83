package portal

import (
	"context"
	"sync"

	"github.com/chromedp/chromedp"
)

// Browser owns the single shared headless-Chrome instance. Launching Chrome
// is expensive, so one instance serves the whole process; callers open and
// close their own tabs. Lazy initialization is mutex-guarded so concurrent
// first callers cannot race to launch two browsers.
type Browser struct {
	mu sync.Mutex

	allocCtx    context.Context
	allocCancel context.CancelFunc
	browserCtx  context.Context
	cancel      context.CancelFunc
}

func NewBrowser() *Browser {
	return &Browser{}
}

// Tab returns a fresh tab in the shared browser, starting the browser on
// first use. The returned cancel closes only the tab.
func (b *Browser) Tab(parent context.Context) (context.Context, context.CancelFunc, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.browserCtx == nil {
		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.NoSandbox,
			chromedp.Flag("disable-setuid-sandbox", true),
		)
		// The shared browser outlives any single request, so it is rooted
		// on Background rather than the caller's context.
		b.allocCtx, b.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
		b.browserCtx, b.cancel = chromedp.NewContext(b.allocCtx)
		// First Run starts the browser process eagerly so a broken Chrome
		// install surfaces here, not inside a login flow.
		if err := chromedp.Run(b.browserCtx); err != nil {
			b.allocCancel()
			b.browserCtx = nil
			b.allocCtx = nil
			return nil, nil, err
		}
	}

	tabCtx, tabCancel := chromedp.NewContext(b.browserCtx)
	return tabCtx, tabCancel, nil
}

// Close shuts the shared browser down. Safe to call when never started.
func (b *Browser) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cancel != nil {
		b.cancel()
		b.allocCancel()
		b.browserCtx = nil
		b.allocCtx = nil
	}
}
