package scrape

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
	"github.com/codeGROOVE-dev/retry"
	"go.uber.org/zap"
)

// Renderer loads a URL in a rendering engine and returns the resulting
// document once waitSelector is visible. Implementations bound the wait;
// an element that never appears within the bound is an error, not a hang.
type Renderer interface {
	Render(ctx context.Context, pageURL, waitSelector string) (*goquery.Document, error)
}

// userAgents is a small rotation so repeated visits don't all present the
// same headless fingerprint.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
}

// ChromeRenderer renders pages in headless Chrome. The exec allocator is
// created once at startup; if the browser cannot be started at all the
// constructor fails and the process should exit, since nothing can ever
// be rendered without it.
type ChromeRenderer struct {
	allocCtx context.Context
	cancel   context.CancelFunc
	timeout  time.Duration
	log      *zap.Logger
}

// NewChromeRenderer starts the browser allocator and probes that Chrome
// actually launches. chromePath may be empty to use the system default.
func NewChromeRenderer(chromePath string, timeout time.Duration, log *zap.Logger) (*ChromeRenderer, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(userAgents[rand.Intn(len(userAgents))]),
	)
	if chromePath != "" {
		opts = append(opts, chromedp.ExecPath(chromePath))
	}

	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)

	probeCtx, probeCancel := chromedp.NewContext(allocCtx)
	defer probeCancel()
	if err := chromedp.Run(probeCtx); err != nil {
		cancel()
		return nil, fmt.Errorf("start chrome: %w", err)
	}

	return &ChromeRenderer{
		allocCtx: allocCtx,
		cancel:   cancel,
		timeout:  timeout,
		log:      log,
	}, nil
}

// Render navigates to pageURL in a fresh tab, waits (bounded) for
// waitSelector to become visible and returns the rendered document.
// Transient failures are retried a few times with a short delay; the
// daily fallback schedule remains the real failure policy, so this never
// turns into a tight loop.
func (r *ChromeRenderer) Render(ctx context.Context, pageURL, waitSelector string) (*goquery.Document, error) {
	var html string
	err := retry.Do(
		func() error {
			tabCtx, cancelTab := chromedp.NewContext(r.allocCtx)
			defer cancelTab()
			runCtx, cancelRun := context.WithTimeout(tabCtx, r.timeout)
			defer cancelRun()

			return chromedp.Run(runCtx,
				chromedp.Navigate(pageURL),
				chromedp.WaitVisible(waitSelector, chromedp.ByQuery),
				chromedp.OuterHTML("html", &html, chromedp.ByQuery),
			)
		},
		retry.Attempts(3),
		retry.Delay(2*time.Second),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			r.log.Warn("render attempt failed",
				zap.Uint("attempt", n+1),
				zap.String("url", pageURL),
				zap.Error(err))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", pageURL, err)
	}

	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

// Close shuts the browser allocator down.
func (r *ChromeRenderer) Close() {
	r.cancel()
}
