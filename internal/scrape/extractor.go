package scrape

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"
	"go.uber.org/zap"

	"github.com/ZoomL-Olymp/EGSListener/internal/domain"
)

// Selectors are coupled to the storefront's generated markup and WILL
// break when the site ships a redesign. That fragility is accepted: the
// extractor fails loudly with the raw strings it saw, and the daily
// fallback schedule keeps the loop alive until the selectors are updated.
const (
	titleSelector  = "h6.eds_1ypbntd0.eds_1ypbntd7.eds_1ypbntdq"
	expirySelector = "time"
	datetimeAttr   = "datetime"
)

// Extractor produces the currently promoted free-game offer from the
// storefront page. It has no side effects beyond asking the renderer for
// the page.
type Extractor struct {
	renderer Renderer
	pageURL  string
	log      *zap.Logger
}

// NewExtractor creates an Extractor for the given storefront page.
func NewExtractor(renderer Renderer, pageURL string, log *zap.Logger) *Extractor {
	return &Extractor{renderer: renderer, pageURL: pageURL, log: log}
}

// Extract renders the storefront page and parses the promoted offer.
// Every failure mode (render timeout, missing elements, unparsable
// expiry) comes back as an error; nothing is thrown past this boundary.
func (e *Extractor) Extract(ctx context.Context) (*domain.Offer, error) {
	started := time.Now()

	doc, err := e.renderer.Render(ctx, e.pageURL, titleSelector)
	if err != nil {
		e.log.Error("rendering failed", zap.Error(err))
		return nil, err
	}

	offer, err := extractOffer(doc)
	if err != nil {
		e.log.Error("extraction failed", zap.Error(err))
		return nil, err
	}

	e.log.Info("extraction completed",
		zap.String("title", offer.Title),
		zap.Time("free_until", offer.FreeUntil),
		zap.Duration("elapsed", time.Since(started)))
	return offer, nil
}

// extractOffer locates the promo title and expiry in a rendered document.
// The expiry has been observed in two forms: a machine-readable datetime
// attribute (preferred), or two adjacent human-readable date and time
// fragments that must be joined and parsed as natural language.
func extractOffer(doc *goquery.Document) (*domain.Offer, error) {
	title := strings.TrimSpace(doc.Find(titleSelector).First().Text())
	if title == "" {
		return nil, errors.New("promo title element not found")
	}

	times := doc.Find(expirySelector)
	if times.Length() == 0 {
		return nil, errors.New("expiry elements not found")
	}

	if attr, ok := times.First().Attr(datetimeAttr); ok {
		if ts, err := domain.ParseTimestamp(attr); err == nil {
			return &domain.Offer{Title: title, FreeUntil: ts}, nil
		}
		// Unparsable attribute: fall through to the text fragments.
	}

	if times.Length() < 2 {
		raw, _ := times.First().Attr(datetimeAttr)
		return nil, fmt.Errorf("single expiry element with unusable datetime %q", raw)
	}
	raw := strings.TrimSpace(times.Eq(0).Text()) + " " + strings.TrimSpace(times.Eq(1).Text())
	ts, err := dateparse.ParseIn(raw, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("parse expiry text %q: %w", raw, err)
	}
	return &domain.Offer{Title: title, FreeUntil: ts.UTC()}, nil
}
