package metacritic

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// rounds without feed growth before the listing is considered complete
const defaultMaxStillRounds = 3

// ReviewFeed is an incrementally loading review listing: trigger more
// loading, let the listing settle, re-check how many review blocks
// are visible. The concrete loading mechanism (scroll, pagination)
// is the feed's business; stabilization is not.
type ReviewFeed interface {
	VisibleReviews() int
	LoadMore() error
	Settle()
}

// Stabilize drives the feed to its fixed point: it keeps triggering
// more loading until the visible review count fails to grow for
// maxStill consecutive rounds. This is deliberate fixed-point
// detection, not a timeout race.
func Stabilize(feed ReviewFeed, maxStill int) error {
	still := 0
	for still < maxStill {
		before := feed.VisibleReviews()
		if err := feed.LoadMore(); err != nil {
			return err
		}
		feed.Settle()
		if feed.VisibleReviews() > before {
			still = 0
		} else {
			still++
		}
	}
	return nil
}

// pagedFeed loads a critic-reviews listing page by page, accumulating
// the raw review-block fragments in emission order. Pages past the
// end of the listing contribute nothing, which is exactly the
// no-growth signal Stabilize terminates on.
type pagedFeed struct {
	ctx    context.Context
	client *Client
	base   string
	settle time.Duration

	page   int
	blocks []string
	seen   map[string]bool
}

func (f *pagedFeed) VisibleReviews() int {
	return len(f.blocks)
}

func (f *pagedFeed) LoadMore() error {
	link := f.base
	if f.page > 0 {
		link = fmt.Sprintf("%s?page=%d", f.base, f.page)
	}
	f.page++

	doc, err := f.client.fetchDocument(f.ctx, link)
	if err != nil {
		return err
	}

	if f.seen == nil {
		f.seen = map[string]bool{}
	}
	doc.Find(reviewBlockSelector).Each(func(_ int, block *goquery.Selection) {
		html, err := goquery.OuterHtml(block)
		if err != nil {
			return
		}
		// a listing that serves the same page for any page number
		// must read as no growth, not as an endless feed
		if f.seen[html] {
			return
		}
		f.seen[html] = true
		f.blocks = append(f.blocks, html)
	})
	return nil
}

func (f *pagedFeed) Settle() {
	select {
	case <-time.After(f.settle):
	case <-f.ctx.Done():
	}
}

// Document materializes the accumulated blocks into one queryable
// document, preserving the order they were loaded in.
func (f *pagedFeed) Document() (*goquery.Document, error) {
	var page strings.Builder
	page.WriteString("<html><body>")
	for _, block := range f.blocks {
		page.WriteString(block)
		page.WriteString("\n")
	}
	page.WriteString("</body></html>")
	return goquery.NewDocumentFromReader(strings.NewReader(page.String()))
}
