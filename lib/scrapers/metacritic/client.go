package metacritic

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"metabias/lib/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("scrapers/metacritic")

// RetryPolicy decides whether a failed fetch attempt is worth another
// try and how long to wait first. It carries no state, so a single
// value governs every fetch of a client.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

// Next reports the backoff before the attempt following `attempt`
// (1-based), or false once attempts are exhausted.
func (p RetryPolicy) Next(attempt int, lastErr error) (time.Duration, bool) {
	if lastErr == nil || attempt >= p.MaxAttempts {
		return 0, false
	}
	return p.Delay, true
}

type ClientOptions struct {
	// fetch timeout per request, defaults to 30s
	Timeout time.Duration
	// retry policy for transient transport failures,
	// defaults to 3 attempts spaced 3s apart
	Retry RetryPolicy
	// settle delay between review-feed load-more rounds, defaults to 1s
	SettleDelay time.Duration
}

type Client struct {
	http   *resty.Client
	retry  RetryPolicy
	settle time.Duration
}

func NewClient(opts ClientOptions) *Client {
	if opts.Timeout == 0 {
		opts.Timeout = time.Second * 30
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = RetryPolicy{MaxAttempts: 3, Delay: time.Second * 3}
	}
	if opts.SettleDelay == 0 {
		opts.SettleDelay = time.Second
	}

	client := resty.New()
	client.SetTimeout(opts.Timeout)
	client.SetHeader("user-agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36")
	client.SetHeader("accept-language", "en-US,en;q=0.9")
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)

	telemetry.InstrumentResty(client, "scrapers/metacritic/http")

	return &Client{
		http:   client,
		retry:  opts.Retry,
		settle: opts.SettleDelay,
	}
}

// fetchDocument gets one url and parses it into a document, retrying
// per the client policy. Exhausting retries degrades the fetch to an
// error; callers treat that as "page unavailable", never a run abort.
func (c *Client) fetchDocument(ctx context.Context, link string) (*goquery.Document, error) {
	var lastErr error
	for attempt := 1; ; attempt++ {
		res, err := c.http.R().
			SetContext(ctx).
			Get(link)
		if err == nil && res.IsSuccess() {
			return goquery.NewDocumentFromReader(bytes.NewReader(res.Body()))
		}
		if err == nil {
			err = fmt.Errorf("unexpected status %s", res.Status())
		}
		lastErr = err

		delay, retry := c.retry.Next(attempt, err)
		if !retry {
			break
		}
		slog.WarnContext(ctx, "fetch attempt failed",
			"url", link, "attempt", attempt, "max", c.retry.MaxAttempts, "err", err)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, fmt.Errorf("fetch %s: %w", link, lastErr)
}

// WorkDocument fetches a work's summary page.
func (c *Client) WorkDocument(ctx context.Context, workID string) (*goquery.Document, error) {
	ctx, span := tracer.Start(ctx, "client:WorkDocument")
	defer span.End()
	span.SetAttributes(attribute.String("work_id", workID))

	return c.fetchDocument(ctx, workID)
}

// ReviewsDocument fetches a work's critic-reviews listing after the
// review feed has stopped growing, so the returned document holds the
// complete set of currently published review blocks.
func (c *Client) ReviewsDocument(ctx context.Context, workID string) (*goquery.Document, error) {
	ctx, span := tracer.Start(ctx, "client:ReviewsDocument")
	defer span.End()
	span.SetAttributes(attribute.String("work_id", workID))

	feed := &pagedFeed{
		ctx:    ctx,
		client: c,
		base:   workID + "/critic-reviews/",
		settle: c.settle,
	}
	err := Stabilize(feed, defaultMaxStillRounds)
	if err != nil && feed.VisibleReviews() == 0 {
		return nil, err
	}
	if err != nil {
		// keep whatever loaded before the feed went unavailable
		slog.WarnContext(ctx, "review feed degraded, using partial listing",
			"work_id", workID, "reviews", feed.VisibleReviews(), "err", err)
	}
	span.SetAttributes(attribute.Int("review_blocks", feed.VisibleReviews()))

	return feed.Document()
}
