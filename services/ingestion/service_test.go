package ingestion

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"metabias/lib/bias"
	"metabias/lib/reviewstore"
	"metabias/lib/telemetry"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

const workPage = `
<div class="c-productScoreInfo_scoreContent">
  <a data-testid="critic-path" href="/game/foo/critic-reviews/">Based on 3 Critic Reviews</a>
  <div class="c-productScoreInfo_scoreNumber"><span data-v-e408cafe="">75</span></div>
</div>
<div class="c-productScoreInfo_scoreContent">
  <a data-testid="user-path" href="/game/foo/user-reviews/">120 User Ratings</a>
  <div class="c-productScoreInfo_scoreNumber">
    <div class="c-siteReviewScore_user"><span data-v-e408cafe="">8.0</span></div>
  </div>
</div>`

const reviewsPage = `
<div data-testid="product-review">
  <a class="c-siteReviewHeader_publicationName" href="/publication/harsh-takes">Harsh Takes</a>
  <div class="c-siteReviewScore"><span data-v-e408cafe="">70</span></div>
</div>
<div data-testid="product-review">
  <a class="c-siteReviewHeader_publicationName" href="/publication/harsh-takes">Harsh Takes</a>
  <div class="c-siteReviewScore"><span data-v-e408cafe="">80</span></div>
</div>
<div data-testid="product-review">
  <a class="c-siteReviewHeader_publicationName" href="/publication/late-to-press">Late To Press</a>
  <div class="c-siteReviewScore"><span data-v-e408cafe="">tbd</span></div>
</div>`

// fakeFetcher serves canned documents per work id and records every
// fetch it saw.
type fakeFetcher struct {
	pages   map[string][2]string
	fetched []string
}

func (f *fakeFetcher) doc(workID string, idx int) (*goquery.Document, error) {
	pages, ok := f.pages[workID]
	if !ok {
		return nil, fmt.Errorf("fetch %s: unavailable", workID)
	}
	return goquery.NewDocumentFromReader(strings.NewReader(pages[idx]))
}

func (f *fakeFetcher) WorkDocument(ctx context.Context, workID string) (*goquery.Document, error) {
	f.fetched = append(f.fetched, workID)
	return f.doc(workID, 0)
}

func (f *fakeFetcher) ReviewsDocument(ctx context.Context, workID string) (*goquery.Document, error) {
	return f.doc(workID, 1)
}

func setupService(t *testing.T, fetcher *fakeFetcher) (Service, reviewstore.Store) {
	cleanup := telemetry.SetupForTesting(t, "test:ingestion")
	t.Cleanup(cleanup)

	store := reviewstore.New(filepath.Join(t.TempDir(), "metacritic_db.csv"))
	svc := NewService(Options{
		Store:       store,
		Fetcher:     fetcher,
		ScrapeDelay: time.Millisecond,
	})
	return svc, store
}

func TestIngestEndToEnd(t *testing.T) {
	workID := "https://www.metacritic.com/game/foo"
	fetcher := &fakeFetcher{pages: map[string][2]string{
		workID: {workPage, reviewsPage},
	}}
	svc, store := setupService(t, fetcher)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	// link with deeper path and query normalizes onto the work id
	report, err := svc.Ingest(ctx, []string{workID + "/critic-reviews/?page=0"})
	if err != nil {
		t.Fatal(err)
	}

	// the pending block is dropped during extraction
	require.Equal(t, 2, report.Added)
	require.Len(t, report.Outcomes, 1)
	require.Equal(t, StatusAdded, report.Outcomes[0].Status)
	require.Equal(t, []string{workID}, fetcher.fetched)

	records, err := store.Load()
	if err != nil {
		t.Fatal(err)
	}
	require.Len(t, records, 2)
	for _, r := range records {
		require.Equal(t, workID, r.WorkID)
		require.Equal(t, 75, *r.CriticAggregate)
		require.Equal(t, 80.0, *r.UserAggregate)
	}

	summaries, _ := bias.Aggregate(records)
	require.Len(t, summaries, 1)
	require.Equal(t, "Harsh Takes", summaries[0].OutletName)
	// critic diffs -5/+5, audience diffs -10/0
	require.Equal(t, 0.0, summaries[0].CriticMean)
	require.Equal(t, -5.0, summaries[0].AudienceMean)
	require.Equal(t, -5.0, summaries[0].AudienceMedian)
}

func TestIngestReplacesPriorRecords(t *testing.T) {
	workID := "https://www.metacritic.com/game/foo"
	fetcher := &fakeFetcher{pages: map[string][2]string{
		workID: {workPage, reviewsPage},
	}}
	svc, store := setupService(t, fetcher)

	stale := 90
	err := store.Save([]reviewstore.ReviewRecord{
		{WorkID: workID, OutletName: "Gone Outlet", OutletID: "gone-outlet", OutletScore: &stale},
		{WorkID: "https://www.metacritic.com/game/other", OutletName: "Kept", OutletID: "kept", OutletScore: &stale},
	})
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	report, err := svc.Ingest(ctx, []string{workID})
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, 1, report.Outcomes[0].Replaced)

	records, err := store.Load()
	if err != nil {
		t.Fatal(err)
	}
	// other work untouched, stale row of this work gone
	require.Len(t, records, 3)
	for _, r := range records {
		require.NotEqual(t, "Gone Outlet", r.OutletName)
	}
}

func TestIngestContinuesPastFailures(t *testing.T) {
	good := "https://www.metacritic.com/game/good"
	bad := "https://www.metacritic.com/game/bad"
	empty := "https://www.metacritic.com/game/empty"
	fetcher := &fakeFetcher{pages: map[string][2]string{
		good:  {workPage, reviewsPage},
		empty: {workPage, "<html><body></body></html>"},
	}}
	svc, store := setupService(t, fetcher)

	ctx := context.Background()
	report, err := svc.Ingest(ctx, []string{bad, empty, good})
	if err != nil {
		t.Fatal(err)
	}

	require.Len(t, report.Outcomes, 3)
	require.Equal(t, StatusFailed, report.Outcomes[0].Status)
	require.Equal(t, StatusNoData, report.Outcomes[1].Status)
	require.Equal(t, StatusAdded, report.Outcomes[2].Status)
	require.Equal(t, 2, report.Added)

	records, err := store.Load()
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range records {
		require.Equal(t, good, r.WorkID)
	}
}

func TestIngestFileDedupsLinks(t *testing.T) {
	workID := "https://www.metacritic.com/game/foo"
	fetcher := &fakeFetcher{pages: map[string][2]string{
		workID: {workPage, reviewsPage},
	}}
	svc, _ := setupService(t, fetcher)

	path := filepath.Join(t.TempDir(), "links.txt")
	lines := workID + "\n\n" + workID + "\n"
	if err := os.WriteFile(path, []byte(lines), 0644); err != nil {
		t.Fatal(err)
	}

	report, err := svc.IngestFile(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}

	// second occurrence dropped before processing
	require.Len(t, report.Outcomes, 1)
	require.Len(t, fetcher.fetched, 1)
}

func TestIngestFileMissing(t *testing.T) {
	svc, _ := setupService(t, &fakeFetcher{})
	_, err := svc.IngestFile(context.Background(), filepath.Join(t.TempDir(), "nope.txt"))
	require.Error(t, err)
}
