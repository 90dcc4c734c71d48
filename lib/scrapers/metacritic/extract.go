package metacritic

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"metabias/lib/htmlutil"
	"metabias/lib/reviewstore"

	"github.com/PuerkitoBio/goquery"
)

const (
	criticAnchorSelector = `a[data-testid="critic-path"]`
	userAnchorSelector   = `a[data-testid="user-path"]`
	scoreContentSelector = "div.c-productScoreInfo_scoreContent"
	scoreNumberSelector  = "div.c-productScoreInfo_scoreNumber"
	userScoreSelector    = "div.c-siteReviewScore_user"
	scoreSpanSelector    = "span[data-v-e408cafe]"

	reviewBlockSelector = `div[data-testid="product-review"]`
	publicationSelector = "a.c-siteReviewHeader_publicationName"
	reviewScoreSelector = "div.c-siteReviewScore"

	publicationPathSegment = "/publication/"

	// placeholder shown in score slots before a score is published
	pendingScore = "tbd"
)

// work-level aggregates shared by every review record of one work.
// Any of these can be missing from the page; missing is nil, never an
// error.
type WorkFacts struct {
	CriticAggregate   *int
	CriticReviewCount *int
	UserAggregate     *float64
	UserReviewCount   *int
}

// ExtractWorkFacts reads the two aggregate score blocks off a work's
// summary page. The critic and audience blocks are independent:
// a missing critic anchor never blocks audience extraction.
func ExtractWorkFacts(doc *goquery.Document) WorkFacts {
	var facts WorkFacts
	if doc == nil {
		return facts
	}

	criticAnchor := doc.Find(criticAnchorSelector).First()
	if criticAnchor.Length() > 0 {
		if n, ok := htmlutil.LeadingInt(criticAnchor.Text()); ok {
			facts.CriticReviewCount = &n
		}
		block := criticAnchor.Closest(scoreContentSelector).Find(scoreNumberSelector).First()
		if text, ok := scoreSpanText(block); ok {
			if v, ok := parseScore(text); ok {
				facts.CriticAggregate = &v
			}
		}
	}

	userAnchor := doc.Find(userAnchorSelector).First()
	if userAnchor.Length() > 0 {
		if n, ok := htmlutil.LeadingInt(userAnchor.Text()); ok {
			facts.UserReviewCount = &n
		}
		block := userAnchor.Closest(scoreContentSelector).
			Find(scoreNumberSelector).First().
			Find(userScoreSelector).First()
		if text, ok := scoreSpanText(block); ok {
			if v, ok := parseUserScore(text); ok {
				// authored on a 0-10 scale, stored on the 0-100
				// critic scale so diffs never mix scales
				v *= 10
				facts.UserAggregate = &v
			}
		}
	}

	return facts
}

// ExtractReviews enumerates the review blocks of a work's
// critic-reviews listing in document order and emits one record per
// block carrying the work-level facts. Blocks without an outlet link,
// without a score slot, with a pending placeholder or with a
// non-integer score are skipped silently; none of that is an error.
func ExtractReviews(ctx context.Context, reviewsDoc *goquery.Document, workID string, facts WorkFacts) []reviewstore.ReviewRecord {
	if reviewsDoc == nil {
		return nil
	}

	var records []reviewstore.ReviewRecord
	reviewsDoc.Find(reviewBlockSelector).Each(func(_ int, block *goquery.Selection) {
		outletLink := block.Find(publicationSelector).First()
		if outletLink.Length() == 0 {
			return
		}
		outletName := htmlutil.CleanText(outletLink.Text())
		outletID := publicationID(outletLink.AttrOr("href", ""))

		scoreBlock := block.Find(reviewScoreSelector).First()
		if scoreBlock.Length() == 0 {
			return
		}
		text, ok := scoreSpanText(scoreBlock)
		if !ok {
			return
		}
		if strings.EqualFold(text, pendingScore) {
			slog.DebugContext(ctx, "skipping pending review", "outlet", outletName)
			return
		}
		score, err := strconv.Atoi(text)
		if err != nil {
			slog.DebugContext(ctx, "skipping unparsable review score", "outlet", outletName, "score", text)
			return
		}

		records = append(records, reviewstore.ReviewRecord{
			WorkID:            workID,
			CriticAggregate:   facts.CriticAggregate,
			OutletName:        outletName,
			OutletID:          outletID,
			OutletScore:       &score,
			UserAggregate:     facts.UserAggregate,
			CriticReviewCount: facts.CriticReviewCount,
			UserReviewCount:   facts.UserReviewCount,
		})
	})

	return records
}

func scoreSpanText(block *goquery.Selection) (string, bool) {
	span := block.Find(scoreSpanSelector).First()
	if span.Length() == 0 {
		return "", false
	}
	return htmlutil.CleanText(span.Text()), true
}

// parseScore resolves a score slot's text into a 0-100 integer.
// "tbd" and anything else non-numeric resolve to absent.
func parseScore(text string) (int, bool) {
	if strings.EqualFold(text, pendingScore) {
		return 0, false
	}
	v, err := strconv.Atoi(text)
	if err != nil {
		return 0, false
	}
	return v, true
}

func parseUserScore(text string) (float64, bool) {
	if strings.EqualFold(text, pendingScore) {
		return 0, false
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// publicationID pulls the outlet's stable id out of its profile link,
// e.g. "/publication/edge-magazine" -> "edge-magazine". Links without
// a publication path yield "".
func publicationID(href string) string {
	idx := strings.LastIndex(href, publicationPathSegment)
	if idx < 0 {
		return ""
	}
	return strings.Trim(href[idx+len(publicationPathSegment):], "/")
}
