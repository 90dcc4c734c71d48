// Package bias turns stored review records into per-outlet rating
// bias statistics. Bias is always outlet score minus aggregate score,
// so positive means the outlet rates more generously than the
// consensus and negative means it rates harsher.
package bias

import (
	"math"
	"sort"

	"metabias/lib/reviewstore"
)

// per-outlet bias distribution statistics, recomputed fresh on every
// aggregation pass. In absolute mode the means and medians describe
// |diff| distributions while the standard deviations always describe
// the signed ones.
type OutletSummary struct {
	OutletID    string
	OutletName  string
	ReviewCount int

	CriticMean   float64
	CriticMedian float64
	CriticStdDev float64

	// audience stats exist only for outlets with at least one review
	// of a work that has a numeric audience aggregate
	HasAudience    bool
	AudienceMean   float64
	AudienceMedian float64
	AudienceStdDev float64
}

// statistics of statistics: mean and spread of the per-outlet mean
// diffs, not of the raw per-review diffs.
type GlobalSummary struct {
	OutletCount int
	ReviewCount int

	CriticMean   float64
	CriticStdDev float64

	AudienceOutletCount int
	AudienceMean        float64
	AudienceStdDev      float64
}

type groupAccumulator struct {
	name          string
	criticDiffs   []float64
	audienceDiffs []float64
}

// Aggregate groups the usable records by outlet id and computes
// signed bias distributions against the critic and audience
// aggregates. Outlets are ordered by review count descending.
func Aggregate(records []reviewstore.ReviewRecord) ([]OutletSummary, GlobalSummary) {
	return aggregate(records, false)
}

// AggregateAbsolute is the magnitude variant: per-outlet means and
// medians are computed over |diff| instead of the signed diff.
func AggregateAbsolute(records []reviewstore.ReviewRecord) ([]OutletSummary, GlobalSummary) {
	return aggregate(records, true)
}

func aggregate(records []reviewstore.ReviewRecord, absolute bool) ([]OutletSummary, GlobalSummary) {
	groups := map[string]*groupAccumulator{}
	var order []string

	for _, r := range records {
		// records without an outlet id are stored but never
		// aggregated; without both scores there is no diff
		if r.OutletID == "" || r.OutletScore == nil || r.CriticAggregate == nil {
			continue
		}

		acc := groups[r.OutletID]
		if acc == nil {
			acc = &groupAccumulator{name: r.OutletName}
			groups[r.OutletID] = acc
			order = append(order, r.OutletID)
		}

		score := float64(*r.OutletScore)
		acc.criticDiffs = append(acc.criticDiffs, score-float64(*r.CriticAggregate))
		if r.UserAggregate != nil {
			acc.audienceDiffs = append(acc.audienceDiffs, score-*r.UserAggregate)
		}
	}

	summaries := make([]OutletSummary, 0, len(order))
	for _, id := range order {
		acc := groups[id]
		if len(acc.criticDiffs) == 0 {
			continue
		}

		s := OutletSummary{
			OutletID:     id,
			OutletName:   acc.name,
			ReviewCount:  len(acc.criticDiffs),
			CriticMean:   mean(maybeAbs(acc.criticDiffs, absolute)),
			CriticMedian: median(maybeAbs(acc.criticDiffs, absolute)),
			CriticStdDev: stdDev(acc.criticDiffs),
		}
		if len(acc.audienceDiffs) > 0 {
			s.HasAudience = true
			s.AudienceMean = mean(maybeAbs(acc.audienceDiffs, absolute))
			s.AudienceMedian = median(maybeAbs(acc.audienceDiffs, absolute))
			s.AudienceStdDev = stdDev(acc.audienceDiffs)
		}
		summaries = append(summaries, s)
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].ReviewCount > summaries[j].ReviewCount
	})

	return summaries, globalSummary(summaries)
}

func globalSummary(summaries []OutletSummary) GlobalSummary {
	var g GlobalSummary
	g.OutletCount = len(summaries)

	var criticMeans, audienceMeans []float64
	for _, s := range summaries {
		g.ReviewCount += s.ReviewCount
		criticMeans = append(criticMeans, s.CriticMean)
		if s.HasAudience {
			audienceMeans = append(audienceMeans, s.AudienceMean)
		}
	}

	if len(criticMeans) > 0 {
		g.CriticMean = mean(criticMeans)
		g.CriticStdDev = stdDev(criticMeans)
	}
	g.AudienceOutletCount = len(audienceMeans)
	if len(audienceMeans) > 0 {
		g.AudienceMean = mean(audienceMeans)
		g.AudienceStdDev = stdDev(audienceMeans)
	}
	return g
}

// ExtremeThreshold computes the 90th-percentile magnitude of the
// per-outlet mean audience diffs: absolute means sorted descending,
// value at index floor(n*0.1) clamped to the last index. The second
// return is false when no outlet has audience statistics.
func ExtremeThreshold(summaries []OutletSummary) (float64, bool) {
	var magnitudes []float64
	for _, s := range summaries {
		if s.HasAudience {
			magnitudes = append(magnitudes, math.Abs(s.AudienceMean))
		}
	}
	if len(magnitudes) == 0 {
		return 0, false
	}

	sort.Sort(sort.Reverse(sort.Float64Slice(magnitudes)))
	idx := int(float64(len(magnitudes)) * 0.1)
	if idx > len(magnitudes)-1 {
		idx = len(magnitudes) - 1
	}
	return magnitudes[idx], true
}

// IsExtreme reports whether the outlet's audience bias magnitude
// reaches the threshold.
func IsExtreme(s OutletSummary, threshold float64) bool {
	return s.HasAudience && math.Abs(s.AudienceMean) >= threshold
}

// TopExtreme keeps the outlets whose audience bias reaches the
// threshold and whose sample is large enough to take seriously.
func TopExtreme(summaries []OutletSummary, threshold float64, minReviews int) []OutletSummary {
	var out []OutletSummary
	for _, s := range summaries {
		if s.ReviewCount > minReviews && IsExtreme(s, threshold) {
			out = append(out, s)
		}
	}
	return out
}

// RankByAudienceBias drops the bottom fifth of outlets by review
// count, then returns up to limit outlets ordered by audience bias
// magnitude descending.
func RankByAudienceBias(summaries []OutletSummary, limit int) []OutletSummary {
	kept := dropLowVolume(summaries)

	var out []OutletSummary
	for _, s := range kept {
		if s.HasAudience {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return math.Abs(out[i].AudienceMean) > math.Abs(out[j].AudienceMean)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// RankByVolatility returns up to limit outlets ordered by the spread
// of their audience diffs, with no review-count floor.
func RankByVolatility(summaries []OutletSummary, limit int) []OutletSummary {
	var out []OutletSummary
	for _, s := range summaries {
		if s.HasAudience {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].AudienceStdDev > out[j].AudienceStdDev
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func dropLowVolume(summaries []OutletSummary) []OutletSummary {
	cut := len(summaries) / 5
	if cut == 0 {
		return summaries
	}

	byCount := append([]OutletSummary(nil), summaries...)
	sort.SliceStable(byCount, func(i, j int) bool {
		return byCount[i].ReviewCount < byCount[j].ReviewCount
	})
	excluded := map[string]bool{}
	for _, s := range byCount[:cut] {
		excluded[s.OutletID] = true
	}

	var kept []OutletSummary
	for _, s := range summaries {
		if !excluded[s.OutletID] {
			kept = append(kept, s)
		}
	}
	return kept
}

func maybeAbs(values []float64, absolute bool) []float64 {
	if !absolute {
		return values
	}
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = math.Abs(v)
	}
	return out
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// sample standard deviation; fewer than two points have no spread
func stdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	m := mean(values)
	sum := 0.0
	for _, v := range values {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)-1))
}
