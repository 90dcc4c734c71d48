package metacritic

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeFeed grows by a scripted amount per round, then stalls.
type fakeFeed struct {
	growth  []int
	round   int
	visible int
	settled int
	err     error
}

func (f *fakeFeed) VisibleReviews() int {
	return f.visible
}

func (f *fakeFeed) LoadMore() error {
	if f.err != nil {
		return f.err
	}
	if f.round < len(f.growth) {
		f.visible += f.growth[f.round]
	}
	f.round++
	return nil
}

func (f *fakeFeed) Settle() {
	f.settled++
}

func TestStabilizeReachesFixedPoint(t *testing.T) {
	feed := &fakeFeed{growth: []int{24, 24, 12}}

	err := Stabilize(feed, 3)
	if err != nil {
		t.Fatal(err)
	}

	require.Equal(t, 60, feed.VisibleReviews())
	// three growing rounds plus three consecutive still rounds
	require.Equal(t, 6, feed.round)
	require.Equal(t, feed.round, feed.settled)
}

func TestStabilizeEmptyFeed(t *testing.T) {
	feed := &fakeFeed{}

	err := Stabilize(feed, 3)
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, 0, feed.VisibleReviews())
	require.Equal(t, 3, feed.round)
}

func TestStabilizePropagatesLoadError(t *testing.T) {
	wantErr := errors.New("listing unavailable")
	feed := &fakeFeed{err: wantErr}

	err := Stabilize(feed, 3)
	require.ErrorIs(t, err, wantErr)
}

func TestRetryPolicy(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 3, Delay: time.Second * 3}
	fetchErr := errors.New("timeout")

	delay, retry := policy.Next(1, fetchErr)
	require.True(t, retry)
	require.Equal(t, time.Second*3, delay)

	_, retry = policy.Next(2, fetchErr)
	require.True(t, retry)

	// attempts exhausted
	_, retry = policy.Next(3, fetchErr)
	require.False(t, retry)

	// nothing failed, nothing to retry
	_, retry = policy.Next(1, nil)
	require.False(t, retry)
}
