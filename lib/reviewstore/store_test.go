package reviewstore

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func intp(v int) *int           { return &v }
func floatp(v float64) *float64 { return &v }

func testRecords() []ReviewRecord {
	return []ReviewRecord{
		{
			WorkID:            "https://www.metacritic.com/game/hades",
			CriticAggregate:   intp(93),
			OutletName:        "Edge Magazine",
			OutletID:          "edge-magazine",
			OutletScore:       intp(90),
			UserAggregate:     floatp(88),
			CriticReviewCount: intp(32),
			UserReviewCount:   intp(1204),
		},
		{
			WorkID:          "https://www.metacritic.com/game/hades",
			CriticAggregate: intp(93),
			OutletName:      "Unlinked Blog",
			OutletID:        "",
			OutletScore:     intp(100),
			UserAggregate:   floatp(88),
		},
		{
			WorkID:      "https://www.metacritic.com/game/golf-club-wasteland",
			OutletName:  "Nintendo Life",
			OutletID:    "nintendo-life",
			OutletScore: intp(80),
		},
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store := New(filepath.Join(t.TempDir(), "metacritic_db.csv"))

	records := testRecords()
	err := store.Save(records)
	if err != nil {
		t.Fatal(err)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(records, loaded); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}

	// null numerics stayed null
	require.Nil(t, loaded[2].CriticAggregate)
	require.Nil(t, loaded[2].UserAggregate)
	require.Nil(t, loaded[2].CriticReviewCount)
}

func TestLoadMissingFile(t *testing.T) {
	store := New(filepath.Join(t.TempDir(), "does-not-exist.csv"))
	records, err := store.Load()
	if err != nil {
		t.Fatal(err)
	}
	require.Empty(t, records)
}

func TestReplaceForWork(t *testing.T) {
	records := testRecords()
	workA := "https://www.metacritic.com/game/hades"
	workB := "https://www.metacritic.com/game/golf-club-wasteland"

	fresh := []ReviewRecord{
		{
			WorkID:      workA,
			OutletName:  "GameSpot",
			OutletID:    "gamespot",
			OutletScore: intp(80),
		},
	}

	updated := ReplaceForWork(records, workA, fresh)
	require.Len(t, updated, 2)
	require.Equal(t, workB, updated[0].WorkID)
	require.Equal(t, "GameSpot", updated[1].OutletName)
}

func TestReplaceForWorkWithEmptySet(t *testing.T) {
	store := New(filepath.Join(t.TempDir(), "metacritic_db.csv"))
	records := testRecords()
	workA := "https://www.metacritic.com/game/hades"
	workB := "https://www.metacritic.com/game/golf-club-wasteland"

	err := store.Save(ReplaceForWork(records, workA, nil))
	if err != nil {
		t.Fatal(err)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatal(err)
	}
	require.Len(t, loaded, 1)
	require.Equal(t, workB, loaded[0].WorkID)
	require.Equal(t, "Nintendo Life", loaded[0].OutletName)
}

func TestSaveOverwritesPriorContents(t *testing.T) {
	store := New(filepath.Join(t.TempDir(), "metacritic_db.csv"))

	err := store.Save(testRecords())
	if err != nil {
		t.Fatal(err)
	}
	err = store.Save(nil)
	if err != nil {
		t.Fatal(err)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatal(err)
	}
	require.Empty(t, loaded)
}
