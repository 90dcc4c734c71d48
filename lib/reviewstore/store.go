// Package reviewstore persists extracted review records as a flat csv
// table. The file is the single source of truth between runs: it is
// loaded whole, updated by replacing every row of a work, and written
// back whole.
package reviewstore

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// one row per outlet review of one work. Work-level fields (critic
// aggregate, user aggregate, review counts) are copied onto every row
// of the same work during extraction. Nil numeric fields serialize as
// empty cells and come back nil on load.
type ReviewRecord struct {
	WorkID            string
	CriticAggregate   *int
	OutletName        string
	OutletID          string
	OutletScore       *int
	UserAggregate     *float64
	CriticReviewCount *int
	UserReviewCount   *int
}

var columns = []string{
	"link", "metascore", "outlet", "outlet_id", "outlet_score",
	"user_score", "review_count_outlets", "review_count_users",
}

type Store struct {
	path string
}

func New(path string) Store {
	return Store{path: path}
}

func (s Store) Path() string {
	return s.path
}

// Load reads the whole table. A store file that does not exist yet is
// valid initial state and loads as an empty table.
func (s Store) Load() ([]ReviewRecord, error) {
	f, err := os.Open(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	if len(rows) <= 1 {
		return nil, nil
	}

	records := make([]ReviewRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if len(row) < len(columns) {
			continue
		}
		records = append(records, ReviewRecord{
			WorkID:            row[0],
			CriticAggregate:   parseIntCell(row[1]),
			OutletName:        row[2],
			OutletID:          row[3],
			OutletScore:       parseIntCell(row[4]),
			UserAggregate:     parseFloatCell(row[5]),
			CriticReviewCount: parseIntCell(row[6]),
			UserReviewCount:   parseIntCell(row[7]),
		})
	}
	return records, nil
}

// Save rewrites the whole table. The rows are first written to a
// temporary file next to the target and renamed over it once flushed,
// so a crash mid-write never leaves a truncated store behind.
func (s Store) Save(records []ReviewRecord) error {
	dir := filepath.Dir(s.path)
	f, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(f.Name())

	writer := csv.NewWriter(f)
	if err := writer.Write(columns); err != nil {
		f.Close()
		return err
	}
	for _, r := range records {
		row := []string{
			r.WorkID,
			intCell(r.CriticAggregate),
			r.OutletName,
			r.OutletID,
			intCell(r.OutletScore),
			floatCell(r.UserAggregate),
			intCell(r.CriticReviewCount),
			intCell(r.UserReviewCount),
		}
		if err := writer.Write(row); err != nil {
			f.Close()
			return err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), s.path)
}

// ReplaceForWork drops every record of the given work and appends the
// fresh set. Re-ingesting a work is a full replace by key, never a
// merge by outlet.
func ReplaceForWork(records []ReviewRecord, workID string, fresh []ReviewRecord) []ReviewRecord {
	out := make([]ReviewRecord, 0, len(records)+len(fresh))
	for _, r := range records {
		if r.WorkID != workID {
			out = append(out, r)
		}
	}
	return append(out, fresh...)
}

func parseIntCell(cell string) *int {
	n, err := strconv.Atoi(cell)
	if err != nil {
		return nil
	}
	return &n
}

func parseFloatCell(cell string) *float64 {
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return nil
	}
	return &v
}

func intCell(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func floatCell(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
