package recorder

import (
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"TimingTerminal/internal/model"
)

// Store merges freshly scored points into the ledger.
type Store struct {
	Ledger Ledger
	Log    zerolog.Logger
}

// NewStore creates a Store over the given ledger.
func NewStore(ledger Ledger, log zerolog.Logger) *Store {
	return &Store{Ledger: ledger, Log: log}
}

// Merge upserts points into the ledger and returns the merged history,
// sorted ascending by timestamp with one row per timestamp.
//
// Points without a timestamp are dropped. An existing row is replaced only by
// a new point with the same timestamp. If the stored ledger cannot be read it
// is treated as empty (with a warning) so the new points are still persisted.
func (s *Store) Merge(points []model.ScorePoint) ([]model.HistoryRecord, error) {
	fresh := make([]model.HistoryRecord, 0, len(points))
	dropped := 0
	for _, p := range points {
		if p.Timestamp.IsZero() {
			dropped++
			continue
		}
		fresh = append(fresh, p.Record())
	}
	if dropped > 0 {
		s.Log.Warn().Int("dropped", dropped).Msg("points without timestamp skipped")
	}

	existing, err := s.Ledger.Load()
	if err != nil {
		s.Log.Warn().Err(err).Msg("history ledger unreadable, treating as empty")
		existing = nil
	}

	merged := MergeRecords(existing, fresh)
	if err := s.Ledger.Save(merged); err != nil {
		return nil, fmt.Errorf("save history: %w", err)
	}
	s.Log.Info().
		Int("existing", len(existing)).
		Int("new", len(fresh)).
		Int("total", len(merged)).
		Msg("history merged")
	return merged, nil
}

// Records returns the persisted history.
func (s *Store) Records() ([]model.HistoryRecord, error) {
	records, err := s.Ledger.Load()
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return records, nil
}

// MergeRecords concatenates existing and fresh, keeps the last record seen
// for every timestamp and sorts the result ascending.
func MergeRecords(existing, fresh []model.HistoryRecord) []model.HistoryRecord {
	merged := make([]model.HistoryRecord, 0, len(existing)+len(fresh))
	index := make(map[int64]int, len(existing)+len(fresh))

	add := func(rec model.HistoryRecord) {
		rec.Timestamp = rec.Timestamp.UTC()
		key := rec.Timestamp.UnixNano()
		if i, ok := index[key]; ok {
			merged[i] = rec
			return
		}
		index[key] = len(merged)
		merged = append(merged, rec)
	}
	for _, rec := range existing {
		add(rec)
	}
	for _, rec := range fresh {
		add(rec)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Timestamp.Before(merged[j].Timestamp)
	})
	return merged
}

// Trailing returns the records no older than days before now.
// days <= 0 returns the whole history.
func Trailing(records []model.HistoryRecord, now time.Time, days int) []model.HistoryRecord {
	if days <= 0 {
		out := make([]model.HistoryRecord, len(records))
		copy(out, records)
		return out
	}
	cutoff := now.Add(-time.Duration(days) * 24 * time.Hour)
	out := make([]model.HistoryRecord, 0, len(records))
	for _, rec := range records {
		if !rec.Timestamp.Before(cutoff) {
			out = append(out, rec)
		}
	}
	return out
}
