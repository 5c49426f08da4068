package recorder

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"TimingTerminal/internal/model"
)

// DefaultCSVPath is where the history lives when nothing else is configured.
const DefaultCSVPath = "data/lsd_history.csv"

var csvHeader = []string{"timestamp", "score", "reference_price"}

// Column names accepted on read. The lsd/btc_price pair is the layout of
// ledgers written by earlier pipeline versions.
var (
	scoreColumns = []string{"score", "lsd", "phase_score"}
	priceColumns = []string{"reference_price", "btc_price"}
)

// Timestamp layouts accepted on read: RFC 3339 (what Save writes) and the
// space-separated form with offset that earlier ledgers used.
var csvTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// rename is swapped in tests to simulate a failing replace.
var rename = os.Rename

// CSVLedger stores the history as a CSV file with a header row.
type CSVLedger struct {
	Path string
}

func NewCSVLedger(path string) *CSVLedger {
	if path == "" {
		path = DefaultCSVPath
	}
	return &CSVLedger{Path: path}
}

// Load reads the ledger. A missing file is an empty ledger. A file that
// cannot be parsed is moved aside to <path>.corrupt-<unix> before the error
// is returned, so the next Save never overwrites it.
func (l *CSVLedger) Load() ([]model.HistoryRecord, error) {
	f, err := os.Open(l.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	records, parseErr := parseCSV(f)
	f.Close()
	if parseErr == nil {
		return records, nil
	}

	quarantine := fmt.Sprintf("%s.corrupt-%d", l.Path, time.Now().Unix())
	if err := os.Rename(l.Path, quarantine); err != nil {
		return nil, fmt.Errorf("%w (quarantine failed: %v)", parseErr, err)
	}
	return nil, fmt.Errorf("%w (moved to %s)", parseErr, quarantine)
}

func columnIndex(header []string, names []string) int {
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(h))
		for _, n := range names {
			if h == n {
				return i
			}
		}
	}
	return -1
}

func parseCSVTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range csvTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

func parseCSV(r io.Reader) ([]model.HistoryRecord, error) {
	rows, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	if len(rows) == 0 {
		return nil, errors.New("read ledger: missing header")
	}
	header := rows[0]
	tsCol := columnIndex(header, []string{"timestamp"})
	scoreCol := columnIndex(header, scoreColumns)
	priceCol := columnIndex(header, priceColumns)
	if tsCol < 0 || scoreCol < 0 || priceCol < 0 {
		return nil, fmt.Errorf("read ledger: unexpected header %v", header)
	}

	records := make([]model.HistoryRecord, 0, len(rows)-1)
	for n, row := range rows[1:] {
		ts, err := parseCSVTime(row[tsCol])
		if err != nil {
			return nil, fmt.Errorf("read ledger row %d: timestamp: %w", n+1, err)
		}
		score, err := strconv.ParseFloat(strings.TrimSpace(row[scoreCol]), 64)
		if err != nil {
			return nil, fmt.Errorf("read ledger row %d: score: %w", n+1, err)
		}
		price, err := strconv.ParseFloat(strings.TrimSpace(row[priceCol]), 64)
		if err != nil {
			return nil, fmt.Errorf("read ledger row %d: reference_price: %w", n+1, err)
		}
		records = append(records, model.HistoryRecord{
			Timestamp:      ts,
			Score:          score,
			ReferencePrice: price,
		})
	}
	return records, nil
}

// Save writes the ledger to a temporary file next to Path and renames it into place.
func (l *CSVLedger) Save(records []model.HistoryRecord) error {
	dir := filepath.Dir(l.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create ledger dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(l.Path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp ledger: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	w := csv.NewWriter(tmp)
	if err := w.Write(csvHeader); err != nil {
		tmp.Close()
		return fmt.Errorf("write ledger header: %w", err)
	}
	for _, rec := range records {
		row := []string{
			rec.Timestamp.UTC().Format(time.RFC3339Nano),
			strconv.FormatFloat(rec.Score, 'g', -1, 64),
			strconv.FormatFloat(rec.ReferencePrice, 'g', -1, 64),
		}
		if err := w.Write(row); err != nil {
			tmp.Close()
			return fmt.Errorf("write ledger row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("flush ledger: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync ledger: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp ledger: %w", err)
	}
	if err := rename(tmpName, l.Path); err != nil {
		return fmt.Errorf("replace ledger: %w", err)
	}
	return nil
}

func (l *CSVLedger) Close() error { return nil }
