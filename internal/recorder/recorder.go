package recorder

import (
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"TimingTerminal/internal/model"
)

// Ledger is a durable medium for the score history. Save replaces the whole
// ledger; a reader sees either the previous or the new content, never a mix.
type Ledger interface {
	Load() ([]model.HistoryRecord, error)
	Save(records []model.HistoryRecord) error
	Close() error
}

// OpenLedger picks the medium from the path extension: SQLite for
// .db, .sqlite and .sqlite3, CSV otherwise.
func OpenLedger(path string, log zerolog.Logger) (Ledger, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return NewSQLiteLedger(path, log)
	default:
		return NewCSVLedger(path), nil
	}
}
