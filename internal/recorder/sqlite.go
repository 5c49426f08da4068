package recorder

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"TimingTerminal/internal/model"
)

// SQLiteLedger persists the history to a SQLite database.
// Timestamps are stored as UTC unix nanoseconds.
type SQLiteLedger struct {
	db   *sqlx.DB
	path string
	log  zerolog.Logger
	mu   sync.Mutex
}

type sqliteRow struct {
	Timestamp      int64   `db:"timestamp"`
	Score          float64 `db:"score"`
	ReferencePrice float64 `db:"reference_price"`
}

// NewSQLiteLedger opens (or creates) the database and runs migrations.
// A file that is not a usable database is moved aside to
// <path>.corrupt-<unix> and a fresh database is created in its place.
func NewSQLiteLedger(dbPath string, log zerolog.Logger) (*SQLiteLedger, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create ledger dir: %w", err)
	}

	l := &SQLiteLedger{path: dbPath, log: log}
	err := l.open()
	if err == nil {
		return l, nil
	}

	if _, statErr := os.Stat(dbPath); statErr != nil {
		return nil, err
	}
	quarantine := fmt.Sprintf("%s.corrupt-%d", dbPath, time.Now().Unix())
	log.Warn().Err(err).Str("path", dbPath).Str("moved_to", quarantine).
		Msg("sqlite ledger unusable, starting a fresh one")
	if renameErr := os.Rename(dbPath, quarantine); renameErr != nil {
		return nil, fmt.Errorf("quarantine ledger: %w (open: %v)", renameErr, err)
	}
	if err := l.open(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *SQLiteLedger) open() error {
	db, err := sqlx.Open("sqlite", l.path)
	if err != nil {
		return fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return fmt.Errorf("set WAL mode: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return fmt.Errorf("migrate: %w", err)
	}
	l.db = db
	l.log.Debug().Str("path", l.path).Msg("sqlite ledger opened")
	return nil
}

func migrate(db *sqlx.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS score_history (
			timestamp       INTEGER PRIMARY KEY,
			score           REAL NOT NULL,
			reference_price REAL NOT NULL
		)`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (l *SQLiteLedger) Load() ([]model.HistoryRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var rows []sqliteRow
	if err := l.db.Select(&rows, `SELECT timestamp, score, reference_price
		FROM score_history ORDER BY timestamp`); err != nil {
		return nil, fmt.Errorf("select history: %w", err)
	}
	records := make([]model.HistoryRecord, len(rows))
	for i, r := range rows {
		records[i] = model.HistoryRecord{
			Timestamp:      time.Unix(0, r.Timestamp).UTC(),
			Score:          r.Score,
			ReferencePrice: r.ReferencePrice,
		}
	}
	return records, nil
}

// Save replaces the table content inside a single transaction.
func (l *SQLiteLedger) Save(records []model.HistoryRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	tx, err := l.db.Beginx()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() // no-op after commit

	if _, err := tx.Exec(`DELETE FROM score_history`); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	stmt, err := tx.Preparex(`INSERT INTO score_history (timestamp, score, reference_price) VALUES (?,?,?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		if _, err := stmt.Exec(rec.Timestamp.UTC().UnixNano(), rec.Score, rec.ReferencePrice); err != nil {
			return fmt.Errorf("insert %s: %w", rec.Timestamp.Format(time.RFC3339), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (l *SQLiteLedger) Close() error {
	l.log.Debug().Str("path", l.path).Msg("closing sqlite ledger")
	return l.db.Close()
}
