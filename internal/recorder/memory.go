package recorder

import "TimingTerminal/internal/model"

// MemoryLedger keeps the history in memory. Used for dry runs and tests.
// LoadErr and SaveErr, when set, are returned by Load and Save.
type MemoryLedger struct {
	Records []model.HistoryRecord
	Saves   int
	LoadErr error
	SaveErr error
}

func NewMemoryLedger() *MemoryLedger { return &MemoryLedger{} }

func (m *MemoryLedger) Load() ([]model.HistoryRecord, error) {
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	out := make([]model.HistoryRecord, len(m.Records))
	copy(out, m.Records)
	return out, nil
}

func (m *MemoryLedger) Save(records []model.HistoryRecord) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.Records = make([]model.HistoryRecord, len(records))
	copy(m.Records, records)
	m.Saves++
	return nil
}

func (m *MemoryLedger) Close() error { return nil }
