package artifact

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"TimingTerminal/internal/model"
)

// Default artifact location and series keys.
const (
	DefaultPath     = "pipeline/out/chart-data.json"
	DefaultPriceKey = "btcPrice"
	DefaultScoreKey = "lsd"

	// LastUpdatedLayout is second precision UTC with a literal Z.
	LastUpdatedLayout = "2006-01-02T15:04:05Z"
)

// ErrNotFound is returned by Read when no artifact has been written yet.
var ErrNotFound = errors.New("artifact not found")

// TimeValue is one chart sample; Time is unix seconds.
type TimeValue struct {
	Time  int64   `json:"time"`
	Value float64 `json:"value"`
}

// ChartData is the published chart payload.
type ChartData struct {
	PriceKey    string
	ScoreKey    string
	Price       []TimeValue
	Score       []TimeValue
	LastUpdated time.Time
	DataQuality model.DataQuality
	// Strategy names the scorer that produced Score. Omitted when empty.
	Strategy string
}

// Build converts score points into chart series sharing one time axis.
func Build(points []model.ScorePoint, quality model.DataQuality, now time.Time, strategy string) *ChartData {
	cd := &ChartData{
		PriceKey:    DefaultPriceKey,
		ScoreKey:    DefaultScoreKey,
		Price:       make([]TimeValue, 0, len(points)),
		Score:       make([]TimeValue, 0, len(points)),
		LastUpdated: now,
		DataQuality: quality,
		Strategy:    strategy,
	}
	for _, p := range points {
		ts := p.Timestamp.Unix()
		cd.Price = append(cd.Price, TimeValue{Time: ts, Value: p.ReferencePrice})
		cd.Score = append(cd.Score, TimeValue{Time: ts, Value: p.Score})
	}
	return cd
}

// MarshalJSON writes the keys in a fixed order: price, score, lastUpdated,
// dataQuality, strategy.
func (c *ChartData) MarshalJSON() ([]byte, error) {
	priceKey, scoreKey := c.PriceKey, c.ScoreKey
	if priceKey == "" {
		priceKey = DefaultPriceKey
	}
	if scoreKey == "" {
		scoreKey = DefaultScoreKey
	}
	price, score := c.Price, c.Score
	if price == nil {
		price = []TimeValue{}
	}
	if score == nil {
		score = []TimeValue{}
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	fields := []struct {
		key   string
		value any
	}{
		{priceKey, price},
		{scoreKey, score},
		{"lastUpdated", c.LastUpdated.UTC().Format(LastUpdatedLayout)},
		{"dataQuality", c.DataQuality},
	}
	if c.Strategy != "" {
		fields = append(fields, struct {
			key   string
			value any
		}{"strategy", c.Strategy})
	}
	for i, f := range fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(f.key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(f.value)
		if err != nil {
			return nil, fmt.Errorf("marshal %s: %w", f.key, err)
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Write stores the payload at path via a temp file and rename, so readers
// never see a partial document.
func Write(path string, cd *ChartData) error {
	data, err := json.MarshalIndent(cd, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal chart data: %w", err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".chart-data-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace artifact: %w", err)
	}
	return nil
}

// Read returns the raw artifact bytes, or ErrNotFound if the file doesn't exist.
func Read(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return data, nil
}
