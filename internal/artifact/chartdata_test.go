package artifact

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TimingTerminal/internal/model"
)

func samplePoints() []model.ScorePoint {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	prices := []float64{40000, 42000, 45000, 43000}
	scores := []float64{10, 30, 70, 85}
	out := make([]model.ScorePoint, len(prices))
	for i := range prices {
		out[i] = model.ScorePoint{
			Timestamp:      base.AddDate(0, 0, i),
			ReferencePrice: prices[i],
			Score:          scores[i],
		}
	}
	return out
}

func TestBuild_SharedTimeAxis(t *testing.T) {
	cd := Build(samplePoints(), model.QualityComplete, time.Now(), "momentum")
	require.Len(t, cd.Price, 4)
	require.Len(t, cd.Score, 4)
	for i := range cd.Price {
		assert.Equal(t, cd.Price[i].Time, cd.Score[i].Time)
	}
	assert.Equal(t, int64(1704067200), cd.Price[0].Time)
	assert.Equal(t, 85.0, cd.Score[3].Value)
}

func TestMarshalJSON_KeysAndOrder(t *testing.T) {
	now := time.Date(2024, 1, 5, 12, 30, 45, 999_000_000, time.FixedZone("CET", 3600))
	cd := Build(samplePoints(), model.QualityPartial, now, "")

	data, err := json.Marshal(cd)
	require.NoError(t, err)
	s := string(data)

	assert.True(t, strings.HasPrefix(s, `{"btcPrice":[`))
	assert.Less(t, strings.Index(s, `"lsd"`), strings.Index(s, `"lastUpdated"`))
	assert.Contains(t, s, `"lastUpdated":"2024-01-05T11:30:45Z"`)
	assert.Contains(t, s, `"dataQuality":"partial"`)
	assert.NotContains(t, s, "strategy")

	var decoded map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Len(t, decoded, 4)
}

func TestMarshalJSON_CustomKeysAndEmpty(t *testing.T) {
	cd := &ChartData{PriceKey: "price", ScoreKey: "phase", DataQuality: model.QualityStale, Strategy: "lsd"}
	data, err := json.Marshal(cd)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, []any{}, decoded["price"])
	assert.Equal(t, []any{}, decoded["phase"])
	assert.Equal(t, "stale", decoded["dataQuality"])
	assert.Equal(t, "lsd", decoded["strategy"])
}

func TestWriteAndRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "chart-data.json")

	_, err := Read(path)
	assert.ErrorIs(t, err, ErrNotFound)

	cd := Build(samplePoints(), model.QualityComplete, time.Now(), "momentum")
	require.NoError(t, Write(path, cd))

	data, err := Read(path)
	require.NoError(t, err)

	var decoded struct {
		BTCPrice    []TimeValue `json:"btcPrice"`
		LSD         []TimeValue `json:"lsd"`
		LastUpdated string      `json:"lastUpdated"`
		DataQuality string      `json:"dataQuality"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Len(t, decoded.BTCPrice, 4)
	assert.Len(t, decoded.LSD, 4)
	assert.Regexp(t, regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}Z$`), decoded.LastUpdated)
	assert.Equal(t, "complete", decoded.DataQuality)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file must not be left behind")
}
