package collector

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	soprBody = `{"data":[
		{"date": 1704153600000, "lth_sopr": 1.1, "btc_price": 42000},
		{"date": 1704067200000, "lth_sopr": 1.0, "btc_price": 40000},
		{"date": 1704240000000, "lth_sopr": 1.2, "btc_price": 45000}
	]}`
	mvrvBody = `{"data":[
		{"date": "2024-01-01", "lth_mvrv": 2.0},
		{"date": "2024-01-02T00:00:00Z", "lth_mvrv": 2.1},
		{"date": "2024-01-03 00:00:00", "lth_mvrv": null}
	]}`
)

func newTestServer(t *testing.T, mvrv string) (*httptest.Server, *int) {
	t.Helper()
	hits := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/sopr", func(w http.ResponseWriter, _ *http.Request) {
		hits++
		fmt.Fprint(w, soprBody)
	})
	mux.HandleFunc("/mvrv", func(w http.ResponseWriter, _ *http.Request) {
		hits++
		fmt.Fprint(w, mvrv)
	})
	mux.HandleFunc("/broken", func(w http.ResponseWriter, _ *http.Request) {
		hits++
		w.WriteHeader(http.StatusBadGateway)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestChartInspect_OnChainSeries(t *testing.T) {
	srv, _ := newTestServer(t, mvrvBody)
	p := NewChartInspectProvider(srv.URL+"/sopr", srv.URL+"/mvrv", "", 1000, zerolog.Nop())

	sopr, mvrv, err := p.OnChainSeries(context.Background())
	require.NoError(t, err)
	require.Len(t, sopr, 3)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), sopr[0].Timestamp)
	assert.Equal(t, []float64{1.0, 1.1, 1.2}, []float64{sopr[0].Value, sopr[1].Value, sopr[2].Value})

	require.Len(t, mvrv, 2)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), mvrv[1].Timestamp)
}

func TestChartInspect_PriceFallsBackToSOPR(t *testing.T) {
	srv, _ := newTestServer(t, mvrvBody)
	p := NewChartInspectProvider(srv.URL+"/sopr", srv.URL+"/mvrv", "", 1000, zerolog.Nop())

	price, err := p.PriceSeries(context.Background())
	require.NoError(t, err)
	require.Len(t, price, 3)
	assert.Equal(t, 40000.0, price[0].Value)
}

func TestChartInspect_CollectAligns(t *testing.T) {
	srv, _ := newTestServer(t, mvrvBody)
	p := NewChartInspectProvider(srv.URL+"/sopr", srv.URL+"/mvrv", "", 1000, zerolog.Nop())

	in, err := NewCollector(p, zerolog.Nop()).Collect(context.Background())
	require.NoError(t, err)
	assert.True(t, in.HasOnChain())
	assert.Equal(t, 2, in.Len())
	assert.Equal(t, []float64{40000, 42000}, in.Price)
	assert.Equal(t, []float64{2.0, 2.1}, in.MVRV)
}

func TestChartInspect_CollectDownloadsEachChartOnce(t *testing.T) {
	// An MVRV chart without prices needs the SOPR price; without values it needs the momentum path.
	cases := []struct {
		name string
		mvrv string
	}{
		{"on-chain", `{"data":[{"date":"2024-01-01","lth_mvrv":2.0,"btc_price":40000}]}`},
		{"price fallback", mvrvBody},
		{"no mvrv", `{"data":[]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var soprHits, mvrvHits atomic.Int32
			mux := http.NewServeMux()
			mux.HandleFunc("/sopr", func(w http.ResponseWriter, _ *http.Request) {
				soprHits.Add(1)
				fmt.Fprint(w, soprBody)
			})
			mux.HandleFunc("/mvrv", func(w http.ResponseWriter, _ *http.Request) {
				mvrvHits.Add(1)
				fmt.Fprint(w, tc.mvrv)
			})
			srv := httptest.NewServer(mux)
			t.Cleanup(srv.Close)

			p := NewChartInspectProvider(srv.URL+"/sopr", srv.URL+"/mvrv", "", 1000, zerolog.Nop())
			in, err := NewCollector(p, zerolog.Nop()).Collect(context.Background())
			require.NoError(t, err)
			assert.Positive(t, in.Len())
			assert.Equal(t, int32(1), soprHits.Load())
			assert.Equal(t, int32(1), mvrvHits.Load())
		})
	}
}

func TestChartInspect_SnapshotPriceFallback(t *testing.T) {
	srv, hits := newTestServer(t, mvrvBody)
	p := NewChartInspectProvider(srv.URL+"/sopr", srv.URL+"/mvrv", "", 1000, zerolog.Nop())

	snap, err := p.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, *hits)
	require.Len(t, snap.Price, 3)
	assert.Equal(t, 40000.0, snap.Price[0].Value)
	assert.Len(t, snap.SOPR, 3)
	assert.Len(t, snap.MVRV, 2)
	assert.Equal(t, snap.MVRV, snap.Auxiliary)
}

func TestChartInspect_HTTPErrorTripsBreaker(t *testing.T) {
	srv, hits := newTestServer(t, mvrvBody)
	p := NewChartInspectProvider(srv.URL+"/broken", srv.URL+"/mvrv", "", 1000, zerolog.Nop())

	for i := 0; i < 3; i++ {
		_, _, err := p.OnChainSeries(context.Background())
		assert.ErrorContains(t, err, "status 502")
	}
	_, _, err := p.OnChainSeries(context.Background())
	assert.ErrorContains(t, err, "circuit breaker is open")
	assert.Equal(t, 3, *hits)
}

func TestParseChartInspect_Errors(t *testing.T) {
	_, err := parseChartInspect([]byte(`not json`), "lth_sopr")
	assert.ErrorContains(t, err, "decode")

	_, err = parseChartInspect([]byte(`{"rows":[]}`), "lth_sopr")
	assert.ErrorContains(t, err, "no data array")

	_, err = parseChartInspect([]byte(`{"data":[{"date":"yesterday","lth_sopr":1}]}`), "lth_sopr")
	assert.ErrorContains(t, err, "unrecognised date")

	_, err = parseChartInspect([]byte(`{"data":[{"lth_sopr":1}]}`), "lth_sopr")
	assert.ErrorContains(t, err, "without date")
}

func TestParseDate(t *testing.T) {
	want := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, raw := range []string{`1704067200000`, `1704067200000.0`, `"2024-01-01"`, `"2024-01-01T00:00:00"`, `"2024-01-01T01:00:00+01:00"`} {
		got, err := parseDate([]byte(raw))
		require.NoError(t, err, raw)
		assert.True(t, want.Equal(got), raw)
	}
}
