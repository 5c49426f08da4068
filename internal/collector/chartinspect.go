package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"TimingTerminal/internal/model"
)

// Default ChartInspect endpoints for the LTH metrics.
const (
	DefaultSOPRURL = "https://chartinspect.com/api/charts/onchain/lth-sopr"
	DefaultMVRVURL = "https://chartinspect.com/api/charts/onchain/lth-mvrv?timeframe=all"
)

// ChartInspectProvider implements Provider on top of the ChartInspect chart API.
// Each call hits the network; there is no caching and no retry here.
type ChartInspectProvider struct {
	SOPRURL string
	MVRVURL string
	Client  *http.Client

	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	log     zerolog.Logger
}

// NewChartInspectProvider creates a provider with optional proxy support.
// rps bounds the request rate towards the API.
func NewChartInspectProvider(soprURL, mvrvURL, proxyURL string, rps float64, log zerolog.Logger) *ChartInspectProvider {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if soprURL == "" {
		soprURL = DefaultSOPRURL
	}
	if mvrvURL == "" {
		mvrvURL = DefaultMVRVURL
	}
	if rps <= 0 {
		rps = 1
	}

	p := &ChartInspectProvider{
		SOPRURL: soprURL,
		MVRVURL: mvrvURL,
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		log:     log,
	}
	p.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "chartinspect",
		MaxRequests: 1,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			p.log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("circuit breaker state changed")
		},
	})
	return p
}

func (p *ChartInspectProvider) Name() string { return "chartinspect" }

// ciRow is one element of the "data" array. Depending on the chart it carries
// lth_sopr or lth_mvrv, usually alongside btc_price.
type ciRow struct {
	Date     json.RawMessage `json:"date"`
	LTHSOPR  *float64        `json:"lth_sopr"`
	LTHMVRV  *float64        `json:"lth_mvrv"`
	BTCPrice *float64        `json:"btc_price"`
}

type ciResponse struct {
	Data []ciRow `json:"data"`
}

type ciSeries struct {
	metric []model.SeriesPoint
	price  []model.SeriesPoint
}

// OnChainSeries fetches LTH SOPR and LTH MVRV.
func (p *ChartInspectProvider) OnChainSeries(ctx context.Context) ([]model.SeriesPoint, []model.SeriesPoint, error) {
	sopr, err := p.fetch(ctx, p.SOPRURL, "lth_sopr")
	if err != nil {
		return nil, nil, fmt.Errorf("fetch lth-sopr: %w", err)
	}
	mvrv, err := p.fetch(ctx, p.MVRVURL, "lth_mvrv")
	if err != nil {
		return nil, nil, fmt.Errorf("fetch lth-mvrv: %w", err)
	}
	return sopr.metric, mvrv.metric, nil
}

// PriceSeries returns the BTC price embedded in the MVRV chart, falling back
// to the SOPR chart when the MVRV chart has none.
func (p *ChartInspectProvider) PriceSeries(ctx context.Context) ([]model.SeriesPoint, error) {
	mvrv, err := p.fetch(ctx, p.MVRVURL, "lth_mvrv")
	if err != nil {
		return nil, fmt.Errorf("fetch lth-mvrv: %w", err)
	}
	if len(mvrv.price) > 0 {
		return mvrv.price, nil
	}
	sopr, err := p.fetch(ctx, p.SOPRURL, "lth_sopr")
	if err != nil {
		return nil, fmt.Errorf("fetch lth-sopr: %w", err)
	}
	return sopr.price, nil
}

// AuxiliarySeries returns LTH MVRV as the single auxiliary metric for the
// momentum fallback.
func (p *ChartInspectProvider) AuxiliarySeries(ctx context.Context) ([]model.SeriesPoint, error) {
	mvrv, err := p.fetch(ctx, p.MVRVURL, "lth_mvrv")
	if err != nil {
		return nil, fmt.Errorf("fetch lth-mvrv: %w", err)
	}
	return mvrv.metric, nil
}

// Snapshot downloads each chart exactly once and derives every series from
// those two documents.
func (p *ChartInspectProvider) Snapshot(ctx context.Context) (*Snapshot, error) {
	sopr, err := p.fetch(ctx, p.SOPRURL, "lth_sopr")
	if err != nil {
		return nil, fmt.Errorf("fetch lth-sopr: %w", err)
	}
	mvrv, err := p.fetch(ctx, p.MVRVURL, "lth_mvrv")
	if err != nil {
		return nil, fmt.Errorf("fetch lth-mvrv: %w", err)
	}
	price := mvrv.price
	if len(price) == 0 {
		price = sopr.price
	}
	return &Snapshot{
		Price:     price,
		Auxiliary: mvrv.metric,
		SOPR:      sopr.metric,
		MVRV:      mvrv.metric,
	}, nil
}

func (p *ChartInspectProvider) fetch(ctx context.Context, endpoint, metric string) (*ciSeries, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	body, err := p.breaker.Execute(func() (interface{}, error) {
		return p.get(ctx, endpoint)
	})
	if err != nil {
		return nil, err
	}
	series, err := parseChartInspect(body.([]byte), metric)
	if err != nil {
		return nil, err
	}
	p.log.Info().Str("metric", metric).Int("points", len(series.metric)).Msg("chartinspect series fetched")
	return series, nil
}

func (p *ChartInspectProvider) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("chartinspect fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("chartinspect read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("chartinspect: status %d, body: %s", resp.StatusCode, truncate(body, 256))
	}
	return body, nil
}

func parseChartInspect(body []byte, metric string) (*ciSeries, error) {
	var doc ciResponse
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("chartinspect decode: %w", err)
	}
	if doc.Data == nil {
		return nil, fmt.Errorf("chartinspect: unexpected payload, no data array")
	}

	out := &ciSeries{}
	for _, row := range doc.Data {
		ts, err := parseDate(row.Date)
		if err != nil {
			return nil, err
		}
		var v *float64
		switch metric {
		case "lth_sopr":
			v = row.LTHSOPR
		case "lth_mvrv":
			v = row.LTHMVRV
		}
		if v != nil {
			out.metric = append(out.metric, model.SeriesPoint{Timestamp: ts, Value: *v})
		}
		if row.BTCPrice != nil {
			out.price = append(out.price, model.SeriesPoint{Timestamp: ts, Value: *row.BTCPrice})
		}
	}
	sortPoints(out.metric)
	sortPoints(out.price)
	return out, nil
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseDate accepts unix milliseconds or one of the known date strings.
func parseDate(raw json.RawMessage) (time.Time, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return time.Time{}, fmt.Errorf("chartinspect: row without date")
	}
	if raw[0] != '"' {
		var ms json.Number
		if err := json.Unmarshal(raw, &ms); err != nil {
			return time.Time{}, fmt.Errorf("chartinspect: bad date %s: %w", raw, err)
		}
		n, err := ms.Int64()
		if err != nil {
			f, ferr := ms.Float64()
			if ferr != nil {
				return time.Time{}, fmt.Errorf("chartinspect: bad date %s: %w", raw, err)
			}
			n = int64(f)
		}
		return time.UnixMilli(n).UTC(), nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return time.Time{}, fmt.Errorf("chartinspect: bad date %s: %w", raw, err)
	}
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("chartinspect: unrecognised date %q", s)
}

func sortPoints(pts []model.SeriesPoint) {
	sort.Slice(pts, func(i, j int) bool { return pts[i].Timestamp.Before(pts[j].Timestamp) })
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
