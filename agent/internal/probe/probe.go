package probe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

const defaultTimeout = 10 * time.Second

// Metric families exported by tidepool-server.
const (
	metricProduced  = "tidepool_items_produced_total"
	metricConsumed  = "tidepool_items_consumed_total"
	metricExpired   = "tidepool_items_expired_total"
	metricItems     = "tidepool_container_items"
	metricThreshold = "tidepool_container_threshold"
)

// Reading is one scrape of the server's container metrics. Counters are raw
// totals since server start.
type Reading struct {
	Items     float64
	Threshold float64
	Produced  float64
	Consumed  float64
	Expired   float64
	ScrapedAt time.Time
}

// Stacking reports whether the container was at or above its threshold,
// i.e. consumes were removing the newest item.
func (r Reading) Stacking() bool {
	return r.Threshold > 0 && r.Items >= r.Threshold
}

// Probe fetches Readings from a single metrics URL.
type Probe struct {
	url    string
	client *http.Client
}

// New returns a Probe for url using a client with a bounded timeout.
func New(url string) *Probe {
	return &Probe{
		url:    url,
		client: &http.Client{Timeout: defaultTimeout},
	}
}

// Read scrapes the endpoint once.
func (p *Probe) Read(ctx context.Context) (Reading, error) {
	mfs, err := fetchMetrics(ctx, p.client, p.url)
	if err != nil {
		return Reading{}, fmt.Errorf("probe %s: %w", p.url, err)
	}
	return Reading{
		Items:     sumFamily(mfs[metricItems]),
		Threshold: sumFamily(mfs[metricThreshold]),
		Produced:  sumFamily(mfs[metricProduced]),
		Consumed:  sumFamily(mfs[metricConsumed]),
		Expired:   sumFamily(mfs[metricExpired]),
		ScrapedAt: time.Now().UTC(),
	}, nil
}

func fetchMetrics(ctx context.Context, client *http.Client, url string) (map[string]*dto.MetricFamily, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", string(expfmt.NewFormat(expfmt.TypeTextPlain)))

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return parseMetrics(resp.Body)
}

// parseMetrics decodes a text exposition. A partial parse with at least one
// family is accepted.
func parseMetrics(r io.Reader) (map[string]*dto.MetricFamily, error) {
	var parser expfmt.TextParser
	mfs, err := parser.TextToMetricFamilies(r)
	if err != nil && len(mfs) == 0 {
		return nil, fmt.Errorf("parse prometheus text: %w", err)
	}
	return mfs, nil
}

// sumFamily adds every counter, gauge or untyped sample in mf across label
// sets. A missing family sums to 0.
func sumFamily(mf *dto.MetricFamily) float64 {
	if mf == nil {
		return 0
	}
	var total float64
	for _, m := range mf.GetMetric() {
		switch {
		case m.Counter != nil:
			total += m.Counter.GetValue()
		case m.Gauge != nil:
			total += m.Gauge.GetValue()
		case m.Untyped != nil:
			total += m.Untyped.GetValue()
		}
	}
	return total
}
