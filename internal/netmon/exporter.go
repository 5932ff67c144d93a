package netmon

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

const defaultProbeTimeout = 10 * time.Second

// Metric families the link exporter is expected to expose. The shape
// follows the usual router/modem exporter convention: link_up is a 0/1
// gauge, the labeled families are one-hot (the active label carries 1).
const (
	metricLinkUp         = "link_up"
	metricLinkMedium     = "link_medium"
	metricLinkGeneration = "link_cellular_generation"
)

// ExporterProber derives connectivity snapshots from a Prometheus
// exposition endpoint, typically a router or modem-manager exporter on
// the local network.
type ExporterProber struct {
	url    string
	client *http.Client
}

// NewExporterProber builds a prober for the exporter at url. A zero
// timeout selects the default.
func NewExporterProber(url string, timeout time.Duration) *ExporterProber {
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	return &ExporterProber{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// Probe scrapes the exporter once and derives a Snapshot.
//
// A missing link_medium family yields MediumUnknown rather than an
// error: the exporter answered, it just has nothing to say about the
// transport. Transport and parse failures are returned as errors.
func (p *ExporterProber) Probe(ctx context.Context) (Snapshot, error) {
	mfs, err := fetchMetrics(ctx, p.client, p.url)
	if err != nil {
		return Snapshot{}, fmt.Errorf("netmon: probe %s: %w", p.url, err)
	}

	snap := Snapshot{
		Connected: sumFamily(mfs[metricLinkUp]) > 0,
		Medium:    ParseMedium(activeLabel(mfs[metricLinkMedium], "medium")),
	}
	if snap.Medium == MediumCellular {
		snap.Generation = ParseGeneration(activeLabel(mfs[metricLinkGeneration], "generation"))
	}
	return snap, nil
}

// fetchMetrics performs an HTTP GET to url and returns parsed metric families.
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

// parseMetrics decodes a Prometheus text exposition from r into metric
// families. A partial result with a non-fatal parse warning is still
// returned successfully.
func parseMetrics(r io.Reader) (map[string]*dto.MetricFamily, error) {
	var parser expfmt.TextParser
	mfs, err := parser.TextToMetricFamilies(r)
	if err != nil && len(mfs) == 0 {
		return nil, fmt.Errorf("parse prometheus text: %w", err)
	}
	return mfs, nil
}

// sumFamily adds up all counter, gauge, or untyped values in a
// MetricFamily. Returns 0 if mf is nil (metric not present).
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

// activeLabel returns the value of label name on the sample carrying the
// highest value in mf. For the one-hot families the exporter publishes
// this is the sample set to 1; an all-zero family returns "".
func activeLabel(mf *dto.MetricFamily, name string) string {
	if mf == nil {
		return ""
	}
	var (
		best    string
		bestVal float64
	)
	for _, m := range mf.GetMetric() {
		var val float64
		switch {
		case m.Gauge != nil:
			val = m.Gauge.GetValue()
		case m.Untyped != nil:
			val = m.Untyped.GetValue()
		case m.Counter != nil:
			val = m.Counter.GetValue()
		}
		if val <= bestVal {
			continue
		}
		for _, lp := range m.GetLabel() {
			if lp.GetName() == name {
				best = lp.GetValue()
				bestVal = val
				break
			}
		}
	}
	return best
}
