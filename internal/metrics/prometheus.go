package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "mdstream"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	renderDuration *prom.HistogramVec
	renderBytes    *prom.CounterVec
	renderTokens   *prom.CounterVec
	renderResults  *prom.CounterVec
	reloads        prom.Counter
	clients        prom.Gauge
}

// NewPrometheusRecorder constructs the metrics and registers them with reg,
// or with a fresh registry when reg is nil.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		renderDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "render_duration_seconds",
			Help:      "Duration of a full document render",
			Buckets:   prom.DefBuckets,
		}, []string{"format"}),
		renderBytes: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "render_input_bytes_total",
			Help:      "Markdown bytes consumed by renders",
		}, []string{"format"}),
		renderTokens: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "render_tokens_total",
			Help:      "Nodes opened by the parser",
		}, []string{"format"}),
		renderResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "render_results_total",
			Help:      "Render outcomes",
		}, []string{"format", "result"}),
		reloads: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "preview_reloads_total",
			Help:      "Reload events broadcast to preview clients",
		}),
		clients: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "preview_clients",
			Help:      "Connected preview clients",
		}),
	}
	reg.MustRegister(pr.renderDuration, pr.renderBytes, pr.renderTokens, pr.renderResults, pr.reloads, pr.clients)
	return pr
}

func (p *PrometheusRecorder) ObserveRender(format string, d time.Duration, bytes int64, tokens int) {
	if p == nil {
		return
	}
	p.renderDuration.WithLabelValues(format).Observe(d.Seconds())
	p.renderBytes.WithLabelValues(format).Add(float64(bytes))
	p.renderTokens.WithLabelValues(format).Add(float64(tokens))
}

func (p *PrometheusRecorder) IncRenderResult(format string, result ResultLabel) {
	if p == nil {
		return
	}
	p.renderResults.WithLabelValues(format, string(result)).Inc()
}

func (p *PrometheusRecorder) IncReload() {
	if p == nil {
		return
	}
	p.reloads.Inc()
}

func (p *PrometheusRecorder) SetClients(n int) {
	if p == nil {
		return
	}
	p.clients.Set(float64(n))
}

// HTTPHandler serves the metrics of reg.
func HTTPHandler(reg *prom.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
