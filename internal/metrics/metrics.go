// Package metrics holds the Prometheus collectors for report submissions.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "bugreport"

type Metrics struct {
	Submissions  *prometheus.CounterVec
	Attachments  *prometheus.CounterVec
	MailDuration prometheus.Histogram
	SweptFiles   prometheus.Counter

	gatherer prometheus.Gatherer
}

// New registers the collectors on a fresh registry together with the Go and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewWith(reg, reg)
}

func NewWith(reg prometheus.Registerer, g prometheus.Gatherer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Submissions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Report submissions by outcome and rejection reason.",
		}, []string{"status", "reason"}),
		Attachments: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attachments_total",
			Help:      "Screenshot handling results.",
		}, []string{"result"}),
		MailDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "mail_send_duration_seconds",
			Help:      "Time spent handing a report to the mail transport.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		SweptFiles: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retention_swept_files_total",
			Help:      "Screenshot files removed by the retention sweep.",
		}),
		gatherer: g,
	}
}

// ObserveMail records the duration since start.
func (m *Metrics) ObserveMail(start time.Time) {
	m.MailDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
