package prometheusmetrics

import (
	"github.com/prebid/prebid-server-floors/config"
	"github.com/prebid/prebid-server-floors/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics defines the Prometheus metrics backing the MetricsEngine implementation.
type Metrics struct {
	Registry *prometheus.Registry
	Gatherer prometheus.Gatherer

	floorsFetch                 *prometheus.CounterVec
	dynamicFetchFailure         *prometheus.CounterVec
	floorsRequests              *prometheus.CounterVec
	floorsSkipped               *prometheus.CounterVec
	floorsResolveErrors         *prometheus.CounterVec
	invalidAccountFloorsConfigs *prometheus.CounterVec
	rejectedBids                *prometheus.CounterVec
}

const (
	accountLabel     = "account"
	bidderLabel      = "bidder"
	codeLabel        = "code"
	fetchStatusLabel = "fetch_status"
)

var _ metrics.MetricsEngine = &Metrics{}

// NewMetrics initializes a new Prometheus metrics instance.
func NewMetrics(cfg config.PrometheusMetrics) *Metrics {
	metrics := Metrics{}
	metrics.Registry = prometheus.NewRegistry()
	metrics.Gatherer = metrics.Registry

	metrics.floorsFetch = newCounter(cfg, metrics.Registry,
		"floors_fetch",
		"Count of floors fetch calls labeled by account and the fetch status returned to the auction.",
		[]string{accountLabel, fetchStatusLabel})

	metrics.dynamicFetchFailure = newCounter(cfg, metrics.Registry,
		"floors_dynamic_fetch_failure",
		"Count of abandoned floors provider fetches labeled by account and failure stage.",
		[]string{accountLabel, codeLabel})

	metrics.floorsRequests = newCounter(cfg, metrics.Registry,
		"floors_account_requests",
		"Count of auctions with floors enabled labeled by account.",
		[]string{accountLabel})

	metrics.floorsSkipped = newCounter(cfg, metrics.Registry,
		"floors_skipped",
		"Count of auctions where floors signalling was skipped by skip rate, labeled by account.",
		[]string{accountLabel})

	metrics.floorsResolveErrors = newCounter(cfg, metrics.Registry,
		"floors_resolve_errors",
		"Count of impressions whose floor could not be resolved, labeled by account.",
		[]string{accountLabel})

	metrics.invalidAccountFloorsConfigs = newCounter(cfg, metrics.Registry,
		"floors_invalid_account_config",
		"Count of account floors configs replaced by the fallback config, labeled by account.",
		[]string{accountLabel})

	metrics.rejectedBids = newCounter(cfg, metrics.Registry,
		"floors_rejected_bids",
		"Count of bids rejected by floors enforcement labeled by account, bidder and rejection code.",
		[]string{accountLabel, bidderLabel, codeLabel})

	return &metrics
}

func newCounter(cfg config.PrometheusMetrics, registry *prometheus.Registry, name, help string, labels []string) *prometheus.CounterVec {
	opts := prometheus.CounterOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      name,
		Help:      help,
	}
	counter := prometheus.NewCounterVec(opts, labels)
	registry.MustRegister(counter)
	return counter
}

func (m *Metrics) RecordFloorsFetch(pubID, fetchStatus string) {
	m.floorsFetch.With(prometheus.Labels{
		accountLabel:     pubID,
		fetchStatusLabel: fetchStatus,
	}).Inc()
}

func (m *Metrics) RecordDynamicFetchFailure(pubID, code string) {
	m.dynamicFetchFailure.With(prometheus.Labels{
		accountLabel: pubID,
		codeLabel:    code,
	}).Inc()
}

func (m *Metrics) RecordFloorsRequestForAccount(pubID string) {
	m.floorsRequests.With(prometheus.Labels{
		accountLabel: pubID,
	}).Inc()
}

func (m *Metrics) RecordFloorsSkipped(pubID string) {
	m.floorsSkipped.With(prometheus.Labels{
		accountLabel: pubID,
	}).Inc()
}

func (m *Metrics) RecordFloorsResolveError(pubID string) {
	m.floorsResolveErrors.With(prometheus.Labels{
		accountLabel: pubID,
	}).Inc()
}

func (m *Metrics) RecordInvalidAccountFloorsConfig(pubID string) {
	m.invalidAccountFloorsConfigs.With(prometheus.Labels{
		accountLabel: pubID,
	}).Inc()
}

func (m *Metrics) RecordRejectedBids(pubID, bidder, code string) {
	m.rejectedBids.With(prometheus.Labels{
		accountLabel: pubID,
		bidderLabel:  bidder,
		codeLabel:    code,
	}).Inc()
}
