package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// Config carries the constant labels attached to every series.
type Config struct {
	ServiceName string
	Environment string
}

const (
	NumberSourceSequence = "sequence"
	NumberSourceManual   = "manual"
)

// Metrics captures quotation lifecycle signals. A nil *Metrics is a valid no-op.
type Metrics struct {
	quotationsCreated *prometheus.CounterVec
	numbersAllocated  prometheus.Counter
	allocationRetries prometheus.Counter
	statusToggles     *prometheus.CounterVec
	duplicateNumbers  prometheus.Counter
	rateLimited       *prometheus.CounterVec
}

// New registers the domain collectors with the default registerer.
func New(cfg Config) *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer, cfg)
}

// NewWithRegisterer registers the domain collectors with registerer.
func NewWithRegisterer(registerer prometheus.Registerer, cfg Config) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	constLabels := labelsFor(cfg)

	m := &Metrics{
		quotationsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "quoteflow_quotations_created_total",
			Help:        "Quotations created by number source.",
			ConstLabels: constLabels,
		}, []string{"source"}),
		numbersAllocated: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "quoteflow_quotation_numbers_allocated_total",
			Help:        "Quotation numbers consumed from the settings sequence.",
			ConstLabels: constLabels,
		}),
		allocationRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "quoteflow_quotation_number_allocation_retries_total",
			Help:        "Sequence compare-and-swap attempts lost to a concurrent writer or skipped as taken.",
			ConstLabels: constLabels,
		}),
		statusToggles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "quoteflow_quotation_status_toggles_total",
			Help:        "Quotation status toggles by resulting status.",
			ConstLabels: constLabels,
		}, []string{"to"}),
		duplicateNumbers: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "quoteflow_quotation_duplicate_numbers_total",
			Help:        "Quotation writes rejected by the unique quotation number index.",
			ConstLabels: constLabels,
		}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "quoteflow_rate_limited_total",
			Help:        "Write requests rejected by the rate limiter.",
			ConstLabels: constLabels,
		}, []string{"route"}),
	}

	registerer.MustRegister(
		m.quotationsCreated,
		m.numbersAllocated,
		m.allocationRetries,
		m.statusToggles,
		m.duplicateNumbers,
		m.rateLimited,
	)
	return m
}

func (m *Metrics) IncQuotationCreated(source string) {
	if m == nil {
		return
	}
	m.quotationsCreated.WithLabelValues(normalizeLabel(source)).Inc()
}

func (m *Metrics) IncNumberAllocated() {
	if m == nil {
		return
	}
	m.numbersAllocated.Inc()
}

func (m *Metrics) IncAllocationRetry() {
	if m == nil {
		return
	}
	m.allocationRetries.Inc()
}

func (m *Metrics) IncStatusToggle(to string) {
	if m == nil {
		return
	}
	m.statusToggles.WithLabelValues(normalizeLabel(to)).Inc()
}

func (m *Metrics) IncDuplicateNumber() {
	if m == nil {
		return
	}
	m.duplicateNumbers.Inc()
}

func (m *Metrics) IncRateLimited(route string) {
	if m == nil {
		return
	}
	m.rateLimited.WithLabelValues(normalizeLabel(route)).Inc()
}

func labelsFor(cfg Config) prometheus.Labels {
	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "quoteflow"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	return prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}
}

func normalizeLabel(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return "unknown"
	}
	return value
}
