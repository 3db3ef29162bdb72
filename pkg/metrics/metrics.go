package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/fatflowers/coiffeur/pkg/types"
)

const namespace = "coiffeur"

var HistogramBuckets = []float64{
	// --- Fast responses (0 - 500ms) ---
	5, 10, 25, 50, 75, 100, 150, 200, 300, 400, 500,

	// --- Medium responses (500ms - 2s) ---
	750, 1000, 1500, 2000,

	// --- Slow responses (2s - 15s) ---
	3000, 5000, 10000, 15000,
}

// Metric is a definition for the name, description, type, ID, and
// prometheus.Collector type (i.e. CounterVec, Summary, etc) of each metric
type Metric struct {
	MetricCollector prometheus.Collector
	ID              string
	Name            string
	Description     string
	Type            string
	Args            []string
}

// NewMetric associates prometheus.Collector based on Metric.Type
func NewMetric(m *Metric, subsystem string) prometheus.Collector {
	switch m.Type {
	case "counter_vec":
		return prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      m.Name,
			Help:      m.Description,
		}, m.Args)
	case "histogram_vec":
		return prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      m.Name,
			Help:      m.Description,
			Buckets:   HistogramBuckets,
		}, m.Args)
	case "summary_vec":
		return prometheus.NewSummaryVec(prometheus.SummaryOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      m.Name,
			Help:      m.Description,
		}, m.Args)
	}
	return nil
}

// register registers c, returning the already registered collector when an
// equal one exists.
func register(c prometheus.Collector) (prometheus.Collector, error) {
	if err := prometheus.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			return are.ExistingCollector, nil
		}
		return c, err
	}
	return c, nil
}

var gateDecisionMetric = &Metric{
	ID:          "gateDecision",
	Name:        "gate_decision_total",
	Description: "Access gate decisions for owner requests, partitioned by decision.",
	Type:        "counter_vec",
	Args:        []string{"decision"},
}

var subscriptionCommandMetric = &Metric{
	ID:          "subscriptionCommand",
	Name:        "subscription_command_total",
	Description: "Subscription commands, partitioned by command and result.",
	Type:        "counter_vec",
	Args:        []string{"command", "result"},
}

var (
	gateDecisions        = mustCounterVec(gateDecisionMetric)
	subscriptionCommands = mustCounterVec(subscriptionCommandMetric)
)

func mustCounterVec(m *Metric) *prometheus.CounterVec {
	c, err := register(NewMetric(m, "subscription"))
	if err != nil {
		panic(err)
	}
	m.MetricCollector = c
	return c.(*prometheus.CounterVec)
}

// GateDecision counts one access gate outcome.
func GateDecision(decision types.Decision) {
	gateDecisions.WithLabelValues(string(decision)).Inc()
}

// SubscriptionCommand counts one subscription command and its outcome.
func SubscriptionCommand(command string, err error) {
	subscriptionCommands.WithLabelValues(command, resultLabel(err)).Inc()
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, types.ErrNotFound):
		return "not_found"
	case errors.Is(err, types.ErrConcurrentUpdate), errors.Is(err, types.ErrDuplicatePending):
		return "conflict"
	case errors.Is(err, types.ErrInvalidInput):
		return "invalid_input"
	default:
		return "error"
	}
}
