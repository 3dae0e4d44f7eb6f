// Package metrics records import, research and apply counters on a private
// Prometheus registry that a CLI run can dump to a node-exporter textfile.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Circuit states reported by CircuitState.
const (
	CircuitClosed   = 0
	CircuitOpen     = 1
	CircuitHalfOpen = 2
)

// Recorder is what the categorization components report to.
type Recorder interface {
	ImportRows(format string, imported, duplicates, rejected int)
	ResearchCall(provider, outcome string, duration time.Duration)
	ResearchRetry(provider, kind string)
	CircuitState(provider string, state int)
	SuggestionsProduced(provenance string, n int)
	ItemsApplied(source string, applied, failed int)
	RulesLearned(n int)
}

// Prometheus implements Recorder.
type Prometheus struct {
	registry *prometheus.Registry

	importRows       *prometheus.CounterVec
	researchCalls    *prometheus.CounterVec
	researchDuration *prometheus.HistogramVec
	researchRetries  *prometheus.CounterVec
	circuitState     *prometheus.GaugeVec
	suggestions      *prometheus.CounterVec
	applied          *prometheus.CounterVec
	rulesLearned     prometheus.Counter
}

// NewPrometheus registers the collectors on a fresh registry.
func NewPrometheus() *Prometheus {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Prometheus{
		registry: reg,
		importRows: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "budgetbuddy_import_rows_total",
				Help: "Statement rows processed by import, by result",
			},
			[]string{"format", "result"},
		),
		researchCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "budgetbuddy_research_calls_total",
				Help: "Outbound AI research calls, by outcome",
			},
			[]string{"provider", "outcome"},
		),
		researchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "budgetbuddy_research_duration_milliseconds",
				Help:    "AI research call duration in milliseconds",
				Buckets: prometheus.ExponentialBuckets(50, 2, 10),
			},
			[]string{"provider"},
		),
		researchRetries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "budgetbuddy_research_retries_total",
				Help: "AI research retries, by failure kind",
			},
			[]string{"provider", "kind"},
		),
		circuitState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "budgetbuddy_research_circuit_state",
				Help: "Research circuit breaker state (0=closed, 1=open, 2=half-open)",
			},
			[]string{"provider"},
		),
		suggestions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "budgetbuddy_suggestions_total",
				Help: "Category suggestions produced, by provenance",
			},
			[]string{"provenance"},
		),
		applied: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "budgetbuddy_apply_items_total",
				Help: "Category assignments attempted, by source and result",
			},
			[]string{"source", "result"},
		),
		rulesLearned: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "budgetbuddy_rules_learned_total",
				Help: "Rules created or refreshed from manual corrections",
			},
		),
	}
}

// Registry exposes the private registry.
func (p *Prometheus) Registry() *prometheus.Registry {
	return p.registry
}

func (p *Prometheus) ImportRows(format string, imported, duplicates, rejected int) {
	p.importRows.WithLabelValues(format, "imported").Add(float64(imported))
	p.importRows.WithLabelValues(format, "duplicate").Add(float64(duplicates))
	p.importRows.WithLabelValues(format, "rejected").Add(float64(rejected))
}

func (p *Prometheus) ResearchCall(provider, outcome string, duration time.Duration) {
	p.researchCalls.WithLabelValues(provider, outcome).Inc()
	p.researchDuration.WithLabelValues(provider).Observe(float64(duration.Milliseconds()))
}

func (p *Prometheus) ResearchRetry(provider, kind string) {
	p.researchRetries.WithLabelValues(provider, kind).Inc()
}

func (p *Prometheus) CircuitState(provider string, state int) {
	p.circuitState.WithLabelValues(provider).Set(float64(state))
}

func (p *Prometheus) SuggestionsProduced(provenance string, n int) {
	p.suggestions.WithLabelValues(provenance).Add(float64(n))
}

func (p *Prometheus) ItemsApplied(source string, applied, failed int) {
	p.applied.WithLabelValues(source, "applied").Add(float64(applied))
	p.applied.WithLabelValues(source, "failed").Add(float64(failed))
}

func (p *Prometheus) RulesLearned(n int) {
	p.rulesLearned.Add(float64(n))
}

// WriteTextfile writes the registry in the text exposition format to path.
func (p *Prometheus) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, p.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}

// Nop discards everything.
type Nop struct{}

func (Nop) ImportRows(string, int, int, int) {}
func (Nop) ResearchCall(string, string, time.Duration) {}
func (Nop) ResearchRetry(string, string) {}
func (Nop) CircuitState(string, int) {}
func (Nop) SuggestionsProduced(string, int) {}
func (Nop) ItemsApplied(string, int, int) {}
func (Nop) RulesLearned(int) {}

// OrNop returns r, or Nop when r is nil.
func OrNop(r Recorder) Recorder {
	if r == nil {
		return Nop{}
	}
	return r
}
