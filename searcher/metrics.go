package searcher

import (
	"sync/atomic"
	"time"
)

// SearchMetrics summarizes one ActionProbabilities call.
type SearchMetrics struct {
	StartTime   time.Time
	Duration    time.Duration
	Simulations int64
	Expansions  int64
	Terminals   int64
	MaxDepth    int64
}

type MetricsCollector interface {
	Start()
	AddSimulation()
	AddExpansion()
	AddTerminal()
	ObserveDepth(depth int)
	Complete() SearchMetrics
}

type metricsCollector struct {
	startTime   time.Time
	simulations atomic.Int64
	expansions  atomic.Int64
	terminals   atomic.Int64
	maxDepth    atomic.Int64
}

func NewMetricsCollector() MetricsCollector {
	return &metricsCollector{}
}

func (m *metricsCollector) Start() {
	m.startTime = time.Now()
}

func (m *metricsCollector) AddSimulation() {
	m.simulations.Add(1)
}

func (m *metricsCollector) AddExpansion() {
	m.expansions.Add(1)
}

func (m *metricsCollector) AddTerminal() {
	m.terminals.Add(1)
}

func (m *metricsCollector) ObserveDepth(depth int) {
	d := int64(depth)
	for {
		current := m.maxDepth.Load()
		if d <= current || m.maxDepth.CompareAndSwap(current, d) {
			return
		}
	}
}

func (m *metricsCollector) Complete() SearchMetrics {
	return SearchMetrics{
		StartTime:   m.startTime,
		Duration:    time.Since(m.startTime),
		Simulations: m.simulations.Load(),
		Expansions:  m.expansions.Load(),
		Terminals:   m.terminals.Load(),
		MaxDepth:    m.maxDepth.Load(),
	}
}

type noMetricsCollector struct{}

func NewNoMetricsCollector() MetricsCollector {
	return &noMetricsCollector{}
}

func (m *noMetricsCollector) Start()                  {}
func (m *noMetricsCollector) AddSimulation()          {}
func (m *noMetricsCollector) AddExpansion()           {}
func (m *noMetricsCollector) AddTerminal()            {}
func (m *noMetricsCollector) ObserveDepth(depth int)  {}
func (m *noMetricsCollector) Complete() SearchMetrics { return SearchMetrics{} }
