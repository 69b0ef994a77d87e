package searcher

import (
	"sync/atomic"
	"time"
)

type MoveMetrics struct {
	StartTime    time.Time
	Duration     time.Duration
	Playouts     int64
	FullPlayouts int64
	TreeReused   bool
}

type MetricsCollector interface {
	Start()
	AddFullPlayout()
	AddEpisode()
	SetTreeReset(reset bool)
	Complete() MoveMetrics
}

type metricsCollector struct {
	startTime    time.Time
	playouts     atomic.Int64
	fullPlayouts atomic.Int64
	treeReused   atomic.Bool
}

func NewMetricsCollector() MetricsCollector {
	return &metricsCollector{}
}

func (m *metricsCollector) Start() {
	m.startTime = time.Now()
	m.playouts.Store(0)
	m.fullPlayouts.Store(0)
}

func (m *metricsCollector) AddFullPlayout() {
	m.fullPlayouts.Add(1)
}

func (m *metricsCollector) AddEpisode() {
	m.playouts.Add(1)
}

func (m *metricsCollector) SetTreeReset(reset bool) {
	m.treeReused.Store(!reset)
}

func (m *metricsCollector) Complete() MoveMetrics {
	return MoveMetrics{
		StartTime:    m.startTime,
		Duration:     time.Since(m.startTime),
		Playouts:     m.playouts.Load(),
		FullPlayouts: m.fullPlayouts.Load(),
		TreeReused:   m.treeReused.Load(),
	}
}

type noMetricsCollector struct{}

func NewNoMetricsCollector() MetricsCollector {
	return &noMetricsCollector{}
}

func (m *noMetricsCollector) Start()                {}
func (m *noMetricsCollector) AddFullPlayout()       {}
func (m *noMetricsCollector) AddEpisode()           {}
func (m *noMetricsCollector) SetTreeReset(bool)     {}
func (m *noMetricsCollector) Complete() MoveMetrics { return MoveMetrics{} }
