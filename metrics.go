package authcore

import "sync/atomic"

// MetricID identifies an in-process counter.
type MetricID uint16

const (
	MetricLoginSuccess MetricID = iota
	MetricLoginFailure
	MetricLoginLocked
	MetricRegistration
	MetricLogout
	MetricSessionCacheHit
	MetricSessionCacheMiss
	MetricSessionRestored
	MetricRememberMeLogin
	MetricPasswordChange
	MetricProfileUpdate
	MetricStorageError

	metricIDCount
)

// paddedCounter keeps each counter on its own cache line.
type paddedCounter struct {
	value uint64
	_     [56]byte
}

// Metrics is the in-process counter set. A nil or disabled Metrics is a
// no-op on every method.
type Metrics struct {
	enabled  bool
	counters [metricIDCount]paddedCounter
}

// NewMetrics returns a counter set; when enabled is false every operation
// is a no-op.
func NewMetrics(enabled bool) *Metrics {
	return &Metrics{enabled: enabled}
}

func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// MetricsSnapshot is a point-in-time copy of every counter.
type MetricsSnapshot struct {
	Counters map[MetricID]uint64
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	s := MetricsSnapshot{Counters: make(map[MetricID]uint64, int(metricIDCount))}
	if m == nil || !m.enabled {
		return s
	}
	for id := MetricID(0); id < metricIDCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}
	return s
}
