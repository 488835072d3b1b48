package observability

import (
	"strconv"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters for the engine.
type Metrics struct {
	mu                   sync.Mutex
	requestCount         map[string]int64
	errorCount           map[string]int64
	breachCount          map[string]int64
	actionCount          map[string]int64
	notificationsQueued  int64
	notificationsDropped int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount: make(map[string]int64),
		errorCount:   make(map[string]int64),
		breachCount:  make(map[string]int64),
		actionCount:  make(map[string]int64),
	}
}

// MetricsSnapshot is a point-in-time copy of the counters.
type MetricsSnapshot struct {
	Requests             map[string]int64
	Errors               map[string]int64
	Breaches             map[string]int64
	Actions              map[string]int64
	NotificationsQueued  int64
	NotificationsDropped int64
}

// Snapshot copies current counter values.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return MetricsSnapshot{
		Requests:             copyCounts(m.requestCount),
		Errors:               copyCounts(m.errorCount),
		Breaches:             copyCounts(m.breachCount),
		Actions:              copyCounts(m.actionCount),
		NotificationsQueued:  m.notificationsQueued,
		NotificationsDropped: m.notificationsDropped,
	}
}

func copyCounts(src map[string]int64) map[string]int64 {
	dst := make(map[string]int64, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + strconv.Itoa(status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + code
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

// RecordBreach counts a fired breach by kind.
func (m *Metrics) RecordBreach(kind string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.breachCount[kind]++
}

// RecordAction counts a dispatched escalation action.
func (m *Metrics) RecordAction(action string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.actionCount[action]++
}

// RecordNotificationQueued counts a delivery enqueue.
func (m *Metrics) RecordNotificationQueued() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notificationsQueued++
}

// RecordNotificationDropped counts a delivery drop on a full queue.
func (m *Metrics) RecordNotificationDropped() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notificationsDropped++
}
