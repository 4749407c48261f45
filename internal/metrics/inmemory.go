package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	HTTPRequests         uint64
	FlowsProcessed       map[string]uint64
	FlowDurationCount    uint64
	FlowDurationTotalNs  int64
	FlowCacheHits        uint64
	FlowCacheMisses      uint64
	CodeValidations      map[string]uint64
	PromptValidations    uint64
	PromptVariablesTotal uint64
	AuthFailures         map[string]uint64
	EventsPublished      uint64
	EventsDropped        uint64
}

// InMemoryRecorder stores metrics in memory for tests.
type InMemoryRecorder struct {
	httpRequests         uint64
	flowDurationCount    uint64
	flowDurationTotalNs  int64
	flowCacheHits        uint64
	flowCacheMisses      uint64
	promptValidations    uint64
	promptVariablesTotal uint64
	eventsPublished      uint64
	eventsDropped        uint64

	mu              sync.Mutex
	flowsProcessed  map[string]uint64
	codeValidations map[string]uint64
	authFailures    map[string]uint64
}

var _ Recorder = (*InMemoryRecorder)(nil)

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{
		flowsProcessed:  make(map[string]uint64),
		codeValidations: make(map[string]uint64),
		authFailures:    make(map[string]uint64),
	}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Snapshot{
		HTTPRequests:         atomic.LoadUint64(&m.httpRequests),
		FlowsProcessed:       copyCounts(m.flowsProcessed),
		FlowDurationCount:    atomic.LoadUint64(&m.flowDurationCount),
		FlowDurationTotalNs:  atomic.LoadInt64(&m.flowDurationTotalNs),
		FlowCacheHits:        atomic.LoadUint64(&m.flowCacheHits),
		FlowCacheMisses:      atomic.LoadUint64(&m.flowCacheMisses),
		CodeValidations:      copyCounts(m.codeValidations),
		PromptValidations:    atomic.LoadUint64(&m.promptValidations),
		PromptVariablesTotal: atomic.LoadUint64(&m.promptVariablesTotal),
		AuthFailures:         copyCounts(m.authFailures),
		EventsPublished:      atomic.LoadUint64(&m.eventsPublished),
		EventsDropped:        atomic.LoadUint64(&m.eventsDropped),
	}
}

func copyCounts(src map[string]uint64) map[string]uint64 {
	dst := make(map[string]uint64, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func (m *InMemoryRecorder) inc(counts map[string]uint64, label string) {
	m.mu.Lock()
	counts[label]++
	m.mu.Unlock()
}

// ObserveHTTPRequest counts a served request.
func (m *InMemoryRecorder) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	atomic.AddUint64(&m.httpRequests, 1)
}

// IncFlowProcessed increments the flow run counter for status.
func (m *InMemoryRecorder) IncFlowProcessed(status string) {
	m.inc(m.flowsProcessed, status)
}

// ObserveFlowDuration records flow run duration.
func (m *InMemoryRecorder) ObserveFlowDuration(duration time.Duration) {
	atomic.AddUint64(&m.flowDurationCount, 1)
	atomic.AddInt64(&m.flowDurationTotalNs, duration.Nanoseconds())
}

// IncFlowCacheHit increments flow cache hit counter.
func (m *InMemoryRecorder) IncFlowCacheHit() {
	atomic.AddUint64(&m.flowCacheHits, 1)
}

// IncFlowCacheMiss increments flow cache miss counter.
func (m *InMemoryRecorder) IncFlowCacheMiss() {
	atomic.AddUint64(&m.flowCacheMisses, 1)
}

// IncCodeValidation increments the code validation counter for status.
func (m *InMemoryRecorder) IncCodeValidation(status string) {
	m.inc(m.codeValidations, status)
}

// IncPromptValidation counts a prompt validation and its variables.
func (m *InMemoryRecorder) IncPromptValidation(variables int) {
	atomic.AddUint64(&m.promptValidations, 1)
	atomic.AddUint64(&m.promptVariablesTotal, uint64(variables))
}

// IncAuthFailure increments the auth failure counter for reason.
func (m *InMemoryRecorder) IncAuthFailure(reason string) {
	m.inc(m.authFailures, reason)
}

// IncEventPublished counts published or dropped events.
func (m *InMemoryRecorder) IncEventPublished(status string) {
	if status == StatusDropped {
		atomic.AddUint64(&m.eventsDropped, 1)
		return
	}
	atomic.AddUint64(&m.eventsPublished, 1)
}
