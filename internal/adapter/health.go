package adapter

import (
	"sync"
	"time"
)

// ProviderHealth represents the health status of the broker API
type ProviderHealth struct {
	BaseURL          string        `json:"baseUrl"`
	TotalRequests    int64         `json:"totalRequests"`
	SuccessfulReqs   int64         `json:"successfulRequests"`
	FailedReqs       int64         `json:"failedRequests"`
	SuccessRate      float64       `json:"successRate"`
	AverageLatency   time.Duration `json:"averageLatency"`
	LastSuccess      time.Time     `json:"lastSuccess"`
	LastFailure      time.Time     `json:"lastFailure"`
	LastError        string        `json:"lastError,omitempty"`
	ConsecutiveFails int           `json:"consecutiveFails"`
	IsHealthy        bool          `json:"isHealthy"`
}

// healthTracker records request outcomes for the health endpoint
type healthTracker struct {
	mu sync.RWMutex

	totalRequests    int64
	successfulReqs   int64
	failedReqs       int64
	totalLatency     time.Duration
	lastSuccess      time.Time
	lastFailure      time.Time
	lastError        string
	consecutiveFails int

	maxConsecutiveFails int
}

func newHealthTracker() *healthTracker {
	return &healthTracker{maxConsecutiveFails: 3}
}

// RecordSuccess records a successful request
func (h *healthTracker) RecordSuccess(duration time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.totalRequests++
	h.successfulReqs++
	h.totalLatency += duration
	h.lastSuccess = time.Now()
	h.consecutiveFails = 0
}

// RecordFailure records a failed request
func (h *healthTracker) RecordFailure(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.totalRequests++
	h.failedReqs++
	h.lastFailure = time.Now()
	h.consecutiveFails++
	if err != nil {
		h.lastError = err.Error()
	}
}

// Snapshot returns the current health status
func (h *healthTracker) Snapshot(baseURL string) ProviderHealth {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var successRate float64
	if h.totalRequests > 0 {
		successRate = float64(h.successfulReqs) / float64(h.totalRequests)
	}

	var avgLatency time.Duration
	if h.successfulReqs > 0 {
		avgLatency = h.totalLatency / time.Duration(h.successfulReqs)
	}

	return ProviderHealth{
		BaseURL:          baseURL,
		TotalRequests:    h.totalRequests,
		SuccessfulReqs:   h.successfulReqs,
		FailedReqs:       h.failedReqs,
		SuccessRate:      successRate,
		AverageLatency:   avgLatency,
		LastSuccess:      h.lastSuccess,
		LastFailure:      h.lastFailure,
		LastError:        h.lastError,
		ConsecutiveFails: h.consecutiveFails,
		IsHealthy:        h.consecutiveFails < h.maxConsecutiveFails,
	}
}
