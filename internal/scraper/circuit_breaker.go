package scraper

import (
	"log"
	"sync"
	"time"
)

// CircuitBreaker halts scraping when the retail site starts blocking
// us. Opens after consecutive critical failures or a high failure rate
// over a sample window; half-opens after resetTimeout.
type CircuitBreaker struct {
	failureThreshold int
	resetTimeout     time.Duration

	failures            int
	successes           int
	totalRequests       int
	consecutiveFailures int
	isOpen              bool
	lastFailureTime     time.Time

	mu sync.Mutex
}

func NewCircuitBreaker(failureThreshold int, resetTimeout time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		failureThreshold: failureThreshold,
		resetTimeout:     resetTimeout,
	}
}

func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.successes++
	cb.totalRequests++
	cb.consecutiveFailures = 0
}

// RecordFailure records a failed request (403/429/5xx or transport
// error, statusCode 0).
func (cb *CircuitBreaker) RecordFailure(statusCode int) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	cb.consecutiveFailures++
	cb.totalRequests++
	cb.lastFailureTime = time.Now()

	// Consecutive critical errors mean we are actively blocked: stop
	// immediately rather than waiting for the rate check.
	if cb.consecutiveFailures >= 3 && (statusCode == 403 || statusCode == 429 || statusCode >= 500) {
		cb.isOpen = true
		log.Printf("[CircuitBreaker] OPEN: %d consecutive status-%d errors, site is blocking. Retrying after %v",
			cb.consecutiveFailures, statusCode, cb.resetTimeout)
		return
	}

	// Rate check once we have a reasonable sample.
	if cb.totalRequests >= cb.failureThreshold*2 {
		failureRate := float64(cb.failures) / float64(cb.totalRequests)
		if failureRate >= 0.5 {
			cb.isOpen = true
			log.Printf("[CircuitBreaker] OPEN: failure rate %.0f%% (%d/%d). Retrying after %v",
				failureRate*100, cb.failures, cb.totalRequests, cb.resetTimeout)
		}
	}
}

// CanProceed reports whether requests are allowed; transitions to
// half-open once the reset timeout elapses.
func (cb *CircuitBreaker) CanProceed() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if !cb.isOpen {
		return true
	}

	if time.Since(cb.lastFailureTime) > cb.resetTimeout {
		log.Printf("[CircuitBreaker] Half-open after %v, allowing requests", cb.resetTimeout)
		cb.isOpen = false
		cb.failures = 0
		cb.successes = 0
		cb.totalRequests = 0
		cb.consecutiveFailures = 0
		return true
	}

	return false
}

func (cb *CircuitBreaker) Status() (isOpen bool, failures int, total int) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.isOpen, cb.failures, cb.totalRequests
}
