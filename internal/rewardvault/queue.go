package rewardvault

import "sync"

// distributionQueue is the time-ordered queue of pending distributions,
// guarded by a single exclusive lock held only long enough to partition
// and restore its contents (spec §4.8 queue discipline).
type distributionQueue struct {
	mu      sync.Mutex
	pending []DistributionRequest
}

func newDistributionQueue() *distributionQueue {
	return &distributionQueue{}
}

func (q *distributionQueue) push(req DistributionRequest) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = append(q.pending, req)
}

// partition splits the queue into entries whose timestamp has arrived
// (ready, in original insertion order) and those that remain pending,
// replacing the queue's contents with the latter before returning.
func (q *distributionQueue) partition(now uint64) []DistributionRequest {
	q.mu.Lock()
	defer q.mu.Unlock()

	ready := make([]DistributionRequest, 0, len(q.pending))
	remaining := make([]DistributionRequest, 0, len(q.pending))
	for _, req := range q.pending {
		if req.Timestamp <= now {
			ready = append(ready, req)
		} else {
			remaining = append(remaining, req)
		}
	}
	q.pending = remaining
	return ready
}

// requeue puts a request back on the queue after a dependency-failure
// attempt. It does not modify the request: tick bumps Attempts and pushes
// Timestamp past the retry backoff before calling it, when
// processDistribution reports a retryable failure and the request has not
// exhausted its retry budget.
func (q *distributionQueue) requeue(req DistributionRequest) {
	q.push(req)
}

func (q *distributionQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
