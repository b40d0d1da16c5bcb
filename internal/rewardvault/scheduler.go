package rewardvault

import (
	"time"

	"github.com/tos-network/tos-pool/internal/dlv"
	"github.com/tos-network/tos-pool/internal/util"
	"github.com/tos-network/tos-pool/internal/vaulterr"
)

// schedulerLoop is the distribution scheduler's tick loop (spec §4.8): on
// each tick it partitions the queue for due requests and attempts each one
// in turn, publishing a result for every attempt except a dependency
// failure that tick requeues for retry. It never holds the queue's lock
// while calling into the DLV adapter.
func (m *RewardVaultManager) schedulerLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.opts.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.tick()
		}
	}
}

// tick runs one scheduler pass: partition, then attempt each ready
// request. Requests whose timestamp has not yet arrived stay queued by
// construction of partition.
func (m *RewardVaultManager) tick() {
	started := time.Now()
	now := m.now()
	ready := m.queue.partition(now)
	if len(ready) == 0 {
		return
	}

	util.Debugf("distribution scheduler: %d vault(s) ready for processing", len(ready))
	for _, req := range ready {
		result, retryable := m.processDistribution(req, now)
		if retryable && req.Attempts < m.opts.MaxDistributionRetries {
			req.Attempts++
			req.Timestamp = now + uint64(m.opts.RetryBackoff.Seconds())
			m.queue.requeue(req)
			util.Debugf("distribution scheduler: requeued vault %s after dependency failure (attempt %d/%d)",
				req.VaultID, req.Attempts, m.opts.MaxDistributionRetries)
			continue
		}

		m.publish(result)
		if m.opts.Reporter != nil {
			m.opts.Reporter.RecordDistribution(result.VaultID, result.Success, result.Error)
		}
	}

	if m.opts.Reporter != nil {
		m.opts.Reporter.RecordTick(len(ready), time.Since(started))
	}
}

// publish sends result on the bounded result channel, blocking if it is
// full rather than dropping the outcome.
func (m *RewardVaultManager) publish(result DistributionResult) {
	select {
	case m.results <- result:
	case <-m.ctx.Done():
	}
}

// processDistribution implements the attempt_unlock -> attempt_claim state
// machine of spec §4.8 for a single queued request. The second return value
// reports whether the failure is a transient dependency error the caller
// may requeue, as opposed to a terminal one (not yet due, bad encoding, a
// vault that is no longer pending).
func (m *RewardVaultManager) processDistribution(req DistributionRequest, now uint64) (DistributionResult, bool) {
	base := DistributionResult{VaultID: req.VaultID, Timestamp: now}

	// I3: a vault already past pending is never handed to the adapter again.
	if meta, err := m.registry.get(req.VaultID); err == nil && meta.Status != VaultStatusPending {
		base.Success = false
		base.Error = "vault is not pending (status " + string(meta.Status) + ")"
		return base, false
	}

	proof := dlv.TimeProof{
		ReferenceStateHash: req.ReferenceState.Hash,
		StateProof:         req.ReferenceState.Hash,
	}
	referenceState := dlv.ReferenceState{Hash: req.ReferenceState.Hash, Height: req.ReferenceState.Height}

	unlocked, err := m.adapter.TryUnlockVault(req.VaultID, proof, m.opts.Claimant, referenceState)
	if err != nil {
		wrapped := vaulterr.DependencyFailure(err, "unlock vault")
		base.Success = false
		base.Error = wrapped.Error()
		return base, true
	}
	if !unlocked {
		base.Success = false
		base.Error = "fulfillment conditions not met"
		return base, false
	}

	contentBytes, err := m.adapter.ClaimVaultContent(req.VaultID, m.opts.Claimant, referenceState)
	if err != nil {
		wrapped := vaulterr.DependencyFailure(err, "claim vault content")
		base.Success = false
		base.Error = wrapped.Error()
		return base, true
	}

	content, err := decodeVaultContent(contentBytes)
	if err != nil {
		base.Success = false
		base.Error = err.Error()
		return base, false
	}

	details := make(map[string]uint64, len(content.Recipients))
	for recipient, ratio := range content.Recipients {
		details[recipient] = ratio.ApplyTo(content.TokenAmount)
	}

	if err := m.registry.transition(req.VaultID, VaultStatusClaimed); err != nil {
		base.Success = false
		base.Error = err.Error()
		return base, false
	}

	base.Success = true
	base.DistributionDetails = details
	return base, false
}
