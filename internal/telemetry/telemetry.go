// Package telemetry reports reward vault engine activity to the shared New
// Relic agent as custom events and metrics.
package telemetry

import (
	"time"

	"github.com/tos-network/tos-pool/internal/newrelic"
)

// VaultReporter adapts the reward vault engine's scheduler to the pool's
// New Relic agent, the same way internal/newrelic's Record* helpers report
// mining events.
type VaultReporter struct {
	agent *newrelic.Agent
}

// NewVaultReporter wraps agent. agent may be nil (e.g. in tests), in which
// case every report is a no-op.
func NewVaultReporter(agent *newrelic.Agent) *VaultReporter {
	return &VaultReporter{agent: agent}
}

// RecordTick reports one scheduler pass: how many distributions it
// attempted and how long the pass took.
func (r *VaultReporter) RecordTick(attempted int, elapsed time.Duration) {
	if r.agent == nil {
		return
	}
	r.agent.RecordCustomEvent("VaultSchedulerTick", map[string]interface{}{
		"attempted":   attempted,
		"duration_ms": elapsed.Milliseconds(),
	})
	r.agent.RecordCustomMetric("Custom/Vault/TickDurationMs", float64(elapsed.Milliseconds()))
}

// RecordDistribution reports the outcome of a single distribution attempt.
func (r *VaultReporter) RecordDistribution(vaultID string, success bool, failureReason string) {
	if r.agent == nil {
		return
	}
	status := "success"
	if !success {
		status = "failure"
	}
	r.agent.RecordCustomEvent("VaultDistribution", map[string]interface{}{
		"vault_id": vaultID,
		"status":   status,
		"error":    failureReason,
	})
}

// RecordVaultCreated reports a newly sealed vault.
func (r *VaultReporter) RecordVaultCreated(vaultID, tokenID string, recipientCount int) {
	if r.agent == nil {
		return
	}
	r.agent.RecordCustomEvent("VaultCreated", map[string]interface{}{
		"vault_id":        vaultID,
		"token_id":        tokenID,
		"recipient_count": recipientCount,
	})
}
