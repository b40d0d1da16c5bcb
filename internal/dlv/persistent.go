package dlv

import (
	"github.com/tos-network/tos-pool/internal/storage"
	"github.com/tos-network/tos-pool/internal/util"
)

// PersistentSimulator wraps Simulator with a Redis-backed snapshot of each
// vault's creation parameters, so a restart can rehydrate the adapter's
// view of sealed vaults rather than losing them. It does not persist
// unlock/claim state; a vault that was unlocked before a restart is
// re-evaluated against its fulfillment condition on the next attempt.
type PersistentSimulator struct {
	*Simulator
	redis *storage.RedisClient
}

// NewPersistentSimulator builds a PersistentSimulator over redis, replaying
// any previously-persisted vault records into a fresh in-memory Simulator.
func NewPersistentSimulator(redis *storage.RedisClient) (*PersistentSimulator, error) {
	sim := NewSimulator()
	p := &PersistentSimulator{Simulator: sim, redis: redis}

	records, err := redis.SealedVaultRecords()
	if err != nil {
		return nil, err
	}

	for _, rec := range records {
		sim.mu.Lock()
		sim.vaults[rec.VaultID] = &sealedVault{
			fulfillment: TimeRelease{
				UnlockTime:      rec.UnlockTime,
				ReferenceStates: [][]byte{[]byte(rec.ReferenceHash)},
			},
			content: rec.ContentBytes,
		}
		sim.mu.Unlock()
	}

	util.Infof("dlv persistent simulator: restored %d vault(s) from redis", len(records))
	return p, nil
}

// CreateVault seals the vault in memory and snapshots its parameters to
// Redis before returning.
func (p *PersistentSimulator) CreateVault(creator KeyPair, fulfillment TimeRelease, contentBytes []byte, contentType string, intendedRecipient []byte, referenceState ReferenceState) (string, error) {
	vaultID, err := p.Simulator.CreateVault(creator, fulfillment, contentBytes, contentType, intendedRecipient, referenceState)
	if err != nil {
		return "", err
	}

	var referenceHash string
	if len(fulfillment.ReferenceStates) > 0 {
		referenceHash = string(fulfillment.ReferenceStates[0])
	}

	rec := &storage.SealedVaultRecord{
		VaultID:       vaultID,
		ContentBytes:  contentBytes,
		ContentType:   contentType,
		UnlockTime:    fulfillment.UnlockTime,
		ReferenceHash: referenceHash,
	}
	if err := p.redis.SaveSealedVaultRecord(rec); err != nil {
		util.Warnf("dlv persistent simulator: failed to persist vault %s: %v", vaultID, err)
	}

	return vaultID, nil
}
