package storage

import (
	"encoding/json"
	"fmt"
)

const (
	keyVaultRecord  = keyPrefix + "vault:%s"
	keyVaultRecords = keyPrefix + "vaults"
)

// SealedVaultRecord is a durable snapshot of a reward vault's creation
// parameters, persisted so a DLV adapter backed by this store can recover
// the fulfillment condition and sealed content after a restart. This is
// separate from the reward vault engine's own in-memory distribution
// queue, which is intentionally not persisted (see DESIGN.md).
type SealedVaultRecord struct {
	VaultID       string `json:"vault_id"`
	ContentBytes  []byte `json:"content_bytes"`
	ContentType   string `json:"content_type"`
	UnlockTime    uint64 `json:"unlock_time"`
	ReferenceHash string `json:"reference_hash"`
	CreatedAt     int64  `json:"created_at"`
}

// SaveSealedVaultRecord persists one sealed vault, indexed for later
// enumeration by SealedVaultRecords.
func (r *RedisClient) SaveSealedVaultRecord(rec *SealedVaultRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	pipe := r.client.Pipeline()
	pipe.Set(r.ctx, fmt.Sprintf(keyVaultRecord, rec.VaultID), data, 0)
	pipe.SAdd(r.ctx, keyVaultRecords, rec.VaultID)
	_, err = pipe.Exec(r.ctx)
	return err
}

// GetSealedVaultRecord loads one vault's persisted record.
func (r *RedisClient) GetSealedVaultRecord(vaultID string) (*SealedVaultRecord, error) {
	data, err := r.client.Get(r.ctx, fmt.Sprintf(keyVaultRecord, vaultID)).Bytes()
	if err != nil {
		return nil, err
	}

	var rec SealedVaultRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// SealedVaultRecords returns every persisted vault record, used to rehydrate
// a DLV adapter's state on startup.
func (r *RedisClient) SealedVaultRecords() ([]*SealedVaultRecord, error) {
	ids, err := r.client.SMembers(r.ctx, keyVaultRecords).Result()
	if err != nil {
		return nil, err
	}

	records := make([]*SealedVaultRecord, 0, len(ids))
	for _, id := range ids {
		rec, err := r.GetSealedVaultRecord(id)
		if err != nil {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}
