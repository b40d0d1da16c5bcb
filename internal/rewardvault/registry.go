package rewardvault

import (
	"sync"

	"github.com/tos-network/tos-pool/internal/vaulterr"
)

// vaultRegistry is the authoritative, in-memory index of vault metadata.
// Readers may run concurrently; creation and status updates are exclusive.
type vaultRegistry struct {
	mu     sync.RWMutex
	vaults map[string]VaultMetadata
}

func newVaultRegistry() *vaultRegistry {
	return &vaultRegistry{vaults: make(map[string]VaultMetadata)}
}

func (r *vaultRegistry) insert(meta VaultMetadata) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.vaults[meta.VaultID] = meta
}

func (r *vaultRegistry) get(vaultID string) (VaultMetadata, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	meta, ok := r.vaults[vaultID]
	if !ok {
		return VaultMetadata{}, vaulterr.NotFound("vault %q", vaultID)
	}
	return meta.Clone(), nil
}

func (r *vaultRegistry) list() []VaultMetadata {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]VaultMetadata, 0, len(r.vaults))
	for _, meta := range r.vaults {
		out = append(out, meta.Clone())
	}
	return out
}

// transition moves a vault's status forward per I2, returning not-found if
// the vault is unknown and leaving status untouched (no error) if next is
// not a legal move from the current status — callers that need to know
// about an illegal transition should check status first via get.
func (r *vaultRegistry) transition(vaultID string, next VaultStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	meta, ok := r.vaults[vaultID]
	if !ok {
		return vaulterr.NotFound("vault %q", vaultID)
	}

	if meta.Status.canTransitionTo(next) {
		meta.Status = next
		r.vaults[vaultID] = meta
	}
	return nil
}

// receiptRegistry is a per-node, append-only list of verified receipts.
// Insertion never deletes (I4); reads return a snapshot copy.
type receiptRegistry struct {
	mu       sync.RWMutex
	byNodeID map[string][]Receipt
}

func newReceiptRegistry() *receiptRegistry {
	return &receiptRegistry{byNodeID: make(map[string][]Receipt)}
}

func (r *receiptRegistry) append(receipt Receipt) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byNodeID[receipt.NodeID] = append(r.byNodeID[receipt.NodeID], receipt)
}

func (r *receiptRegistry) forNode(nodeID string) []Receipt {
	r.mu.RLock()
	defer r.mu.RUnlock()

	receipts := r.byNodeID[nodeID]
	if len(receipts) == 0 {
		return nil
	}
	out := make([]Receipt, len(receipts))
	copy(out, receipts)
	return out
}
