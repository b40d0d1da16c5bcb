package dlv

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/tos-network/tos-pool/internal/util"
)

// sealedVault is what the simulator actually stores for one vault id.
type sealedVault struct {
	fulfillment TimeRelease
	content     []byte
	unlocked    bool
}

// Simulator is an in-memory Adapter used by tests and the example harness.
// It enforces the TimeRelease/TimeProof semantics described in spec §4.3
// without any real cryptography: a proof satisfies the condition when the
// wall clock (injected via Clock) has passed UnlockTime and the proof's
// reference state hash matches one of the fulfillment's ReferenceStates.
type Simulator struct {
	// Clock returns seconds-since-epoch; tests inject a fake clock.
	Clock func() uint64

	mu     sync.RWMutex
	vaults map[string]*sealedVault
	nextID uint64
}

// NewSimulator builds a Simulator using the real wall clock.
func NewSimulator() *Simulator {
	return &Simulator{
		Clock:  func() uint64 { return uint64(time.Now().Unix()) },
		vaults: make(map[string]*sealedVault),
	}
}

func (s *Simulator) CreateVault(_ KeyPair, fulfillment TimeRelease, contentBytes []byte, _ string, _ []byte, _ ReferenceState) (string, error) {
	id, err := s.allocateID()
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.vaults[id] = &sealedVault{
		fulfillment: fulfillment,
		content:     append([]byte(nil), contentBytes...),
	}
	s.mu.Unlock()

	util.Debugf("dlv simulator: sealed vault %s (%d bytes)", id, len(contentBytes))
	return id, nil
}

func (s *Simulator) CreateVaultPost(vaultID string, description string, expiresAt uint64) (Post, error) {
	s.mu.RLock()
	_, ok := s.vaults[vaultID]
	s.mu.RUnlock()
	if !ok {
		return Post{}, fmt.Errorf("dlv simulator: unknown vault %s", vaultID)
	}

	return Post{
		VaultID:     vaultID,
		Description: description,
		ExpiresAt:   expiresAt,
		Status:      "pending",
	}, nil
}

func (s *Simulator) TryUnlockVault(vaultID string, proof TimeProof, _ KeyPair, _ ReferenceState) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.vaults[vaultID]
	if !ok {
		return false, fmt.Errorf("dlv simulator: unknown vault %s", vaultID)
	}

	now := s.Clock()
	if now < v.fulfillment.UnlockTime {
		return false, nil
	}

	matched := false
	for _, rs := range v.fulfillment.ReferenceStates {
		if bytes.Equal(rs, proof.ReferenceStateHash) {
			matched = true
			break
		}
	}
	if !matched {
		return false, nil
	}

	v.unlocked = true
	return true, nil
}

func (s *Simulator) ClaimVaultContent(vaultID string, _ KeyPair, _ ReferenceState) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.vaults[vaultID]
	if !ok {
		return nil, fmt.Errorf("dlv simulator: unknown vault %s", vaultID)
	}
	if !v.unlocked {
		return nil, fmt.Errorf("dlv simulator: vault %s not unlocked", vaultID)
	}

	return append([]byte(nil), v.content...), nil
}

func (s *Simulator) allocateID() (string, error) {
	s.mu.Lock()
	s.nextID++
	n := s.nextID
	s.mu.Unlock()

	var r [8]byte
	if _, err := rand.Read(r[:]); err != nil {
		return "", err
	}
	return fmt.Sprintf("vault-%d-%s", n, hex.EncodeToString(r[:])), nil
}
