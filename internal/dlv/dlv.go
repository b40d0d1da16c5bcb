// Package dlv defines the abstract custody primitive (Deterministic Limbo
// Vault) the reward vault engine builds on, plus an in-memory simulator
// adapter suitable for tests and the bundled example harness.
package dlv

import (
	"time"
)

// KeyPair is a symbolic (public, private) key pair. The engine only ever
// reads the public half (for the creator/claimant identity); the private
// half is forwarded opaquely to whatever signs on the adapter's behalf.
type KeyPair struct {
	Public  []byte
	Private []byte
}

// ReferenceState is an opaque system-state snapshot the engine forwards to
// the adapter without inspecting anything beyond Hash.
type ReferenceState struct {
	Hash []byte
	// Height and CapturedAt are informational only; the engine never reads
	// them, but a real deployment's reference state carries them.
	Height     uint64
	CapturedAt time.Time
}

// TimeRelease is the only fulfillment mechanism this engine issues: a vault
// unlocks once the wall clock passes UnlockTime and a reference state whose
// hash appears in ReferenceStates is presented as proof.
type TimeRelease struct {
	UnlockTime      uint64
	ReferenceStates [][]byte
}

// TimeProof is the fulfillment proof presented at unlock time.
type TimeProof struct {
	ReferenceStateHash []byte
	StateProof         []byte
}

// Post is the serialised vault post returned by CreateVaultPost; its Status
// field seeds VaultMetadata.Status at creation time.
type Post struct {
	VaultID     string
	Description string
	ExpiresAt   uint64
	Status      string
}

// Adapter is the abstract interface to the underlying custody primitive.
// The engine treats every method as potentially-blocking I/O and never
// calls one while holding a registry or queue lock.
type Adapter interface {
	// CreateVault seals contentBytes under fulfillment and returns the
	// vault id assigned by the adapter.
	CreateVault(creator KeyPair, fulfillment TimeRelease, contentBytes []byte, contentType string, intendedRecipient []byte, referenceState ReferenceState) (string, error)

	// CreateVaultPost returns a serialised post whose Status seeds the
	// vault's metadata status.
	CreateVaultPost(vaultID string, description string, expiresAt uint64) (Post, error)

	// TryUnlockVault reports whether proof satisfies the vault's
	// fulfillment condition against referenceState.
	TryUnlockVault(vaultID string, proof TimeProof, claimant KeyPair, referenceState ReferenceState) (bool, error)

	// ClaimVaultContent returns the sealed content. Only valid after a
	// successful TryUnlockVault for the same vault id.
	ClaimVaultContent(vaultID string, claimant KeyPair, referenceState ReferenceState) ([]byte, error)
}
