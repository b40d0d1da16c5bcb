package rewardvault

import (
	"bytes"
	"encoding/binary"

	"github.com/zeebo/blake3"

	"github.com/tos-network/tos-pool/internal/vaulterr"
)

// ServicePeriod is the (start, end) window a Receipt attests service over.
type ServicePeriod struct {
	Start uint64
	End   uint64
}

// overlaps reports whether the period overlaps [queryStart, queryEnd).
func (p ServicePeriod) overlaps(queryStart, queryEnd uint64) bool {
	return p.Start < queryEnd && p.End > queryStart
}

// Receipt is a bilateral, signed attestation of storage service for a time
// window, content-hashed so duplicates and tampering are detectable.
type Receipt struct {
	NodeID          string
	ClientID        string
	ServicePeriod   ServicePeriod
	Metrics         StorageMetrics
	ReceiptHash     [32]byte
	ClientSignature []byte
	NodeSignature   []byte
}

// computeReceiptHash reproduces the BLAKE3 hash spec §3/§6 requires:
// node_id || client_id || LE64(start) || LE64(end) || canonical(metrics).
func computeReceiptHash(nodeID, clientID string, period ServicePeriod, metrics StorageMetrics) [32]byte {
	h := blake3.New()
	h.Write([]byte(nodeID))
	h.Write([]byte(clientID))

	var le [8]byte
	binary.LittleEndian.PutUint64(le[:], period.Start)
	h.Write(le[:])
	binary.LittleEndian.PutUint64(le[:], period.End)
	h.Write(le[:])

	h.Write(metrics.canonicalEncode())

	var out [32]byte
	sum := h.Sum(nil)
	copy(out[:], sum)
	return out
}

// NewReceipt builds a Receipt and stamps it with its deterministic hash.
// It does not validate signatures; that happens in Verify.
func NewReceipt(nodeID, clientID string, period ServicePeriod, metrics StorageMetrics, clientSig, nodeSig []byte) Receipt {
	return Receipt{
		NodeID:          nodeID,
		ClientID:        clientID,
		ServicePeriod:   period,
		Metrics:         metrics,
		ReceiptHash:     computeReceiptHash(nodeID, clientID, period, metrics),
		ClientSignature: clientSig,
		NodeSignature:   nodeSig,
	}
}

// Verify enforces spec §3/§4.4 acceptance rules: both signatures present,
// and the declared hash reproduces from the canonical encoding.
func (r Receipt) Verify() error {
	if len(r.ClientSignature) == 0 || len(r.NodeSignature) == 0 {
		return vaulterr.InvalidArgument("receipt missing signatures for node %q client %q", r.NodeID, r.ClientID)
	}

	want := computeReceiptHash(r.NodeID, r.ClientID, r.ServicePeriod, r.Metrics)
	if !bytes.Equal(want[:], r.ReceiptHash[:]) {
		return vaulterr.InvalidArgument("receipt hash mismatch for node %q client %q", r.NodeID, r.ClientID)
	}

	return nil
}
