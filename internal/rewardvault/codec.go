package rewardvault

import (
	"encoding/json"

	"github.com/tos-network/tos-pool/internal/vaulterr"
)

// vaultContentWire is VaultContent's wire shape. encoding/json sorts map
// keys when marshaling, which combined with Ratio's raw-value MarshalJSON
// gives the deterministic, byte-identical-for-identical-inputs encoding
// spec §6 requires of VaultContent without hand-rolling a length-prefixed
// codec.
type vaultContentWire struct {
	TokenAmount uint64            `json:"token_amount"`
	TokenID     string            `json:"token_id"`
	Recipients  map[string]Ratio  `json:"recipients"`
	Metadata    map[string]string `json:"metadata"`
}

// encodeVaultContent produces the deterministic byte encoding handed to
// the DLV adapter as sealed content.
func encodeVaultContent(c VaultContent) ([]byte, error) {
	wire := vaultContentWire{
		TokenAmount: c.TokenAmount,
		TokenID:     c.TokenID,
		Recipients:  c.Recipients,
		Metadata:    c.Metadata,
	}
	data, err := json.Marshal(wire)
	if err != nil {
		return nil, vaulterr.Serialization(err, "encode vault content")
	}
	return data, nil
}

// decodeVaultContent is the inverse of encodeVaultContent, used after a
// successful claim.
func decodeVaultContent(data []byte) (VaultContent, error) {
	var wire vaultContentWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return VaultContent{}, vaulterr.Serialization(err, "decode vault content")
	}
	return VaultContent{
		TokenAmount: wire.TokenAmount,
		TokenID:     wire.TokenID,
		Recipients:  wire.Recipients,
		Metadata:    wire.Metadata,
	}, nil
}
