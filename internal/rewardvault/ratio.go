package rewardvault

import (
	"encoding/json"

	"github.com/tos-network/tos-pool/internal/vaulterr"
)

// ratioScale is the fixed-point granularity: 10^6, i.e. 6 decimal digits.
const ratioScale = 1_000_000

// Ratio is a fixed-point rational in [0, 1] with 6-decimal precision,
// backed by an unsigned integer raw in [0, ratioScale]. Ratios are value
// objects and are freely copied.
type Ratio struct {
	raw uint64
}

// NewRatio constructs a Ratio from a real value in [0, 1], truncating to
// the nearest 10^-6. It fails for values outside that range.
func NewRatio(value float64) (Ratio, error) {
	if value < 0 || value > 1 {
		return Ratio{}, vaulterr.InvalidArgument("ratio must be between 0.0 and 1.0, got %v", value)
	}
	return Ratio{raw: uint64(value * ratioScale)}, nil
}

// RatioFromRaw constructs a Ratio directly from a raw unit count, failing
// if it falls outside [0, ratioScale].
func RatioFromRaw(raw uint64) (Ratio, error) {
	if raw > ratioScale {
		return Ratio{}, vaulterr.InvalidArgument("ratio raw value must be <= %d, got %d", ratioScale, raw)
	}
	return Ratio{raw: raw}, nil
}

// Raw returns the underlying fixed-point value.
func (r Ratio) Raw() uint64 { return r.raw }

// Float64 converts the ratio back to a real number.
func (r Ratio) Float64() float64 { return float64(r.raw) / ratioScale }

// ApplyTo computes floor(v * raw / ratioScale) in widened arithmetic so it
// never overflows for v up to math.MaxUint64.
func (r Ratio) ApplyTo(v uint64) uint64 {
	product := new(bigUint128).mul(v, r.raw)
	return product.div(ratioScale)
}

// MarshalJSON renders the ratio as its raw fixed-point value so
// VaultContent's canonical encoding round-trips byte-for-byte (R1).
func (r Ratio) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.raw)
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (r *Ratio) UnmarshalJSON(data []byte) error {
	var raw uint64
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.raw = raw
	return nil
}
