package rewardvault

import "math/bits"

// bigUint128 is a minimal 128-bit unsigned integer used to widen
// Ratio.ApplyTo's intermediate product so v*raw never overflows for v up
// to math.MaxUint64.
type bigUint128 struct {
	hi, lo uint64
}

func (u *bigUint128) mul(a, b uint64) *bigUint128 {
	hi, lo := bits.Mul64(a, b)
	u.hi, u.lo = hi, lo
	return u
}

// div divides the 128-bit value by a small uint64 divisor and returns the
// truncated uint64 quotient. divisor must be <= math.MaxUint64 and the
// true quotient must fit in 64 bits, which holds for every call site here
// since divisor is the fixed ratioScale constant.
func (u *bigUint128) div(divisor uint64) uint64 {
	q, _ := bits.Div64(u.hi, u.lo, divisor)
	return q
}
