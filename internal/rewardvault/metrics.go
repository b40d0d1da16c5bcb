package rewardvault

import (
	"bytes"
	"encoding/binary"
	"sort"
)

// StorageMetrics captures the service-quality signals a receipt attests to.
type StorageMetrics struct {
	BytesStored      uint64
	Retrievals       uint64
	OperationsCount  uint64
	UptimePercentage uint8
	Regions          map[string]struct{}
}

// NewStorageMetrics builds a StorageMetrics from a region slice, de-duping
// into the internal set representation.
func NewStorageMetrics(bytesStored, retrievals, operations uint64, uptimePercentage uint8, regions []string) StorageMetrics {
	set := make(map[string]struct{}, len(regions))
	for _, r := range regions {
		set[r] = struct{}{}
	}
	return StorageMetrics{
		BytesStored:      bytesStored,
		Retrievals:       retrievals,
		OperationsCount:  operations,
		UptimePercentage: uptimePercentage,
		Regions:          set,
	}
}

// SortedRegions returns the region set as a lexicographically sorted slice,
// the canonical ordering used for hashing (spec §6).
func (m StorageMetrics) SortedRegions() []string {
	regions := make([]string, 0, len(m.Regions))
	for r := range m.Regions {
		regions = append(regions, r)
	}
	sort.Strings(regions)
	return regions
}

// canonicalEncode produces the deterministic, field-ordered byte encoding
// of m used for receipt_hash (VaultContent is serialized separately, as JSON):
// bytes_stored, retrievals, operations_count, uptime_percentage, then a
// length-prefixed sorted sequence of UTF-8 region strings.
func (m StorageMetrics) canonicalEncode() []byte {
	var buf bytes.Buffer

	var u64 [8]byte
	binary.LittleEndian.PutUint64(u64[:], m.BytesStored)
	buf.Write(u64[:])
	binary.LittleEndian.PutUint64(u64[:], m.Retrievals)
	buf.Write(u64[:])
	binary.LittleEndian.PutUint64(u64[:], m.OperationsCount)
	buf.Write(u64[:])
	buf.WriteByte(m.UptimePercentage)

	regions := m.SortedRegions()
	var u32 [4]byte
	binary.LittleEndian.PutUint32(u32[:], uint32(len(regions)))
	buf.Write(u32[:])
	for _, r := range regions {
		binary.LittleEndian.PutUint32(u32[:], uint32(len(r)))
		buf.Write(u32[:])
		buf.WriteString(r)
	}

	return buf.Bytes()
}
