package rewardvault

import "sync"

// RateSchedule is the parameterised reward formula applied to a node's
// receipts. It is mutated only under rateScheduleStore's exclusive lock.
type RateSchedule struct {
	BaseRatePerByteDay uint64
	RetrievalRate      uint64
	OperationRate      uint64
	UptimeMultiplier   float64
	RegionMultipliers  map[string]float64
}

// DefaultRateSchedule matches the §6 configuration default
// {100, 10, 5, 1.0, ∅}.
func DefaultRateSchedule() RateSchedule {
	return RateSchedule{
		BaseRatePerByteDay: 100,
		RetrievalRate:      10,
		OperationRate:      5,
		UptimeMultiplier:   1.0,
		RegionMultipliers:  map[string]float64{},
	}
}

const secondsPerDay = 86_400

// Calculate returns
// floor(base_rate_per_byte_day * bytes * (duration_secs/86400)) + retrieval_rate*retrievals,
// per spec §4.2. The storage component is computed in real arithmetic for
// the day fraction and then truncated; operation_rate is intentionally not
// folded in here (see RewardVaultManager.CalculateNodeOperationBonus).
func (s RateSchedule) Calculate(durationSecs, bytesStored, retrievals uint64) uint64 {
	days := float64(durationSecs) / secondsPerDay
	storageReward := uint64(float64(s.BaseRatePerByteDay) * float64(bytesStored) * days)
	retrievalReward := s.RetrievalRate * retrievals
	return storageReward + retrievalReward
}

// regionMultiplier returns the product of region multipliers for the given
// regions, treating an unknown region's multiplier as 1.0.
func (s RateSchedule) regionMultiplier(regions []string) float64 {
	multiplier := 1.0
	for _, region := range regions {
		if m, ok := s.RegionMultipliers[region]; ok {
			multiplier *= m
		}
	}
	return multiplier
}

// rateScheduleStore guards a RateSchedule behind a reader/writer lock; many
// readers are permitted concurrently, writers (UpdateRateSchedule) are
// exclusive.
type rateScheduleStore struct {
	mu       sync.RWMutex
	schedule RateSchedule
}

func newRateScheduleStore(initial RateSchedule) *rateScheduleStore {
	return &rateScheduleStore{schedule: initial}
}

func (s *rateScheduleStore) get() RateSchedule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.schedule
}

func (s *rateScheduleStore) set(schedule RateSchedule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schedule = schedule
}
