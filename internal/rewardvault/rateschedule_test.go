package rewardvault

import "testing"

func TestRateScheduleCalculate(t *testing.T) {
	s := DefaultRateSchedule()

	// One full day, 1000 bytes, 2 retrievals: 100*1000*1 + 10*2 = 100020.
	got := s.Calculate(secondsPerDay, 1000, 2)
	if got != 100020 {
		t.Fatalf("Calculate = %d, want 100020", got)
	}
}

func TestRateScheduleCalculatePartialDay(t *testing.T) {
	s := DefaultRateSchedule()

	// Half a day, 1000 bytes, 0 retrievals: floor(100*1000*0.5) = 50000.
	got := s.Calculate(secondsPerDay/2, 1000, 0)
	if got != 50000 {
		t.Fatalf("Calculate = %d, want 50000", got)
	}
}

func TestRegionMultiplier(t *testing.T) {
	s := DefaultRateSchedule()
	s.RegionMultipliers = map[string]float64{"us-east": 1.5, "eu-west": 0.8}

	got := s.regionMultiplier([]string{"us-east", "eu-west"})
	want := 1.5 * 0.8
	if got != want {
		t.Fatalf("regionMultiplier = %v, want %v", got, want)
	}

	if got := s.regionMultiplier([]string{"unknown-region"}); got != 1.0 {
		t.Fatalf("regionMultiplier(unknown) = %v, want 1.0", got)
	}
}

func TestRateScheduleStore(t *testing.T) {
	store := newRateScheduleStore(DefaultRateSchedule())

	updated := DefaultRateSchedule()
	updated.BaseRatePerByteDay = 500
	store.set(updated)

	if got := store.get().BaseRatePerByteDay; got != 500 {
		t.Fatalf("store.get().BaseRatePerByteDay = %d, want 500", got)
	}
}
