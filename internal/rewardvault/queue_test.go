package rewardvault

import "testing"

func TestDistributionQueuePartition(t *testing.T) {
	q := newDistributionQueue()
	q.push(DistributionRequest{VaultID: "v1", Timestamp: 100})
	q.push(DistributionRequest{VaultID: "v2", Timestamp: 200})
	q.push(DistributionRequest{VaultID: "v3", Timestamp: 50})

	ready := q.partition(100)
	if len(ready) != 2 {
		t.Fatalf("partition(100) returned %d ready, want 2", len(ready))
	}
	if ready[0].VaultID != "v1" || ready[1].VaultID != "v3" {
		t.Fatalf("partition did not preserve insertion order: %+v", ready)
	}

	if q.len() != 1 {
		t.Fatalf("queue.len() = %d, want 1", q.len())
	}

	remaining := q.partition(200)
	if len(remaining) != 1 || remaining[0].VaultID != "v2" {
		t.Fatalf("remaining request not returned on later partition: %+v", remaining)
	}
	if q.len() != 0 {
		t.Fatalf("queue.len() = %d, want 0", q.len())
	}
}

func TestDistributionQueueRequeue(t *testing.T) {
	q := newDistributionQueue()
	req := DistributionRequest{VaultID: "v1", Timestamp: 100}
	q.push(req)

	ready := q.partition(100)
	if len(ready) != 1 {
		t.Fatalf("expected one ready request, got %d", len(ready))
	}

	q.requeue(ready[0])
	if q.len() != 1 {
		t.Fatalf("requeue did not restore pending entry: len=%d", q.len())
	}
}
