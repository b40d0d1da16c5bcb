// Package rewardvault implements the custody-and-distribution pipeline for
// storage-node rewards: receipt verification, proportional reward
// accounting, and the Deterministic Limbo Vault lifecycle that escrows and
// releases tokens on a schedule.
package rewardvault

import (
	"context"
	"sync"
	"time"

	"github.com/tos-network/tos-pool/internal/dlv"
	"github.com/tos-network/tos-pool/internal/util"
	"github.com/tos-network/tos-pool/internal/vaulterr"
)

// Clock returns seconds-since-epoch. A real deployment wraps time.Now; a
// failing clock read is defined to return 0 per spec §6.
type Clock func() uint64

// RealClock is the production Clock.
func RealClock() uint64 { return uint64(time.Now().Unix()) }

// ResultChannelCapacity is the default bounded capacity of the result
// channel (spec §5/§6).
const ResultChannelCapacity = 100

// DefaultTickInterval is the scheduler's cadence (spec §4.8).
const DefaultTickInterval = 60 * time.Second

// DefaultRatioSumToleranceLow/High bound the accepted recipient ratio sum
// (spec invariant I1).
const (
	DefaultRatioSumToleranceLow  = 990_000
	DefaultRatioSumToleranceHigh = 1_010_000
)

// DefaultPostExpiryGrace is how long past a vault's distribution time its
// post remains valid (spec §6).
const DefaultPostExpiryGrace = 30 * 24 * time.Hour

// DefaultMaxDistributionRetries bounds how many times a distribution that
// fails with a dependency error is requeued before it is surfaced as a
// terminal failure (spec §9 retry policy).
const DefaultMaxDistributionRetries = 3

// DefaultRetryBackoff is how far past the current tick a requeued
// distribution's Timestamp is pushed before it becomes ready again.
const DefaultRetryBackoff = 5 * time.Minute

// Reporter receives telemetry about engine activity. internal/telemetry's
// VaultReporter satisfies this structurally; it is optional and a nil
// Reporter in Options disables reporting entirely.
type Reporter interface {
	RecordTick(attempted int, elapsed time.Duration)
	RecordDistribution(vaultID string, success bool, failureReason string)
	RecordVaultCreated(vaultID, tokenID string, recipientCount int)
}

// Options configures a RewardVaultManager. The zero value of every tuning
// field falls back to the spec-mandated default; Claimant has no default,
// and a nil Reporter disables reporting.
type Options struct {
	Clock                 Clock
	TickInterval          time.Duration
	ResultChannelCapacity int
	RatioSumToleranceLow  uint64
	RatioSumToleranceHigh uint64
	PostExpiryGrace       time.Duration
	Claimant              dlv.KeyPair
	RateSchedule          *RateSchedule
	Reporter              Reporter
	// MaxDistributionRetries caps how many times a distribution that fails
	// on a DLV dependency error is requeued before the failure is
	// published as terminal. Zero falls back to DefaultMaxDistributionRetries.
	MaxDistributionRetries int
	// RetryBackoff delays a requeued distribution's next attempt relative
	// to the tick that failed it.
	RetryBackoff time.Duration
}

func (o Options) withDefaults() Options {
	if o.Clock == nil {
		o.Clock = RealClock
	}
	if o.TickInterval <= 0 {
		o.TickInterval = DefaultTickInterval
	}
	if o.ResultChannelCapacity <= 0 {
		o.ResultChannelCapacity = ResultChannelCapacity
	}
	if o.RatioSumToleranceLow == 0 && o.RatioSumToleranceHigh == 0 {
		o.RatioSumToleranceLow = DefaultRatioSumToleranceLow
		o.RatioSumToleranceHigh = DefaultRatioSumToleranceHigh
	}
	if o.PostExpiryGrace <= 0 {
		o.PostExpiryGrace = DefaultPostExpiryGrace
	}
	if o.MaxDistributionRetries <= 0 {
		o.MaxDistributionRetries = DefaultMaxDistributionRetries
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = DefaultRetryBackoff
	}
	return o
}

// RewardVaultManager is the public facade composing the registries, queue,
// rate schedule, and distribution scheduler into the engine's API.
//
// The scheduler goroutine is a method on this type's pointer receiver and
// reaches the single shared queue/registries through that pointer — there
// is no clone-of-self path for a background task to observe a stale,
// independently-allocated queue.
type RewardVaultManager struct {
	adapter  dlv.Adapter
	registry *vaultRegistry
	receipts *receiptRegistry
	rates    *rateScheduleStore
	queue    *distributionQueue
	results  chan DistributionResult

	opts Options

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds a RewardVaultManager over adapter. It does not start the
// scheduler; call Initialize for that.
func New(adapter dlv.Adapter, opts Options) *RewardVaultManager {
	opts = opts.withDefaults()

	schedule := DefaultRateSchedule()
	if opts.RateSchedule != nil {
		schedule = *opts.RateSchedule
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &RewardVaultManager{
		adapter:  adapter,
		registry: newVaultRegistry(),
		receipts: newReceiptRegistry(),
		rates:    newRateScheduleStore(schedule),
		queue:    newDistributionQueue(),
		results:  make(chan DistributionResult, opts.ResultChannelCapacity),
		opts:     opts,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Initialize spawns the distribution scheduler (spec §4.8). Calling it
// twice spawns two schedulers racing over the same queue — that is a
// caller error, not guarded against, per spec §4.4 item 6.
func (m *RewardVaultManager) Initialize() error {
	util.Info("reward vault manager: starting distribution scheduler")
	m.wg.Add(1)
	go m.schedulerLoop()
	return nil
}

// Stop cancels the scheduler and waits for its current tick to finish.
// Outstanding queued requests are lost, matching spec §4.8's "no
// persistence across restarts" non-goal.
func (m *RewardVaultManager) Stop() {
	m.cancel()
	m.wg.Wait()
}

// Results returns the channel distribution outcomes are published on.
func (m *RewardVaultManager) Results() <-chan DistributionResult {
	return m.results
}

// now reads the injected clock, treating a nil clock (should not happen
// post-withDefaults) as a failed read mapping to 0 per spec §6.
func (m *RewardVaultManager) now() uint64 {
	if m.opts.Clock == nil {
		return 0
	}
	return m.opts.Clock()
}

// CreateRewardVaultParams groups create_reward_vault's inputs (spec §4.4.1).
type CreateRewardVaultParams struct {
	Creator           dlv.KeyPair
	TokenAmount       uint64
	TokenID           string
	DistributionTime  uint64
	Recipients        map[string]Ratio
	ReferenceState    ReferenceStateSnapshot
	// Purpose overrides the default "Reward distribution for <token>"
	// description recorded on the vault post (see SPEC_FULL.md §4).
	Purpose string
}

// CreateRewardVault seals token_amount behind a TimeRelease fulfillment,
// registers its metadata, and queues it for distribution. It aborts
// cleanly with no partial state on any failure (spec §7).
func (m *RewardVaultManager) CreateRewardVault(p CreateRewardVaultParams) (string, error) {
	if len(p.Recipients) == 0 {
		return "", vaulterr.InvalidArgument("recipients must be non-empty")
	}

	var ratioSum uint64
	for _, r := range p.Recipients {
		ratioSum += r.Raw()
	}
	if ratioSum < m.opts.RatioSumToleranceLow || ratioSum > m.opts.RatioSumToleranceHigh {
		return "", vaulterr.InvalidArgument(
			"recipient ratios must sum to ~1.0 (raw %d..%d), got %d",
			m.opts.RatioSumToleranceLow, m.opts.RatioSumToleranceHigh, ratioSum,
		)
	}

	content := VaultContent{
		TokenAmount: p.TokenAmount,
		TokenID:     p.TokenID,
		Recipients:  p.Recipients,
		Metadata:    map[string]string{},
	}
	contentBytes, err := encodeVaultContent(content)
	if err != nil {
		return "", err
	}

	fulfillment := dlv.TimeRelease{
		UnlockTime:      p.DistributionTime,
		ReferenceStates: [][]byte{p.ReferenceState.Hash},
	}

	referenceState := dlv.ReferenceState{Hash: p.ReferenceState.Hash, Height: p.ReferenceState.Height}

	vaultID, err := m.adapter.CreateVault(p.Creator, fulfillment, contentBytes, "application/reward-vault", nil, referenceState)
	if err != nil {
		return "", vaulterr.DependencyFailure(err, "create vault")
	}

	purpose := p.Purpose
	if purpose == "" {
		purpose = "Reward distribution for " + p.TokenID
	}

	expiresAt := p.DistributionTime + uint64(m.opts.PostExpiryGrace.Seconds())
	post, err := m.adapter.CreateVaultPost(vaultID, purpose, expiresAt)
	if err != nil {
		return "", vaulterr.DependencyFailure(err, "create vault post")
	}

	status := VaultStatusPending
	if post.Status != "" && post.Status != string(VaultStatusPending) {
		// The adapter seeded a different initial status. It is not carried
		// over: I2's transition graph starts only from pending, so the vault
		// is registered as pending regardless.
		status = VaultStatusPending
	}

	meta := VaultMetadata{
		VaultID:          vaultID,
		Purpose:          purpose,
		CreatorID:        util.BytesToHexNoPre(p.Creator.Public),
		TokenAmount:      p.TokenAmount,
		TokenID:          p.TokenID,
		CreatedAt:        m.now(),
		DistributionTime: p.DistributionTime,
		Recipients:       p.Recipients,
		Status:           status,
	}

	m.registry.insert(meta)
	m.queue.push(DistributionRequest{
		VaultID:        vaultID,
		ReferenceState: p.ReferenceState,
		Timestamp:      p.DistributionTime,
	})

	util.Infof("reward vault manager: created vault %s for %d recipients, distribution_time=%d", vaultID, len(p.Recipients), p.DistributionTime)
	if m.opts.Reporter != nil {
		m.opts.Reporter.RecordVaultCreated(vaultID, p.TokenID, len(p.Recipients))
	}
	return vaultID, nil
}

// ProcessReceipt verifies and persists a service receipt (spec §4.4.2).
func (m *RewardVaultManager) ProcessReceipt(receipt Receipt) error {
	if err := receipt.Verify(); err != nil {
		return err
	}
	m.receipts.append(receipt)
	return nil
}

// CalculateNodeRewards implements the reward calculation algorithm of
// spec §4.7.
func (m *RewardVaultManager) CalculateNodeRewards(nodeID string, periodStart, periodEnd uint64) uint64 {
	receipts := m.receipts.forNode(nodeID)
	if len(receipts) == 0 {
		return 0
	}

	schedule := m.rates.get()

	var total uint64
	for _, r := range receipts {
		if !r.ServicePeriod.overlaps(periodStart, periodEnd) {
			continue
		}

		start := maxUint64(periodStart, r.ServicePeriod.Start)
		end := minUint64(periodEnd, r.ServicePeriod.End)
		if end <= start {
			continue
		}
		duration := end - start

		base := schedule.Calculate(duration, r.Metrics.BytesStored, r.Metrics.Retrievals)

		uptimeFactor := (float64(r.Metrics.UptimePercentage) / 100.0) * schedule.UptimeMultiplier
		scaled := uint64(float64(base) * uptimeFactor)

		regionMultiplier := schedule.regionMultiplier(r.Metrics.SortedRegions())
		total += uint64(float64(scaled) * regionMultiplier)
	}

	return total
}

// CalculateNodeOperationBonus is the higher-level policy SPEC_FULL.md §4
// reinstates from the original implementation: operation_rate * operations
// over the overlap window. It is never folded into CalculateNodeRewards
// automatically.
func (m *RewardVaultManager) CalculateNodeOperationBonus(nodeID string, periodStart, periodEnd uint64) uint64 {
	receipts := m.receipts.forNode(nodeID)
	if len(receipts) == 0 {
		return 0
	}

	schedule := m.rates.get()

	var total uint64
	for _, r := range receipts {
		if !r.ServicePeriod.overlaps(periodStart, periodEnd) {
			continue
		}
		start := maxUint64(periodStart, r.ServicePeriod.Start)
		end := minUint64(periodEnd, r.ServicePeriod.End)
		if end <= start {
			continue
		}
		total += schedule.OperationRate * r.Metrics.OperationsCount
	}
	return total
}

// UpdateRateSchedule atomically replaces the active rate schedule.
func (m *RewardVaultManager) UpdateRateSchedule(schedule RateSchedule) {
	m.rates.set(schedule)
}

// GetVaults returns a snapshot of every registered vault's metadata.
func (m *RewardVaultManager) GetVaults() []VaultMetadata {
	return m.registry.list()
}

// GetVault returns one vault's metadata, or a not-found vaulterr.
func (m *RewardVaultManager) GetVault(vaultID string) (VaultMetadata, error) {
	return m.registry.get(vaultID)
}

func maxUint64(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}

func minUint64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}
