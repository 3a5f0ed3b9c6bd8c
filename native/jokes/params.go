package jokes

import (
	"fmt"
	"math/big"
)

const moduleName = "jokes"

// Params captures the numeric policy of the joke ledger.
type Params struct {
	MaxJokesPerUser      uint64
	VotingPeriodSeconds  int64
	ApprovalThreshold    uint64
	LockPeriodSeconds    int64
	CooldownPeriodSecs   int64
	ValuePerVote         *big.Int
	DevaluationBps       uint64
	FusionMultiplier     uint64
	ExchangeToleranceBps uint64
	// Score at which a joke reaches GROAN, CRINGE and LEGENDARY.
	TierThresholds [3]uint64
}

// DefaultParams returns the policy the ledger ships with.
func DefaultParams() Params {
	return Params{
		MaxJokesPerUser:      4,
		VotingPeriodSeconds:  3600,
		ApprovalThreshold:    2,
		LockPeriodSeconds:    600,
		CooldownPeriodSecs:   900,
		ValuePerVote:         big.NewInt(10_000_000_000_000),
		DevaluationBps:       1_000,
		FusionMultiplier:     2,
		ExchangeToleranceBps: 1_000,
		TierThresholds:       [3]uint64{2, 4, 7},
	}
}

// Validate checks the parameters for internal consistency.
func (p Params) Validate() error {
	if p.MaxJokesPerUser == 0 {
		return fmt.Errorf("jokes params: max jokes per user must be positive")
	}
	if p.VotingPeriodSeconds <= 0 {
		return fmt.Errorf("jokes params: voting period must be positive")
	}
	if p.ApprovalThreshold == 0 {
		return fmt.Errorf("jokes params: approval threshold must be positive")
	}
	if p.LockPeriodSeconds < 0 || p.CooldownPeriodSecs < 0 {
		return fmt.Errorf("jokes params: lock and cooldown periods must not be negative")
	}
	if p.ValuePerVote == nil || p.ValuePerVote.Sign() < 0 {
		return fmt.Errorf("jokes params: value per vote must not be negative")
	}
	if p.DevaluationBps > 10_000 {
		return fmt.Errorf("jokes params: devaluation bps above 10000")
	}
	if p.FusionMultiplier == 0 {
		return fmt.Errorf("jokes params: fusion multiplier must be positive")
	}
	if p.ExchangeToleranceBps > 10_000 {
		return fmt.Errorf("jokes params: exchange tolerance bps above 10000")
	}
	prev := uint64(0)
	for i, threshold := range p.TierThresholds {
		if threshold == 0 || threshold <= prev {
			return fmt.Errorf("jokes params: tier threshold %d must be positive and increasing", i)
		}
		prev = threshold
	}
	return nil
}

// TierFor returns the tier earned by score alone.
func (p Params) TierFor(score uint64) Tier {
	tier := TierBasic
	for i, threshold := range p.TierThresholds {
		if score >= threshold {
			tier = Tier(i + 1)
		}
	}
	return tier
}

// ValueFor returns the joke value implied by score.
func (p Params) ValueFor(score uint64) *big.Int {
	unit := p.ValuePerVote
	if unit == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Mul(new(big.Int).SetUint64(score), unit)
}

// Devalue returns value reduced by DevaluationBps.
func (p Params) Devalue(value *big.Int) *big.Int {
	if value == nil || value.Sign() <= 0 {
		return big.NewInt(0)
	}
	cut := new(big.Int).Mul(value, new(big.Int).SetUint64(p.DevaluationBps))
	cut.Quo(cut, big.NewInt(10_000))
	return new(big.Int).Sub(value, cut)
}

// WithinTolerance reports whether two aggregate values are close enough to be
// exchanged: |a-b| must not exceed ExchangeToleranceBps of the larger side.
func (p Params) WithinTolerance(a, b *big.Int) bool {
	if a == nil {
		a = big.NewInt(0)
	}
	if b == nil {
		b = big.NewInt(0)
	}
	larger := a
	if b.Cmp(a) > 0 {
		larger = b
	}
	diff := new(big.Int).Sub(a, b)
	diff.Abs(diff)
	lhs := new(big.Int).Mul(diff, big.NewInt(10_000))
	rhs := new(big.Int).Mul(larger, new(big.Int).SetUint64(p.ExchangeToleranceBps))
	return lhs.Cmp(rhs) <= 0
}
