package model

import (
	"time"

	"github.com/shopspring/decimal"

	"couponnet/pkg/errors"
)

// RewardTier awards Points when a consumer's cumulative qualifying count
// exactly equals Count. Tiers are cliffs, not cumulative sums.
type RewardTier struct {
	Count  int64 `bson:"count" json:"count"`
	Points int64 `bson:"points" json:"points"`
}

// LevelSchedule configures per-level payouts for a fixed-depth walk. A
// non-zero fixed amount takes precedence over the percent at the same
// level; a level with neither pays nothing.
type LevelSchedule struct {
	Levels            int       `bson:"levels" json:"levels"`
	FixedAmountsPaise []int64   `bson:"fixed_amounts_paise" json:"fixed_amounts_paise"`
	Percents          []float64 `bson:"percents" json:"percents"`
}

var hundred = decimal.NewFromInt(100)

// AmountAt returns the paise payout for level (1-based) against basePaise.
// Percent amounts round half-up to a whole paisa.
func (ls LevelSchedule) AmountAt(level int, basePaise int64) int64 {
	if level < 1 || level > ls.Levels {
		return 0
	}
	if fixed := ls.FixedAmountsPaise[level-1]; fixed > 0 {
		return fixed
	}
	pct := ls.Percents[level-1]
	if pct <= 0 {
		return 0
	}
	return decimal.NewFromFloat(pct).
		Mul(decimal.NewFromInt(basePaise)).
		Div(hundred).
		Round(0).
		IntPart()
}

func (ls LevelSchedule) validate(name string) error {
	if ls.Levels <= 0 {
		return errors.Validation("%s: levels must be positive", name)
	}
	if len(ls.FixedAmountsPaise) != ls.Levels {
		return errors.Validation("%s: fixed amounts length %d, want %d", name, len(ls.FixedAmountsPaise), ls.Levels)
	}
	if len(ls.Percents) != ls.Levels {
		return errors.Validation("%s: percents length %d, want %d", name, len(ls.Percents), ls.Levels)
	}
	for i, a := range ls.FixedAmountsPaise {
		if a < 0 {
			return errors.Validation("%s: negative fixed amount at level %d", name, i+1)
		}
	}
	for i, p := range ls.Percents {
		if p < 0 || p > 100 {
			return errors.Validation("%s: percent out of range at level %d", name, i+1)
		}
	}
	return nil
}

// Schedule is one versioned snapshot of every admin-configurable rate. The
// engines load exactly one snapshot per event and never reload
// mid-calculation.
type Schedule struct {
	Version            int64                      `bson:"version" json:"version"`
	Pools              map[PoolType]LevelSchedule `bson:"pools" json:"pools"`
	Generations        LevelSchedule              `bson:"generations" json:"generations"`
	RewardTiers        []RewardTier               `bson:"reward_tiers" json:"reward_tiers"`
	BaseCount          int64                      `bson:"base_count" json:"base_count"`
	PerCouponPoints    int64                      `bson:"per_coupon_points" json:"per_coupon_points"`
	TaxPercent         float64                    `bson:"tax_percent" json:"tax_percent"`
	RedemptionFeePaise int64                      `bson:"redemption_fee_paise" json:"redemption_fee_paise"`
	CreatedAt          time.Time                  `bson:"created_at" json:"created_at"`
}

// GenerationLevels is how many sponsor generations earn referral
// commission on a qualifying event.
const GenerationLevels = 5

// Validate checks internal consistency. Called when an administrator
// stores a schedule; award paths trust the stored snapshot.
func (s *Schedule) Validate() error {
	for _, pool := range []PoolType{ThreeMatrix, FiveMatrix} {
		ls, ok := s.Pools[pool]
		if !ok {
			return errors.Validation("schedule missing pool %s", pool)
		}
		if err := ls.validate(string(pool)); err != nil {
			return err
		}
	}
	if s.Generations.Levels != GenerationLevels {
		return errors.Validation("generation schedule must have %d levels", GenerationLevels)
	}
	if err := s.Generations.validate("generations"); err != nil {
		return err
	}

	var maxTier int64
	seen := make(map[int64]bool, len(s.RewardTiers))
	prev := int64(0)
	for i, t := range s.RewardTiers {
		if t.Count <= 0 {
			return errors.Validation("reward tier %d: count must be positive", i)
		}
		if seen[t.Count] {
			return errors.Validation("reward tier count %d duplicated", t.Count)
		}
		if t.Count <= prev {
			return errors.Validation("reward tiers must be ordered by ascending count")
		}
		seen[t.Count] = true
		prev = t.Count
		if t.Count > maxTier {
			maxTier = t.Count
		}
	}
	if s.BaseCount < maxTier {
		return errors.Validation("base count %d below highest tier count %d", s.BaseCount, maxTier)
	}
	if s.PerCouponPoints < 0 {
		return errors.Validation("per-coupon points must not be negative")
	}
	if s.TaxPercent < 0 || s.TaxPercent > 100 {
		return errors.Validation("tax percent out of range")
	}
	if s.RedemptionFeePaise < 0 {
		return errors.Validation("redemption fee must not be negative")
	}
	return nil
}

// TierFor returns the tier whose count exactly equals n, if any.
func (s *Schedule) TierFor(n int64) (RewardTier, bool) {
	for _, t := range s.RewardTiers {
		if t.Count == n {
			return t, true
		}
		if t.Count > n {
			break
		}
	}
	return RewardTier{}, false
}

// NetOf applies the snapshot tax rate to a gross paise amount, rounding
// half-up to a whole paisa.
func (s *Schedule) NetOf(grossPaise int64) int64 {
	if s.TaxPercent == 0 {
		return grossPaise
	}
	return decimal.NewFromInt(grossPaise).
		Mul(hundred.Sub(decimal.NewFromFloat(s.TaxPercent))).
		Div(hundred).
		Round(0).
		IntPart()
}

// DefaultSchedule is the seed configuration installed on first boot:
// 6-level 5-matrix, 15-level 3-matrix, 5 generations, the observed ₹10
// redemption fee, and no withholding.
func DefaultSchedule() *Schedule {
	fiveFixed := []int64{50_00, 30_00, 20_00, 10_00, 0, 0}
	fivePct := []float64{0, 0, 0, 0, 2.5, 1.25}
	threeFixed := make([]int64, 15)
	threePct := make([]float64, 15)
	threeFixed[0] = 10_00
	threeFixed[1] = 5_00
	for i := 2; i < 15; i++ {
		threePct[i] = 1
	}
	return &Schedule{
		Version: 1,
		Pools: map[PoolType]LevelSchedule{
			FiveMatrix:  {Levels: 6, FixedAmountsPaise: fiveFixed, Percents: fivePct},
			ThreeMatrix: {Levels: 15, FixedAmountsPaise: threeFixed, Percents: threePct},
		},
		Generations: LevelSchedule{
			Levels:            GenerationLevels,
			FixedAmountsPaise: []int64{20_00, 10_00, 5_00, 0, 0},
			Percents:          []float64{0, 0, 0, 2, 1},
		},
		RewardTiers: []RewardTier{
			{Count: 5, Points: 50},
			{Count: 15, Points: 200},
			{Count: 30, Points: 500},
		},
		BaseCount:          30,
		PerCouponPoints:    10,
		TaxPercent:         0,
		RedemptionFeePaise: 10_00,
		CreatedAt:          time.Now(),
	}
}
