package vault

import (
	"errors"
	"math/big"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrNothingToDistribute is returned when a vault has no active stake or an empty reward pool.
var ErrNothingToDistribute = errors.New("nothing to distribute")

var bpsDenominator = decimal.NewFromInt(10000)

// Share is one staker's part of a reward distribution.
type Share struct {
	UserID uuid.UUID
	Amount decimal.Decimal
}

// SplitRewards computes the reward pool (treasury * bps / 10000) and splits it
// pro rata over active stakes. Every amount is truncated to Scale places, so
// the distributed total never exceeds the pool; the remainder stays in the
// treasury. Stakers whose share truncates to zero are omitted.
func SplitRewards(treasury decimal.Decimal, bps int, stakes []Stake) (decimal.Decimal, []Share, error) {
	pool := treasury.Mul(decimal.NewFromInt(int64(bps))).Div(bpsDenominator).Truncate(Scale)
	if !pool.IsPositive() {
		return decimal.Zero, nil, ErrNothingToDistribute
	}

	total := decimal.Zero
	for _, s := range stakes {
		if s.Status == StakeActive && s.Amount.IsPositive() {
			total = total.Add(s.Amount)
		}
	}
	if !total.IsPositive() {
		return decimal.Zero, nil, ErrNothingToDistribute
	}

	// Work in integer units of 10^-Scale so each share is floored exactly.
	poolUnits := pool.Shift(Scale).BigInt()
	totalUnits := total.Shift(Scale).BigInt()

	distributed := decimal.Zero
	var shares []Share
	for _, s := range stakes {
		if s.Status != StakeActive || !s.Amount.IsPositive() {
			continue
		}
		units := new(big.Int).Mul(poolUnits, s.Amount.Shift(Scale).BigInt())
		units.Quo(units, totalUnits)
		amount := decimal.NewFromBigInt(units, -Scale)
		if !amount.IsPositive() {
			continue
		}
		shares = append(shares, Share{UserID: s.UserID, Amount: amount})
		distributed = distributed.Add(amount)
	}
	if len(shares) == 0 {
		return decimal.Zero, nil, ErrNothingToDistribute
	}

	return distributed, shares, nil
}

// CanTransition reports whether a withdrawal may move from one status to another.
func CanTransition(from, to string) bool {
	switch from {
	case WithdrawalPending:
		return to == WithdrawalProcessing || to == WithdrawalRejected
	case WithdrawalProcessing:
		return to == WithdrawalCompleted || to == WithdrawalRejected
	}
	return false
}

// ValidAmount reports whether d is a positive amount below MaxAmount with at
// most Scale decimal places.
func ValidAmount(d decimal.Decimal) bool {
	return d.IsPositive() && d.LessThan(MaxAmount) && d.Equal(d.Truncate(Scale))
}
