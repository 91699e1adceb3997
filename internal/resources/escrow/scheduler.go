package escrow

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/Ghravitee/dex-court-sub000/internal/lib"
)

var (
	ErrPlanLengthMismatch = errors.New("percentages and offsets must have the same length")
	ErrPlanEmpty          = errors.New("vesting plan must have at least one milestone")
	ErrPlanPercentage     = errors.New("invalid milestone percentage")
	ErrPlanOffset         = errors.New("invalid milestone offset")
	ErrPlanSum            = errors.New("milestone percentages must equal 100%")
)

// PlanMilestone is one entry of a proposed vesting plan before submission
type PlanMilestone struct {
	PercentBP int64
	Offset    time.Duration // from agreement start
}

// PercentToBasisPoints converts a human percentage string ("33.34") to
// basis points, rounding half up. The ledger only accepts integer basis
// points, so the rounding has to happen before validation
func PercentToBasisPoints(percent string) (int64, error) {
	p, err := strconv.ParseFloat(percent, 64)
	if err != nil {
		return 0, lib.WrapError(ErrPlanPercentage, err)
	}
	if p < 0 || math.IsNaN(p) || math.IsInf(p, 0) {
		return 0, lib.WrapError(ErrPlanPercentage, fmt.Errorf("percentage out of range: %s", percent))
	}
	return int64(math.Round(p * 100)), nil
}

// ValidatePlan checks a proposed vesting schedule before it is submitted.
// The ledger rejects a malformed plan anyway, but only after the fees for
// the doomed transaction are spent, so every rule is enforced locally
func ValidatePlan(percents []string, offsets []time.Duration, deadlineDuration time.Duration) ([]PlanMilestone, error) {
	if len(percents) != len(offsets) {
		return nil, ErrPlanLengthMismatch
	}
	if len(percents) == 0 {
		return nil, ErrPlanEmpty
	}

	plan := make([]PlanMilestone, len(percents))
	var sumBP int64

	for i, percent := range percents {
		bp, err := PercentToBasisPoints(percent)
		if err != nil {
			return nil, err
		}
		if bp <= 0 || bp > BasisPointsTotal {
			return nil, lib.WrapError(ErrPlanPercentage, fmt.Errorf("milestone %d: %d bps", i, bp))
		}
		if offsets[i] < 0 {
			return nil, lib.WrapError(ErrPlanOffset, fmt.Errorf("milestone %d: negative offset", i))
		}
		if offsets[i] > deadlineDuration {
			return nil, lib.WrapError(ErrPlanOffset, fmt.Errorf("milestone %d: offset %s exceeds agreement duration %s", i, offsets[i], deadlineDuration))
		}
		sumBP += bp
		plan[i] = PlanMilestone{PercentBP: bp, Offset: offsets[i]}
	}

	if sumBP != BasisPointsTotal {
		return nil, lib.WrapError(ErrPlanSum, fmt.Errorf("got %d bps", sumBP))
	}

	return plan, nil
}
