package services

import "math"

// PlatformFeeRate returns the platform's cut for a purchase of n votes.
// Larger bundles earn a lower rate.
func PlatformFeeRate(n int64) float64 {
	switch {
	case n >= 100:
		return 0.015
	case n >= 50:
		return 0.02
	case n >= 20:
		return 0.03
	case n >= 10:
		return 0.04
	default:
		return 0.05
	}
}

// TotalChargeMinor computes the full charge for n votes at costPerVote major
// currency units, platform fee included, rounded to minor units.
func TotalChargeMinor(costPerVote float64, n int64) int64 {
	base := costPerVote * float64(n)
	total := base * (1 + PlatformFeeRate(n))
	return int64(math.Round(total * 100))
}
