package services

import "testing"

func TestPlatformFeeRate(t *testing.T) {
	cases := []struct {
		votes int64
		rate  float64
	}{
		{1, 0.05},
		{9, 0.05},
		{10, 0.04},
		{19, 0.04},
		{20, 0.03},
		{49, 0.03},
		{50, 0.02},
		{99, 0.02},
		{100, 0.015},
		{500, 0.015},
	}
	for _, tc := range cases {
		if got := PlatformFeeRate(tc.votes); got != tc.rate {
			t.Errorf("PlatformFeeRate(%d) = %v, want %v", tc.votes, got, tc.rate)
		}
	}
}

func TestTotalChargeMinor(t *testing.T) {
	// 10 votes at 2.00 with the 4% tier: 10*2.00*1.04 = 20.80
	if got := TotalChargeMinor(2.00, 10); got != 2080 {
		t.Errorf("TotalChargeMinor(2.00, 10) = %d, want 2080", got)
	}
	// single vote keeps the 5% base rate: 1*2.00*1.05 = 2.10
	if got := TotalChargeMinor(2.00, 1); got != 210 {
		t.Errorf("TotalChargeMinor(2.00, 1) = %d, want 210", got)
	}
	// 100 votes at 1.50 with 1.5%: 150*1.015 = 152.25
	if got := TotalChargeMinor(1.50, 100); got != 15225 {
		t.Errorf("TotalChargeMinor(1.50, 100) = %d, want 15225", got)
	}
}
