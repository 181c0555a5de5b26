package helpers

import "math"

func ToCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func FromCents(cents int64) float64 {
	return float64(cents) / 100
}

func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// SplitDeposit splits fare into a deposit of percent% and the balance due.
// The split is done in cents so deposit+balance always equals the fare.
func SplitDeposit(fare, percent float64) (deposit, balance float64) {
	total := ToCents(fare)
	dep := int64(math.Round(float64(total) * percent / 100))
	if dep > total {
		dep = total
	}
	if dep < 0 {
		dep = 0
	}
	return FromCents(dep), FromCents(total - dep)
}
