package executor

import "predictarb/internal/money"

// CalculateImbalance returns |yesShares - noShares|, the signed difference
// between a market's two legs collapsed to magnitude.
func CalculateImbalance(yesShares, noShares money.Size) money.Size {
	if yesShares.LessThan(noShares) {
		return noShares.Sub(yesShares)
	}
	return yesShares.Sub(noShares)
}

// CalculateSafeSellAmount caps a rebalance sell at the venue-reported
// balance, preventing "insufficient balance" errors from optimistic
// accounting.
func CalculateSafeSellAmount(imbalance, actualBalance money.Size) money.Size {
	return imbalance.Min(actualBalance)
}
