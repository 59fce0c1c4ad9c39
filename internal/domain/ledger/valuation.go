package ledger

import (
	"kardex/internal/core/types"
)

// NewCost computes the weighted-average cost after an incoming movement:
//
//	(qtyBefore*costBefore + qtyIn*priceIn) / (qtyBefore + qtyIn)
//
// Only invoked for stock-increasing movements; pure outgoing movements
// (sales, transfer-out) never change the average cost.
//
// Two edge cases are pinned here:
//   - Restocking from an empty or negative balance restarts the average
//     at the incoming price; a stale or negative-quantity-poisoned cost
//     is not blended in.
//   - If the resulting total quantity is exactly zero the previous cost
//     is preserved, so it still describes the cost of the last unit for
//     audit purposes.
//
// The result is normalized to monetary storage precision.
func NewCost(qtyBefore types.Quantity, costBefore types.Money, qtyIn types.Quantity, priceIn types.Money) types.Money {
	if qtyBefore.Sign() <= 0 {
		return types.NormalizeMoney(priceIn)
	}

	total := qtyBefore.Add(qtyIn)
	if total.IsZero() {
		return costBefore
	}

	value := qtyBefore.Mul(costBefore).Add(qtyIn.Mul(priceIn))
	return types.NormalizeMoney(value.Div(total))
}
