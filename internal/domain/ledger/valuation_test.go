package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"kardex/internal/core/types"
)

func TestNewCost_BlendsWeightedAverage(t *testing.T) {
	// 10 @ 10.00 on hand, receive 10 @ 20.00 -> 15.00
	cost := NewCost(qty("10"), money("10.00"), qty("10"), money("20.00"))
	assert.True(t, cost.Equal(money("15.00")), "got %s", cost)
}

func TestNewCost_UnevenQuantities(t *testing.T) {
	// 10 @ 10.00 + 5 @ 16.00 = 180 / 15 = 12.00
	cost := NewCost(qty("10"), money("10.00"), qty("5"), money("16.00"))
	assert.True(t, cost.Equal(money("12.00")), "got %s", cost)
}

func TestNewCost_RoundsToMoneyPrecision(t *testing.T) {
	// 3 @ 10.00 + 1 @ 11.00 = 41 / 4 = 10.25; 1 @ 10.00 + 2 @ 10.05 -> 10.0333... -> 10.03
	cost := NewCost(qty("1"), money("10.00"), qty("2"), money("10.05"))
	assert.True(t, cost.Equal(money("10.03")), "got %s", cost)
}

func TestNewCost_RestartsFromZeroBalance(t *testing.T) {
	// Empty balance: the stale cost is not blended in.
	cost := NewCost(types.Zero(), money("99.00"), qty("5"), money("20.00"))
	assert.True(t, cost.Equal(money("20.00")), "got %s", cost)
}

func TestNewCost_RestartsFromNegativeBalance(t *testing.T) {
	cost := NewCost(qty("-3"), money("50.00"), qty("10"), money("20.00"))
	assert.True(t, cost.Equal(money("20.00")), "got %s", cost)
}

func TestNewCost_ZeroTotalPreservesPreviousCost(t *testing.T) {
	cost := NewCost(qty("5"), money("12.00"), qty("-5"), money("0"))
	assert.True(t, cost.Equal(money("12.00")), "got %s", cost)
}

func TestAffectsCost(t *testing.T) {
	assert.True(t, MovementPurchase.AffectsCost())
	assert.True(t, MovementTransferIn.AffectsCost())
	assert.True(t, MovementAdjustment.AffectsCost())
	assert.True(t, MovementReturn.AffectsCost())
	assert.False(t, MovementSale.AffectsCost())
	assert.False(t, MovementTransferOut.AffectsCost())
}
