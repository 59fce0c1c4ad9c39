package adjustment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kardex/internal/core/id"
	"kardex/internal/core/types"
	"kardex/internal/domain/ledger"
)

func TestAdjustment_ValidateRejectsZeroDelta(t *testing.T) {
	doc := NewAdjustment(id.New())
	doc.AddLine(id.New(), types.MustDecimal("0"), types.MustDecimal("1.00"))
	assert.Error(t, doc.Validate(context.Background()))
}

func TestAdjustment_ValidateRejectsDuplicateProduct(t *testing.T) {
	doc := NewAdjustment(id.New())
	productID := id.New()
	doc.AddLine(productID, types.MustDecimal("5"), types.MustDecimal("1.00"))
	doc.AddLine(productID, types.MustDecimal("-2"), types.Zero())
	assert.Error(t, doc.Validate(context.Background()))
}

func TestAdjustment_GenerateApplications_SplitsDirections(t *testing.T) {
	storeID := id.New()
	doc := NewAdjustment(storeID)
	doc.AddLine(id.New(), types.MustDecimal("5"), types.MustDecimal("2.00"))
	doc.AddLine(id.New(), types.MustDecimal("-3"), types.Zero())

	reqs, err := doc.GenerateApplications(context.Background())
	require.NoError(t, err)
	require.Len(t, reqs, 2)

	// Write-ons run before write-offs.
	assert.Equal(t, ledger.DirectionIn, reqs[0].Direction)
	assert.Equal(t, ledger.DirectionOut, reqs[1].Direction)

	require.Len(t, reqs[1].Items, 1)
	// Item quantities are always positive; direction carries the sign.
	assert.True(t, reqs[1].Items[0].Quantity.Equal(types.MustDecimal("3")))
}
