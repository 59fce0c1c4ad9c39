package purchase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kardex/internal/core/id"
	"kardex/internal/core/types"
	"kardex/internal/domain/ledger"
)

func TestPurchase_AddLineRecalculatesTotals(t *testing.T) {
	doc := NewPurchase(id.New(), id.New())
	doc.AddLine(id.New(), types.MustDecimal("10"), types.MustDecimal("10.00"))
	doc.AddLine(id.New(), types.MustDecimal("2.5"), types.MustDecimal("4.00"))

	assert.True(t, doc.TotalQuantity.Equal(types.MustDecimal("12.5")))
	assert.True(t, doc.TotalAmount.Equal(types.MustDecimal("110.00")))
	assert.Equal(t, 2, doc.Lines[1].LineNo)
}

func TestPurchase_ValidateRejectsBadLines(t *testing.T) {
	doc := NewPurchase(id.New(), id.New())
	assert.Error(t, doc.Validate(context.Background()), "no lines")

	doc.AddLine(id.New(), types.MustDecimal("0"), types.MustDecimal("10.00"))
	assert.Error(t, doc.Validate(context.Background()), "zero quantity")

	doc.Lines = nil
	doc.AddLine(id.New(), types.MustDecimal("1"), types.MustDecimal("-1.00"))
	assert.Error(t, doc.Validate(context.Background()), "negative price")
}

func TestPurchase_GenerateApplications(t *testing.T) {
	storeID := id.New()
	doc := NewPurchase(id.New(), storeID)
	doc.AddLine(id.New(), types.MustDecimal("10"), types.MustDecimal("10.00"))

	reqs, err := doc.GenerateApplications(context.Background())
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	assert.Equal(t, ledger.DirectionIn, reqs[0].Direction)
	assert.Equal(t, DocumentType, reqs[0].DocumentType)
	require.Len(t, reqs[0].Items, 1)
	assert.Equal(t, ledger.MovementPurchase, reqs[0].Items[0].Type)
	assert.Equal(t, storeID, reqs[0].Items[0].StoreID)
}
