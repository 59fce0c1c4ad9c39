package transfer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kardex/internal/core/id"
	"kardex/internal/core/types"
	"kardex/internal/domain/ledger"
)

func TestTransfer_ValidateRejectsSameStore(t *testing.T) {
	storeID := id.New()
	doc := NewTransfer(storeID, storeID)
	doc.AddLine(id.New(), types.MustDecimal("1"))
	assert.Error(t, doc.Validate(context.Background()))
}

func TestTransfer_GenerateApplications_OutLegFirst(t *testing.T) {
	source, dest := id.New(), id.New()
	doc := NewTransfer(source, dest)
	productID := id.New()
	doc.AddLine(productID, types.MustDecimal("4"))

	reqs, err := doc.GenerateApplications(context.Background())
	require.NoError(t, err)
	require.Len(t, reqs, 2)

	assert.Equal(t, ledger.DirectionOut, reqs[0].Direction)
	assert.Equal(t, source, reqs[0].Items[0].StoreID)

	assert.Equal(t, ledger.DirectionIn, reqs[1].Direction)
	inItem := reqs[1].Items[0]
	assert.Equal(t, dest, inItem.StoreID)
	// The in leg prices the goods off the source store's valuation.
	require.NotNil(t, inItem.CostFromStore)
	assert.Equal(t, source, *inItem.CostFromStore)
}
