package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"kardex/internal/core/entity"
	"kardex/internal/core/id"
)

type mockDocument struct {
	entity.Document
	StoreID id.ID  `db:"store_id" json:"storeId"`
	Note    string `db:"note" json:"note"`
	Skipped string `db:"-" json:"skipped"`
}

func TestExtractDBColumns_FlattensEmbedded(t *testing.T) {
	cols := ExtractDBColumns[mockDocument]()

	for _, expected := range []string{
		"id", "deletion_mark", "version", "created_at", "updated_at",
		"number", "date", "status", "comment", "store_id", "note",
	} {
		assert.Contains(t, cols, expected)
	}
	assert.NotContains(t, cols, "-")
	assert.NotContains(t, cols, "skipped")
}

func TestExtractDBColumns_PointerType(t *testing.T) {
	assert.Equal(t, ExtractDBColumns[mockDocument](), ExtractDBColumns[*mockDocument]())
}

func TestStructToMap_FlattensEmbedded(t *testing.T) {
	doc := mockDocument{
		StoreID: id.New(),
		Note:    "count shelf 4",
		Skipped: "not persisted",
	}
	doc.Document = entity.Document{BaseDocument: entity.NewBaseDocument(), Number: "ADJ-1", Status: entity.StatusDraft}

	m := StructToMap(doc)

	assert.Equal(t, doc.ID, m["id"])
	assert.Equal(t, "ADJ-1", m["number"])
	assert.Equal(t, entity.StatusDraft, m["status"])
	assert.Equal(t, doc.StoreID, m["store_id"])
	assert.Equal(t, "count shelf 4", m["note"])
	_, ok := m["skipped"]
	assert.False(t, ok)
}
