package numbering

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNext_Format(t *testing.T) {
	num := Next("PUR")
	parts := strings.Split(num, "-")
	assert.Len(t, parts, 3)
	assert.Equal(t, "PUR", parts[0])
	assert.Len(t, parts[1], 8)
	assert.Len(t, parts[2], 8)
}

func TestNext_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		num := Next("SAL")
		assert.False(t, seen[num])
		seen[num] = true
	}
}
