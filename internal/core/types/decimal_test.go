package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeQuantity(t *testing.T) {
	assert.Equal(t, "1.234", NormalizeQuantity(MustDecimal("1.23449")).String())
	assert.Equal(t, "1.235", NormalizeQuantity(MustDecimal("1.2345")).String())
	assert.Equal(t, "-0.001", NormalizeQuantity(MustDecimal("-0.0009")).String())
}

func TestNormalizeMoney(t *testing.T) {
	assert.Equal(t, "10.03", NormalizeMoney(MustDecimal("10.0333")).String())
	assert.Equal(t, "10.04", NormalizeMoney(MustDecimal("10.035")).String())
}

func TestNormalizedComparisonIgnoresSubPrecisionNoise(t *testing.T) {
	a := MustDecimal("15.0001")
	b := MustDecimal("14.9999")
	assert.False(t, a.Equal(b))
	assert.True(t, NormalizeMoney(a).Equal(NormalizeMoney(b)))
}
