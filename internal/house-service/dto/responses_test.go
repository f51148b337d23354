package dto

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDisplay(t *testing.T) {
	assert.Equal(t, "1.500000", Display(1_500_000, 6))
	assert.Equal(t, "0.000001", Display(1, 6))
	assert.Equal(t, "42", Display(42, 0))
	assert.Equal(t, "18446744073709.551615", Display(^uint64(0), 6))
}

func TestWinRate(t *testing.T) {
	assert.Equal(t, "0.0000", WinRate(0, 0))
	assert.Equal(t, "0.5000", WinRate(2, 4))
	assert.Equal(t, "0.3333", WinRate(1, 3))
	assert.Equal(t, "1.0000", WinRate(7, 7))
}
