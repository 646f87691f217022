package chain

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToWei(t *testing.T) {
	assert.Equal(t, "1000000000000000000", ToWei(1).String())
	assert.Equal(t, "250000000000000000", ToWei(0.25).String())
	assert.Equal(t, "0", ToWei(-1).String())
	assert.Equal(t, "0", ToWei(0).String())
}

func TestFormatEther(t *testing.T) {
	tests := []struct {
		wei  *big.Int
		want string
	}{
		{nil, "0"},
		{big.NewInt(0), "0"},
		{ToWei(1), "1"},
		{big.NewInt(1_500_000_000_000_000_000), "1.5"},
		{big.NewInt(1), "0.000000000000000001"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatEther(tt.wei))
	}
}

func TestToEther(t *testing.T) {
	assert.InDelta(t, 2.5, ToEther(big.NewInt(2_500_000_000_000_000_000)), 1e-12)
	assert.Equal(t, 0.0, ToEther(nil))
}
