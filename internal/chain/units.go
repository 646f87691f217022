package chain

import (
	"math"
	"math/big"
)

var weiPerEther = new(big.Float).SetInt(big.NewInt(1_000_000_000_000_000_000))

// ToWei converts an amount of the native currency to wei, truncating below
// one wei. Non-finite or negative amounts convert to zero.
func ToWei(amount float64) *big.Int {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return new(big.Int)
	}
	f := new(big.Float).SetPrec(256).SetFloat64(amount)
	f.Mul(f, weiPerEther)
	wei, _ := f.Int(nil)
	return wei
}

// ToEther converts wei to a float amount of the native currency.
func ToEther(wei *big.Int) float64 {
	if wei == nil {
		return 0
	}
	f := new(big.Float).SetPrec(256).SetInt(wei)
	f.Quo(f, weiPerEther)
	v, _ := f.Float64()
	return v
}

// FormatEther renders wei as a decimal string with trailing zeros removed.
func FormatEther(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	r := new(big.Rat).SetFrac(wei, big.NewInt(1_000_000_000_000_000_000))
	s := r.FloatString(18)
	if i := len(s); i > 0 {
		for i > 0 && s[i-1] == '0' {
			i--
		}
		if i > 0 && s[i-1] == '.' {
			i--
		}
		s = s[:i]
	}
	if s == "" || s == "-" {
		return "0"
	}
	return s
}
