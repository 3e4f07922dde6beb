package aggregation

import "math/big"

// Unmask subtracts the winning mask componentwise from the aggregated sum,
// reducing modulo order at each position, and returns the resulting
// cleartext integers. sum and combinedMask must have the same length.
func Unmask(sum []*big.Int, combinedMask []*big.Int, order *big.Int) ([]*big.Int, error) {
	if len(sum) != len(combinedMask) {
		return nil, ErrSizeMismatch
	}

	out := make([]*big.Int, len(sum))
	for i := range sum {
		v := new(big.Int).Sub(sum[i], combinedMask[i])
		v.Mod(v, order)
		out[i] = v
	}
	return out, nil
}
