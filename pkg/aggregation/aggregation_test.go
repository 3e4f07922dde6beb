package aggregation

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xaynetics/pet-coordinator/pkg/mask"
)

func cfg() mask.Config {
	return mask.NewConfig(mask.GroupInteger, mask.DataF32, mask.Bound6)
}

func TestAggregateAccumulatesComponentwise(t *testing.T) {
	agg := New(cfg(), 3)

	a := mask.NewMany(cfg(), []*big.Int{big.NewInt(1), big.NewInt(2), big.NewInt(3)})
	b := mask.NewMany(cfg(), []*big.Int{big.NewInt(10), big.NewInt(20), big.NewInt(30)})

	require.NoError(t, agg.ValidateAggregation(a))
	require.NoError(t, agg.ValidateAggregation(b))

	agg.Aggregate(a)
	agg.Aggregate(b)

	result := agg.IntoMaskObject()
	require.Equal(t, []*big.Int{big.NewInt(11), big.NewInt(22), big.NewInt(33)}, result.Data)
	require.Equal(t, 2, agg.Count)
}

func TestValidateAggregationRejectsSizeMismatch(t *testing.T) {
	agg := New(cfg(), 3)
	bad := mask.NewMany(cfg(), []*big.Int{big.NewInt(1)})
	require.ErrorIs(t, agg.ValidateAggregation(bad), ErrSizeMismatch)
}

func TestValidateAggregationRejectsConfigMismatch(t *testing.T) {
	agg := New(cfg(), 2)
	other := mask.NewConfig(mask.GroupPrime, mask.DataF32, mask.Bound6)
	bad := mask.NewMany(other, []*big.Int{big.NewInt(1), big.NewInt(2)})
	require.ErrorIs(t, agg.ValidateAggregation(bad), ErrConfigMismatch)
}

func TestUnmaskSubtractsModuloOrder(t *testing.T) {
	order := big.NewInt(100)
	sum := []*big.Int{big.NewInt(5), big.NewInt(3)}
	maskVals := []*big.Int{big.NewInt(10), big.NewInt(1)}

	out, err := Unmask(sum, maskVals, order)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(95), out[0])
	require.Equal(t, big.NewInt(2), out[1])
}

func TestUnmaskRejectsLengthMismatch(t *testing.T) {
	_, err := Unmask([]*big.Int{big.NewInt(1)}, []*big.Int{}, big.NewInt(10))
	require.ErrorIs(t, err, ErrSizeMismatch)
}
