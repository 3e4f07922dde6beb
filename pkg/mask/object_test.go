package mask

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return NewConfig(GroupInteger, DataF32, Bound2)
}

func TestManyValid(t *testing.T) {
	cfg := testConfig()
	order := cfg.Order()

	valid := NewMany(cfg, []*big.Int{big.NewInt(0), new(big.Int).Sub(order, big.NewInt(1))})
	require.True(t, valid.IsValid())

	invalid := NewMany(cfg, []*big.Int{order})
	require.False(t, invalid.IsValid())
}

func TestNewManyCheckedRejectsOutOfRange(t *testing.T) {
	cfg := testConfig()
	order := cfg.Order()

	_, err := NewManyChecked(cfg, []*big.Int{order})
	require.ErrorIs(t, err, ErrInvalidMaskObject)
}

func TestEmptyManyIsZeroAndValid(t *testing.T) {
	cfg := testConfig()
	m := EmptyMany(cfg, 4)
	require.Len(t, m.Data, 4)
	require.True(t, m.IsValid())
	for _, v := range m.Data {
		require.Equal(t, 0, v.Sign())
	}
}

func TestManyFromOne(t *testing.T) {
	cfg := testConfig()
	one := NewOne(cfg, big.NewInt(7))
	many := ManyFromOne(one)
	require.Equal(t, cfg, many.Config)
	require.Len(t, many.Data, 1)
	require.Equal(t, big.NewInt(7), many.Data[0])
}

func TestObjectEqualityIsStructural(t *testing.T) {
	cfg := testConfig()
	a := NewObject(NewMany(cfg, []*big.Int{big.NewInt(1), big.NewInt(2)}), NewOne(cfg, big.NewInt(3)))
	b := NewObject(NewMany(cfg, []*big.Int{big.NewInt(1), big.NewInt(2)}), NewOne(cfg, big.NewInt(3)))
	c := NewObject(NewMany(cfg, []*big.Int{big.NewInt(1), big.NewInt(9)}), NewOne(cfg, big.NewInt(3)))

	require.True(t, a.Equal(b))
	require.False(t, a.Equal(c))
}

func TestPrimeGroupOrderIsPrime(t *testing.T) {
	cfg := NewConfig(GroupPrime, DataI32, Bound0)
	order := cfg.Order()
	require.True(t, order.ProbablyPrime(20))

	integerOrder := NewConfig(GroupInteger, DataI32, Bound0).Order()
	require.True(t, order.Cmp(integerOrder) >= 0)
}
