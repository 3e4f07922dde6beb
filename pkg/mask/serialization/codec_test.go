package serialization

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xaynetics/pet-coordinator/pkg/mask"
)

func TestEncodeDecodeManyRoundTrip(t *testing.T) {
	cfg := mask.NewConfig(mask.GroupInteger, mask.DataF32, mask.Bound2)
	m := mask.NewMany(cfg, []*big.Int{big.NewInt(1), big.NewInt(2), big.NewInt(3)})

	buf := EncodeMany(m)
	n, err := ProbeManyLength(buf)
	require.NoError(t, err)
	require.Equal(t, len(buf), n)

	decoded, consumed, err := DecodeMany(buf, cfg)
	require.NoError(t, err)
	require.Equal(t, len(buf), consumed)
	require.Equal(t, m.Data, decoded.Data)
}

func TestDecodeManyBufferTooShort(t *testing.T) {
	cfg := mask.NewConfig(mask.GroupInteger, mask.DataF32, mask.Bound2)
	m := mask.NewMany(cfg, []*big.Int{big.NewInt(1), big.NewInt(2)})
	buf := EncodeMany(m)

	_, _, err := DecodeMany(buf[:len(buf)-1], cfg)
	require.ErrorIs(t, err, ErrBufferTooShort)
}

func TestDecodeManyConfigMismatch(t *testing.T) {
	cfg := mask.NewConfig(mask.GroupInteger, mask.DataF32, mask.Bound2)
	other := mask.NewConfig(mask.GroupPrime, mask.DataF32, mask.Bound2)
	m := mask.NewMany(cfg, []*big.Int{big.NewInt(1)})
	buf := EncodeMany(m)

	_, _, err := DecodeMany(buf, other)
	require.ErrorIs(t, err, ErrConfigMismatch)
}

func TestEncodeDecodeOneRoundTrip(t *testing.T) {
	cfg := mask.NewConfig(mask.GroupInteger, mask.DataI64, mask.Bound6)
	o := mask.NewOne(cfg, big.NewInt(42))

	buf := EncodeOne(o)
	decoded, consumed, err := DecodeOne(buf, cfg)
	require.NoError(t, err)
	require.Equal(t, len(buf), consumed)
	require.Equal(t, o.Data, decoded.Data)
}

func TestEncodeDecodeObjectRoundTrip(t *testing.T) {
	vectorCfg := mask.NewConfig(mask.GroupInteger, mask.DataF32, mask.Bound2)
	scalarCfg := mask.NewConfig(mask.GroupInteger, mask.DataF32, mask.Bound2)
	obj := mask.NewObject(
		mask.NewMany(vectorCfg, []*big.Int{big.NewInt(5), big.NewInt(6)}),
		mask.NewOne(scalarCfg, big.NewInt(7)),
	)

	buf := EncodeObject(obj)
	decoded, consumed, err := DecodeObject(buf, vectorCfg, scalarCfg)
	require.NoError(t, err)
	require.Equal(t, len(buf), consumed)
	require.True(t, obj.Equal(decoded))
}

func TestProbeOneLengthTooShort(t *testing.T) {
	_, err := ProbeOneLength(nil)
	require.ErrorIs(t, err, ErrBufferTooShort)
}
