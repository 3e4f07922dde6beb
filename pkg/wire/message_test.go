package wire

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xaynetics/pet-coordinator/pkg/crypto"
	"github.com/xaynetics/pet-coordinator/pkg/mask"
)

func TestSumRoundTrip(t *testing.T) {
	pk, _, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	var sig crypto.Signature
	sig[0] = 9

	buf := EncodeSum(pk, SumBody{SumSignature: sig, EphemeralPK: pk})
	env, body, err := DecodeSum(buf)
	require.NoError(t, err)
	require.Equal(t, KindSum, env.Kind)
	require.Equal(t, pk, env.ParticipantPK)
	require.Equal(t, sig, body.SumSignature)
	require.Equal(t, pk, body.EphemeralPK)
}

func TestUpdateRoundTrip(t *testing.T) {
	pk, _, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	otherPk, _, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	cfg := mask.NewConfig(mask.GroupInteger, mask.DataF32, mask.Bound2)
	body := UpdateBody{
		LocalSeedDict: map[crypto.PublicKey][]byte{otherPk: {1, 2, 3}},
		MaskedModel:   mask.NewMany(cfg, []*big.Int{big.NewInt(11), big.NewInt(22)}),
		MaskedScalar:  mask.NewOne(cfg, big.NewInt(3)),
	}

	buf := EncodeUpdate(pk, body)
	env, decoded, err := DecodeUpdate(buf, cfg, cfg)
	require.NoError(t, err)
	require.Equal(t, KindUpdate, env.Kind)
	require.Equal(t, pk, env.ParticipantPK)
	require.Equal(t, []byte{1, 2, 3}, decoded.LocalSeedDict[otherPk])
	require.Equal(t, body.MaskedModel.Data, decoded.MaskedModel.Data)
	require.Equal(t, body.MaskedScalar.Data, decoded.MaskedScalar.Data)
}

func TestSum2RoundTrip(t *testing.T) {
	pk, _, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	cfg := mask.NewConfig(mask.GroupInteger, mask.DataF32, mask.Bound2)
	obj := mask.NewObject(mask.NewMany(cfg, []*big.Int{big.NewInt(5)}), mask.NewOne(cfg, big.NewInt(6)))

	buf := EncodeSum2(pk, Sum2Body{ModelMask: obj})
	env, decoded, err := DecodeSum2(buf, cfg, cfg)
	require.NoError(t, err)
	require.Equal(t, KindSum2, env.Kind)
	require.True(t, obj.Equal(decoded.ModelMask))
}

func TestPeekKindRejectsUnknown(t *testing.T) {
	_, err := PeekKind([]byte{9})
	require.ErrorIs(t, err, ErrUnknownKind)
}

func TestPeekKindRejectsEmpty(t *testing.T) {
	_, err := PeekKind(nil)
	require.ErrorIs(t, err, ErrBufferTooShort)
}
