package dict

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xaynetics/pet-coordinator/pkg/mask"
)

func TestSumDictOverwritesByDefault(t *testing.T) {
	d := NewSumDict[string]()
	require.NoError(t, d.Insert("pk1", "ephm1", false))
	require.NoError(t, d.Insert("pk1", "ephm2", false))
	require.Equal(t, "ephm2", d["pk1"])
}

func TestSumDictRejectsDuplicateWhenConfigured(t *testing.T) {
	d := NewSumDict[string]()
	require.NoError(t, d.Insert("pk1", "ephm1", true))
	err := d.Insert("pk1", "ephm2", true)
	require.ErrorIs(t, err, ErrDuplicateParticipant)
}

func TestSeedDictPrePopulatesEmptyInnerMaps(t *testing.T) {
	sum := NewSumDict[string]()
	require.NoError(t, sum.Insert("s1", "e1", false))
	require.NoError(t, sum.Insert("s2", "e2", false))

	seed := NewSeedDict[string](sum)
	require.Len(t, seed, 2)
	require.Contains(t, seed, "s1")
	require.Contains(t, seed, "s2")
	require.Empty(t, seed["s1"])
}

func TestAddLocalSeedDictValidatesKeySet(t *testing.T) {
	sum := NewSumDict[string]()
	require.NoError(t, sum.Insert("s1", "e1", false))
	require.NoError(t, sum.Insert("s2", "e2", false))
	frozen := sum.Freeze()

	seed := NewSeedDict[string](frozen)

	err := seed.AddLocalSeedDict("u1", map[string][]byte{"s1": {1}}, frozen)
	require.ErrorIs(t, err, ErrUnknownSumKeys)

	err = seed.AddLocalSeedDict("u1", map[string][]byte{"s1": {1}, "nope": {2}}, frozen)
	require.ErrorIs(t, err, ErrUnknownSumKeys)

	err = seed.AddLocalSeedDict("u1", map[string][]byte{"s1": {1}, "s2": {2}}, frozen)
	require.NoError(t, err)
	require.Equal(t, 1, seed.UpdaterCount())

	err = seed.AddLocalSeedDict("u1", map[string][]byte{"s1": {3}, "s2": {4}}, frozen)
	require.ErrorIs(t, err, ErrUpdaterAlreadySeeded)
}

func TestMaskDictModeBreaksTiesByFirstSeen(t *testing.T) {
	cfg := mask.NewConfig(mask.GroupInteger, mask.DataF32, mask.Bound2)
	first := mask.NewObject(mask.NewMany(cfg, []*big.Int{big.NewInt(1)}), mask.NewOne(cfg, big.NewInt(1)))
	second := mask.NewObject(mask.NewMany(cfg, []*big.Int{big.NewInt(2)}), mask.NewOne(cfg, big.NewInt(1)))

	d := NewMaskDict()
	d.Increment(first)
	d.Increment(second)

	mode, ok := d.Mode()
	require.True(t, ok)
	require.True(t, mode.Equal(first))
}

func TestMaskDictModePicksHighestCount(t *testing.T) {
	cfg := mask.NewConfig(mask.GroupInteger, mask.DataF32, mask.Bound2)
	first := mask.NewObject(mask.NewMany(cfg, []*big.Int{big.NewInt(1)}), mask.NewOne(cfg, big.NewInt(1)))
	second := mask.NewObject(mask.NewMany(cfg, []*big.Int{big.NewInt(2)}), mask.NewOne(cfg, big.NewInt(1)))

	d := NewMaskDict()
	d.Increment(first)
	d.Increment(second)
	d.Increment(second)

	mode, ok := d.Mode()
	require.True(t, ok)
	require.True(t, mode.Equal(second))
}

func TestMaskDictMaxCountTracksTheMode(t *testing.T) {
	cfg := mask.NewConfig(mask.GroupInteger, mask.DataF32, mask.Bound2)
	first := mask.NewObject(mask.NewMany(cfg, []*big.Int{big.NewInt(1)}), mask.NewOne(cfg, big.NewInt(1)))
	second := mask.NewObject(mask.NewMany(cfg, []*big.Int{big.NewInt(2)}), mask.NewOne(cfg, big.NewInt(1)))

	d := NewMaskDict()
	require.Equal(t, 0, d.MaxCount())

	d.Increment(first)
	d.Increment(second)
	require.Equal(t, 1, d.MaxCount())

	d.Increment(second)
	require.Equal(t, 2, d.MaxCount())
}

func TestMaskDictIsEmptyInitially(t *testing.T) {
	d := NewMaskDict()
	require.True(t, d.IsEmpty())
	_, ok := d.Mode()
	require.False(t, ok)
}
