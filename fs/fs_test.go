package fs

import (
	"os"
	"path"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSecureDirAlreadyHere(t *testing.T) {
	tmpPath := path.Join(os.TempDir(), "pet-coordinator-config")
	os.Mkdir(tmpPath, 0740)
	defer os.RemoveAll(tmpPath)
	fpath := CreateSecureFolder(tmpPath)
	require.NotNil(t, fpath)

	npath := CreateSecureFolder(tmpPath)
	require.Equal(t, fpath, npath)
	b, e := Exists(npath)
	require.True(t, b)
	require.NoError(t, e)
	b, e = Exists(path.Join(tmpPath, "blou"))
	require.False(t, b)
	require.NoError(t, e)

	file := path.Join(tmpPath, "secured")
	f, err := CreateSecureFile(file)
	require.NotNil(t, f)
	require.NoError(t, err)

	exists, err := Exists(file)
	require.NoError(t, err)
	require.True(t, exists)
}
