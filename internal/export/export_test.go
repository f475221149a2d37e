package export

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jask/crystalgen/internal/generation"
)

const cif = "data_Fe4O4\n_symmetry_space_group_name_H-M 'F m -3 m'\n_cell_length_a 4.300\n"

func TestCIFArtifactNameAndContent(t *testing.T) {
	t.Parallel()

	a, err := CIF(&generation.Structure{Formula: "Fe4O4", SpaceGroup: 225, CIF: cif})
	require.NoError(t, err)
	require.Equal(t, "Fe4O4_sg225.cif", a.Name)
	require.Equal(t, cif, a.Content)
}

func TestCIFUnavailable(t *testing.T) {
	t.Parallel()

	_, err := CIF(nil)
	require.ErrorIs(t, err, ErrNoCIF)
	_, err = CIF(&generation.Structure{Formula: "NaCl", SpaceGroup: 225})
	require.ErrorIs(t, err, ErrNoCIF)
	require.False(t, Available(&generation.Structure{Formula: "NaCl"}))
	require.True(t, Available(&generation.Structure{CIF: cif}))
}

func TestWriteReplacesAtomically(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "out")
	a := Artifact{Name: "Ti2O4_sg136.cif", Content: "data_first\n"}
	path, err := Write(dir, a)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "Ti2O4_sg136.cif"), path)

	a.Content = "data_second\n"
	_, err = Write(dir, a)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "data_second\n", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestSafeName(t *testing.T) {
	t.Parallel()

	require.Equal(t, "structure", safeName(" "))
	require.Equal(t, "a_b", safeName("a/b"))
	require.Equal(t, "Si2O4", safeName("Si2O4"))
}
