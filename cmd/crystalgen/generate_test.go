package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jask/crystalgen/internal/composition"
	"github.com/jask/crystalgen/internal/config"
	"github.com/jask/crystalgen/internal/genapi"
	"github.com/jask/crystalgen/internal/generation"
)

func TestParseElements(t *testing.T) {
	t.Parallel()

	got, err := parseElements([]string{"Fe=1", " O = 2.5", "Ti"})
	require.NoError(t, err)
	require.Equal(t, []composition.Entry{{Element: "Fe", Amount: 1}, {Element: "O", Amount: 2.5}, {Element: "Ti", Amount: 1}}, got)

	for _, bad := range []string{"=1", "Fe=", "Fe=-1", "Fe=abc", "Fe=inf", "Fe=+Inf", "Fe=NaN", "Fe=0"} {
		_, err := parseElements([]string{bad})
		require.Error(t, err, bad)
	}
}

func TestBuildCompositionPresetThenFlags(t *testing.T) {
	t.Parallel()

	m, err := buildComposition(composition.DefaultElements, config.Config{}, "tio₂", []string{"O=3", "Fe=1"})
	require.NoError(t, err)
	require.Equal(t, map[string]float64{"Ti": 1, "O": 3, "Fe": 1}, m.Map())

	m, err = buildComposition(composition.DefaultElements, config.Config{}, "", nil)
	require.NoError(t, err)
	require.Zero(t, m.Len())
}

func TestBuildCompositionRejectsUnknown(t *testing.T) {
	t.Parallel()

	_, err := buildComposition(composition.DefaultElements, config.Config{}, "", []string{"Fo=1"})
	require.ErrorContains(t, err, `unknown element "Fo"`)
	require.ErrorContains(t, err, "did you mean")

	_, err = buildComposition(composition.DefaultElements, config.Config{}, "Unobtainium", nil)
	require.ErrorContains(t, err, "unknown preset")

	_, err = buildComposition([]string{"Fe", "O"}, config.Config{}, "NaCl", nil)
	require.ErrorContains(t, err, "unknown elements: Na, Cl")
}

func TestPrintSummary(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	printSummary(&buf, &generation.Structure{
		Formula:    "Na4Cl4",
		SpaceGroup: 225,
		Lattice:    &genapi.Lattice{A: 5.64, B: 5.64, C: 5.64, Alpha: 90, Beta: 90, Gamma: 90, Volume: 179.406144},
		Atoms:      make([]genapi.Atom, 8),
	})
	out := buf.String()
	require.Contains(t, out, "Formula:     Na4Cl4")
	require.Contains(t, out, "Space group: 225")
	require.Contains(t, out, "Atoms:       8")
	require.Contains(t, out, "179.406")
	require.Contains(t, out, "5.640, 5.640, 5.640")
	require.Contains(t, out, "90.0°")
}

func TestOrDefault(t *testing.T) {
	t.Parallel()

	require.Equal(t, 225, orDefault(0, 225))
	require.Equal(t, 12, orDefault(12, 225))
}
