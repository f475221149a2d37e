package composition

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddReplacesExistingElement(t *testing.T) {
	t.Parallel()

	m := New(DefaultElements, Entry{"Fe", 1}, Entry{"O", 1})
	require.True(t, m.Add("Fe", 3))
	require.Equal(t, []Entry{{"Fe", 3}, {"O", 1}}, m.Entries())
	require.Equal(t, 2, m.Len())
}

func TestAddAppendsInInsertionOrder(t *testing.T) {
	t.Parallel()

	m := New(DefaultElements)
	require.True(t, m.Add("Ti", 1))
	require.True(t, m.Add("O", 2))
	require.True(t, m.Add("Na", 0.5))
	require.Equal(t, []Entry{{"Ti", 1}, {"O", 2}, {"Na", 0.5}}, m.Entries())
}

func TestAddIgnoresInvalidInput(t *testing.T) {
	t.Parallel()

	m := New(DefaultElements)
	require.False(t, m.Add("", 1))
	require.False(t, m.Add("   ", 1))
	require.False(t, m.Add("Xx", 1))
	require.False(t, m.Add("U", 1), "uranium is not in the built-in list")
	require.False(t, m.Add("Fe", 0))
	require.False(t, m.Add("Fe", -2))
	require.False(t, m.Add("Fe", math.Inf(1)))
	require.False(t, m.Add("Fe", math.Inf(-1)))
	require.False(t, m.Add("Fe", math.NaN()))
	require.Zero(t, m.Len())
}

func TestRemove(t *testing.T) {
	t.Parallel()

	m := New(DefaultElements, Entry{"Fe", 1}, Entry{"O", 1}, Entry{"Ti", 2})
	require.False(t, m.Remove(-1))
	require.False(t, m.Remove(3))
	require.True(t, m.Remove(1))
	require.Equal(t, []Entry{{"Fe", 1}, {"Ti", 2}}, m.Entries())
}

func TestRemoveDoesNotAliasEntries(t *testing.T) {
	t.Parallel()

	m := New(DefaultElements, Entry{"Fe", 1}, Entry{"O", 1}, Entry{"Ti", 2})
	before := m.Entries()
	require.True(t, m.Remove(0))
	require.Equal(t, []Entry{{"Fe", 1}, {"O", 1}, {"Ti", 2}}, before)
}

func TestApplyPresetOverwrites(t *testing.T) {
	t.Parallel()

	m := New(DefaultElements, Entry{"Fe", 1}, Entry{"O", 1})
	m.ApplyPreset([]Entry{{"Si", 1}, {"O", 2}, {"Si", 4}})
	require.Equal(t, []Entry{{"Si", 4}, {"O", 2}}, m.Entries())
}

func TestApplyPresetSkipsUnknownAndNonFinite(t *testing.T) {
	t.Parallel()

	m := New([]string{"Fe", "O", "Ti"})
	skipped := m.ApplyPreset([]Entry{{"Fe", 1}, {"Xx", 2}, {"O", math.Inf(1)}, {"Ti", math.NaN()}, {"U", 1}})
	require.Equal(t, []string{"Xx", "U"}, skipped)
	require.Equal(t, []Entry{{"Fe", 1}}, m.Entries())

	require.Empty(t, m.ApplyPreset([]Entry{{"Ti", 1}, {"O", 2}}))
	require.Equal(t, map[string]float64{"Ti": 1, "O": 2}, m.Map())
}

func TestValidAmount(t *testing.T) {
	t.Parallel()

	require.True(t, ValidAmount(0.25))
	require.True(t, ValidAmount(3))
	for _, a := range []float64{0, -1, math.Inf(1), math.Inf(-1), math.NaN()} {
		require.False(t, ValidAmount(a), "%v", a)
	}
}

func TestMapKeysAreUniqueForAnyEditOrder(t *testing.T) {
	t.Parallel()

	m := New(DefaultElements)
	ops := []struct {
		el  string
		amt float64
	}{
		{"Fe", 1}, {"O", 1}, {"Fe", 2}, {"O", 3}, {"Fe", 4}, {"Na", 1}, {"Na", 1},
	}
	for _, op := range ops {
		m.Add(op.el, op.amt)
		mp := m.Map()
		require.Len(t, mp, m.Len())
	}
	require.Equal(t, map[string]float64{"Fe": 4, "O": 3, "Na": 1}, m.Map())
}

func TestSetKnownKeepsEntries(t *testing.T) {
	t.Parallel()

	m := New(DefaultElements, Entry{"Fe", 1})
	m.SetKnown([]string{"U", "Pu"})
	require.Equal(t, []Entry{{"Fe", 1}}, m.Entries())
	require.True(t, m.Add("U", 1))
	require.False(t, m.Add("O", 1))
	require.True(t, m.Known("Pu"))
}
