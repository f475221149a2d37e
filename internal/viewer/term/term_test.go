package term

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jask/crystalgen/internal/viewer"
)

const feo = `8
Fe4O4 generated
Fe 0.000 0.000 0.000
Fe 2.150 2.150 0.000
Fe 2.150 0.000 2.150
Fe 0.000 2.150 2.150
O  2.150 0.000 0.000
O  0.000 2.150 0.000
O  0.000 0.000 2.150
O  2.150 2.150 2.150
`

func TestParseXYZ(t *testing.T) {
	t.Parallel()

	atoms, err := parseXYZ(feo)
	require.NoError(t, err)
	require.Len(t, atoms, 8)
	require.Equal(t, "O", atoms[7].Element)
	require.InDelta(t, 2.15, atoms[7].Pos[2], 1e-9)

	_, err = parseXYZ("3\ncomment\nFe 0 0 0\n")
	require.ErrorContains(t, err, "header says 3")
	_, err = parseXYZ("x\n\n")
	require.ErrorContains(t, err, "invalid atom count")
	_, err = parseXYZ("1\n\nFe 0 zero 0\n")
	require.ErrorContains(t, err, "bad coordinate")
}

func TestBondsUseCovalentRadii(t *testing.T) {
	t.Parallel()

	atoms, err := parseXYZ(feo)
	require.NoError(t, err)
	b := bonds(atoms)
	// Each Fe has three O neighbours at 2.15 Å inside this cell; Fe–Fe and
	// O–O are 3.04 Å apart and must not be linked.
	require.Len(t, b, 12)
	for _, pair := range b {
		a, c := atoms[pair[0]], atoms[pair[1]]
		require.NotEqual(t, a.Element, c.Element, "%s–%s", a.Element, c.Element)
		require.InDelta(t, 2.15, dist(a.Pos, c.Pos), 1e-9)
	}
}

func TestBondsRespectPairRadii(t *testing.T) {
	t.Parallel()

	atoms := []atom{
		{Element: "Fe", Pos: [3]float64{0, 0, 0}},
		{Element: "Fe", Pos: [3]float64{2.8, 0, 0}},
		{Element: "Fe", Pos: [3]float64{0, 3.04, 0}},
	}
	// 2.8 Å is within (1.32+1.32)*1.1 = 2.904; 3.04 Å is not.
	require.Equal(t, [][2]int{{0, 1}}, bonds(atoms))
}

func TestControllerDrawsOnCanvas(t *testing.T) {
	t.Parallel()

	surf := NewSurface(40, 16)
	c := &viewer.Controller{Engine: Engine{}, Surface: surf}
	did, err := c.Observe(viewer.Ready, "1", feo)
	require.NoError(t, err)
	require.True(t, did)

	view := surf.View()
	require.Contains(t, view, "F")
	require.Contains(t, view, "O")
	require.Equal(t, 1, surf.Attached())
	require.True(t, surf.Animating())

	_, err = c.Observe(viewer.Ready, "2", feo)
	require.NoError(t, err)
	require.Equal(t, 1, surf.Attached())

	require.NoError(t, c.Close())
	require.Zero(t, surf.Attached())
	require.Empty(t, strings.TrimSpace(surf.View()))
}

func TestZoomAnimationFinishes(t *testing.T) {
	t.Parallel()

	now := time.Unix(1000, 0)
	surf := NewSurface(40, 16)
	surf.nowFn = func() time.Time { return now }

	s, err := Engine{}.CreateSession(surf, viewer.DefaultConfig)
	require.NoError(t, err)
	require.NoError(t, s.AddModel(feo, "xyz"))
	require.NoError(t, s.SetStyle(viewer.Selector{}, viewer.DefaultStyle))
	require.NoError(t, s.ZoomTo())
	require.NoError(t, s.Render())
	require.NoError(t, s.Zoom(1.3, time.Second))

	now = now.Add(500 * time.Millisecond)
	require.True(t, surf.Tick())
	now = now.Add(600 * time.Millisecond)
	require.False(t, surf.Tick())
	require.InDelta(t, 1.3, surf.scene.zoom, 1e-9)
	require.False(t, surf.Animating())
}

func TestEngineRejectsForeignSurfaceAndBadInput(t *testing.T) {
	t.Parallel()

	_, err := Engine{}.CreateSession(nil, viewer.DefaultConfig)
	require.ErrorIs(t, err, ErrWrongSurface)

	surf := NewSurface(20, 10)
	s, err := Engine{}.CreateSession(surf, viewer.DefaultConfig)
	require.NoError(t, err)
	require.Error(t, s.AddModel(feo, "pdb"))
	require.ErrorIs(t, s.ZoomTo(), ErrNoModel)
	require.NoError(t, s.Release())
	require.ErrorIs(t, s.AddModel(feo, "xyz"), ErrReleased)
	require.NoError(t, s.Release())
	require.Zero(t, surf.Attached())
}

func TestRotateAndResizeRedraw(t *testing.T) {
	t.Parallel()

	surf := NewSurface(30, 12)
	c := &viewer.Controller{Engine: Engine{}, Surface: surf}
	_, err := c.Observe(viewer.Ready, "1", feo)
	require.NoError(t, err)

	before := surf.View()
	surf.Rotate(0.8, 0)
	require.NotEqual(t, before, surf.View())

	surf.Resize(60, 20)
	w, h := surf.Size()
	require.Equal(t, 60, w)
	require.Equal(t, 20, h)
	require.Contains(t, surf.View(), "F")
}
