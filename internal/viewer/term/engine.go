package term

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/jask/crystalgen/internal/viewer"
)

var (
	ErrWrongSurface = errors.New("term: surface is not a terminal canvas")
	ErrReleased     = errors.New("term: session released")
	ErrNoModel      = errors.New("term: no model loaded")
)

// Engine draws sessions on a *Surface. It is always available; its library
// detect hook is trivially true.
type Engine struct{}

func (Engine) CreateSession(s viewer.Surface, cfg viewer.Config) (viewer.Session, error) {
	surf, ok := s.(*Surface)
	if !ok || surf == nil {
		return nil, ErrWrongSurface
	}
	surf.mu.Lock()
	surf.live++
	surf.mu.Unlock()
	var bg lipgloss.TerminalColor = lipgloss.NoColor{}
	if cfg.Background != "" {
		bg = lipgloss.Color(cfg.Background)
	}
	return &session{surf: surf, bg: bg}, nil
}

// Available is the Loader detect hook for the terminal engine.
func Available() bool { return true }

type scene struct {
	atoms  []atom
	bonds  [][2]int
	style  viewer.Style
	bg     lipgloss.TerminalColor
	center [3]float64
	radius float64
	scale  float64
	zoom   float64
}

// fit picks a scale so the whole model fits the canvas at zoom 1.
func (sc *scene) fit(w, h int) {
	if sc.radius <= 0 {
		sc.scale = 1
		return
	}
	pad := 1.0
	if sc.style.Sphere != nil {
		pad += sc.style.Sphere.Radius
	}
	sx := float64(w-2) / (2 * (sc.radius + pad))
	sy := float64(h-1) / (sc.radius + pad)
	sc.scale = math.Max(0.1, math.Min(sx, sy))
}

type session struct {
	surf     *Surface
	bg       lipgloss.TerminalColor
	atoms    []atom
	style    viewer.Style
	sc       *scene
	released bool
}

func (s *session) AddModel(data, format string) error {
	if s.released {
		return ErrReleased
	}
	if format != viewer.ModelFormat {
		return fmt.Errorf("term: unsupported model format %q", format)
	}
	atoms, err := parseXYZ(data)
	if err != nil {
		return err
	}
	s.atoms = append(s.atoms, atoms...)
	return nil
}

func (s *session) SetStyle(_ viewer.Selector, style viewer.Style) error {
	if s.released {
		return ErrReleased
	}
	s.style = style
	return nil
}

func (s *session) ZoomTo() error {
	if s.released {
		return ErrReleased
	}
	if len(s.atoms) == 0 {
		return ErrNoModel
	}
	sc := &scene{atoms: s.atoms, bonds: bonds(s.atoms), style: s.style, bg: s.bg, zoom: 1}
	for _, a := range s.atoms {
		for k := 0; k < 3; k++ {
			sc.center[k] += a.Pos[k]
		}
	}
	for k := 0; k < 3; k++ {
		sc.center[k] /= float64(len(s.atoms))
	}
	for _, a := range s.atoms {
		sc.radius = math.Max(sc.radius, dist(a.Pos, sc.center))
	}
	s.surf.mu.Lock()
	sc.fit(s.surf.w, s.surf.h)
	s.surf.mu.Unlock()
	s.sc = sc
	return nil
}

func (s *session) Render() error {
	if s.released {
		return ErrReleased
	}
	if s.sc == nil {
		if err := s.ZoomTo(); err != nil {
			return err
		}
	}
	s.surf.mu.Lock()
	defer s.surf.mu.Unlock()
	s.surf.scene = s.sc
	s.surf.draw()
	return nil
}

// Zoom animates the scene scale by factor over d; the TUI drives frames with
// Surface.Tick.
func (s *session) Zoom(factor float64, d time.Duration) error {
	if s.released {
		return ErrReleased
	}
	if s.sc == nil {
		return ErrNoModel
	}
	if factor <= 0 {
		return fmt.Errorf("term: invalid zoom factor %v", factor)
	}
	s.surf.mu.Lock()
	defer s.surf.mu.Unlock()
	from := s.sc.zoom
	s.surf.anim = &zoomAnim{from: from, to: from * factor, start: s.surf.nowFn(), d: d}
	return nil
}

func (s *session) Release() error {
	if s.released {
		return nil
	}
	s.released = true
	s.surf.mu.Lock()
	defer s.surf.mu.Unlock()
	s.surf.live--
	if s.surf.scene == s.sc {
		s.surf.scene = nil
		s.surf.anim = nil
		s.surf.cv.Clear()
	}
	return nil
}
