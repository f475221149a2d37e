// Package term renders structures onto a character canvas for the TUI.
package term

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/NimbleMarkets/ntcharts/canvas"
	"github.com/charmbracelet/lipgloss"
)

// Surface is a fixed-size character canvas. It keeps the last scene so the
// TUI can rotate it and advance zoom animations between renders.
type Surface struct {
	mu    sync.Mutex
	cv    canvas.Model
	w, h  int
	scene *scene
	live  int
	yaw   float64
	pitch float64
	anim  *zoomAnim
	nowFn func() time.Time
}

type zoomAnim struct {
	from, to float64
	start    time.Time
	d        time.Duration
}

func NewSurface(w, h int) *Surface {
	w, h = max(w, 8), max(h, 4)
	return &Surface{cv: canvas.New(w, h), w: w, h: h, yaw: 0.6, pitch: 0.35, nowFn: time.Now}
}

// Clear blanks the canvas and drops the current scene.
func (s *Surface) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cv.Clear()
	s.scene = nil
	s.anim = nil
	return nil
}

// Resize changes the canvas size and redraws.
func (s *Surface) Resize(w, h int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, h = max(w, 8), max(h, 4)
	if w == s.w && h == s.h {
		return
	}
	s.w, s.h = w, h
	s.cv = canvas.New(w, h)
	if s.scene != nil {
		s.scene.fit(w, h)
		s.draw()
	}
}

// Rotate turns the camera and redraws.
func (s *Surface) Rotate(dYaw, dPitch float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.yaw += dYaw
	s.pitch = math.Max(-1.5, math.Min(1.5, s.pitch+dPitch))
	s.draw()
}

// Tick advances a running zoom animation. It reports whether more frames
// are needed.
func (s *Surface) Tick() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.anim == nil || s.scene == nil {
		return false
	}
	now := s.nowFn()
	t := 1.0
	if s.anim.d > 0 {
		t = math.Min(1, float64(now.Sub(s.anim.start))/float64(s.anim.d))
	}
	// ease out
	k := 1 - (1-t)*(1-t)
	s.scene.zoom = s.anim.from + (s.anim.to-s.anim.from)*k
	s.draw()
	if t >= 1 {
		s.anim = nil
		return false
	}
	return true
}

// Animating reports whether Tick still has frames to draw.
func (s *Surface) Animating() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.anim != nil
}

// Attached is the number of sessions not yet released.
func (s *Surface) Attached() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live
}

func (s *Surface) View() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cv.View()
}

func (s *Surface) Size() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w, s.h
}

type projected struct {
	x, y  int
	depth float64
	idx   int
}

// draw paints the scene. Caller holds mu.
func (s *Surface) draw() {
	s.cv.Clear()
	sc := s.scene
	if sc == nil || len(sc.atoms) == 0 {
		return
	}
	cy, sy := math.Cos(s.yaw), math.Sin(s.yaw)
	cp, sp := math.Cos(s.pitch), math.Sin(s.pitch)
	scale := sc.scale * sc.zoom
	pts := make([]projected, len(sc.atoms))
	for i, a := range sc.atoms {
		x := a.Pos[0] - sc.center[0]
		y := a.Pos[1] - sc.center[1]
		z := a.Pos[2] - sc.center[2]
		x, z = x*cy+z*sy, -x*sy+z*cy
		y, z = y*cp-z*sp, y*sp+z*cp
		// cells are roughly twice as tall as wide
		pts[i] = projected{
			x:     int(math.Round(float64(s.w)/2 + x*scale)),
			y:     int(math.Round(float64(s.h)/2 - y*scale/2)),
			depth: z,
			idx:   i,
		}
	}

	if sc.style.Stick != nil {
		st := lipgloss.NewStyle().Foreground(colorFor(sc.style.Stick.Color, 0, 1)).Background(sc.bg)
		for _, b := range sc.bonds {
			s.line(pts[b[0]], pts[b[1]], st)
		}
	}

	order := append([]projected(nil), pts...)
	sort.SliceStable(order, func(i, j int) bool { return order[i].depth < order[j].depth })
	for _, p := range order {
		color := colorFor("spectrum", p.idx, len(sc.atoms))
		radius := 0.0
		if sc.style.Sphere != nil {
			color = colorFor(sc.style.Sphere.Color, p.idx, len(sc.atoms))
			radius = sc.style.Sphere.Radius * scale
		}
		st := lipgloss.NewStyle().Foreground(color).Background(sc.bg).Bold(true)
		s.disc(p, radius, st)
		s.set(p.x, p.y, []rune(sc.atoms[p.idx].Element)[0], st)
	}
}

func (s *Surface) set(x, y int, r rune, st lipgloss.Style) {
	if x < 0 || y < 0 || x >= s.w || y >= s.h {
		return
	}
	s.cv.SetRuneWithStyle(canvas.Point{X: x, Y: y}, r, st)
}

func (s *Surface) disc(p projected, radius float64, st lipgloss.Style) {
	rx := int(math.Floor(radius))
	ry := int(math.Floor(radius / 2))
	for dy := -ry; dy <= ry; dy++ {
		for dx := -rx; dx <= rx; dx++ {
			fx := float64(dx) / math.Max(radius, 1)
			fy := float64(dy) / math.Max(radius/2, 1)
			if fx*fx+fy*fy <= 1 {
				s.set(p.x+dx, p.y+dy, '●', st)
			}
		}
	}
}

// line draws a Bresenham segment between two projected atoms.
func (s *Surface) line(a, b projected, st lipgloss.Style) {
	r := lineRune(b.x-a.x, b.y-a.y)
	x0, y0, x1, y1 := a.x, a.y, b.x, b.y
	dx, dy := abs(x1-x0), -abs(y1-y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	for {
		s.set(x0, y0, r, st)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

func lineRune(dx, dy int) rune {
	switch {
	case dy == 0:
		return '─'
	case dx == 0:
		return '│'
	case abs(dx) > 2*abs(dy):
		return '─'
	case abs(dy) > 2*abs(dx):
		return '│'
	case (dx > 0) == (dy > 0):
		return '╲'
	default:
		return '╱'
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

var spectrum = []string{"#d62728", "#ff7f0e", "#e6c229", "#2ca02c", "#17becf", "#1f77b4", "#6a3d9a"}

func colorFor(name string, i, n int) lipgloss.TerminalColor {
	switch name {
	case "spectrum":
		if n <= 1 {
			return lipgloss.Color(spectrum[0])
		}
		return lipgloss.Color(spectrum[i*(len(spectrum)-1)/(n-1)])
	case "grey", "gray":
		return lipgloss.Color("#8a8a8a")
	case "":
		return lipgloss.NoColor{}
	default:
		return lipgloss.Color(name)
	}
}
