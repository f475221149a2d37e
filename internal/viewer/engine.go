// Package viewer drives a 3D structure renderer. The renderer itself is an
// Engine supplied by the caller (terminal canvas or browser page); this package
// owns the library load lifecycle and the single live session.
package viewer

import "time"

// Surface is the area a session draws into.
type Surface interface {
	Clear() error
}

// Config is passed to Engine.CreateSession.
type Config struct {
	Background string
	Antialias  bool
}

// Selector picks atoms for SetStyle. An empty selector matches every atom.
type Selector map[string]string

type SphereStyle struct {
	Radius float64 `json:"radius"`
	Color  string  `json:"color"`
}

type StickStyle struct {
	Radius float64 `json:"radius"`
	Color  string  `json:"color"`
}

// Style is a combined per-atom representation.
type Style struct {
	Sphere *SphereStyle `json:"sphere,omitempty"`
	Stick  *StickStyle  `json:"stick,omitempty"`
}

// Session is one renderer instance bound to a surface.
type Session interface {
	AddModel(data, format string) error
	SetStyle(sel Selector, style Style) error
	ZoomTo() error
	Render() error
	Zoom(factor float64, d time.Duration) error
	Release() error
}

// Engine creates sessions.
type Engine interface {
	CreateSession(s Surface, cfg Config) (Session, error)
}

// Rendering parameters applied to every structure.
var (
	DefaultConfig = Config{Background: "#f8f9fa", Antialias: true}
	DefaultStyle  = Style{
		Sphere: &SphereStyle{Radius: 0.5, Color: "spectrum"},
		Stick:  &StickStyle{Radius: 0.15, Color: "grey"},
	}
)

const (
	ModelFormat   = "xyz"
	ZoomFactor    = 1.3
	ZoomAnimation = 1000 * time.Millisecond
)
