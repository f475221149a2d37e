package web

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jask/crystalgen/internal/viewer"
)

var (
	ErrWrongSurface = errors.New("web: surface is not a browser surface")
	ErrReleased     = errors.New("web: session released")
)

// Scene is what the page replays against the library, in order:
// createViewer, addModel, setStyle, zoomTo, render, zoom. Render publishes a
// new revision; Zoom re-sends that revision with the zoom attached.
type Scene struct {
	Revision int          `json:"revision"`
	Session  string       `json:"session,omitempty"`
	Config   SceneConfig  `json:"config"`
	Models   []SceneModel `json:"models,omitempty"`
	Styles   []SceneStyle `json:"styles,omitempty"`
	ZoomTo   bool         `json:"zoomTo"`
	Zoom     *SceneZoom   `json:"zoom,omitempty"`
}

type SceneConfig struct {
	BackgroundColor string `json:"backgroundColor"`
	Antialias       bool   `json:"antialias"`
}

type SceneModel struct {
	Data   string `json:"data"`
	Format string `json:"format"`
}

type SceneStyle struct {
	Selector viewer.Selector `json:"selector"`
	Style    viewer.Style    `json:"style"`
}

type SceneZoom struct {
	Factor     float64 `json:"factor"`
	DurationMS int64   `json:"durationMs"`
}

// Engine creates sessions on a *Surface.
type Engine struct{}

func (Engine) CreateSession(s viewer.Surface, cfg viewer.Config) (viewer.Session, error) {
	surf, ok := s.(*Surface)
	if !ok || surf == nil {
		return nil, ErrWrongSurface
	}
	surf.attach()
	return &session{
		surf: surf,
		scene: Scene{
			Session: uuid.NewString(),
			Config:  SceneConfig{BackgroundColor: cfg.Background, Antialias: cfg.Antialias},
		},
	}, nil
}

type session struct {
	surf     *Surface
	scene    Scene
	released bool
}

func (s *session) AddModel(data, format string) error {
	if s.released {
		return ErrReleased
	}
	if data == "" {
		return fmt.Errorf("web: empty model")
	}
	s.scene.Models = append(s.scene.Models, SceneModel{Data: data, Format: format})
	return nil
}

func (s *session) SetStyle(sel viewer.Selector, style viewer.Style) error {
	if s.released {
		return ErrReleased
	}
	if sel == nil {
		sel = viewer.Selector{}
	}
	s.scene.Styles = append(s.scene.Styles, SceneStyle{Selector: sel, Style: style})
	return nil
}

func (s *session) ZoomTo() error {
	if s.released {
		return ErrReleased
	}
	s.scene.ZoomTo = true
	return nil
}

func (s *session) Render() error {
	if s.released {
		return ErrReleased
	}
	return s.surf.publish(s.scene)
}

func (s *session) Zoom(factor float64, d time.Duration) error {
	if s.released {
		return ErrReleased
	}
	s.scene.Zoom = &SceneZoom{Factor: factor, DurationMS: d.Milliseconds()}
	s.surf.amendZoom(s.scene.Session, s.scene.Zoom)
	return nil
}

func (s *session) Release() error {
	if s.released {
		return nil
	}
	s.released = true
	s.surf.detach(s.scene.Session)
	return nil
}
