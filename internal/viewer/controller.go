package viewer

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/jask/crystalgen/internal/metrics"
)

// Controller owns the one live Session on a Surface. Observe is the only
// entry point that draws.
type Controller struct {
	Engine  Engine
	Surface Surface
	Metrics *metrics.Recorder
	Logger  *slog.Logger

	mu       sync.Mutex
	session  Session
	rendered string
}

// Observe renders payload when the library is Ready and key names a result not
// rendered yet. Every other combination is a no-op that waits for the next
// call. It reports whether a render was attempted; a failed attempt returns a
// *RenderError and is not retried for the same key.
func (c *Controller) Observe(r Readiness, key, payload string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if r != Ready || key == "" || payload == "" || key == c.rendered {
		return false, nil
	}
	c.rendered = key
	err := c.render(payload)
	c.Metrics.Render(err)
	if err != nil {
		c.logger().Warn("structure render failed", "key", key, "error", err)
		return true, err
	}
	c.logger().Debug("structure rendered", "key", key)
	return true, nil
}

func (c *Controller) render(xyz string) (err error) {
	step := "release"
	defer func() {
		if p := recover(); p != nil {
			err = &RenderError{Step: step, Err: fmt.Errorf("panic: %v", p)}
		}
	}()
	wrap := func(e error) error {
		if e == nil {
			return nil
		}
		return &RenderError{Step: step, Err: e}
	}

	if err := c.release(); err != nil {
		c.logger().Warn("releasing previous viewer session", "error", err)
	}
	if c.Engine == nil {
		return &RenderError{Step: "create", Err: ErrNoAcquirer}
	}

	step = "clear"
	if c.Surface != nil {
		if err := c.Surface.Clear(); err != nil {
			return wrap(err)
		}
	}

	step = "create"
	s, err := c.Engine.CreateSession(c.Surface, DefaultConfig)
	if err != nil {
		return wrap(err)
	}
	c.session = s

	step = "model"
	if err := s.AddModel(xyz, ModelFormat); err != nil {
		return wrap(err)
	}
	step = "style"
	if err := s.SetStyle(Selector{}, DefaultStyle); err != nil {
		return wrap(err)
	}
	step = "zoom"
	if err := s.ZoomTo(); err != nil {
		return wrap(err)
	}
	step = "render"
	if err := s.Render(); err != nil {
		return wrap(err)
	}
	step = "animate"
	return wrap(s.Zoom(ZoomFactor, ZoomAnimation))
}

func (c *Controller) release() error {
	if c.session == nil {
		return nil
	}
	s := c.session
	c.session = nil
	return s.Release()
}

// Rendered returns the key of the last result drawn (or attempted).
func (c *Controller) Rendered() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rendered
}

// Live reports whether a session is currently held.
func (c *Controller) Live() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session != nil
}

// Close releases the live session. The controller may Observe again after.
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rendered = ""
	return c.release()
}

func (c *Controller) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}
