package viewer

import (
	"errors"
	"fmt"
)

// UnavailableMessage is shown in place of the 3D panel when the library
// could not be loaded.
const UnavailableMessage = "3D visualization unavailable"

var ErrNoAcquirer = errors.New("viewer: no library source configured")

// LoadError is the terminal failure of the library load.
type LoadError struct {
	Err error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("Failed to load 3D visualization library: %v", e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// RenderError wraps any error or panic raised while drawing a structure.
type RenderError struct {
	Step string
	Err  error
}

func (e *RenderError) Error() string {
	if e.Step == "" {
		return fmt.Sprintf("Failed to render 3D structure: %v", e.Err)
	}
	return fmt.Sprintf("Failed to render 3D structure (%s): %v", e.Step, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }
