package generation

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/jask/crystalgen/internal/genapi"
)

// Parameter bounds shared with the TUI sliders.
const (
	MinSpaceGroup   = 1
	MaxSpaceGroup   = 230
	MinAtoms        = 4
	MaxAtoms        = 32
	MinTemperature  = 0.1
	MaxTemperature  = 2.0
	TemperatureStep = 0.1
)

// EmptyCompositionMessage is shown when a submit has no elements.
const EmptyCompositionMessage = "Please add at least one element to the composition"

var paramsValidate *validator.Validate

func init() {
	paramsValidate = validator.New()
}

// Parameters are the user-editable inputs of one generation request.
type Parameters struct {
	SpaceGroup  int                `validate:"min=1,max=230"`
	Composition map[string]float64 `validate:"dive,keys,required,endkeys,gt=0"`
	NumAtoms    int                `validate:"min=4,max=32"`
	Temperature float64            `validate:"min=0.1,max=2"`
}

// Validate reports the first problem with p as a *ValidationError.
func (p Parameters) Validate() error {
	if len(p.Composition) == 0 {
		return &ValidationError{Message: EmptyCompositionMessage}
	}
	for sym, amt := range p.Composition {
		if math.IsNaN(amt) || math.IsInf(amt, 0) {
			return &ValidationError{Message: fmt.Sprintf("Amount for %s must be a finite number", sym)}
		}
	}
	if math.IsNaN(p.Temperature) || math.IsInf(p.Temperature, 0) {
		return &ValidationError{Message: fmt.Sprintf("Temperature must be between %.1f and %.1f", MinTemperature, MaxTemperature)}
	}
	if err := paramsValidate.Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return &ValidationError{Message: describe(verrs[0])}
		}
		return &ValidationError{Message: err.Error()}
	}
	return nil
}

// Request snapshots p into a wire request. The composition map is copied so
// later edits cannot reach an in-flight request.
func (p Parameters) Request() genapi.GenerateRequest {
	comp := make(map[string]float64, len(p.Composition))
	for k, v := range p.Composition {
		comp[k] = v
	}
	return genapi.GenerateRequest{
		SpaceGroup:  p.SpaceGroup,
		Composition: comp,
		NumAtoms:    p.NumAtoms,
		Temperature: p.Temperature,
	}
}

// ClampSpaceGroup bounds n to [1,230].
func ClampSpaceGroup(n int) int {
	return min(max(n, MinSpaceGroup), MaxSpaceGroup)
}

// ClampAtoms bounds n to [4,32].
func ClampAtoms(n int) int {
	return min(max(n, MinAtoms), MaxAtoms)
}

// ClampTemperature bounds t to [0.1,2.0] and snaps it to one decimal.
func ClampTemperature(t float64) float64 {
	t = math.Round(t*10) / 10
	return math.Min(math.Max(t, MinTemperature), MaxTemperature)
}

func describe(fe validator.FieldError) string {
	switch fe.StructField() {
	case "SpaceGroup":
		return fmt.Sprintf("Space group must be between %d and %d", MinSpaceGroup, MaxSpaceGroup)
	case "NumAtoms":
		return fmt.Sprintf("Number of atoms must be between %d and %d", MinAtoms, MaxAtoms)
	case "Temperature":
		return fmt.Sprintf("Temperature must be between %.1f and %.1f", MinTemperature, MaxTemperature)
	}
	if strings.HasPrefix(fe.Namespace(), "Parameters.Composition") {
		return "Composition amounts must be positive and element symbols non-empty"
	}
	return fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
}
