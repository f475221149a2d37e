package generation

import (
	"fmt"

	"github.com/jask/crystalgen/internal/genapi"
)

// FallbackFailureMessage is used when the service fails without saying why.
const FallbackFailureMessage = "Failed to generate structure"

// Structure is a successful generation result.
type Structure struct {
	Formula    string
	SpaceGroup int
	Lattice    *genapi.Lattice
	Atoms      []genapi.Atom
	XYZ        string
	CIF        string
}

func structureFrom(resp genapi.GenerateResponse) *Structure {
	s := &Structure{
		Formula:    resp.Formula,
		SpaceGroup: resp.SpaceGroup,
		XYZ:        resp.XYZ,
		CIF:        resp.CIF,
	}
	if resp.Lattice != nil {
		l := *resp.Lattice
		s.Lattice = &l
	}
	if len(resp.Atoms) > 0 {
		s.Atoms = append([]genapi.Atom(nil), resp.Atoms...)
	}
	return s
}

// ValidationError is a local precondition failure; the service is never called.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// TransportError means the generation service could not be reached.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("Failed to connect to API: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ServiceError carries the message of a failure envelope verbatim.
type ServiceError struct {
	Message string
}

func (e *ServiceError) Error() string { return e.Message }

// ResponseError means the service answered with something unusable.
type ResponseError struct {
	Err error
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("Generation service rejected the request: %v", e.Err)
}

func (e *ResponseError) Unwrap() error { return e.Err }
