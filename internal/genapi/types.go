package genapi

import "context"

// Service defines the remote generation service calls used by the app.
type Service interface {
	Elements(ctx context.Context) ([]string, error)
	Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, error)
}

// GenerateRequest is the POST /generate body.
type GenerateRequest struct {
	SpaceGroup  int                `json:"spacegroup"`
	Composition map[string]float64 `json:"composition"`
	NumAtoms    int                `json:"num_atoms"`
	Temperature float64            `json:"temperature"`
}

// GenerateResponse is the envelope returned by POST /generate.
type GenerateResponse struct {
	Success    bool     `json:"success"`
	Formula    string   `json:"formula,omitempty"`
	SpaceGroup int      `json:"spacegroup"`
	Lattice    *Lattice `json:"lattice_parameters,omitempty"`
	Atoms      []Atom   `json:"atoms,omitempty"`
	XYZ        string   `json:"xyz_data,omitempty"`
	CIF        string   `json:"cif_data,omitempty"`
	Error      string   `json:"error,omitempty"`
}

// Lattice holds unit cell lengths (Å), angles (degrees) and volume (Å³).
type Lattice struct {
	A      float64 `json:"a"`
	B      float64 `json:"b"`
	C      float64 `json:"c"`
	Alpha  float64 `json:"alpha"`
	Beta   float64 `json:"beta"`
	Gamma  float64 `json:"gamma"`
	Volume float64 `json:"volume"`
}

// Atom is one site of a generated structure.
type Atom struct {
	Element    string     `json:"element"`
	Position   [3]float64 `json:"position"`
	FracCoords [3]float64 `json:"frac_coords"`
}

type elementsResponse struct {
	Elements []string `json:"elements"`
}
