package term

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

type atom struct {
	Element string
	Pos     [3]float64
}

// parseXYZ reads the XYZ text format: an atom count, a comment line, then one
// "Element x y z" line per atom.
func parseXYZ(data string) ([]atom, error) {
	lines := strings.Split(strings.ReplaceAll(data, "\r\n", "\n"), "\n")
	for len(lines) > 0 && strings.TrimSpace(lines[0]) == "" {
		lines = lines[1:]
	}
	if len(lines) < 2 {
		return nil, fmt.Errorf("xyz: missing header")
	}
	n, err := strconv.Atoi(strings.TrimSpace(lines[0]))
	if err != nil || n < 0 {
		return nil, fmt.Errorf("xyz: invalid atom count %q", strings.TrimSpace(lines[0]))
	}
	body := lines[2:]
	atoms := make([]atom, 0, n)
	for i, line := range body {
		if len(atoms) == n {
			break
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if len(fields) < 4 {
			return nil, fmt.Errorf("xyz: line %d: want element and 3 coordinates", i+3)
		}
		var a atom
		a.Element = fields[0]
		for k := 0; k < 3; k++ {
			v, err := strconv.ParseFloat(fields[k+1], 64)
			if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("xyz: line %d: bad coordinate %q", i+3, fields[k+1])
			}
			a.Pos[k] = v
		}
		atoms = append(atoms, a)
	}
	if len(atoms) != n {
		return nil, fmt.Errorf("xyz: header says %d atoms, found %d", n, len(atoms))
	}
	return atoms, nil
}

// covalent radii in Å, used for bond detection.
var covalent = map[string]float64{
	"H": 0.31, "He": 0.28, "Li": 1.28, "Be": 0.96, "B": 0.84, "C": 0.76, "N": 0.71,
	"O": 0.66, "F": 0.57, "Ne": 0.58, "Na": 1.66, "Mg": 1.41, "Al": 1.21, "Si": 1.11,
	"P": 1.07, "S": 1.05, "Cl": 1.02, "Ar": 1.06, "K": 2.03, "Ca": 1.76, "Ti": 1.60,
	"Fe": 1.32,
}

const (
	defaultRadius = 1.5
	bondTolerance = 1.1
)

// bonds pairs atoms no further apart than the sum of their covalent radii
// scaled by bondTolerance.
func bonds(atoms []atom) [][2]int {
	var out [][2]int
	for i := range atoms {
		ri, ok := covalent[atoms[i].Element]
		if !ok {
			ri = defaultRadius
		}
		for j := i + 1; j < len(atoms); j++ {
			rj, ok := covalent[atoms[j].Element]
			if !ok {
				rj = defaultRadius
			}
			if d := dist(atoms[i].Pos, atoms[j].Pos); d > 0.1 && d <= (ri+rj)*bondTolerance {
				out = append(out, [2]int{i, j})
			}
		}
	}
	return out
}

func dist(a, b [3]float64) float64 {
	dx, dy, dz := a[0]-b[0], a[1]-b[1], a[2]-b[2]
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}
