// Package export turns a generation result into a downloadable CIF file.
package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jask/crystalgen/internal/generation"
)

// ErrNoCIF means there is nothing to export: no result, or a result without
// CIF text.
var ErrNoCIF = errors.New("no CIF data to export")

// Artifact is a named text file.
type Artifact struct {
	Name    string
	Content string
}

// CIF builds the "<formula>_sg<spacegroup>.cif" artifact for s. The content
// is the CIF payload exactly as received.
func CIF(s *generation.Structure) (Artifact, error) {
	if s == nil || s.CIF == "" {
		return Artifact{}, ErrNoCIF
	}
	return Artifact{
		Name:    fmt.Sprintf("%s_sg%d.cif", safeName(s.Formula), s.SpaceGroup),
		Content: s.CIF,
	}, nil
}

// Available reports whether CIF would succeed for s.
func Available(s *generation.Structure) bool {
	return s != nil && s.CIF != ""
}

// Write stores a in dir through a temp file and rename, returning the final
// path. An existing file of the same name is replaced.
func Write(dir string, a Artifact) (string, error) {
	if a.Name == "" {
		return "", fmt.Errorf("artifact name required")
	}
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	path := filepath.Join(dir, a.Name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(a.Content), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", a.Name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("write %s: %w", a.Name, err)
	}
	return path, nil
}

// safeName keeps formulas usable as file names. Formulas are normally
// alphanumeric; separators are the only thing replaced.
func safeName(formula string) string {
	formula = strings.TrimSpace(formula)
	if formula == "" {
		return "structure"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', 0:
			return '_'
		}
		return r
	}, formula)
}
