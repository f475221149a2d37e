package composition

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/agnivade/levenshtein"
	"golang.org/x/sync/singleflight"
)

// DefaultElements is used whenever the service element list is unavailable.
var DefaultElements = []string{
	"H", "He", "Li", "Be", "B", "C", "N", "O", "F", "Ne",
	"Na", "Mg", "Al", "Si", "P", "S", "Cl", "Ar", "K", "Ca", "Ti", "Fe",
}

// ElementSource lists the elements the generation service supports.
type ElementSource interface {
	Elements(ctx context.Context) ([]string, error)
}

// Catalog resolves the known element list, falling back to DefaultElements.
type Catalog struct {
	Source ElementSource
	Logger *slog.Logger

	mu       sync.RWMutex
	symbols  []string
	fallback bool
	flight   singleflight.Group
}

// Symbols returns the last resolved list, or DefaultElements before the first Refresh.
func (c *Catalog) Symbols() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.symbols == nil {
		return append([]string(nil), DefaultElements...)
	}
	return append([]string(nil), c.symbols...)
}

// Fallback reports whether the built-in list is in use.
func (c *Catalog) Fallback() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.symbols == nil || c.fallback
}

// Refresh fetches the element list from Source. Concurrent callers share one fetch.
// Refresh never fails: any error or an empty answer selects DefaultElements.
func (c *Catalog) Refresh(ctx context.Context) []string {
	v, _, _ := c.flight.Do("elements", func() (any, error) {
		symbols, err := c.fetch(ctx)
		fallback := false
		if err != nil || len(symbols) == 0 {
			c.logger().Warn("element list unavailable, using built-in list", "error", err)
			symbols = append([]string(nil), DefaultElements...)
			fallback = true
		}
		c.mu.Lock()
		c.symbols = symbols
		c.fallback = fallback
		c.mu.Unlock()
		return symbols, nil
	})
	return append([]string(nil), v.([]string)...)
}

func (c *Catalog) fetch(ctx context.Context) ([]string, error) {
	if c.Source == nil {
		return nil, nil
	}
	raw, err := c.Source.Elements(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out, nil
}

func (c *Catalog) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

// Suggest returns up to limit known symbols closest to input, best first.
// A case-insensitive exact match is returned alone.
func Suggest(input string, known []string, limit int) []string {
	input = strings.TrimSpace(input)
	if input == "" || limit <= 0 {
		return nil
	}
	for _, k := range known {
		if strings.EqualFold(k, input) {
			return []string{k}
		}
	}
	type scored struct {
		sym  string
		dist int
	}
	lower := strings.ToLower(input)
	var cands []scored
	for _, k := range known {
		d := levenshtein.ComputeDistance(lower, strings.ToLower(k))
		if d <= 2 {
			cands = append(cands, scored{k, d})
		}
	}
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].dist < cands[j].dist })
	if len(cands) > limit {
		cands = cands[:limit]
	}
	out := make([]string, 0, len(cands))
	for _, c := range cands {
		out = append(out, c.sym)
	}
	return out
}
