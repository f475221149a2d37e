package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jask/crystalgen/internal/composition"
	"github.com/jask/crystalgen/internal/config"
	"github.com/jask/crystalgen/internal/export"
	"github.com/jask/crystalgen/internal/generation"
	"github.com/jask/crystalgen/internal/secrets"
)

func runGenerate(cmd *cobra.Command, _ []string) error {
	rt, err := setup(true)
	if err != nil {
		return err
	}
	defer rt.Close()
	ctx := cmd.Context()

	known := rt.catalog.Refresh(ctx)
	comp, err := buildComposition(known, rt.cfg, genPreset, genElements)
	if err != nil {
		return err
	}
	params := generation.Parameters{
		SpaceGroup:  orDefault(genSpaceGroup, rt.cfg.Defaults.SpaceGroup),
		Composition: comp.Map(),
		NumAtoms:    orDefault(genAtoms, rt.cfg.Defaults.NumAtoms),
		Temperature: rt.cfg.Defaults.Temperature,
	}
	if genTemperature != 0 {
		params.Temperature = genTemperature
	}

	snap := rt.orch.Run(ctx, params)
	if snap.State != generation.Succeeded {
		return errors.New(snap.Message())
	}
	out := cmd.OutOrStdout()
	printSummary(out, snap.Result)

	art, err := export.CIF(snap.Result)
	if err != nil {
		fmt.Fprintln(out, "No CIF data returned; nothing written.")
		return nil
	}
	dir := genOut
	if dir == "" {
		dir = rt.cfg.Export.Dir
	}
	path, err := export.Write(dir, art)
	if err != nil {
		return err
	}
	rt.metrics.Export()
	fmt.Fprintf(out, "Wrote %s\n", path)
	return nil
}

// buildComposition starts from the named preset, if any, then applies each
// SYMBOL=AMOUNT flag on top.
func buildComposition(known []string, cfg config.Config, preset string, flags []string) (*composition.Model, error) {
	m := composition.New(known)
	if preset != "" {
		presets, err := composition.LoadPresets(cfg.Presets.Path)
		if err != nil {
			presets = composition.DefaultPresets()
		}
		p := composition.FindPreset(presets, preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset %q", preset)
		}
		if skipped := m.ApplyPreset(p.Elements); len(skipped) > 0 {
			return nil, fmt.Errorf("preset %q uses unknown elements: %s", p.Label, strings.Join(skipped, ", "))
		}
	}
	entries, err := parseElements(flags)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if m.Add(e.Element, e.Amount) {
			continue
		}
		msg := fmt.Sprintf("unknown element %q", e.Element)
		if s := composition.Suggest(e.Element, known, 3); len(s) > 0 {
			msg += fmt.Sprintf(" (did you mean %s?)", strings.Join(s, ", "))
		}
		return nil, errors.New(msg)
	}
	return m, nil
}

// parseElements reads SYMBOL=AMOUNT pairs. A bare SYMBOL means amount 1.
func parseElements(flags []string) ([]composition.Entry, error) {
	var out []composition.Entry
	for _, f := range flags {
		sym, amt, found := strings.Cut(f, "=")
		sym = strings.TrimSpace(sym)
		if sym == "" {
			return nil, fmt.Errorf("element %q: missing symbol", f)
		}
		amount := 1.0
		if found {
			v, err := strconv.ParseFloat(strings.TrimSpace(amt), 64)
			if err != nil || !composition.ValidAmount(v) {
				return nil, fmt.Errorf("element %q: amount must be a finite positive number", f)
			}
			amount = v
		}
		out = append(out, composition.Entry{Element: sym, Amount: amount})
	}
	return out, nil
}

func orDefault(v, def int) int {
	if v != 0 {
		return v
	}
	return def
}

func printSummary(w io.Writer, s *generation.Structure) {
	fmt.Fprintf(w, "Formula:     %s\n", s.Formula)
	fmt.Fprintf(w, "Space group: %d\n", s.SpaceGroup)
	fmt.Fprintf(w, "Atoms:       %d\n", len(s.Atoms))
	if l := s.Lattice; l != nil {
		fmt.Fprintf(w, "Volume:      %.3f Å³\n", l.Volume)
		fmt.Fprintf(w, "a, b, c:     %.3f, %.3f, %.3f Å\n", l.A, l.B, l.C)
		fmt.Fprintf(w, "α, β, γ:     %.1f°, %.1f°, %.1f°\n", l.Alpha, l.Beta, l.Gamma)
	}
}

func runElements(cmd *cobra.Command, _ []string) error {
	rt, err := setup(true)
	if err != nil {
		return err
	}
	defer rt.Close()

	symbols := rt.catalog.Refresh(cmd.Context())
	if rt.catalog.Fallback() {
		fmt.Fprintln(cmd.ErrOrStderr(), "generation service unavailable; showing the built-in list")
	}
	fmt.Fprintln(cmd.OutOrStdout(), strings.Join(symbols, " "))
	return nil
}

func runTokenSet(cmd *cobra.Command, args []string) error {
	if err := (secrets.Store{}).Put(tokenName, args[0]); err != nil {
		return fmt.Errorf("store token: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Token saved.")
	return nil
}

func runTokenClear(cmd *cobra.Command, _ []string) error {
	if err := (secrets.Store{}).Delete(tokenName); err != nil {
		return fmt.Errorf("clear token: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Token cleared.")
	return nil
}
