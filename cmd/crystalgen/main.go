package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/jask/crystalgen/internal/composition"
	"github.com/jask/crystalgen/internal/config"
	"github.com/jask/crystalgen/internal/tui"
	"github.com/jask/crystalgen/internal/viewer"
	"github.com/jask/crystalgen/internal/viewer/term"
	"github.com/jask/crystalgen/internal/viewer/web"
)

var version = "dev"

var (
	rootCmd = &cobra.Command{
		Use:   "crystalgen",
		Short: "Generate crystal structures from a composition and space group",
		Long: `crystalgen edits a composition, sends it to the structure generation
service and shows the returned structure in a 3D viewer.`,
		SilenceUsage: true,
		RunE:         runTUI,
	}
	generateCmd = &cobra.Command{
		Use:   "generate",
		Short: "Run one generation request and write the CIF",
		Args:  cobra.NoArgs,
		RunE:  runGenerate,
	}
	elementsCmd = &cobra.Command{
		Use:   "elements",
		Short: "Print the elements the generation service accepts",
		Args:  cobra.NoArgs,
		RunE:  runElements,
	}
	tokenCmd = &cobra.Command{
		Use:   "token",
		Short: "Manage the generation service token",
	}
	tokenSetCmd = &cobra.Command{
		Use:   "set [token]",
		Short: "Store the token encrypted on disk",
		Args:  cobra.ExactArgs(1),
		RunE:  runTokenSet,
	}
	tokenClearCmd = &cobra.Command{
		Use:   "clear",
		Short: "Remove the stored token",
		Args:  cobra.NoArgs,
		RunE:  runTokenClear,
	}

	genSpaceGroup  int
	genElements    []string
	genAtoms       int
	genTemperature float64
	genOut         string
	genPreset      string
)

func init() {
	rootCmd.Version = version

	rootCmd.AddCommand(generateCmd)
	generateCmd.Flags().IntVar(&genSpaceGroup, "spacegroup", 0, "Space group number 1-230 (default from config)")
	generateCmd.Flags().StringArrayVar(&genElements, "element", nil, "Element and amount as SYMBOL=AMOUNT; repeatable")
	generateCmd.Flags().IntVar(&genAtoms, "atoms", 0, "Number of atoms 4-32 (default from config)")
	generateCmd.Flags().Float64Var(&genTemperature, "temperature", 0, "Sampling temperature 0.1-2.0 (default from config)")
	generateCmd.Flags().StringVar(&genOut, "out", "", "Directory for the CIF file (default export.dir)")
	generateCmd.Flags().StringVar(&genPreset, "preset", "", "Start from a named preset, e.g. NaCl")

	rootCmd.AddCommand(elementsCmd)

	rootCmd.AddCommand(tokenCmd)
	tokenCmd.AddCommand(tokenSetCmd)
	tokenCmd.AddCommand(tokenClearCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func runTUI(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	rt, err := setup(false)
	if err != nil {
		return err
	}
	defer rt.Close()
	cfg := rt.cfg

	presets, err := composition.LoadPresets(cfg.Presets.Path)
	if err != nil {
		rt.logger.Warn("presets unavailable, using built-in list", "error", err)
	}
	events := make(chan []composition.Preset, 1)
	if cfg.Presets.Path != "" {
		go func() {
			err := composition.WatchPresets(ctx, cfg.Presets.Path, rt.logger, func(p []composition.Preset) {
				// keep only the newest list
				select {
				case <-events:
				default:
				}
				events <- p
			})
			if err != nil {
				rt.logger.Warn("presets watcher stopped", "error", err)
			}
		}()
	}

	loader := viewer.DefaultLoader
	loader.Metrics = rt.metrics
	loader.Logger = rt.logger
	deps := tui.Deps{
		Catalog:      rt.catalog,
		Orchestrator: rt.orch,
		Loader:       loader,
		Presets:      presets,
		PresetEvents: events,
		Metrics:      rt.metrics,
		Logger:       rt.logger,
	}

	switch cfg.Viewer.Engine {
	case config.EngineWeb:
		lib := &web.Library{URL: cfg.Viewer.LibraryURL, CacheDir: cfg.Viewer.CacheDir}
		surface := web.NewSurface(lib, rt.metrics, rt.logger)
		if err := surface.Start(cfg.Viewer.WebAddr); err != nil {
			return fmt.Errorf("start web viewer: %w", err)
		}
		defer surface.Close()
		loader.Detect = lib.Present
		loader.Acquire = lib.Fetch
		deps.Viewer = &viewer.Controller{Engine: web.Engine{}, Surface: surface, Metrics: rt.metrics, Logger: rt.logger}
		deps.WebURL = surface.URL()
	default:
		canvas := term.NewSurface(60, 20)
		loader.Detect = term.Available
		deps.Viewer = &viewer.Controller{Engine: term.Engine{}, Surface: canvas, Metrics: rt.metrics, Logger: rt.logger}
		deps.Canvas = canvas
	}

	p := tea.NewProgram(tui.New(ctx, cfg, deps), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}
