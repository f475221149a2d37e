package tui

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jask/crystalgen/internal/composition"
	"github.com/jask/crystalgen/internal/config"
	"github.com/jask/crystalgen/internal/export"
	"github.com/jask/crystalgen/internal/generation"
	"github.com/jask/crystalgen/internal/metrics"
	"github.com/jask/crystalgen/internal/viewer"
	"github.com/jask/crystalgen/internal/viewer/term"
)

const frameInterval = 33 * time.Millisecond

// Deps are the services the generation screen drives.
type Deps struct {
	Catalog      *composition.Catalog
	Orchestrator *generation.Orchestrator
	Loader       *viewer.Loader
	Viewer       *viewer.Controller
	// Canvas is set for the terminal engine; WebURL for the browser engine.
	Canvas       *term.Surface
	WebURL       string
	Presets      []composition.Preset
	PresetEvents <-chan []composition.Preset
	Metrics      *metrics.Recorder
	Logger       *slog.Logger
}

type field int

const (
	fieldPresets field = iota
	fieldElement
	fieldAmount
	fieldComposition
	fieldSpaceGroup
	fieldAtoms
	fieldTemperature
	fieldCount
)

// App is the single generation screen.
type App struct {
	ctx  context.Context
	cfg  config.Config
	deps Deps
	keys keyMap
	help help.Model

	comp       *composition.Model
	known      []string
	presets    []composition.Preset
	presetIdx  int
	compCursor int

	element     textinput.Model
	amount      textinput.Model
	spacegroup  textinput.Model
	numAtoms    int
	temperature float64

	focus   field
	spinner spinner.Model
	atoms   table.Model

	viewerState viewer.Readiness
	viewerErr   error

	status    string
	statusErr bool
	width     int
	height    int
}

func New(ctx context.Context, cfg config.Config, deps Deps) *App {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	known := composition.DefaultElements
	if deps.Catalog != nil {
		known = deps.Catalog.Symbols()
	}
	presets := deps.Presets
	if len(presets) == 0 {
		presets = composition.DefaultPresets()
	}

	el := textinput.New()
	el.Placeholder = "Fe"
	el.Prompt = "Element: "
	el.CharLimit = 3

	amt := textinput.New()
	amt.Prompt = "Amount: "
	amt.CharLimit = 8
	amt.SetValue("1")

	sg := textinput.New()
	sg.Prompt = "Space group: "
	sg.CharLimit = 3
	sg.SetValue(strconv.Itoa(generation.ClampSpaceGroup(cfg.Defaults.SpaceGroup)))

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	atoms := table.New(
		table.WithColumns([]table.Column{
			{Title: "#", Width: 3},
			{Title: "Element", Width: 7},
			{Title: "x", Width: 8},
			{Title: "y", Width: 8},
			{Title: "z", Width: 8},
		}),
		table.WithHeight(8),
		table.WithFocused(false),
	)

	a := &App{
		ctx:         ctx,
		cfg:         cfg,
		deps:        deps,
		keys:        newKeyMap(),
		help:        help.New(),
		comp:        composition.New(known, composition.Entry{Element: "Fe", Amount: 1}, composition.Entry{Element: "O", Amount: 1}),
		known:       known,
		presets:     presets,
		element:     el,
		amount:      amt,
		spacegroup:  sg,
		numAtoms:    generation.ClampAtoms(cfg.Defaults.NumAtoms),
		temperature: generation.ClampTemperature(cfg.Defaults.Temperature),
		focus:       fieldElement,
		spinner:     sp,
		atoms:       atoms,
	}
	a.element.Focus()
	a.syncKeys()
	return a
}

func (a *App) Init() tea.Cmd {
	return tea.Batch(a.loadElements(), a.loadViewer(), a.waitPresets(), textinput.Blink)
}

func (a *App) loadElements() tea.Cmd {
	return func() tea.Msg {
		if a.deps.Catalog == nil {
			return elementsMsg(composition.DefaultElements)
		}
		return elementsMsg(a.deps.Catalog.Refresh(a.ctx))
	}
}

func (a *App) loadViewer() tea.Cmd {
	return func() tea.Msg {
		if a.deps.Loader == nil {
			return viewerLoadedMsg{state: viewer.LoadingFailed, err: viewer.ErrNoAcquirer}
		}
		state, err := a.deps.Loader.Load(a.ctx)
		return viewerLoadedMsg{state: state, err: err}
	}
}

func (a *App) waitPresets() tea.Cmd {
	ch := a.deps.PresetEvents
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		p, ok := <-ch
		if !ok {
			return nil
		}
		return presetsMsg(p)
	}
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m := msg.(type) {
	case tea.WindowSizeMsg:
		a.width, a.height = m.Width, m.Height
		a.help.Width = m.Width
		if a.deps.Canvas != nil {
			a.deps.Canvas.Resize(max(24, m.Width-formWidth-6), max(8, m.Height/2-2))
		}
	case tea.KeyMsg:
		return a.handleKey(m)
	case elementsMsg:
		a.known = []string(m)
		a.comp.SetKnown(a.known)
		if a.deps.Catalog != nil && a.deps.Catalog.Fallback() {
			a.setStatus("Generation service unreachable; using built-in element list", false)
		}
	case viewerLoadedMsg:
		a.viewerState = m.state
		if m.err != nil {
			a.deps.Logger.Warn("3D viewer unavailable", "error", m.err)
		}
		if m.state == viewer.LoadingFailed {
			a.setStatus(viewer.UnavailableMessage, true)
		}
		return a, a.syncViewer()
	case generatedMsg:
		if a.deps.Orchestrator.Complete(generation.Outcome(m)) {
			a.refreshAtoms()
		}
		a.syncKeys()
		return a, a.syncViewer()
	case spinner.TickMsg:
		if a.deps.Orchestrator == nil || !a.deps.Orchestrator.Pending() {
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(m)
		return a, cmd
	case frameMsg:
		if a.deps.Canvas != nil && a.deps.Canvas.Tick() {
			return a, frame()
		}
	case exportedMsg:
		a.setStatus("Saved "+m.path, false)
	case presetsMsg:
		if len(m) > 0 {
			a.presets = []composition.Preset(m)
			if a.presetIdx >= len(a.presets) {
				a.presetIdx = 0
			}
			a.setStatus(fmt.Sprintf("Reloaded %d presets", len(a.presets)), false)
		}
		return a, a.waitPresets()
	case statusMsg:
		a.setStatus(string(m), false)
	case errMsg:
		a.setStatus("error: "+m.Error(), true)
	}
	return a, nil
}

func (a *App) handleKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(m, a.keys.Quit):
		a.closeViewer()
		return a, tea.Quit
	case pressed(m, a.keys.Generate):
		return a.generate()
	case pressed(m, a.keys.Export):
		return a, a.exportCmd()
	case key.Matches(m, a.keys.Next):
		a.setFocus((a.focus + 1) % fieldCount)
		return a, nil
	case key.Matches(m, a.keys.Prev):
		a.setFocus((a.focus + fieldCount - 1) % fieldCount)
		return a, nil
	case key.Matches(m, a.keys.Rotate):
		a.rotate(m.String())
		return a, nil
	}

	switch a.focus {
	case fieldPresets:
		switch {
		case key.Matches(m, a.keys.Left):
			a.presetIdx = (a.presetIdx + len(a.presets) - 1) % len(a.presets)
		case key.Matches(m, a.keys.Right):
			a.presetIdx = (a.presetIdx + 1) % len(a.presets)
		case key.Matches(m, a.keys.Submit):
			a.applyPreset()
		}
		return a, nil
	case fieldElement, fieldAmount:
		if key.Matches(m, a.keys.Submit) {
			a.addElement()
			return a, nil
		}
	case fieldComposition:
		switch {
		case key.Matches(m, a.keys.Up):
			a.compCursor = max(0, a.compCursor-1)
		case key.Matches(m, a.keys.Down):
			a.compCursor = max(0, min(a.comp.Len()-1, a.compCursor+1))
		case key.Matches(m, a.keys.Remove), key.Matches(m, a.keys.Submit):
			a.removeElement()
		}
		return a, nil
	case fieldSpaceGroup:
		switch {
		case key.Matches(m, a.keys.Left):
			a.stepSpaceGroup(-1)
			return a, nil
		case key.Matches(m, a.keys.Right):
			a.stepSpaceGroup(1)
			return a, nil
		case key.Matches(m, a.keys.Submit):
			return a.generate()
		}
	case fieldAtoms:
		switch {
		case key.Matches(m, a.keys.Left):
			a.numAtoms = generation.ClampAtoms(a.numAtoms - 1)
		case key.Matches(m, a.keys.Right):
			a.numAtoms = generation.ClampAtoms(a.numAtoms + 1)
		case key.Matches(m, a.keys.Submit):
			return a.generate()
		}
		return a, nil
	case fieldTemperature:
		switch {
		case key.Matches(m, a.keys.Left):
			a.temperature = generation.ClampTemperature(a.temperature - generation.TemperatureStep)
		case key.Matches(m, a.keys.Right):
			a.temperature = generation.ClampTemperature(a.temperature + generation.TemperatureStep)
		case key.Matches(m, a.keys.Submit):
			return a.generate()
		}
		return a, nil
	}
	return a, a.updateInput(m)
}

func (a *App) updateInput(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch a.focus {
	case fieldElement:
		a.element, cmd = a.element.Update(msg)
	case fieldAmount:
		a.amount, cmd = a.amount.Update(msg)
	case fieldSpaceGroup:
		a.spacegroup, cmd = a.spacegroup.Update(msg)
	}
	return cmd
}

func (a *App) setFocus(f field) {
	a.focus = f
	a.element.Blur()
	a.amount.Blur()
	a.spacegroup.Blur()
	switch f {
	case fieldElement:
		a.element.Focus()
	case fieldAmount:
		a.amount.Focus()
	case fieldSpaceGroup:
		a.spacegroup.Focus()
	case fieldComposition:
		a.compCursor = min(max(0, a.compCursor), max(0, a.comp.Len()-1))
	}
}

func (a *App) addElement() {
	symbol := strings.TrimSpace(a.element.Value())
	if symbol == "" {
		a.setFocus(fieldElement)
		return
	}
	amount, err := strconv.ParseFloat(strings.TrimSpace(a.amount.Value()), 64)
	if err != nil || amount <= 0 {
		a.setStatus("Amount must be a positive number", true)
		return
	}
	if !a.comp.Add(symbol, amount) {
		msg := fmt.Sprintf("Unknown element %q", symbol)
		if hints := composition.Suggest(symbol, a.known, 3); len(hints) > 0 {
			msg += "; did you mean " + strings.Join(hints, ", ") + "?"
		}
		a.setStatus(msg, true)
		return
	}
	a.element.SetValue("")
	a.amount.SetValue("1")
	a.setFocus(fieldElement)
	a.setStatus("", false)
	a.syncKeys()
}

func (a *App) removeElement() {
	if !a.comp.Remove(a.compCursor) {
		return
	}
	if a.compCursor >= a.comp.Len() {
		a.compCursor = max(0, a.comp.Len()-1)
	}
	a.syncKeys()
}

func (a *App) applyPreset() {
	if len(a.presets) == 0 {
		return
	}
	p := a.presets[a.presetIdx]
	skipped := a.comp.ApplyPreset(p.Elements)
	a.compCursor = 0
	if len(skipped) > 0 {
		a.setStatus(fmt.Sprintf("Applied preset %s without unknown elements: %s", p.Label, strings.Join(skipped, ", ")), true)
	} else {
		a.setStatus("Applied preset "+p.Label, false)
	}
	a.syncKeys()
}

func (a *App) stepSpaceGroup(delta int) {
	n, err := strconv.Atoi(strings.TrimSpace(a.spacegroup.Value()))
	if err != nil {
		n = a.cfg.Defaults.SpaceGroup
	}
	a.spacegroup.SetValue(strconv.Itoa(generation.ClampSpaceGroup(n + delta)))
	a.spacegroup.CursorEnd()
}

func (a *App) params() generation.Parameters {
	sg, err := strconv.Atoi(strings.TrimSpace(a.spacegroup.Value()))
	if err != nil {
		sg = 0
	}
	return generation.Parameters{
		SpaceGroup:  sg,
		Composition: a.comp.Map(),
		NumAtoms:    a.numAtoms,
		Temperature: a.temperature,
	}
}

func (a *App) canGenerate() bool {
	return a.deps.Orchestrator != nil && !a.deps.Orchestrator.Pending() && a.comp.Len() > 0
}

func (a *App) generate() (tea.Model, tea.Cmd) {
	if a.deps.Orchestrator == nil {
		return a, nil
	}
	if a.deps.Orchestrator.Pending() {
		a.setStatus("Generation already in progress", false)
		return a, nil
	}
	if a.comp.Len() == 0 {
		a.setStatus(generation.EmptyCompositionMessage, true)
		return a, nil
	}
	a.viewerErr = nil
	call, err := a.deps.Orchestrator.Submit(a.params())
	a.refreshAtoms()
	a.syncKeys()
	if err != nil {
		return a, nil
	}
	a.setStatus("", false)
	return a, tea.Batch(a.generateCmd(call), a.spinner.Tick)
}

func (a *App) generateCmd(call *generation.Call) tea.Cmd {
	return func() tea.Msg {
		return generatedMsg(a.deps.Orchestrator.Execute(a.ctx, call))
	}
}

// syncViewer hands the current result to the viewer controller. It runs after
// every change to either the result or the library readiness.
func (a *App) syncViewer() tea.Cmd {
	if a.deps.Viewer == nil || a.deps.Orchestrator == nil {
		return nil
	}
	snap := a.deps.Orchestrator.Snapshot()
	if snap.State != generation.Succeeded || snap.Result == nil {
		return nil
	}
	did, err := a.deps.Viewer.Observe(a.viewerState, strconv.FormatUint(snap.Seq, 10), snap.Result.XYZ)
	if !did {
		return nil
	}
	a.viewerErr = err
	if err == nil && a.deps.Canvas != nil && a.deps.Canvas.Animating() {
		return frame()
	}
	return nil
}

func (a *App) closeViewer() {
	if a.deps.Viewer == nil {
		return
	}
	if err := a.deps.Viewer.Close(); err != nil {
		a.deps.Logger.Warn("closing viewer", "error", err)
	}
}

func (a *App) rotate(k string) {
	if a.deps.Canvas == nil {
		return
	}
	const step = 0.2
	switch k {
	case "ctrl+left":
		a.deps.Canvas.Rotate(-step, 0)
	case "ctrl+right":
		a.deps.Canvas.Rotate(step, 0)
	case "ctrl+up":
		a.deps.Canvas.Rotate(0, -step)
	case "ctrl+down":
		a.deps.Canvas.Rotate(0, step)
	}
}

func (a *App) exportCmd() tea.Cmd {
	if a.deps.Orchestrator == nil {
		return nil
	}
	res := a.deps.Orchestrator.Snapshot().Result
	if !export.Available(res) {
		a.setStatus(export.ErrNoCIF.Error(), true)
		return nil
	}
	dir := a.cfg.Export.Dir
	rec := a.deps.Metrics
	return func() tea.Msg {
		art, err := export.CIF(res)
		if err != nil {
			return errMsg{err}
		}
		path, err := export.Write(dir, art)
		if err != nil {
			return errMsg{err}
		}
		rec.Export()
		return exportedMsg{path: path}
	}
}

func (a *App) refreshAtoms() {
	rows := []table.Row{}
	if a.deps.Orchestrator != nil {
		if res := a.deps.Orchestrator.Snapshot().Result; res != nil {
			for i, at := range res.Atoms {
				rows = append(rows, table.Row{
					strconv.Itoa(i + 1),
					at.Element,
					fmt.Sprintf("%.3f", at.Position[0]),
					fmt.Sprintf("%.3f", at.Position[1]),
					fmt.Sprintf("%.3f", at.Position[2]),
				})
			}
		}
	}
	a.atoms.SetRows(rows)
	a.atoms.SetHeight(min(max(len(rows), 1), 8) + 1)
}

func (a *App) syncKeys() {
	a.keys.Generate.SetEnabled(a.canGenerate())
	var res *generation.Structure
	if a.deps.Orchestrator != nil {
		res = a.deps.Orchestrator.Snapshot().Result
	}
	a.keys.Export.SetEnabled(export.Available(res))
}

func (a *App) setStatus(s string, isErr bool) {
	a.status = s
	a.statusErr = isErr
}

// pressed matches b even while it is disabled; disabled bindings only change
// how the action is shown.
func pressed(m tea.KeyMsg, b key.Binding) bool {
	return slices.Contains(b.Keys(), m.String())
}

func frame() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg { return frameMsg(t) })
}

type elementsMsg []string

type viewerLoadedMsg struct {
	state viewer.Readiness
	err   error
}

type generatedMsg generation.Outcome

type frameMsg time.Time

type exportedMsg struct{ path string }

type presetsMsg []composition.Preset

type statusMsg string

type errMsg struct{ error }
