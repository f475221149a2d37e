package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/jask/crystalgen/internal/composition"
	"github.com/jask/crystalgen/internal/generation"
	"github.com/jask/crystalgen/internal/viewer"
)

const (
	formWidth   = 54
	sliderWidth = 20
	sgHint      = "Common: 225 (Fm-3m), 194 (P6₃/mmc), 221 (Pm-3m)"
)

var (
	colorAccent = lipgloss.Color("#7aa2f7")
	colorMuted  = lipgloss.Color("#6c7086")
	colorError  = lipgloss.Color("#f38ba8")
	colorOK     = lipgloss.Color("#a6e3a1")

	titleStyle   = lipgloss.NewStyle().Bold(true).Underline(true)
	labelStyle   = lipgloss.NewStyle().Foreground(colorMuted)
	focusStyle   = lipgloss.NewStyle().Foreground(colorAccent).Bold(true)
	errStyle     = lipgloss.NewStyle().Foreground(colorError)
	okStyle      = lipgloss.NewStyle().Foreground(colorOK).Bold(true)
	panelStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorMuted).Padding(0, 1)
	statusStyle  = lipgloss.NewStyle().Foreground(colorMuted)
	disabledBtn  = lipgloss.NewStyle().Foreground(colorMuted).Padding(0, 2).Border(lipgloss.NormalBorder()).BorderForeground(colorMuted)
	generateBtn  = lipgloss.NewStyle().Foreground(colorAccent).Bold(true).Padding(0, 2).Border(lipgloss.NormalBorder()).BorderForeground(colorAccent)
	selectedItem = lipgloss.NewStyle().Reverse(true)
)

func (a *App) View() string {
	left := panelStyle.Width(formWidth).Render(a.renderForm())
	right := panelStyle.Render(a.renderResult())
	body := lipgloss.JoinHorizontal(lipgloss.Top, left, right)
	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("Crystal structure generator"),
		body,
		a.renderStatus(),
		a.help.View(a.keys),
	)
}

func (a *App) marker(f field) string {
	if a.focus == f {
		return focusStyle.Render("›") + " "
	}
	return "  "
}

func (a *App) renderForm() string {
	var b strings.Builder

	b.WriteString(a.marker(fieldPresets) + labelStyle.Render("Presets: "))
	for i, p := range a.presets {
		label := p.Label
		if i == a.presetIdx && a.focus == fieldPresets {
			label = selectedItem.Render(label)
		}
		b.WriteString(label + " ")
	}
	b.WriteString("\n\n")

	b.WriteString(a.marker(fieldElement) + a.element.View() + "\n")
	b.WriteString(a.marker(fieldAmount) + a.amount.View() + "\n")
	if hint := a.elementHint(); hint != "" {
		b.WriteString("  " + labelStyle.Render(hint) + "\n")
	}
	b.WriteString("\n")

	b.WriteString(a.marker(fieldComposition) + labelStyle.Render("Composition") + "\n")
	entries := a.comp.Entries()
	if len(entries) == 0 {
		b.WriteString("    " + labelStyle.Render("no elements") + "\n")
	}
	for i, e := range entries {
		line := fmt.Sprintf("%-3s %s", e.Element, formatAmount(e.Amount))
		if a.focus == fieldComposition && i == a.compCursor {
			line = selectedItem.Render(line)
		}
		b.WriteString("    " + line + "\n")
	}
	b.WriteString("\n")

	b.WriteString(a.marker(fieldSpaceGroup) + a.spacegroup.View() + "\n")
	b.WriteString("  " + labelStyle.Render(sgHint) + "\n")
	b.WriteString(a.marker(fieldAtoms) + "Atoms       " +
		slider(float64(a.numAtoms-generation.MinAtoms)/float64(generation.MaxAtoms-generation.MinAtoms)) +
		" " + strconv.Itoa(a.numAtoms) + "\n")
	b.WriteString(a.marker(fieldTemperature) + "Temperature " +
		slider((a.temperature-generation.MinTemperature)/(generation.MaxTemperature-generation.MinTemperature)) +
		" " + strconv.FormatFloat(a.temperature, 'f', 1, 64) + "\n\n")

	if a.keys.Generate.Enabled() {
		b.WriteString(generateBtn.Render("Generate"))
	} else {
		b.WriteString(disabledBtn.Render("Generate"))
	}
	return b.String()
}

func (a *App) elementHint() string {
	text := strings.TrimSpace(a.element.Value())
	if text == "" || a.comp.Known(text) {
		return ""
	}
	hints := composition.Suggest(text, a.known, 3)
	if len(hints) == 0 {
		return "unknown element"
	}
	return "did you mean " + strings.Join(hints, ", ") + "?"
}

func (a *App) renderResult() string {
	if a.deps.Orchestrator == nil {
		return labelStyle.Render("generation service not configured")
	}
	snap := a.deps.Orchestrator.Snapshot()
	var out string
	switch snap.State {
	case generation.Pending:
		out = a.spinner.View() + " Generating structure..."
	case generation.Failed:
		out = errStyle.Render("✗ " + snap.Message())
	case generation.Succeeded:
		return a.renderStructure(snap.Result)
	default:
		out = labelStyle.Render("Pick a composition and press ctrl+g to generate.")
	}
	if a.viewerState == viewer.LoadingFailed {
		out += "\n\n" + errStyle.Render(viewer.UnavailableMessage)
	}
	return out
}

func (a *App) renderStructure(s *generation.Structure) string {
	var b strings.Builder
	b.WriteString(okStyle.Render("✓ "+s.Formula) + "\n")
	b.WriteString(fmt.Sprintf("Space group %d   Atoms %d", s.SpaceGroup, len(s.Atoms)))
	if l := s.Lattice; l != nil {
		b.WriteString(fmt.Sprintf("   Volume %.3f Å³\n", l.Volume))
		b.WriteString(fmt.Sprintf("a=%.3f Å  b=%.3f Å  c=%.3f Å\n", l.A, l.B, l.C))
		b.WriteString(fmt.Sprintf("α=%.1f°  β=%.1f°  γ=%.1f°\n", l.Alpha, l.Beta, l.Gamma))
	} else {
		b.WriteString("\n")
	}
	if len(s.Atoms) > 0 {
		b.WriteString("\n" + a.atoms.View() + "\n")
	}
	b.WriteString("\n" + a.renderViewer())
	return b.String()
}

func (a *App) renderViewer() string {
	switch a.viewerState {
	case viewer.Unloaded, viewer.Loading:
		return labelStyle.Render("Loading 3D viewer...")
	case viewer.LoadingFailed:
		return errStyle.Render(viewer.UnavailableMessage)
	}
	if a.viewerErr != nil {
		return errStyle.Render(a.viewerErr.Error())
	}
	if a.deps.WebURL != "" {
		return "3D view: open " + focusStyle.Render(a.deps.WebURL)
	}
	if a.deps.Canvas != nil {
		return a.deps.Canvas.View()
	}
	return ""
}

func (a *App) renderStatus() string {
	msg := a.status
	if msg == "" {
		return ""
	}
	if a.width > 0 {
		msg = ansi.Truncate(strings.ReplaceAll(msg, "\n", " "), a.width, "…")
	}
	if a.statusErr {
		return errStyle.Render(msg)
	}
	return statusStyle.Render(msg)
}

func slider(frac float64) string {
	frac = min(max(frac, 0), 1)
	filled := int(frac*float64(sliderWidth) + 0.5)
	return focusStyle.Render(strings.Repeat("━", filled)) + labelStyle.Render(strings.Repeat("─", sliderWidth-filled))
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
