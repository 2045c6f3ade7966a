package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/example/mediatranslate/internal/langsel"
	"github.com/example/mediatranslate/internal/models"
	"github.com/example/mediatranslate/internal/presenter"
	"github.com/example/mediatranslate/internal/session"
)

// View renders the model
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("MEDIA TRANSLATE") + "\n\n")

	switch m.state.Phase {
	case session.PhaseUpload:
		b.WriteString(m.renderUpload())
	case session.PhaseProcessing:
		b.WriteString(m.renderProcessing())
	case session.PhaseResult:
		b.WriteString(m.renderResult())
	}

	if m.status != "" {
		style := okStyle
		if m.failed {
			style = errorStyle
		}
		b.WriteString("\n" + style.Render(m.status) + "\n")
	}
	return b.String()
}

func (m Model) renderUpload() string {
	var b strings.Builder

	if m.state.Error != "" {
		b.WriteString(errorStyle.Render(m.state.Error) + "\n\n")
	}

	b.WriteString("Target languages\n")
	for i, lang := range langsel.Catalog {
		cursor := "  "
		if i == m.cursor {
			cursor = titleStyle.Render("> ")
		}
		check := "[ ]"
		if m.ws.Languages.Contains(lang.Code) {
			check = okStyle.Render("[x]")
		}
		fmt.Fprintf(&b, "%s%s %s %s %s\n", cursor, check, lang.Flag, lang.Name, mutedStyle.Render(lang.Code))
	}

	diar := "off"
	if m.diarization {
		diar = "on"
	}
	fmt.Fprintf(&b, "\nFile: %s\n", m.pathInput.View())
	fmt.Fprintf(&b, "Speaker detection (audio, video): %s\n", diar)

	if len(m.items) > 0 {
		b.WriteString("\nRecent\n")
		b.WriteString(m.historyT.View() + "\n")
	}

	b.WriteString("\n" + helpStyle.Render("↑/↓ move • space toggle • tab edit path • enter submit • i speakers • d demo • x clear history • q quit") + "\n")
	return b.String()
}

func (m Model) renderProcessing() string {
	pr := m.state.Processing
	if pr == nil {
		return ""
	}
	var b strings.Builder

	name := pr.Filename
	if pr.Demo {
		name += mutedStyle.Render(" (demo)")
	}
	fmt.Fprintf(&b, "%s %s\n\n", m.spinner.View(), name)

	for i, st := range pr.Stages {
		var mark string
		var style lipgloss.Style
		switch {
		case i < pr.StageIndex:
			mark, style = "✓", okStyle
		case i == pr.StageIndex:
			mark, style = "•", titleStyle
		default:
			mark, style = " ", mutedStyle
		}
		fmt.Fprintf(&b, "%s %s\n", style.Render(mark+" "+st.Title), mutedStyle.Render(st.Description))
	}

	pct := session.EstimatedProgress(m.state)
	if !pr.Demo && pr.UploadProgress < 100 {
		fmt.Fprintf(&b, "\nUploading %d%%\n%s\n", pr.UploadProgress, m.progress.ViewAs(float64(pr.UploadProgress)/100))
	} else {
		fmt.Fprintf(&b, "\n%s\n", m.progress.ViewAs(pct/100))
	}
	fmt.Fprintf(&b, "Elapsed %s\n", session.FormatElapsed(pr.ElapsedSeconds))

	b.WriteString("\n" + helpStyle.Render("esc cancel • q quit") + "\n")
	return b.String()
}

func tabLabel(tab, source string) string {
	if tab == presenter.TabOriginal {
		return "Original (" + source + ")"
	}
	if lang, ok := langsel.Lookup(tab); ok {
		return lang.Flag + " " + lang.Name
	}
	return strings.ToUpper(tab)
}

func (m Model) renderResult() string {
	p := m.ws.Presenter()
	if p == nil {
		return ""
	}
	v := p.View()
	var b strings.Builder

	fmt.Fprintf(&b, "%s %s\n\n", v.Filename, mutedStyle.Render(string(v.FileType)))

	tabs := make([]string, len(v.Tabs))
	for i, t := range v.Tabs {
		label := tabLabel(t, v.Source)
		if t == v.ActiveTab {
			tabs[i] = activeStyle.Render(label)
		} else {
			tabs[i] = tabStyle.Render(label)
		}
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, tabs...) + "\n")

	text := v.Text
	if text == "" {
		text = mutedStyle.Render("(empty)")
	}
	b.WriteString(boxStyle.Width(clamp(m.width-4, 20, 120)).Render(text) + "\n")

	fmt.Fprintf(&b, "%d languages • %d characters • %d words", v.Stats.Languages, v.Stats.Characters, v.Stats.Words)
	if v.Copied == v.ActiveTab && v.Copied != "" {
		b.WriteString("  " + okStyle.Render("✓ Copied"))
	}
	b.WriteString("\n")

	if v.ShowBoxes {
		boxes, total := p.Boxes()
		fmt.Fprintf(&b, "\nText blocks (%d)\n", total)
		for _, bb := range boxes {
			fmt.Fprintf(&b, "  %3.0f%%  %s\n", bb.Confidence*100, models.TruncateRunes(bb.Text, 60))
		}
		if total > len(boxes) {
			b.WriteString(mutedStyle.Render(fmt.Sprintf("  … %d more", total-len(boxes))) + "\n")
		}
	}

	if segs := p.Speakers(); len(segs) > 0 {
		b.WriteString("\nSpeakers\n")
		for _, s := range segs {
			fmt.Fprintf(&b, "  %s %s–%ss  %s\n", titleStyle.Render(s.Speaker), s.Start.StringFixed(1), s.End.StringFixed(1), s.Text)
		}
	}

	play := "p play"
	switch {
	case v.Loading:
		play = m.spinner.View() + " loading " + tabLabel(v.Playing, v.Source)
	case v.Playing != "":
		play = "▶ " + tabLabel(v.Playing, v.Source)
	}
	fmt.Fprintf(&b, "\nVoice: %s  %s\n", v.Voice, play)
	if v.Notice != "" {
		b.WriteString(errorStyle.Render(v.Notice) + "\n")
	}

	b.WriteString("\n" + helpStyle.Render("←/→ tabs • c copy • s save txt • w save docx • b blocks • p play • v voice • r new file • q quit") + "\n")
	return b.String()
}
