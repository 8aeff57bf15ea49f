package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"nounfill-go/internal/catalog"
	"nounfill-go/internal/playback"
	"nounfill-go/internal/session"
)

const (
	msgCatalogFailed = "Error loading titles. Press ctrl+n to retry."
	slotsPerRow      = 3
)

func (m *Model) View() string {
	if m.catalog == nil {
		if m.catalogErr != nil {
			return styleError.Render(msgCatalogFailed)
		}
		return stylePane.Render(m.spinner.View() + " Loading titles...")
	}

	answers := stylePane.Render(m.viewAnswers(max(m.width*3/5, 40)))
	nav := styleNav
	if m.focus == focusNav {
		nav = styleNavFocused
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, answers, nav.Render(m.viewNav()))
}

func (m *Model) viewAnswers(width int) string {
	var b strings.Builder
	b.WriteString(styleHeader.Render("Fill in the Nouns"))
	b.WriteString("\n\n")

	if msg, sev := m.session.Message(); msg != "" {
		b.WriteString(renderMessage(msg, sev))
		b.WriteString("\n\n")
	}

	phase := m.session.Phase()
	if !m.session.Loaded() {
		if phase == session.PhaseLoading {
			b.WriteString(m.spinner.View() + " Loading sentence...\n")
		}
		b.WriteString(m.viewHelp())
		return b.String()
	}

	a := m.session.Active()
	title := styleTitle.Render(a.Title)
	if phase == session.PhaseLoading {
		title += " " + m.spinner.View()
	}
	b.WriteString("Title: " + title + "\n\n")

	b.WriteString("Listen to the sentence and identify the nouns:\n")
	if a.Revealed {
		b.WriteString(styleSentence.Render(wordwrap.String(a.Text, width)))
		b.WriteString("\n")
	}
	b.WriteString(m.viewPlayback())
	b.WriteString("\n\n")

	b.WriteString(fmt.Sprintf("Fill in the nouns you heard (%d nouns):\n", a.NounCount))
	b.WriteString(m.viewSlots(a))
	b.WriteString("\n")

	if a.ShowCorrect {
		b.WriteString("\n")
		b.WriteString(styleAnswers.Render("Correct nouns: " + strings.Join(a.CorrectNouns, ", ")))
		b.WriteString("\n")
	}

	if remaining := m.session.Remaining(); phase != session.PhaseLocked && a.ErrorCount > 0 {
		b.WriteString(styleSubtle.Render(fmt.Sprintf("Attempts left: %d", remaining)))
		b.WriteString("\n")
	}
	b.WriteString(m.viewHelp())
	return b.String()
}

func renderMessage(msg string, sev session.Severity) string {
	switch sev {
	case session.SeveritySuccess:
		return styleCorrect.Render(msg)
	case session.SeverityError:
		return styleIncorrect.Render(msg)
	default:
		return styleInfo.Render(msg)
	}
}

func (m *Model) viewPlayback() string {
	loop := styleSubtle.Render("loop off")
	if m.playback.Looping() {
		loop = styleCorrect.Render("loop on")
	}
	speeds := make([]string, len(playback.Speeds))
	for i, s := range playback.Speeds {
		if s == m.playback.Speed() {
			speeds[i] = styleChipSelected.Render(s.String())
		} else {
			speeds[i] = styleChip.Render(s.String())
		}
	}
	state := "stopped"
	if m.playing {
		state = "playing"
	}
	return fmt.Sprintf("%s  %s  %s  %s",
		styleSubtle.Render(state), loop, strings.Join(speeds, ""),
		styleSubtle.Render(fmt.Sprintf("plays: %d", m.playback.Plays())))
}

func (m *Model) viewSlots(a session.Active) string {
	if len(m.inputs) == 0 {
		return styleSubtle.Render("(no nouns in this sentence)")
	}
	var rows []string
	var row []string
	for i := range m.inputs {
		style := styleSlot
		switch {
		case len(a.InputStatus) == len(m.inputs) && a.InputStatus[i]:
			style = styleSlotCorrect
		case len(a.InputStatus) == len(m.inputs):
			style = styleSlotIncorrect
		case m.session.EmptyWarning() && strings.TrimSpace(m.inputs[i].Value()) == "":
			style = styleSlotIncorrect
		case m.focus == focusAnswers && i == m.slot:
			style = styleSlotFocused
		}
		row = append(row, style.Render(m.inputs[i].View()))
		if len(row) == slotsPerRow {
			rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, row...))
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, row...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (m *Model) viewHelp() string {
	return styleSubtle.Render("\nenter: Submit | tab: Next slot | ctrl+n: Next sentence | esc: Titles") +
		styleSubtle.Render("\nctrl+r: Replay | ctrl+l: Loop | ctrl+t: Speed | ctrl+c: Quit")
}

func (m *Model) viewNav() string {
	var b strings.Builder
	b.WriteString(styleHeader.Render("Titles"))
	b.WriteString("\n")
	mastered, total := m.Mastered()
	b.WriteString(styleSubtle.Render(fmt.Sprintf("Mastered %d/%d | Attempts %d (%d correct)",
		mastered, total, m.summary.Attempts, m.summary.Correct)))
	b.WriteString("\n\n")

	b.WriteString(renderChips(m.catalog.Groups, m.nav.filter.Group))
	b.WriteString("\n")
	b.WriteString(renderChips(m.catalog.TestsFor(m.nav.filter.Group), m.nav.filter.Test))
	b.WriteString("\n\n")

	if len(m.nav.visible) == 0 {
		b.WriteString("No titles match this filter.\n")
	}
	start, end := m.nav.window()
	for i := start; i < end; i++ {
		b.WriteString(m.viewNavLine(i, m.nav.visible[i]))
		b.WriteString("\n")
	}

	b.WriteString(styleSubtle.Render(fmt.Sprintf("\nShowing %d of %d titles", len(m.nav.visible), m.catalog.Len())))
	if m.focus == focusNav {
		b.WriteString(styleSubtle.Render("\n↑/↓: Move | ←/→: Group | [/]: Test | enter: Open"))
	}
	return b.String()
}

func (m *Model) viewNavLine(i int, r catalog.Record) string {
	cursor := " "
	if m.focus == focusNav && m.nav.cursor == i {
		cursor = styleCursor.Render(">")
	}
	marker := " "
	if m.progress.Listened(r.Title) {
		marker = "•"
	}

	name := r.Title
	switch {
	case r.Title == m.session.Title():
		name = styleCurrent.Render(name)
	case m.progress.Mastered(r.Title):
		name = styleCorrect.Render(name)
	case m.progress.Count(r.Title) == 0:
		name = styleSubtle.Render(name)
	}

	line := fmt.Sprintf("%s %s %s", cursor, marker, name)
	if st, ok := m.stats[r.Title]; ok {
		line += styleSubtle.Render(fmt.Sprintf("  %d/%d", st.Correct, st.Attempts))
	}
	if m.focus == focusNav && m.nav.cursor == i {
		return styleHighlight.Render(line)
	}
	return line
}

func renderChips(values []string, selected string) string {
	if len(values) == 0 {
		return styleChipSelected.Render(catalog.All)
	}
	chips := make([]string, len(values))
	for i, v := range values {
		if v == selected {
			chips[i] = styleChipSelected.Render(v)
		} else {
			chips[i] = styleChip.Render(v)
		}
	}
	return strings.Join(chips, "")
}
