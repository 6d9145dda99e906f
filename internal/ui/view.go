package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/snapwatch/internal/query"
)

const (
	processingText = "Archival underway, the view will update on finish."
	fetchErrorText = "Error fetching data, try refreshing."
	notFoundText   = "Snapshot not found."
)

// View implements tea.Model.
func (m Model) View() string {
	var body string
	switch {
	case m.confirming:
		body = m.renderConfirm()
	case m.screen == ScreenDetail:
		body = m.renderDetail()
	default:
		body = m.renderList()
	}

	sections := []string{m.renderHeader(), "", body, ""}
	if m.toast != nil {
		style := m.styles.ToastInfo
		if m.toast.isErr {
			style = m.styles.ToastError
		}
		sections = append(sections, style.Render(m.toast.text))
	}
	sections = append(sections, m.renderFooter())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderHeader() string {
	title := "All snapshots"
	if m.screen == ScreenDetail {
		title = "Snapshot " + m.detail.id
	}
	return m.styles.Header.Render(
		m.styles.AccentText.Render("snapwatch") + "  " + m.styles.Title.Render(title) +
			"  " + m.styles.FaintText.Render(m.theme.Name),
	)
}

func (m Model) renderFooter() string {
	bindings := m.keys.listHelp()
	if m.screen == ScreenDetail {
		bindings = m.keys.detailHelp(m.canDelete())
	}
	return m.styles.Footer.Render(helpLine(bindings))
}

func (m Model) renderList() string {
	l := m.list
	if l.loading && len(l.items) == 0 {
		return m.spinner.View() + " " + m.styles.MutedText.Render("Loading...")
	}
	if l.err != nil && len(l.items) == 0 {
		return m.styles.DangerText.Render(fetchErrorText)
	}
	if len(l.items) == 0 {
		return m.styles.MutedText.Render("No snapshots yet.")
	}

	titleWidth := 48
	if m.width > 40 {
		titleWidth = m.width - 36
	}
	now := m.now()
	var b strings.Builder
	for i, s := range l.items {
		state := m.styles.WarningText.Render("processing")
		if s.Ready {
			state = m.styles.SuccessText.Render("ready     ")
		}
		title := s.Title
		if title == "" {
			title = s.URL
		}
		row := fmt.Sprintf("%-*s  %s  %s", titleWidth, truncate(title, titleWidth), state,
			m.styles.FaintText.Render(relativeLabel(s.CreatedAt, now)))
		if i == l.cursor {
			row = m.styles.Selected.Render(row)
		}
		b.WriteString(row)
		if i < len(l.items)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func (m Model) renderDetail() string {
	d := m.detail
	v := d.view
	switch {
	case d.notFound:
		return lipgloss.JoinVertical(lipgloss.Left,
			m.styles.DangerText.Render("404"),
			m.styles.Text.Render(notFoundText),
		)
	case v.Deleted:
		return m.styles.MutedText.Render("Snapshot deleted.")
	case d.opening:
		return m.spinner.View() + " " + m.styles.MutedText.Render("Loading...")
	case d.err != nil:
		return m.styles.DangerText.Render(fetchErrorText)
	case v.Status == query.StatusGone:
		return m.styles.MutedText.Render("This snapshot no longer exists.")
	case !v.HasData():
		if v.Status == query.StatusError {
			return m.styles.DangerText.Render(fetchErrorText)
		}
		return m.spinner.View() + " " + m.styles.MutedText.Render("Loading...")
	}

	s := v.Data
	title := s.Title
	if s.Favicon {
		title = "◆ " + title
	}
	lines := []string{
		m.styles.Title.Render(title),
		m.styles.AccentText.Render(s.URL),
		"",
	}
	if !s.Ready {
		lines = append(lines, m.spinner.View()+" "+m.styles.WarningText.Render(processingText))
	} else {
		files, _, _ := s.Stats()
		lines = append(lines,
			m.field("Files", filesLabel(files)),
			m.field("Size", sizeLabel(s.Size)),
		)
		if view, screenshot := archiveLinks(m.static, s.ID); view != "" {
			lines = append(lines,
				m.field("View", view),
				m.field("Shot", screenshot),
			)
		}
	}
	lines = append(lines, m.field("Created", createdLabel(s.CreatedAt)))

	if v.IsStale() {
		lines = append(lines, "", m.styles.WarningText.Render("Last refresh failed, showing earlier data."))
	}
	if v.Interval > 0 {
		lines = append(lines, m.styles.FaintText.Render("Checking every "+v.Interval.String()))
	}
	return m.styles.Card.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func (m Model) field(label, value string) string {
	return m.styles.MutedText.Render(fmt.Sprintf("%-8s", label)) + " " + m.styles.Text.Render(value)
}

func (m Model) renderConfirm() string {
	title := m.detail.id
	if m.detail.view.Data != nil && m.detail.view.Data.Title != "" {
		title = m.detail.view.Data.Title
	}
	return m.styles.Modal.Render(lipgloss.JoinVertical(lipgloss.Left,
		m.styles.DangerText.Render("Delete snapshot?"),
		"",
		m.styles.Text.Render(title),
		m.styles.MutedText.Render("This cannot be undone."),
		"",
		m.styles.FaintText.Render("y confirm  n cancel"),
	))
}
