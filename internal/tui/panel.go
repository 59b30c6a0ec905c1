package tui

import (
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/cj3636/gblame/internal/commit"
	"github.com/cj3636/gblame/internal/gutter"
)

// commitDetails lists the lines shown for c in the details panel.
func (m Model) commitDetails(c *commit.Commit) []string {
	lines := []string{m.styles.panelTitle.Render("commit " + string(c.ID()))}

	if c.IsUncommitted() {
		return append(lines, m.styles.uncommitted.Render("Not committed yet"))
	}

	if author := c.Author(); author != "" {
		if mail, ok := c.Property("author-mail"); ok {
			author += " " + mail
		}
		lines = append(lines, "Author:  "+author)
	}
	if ts, ok := c.AuthorTime(); ok {
		lines = append(lines, "Date:    "+ts.Format(time.RFC1123Z))
	}

	switch {
	case c.HasLogData():
		parents := c.Parents()
		ids := make([]string, 0, len(parents))
		for _, p := range parents {
			ids = append(ids, p.ID().Short())
		}
		if len(ids) == 0 {
			ids = append(ids, "none")
		}
		lines = append(lines, "Parents: "+strings.Join(ids, " "), "")

		text := strings.TrimRight(gutter.DisplayText(c.LogText()), "\n")
		for _, l := range strings.Split(text, "\n") {
			lines = append(lines, gutter.ExpandTabs(l, m.cfg.TabSize))
		}
	case c.Fetching():
		lines = append(lines, "", m.spinner.View()+m.styles.help.Render(" Loading commit log…"))
	default:
		if s := c.Summary(); s != "" {
			lines = append(lines, "", "    "+s)
		}
	}

	return lines
}

// renderCommitPanel renders the details of the commit under the cursor
// below the main view.
func (m Model) renderCommitPanel() string {
	lines := m.commitDetails(m.panel)

	// Border takes two rows.
	if limit := m.cfg.Spacing.PanelHeight - 2; limit > 0 && len(lines) > limit {
		lines = append(lines[:limit-1], m.styles.help.Render("…"))
	}

	style := m.styles.panel
	if m.width > 4 {
		clip := lipgloss.NewStyle().MaxWidth(m.width - 4)
		for i, l := range lines {
			lines[i] = clip.Render(l)
		}
		style = style.Width(m.width - 2)
	}
	return style.Render(strings.Join(lines, "\n"))
}
