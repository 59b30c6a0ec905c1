package export

import (
	"fmt"
	"html"
	"path/filepath"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/mattn/go-runewidth"
	"github.com/pkg/errors"

	"github.com/cj3636/gblame/internal/blame"
	"github.com/cj3636/gblame/internal/gutter"
)

// Format represents the desired export format.
type Format string

const (
	// FormatHTML emits an HTML document with colored commit gutters.
	FormatHTML Format = "html"
	// FormatMarkdown emits a Markdown code block.
	FormatMarkdown Format = "markdown"
	// FormatANSI emits a string colored with 24-bit ANSI escapes.
	FormatANSI Format = "ansi"
)

// Options control how a blame is exported.
type Options struct {
	// Title will be shown in HTML/Markdown outputs when provided.
	Title string
	// ShowLineNumbers determines whether final line numbers are included.
	ShowLineNumbers bool
	// Gutter selects the commit columns.
	Gutter gutter.Options
	// TabSize expands tabs in line text when positive.
	TabSize int
}

// ParseFormat resolves a user supplied format name. Empty means markdown.
func ParseFormat(raw string) (Format, error) {
	switch strings.ToLower(raw) {
	case "", string(FormatMarkdown), "md":
		return FormatMarkdown, nil
	case string(FormatHTML), "htm":
		return FormatHTML, nil
	case string(FormatANSI), "text":
		return FormatANSI, nil
	default:
		return "", errors.Errorf("unsupported export format: %s", raw)
	}
}

// Title returns the default document title for a blame of path.
func Title(path, revision string) string {
	if revision == "" {
		return "Blame: " + filepath.Base(path)
	}
	return fmt.Sprintf("Blame: %s @ %s", filepath.Base(path), revision)
}

// Render returns the blamed lines in the requested format.
func Render(lines []blame.Line, format Format, opts Options) (string, error) {
	f, err := ParseFormat(string(format))
	if err != nil {
		return "", err
	}

	switch f {
	case FormatHTML:
		return renderHTML(lines, opts), nil
	case FormatANSI:
		return renderANSI(lines, opts), nil
	default:
		return renderMarkdown(lines, opts), nil
	}
}

type row struct {
	cell  gutter.Cell
	bg    colorful.Color
	no    int
	text  string
	start bool
}

// rows prepares lines for output. start marks the first line of a run of
// lines from the same commit; the gutter is only printed there.
func rows(lines []blame.Line, opts Options) []row {
	out := make([]row, 0, len(lines))
	for i, l := range lines {
		r := row{
			cell:  gutter.For(l, opts.Gutter),
			no:    l.FinalLine,
			text:  gutter.ExpandTabs(gutter.DisplayText(l.Text), opts.TabSize),
			start: i == 0 || lines[i-1].Commit != l.Commit,
		}
		if l.Commit != nil {
			r.bg = gutter.HashColor(l.Commit.ID())
		}
		out = append(out, r)
	}
	return out
}

func gutterWidth(rs []row) int {
	w := 0
	for _, r := range rs {
		w = max(w, runewidth.StringWidth(r.cell.String()))
	}
	return w
}

func renderHTML(lines []blame.Line, opts Options) string {
	var b strings.Builder

	b.WriteString("<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\">")
	b.WriteString("<style>body{background:#0f111a;color:#e5e7eb;font-family:Menlo,Consolas,monospace;}" +
		"pre{white-space:pre;}" +
		".gutter{display:inline-block;padding:0 8px;margin-right:12px;}" +
		".wip{font-style:italic;}" +
		".lineno{color:#9ca3af;margin-right:12px;}" +
		"h1{font-size:18px;margin-bottom:12px;}" +
		"</style></head><body>")

	title := opts.Title
	if title == "" {
		title = "Blame"
	}
	fmt.Fprintf(&b, "<h1>%s</h1>\n<pre>", html.EscapeString(title))

	rs := rows(lines, opts)
	width := gutterWidth(rs)
	for _, r := range rs {
		label := ""
		if r.start {
			label = r.cell.String()
		}
		label = gutter.Fit(label, width)

		class := "gutter"
		if r.cell.Uncommitted {
			class += " wip"
		}
		fmt.Fprintf(&b, "<div><span class=\"%s\" style=\"background:%s;color:%s\">%s</span>",
			class, r.bg.Hex(), gutter.TextColor(r.bg).Hex(), html.EscapeString(label))
		if opts.ShowLineNumbers {
			fmt.Fprintf(&b, "<span class=\"lineno\">%5d</span>", r.no)
		}
		fmt.Fprintf(&b, "%s</div>\n", html.EscapeString(r.text))
	}

	b.WriteString("</pre></body></html>")
	return b.String()
}

func renderMarkdown(lines []blame.Line, opts Options) string {
	var b strings.Builder

	if opts.Title != "" {
		b.WriteString("# ")
		b.WriteString(opts.Title)
		b.WriteString("\n\n")
	}

	rs := rows(lines, opts)
	width := gutterWidth(rs)
	b.WriteString("```\n")
	for _, r := range rs {
		label := ""
		if r.start {
			label = r.cell.String()
		}
		if opts.ShowLineNumbers {
			fmt.Fprintf(&b, "%s %5d │ %s\n", gutter.Fit(label, width), r.no, r.text)
		} else {
			fmt.Fprintf(&b, "%s │ %s\n", gutter.Fit(label, width), r.text)
		}
	}
	b.WriteString("```\n")
	return b.String()
}

func renderANSI(lines []blame.Line, opts Options) string {
	var b strings.Builder
	if opts.Title != "" {
		fmt.Fprintf(&b, "%s\n\n", opts.Title)
	}

	rs := rows(lines, opts)
	width := gutterWidth(rs)
	reset := "\u001b[0m"
	for _, r := range rs {
		label := ""
		if r.start {
			label = r.cell.String()
		}
		b.WriteString(ansiBg(r.bg))
		b.WriteString(ansiFg(gutter.TextColor(r.bg)))
		b.WriteString(gutter.Fit(label, width))
		b.WriteString(reset)
		if opts.ShowLineNumbers {
			fmt.Fprintf(&b, " \u001b[90m%5d%s", r.no, reset)
		}
		fmt.Fprintf(&b, " %s\n", r.text)
	}
	return b.String()
}

func ansiBg(c colorful.Color) string {
	r, g, b := c.RGB255()
	return fmt.Sprintf("\u001b[48;2;%d;%d;%dm", r, g, b)
}

func ansiFg(c colorful.Color) string {
	r, g, b := c.RGB255()
	return fmt.Sprintf("\u001b[38;2;%d;%d;%dm", r, g, b)
}
