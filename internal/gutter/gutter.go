// Package gutter formats the commit column shown next to blamed lines.
package gutter

import (
	"hash/fnv"
	"strings"
	"unicode/utf8"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/mattn/go-runewidth"
	"golang.org/x/text/encoding/charmap"

	"github.com/cj3636/gblame/internal/blame"
	"github.com/cj3636/gblame/internal/commit"
)

// HashWidth is the number of id characters shown.
const HashWidth = 8

// WIP labels lines that are not committed yet.
const WIP = "WIP"

// Options control which columns are filled in.
type Options struct {
	ShowAuthor  bool
	AuthorWidth int
	DateFormat  string
}

// Cell is the formatted gutter of one line.
type Cell struct {
	Hash        string
	Author      string
	Date        string
	Uncommitted bool
}

// For builds the gutter cell of l.
func For(l blame.Line, opts Options) Cell {
	c := l.Commit
	if c == nil {
		return Cell{}
	}
	if c.IsUncommitted() {
		return Cell{Hash: pad(WIP, HashWidth), Uncommitted: true}
	}

	cell := Cell{Hash: c.ID().Short()}
	if opts.ShowAuthor {
		cell.Author = Fit(c.Author(), opts.AuthorWidth)
		if ts, ok := c.AuthorTime(); ok && opts.DateFormat != "" {
			cell.Date = ts.Format(opts.DateFormat)
		}
	}
	return cell
}

// String joins the non-empty columns with single spaces.
func (c Cell) String() string {
	parts := []string{c.Hash}
	if c.Author != "" {
		parts = append(parts, c.Author)
	}
	if c.Date != "" {
		parts = append(parts, c.Date)
	}
	return strings.Join(parts, " ")
}

// HashColor returns a stable background color for id. Lines of the same
// commit share a color; the uncommitted id is always light gray.
func HashColor(id commit.ID) colorful.Color {
	if id.IsUncommitted() {
		return colorful.Color{R: 0.85, G: 0.85, B: 0.85}
	}
	h := fnv.New32a()
	h.Write([]byte(id))
	sum := h.Sum32()

	hue := float64(sum%360) + float64((sum>>9)%100)/100
	return colorful.Hcl(hue, 0.35, 0.75).Clamped()
}

// TextColor returns the color to draw over bg: its inverse.
func TextColor(bg colorful.Color) colorful.Color {
	return colorful.Color{R: 1 - bg.R, G: 1 - bg.G, B: 1 - bg.B}
}

// Fit truncates or pads s to exactly width terminal columns.
func Fit(s string, width int) string {
	if width <= 0 {
		return ""
	}
	s = runewidth.Truncate(s, width, "…")
	return pad(s, width)
}

func pad(s string, width int) string {
	return runewidth.FillRight(s, width)
}

// DisplayText returns text as valid UTF-8 for display. Text that is not
// UTF-8 is decoded as Windows-1252, which covers Latin-1 sources.
func DisplayText(text string) string {
	if utf8.ValidString(text) {
		return text
	}
	out, err := charmap.Windows1252.NewDecoder().String(text)
	if err != nil {
		return strings.ToValidUTF8(text, "�")
	}
	return out
}

// ExpandTabs replaces tabs with spaces up to the next multiple of size.
func ExpandTabs(s string, size int) string {
	if size <= 0 || !strings.Contains(s, "\t") {
		return s
	}
	var b strings.Builder
	col := 0
	for _, r := range s {
		if r == '\t' {
			n := size - col%size
			b.WriteString(strings.Repeat(" ", n))
			col += n
			continue
		}
		b.WriteRune(r)
		col += runewidth.RuneWidth(r)
	}
	return b.String()
}
