package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cj3636/gblame/internal/blame"
	"github.com/cj3636/gblame/internal/commit"
	"github.com/cj3636/gblame/internal/gutter"
)

func sampleLines() []blame.Line {
	store := commit.NewStore(commit.Config{})
	a := store.GetOrCreate(commit.ID(strings.Repeat("a", 40)), "/repo")
	a.SetProperty("author", "Ada")
	wip := store.GetOrCreate(commit.ZeroID, "/repo")

	return []blame.Line{
		{Commit: a, OrigLine: 1, FinalLine: 1, Text: "package main"},
		{Commit: a, OrigLine: 2, FinalLine: 2, Text: "<b>&</b>"},
		{Commit: wip, OrigLine: 3, FinalLine: 3, Text: "\tcaf\xe9"},
	}
}

func TestParseFormat(t *testing.T) {
	tests := map[string]Format{
		"":         FormatMarkdown,
		"md":       FormatMarkdown,
		"Markdown": FormatMarkdown,
		"htm":      FormatHTML,
		"HTML":     FormatHTML,
		"text":     FormatANSI,
		"ansi":     FormatANSI,
	}
	for in, want := range tests {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseFormat("pdf")
	assert.Error(t, err)
}

func TestRender_Markdown(t *testing.T) {
	out, err := Render(sampleLines(), FormatMarkdown, Options{
		Title:           "Blame: main.go",
		ShowLineNumbers: true,
		Gutter:          gutter.Options{ShowAuthor: true, AuthorWidth: 4},
		TabSize:         2,
	})
	require.NoError(t, err)

	want := "# Blame: main.go\n\n" +
		"```\n" +
		"aaaaaaaa Ada      1 │ package main\n" +
		"                  2 │ <b>&</b>\n" +
		"WIP               3 │   café\n" +
		"```\n"
	assert.Equal(t, want, out)
}

func TestRender_HTML(t *testing.T) {
	out, err := Render(sampleLines(), FormatHTML, Options{})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "<!DOCTYPE html>"))
	assert.Contains(t, out, "<h1>Blame</h1>")
	assert.Contains(t, out, "&lt;b&gt;&amp;&lt;/b&gt;")
	assert.Contains(t, out, "gutter wip")
	assert.Contains(t, out, "background:#d9d9d9;color:#262626")
	assert.NotContains(t, out, "lineno\">")
}

func TestRender_ANSI(t *testing.T) {
	out, err := Render(sampleLines(), FormatANSI, Options{ShowLineNumbers: true})
	require.NoError(t, err)

	assert.Contains(t, out, "\u001b[48;2;217;217;217m")
	assert.Contains(t, out, "aaaaaaaa")
	assert.Contains(t, out, "\u001b[90m    3\u001b[0m")
	assert.Equal(t, 3, strings.Count(out, "\n"))
}

func TestRender_UnknownFormat(t *testing.T) {
	_, err := Render(nil, Format("pdf"), Options{})
	assert.Error(t, err)
}

func TestTitle(t *testing.T) {
	assert.Equal(t, "Blame: main.go", Title("/src/cmd/main.go", ""))
	assert.Equal(t, "Blame: main.go @ v1.0", Title("main.go", "v1.0"))
}

func TestCopyToClipboard(t *testing.T) {
	t.Setenv("TMUX", "")
	t.Setenv("STY", "")

	var buf bytes.Buffer
	require.NoError(t, CopyToClipboard("hello", &buf))
	assert.Equal(t, "\x1b]52;c;aGVsbG8=\x07", buf.String())
}

func TestCopyToClipboard_Tmux(t *testing.T) {
	t.Setenv("TMUX", "/tmp/tmux-1000/default,1,0")
	t.Setenv("STY", "")

	var buf bytes.Buffer
	require.NoError(t, CopyToClipboard("hello", &buf))
	assert.True(t, strings.HasPrefix(buf.String(), "\x1bPtmux;\x1b"))
}
