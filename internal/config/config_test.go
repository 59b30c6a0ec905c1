package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yml"))
	require.NoError(t, err)

	assert.Equal(t, PresetDefault, cfg.ThemePreset)
	assert.Equal(t, "git", cfg.GitPath)
	assert.True(t, cfg.ShowLineNo)
	assert.True(t, cfg.ShowAuthor)
	assert.Equal(t, 4, cfg.TabSize)
	assert.Equal(t, DefaultTheme(), cfg.Theme)
	assert.Equal(t, DefaultKeybindings(), cfg.Keybindings)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	yml := `theme: dracula
line_numbers: false
tab_size: 8
git_path: /usr/local/bin/git
date_format: "Jan 2 2006"
spacing:
  author_width: 10
keybindings:
  quit: ["x"]
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, PresetDracula, cfg.ThemePreset)
	assert.Equal(t, ThemeForPreset(PresetDracula, false), cfg.Theme)
	assert.False(t, cfg.ShowLineNo)
	assert.True(t, cfg.ShowAuthor)
	assert.Equal(t, 8, cfg.TabSize)
	assert.Equal(t, "/usr/local/bin/git", cfg.GitPath)
	assert.Equal(t, "Jan 2 2006", cfg.DateFormat)
	assert.Equal(t, 10, cfg.Spacing.AuthorWidth)
	assert.Equal(t, DefaultSpacing().PanelHeight, cfg.Spacing.PanelHeight)
	assert.Equal(t, []string{"x"}, cfg.Keybindings["quit"])
	assert.Equal(t, []string{"enter"}, cfg.Keybindings["show_commit"])
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("theme: dracula\nlog_level: warn\n"), 0o644))

	t.Setenv("GBLAME_THEME", "solarized")
	t.Setenv("GBLAME_HIGH_CONTRAST", "true")
	t.Setenv("GBLAME_LOG_FILE", "/tmp/gblame.log")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, PresetSolarize, cfg.ThemePreset)
	assert.True(t, cfg.HighContrast)
	assert.Equal(t, ThemeForPreset(PresetSolarize, true), cfg.Theme)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "/tmp/gblame.log", cfg.LogFile)
}

func TestLoad_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("tab_size: [1, 2\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestFinalize(t *testing.T) {
	cfg := &Config{ThemePreset: "unknown"}
	cfg.Finalize()

	assert.Equal(t, 4, cfg.TabSize)
	assert.Equal(t, "git", cfg.GitPath)
	assert.Equal(t, DefaultSpacing(), cfg.Spacing)
	assert.Equal(t, DefaultTheme(), cfg.Theme)
}

func TestMergeKeybindings(t *testing.T) {
	kb := MergeKeybindings(Keybindings{
		"reload": {"R", "f5"},
		"quit":   nil,
	})
	assert.Equal(t, []string{"R", "f5"}, kb["reload"])
	assert.Equal(t, []string{"ctrl+c", "q"}, kb["quit"])
}

func TestAdjustBrightness(t *testing.T) {
	assert.Equal(t, lipgloss.Color("#7a7a7a"), adjustBrightness("#666666", 0.2))
	assert.Equal(t, lipgloss.Color("#ffffff"), adjustBrightness("#f0f0f0", 0.5))
	assert.Equal(t, lipgloss.Color("212"), adjustBrightness("212", 0.2))
}

func TestDescribe(t *testing.T) {
	text := Describe()
	assert.Contains(t, text, "GBLAME_THEME")
	assert.Contains(t, text, "GBLAME_GIT")
}
