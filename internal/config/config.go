package config

import (
	"os"
	"path/filepath"

	"github.com/charmbracelet/lipgloss"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"
)

// Config holds the application configuration
type Config struct {
	ThemePreset  ThemePreset `yaml:"theme" env:"GBLAME_THEME" env-description:"color theme: default, solarized or dracula"`
	HighContrast bool        `yaml:"high_contrast" env:"GBLAME_HIGH_CONTRAST" env-description:"brighten theme colors"`

	ShowLineNo bool   `yaml:"line_numbers" env:"GBLAME_LINE_NUMBERS" env-description:"show line numbers"`
	ShowAuthor bool   `yaml:"show_author" env:"GBLAME_SHOW_AUTHOR" env-description:"show author and date next to the commit id"`
	DateFormat string `yaml:"date_format" env:"GBLAME_DATE_FORMAT" env-description:"Go time layout for commit dates"`
	TabSize    int    `yaml:"tab_size" env:"GBLAME_TAB_SIZE" env-description:"tab width in columns"`

	GitPath  string `yaml:"git_path" env:"GBLAME_GIT" env-description:"git executable"`
	LogFile  string `yaml:"log_file" env:"GBLAME_LOG_FILE" env-description:"write debug log to this file"`
	LogLevel string `yaml:"log_level" env:"GBLAME_LOG_LEVEL" env-description:"log level: debug, info, warn or error"`

	Spacing     SpacingOptions `yaml:"spacing"`
	Keybindings Keybindings    `yaml:"keybindings"`

	// Theme is resolved from ThemePreset and HighContrast by Load.
	Theme Theme `yaml:"-"`
}

// ThemePreset describes a named theme configuration.
type ThemePreset string

const (
	PresetDefault  ThemePreset = "default"
	PresetSolarize ThemePreset = "solarized"
	PresetDracula  ThemePreset = "dracula"
)

// SpacingOptions controls layout spacing and gutter widths.
type SpacingOptions struct {
	LineNumberWidth int `yaml:"line_number_width"`
	AuthorWidth     int `yaml:"author_width"`
	PanelHeight     int `yaml:"panel_height"`
}

// Keybindings maps semantic actions to one or more key sequences.
type Keybindings map[string][]string

// Theme defines the color scheme for the application
type Theme struct {
	TextFg        lipgloss.Color
	SelectedBg    lipgloss.Color
	UncommittedFg lipgloss.Color
	LineNumberFg  lipgloss.Color
	BorderFg      lipgloss.Color
	TitleFg       lipgloss.Color
	TitleBg       lipgloss.Color
	HelpFg        lipgloss.Color
	ErrorFg       lipgloss.Color
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		ThemePreset:  PresetDefault,
		Theme:        ThemeForPreset(PresetDefault, false),
		HighContrast: false,
		ShowLineNo:   true,
		ShowAuthor:   true,
		DateFormat:   "2006-01-02",
		TabSize:      4,
		GitPath:      "git",
		LogLevel:     "info",
		Spacing:      DefaultSpacing(),
		Keybindings:  DefaultKeybindings(),
	}
}

// DefaultPath returns the config file looked up when none is given:
// $XDG_CONFIG_HOME/gblame/config.yml, or the platform equivalent.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "gblame", "config.yml")
}

// Load builds the configuration from defaults, the YAML file at path and
// GBLAME_* environment variables, in that order of precedence. A missing
// file is not an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	var err error
	if path != "" && fileExists(path) {
		err = cleanenv.ReadConfig(path, cfg)
	} else {
		err = cleanenv.ReadEnv(cfg)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "load config %s", path)
	}

	cfg.Keybindings = MergeKeybindings(cfg.Keybindings)
	cfg.Finalize()
	return cfg, nil
}

// Finalize resolves derived settings after fields have been changed.
func (c *Config) Finalize() {
	if c.TabSize <= 0 {
		c.TabSize = 4
	}
	if c.GitPath == "" {
		c.GitPath = "git"
	}
	if c.DateFormat == "" {
		c.DateFormat = "2006-01-02"
	}
	def := DefaultSpacing()
	if c.Spacing.LineNumberWidth <= 0 {
		c.Spacing.LineNumberWidth = def.LineNumberWidth
	}
	if c.Spacing.AuthorWidth <= 0 {
		c.Spacing.AuthorWidth = def.AuthorWidth
	}
	if c.Spacing.PanelHeight <= 0 {
		c.Spacing.PanelHeight = def.PanelHeight
	}
	c.Theme = ThemeForPreset(c.ThemePreset, c.HighContrast)
}

// Describe returns help text for the environment variables Load reads.
func Describe() string {
	header := "Environment variables:"
	text, err := cleanenv.GetDescription(DefaultConfig(), &header)
	if err != nil {
		return ""
	}
	return text
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// DefaultTheme returns the default color theme
func DefaultTheme() Theme {
	return Theme{
		TextFg:        lipgloss.Color("#D0D0D0"),
		SelectedBg:    lipgloss.Color("#303050"),
		UncommittedFg: lipgloss.Color("#E6C07B"),
		LineNumberFg:  lipgloss.Color("#666666"),
		BorderFg:      lipgloss.Color("#3A3A3A"),
		TitleFg:       lipgloss.Color("#FFFFFF"),
		TitleBg:       lipgloss.Color("#5F5FAF"),
		HelpFg:        lipgloss.Color("#888888"),
		ErrorFg:       lipgloss.Color("#E6A3A3"),
	}
}

// ThemeForPreset resolves a preset name to a concrete Theme, optionally
// applying a high-contrast variation.
func ThemeForPreset(preset ThemePreset, highContrast bool) Theme {
	switch preset {
	case PresetSolarize:
		return applyContrast(Theme{
			TextFg:        lipgloss.Color("#93A1A1"),
			SelectedBg:    lipgloss.Color("#073642"),
			UncommittedFg: lipgloss.Color("#B58900"),
			LineNumberFg:  lipgloss.Color("#586E75"),
			BorderFg:      lipgloss.Color("#657B83"),
			TitleFg:       lipgloss.Color("#EEE8D5"),
			TitleBg:       lipgloss.Color("#586E75"),
			HelpFg:        lipgloss.Color("#93A1A1"),
			ErrorFg:       lipgloss.Color("#DC322F"),
		}, highContrast)
	case PresetDracula:
		return applyContrast(Theme{
			TextFg:        lipgloss.Color("#F8F8F2"),
			SelectedBg:    lipgloss.Color("#44475A"),
			UncommittedFg: lipgloss.Color("#F1FA8C"),
			LineNumberFg:  lipgloss.Color("#6272A4"),
			BorderFg:      lipgloss.Color("#44475A"),
			TitleFg:       lipgloss.Color("#F8F8F2"),
			TitleBg:       lipgloss.Color("#6272A4"),
			HelpFg:        lipgloss.Color("#BD93F9"),
			ErrorFg:       lipgloss.Color("#FF5555"),
		}, highContrast)
	default:
		return applyContrast(DefaultTheme(), highContrast)
	}
}

// DefaultSpacing returns the default layout spacing configuration.
func DefaultSpacing() SpacingOptions {
	return SpacingOptions{LineNumberWidth: 5, AuthorWidth: 16, PanelHeight: 12}
}

// DefaultKeybindings returns the built-in keybinding map.
func DefaultKeybindings() Keybindings {
	return Keybindings{
		"quit":                {"ctrl+c", "q"},
		"toggle_help":         {"?", "h"},
		"toggle_author":       {"a"},
		"toggle_line_numbers": {"ctrl+n"},
		"show_commit":         {"enter"},
		"close_panel":         {"esc"},
		"blame_parent":        {"p"},
		"reload":              {"r"},
		"copy_commit":         {"y"},
		"scroll_down":         {"j", "down"},
		"scroll_up":           {"k", "up"},
		"page_down":           {"d", "pgdown"},
		"page_up":             {"u", "pgup"},
		"go_top":              {"g", "home"},
		"go_bottom":           {"G", "end"},
		"next_commit":         {"n"},
		"prev_commit":         {"N"},
	}
}

// MergeKeybindings overlays user overrides onto defaults.
func MergeKeybindings(overrides Keybindings) Keybindings {
	defaults := DefaultKeybindings()
	for action, keys := range overrides {
		if len(keys) == 0 {
			continue
		}
		defaults[action] = keys
	}
	return defaults
}

func applyContrast(theme Theme, highContrast bool) Theme {
	if !highContrast {
		return theme
	}

	return Theme{
		TextFg:        adjustBrightness(theme.TextFg, 0.2),
		SelectedBg:    adjustBrightness(theme.SelectedBg, 0.15),
		UncommittedFg: adjustBrightness(theme.UncommittedFg, 0.25),
		LineNumberFg:  adjustBrightness(theme.LineNumberFg, 0.2),
		BorderFg:      adjustBrightness(theme.BorderFg, 0.2),
		TitleFg:       adjustBrightness(theme.TitleFg, 0.2),
		TitleBg:       adjustBrightness(theme.TitleBg, 0.2),
		HelpFg:        adjustBrightness(theme.HelpFg, 0.2),
		ErrorFg:       adjustBrightness(theme.ErrorFg, 0.25),
	}
}

func adjustBrightness(c lipgloss.Color, factor float64) lipgloss.Color {
	col, err := colorful.Hex(string(c))
	if err != nil {
		return c
	}

	boost := func(v float64) float64 {
		return min(v*(1+factor), 1)
	}
	return lipgloss.Color(colorful.Color{R: boost(col.R), G: boost(col.G), B: boost(col.B)}.Hex())
}
