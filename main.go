package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	flag "github.com/spf13/pflag"

	"github.com/cj3636/gblame/internal/blame"
	"github.com/cj3636/gblame/internal/commit"
	"github.com/cj3636/gblame/internal/config"
	"github.com/cj3636/gblame/internal/export"
	"github.com/cj3636/gblame/internal/gutter"
	"github.com/cj3636/gblame/internal/logging"
	"github.com/cj3636/gblame/internal/reader"
	"github.com/cj3636/gblame/internal/repo"
	"github.com/cj3636/gblame/internal/tui"
)

const version = "0.1.0"

var (
	showVersion  bool
	noLineNumber bool
	noAuthor     bool
	tabSize      int
	help         bool
	revision     string
	configPath   string
	theme        string
	logFile      string
	logLevel     string
	exportFormat string
	exportFile   string
	exportCopy   bool
)

func init() {
	flag.BoolVarP(&showVersion, "version", "v", false, "Show version information")
	flag.BoolVarP(&noLineNumber, "no-line-numbers", "n", false, "Hide line numbers")
	flag.BoolVar(&noAuthor, "no-author", false, "Hide author and date next to the commit id")
	flag.IntVarP(&tabSize, "tab-size", "t", 0, "Set tab size (default from config, 4)")
	flag.StringVarP(&revision, "rev", "r", "", "Blame the file as of this revision instead of the working copy")
	flag.StringVarP(&configPath, "config", "c", "", "Config file (default "+config.DefaultPath()+")")
	flag.StringVar(&theme, "theme", "", "Color theme: default, solarized or dracula")
	flag.StringVar(&logFile, "log-file", "", "Write a debug log to this file")
	flag.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error")
	flag.StringVar(&exportFormat, "export-format", "", "Export the blame as html, markdown, or ansi without launching the TUI")
	flag.StringVar(&exportFile, "export-file", "", "Write the exported blame to the provided file path")
	flag.BoolVar(&exportCopy, "export-copy", false, "Copy the exported blame to your clipboard")
	flag.BoolVarP(&help, "help", "h", false, "Show help information")
	flag.Usage = usage
}

func usage() {
	fmt.Println("gblame - A terminal git blame viewer built with Charm libraries")
	fmt.Println("")
	fmt.Println("Usage:")
	fmt.Println("  gblame [options] <file>")
	fmt.Println("")
	fmt.Println("Options:")
	flag.PrintDefaults()
	fmt.Println("")
	fmt.Println("Examples:")
	fmt.Println("  gblame main.go")
	fmt.Println("  gblame --rev v1.2.0 internal/server.go")
	fmt.Println("  gblame --export-format html --export-file blame.html main.go # Export without TUI")
	fmt.Println("")
	fmt.Println("Keyboard shortcuts:")
	fmt.Println("  j/↓    Move down")
	fmt.Println("  k/↑    Move up")
	fmt.Println("  d/u    Half page down/up")
	fmt.Println("  g/G    Go to top/bottom")
	fmt.Println("  n/N    Next/previous commit")
	fmt.Println("  enter  Show commit details")
	fmt.Println("  p      Blame the parent of the selected commit")
	fmt.Println("  r      Reload")
	fmt.Println("  y      Copy commit id")
	fmt.Println("  a      Toggle author column")
	fmt.Println("  ?/h    Toggle help panel")
	fmt.Println("  q      Quit")
	fmt.Println("")
	fmt.Println(config.Describe())
}

// applyFlags overrides configuration with explicitly set flags.
func applyFlags(cfg *config.Config) {
	if flag.CommandLine.Changed("no-line-numbers") {
		cfg.ShowLineNo = !noLineNumber
	}
	if flag.CommandLine.Changed("no-author") {
		cfg.ShowAuthor = !noAuthor
	}
	if tabSize > 0 {
		cfg.TabSize = tabSize
	}
	if theme != "" {
		cfg.ThemePreset = config.ThemePreset(theme)
	}
	if logFile != "" {
		cfg.LogFile = logFile
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	cfg.Finalize()
}

func main() {
	flag.Parse()

	if help {
		usage()
		os.Exit(0)
	}

	if showVersion {
		fmt.Println("gblame version " + version)
		fmt.Println("A terminal git blame viewer built with Charm libraries")
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) != 1 {
		usage()
		os.Exit(1)
	}
	path := args[0]

	if info, err := os.Stat(path); err == nil && info.IsDir() {
		fmt.Fprintf(os.Stderr, "Error: '%s' is a directory\n", path)
		os.Exit(1)
	}

	if configPath == "" {
		configPath = config.DefaultPath()
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	applyFlags(cfg)

	logger, closeLog, err := logging.New(logging.Options{File: cfg.LogFile, Level: cfg.LogLevel})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	if exportFormat != "" || exportFile != "" || exportCopy {
		err = runExport(cfg, logger, path)
	} else {
		err = runTUI(cfg, logger, path)
	}
	if err != nil {
		logger.Error().Err(err).Msg("exiting")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		closeLog()
		os.Exit(1)
	}
}

func newSource(cfg *config.Config, logger zerolog.Logger, d reader.Dispatcher) (*blame.Source, *commit.Store) {
	store := commit.NewStore(commit.Config{
		GitPath:    cfg.GitPath,
		Dispatcher: d,
		Logger:     logger,
	})
	src := blame.NewSource(store, blame.Config{
		GitPath:    cfg.GitPath,
		Dispatcher: d,
		Logger:     logger,
		FindRepo:   repo.Find,
	})
	return src, store
}

func runTUI(cfg *config.Config, logger zerolog.Logger, path string) error {
	d := tui.NewProgramDispatcher()
	src, store := newSource(cfg, logger, d)
	defer store.Close()
	defer src.Close()

	model := tui.NewModel(tui.Options{
		Config: cfg,
		Source: src,
		Target: tui.NewTarget(path, revision),
	})
	p := tea.NewProgram(model, tea.WithAltScreen())
	d.Attach(p)

	if _, err := p.Run(); err != nil {
		return errors.Wrap(err, "run TUI")
	}
	return nil
}

func runExport(cfg *config.Config, logger zerolog.Logger, path string) error {
	format, err := export.ParseFormat(exportFormat)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loop := reader.NewLoop()
	src, store := newSource(cfg, logger, loop)
	defer store.Close()
	defer src.Close()

	if err := src.Fetch(path, revision); err != nil {
		return err
	}
	if err := loop.RunUntil(ctx, func() bool { return !src.Loading() }); err != nil {
		return errors.Wrap(err, "blame interrupted")
	}
	if err := src.Err(); err != nil {
		return err
	}

	rendered, err := export.Render(src.Lines(), format, export.Options{
		Title:           export.Title(path, revision),
		ShowLineNumbers: cfg.ShowLineNo,
		Gutter: gutter.Options{
			ShowAuthor:  cfg.ShowAuthor,
			AuthorWidth: cfg.Spacing.AuthorWidth,
			DateFormat:  cfg.DateFormat,
		},
		TabSize: cfg.TabSize,
	})
	if err != nil {
		return errors.Wrap(err, "export blame")
	}

	if exportFile != "" {
		if err := os.WriteFile(exportFile, []byte(rendered), 0o644); err != nil {
			return errors.Wrap(err, "write export")
		}
		fmt.Fprintf(os.Stdout, "Blame saved to %s\n", exportFile)
	}

	if exportCopy {
		if err := export.CopyToClipboard(rendered, os.Stdout); err != nil {
			return errors.Wrap(err, "copy blame to clipboard")
		}
		fmt.Println("Blame copied to clipboard.")
	}

	if exportFile == "" && !exportCopy {
		fmt.Println(rendered)
	}
	return nil
}
