package blame

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/cj3636/gblame/internal/commit"
	"github.com/cj3636/gblame/internal/reader"
)

// Line is one annotated line of a blamed file.
type Line struct {
	Commit *commit.Commit

	// OrigLine is the line number in the commit that introduced the line.
	OrigLine int
	// FinalLine is the 1-based line number in the blamed revision.
	FinalLine int

	// Text is the raw line content without its newline. It may hold
	// invalid UTF-8.
	Text string
}

// Config configures a Source.
type Config struct {
	GitPath    string
	Dispatcher reader.Dispatcher
	Logger     zerolog.Logger

	// FindRepo maps the directory of the blamed file to its repository
	// root. When nil or failing, the directory itself is used.
	FindRepo func(dir string) (string, error)
}

type completedHandler struct {
	id int
	fn func(err error)
}

// Source is the blame of one file at one revision.
//
// A Source is filled in incrementally while git runs and is complete once
// the OnCompleted handlers fire with a nil error. Any error leaves it empty.
type Source struct {
	store *commit.Store
	cfg   Config
	log   zerolog.Logger
	rd    *reader.Reader

	path     string
	revision string
	repo     string

	lines    []Line
	pending  *Line
	props    int
	parseErr error

	loading bool
	err     error

	nextID    int
	completed []completedHandler
}

// NewSource creates an empty Source resolving commits through store.
func NewSource(store *commit.Store, cfg Config) *Source {
	s := &Source{
		store: store,
		cfg:   cfg,
		log:   cfg.Logger.With().Str("component", "blame").Logger(),
	}
	s.rd = reader.New(reader.Config{
		GitPath:    cfg.GitPath,
		Dispatcher: cfg.Dispatcher,
		Logger:     cfg.Logger,
	})
	s.rd.OnLine(s.onLine)
	s.rd.OnCompleted(s.onCompleted)
	return s
}

// Fetch starts blaming path at revision. An empty revision blames the
// working copy, including uncommitted changes. Any fetch in flight is
// cancelled and its results are discarded; its completion never fires.
func (s *Source) Fetch(path, revision string) error {
	s.rd.Close()
	s.reset()

	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	s.path = path
	s.revision = revision
	s.repo = s.findRepo(dir)

	args := []string{"blame", "--porcelain", base}
	if revision != "" {
		args = append(args, revision)
	}

	if err := s.rd.Start(dir, args...); err != nil {
		s.err = err
		return errors.Wrapf(err, "blame %s", path)
	}

	s.loading = true
	s.log.Debug().Str("path", path).Str("revision", revision).Str("repo", s.repo).Msg("fetching blame")
	return nil
}

func (s *Source) findRepo(dir string) string {
	if s.cfg.FindRepo == nil {
		return dir
	}
	root, err := s.cfg.FindRepo(dir)
	if err != nil {
		s.log.Debug().Err(err).Str("dir", dir).Msg("no repository root, using directory")
		return dir
	}
	return root
}

func (s *Source) reset() {
	s.lines = nil
	s.pending = nil
	s.props = 0
	s.parseErr = nil
	s.loading = false
	s.err = nil
}

// Close cancels a fetch in flight. Partial results are dropped.
func (s *Source) Close() {
	s.rd.Close()
	if s.loading {
		s.reset()
	}
}

// OnCompleted registers fn to run once per fetch when it finishes. The
// returned function removes it.
func (s *Source) OnCompleted(fn func(err error)) func() {
	s.nextID++
	id := s.nextID
	s.completed = append(s.completed, completedHandler{id: id, fn: fn})

	return func() {
		for i, h := range s.completed {
			if h.id == id {
				s.completed = append(s.completed[:i:i], s.completed[i+1:]...)
				return
			}
		}
	}
}

// LineCount returns the number of lines parsed so far.
func (s *Source) LineCount() int {
	return len(s.lines)
}

// Line returns the line at zero-based index i. It panics if i is out of
// range.
func (s *Source) Line(i int) Line {
	if i < 0 || i >= len(s.lines) {
		panic(fmt.Sprintf("blame: line index %d out of range [0,%d)", i, len(s.lines)))
	}
	return s.lines[i]
}

// Lines returns a copy of the parsed lines.
func (s *Source) Lines() []Line {
	return append([]Line(nil), s.lines...)
}

// Path returns the path given to the last Fetch.
func (s *Source) Path() string { return s.path }

// Revision returns the revision given to the last Fetch.
func (s *Source) Revision() string { return s.revision }

// Repo returns the repository commits are resolved against.
func (s *Source) Repo() string { return s.repo }

// Loading reports whether a fetch is in flight.
func (s *Source) Loading() bool { return s.loading }

// Err returns the error of the last fetch, if it failed.
func (s *Source) Err() error { return s.err }

func (s *Source) onLine(line []byte) bool {
	if s.pending == nil {
		id, orig, final, err := parseHeader(line)
		if err != nil {
			s.parseErr = err
			return false
		}
		s.pending = &Line{
			Commit:    s.store.GetOrCreate(id, s.repo),
			OrigLine:  orig,
			FinalLine: final,
		}
		s.props = 0
		return true
	}

	body := bytes.TrimSuffix(line, []byte("\n"))
	if text, ok := bytes.CutPrefix(body, []byte("\t")); ok {
		s.pending.Text = string(text)
		s.lines = append(s.lines, *s.pending)
		s.pending = nil
		return true
	}

	key, value, _ := bytes.Cut(body, []byte(" "))
	s.pending.Commit.SetProperty(string(key), string(value))
	s.props++
	return true
}

func (s *Source) onCompleted(err error) {
	switch {
	case s.parseErr != nil:
		err = s.parseErr
	case err == nil && s.pending != nil && s.props == 0:
		err = reader.NewParseError("blame output ended after a header with no body")
	}

	lines := s.lines
	s.reset()
	if err != nil {
		s.err = err
		s.log.Warn().Err(err).Str("path", s.path).Str("revision", s.revision).Msg("blame failed")
	} else {
		s.lines = lines
		s.log.Debug().Str("path", s.path).Int("lines", len(lines)).Msg("blame finished")
	}

	handlers := append([]completedHandler(nil), s.completed...)
	for _, h := range handlers {
		h.fn(err)
	}
}

// parseHeader parses "<40 hex> <orig> <final>[ <count>]\n".
func parseHeader(line []byte) (commit.ID, int, int, error) {
	body, ok := bytes.CutSuffix(line, []byte("\n"))
	if !ok {
		return "", 0, 0, reader.NewParseError("unterminated blame header %q", line)
	}
	if len(body) < commit.IDLength+1 || !commit.ValidID(string(body[:commit.IDLength])) {
		return "", 0, 0, reader.NewParseError("invalid commit id in blame header %q", body)
	}
	if body[commit.IDLength] != ' ' {
		return "", 0, 0, reader.NewParseError("missing separator in blame header %q", body)
	}

	fields := bytes.Split(body[commit.IDLength+1:], []byte(" "))
	if len(fields) != 2 && len(fields) != 3 {
		return "", 0, 0, reader.NewParseError("blame header has %d numbers, want 2 or 3: %q", len(fields), body)
	}

	nums := make([]int, len(fields))
	for i, f := range fields {
		n, err := parseNumber(f)
		if err != nil {
			return "", 0, 0, reader.NewParseError("invalid number %q in blame header", f)
		}
		nums[i] = n
	}

	return commit.ID(body[:commit.IDLength]), nums[0], nums[1], nil
}

func parseNumber(b []byte) (int, error) {
	if len(b) == 0 {
		return 0, strconv.ErrSyntax
	}
	for _, c := range b {
		if c < '0' || c > '9' {
			return 0, strconv.ErrSyntax
		}
	}
	return strconv.Atoi(string(b))
}
