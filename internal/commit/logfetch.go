package commit

import (
	"bytes"
	"strings"

	"github.com/pkg/errors"

	"github.com/cj3636/gblame/internal/reader"
)

// logFetch parses the output of `git log -n 1 --stat --parents <id>`:
// a "commit <id> <parent>..." header followed by free text.
type logFetch struct {
	commit *Commit
	reader *reader.Reader
	unsubs []func()

	haveHeader bool
	parents    []*Commit
	text       strings.Builder
	parseErr   error
}

// FetchLogData starts loading the parents and log message of c. It does
// nothing if the data is already loaded or being loaded. When the fetch
// ends, successfully or not, HasLogData becomes true and OnLogData
// listeners run; a failed fetch stores its error message as the log text.
// Only a failure to start git is returned.
func (c *Commit) FetchLogData() error {
	if c.hasLogData || c.fetch != nil {
		return nil
	}

	cfg := c.store.cfg
	if cfg.Dispatcher == nil {
		return errors.New("commit store has no dispatcher")
	}

	r := reader.New(reader.Config{
		GitPath:    cfg.GitPath,
		Dispatcher: cfg.Dispatcher,
		Logger:     cfg.Logger,
	})
	f := &logFetch{commit: c, reader: r}
	f.unsubs = []func(){
		r.OnLine(f.onLine),
		r.OnCompleted(f.onCompleted),
	}

	if err := r.Start(c.repo, "log", "-n", "1", "--stat", "--parents", string(c.id)); err != nil {
		f.detach()
		return errors.Wrapf(err, "fetch log for %s", c.id.Short())
	}

	c.fetch = f
	c.store.log.Debug().Str("commit", string(c.id)).Str("repo", c.repo).Msg("fetching log")
	return nil
}

func (f *logFetch) detach() {
	for _, unsub := range f.unsubs {
		unsub()
	}
	f.unsubs = nil
	if f.commit.fetch == f {
		f.commit.fetch = nil
	}
}

func (f *logFetch) onLine(line []byte) bool {
	if f.haveHeader {
		f.text.Write(line)
		return true
	}

	ids, err := parseLogHeader(line, f.commit.id)
	if err != nil {
		f.parseErr = err
		return false
	}

	store := f.commit.store
	for _, id := range ids {
		f.parents = append(f.parents, store.GetOrCreate(id, f.commit.repo))
	}
	f.haveHeader = true
	return true
}

func (f *logFetch) onCompleted(err error) {
	c := f.commit
	f.detach()

	switch {
	case f.parseErr != nil:
		err = f.parseErr
	case err == nil && !f.haveHeader:
		err = reader.NewParseError("git log printed no commit header")
	}

	if err != nil {
		c.store.log.Warn().Err(err).Str("commit", string(c.id)).Msg("log fetch failed")
		c.parents = nil
		c.logText = err.Error()
	} else {
		c.parents = f.parents
		c.logText = f.text.String()
	}
	c.hasLogData = true
	c.notifyLogData()
}

// parseLogHeader checks a "commit <self> <parent>...\n" line and returns
// the parent ids in order.
func parseLogHeader(line []byte, self ID) ([]ID, error) {
	rest, ok := bytes.CutPrefix(line, []byte("commit "))
	if !ok {
		return nil, reader.NewParseError("expected commit header from git log, got %q", line)
	}

	if len(rest) < IDLength || ID(rest[:IDLength]) != self {
		return nil, reader.NewParseError("git log header does not name commit %s", self.Short())
	}
	rest = rest[IDLength:]

	var parents []ID
	for {
		switch {
		case len(rest) == 1 && rest[0] == '\n':
			return parents, nil
		case len(rest) == 0:
			return nil, reader.NewParseError("unterminated commit header from git log")
		case rest[0] != ' ':
			return nil, reader.NewParseError("unexpected data in commit header: %q", rest)
		}
		rest = rest[1:]

		if len(rest) < IDLength || !ValidID(string(rest[:IDLength])) {
			return nil, reader.NewParseError("invalid parent id in commit header: %q", rest)
		}
		parents = append(parents, ID(rest[:IDLength]))
		rest = rest[IDLength:]
	}
}
