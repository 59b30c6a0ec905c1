package commit

import (
	"github.com/rs/zerolog"

	"github.com/cj3636/gblame/internal/reader"
)

// Config configures the git invocations made for commits of a Store.
type Config struct {
	// GitPath is the git executable. Defaults to "git".
	GitPath string

	// Dispatcher runs log fetch callbacks. Required for FetchLogData.
	Dispatcher reader.Dispatcher

	// Logger receives fetch diagnostics.
	Logger zerolog.Logger
}

type key struct {
	id   ID
	repo string
}

// Store hands out one shared Commit per (id, repository) pair.
// Entries are never evicted.
type Store struct {
	cfg     Config
	log     zerolog.Logger
	commits map[key]*Commit
}

// NewStore creates an empty store.
func NewStore(cfg Config) *Store {
	return &Store{
		cfg:     cfg,
		log:     cfg.Logger.With().Str("component", "commits").Logger(),
		commits: make(map[key]*Commit),
	}
}

// GetOrCreate returns the Commit for id in repo, creating it on first use.
func (s *Store) GetOrCreate(id ID, repo string) *Commit {
	k := key{id: id, repo: repo}
	if c, ok := s.commits[k]; ok {
		return c
	}

	c := newCommit(s, id, repo)
	s.commits[k] = c
	return c
}

// Len returns the number of distinct commits in the store.
func (s *Store) Len() int {
	return len(s.commits)
}

// Close stops every log fetch in flight and reaps its git child. The
// interrupted commits get no log data and no notification; they may be
// fetched again later.
func (s *Store) Close() {
	for _, c := range s.commits {
		f := c.fetch
		if f == nil {
			continue
		}
		f.reader.Close()
		f.detach()
		s.log.Debug().Str("commit", string(c.id)).Msg("log fetch cancelled")
	}
}
