// Package commit holds the commit objects shared by every blame line and
// view, and loads their parents and log message on demand.
package commit

import (
	"sort"
	"strconv"
	"time"
)

// IDLength is the length of a full hexadecimal commit id.
const IDLength = 40

// ID is a full 40 character lowercase hexadecimal commit id.
type ID string

// ZeroID is the id git reports for lines that are not committed yet.
const ZeroID ID = "0000000000000000000000000000000000000000"

// ValidID reports whether s is exactly 40 lowercase hex digits.
func ValidID(s string) bool {
	if len(s) != IDLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isHex(s[i]) {
			return false
		}
	}
	return true
}

func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')
}

// IsUncommitted reports whether id is the working-copy sentinel.
func (id ID) IsUncommitted() bool {
	return id == ZeroID
}

// Short returns the abbreviated id.
func (id ID) Short() string {
	if len(id) <= 8 {
		return string(id)
	}
	return string(id[:8])
}

// Commit is the metadata for one commit in one repository.
//
// Commits are created by a Store and shared by reference; properties are
// filled in by the blame parser and log data by FetchLogData.
type Commit struct {
	id    ID
	repo  string
	store *Store

	props map[string]string

	hasLogData bool
	parents    []*Commit
	logText    string

	fetch     *logFetch
	nextID    int
	listeners []listener
}

type listener struct {
	id int
	fn func()
}

func newCommit(store *Store, id ID, repo string) *Commit {
	return &Commit{
		id:    id,
		repo:  repo,
		store: store,
		props: make(map[string]string),
	}
}

// ID returns the commit id.
func (c *Commit) ID() ID {
	return c.id
}

// Repo returns the repository directory the commit was resolved against.
func (c *Commit) Repo() string {
	return c.repo
}

// IsUncommitted reports whether c stands for working-copy changes.
func (c *Commit) IsUncommitted() bool {
	return c.id.IsUncommitted()
}

// Property returns a porcelain property such as "author" or "summary".
func (c *Commit) Property(key string) (string, bool) {
	v, ok := c.props[key]
	return v, ok
}

// SetProperty records a porcelain property, replacing any previous value.
func (c *Commit) SetProperty(key, value string) {
	c.props[key] = value
}

// PropertyKeys returns the recorded property names in sorted order.
func (c *Commit) PropertyKeys() []string {
	keys := make([]string, 0, len(c.props))
	for k := range c.props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Author returns the author name, or "" if unknown.
func (c *Commit) Author() string {
	return c.props["author"]
}

// Summary returns the first line of the commit message, or "" if unknown.
func (c *Commit) Summary() string {
	return c.props["summary"]
}

// AuthorTime returns the author timestamp if the author-time property
// holds a valid unix time.
func (c *Commit) AuthorTime() (time.Time, bool) {
	raw, ok := c.props["author-time"]
	if !ok {
		return time.Time{}, false
	}
	secs, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.Unix(secs, 0), true
}

// HasLogData reports whether a log fetch has finished, successfully or not.
func (c *Commit) HasLogData() bool {
	return c.hasLogData
}

// LogText returns the log output, or the error message of a failed fetch.
// Only meaningful once HasLogData is true.
func (c *Commit) LogText() string {
	return c.logText
}

// Parents returns the parent commits in the order git lists them.
// Only meaningful once HasLogData is true.
func (c *Commit) Parents() []*Commit {
	return append([]*Commit(nil), c.parents...)
}

// Fetching reports whether a log fetch is in flight.
func (c *Commit) Fetching() bool {
	return c.fetch != nil
}

// OnLogData registers fn to run whenever log data becomes available.
// The returned function removes it.
func (c *Commit) OnLogData(fn func()) func() {
	c.nextID++
	id := c.nextID
	c.listeners = append(c.listeners, listener{id: id, fn: fn})

	return func() {
		for i, l := range c.listeners {
			if l.id == id {
				c.listeners = append(c.listeners[:i:i], c.listeners[i+1:]...)
				return
			}
		}
	}
}

func (c *Commit) notifyLogData() {
	listeners := append([]listener(nil), c.listeners...)
	for _, l := range listeners {
		l.fn()
	}
}
