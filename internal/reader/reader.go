package reader

import (
	"bytes"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"
)

// readChunkSize is how much is read from a pipe per wakeup.
const readChunkSize = 512

// readPipe reads one chunk from a child's pipe. Tests replace it to inject
// read failures.
var readPipe = func(which stream, f *os.File, buf []byte) (int, error) {
	return f.Read(buf)
}

// DefaultGitPath is the executable used when Config.GitPath is empty.
const DefaultGitPath = "git"

// Config configures a Reader.
type Config struct {
	// GitPath is the executable to run. Defaults to "git".
	GitPath string

	// Dispatcher runs the reader's callbacks. Required.
	Dispatcher Dispatcher

	// Logger receives debug output about process lifecycle.
	Logger zerolog.Logger
}

type stream int

const (
	streamStdout stream = iota
	streamStderr
)

func (s stream) String() string {
	if s == streamStderr {
		return "stderr"
	}
	return "stdout"
}

// session is one spawned child. Fields other than exited/exitCode are only
// touched on the event-loop goroutine.
type session struct {
	cmd    *exec.Cmd
	pid    int
	stdout *os.File
	stderr *os.File

	stdoutOpen bool
	stderrOpen bool
	running    bool

	errText bytes.Buffer
	line    []byte

	exited   chan struct{}
	exitCode int
}

type lineHandler struct {
	id int
	fn func(line []byte) bool
}

type completedHandler struct {
	id int
	fn func(err error)
}

// Reader runs git and turns its stdout into a stream of line events.
//
// A Reader drives one child at a time. All handlers run through the
// configured Dispatcher; the Reader itself is not safe for use from any
// other goroutine than the one the Dispatcher runs functions on.
type Reader struct {
	gitPath  string
	dispatch Dispatcher
	log      zerolog.Logger

	sess    *session
	lastPid int

	nextID    int
	lines     []lineHandler
	completed []completedHandler
}

// New creates a Reader. It panics if cfg.Dispatcher is nil.
func New(cfg Config) *Reader {
	if cfg.Dispatcher == nil {
		panic("reader: nil Dispatcher")
	}
	if cfg.GitPath == "" {
		cfg.GitPath = DefaultGitPath
	}

	return &Reader{
		gitPath:  cfg.GitPath,
		dispatch: cfg.Dispatcher,
		log:      cfg.Logger.With().Str("component", "reader").Logger(),
	}
}

// OnLine registers a handler for stdout lines. Each line includes its
// trailing newline except for a final unterminated line. Returning false
// stops the session: the child is killed and completed fires with a nil
// error. The returned function removes the handler.
func (r *Reader) OnLine(fn func(line []byte) bool) func() {
	r.nextID++
	id := r.nextID
	r.lines = append(r.lines, lineHandler{id: id, fn: fn})

	return func() {
		for i, h := range r.lines {
			if h.id == id {
				r.lines = append(r.lines[:i:i], r.lines[i+1:]...)
				return
			}
		}
	}
}

// OnCompleted registers a handler fired once per session when the child has
// exited and its output has been consumed. The returned function removes
// the handler.
func (r *Reader) OnCompleted(fn func(err error)) func() {
	r.nextID++
	id := r.nextID
	r.completed = append(r.completed, completedHandler{id: id, fn: fn})

	return func() {
		for i, h := range r.completed {
			if h.id == id {
				r.completed = append(r.completed[:i:i], r.completed[i+1:]...)
				return
			}
		}
	}
}

// Running reports whether a session is active.
func (r *Reader) Running() bool {
	return r.sess != nil
}

// Pid returns the process ID of the most recently started child, or 0.
func (r *Reader) Pid() int {
	return r.lastPid
}

// Start runs git with args in dir. Any active child is terminated first and
// its pending events are dropped. A spawn failure is returned directly and
// no handler fires for it.
func (r *Reader) Start(dir string, args ...string) error {
	r.teardown(true)

	outR, outW, err := os.Pipe()
	if err != nil {
		return &Error{Kind: KindSpawn, Msg: "cannot start git", Err: errors.Wrap(err, "create stdout pipe")}
	}
	errR, errW, err := os.Pipe()
	if err != nil {
		outR.Close()
		outW.Close()
		return &Error{Kind: KindSpawn, Msg: "cannot start git", Err: errors.Wrap(err, "create stderr pipe")}
	}

	cmd := exec.Command(r.gitPath, args...)
	cmd.Dir = dir
	cmd.Stdout = outW
	cmd.Stderr = errW

	err = cmd.Start()

	// The child holds its own copies of the write ends.
	outW.Close()
	errW.Close()

	if err != nil {
		outR.Close()
		errR.Close()
		r.log.Debug().Err(err).Str("dir", dir).Strs("args", args).Msg("spawn failed")
		return &Error{Kind: KindSpawn, Msg: "cannot start git", Err: err}
	}

	s := &session{
		cmd:        cmd,
		pid:        cmd.Process.Pid,
		stdout:     outR,
		stderr:     errR,
		stdoutOpen: true,
		stderrOpen: true,
		running:    true,
		exited:     make(chan struct{}),
	}
	r.sess = s
	r.lastPid = s.pid

	r.log.Debug().Int("pid", s.pid).Str("dir", dir).Strs("args", args).Msg("started git")

	go r.pump(s, streamStdout, outR)
	go r.pump(s, streamStderr, errR)
	go r.wait(s)

	return nil
}

// Close terminates the active child, if any, without firing completed.
// It blocks until the child has been reaped.
func (r *Reader) Close() {
	r.teardown(true)
}

// pump copies a pipe into the event loop. It runs on its own goroutine.
func (r *Reader) pump(s *session, which stream, f *os.File) {
	buf := make([]byte, readChunkSize)
	for {
		n, err := readPipe(which, f, buf)
		if n > 0 {
			chunk := append([]byte(nil), buf[:n]...)
			r.dispatch.Dispatch(func() { r.onData(s, which, chunk) })
		}
		if err == nil {
			continue
		}

		switch {
		case errors.Is(err, io.EOF):
			r.dispatch.Dispatch(func() { r.onEOF(s, which) })
		case errors.Is(err, os.ErrClosed):
			// Torn down by the event loop; nobody is listening.
		default:
			r.dispatch.Dispatch(func() { r.onReadError(s, which, err) })
		}
		return
	}
}

// wait reaps the child. It runs on its own goroutine.
func (r *Reader) wait(s *session) {
	err := s.cmd.Wait()

	code := 0
	if err != nil {
		code = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() > 0 {
			code = exitErr.ExitCode()
		}
	}
	s.exitCode = code
	close(s.exited)

	r.dispatch.Dispatch(func() { r.onExit(s) })
}

func (r *Reader) onData(s *session, which stream, chunk []byte) {
	if s != r.sess {
		return
	}

	if which == streamStderr {
		s.errText.Write(chunk)
		return
	}

	s.line = append(s.line, chunk...)
	r.splitLines(s)
}

// splitLines emits every complete line in the buffer and keeps the
// unterminated remainder at the front.
func (r *Reader) splitLines(s *session) {
	start := 0
	for {
		i := bytes.IndexByte(s.line[start:], '\n')
		if i < 0 {
			break
		}
		end := start + i + 1
		line := append([]byte(nil), s.line[start:end]...)
		start = end

		more := r.emitLine(line)
		if s != r.sess {
			// A handler closed or restarted the reader.
			return
		}
		if !more {
			r.halt(s)
			return
		}
	}

	s.line = append(s.line[:0], s.line[start:]...)
}

func (r *Reader) onEOF(s *session, which stream) {
	if s != r.sess {
		return
	}

	if which == streamStdout {
		s.stdoutOpen = false
	} else {
		s.stderrOpen = false
	}
	r.checkComplete(s)
}

func (r *Reader) onExit(s *session) {
	if s != r.sess {
		return
	}

	s.running = false
	r.checkComplete(s)
}

func (r *Reader) onReadError(s *session, which stream, err error) {
	if s != r.sess {
		return
	}

	r.log.Debug().Err(err).Int("pid", s.pid).Stringer("stream", which).Msg("read failed")
	r.teardown(true)
	r.emitCompleted(&Error{Kind: KindIO, Msg: "error reading from git", Err: err})
}

// checkComplete finishes the session once the child has exited and both
// pipes are drained, in whichever order those happened.
func (r *Reader) checkComplete(s *session) {
	if s.running || s.stdoutOpen || s.stderrOpen {
		return
	}

	if len(s.line) > 0 {
		line := append([]byte(nil), s.line...)
		s.line = s.line[:0]

		more := r.emitLine(line)
		if s != r.sess {
			return
		}
		if !more {
			r.halt(s)
			return
		}
	}

	r.teardown(false)

	var err error
	if s.exitCode != 0 {
		stderr := strings.TrimSpace(s.errText.String())
		r.log.Info().Int("pid", s.pid).Int("code", s.exitCode).Str("stderr", stderr).Msg("git failed")
		err = exitStatusError(stderr)
	} else {
		r.log.Debug().Int("pid", s.pid).Msg("git finished")
	}
	r.emitCompleted(err)
}

// halt ends the session on request of a line handler.
func (r *Reader) halt(s *session) {
	r.log.Debug().Int("pid", s.pid).Msg("line handler halted git")
	r.teardown(true)
	r.emitCompleted(nil)
}

// teardown detaches the active session. With kill set it also terminates
// the child if it is still running and waits for it to be reaped.
func (r *Reader) teardown(kill bool) {
	s := r.sess
	if s == nil {
		return
	}
	r.sess = nil

	var result *multierror.Error
	if err := s.stdout.Close(); err != nil {
		result = multierror.Append(result, errors.Wrap(err, "close stdout"))
	}
	if err := s.stderr.Close(); err != nil {
		result = multierror.Append(result, errors.Wrap(err, "close stderr"))
	}
	if err := result.ErrorOrNil(); err != nil {
		r.log.Debug().Err(err).Int("pid", s.pid).Msg("closing pipes")
	}

	if !kill {
		return
	}

	select {
	case <-s.exited:
		return
	default:
	}

	r.log.Debug().Int("pid", s.pid).Msg("terminating git")
	if err := s.cmd.Process.Signal(unix.SIGTERM); err != nil && !errors.Is(err, os.ErrProcessDone) {
		r.log.Debug().Err(err).Int("pid", s.pid).Msg("signal failed")
	}
	<-s.exited
}

func (r *Reader) emitLine(line []byte) bool {
	handlers := append([]lineHandler(nil), r.lines...)
	for _, h := range handlers {
		if !h.fn(line) {
			return false
		}
	}
	return true
}

func (r *Reader) emitCompleted(err error) {
	handlers := append([]completedHandler(nil), r.completed...)
	for _, h := range handlers {
		h.fn(err)
	}
}
