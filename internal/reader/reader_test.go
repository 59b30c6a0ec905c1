package reader

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// fakeGit writes an executable shell script standing in for git.
func fakeGit(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "git")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script+"\n"), 0o755))
	return path
}

type recorder struct {
	lines       []string
	completions int
	err         error
}

func (rec *recorder) done() bool {
	return rec.completions > 0
}

func newTestReader(t *testing.T, script string) (*Reader, *Loop, *recorder) {
	t.Helper()
	loop := NewLoop()
	r := New(Config{GitPath: fakeGit(t, script), Dispatcher: loop})
	rec := &recorder{}
	r.OnLine(func(line []byte) bool {
		rec.lines = append(rec.lines, string(line))
		return true
	})
	r.OnCompleted(func(err error) {
		rec.completions++
		rec.err = err
	})
	t.Cleanup(r.Close)
	return r, loop, rec
}

func runUntil(t *testing.T, loop *Loop, done func() bool) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, loop.RunUntil(ctx, done))
}

// drain runs the loop for a short while so stale events get a chance to fire.
func drain(t *testing.T, loop *Loop) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	err := loop.Run(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func requireReaped(t *testing.T, pid int) {
	t.Helper()
	require.NotZero(t, pid)
	require.ErrorIs(t, unix.Kill(pid, 0), unix.ESRCH)
}

func TestReader_LinesWithResidual(t *testing.T) {
	r, loop, rec := newTestReader(t, `printf 'one\ntwo\nthree'`)

	require.NoError(t, r.Start(t.TempDir()))
	runUntil(t, loop, rec.done)

	assert.NoError(t, rec.err)
	assert.Equal(t, []string{"one\n", "two\n", "three"}, rec.lines)
	assert.Equal(t, 1, rec.completions)
	assert.False(t, r.Running())
	requireReaped(t, r.Pid())
}

func TestReader_NoResidualWhenTerminated(t *testing.T) {
	r, loop, rec := newTestReader(t, `printf 'one\ntwo\n'`)

	require.NoError(t, r.Start(t.TempDir()))
	runUntil(t, loop, rec.done)

	assert.NoError(t, rec.err)
	assert.Equal(t, []string{"one\n", "two\n"}, rec.lines)
}

func TestReader_LinesSpanningReads(t *testing.T) {
	r, loop, rec := newTestReader(t, `i=0
while [ $i -lt 300 ]; do
  echo "line number $i with some padding to cross chunk boundaries"
  i=$((i+1))
done`)

	require.NoError(t, r.Start(t.TempDir()))
	runUntil(t, loop, rec.done)

	require.NoError(t, rec.err)
	require.Len(t, rec.lines, 300)
	assert.Equal(t, "line number 0 with some padding to cross chunk boundaries\n", rec.lines[0])
	assert.Equal(t, "line number 299 with some padding to cross chunk boundaries\n", rec.lines[299])
}

func TestReader_StderrIsNotDeliveredAsLines(t *testing.T) {
	r, loop, rec := newTestReader(t, `echo out; echo noise >&2`)

	require.NoError(t, r.Start(t.TempDir()))
	runUntil(t, loop, rec.done)

	assert.NoError(t, rec.err)
	assert.Equal(t, []string{"out\n"}, rec.lines)
}

func TestReader_ExitStatus(t *testing.T) {
	r, loop, rec := newTestReader(t, `echo partial; echo "  fatal: no such path 'x' in HEAD  " >&2; exit 128`)

	require.NoError(t, r.Start(t.TempDir()))
	runUntil(t, loop, rec.done)

	require.Error(t, rec.err)
	assert.True(t, errors.Is(rec.err, ErrExitStatus))
	assert.Equal(t, KindExitStatus, KindOf(rec.err))
	assert.Equal(t, "Error invoking git: fatal: no such path 'x' in HEAD", rec.err.Error())
	assert.Equal(t, []string{"partial\n"}, rec.lines)
}

func TestReader_ExitStatusWithoutStderr(t *testing.T) {
	r, loop, rec := newTestReader(t, `exit 3`)

	require.NoError(t, r.Start(t.TempDir()))
	runUntil(t, loop, rec.done)

	require.ErrorIs(t, rec.err, ErrExitStatus)
	assert.Equal(t, "Error invoking git", rec.err.Error())
}

func TestReader_SpawnError(t *testing.T) {
	loop := NewLoop()
	r := New(Config{GitPath: filepath.Join(t.TempDir(), "missing-git"), Dispatcher: loop})
	called := false
	r.OnCompleted(func(error) { called = true })

	err := r.Start(t.TempDir(), "status")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSpawn)
	assert.False(t, r.Running())
	assert.Zero(t, loop.Pending())
	assert.False(t, called)
}

func TestReader_SpawnErrorForMissingDirectory(t *testing.T) {
	loop := NewLoop()
	r := New(Config{GitPath: fakeGit(t, "echo hi"), Dispatcher: loop})

	err := r.Start(filepath.Join(t.TempDir(), "nope"))
	assert.ErrorIs(t, err, ErrSpawn)
}

func TestReader_Arguments(t *testing.T) {
	r, loop, rec := newTestReader(t, `for a in "$@"; do echo "$a"; done`)

	require.NoError(t, r.Start(t.TempDir(), "blame", "--porcelain", "file name.c"))
	runUntil(t, loop, rec.done)

	assert.Equal(t, []string{"blame\n", "--porcelain\n", "file name.c\n"}, rec.lines)
}

func TestReader_WorkingDirectory(t *testing.T) {
	r, loop, rec := newTestReader(t, `pwd -P`)
	dir := t.TempDir()

	require.NoError(t, r.Start(dir))
	runUntil(t, loop, rec.done)

	want, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{want + "\n"}, rec.lines)
}

func TestReader_HaltKillsChild(t *testing.T) {
	loop := NewLoop()
	r := New(Config{GitPath: fakeGit(t, "echo first; echo second; exec sleep 30"), Dispatcher: loop})
	t.Cleanup(r.Close)

	var lines []string
	r.OnLine(func(line []byte) bool {
		lines = append(lines, string(line))
		return false
	})
	completions := 0
	var got error
	r.OnCompleted(func(err error) {
		completions++
		got = err
	})

	require.NoError(t, r.Start(t.TempDir()))
	runUntil(t, loop, func() bool { return completions > 0 })

	assert.NoError(t, got)
	assert.Equal(t, []string{"first\n"}, lines)
	assert.False(t, r.Running())
	requireReaped(t, r.Pid())

	drain(t, loop)
	assert.Equal(t, 1, completions)
	assert.Len(t, lines, 1)
}

func TestReader_RestartCancelsPrevious(t *testing.T) {
	r, loop, rec := newTestReader(t, `if [ "$1" = slow ]; then exec sleep 30; fi
echo "$1"`)

	require.NoError(t, r.Start(t.TempDir(), "slow"))
	first := r.Pid()

	require.NoError(t, r.Start(t.TempDir(), "fast"))
	requireReaped(t, first)
	assert.NotEqual(t, first, r.Pid())

	runUntil(t, loop, rec.done)
	drain(t, loop)

	assert.NoError(t, rec.err)
	assert.Equal(t, 1, rec.completions)
	assert.Equal(t, []string{"fast\n"}, rec.lines)
}

func TestReader_CloseFromLineHandler(t *testing.T) {
	loop := NewLoop()
	r := New(Config{GitPath: fakeGit(t, "echo a; echo b; echo c; exec sleep 30"), Dispatcher: loop})

	var lines []string
	r.OnLine(func(line []byte) bool {
		lines = append(lines, string(line))
		r.Close()
		return true
	})
	completions := 0
	r.OnCompleted(func(error) { completions++ })

	require.NoError(t, r.Start(t.TempDir()))
	runUntil(t, loop, func() bool { return len(lines) > 0 })
	drain(t, loop)

	assert.Equal(t, []string{"a\n"}, lines)
	assert.Zero(t, completions)
	assert.False(t, r.Running())
	requireReaped(t, r.Pid())
}

func TestReader_Unsubscribe(t *testing.T) {
	r, loop, rec := newTestReader(t, `echo one; echo two`)

	calls := 0
	stop := r.OnLine(func([]byte) bool {
		calls++
		return true
	})
	stop()

	require.NoError(t, r.Start(t.TempDir()))
	runUntil(t, loop, rec.done)

	assert.Zero(t, calls)
	assert.Len(t, rec.lines, 2)
}

func TestReader_CloseWithoutSession(t *testing.T) {
	r := New(Config{Dispatcher: NewLoop()})
	r.Close()
	assert.False(t, r.Running())
	assert.Zero(t, r.Pid())
}

func TestNew_RequiresDispatcher(t *testing.T) {
	assert.Panics(t, func() { New(Config{}) })
}

func TestReader_ReadErrorKillsChild(t *testing.T) {
	calls := 0
	orig := readPipe
	readPipe = func(which stream, f *os.File, buf []byte) (int, error) {
		if which == streamStderr {
			return f.Read(buf)
		}
		calls++
		if calls == 1 {
			return copy(buf, "one\ntwo\npart"), nil
		}
		return 0, errors.New("input/output error")
	}
	t.Cleanup(func() { readPipe = orig })

	r, loop, rec := newTestReader(t, `exec sleep 30`)

	require.NoError(t, r.Start(t.TempDir()))
	runUntil(t, loop, rec.done)

	require.Error(t, rec.err)
	assert.ErrorIs(t, rec.err, ErrIO)
	assert.Equal(t, KindIO, KindOf(rec.err))
	assert.Contains(t, rec.err.Error(), "input/output error")
	assert.Equal(t, []string{"one\n", "two\n"}, rec.lines)
	assert.False(t, r.Running())
	requireReaped(t, r.Pid())

	drain(t, loop)
	assert.Equal(t, 1, rec.completions)
	assert.Len(t, rec.lines, 2)
}
