// Package reader runs git as a child process and delivers its standard
// output as a stream of lines.
//
// # Event model
//
// A Reader never blocks the goroutine that drives it. Each session starts
// three helper goroutines: one per pipe, reading 512 bytes at a time, and
// one reaping the child. They do not touch reader state; every observation
// is handed to a Dispatcher, which runs it on the event-loop goroutine. All
// handlers registered with OnLine and OnCompleted therefore run there too.
//
//	loop := reader.NewLoop()
//	r := reader.New(reader.Config{Dispatcher: loop})
//	r.OnLine(func(line []byte) bool {
//	    fmt.Printf("%q\n", line)
//	    return true
//	})
//	done := false
//	r.OnCompleted(func(err error) { done = true })
//	if err := r.Start(dir, "log", "--oneline"); err != nil {
//	    return err
//	}
//	loop.RunUntil(ctx, func() bool { return done })
//
// # Completion
//
// completed fires exactly once per session, after the child exited and both
// pipes reached end of file. An exit status other than zero is reported as
// an ErrExitStatus error built from the child's standard error, a failed
// pipe read as ErrIO. Starting a new session or calling Close terminates the
// child (SIGTERM, then wait) and drops the old session's events; completed
// does not fire for a cancelled session.
package reader
