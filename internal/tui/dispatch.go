package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// runMsg carries a callback into Model.Update, which runs it on the
// program's event loop.
type runMsg struct {
	fn func()
}

// ProgramDispatcher delivers callbacks to a bubbletea program as messages.
// Callbacks dispatched before Attach are held and sent in order once the
// program is running.
type ProgramDispatcher struct {
	mu       sync.Mutex
	program  *tea.Program
	held     []func()
	flushing bool
}

// NewProgramDispatcher returns a dispatcher with no program attached.
func NewProgramDispatcher() *ProgramDispatcher {
	return &ProgramDispatcher{}
}

// Attach binds the dispatcher to p.
func (d *ProgramDispatcher) Attach(p *tea.Program) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.program = p
	if len(d.held) > 0 && !d.flushing {
		d.flushing = true
		go d.flush()
	}
}

func (d *ProgramDispatcher) flush() {
	for {
		d.mu.Lock()
		held := d.held
		d.held = nil
		if len(held) == 0 {
			d.flushing = false
			d.mu.Unlock()
			return
		}
		p := d.program
		d.mu.Unlock()

		for _, fn := range held {
			p.Send(runMsg{fn: fn})
		}
	}
}

// Dispatch implements reader.Dispatcher. It blocks until the program
// accepts the message or has exited.
func (d *ProgramDispatcher) Dispatch(fn func()) {
	d.mu.Lock()
	if d.program == nil || d.flushing {
		d.held = append(d.held, fn)
		d.mu.Unlock()
		return
	}
	p := d.program
	d.mu.Unlock()

	p.Send(runMsg{fn: fn})
}
