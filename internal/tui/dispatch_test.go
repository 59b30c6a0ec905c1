package tui

import (
	"io"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordModel runs dispatched callbacks and quits after want of them.
type recordModel struct {
	got  *[]int
	want int
}

func (m recordModel) Init() tea.Cmd { return nil }

func (m recordModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(runMsg); ok {
		msg.fn()
		if len(*m.got) == m.want {
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m recordModel) View() string { return "" }

func TestProgramDispatcher_Order(t *testing.T) {
	var got []int
	p := tea.NewProgram(recordModel{got: &got, want: 6},
		tea.WithInput(nil),
		tea.WithOutput(io.Discard),
		tea.WithoutRenderer(),
		tea.WithoutSignalHandler(),
	)

	d := NewProgramDispatcher()
	record := func(i int) func() {
		return func() { got = append(got, i) }
	}

	// Held until the program is attached.
	for i := 0; i < 3; i++ {
		d.Dispatch(record(i))
	}
	d.Attach(p)

	go func() {
		for i := 3; i < 6; i++ {
			d.Dispatch(record(i))
		}
	}()

	done := make(chan error, 1)
	go func() {
		_, err := p.Run()
		done <- err
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		p.Kill()
		t.Fatal("program did not receive all callbacks")
	}

	assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, got)
}
