package export

import (
	"io"
	"os"

	"github.com/aymanbagabas/go-osc52/v2"
	"github.com/pkg/errors"
)

// CopyToClipboard writes the content to the terminal clipboard using OSC52.
// The writer defaults to stdout when nil. Inside tmux or screen the
// sequence is wrapped so it reaches the outer terminal.
func CopyToClipboard(content string, w io.Writer) error {
	if w == nil {
		w = os.Stdout
	}

	seq := osc52.New(content)
	switch {
	case os.Getenv("TMUX") != "":
		seq = seq.Tmux()
	case os.Getenv("STY") != "":
		seq = seq.Screen()
	}

	if _, err := seq.WriteTo(w); err != nil {
		return errors.Wrap(err, "write clipboard sequence")
	}
	return nil
}
