// Package cli holds terminal helpers for uowctl: confirmation prompts and
// boxed banners.
package cli

import (
	"errors"
	"io"
	"os"

	"github.com/manifoldco/promptui"
)

// Prompter asks questions on a terminal.
type Prompter struct {
	In  io.ReadCloser
	Out io.WriteCloser
}

// NewPrompter returns a prompter on stdin and stdout.
func NewPrompter() *Prompter {
	return &Prompter{In: os.Stdin, Out: os.Stdout}
}

// Confirm asks a yes/no question. Answering no is not an error.
func (p *Prompter) Confirm(label string) (bool, error) {
	prompt := promptui.Prompt{
		Label:     label,
		IsConfirm: true,
		Stdin:     p.In,
		Stdout:    p.Out,
	}

	_, err := prompt.Run()
	if err != nil {
		if errors.Is(err, promptui.ErrAbort) {
			return false, nil
		}

		return false, err
	}

	return true, nil
}
