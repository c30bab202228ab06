package cli

import (
	"errors"
	"io"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"
)

// Prompter asks the operator yes/no questions before destructive actions.
type Prompter interface {
	Confirm(title, description string) (bool, error)
}

// huhPrompter renders confirmations as an interactive form.
type huhPrompter struct{}

func (huhPrompter) Confirm(title, description string) (bool, error) {
	var ok bool
	err := huh.NewConfirm().
		Title(title).
		Description(description).
		Affirmative("Yes").
		Negative("No").
		Value(&ok).
		Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return false, nil
	}
	return ok, err
}

// declinePrompter answers no, for sessions without a terminal.
type declinePrompter struct{}

func (declinePrompter) Confirm(string, string) (bool, error) {
	return false, nil
}

// defaultPrompter picks an interactive prompter when in is a terminal.
func defaultPrompter(in io.Reader) Prompter {
	f, ok := in.(*os.File)
	if !ok {
		return declinePrompter{}
	}
	if isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()) {
		return huhPrompter{}
	}
	return declinePrompter{}
}
