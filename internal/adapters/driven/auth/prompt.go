package auth

import (
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// ErrNoTerminal is returned when a prompt is needed but stdin is not a terminal.
var ErrNoTerminal = errors.New("stdin is not a terminal")

// PasswordPrompter reads a secret from the user.
type PasswordPrompter interface {
	Password(prompt string) (string, error)
}

// TerminalPrompter reads passwords from a terminal without echo.
type TerminalPrompter struct {
	in  *os.File
	out io.Writer
}

// NewTerminalPrompter prompts on stderr and reads from stdin.
func NewTerminalPrompter() *TerminalPrompter {
	return &TerminalPrompter{in: os.Stdin, out: os.Stderr}
}

// Password prints prompt and reads a line without echo.
func (p *TerminalPrompter) Password(prompt string) (string, error) {
	fd := int(p.in.Fd())
	if !term.IsTerminal(fd) {
		return "", ErrNoTerminal
	}

	_, _ = fmt.Fprint(p.out, prompt)
	b, err := term.ReadPassword(fd)
	_, _ = fmt.Fprintln(p.out)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(b), nil
}
