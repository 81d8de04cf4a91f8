// Package ui renders the runner's terminal output and handles the one
// interactive confirmation prompt. Colors degrade to plain text when the
// output is not a terminal.
package ui

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// UI is the single funnel for user-facing output.
type UI struct {
	out     io.Writer
	in      io.Reader
	reader  *bufio.Reader
	verbose int
	yes     bool

	green   lipgloss.Style
	red     lipgloss.Style
	magenta lipgloss.Style
	cyan    lipgloss.Style
}

// New creates a UI writing to out. Verbose is the -v count; yes bypasses
// confirmation prompts.
func New(out io.Writer, in io.Reader, verbose int, yes bool) *UI {
	u := &UI{out: out, in: in, verbose: verbose, yes: yes}
	colored := termenv.EnvColorProfile() != termenv.Ascii
	if f, ok := out.(*os.File); ok && !term.IsTerminal(int(f.Fd())) {
		colored = false
	}
	if colored {
		u.green = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
		u.red = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
		u.magenta = lipgloss.NewStyle().Foreground(lipgloss.Color("5"))
		u.cyan = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	} else {
		plain := lipgloss.NewStyle()
		u.green, u.red, u.magenta, u.cyan = plain, plain, plain, plain
	}
	return u
}

// Printf writes formatted output.
func (u *UI) Printf(format string, args ...any) {
	fmt.Fprintf(u.out, format, args...)
}

// Verbose reports whether -v was given at least once.
func (u *UI) Verbose() bool {
	return u.verbose >= 1
}

// VerboseLevel returns the raw -v count.
func (u *UI) VerboseLevel() int {
	return u.verbose
}

// Green styles a success word.
func (u *UI) Green(s string) string { return u.green.Render(s) }

// Red styles a failure or deletion word.
func (u *UI) Red(s string) string { return u.red.Render(s) }

// Magenta styles a progress word.
func (u *UI) Magenta(s string) string { return u.magenta.Render(s) }

// Cyan styles a task name.
func (u *UI) Cyan(s string) string { return u.cyan.Render(s) }

// Confirm asks a y/N question. It returns true without asking when --yes
// was given or when stdin is not a terminal.
func (u *UI) Confirm(prompt string) (bool, error) {
	if u.yes {
		return true, nil
	}
	if f, ok := u.in.(*os.File); ok && !term.IsTerminal(int(f.Fd())) {
		return true, nil
	}
	fmt.Fprintf(u.out, "%s (y/N) ", prompt)
	if u.reader == nil {
		u.reader = bufio.NewReader(u.in)
	}
	line, err := u.reader.ReadString('\n')
	if err != nil && line == "" {
		return false, err
	}
	return strings.HasPrefix(strings.TrimSpace(line), "y"), nil
}
