// Package ui renders the terminal views: the colored breakdown table, the
// interactive drill-down browser and the prompts for write actions.
package ui

import (
	"os"

	"github.com/charmbracelet/x/term"
	xterm "golang.org/x/term"
)

const defaultWidth = 80

// IsTTY returns true if stderr is a terminal.
func IsTTY() bool {
	return term.IsTerminal(os.Stderr.Fd())
}

// IsStdoutTTY returns true if stdout is a terminal.
func IsStdoutTTY() bool {
	return term.IsTerminal(os.Stdout.Fd())
}

// Width returns the width of the terminal on stdout, or 80 when it cannot
// be determined.
func Width() int {
	w, _, err := xterm.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 {
		return defaultWidth
	}
	return w
}
