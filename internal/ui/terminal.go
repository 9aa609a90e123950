package ui

import (
	"os"
	"strings"

	"golang.org/x/term"
)

// ShouldUseColor reports whether ANSI colors should be used on stdout.
func ShouldUseColor() bool {
	return colorFor(os.Getenv, term.IsTerminal(int(os.Stdout.Fd())))
}

// colorFor decides from the environment, falling back to tty. NO_COLOR
// (any value) wins, then PATROL_COLOR=always|never, then CLICOLOR_FORCE=1
// and CLICOLOR=0.
func colorFor(getenv func(string) string, tty bool) bool {
	if getenv("NO_COLOR") != "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(getenv("PATROL_COLOR"))) {
	case "always":
		return true
	case "never":
		return false
	}
	if strings.TrimSpace(getenv("CLICOLOR_FORCE")) == "1" {
		return true
	}
	if strings.TrimSpace(getenv("CLICOLOR")) == "0" {
		return false
	}
	return tty
}
