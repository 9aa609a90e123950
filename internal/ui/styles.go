// Package ui styles command-line output.
package ui

import "fmt"

// ANSI256 color codes matching the Ayu palette.
const (
	colorAccent = 74  // blue
	colorMuted  = 245 // medium gray
	colorPass   = 114 // green
	colorFail   = 203 // red
)

var noColor bool

func render(color int, s string) string {
	if noColor {
		return s
	}
	return fmt.Sprintf("\x1b[38;5;%dm%s\x1b[0m", color, s)
}

// RenderAccent returns s in the accent (blue) color.
func RenderAccent(s string) string { return render(colorAccent, s) }

// RenderMuted returns s in the muted (gray) color.
func RenderMuted(s string) string { return render(colorMuted, s) }

// RenderPass returns s in the passing (green) color.
func RenderPass(s string) string { return render(colorPass, s) }

// RenderFail returns s in the failing (red) color.
func RenderFail(s string) string { return render(colorFail, s) }

// RenderVerdict renders "pass" or "fail".
func RenderVerdict(passed bool) string {
	if passed {
		return RenderPass("pass")
	}
	return RenderFail("fail")
}

// ForceNoColor disables color output globally.
func ForceNoColor() {
	noColor = true
}
