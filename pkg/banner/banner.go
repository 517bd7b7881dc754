// Package banner prints the greeting shown before a build
package banner

import (
	"fmt"
	"io"
	"strings"

	"github.com/common-nighthawk/go-figure"
	"github.com/fatih/color"
)

// Phrase is the greeting text
const Phrase = "lets-build"

// Font is the figlet font used for the decorative banner
const Font = "larry3d"

const (
	wideColumns   = 85
	narrowColumns = 60
)

// Options controls how the greeting renders
type Options struct {
	// Columns is the terminal width, 0 when unknown
	Columns int
	// CI disables the decorative banner
	CI bool
}

// Text picks the banner text for a terminal width. A "|" marks a line
// break. ok is false when the terminal is too narrow for any banner.
func Text(columns int) (text string, ok bool) {
	switch {
	case columns > wideColumns:
		return "lets-build", true
	case columns > narrowColumns:
		return "lets-|build", true
	default:
		return "", false
	}
}

// Greet writes the greeting followed by a blank line
func Greet(w io.Writer, opts Options) {
	text, ok := Text(opts.Columns)
	if ok && !opts.CI {
		yellow := color.New(color.FgYellow)
		for _, line := range Render(text) {
			fmt.Fprintln(w, yellow.Sprint(line))
		}
	} else {
		fmt.Fprintln(w, color.New(color.FgYellow, color.Bold).Sprint("\n  "+Phrase))
	}
	fmt.Fprintln(w)
}

// Render turns banner text into ASCII art lines, one block per "|" segment
func Render(text string) []string {
	var lines []string
	for _, segment := range strings.Split(text, "|") {
		if segment == "" {
			continue
		}
		for _, line := range figure.NewFigure(segment, Font, true).Slicify() {
			if strings.TrimSpace(line) == "" {
				continue
			}
			lines = append(lines, strings.TrimRight(line, " "))
		}
	}
	return lines
}
