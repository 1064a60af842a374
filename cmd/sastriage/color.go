package main

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"golang.org/x/term"
)

// palette colours status words when enabled.
type palette struct {
	enabled bool
}

// newPalette resolves --color. auto enables colour only for a terminal when
// NO_COLOR is unset.
func newPalette(mode string, w io.Writer) (palette, error) {
	switch mode {
	case "on", "always":
		return palette{enabled: true}, nil
	case "off", "never":
		return palette{}, nil
	case "", "auto":
		f, ok := w.(*os.File)
		if !ok || os.Getenv("NO_COLOR") != "" {
			return palette{}, nil
		}
		return palette{enabled: term.IsTerminal(int(f.Fd()))}, nil
	default:
		return palette{}, fmt.Errorf("invalid --color %q (want auto, on or off)", mode)
	}
}

func (p palette) paint(s string, attrs ...color.Attribute) string {
	if !p.enabled {
		return s
	}
	c := color.New(attrs...)
	c.EnableColor()
	return c.Sprint(s)
}

// status renders PASS or FAIL.
func (p palette) status(ok bool) string {
	if ok {
		return p.paint("PASS", color.FgGreen, color.Bold)
	}
	return p.paint("FAIL", color.FgRed, color.Bold)
}

func (p palette) warn(s string) string { return p.paint(s, color.FgYellow) }
