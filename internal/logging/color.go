package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// ColorEnvVar forces colour on or off regardless of the output.
const ColorEnvVar = "ADBREC_COLOR"

// ColorMode controls ANSI colour output in log lines.
type ColorMode int

const (
	ColorAuto ColorMode = iota
	ColorOn
	ColorOff
)

// resolveColor determines whether to emit ANSI colour codes.
// Priority: ADBREC_COLOR env > NO_COLOR env > auto-detect TTY on out.
func resolveColor(mode ColorMode, out io.Writer) bool {
	switch mode {
	case ColorOn:
		return true
	case ColorOff:
		return false
	}

	if v := os.Getenv(ColorEnvVar); v != "" {
		switch strings.ToLower(v) {
		case "1", "true", "yes", "on":
			return true
		case "0", "false", "no", "off":
			return false
		}
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	if f, ok := out.(*os.File); ok {
		return term.IsTerminal(int(f.Fd()))
	}
	return false
}

// ParseColorMode parses a --color flag value: auto, always or never.
func ParseColorMode(s string) (ColorMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return ColorAuto, nil
	case "always", "on":
		return ColorOn, nil
	case "never", "off":
		return ColorOff, nil
	}
	return ColorAuto, fmt.Errorf("invalid color mode %q: valid values are auto, always, never", s)
}
