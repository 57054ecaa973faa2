// Package ui renders colored status lines and progress for vmc.
package ui

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/briandowns/spinner"
	"github.com/muesli/termenv"
)

// ColorMode determines when to use colored output.
type ColorMode int

const (
	// ColorAuto uses colors when the terminal supports them.
	ColorAuto ColorMode = iota
	ColorAlways
	ColorNever
)

type contextKey string

const uiContextKey contextKey = "ui"

var ansiColors = map[string]termenv.ANSIColor{
	"black":          termenv.ANSIBlack,
	"red":            termenv.ANSIRed,
	"green":          termenv.ANSIGreen,
	"yellow":         termenv.ANSIYellow,
	"blue":           termenv.ANSIBlue,
	"magenta":        termenv.ANSIMagenta,
	"cyan":           termenv.ANSICyan,
	"white":          termenv.ANSIWhite,
	"bright_black":   termenv.ANSIBrightBlack,
	"bright_red":     termenv.ANSIBrightRed,
	"bright_green":   termenv.ANSIBrightGreen,
	"bright_yellow":  termenv.ANSIBrightYellow,
	"bright_blue":    termenv.ANSIBrightBlue,
	"bright_magenta": termenv.ANSIBrightMagenta,
	"bright_cyan":    termenv.ANSIBrightCyan,
	"bright_white":   termenv.ANSIBrightWhite,
}

// Options configure a UI.
type Options struct {
	Mode ColorMode
	// Colors maps a label such as "good" or "error" to a color name.
	Colors map[string]string
	// Quiet suppresses progress lines.
	Quiet bool
	// Spinner animates progress; only meaningful on a terminal.
	Spinner bool
}

// UI writes status output. Data goes to stdout elsewhere; UI output goes to w.
type UI struct {
	w       io.Writer
	out     *termenv.Output
	color   ColorMode
	colors  map[string]string
	quiet   bool
	spinner bool
}

// New creates a UI writing to w. It respects NO_COLOR.
func New(w io.Writer, opts Options) *UI {
	if w == nil {
		w = os.Stderr
	}

	mode := opts.Mode
	if os.Getenv("NO_COLOR") != "" {
		mode = ColorNever
	}

	profile := termenv.NewOutput(w).Profile
	switch mode {
	case ColorNever:
		profile = termenv.Ascii
	case ColorAlways:
		if profile == termenv.Ascii {
			profile = termenv.ANSI
		}
	}

	return &UI{
		w:       w,
		out:     termenv.NewOutput(w, termenv.WithProfile(profile)),
		color:   mode,
		colors:  opts.Colors,
		quiet:   opts.Quiet,
		spinner: opts.Spinner,
	}
}

// WithUI returns a new context with the UI instance attached.
func WithUI(ctx context.Context, ui *UI) context.Context {
	return context.WithValue(ctx, uiContextKey, ui)
}

// FromContext retrieves the UI instance from the context, or a plain stderr UI.
func FromContext(ctx context.Context) *UI {
	if ui, ok := ctx.Value(uiContextKey).(*UI); ok {
		return ui
	}
	return New(os.Stderr, Options{Mode: ColorAuto})
}

// C paints text with the color configured for label. Unknown labels and
// unknown color names leave text unchanged.
func (u *UI) C(text, label string) string {
	name, ok := u.colors[label]
	if !ok {
		return text
	}
	color, ok := ansiColors[name]
	if !ok {
		return text
	}
	return u.out.String(text).Foreground(color).String()
}

// Labels returns the configured color labels, sorted.
func (u *UI) Labels() []string {
	labels := make([]string, 0, len(u.colors))
	for l := range u.colors {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	return labels
}

// Line prints one line.
func (u *UI) Line(format string, args ...any) {
	_, _ = fmt.Fprintf(u.w, format+"\n", args...)
}

// Success prints a message in the "good" color.
func (u *UI) Success(format string, args ...any) {
	_, _ = fmt.Fprintln(u.w, u.C(fmt.Sprintf(format, args...), "good"))
}

// Warning prints a message in the "warning" color.
func (u *UI) Warning(format string, args ...any) {
	_, _ = fmt.Fprintln(u.w, u.C(fmt.Sprintf(format, args...), "warning"))
}

// Error prints a message in the "error" color.
func (u *UI) Error(format string, args ...any) {
	_, _ = fmt.Fprintln(u.w, u.C(fmt.Sprintf(format, args...), "error"))
}

// Step runs fn and reports "<message>... OK" or "<message>... FAILED".
func (u *UI) Step(_ context.Context, message string, fn func() error) error {
	if u.quiet {
		return fn()
	}

	var err error
	if u.spinner {
		s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(u.w))
		s.Suffix = " " + message + "..."
		s.Start()
		err = fn()
		s.Stop()
		_, _ = fmt.Fprintf(u.w, "%s... ", message)
	} else {
		_, _ = fmt.Fprintf(u.w, "%s... ", message)
		err = fn()
	}

	if err != nil {
		_, _ = fmt.Fprintln(u.w, u.C("FAILED", "bad"))
		return err
	}
	_, _ = fmt.Fprintln(u.w, u.C("OK", "good"))
	return nil
}
