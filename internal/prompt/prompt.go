// Package prompt reads answers from the user's terminal.
package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"
)

// ErrClosed is returned when input ends before an answer is read. It wraps
// context.Canceled so callers treat it as an interruption.
var ErrClosed = fmt.Errorf("%w: input closed", context.Canceled)

// Terminal prompts on Out and reads answers from In.
type Terminal struct {
	In  io.Reader
	Out io.Writer

	reader *bufio.Reader
	// pending holds a read abandoned by a canceled prompt.
	pending chan reply
}

type reply struct {
	text string
	err  error
}

// New returns a Terminal reading from in and writing questions to out.
func New(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{In: in, Out: out}
}

func (t *Terminal) line() (string, error) {
	if t.reader == nil {
		t.reader = bufio.NewReader(t.In)
	}
	s, err := t.reader.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && s != "" {
			return strings.TrimRight(s, "\r\n"), nil
		}
		if errors.Is(err, io.EOF) {
			return "", ErrClosed
		}
		return "", err
	}
	return strings.TrimRight(s, "\r\n"), nil
}

// await runs read in the background and returns its answer, or ctx.Err()
// as soon as ctx is done. A read left running is picked up by the next call.
func (t *Terminal) await(ctx context.Context, read func() (string, error)) (string, error) {
	if t.pending == nil {
		ch := make(chan reply, 1)
		go func() {
			text, err := read()
			ch <- reply{text: text, err: err}
		}()
		t.pending = ch
	}
	select {
	case a := <-t.pending:
		t.pending = nil
		return a.text, a.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// buffered reports whether typed-ahead input is waiting in the line reader.
func (t *Terminal) buffered() bool {
	return t.reader != nil && t.reader.Buffered() > 0
}

// Ask reads one plain line.
func (t *Terminal) Ask(ctx context.Context, label string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	_, _ = fmt.Fprintf(t.Out, "%s> ", label)
	text, err := t.await(ctx, t.line)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// AskSecret reads one line without echo when In is a terminal.
func (t *Terminal) AskSecret(ctx context.Context, label string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	_, _ = fmt.Fprintf(t.Out, "%s> ", label)

	if f, ok := t.In.(*os.File); ok && t.pending == nil && !t.buffered() && term.IsTerminal(int(f.Fd())) {
		return t.readPassword(ctx, int(f.Fd()))
	}

	return t.await(ctx, t.line)
}

// readPassword reads without echo. The terminal state is restored when ctx
// ends the read early.
func (t *Terminal) readPassword(ctx context.Context, fd int) (string, error) {
	state, err := term.GetState(fd)
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	secret, err := t.await(ctx, func() (string, error) {
		b, err := term.ReadPassword(fd)
		return string(b), err
	})
	_, _ = fmt.Fprintln(t.Out)
	if err != nil {
		if ctx.Err() != nil {
			_ = term.Restore(fd, state)
			return "", err
		}
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return secret, nil
}

// Choose lists choices and accepts either a number or an exact name.
// It asks again until the answer matches.
func (t *Terminal) Choose(ctx context.Context, question string, choices []string) (string, error) {
	if len(choices) == 0 {
		return "", errors.New("nothing to choose from")
	}

	for {
		for i, c := range choices {
			_, _ = fmt.Fprintf(t.Out, "%d: %s\n", i+1, c)
		}

		answer, err := t.Ask(ctx, question)
		if err != nil {
			return "", err
		}

		if n, err := strconv.Atoi(answer); err == nil && n >= 1 && n <= len(choices) {
			return choices[n-1], nil
		}
		for _, c := range choices {
			if c == answer {
				return c, nil
			}
		}
		_, _ = fmt.Fprintf(t.Out, "Unknown answer, please try again!\n")
	}
}
