// Package iocontext carries the process's standard streams through a context
// so commands can be run against buffers in tests.
package iocontext

import (
	"context"
	"io"
	"os"
)

type ctxKey struct{}

// Streams are the input and outputs a command uses.
type Streams struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// Std returns the process's real streams.
func Std() Streams {
	return Streams{In: os.Stdin, Out: os.Stdout, Err: os.Stderr}
}

// WithStreams attaches s to ctx. Nil members fall back to the process streams.
func WithStreams(ctx context.Context, s Streams) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the streams attached to ctx, filling gaps with the
// process streams.
func FromContext(ctx context.Context) Streams {
	s, _ := ctx.Value(ctxKey{}).(Streams)
	std := Std()
	if s.In == nil {
		s.In = std.In
	}
	if s.Out == nil {
		s.Out = std.Out
	}
	if s.Err == nil {
		s.Err = std.Err
	}
	return s
}

// Stdout returns the output stream from ctx.
func Stdout(ctx context.Context) io.Writer {
	return FromContext(ctx).Out
}

// Stderr returns the error stream from ctx.
func Stderr(ctx context.Context) io.Writer {
	return FromContext(ctx).Err
}

// Stdin returns the input stream from ctx.
func Stdin(ctx context.Context) io.Reader {
	return FromContext(ctx).In
}
