// Package worker runs the long-lived goroutines of the process under one
// context. The first task to fail cancels the others.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Task is a long-running unit of work. Run returns when ctx is done or on an
// unrecoverable error.
type Task interface {
	Run(ctx context.Context) error
}

// TaskFunc adapts a function to a Task.
type TaskFunc func(ctx context.Context) error

func (f TaskFunc) Run(ctx context.Context) error { return f(ctx) }

// Group runs named tasks with a shared context.
type Group struct {
	ctx    context.Context
	cancel context.CancelFunc
	logger zerolog.Logger

	wg      sync.WaitGroup
	errOnce sync.Once
	err     error
}

// NewGroup returns a group whose context is derived from ctx.
func NewGroup(ctx context.Context, logger zerolog.Logger) *Group {
	ctx, cancel := context.WithCancel(ctx)
	return &Group{ctx: ctx, cancel: cancel, logger: logger}
}

// Context is the group context. It is cancelled by Stop, by the parent or by
// the first failing task.
func (g *Group) Context() context.Context {
	return g.ctx
}

// Go starts t. A task returning an error other than a context error fails the
// group; a task returning nil just ends.
func (g *Group) Go(name string, t Task) {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		logger := g.logger.With().Str("task", name).Logger()
		logger.Debug().Msg("started")

		err := run(g.ctx, t)
		switch {
		case err == nil, g.ctx.Err() != nil && isContextErr(err):
			logger.Debug().Msg("stopped")
		default:
			logger.Error().Err(err).Msg("failed")
			g.fail(errors.Wrap(err, name))
		}
	}()
}

// Stop cancels the group context.
func (g *Group) Stop() {
	g.cancel()
}

// Wait blocks until every task returned and reports the first failure.
func (g *Group) Wait() error {
	g.wg.Wait()
	g.cancel()
	return g.err
}

func (g *Group) fail(err error) {
	g.errOnce.Do(func() {
		g.err = err
		g.cancel()
	})
}

func run(ctx context.Context, t Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			buf = buf[:runtime.Stack(buf, false)]
			err = fmt.Errorf("panic: %v\n%s", r, buf)
		}
	}()
	return t.Run(ctx)
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
