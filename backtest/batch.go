package backtest

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/rustyeddy/backtester/market"
	"github.com/rustyeddy/backtester/strategies"
)

// Job is one independent run. NewStrategy is called once per job so
// strategies never share indicator state.
type Job struct {
	Name        string
	Series      *market.Series
	NewStrategy func() (strategies.Strategy, error)
}

type JobResult struct {
	Name   string
	Result *Result
	Err    error
}

type BatchOptions struct {
	Workers  int  // 0 means GOMAXPROCS
	FailFast bool // first failing job cancels the jobs not yet started
	Logger   *zerolog.Logger
}

// RunBatch runs jobs concurrently, each with its own Engine, ledger and
// strategy. Results keep the order of jobs. Cancellation is checked before
// each job starts; a running replay always completes.
func RunBatch(ctx context.Context, cfg Config, jobs []Job, opts BatchOptions) ([]JobResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	out := make([]JobResult, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, job := range jobs {
		out[i].Name = job.Name
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				out[i].Err = err
				return nil
			}
			res, err := runJob(cfg, job, opts.Logger)
			out[i].Result, out[i].Err = res, err
			if err != nil && opts.FailFast {
				return fmt.Errorf("job %s: %w", job.Name, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return out, err
	}
	return out, ctx.Err()
}

func runJob(cfg Config, job Job, log *zerolog.Logger) (*Result, error) {
	if job.NewStrategy == nil {
		return nil, errors.New("no strategy factory")
	}
	strat, err := job.NewStrategy()
	if err != nil {
		return nil, err
	}
	var l *zerolog.Logger
	if log != nil {
		jl := log.With().Str("job", job.Name).Logger()
		l = &jl
	}
	eng, err := NewEngine(cfg, l)
	if err != nil {
		return nil, err
	}
	return eng.Run(job.Series, strat)
}
