// Package pipeline runs the per-component enrichment stages of a discovery
// run.
//
// # Architecture
//
// A [Pipeline] is an ordered list of [Stage] values fixed at construction
// time. Every discovered component flows through the stages in that order,
// each stage receiving the item returned by the previous one:
//
//  1. exact-version: installed version from the lock file
//  2. package-descriptor: latest upstream package.json
//  3. config: upstream component config
//  4. changelog: changes between installed and latest
//  5. dependents: project files that use the component
//
// Up to [MaxConcurrency] components are processed at once; the stages of one
// component never overlap. A stage error ends that component only and is
// recorded in its [Result]; the other components carry on.
//
// # Usage
//
//	p := pipeline.New(pipeline.Options{Profile: true}, pipeline.DefaultStages(pipeline.Selection{})...)
//	results, err := p.Run(ctx, items, rc)
//	if err != nil {
//	    // run-level failure; results may still hold partial output
//	}
package pipeline

import (
	"context"
	"fmt"
	"runtime/debug"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/vfdiscovery/pkg/discovery"
	"github.com/matzehuels/vfdiscovery/pkg/errors"
	"github.com/matzehuels/vfdiscovery/pkg/observability"
)

// MaxConcurrency is the number of components processed at once.
const MaxConcurrency = 5

// StageFunc enriches one item. It returns a copy of item with its own field
// set and never clears a field set by an earlier stage.
type StageFunc func(ctx context.Context, item discovery.Item, rc *RunContext) (discovery.Item, error)

// Stage is a named step of the pipeline.
type Stage struct {
	Name    string
	Run     StageFunc
	Enabled bool
	// Requires names the stages whose output this one reads. A stage whose
	// requirement is not part of the pipeline is dropped with it.
	Requires []string
}

// Result is the outcome of one component.
type Result struct {
	Item discovery.Item
	// Profile holds the duration of every completed stage when profiling
	// is enabled, nil otherwise.
	Profile map[string]time.Duration
	// Err is the stage error that ended the item, if any.
	Err error
	// Stage is the name of the failing stage.
	Stage string
}

// Failed reports whether the item stopped on an error.
func (r Result) Failed() bool { return r.Err != nil }

// Options configures a [Pipeline].
type Options struct {
	Profile     bool
	Concurrency int
	Hooks       observability.PipelineHooks
	Logger      *log.Logger
}

// Pipeline runs a fixed list of stages over a set of items.
type Pipeline struct {
	stages []Stage
	opts   Options
}

// New creates a pipeline from the enabled stages, in the order given.
func New(opts Options, stages ...Stage) *Pipeline {
	if opts.Concurrency <= 0 || opts.Concurrency > MaxConcurrency {
		opts.Concurrency = MaxConcurrency
	}
	if opts.Hooks == nil {
		opts.Hooks = observability.NoopPipelineHooks{}
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	var kept []Stage
	present := make(map[string]bool)
	for _, s := range stages {
		if !s.Enabled {
			continue
		}
		missing := ""
		for _, req := range s.Requires {
			if !present[req] {
				missing = req
				break
			}
		}
		if missing != "" {
			opts.Logger.Debug("dropping stage", "stage", s.Name, "requires", missing)
			continue
		}
		present[s.Name] = true
		kept = append(kept, s)
	}
	return &Pipeline{stages: kept, opts: opts}
}

// Stages returns the names of the stages that will run, in order.
func (p *Pipeline) Stages() []string {
	names := make([]string, len(p.stages))
	for i, s := range p.stages {
		names[i] = s.Name
	}
	return names
}

// Has reports whether the named stage will run.
func (p *Pipeline) Has(name string) bool {
	return slices.Contains(p.Stages(), name)
}

// Run processes items and returns one result per item, in input order.
//
// Item failures never fail the run. The returned error is non-nil only when
// a stage panicked or ctx was cancelled; the results gathered so far are
// returned with it.
func (p *Pipeline) Run(ctx context.Context, items []discovery.Item, rc *RunContext) ([]Result, error) {
	start := time.Now()
	hooks := p.opts.Hooks
	hooks.OnRunStart(ctx, len(items))

	results := make([]Result, len(items))
	var (
		mu       sync.Mutex
		panicErr error
	)

	g := new(errgroup.Group)
	g.SetLimit(p.opts.Concurrency)
	for i, item := range items {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					err := errors.New(errors.ErrCodeInternal, "%s - panic: %v", item.NameWithoutPrefix, r)
					p.opts.Logger.Error("stage panicked", "component", item.NameWithoutPrefix,
						"panic", r, "stack", string(debug.Stack()))
					results[i] = Result{Item: item, Err: err}
					hooks.OnItemComplete(ctx, item.Name, 0, err)
					mu.Lock()
					if panicErr == nil {
						panicErr = err
					}
					mu.Unlock()
				}
			}()
			results[i] = p.runItem(ctx, item, rc)
			return nil
		})
	}
	_ = g.Wait()

	err := panicErr
	if err == nil {
		err = ctx.Err()
	}
	hooks.OnRunComplete(ctx, time.Since(start), err)
	return results, err
}

func (p *Pipeline) runItem(ctx context.Context, item discovery.Item, rc *RunContext) Result {
	hooks := p.opts.Hooks
	logger := p.opts.Logger.With("component", item.NameWithoutPrefix)

	res := Result{Item: item}
	if p.opts.Profile {
		res.Profile = make(map[string]time.Duration, len(p.stages))
	}

	start := time.Now()
	hooks.OnItemStart(ctx, item.Name)
	for _, s := range p.stages {
		if err := ctx.Err(); err != nil {
			res.Err, res.Stage = err, s.Name
			break
		}

		stageStart := time.Now()
		next, err := s.Run(ctx, res.Item, rc)
		took := time.Since(stageStart)
		hooks.OnStageComplete(ctx, item.Name, s.Name, took, err)

		if err != nil {
			logger.Debug("stage failed", "stage", s.Name, "error", err)
			res.Err, res.Stage = err, s.Name
			break
		}
		logger.Debug("stage complete", "stage", s.Name, "duration", took)
		res.Item = next
		if res.Profile != nil {
			res.Profile[s.Name] = took
		}
	}
	hooks.OnItemComplete(ctx, item.Name, time.Since(start), res.Err)
	return res
}

// Succeeded returns the items of the results that did not fail.
func Succeeded(results []Result) []discovery.Item {
	var out []discovery.Item
	for _, r := range results {
		if !r.Failed() {
			out = append(out, r.Item)
		}
	}
	return out
}

// Failures returns the failed results.
func Failures(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if r.Failed() {
			out = append(out, r)
		}
	}
	return out
}

// Summary formats a one-line count of succeeded and failed items.
func Summary(results []Result) string {
	failed := len(Failures(results))
	return fmt.Sprintf("%d components, %d failed", len(results), failed)
}
