// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package absint

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/awslabs/ar-go-absint/analysis/config"
	"github.com/awslabs/ar-go-absint/analysis/domain"
	"github.com/awslabs/ar-go-absint/analysis/domains"
	"github.com/awslabs/ar-go-absint/analysis/program"
	"github.com/google/uuid"
)

// ErrCancelled is returned, wrapped, by a run whose context was cancelled before the fixpoint was reached
var ErrCancelled = errors.New("analysis cancelled")

// Graph is the view of the program graph used by the engine. [*program.Program] implements Graph.
type Graph interface {
	// Successors returns the outgoing transitions of a location
	Successors(l *program.Location) []*program.Transition

	// FilterInitialElements returns the locations of locs where an analysis can start
	FilterInitialElements(locs []*program.Location) []*program.Location

	// IsLoopHead returns true if the target of t must be widened
	IsLoopHead(t *program.Transition) bool

	// IsPostErrorLocation returns true if reaching l is an error
	IsPostErrorLocation(l *program.Location) bool
}

// Options are the settings of an engine
type Options struct {
	// MaxParallelStates is the maximum number of disjuncts kept at a location. Must be at least 1.
	MaxParallelStates int

	// WideningThreshold is the number of updates of a loop head after which widening is applied
	WideningThreshold int

	// NarrowingIterations is the number of descending passes run once the fixpoint is reached
	NarrowingIterations int

	// Timeout bounds the duration of each run when positive
	Timeout time.Duration

	// Logger receives the messages of the engine. A default log group is used when nil.
	Logger *config.LogGroup
}

// Engine computes fixpoints of a domain over a graph. An Engine is immutable: several runs can execute
// concurrently on the same engine.
type Engine struct {
	graph  Graph
	dom    domain.Domain
	opts   Options
	logger *config.LogGroup
}

// NewEngine returns an engine for the graph and domain. Invalid options are rejected with an error wrapping
// [domain.ErrInvalidArgument].
func NewEngine(g Graph, d domain.Domain, opts Options) (*Engine, error) {
	if g == nil || d == nil {
		return nil, fmt.Errorf("%w: engine needs a graph and a domain", domain.ErrInvalidArgument)
	}
	if opts.MaxParallelStates < 1 {
		return nil, fmt.Errorf("%w: the maximum number of parallel states must be at least 1, got %d",
			domain.ErrInvalidArgument, opts.MaxParallelStates)
	}
	if opts.WideningThreshold < 0 {
		return nil, fmt.Errorf("%w: negative widening threshold %d", domain.ErrInvalidArgument,
			opts.WideningThreshold)
	}
	if opts.NarrowingIterations < 0 {
		return nil, fmt.Errorf("%w: negative number of narrowing iterations %d", domain.ErrInvalidArgument,
			opts.NarrowingIterations)
	}
	logger := opts.Logger
	if logger == nil {
		logger = config.NewLogGroup(config.NewDefault())
	}
	return &Engine{graph: g, dom: d, opts: opts, logger: logger}, nil
}

// NewEngineFromConfig builds the domain listed in the config and returns an engine using the config's options
func NewEngineFromConfig(g Graph, c *config.Config, logger *config.LogGroup) (*Engine, error) {
	d, err := domains.FromConfig(c)
	if err != nil {
		return nil, err
	}
	return NewEngine(g, d, Options{
		MaxParallelStates:   c.MaxParallelStates,
		WideningThreshold:   c.WideningThreshold,
		NarrowingIterations: c.NarrowingIterations,
		Timeout:             c.RunTimeout(),
		Logger:              logger,
	})
}

// Domain returns the domain of the engine
func (e *Engine) Domain() domain.Domain {
	return e.dom
}

// Run computes the fixpoint starting from the initial locations among entrypoints, then refines it with the
// configured number of narrowing passes.
//
// The returned result is never nil. When the error is non-nil, the result holds the states computed so far and is
// marked incomplete. Cancellation errors wrap [ErrCancelled], and errors of the domain's post operator (for example
// [domain.ErrUnsupportedTransition]) are wrapped with the location being processed.
func (e *Engine) Run(ctx context.Context, entrypoints []*program.Location) (*Result, error) {
	if e.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.Timeout)
		defer cancel()
	}
	start := time.Now()
	r := e.newRun(ctx)
	initial := e.graph.FilterInitialElements(entrypoints)
	e.logger.Infof("[%s] starting %s analysis from %d initial location(s)\n", r.result.RunID, e.dom.Name(),
		len(initial))

	r.prepare(initial)
	for _, l := range initial {
		r.seed(l)
	}
	err := r.fixpoint()
	if err == nil {
		err = r.narrow(e.opts.NarrowingIterations)
	}

	r.result.Stats.Duration = time.Since(start)
	r.result.Complete = err == nil
	r.result.Err = err
	if err != nil {
		e.logger.Warnf("[%s] analysis stopped before reaching a fixpoint: %v\n", r.result.RunID, err)
	} else {
		e.logger.Infof("[%s] fixpoint reached in %s (%s)\n", r.result.RunID, r.result.Stats.Duration,
			r.result.Stats)
	}
	return r.result, err
}

func (e *Engine) newRun(ctx context.Context) *run {
	return &run{
		Engine: e,
		ctx:    ctx,
		result: &Result{
			RunID:  uuid.New(),
			Domain: e.dom,
			States: map[*program.Location][]domain.State{},
		},
		ranks:      map[*program.Location]int{},
		initial:    map[*program.Location]bool{},
		preds:      map[*program.Location][]*program.Transition{},
		queued:     map[*program.Location]bool{},
		visits:     map[*program.Location]int{},
		parent:     map[*program.Location]*program.Transition{},
		returnsAt:  map[*program.Location][]*program.Transition{},
		candidates: map[*program.Transition]int{},
	}
}
