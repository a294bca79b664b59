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
	"fmt"

	"github.com/awslabs/ar-go-absint/analysis/domain"
	"github.com/awslabs/ar-go-absint/analysis/program"
	"github.com/awslabs/ar-go-absint/internal/graphutil"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// run is the state of one fixpoint computation
type run struct {
	*Engine
	ctx    context.Context
	result *Result

	// ranks orders the reachable locations topologically, up to strongly connected components
	ranks   map[*program.Location]int
	initial map[*program.Location]bool
	queue   worklist
	queued  map[*program.Location]bool
	seq     int

	// preds are the incoming transitions of the reachable locations
	preds map[*program.Location][]*program.Transition

	// visits counts the updates of each location, gating widening at loop heads
	visits map[*program.Location]int

	// parent is the transition through which a location was first reached
	parent map[*program.Location]*program.Transition

	// returnsAt maps a call site to the return transitions of its calls, which are recomputed when the states at
	// the call site change
	returnsAt map[*program.Location][]*program.Transition

	// candidates maps the transition reaching an error location to its counterexample index
	candidates map[*program.Transition]int
}

// prepare explores the locations reachable from the initial locations to rank them and index return transitions
func (r *run) prepare(initial []*program.Location) {
	var nodes []*program.Location
	seen := map[*program.Location]bool{}
	for _, l := range initial {
		r.initial[l] = true
	}
	stack := append([]*program.Location{}, initial...)
	for len(stack) > 0 {
		l := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[l] {
			continue
		}
		seen[l] = true
		nodes = append(nodes, l)
		for _, t := range r.graph.Successors(l) {
			if t.Kind == program.Return && t.CallSite != nil {
				r.returnsAt[t.CallSite] = append(r.returnsAt[t.CallSite], t)
			}
			if t.Target == nil {
				continue
			}
			r.preds[t.Target] = append(r.preds[t.Target], t)
			if !seen[t.Target] {
				stack = append(stack, t.Target)
			}
		}
	}
	r.ranks = graphutil.TopologicalRanks(nodes, func(l *program.Location) []*program.Location {
		var succs []*program.Location
		for _, t := range r.graph.Successors(l) {
			if t.Target != nil {
				succs = append(succs, t.Target)
			}
		}
		return succs
	})
}

// seed adds the fresh state of the domain to an initial location
func (r *run) seed(l *program.Location) {
	fresh := r.dom.FreshState(l.Procedure.Scope())
	states := domain.Bound(r.dom, append(r.statesAt(l), fresh), r.opts.MaxParallelStates)
	if len(states) == 0 {
		return
	}
	r.result.States[l] = states
	if r.graph.IsPostErrorLocation(l) {
		r.recordCandidate(l, nil, states)
	}
	r.enqueue(l)
}

func (r *run) statesAt(l *program.Location) []domain.State {
	return append([]domain.State{}, r.result.States[l]...)
}

// fixpoint processes the worklist until it is empty, the context is done, or a transition cannot be applied
func (r *run) fixpoint() error {
	for r.queue.Len() > 0 {
		if err := r.ctx.Err(); err != nil {
			return fmt.Errorf("%w after %d steps: %w", ErrCancelled, r.result.Stats.Pops, err)
		}
		l := r.dequeue()
		r.result.Stats.Pops++
		if err := r.process(l); err != nil {
			return fmt.Errorf("while processing %s: %w", l, err)
		}
	}
	return nil
}

// process propagates the states of l along its outgoing transitions, and along the return transitions of the calls
// made at l
func (r *run) process(l *program.Location) error {
	states := r.result.States[l]
	for _, t := range r.graph.Successors(l) {
		var post []domain.State
		var err error
		if t.Kind == program.Return {
			post, err = r.applyReturn(t)
		} else {
			post, err = r.apply(states, t)
		}
		if err != nil {
			return err
		}
		r.propagate(t, post)
	}
	for _, t := range r.returnsAt[l] {
		post, err := r.applyReturn(t)
		if err != nil {
			return err
		}
		r.propagate(t, post)
	}
	return nil
}

func (r *run) apply(states []domain.State, t *program.Transition) ([]domain.State, error) {
	var post []domain.State
	for _, s := range states {
		succ, err := r.dom.Post().Apply(s, t)
		r.result.Stats.PostApplications++
		if err != nil {
			return nil, err
		}
		post = append(post, succ...)
	}
	return domain.Bound(r.dom, post, r.opts.MaxParallelStates), nil
}

// applyReturn combines the states at the exit of the callee with the states at the call site
func (r *run) applyReturn(t *program.Transition) ([]domain.State, error) {
	exits := r.result.States[t.Source]
	pre := r.result.States[t.CallSite]
	var post []domain.State
	for _, exit := range exits {
		for _, callerPre := range pre {
			succ, err := r.dom.Post().ApplyReturn(exit, callerPre, t)
			r.result.Stats.PostApplications++
			if err != nil {
				return nil, err
			}
			post = append(post, succ...)
		}
	}
	return domain.Bound(r.dom, post, r.opts.MaxParallelStates), nil
}

// propagate combines the states post reached through t with the states at the target of t. The target is enqueued
// when its states change. Every arrival at an error location is a candidate, even when it adds no new state.
func (r *run) propagate(t *program.Transition, post []domain.State) {
	if len(post) == 0 || t.Target == nil {
		return
	}
	m := t.Target
	if r.graph.IsPostErrorLocation(m) {
		r.recordCandidate(m, t, post)
	}
	old, seen := r.result.States[m]
	var next []domain.State
	switch {
	case !seen:
		next = post
	case domain.SetIsSubsumedBy(r.dom, post, old):
		return
	case r.graph.IsLoopHead(t) && r.visits[m] > r.opts.WideningThreshold:
		next = domain.WidenSets(r.dom, old, post)
		r.result.Stats.Widenings++
		if r.logger.LogsTrace() {
			r.logger.Tracef("[%s] widening at %s: %s\n", r.result.RunID, m, statesString(next))
		}
	default:
		next = domain.Bound(r.dom, append(r.statesAt(m), post...), r.opts.MaxParallelStates)
		r.result.Stats.Merges++
	}
	if seen && domain.SetIsSubsumedBy(r.dom, next, old) {
		return
	}
	r.result.States[m] = next
	r.visits[m]++
	if !seen {
		r.parent[m] = t
	}
	r.enqueue(m)
}

// recordCandidate records that the states reach the error location l through t. A candidate is kept for each
// transition reaching l, with the latest states arriving through it.
func (r *run) recordCandidate(l *program.Location, t *program.Transition, states []domain.State) {
	if i, ok := r.candidates[t]; ok {
		r.result.Counterexamples[i].States = states
		return
	}
	c := Counterexample{Location: l, Transition: t, Path: r.witness(t), States: states}
	r.candidates[t] = len(r.result.Counterexamples)
	r.result.Counterexamples = append(r.result.Counterexamples, c)
	r.result.HasReachedError = true
	r.logger.Infof("[%s] error location %s may be reachable\n", r.result.RunID, l)
}

// witness returns the chain of first-reach transitions from an initial location to the target of t, ending in t
func (r *run) witness(t *program.Transition) []*program.Transition {
	if t == nil {
		return nil
	}
	path := []*program.Transition{t}
	seen := map[*program.Location]bool{t.Target: true}
	for l := t.Source; l != nil && !seen[l]; {
		seen[l] = true
		p := r.parent[l]
		if p == nil {
			break
		}
		path = append(path, p)
		l = p.Source
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// narrow runs descending passes over the reached locations in rank order. Each location is recomputed from the
// states of its predecessors. Since every location over-approximates the reachable states before the update, so
// does the recomputed value, and it replaces the current states when it is strictly smaller. This recovers bounds
// lost by widening.
func (r *run) narrow(passes int) error {
	order := maps.Keys(r.result.States)
	slices.SortFunc(order, func(a, b *program.Location) bool { return r.rank(a) < r.rank(b) })
	for i := 0; i < passes; i++ {
		changed := false
		for _, l := range order {
			if err := r.ctx.Err(); err != nil {
				return fmt.Errorf("%w while narrowing: %w", ErrCancelled, err)
			}
			old, ok := r.result.States[l]
			if !ok {
				continue
			}
			next, err := r.recompute(l)
			if err != nil {
				return fmt.Errorf("while narrowing %s: %w", l, err)
			}
			if domain.SetIsSubsumedBy(r.dom, old, next) || !domain.SetIsSubsumedBy(r.dom, next, old) {
				continue
			}
			if len(next) == 0 {
				delete(r.result.States, l)
			} else {
				r.result.States[l] = next
			}
			r.result.Stats.Narrowings++
			changed = true
		}
		if !changed {
			break
		}
	}
	r.refreshCandidates()
	return nil
}

// recompute returns the states reaching l from its predecessors, and the fresh state if l is initial
func (r *run) recompute(l *program.Location) ([]domain.State, error) {
	var states []domain.State
	if r.initial[l] {
		states = append(states, r.dom.FreshState(l.Procedure.Scope()))
	}
	for _, t := range r.preds[l] {
		var post []domain.State
		var err error
		if t.Kind == program.Return {
			post, err = r.applyReturn(t)
		} else {
			post, err = r.apply(r.result.States[t.Source], t)
		}
		if err != nil {
			return nil, err
		}
		states = append(states, post...)
	}
	return domain.Bound(r.dom, states, r.opts.MaxParallelStates), nil
}

// refreshCandidates drops the candidates whose error location is no longer reached, and updates the states of the
// others
func (r *run) refreshCandidates() {
	kept := r.result.Counterexamples[:0]
	for _, c := range r.result.Counterexamples {
		states, ok := r.result.States[c.Location]
		if !ok {
			r.logger.Debugf("[%s] error location %s is unreachable after narrowing\n", r.result.RunID, c.Location)
			continue
		}
		c.States = states
		kept = append(kept, c)
	}
	r.result.Counterexamples = kept
	r.result.HasReachedError = len(kept) > 0
}

func (r *run) rank(l *program.Location) int {
	if rank, ok := r.ranks[l]; ok {
		return rank
	}
	return len(r.ranks)
}
