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

package domain

import (
	"fmt"
	"strings"

	"github.com/awslabs/ar-go-absint/analysis/program"
)

// Composite combines several domains into one. Its states are tuples with one state per component domain, over the
// same variables. The operations are applied componentwise, without reduction between the components.
type Composite struct {
	components  []Domain
	maxParallel int
	post        *compositePost
}

// NewComposite returns the composition of the domains, keeping at most maxParallel disjuncts per transition.
func NewComposite(maxParallel int, components ...Domain) (*Composite, error) {
	if len(components) == 0 {
		return nil, fmt.Errorf("%w: composite domain without components", ErrInvalidArgument)
	}
	if maxParallel < 1 {
		return nil, fmt.Errorf("%w: the maximum number of parallel states must be at least 1, got %d",
			ErrInvalidArgument, maxParallel)
	}
	c := &Composite{components: components, maxParallel: maxParallel}
	c.post = &compositePost{c: c}
	return c, nil
}

// Components returns the component domains
func (c *Composite) Components() []Domain {
	return c.components
}

// Name returns the names of the components, separated by +
func (c *Composite) Name() string {
	names := make([]string, len(c.components))
	for i, d := range c.components {
		names[i] = d.Name()
	}
	return strings.Join(names, "+")
}

// Precision is the highest precision of the components
func (c *Composite) Precision() int {
	p := 0
	for _, d := range c.components {
		if d.Precision() > p {
			p = d.Precision()
		}
	}
	return p
}

// CompositeState is a tuple of states of the component domains
type CompositeState struct {
	States []State
}

// IsBottom returns true when one of the components is bottom
func (s *CompositeState) IsBottom() bool {
	for _, x := range s.States {
		if x.IsBottom() {
			return true
		}
	}
	return false
}

// Variables returns the variables of the first component
func (s *CompositeState) Variables() []program.Var {
	return s.States[0].Variables()
}

// Formula is the conjunction of the formulas of the components
func (s *CompositeState) Formula() program.Cond {
	conds := make([]program.Cond, len(s.States))
	for i, x := range s.States {
		conds[i] = x.Formula()
	}
	return program.Conj(conds...)
}

func (s *CompositeState) String() string {
	parts := make([]string, len(s.States))
	for i, x := range s.States {
		parts[i] = x.String()
	}
	return "(" + strings.Join(parts, " | ") + ")"
}

func (c *Composite) state(s State) *CompositeState {
	cs := MustBeOfType[*CompositeState](c, s)
	if len(cs.States) != len(c.components) {
		panic(fmt.Sprintf("composite state with %d components in a domain with %d", len(cs.States),
			len(c.components)))
	}
	return cs
}

// FreshState returns the tuple of the fresh states of the components
func (c *Composite) FreshState(scope []program.Var) State {
	states := make([]State, len(c.components))
	for i, d := range c.components {
		states[i] = d.FreshState(scope)
	}
	return &CompositeState{States: states}
}

func (c *Composite) componentwise(a, b State, op func(d Domain, x, y State) State) State {
	ca, cb := c.state(a), c.state(b)
	states := make([]State, len(c.components))
	for i, d := range c.components {
		states[i] = op(d, ca.States[i], cb.States[i])
	}
	return &CompositeState{States: states}
}

// Merge merges the states componentwise
func (c *Composite) Merge(a, b State) State {
	if a.IsBottom() {
		return b
	}
	if b.IsBottom() {
		return a
	}
	return c.componentwise(a, b, func(d Domain, x, y State) State { return d.Merge(x, y) })
}

// Widen widens the states componentwise
func (c *Composite) Widen(old, new State) State {
	if old.IsBottom() {
		return new
	}
	if new.IsBottom() {
		return old
	}
	return c.componentwise(old, new, func(d Domain, x, y State) State { return d.Widen(x, y) })
}

// IsSubsumedBy returns true if a is bottom or every component of a is subsumed by the component of b
func (c *Composite) IsSubsumedBy(a, b State) bool {
	if a.IsBottom() {
		return true
	}
	ca, cb := c.state(a), c.state(b)
	for i, d := range c.components {
		if !d.IsSubsumedBy(ca.States[i], cb.States[i]) {
			return false
		}
	}
	return true
}

// Post returns the componentwise post-operator
func (c *Composite) Post() PostOperator {
	return c.post
}

type compositePost struct {
	c *Composite
}

// Apply applies the post-operators of the components to their state. If one of them has no successor, the
// transition is infeasible and the remaining components are not evaluated.
func (p *compositePost) Apply(s State, t *program.Transition) ([]State, error) {
	cs := p.c.state(s)
	succs := make([][]State, len(p.c.components))
	for i, d := range p.c.components {
		res, err := d.Post().Apply(cs.States[i], t)
		if err != nil {
			return nil, err
		}
		if len(res) == 0 {
			return nil, nil
		}
		succs[i] = res
	}
	return p.combine(succs)
}

// ApplyReturn applies the return post-operators of the components, like Apply
func (p *compositePost) ApplyReturn(exit, callerPre State, t *program.Transition) ([]State, error) {
	ce, cc := p.c.state(exit), p.c.state(callerPre)
	succs := make([][]State, len(p.c.components))
	for i, d := range p.c.components {
		res, err := d.Post().ApplyReturn(ce.States[i], cc.States[i], t)
		if err != nil {
			return nil, err
		}
		if len(res) == 0 {
			return nil, nil
		}
		succs[i] = res
	}
	return p.combine(succs)
}

// combine returns the tuples of the product of the successors of each component, bounded by the maximum number of
// disjuncts.
func (p *compositePost) combine(succs [][]State) ([]State, error) {
	tuples := [][]State{{}}
	for _, res := range succs {
		var next [][]State
		for _, tuple := range tuples {
			for _, s := range res {
				ext := make([]State, len(tuple), len(tuple)+1)
				copy(ext, tuple)
				next = append(next, append(ext, s))
			}
		}
		tuples = next
	}
	states := make([]State, len(tuples))
	for i, tuple := range tuples {
		for _, s := range tuple[1:] {
			if !program.SameVars(tuple[0].Variables(), s.Variables()) {
				return nil, fmt.Errorf("%w: components over %v and %v", ErrInconsistentScope,
					tuple[0].Variables(), s.Variables())
			}
		}
		states[i] = &CompositeState{States: tuple}
	}
	return Bound(p.c, states, p.c.maxParallel), nil
}
