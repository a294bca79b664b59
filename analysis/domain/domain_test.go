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

package domain_test

import (
	"errors"
	"testing"

	"github.com/awslabs/ar-go-absint/analysis/domain"
	"github.com/awslabs/ar-go-absint/analysis/domain/nonrel"
	"github.com/awslabs/ar-go-absint/analysis/domain/octagon"
	"github.com/awslabs/ar-go-absint/analysis/program"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	x = program.IntVar("x")
	r = program.IntVar("r")
	y = program.IntVar("y")
	z = program.IntVar("z")
	g = program.IntVar("g")
)

// doubleProgram builds a program where main calls double(y) and stores the result in z, then calls the external
// procedure ext which modifies the global g.
func doubleProgram(t *testing.T) *program.Program {
	b := program.NewBuilder()
	b.Global(g)
	dbl := b.Procedure("double", []program.Var{x}, []program.Var{r}, nil)
	dbl.Edge(dbl.Entry(), dbl.Exit(), program.Set(r, program.Times(program.C(2), program.V(x))))
	b.Declare("ext", nil, []program.Var{x}, []program.Var{g})
	main := b.Procedure("main", nil, nil, []program.Var{y, z}).Initial()
	ret := main.Loc("ret")
	main.Call(main.Entry(), ret, "double", []program.Expr{program.V(y)}, []program.Var{z})
	main.Call(ret, main.Exit(), "ext", nil, []program.Var{y})
	prog, err := b.Build()
	require.NoError(t, err)
	return prog
}

func interval(t *testing.T, s domain.State, v program.Var) nonrel.Interval {
	i, ok := s.(*octagon.State).Interval(v)
	require.True(t, ok, "%s not in scope", v)
	return i
}

func assume(c program.Cond) []program.Statement {
	return []program.Statement{program.Require(c)}
}

func TestNewStatementPostRejectsInvalidBound(t *testing.T) {
	for _, n := range []int{0, -1} {
		_, err := octagon.New(n)
		assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	}
	_, err := domain.NewComposite(0, mustOctagon(t))
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	_, err = domain.NewComposite(1)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func mustOctagon(t *testing.T) *octagon.Domain {
	d, err := octagon.New(2)
	require.NoError(t, err)
	return d
}

func TestBoundedDisjuncts(t *testing.T) {
	for _, maxParallel := range []int{1, 2, 3, 10} {
		d, err := octagon.New(maxParallel)
		require.NoError(t, err)
		post := d.Post().(*domain.StatementPost)
		s := d.FreshState([]program.Var{x})
		// x != 0 && x != 5 && x != 10 splits into up to 8 disjuncts
		c := program.Conj(
			program.Compare(program.V(x), program.Ne, program.C(0)),
			program.Compare(program.V(x), program.Ne, program.C(5)),
			program.Compare(program.V(x), program.Ne, program.C(10)))
		states := post.ApplyStatements([]domain.State{s}, assume(c))
		assert.LessOrEqual(t, len(states), maxParallel)
		assert.NotEmpty(t, states)
		for _, st := range states {
			assert.False(t, st.IsBottom())
		}
	}
}

func TestBoundDropsBottomFirst(t *testing.T) {
	d := mustOctagon(t)
	top := d.FreshState([]program.Var{x})
	zero := d.Assign(top, x, program.C(0))
	one := d.Assign(top, x, program.C(1))
	bottom := d.Constrain(zero, program.Cmp{Op: program.Gt, X: program.V(x), Y: program.C(0)})
	require.True(t, bottom.IsBottom())

	assert.Equal(t, []domain.State{zero, one}, domain.Bound(d, []domain.State{zero, bottom, one, bottom}, 2))
	folded := domain.Bound(d, []domain.State{zero, one}, 1)
	require.Len(t, folded, 1)
	assert.Equal(t, nonrel.Range(0, 1), interval(t, folded[0], x))
	assert.Empty(t, domain.Bound(d, []domain.State{bottom}, 1))
}

func TestInfeasibleGuardYieldsNoSuccessor(t *testing.T) {
	d := mustOctagon(t)
	post := d.Post().(*domain.StatementPost)
	s := d.FreshState([]program.Var{x})
	c := program.Conj(
		program.Compare(program.V(x), program.Gt, program.C(5)),
		program.Compare(program.V(x), program.Lt, program.C(3)))
	assert.Empty(t, post.ApplyStatements([]domain.State{s}, assume(c)))
}

func TestParallelAssignment(t *testing.T) {
	d := mustOctagon(t)
	post := d.Post().(*domain.StatementPost)
	s := d.FreshState([]program.Var{x, y})
	states := post.ApplyStatements([]domain.State{s}, []program.Statement{
		program.Set(x, program.C(1)),
		program.Set(y, program.C(2)),
		program.Assign{LHS: []program.Var{x, y}, RHS: []program.Expr{program.V(y), program.V(x)}},
	})
	require.Len(t, states, 1)
	assert.Equal(t, nonrel.Singleton(2), interval(t, states[0], x))
	assert.Equal(t, nonrel.Singleton(1), interval(t, states[0], y))
	assert.Equal(t, []program.Var{x, y}, states[0].Variables())
}

func TestUnsupportedVariablesAreUnconstrained(t *testing.T) {
	d := mustOctagon(t)
	post := d.Post().(*domain.StatementPost)
	p := program.Var{Name: "p", Type: program.Unsupported}
	s := d.FreshState([]program.Var{x, p})
	states := post.ApplyStatements([]domain.State{s}, []program.Statement{
		program.Set(x, program.C(1)),
		program.Set(x, program.V(p)),
		program.Require(program.Compare(program.V(p), program.Lt, program.C(0))),
	})
	require.Len(t, states, 1)
	assert.True(t, interval(t, states[0], x).IsTop())
}

func TestBooleansAreZeroOrOne(t *testing.T) {
	d := mustOctagon(t)
	post := d.Post().(*domain.StatementPost)
	b := program.BoolVar("b")
	states := post.ApplyStatements([]domain.State{d.FreshState([]program.Var{b})},
		[]program.Statement{program.Forget(b)})
	require.Len(t, states, 1)
	assert.Equal(t, nonrel.Range(0, 1), interval(t, states[0], b))
}

func TestCallAndReturnRoundTrip(t *testing.T) {
	prog := doubleProgram(t)
	d := mustOctagon(t)
	post := d.Post()
	main := prog.Procedure("main")
	dbl := prog.Procedure("double")

	pre := d.FreshState(main.Scope())
	pres := d.Post().(*domain.StatementPost).ApplyStatements([]domain.State{pre}, assume(program.Conj(
		program.Compare(program.V(y), program.Ge, program.C(0)),
		program.Compare(program.V(y), program.Le, program.C(5)))))
	require.Len(t, pres, 1)
	pre = pres[0]

	call := prog.Successors(main.Entry)[0]
	require.Equal(t, program.Call, call.Kind)
	entry, err := post.Apply(pre, call)
	require.NoError(t, err)
	require.Len(t, entry, 1)
	assert.Equal(t, dbl.Scope(), entry[0].Variables())
	assert.Equal(t, nonrel.Range(0, 5), interval(t, entry[0], x))

	exit, err := post.Apply(entry[0], prog.Successors(dbl.Entry)[0])
	require.NoError(t, err)
	require.Len(t, exit, 1)

	ret, err := post.ApplyReturn(exit[0], pre, call.Returns[0])
	require.NoError(t, err)
	require.Len(t, ret, 1)
	assert.Equal(t, main.Scope(), ret[0].Variables())
	assert.Equal(t, nonrel.Range(0, 10), interval(t, ret[0], z))
	assert.Equal(t, nonrel.Range(0, 5), interval(t, ret[0], y))

	// a bottom callee input makes the call infeasible
	bottom := d.Constrain(pre, program.Cmp{Op: program.Lt, X: program.V(y), Y: program.C(0)})
	res, err := post.Apply(bottom, call)
	require.NoError(t, err)
	assert.Empty(t, res)
}

func TestSummary(t *testing.T) {
	prog := doubleProgram(t)
	d := mustOctagon(t)
	main := prog.Procedure("main")
	ret := prog.LocationsOf("main")[2]
	require.Equal(t, "ret", ret.Label)
	summary := prog.Successors(ret)[0]
	require.Equal(t, program.Summary, summary.Kind)

	s := d.FreshState(main.Scope())
	s = d.Assign(s, g, program.C(1))
	s = d.Assign(s, y, program.C(2))
	s = d.Assign(s, z, program.C(3))
	res, err := d.Post().Apply(s, summary)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.True(t, interval(t, res[0], g).IsTop())
	assert.True(t, interval(t, res[0], y).IsTop())
	assert.Equal(t, nonrel.Singleton(3), interval(t, res[0], z))

	// summaries of calls to procedures with a body have no successor
	withBody := &program.Transition{Kind: program.Summary, Source: main.Entry, Target: ret, Callee: "double"}
	res, err = d.Post().Apply(s, withBody)
	require.NoError(t, err)
	assert.Empty(t, res)
}

func TestUnsupportedTransitions(t *testing.T) {
	b := program.NewBuilder()
	for i := 0; i < 2; i++ {
		f := b.Procedure("f", nil, nil, nil)
		f.Edge(f.Entry(), f.Exit())
	}
	main := b.Procedure("main", nil, nil, nil).Initial()
	main.Call(main.Entry(), main.Exit(), "f", nil, nil)
	prog, err := b.Build()
	require.NoError(t, err)

	d := mustOctagon(t)
	mainProc := prog.Implementations("main")[0]
	s := d.FreshState(mainProc.Scope())
	calls := prog.Successors(mainProc.Entry)
	require.Len(t, calls, 2)

	var ute *domain.UnsupportedTransitionError
	_, err = d.Post().Apply(s, calls[0])
	assert.ErrorIs(t, err, domain.ErrUnsupportedTransition)
	assert.True(t, errors.As(err, &ute))
	assert.Equal(t, calls[0], ute.Transition)

	_, err = d.Post().Apply(s, calls[0].Returns[0])
	assert.ErrorIs(t, err, domain.ErrUnsupportedTransition)

	_, err = d.Post().ApplyReturn(s, s, calls[0].Returns[0])
	assert.ErrorIs(t, err, domain.ErrUnsupportedTransition)

	unknown := &program.Transition{Kind: program.TransitionKind(42), Source: mainProc.Entry, Target: mainProc.Exit}
	_, err = d.Post().Apply(s, unknown)
	assert.ErrorIs(t, err, domain.ErrUnsupportedTransition)

	orphan := &program.Transition{Kind: program.Call, Source: mainProc.Entry, Target: mainProc.Exit, Callee: "g"}
	_, err = d.Post().Apply(s, orphan)
	assert.ErrorIs(t, err, domain.ErrUnsupportedTransition)
}

func signParity(t *testing.T, maxParallel int) *domain.Composite {
	sign, err := nonrel.NewSign(maxParallel)
	require.NoError(t, err)
	parity, err := nonrel.NewParity(maxParallel)
	require.NoError(t, err)
	c, err := domain.NewComposite(maxParallel, sign, parity)
	require.NoError(t, err)
	return c
}

func internal(stmts ...program.Statement) *program.Transition {
	return &program.Transition{Kind: program.Internal, Stmts: stmts}
}

func TestCompositeComponentwise(t *testing.T) {
	c := signParity(t, 2)
	assert.Equal(t, "sign+parity", c.Name())
	assert.Equal(t, 1, c.Precision())

	s := c.FreshState([]program.Var{x})
	res, err := c.Post().Apply(s, internal(program.Set(x, program.C(2))))
	require.NoError(t, err)
	require.Len(t, res, 1)
	res, err = c.Post().Apply(res[0], internal(program.Set(x, program.Plus(program.V(x), program.C(2)))))
	require.NoError(t, err)
	require.Len(t, res, 1)

	cs := res[0].(*domain.CompositeState)
	sign, _ := cs.States[0].(*nonrel.State[nonrel.Sign]).Value(x)
	parity, _ := cs.States[1].(*nonrel.State[nonrel.Parity]).Value(x)
	assert.Equal(t, nonrel.SignPos, sign)
	assert.Equal(t, nonrel.Even, parity)
	assert.Equal(t, "x > 0 && (x % 2) == 0", res[0].Formula().String())
}

func TestCompositeBottomShortcut(t *testing.T) {
	c := signParity(t, 2)
	s := c.FreshState([]program.Var{x})
	res, err := c.Post().Apply(s, internal(program.Set(x, program.C(2))))
	require.NoError(t, err)
	// only the parity component knows that x == 3 is infeasible
	guard := program.Require(program.Compare(program.V(x), program.Eq, program.C(3)))
	res, err = c.Post().Apply(res[0], internal(guard))
	require.NoError(t, err)
	assert.Empty(t, res)
}

func TestCompositeLattice(t *testing.T) {
	c := signParity(t, 1)
	scope := []program.Var{x}
	apply := func(s domain.State, stmt program.Statement) domain.State {
		res, err := c.Post().Apply(s, internal(stmt))
		require.NoError(t, err)
		require.Len(t, res, 1)
		return res[0]
	}
	two := apply(c.FreshState(scope), program.Set(x, program.C(2)))
	minusOne := apply(c.FreshState(scope), program.Set(x, program.C(-1)))
	joined := c.Merge(two, minusOne)
	assert.True(t, c.IsSubsumedBy(two, joined))
	assert.True(t, c.IsSubsumedBy(minusOne, joined))
	assert.False(t, c.IsSubsumedBy(joined, two))
	assert.Equal(t, "x != 0", joined.Formula().String())

	widened := c.Widen(two, joined)
	assert.True(t, c.IsSubsumedBy(joined, widened))

	// splitting on x != 0 from top gives two disjuncts that are folded into one
	res, err := c.Post().Apply(c.FreshState(scope),
		internal(program.Require(program.Compare(program.V(x), program.Ne, program.C(0)))))
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.False(t, res[0].IsBottom())
}

func TestWidenSets(t *testing.T) {
	d := mustOctagon(t)
	top := d.FreshState([]program.Var{x})
	zero := d.Assign(top, x, program.C(0))
	one := d.Assign(top, x, program.C(1))
	two := d.Assign(top, x, program.C(2))

	w := domain.WidenSets(d, []domain.State{zero, one}, []domain.State{two})
	require.Len(t, w, 1)
	assert.Equal(t, nonrel.Range(0, nonrel.PosInf), interval(t, w[0], x))
	assert.True(t, domain.SetIsSubsumedBy(d, []domain.State{zero, one, two}, w))
	assert.False(t, domain.SetIsSubsumedBy(d, w, []domain.State{zero, one, two}))
	assert.Equal(t, []domain.State{two}, domain.WidenSets(d, nil, []domain.State{two}))
}
