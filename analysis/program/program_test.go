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

package program

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingLoop builds: i := 0; while i < 10 { i++ }
func countingLoop(t *testing.T) (*Program, *Location) {
	b := NewBuilder()
	i := IntVar("i")
	main := b.Procedure("main", nil, nil, []Var{i}).Initial()
	head := main.Loc("head")
	main.Edge(main.Entry(), head, Set(i, C(0)))
	main.Edge(head, head, Require(Compare(V(i), Lt, C(10))), Set(i, Plus(V(i), C(1))))
	main.Edge(head, main.Exit(), Require(Compare(V(i), Ge, C(10))))
	prog, err := b.Build()
	require.NoError(t, err)
	return prog, head
}

func TestLoopHeadOfCountingLoop(t *testing.T) {
	prog, head := countingLoop(t)
	for _, l := range prog.Locations {
		assert.Equal(t, l == head, l.IsLoopHead(), "location %s", l)
	}
	for _, tr := range prog.Successors(head) {
		assert.Equal(t, tr.Target == head, prog.IsLoopHead(tr))
	}
}

func TestFilterInitialElements(t *testing.T) {
	prog, head := countingLoop(t)
	main := prog.Procedure("main")
	initial := prog.FilterInitialElements([]*Location{head, main.Entry, nil, main.Entry, main.Exit})
	assert.Equal(t, []*Location{main.Entry}, initial)
	assert.Equal(t, []*Location{main.Entry}, prog.InitialLocations())
}

func TestCallResolution(t *testing.T) {
	b := NewBuilder()
	x, r, y := IntVar("x"), IntVar("r"), IntVar("y")
	g := IntVar("g")
	b.Global(g)
	double := b.Procedure("double", []Var{x}, []Var{r}, nil)
	double.Edge(double.Entry(), double.Exit(), Set(r, Times(C(2), V(x))))
	b.Declare("ext", nil, []Var{y}, []Var{g})
	main := b.Procedure("main", nil, nil, []Var{y}).Initial()
	l1 := main.Loc("l1")
	main.Call(main.Entry(), l1, "double", []Expr{C(3)}, []Var{y})
	main.Call(l1, main.Exit(), "ext", nil, []Var{y})
	prog, err := b.Build()
	require.NoError(t, err)

	mainProc := prog.Procedure("main")
	calls := prog.Successors(mainProc.Entry)
	require.Len(t, calls, 1)
	call := calls[0]
	assert.Equal(t, Call, call.Kind)
	assert.Equal(t, prog.Procedure("double").Entry, call.Target)
	require.Len(t, call.Returns, 1)
	ret := call.Returns[0]
	assert.Equal(t, Return, ret.Kind)
	assert.Equal(t, call, ret.Call)
	assert.Equal(t, prog.Procedure("double").Exit, ret.Source)
	assert.Equal(t, l1, ret.Target)
	assert.Equal(t, []Var{y}, ret.LHS)

	summaries := prog.Successors(l1)
	require.Len(t, summaries, 1)
	assert.Equal(t, Summary, summaries[0].Kind)
	assert.Empty(t, summaries[0].Implementations())
	require.Len(t, summaries[0].Declarations(), 1)
	assert.Equal(t, []Var{g}, summaries[0].Declarations()[0].Modifies)

	assert.Equal(t, []Var{g, x, r}, prog.Procedure("double").Scope())
}

func TestBuildErrors(t *testing.T) {
	x := IntVar("x")
	tests := []struct {
		name  string
		build func(b *Builder)
	}{
		{"undeclared callee", func(b *Builder) {
			m := b.Procedure("main", nil, nil, nil)
			m.Call(m.Entry(), m.Exit(), "missing", nil, nil)
		}},
		{"variable out of scope", func(b *Builder) {
			m := b.Procedure("main", nil, nil, nil)
			m.Edge(m.Entry(), m.Exit(), Set(x, C(1)))
		}},
		{"argument count", func(b *Builder) {
			f := b.Procedure("f", []Var{x}, nil, nil)
			f.Edge(f.Entry(), f.Exit())
			m := b.Procedure("main", nil, nil, nil)
			m.Call(m.Entry(), m.Exit(), "f", nil, nil)
		}},
		{"edge across procedures", func(b *Builder) {
			f := b.Procedure("f", nil, nil, nil)
			m := b.Procedure("main", nil, nil, nil)
			m.Edge(m.Entry(), f.Exit())
		}},
		{"unbalanced assignment", func(b *Builder) {
			m := b.Procedure("main", nil, nil, []Var{x})
			m.Edge(m.Entry(), m.Exit(), Assign{LHS: []Var{x}, RHS: nil})
		}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			b := NewBuilder()
			test.build(b)
			_, err := b.Build()
			assert.Error(t, err)
		})
	}
}

func TestRecursionLoopHeads(t *testing.T) {
	b := NewBuilder()
	n := IntVar("n")
	f := b.Procedure("f", []Var{n}, nil, nil)
	rec := f.Loc("rec")
	after := f.Loc("after")
	f.Edge(f.Entry(), f.Exit(), Require(Compare(V(n), Le, C(0))))
	f.Edge(f.Entry(), rec, Require(Compare(V(n), Gt, C(0))))
	f.Call(rec, after, "f", []Expr{Minus(V(n), C(1))}, nil)
	f.Edge(after, f.Exit())
	prog, err := b.Build()
	require.NoError(t, err)
	assert.True(t, prog.Procedure("f").Entry.IsLoopHead())
	assert.True(t, after.IsLoopHead())
	assert.False(t, rec.IsLoopHead())
}

func TestCallsFromSeveralSitesAreCut(t *testing.T) {
	b := NewBuilder()
	x, r, a, c := IntVar("x"), IntVar("r"), IntVar("a"), IntVar("c")
	inc := b.Procedure("inc", []Var{x}, []Var{r}, nil)
	inc.Edge(inc.Entry(), inc.Exit(), Set(r, Plus(V(x), C(1))))
	main := b.Procedure("main", nil, nil, []Var{a, c}).Initial()
	l1 := main.Loc("l1")
	main.Call(main.Entry(), l1, "inc", []Expr{C(0)}, []Var{a})
	main.Call(l1, main.Exit(), "inc", []Expr{V(a)}, []Var{c})
	prog, err := b.Build()
	require.NoError(t, err)

	// every cycle of the program graph must contain a loop head
	heads := 0
	for _, l := range prog.Locations {
		if l.IsLoopHead() {
			heads++
		}
	}
	assert.Greater(t, heads, 0)
	assert.True(t, acyclicWithoutHeads(prog))
}

func acyclicWithoutHeads(prog *Program) bool {
	state := map[*Location]int{}
	var visit func(l *Location) bool
	visit = func(l *Location) bool {
		state[l] = 1
		for _, t := range l.Outgoing() {
			if t.Target.IsLoopHead() {
				continue
			}
			switch state[t.Target] {
			case 1:
				return false
			case 0:
				if !visit(t.Target) {
					return false
				}
			}
		}
		state[l] = 2
		return true
	}
	for _, l := range prog.Locations {
		if state[l] == 0 && !visit(l) {
			return false
		}
	}
	return true
}

func TestLinearize(t *testing.T) {
	x, y := IntVar("x"), IntVar("y")
	tests := []struct {
		expr     Expr
		expected string
		linear   bool
	}{
		{Plus(V(x), C(1)), "x + 1", true},
		{Minus(Times(C(2), V(x)), V(y)), "2*x - y", true},
		{Minus(V(x), V(x)), "0", true},
		{Neg{Minus(V(y), V(x))}, "x - y", true},
		{Quo(C(7), C(2)), "3", true},
		{Rem(C(-7), C(2)), "-1", true},
		{Times(V(x), V(y)), "", false},
		{Quo(V(x), C(2)), "", false},
		{Quo(C(1), C(0)), "", false},
		{Plus(V(x), Nondet{}), "", false},
	}
	for _, test := range tests {
		l, ok := Linearize(test.expr)
		assert.Equal(t, test.linear, ok, "%s", test.expr)
		if ok {
			assert.Equal(t, test.expected, l.String(), "%s", test.expr)
		}
	}
}

func TestDNF(t *testing.T) {
	x, y := IntVar("x"), IntVar("y")
	a := Compare(V(x), Lt, C(1))
	b := Compare(V(y), Eq, C(2))

	assert.Equal(t, [][]Cmp{{}}, DNF(True))
	assert.Empty(t, DNF(False))
	assert.Equal(t, [][]Cmp{{a.(Cmp), b.(Cmp)}}, DNF(Conj(a, b)))
	assert.Equal(t, [][]Cmp{{a.(Cmp)}, {b.(Cmp)}}, DNF(Disj(a, b)))

	// !(x < 1 && y == 2) is x >= 1 || y < 2 || y > 2
	neg := DNF(Not{Conj(a, b)})
	require.Len(t, neg, 3)
	assert.Equal(t, Ge, neg[0][0].Op)
	assert.Equal(t, Lt, neg[1][0].Op)
	assert.Equal(t, Gt, neg[2][0].Op)

	// (a || b) && (a || b) has four disjuncts
	assert.Len(t, DNF(Conj(Disj(a, b), Disj(a, b))), 4)

	// large normal forms are over-approximated by true
	var big []Cond
	for i := 0; i < 10; i++ {
		big = append(big, Disj(a, b))
	}
	assert.Equal(t, [][]Cmp{{}}, DNF(And{big}))
}

func TestNormalize(t *testing.T) {
	x, y := IntVar("x"), IntVar("y")
	l, eq, ok := Normalize(Cmp{Lt, V(x), V(y)})
	require.True(t, ok)
	assert.False(t, eq)
	assert.Equal(t, "x - y + 1", l.String())

	l, eq, ok = Normalize(Cmp{Eq, V(x), C(4)})
	require.True(t, ok)
	assert.True(t, eq)
	assert.Equal(t, "x - 4", l.String())

	_, _, ok = Normalize(Cmp{Le, Times(V(x), V(y)), C(0)})
	assert.False(t, ok)
}

func TestConjDisj(t *testing.T) {
	x := IntVar("x")
	a := Compare(V(x), Lt, C(1))
	assert.Equal(t, True, Conj())
	assert.Equal(t, a, Conj(True, a))
	assert.Equal(t, False, Conj(a, False))
	assert.Equal(t, False, Disj())
	assert.Equal(t, True, Disj(a, True))
	assert.Equal(t, "x < 1 && (x < 1 || x < 1)", Conj(a, Disj(a, a)).String())
}
