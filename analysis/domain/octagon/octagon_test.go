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

package octagon

import (
	"testing"

	"github.com/awslabs/ar-go-absint/analysis/domain"
	"github.com/awslabs/ar-go-absint/analysis/domain/nonrel"
	"github.com/awslabs/ar-go-absint/analysis/program"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	x = program.IntVar("x")
	y = program.IntVar("y")
	z = program.IntVar("z")
)

func newDomain(t *testing.T) *Domain {
	d, err := New(2)
	require.NoError(t, err)
	return d
}

func cmp(op program.CmpOp, a program.Expr, b program.Expr) program.Cmp {
	return program.Cmp{Op: op, X: a, Y: b}
}

func bounds(t *testing.T, s domain.State, v program.Var) nonrel.Interval {
	i, ok := s.(*State).Interval(v)
	require.True(t, ok)
	return i
}

// between returns s where lo <= v <= hi
func between(d *Domain, s domain.State, v program.Var, lo, hi int64) domain.State {
	s = d.Constrain(s, cmp(program.Ge, program.V(v), program.C(lo)))
	return d.Constrain(s, cmp(program.Le, program.V(v), program.C(hi)))
}

func TestAssignRelation(t *testing.T) {
	d := newDomain(t)
	s := d.FreshState([]program.Var{x, y})
	s = d.Assign(s, x, program.C(5))
	s = d.Assign(s, y, program.Plus(program.V(x), program.C(1)))
	assert.Equal(t, nonrel.Singleton(5), bounds(t, s, x))
	assert.Equal(t, nonrel.Singleton(6), bounds(t, s, y))
	assert.Equal(t, "x == 5 && y == 6", s.Formula().String())
}

func TestAssignKeepsRelationOfSelfIncrement(t *testing.T) {
	d := newDomain(t)
	s := d.FreshState([]program.Var{x, y})
	s = d.Constrain(s, cmp(program.Eq, program.V(x), program.V(y)))
	s = d.Assign(s, x, program.Plus(program.V(x), program.C(1)))
	assert.Equal(t, "(x - y) == 1", s.Formula().String())

	s = d.Assign(s, y, program.Neg{X: program.V(x)})
	assert.Equal(t, "(x + y) == 0", s.Formula().String())
}

func TestClosurePropagatesBounds(t *testing.T) {
	d := newDomain(t)
	s := d.FreshState([]program.Var{x, y})
	s = d.Constrain(s, cmp(program.Le, program.Minus(program.V(x), program.V(y)), program.C(2)))
	s = d.Constrain(s, cmp(program.Le, program.V(y), program.C(3)))
	assert.Equal(t, nonrel.Range(nonrel.NegInf, 5), bounds(t, s, x))

	projected := d.RemoveVariables(s, []program.Var{y})
	assert.Equal(t, []program.Var{x}, projected.Variables())
	assert.Equal(t, nonrel.Range(nonrel.NegInf, 5), bounds(t, projected, x))
}

func TestNonOctagonalGuard(t *testing.T) {
	d := newDomain(t)
	s := d.FreshState([]program.Var{x, y})
	s = between(d, s, x, 0, 10)
	s = between(d, s, y, 0, 10)

	g := d.Constrain(s, cmp(program.Le,
		program.Plus(program.Times(program.C(2), program.V(x)), program.Times(program.C(3), program.V(y))),
		program.C(6)))
	assert.Equal(t, nonrel.Range(0, 3), bounds(t, g, x))
	assert.Equal(t, nonrel.Range(0, 2), bounds(t, g, y))

	// 2x + 2y <= 5 is the octagonal x + y <= 2 over the integers
	h := d.Constrain(s, cmp(program.Le,
		program.Plus(program.Times(program.C(2), program.V(x)), program.Times(program.C(2), program.V(y))),
		program.C(5)))
	assert.Equal(t, "x >= 0 && x <= 2 && y >= 0 && y <= 2 && (x + y) <= 2", h.Formula().String())
}

func TestInfeasibleGuards(t *testing.T) {
	d := newDomain(t)
	s := between(d, d.FreshState([]program.Var{x}), x, 0, 10)
	assert.False(t, s.IsBottom())

	g := d.Constrain(s, cmp(program.Gt, program.V(x), program.C(5)))
	assert.False(t, g.IsBottom())
	g = d.Constrain(g, cmp(program.Lt, program.V(x), program.C(3)))
	assert.True(t, g.IsBottom())
	assert.Equal(t, program.False, g.Formula())

	// 2x == 1 has no integer solution
	odd := d.Constrain(s, cmp(program.Eq, program.Times(program.C(2), program.V(x)), program.C(1)))
	assert.True(t, odd.IsBottom())

	assert.True(t, d.Constrain(s, cmp(program.Lt, program.C(3), program.C(1))).IsBottom())
	assert.False(t, d.Constrain(s, cmp(program.Lt, program.C(1), program.C(3))).IsBottom())
}

func TestNonLinearAssignment(t *testing.T) {
	d := newDomain(t)
	s := between(d, d.FreshState([]program.Var{x, y}), x, 0, 5)
	sq := d.Assign(s, y, program.Times(program.V(x), program.V(x)))
	assert.Equal(t, nonrel.Range(0, 25), bounds(t, sq, y))

	dbl := d.Assign(s, y, program.Times(program.C(2), program.V(x)))
	assert.Equal(t, nonrel.Range(0, 10), bounds(t, dbl, y))

	assert.True(t, d.Assign(s, y, program.Quo(program.V(x), program.C(0))).IsBottom())

	unknown := d.Assign(dbl, y, program.Nondet{})
	assert.True(t, bounds(t, unknown, y).IsTop())
}

func TestJoinKeepsRelations(t *testing.T) {
	d := newDomain(t)
	scope := []program.Var{x, y}
	a := d.Assign(d.Assign(d.FreshState(scope), x, program.C(0)), y, program.C(0))
	b := d.Assign(d.Assign(d.FreshState(scope), x, program.C(1)), y, program.C(1))
	j := d.Merge(a, b)
	assert.Equal(t, "x >= 0 && x <= 1 && y >= 0 && y <= 1 && (x - y) == 0", j.Formula().String())
	assert.True(t, d.IsSubsumedBy(a, j))
	assert.True(t, d.IsSubsumedBy(b, j))
	assert.False(t, d.IsSubsumedBy(j, a))

	bottom := d.Constrain(a, cmp(program.Gt, program.V(x), program.C(0)))
	assert.True(t, d.IsSubsumedBy(bottom, a))
	assert.False(t, d.IsSubsumedBy(a, bottom))
	assert.Equal(t, a, d.Merge(bottom, a))
}

func TestWideningStabilizes(t *testing.T) {
	d := newDomain(t)
	scope := []program.Var{x}
	w := d.Assign(d.FreshState(scope), x, program.C(0))
	for i := 0; i < 3; i++ {
		next := d.Assign(w, x, program.Plus(program.V(x), program.C(1)))
		widened := d.Widen(w, d.Merge(w, next))
		if d.IsSubsumedBy(widened, w) {
			break
		}
		w = widened
	}
	assert.Equal(t, nonrel.Range(0, nonrel.PosInf), bounds(t, w, x))
	next := d.Assign(w, x, program.Plus(program.V(x), program.C(1)))
	assert.True(t, d.IsSubsumedBy(d.Widen(w, d.Merge(w, next)), w))
}

func TestCopyValuesOnScopeChange(t *testing.T) {
	d := newDomain(t)
	a, b := program.IntVar("a"), program.IntVar("b")
	src := d.FreshState([]program.Var{a, b})
	src = d.Constrain(src, cmp(program.Eq, program.Minus(program.V(a), program.V(b)), program.C(3)))
	src = between(d, src, a, 0, 5)

	tgt := d.Assign(d.FreshState([]program.Var{x, y, z}), z, program.C(7))
	tgt = d.Assign(tgt, x, program.C(100))
	res := d.CopyValuesOnScopeChange(tgt, src, []domain.VarPair{{From: a, To: x}, {From: b, To: y}})

	assert.Equal(t, nonrel.Range(0, 5), bounds(t, res, x))
	assert.Equal(t, nonrel.Range(-3, 2), bounds(t, res, y))
	assert.Equal(t, nonrel.Singleton(7), bounds(t, res, z))
	assert.Contains(t, res.Formula().String(), "(x - y) == 3")
}

func TestAddVariablesAndHavoc(t *testing.T) {
	d := newDomain(t)
	s := d.Assign(d.FreshState([]program.Var{x}), x, program.C(1))
	s = d.AddVariables(s, []program.Var{y})
	assert.Equal(t, []program.Var{x, y}, s.Variables())
	assert.True(t, bounds(t, s, y).IsTop())
	s = d.Assign(s, y, program.V(x))
	s = d.Havoc(s, []program.Var{x})
	assert.True(t, bounds(t, s, x).IsTop())
	assert.Equal(t, nonrel.Singleton(1), bounds(t, s, y))
}

func TestMismatchedStatesPanic(t *testing.T) {
	d := newDomain(t)
	other, err := nonrel.NewSign(1)
	require.NoError(t, err)
	assert.Panics(t, func() {
		d.Merge(d.FreshState([]program.Var{x}), other.FreshState([]program.Var{x}))
	})
	assert.Panics(t, func() {
		d.Merge(d.FreshState([]program.Var{x}), d.FreshState([]program.Var{y}))
	})
}
