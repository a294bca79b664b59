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

// Package nonrel implements non-relational abstract domains: a state maps every variable to an abstract value of a
// lattice, independently of the other variables. The interval, sign and parity lattices are provided.
package nonrel

import (
	"fmt"
	"strings"

	"github.com/awslabs/ar-go-absint/analysis/domain"
	"github.com/awslabs/ar-go-absint/analysis/program"
)

// Lattice is a lattice of abstract integer values, with the abstract arithmetic operations
type Lattice[V comparable] interface {
	Name() string
	Precision() int
	Top() V
	Bottom() V
	IsBottom(v V) bool
	Join(a, b V) V
	Meet(a, b V) V
	Widen(old, new V) V
	Leq(a, b V) bool

	// Const returns the abstraction of c
	Const(c int64) V

	// Binary returns an abstraction of the results of a op b. The result is bottom when no concrete operation can
	// succeed, for instance when dividing by zero.
	Binary(op program.BinOp, a, b V) V

	// Neg returns an abstraction of -a
	Neg(a V) V

	// Refine returns the values x' <= x and y' <= y such that x' and y' contain all the values of x and y that
	// satisfy the comparison.
	Refine(op program.CmpOp, x, y V) (V, V)

	// Formula returns a condition on e satisfied by the values of v
	Formula(e program.Expr, v V) program.Cond

	String(v V) string
}

// Domain is the non-relational domain over the values of a lattice
type Domain[V comparable] struct {
	lat  Lattice[V]
	post *domain.StatementPost
}

// New returns the non-relational domain of lat, keeping at most maxParallel disjuncts
func New[V comparable](lat Lattice[V], maxParallel int) (*Domain[V], error) {
	d := &Domain[V]{lat: lat}
	post, err := domain.NewStatementPost(d, maxParallel)
	if err != nil {
		return nil, err
	}
	d.post = post
	return d, nil
}

// NewInterval returns the interval domain
func NewInterval(maxParallel int) (*Domain[Interval], error) {
	return New[Interval](IntervalLattice{}, maxParallel)
}

// NewSign returns the sign domain
func NewSign(maxParallel int) (*Domain[Sign], error) {
	return New[Sign](SignLattice{}, maxParallel)
}

// NewParity returns the parity domain
func NewParity(maxParallel int) (*Domain[Parity], error) {
	return New[Parity](ParityLattice{}, maxParallel)
}

// State maps each variable of its scope to an abstract value
type State[V comparable] struct {
	lat    Lattice[V]
	vars   []program.Var
	vals   []V
	bottom bool
}

// IsBottom returns true if a variable has no possible value
func (s *State[V]) IsBottom() bool { return s.bottom }

// Variables returns the scope of the state
func (s *State[V]) Variables() []program.Var { return s.vars }

// Value returns the value of v, and false if v is not in the scope of s
func (s *State[V]) Value(v program.Var) (V, bool) {
	i := program.IndexOf(s.vars, v.Name)
	if i < 0 {
		return s.lat.Top(), false
	}
	if s.bottom {
		return s.lat.Bottom(), true
	}
	return s.vals[i], true
}

// Formula is the conjunction of the conditions of all the variables
func (s *State[V]) Formula() program.Cond {
	if s.bottom {
		return program.False
	}
	var conds []program.Cond
	for i, v := range s.vars {
		conds = append(conds, s.lat.Formula(program.V(v), s.vals[i]))
	}
	return program.Conj(conds...)
}

func (s *State[V]) String() string {
	if s.bottom {
		return "bottom"
	}
	var parts []string
	for i, v := range s.vars {
		if s.vals[i] != s.lat.Top() {
			parts = append(parts, fmt.Sprintf("%s: %s", v.Name, s.lat.String(s.vals[i])))
		}
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func (s *State[V]) with(i int, v V) *State[V] {
	if s.lat.IsBottom(v) {
		return s.toBottom()
	}
	vals := make([]V, len(s.vals))
	copy(vals, s.vals)
	vals[i] = v
	return &State[V]{lat: s.lat, vars: s.vars, vals: vals}
}

func (s *State[V]) toBottom() *State[V] {
	return &State[V]{lat: s.lat, vars: s.vars, vals: s.vals, bottom: true}
}

func (d *Domain[V]) state(s domain.State) *State[V] {
	return domain.MustBeOfType[*State[V]](d, s)
}

// Name returns the name of the lattice
func (d *Domain[V]) Name() string { return d.lat.Name() }

// Precision returns the precision of the lattice
func (d *Domain[V]) Precision() int { return d.lat.Precision() }

// Post returns the statement post-operator of the domain
func (d *Domain[V]) Post() domain.PostOperator { return d.post }

// Tracks returns true for integers and booleans
func (d *Domain[V]) Tracks(t program.Type) bool {
	return t == program.Int || t == program.Bool
}

// FreshState maps every variable to top
func (d *Domain[V]) FreshState(scope []program.Var) domain.State {
	vals := make([]V, len(scope))
	for i := range vals {
		vals[i] = d.lat.Top()
	}
	return &State[V]{lat: d.lat, vars: scope, vals: vals}
}

func (d *Domain[V]) pointwise(a, b domain.State, op func(x, y V) V) domain.State {
	sa, sb := d.state(a), d.state(b)
	if !program.SameVars(sa.vars, sb.vars) {
		panic(fmt.Sprintf("%s: states over different variables %v and %v", d.Name(), sa.vars, sb.vars))
	}
	vals := make([]V, len(sa.vals))
	for i := range vals {
		vals[i] = op(sa.vals[i], sb.vals[i])
		if d.lat.IsBottom(vals[i]) {
			return sa.toBottom()
		}
	}
	return &State[V]{lat: d.lat, vars: sa.vars, vals: vals}
}

// Merge joins the values of each variable
func (d *Domain[V]) Merge(a, b domain.State) domain.State {
	if a.IsBottom() {
		return b
	}
	if b.IsBottom() {
		return a
	}
	return d.pointwise(a, b, d.lat.Join)
}

// Widen widens the values of each variable
func (d *Domain[V]) Widen(old, new domain.State) domain.State {
	if old.IsBottom() {
		return new
	}
	if new.IsBottom() {
		return old
	}
	return d.pointwise(old, new, d.lat.Widen)
}

// IsSubsumedBy compares the values of each variable
func (d *Domain[V]) IsSubsumedBy(a, b domain.State) bool {
	sa, sb := d.state(a), d.state(b)
	if sa.bottom {
		return true
	}
	if sb.bottom {
		return false
	}
	for i := range sa.vals {
		if !d.lat.Leq(sa.vals[i], sb.vals[i]) {
			return false
		}
	}
	return true
}

// Eval returns the abstract value of e in s
func (d *Domain[V]) Eval(s domain.State, e program.Expr) V {
	st := d.state(s)
	if st.bottom {
		return d.lat.Bottom()
	}
	return d.eval(st, e)
}

func (d *Domain[V]) eval(s *State[V], e program.Expr) V {
	switch x := e.(type) {
	case program.Const:
		return d.lat.Const(x.Value)
	case program.VarRef:
		v, _ := s.Value(x.Var)
		return v
	case program.Binary:
		return d.lat.Binary(x.Op, d.eval(s, x.X), d.eval(s, x.Y))
	case program.Neg:
		return d.lat.Neg(d.eval(s, x.X))
	default:
		return d.lat.Top()
	}
}

// Assign sets the value of v to the value of e
func (d *Domain[V]) Assign(s domain.State, v program.Var, e program.Expr) domain.State {
	st := d.state(s)
	i := program.IndexOf(st.vars, v.Name)
	if st.bottom || i < 0 {
		return st
	}
	return st.with(i, d.eval(st, e))
}

// Constrain refines the values of the variables of c. Variables with a coefficient of 1 or -1 in the linear form
// of c are refined against the value of the rest of the form; other comparisons only refine the variables they
// compare directly.
func (d *Domain[V]) Constrain(s domain.State, c program.Cmp) domain.State {
	st := d.state(s)
	if st.bottom {
		return st
	}
	x, y := d.lat.Refine(c.Op, d.eval(st, c.X), d.eval(st, c.Y))
	if d.lat.IsBottom(x) || d.lat.IsBottom(y) {
		return st.toBottom()
	}
	for _, side := range []struct {
		e program.Expr
		v V
	}{{c.X, x}, {c.Y, y}} {
		if ref, ok := side.e.(program.VarRef); ok {
			if i := program.IndexOf(st.vars, ref.Var.Name); i >= 0 {
				st = st.with(i, d.lat.Meet(st.vals[i], side.v))
				if st.bottom {
					return st
				}
			}
		}
	}
	l, eq, ok := program.Normalize(c)
	if !ok {
		return st
	}
	op := program.Le
	if eq {
		op = program.Eq
	}
	for _, t := range l.Terms {
		if t.Coeff != 1 && t.Coeff != -1 {
			continue
		}
		i := program.IndexOf(st.vars, t.Var.Name)
		if i < 0 {
			continue
		}
		// t.Coeff * v + rest op 0
		rest := d.lat.Const(l.Const)
		for _, o := range l.Terms {
			if o.Var.Name == t.Var.Name {
				continue
			}
			ov, _ := st.Value(o.Var)
			rest = d.lat.Binary(program.Add, rest, d.lat.Binary(program.Mul, d.lat.Const(o.Coeff), ov))
		}
		var refined V
		if t.Coeff == 1 {
			refined, _ = d.lat.Refine(op, st.vals[i], d.lat.Neg(rest))
		} else {
			refined, _ = d.lat.Refine(op.Flip(), st.vals[i], rest)
		}
		st = st.with(i, d.lat.Meet(st.vals[i], refined))
		if st.bottom {
			return st
		}
	}
	return st
}

// Havoc sets the values of vars to top
func (d *Domain[V]) Havoc(s domain.State, vars []program.Var) domain.State {
	st := d.state(s)
	if st.bottom {
		return st
	}
	for _, v := range vars {
		if i := program.IndexOf(st.vars, v.Name); i >= 0 {
			st = st.with(i, d.lat.Top())
		}
	}
	return st
}

// AddVariables extends the scope with vars mapped to top
func (d *Domain[V]) AddVariables(s domain.State, vars []program.Var) domain.State {
	st := d.state(s)
	scope := append(append([]program.Var{}, st.vars...), vars...)
	vals := append([]V{}, st.vals...)
	for range vars {
		vals = append(vals, d.lat.Top())
	}
	return &State[V]{lat: d.lat, vars: scope, vals: vals, bottom: st.bottom}
}

// RemoveVariables removes vars from the scope
func (d *Domain[V]) RemoveVariables(s domain.State, vars []program.Var) domain.State {
	st := d.state(s)
	res := &State[V]{lat: d.lat, bottom: st.bottom}
	for i, v := range st.vars {
		if program.IndexOf(vars, v.Name) < 0 {
			res.vars = append(res.vars, v)
			res.vals = append(res.vals, st.vals[i])
		}
	}
	return res
}

// CopyValuesOnScopeChange copies the values of the From variables of source into the To variables of target
func (d *Domain[V]) CopyValuesOnScopeChange(target, source domain.State, pairs []domain.VarPair) domain.State {
	tgt, src := d.state(target), d.state(source)
	if tgt.bottom || src.bottom {
		return tgt.toBottom()
	}
	vals := append([]V{}, tgt.vals...)
	for _, p := range pairs {
		i := program.IndexOf(tgt.vars, p.To.Name)
		if i < 0 {
			continue
		}
		v, ok := src.Value(p.From)
		if !ok {
			v = d.lat.Top()
		}
		vals[i] = v
	}
	return &State[V]{lat: d.lat, vars: tgt.vars, vals: vals}
}
