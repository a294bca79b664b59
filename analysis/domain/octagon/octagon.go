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

// Package octagon implements the octagon abstract domain: conjunctions of constraints of the form +/-x +/-y <= c
// over integer variables, represented by difference-bound matrices.
//
// Assignments and guards are exact when they are octagonal, for instance x := y + 3 or x - y <= 2. Other linear
// guards are approximated by bounding each variable with the intervals of the others, and non-linear expressions are
// evaluated with interval arithmetic.
package octagon

import (
	"github.com/awslabs/ar-go-absint/analysis/domain"
	"github.com/awslabs/ar-go-absint/analysis/domain/nonrel"
	"github.com/awslabs/ar-go-absint/analysis/program"
)

// Domain is the octagon domain
type Domain struct {
	post *domain.StatementPost
}

// New returns the octagon domain, keeping at most maxParallel disjuncts
func New(maxParallel int) (*Domain, error) {
	d := &Domain{}
	post, err := domain.NewStatementPost(d, maxParallel)
	if err != nil {
		return nil, err
	}
	d.post = post
	return d, nil
}

// Name returns "octagon"
func (d *Domain) Name() string { return "octagon" }

// Precision is the highest precision of the available domains
func (d *Domain) Precision() int { return 3 }

// Post returns the statement post-operator of the domain
func (d *Domain) Post() domain.PostOperator { return d.post }

// Tracks returns true for integers and booleans
func (d *Domain) Tracks(t program.Type) bool {
	return t == program.Int || t == program.Bool
}

func (d *Domain) state(s domain.State) *State {
	return domain.MustBeOfType[*State](d, s)
}

// FreshState returns the octagon without constraints
func (d *Domain) FreshState(scope []program.Var) domain.State {
	return top(scope)
}

// Merge returns the join of the closures of a and b
func (d *Domain) Merge(a, b domain.State) domain.State {
	sa, sb := d.state(a), d.state(b)
	checkScope(sa, sb)
	if sa.IsBottom() {
		return sb
	}
	if sb.IsBottom() {
		return sa
	}
	return join(sa.close(), sb.close())
}

// Widen keeps the bounds of old that are stable in the closure of new. The left operand is not closed, otherwise
// widening sequences may not stabilize.
func (d *Domain) Widen(old, new domain.State) domain.State {
	so, sn := d.state(old), d.state(new)
	checkScope(so, sn)
	if so.IsBottom() {
		return sn
	}
	if sn.IsBottom() {
		return so
	}
	cn := sn.close()
	res := so.clone()
	for i, v := range cn.m {
		if v > res.m[i] {
			res.m[i] = Inf
		}
	}
	return res
}

// IsSubsumedBy returns true when the closure of a is pointwise smaller than b
func (d *Domain) IsSubsumedBy(a, b domain.State) bool {
	sa, sb := d.state(a), d.state(b)
	checkScope(sa, sb)
	ca := sa.close()
	if ca.bottom {
		return true
	}
	if sb.IsBottom() {
		return false
	}
	for i, v := range ca.m {
		if v > sb.m[i] {
			return false
		}
	}
	return true
}

// Assign assigns e to v through a temporary variable t: the constraint t = e is added (exactly when it is
// octagonal), then v is forgotten and t is renamed to v.
func (d *Domain) Assign(s domain.State, v program.Var, e program.Expr) domain.State {
	st := d.state(s).close()
	k := program.IndexOf(st.vars, v.Name)
	if st.bottom || k < 0 {
		return st
	}
	n := len(st.vars)
	keep := make([]int, n+1)
	for i := range st.vars {
		keep[i] = i
	}
	keep[n] = -1
	ext := st.project(append(append([]program.Var{}, st.vars...), program.Var{Name: "%assign", Type: v.Type}), keep)
	ext.closed = false

	if lin, ok := program.Linearize(e); ok && len(lin.Terms) <= 1 &&
		(len(lin.Terms) == 0 || lin.Terms[0].Coeff == 1 || lin.Terms[0].Coeff == -1) {
		// t - coeff * y == c
		if len(lin.Terms) == 0 {
			boundUnary(ext, n, nonrel.Singleton(lin.Const))
		} else {
			y := program.IndexOf(st.vars, lin.Terms[0].Var.Name)
			if y < 0 {
				return d.Havoc(st, []program.Var{v})
			}
			signed := 2 * y
			if lin.Terms[0].Coeff == -1 {
				signed = 2*y + 1
			}
			ext.tighten(signed, 2*n, lin.Const)
			ext.tighten(2*n, signed, -lin.Const)
		}
	} else {
		i := d.eval(st, e)
		if i.IsBottom() {
			return st.toBottom()
		}
		boundUnary(ext, n, i)
	}
	ext = ext.close()
	if ext.bottom {
		return ext.project(st.vars, keep[:n])
	}
	ext = ext.clone()
	ext.forget(k)
	keep[k] = n
	res := ext.project(st.vars, keep[:n])
	res.closed = true
	return res
}

// boundUnary adds the bounds of i to the variable k
func boundUnary(s *State, k int, i nonrel.Interval) {
	if i.Hi != nonrel.PosInf {
		s.tighten(2*k+1, 2*k, double(i.Hi))
	}
	if i.Lo != nonrel.NegInf {
		s.tighten(2*k, 2*k+1, double(nonrel.NegBound(i.Lo)))
	}
}

// double returns 2c, rounded up to Inf on overflow
func double(c int64) int64 {
	return nonrel.AddHi(c, c)
}

// eval returns the interval of e in the closed octagon s
func (d *Domain) eval(s *State, e program.Expr) nonrel.Interval {
	switch x := e.(type) {
	case program.Const:
		return nonrel.Singleton(x.Value)
	case program.VarRef:
		if k := program.IndexOf(s.vars, x.Var.Name); k >= 0 {
			return s.interval(k)
		}
	case program.Binary:
		return nonrel.EvalBinary(x.Op, d.eval(s, x.X), d.eval(s, x.Y))
	case program.Neg:
		return d.eval(s, x.X).Neg()
	}
	return nonrel.TopInterval
}

// Constrain adds the comparison c to s
func (d *Domain) Constrain(s domain.State, c program.Cmp) domain.State {
	st := d.state(s).close()
	if st.bottom {
		return st
	}
	l, eq, ok := program.Normalize(c)
	if !ok {
		return d.constrainIntervals(st, c)
	}
	res := st.clone()
	addLinear(res, st, l)
	if eq {
		addLinear(res, st, program.Linear{}.Sub(l))
	}
	return res.close()
}

// constrainIntervals refines the variables compared by c with the intervals of the two sides
func (d *Domain) constrainIntervals(st *State, c program.Cmp) domain.State {
	x, y := nonrel.Refine(c.Op, d.eval(st, c.X), d.eval(st, c.Y))
	if x.IsBottom() || y.IsBottom() {
		return st.toBottom()
	}
	res := st.clone()
	for _, side := range []struct {
		e program.Expr
		i nonrel.Interval
	}{{c.X, x}, {c.Y, y}} {
		if ref, ok := side.e.(program.VarRef); ok {
			if k := program.IndexOf(st.vars, ref.Var.Name); k >= 0 {
				boundUnary(res, k, side.i)
			}
		}
	}
	return res.close()
}

// addLinear adds the constraint l <= 0 to res. The constraint is exact when it is octagonal once divided by the
// gcd of its coefficients. Otherwise each variable is bounded with the intervals of the other variables in the
// closed octagon st.
func addLinear(res, st *State, l program.Linear) {
	if len(l.Terms) == 0 {
		if l.Const > 0 {
			res.bottom = true
		}
		return
	}
	g := int64(0)
	for _, t := range l.Terms {
		g = gcd(g, abs(t.Coeff))
	}
	octagonal := len(l.Terms) <= 2
	for _, t := range l.Terms {
		octagonal = octagonal && abs(t.Coeff) == g
	}
	if octagonal {
		// sum(sign * x) <= floor(-c / g)
		bound := floorDiv(-l.Const, g)
		signed := func(t program.Term, negate bool) int {
			k := program.IndexOf(st.vars, t.Var.Name)
			if k < 0 {
				return -1
			}
			if (t.Coeff < 0) != negate {
				return 2*k + 1
			}
			return 2 * k
		}
		if len(l.Terms) == 1 {
			i := signed(l.Terms[0], false)
			if i >= 0 {
				res.tighten(bar(i), i, double(bound))
			}
			return
		}
		// s1 x + s2 y <= c bounds V(p(x, s1)) - V(p(y, -s2))
		i, j := signed(l.Terms[0], false), signed(l.Terms[1], true)
		if i >= 0 && j >= 0 {
			res.tighten(j, i, bound)
		}
		return
	}
	for _, t := range l.Terms {
		k := program.IndexOf(st.vars, t.Var.Name)
		if k < 0 {
			continue
		}
		// t.Coeff * x <= -c - sum(others)
		rest := nonrel.Singleton(-l.Const)
		for _, o := range l.Terms {
			if o.Var.Name == t.Var.Name {
				continue
			}
			i := nonrel.TopInterval
			if ko := program.IndexOf(st.vars, o.Var.Name); ko >= 0 {
				i = st.interval(ko)
			}
			rest = rest.Sub(nonrel.Singleton(o.Coeff).Mul(i))
		}
		if rest.Hi == nonrel.PosInf {
			continue
		}
		if t.Coeff > 0 {
			res.tighten(2*k+1, 2*k, double(floorDiv(rest.Hi, t.Coeff)))
		} else {
			res.tighten(2*k, 2*k+1, double(floorDiv(rest.Hi, -t.Coeff)))
		}
	}
}

func abs(a int64) int64 {
	if a < 0 {
		return -a
	}
	return a
}

func gcd(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// Havoc forgets the constraints on vars
func (d *Domain) Havoc(s domain.State, vars []program.Var) domain.State {
	st := d.state(s).close()
	if st.bottom {
		return st
	}
	res := st.clone()
	for _, v := range vars {
		if k := program.IndexOf(st.vars, v.Name); k >= 0 {
			res.forget(k)
		}
	}
	res.closed = true
	return res
}

// AddVariables extends the scope of s with unconstrained variables
func (d *Domain) AddVariables(s domain.State, vars []program.Var) domain.State {
	st := d.state(s)
	scope := append(append([]program.Var{}, st.vars...), vars...)
	keep := make([]int, len(scope))
	for i := range keep {
		if i < len(st.vars) {
			keep[i] = i
		} else {
			keep[i] = -1
		}
	}
	return st.project(scope, keep)
}

// RemoveVariables projects the closure of s on the other variables
func (d *Domain) RemoveVariables(s domain.State, vars []program.Var) domain.State {
	st := d.state(s).close()
	var scope []program.Var
	var keep []int
	for i, v := range st.vars {
		if program.IndexOf(vars, v.Name) < 0 {
			scope = append(scope, v)
			keep = append(keep, i)
		}
	}
	return st.project(scope, keep)
}

// CopyValuesOnScopeChange forgets the To variables of target, and constrains them with the constraints between the
// From variables in source.
func (d *Domain) CopyValuesOnScopeChange(target, source domain.State, pairs []domain.VarPair) domain.State {
	tgt, src := d.state(target).close(), d.state(source).close()
	if tgt.bottom || src.bottom {
		return tgt.toBottom()
	}
	type idx struct{ from, to int }
	var ids []idx
	res := tgt.clone()
	for _, p := range pairs {
		from, to := program.IndexOf(src.vars, p.From.Name), program.IndexOf(tgt.vars, p.To.Name)
		if from >= 0 && to >= 0 {
			ids = append(ids, idx{from, to})
			res.forget(to)
		}
	}
	for _, a := range ids {
		for _, b := range ids {
			for sa := 0; sa < 2; sa++ {
				for sb := 0; sb < 2; sb++ {
					res.tighten(2*a.to+sa, 2*b.to+sb, src.at(2*a.from+sa, 2*b.from+sb))
				}
			}
		}
	}
	return res.close()
}
