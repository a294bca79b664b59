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
	"fmt"
	"sort"
	"strings"
)

// A Term is a coefficient multiplied by a variable
type Term struct {
	Var   Var
	Coeff int64
}

// Linear is a linear expression sum(Terms) + Const. Terms are sorted by variable name, have non-zero coefficients
// and mention each variable at most once.
type Linear struct {
	Terms []Term
	Const int64
}

func (l Linear) String() string {
	var b strings.Builder
	for i, t := range l.Terms {
		switch {
		case t.Coeff == 1 && i == 0:
			b.WriteString(t.Var.Name)
		case t.Coeff == 1:
			fmt.Fprintf(&b, " + %s", t.Var.Name)
		case t.Coeff == -1 && i == 0:
			fmt.Fprintf(&b, "-%s", t.Var.Name)
		case t.Coeff == -1:
			fmt.Fprintf(&b, " - %s", t.Var.Name)
		case i == 0:
			fmt.Fprintf(&b, "%d*%s", t.Coeff, t.Var.Name)
		case t.Coeff < 0:
			fmt.Fprintf(&b, " - %d*%s", -t.Coeff, t.Var.Name)
		default:
			fmt.Fprintf(&b, " + %d*%s", t.Coeff, t.Var.Name)
		}
	}
	switch {
	case len(l.Terms) == 0:
		fmt.Fprintf(&b, "%d", l.Const)
	case l.Const > 0:
		fmt.Fprintf(&b, " + %d", l.Const)
	case l.Const < 0:
		fmt.Fprintf(&b, " - %d", -l.Const)
	}
	return b.String()
}

// IsConst returns true if l has no variable terms
func (l Linear) IsConst() bool { return len(l.Terms) == 0 }

// Coeff returns the coefficient of v in l
func (l Linear) Coeff(v Var) int64 {
	for _, t := range l.Terms {
		if t.Var.Name == v.Name {
			return t.Coeff
		}
	}
	return 0
}

func (l Linear) scale(k int64) Linear {
	if k == 0 {
		return Linear{}
	}
	r := Linear{Const: l.Const * k, Terms: make([]Term, len(l.Terms))}
	for i, t := range l.Terms {
		r.Terms[i] = Term{t.Var, t.Coeff * k}
	}
	return r
}

func (l Linear) add(o Linear) Linear {
	coeffs := map[string]Term{}
	for _, group := range [][]Term{l.Terms, o.Terms} {
		for _, t := range group {
			cur := coeffs[t.Var.Name]
			coeffs[t.Var.Name] = Term{t.Var, cur.Coeff + t.Coeff}
		}
	}
	r := Linear{Const: l.Const + o.Const}
	for _, t := range coeffs {
		if t.Coeff != 0 {
			r.Terms = append(r.Terms, t)
		}
	}
	sort.Slice(r.Terms, func(i, j int) bool { return r.Terms[i].Var.Name < r.Terms[j].Var.Name })
	return r
}

// Sub returns l - o
func (l Linear) Sub(o Linear) Linear { return l.add(o.scale(-1)) }

// Linearize returns the linear form of e. The second result is false when e is not linear: it contains a
// non-deterministic value, a product of two non-constant expressions, or a division or remainder by a non-constant
// expression. Division and remainder of constants are evaluated with Go semantics; a division by the constant zero
// is not linear.
func Linearize(e Expr) (Linear, bool) {
	switch x := e.(type) {
	case Const:
		return Linear{Const: x.Value}, true
	case VarRef:
		return Linear{Terms: []Term{{x.Var, 1}}}, true
	case Neg:
		l, ok := Linearize(x.X)
		return l.scale(-1), ok
	case Binary:
		a, ok1 := Linearize(x.X)
		b, ok2 := Linearize(x.Y)
		if !ok1 || !ok2 {
			return Linear{}, false
		}
		switch x.Op {
		case Add:
			return a.add(b), true
		case Sub:
			return a.Sub(b), true
		case Mul:
			if a.IsConst() {
				return b.scale(a.Const), true
			}
			if b.IsConst() {
				return a.scale(b.Const), true
			}
		case Div:
			if a.IsConst() && b.IsConst() && b.Const != 0 {
				return Linear{Const: a.Const / b.Const}, true
			}
		case Mod:
			if a.IsConst() && b.IsConst() && b.Const != 0 {
				return Linear{Const: a.Const % b.Const}, true
			}
		}
	}
	return Linear{}, false
}

// maxDisjuncts bounds the size of the disjunctive normal forms computed by DNF
const maxDisjuncts = 64

// DNF returns the disjunctive normal form of c as a list of conjunctions of comparisons. Negations are pushed into
// the comparisons and != is split into < or >. An empty list is false, and a list containing the empty conjunction
// is true.
// If the normal form would have more than a fixed number of disjuncts, DNF returns the over-approximation true.
func DNF(c Cond) [][]Cmp {
	r, ok := dnf(c, false)
	if !ok {
		return [][]Cmp{{}}
	}
	return r
}

func dnf(c Cond, negated bool) ([][]Cmp, bool) {
	switch x := c.(type) {
	case Truth:
		if x.Value != negated {
			return [][]Cmp{{}}, true
		}
		return nil, true
	case Not:
		return dnf(x.C, !negated)
	case Cmp:
		op := x.Op
		if negated {
			op = op.Negate()
		}
		if op == Ne {
			return [][]Cmp{{{Lt, x.X, x.Y}}, {{Gt, x.X, x.Y}}}, true
		}
		return [][]Cmp{{{op, x.X, x.Y}}}, true
	case And:
		if negated {
			return dnfOr(negateAll(x.Conds))
		}
		return dnfAnd(x.Conds)
	case Or:
		if negated {
			return dnfAnd(negateAll(x.Conds))
		}
		return dnfOr(x.Conds)
	}
	return [][]Cmp{{}}, true
}

func negateAll(conds []Cond) []Cond {
	r := make([]Cond, len(conds))
	for i, c := range conds {
		r[i] = Not{c}
	}
	return r
}

func dnfOr(conds []Cond) ([][]Cmp, bool) {
	var r [][]Cmp
	for _, c := range conds {
		d, ok := dnf(c, false)
		if !ok {
			return nil, false
		}
		r = append(r, d...)
		if len(r) > maxDisjuncts {
			return nil, false
		}
	}
	return r, true
}

func dnfAnd(conds []Cond) ([][]Cmp, bool) {
	r := [][]Cmp{{}}
	for _, c := range conds {
		d, ok := dnf(c, false)
		if !ok {
			return nil, false
		}
		var next [][]Cmp
		for _, left := range r {
			for _, right := range d {
				conj := make([]Cmp, 0, len(left)+len(right))
				conj = append(conj, left...)
				next = append(next, append(conj, right...))
			}
		}
		if len(next) > maxDisjuncts {
			return nil, false
		}
		r = next
	}
	return r, true
}

// Normalize returns the linear expression l such that the comparison c is equivalent to l <= 0 or l == 0 (the
// second result is true for equalities). Strict inequalities use the integrality of variables: x < y iff x - y + 1
// <= 0. The last result is false when one side of c is not linear. The comparison c must not use !=.
func Normalize(c Cmp) (Linear, bool, bool) {
	x, ok1 := Linearize(c.X)
	y, ok2 := Linearize(c.Y)
	if !ok1 || !ok2 {
		return Linear{}, false, false
	}
	switch c.Op {
	case Lt:
		d := x.Sub(y)
		d.Const++
		return d, false, true
	case Le:
		return x.Sub(y), false, true
	case Gt:
		d := y.Sub(x)
		d.Const++
		return d, false, true
	case Ge:
		return y.Sub(x), false, true
	case Eq:
		return x.Sub(y), true, true
	}
	return Linear{}, false, false
}
