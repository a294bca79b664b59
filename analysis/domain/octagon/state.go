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
	"fmt"
	"sync"

	"github.com/awslabs/ar-go-absint/analysis/domain/nonrel"
	"github.com/awslabs/ar-go-absint/analysis/program"
	"github.com/awslabs/ar-go-absint/internal/funcutil"
)

// Inf is the bound of unconstrained differences
const Inf = nonrel.PosInf

// State is an octagon, represented by a difference-bound matrix over the signed variables +x and -x.
// The variable k of the scope has the signed variables 2k (+x) and 2k+1 (-x), and the entry (i, j) of the matrix
// is an upper bound of V(j) - V(i). The matrix is coherent: the entries (i, j) and (bar j, bar i) are equal.
type State struct {
	vars   []program.Var
	m      []int64
	bottom bool
	closed bool

	closeOnce sync.Once
	closure   *State
}

func bar(i int) int { return i ^ 1 }

func top(vars []program.Var) *State {
	dim := 2 * len(vars)
	m := make([]int64, dim*dim)
	for i := range m {
		m[i] = Inf
	}
	for i := 0; i < dim; i++ {
		m[i*dim+i] = 0
	}
	return &State{vars: vars, m: m, closed: true}
}

func (s *State) dim() int { return 2 * len(s.vars) }

func (s *State) at(i, j int) int64 { return s.m[i*s.dim()+j] }

// tighten lowers the bound of V(j) - V(i) to c, and the coherent entry
func (s *State) tighten(i, j int, c int64) {
	d := s.dim()
	if c < s.m[i*d+j] {
		s.m[i*d+j] = c
	}
	if c < s.m[bar(j)*d+bar(i)] {
		s.m[bar(j)*d+bar(i)] = c
	}
}

func (s *State) clone() *State {
	m := make([]int64, len(s.m))
	copy(m, s.m)
	return &State{vars: s.vars, m: m, bottom: s.bottom}
}

func (s *State) toBottom() *State {
	return &State{vars: s.vars, m: s.m, bottom: true, closed: true}
}

// close returns the tight closure of s: every bound of the matrix is the tightest bound implied by the others over
// the integers. The closure is computed once per state.
func (s *State) close() *State {
	if s.closed || s.bottom {
		return s
	}
	s.closeOnce.Do(func() {
		c := s.clone()
		c.closeInPlace()
		s.closure = c
	})
	return s.closure
}

func (s *State) closeInPlace() {
	d := s.dim()
	m := s.m
	for k := 0; k < d; k++ {
		for i := 0; i < d; i++ {
			ik := m[i*d+k]
			if ik == Inf {
				continue
			}
			for j := 0; j < d; j++ {
				if kj := m[k*d+j]; kj != Inf {
					if v := nonrel.AddHi(ik, kj); v < m[i*d+j] {
						m[i*d+j] = v
					}
				}
			}
		}
	}
	for i := 0; i < d; i++ {
		if m[i*d+i] < 0 {
			s.bottom = true
			s.closed = true
			return
		}
		if v := m[i*d+bar(i)]; v != Inf {
			m[i*d+bar(i)] = 2 * floorHalf(v)
		}
	}
	for i := 0; i < d; i++ {
		for j := 0; j < d; j++ {
			a, b := m[i*d+bar(i)], m[bar(j)*d+j]
			if a == Inf || b == Inf {
				continue
			}
			if v := floorHalf(nonrel.AddHi(a, b)); v < m[i*d+j] {
				m[i*d+j] = v
			}
		}
	}
	for i := 0; i < d; i++ {
		if m[i*d+i] < 0 || (m[i*d+bar(i)] != Inf && m[bar(i)*d+i] != Inf &&
			nonrel.AddHi(m[i*d+bar(i)], m[bar(i)*d+i]) < 0) {
			s.bottom = true
			break
		}
		m[i*d+i] = 0
	}
	s.closed = true
}

// floorHalf returns the largest integer smaller than or equal to a / 2
func floorHalf(a int64) int64 {
	return floorDiv(a, 2)
}

// floorDiv returns the largest integer smaller than or equal to a / b, for b > 0
func floorDiv(a, b int64) int64 {
	if a == Inf {
		return Inf
	}
	q := a / b
	if a%b != 0 && a < 0 {
		q--
	}
	return q
}

// IsBottom returns true when the octagon is empty
func (s *State) IsBottom() bool {
	return s.close().bottom
}

// Variables returns the scope of the octagon
func (s *State) Variables() []program.Var {
	return s.vars
}

// Interval returns the bounds of v in s. The second result is false if v is not in the scope of s.
func (s *State) Interval(v program.Var) (nonrel.Interval, bool) {
	k := program.IndexOf(s.vars, v.Name)
	if k < 0 {
		return nonrel.TopInterval, false
	}
	c := s.close()
	if c.bottom {
		return nonrel.BottomInterval, true
	}
	return c.interval(k), true
}

func (s *State) interval(k int) nonrel.Interval {
	lo, hi := nonrel.NegInf, nonrel.PosInf
	if v := s.at(2*k, 2*k+1); v != Inf {
		lo = -floorHalf(v)
	}
	if v := s.at(2*k+1, 2*k); v != Inf {
		hi = floorHalf(v)
	}
	return nonrel.Range(lo, hi)
}

// Formula returns the bounds of the variables and the relations between variables that are tighter than the ones
// implied by the bounds.
func (s *State) Formula() program.Cond {
	c := s.close()
	if c.bottom {
		return program.False
	}
	var conds []program.Cond
	bounds := make([]nonrel.Interval, len(c.vars))
	for k, v := range c.vars {
		bounds[k] = c.interval(k)
		conds = append(conds, nonrel.IntervalFormula(program.V(v), bounds[k]))
	}
	for k, x := range c.vars {
		for l := k + 1; l < len(c.vars); l++ {
			y := c.vars[l]
			bx, by := bounds[k], bounds[l]
			vx, vy := program.V(x), program.V(y)
			// x - y in [-m(2k,2l), m(2l,2k)]
			conds = append(conds, relation(program.Minus(vx, vy), -c.at(2*k, 2*l), c.at(2*l, 2*k),
				bx.Sub(by))...)
			// x + y in [-m(2l,2k+1), m(2l+1,2k)]
			conds = append(conds, relation(program.Plus(vx, vy), -c.at(2*l, 2*k+1), c.at(2*l+1, 2*k),
				bx.Add(by))...)
		}
	}
	return program.Conj(conds...)
}

// relation returns the conditions lo <= e <= hi that are not implied by implied. lo is -Inf when e has no lower
// bound.
func relation(e program.Expr, lo, hi int64, implied nonrel.Interval) []program.Cond {
	hasLo := lo != -Inf && lo > implied.Lo
	hasHi := hi != Inf && hi < implied.Hi
	switch {
	case hasLo && hasHi && lo == hi:
		return []program.Cond{program.Compare(e, program.Eq, program.C(lo))}
	case hasLo && hasHi:
		return []program.Cond{
			program.Compare(e, program.Ge, program.C(lo)),
			program.Compare(e, program.Le, program.C(hi)),
		}
	case hasLo:
		return []program.Cond{program.Compare(e, program.Ge, program.C(lo))}
	case hasHi:
		return []program.Cond{program.Compare(e, program.Le, program.C(hi))}
	}
	return nil
}

func (s *State) String() string {
	if s.IsBottom() {
		return "bottom"
	}
	return s.Formula().String()
}

// project returns the octagon over keep, where keep[i] is the index in s of the i-th variable of the result, or
// -1 for a new unconstrained variable.
func (s *State) project(vars []program.Var, keep []int) *State {
	res := top(vars)
	res.closed = s.closed
	for a, ka := range keep {
		if ka < 0 {
			continue
		}
		for b, kb := range keep {
			if kb < 0 {
				continue
			}
			for sa := 0; sa < 2; sa++ {
				for sb := 0; sb < 2; sb++ {
					res.m[(2*a+sa)*res.dim()+2*b+sb] = s.at(2*ka+sa, 2*kb+sb)
				}
			}
		}
	}
	if s.bottom {
		return res.toBottom()
	}
	return res
}

// forget removes all the constraints on the variable k. The result is closed if s is.
func (s *State) forget(k int) {
	d := s.dim()
	for _, i := range []int{2 * k, 2*k + 1} {
		for j := 0; j < d; j++ {
			if i != j {
				s.m[i*d+j] = Inf
				s.m[j*d+i] = Inf
			}
		}
	}
}

// checkScope panics if the states have different scopes
func checkScope(a, b *State) {
	if !program.SameVars(a.vars, b.vars) {
		panic(fmt.Sprintf("octagons over different variables %v and %v", a.vars, b.vars))
	}
}

// join is the pointwise maximum of two closed octagons
func join(a, b *State) *State {
	res := a.clone()
	for i, v := range b.m {
		res.m[i] = funcutil.Max(res.m[i], v)
	}
	res.closed = true
	return res
}
