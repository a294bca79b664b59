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

package nonrel

import (
	"fmt"
	"math"

	"github.com/awslabs/ar-go-absint/analysis/program"
	"github.com/awslabs/ar-go-absint/internal/funcutil"
)

const (
	// NegInf is the lower bound of intervals unbounded below
	NegInf int64 = math.MinInt64
	// PosInf is the upper bound of intervals unbounded above
	PosInf int64 = math.MaxInt64
)

// Interval is the set of integers between Lo and Hi, inclusive. An interval with Lo > Hi is empty.
type Interval struct {
	Lo int64
	Hi int64
}

// TopInterval contains all integers
var TopInterval = Interval{NegInf, PosInf}

// BottomInterval is the empty interval
var BottomInterval = Interval{1, 0}

// Range returns the interval [lo, hi], normalized to BottomInterval when it is empty
func Range(lo, hi int64) Interval {
	if lo > hi {
		return BottomInterval
	}
	return Interval{lo, hi}
}

// Singleton returns the interval [c, c]
func Singleton(c int64) Interval { return Interval{c, c} }

// IsBottom returns true when the interval is empty
func (i Interval) IsBottom() bool { return i.Lo > i.Hi }

// IsTop returns true when the interval has no bound
func (i Interval) IsTop() bool { return i.Lo == NegInf && i.Hi == PosInf }

// Contains returns true if c is in the interval
func (i Interval) Contains(c int64) bool { return i.Lo <= c && c <= i.Hi }

func (i Interval) String() string {
	if i.IsBottom() {
		return "bottom"
	}
	lo, hi := "-oo", "+oo"
	if i.Lo != NegInf {
		lo = fmt.Sprintf("%d", i.Lo)
	}
	if i.Hi != PosInf {
		hi = fmt.Sprintf("%d", i.Hi)
	}
	return "[" + lo + ", " + hi + "]"
}

// Join returns the smallest interval containing i and j
func (i Interval) Join(j Interval) Interval {
	if i.IsBottom() {
		return j
	}
	if j.IsBottom() {
		return i
	}
	return Interval{funcutil.Min(i.Lo, j.Lo), funcutil.Max(i.Hi, j.Hi)}
}

// Meet returns the intersection of i and j
func (i Interval) Meet(j Interval) Interval {
	return Range(funcutil.Max(i.Lo, j.Lo), funcutil.Min(i.Hi, j.Hi))
}

// Add returns i + j
func (i Interval) Add(j Interval) Interval {
	if i.IsBottom() || j.IsBottom() {
		return BottomInterval
	}
	return Range(AddLo(i.Lo, j.Lo), AddHi(i.Hi, j.Hi))
}

// Neg returns -i
func (i Interval) Neg() Interval {
	if i.IsBottom() {
		return BottomInterval
	}
	return Interval{NegBound(i.Hi), NegBound(i.Lo)}
}

// Sub returns i - j
func (i Interval) Sub(j Interval) Interval { return i.Add(j.Neg()) }

// Mul returns i * j
func (i Interval) Mul(j Interval) Interval {
	if i.IsBottom() || j.IsBottom() {
		return BottomInterval
	}
	a, b, c, d := mulBound(i.Lo, j.Lo), mulBound(i.Lo, j.Hi), mulBound(i.Hi, j.Lo), mulBound(i.Hi, j.Hi)
	return hull(a, b, c, d)
}

// Div returns i / j with the truncated division of Go. Dividing by zero has no result.
func (i Interval) Div(j Interval) Interval {
	if i.IsBottom() || j.IsBottom() {
		return BottomInterval
	}
	neg := j.Meet(Interval{NegInf, -1})
	pos := j.Meet(Interval{1, PosInf})
	return i.divNonZero(neg).Join(i.divNonZero(pos))
}

// divNonZero divides by an interval that does not contain zero. The quotient is monotone in each argument on such
// a box, so its bounds are reached at the corners.
func (i Interval) divNonZero(j Interval) Interval {
	if j.IsBottom() {
		return BottomInterval
	}
	a, b, c, d := divBound(i.Lo, j.Lo), divBound(i.Lo, j.Hi), divBound(i.Hi, j.Lo), divBound(i.Hi, j.Hi)
	return hull(a, b, c, d)
}

// Rem returns i % j, whose sign is the sign of i. The remainder by zero has no result.
func (i Interval) Rem(j Interval) Interval {
	if i.IsBottom() || j.IsBottom() || (j.Lo == 0 && j.Hi == 0) {
		return BottomInterval
	}
	m := funcutil.Max(absBound(j.Lo), absBound(j.Hi))
	if m != PosInf {
		m--
	}
	r := Interval{NegBound(m), m}
	switch {
	case i.Lo >= 0:
		r.Lo = 0
	case i.Hi <= 0:
		r.Hi = 0
	}
	return r.Meet(Interval{funcutil.Min(i.Lo, 0), funcutil.Max(i.Hi, 0)})
}

// Widen returns i where the bounds that are not stable in j are replaced with infinities
func (i Interval) Widen(j Interval) Interval {
	if i.IsBottom() {
		return j
	}
	if j.IsBottom() {
		return i
	}
	r := i
	if j.Lo < i.Lo {
		r.Lo = NegInf
	}
	if j.Hi > i.Hi {
		r.Hi = PosInf
	}
	return r
}

// Leq returns true when i is included in j
func (i Interval) Leq(j Interval) bool {
	return i.IsBottom() || (j.Lo <= i.Lo && i.Hi <= j.Hi)
}

// Refine returns the largest subintervals x' of x and y' of y such that the comparison may hold between elements
// of x' and y'.
func Refine(op program.CmpOp, x, y Interval) (Interval, Interval) {
	if x.IsBottom() || y.IsBottom() {
		return BottomInterval, BottomInterval
	}
	var rx, ry Interval
	switch op {
	case program.Le:
		rx, ry = Range(x.Lo, funcutil.Min(x.Hi, y.Hi)), Range(funcutil.Max(y.Lo, x.Lo), y.Hi)
	case program.Lt:
		rx, ry = Range(x.Lo, funcutil.Min(x.Hi, AddHi(y.Hi, -1))), Range(funcutil.Max(y.Lo, AddLo(x.Lo, 1)), y.Hi)
	case program.Ge, program.Gt:
		ry, rx = Refine(op.Flip(), y, x)
	case program.Eq:
		rx = x.Meet(y)
		ry = rx
	case program.Ne:
		rx, ry = x, y
		if y.Lo == y.Hi {
			rx = excludeBound(x, y.Lo)
		}
		if x.Lo == x.Hi {
			ry = excludeBound(y, x.Lo)
		}
	}
	if rx.IsBottom() || ry.IsBottom() {
		return BottomInterval, BottomInterval
	}
	return rx, ry
}

// excludeBound removes c from x when it is one of its bounds
func excludeBound(x Interval, c int64) Interval {
	switch {
	case x.Lo == c && x.Hi == c:
		return BottomInterval
	case x.Lo == c:
		return Range(c+1, x.Hi)
	case x.Hi == c:
		return Range(x.Lo, c-1)
	}
	return x
}

// IntervalLattice is the lattice of intervals, with the standard widening
type IntervalLattice struct{}

// Name returns "interval"
func (IntervalLattice) Name() string { return "interval" }

// Precision is between the octagon and the sign and parity domains
func (IntervalLattice) Precision() int { return 2 }

// Top returns TopInterval
func (IntervalLattice) Top() Interval { return TopInterval }

// Bottom returns BottomInterval
func (IntervalLattice) Bottom() Interval { return BottomInterval }

// IsBottom returns true for the empty interval
func (IntervalLattice) IsBottom(v Interval) bool { return v.IsBottom() }

// Join returns the interval hull
func (IntervalLattice) Join(a, b Interval) Interval { return a.Join(b) }

// Meet returns the intersection
func (IntervalLattice) Meet(a, b Interval) Interval { return a.Meet(b) }

// Widen pushes unstable bounds to infinity
func (IntervalLattice) Widen(old, new Interval) Interval { return old.Widen(new) }

// Leq is the inclusion
func (IntervalLattice) Leq(a, b Interval) bool { return a.Leq(b) }

// Const returns [c, c]
func (IntervalLattice) Const(c int64) Interval { return Singleton(c) }

// Binary implements the interval arithmetic
func (IntervalLattice) Binary(op program.BinOp, a, b Interval) Interval {
	return EvalBinary(op, a, b)
}

// EvalBinary returns the interval of a op b
func EvalBinary(op program.BinOp, a, b Interval) Interval {
	switch op {
	case program.Add:
		return a.Add(b)
	case program.Sub:
		return a.Sub(b)
	case program.Mul:
		return a.Mul(b)
	case program.Div:
		return a.Div(b)
	case program.Mod:
		return a.Rem(b)
	}
	return TopInterval
}

// Neg returns -a
func (IntervalLattice) Neg(a Interval) Interval { return a.Neg() }

// Refine implements the comparison of intervals
func (IntervalLattice) Refine(op program.CmpOp, x, y Interval) (Interval, Interval) {
	return Refine(op, x, y)
}

// Formula returns the bounds of e
func (IntervalLattice) Formula(e program.Expr, v Interval) program.Cond {
	return IntervalFormula(e, v)
}

// IntervalFormula returns the condition e in v
func IntervalFormula(e program.Expr, v Interval) program.Cond {
	switch {
	case v.IsBottom():
		return program.False
	case v.Lo == v.Hi:
		return program.Compare(e, program.Eq, program.C(v.Lo))
	}
	var conds []program.Cond
	if v.Lo != NegInf {
		conds = append(conds, program.Compare(e, program.Ge, program.C(v.Lo)))
	}
	if v.Hi != PosInf {
		conds = append(conds, program.Compare(e, program.Le, program.C(v.Hi)))
	}
	return program.Conj(conds...)
}

func (IntervalLattice) String(v Interval) string { return v.String() }

// AddLo adds two lower bounds. Overflows are rounded down, to NegInf or to the largest finite bound.
func AddLo(a, b int64) int64 {
	if a == NegInf || b == NegInf {
		return NegInf
	}
	if a == PosInf || b == PosInf {
		return PosInf - 1
	}
	s := a + b
	switch {
	case b > 0 && s < a:
		return PosInf - 1
	case b < 0 && s > a:
		return NegInf
	}
	return s
}

// AddHi adds two upper bounds. Overflows are rounded up, to PosInf or to the smallest finite bound.
func AddHi(a, b int64) int64 {
	if a == PosInf || b == PosInf {
		return PosInf
	}
	if a == NegInf || b == NegInf {
		return NegInf + 1
	}
	s := a + b
	switch {
	case b > 0 && s < a:
		return PosInf
	case b < 0 && s > a:
		return NegInf + 1
	}
	return s
}

// NegBound returns -a, exchanging the infinities
func NegBound(a int64) int64 {
	switch a {
	case NegInf:
		return PosInf
	case PosInf:
		return NegInf
	}
	return -a
}

func absBound(a int64) int64 {
	if a < 0 {
		return NegBound(a)
	}
	return a
}

func mulBound(a, b int64) int64 {
	if a == 0 || b == 0 {
		return 0
	}
	positive := (a > 0) == (b > 0)
	if a == NegInf || a == PosInf || b == NegInf || b == PosInf {
		if positive {
			return PosInf
		}
		return NegInf
	}
	p := a * b
	if p/b != a || p == NegInf || p == PosInf {
		if positive {
			return PosInf
		}
		return NegInf
	}
	return p
}

func divBound(a, b int64) int64 {
	switch {
	case b == NegInf || b == PosInf:
		return 0
	case a == NegInf || a == PosInf:
		if (a > 0) == (b > 0) {
			return PosInf
		}
		return NegInf
	}
	return a / b
}

// hull returns the smallest interval containing the bounds
func hull(bounds ...int64) Interval {
	res := Interval{bounds[0], bounds[0]}
	for _, b := range bounds[1:] {
		res.Lo = funcutil.Min(res.Lo, b)
		res.Hi = funcutil.Max(res.Hi, b)
	}
	return res
}
