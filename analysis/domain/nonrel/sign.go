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
	"strings"

	"github.com/awslabs/ar-go-absint/analysis/program"
)

// Sign is a set of signs, represented as a bitset
type Sign uint8

const (
	// SignNeg is the set of negative integers
	SignNeg Sign = 1 << iota
	// SignZero is {0}
	SignZero
	// SignPos is the set of positive integers
	SignPos
	// SignTop is any integer
	SignTop = SignNeg | SignZero | SignPos
	// SignBottom is no integer
	SignBottom Sign = 0
)

var signIntervals = []struct {
	sign     Sign
	interval Interval
}{
	{SignNeg, Interval{NegInf, -1}},
	{SignZero, Interval{0, 0}},
	{SignPos, Interval{1, PosInf}},
}

// SignOf returns the signs of the elements of i
func SignOf(i Interval) Sign {
	s := SignBottom
	for _, si := range signIntervals {
		if !i.Meet(si.interval).IsBottom() {
			s |= si.sign
		}
	}
	return s
}

// Interval returns the smallest interval containing the integers of s
func (s Sign) Interval() Interval {
	i := BottomInterval
	for _, si := range signIntervals {
		if s&si.sign != 0 {
			i = i.Join(si.interval)
		}
	}
	return i
}

func (s Sign) String() string {
	switch s {
	case SignBottom:
		return "bottom"
	case SignTop:
		return "top"
	}
	var parts []string
	for _, x := range []struct {
		sign Sign
		name string
	}{{SignNeg, "neg"}, {SignZero, "zero"}, {SignPos, "pos"}} {
		if s&x.sign != 0 {
			parts = append(parts, x.name)
		}
	}
	return strings.Join(parts, "|")
}

// SignLattice is the powerset lattice of {neg, zero, pos}. Its abstract operations evaluate the interval operations
// on each combination of signs.
type SignLattice struct{}

// Name returns "sign"
func (SignLattice) Name() string { return "sign" }

// Precision is the lowest precision
func (SignLattice) Precision() int { return 1 }

// Top returns SignTop
func (SignLattice) Top() Sign { return SignTop }

// Bottom returns SignBottom
func (SignLattice) Bottom() Sign { return SignBottom }

// IsBottom returns true for the empty set
func (SignLattice) IsBottom(v Sign) bool { return v == SignBottom }

// Join is the union
func (SignLattice) Join(a, b Sign) Sign { return a | b }

// Meet is the intersection
func (SignLattice) Meet(a, b Sign) Sign { return a & b }

// Widen is the union, since the lattice is finite
func (SignLattice) Widen(old, new Sign) Sign { return old | new }

// Leq is the inclusion
func (SignLattice) Leq(a, b Sign) bool { return a&^b == 0 }

// Const returns the sign of c
func (SignLattice) Const(c int64) Sign { return SignOf(Singleton(c)) }

// Binary returns the signs of a op b
func (SignLattice) Binary(op program.BinOp, a, b Sign) Sign {
	res := SignBottom
	for _, x := range signIntervals {
		if a&x.sign == 0 {
			continue
		}
		for _, y := range signIntervals {
			if b&y.sign != 0 {
				res |= SignOf(EvalBinary(op, x.interval, y.interval))
			}
		}
	}
	return res
}

// Neg exchanges the negative and positive signs
func (SignLattice) Neg(a Sign) Sign {
	return SignOf(a.Interval().Neg())
}

// Refine keeps the signs of x and y for which the comparison may hold
func (SignLattice) Refine(op program.CmpOp, x, y Sign) (Sign, Sign) {
	rx, ry := SignBottom, SignBottom
	for _, sx := range signIntervals {
		if x&sx.sign == 0 {
			continue
		}
		for _, sy := range signIntervals {
			if y&sy.sign == 0 {
				continue
			}
			ix, iy := Refine(op, sx.interval, sy.interval)
			rx |= SignOf(ix)
			ry |= SignOf(iy)
		}
	}
	return rx, ry
}

// Formula returns the sign condition of e
func (SignLattice) Formula(e program.Expr, v Sign) program.Cond {
	zero := program.C(0)
	switch v {
	case SignBottom:
		return program.False
	case SignNeg:
		return program.Compare(e, program.Lt, zero)
	case SignZero:
		return program.Compare(e, program.Eq, zero)
	case SignPos:
		return program.Compare(e, program.Gt, zero)
	case SignNeg | SignZero:
		return program.Compare(e, program.Le, zero)
	case SignZero | SignPos:
		return program.Compare(e, program.Ge, zero)
	case SignNeg | SignPos:
		return program.Compare(e, program.Ne, zero)
	}
	return program.True
}

func (SignLattice) String(v Sign) string { return v.String() }
