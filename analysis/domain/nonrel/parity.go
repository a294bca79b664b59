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
	"github.com/awslabs/ar-go-absint/analysis/program"
)

// Parity is a set of parities, represented as a bitset
type Parity uint8

const (
	// Even is the set of even integers
	Even Parity = 1 << iota
	// Odd is the set of odd integers
	Odd
	// ParityTop is any integer
	ParityTop = Even | Odd
	// ParityBottom is no integer
	ParityBottom Parity = 0
)

func (p Parity) String() string {
	return [...]string{"bottom", "even", "odd", "top"}[p&ParityTop]
}

// ParityLattice is the powerset lattice of {even, odd}
type ParityLattice struct{}

// Name returns "parity"
func (ParityLattice) Name() string { return "parity" }

// Precision is the lowest precision
func (ParityLattice) Precision() int { return 1 }

// Top returns ParityTop
func (ParityLattice) Top() Parity { return ParityTop }

// Bottom returns ParityBottom
func (ParityLattice) Bottom() Parity { return ParityBottom }

// IsBottom returns true for the empty set
func (ParityLattice) IsBottom(v Parity) bool { return v == ParityBottom }

// Join is the union
func (ParityLattice) Join(a, b Parity) Parity { return a | b }

// Meet is the intersection
func (ParityLattice) Meet(a, b Parity) Parity { return a & b }

// Widen is the union, since the lattice is finite
func (ParityLattice) Widen(old, new Parity) Parity { return old | new }

// Leq is the inclusion
func (ParityLattice) Leq(a, b Parity) bool { return a&^b == 0 }

// Const returns the parity of c
func (ParityLattice) Const(c int64) Parity {
	if c%2 == 0 {
		return Even
	}
	return Odd
}

// Binary returns the parities of a op b. Nothing is known about quotients and remainders.
func (ParityLattice) Binary(op program.BinOp, a, b Parity) Parity {
	if a == ParityBottom || b == ParityBottom {
		return ParityBottom
	}
	res := ParityBottom
	for _, x := range []Parity{Even, Odd} {
		if a&x == 0 {
			continue
		}
		for _, y := range []Parity{Even, Odd} {
			if b&y == 0 {
				continue
			}
			switch op {
			case program.Add, program.Sub:
				if x == y {
					res |= Even
				} else {
					res |= Odd
				}
			case program.Mul:
				if x == Odd && y == Odd {
					res |= Odd
				} else {
					res |= Even
				}
			default:
				res |= ParityTop
			}
		}
	}
	return res
}

// Neg preserves the parity
func (ParityLattice) Neg(a Parity) Parity { return a }

// Refine intersects the parities of equal values
func (ParityLattice) Refine(op program.CmpOp, x, y Parity) (Parity, Parity) {
	if op == program.Eq {
		return x & y, x & y
	}
	if x == ParityBottom || y == ParityBottom {
		return ParityBottom, ParityBottom
	}
	return x, y
}

// Formula returns the parity condition of e
func (ParityLattice) Formula(e program.Expr, v Parity) program.Cond {
	switch v {
	case ParityBottom:
		return program.False
	case Even:
		return program.Compare(program.Rem(e, program.C(2)), program.Eq, program.C(0))
	case Odd:
		return program.Compare(program.Rem(e, program.C(2)), program.Ne, program.C(0))
	}
	return program.True
}

func (ParityLattice) String(v Parity) string { return v.String() }
