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
	"strings"
)

// An Expr is an integer expression
type Expr interface {
	isExpr()
	String() string
}

// Const is an integer constant
type Const struct {
	Value int64
}

// VarRef is a reference to a variable
type VarRef struct {
	Var Var
}

// BinOp is a binary arithmetic operator
type BinOp int

const (
	// Add is +
	Add BinOp = iota
	// Sub is -
	Sub
	// Mul is *
	Mul
	// Div is the integer division, truncated towards zero
	Div
	// Mod is the remainder of Div
	Mod
)

func (op BinOp) String() string {
	return [...]string{"+", "-", "*", "/", "%"}[op]
}

// Binary is a binary arithmetic operation
type Binary struct {
	Op BinOp
	X  Expr
	Y  Expr
}

// Neg is the arithmetic negation
type Neg struct {
	X Expr
}

// Nondet is an arbitrary value, for instance the result of an operation that is not modelled.
type Nondet struct{}

func (Const) isExpr()  {}
func (VarRef) isExpr() {}
func (Binary) isExpr() {}
func (Neg) isExpr()    {}
func (Nondet) isExpr() {}

func (c Const) String() string  { return fmt.Sprintf("%d", c.Value) }
func (v VarRef) String() string { return v.Var.Name }
func (b Binary) String() string { return fmt.Sprintf("(%s %s %s)", b.X, b.Op, b.Y) }
func (n Neg) String() string    { return fmt.Sprintf("-%s", n.X) }
func (Nondet) String() string   { return "*" }

// C returns the constant expression c
func C(c int64) Expr { return Const{c} }

// V returns the expression referencing v
func V(v Var) Expr { return VarRef{v} }

// Plus returns x + y
func Plus(x, y Expr) Expr { return Binary{Add, x, y} }

// Minus returns x - y
func Minus(x, y Expr) Expr { return Binary{Sub, x, y} }

// Times returns x * y
func Times(x, y Expr) Expr { return Binary{Mul, x, y} }

// Quo returns x / y
func Quo(x, y Expr) Expr { return Binary{Div, x, y} }

// Rem returns x % y
func Rem(x, y Expr) Expr { return Binary{Mod, x, y} }

// ExprVars returns the variables occurring in e, in order of first occurrence
func ExprVars(e Expr) []Var {
	var vars []Var
	seen := map[Var]bool{}
	var visit func(Expr)
	visit = func(e Expr) {
		switch x := e.(type) {
		case VarRef:
			if !seen[x.Var] {
				seen[x.Var] = true
				vars = append(vars, x.Var)
			}
		case Binary:
			visit(x.X)
			visit(x.Y)
		case Neg:
			visit(x.X)
		}
	}
	visit(e)
	return vars
}

// A Cond is a boolean condition over integer expressions
type Cond interface {
	isCond()
	String() string
}

// Truth is the constant condition true or false
type Truth struct {
	Value bool
}

// CmpOp is a comparison operator
type CmpOp int

const (
	// Lt is <
	Lt CmpOp = iota
	// Le is <=
	Le
	// Gt is >
	Gt
	// Ge is >=
	Ge
	// Eq is ==
	Eq
	// Ne is !=
	Ne
)

func (op CmpOp) String() string {
	return [...]string{"<", "<=", ">", ">=", "==", "!="}[op]
}

// Negate returns the operator op' such that x op' y iff !(x op y)
func (op CmpOp) Negate() CmpOp {
	return [...]CmpOp{Ge, Gt, Le, Lt, Ne, Eq}[op]
}

// Flip returns the operator op' such that x op' y iff y op x
func (op CmpOp) Flip() CmpOp {
	return [...]CmpOp{Gt, Ge, Lt, Le, Eq, Ne}[op]
}

// Holds returns the value of a op b
func (op CmpOp) Holds(a, b int64) bool {
	switch op {
	case Lt:
		return a < b
	case Le:
		return a <= b
	case Gt:
		return a > b
	case Ge:
		return a >= b
	case Eq:
		return a == b
	default:
		return a != b
	}
}

// Cmp is the comparison X Op Y
type Cmp struct {
	Op CmpOp
	X  Expr
	Y  Expr
}

// Not is the negation of a condition
type Not struct {
	C Cond
}

// And is the conjunction of conditions. The empty conjunction is true.
type And struct {
	Conds []Cond
}

// Or is the disjunction of conditions. The empty disjunction is false.
type Or struct {
	Conds []Cond
}

func (Truth) isCond() {}
func (Cmp) isCond()   {}
func (Not) isCond()   {}
func (And) isCond()   {}
func (Or) isCond()    {}

func (t Truth) String() string {
	if t.Value {
		return "true"
	}
	return "false"
}

func (c Cmp) String() string { return fmt.Sprintf("%s %s %s", c.X, c.Op, c.Y) }
func (n Not) String() string { return fmt.Sprintf("!(%s)", n.C) }

func (a And) String() string {
	if len(a.Conds) == 0 {
		return "true"
	}
	return joinConds(a.Conds, " && ")
}

func (o Or) String() string {
	if len(o.Conds) == 0 {
		return "false"
	}
	return joinConds(o.Conds, " || ")
}

func joinConds(conds []Cond, sep string) string {
	s := make([]string, len(conds))
	for i, c := range conds {
		switch c.(type) {
		case And, Or:
			s[i] = "(" + c.String() + ")"
		default:
			s[i] = c.String()
		}
	}
	return strings.Join(s, sep)
}

// True is the condition that always holds
var True Cond = Truth{true}

// False is the condition that never holds
var False Cond = Truth{false}

// Compare returns the condition x op y
func Compare(x Expr, op CmpOp, y Expr) Cond { return Cmp{op, x, y} }

// Conj returns the conjunction of the conditions, flattening nested conjunctions and removing trivially true
// conditions.
func Conj(conds ...Cond) Cond {
	var flat []Cond
	for _, c := range conds {
		switch x := c.(type) {
		case Truth:
			if !x.Value {
				return False
			}
		case And:
			switch inner := Conj(x.Conds...).(type) {
			case Truth:
				if !inner.Value {
					return False
				}
			case And:
				flat = append(flat, inner.Conds...)
			default:
				flat = append(flat, inner)
			}
		default:
			flat = append(flat, c)
		}
	}
	switch len(flat) {
	case 0:
		return True
	case 1:
		return flat[0]
	default:
		return And{flat}
	}
}

// Disj returns the disjunction of the conditions, flattening nested disjunctions and removing trivially false
// conditions.
func Disj(conds ...Cond) Cond {
	var flat []Cond
	for _, c := range conds {
		switch x := c.(type) {
		case Truth:
			if x.Value {
				return True
			}
		case Or:
			flat = append(flat, x.Conds...)
		default:
			flat = append(flat, c)
		}
	}
	switch len(flat) {
	case 0:
		return False
	case 1:
		return flat[0]
	default:
		return Or{flat}
	}
}
