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

// A Statement is an atomic operation of an internal transition
type Statement interface {
	isStatement()
	String() string
}

// Assign is the parallel assignment LHS[0], ..., LHS[n] := RHS[0], ..., RHS[n]. All right-hand sides are evaluated
// before any variable is assigned.
type Assign struct {
	LHS []Var
	RHS []Expr
}

// Assume blocks the executions where Cond does not hold
type Assume struct {
	Cond Cond
}

// Havoc assigns arbitrary values to Vars
type Havoc struct {
	Vars []Var
}

func (Assign) isStatement() {}
func (Assume) isStatement() {}
func (Havoc) isStatement()  {}

func (a Assign) String() string {
	return fmt.Sprintf("%s := %s", varList(a.LHS), exprList(a.RHS))
}

func (a Assume) String() string {
	return fmt.Sprintf("assume %s", a.Cond)
}

func (h Havoc) String() string {
	return fmt.Sprintf("havoc %s", varList(h.Vars))
}

// Set returns the assignment v := e
func Set(v Var, e Expr) Statement {
	return Assign{LHS: []Var{v}, RHS: []Expr{e}}
}

// Require returns the statement assume c
func Require(c Cond) Statement {
	return Assume{Cond: c}
}

// Forget returns the statement havoc vs
func Forget(vs ...Var) Statement {
	return Havoc{Vars: vs}
}

// StatementVars returns the variables occurring in s, without duplicates
func StatementVars(s Statement) []Var {
	var vars []Var
	seen := map[string]bool{}
	add := func(vs []Var) {
		for _, v := range vs {
			if !seen[v.Name] {
				seen[v.Name] = true
				vars = append(vars, v)
			}
		}
	}
	switch x := s.(type) {
	case Assign:
		add(x.LHS)
		for _, e := range x.RHS {
			add(ExprVars(e))
		}
	case Assume:
		add(CondVars(x.Cond))
	case Havoc:
		add(x.Vars)
	}
	return vars
}

// CondVars returns the variables occurring in c, in order of first occurrence
func CondVars(c Cond) []Var {
	var vars []Var
	seen := map[string]bool{}
	var visit func(Cond)
	visit = func(c Cond) {
		var es []Expr
		switch x := c.(type) {
		case Cmp:
			es = []Expr{x.X, x.Y}
		case Not:
			visit(x.C)
		case And:
			for _, c := range x.Conds {
				visit(c)
			}
		case Or:
			for _, c := range x.Conds {
				visit(c)
			}
		}
		for _, e := range es {
			for _, v := range ExprVars(e) {
				if !seen[v.Name] {
					seen[v.Name] = true
					vars = append(vars, v)
				}
			}
		}
	}
	visit(c)
	return vars
}

// StmtsString returns a compact representation of a sequence of statements
func StmtsString(stmts []Statement) string {
	s := make([]string, len(stmts))
	for i, st := range stmts {
		s[i] = st.String()
	}
	return strings.Join(s, "; ")
}
