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

// Type is the type of a program variable. Domains only track variables of type Int and Bool
type Type int

const (
	// Unsupported is the type of the variables that no domain tracks. Their value is always unconstrained.
	Unsupported Type = iota
	// Int is the type of mathematical integers
	Int
	// Bool is the type of booleans, represented by the integers 0 and 1
	Bool
)

func (t Type) String() string {
	switch t {
	case Int:
		return "int"
	case Bool:
		return "bool"
	default:
		return "unsupported"
	}
}

// Var is a program variable. Variables are identified by their name within a procedure's scope.
type Var struct {
	Name string
	Type Type
}

// IntVar returns an integer variable
func IntVar(name string) Var { return Var{Name: name, Type: Int} }

// BoolVar returns a boolean variable
func BoolVar(name string) Var { return Var{Name: name, Type: Bool} }

func (v Var) String() string { return v.Name }

// IndexOf returns the index of the variable named name in vars, or -1 if there is none.
func IndexOf(vars []Var, name string) int {
	for i, v := range vars {
		if v.Name == name {
			return i
		}
	}
	return -1
}

// SameVars returns true when a and b contain the same variables in the same order.
func SameVars(a, b []Var) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Procedure is a procedure of the program. A procedure may have several declarations with the same name;
// only the ones with a body (HasBody) are implementations.
type Procedure struct {
	Name string

	// Params are the formal input parameters
	Params []Var

	// Outs are the formal output parameters. Returning from the procedure copies them into the call's LHS.
	Outs []Var

	// Locals are the other variables of the procedure
	Locals []Var

	// Modifies lists the globals a procedure without body may modify
	Modifies []Var

	// HasBody is true if the procedure has an implementation (Entry and Exit are non-nil)
	HasBody bool

	// Entry is the unique entry location of the procedure body
	Entry *Location

	// Exit is the unique exit location of the procedure body
	Exit *Location

	// Locations are all the locations of the procedure body, including Entry and Exit
	Locations []*Location

	prog  *Program
	scope []Var
}

// Scope returns the variable universe of the procedure: globals, then parameters, outputs and locals.
// Duplicate names are only included once.
func (p *Procedure) Scope() []Var {
	return p.scope
}

func (p *Procedure) computeScope(globals []Var) {
	var scope []Var
	seen := map[string]bool{}
	for _, group := range [][]Var{globals, p.Params, p.Outs, p.Locals} {
		for _, v := range group {
			if !seen[v.Name] {
				seen[v.Name] = true
				scope = append(scope, v)
			}
		}
	}
	p.scope = scope
}

func (p *Procedure) String() string {
	return p.Name
}

// Location is a node of the program graph.
type Location struct {
	// ID is unique in the program
	ID int

	// Label is the name of the location, unique in its procedure
	Label string

	// Procedure is the procedure the location belongs to
	Procedure *Procedure

	// IsInitial marks the locations where an analysis may start
	IsInitial bool

	// IsError marks the locations that must not be reached
	IsError bool

	isLoopHead bool
	outgoing   []*Transition
	incoming   []*Transition
}

// Outgoing returns the transitions whose source is l
func (l *Location) Outgoing() []*Transition { return l.outgoing }

// Incoming returns the transitions whose target is l
func (l *Location) Incoming() []*Transition { return l.incoming }

// IsLoopHead returns true if l is a loop head (computed by the Builder)
func (l *Location) IsLoopHead() bool { return l.isLoopHead }

func (l *Location) String() string {
	if l == nil {
		return "<nil>"
	}
	if l.Procedure == nil {
		return l.Label
	}
	return l.Procedure.Name + "." + l.Label
}

// TransitionKind is the kind of a transition
type TransitionKind int

const (
	// Internal transitions are intra-procedural and carry statements
	Internal TransitionKind = iota + 1
	// Call transitions go from a call site to a callee's entry
	Call
	// Return transitions go from a callee's exit to the return site of a call
	Return
	// Summary transitions go from a call site to its return site
	Summary
)

func (k TransitionKind) String() string {
	switch k {
	case Internal:
		return "internal"
	case Call:
		return "call"
	case Return:
		return "return"
	case Summary:
		return "summary"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Transition is an edge of the program graph.
type Transition struct {
	// ID is unique in the program
	ID int

	Kind   TransitionKind
	Source *Location
	Target *Location

	// Stmts is the transformer of Internal transitions
	Stmts []Statement

	// Callee is the name of the called procedure for Call, Return and Summary transitions
	Callee string

	// Args are the actual arguments of a Call or Summary transition
	Args []Expr

	// LHS are the variables of the caller assigned by a Return or Summary transition
	LHS []Var

	// Call is the call transition matched with a Return transition
	Call *Transition

	// CallSite is the location of the call for Return transitions, and the source for Call and Summary transitions
	CallSite *Location

	// ReturnSite is the location control returns to in the caller for Call, Return and Summary transitions
	ReturnSite *Location

	// Returns lists the return transitions matched with a Call transition
	Returns []*Transition
}

func (t *Transition) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s -> %s [%s", t.Source, t.Target, t.Kind)
	switch t.Kind {
	case Internal:
		for _, s := range t.Stmts {
			b.WriteString(" ")
			b.WriteString(s.String())
			b.WriteString(";")
		}
	case Call:
		fmt.Fprintf(&b, " %s(%s)", t.Callee, exprList(t.Args))
	case Return, Summary:
		fmt.Fprintf(&b, " %s := %s(...)", varList(t.LHS), t.Callee)
	}
	b.WriteString("]")
	return b.String()
}

func exprList(es []Expr) string {
	s := make([]string, len(es))
	for i, e := range es {
		s[i] = e.String()
	}
	return strings.Join(s, ", ")
}

func varList(vs []Var) string {
	s := make([]string, len(vs))
	for i, v := range vs {
		s[i] = v.Name
	}
	return strings.Join(s, ", ")
}
