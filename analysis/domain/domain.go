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

// Package domain defines the contract between the fixpoint engine and the abstract domains, and implements the
// parts shared by all domains: bounded sets of disjuncts, the threading of statements through a state, the
// interprocedural transfer functions and the composition of several domains.
//
// Abstract states are immutable values: every operation returns a new state and never modifies its operands, so
// states can be shared between locations and disjuncts without copying.
package domain

import (
	"github.com/awslabs/ar-go-absint/analysis/program"
)

// State is an abstract state: an over-approximation of a set of concrete program states over a fixed variable
// universe.
type State interface {
	// IsBottom returns true when the state represents no concrete state
	IsBottom() bool

	// Variables returns the variable universe of the state
	Variables() []program.Var

	// Formula returns a condition satisfied by every concrete state represented by the state
	Formula() program.Cond

	String() string
}

// Domain is an abstract domain. The lattice operations of a domain only accept states created by the same domain,
// and panic otherwise.
type Domain interface {
	// Name is the identifier of the domain
	Name() string

	// Precision orders domains in reports. It never changes the semantics of the analysis.
	Precision() int

	// FreshState returns the top state over scope
	FreshState(scope []program.Var) State

	// Merge returns an upper bound of a and b
	Merge(a, b State) State

	// Widen returns an upper bound of old and new such that any sequence w(i+1) = Widen(w(i), x(i)) stabilizes
	Widen(old, new State) State

	// IsSubsumedBy returns true when every concrete state of a is a concrete state of b
	IsSubsumedBy(a, b State) bool

	// Post returns the post-operator of the domain
	Post() PostOperator
}

// PostOperator computes the successors of abstract states along transitions
type PostOperator interface {
	// Apply returns the successors of s along t, for transitions of kind Internal, Call and Summary.
	// An empty result means the transition is infeasible from s.
	Apply(s State, t *program.Transition) ([]State, error)

	// ApplyReturn returns the successors along the return transition t, where exit is a state at the exit of the
	// callee and callerPre is a state at the call site of the matched call.
	ApplyReturn(exit, callerPre State, t *program.Transition) ([]State, error)
}

// VarPair maps a variable of a source scope to a variable of a target scope
type VarPair struct {
	From program.Var
	To   program.Var
}

// Transformer is implemented by the concrete domains. It provides the primitive operations the generic
// StatementPost builds the transfer functions with.
type Transformer interface {
	Domain

	// Tracks returns true if the domain represents the values of variables of type t
	Tracks(t program.Type) bool

	// Assign returns the state after the assignment v := e
	Assign(s State, v program.Var, e program.Expr) State

	// Constrain returns the state restricted to the concrete states satisfying c. The operator of c is never Ne.
	Constrain(s State, c program.Cmp) State

	// Havoc returns the state where vars are unconstrained
	Havoc(s State, vars []program.Var) State

	// AddVariables returns the state extended with unconstrained variables
	AddVariables(s State, vars []program.Var) State

	// RemoveVariables returns the projection of the state on its other variables
	RemoveVariables(s State, vars []program.Var) State

	// CopyValuesOnScopeChange returns target where the variables p.To are replaced with the values of the variables
	// p.From in source, for every pair p. Relations between the copied variables are preserved.
	CopyValuesOnScopeChange(target, source State, pairs []VarPair) State
}
