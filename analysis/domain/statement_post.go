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

package domain

import (
	"fmt"

	"github.com/awslabs/ar-go-absint/analysis/program"
)

// StatementPost is the post-operator of concrete domains. It threads sets of disjuncts through the statements of
// transitions using the primitive operations of a Transformer, and implements calls and returns by changing the
// scope of states.
type StatementPost struct {
	d           Transformer
	maxParallel int
}

// NewStatementPost returns the post-operator of d that keeps at most maxParallel disjuncts after each statement.
func NewStatementPost(d Transformer, maxParallel int) (*StatementPost, error) {
	if maxParallel < 1 {
		return nil, fmt.Errorf("%w: the maximum number of parallel states must be at least 1, got %d",
			ErrInvalidArgument, maxParallel)
	}
	return &StatementPost{d: d, maxParallel: maxParallel}, nil
}

// MaxParallelStates returns the maximum number of disjuncts kept by the operator
func (p *StatementPost) MaxParallelStates() int {
	return p.maxParallel
}

// Apply implements PostOperator
func (p *StatementPost) Apply(s State, t *program.Transition) ([]State, error) {
	switch t.Kind {
	case program.Internal:
		return p.ApplyStatements([]State{s}, t.Stmts), nil
	case program.Call:
		return p.applyCall(s, t)
	case program.Summary:
		return p.applySummary(s, t), nil
	case program.Return:
		return nil, unsupported(t, "return transitions need the state of the call site")
	default:
		return nil, unsupported(t, "unknown transition kind %s", t.Kind)
	}
}

// ApplyStatements returns the set of disjuncts obtained by executing stmts from the states
func (p *StatementPost) ApplyStatements(states []State, stmts []program.Statement) []State {
	states = Bound(p.d, states, p.maxParallel)
	for _, stmt := range stmts {
		var next []State
		for _, s := range states {
			next = append(next, p.applyStatement(s, stmt)...)
		}
		states = Bound(p.d, next, p.maxParallel)
		if len(states) == 0 {
			return nil
		}
	}
	return states
}

func (p *StatementPost) applyStatement(s State, stmt program.Statement) []State {
	switch x := stmt.(type) {
	case program.Assign:
		return []State{p.assign(s, x.LHS, x.RHS)}
	case program.Assume:
		return p.assume(s, x.Cond)
	case program.Havoc:
		return []State{p.havoc(s, x.Vars)}
	default:
		panic(fmt.Sprintf("unknown statement %T", stmt))
	}
}

// tracked returns true if every variable of vars is tracked by the domain
func (p *StatementPost) tracked(vars []program.Var) bool {
	for _, v := range vars {
		if !p.d.Tracks(v.Type) {
			return false
		}
	}
	return true
}

func (p *StatementPost) assignOne(s State, v program.Var, e program.Expr) State {
	if !p.d.Tracks(v.Type) {
		return s
	}
	if !p.tracked(program.ExprVars(e)) {
		return p.havoc(s, []program.Var{v})
	}
	s = p.d.Assign(s, v, e)
	if v.Type == program.Bool {
		s = p.boolRange(s, v)
	}
	return s
}

// assign executes a parallel assignment. When there are several targets, the values are first assigned to
// temporary variables.
func (p *StatementPost) assign(s State, lhs []program.Var, rhs []program.Expr) State {
	if len(lhs) == 1 {
		return p.assignOne(s, lhs[0], rhs[0])
	}
	temps := make([]program.Var, len(lhs))
	for i, v := range lhs {
		temps[i] = program.Var{Name: fmt.Sprintf("%%par%d.%s", i, v.Name), Type: v.Type}
	}
	s = p.d.AddVariables(s, temps)
	for i := range lhs {
		s = p.assignOne(s, temps[i], rhs[i])
	}
	for i := range lhs {
		s = p.assignOne(s, lhs[i], program.V(temps[i]))
	}
	return p.d.RemoveVariables(s, temps)
}

// assume splits s along the disjunctive normal form of c. Comparisons over variables the domain does not track
// are ignored.
func (p *StatementPost) assume(s State, c program.Cond) []State {
	var res []State
	for _, conj := range program.DNF(c) {
		st := s
		for _, cmp := range conj {
			if !p.tracked(program.CondVars(cmp)) {
				continue
			}
			st = p.d.Constrain(st, cmp)
			if st.IsBottom() {
				break
			}
		}
		if !st.IsBottom() {
			res = append(res, st)
		}
	}
	return res
}

func (p *StatementPost) havoc(s State, vars []program.Var) State {
	var tracked []program.Var
	for _, v := range vars {
		if p.d.Tracks(v.Type) {
			tracked = append(tracked, v)
		}
	}
	if len(tracked) == 0 {
		return s
	}
	s = p.d.Havoc(s, tracked)
	for _, v := range tracked {
		if v.Type == program.Bool {
			s = p.boolRange(s, v)
		}
	}
	return s
}

func (p *StatementPost) boolRange(s State, v program.Var) State {
	s = p.d.Constrain(s, program.Cmp{Op: program.Ge, X: program.V(v), Y: program.C(0)})
	return p.d.Constrain(s, program.Cmp{Op: program.Le, X: program.V(v), Y: program.C(1)})
}

// implementation returns the unique implementation of the procedure called by t
func implementation(t *program.Transition) (*program.Procedure, error) {
	impls := t.Implementations()
	switch len(impls) {
	case 0:
		return nil, unsupported(t, "procedure %s has no implementation", t.Callee)
	case 1:
		return impls[0], nil
	default:
		return nil, unsupported(t, "procedure %s has %d implementations", t.Callee, len(impls))
	}
}

// applyCall evaluates the arguments of the call in the scope of the caller, in temporary variables, and copies them
// into the parameters of a fresh state in the scope of the callee. Globals are copied too.
func (p *StatementPost) applyCall(s State, t *program.Transition) ([]State, error) {
	callee, err := implementation(t)
	if err != nil {
		return nil, err
	}
	if len(t.Args) != len(callee.Params) {
		return nil, unsupported(t, "%d arguments for %d parameters", len(t.Args), len(callee.Params))
	}
	if s.IsBottom() {
		return nil, nil
	}
	var temps []program.Var
	var args []program.Expr
	var pairs []VarPair
	for i, param := range callee.Params {
		if !p.d.Tracks(param.Type) {
			continue
		}
		temp := program.Var{Name: "%arg." + param.Name, Type: param.Type}
		temps = append(temps, temp)
		args = append(args, t.Args[i])
		pairs = append(pairs, VarPair{From: temp, To: param})
	}
	withArgs := p.d.AddVariables(s, temps)
	for i, temp := range temps {
		withArgs = p.assignOne(withArgs, temp, args[i])
	}
	pairs = append(pairs, p.globalPairs(callee)...)
	succ := p.d.CopyValuesOnScopeChange(p.d.FreshState(callee.Scope()), withArgs, pairs)
	if succ.IsBottom() {
		return nil, nil
	}
	return []State{succ}, nil
}

func (p *StatementPost) globalPairs(proc *program.Procedure) []VarPair {
	var pairs []VarPair
	for _, v := range proc.Scope() {
		if p.d.Tracks(v.Type) && isGlobal(proc, v) {
			pairs = append(pairs, VarPair{From: v, To: v})
		}
	}
	return pairs
}

func isGlobal(proc *program.Procedure, v program.Var) bool {
	for _, group := range [][]program.Var{proc.Params, proc.Outs, proc.Locals} {
		if program.IndexOf(group, v.Name) >= 0 {
			return false
		}
	}
	return true
}

// ApplyReturn implements PostOperator: the outputs of the callee in exit are copied into the variables assigned by
// the call in callerPre, together with the globals.
func (p *StatementPost) ApplyReturn(exit, callerPre State, t *program.Transition) ([]State, error) {
	if t.Kind != program.Return || t.Call == nil {
		return nil, unsupported(t, "not a return transition")
	}
	if _, err := implementation(t.Call); err != nil {
		return nil, err
	}
	callee := t.Source.Procedure
	if len(t.LHS) != len(callee.Outs) {
		return nil, unsupported(t, "%d variables assigned for %d outputs", len(t.LHS), len(callee.Outs))
	}
	if exit.IsBottom() || callerPre.IsBottom() {
		return nil, nil
	}
	var pairs []VarPair
	var lost []program.Var
	for i, out := range callee.Outs {
		lhs := t.LHS[i]
		switch {
		case !p.d.Tracks(lhs.Type):
		case !p.d.Tracks(out.Type):
			lost = append(lost, lhs)
		default:
			pairs = append(pairs, VarPair{From: out, To: lhs})
		}
	}
	for _, g := range p.globalPairs(callee) {
		if program.IndexOf(t.LHS, g.To.Name) < 0 {
			pairs = append(pairs, g)
		}
	}
	succ := p.d.CopyValuesOnScopeChange(callerPre, exit, pairs)
	succ = p.havoc(succ, lost)
	if succ.IsBottom() {
		return nil, nil
	}
	return []State{succ}, nil
}

// applySummary havocs the variables assigned by a call to a procedure without implementation, and the globals it
// modifies. Calls to procedures with an implementation go through Call and Return transitions instead, so their
// summary transitions have no successor.
func (p *StatementPost) applySummary(s State, t *program.Transition) []State {
	if len(t.Implementations()) > 0 || s.IsBottom() {
		return nil
	}
	states := p.ApplyStatements([]State{s}, t.Stmts)
	havocked := append([]program.Var{}, t.LHS...)
	for _, decl := range t.Declarations() {
		havocked = append(havocked, decl.Modifies...)
	}
	var res []State
	for _, st := range states {
		res = append(res, p.havoc(st, havocked))
	}
	return Bound(p.d, res, p.maxParallel)
}
