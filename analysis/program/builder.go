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
)

// A Builder constructs a Program. Transitions to procedures are resolved when Build is called, so procedures can be
// declared in any order.
//
// Example:
//
//	b := NewBuilder()
//	x := IntVar("x")
//	main := b.Procedure("main", nil, nil, []Var{x}).Initial()
//	main.Edge(main.Entry(), main.Exit(), Set(x, C(0)))
//	prog, err := b.Build()
type Builder struct {
	prog  *Program
	calls []pendingCall
	err   error
}

type pendingCall struct {
	caller *Procedure
	source *Location
	target *Location
	callee string
	args   []Expr
	lhs    []Var
}

// NewBuilder returns a builder for an empty program
func NewBuilder() *Builder {
	return &Builder{prog: &Program{}}
}

// Global declares global variables
func (b *Builder) Global(vars ...Var) *Builder {
	b.prog.Globals = append(b.prog.Globals, vars...)
	return b
}

// Declare declares a procedure without body. Calls to such a procedure havoc the variables assigned by the call and
// the globals in modifies.
func (b *Builder) Declare(name string, params, outs, modifies []Var) *Procedure {
	proc := &Procedure{Name: name, Params: params, Outs: outs, Modifies: modifies, prog: b.prog}
	b.prog.Procedures = append(b.prog.Procedures, proc)
	return proc
}

// Procedure declares a procedure with a body. Its entry and exit locations are created immediately.
func (b *Builder) Procedure(name string, params, outs, locals []Var) *ProcedureBuilder {
	proc := &Procedure{Name: name, Params: params, Outs: outs, Locals: locals, HasBody: true, prog: b.prog}
	b.prog.Procedures = append(b.prog.Procedures, proc)
	pb := &ProcedureBuilder{b: b, Proc: proc, labels: map[string]*Location{}}
	proc.Entry = pb.Loc("entry")
	proc.Exit = pb.Loc("exit")
	return pb
}

// Build resolves the calls, finalizes the program and returns it. The builder must not be used afterwards.
func (b *Builder) Build() (*Program, error) {
	if b.err != nil {
		return nil, b.err
	}
	for _, proc := range b.prog.Procedures {
		proc.computeScope(b.prog.Globals)
	}
	for _, c := range b.calls {
		if err := b.resolve(c); err != nil {
			return nil, err
		}
	}
	if err := b.prog.Finalize(); err != nil {
		return nil, err
	}
	return b.prog, nil
}

// resolve adds the transitions of a call: a Call and a Return transition for each implementation of the callee, or
// a Summary transition when the callee has no implementation.
func (b *Builder) resolve(c pendingCall) error {
	decls := b.prog.Declarations(c.callee)
	if len(decls) == 0 {
		return fmt.Errorf("%s calls undeclared procedure %s", c.caller.Name, c.callee)
	}
	impls := b.prog.Implementations(c.callee)
	if len(impls) == 0 {
		b.addTransition(&Transition{
			Kind:       Summary,
			Source:     c.source,
			Target:     c.target,
			Callee:     c.callee,
			Args:       c.args,
			LHS:        c.lhs,
			CallSite:   c.source,
			ReturnSite: c.target,
		})
		return nil
	}
	for _, impl := range impls {
		call := &Transition{
			Kind:       Call,
			Source:     c.source,
			Target:     impl.Entry,
			Callee:     c.callee,
			Args:       c.args,
			CallSite:   c.source,
			ReturnSite: c.target,
		}
		b.addTransition(call)
		ret := &Transition{
			Kind:       Return,
			Source:     impl.Exit,
			Target:     c.target,
			Callee:     c.callee,
			LHS:        c.lhs,
			Call:       call,
			CallSite:   c.source,
			ReturnSite: c.target,
		}
		b.addTransition(ret)
		call.Returns = append(call.Returns, ret)
	}
	return nil
}

func (b *Builder) addTransition(t *Transition) *Transition {
	t.ID = len(b.prog.Transitions)
	b.prog.Transitions = append(b.prog.Transitions, t)
	t.Source.outgoing = append(t.Source.outgoing, t)
	t.Target.incoming = append(t.Target.incoming, t)
	return t
}

// A ProcedureBuilder adds locations and transitions to the body of a procedure
type ProcedureBuilder struct {
	b      *Builder
	Proc   *Procedure
	labels map[string]*Location
}

// Entry returns the entry location of the procedure
func (pb *ProcedureBuilder) Entry() *Location { return pb.Proc.Entry }

// Exit returns the exit location of the procedure
func (pb *ProcedureBuilder) Exit() *Location { return pb.Proc.Exit }

// Initial marks the entry of the procedure as an initial location
func (pb *ProcedureBuilder) Initial() *ProcedureBuilder {
	pb.Proc.Entry.IsInitial = true
	return pb
}

// Loc returns the location with the given label, creating it if necessary
func (pb *ProcedureBuilder) Loc(label string) *Location {
	if l, ok := pb.labels[label]; ok {
		return l
	}
	l := &Location{ID: len(pb.b.prog.Locations), Label: label, Procedure: pb.Proc}
	pb.b.prog.Locations = append(pb.b.prog.Locations, l)
	pb.Proc.Locations = append(pb.Proc.Locations, l)
	pb.labels[label] = l
	return l
}

// ErrorLoc returns the location with the given label, marked as an error location
func (pb *ProcedureBuilder) ErrorLoc(label string) *Location {
	l := pb.Loc(label)
	l.IsError = true
	return l
}

// Edge adds an internal transition from src to dst executing stmts
func (pb *ProcedureBuilder) Edge(src, dst *Location, stmts ...Statement) *Transition {
	if !pb.owns(src) || !pb.owns(dst) {
		pb.fail(fmt.Errorf("edge %s -> %s leaves procedure %s", src, dst, pb.Proc.Name))
		return nil
	}
	return pb.b.addTransition(&Transition{Kind: Internal, Source: src, Target: dst, Stmts: stmts})
}

// Call adds a call from src to callee with arguments args, returning to dst where the outputs of callee are
// assigned to lhs.
func (pb *ProcedureBuilder) Call(src, dst *Location, callee string, args []Expr, lhs []Var) {
	if !pb.owns(src) || !pb.owns(dst) {
		pb.fail(fmt.Errorf("call %s -> %s leaves procedure %s", src, dst, pb.Proc.Name))
		return
	}
	pb.b.calls = append(pb.b.calls, pendingCall{
		caller: pb.Proc,
		source: src,
		target: dst,
		callee: callee,
		args:   args,
		lhs:    lhs,
	})
}

func (pb *ProcedureBuilder) owns(l *Location) bool {
	return l != nil && l.Procedure == pb.Proc
}

func (pb *ProcedureBuilder) fail(err error) {
	if pb.b.err == nil {
		pb.b.err = err
	}
}
