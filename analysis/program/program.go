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

	"golang.org/x/exp/slices"
)

// Program is a program graph: a set of global variables, procedures, locations and transitions.
// A Program is immutable once it has been finalized.
type Program struct {
	// Globals are the global variables, visible in every procedure
	Globals []Var

	// Procedures are all the procedure declarations, in order of declaration
	Procedures []*Procedure

	// Locations are all the locations, indexed by their ID
	Locations []*Location

	// Transitions are all the transitions, indexed by their ID
	Transitions []*Transition

	finalized bool
}

// Declarations returns all the procedures declared with the given name
func (p *Program) Declarations(name string) []*Procedure {
	var decls []*Procedure
	for _, proc := range p.Procedures {
		if proc.Name == name {
			decls = append(decls, proc)
		}
	}
	return decls
}

// Implementations returns the procedures named name that have a body
func (p *Program) Implementations(name string) []*Procedure {
	var impls []*Procedure
	for _, proc := range p.Declarations(name) {
		if proc.HasBody {
			impls = append(impls, proc)
		}
	}
	return impls
}

// Successors returns the outgoing transitions of l
func (p *Program) Successors(l *Location) []*Transition {
	return l.outgoing
}

// FilterInitialElements returns the locations of locs that are initial locations of a procedure with a body,
// without duplicates and in order of first occurrence.
func (p *Program) FilterInitialElements(locs []*Location) []*Location {
	var initial []*Location
	seen := map[*Location]bool{}
	for _, l := range locs {
		if l == nil || seen[l] || !l.IsInitial || l.Procedure == nil || !l.Procedure.HasBody {
			continue
		}
		seen[l] = true
		initial = append(initial, l)
	}
	return initial
}

// InitialLocations returns all the initial locations of the program
func (p *Program) InitialLocations() []*Location {
	return p.FilterInitialElements(p.Locations)
}

// ErrorLocations returns all the error locations of the program
func (p *Program) ErrorLocations() []*Location {
	var errs []*Location
	for _, l := range p.Locations {
		if l.IsError {
			errs = append(errs, l)
		}
	}
	return errs
}

// IsLoopHead returns true when the target of t is a loop head
func (p *Program) IsLoopHead(t *Transition) bool {
	return t.Target != nil && t.Target.isLoopHead
}

// IsPostErrorLocation returns true when reaching l means an error has been reached
func (p *Program) IsPostErrorLocation(l *Location) bool {
	return l.IsError
}

// Procedure returns the implementation named name if there is exactly one, otherwise the first declaration named
// name. Returns nil if there is no such procedure.
func (p *Program) Procedure(name string) *Procedure {
	if impls := p.Implementations(name); len(impls) == 1 {
		return impls[0]
	}
	if decls := p.Declarations(name); len(decls) > 0 {
		return decls[0]
	}
	return nil
}

// Implementations returns the implementations of the procedure called by t, for transitions of kind Call, Return
// and Summary. It returns nil for transitions that do not belong to a program.
func (t *Transition) Implementations() []*Procedure {
	if t.Source == nil || t.Source.Procedure == nil || t.Source.Procedure.prog == nil {
		return nil
	}
	return t.Source.Procedure.prog.Implementations(t.Callee)
}

// Declarations returns the declarations of the procedure called by t
func (t *Transition) Declarations() []*Procedure {
	if t.Source == nil || t.Source.Procedure == nil || t.Source.Procedure.prog == nil {
		return nil
	}
	return t.Source.Procedure.prog.Declarations(t.Callee)
}

// Finalize validates the program and computes its loop heads. Finalize is idempotent.
func (p *Program) Finalize() error {
	if p.finalized {
		return nil
	}
	for _, proc := range p.Procedures {
		proc.prog = p
		proc.computeScope(p.Globals)
	}
	if err := p.validate(); err != nil {
		return err
	}
	p.computeLoopHeads()
	p.finalized = true
	return nil
}

func (p *Program) validate() error {
	globals := map[string]bool{}
	for _, g := range p.Globals {
		if globals[g.Name] {
			return fmt.Errorf("global %s is declared twice", g.Name)
		}
		globals[g.Name] = true
	}
	for _, proc := range p.Procedures {
		if proc.HasBody && (proc.Entry == nil || proc.Exit == nil) {
			return fmt.Errorf("procedure %s has a body but no entry or exit", proc.Name)
		}
		if !proc.HasBody && len(proc.Locations) > 0 {
			return fmt.Errorf("procedure %s has locations but no body", proc.Name)
		}
	}
	for i, l := range p.Locations {
		if l.ID != i {
			return fmt.Errorf("location %s has id %d at index %d", l, l.ID, i)
		}
	}
	for i, t := range p.Transitions {
		if t.ID != i {
			return fmt.Errorf("transition %s has id %d at index %d", t, t.ID, i)
		}
		if err := p.validateTransition(t); err != nil {
			return fmt.Errorf("invalid transition %s: %w", t, err)
		}
	}
	return nil
}

func (p *Program) validateTransition(t *Transition) error {
	if t.Source == nil || t.Target == nil {
		return fmt.Errorf("missing endpoint")
	}
	inScope := func(proc *Procedure, vars []Var) error {
		for _, v := range vars {
			if IndexOf(proc.Scope(), v.Name) < 0 {
				return fmt.Errorf("variable %s is not in the scope of %s", v.Name, proc.Name)
			}
		}
		return nil
	}
	switch t.Kind {
	case Internal, Summary:
		if t.Source.Procedure != t.Target.Procedure {
			return fmt.Errorf("%s transition crosses procedures", t.Kind)
		}
		for _, s := range t.Stmts {
			if a, ok := s.(Assign); ok && len(a.LHS) != len(a.RHS) {
				return fmt.Errorf("assignment %s has %d targets and %d values", a, len(a.LHS), len(a.RHS))
			}
			if err := inScope(t.Source.Procedure, StatementVars(s)); err != nil {
				return err
			}
		}
		if t.Kind == Summary {
			return inScope(t.Source.Procedure, t.LHS)
		}
	case Call:
		if t.Target != t.Target.Procedure.Entry {
			return fmt.Errorf("call does not target the entry of %s", t.Target.Procedure.Name)
		}
		if len(t.Args) != len(t.Target.Procedure.Params) {
			return fmt.Errorf("call has %d arguments, %s has %d parameters", len(t.Args),
				t.Callee, len(t.Target.Procedure.Params))
		}
		for _, arg := range t.Args {
			if err := inScope(t.Source.Procedure, ExprVars(arg)); err != nil {
				return err
			}
		}
	case Return:
		if t.Call == nil || t.Call.Kind != Call {
			return fmt.Errorf("return is not matched with a call")
		}
		if t.Source != t.Source.Procedure.Exit {
			return fmt.Errorf("return does not leave the exit of %s", t.Source.Procedure.Name)
		}
		if len(t.LHS) != len(t.Source.Procedure.Outs) {
			return fmt.Errorf("return assigns %d variables, %s has %d outputs", len(t.LHS), t.Callee,
				len(t.Source.Procedure.Outs))
		}
		return inScope(t.Target.Procedure, t.LHS)
	default:
		return fmt.Errorf("unknown transition kind %s", t.Kind)
	}
	return nil
}

// LocationsOf returns the locations of the procedure named name with a body, sorted by ID
func (p *Program) LocationsOf(name string) []*Location {
	var locs []*Location
	for _, proc := range p.Implementations(name) {
		locs = append(locs, proc.Locations...)
	}
	slices.SortFunc(locs, func(a, b *Location) bool { return a.ID < b.ID })
	return locs
}
