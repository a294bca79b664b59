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

package absint

import (
	"fmt"
	"strings"
	"time"

	"github.com/awslabs/ar-go-absint/analysis/domain"
	"github.com/awslabs/ar-go-absint/analysis/program"
	"github.com/google/uuid"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Verdict is the conclusion of a run about the reachability of error locations
type Verdict int

const (
	// Unknown is the verdict of incomplete runs
	Unknown Verdict = iota
	// Safe means no error location is reachable
	Safe
	// PossiblyUnsafe means some error location may be reachable. Candidates are not confirmed counterexamples.
	PossiblyUnsafe
)

func (v Verdict) String() string {
	switch v {
	case Safe:
		return "safe"
	case PossiblyUnsafe:
		return "possibly unsafe"
	default:
		return "unknown"
	}
}

// Counterexample is a candidate path to an error location
type Counterexample struct {
	// Location is the error location
	Location *program.Location

	// Transition is the transition through which the error location was reached. It is nil when the error
	// location is itself an initial location.
	Transition *program.Transition

	// Path is the chain of transitions from an initial location to Location, ending with Transition
	Path []*program.Transition

	// States are the states reaching Location through Transition when the candidate was last updated
	States []domain.State
}

func (c Counterexample) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "error location %s reached", c.Location)
	for _, t := range c.Path {
		fmt.Fprintf(&b, "\n\t%s", t)
	}
	return b.String()
}

// Stats are counters of a run
type Stats struct {
	// Pops is the number of locations taken from the worklist
	Pops int
	// PostApplications is the number of calls to the post operator
	PostApplications int
	// Merges is the number of location updates by merge
	Merges int
	// Widenings is the number of location updates by widening
	Widenings int
	// Narrowings is the number of location updates by narrowing passes
	Narrowings int
	// MaxWorklistLen is the largest size of the worklist
	MaxWorklistLen int
	// Duration is the wall-clock duration of the run
	Duration time.Duration
}

func (s Stats) String() string {
	return fmt.Sprintf("%d pops, %d posts, %d merges, %d widenings, %d narrowings, max worklist %d",
		s.Pops, s.PostApplications, s.Merges, s.Widenings, s.Narrowings, s.MaxWorklistLen)
}

// Result is the outcome of a run
type Result struct {
	// RunID identifies the run in logs and reports
	RunID uuid.UUID

	// Name is set by RunAll to the name of the job
	Name string

	// Domain is the domain of the states
	Domain domain.Domain

	// States maps every reached location to its set of disjuncts. Unreached locations are absent.
	States map[*program.Location][]domain.State

	// HasReachedError is true if a non-bottom state reached an error location
	HasReachedError bool

	// Counterexamples are the candidate paths to error locations
	Counterexamples []Counterexample

	Stats Stats

	// Complete is true when the run reached a fixpoint
	Complete bool

	// Err is the error that stopped an incomplete run
	Err error
}

// Verdict returns the verdict of the run. Incomplete runs are never safe nor unsafe.
func (r *Result) Verdict() Verdict {
	switch {
	case !r.Complete:
		return Unknown
	case r.HasReachedError:
		return PossiblyUnsafe
	default:
		return Safe
	}
}

// Locations returns the reached locations, ordered by ID
func (r *Result) Locations() []*program.Location {
	locs := maps.Keys(r.States)
	slices.SortFunc(locs, func(a, b *program.Location) bool { return a.ID < b.ID })
	return locs
}

// StatesAt returns the disjuncts at l, nil if l is unreached
func (r *Result) StatesAt(l *program.Location) []domain.State {
	return r.States[l]
}

// Invariant returns a condition holding at l: the disjunction of the formulas of the states at l. The invariant of
// unreached locations is false.
func (r *Result) Invariant(l *program.Location) program.Cond {
	states := r.States[l]
	conds := make([]program.Cond, 0, len(states))
	for _, s := range states {
		conds = append(conds, s.Formula())
	}
	return program.Disj(conds...)
}

// Invariants returns the invariant of every reached location
func (r *Result) Invariants() map[*program.Location]program.Cond {
	invs := make(map[*program.Location]program.Cond, len(r.States))
	for l := range r.States {
		invs[l] = r.Invariant(l)
	}
	return invs
}

// Implies returns true if every state at l entails cond, that is if assuming the negation of cond makes every state
// infeasible. It is vacuously true at unreached locations.
func (r *Result) Implies(l *program.Location, cond program.Cond) (bool, error) {
	check := &program.Transition{
		Kind:   program.Internal,
		Source: l,
		Target: l,
		Stmts:  []program.Statement{program.Require(program.Not{C: cond})},
	}
	for _, s := range r.States[l] {
		succ, err := r.Domain.Post().Apply(s, check)
		if err != nil {
			return false, err
		}
		for _, x := range succ {
			if !x.IsBottom() {
				return false, nil
			}
		}
	}
	return true, nil
}

func statesString(states []domain.State) string {
	if len(states) == 0 {
		return "bottom"
	}
	parts := make([]string, len(states))
	for i, s := range states {
		parts[i] = s.String()
	}
	return strings.Join(parts, " | ")
}
