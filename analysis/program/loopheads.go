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
	"github.com/awslabs/ar-go-absint/internal/graphutil"
)

// computeLoopHeads marks the loop heads of the program. Within a procedure, the loop heads are the targets of
// back-edges of the control-flow graph, where calls are seen as edges from the call site to the return site.
// Cycles going through calls are cut at the entries of recursive procedures and at the return sites of the
// recursive calls. Every cycle of the program graph contains a loop head.
func (p *Program) computeLoopHeads() {
	for _, l := range p.Locations {
		l.isLoopHead = false
	}
	for _, proc := range p.Procedures {
		if !proc.HasBody {
			continue
		}
		g := graphutil.NewGraph[*Location]()
		for _, l := range proc.Locations {
			g.AddNode(int64(l.ID), l)
		}
		for _, l := range proc.Locations {
			for _, t := range l.outgoing {
				switch t.Kind {
				case Internal, Summary:
					g.AddEdge(int64(t.Source.ID), int64(t.Target.ID))
				case Call:
					g.AddEdge(int64(t.CallSite.ID), int64(t.ReturnSite.ID))
				}
			}
		}
		for id := range graphutil.LoopHeads(g, int64(proc.Entry.ID)) {
			p.Locations[id].isLoopHead = true
		}
	}

	recursive := p.recursiveProcedures()
	for _, t := range p.Transitions {
		if t.Kind != Call {
			continue
		}
		callee := t.Target.Procedure
		caller := t.Source.Procedure
		if recursive[callee] != nil && recursive[callee] == recursive[caller] {
			callee.Entry.isLoopHead = true
			t.ReturnSite.isLoopHead = true
		}
	}

	// A procedure called from several sites closes cycles through its exit and the return sites of the calls.
	super := graphutil.NewGraph[*Location]()
	heads := map[int64]bool{}
	for _, l := range p.Locations {
		super.AddNode(int64(l.ID), l)
		if l.isLoopHead {
			heads[int64(l.ID)] = true
		}
	}
	for _, t := range p.Transitions {
		super.AddEdge(int64(t.Source.ID), int64(t.Target.ID))
	}
	graphutil.CoverCycles(super, heads)
	for id := range heads {
		p.Locations[id].isLoopHead = true
	}
}

// recursiveProcedures maps every procedure that belongs to a cycle of the call graph to a representative of its
// strongly connected component.
func (p *Program) recursiveProcedures() map[*Procedure]*Procedure {
	callees := map[*Procedure][]*Procedure{}
	for _, t := range p.Transitions {
		if t.Kind == Call {
			callees[t.Source.Procedure] = append(callees[t.Source.Procedure], t.Target.Procedure)
		}
	}
	sccs := graphutil.StronglyConnectedComponents(p.Procedures,
		func(proc *Procedure) []*Procedure { return callees[proc] })
	rep := map[*Procedure]*Procedure{}
	for _, scc := range sccs {
		cyclic := len(scc) > 1
		if len(scc) == 1 {
			for _, c := range callees[scc[0]] {
				if c == scc[0] {
					cyclic = true
				}
			}
		}
		if cyclic {
			for _, proc := range scc {
				rep[proc] = scc[0]
			}
		}
	}
	return rep
}
