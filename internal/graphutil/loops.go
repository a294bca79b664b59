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


package graphutil

import (
	ybgraph "github.com/yourbasic/graph"
	"gonum.org/v1/gonum/graph/flow"
)

// Without returns a new graph that is the original graph without the nodes in exclude. Only the edges that have
// both the origin and destination nodes outside of exclude are kept in the resulting graph. Node identifiers are the
// same as in the original graph.
func (c *Graph[T]) Without(exclude map[int64]bool) *Graph[T] {
	sub := NewGraph[T]()
	for _, id := range c.Keys {
		if !exclude[id] {
			sub.AddNode(id, c.IDMap[id].Label)
		}
	}
	for _, id := range sub.Keys {
		for e := range c.Edges[id] {
			if !exclude[e] {
				sub.AddEdge(id, e)
			}
		}
	}
	return sub
}

// LoopHeads returns the identifiers of the nodes of g that head a loop when g is explored from root.
//
// A node v is a loop head if it is the target of a back-edge u -> v, that is v dominates u. In irreducible graphs
// some cycles have no dominating node: for those, the smallest node of each remaining strongly connected component is
// marked, until the graph without loop heads is acyclic. The result is therefore a feedback vertex set: every cycle
// of g contains at least one loop head.
func LoopHeads[T any](g *Graph[T], root int64) map[int64]bool {
	heads := map[int64]bool{}
	if rootNode := g.Node(root); rootNode != nil {
		dt := flow.Dominators(rootNode, g)
		for _, u := range g.Keys {
			for v := range g.Edges[u] {
				if dominates(dt, v, u) {
					heads[v] = true
				}
			}
		}
	}

	CoverCycles(g, heads)
	return heads
}

// CoverCycles adds nodes to heads until every cycle of g contains at least one node of heads. The smallest node of
// each cyclic strongly connected component of g without heads is added, until no such component remains.
func CoverCycles[T any](g *Graph[T], heads map[int64]bool) {
	for {
		rest := g.Without(heads)
		found := false
		for _, component := range ybgraph.StrongComponents(rest) {
			if !isCyclic(rest, component) {
				continue
			}
			smallest := int64(component[0])
			for _, x := range component {
				if int64(x) < smallest {
					smallest = int64(x)
				}
			}
			heads[smallest] = true
			found = true
		}
		if !found {
			return
		}
	}
}

// isCyclic returns true when the strongly connected component has a cycle, i.e. it has more than one node, or its
// single node has a self-loop. Components of identifiers that are not nodes of g are never cyclic.
func isCyclic[T any](g *Graph[T], component []int) bool {
	if len(component) > 1 {
		return true
	}
	if len(component) == 1 {
		x := int64(component[0])
		return g.Edges[x][x]
	}
	return false
}

// dominates returns true if v dominates u in the dominator tree. Nodes that are not reachable from the root of the
// tree are not dominated by any node.
func dominates(dt flow.DominatorTree, v, u int64) bool {
	if dt.Root() == nil {
		return false
	}
	if u != dt.Root().ID() && dt.DominatorOf(u) == nil {
		return false
	}
	for n := u; ; {
		if n == v {
			return true
		}
		d := dt.DominatorOf(n)
		if d == nil {
			return false
		}
		n = d.ID()
	}
}
