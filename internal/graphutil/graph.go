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
	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/iterator"
)

// Graph is a directed graph over int64 node identifiers carrying labels of type T. It implements the methods to
// satisfy yourbasic's graph.Iterator and Gonum's graph.Directed, so that both libraries can be used on the same
// structure.
type Graph[T any] struct {
	// order is one more than the largest node id, which is what graph.Iterator expects
	order int

	// IDMap maps from node IDs to nodes
	IDMap map[int64]Node[T]

	// Keys are all the node IDs, sorted
	Keys []int64

	// Edges is an adjacency matrix: Edges[x][y] means there is a directed edge between IDMap[x] and IDMap[y]
	Edges map[int64]map[int64]bool

	// reverse[y][x] iff Edges[x][y]
	reverse map[int64]map[int64]bool
}

// NewGraph returns an empty graph
func NewGraph[T any]() *Graph[T] {
	return &Graph[T]{
		IDMap:   map[int64]Node[T]{},
		Edges:   map[int64]map[int64]bool{},
		reverse: map[int64]map[int64]bool{},
	}
}

// AddNode adds a node with the given id and label. Adding a node twice replaces its label.
func (c *Graph[T]) AddNode(id int64, label T) {
	if _, ok := c.IDMap[id]; !ok {
		idx, _ := slices.BinarySearch(c.Keys, id)
		c.Keys = slices.Insert(c.Keys, idx, id)
		c.Edges[id] = map[int64]bool{}
		c.reverse[id] = map[int64]bool{}
	}
	c.IDMap[id] = Node[T]{id: id, Label: label}
	if int(id)+1 > c.order {
		c.order = int(id) + 1
	}
}

// AddEdge adds a directed edge from x to y. Both nodes must have been added.
func (c *Graph[T]) AddEdge(x, y int64) {
	if _, ok := c.IDMap[x]; !ok {
		return
	}
	if _, ok := c.IDMap[y]; !ok {
		return
	}
	c.Edges[x][y] = true
	c.reverse[y][x] = true
}

// Order implements the order of the graph.Iterator interface for the Graph
func (c *Graph[T]) Order() int {
	return c.order
}

// Visit implements the graph.Iterator interface for the Graph
func (c *Graph[T]) Visit(v int, do func(w int, c int64) (skip bool)) (aborted bool) {
	if _, ok := c.IDMap[int64(v)]; !ok {
		return false
	}
	for _, w := range sortedKeys(c.Edges[int64(v)]) {
		if do(int(w), 1) {
			return true
		}
	}
	return false
}

// *************** Graph interface implementation **********************

// Node implements the Graph interface
func (c *Graph[T]) Node(id int64) graph.Node {
	n, ok := c.IDMap[id]
	if !ok {
		return nil
	}
	return n
}

// Nodes returns the set of nodes in the graph
func (c *Graph[T]) Nodes() graph.Nodes {
	return c.nodeIterator(c.Keys)
}

// From returns the set of nodes reachable from the id by one edge
func (c *Graph[T]) From(id int64) graph.Nodes {
	return c.nodeIterator(sortedKeys(c.Edges[id]))
}

// To returns the set of nodes that reach the id by one edge
func (c *Graph[T]) To(id int64) graph.Nodes {
	return c.nodeIterator(sortedKeys(c.reverse[id]))
}

// HasEdgeBetween returns a boolean indicating whether an edge exists between the two node identifiers
func (c *Graph[T]) HasEdgeBetween(xid, yid int64) bool {
	return c.Edges[xid][yid] || c.Edges[yid][xid]
}

// HasEdgeFromTo returns whether there is a directed edge from uid to vid
func (c *Graph[T]) HasEdgeFromTo(uid, vid int64) bool {
	return c.Edges[uid][vid]
}

// Edge returns the edge between the two identifiers (nil if none exists)
func (c *Graph[T]) Edge(uid, vid int64) graph.Edge {
	if c.Edges[uid][vid] {
		return Edge[T]{from: c.IDMap[uid], to: c.IDMap[vid]}
	}
	return nil
}

func (c *Graph[T]) nodeIterator(ids []int64) graph.Nodes {
	nodes := make([]graph.Node, 0, len(ids))
	for _, id := range ids {
		nodes = append(nodes, c.IDMap[id])
	}
	return iterator.NewOrderedNodes(nodes)
}

func sortedKeys(m map[int64]bool) []int64 {
	keys := make([]int64, 0, len(m))
	for k, b := range m {
		if b {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	return keys
}

// *************** Nodes implementation **********************

// Node is a labelled node that implements the graph.Node interface
type Node[T any] struct {
	id    int64
	Label T
}

// ID returns the id of the node
func (n Node[T]) ID() int64 {
	return n.id
}

// *************** Edge implementation **********************

// Edge implements the graph.Edge interface
type Edge[T any] struct {
	from Node[T]
	to   Node[T]
}

// From returns the origin of the edge
func (e Edge[T]) From() graph.Node {
	return e.from
}

// To returns the destination of the edge
func (e Edge[T]) To() graph.Node {
	return e.to
}

// ReversedEdge returns a new value representing the reversed edge
func (e Edge[T]) ReversedEdge() graph.Edge {
	return Edge[T]{from: e.to, to: e.from}
}
