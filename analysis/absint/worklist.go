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
	"container/heap"

	"github.com/awslabs/ar-go-absint/analysis/program"
)

// worklistItem is a location pending processing. Items are ordered by rank, then by insertion order.
type worklistItem struct {
	loc  *program.Location
	rank int
	seq  int
}

// worklist is a priority queue of locations, implementing heap.Interface
type worklist []worklistItem

func (w worklist) Len() int { return len(w) }

func (w worklist) Less(i, j int) bool {
	if w[i].rank != w[j].rank {
		return w[i].rank < w[j].rank
	}
	return w[i].seq < w[j].seq
}

func (w worklist) Swap(i, j int) { w[i], w[j] = w[j], w[i] }

func (w *worklist) Push(x any) { *w = append(*w, x.(worklistItem)) }

func (w *worklist) Pop() any {
	old := *w
	n := len(old)
	item := old[n-1]
	*w = old[:n-1]
	return item
}

// enqueue adds l to the worklist if it is not already there
func (r *run) enqueue(l *program.Location) {
	if r.queued[l] {
		return
	}
	r.queued[l] = true
	heap.Push(&r.queue, worklistItem{loc: l, rank: r.rank(l), seq: r.seq})
	r.seq++
	if r.queue.Len() > r.result.Stats.MaxWorklistLen {
		r.result.Stats.MaxWorklistLen = r.queue.Len()
	}
}

// dequeue removes the location with the lowest rank from the worklist
func (r *run) dequeue() *program.Location {
	item := heap.Pop(&r.queue).(worklistItem)
	delete(r.queued, item.loc)
	return item.loc
}
