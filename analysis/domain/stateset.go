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

// Bound returns the states of a set of disjuncts that are not bottom. If there are more than maxParallel of them,
// they are folded into a single state with the merge operator of d.
func Bound(d Domain, states []State, maxParallel int) []State {
	var live []State
	for _, s := range states {
		if !s.IsBottom() {
			live = append(live, s)
		}
	}
	if len(live) <= maxParallel {
		return live
	}
	return []State{Join(d, live)}
}

// Join merges all the states with the merge operator of d. It returns nil when states is empty.
func Join(d Domain, states []State) State {
	if len(states) == 0 {
		return nil
	}
	joined := states[0]
	for _, s := range states[1:] {
		joined = d.Merge(joined, s)
	}
	return joined
}

// IsSubsumedBySet returns true when s is subsumed by one of the states of set
func IsSubsumedBySet(d Domain, s State, set []State) bool {
	if s.IsBottom() {
		return true
	}
	for _, x := range set {
		if d.IsSubsumedBy(s, x) {
			return true
		}
	}
	return false
}

// SetIsSubsumedBy returns true when every state of a is subsumed by a state of b
func SetIsSubsumedBy(d Domain, a, b []State) bool {
	for _, s := range a {
		if !IsSubsumedBySet(d, s, b) {
			return false
		}
	}
	return true
}

// WidenSets widens the set of disjuncts old with the set of disjuncts new. Both sets are folded into a single
// state first, so that the result always has at most one element and widening sequences stabilize.
func WidenSets(d Domain, old, new []State) []State {
	o := Join(d, Bound(d, old, 1))
	n := Join(d, Bound(d, new, 1))
	switch {
	case o == nil && n == nil:
		return nil
	case o == nil:
		return []State{n}
	case n == nil:
		return []State{o}
	}
	return Bound(d, []State{d.Widen(o, d.Merge(o, n))}, 1)
}
