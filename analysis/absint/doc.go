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

/*
Package absint implements a worklist fixpoint engine for abstract interpretation of program graphs.

The engine computes, for every reachable location of a [program.Program], a bounded set of abstract states of a
[domain.Domain] over-approximating the concrete states that reach the location. Loop heads are widened once they
have been updated more than the widening threshold, which guarantees termination.

Procedures are analyzed context-insensitively: the states at the entry of a procedure merge all the calling
contexts, and the successor of a return transition is recomputed whenever either the exit states of the callee or the
states at the call site change.

A non-bottom state reaching an error location is a candidate counterexample. Candidates are possible, not confirmed,
errors. A run that was cancelled or failed is incomplete, and its verdict is always [Unknown].
*/
package absint
