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
Package program defines the program graph analyzed by the abstract interpreter.

A [Program] is a set of procedures. Each procedure with a body owns a set of [Location]s connected by
[Transition]s. There are four kinds of transitions:

  - [Internal] transitions carry a sequence of [Statement]s (assignments, assumptions and havocs) and connect two
    locations of the same procedure;
  - [Call] transitions connect a call site to the entry location of the called procedure, and carry the actual
    arguments of the call;
  - [Return] transitions connect the exit location of the called procedure to the return site in the caller. Each
    return transition is statically matched with its call transition, and carries the variables assigned by the call;
  - [Summary] transitions connect a call site directly to its return site. They describe the effect of a call to a
    procedure without body (havoc of the assigned variables and of the globals the procedure modifies).

Graphs are built with a [Builder], which validates the graph and computes its loop heads when [Builder.Build] is
called. Loop heads are computed per procedure from the dominator tree of its control-flow graph, and then completed
so that every cycle (including cycles through recursive calls) contains a loop head.
*/
package program
