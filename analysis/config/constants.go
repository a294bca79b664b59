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

package config

import "time"

const (
	// DefaultMaxParallelStates is the number of disjuncts kept per location when the config does not set it
	DefaultMaxParallelStates = 2
	// DefaultWideningThreshold is the number of visits of a loop head before widening is applied
	DefaultWideningThreshold = 3
	// DefaultNarrowingIterations is the number of descending passes run after the fixpoint is reached
	DefaultNarrowingIterations = 2
	// DefaultMaxConcurrentRuns bounds the number of entrypoint analyses running at the same time
	DefaultMaxConcurrentRuns = 4
	// DefaultTimeout is the timeout applied to a single run when none is specified. Zero means no timeout.
	DefaultTimeout = time.Duration(0)
)

// Identifiers of the abstract domains that can be listed in the domains option.
const (
	DomainOctagon  = "octagon"
	DomainInterval = "interval"
	DomainSign     = "sign"
	DomainParity   = "parity"
)

// KnownDomains lists the domain identifiers accepted by [Config.Validate], in the order they are reported.
var KnownDomains = []string{DomainOctagon, DomainInterval, DomainSign, DomainParity}
