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
Package config manages the configuration of the abstract interpreter.

Use [Load](filename) to load a configuration from a specific filename, or [NewDefault] to obtain the default
configuration. Call [Config.Validate] before starting an analysis: invalid settings are rejected before any work
is done.

A config file is in yaml format. The top-level fields are the fields of [Options]. For example, a valid config file
is as follows:

	log-level: 4
	max-parallel-states: 3
	widening-threshold: 2
	domains:
	  - octagon
	  - parity
	timeout: 30s
	entrypoints:
	  - "^main\\."
	report-invariants: true

# Entrypoints

The entries of the entrypoints option are seen as regexes if they can be compiled to regexes, otherwise they are
matched as string prefixes of procedure names. An empty list selects every initial location of the program.
*/
package config
