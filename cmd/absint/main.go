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

package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/awslabs/ar-go-absint/cmd/absint/annotate"
	"github.com/awslabs/ar-go-absint/cmd/absint/run"
	"github.com/awslabs/ar-go-absint/cmd/absint/tools"
)

// version is set at link time
var version = "dev"

const usage = `absint: abstract interpretation of Go programs
Usage:
  absint [tool] [options] <Go package or file path(s)>
Tools:
  - run: computes the invariants of the functions of a program and reports the panics that may be reached
  - annotate: inserts the invariants of the functions of a Go file as comments
Examples:
  Analyze a module: absint run --config=config.yaml ./...
  Annotate a file: absint annotate main.go`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "error: expected subcommand\n%s\n", usage)
		os.Exit(2)
	}

	// hardcode help flag
	if snd := os.Args[1]; snd == "-help" || snd == "--help" {
		fmt.Println(usage)
		return
	}

	// hardcode version flag
	if snd := os.Args[1]; snd == "-version" || snd == "--version" {
		fmt.Println(version)
		return
	}

	args := os.Args[2:]
	var err error
	switch cmd := os.Args[1]; cmd {
	case "run":
		err = run.Main(args)
	case "annotate":
		err = annotate.Main(args)
	default:
		fmt.Fprintf(os.Stderr, "error: unexpected command: %v\n", cmd)
		fmt.Fprintf(os.Stderr, "usage:\n%s\n", usage)
		os.Exit(2)
	}
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		errExit(err)
	}
}

func errExit(err error) {
	fmt.Fprintf(os.Stderr, "error: %s\n", err)
	if hint := tools.HintForErrorMessage(err.Error()); hint != "" {
		fmt.Fprintf(os.Stderr, "hint: %s\n", hint)
	}
	os.Exit(1)
}
