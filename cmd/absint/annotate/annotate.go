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

// Package annotate implements the front-end that writes the invariants into a Go source file.
package annotate

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/awslabs/ar-go-absint/analysis/absint"
	"github.com/awslabs/ar-go-absint/analysis/annotate"
	"github.com/awslabs/ar-go-absint/analysis/config"
	"github.com/awslabs/ar-go-absint/cmd/absint/tools"
)

// Usage for CLI
const Usage = `Insert the loop invariants and postconditions of the functions of a Go file as comments.

Usage:
  absint annotate [options] source.go

The file must be a package on its own, and may only import the standard library.
The annotated source is printed on the standard output, unless -w is set.

Examples:
% absint annotate hello.go
% absint annotate -w -config config.yaml hello.go
`

// Flags represents the parsed annotate sub-command flags.
type Flags struct {
	tools.CommonFlags
	Write bool
}

// NewFlags returns the parsed annotate flags from args.
func NewFlags(args []string) (Flags, error) {
	common := tools.NewUnparsedCommonFlags("annotate")
	write := common.FlagSet.Bool("w", false, "write the result to the source file instead of the standard output")
	flags, err := common.Parse(args, Usage)
	if err != nil {
		return Flags{}, err
	}
	if flags.FlagSet.NArg() != 1 {
		return Flags{}, fmt.Errorf("annotate expects one source file, got %d arguments", flags.FlagSet.NArg())
	}
	return Flags{CommonFlags: flags, Write: *write}, nil
}

// Run annotates the source file of flags. The annotated source is written to w unless flags.Write is set, and the
// summary of the runs to summary.
func Run(ctx context.Context, flags Flags, w io.Writer, summary io.Writer) error {
	cfg, err := tools.LoadConfig(flags.ConfigPath, flags.Verbose)
	if err != nil {
		return err
	}
	filename := flags.FlagSet.Arg(0)
	src, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("could not load program: %w", err)
	}
	out, results, err := annotate.Source(ctx, filename, src, cfg, config.NewLogGroup(cfg))
	if results != nil {
		absint.WriteSummaryTable(summary, results)
	}
	if out == nil {
		return err
	}
	if flags.Write {
		info, statErr := os.Stat(filename)
		if statErr != nil {
			return statErr
		}
		if writeErr := os.WriteFile(filename, out, info.Mode().Perm()); writeErr != nil {
			return writeErr
		}
	} else if _, writeErr := w.Write(out); writeErr != nil {
		return writeErr
	}
	return err
}

// Main is the entry point of the sub-command
func Main(args []string) error {
	flags, err := NewFlags(args)
	if err != nil {
		return err
	}
	ctx, cancel := tools.InterruptContext()
	defer cancel()
	return Run(ctx, flags, os.Stdout, os.Stderr)
}
