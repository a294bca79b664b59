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

// Package run implements the front-end of the analysis of Go packages.
package run

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/awslabs/ar-go-absint/analysis/absint"
	"github.com/awslabs/ar-go-absint/analysis/config"
	"github.com/awslabs/ar-go-absint/analysis/frontend"
	"github.com/awslabs/ar-go-absint/cmd/absint/tools"
	"github.com/awslabs/ar-go-absint/internal/formatutil"
	"golang.org/x/tools/go/packages"
)

// Usage for CLI
const Usage = `Compute the invariants of Go functions and check that they cannot panic.

Usage:
  absint run [options] package...
  absint run [options] source.go

Every function of the packages is analyzed from its entry, unless the entrypoints option of the
configuration selects some of them. Integer and boolean values are tracked; other values are
unconstrained.

Use the -help flag to display the options.

Examples:
% absint run -config config.yaml ./...
% absint run -invariants hello.go
`

// Flags represents the parsed run sub-command flags.
type Flags struct {
	tools.CommonFlags
	Invariants bool
	Platform   string
}

// NewFlags returns the parsed run flags from args.
func NewFlags(args []string) (Flags, error) {
	common := tools.NewUnparsedCommonFlags("run")
	invariants := common.FlagSet.Bool("invariants", false, "print the invariants of the reached locations")
	platform := common.FlagSet.String("platform", "", "GOOS of the analyzed program, the host platform by default")
	flags, err := common.Parse(args, Usage)
	if err != nil {
		return Flags{}, err
	}
	return Flags{CommonFlags: flags, Invariants: *invariants, Platform: *platform}, nil
}

// Run loads the packages, analyzes them and prints the results on w.
// It returns an error when a run fails, or when an error location may be reached.
func Run(ctx context.Context, flags Flags, w io.Writer) error {
	cfg, err := tools.LoadConfig(flags.ConfigPath, flags.Verbose)
	if err != nil {
		return err
	}
	logger := config.NewLogGroup(cfg)

	logger.Infof(formatutil.Faint("Reading sources") + "\n")
	pcfg := &packages.Config{Mode: frontend.PkgLoadMode, Tests: flags.WithTest}
	lp, err := frontend.LoadProgram(pcfg, flags.Platform, flags.FlagSet.Args())
	if err != nil {
		return fmt.Errorf("could not load program: %w", err)
	}
	results, err := Analyze(ctx, lp, cfg, logger)
	if results == nil {
		return err
	}
	return Print(w, results, cfg, flags.Invariants, logger, err)
}

// Analyze translates the functions of the loaded program and runs the analysis from every selected entrypoint.
// Results are returned with the errors of the failed runs.
func Analyze(ctx context.Context, lp frontend.LoadedProgram, cfg *config.Config,
	logger *config.LogGroup) ([]*absint.Result, error) {
	tr, err := frontend.Translate(lp.Functions())
	if err != nil {
		return nil, err
	}
	logger.Debugf("translated %d functions into %d locations and %d transitions\n", len(tr.Functions),
		len(tr.Program.Locations), len(tr.Program.Transitions))
	e, err := absint.NewEngineFromConfig(tr.Program, cfg, logger)
	if err != nil {
		return nil, err
	}
	jobs := absint.EntrypointJobs(tr.Program, cfg)
	if len(jobs) == 0 {
		return nil, fmt.Errorf("no function matches the entrypoints %v", cfg.Entrypoints)
	}
	logger.Infof(formatutil.Faint(fmt.Sprintf("Analyzing %d functions with %s", len(jobs), e.Domain().Name())) + "\n")
	return e.RunAll(ctx, jobs, cfg.MaxConcurrentRuns)
}

// Print writes the summary of the results to w, the invariants when invariants is set, and the counterexamples of
// the unsafe runs. Reports are saved when the configuration asks for it. The error of the runs is returned, or an
// error counting the unsafe runs.
func Print(w io.Writer, results []*absint.Result, cfg *config.Config, invariants bool, logger *config.LogGroup,
	runErr error) error {
	absint.WriteSummaryTable(w, results)
	unsafe := 0
	for _, r := range results {
		if invariants && r.Complete {
			fmt.Fprintf(w, "%s\n", formatutil.Bold(formatutil.Sanitize(r.Name)))
			absint.WriteInvariantTable(w, r)
		}
		if r.Verdict() != absint.PossiblyUnsafe {
			continue
		}
		unsafe++
		for _, c := range r.Counterexamples {
			fmt.Fprintf(w, "%s: %s\n", formatutil.Red("possible error"), formatutil.Sanitize(c.String()))
		}
	}
	if cfg.ReportInvariants {
		file, err := absint.SaveReports(cfg.ReportsDir, results, true)
		if err != nil {
			logger.Errorf("could not save reports: %v\n", err)
		} else {
			logger.Infof("reports saved in %s\n", file)
		}
	}
	if runErr != nil {
		return runErr
	}
	if unsafe > 0 {
		return fmt.Errorf("%d of %d runs may reach an error location", unsafe, len(results))
	}
	return nil
}

// Main is the entry point of the sub-command
func Main(args []string) error {
	flags, err := NewFlags(args)
	if err != nil {
		return err
	}
	ctx, cancel := tools.InterruptContext()
	defer cancel()
	return Run(ctx, flags, os.Stdout)
}
