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

// Package analysistest loads annotated Go test programs and compares the panics they declare with the panics the
// analysis finds.
package analysistest

import (
	"context"
	"fmt"
	"go/token"
	"io"
	"os"
	"regexp"
	"testing"

	"github.com/awslabs/ar-go-absint/analysis/absint"
	"github.com/awslabs/ar-go-absint/analysis/config"
	"github.com/awslabs/ar-go-absint/analysis/frontend"
	"golang.org/x/tools/go/ssa"
)

// LoadTest loads the single-file program at filename and the config in configFile. The default config is used when
// configFile is empty.
func LoadTest(t *testing.T, filename string, configFile string) (frontend.LoadedProgram, *config.Config) {
	src, err := os.ReadFile(filename)
	if err != nil {
		t.Fatalf("error reading %s: %v", filename, err)
	}
	lp, err := frontend.LoadSource(filename, src)
	if err != nil {
		t.Fatalf("error loading %s: %v", filename, err)
	}
	cfg := config.NewDefault()
	if configFile != "" {
		config.SetGlobalConfig(configFile)
		cfg, err = config.LoadGlobal()
		if err != nil {
			t.Fatalf("error loading config %s: %v", configFile, err)
		}
	}
	return lp, cfg
}

// Match annotations of the form "@MayPanic" and "@NoPanic"
var MayPanicRegex = regexp.MustCompile(`//.*@MayPanic\b`)
var NoPanicRegex = regexp.MustCompile(`//.*@NoPanic\b`)

// LPos is a position without column
type LPos struct {
	Filename string
	Line     int
}

func (p LPos) String() string {
	return fmt.Sprintf("%s:%d", p.Filename, p.Line)
}

// GetExpectedPanics returns the lines annotated with @MayPanic (mapped to true) or @NoPanic (mapped to false).
func GetExpectedPanics(lp frontend.LoadedProgram) map[LPos]bool {
	expected := map[LPos]bool{}
	for _, f := range lp.Files {
		for _, group := range f.Comments {
			for _, c := range group.List {
				pos := RemoveColumn(lp.Program.Fset.Position(c.Pos()))
				switch {
				case MayPanicRegex.MatchString(c.Text):
					expected[pos] = true
				case NoPanicRegex.MatchString(c.Text):
					expected[pos] = false
				}
			}
		}
	}
	return expected
}

// ReachedPanics analyzes the functions of lp from every entrypoint of cfg and returns the lines of the panics that
// some run may reach. Failed runs fail the test.
func ReachedPanics(t *testing.T, lp frontend.LoadedProgram, cfg *config.Config) map[LPos]bool {
	tr, err := frontend.Translate(lp.Functions())
	if err != nil {
		t.Fatalf("error translating: %v", err)
	}
	e, err := absint.NewEngineFromConfig(tr.Program, cfg, config.NewLogGroupWithOutput(cfg, io.Discard))
	if err != nil {
		t.Fatalf("error creating the engine: %v", err)
	}
	results, err := e.RunAll(context.Background(), absint.EntrypointJobs(tr.Program, cfg), cfg.MaxConcurrentRuns)
	if err != nil {
		t.Fatalf("error analyzing: %v", err)
	}
	reached := map[LPos]bool{}
	for _, r := range results {
		for _, c := range r.Counterexamples {
			if pos, ok := tr.Panics[c.Transition]; ok {
				reached[RemoveColumn(lp.Program.Fset.Position(pos))] = true
			}
		}
	}
	return reached
}

// CheckPanics fails the test when a @MayPanic line is not reached or a @NoPanic line is, and returns the number of
// annotated lines.
func CheckPanics(t *testing.T, lp frontend.LoadedProgram, cfg *config.Config) int {
	expected := GetExpectedPanics(lp)
	reached := ReachedPanics(t, lp, cfg)
	for pos, mayPanic := range expected {
		if mayPanic && !reached[pos] {
			t.Errorf("expected a possible panic at %s", pos)
		}
		if !mayPanic && reached[pos] {
			t.Errorf("unexpected possible panic at %s", pos)
		}
	}
	for pos := range reached {
		if _, ok := expected[pos]; !ok {
			t.Errorf("possible panic at %s is not annotated", pos)
		}
	}
	return len(expected)
}

// FunctionNames returns the names of the functions
func FunctionNames(fns []*ssa.Function) []string {
	names := make([]string, len(fns))
	for i, fn := range fns {
		names[i] = fn.String()
	}
	return names
}

// RemoveColumn drops the column of pos
func RemoveColumn(pos token.Position) LPos {
	return LPos{Line: pos.Line, Filename: pos.Filename}
}
