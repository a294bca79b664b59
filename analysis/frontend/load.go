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

// Package frontend loads Go programs and translates the SSA form of their functions into program graphs. Integer
// and boolean values are tracked, and panics become error locations.
package frontend

import (
	"fmt"
	"go/ast"
	"go/importer"
	"go/parser"
	"go/token"
	"go/types"
	"os"
	"strings"

	"golang.org/x/exp/slices"
	"golang.org/x/tools/go/packages"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"
)

// PkgLoadMode is the loading mode of the packages analyzed. Syntax is needed for the directives and the annotations.
const PkgLoadMode = packages.NeedName |
	packages.NeedFiles |
	packages.NeedCompiledGoFiles |
	packages.NeedImports |
	packages.NeedDeps |
	packages.NeedTypes |
	packages.NeedSyntax |
	packages.NeedTypesInfo |
	packages.NeedTypesSizes |
	packages.NeedModule

// LoadedProgram represents a loaded program.
type LoadedProgram struct {
	// Program is the SSA version of the program.
	Program *ssa.Program
	// Packages are the packages whose functions are analyzed
	Packages []*ssa.Package
	// Files are the syntax trees of the analyzed packages
	Files []*ast.File
	// Directives is a map from the directive's position in the program to the relevant directive comment.
	Directives Directives
}

// LoadProgram loads the packages matching args on platform "platform" (the host platform when empty), and builds
// their SSA. To understand how to specify the args, look at the documentation of packages.Load.
func LoadProgram(config *packages.Config, platform string, args []string) (LoadedProgram, error) {
	if config == nil {
		config = &packages.Config{
			Mode:  PkgLoadMode,
			Tests: false,
			Fset:  token.NewFileSet(),
		}
	}

	if platform != "" {
		config.Env = append(os.Environ(), fmt.Sprintf("GOOS=%s", platform))
	}

	// load, parse and type check the given packages
	initialPackages, err := packages.Load(config, args...)
	if err != nil {
		return LoadedProgram{}, fmt.Errorf("failed to load packages: %w", err)
	}

	if len(initialPackages) == 0 {
		return LoadedProgram{}, fmt.Errorf("no packages")
	}

	if packages.PrintErrors(initialPackages) > 0 {
		return LoadedProgram{}, fmt.Errorf("errors found in packages %v", args)
	}

	program, ssaPackages := ssautil.AllPackages(initialPackages, ssa.BuilderMode(0))

	var files []*ast.File
	for i, p := range ssaPackages {
		if p == nil {
			return LoadedProgram{}, fmt.Errorf("cannot build SSA for package %s", initialPackages[i])
		}
		files = append(files, initialPackages[i].Syntax...)
	}

	program.Build()

	return LoadedProgram{
		Program:    program,
		Packages:   ssaPackages,
		Files:      files,
		Directives: findDirectives(files, program.Fset),
	}, nil
}

// LoadSource type checks and builds the SSA of a single-file package. The file may only import packages of the
// standard library.
func LoadSource(filename string, src []byte) (LoadedProgram, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, filename, src, parser.ParseComments)
	if err != nil {
		return LoadedProgram{}, fmt.Errorf("failed to parse %s: %w", filename, err)
	}
	pkg := types.NewPackage(file.Name.Name, file.Name.Name)
	tc := &types.Config{Importer: importer.Default()}
	ssaPkg, _, err := ssautil.BuildPackage(tc, fset, pkg, []*ast.File{file}, ssa.BuilderMode(0))
	if err != nil {
		return LoadedProgram{}, fmt.Errorf("failed to build %s: %w", filename, err)
	}
	files := []*ast.File{file}
	return LoadedProgram{
		Program:    ssaPkg.Prog,
		Packages:   []*ssa.Package{ssaPkg},
		Files:      files,
		Directives: findDirectives(files, fset),
	}, nil
}

// Functions returns the functions of the loaded packages that have a body, including anonymous functions and
// methods, sorted by name. Synthetic functions and the functions marked with an ignore directive are left out.
func (lp LoadedProgram) Functions() []*ssa.Function {
	var funcs []*ssa.Function
	for fn := range ssautil.AllFunctions(lp.Program) {
		if fn.Blocks == nil || fn.Synthetic != "" || !slices.Contains(lp.Packages, fn.Pkg) {
			continue
		}
		if lp.Directives.Ignores(lp.Program.Fset, fn.Pos()) {
			continue
		}
		funcs = append(funcs, fn)
	}
	slices.SortFunc(funcs, func(a, b *ssa.Function) bool { return a.String() < b.String() })
	return funcs
}

// Directives represents a map of directive position to directive.
type Directives map[DirectivePos]Directive

// Directive represents an instruction to the analyzer in the source code being analyzed.
// It is a comment in the form: `//absint:x`, where x is a valid DirectiveKind.
type Directive struct {
	Kind    DirectiveKind
	Comment *ast.Comment
}

// DirectivePos represents the position of a directive within a program.
type DirectivePos struct {
	Filename string
	Line     int
}

// NewDirectivePos creates a DirectivePos from a token.Position.
func NewDirectivePos(pos token.Position) DirectivePos {
	return DirectivePos{
		Filename: pos.Filename,
		Line:     pos.Line,
	}
}

// DirectiveKind represents the kind of directive.
type DirectiveKind string

const (
	// DirectiveIgnore excludes the function declared on the line following the directive, or on the same line.
	DirectiveIgnore DirectiveKind = "ignore"
)

// NewDirective returns the directive for c and true if c is a valid
// directive comment.
func NewDirective(c *ast.Comment) (Directive, bool) {
	_, after, found := strings.Cut(c.Text, "absint:")
	if !found {
		return Directive{}, false
	}

	switch k := DirectiveKind(strings.TrimSpace(after)); k {
	case DirectiveIgnore:
		return Directive{Kind: k, Comment: c}, true
	default:
		return Directive{}, false
	}
}

// Ignores returns true if an ignore directive is on the line of pos or on the line before
func (d Directives) Ignores(fset *token.FileSet, pos token.Pos) bool {
	if !pos.IsValid() {
		return false
	}
	p := NewDirectivePos(fset.Position(pos))
	for _, line := range []int{p.Line, p.Line - 1} {
		if dir, ok := d[DirectivePos{Filename: p.Filename, Line: line}]; ok && dir.Kind == DirectiveIgnore {
			return true
		}
	}
	return false
}

// findDirectives returns all the directives in files.
func findDirectives(files []*ast.File, fset *token.FileSet) Directives {
	res := make(Directives)
	for _, f := range files {
		for _, group := range f.Comments {
			for _, c := range group.List {
				pos := fset.Position(c.Pos())
				if !pos.IsValid() {
					continue
				}
				if d, ok := NewDirective(c); ok {
					res[NewDirectivePos(pos)] = d
				}
			}
		}
	}
	return res
}
