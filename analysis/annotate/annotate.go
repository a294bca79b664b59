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

// Package annotate writes the invariants computed by the analysis back into the analyzed source, as comments on
// loops and function declarations.
package annotate

import (
	"bytes"
	"context"
	"fmt"
	"go/ast"
	"go/token"

	"github.com/awslabs/ar-go-absint/analysis/absint"
	"github.com/awslabs/ar-go-absint/analysis/config"
	"github.com/awslabs/ar-go-absint/analysis/frontend"
	"github.com/awslabs/ar-go-absint/analysis/program"
	"github.com/dave/dst"
	"github.com/dave/dst/decorator"
	"github.com/dave/dst/dstutil"
	"golang.org/x/exp/slices"
)

// Prefix starts every inserted comment
const Prefix = "// absint: "

// Annotation is a comment to insert in the source
type Annotation struct {
	// Pos is a position inside a loop, or the position of the name of a function declaration
	Pos  token.Pos
	Text string
}

// Collect returns the annotations of the complete results: the invariant of each loop head that has a position, and
// the postcondition of each declared function whose exit is reached. The invariants of several runs are joined. Only
// the variables named in the source are kept, and the annotations that say nothing are left out.
func Collect(tr *frontend.Translation, results []*absint.Result) []Annotation {
	var complete []*absint.Result
	for _, r := range results {
		if r != nil && r.Complete {
			complete = append(complete, r)
		}
	}
	var res []Annotation
	add := func(pos token.Pos, kind string, c program.Cond) {
		if c != program.True {
			res = append(res, Annotation{Pos: pos, Text: fmt.Sprintf("%s %s", kind, c)})
		}
	}
	for _, l := range tr.Program.Locations {
		pos, ok := tr.Positions[l]
		if !ok || !pos.IsValid() {
			continue
		}
		if l.IsLoopHead() {
			if inv, reached := join(complete, l); reached {
				add(pos, "invariant", Project(inv, tr.SourceNames(l)))
			}
			continue
		}
		fn := tr.Functions[l.Procedure]
		if l == l.Procedure.Entry && fn != nil && fn.Parent() == nil {
			if inv, reached := join(complete, l.Procedure.Exit); reached {
				add(pos, "ensures", Project(inv, exitNames(tr, l.Procedure)))
			}
		}
	}
	return res
}

// join returns the disjunction of the invariants at l, and whether any run reaches l
func join(results []*absint.Result, l *program.Location) (program.Cond, bool) {
	var conds []program.Cond
	for _, r := range results {
		if len(r.StatesAt(l)) > 0 {
			conds = append(conds, r.Invariant(l))
		}
	}
	return program.Disj(conds...), len(conds) > 0
}

// exitNames names the parameters and the results of a function: "result" when it has one, "result0", "result1", ...
// otherwise.
func exitNames(tr *frontend.Translation, proc *program.Procedure) map[string]string {
	names := map[string]string{}
	fn := tr.Functions[proc]
	for i, p := range proc.Params {
		if fn != nil && i < len(fn.Params) {
			names[p.Name] = fn.Params[i].Name()
		}
	}
	for i, out := range proc.Outs {
		if len(proc.Outs) == 1 {
			names[out.Name] = "result"
		} else {
			names[out.Name] = fmt.Sprintf("result%d", i)
		}
	}
	return names
}

// Project renames the variables of c with names. Comparisons over variables missing from names are weakened to
// true, so the result is implied by c.
func Project(c program.Cond, names map[string]string) program.Cond {
	switch c := c.(type) {
	case program.And:
		conds := make([]program.Cond, len(c.Conds))
		for i, x := range c.Conds {
			conds[i] = Project(x, names)
		}
		return program.Conj(conds...)
	case program.Or:
		conds := make([]program.Cond, len(c.Conds))
		for i, x := range c.Conds {
			conds[i] = Project(x, names)
		}
		return program.Disj(conds...)
	case program.Cmp:
		x, okx := renameExpr(c.X, names)
		y, oky := renameExpr(c.Y, names)
		if !okx || !oky {
			return program.True
		}
		return program.Compare(x, c.Op, y)
	case program.Not:
		for _, v := range program.CondVars(c.C) {
			if _, ok := names[v.Name]; !ok {
				return program.True
			}
		}
		return program.Not{C: Project(c.C, names)}
	default:
		return c
	}
}

func renameExpr(e program.Expr, names map[string]string) (program.Expr, bool) {
	switch e := e.(type) {
	case program.VarRef:
		name, ok := names[e.Var.Name]
		if !ok {
			return nil, false
		}
		return program.V(program.Var{Name: name, Type: e.Var.Type}), true
	case program.Binary:
		x, okx := renameExpr(e.X, names)
		y, oky := renameExpr(e.Y, names)
		return program.Binary{Op: e.Op, X: x, Y: y}, okx && oky
	case program.Neg:
		x, ok := renameExpr(e.X, names)
		return program.Neg{X: x}, ok
	default:
		return e, true
	}
}

// File returns the decorated syntax tree of f with the annotations inserted as comments. An annotation is attached
// to the function declaration whose name is at its position, or else to the innermost loop enclosing its position.
// Annotations outside of f are ignored.
func File(fset *token.FileSet, f *ast.File, annotations []Annotation) (*dst.File, error) {
	d := decorator.NewDecorator(fset)
	df, err := d.DecorateFile(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decorate %s: %w", f.Name.Name, err)
	}
	targets := map[ast.Node][]string{}
	for _, a := range annotations {
		if n := target(f, a.Pos); n != nil && !slices.Contains(targets[n], a.Text) {
			targets[n] = append(targets[n], a.Text)
		}
	}
	dstutil.Apply(df, func(c *dstutil.Cursor) bool {
		n := c.Node()
		if n == nil {
			return true
		}
		if texts, ok := targets[d.Ast.Nodes[n]]; ok {
			decs := n.Decorations()
			for _, text := range texts {
				decs.Start.Append(Prefix + text)
			}
		}
		return true
	}, nil)
	return df, nil
}

// target returns the node an annotation at pos is attached to, nil if there is none
func target(f *ast.File, pos token.Pos) ast.Node {
	if pos < f.Pos() || pos >= f.End() {
		return nil
	}
	var loop ast.Node
	for _, decl := range f.Decls {
		if fd, ok := decl.(*ast.FuncDecl); ok && fd.Name.Pos() == pos {
			return fd
		}
	}
	ast.Inspect(f, func(n ast.Node) bool {
		if n == nil || pos < n.Pos() || pos >= n.End() {
			return false
		}
		switch n.(type) {
		case *ast.ForStmt, *ast.RangeStmt:
			loop = n
		}
		return true
	})
	return loop
}

// Source analyzes the functions of a single-file package with the configuration c, and returns the source with the
// invariants inserted. The results of the runs are returned too, with the errors of the failed runs: their
// invariants are not inserted.
func Source(ctx context.Context, filename string, src []byte, c *config.Config,
	logger *config.LogGroup) ([]byte, []*absint.Result, error) {
	lp, err := frontend.LoadSource(filename, src)
	if err != nil {
		return nil, nil, err
	}
	tr, err := frontend.Translate(lp.Functions())
	if err != nil {
		return nil, nil, err
	}
	e, err := absint.NewEngineFromConfig(tr.Program, c, logger)
	if err != nil {
		return nil, nil, err
	}
	results, runErr := e.RunAll(ctx, absint.EntrypointJobs(tr.Program, c), c.MaxConcurrentRuns)
	if results == nil {
		return nil, nil, runErr
	}
	df, err := File(lp.Program.Fset, lp.Files[0], Collect(tr, results))
	if err != nil {
		return nil, results, err
	}
	var buf bytes.Buffer
	if err := decorator.NewRestorer().Fprint(&buf, df); err != nil {
		return nil, results, fmt.Errorf("failed to print %s: %w", filename, err)
	}
	return buf.Bytes(), results, runErr
}
