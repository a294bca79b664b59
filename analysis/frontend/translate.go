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

package frontend

import (
	"fmt"
	"go/constant"
	"go/token"
	"go/types"

	"github.com/awslabs/ar-go-absint/analysis/program"
	"golang.org/x/tools/go/ssa"
)

// PanicLabel is the label of the error location of each procedure, reached when the function panics
const PanicLabel = "panic"

// Translation is the program graph of a set of Go functions
type Translation struct {
	Program *program.Program
	// Functions maps each procedure with a body to the function it was translated from
	Functions map[*program.Procedure]*ssa.Function
	// Positions maps locations to a position in the source: the first instruction of a block, or a call
	Positions map[*program.Location]token.Pos
	// Panics maps the transitions reaching the panic location to the position of the panic
	Panics map[*program.Transition]token.Pos
	names  map[*program.Location]map[string]string
}

// SourceNames returns, for a location at the start of a block, the names in the source of the variables that hold
// the value of a parameter or of a source variable there. The map is indexed by program variable name.
func (t *Translation) SourceNames(l *program.Location) map[string]string {
	return t.names[l]
}

// Translate builds the program graph of the functions. Each function becomes a procedure named after the function,
// whose entry is an initial location. Integers and booleans are tracked, any other value is unconstrained. Calls to
// functions outside of fns are summarized: their results are unconstrained.
func Translate(fns []*ssa.Function) (*Translation, error) {
	tr := &translator{
		b:        program.NewBuilder(),
		fns:      map[*ssa.Function]bool{},
		declared: map[string]bool{},
		res: &Translation{
			Functions: map[*program.Procedure]*ssa.Function{},
			Positions: map[*program.Location]token.Pos{},
			Panics:    map[*program.Transition]token.Pos{},
			names:     map[*program.Location]map[string]string{},
		},
	}
	for _, fn := range fns {
		if fn.Blocks == nil {
			return nil, fmt.Errorf("function %s has no body", fn)
		}
		tr.fns[fn] = true
	}
	for _, fn := range fns {
		tr.function(fn)
	}
	prog, err := tr.b.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build program graph: %w", err)
	}
	tr.res.Program = prog
	return tr.res, nil
}

type translator struct {
	b        *program.Builder
	fns      map[*ssa.Function]bool
	declared map[string]bool
	res      *Translation
}

// funcTranslator translates the body of one function
type funcTranslator struct {
	*translator
	fn      *ssa.Function
	pb      *program.ProcedureBuilder
	vars    map[ssa.Value]program.Var
	tuples  map[*ssa.Call][]program.Var
	outs    []program.Var
	used    map[string]bool
	scratch *program.Var // holds the wrapped result of integer operations that may overflow
}

// procName is the name of the procedure of a function
func procName(fn *ssa.Function) string {
	return fn.String()
}

// typeOf returns the program type of values of Go type t
func typeOf(t types.Type) program.Type {
	b, ok := t.Underlying().(*types.Basic)
	switch {
	case !ok:
		return program.Unsupported
	case b.Info()&types.IsInteger != 0:
		return program.Int
	case b.Info()&types.IsBoolean != 0:
		return program.Bool
	default:
		return program.Unsupported
	}
}

func (tr *translator) function(fn *ssa.Function) {
	ft := &funcTranslator{
		translator: tr,
		fn:         fn,
		vars:       map[ssa.Value]program.Var{},
		tuples:     map[*ssa.Call][]program.Var{},
		used:       map[string]bool{},
	}
	var params, locals []program.Var
	for _, p := range fn.Params {
		params = append(params, ft.newVar(p, p.Name(), p.Type()))
	}
	results := fn.Signature.Results()
	for i := 0; i < results.Len(); i++ {
		ft.outs = append(ft.outs, ft.fresh(fmt.Sprintf("ret%d", i), results.At(i).Type()))
	}
	for _, fv := range fn.FreeVars {
		if typeOf(fv.Type()) != program.Unsupported {
			locals = append(locals, ft.newVar(fv, fv.Name(), fv.Type()))
		}
	}
	for _, b := range fn.Blocks {
		for _, instr := range b.Instrs {
			v, ok := instr.(ssa.Value)
			if !ok {
				continue
			}
			call, isCall := v.(*ssa.Call)
			tuple, isTuple := v.Type().(*types.Tuple)
			switch {
			case isCall && isTuple:
				for i := 0; i < tuple.Len(); i++ {
					x := ft.fresh(fmt.Sprintf("%s#%d", v.Name(), i), tuple.At(i).Type())
					ft.tuples[call] = append(ft.tuples[call], x)
					locals = append(locals, x)
				}
			case isCall || typeOf(v.Type()) != program.Unsupported:
				locals = append(locals, ft.newVar(v, v.Name(), v.Type()))
			}
			if ft.scratch == nil && wraps(v) {
				w := ft.fresh("wrap", types.Typ[types.Int])
				ft.scratch = &w
				locals = append(locals, w)
			}
		}
	}
	ft.pb = tr.b.Procedure(procName(fn), params, ft.outs, locals).Initial()
	tr.res.Functions[ft.pb.Proc] = fn
	tr.res.Positions[ft.pb.Entry()] = fn.Pos()
	for _, b := range fn.Blocks {
		ft.block(b)
	}
}

// newVar creates the variable holding v
func (ft *funcTranslator) newVar(v ssa.Value, name string, t types.Type) program.Var {
	x := ft.fresh(name, t)
	ft.vars[v] = x
	return x
}

// fresh returns a variable whose name is not used yet in the procedure, based on name
func (ft *funcTranslator) fresh(name string, t types.Type) program.Var {
	n := name
	for i := 1; ft.used[n]; i++ {
		n = fmt.Sprintf("%s'%d", name, i)
	}
	ft.used[n] = true
	return program.Var{Name: n, Type: typeOf(t)}
}

// tracked returns the variable of v if a domain can track it
func (ft *funcTranslator) tracked(v ssa.Value) (program.Var, bool) {
	x, ok := ft.vars[v]
	return x, ok && x.Type != program.Unsupported
}

// blockLoc returns the location at the start of b
func (ft *funcTranslator) blockLoc(b *ssa.BasicBlock) *program.Location {
	var l *program.Location
	if b.Index == 0 {
		l = ft.pb.Entry()
	} else {
		l = ft.pb.Loc(fmt.Sprintf("b%d", b.Index))
	}
	if _, ok := ft.res.names[l]; ok {
		return l
	}
	names := map[string]string{}
	for _, p := range ft.fn.Params {
		if x, ok := ft.tracked(p); ok {
			names[x.Name] = p.Name()
		}
	}
	for _, instr := range b.Instrs {
		phi, ok := instr.(*ssa.Phi)
		if !ok {
			break
		}
		if x, ok := ft.tracked(phi); ok && phi.Comment != "" {
			names[x.Name] = phi.Comment
		}
	}
	ft.res.names[l] = names
	if _, ok := ft.res.Positions[l]; !ok {
		if pos := blockPos(b); pos.IsValid() {
			ft.res.Positions[l] = pos
		}
	}
	return l
}

// blockPos returns the position of the first instruction of b that has one, skipping phi nodes: they are placed
// at the declaration of their variable, which may be outside of the loop of b. Blocks without such an instruction,
// like the header of a range loop, take the position of their first successor.
func blockPos(b *ssa.BasicBlock) token.Pos {
	for _, instr := range b.Instrs {
		if _, ok := instr.(*ssa.Phi); !ok && instr.Pos().IsValid() {
			return instr.Pos()
		}
	}
	if len(b.Succs) > 0 && b.Succs[0] != b {
		for _, instr := range b.Succs[0].Instrs {
			if _, ok := instr.(*ssa.Phi); !ok && instr.Pos().IsValid() {
				return instr.Pos()
			}
		}
	}
	return token.NoPos
}

// block translates the instructions of b. Calls to translated functions split the block: the call transition
// leaves the location before the call and returns to a location after it.
func (ft *funcTranslator) block(b *ssa.BasicBlock) {
	cur := ft.blockLoc(b)
	var stmts []program.Statement
	if b.Index == 0 {
		stmts = ft.paramRanges()
	}
	for k, instr := range b.Instrs {
		switch x := instr.(type) {
		case *ssa.Call:
			callee, ok := ft.callee(x)
			if !ok {
				stmts = append(stmts, ft.instruction(x)...)
				continue
			}
			if len(stmts) > 0 {
				mid := ft.pb.Loc(fmt.Sprintf("b%d.%d", b.Index, k))
				ft.pb.Edge(cur, mid, stmts...)
				cur, stmts = mid, nil
			}
			after := ft.pb.Loc(fmt.Sprintf("b%d.%d.ret", b.Index, k))
			ft.pb.Call(cur, after, callee, ft.args(x), ft.results(x))
			if _, ok := ft.res.Positions[cur]; !ok {
				ft.res.Positions[cur] = x.Pos()
			}
			cur = after
		case *ssa.If:
			cond := ft.condOf(x.Cond, b)
			then := append(append([]program.Statement{}, stmts...), program.Require(cond))
			ft.pb.Edge(cur, ft.blockLoc(b.Succs[0]), append(then, ft.phis(b, b.Succs[0])...)...)
			els := append(append([]program.Statement{}, stmts...), program.Require(program.Not{C: cond}))
			ft.pb.Edge(cur, ft.blockLoc(b.Succs[1]), append(els, ft.phis(b, b.Succs[1])...)...)
		case *ssa.Jump:
			ft.pb.Edge(cur, ft.blockLoc(b.Succs[0]), append(stmts, ft.phis(b, b.Succs[0])...)...)
		case *ssa.Return:
			ft.pb.Edge(cur, ft.pb.Exit(), append(stmts, ft.ret(x)...)...)
		case *ssa.Panic:
			ft.res.Panics[ft.pb.Edge(cur, ft.pb.ErrorLoc(PanicLabel), stmts...)] = x.Pos()
		default:
			stmts = append(stmts, ft.instruction(instr)...)
		}
	}
}

// phis returns the parallel assignment of the phi nodes of succ for the edge from pred
func (ft *funcTranslator) phis(pred, succ *ssa.BasicBlock) []program.Statement {
	idx := -1
	for i, p := range succ.Preds {
		if p == pred {
			idx = i
			break
		}
	}
	var assign program.Assign
	for _, instr := range succ.Instrs {
		phi, ok := instr.(*ssa.Phi)
		if !ok {
			break
		}
		if x, ok := ft.tracked(phi); ok && idx >= 0 {
			assign.LHS = append(assign.LHS, x)
			assign.RHS = append(assign.RHS, ft.exprOf(phi.Edges[idx]))
		}
	}
	if len(assign.LHS) == 0 {
		return nil
	}
	return []program.Statement{assign}
}

// ret assigns the returned values to the outputs
func (ft *funcTranslator) ret(x *ssa.Return) []program.Statement {
	var assign program.Assign
	for i, r := range x.Results {
		if ft.outs[i].Type != program.Unsupported {
			assign.LHS = append(assign.LHS, ft.outs[i])
			assign.RHS = append(assign.RHS, ft.exprOf(r))
		}
	}
	if len(assign.LHS) == 0 {
		return nil
	}
	return []program.Statement{assign}
}

// callee returns the name of the procedure statically called by x. Functions without a body in the translation are
// declared on their first call.
func (ft *funcTranslator) callee(x *ssa.Call) (string, bool) {
	fn := x.Call.StaticCallee()
	if fn == nil || x.Call.IsInvoke() {
		return "", false
	}
	name := procName(fn)
	if ft.fns[fn] || ft.declared[name] {
		return name, true
	}
	ft.declared[name] = true
	sig := fn.Signature
	var params, outs []program.Var
	if recv := sig.Recv(); recv != nil {
		params = append(params, program.Var{Name: "recv", Type: typeOf(recv.Type())})
	}
	for i := 0; i < sig.Params().Len(); i++ {
		params = append(params, program.Var{Name: fmt.Sprintf("p%d", i), Type: typeOf(sig.Params().At(i).Type())})
	}
	for i := 0; i < sig.Results().Len(); i++ {
		outs = append(outs, program.Var{Name: fmt.Sprintf("ret%d", i), Type: typeOf(sig.Results().At(i).Type())})
	}
	ft.b.Declare(name, params, outs, nil)
	return name, true
}

func (ft *funcTranslator) args(x *ssa.Call) []program.Expr {
	args := make([]program.Expr, len(x.Call.Args))
	for i, a := range x.Call.Args {
		args[i] = ft.exprOf(a)
	}
	return args
}

// results returns the variables assigned by the call
func (ft *funcTranslator) results(x *ssa.Call) []program.Var {
	if vars, ok := ft.tuples[x]; ok {
		return vars
	}
	if v, ok := ft.vars[x]; ok && x.Call.Signature().Results().Len() == 1 {
		return []program.Var{v}
	}
	return nil
}

// instruction translates an instruction that does not end a block and is not a call to a procedure
func (ft *funcTranslator) instruction(instr ssa.Instruction) []program.Statement {
	if call, ok := instr.(*ssa.Call); ok {
		return ft.opaqueCall(call)
	}
	v, ok := instr.(ssa.Value)
	if !ok {
		return nil
	}
	if ex, ok := v.(*ssa.Extract); ok {
		return ft.extract(ex)
	}
	x, ok := ft.tracked(v)
	if !ok {
		return nil
	}
	switch v := v.(type) {
	case *ssa.Phi:
		return nil
	case *ssa.BinOp:
		return ft.binOp(x, v)
	case *ssa.UnOp:
		switch v.Op {
		case token.SUB:
			return ft.wrapped(x, v, program.Neg{X: ft.exprOf(v.X)})
		case token.NOT:
			return []program.Statement{program.Set(x, program.Minus(program.C(1), ft.exprOf(v.X)))}
		}
	case *ssa.Convert:
		if typeOf(v.X.Type()) == program.Unsupported {
			return []program.Statement{program.Forget(x)}
		}
		return ft.wrapped(x, v, ft.exprOf(v.X))
	case *ssa.ChangeType:
		return ft.copyOf(x, v.X)
	}
	return []program.Statement{program.Forget(x)}
}

// opaqueCall translates a call without procedure: builtins and dynamic calls
func (ft *funcTranslator) opaqueCall(call *ssa.Call) []program.Statement {
	var res []program.Var
	for _, v := range ft.tuples[call] {
		if v.Type != program.Unsupported {
			res = append(res, v)
		}
	}
	x, single := ft.tracked(call)
	if single {
		res = append(res, x)
	}
	if len(res) == 0 {
		return nil
	}
	stmts := []program.Statement{program.Forget(res...)}
	if b, ok := call.Call.Value.(*ssa.Builtin); ok && single && (b.Name() == "len" || b.Name() == "cap") {
		stmts = append(stmts, program.Require(program.Compare(program.V(x), program.Ge, program.C(0))))
	}
	return stmts
}

func (ft *funcTranslator) extract(ex *ssa.Extract) []program.Statement {
	x, ok := ft.tracked(ex)
	if !ok {
		return nil
	}
	if call, ok := ex.Tuple.(*ssa.Call); ok {
		if vars := ft.tuples[call]; ex.Index < len(vars) && vars[ex.Index].Type != program.Unsupported {
			return []program.Statement{program.Set(x, program.V(vars[ex.Index]))}
		}
	}
	return []program.Statement{program.Forget(x)}
}

func (ft *funcTranslator) copyOf(x program.Var, v ssa.Value) []program.Statement {
	if typeOf(v.Type()) == program.Unsupported {
		return []program.Statement{program.Forget(x)}
	}
	return []program.Statement{program.Set(x, ft.exprOf(v))}
}

var arithmetic = map[token.Token]program.BinOp{
	token.ADD: program.Add,
	token.SUB: program.Sub,
	token.MUL: program.Mul,
	token.QUO: program.Div,
	token.REM: program.Mod,
}

var comparisons = map[token.Token]program.CmpOp{
	token.EQL: program.Eq,
	token.NEQ: program.Ne,
	token.LSS: program.Lt,
	token.LEQ: program.Le,
	token.GTR: program.Gt,
	token.GEQ: program.Ge,
}

// binOp translates the binary operation v assigned to x. A comparison sets x to 1 when it holds, 0 otherwise.
func (ft *funcTranslator) binOp(x program.Var, v *ssa.BinOp) []program.Statement {
	if op, ok := arithmetic[v.Op]; ok && x.Type == program.Int {
		return ft.wrapped(x, v, program.Binary{Op: op, X: ft.exprOf(v.X), Y: ft.exprOf(v.Y)})
	}
	if c, ok := ft.compare(v); ok {
		holds := program.Conj(program.Compare(program.V(x), program.Eq, program.C(1)), c)
		fails := program.Conj(program.Compare(program.V(x), program.Eq, program.C(0)), program.Not{C: c})
		return []program.Statement{program.Forget(x), program.Require(program.Disj(holds, fails))}
	}
	return []program.Statement{program.Forget(x)}
}

// intRange is the range of the values of a fixed-size integer type. The upper bound of 64-bit types is the
// unbounded bound of the numeric domains, and is not modelled.
type intRange struct {
	lo, hi int64
	hasHi  bool
}

// rangeOf returns the range of the integer type t. Signed 64-bit integers have no range below the bounds of the
// domains. int, uint and uintptr are 64 bits wide.
func rangeOf(t types.Type) (intRange, bool) {
	b, ok := t.Underlying().(*types.Basic)
	if !ok || b.Info()&types.IsInteger == 0 {
		return intRange{}, false
	}
	bits := 64
	switch b.Kind() {
	case types.Int8, types.Uint8:
		bits = 8
	case types.Int16, types.Uint16:
		bits = 16
	case types.Int32, types.Uint32:
		bits = 32
	}
	unsigned := b.Info()&types.IsUnsigned != 0
	switch {
	case bits == 64 && unsigned:
		return intRange{}, true
	case bits == 64:
		return intRange{}, false
	case unsigned:
		return intRange{hi: 1<<bits - 1, hasHi: true}, true
	default:
		return intRange{lo: -1 << (bits - 1), hi: 1<<(bits-1) - 1, hasHi: true}, true
	}
}

// contains returns the condition that e is in the range
func (r intRange) contains(e program.Expr) program.Cond {
	lo := program.Compare(program.C(r.lo), program.Le, e)
	if !r.hasHi {
		return lo
	}
	return program.Conj(lo, program.Compare(e, program.Le, program.C(r.hi)))
}

// wraps returns true when the integer value v may overflow the range of its type
func wraps(v ssa.Value) bool {
	if typeOf(v.Type()) != program.Int {
		return false
	}
	if _, ok := rangeOf(v.Type()); !ok {
		return false
	}
	switch v := v.(type) {
	case *ssa.BinOp:
		_, ok := arithmetic[v.Op]
		return ok && v.Op != token.REM
	case *ssa.UnOp:
		return v.Op == token.SUB
	case *ssa.Convert:
		return typeOf(v.X.Type()) != program.Unsupported
	}
	return false
}

// wrapped assigns to x the value e of v. When e is outside of the range of the type of v, the result wraps around:
// x is then only known to be in the range.
func (ft *funcTranslator) wrapped(x program.Var, v ssa.Value, e program.Expr) []program.Statement {
	set := program.Set(x, e)
	if !wraps(v) || ft.scratch == nil {
		return []program.Statement{set}
	}
	r, _ := rangeOf(v.Type())
	w := *ft.scratch
	fits := program.Conj(r.contains(program.V(x)), program.Compare(program.V(w), program.Eq, program.V(x)))
	overflows := program.Conj(program.Not{C: r.contains(program.V(x))}, r.contains(program.V(w)))
	return []program.Statement{
		set,
		program.Forget(w),
		program.Require(program.Disj(fits, overflows)),
		program.Set(x, program.V(w)),
		program.Forget(w),
	}
}

// paramRanges constrains the parameters of fixed-size integer types to their range
func (ft *funcTranslator) paramRanges() []program.Statement {
	var conds []program.Cond
	for _, p := range ft.fn.Params {
		x, ok := ft.tracked(p)
		if !ok || x.Type != program.Int {
			continue
		}
		if r, ok := rangeOf(p.Type()); ok {
			conds = append(conds, r.contains(program.V(x)))
		}
	}
	if len(conds) == 0 {
		return nil
	}
	return []program.Statement{program.Require(program.Conj(conds...))}
}

// compare returns the condition of a comparison of integers or booleans
func (ft *funcTranslator) compare(v *ssa.BinOp) (program.Cond, bool) {
	op, ok := comparisons[v.Op]
	if !ok || typeOf(v.X.Type()) == program.Unsupported || typeOf(v.Y.Type()) == program.Unsupported {
		return nil, false
	}
	return program.Compare(ft.exprOf(v.X), op, ft.exprOf(v.Y)), true
}

// condOf returns the condition under which the boolean v is true. Comparisons and negations computed in b are
// inlined.
func (ft *funcTranslator) condOf(v ssa.Value, b *ssa.BasicBlock) program.Cond {
	switch x := v.(type) {
	case *ssa.Const:
		if c, ok := constValue(x); ok {
			return program.Truth{Value: c != 0}
		}
	case *ssa.UnOp:
		if x.Op == token.NOT && x.Block() == b {
			return program.Not{C: ft.condOf(x.X, b)}
		}
	case *ssa.BinOp:
		if x.Block() == b {
			if c, ok := ft.compare(x); ok {
				return c
			}
		}
	}
	if x, ok := ft.tracked(v); ok {
		return program.Compare(program.V(x), program.Ne, program.C(0))
	}
	return program.Truth{Value: true}
}

// exprOf returns the expression of the value of v
func (ft *funcTranslator) exprOf(v ssa.Value) program.Expr {
	if c, ok := v.(*ssa.Const); ok {
		if k, ok := constValue(c); ok {
			return program.C(k)
		}
		return program.Nondet{}
	}
	if x, ok := ft.tracked(v); ok {
		return program.V(x)
	}
	return program.Nondet{}
}

// constValue returns the integer value of an integer or boolean constant. Booleans are 0 or 1.
func constValue(c *ssa.Const) (int64, bool) {
	if typeOf(c.Type()) == program.Unsupported {
		return 0, false
	}
	if c.Value == nil {
		return 0, true
	}
	switch c.Value.Kind() {
	case constant.Bool:
		if constant.BoolVal(c.Value) {
			return 1, true
		}
		return 0, true
	case constant.Int:
		return constant.Int64Val(c.Value)
	default:
		return 0, false
	}
}
