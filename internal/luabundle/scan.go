// SPDX-License-Identifier: MPL-2.0

package luabundle

import (
	"bytes"
	"fmt"

	"github.com/yuin/gopher-lua/ast"
	"github.com/yuin/gopher-lua/parse"
)

// reference is one require call found in a module, in source order.
type reference struct {
	name    string
	literal bool
	line    int
	expr    string
}

// stripShebang blanks a leading "#!" line, which the Lua loader skips but
// the parser rejects. The newline is kept so line numbers still match.
func stripShebang(src []byte) []byte {
	if !bytes.HasPrefix(src, []byte("#")) {
		return src
	}
	end := bytes.IndexByte(src, '\n')
	if end < 0 {
		return nil
	}
	return src[end:]
}

// parseChunk parses Lua source, converting parser panics into errors.
func parseChunk(src []byte, file string) (chunk []ast.Stmt, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &ParseError{File: file, Err: fmt.Errorf("parser panic: %v", r)}
		}
	}()
	chunk, err = parse.Parse(bytes.NewReader(src), file)
	if err != nil {
		return nil, &ParseError{File: file, Err: err}
	}
	return chunk, nil
}

// findRequires walks a parsed chunk and returns its require calls in the
// order they appear in the source.
func findRequires(chunk []ast.Stmt) []reference {
	w := &requireWalker{}
	w.stmts(chunk)
	return w.refs
}

type requireWalker struct {
	refs []reference
}

func (w *requireWalker) stmts(stmts []ast.Stmt) {
	for _, stmt := range stmts {
		w.stmt(stmt)
	}
}

func (w *requireWalker) stmt(stmt ast.Stmt) {
	switch s := stmt.(type) {
	case *ast.AssignStmt:
		w.exprs(s.Lhs)
		w.exprs(s.Rhs)
	case *ast.LocalAssignStmt:
		w.exprs(s.Exprs)
	case *ast.FuncCallStmt:
		w.expr(s.Expr)
	case *ast.DoBlockStmt:
		w.stmts(s.Stmts)
	case *ast.WhileStmt:
		w.expr(s.Condition)
		w.stmts(s.Stmts)
	case *ast.RepeatStmt:
		w.stmts(s.Stmts)
		w.expr(s.Condition)
	case *ast.IfStmt:
		w.expr(s.Condition)
		w.stmts(s.Then)
		w.stmts(s.Else)
	case *ast.NumberForStmt:
		w.expr(s.Init)
		w.expr(s.Limit)
		w.expr(s.Step)
		w.stmts(s.Stmts)
	case *ast.GenericForStmt:
		w.exprs(s.Exprs)
		w.stmts(s.Stmts)
	case *ast.FuncDefStmt:
		if s.Name != nil {
			w.expr(s.Name.Func)
			w.expr(s.Name.Receiver)
		}
		w.expr(s.Func)
	case *ast.ReturnStmt:
		w.exprs(s.Exprs)
	}
}

func (w *requireWalker) exprs(exprs []ast.Expr) {
	for _, e := range exprs {
		w.expr(e)
	}
}

func (w *requireWalker) expr(expr ast.Expr) {
	switch e := expr.(type) {
	case nil:
		return
	case *ast.FuncCallExpr:
		if isRequireCall(e) {
			w.refs = append(w.refs, requireReference(e))
		}
		w.expr(e.Func)
		w.expr(e.Receiver)
		w.exprs(e.Args)
	case *ast.AttrGetExpr:
		w.expr(e.Object)
		w.expr(e.Key)
	case *ast.TableExpr:
		for _, f := range e.Fields {
			if f == nil {
				continue
			}
			w.expr(f.Key)
			w.expr(f.Value)
		}
	case *ast.LogicalOpExpr:
		w.expr(e.Lhs)
		w.expr(e.Rhs)
	case *ast.RelationalOpExpr:
		w.expr(e.Lhs)
		w.expr(e.Rhs)
	case *ast.StringConcatOpExpr:
		w.expr(e.Lhs)
		w.expr(e.Rhs)
	case *ast.ArithmeticOpExpr:
		w.expr(e.Lhs)
		w.expr(e.Rhs)
	case *ast.UnaryMinusOpExpr:
		w.expr(e.Expr)
	case *ast.UnaryNotOpExpr:
		w.expr(e.Expr)
	case *ast.UnaryLenOpExpr:
		w.expr(e.Expr)
	case *ast.FunctionExpr:
		w.stmts(e.Stmts)
	}
}

// isRequireCall matches calls of the global function require, including the
// paren-less forms require "x" and require [[x]].
func isRequireCall(call *ast.FuncCallExpr) bool {
	if call.Receiver != nil {
		return false
	}
	ident, ok := call.Func.(*ast.IdentExpr)
	return ok && ident.Value == "require"
}

func requireReference(call *ast.FuncCallExpr) reference {
	ref := reference{line: call.Line()}
	if len(call.Args) == 0 {
		ref.expr = "no argument"
		return ref
	}
	if lit, ok := call.Args[0].(*ast.StringExpr); ok {
		ref.name = lit.Value
		ref.literal = true
		ref.expr = fmt.Sprintf("%q", lit.Value)
		return ref
	}
	ref.expr = describeExpr(call.Args[0])
	if line := call.Args[0].Line(); line > 0 && ref.line == 0 {
		ref.line = line
	}
	return ref
}

func describeExpr(expr ast.Expr) string {
	switch e := expr.(type) {
	case *ast.IdentExpr:
		return "variable " + e.Value
	case *ast.StringConcatOpExpr:
		return "string concatenation"
	case *ast.FuncCallExpr:
		return "function call result"
	case *ast.AttrGetExpr:
		return "table field"
	case *ast.LogicalOpExpr:
		return fmt.Sprintf("%q expression", e.Operator)
	case *ast.Comma3Expr:
		return "vararg"
	case *ast.NumberExpr:
		return "number " + e.Value
	case *ast.NilExpr:
		return "nil"
	default:
		return "non-literal expression"
	}
}
