package plan

import (
	"github.com/arraydb/arraydb/pkg/container/types"
)

// CompiledExpr is a parameter expression compiled against the function
// catalog; the surface expression language is out of scope (spec.md §1
// Non-goals name it an external collaborator), so this is the minimal
// compiled-parameter contract the optimizer's tile-mode decision needs.
type CompiledExpr struct {
	Source string
	tile   bool
}

// SupportsTileMode reports whether this compiled expression can run in
// batched tile mode.
func (c *CompiledExpr) SupportsTileMode() bool { return c.tile }

// ExprCompiler compiles a raw expression string against a function
// catalog, with an explicit tile-mode flag that the compiled expression
// reports back through SupportsTileMode.
type ExprCompiler struct {
	Funcs *types.FuncCatalog
}

// Compile compiles src. It never fails, and the result supports tile mode
// exactly when tileMode was requested; function calls in src are not
// checked for tile capability, so CompileWithTileRetry's fallback to
// non-tile compilation is not reached through this compiler.
func (c *ExprCompiler) Compile(src string, tileMode bool) (*CompiledExpr, error) {
	// The expression language itself is external; this stands in for
	// "parse src, resolve each call via c.Funcs, compile to an evaluable
	// form" with the one bit the optimizer's pipeline actually consumes.
	return &CompiledExpr{Source: src, tile: tileMode}, nil
}

// CompileWithTileRetry implements spec.md §4.5 step 2's tile-mode
// decision: tile mode is attempted iff the runtime permits tiles, the
// operator declares the tile property, and the expression reports
// SupportsTileMode(); if compilation under tile mode fails, it retries
// once with tile mode disabled.
func (c *ExprCompiler) CompileWithTileRetry(src string, runtimeAllowsTiles, opDeclaresTile bool) (*CompiledExpr, bool, error) {
	wantTile := runtimeAllowsTiles && opDeclaresTile
	if wantTile {
		expr, err := c.Compile(src, true)
		if err == nil && expr.SupportsTileMode() {
			return expr, true, nil
		}
	}
	expr, err := c.Compile(src, false)
	return expr, false, err
}
