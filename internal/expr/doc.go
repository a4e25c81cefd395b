// Package expr implements the small arithmetic/string expression language
// used anywhere a property value may be computed dynamically.
//
// An expression is a plain string; property declarations mark computed
// values with a leading "=" sigil (see IsExpression/Strip). The grammar
// covers numeric and quoted string literals, unary minus, the binary
// operators + - * /, comparison operators producing 1/0, parenthesized
// sub-expressions, identifiers resolved against a caller-supplied variable
// table, and function calls resolved against a function table.
//
// Evaluation is pure and re-entrant: Evaluate never mutates the Env, so the
// same expression can be evaluated once per frame from the render loop.
// All failures are reported as *Error so callers can recover locally and
// keep rendering.
package expr
