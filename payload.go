package crax

import (
	"fmt"
	"reflect"
	"strings"
)

// ByteVectorExpr represents a raw byte payload.
type ByteVectorExpr struct {
	data []byte
}

// NewByteVectorExpr returns a new instance of ByteVectorExpr holding a copy of b.
func NewByteVectorExpr(b []byte) *ByteVectorExpr {
	data := make([]byte, len(b))
	copy(data, b)
	return &ByteVectorExpr{data: data}
}

// Len returns the number of bytes in the payload.
func (e *ByteVectorExpr) Len() int { return len(e.data) }

// Bytes returns a copy of the payload.
func (e *ByteVectorExpr) Bytes() []byte {
	other := make([]byte, len(e.data))
	copy(other, e.data)
	return other
}

// String returns the payload as an escaped byte string literal, e.g. b'\x41\x42'.
func (e *ByteVectorExpr) String() string {
	const hextable = "0123456789abcdef"

	var buf strings.Builder
	buf.Grow(3 + 4*len(e.data))
	buf.WriteString("b'")
	for _, c := range e.data {
		buf.WriteString(`\x`)
		buf.WriteByte(hextable[c>>4])
		buf.WriteByte(hextable[c&0x0f])
	}
	buf.WriteByte('\'')
	return buf.String()
}

// placeholder is implemented by every instantiation of PlaceholderExpr.
type placeholder interface {
	Expr
	userDataType() reflect.Type
	userDataValue() interface{}
}

// PlaceholderExpr holds opaque caller metadata. It has no numeric value.
//
// Each type argument produces a distinct node type so a placeholder created
// with one type can never be read back as another.
type PlaceholderExpr[T any] struct {
	userData T
}

// NewPlaceholderExpr returns a new instance of PlaceholderExpr.
func NewPlaceholderExpr[T any](userData T) *PlaceholderExpr[T] {
	return &PlaceholderExpr[T]{userData: userData}
}

// UserData returns the value the placeholder was created with.
func (e *PlaceholderExpr[T]) UserData() T { return e.userData }

// String returns a debugging representation naming the stored type.
func (e *PlaceholderExpr[T]) String() string {
	return fmt.Sprintf("(placeholder %s)", e.userDataType())
}

func (e *PlaceholderExpr[T]) userDataType() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

func (e *PlaceholderExpr[T]) userDataValue() interface{} { return e.userData }

// UserDataOf returns the stored value of a placeholder of any type.
// Returns false if expr is not a placeholder.
func UserDataOf(expr Expr) (interface{}, bool) {
	if expr, ok := expr.(placeholder); ok {
		return expr.userDataValue(), true
	}
	return nil, false
}

// Action represents a deferred side effect.
type Action interface {
	Execute()
}

// ActionFunc adapts a function to the Action interface.
type ActionFunc func()

// Execute calls fn.
func (fn ActionFunc) Execute() { fn() }

// LambdaExpr represents a deferred action. The action runs each time the
// expression is invoked; results are only observable through side effects.
//
// Invoke is safe to call concurrently only if the action itself is.
type LambdaExpr struct {
	action Action
}

// NewLambdaExpr returns a new instance of LambdaExpr that calls fn.
func NewLambdaExpr(fn func()) *LambdaExpr {
	assert(fn != nil, "lambda: nil func")
	return NewActionExpr(ActionFunc(fn))
}

// NewActionExpr returns a new instance of LambdaExpr that executes action.
func NewActionExpr(action Action) *LambdaExpr {
	assert(action != nil, "lambda: nil action")
	return &LambdaExpr{action: action}
}

// Invoke executes the action synchronously.
func (e *LambdaExpr) Invoke() {
	e.action.Execute()
}

// String returns the string representation of the expression.
func (e *LambdaExpr) String() string {
	return "(lambda)"
}
