package crax

import (
	"fmt"
)

// Expr represents a payload expression node.
//
// Nodes are immutable once constructed so an Expr value may be shared freely
// between owners and read from multiple goroutines.
type Expr interface {
	String() string
	expr()
}

func (*AddExpr) expr()            {}
func (*BaseOffsetExpr) expr()     {}
func (*ByteVectorExpr) expr()     {}
func (*ConstantExpr) expr()       {}
func (*LambdaExpr) expr()         {}
func (*PlaceholderExpr[T]) expr() {}

// Kind is the coarse category reported by a node.
//
// Several node types share a kind so it must not be used to identify the
// concrete type of a node. Use TypeOf() or As() instead.
type Kind int

const (
	ConstantKind = Kind(iota)
	InvalidKind
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case ConstantKind:
		return "constant"
	case InvalidKind:
		return "invalid"
	default:
		return fmt.Sprintf("Kind<%d>", k)
	}
}

// ExprType identifies the concrete type of a node.
type ExprType int

const (
	ConstantType = ExprType(iota + 1)
	AddType
	BaseOffsetType
	ByteVectorType
	PlaceholderType
	LambdaType
)

var exprTypes = [...]string{
	ConstantType:    "const",
	AddType:         "add",
	BaseOffsetType:  "base-offset",
	ByteVectorType:  "byte-vector",
	PlaceholderType: "placeholder",
	LambdaType:      "lambda",
}

// String returns the string representation of the type.
func (typ ExprType) String() string {
	if typ >= 0 && typ < ExprType(len(exprTypes)) && exprTypes[typ] != "" {
		return exprTypes[typ]
	}
	return fmt.Sprintf("ExprType<%d>", typ)
}

// TypeOf returns the concrete type of expr.
func TypeOf(expr Expr) ExprType {
	switch expr.(type) {
	case *ConstantExpr:
		return ConstantType
	case *AddExpr:
		return AddType
	case *BaseOffsetExpr:
		return BaseOffsetType
	case *ByteVectorExpr:
		return ByteVectorType
	case placeholder:
		return PlaceholderType
	case *LambdaExpr:
		return LambdaType
	default:
		panic("unreachable")
	}
}

// As returns expr as its concrete type T. Returns false if expr is nil or if
// its dynamic type is not exactly T.
func As[T Expr](expr Expr) (T, bool) {
	v, ok := expr.(T)
	return v, ok
}

// ExprKind returns the coarse kind reported by expr.
func ExprKind(expr Expr) Kind {
	switch expr.(type) {
	case *ConstantExpr, *AddExpr, *BaseOffsetExpr, *ByteVectorExpr:
		return ConstantKind
	case placeholder, *LambdaExpr:
		return InvalidKind
	default:
		panic("unreachable")
	}
}

// ExprWidth returns the bit width of the expression.
// Non-numeric expressions return WidthInvalid.
func ExprWidth(expr Expr) uint {
	switch expr := expr.(type) {
	case *ConstantExpr:
		return expr.Width
	case *AddExpr, *BaseOffsetExpr:
		return Width64
	case *ByteVectorExpr:
		return Width8 * uint(len(expr.data))
	case placeholder, *LambdaExpr:
		return WidthInvalid
	default:
		panic("unreachable")
	}
}

// NumKids returns the number of child expressions of expr.
func NumKids(expr Expr) int {
	switch expr.(type) {
	case *AddExpr, *BaseOffsetExpr:
		return 2
	case *ConstantExpr, *ByteVectorExpr, placeholder, *LambdaExpr:
		return 0
	default:
		panic("unreachable")
	}
}

// Kid returns the child of expr at index i.
// Returns nil if i is out of range.
func Kid(expr Expr, i int) Expr {
	var add *AddExpr
	switch expr := expr.(type) {
	case *AddExpr:
		add = expr
	case *BaseOffsetExpr:
		add = &expr.AddExpr
	case *ConstantExpr, *ByteVectorExpr, placeholder, *LambdaExpr:
		return nil
	default:
		panic("unreachable")
	}

	switch i {
	case 0:
		return add.LHS
	case 1:
		return add.RHS
	default:
		return nil
	}
}

// Rebuild returns a copy of expr with its children replaced by kids.
//
// Leaf expressions are returned as-is when kids is empty. Sum expressions
// require exactly two constant kids. Returns nil if kids does not fit expr.
func Rebuild(expr Expr, kids []Expr) Expr {
	switch expr := expr.(type) {
	case *ConstantExpr, *ByteVectorExpr, placeholder, *LambdaExpr:
		if len(kids) != 0 {
			return nil
		}
		return expr
	case *AddExpr:
		lhs, rhs, ok := constantPair(kids)
		if !ok {
			return nil
		}
		return NewAddExpr(lhs, rhs)
	case *BaseOffsetExpr:
		lhs, rhs, ok := constantPair(kids)
		if !ok {
			return nil
		}
		return NewBaseOffsetExpr(lhs, rhs, expr.Base, expr.Offset)
	default:
		panic("unreachable")
	}
}

func constantPair(kids []Expr) (lhs, rhs *ConstantExpr, ok bool) {
	if len(kids) != 2 {
		return nil, nil, false
	}
	if lhs, ok = kids[0].(*ConstantExpr); !ok {
		return nil, nil, false
	}
	if rhs, ok = kids[1].(*ConstantExpr); !ok {
		return nil, nil, false
	}
	if lhs == nil || rhs == nil {
		return nil, nil, false
	}
	return lhs, rhs, true
}

// Value returns the numeric value of expr.
// Returns false if expr does not have a numeric value.
func Value(expr Expr) (uint64, bool) {
	switch expr := expr.(type) {
	case *ConstantExpr:
		return expr.Value, true
	case *AddExpr:
		return expr.Value(), true
	case *BaseOffsetExpr:
		return expr.Value(), true
	default:
		return 0, false
	}
}

// ConstantExpr represents a fixed integer value.
type ConstantExpr struct {
	Value uint64
	Width uint
}

// NewConstantExpr returns a new instance of ConstantExpr.
func NewConstantExpr(value uint64, width uint) *ConstantExpr {
	return &ConstantExpr{Value: value, Width: width}
}

// NewConstantExpr64 returns a 64-bit constant expression.
func NewConstantExpr64(value uint64) *ConstantExpr {
	return NewConstantExpr(value, Width64)
}

// String returns the string representation of the expression.
func (e *ConstantExpr) String() string {
	return fmt.Sprintf("(const 0x%x %d)", e.Value, e.Width)
}

// Add returns the sum of e and other. The sum wraps on overflow and always
// takes the width of e.
func (e *ConstantExpr) Add(other *ConstantExpr) *ConstantExpr {
	return NewConstantExpr(e.Value+other.Value, e.Width)
}

// AddExpr represents the sum of two constants.
// The sum is not computed until it is read.
type AddExpr struct {
	LHS *ConstantExpr
	RHS *ConstantExpr
}

// NewAddExpr returns a new instance of AddExpr.
func NewAddExpr(lhs, rhs *ConstantExpr) *AddExpr {
	assert(lhs != nil && rhs != nil, "add: nil operand")
	return &AddExpr{LHS: lhs, RHS: rhs}
}

// String returns the string representation of the expression.
func (e *AddExpr) String() string {
	return fmt.Sprintf("(add %s %s)", e.LHS, e.RHS)
}

// Value returns the sum of both operands.
func (e *AddExpr) Value() uint64 {
	return e.LHS.Value + e.RHS.Value
}

// BaseOffsetExpr represents an address relative to a named base, such as a
// symbol offset from an image load address.
type BaseOffsetExpr struct {
	AddExpr

	Base   string // label of the base, e.g. "elf_base"
	Offset string // label of the offset; empty renders RHS as hex
}

// NewBaseOffsetExpr returns a new instance of BaseOffsetExpr.
func NewBaseOffsetExpr(lhs, rhs *ConstantExpr, base, offset string) *BaseOffsetExpr {
	assert(lhs != nil && rhs != nil, "base offset: nil operand")
	return &BaseOffsetExpr{
		AddExpr: AddExpr{LHS: lhs, RHS: rhs},
		Base:    base,
		Offset:  offset,
	}
}

// String returns the base label and the offset label joined by a plus sign.
// A hex rendering of the offset value is used if no offset label is set.
func (e *BaseOffsetExpr) String() string {
	if e.Offset != "" {
		return e.Base + " + " + e.Offset
	}
	return fmt.Sprintf("%s + 0x%x", e.Base, e.RHS.Value)
}
