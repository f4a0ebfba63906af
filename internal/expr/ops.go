package expr

import "fmt"

// BinaryOp is a binary operator.
type BinaryOp int

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpAnd
	OpOr
	OpCoalesce
)

var binaryOpSymbols = [...]string{
	OpAdd:      "+",
	OpSub:      "-",
	OpMul:      "*",
	OpDiv:      "/",
	OpMod:      "%",
	OpEq:       "==",
	OpNe:       "!=",
	OpLt:       "<",
	OpLe:       "<=",
	OpGt:       ">",
	OpGe:       ">=",
	OpAnd:      "&&",
	OpOr:       "||",
	OpCoalesce: "??",
}

func (op BinaryOp) String() string {
	if op >= 0 && int(op) < len(binaryOpSymbols) {
		return binaryOpSymbols[op]
	}
	return fmt.Sprintf("BinaryOp(%d)", int(op))
}

// IsComparison reports whether op yields a boolean from two operands.
func (op BinaryOp) IsComparison() bool {
	switch op {
	case OpEq, OpNe, OpLt, OpLe, OpGt, OpGe:
		return true
	}
	return false
}

// IsLogical reports whether op is a short-circuit boolean operator.
func (op BinaryOp) IsLogical() bool {
	return op == OpAnd || op == OpOr
}

// UnaryOp is a unary operator.
type UnaryOp int

const (
	OpNot UnaryOp = iota
	OpNeg
)

func (op UnaryOp) String() string {
	switch op {
	case OpNot:
		return "!"
	case OpNeg:
		return "-"
	}
	return fmt.Sprintf("UnaryOp(%d)", int(op))
}

// BinaryOf returns a Binary node whose static type is inferred from op and
// the operand types.
func BinaryOf(op BinaryOp, l, r Node) *Binary {
	return &Binary{Typ: binaryType(op, l.Type(), r.Type()), Op: op, Left: l, Right: r}
}

func binaryType(op BinaryOp, l, r *Type) *Type {
	switch {
	case op.IsComparison(), op.IsLogical():
		return BoolType
	case op == OpCoalesce:
		if l != nil && l.Kind != TNull {
			return l
		}
		return r
	case op == OpAdd && (l.Kind == TString || r.Kind == TString):
		return StringType
	case l.Kind == TInt && r.Kind == TInt:
		return IntType
	case l.IsNumeric() && r.IsNumeric():
		return FloatType
	}
	return AnyType
}

// UnaryOf returns a Unary node.
func UnaryOf(op UnaryOp, x Node) *Unary {
	t := x.Type()
	if op == OpNot {
		t = BoolType
	}
	return &Unary{Typ: t, Op: op, Operand: x}
}

func Add(l, r Node) *Binary      { return BinaryOf(OpAdd, l, r) }
func Sub(l, r Node) *Binary      { return BinaryOf(OpSub, l, r) }
func Mul(l, r Node) *Binary      { return BinaryOf(OpMul, l, r) }
func Div(l, r Node) *Binary      { return BinaryOf(OpDiv, l, r) }
func Mod(l, r Node) *Binary      { return BinaryOf(OpMod, l, r) }
func Eq(l, r Node) *Binary       { return BinaryOf(OpEq, l, r) }
func Ne(l, r Node) *Binary       { return BinaryOf(OpNe, l, r) }
func Lt(l, r Node) *Binary       { return BinaryOf(OpLt, l, r) }
func Le(l, r Node) *Binary       { return BinaryOf(OpLe, l, r) }
func Gt(l, r Node) *Binary       { return BinaryOf(OpGt, l, r) }
func Ge(l, r Node) *Binary       { return BinaryOf(OpGe, l, r) }
func And(l, r Node) *Binary      { return BinaryOf(OpAnd, l, r) }
func Or(l, r Node) *Binary       { return BinaryOf(OpOr, l, r) }
func Coalesce(l, r Node) *Binary { return BinaryOf(OpCoalesce, l, r) }
func Not(x Node) *Unary          { return UnaryOf(OpNot, x) }
func Neg(x Node) *Unary          { return UnaryOf(OpNeg, x) }
