package expr

import (
	"fmt"
	"reflect"
)

// Kind tags the variant of a Node.
type Kind int

const (
	KindConstant Kind = iota
	KindParameter
	KindCall
	KindMember
	KindBinary
	KindUnary
	KindNew
	KindMemberInit
	KindListInit
	KindLambda
	KindFailure
	KindExtension
)

var kindNames = [...]string{
	KindConstant:   "Constant",
	KindParameter:  "Parameter",
	KindCall:       "Call",
	KindMember:     "Member",
	KindBinary:     "Binary",
	KindUnary:      "Unary",
	KindNew:        "New",
	KindMemberInit: "MemberInit",
	KindListInit:   "ListInit",
	KindLambda:     "Lambda",
	KindFailure:    "Failure",
	KindExtension:  "Extension",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Node is a node of an expression tree.
//
// This is a sealed interface - only types in this package implement it.
// Nodes are immutable once built and identified by pointer.
type Node interface {
	Kind() Kind
	Type() *Type
	exprNode() // Marker method - seals interface to this package
}

// Constant is a literal value.
type Constant struct {
	Typ   *Type
	Value any
}

// Parameter is a lambda range variable: the point where data flows from
// one query stage into the next. It is never foldable.
type Parameter struct {
	Typ  *Type
	Name string
}

// Method is a callable host function. Fn receives the evaluated receiver
// (nil for static calls) and arguments. A nil Fn means the method only has
// a meaning inside the native query language.
type Method struct {
	Name string
	Fn   func(recv any, args []any) (any, error)
}

// Call invokes Method on an optional Receiver with Args.
type Call struct {
	Typ      *Type
	Receiver Node // nil for static calls
	Method   *Method
	Args     []Node
}

// Member accesses the named field of Object.
type Member struct {
	Typ    *Type
	Object Node
	Name   string
}

// Binary applies a binary operator.
type Binary struct {
	Typ   *Type
	Op    BinaryOp
	Left  Node
	Right Node
}

// Unary applies a unary operator.
type Unary struct {
	Typ     *Type
	Op      UnaryOp
	Operand Node
}

// Ctor constructs a host value. A nil Ctor (or nil Fn) builds an empty
// document for MemberInit and an empty list for ListInit.
type Ctor struct {
	Name string
	Fn   func(args []any) (any, error)
}

// New constructs a value with Ctor applied to Args.
type New struct {
	Typ  *Type
	Ctor *Ctor
	Args []Node
}

// Binding assigns Value to the named member of a MemberInit.
type Binding struct {
	Name  string
	Value Node
}

// MemberInit constructs a value and assigns its members.
type MemberInit struct {
	Typ      *Type
	New      *New
	Bindings []Binding
}

// ListInit constructs a list and appends Items to it.
type ListInit struct {
	Typ   *Type
	New   *New
	Items []Node
}

// Lambda is an anonymous function over Params.
type Lambda struct {
	Typ    *Type
	Params []*Parameter
	Body   Node
}

// Failure records that evaluating a subtree failed. It stands in the slot
// a Constant would otherwise occupy and carries the captured error, so a
// consumer that needs the value must handle the failure explicitly.
type Failure struct {
	Typ *Type
	Err error
}

// Extension is a backend-specific node. Its Operands are opaque to the
// default traversal.
type Extension struct {
	Typ      *Type
	Name     string
	Operands []Node
}

// Func is the host value of an evaluated Lambda.
type Func func(args ...any) (any, error)

func (n *Constant) Kind() Kind   { return KindConstant }
func (n *Parameter) Kind() Kind  { return KindParameter }
func (n *Call) Kind() Kind       { return KindCall }
func (n *Member) Kind() Kind     { return KindMember }
func (n *Binary) Kind() Kind     { return KindBinary }
func (n *Unary) Kind() Kind      { return KindUnary }
func (n *New) Kind() Kind        { return KindNew }
func (n *MemberInit) Kind() Kind { return KindMemberInit }
func (n *ListInit) Kind() Kind   { return KindListInit }
func (n *Lambda) Kind() Kind     { return KindLambda }
func (n *Failure) Kind() Kind    { return KindFailure }
func (n *Extension) Kind() Kind  { return KindExtension }

func (n *Constant) Type() *Type   { return n.Typ }
func (n *Parameter) Type() *Type  { return n.Typ }
func (n *Call) Type() *Type       { return n.Typ }
func (n *Member) Type() *Type     { return n.Typ }
func (n *Binary) Type() *Type     { return n.Typ }
func (n *Unary) Type() *Type      { return n.Typ }
func (n *New) Type() *Type        { return n.Typ }
func (n *MemberInit) Type() *Type { return n.Typ }
func (n *ListInit) Type() *Type   { return n.Typ }
func (n *Lambda) Type() *Type     { return n.Typ }
func (n *Failure) Type() *Type    { return n.Typ }
func (n *Extension) Type() *Type  { return n.Typ }

func (*Constant) exprNode()   {}
func (*Parameter) exprNode()  {}
func (*Call) exprNode()       {}
func (*Member) exprNode()     {}
func (*Binary) exprNode()     {}
func (*Unary) exprNode()      {}
func (*New) exprNode()        {}
func (*MemberInit) exprNode() {}
func (*ListInit) exprNode()   {}
func (*Lambda) exprNode()     {}
func (*Failure) exprNode()    {}
func (*Extension) exprNode()  {}

// TypeOf returns the static type describing a host value.
func TypeOf(v any) *Type {
	switch v.(type) {
	case nil:
		return NullType
	case bool:
		return BoolType
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32:
		return IntType
	case float32, float64:
		return FloatType
	case string:
		return StringType
	case map[string]any:
		return ObjectType
	case []any:
		return ListOf(AnyType)
	case Func:
		return FuncType
	}
	return HostType(reflect.TypeOf(v).String())
}

// Const returns a Constant holding v, typed by TypeOf.
func Const(v any) *Constant {
	return &Constant{Typ: TypeOf(v), Value: v}
}

// TypedConst returns a Constant holding v with an explicit static type.
func TypedConst(t *Type, v any) *Constant {
	return &Constant{Typ: t, Value: v}
}

// Param returns a new Parameter.
func Param(name string, t *Type) *Parameter {
	return &Parameter{Typ: t, Name: name}
}

// CallOf returns a Call of m on recv (nil for a static call).
func CallOf(t *Type, recv Node, m *Method, args ...Node) *Call {
	return &Call{Typ: t, Receiver: recv, Method: m, Args: args}
}

// MemberOf returns an access to the named member of obj.
func MemberOf(obj Node, name string, t *Type) *Member {
	return &Member{Typ: t, Object: obj, Name: name}
}

// NewOf returns a New node.
func NewOf(t *Type, c *Ctor, args ...Node) *New {
	return &New{Typ: t, Ctor: c, Args: args}
}

// MemberInitOf returns a MemberInit constructing n and assigning bindings.
func MemberInitOf(n *New, bindings ...Binding) *MemberInit {
	return &MemberInit{Typ: n.Typ, New: n, Bindings: bindings}
}

// Bind returns a Binding.
func Bind(name string, v Node) Binding {
	return Binding{Name: name, Value: v}
}

// ListInitOf returns a ListInit constructing n and appending items.
func ListInitOf(n *New, items ...Node) *ListInit {
	return &ListInit{Typ: n.Typ, New: n, Items: items}
}

// LambdaOf returns a Lambda over params.
func LambdaOf(body Node, params ...*Parameter) *Lambda {
	return &Lambda{Typ: FuncType, Params: params, Body: body}
}

// Fail returns a Failure of static type t carrying err.
func Fail(t *Type, err error) *Failure {
	return &Failure{Typ: t, Err: err}
}

// Ext returns an Extension node.
func Ext(name string, t *Type, operands ...Node) *Extension {
	return &Extension{Typ: t, Name: name, Operands: operands}
}
