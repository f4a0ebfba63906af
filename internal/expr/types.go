package expr

import "fmt"

// TypeKind classifies a static result type.
type TypeKind int

const (
	TAny TypeKind = iota
	TNull
	TBool
	TInt
	TFloat
	TString
	TList
	TObject
	TFunc
	THost
	TSource
)

var typeKindNames = [...]string{
	TAny:    "any",
	TNull:   "null",
	TBool:   "bool",
	TInt:    "int",
	TFloat:  "float",
	TString: "string",
	TList:   "list",
	TObject: "object",
	TFunc:   "func",
	THost:   "host",
	TSource: "source",
}

func (k TypeKind) String() string {
	if k >= 0 && int(k) < len(typeKindNames) {
		return typeKindNames[k]
	}
	return fmt.Sprintf("TypeKind(%d)", int(k))
}

// Type is the static result type descriptor carried by every node.
//
// Types are compared by Kind and element type, not by pointer, so
// SourceOf(ObjectType) built twice describes the same type.
type Type struct {
	Kind TypeKind
	Name string // host type name for THost, collection name for TSource (optional)
	Elem *Type  // element type for TList and TSource
}

// Predeclared scalar types.
var (
	AnyType    = &Type{Kind: TAny}
	NullType   = &Type{Kind: TNull}
	BoolType   = &Type{Kind: TBool}
	IntType    = &Type{Kind: TInt}
	FloatType  = &Type{Kind: TFloat}
	StringType = &Type{Kind: TString}
	ObjectType = &Type{Kind: TObject}
	FuncType   = &Type{Kind: TFunc}
)

// ListOf returns the type of a list of elem.
func ListOf(elem *Type) *Type {
	return &Type{Kind: TList, Elem: elem}
}

// SourceOf returns the type of a live, queryable collection of elem.
// Nodes of this type carry the data-source capability.
func SourceOf(elem *Type) *Type {
	return &Type{Kind: TSource, Elem: elem}
}

// HostType returns an opaque host type with the given name.
func HostType(name string) *Type {
	return &Type{Kind: THost, Name: name}
}

// IsDataSource reports whether values of t are live handles into the data
// source. It answers from the static type alone and is safe on a nil Type.
func (t *Type) IsDataSource() bool {
	return t != nil && t.Kind == TSource
}

// IsNumeric reports whether t is an int or float type.
func (t *Type) IsNumeric() bool {
	return t != nil && (t.Kind == TInt || t.Kind == TFloat)
}

// Equal reports whether t and u describe the same type.
func (t *Type) Equal(u *Type) bool {
	if t == u {
		return true
	}
	if t == nil || u == nil {
		return false
	}
	if t.Kind != u.Kind {
		return false
	}
	if t.Kind == THost && t.Name != u.Name {
		return false
	}
	if t.Elem == nil || u.Elem == nil {
		return t.Elem == u.Elem
	}
	return t.Elem.Equal(u.Elem)
}

func (t *Type) String() string {
	if t == nil {
		return "<nil>"
	}
	switch t.Kind {
	case TList:
		return "list<" + t.Elem.String() + ">"
	case TSource:
		return "source<" + t.Elem.String() + ">"
	case THost:
		return t.Name
	default:
		return t.Kind.String()
	}
}
