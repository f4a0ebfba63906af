package doc

import "fmt"

// System attribute names. They are stored in their own columns and are
// never part of a document body.
const (
	KeyAttr = "_key"
	RevAttr = "_rev"
)

// Document is a stored document: its key, its revision and its body.
type Document struct {
	Key  string `json:"_key"`
	Rev  string `json:"_rev"`
	Body Object `json:"-"`
}

// New builds a Document from a raw body, taking the key from the _key
// attribute if present. The revision is computed from the body.
func New(raw Object) (*Document, error) {
	body := StripSystem(raw)
	key := ""
	if k, ok := raw[KeyAttr]; ok {
		s, isString := k.(string)
		if !isString {
			return nil, fmt.Errorf("%s must be a string, got %s", KeyAttr, TypeName(k))
		}
		key = s
	}
	rev, err := Revision(body)
	if err != nil {
		return nil, err
	}
	return &Document{Key: key, Rev: rev, Body: body}, nil
}

// Object returns the body with the system attributes added.
func (d *Document) Object() Object {
	out := make(Object, len(d.Body)+2)
	for k, v := range d.Body {
		out[k] = v
	}
	out[KeyAttr] = d.Key
	out[RevAttr] = d.Rev
	return out
}

// StripSystem returns obj without system attributes. obj is not modified;
// if it has no system attributes it is returned as-is.
func StripSystem(obj Object) Object {
	_, hasKey := obj[KeyAttr]
	_, hasRev := obj[RevAttr]
	if !hasKey && !hasRev {
		return obj
	}
	out := make(Object, len(obj))
	for k, v := range obj {
		if k == KeyAttr || k == RevAttr {
			continue
		}
		out[k] = v
	}
	return out
}

// Merge applies patch to base and returns the result as a new object.
// Nested objects are merged recursively. A null in patch removes the
// attribute unless keepNull is set. base is not modified.
func Merge(base, patch Object, keepNull bool) Object {
	out := make(Object, len(base)+len(patch))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range patch {
		if v == nil && !keepNull {
			delete(out, k)
			continue
		}
		pv, isObj := v.(Object)
		bv, baseObj := out[k].(Object)
		if isObj && baseObj {
			out[k] = Merge(bv, pv, keepNull)
			continue
		}
		out[k] = v
	}
	return out
}

// Lookup resolves a dotted path ("a.b.c") in obj. Missing attributes and
// non-object intermediates yield nil, false.
func Lookup(obj Object, path []string) (Value, bool) {
	var cur Value = obj
	for _, p := range path {
		m, ok := cur.(Object)
		if !ok {
			return nil, false
		}
		cur, ok = m[p]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}
