// Package querydef turns declarative query definitions into query trees.
//
// A definition names a collection and the operators to apply to it:
//
//	from: users
//	where: {gt: [{field: age}, {add: [18, 3]}]}
//	order_by: [{field: name}, {field: age, desc: true}]
//	take: 10
//	select: {name: {field: name}, shout: {upper: [{field: name}]}}
//
// Expressions are scalar literals, lists, {field: path} references to the
// current document, single-key operator maps ({gt: [a, b]}, {not: x},
// {upper: [x]}) and, for any other map, an object whose attributes are
// expressions (only inside select). {const: v} embeds v literally.
//
// With a join, the current document becomes an object holding both sides
// under the outer collection name and the join's alias; {field: p} reads
// the outer side and {field: p, of: alias} the inner one.
package querydef

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/roach88/docql/internal/doc"
)

// Definition is a declarative query.
type Definition struct {
	From    string      `yaml:"from" json:"from"`
	Where   doc.Value   `yaml:"where,omitempty" json:"where,omitempty"`
	Join    *Join       `yaml:"join,omitempty" json:"join,omitempty"`
	OrderBy []doc.Value `yaml:"order_by,omitempty" json:"order_by,omitempty"`
	Select  doc.Value   `yaml:"select,omitempty" json:"select,omitempty"`
	Skip    doc.Value   `yaml:"skip,omitempty" json:"skip,omitempty"`
	Take    doc.Value   `yaml:"take,omitempty" json:"take,omitempty"`
	Count   bool        `yaml:"count,omitempty" json:"count,omitempty"`
}

// Join correlates the query with a second collection.
type Join struct {
	Collection string    `yaml:"collection" json:"collection"`
	As         string    `yaml:"as,omitempty" json:"as,omitempty"`
	Where      doc.Value `yaml:"where,omitempty" json:"where,omitempty"`
	OuterKey   doc.Value `yaml:"outer_key" json:"outer_key"`
	InnerKey   doc.Value `yaml:"inner_key" json:"inner_key"`
}

// Alias returns the name the inner side is known by.
func (j *Join) Alias() string {
	if j.As != "" {
		return j.As
	}
	return j.Collection
}

var (
	// ErrInvalid is wrapped by every definition error.
	ErrInvalid = errors.New("invalid query definition")

	// ErrUnknownOperator is returned for operator maps with an unknown key.
	ErrUnknownOperator = errors.New("unknown operator")
)

// Error locates a problem inside a definition, e.g. "where.gt[1].add[0]".
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Path == "" {
		return e.Err.Error()
	}
	return e.Path + ": " + e.Err.Error()
}

func (e *Error) Unwrap() []error {
	return []error{e.Err, ErrInvalid}
}

func errAt(path string, format string, args ...any) error {
	return &Error{Path: path, Err: fmt.Errorf(format, args...)}
}

// ParseYAML decodes a YAML (or JSON) definition. Unknown keys are errors.
func ParseYAML(data []byte) (*Definition, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var def Definition
	if err := dec.Decode(&def); err != nil {
		return nil, &Error{Err: fmt.Errorf("decode yaml: %w", err)}
	}
	return &def, nil
}

// ParseCUE decodes a CUE definition. The file's top-level fields are the
// definition; it must be concrete.
func ParseCUE(data []byte, filename string) (*Definition, error) {
	v := cuecontext.New().CompileBytes(data, cue.Filename(filename))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, &Error{Err: fmt.Errorf("cue: %w", err)}
	}
	js, err := v.MarshalJSON()
	if err != nil {
		return nil, &Error{Err: fmt.Errorf("cue: %w", err)}
	}

	dec := json.NewDecoder(bytes.NewReader(js))
	dec.UseNumber()
	dec.DisallowUnknownFields()

	var def Definition
	if err := dec.Decode(&def); err != nil {
		return nil, &Error{Err: fmt.Errorf("decode cue: %w", err)}
	}
	return &def, nil
}

// ParseFile reads a definition, choosing the format by extension: .cue
// for CUE, anything else as YAML.
func ParseFile(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if filepath.Ext(path) == ".cue" {
		return ParseCUE(data, path)
	}
	return ParseYAML(data)
}
