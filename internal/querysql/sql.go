package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/docql/internal/doc"
)

// frag is a piece of SQL text with the parameters its placeholders bind,
// in textual order.
type frag struct {
	sql    string
	params []any
	err    error
}

func raw(sql string) frag {
	return frag{sql: sql}
}

func bound(v any) frag {
	return frag{sql: "?", params: []any{v}}
}

// builder concatenates fragments, keeping parameters in textual order.
type builder struct {
	b      strings.Builder
	params []any
}

func (s *builder) raw(parts ...string) *builder {
	for _, p := range parts {
		s.b.WriteString(p)
	}
	return s
}

func (s *builder) frag(f frag) *builder {
	s.b.WriteString(f.sql)
	s.params = append(s.params, f.params...)
	return s
}

func (s *builder) join(frags []frag, sep string) *builder {
	for i, f := range frags {
		if i > 0 {
			s.b.WriteString(sep)
		}
		s.frag(f)
	}
	return s
}

func (s *builder) build() frag {
	return frag{sql: s.b.String(), params: s.params}
}

// call renders fn(args...).
func call(fn string, args ...frag) frag {
	var s builder
	s.raw(fn, "(").join(args, ", ").raw(")")
	return s.build()
}

// sqlString quotes s as an SQL string literal.
func sqlString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// jsonPath renders an SQLite JSON path literal for an attribute path.
// Labels that are not plain identifiers are double-quoted.
func jsonPath(path []string) (string, error) {
	var b strings.Builder
	b.WriteByte('$')
	for _, p := range path {
		if strings.ContainsAny(p, `"`) || p == "" {
			return "", fmt.Errorf("attribute name %q: %w", p, ErrUnsupported)
		}
		b.WriteByte('.')
		if isIdent(p) {
			b.WriteString(p)
		} else {
			b.WriteString(`"` + p + `"`)
		}
	}
	return sqlString(b.String()), nil
}

func isIdent(s string) bool {
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return s != ""
}

// param converts a folded constant into a bindable SQL value. Lists and
// documents are bound as canonical JSON text and wrapped in json().
func param(v any) (frag, error) {
	n, err := doc.Normalize(v)
	if err != nil {
		return frag{}, fmt.Errorf("constant %T: %w", v, ErrUnsupported)
	}
	switch n.(type) {
	case []any, doc.Object:
		text, err := doc.MarshalCanonical(n)
		if err != nil {
			return frag{}, err
		}
		return frag{sql: "json(?)", params: []any{string(text)}}, nil
	}
	return bound(n), nil
}
