package pipeline

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

// Expr computes a value from a document. Returning nil means absent.
type Expr interface {
	Eval(doc Document) any
}

type exprFunc func(doc Document) any

func (f exprFunc) Eval(doc Document) any {
	return f(doc)
}

// Ref reads a dotted path. Paths crossing arrays of documents collect the
// value from every element.
func Ref(path string) Expr {
	parts := splitPath(path)
	return exprFunc(func(doc Document) any {
		return resolvePath(doc, parts)
	})
}

func Literal(v any) Expr {
	return exprFunc(func(Document) any {
		return v
	})
}

// Size counts the elements of the array at path. Missing or non-array
// values count as zero.
func Size(path string) Expr {
	ref := Ref(path)
	return exprFunc(func(doc Document) any {
		elems, _ := slice(ref.Eval(doc))
		return len(elems)
	})
}

// First yields the first element of the array at path, or absent when the
// array is empty.
func First(path string) Expr {
	ref := Ref(path)
	return exprFunc(func(doc Document) any {
		elems, ok := slice(ref.Eval(doc))
		if !ok || len(elems) == 0 {
			return nil
		}
		return elems[0]
	})
}

// In reports whether needle equals any value of haystack. An absent needle
// is never found.
func In(needle, haystack Expr) Expr {
	return exprFunc(func(doc Document) any {
		n := needle.Eval(doc)
		if n == nil {
			return false
		}
		for _, v := range values(haystack.Eval(doc)) {
			if equal(v, n) {
				return true
			}
		}
		return false
	})
}

func Cond(cond, then, otherwise Expr) Expr {
	return exprFunc(func(doc Document) any {
		if truthy(cond.Eval(doc)) {
			return then.Eval(doc)
		}
		return otherwise.Eval(doc)
	})
}

// Decode converts a pipeline result into a typed view through its JSON
// field names.
func Decode(src any, dst any) error {
	raw, err := json.Marshal(src)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	return nil
}

func splitPath(path string) []string {
	return strings.Split(path, ".")
}

func resolve(doc Document, path string) any {
	return resolvePath(doc, splitPath(path))
}

func resolvePath(v any, parts []string) any {
	if len(parts) == 0 {
		return v
	}
	if doc, ok := asDocument(v); ok {
		return resolvePath(doc[parts[0]], parts[1:])
	}
	if elems, ok := slice(v); ok {
		out := make([]any, 0, len(elems))
		for _, el := range elems {
			if r := resolvePath(el, parts); r != nil {
				out = append(out, r)
			}
		}
		return out
	}
	return nil
}

func asDocument(v any) (Document, bool) {
	switch d := v.(type) {
	case Document:
		return d, true
	case map[string]any:
		return Document(d), true
	default:
		return nil, false
	}
}

func slice(v any) ([]any, bool) {
	switch s := v.(type) {
	case []any:
		return s, true
	case []Document:
		out := make([]any, len(s))
		for i, d := range s {
			out[i] = d
		}
		return out, true
	case []string:
		out := make([]any, len(s))
		for i, str := range s {
			out[i] = str
		}
		return out, true
	default:
		return nil, false
	}
}

// values returns the elements of an array value, or the value itself.
func values(v any) []any {
	if v == nil {
		return nil
	}
	if elems, ok := slice(v); ok {
		return elems
	}
	return []any{v}
}

func key(v any) (any, bool) {
	if v == nil {
		return nil, false
	}
	if !reflect.TypeOf(v).Comparable() {
		return nil, false
	}
	return v, true
}

func equal(a, b any) bool {
	ka, ok := key(a)
	if !ok {
		return false
	}
	kb, ok := key(b)
	if !ok {
		return false
	}
	return ka == kb
}

func truthy(v any) bool {
	switch b := v.(type) {
	case nil:
		return false
	case bool:
		return b
	default:
		return true
	}
}
