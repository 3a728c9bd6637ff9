// Package pipeline composes read-only, multi-stage queries over named
// document collections: match, lookup (join), computed fields and
// projection.
//
// A pipeline never talks to a database directly. It asks a Source for the
// documents whose field equals one of a set of values and performs joins,
// counts and reshaping in process, so any store that can answer that one
// question serves every view built here.
package pipeline

import (
	"context"
	"errors"
	"fmt"
)

// Document is the store-neutral record representation, keyed by JSON field
// name. The identifier lives under "_id".
type Document map[string]any

// Source resolves documents of a collection whose field equals any of
// values. Implementations return fresh documents on every call.
type Source interface {
	Find(ctx context.Context, collection, field string, values []any) ([]Document, error)
}

var (
	ErrNoCollection = errors.New("pipeline has no source collection")
	ErrUnanchored   = errors.New("pipeline must start with a match stage")
)

type Pipeline struct {
	collection string
	stages     []stage
}

type stage interface {
	apply(ctx context.Context, src Source, docs []Document) ([]Document, error)
}

// From starts a pipeline over collection. The first stage must be a Match,
// which is answered by the Source.
func From(collection string) *Pipeline {
	return &Pipeline{collection: collection}
}

// Sub starts a pipeline that runs over the documents matched by a Lookup.
func Sub() *Pipeline {
	return &Pipeline{}
}

func (p *Pipeline) Match(field string, value any) *Pipeline {
	p.stages = append(p.stages, matchStage{field: field, value: value})
	return p
}

func (p *Pipeline) Lookup(l Lookup) *Pipeline {
	p.stages = append(p.stages, l)
	return p
}

func (p *Pipeline) AddFields(fields ...Set) *Pipeline {
	p.stages = append(p.stages, addFieldsStage(fields))
	return p
}

func (p *Pipeline) Project(paths ...string) *Pipeline {
	p.stages = append(p.stages, projectStage(paths))
	return p
}

// Run executes the pipeline. The result is never nil; no match yields an
// empty slice.
func (p *Pipeline) Run(ctx context.Context, src Source) ([]Document, error) {
	if p.collection == "" {
		return nil, ErrNoCollection
	}
	if len(p.stages) == 0 {
		return nil, ErrUnanchored
	}
	first, ok := p.stages[0].(matchStage)
	if !ok {
		return nil, ErrUnanchored
	}

	docs, err := src.Find(ctx, p.collection, first.field, []any{first.value})
	if err != nil {
		return nil, fmt.Errorf("find %s by %s: %w", p.collection, first.field, err)
	}

	return runStages(ctx, src, docs, p.stages[1:])
}

func runStages(ctx context.Context, src Source, docs []Document, stages []stage) ([]Document, error) {
	var err error
	for _, s := range stages {
		docs, err = s.apply(ctx, src, docs)
		if err != nil {
			return nil, err
		}
	}
	if docs == nil {
		docs = []Document{}
	}
	return docs, nil
}

type matchStage struct {
	field string
	value any
}

func (m matchStage) apply(_ context.Context, _ Source, docs []Document) ([]Document, error) {
	out := docs[:0:0]
	for _, doc := range docs {
		for _, v := range values(resolve(doc, m.field)) {
			if equal(v, m.value) {
				out = append(out, doc)
				break
			}
		}
	}
	return out, nil
}

// Lookup joins documents of From whose ForeignField equals the value of
// LocalField and stores them under As. An array LocalField resolves in
// array order, each foreign document at most once. Pipeline, when set, runs
// over every joined set.
type Lookup struct {
	From         string
	LocalField   string
	ForeignField string
	As           string
	Pipeline     *Pipeline
}

func (l Lookup) apply(ctx context.Context, src Source, docs []Document) ([]Document, error) {
	keys := make([]any, 0)
	seen := make(map[any]struct{})
	for _, doc := range docs {
		for _, v := range values(resolve(doc, l.LocalField)) {
			k, ok := key(v)
			if !ok {
				continue
			}
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
	}

	index := make(map[any][]Document)
	if len(keys) > 0 {
		foreign, err := src.Find(ctx, l.From, l.ForeignField, keys)
		if err != nil {
			return nil, fmt.Errorf("lookup %s by %s: %w", l.From, l.ForeignField, err)
		}
		for _, f := range foreign {
			if k, ok := key(f[l.ForeignField]); ok {
				index[k] = append(index[k], f)
			}
		}
	}

	for _, doc := range docs {
		joined := make([]Document, 0)
		used := make(map[any]struct{})
		for _, v := range values(resolve(doc, l.LocalField)) {
			k, ok := key(v)
			if !ok {
				continue
			}
			if _, dup := used[k]; dup {
				continue
			}
			used[k] = struct{}{}
			for _, f := range index[k] {
				joined = append(joined, clone(f))
			}
		}

		if l.Pipeline != nil {
			var err error
			joined, err = runStages(ctx, src, joined, l.Pipeline.stages)
			if err != nil {
				return nil, err
			}
		}
		doc[l.As] = joined
	}

	return docs, nil
}

// Set assigns the value of Expr to the field Name. A nil value removes the
// field.
type Set struct {
	Name string
	Expr Expr
}

type addFieldsStage []Set

func (s addFieldsStage) apply(_ context.Context, _ Source, docs []Document) ([]Document, error) {
	for _, doc := range docs {
		for _, set := range s {
			value := set.Expr.Eval(doc)
			if value == nil {
				delete(doc, set.Name)
				continue
			}
			doc[set.Name] = value
		}
	}
	return docs, nil
}

type projectStage []string

func (s projectStage) apply(_ context.Context, _ Source, docs []Document) ([]Document, error) {
	out := make([]Document, 0, len(docs))
	for _, doc := range docs {
		projected := Document{}
		if id, ok := doc["_id"]; ok {
			projected["_id"] = id
		}
		for _, path := range s {
			project(projected, doc, splitPath(path))
		}
		out = append(out, projected)
	}
	return out, nil
}

func project(dst Document, src any, parts []string) {
	srcDoc, ok := asDocument(src)
	if !ok {
		return
	}
	v, ok := srcDoc[parts[0]]
	if !ok {
		return
	}
	if len(parts) == 1 {
		dst[parts[0]] = v
		return
	}

	if child, ok := asDocument(v); ok {
		sub, _ := asDocument(dst[parts[0]])
		if sub == nil {
			sub = Document{}
		}
		project(sub, child, parts[1:])
		dst[parts[0]] = sub
		return
	}

	elems, ok := slice(v)
	if !ok {
		return
	}
	existing, _ := dst[parts[0]].([]Document)
	if len(existing) != len(elems) {
		existing = make([]Document, len(elems))
		for i := range existing {
			existing[i] = Document{}
		}
	}
	for i, el := range elems {
		project(existing[i], el, parts[1:])
	}
	dst[parts[0]] = existing
}

func clone(doc Document) Document {
	out := make(Document, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out
}
