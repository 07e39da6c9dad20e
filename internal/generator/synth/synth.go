// Package synth walks a merged schema and builds, per message, the
// statement/expression trees of the unified access surface: readers,
// presence checks, mutators, escape hatches and revision constructors.
// Every accessor body is a single switch over the wrapped value's revision
// tag; the tag is fixed at construction, so dispatch is one comparison and
// never re-resolved per call. Synthesis is pure: the same merged schema
// always yields byte-identical trees.
package synth

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/protoverge/protoverge/internal/generator/ir"
	"github.com/protoverge/protoverge/internal/generator/merge"
	"github.com/protoverge/protoverge/internal/generator/policy"
	"github.com/protoverge/protoverge/internal/generator/schema"
	"github.com/protoverge/protoverge/internal/logging"
)

// Artifact is the synthesized access surface for one merged message
type Artifact struct {
	Message string     // canonical merged message name
	Wrapper string     // unified wrapper type name
	Funcs   []*ir.Func // deterministic order: tag, constructors, fields
	Fields  int        // merged fields covered
}

// Synthesizer builds artifacts from merged messages according to a policy
// registry. It holds no mutable state and is safe for concurrent use.
type Synthesizer struct {
	reg *policy.Registry
	log *zap.SugaredLogger
}

// New creates a synthesizer bound to a policy registry
func New(reg *policy.Registry) *Synthesizer {
	return &Synthesizer{
		reg: reg,
		log: logging.For("synth"),
	}
}

// Message synthesizes the full accessor surface for one merged message
func (s *Synthesizer) Message(m *merge.MergedMessage) (*Artifact, error) {
	art := &Artifact{
		Message: m.Name,
		Wrapper: wrapperName(m.Name),
	}

	art.Funcs = append(art.Funcs, s.tagAccessor(art.Wrapper))
	for _, tag := range m.Revisions {
		art.Funcs = append(art.Funcs, s.constructor(art.Wrapper, m, tag))
	}

	for _, f := range m.Fields {
		plan, ok := s.reg.PlanFor(f.Conflict)
		if !ok {
			return nil, fmt.Errorf("no synthesis plan for conflict %s on field %q of %s",
				f.Conflict, f.Name, m.Name)
		}
		art.Funcs = append(art.Funcs, s.fieldFuncs(art.Wrapper, m, f, plan)...)
		art.Fields++
	}

	s.log.Debugw("synthesized message",
		"message", m.Name,
		"fields", art.Fields,
		"funcs", len(art.Funcs),
	)
	return art, nil
}

// tagAccessor returns the revision-tag reader every wrapper carries
func (s *Synthesizer) tagAccessor(wrapper string) *ir.Func {
	return &ir.Func{
		Name:    "RevisionTag",
		Doc:     "RevisionTag reports which revision's payload the value wraps.",
		Recv:    wrapper,
		Results: []ir.TypeRef{{Kind: ir.TypeRevisionTag}},
		Role:    ir.RoleTag,
		Body: &ir.Block{Stmts: []ir.Stmt{
			&ir.Return{Value: &ir.RevisionTag{}},
		}},
	}
}

// constructor wraps one revision's payload, binding the tag once
func (s *Synthesizer) constructor(wrapper string, m *merge.MergedMessage, tag string) *ir.Func {
	return &ir.Func{
		Name: "From" + tagSuffix(tag),
		Doc: fmt.Sprintf("From%s wraps a revision %s payload. The revision tag is resolved here once; accessors dispatch on it without re-inspection.",
			tagSuffix(tag), tag),
		Recv:     wrapper,
		Params:   []ir.Param{{Name: "p", Type: ir.TypeRef{Kind: ir.TypeNamed, Name: m.Name}}},
		Results:  []ir.TypeRef{{Kind: ir.TypeNamed, Name: wrapper}},
		Role:     ir.RoleConstructor,
		Revision: tag,
		Body: &ir.Block{Stmts: []ir.Stmt{
			&ir.Assign{Target: &ir.Ident{Name: "revision"}, Value: &ir.StringLit{Value: tag}},
			&ir.Assign{Target: &ir.Ident{Name: "payload"}, Value: &ir.Ident{Name: "p"}},
			&ir.Return{Value: &ir.Ident{Name: "self"}},
		}},
	}
}

// fieldFuncs synthesizes every accessor the plan prescribes for one field,
// in a fixed order: reader, enum reader, presence checks, supports probe,
// writers, then escape hatches.
func (s *Synthesizer) fieldFuncs(wrapper string, m *merge.MergedMessage, f *merge.MergedField, plan policy.Plan) []*ir.Func {
	var funcs []*ir.Func

	funcs = append(funcs, s.reader(wrapper, m, f, plan))
	if plan.EnumSurface {
		funcs = append(funcs, s.enumReader(wrapper, m, f))
	}
	if f.Unified.HasAccessor {
		funcs = append(funcs, s.hasAccessor(wrapper, m, f))
	}
	if plan.MessagePresence {
		funcs = append(funcs, s.messagePresence(wrapper, m, f))
	}
	if f.Partial {
		funcs = append(funcs, s.supports(wrapper, m, f))
	}
	if plan.Writer != policy.WriterSuppressed {
		funcs = append(funcs, s.writer(wrapper, m, f, plan))
		if plan.EnumSurface {
			funcs = append(funcs, s.enumWriter(wrapper, m, f))
		}
	}
	if plan.EscapeHatches {
		for _, view := range f.PerRevision {
			funcs = append(funcs, s.escapeHatch(wrapper, f, view))
		}
	}
	return funcs
}

// dispatch assembles the revision switch every accessor body consists of.
// caseBody produces the arm for revisions carrying the field; missingBody
// the arm for revisions of the message that lack it.
func dispatch(m *merge.MergedMessage, f *merge.MergedField,
	caseBody func(view merge.RevisionField) []ir.Stmt,
	missingBody func(tag string) []ir.Stmt,
	fallback ir.Stmt) *ir.Switch {

	sw := &ir.Switch{Tag: &ir.RevisionTag{}}
	for _, tag := range m.Revisions {
		var body []ir.Stmt
		if view, ok := f.ByRevision(tag); ok {
			body = caseBody(view)
		} else {
			body = missingBody(tag)
		}
		sw.Cases = append(sw.Cases, &ir.Case{
			Revisions: []string{tag},
			Body:      &ir.Block{Stmts: body},
		})
	}
	sw.Default = &ir.Block{Stmts: []ir.Stmt{fallback}}
	return sw
}

// wrongRevision is the default switch arm: the tag is outside the set
func wrongRevision(f *merge.MergedField) ir.Stmt {
	return &ir.Raise{Kind: ir.ErrWrongRevision, Field: f.Name}
}

// scalarKind maps a unified category and numeric kind onto the tree's type
// vocabulary.
func scalarKind(cat schema.TypeCategory, kind schema.NumericKind) ir.TypeKind {
	switch cat {
	case schema.TypeString:
		return ir.TypeString
	case schema.TypeBytes:
		return ir.TypeBytes
	}
	switch kind {
	case schema.NumericBool:
		return ir.TypeBool
	case schema.NumericInt32:
		return ir.TypeInt32
	case schema.NumericUint32:
		return ir.TypeUint32
	case schema.NumericInt64:
		return ir.TypeInt64
	case schema.NumericUint64:
		return ir.TypeUint64
	case schema.NumericFloat:
		return ir.TypeFloat32
	case schema.NumericDouble:
		return ir.TypeFloat64
	}
	return ir.TypeInvalid
}

// namedRef resolves the unified named type of message- or enum-category
// fields. INT_ENUM fields carry an explicit merged-enum reference;
// everything else takes the newest revision's short type name.
func namedRef(f *merge.MergedField) string {
	if f.EnumRef != "" {
		return f.EnumRef
	}
	return f.Newest().Field.TypeShort()
}

// valueBase is the unified element type, without list or optional wrapping
func valueBase(f *merge.MergedField) ir.TypeRef {
	switch f.Unified.Category {
	case schema.TypeMessage:
		return ir.TypeRef{Kind: ir.TypeNamed, Name: wrapperName(namedRef(f))}
	case schema.TypeEnum:
		return ir.TypeRef{Kind: ir.TypeNamed, Name: namedRef(f)}
	default:
		return ir.TypeRef{Kind: scalarKind(f.Unified.Category, f.WideKind)}
	}
}

// resultType is the unified reader result: the element type plus the
// unified cardinality and nullability.
func resultType(f *merge.MergedField) ir.TypeRef {
	t := valueBase(f)
	if f.Unified.Cardinality == schema.Repeated {
		t.List = true
	}
	if f.Unified.Nullable {
		t.Optional = true
	}
	return t
}

// nativeType is one revision's declared type for a field, used by escape
// hatches.
func nativeType(view merge.RevisionField) ir.TypeRef {
	var t ir.TypeRef
	switch view.Field.Category {
	case schema.TypeMessage, schema.TypeEnum:
		t = ir.TypeRef{Kind: ir.TypeNamed, Name: view.Field.TypeShort()}
	default:
		t = ir.TypeRef{Kind: scalarKind(view.Field.Category, view.Field.Kind)}
	}
	if view.Field.Cardinality == schema.Repeated {
		t.List = true
	}
	return t
}

