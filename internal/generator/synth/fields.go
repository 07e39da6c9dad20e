package synth

import (
	"fmt"
	"math"
	"strconv"

	"github.com/protoverge/protoverge/internal/generator/contract"
	"github.com/protoverge/protoverge/internal/generator/ir"
	"github.com/protoverge/protoverge/internal/generator/merge"
	"github.com/protoverge/protoverge/internal/generator/policy"
	"github.com/protoverge/protoverge/internal/generator/schema"
	"github.com/protoverge/protoverge/pkg/wrap"
)

// reader builds the unified read accessor. Revisions that carry the field
// return their value in the unified representation; revisions that do not
// substitute the unified default. Reads never fail over a known tag.
func (s *Synthesizer) reader(wrapper string, m *merge.MergedMessage, f *merge.MergedField, plan policy.Plan) *ir.Func {
	stem := exportName(f.Name)
	doc := fmt.Sprintf("Get%s reads the unified %q field.", stem, f.Name)
	if f.Conflict != merge.ConflictNone {
		doc += " " + plan.Note + "."
	}
	if f.Partial {
		doc += " Revisions without the field yield the unified default."
	}

	sw := dispatch(m, f,
		func(view merge.RevisionField) []ir.Stmt {
			return s.readerArm(f, view, plan)
		},
		func(tag string) []ir.Stmt {
			return []ir.Stmt{&ir.Return{Value: defaultExpr(f)}}
		},
		wrongRevision(f),
	)

	return &ir.Func{
		Name:     "Get" + stem,
		Doc:      doc,
		Recv:     wrapper,
		Results:  []ir.TypeRef{resultType(f)},
		Body:     &ir.Block{Stmts: []ir.Stmt{sw}},
		Role:     ir.RoleReader,
		Field:    f.Name,
		Conflict: conflictLabel(f),
	}
}

// readerArm produces the reader body for one revision that carries the
// field.
func (s *Synthesizer) readerArm(f *merge.MergedField, view merge.RevisionField, plan policy.Plan) []ir.Stmt {
	if plan.Reader == policy.ReaderSequence {
		return sequenceReaderArm(f, view)
	}

	value, substituted := readerValue(f, view, plan)
	if substituted || !view.Contract.ReaderChecksPresence {
		return []ir.Stmt{&ir.Return{Value: value}}
	}

	// The revision distinguishes set from unset; absent reads fall back to
	// the unified default.
	return []ir.Stmt{
		&ir.If{
			Cond: &ir.PayloadHas{Revision: view.Revision, Field: view.Field.Name},
			Then: &ir.Block{Stmts: []ir.Stmt{&ir.Return{Value: value}}},
		},
		&ir.Return{Value: defaultExpr(f)},
	}
}

// readerValue converts one revision's stored value into the unified
// representation. The second result is true when the revision cannot
// represent the unified type at all and the arm returns a substitute.
func readerValue(f *merge.MergedField, view merge.RevisionField, plan policy.Plan) (ir.Expr, bool) {
	payload := &ir.PayloadField{Revision: view.Revision, Field: view.Field.Name}

	switch plan.Reader {
	case policy.ReaderWidened:
		if view.Field.Kind != f.WideKind {
			return &ir.Conv{Type: ir.TypeRef{Kind: scalarKind(schema.TypeNumeric, f.WideKind)}, X: payload}, false
		}
		return payload, false

	case policy.ReaderRawNumeric:
		base := ir.TypeRef{Kind: scalarKind(schema.TypeNumeric, f.WideKind)}
		if view.Field.Category == schema.TypeEnum {
			return &ir.Conv{Type: base, X: &ir.EnumNumber{X: payload}}, false
		}
		if view.Field.Kind != f.WideKind {
			return &ir.Conv{Type: base, X: payload}, false
		}
		return payload, false

	case policy.ReaderNewestOnly:
		if view.Field.Category != f.Unified.Category {
			return emptyExpr(f), true
		}
		return payload, false

	case policy.ReaderScalarOnly:
		if view.Field.Category == schema.TypeMessage {
			return emptyExpr(f), true
		}
		if view.Field.Category == schema.TypeNumeric && view.Field.Kind != f.WideKind {
			return &ir.Conv{Type: ir.TypeRef{Kind: scalarKind(schema.TypeNumeric, f.WideKind)}, X: payload}, false
		}
		return payload, false

	default:
		// Passthrough still has to translate named types: each revision
		// declares its own message and enum types.
		switch f.Unified.Category {
		case schema.TypeEnum:
			return &ir.EnumByNumber{Enum: namedRef(f), X: &ir.EnumNumber{X: payload}}, false
		case schema.TypeMessage:
			return &ir.Call{Fn: wrapperName(namedRef(f)) + "From" + tagSuffix(view.Revision), Args: []ir.Expr{payload}}, false
		default:
			return payload, false
		}
	}
}

// sequenceReaderArm lifts mixed-cardinality revisions onto a sequence
// surface: repeated revisions pass their list through, singular revisions
// come back as one-element lists, or empty when presence-tracked and unset.
func sequenceReaderArm(f *merge.MergedField, view merge.RevisionField) []ir.Stmt {
	payload := &ir.PayloadField{Revision: view.Revision, Field: view.Field.Name}
	if view.Field.Cardinality == schema.Repeated {
		return []ir.Stmt{&ir.Return{Value: payload}}
	}

	elem := valueBase(f)
	single := &ir.Return{Value: &ir.WrapList{Elem: elem, X: payload}}
	if !view.Contract.ReaderChecksPresence {
		return []ir.Stmt{single}
	}
	list := elem
	list.List = true
	return []ir.Stmt{
		&ir.If{
			Cond: &ir.PayloadHas{Revision: view.Revision, Field: view.Field.Name},
			Then: &ir.Block{Stmts: []ir.Stmt{single}},
		},
		&ir.Return{Value: &ir.ZeroOf{Type: list}},
	}
}

// enumReader builds the secondary merged-enum accessor of INT_ENUM fields:
// constants are matched across revisions by number.
func (s *Synthesizer) enumReader(wrapper string, m *merge.MergedMessage, f *merge.MergedField) *ir.Func {
	stem := exportName(f.Name)
	enum := namedRef(f)
	base := ir.TypeRef{Kind: scalarKind(schema.TypeNumeric, f.WideKind)}

	sw := dispatch(m, f,
		func(view merge.RevisionField) []ir.Stmt {
			payload := &ir.PayloadField{Revision: view.Revision, Field: view.Field.Name}
			var number ir.Expr
			if view.Field.Category == schema.TypeEnum {
				number = &ir.EnumNumber{X: payload}
			} else {
				number = payload
			}
			return []ir.Stmt{&ir.Return{Value: &ir.EnumByNumber{Enum: enum, X: number}}}
		},
		func(tag string) []ir.Stmt {
			if f.Unified.Nullable {
				return []ir.Stmt{&ir.Return{Value: &ir.AbsentLit{}}}
			}
			return []ir.Stmt{&ir.Return{Value: &ir.EnumByNumber{Enum: enum, X: &ir.ZeroOf{Type: base}}}}
		},
		wrongRevision(f),
	)

	result := ir.TypeRef{Kind: ir.TypeNamed, Name: enum, Optional: f.Unified.Nullable}
	return &ir.Func{
		Name:     "Get" + stem + "Enum",
		Doc:      fmt.Sprintf("Get%sEnum reads %q as the merged enum, matching constants across revisions by number.", stem, f.Name),
		Recv:     wrapper,
		Results:  []ir.TypeRef{result},
		Body:     &ir.Block{Stmts: []ir.Stmt{sw}},
		Role:     ir.RoleEnumReader,
		Field:    f.Name,
		Conflict: conflictLabel(f),
	}
}

// hasAccessor builds the unified presence check. It exists only when every
// revision carrying the field can answer it.
func (s *Synthesizer) hasAccessor(wrapper string, m *merge.MergedMessage, f *merge.MergedField) *ir.Func {
	stem := exportName(f.Name)
	sw := dispatch(m, f,
		func(view merge.RevisionField) []ir.Stmt {
			return []ir.Stmt{&ir.Return{Value: &ir.PayloadHas{Revision: view.Revision, Field: view.Field.Name}}}
		},
		func(tag string) []ir.Stmt {
			return []ir.Stmt{&ir.Return{Value: &ir.BoolLit{Value: false}}}
		},
		wrongRevision(f),
	)

	return &ir.Func{
		Name:     "Has" + stem,
		Doc:      fmt.Sprintf("Has%s reports whether %q is set in the wrapped payload.", stem, f.Name),
		Recv:     wrapper,
		Results:  []ir.TypeRef{{Kind: ir.TypeBool}},
		Body:     &ir.Block{Stmts: []ir.Stmt{sw}},
		Role:     ir.RoleHas,
		Field:    f.Name,
		Conflict: conflictLabel(f),
	}
}

// messagePresence builds the presence check scoped to the message-typed
// revisions of a PRIMITIVE_MESSAGE field; scalar revisions answer false.
func (s *Synthesizer) messagePresence(wrapper string, m *merge.MergedMessage, f *merge.MergedField) *ir.Func {
	stem := exportName(f.Name)
	sw := dispatch(m, f,
		func(view merge.RevisionField) []ir.Stmt {
			if view.Field.Category != schema.TypeMessage {
				return []ir.Stmt{&ir.Return{Value: &ir.BoolLit{Value: false}}}
			}
			return []ir.Stmt{&ir.Return{Value: &ir.PayloadHas{Revision: view.Revision, Field: view.Field.Name}}}
		},
		func(tag string) []ir.Stmt {
			return []ir.Stmt{&ir.Return{Value: &ir.BoolLit{Value: false}}}
		},
		wrongRevision(f),
	)

	return &ir.Func{
		Name:     "Has" + stem + "Message",
		Doc:      fmt.Sprintf("Has%sMessage reports whether the message variant of %q is set; scalar revisions always answer false.", stem, f.Name),
		Recv:     wrapper,
		Results:  []ir.TypeRef{{Kind: ir.TypeBool}},
		Body:     &ir.Block{Stmts: []ir.Stmt{sw}},
		Role:     ir.RoleHas,
		Field:    f.Name,
		Conflict: conflictLabel(f),
	}
}

// supports builds the probe callers use before writing a field that not
// every revision carries. Unknown tags answer false rather than failing:
// the probe exists to be safe to call anywhere.
func (s *Synthesizer) supports(wrapper string, m *merge.MergedMessage, f *merge.MergedField) *ir.Func {
	stem := exportName(f.Name)
	sw := dispatch(m, f,
		func(view merge.RevisionField) []ir.Stmt {
			return []ir.Stmt{&ir.Return{Value: &ir.BoolLit{Value: true}}}
		},
		func(tag string) []ir.Stmt {
			return []ir.Stmt{&ir.Return{Value: &ir.BoolLit{Value: false}}}
		},
		&ir.Return{Value: &ir.BoolLit{Value: false}},
	)

	return &ir.Func{
		Name:     "Supports" + stem,
		Doc:      fmt.Sprintf("Supports%s reports whether the wrapped revision carries %q at all.", stem, f.Name),
		Recv:     wrapper,
		Results:  []ir.TypeRef{{Kind: ir.TypeBool}},
		Body:     &ir.Block{Stmts: []ir.Stmt{sw}},
		Role:     ir.RoleSupports,
		Field:    f.Name,
		Conflict: conflictLabel(f),
	}
}

// writer builds the unified mutator. Revisions with a narrower native type
// get inline range guards ahead of the store; revisions without the field
// fail with the supporting revision set named.
func (s *Synthesizer) writer(wrapper string, m *merge.MergedMessage, f *merge.MergedField, plan policy.Plan) *ir.Func {
	stem := exportName(f.Name)
	v := &ir.Ident{Name: "v"}
	doc := fmt.Sprintf("Set%s stores %q into the active revision's payload.", stem, f.Name)
	if plan.RangeChecked {
		doc += " Values outside a narrower revision's range fail."
	}
	if f.Partial {
		doc += " Writing on a revision without the field fails."
	}

	sw := dispatch(m, f,
		func(view merge.RevisionField) []ir.Stmt {
			return s.writerArm(f, view, plan, v)
		},
		func(tag string) []ir.Stmt {
			return []ir.Stmt{&ir.Raise{
				Kind:      ir.ErrUnsupportedField,
				Field:     f.Name,
				Revision:  tag,
				Supported: f.Revisions(),
			}}
		},
		wrongRevision(f),
	)

	return &ir.Func{
		Name:     "Set" + stem,
		Doc:      doc,
		Recv:     wrapper,
		Params:   []ir.Param{{Name: "v", Type: resultType(f)}},
		Body:     &ir.Block{Stmts: []ir.Stmt{sw, &ir.Return{}}},
		Role:     ir.RoleWriter,
		Field:    f.Name,
		Conflict: conflictLabel(f),
	}
}

// writerArm produces the store path for one revision carrying the field
func (s *Synthesizer) writerArm(f *merge.MergedField, view merge.RevisionField, plan policy.Plan, v ir.Expr) []ir.Stmt {
	if plan.Writer == policy.WriterSequence {
		return sequenceWriterArm(f, view, v)
	}

	var stmts []ir.Stmt
	if plan.RangeChecked {
		stmts = append(stmts, narrowGuard(f, view, v)...)
	}
	stmts = append(stmts, &ir.PayloadStore{
		Revision: view.Revision,
		Field:    view.Field.Name,
		Value:    storeValue(f, view, v),
	}, &ir.Return{})
	return stmts
}

// storeValue converts the unified value into one revision's native
// representation.
func storeValue(f *merge.MergedField, view merge.RevisionField, v ir.Expr) ir.Expr {
	switch view.Field.Category {
	case schema.TypeEnum:
		if f.Unified.Category == schema.TypeEnum {
			// merged enum value -> native enum constant, by number
			return &ir.EnumByNumber{Enum: view.Field.TypeShort(), X: &ir.EnumNumber{X: v}}
		}
		// raw number -> native enum constant
		return &ir.EnumByNumber{Enum: view.Field.TypeShort(), X: v}
	case schema.TypeMessage:
		return &ir.Call{Fn: "Native" + tagSuffix(view.Revision), Args: []ir.Expr{v}}
	case schema.TypeNumeric:
		if view.Field.Kind != f.WideKind && f.Unified.Category == schema.TypeNumeric {
			return &ir.Conv{Type: ir.TypeRef{Kind: scalarKind(schema.TypeNumeric, view.Field.Kind)}, X: v}
		}
	}
	return v
}

// sequenceWriterArm stores a sequence value. Repeated revisions take the
// list as-is; singular revisions require exactly one element.
func sequenceWriterArm(f *merge.MergedField, view merge.RevisionField, v ir.Expr) []ir.Stmt {
	if view.Field.Cardinality == schema.Repeated {
		return []ir.Stmt{
			&ir.PayloadStore{Revision: view.Revision, Field: view.Field.Name, Value: v},
			&ir.Return{},
		}
	}
	return []ir.Stmt{
		&ir.If{
			Cond: &ir.Binary{Op: "!=", X: &ir.Length{X: v}, Y: &ir.IntLit{Value: 1}},
			Then: &ir.Block{Stmts: []ir.Stmt{&ir.Raise{
				Kind:     ir.ErrCardinality,
				Field:    f.Name,
				Revision: view.Revision,
				Value:    &ir.Length{X: v},
			}}},
		},
		&ir.PayloadStore{
			Revision: view.Revision,
			Field:    view.Field.Name,
			Value:    &ir.Index{X: v, At: &ir.IntLit{Value: 0}},
		},
		&ir.Return{},
	}
}

// enumWriter builds the merged-enum mutator of INT_ENUM fields
func (s *Synthesizer) enumWriter(wrapper string, m *merge.MergedMessage, f *merge.MergedField) *ir.Func {
	stem := exportName(f.Name)
	enum := namedRef(f)
	v := &ir.Ident{Name: "v"}

	sw := dispatch(m, f,
		func(view merge.RevisionField) []ir.Stmt {
			var value ir.Expr
			if view.Field.Category == schema.TypeEnum {
				value = &ir.EnumByNumber{Enum: view.Field.TypeShort(), X: &ir.EnumNumber{X: v}}
			} else {
				value = &ir.Conv{
					Type: ir.TypeRef{Kind: scalarKind(schema.TypeNumeric, view.Field.Kind)},
					X:    &ir.EnumNumber{X: v},
				}
			}
			return []ir.Stmt{
				&ir.PayloadStore{Revision: view.Revision, Field: view.Field.Name, Value: value},
				&ir.Return{},
			}
		},
		func(tag string) []ir.Stmt {
			return []ir.Stmt{&ir.Raise{
				Kind:      ir.ErrUnsupportedField,
				Field:     f.Name,
				Revision:  tag,
				Supported: f.Revisions(),
			}}
		},
		wrongRevision(f),
	)

	return &ir.Func{
		Name:     "Set" + stem + "Enum",
		Doc:      fmt.Sprintf("Set%sEnum stores a merged enum value into %q; numeric revisions receive the constant's number.", stem, f.Name),
		Recv:     wrapper,
		Params:   []ir.Param{{Name: "v", Type: ir.TypeRef{Kind: ir.TypeNamed, Name: enum}}},
		Body:     &ir.Block{Stmts: []ir.Stmt{sw, &ir.Return{}}},
		Role:     ir.RoleEnumWriter,
		Field:    f.Name,
		Conflict: conflictLabel(f),
	}
}

// escapeHatch builds the revision-specific native reader. It answers only
// for its own revision; every other tag fails rather than approximating.
func (s *Synthesizer) escapeHatch(wrapper string, f *merge.MergedField, view merge.RevisionField) *ir.Func {
	stem := exportName(f.Name)
	suffix := tagSuffix(view.Revision)

	sw := &ir.Switch{
		Tag: &ir.RevisionTag{},
		Cases: []*ir.Case{{
			Revisions: []string{view.Revision},
			Body: &ir.Block{Stmts: []ir.Stmt{
				&ir.Return{Value: &ir.PayloadField{Revision: view.Revision, Field: view.Field.Name}},
			}},
		}},
		Default: &ir.Block{Stmts: []ir.Stmt{
			&ir.Raise{Kind: ir.ErrWrongRevision, Field: f.Name, Revision: view.Revision},
		}},
	}

	return &ir.Func{
		Name:     "Get" + stem + suffix,
		Doc:      fmt.Sprintf("Get%s%s returns the native revision %s value of %q. Calling it on any other revision fails.", stem, suffix, view.Revision, f.Name),
		Recv:     wrapper,
		Results:  []ir.TypeRef{nativeType(view)},
		Body:     &ir.Block{Stmts: []ir.Stmt{sw}},
		Role:     ir.RoleEscape,
		Field:    f.Name,
		Conflict: conflictLabel(f),
		Revision: view.Revision,
	}
}

// narrowGuard emits the inline range check ahead of a narrowing store. The
// bounds come from pkg/wrap so the generated guards and the runtime Check*
// helpers can never drift apart.
func narrowGuard(f *merge.MergedField, view merge.RevisionField, v ir.Expr) []ir.Stmt {
	wide := f.WideKind
	var lo, hi ir.Expr

	switch view.Field.Kind {
	case schema.NumericInt32:
		if wide == schema.NumericInt32 {
			return nil
		}
		min, max := wrap.Int32Bounds()
		lo = limitExpr(wide, min, 0, float64(min))
		hi = limitExpr(wide, max, uint64(max), float64(max))

	case schema.NumericUint32:
		if wide == schema.NumericUint32 {
			return nil
		}
		_, max := wrap.Uint32Bounds()
		if !wide.Unsigned() {
			lo = limitExpr(wide, 0, 0, 0)
		}
		hi = limitExpr(wide, int64(max), max, float64(max))

	case schema.NumericInt64:
		if !wide.Floating() {
			return nil
		}
		lo = &ir.FloatLit{Value: float64(math.MinInt64)}
		hi = &ir.FloatLit{Value: float64(math.MaxInt64)}

	case schema.NumericUint64:
		if wide == schema.NumericUint64 {
			return nil
		}
		lo = limitExpr(wide, 0, 0, 0)
		if wide.Floating() {
			hi = &ir.FloatLit{Value: float64(math.MaxUint64)}
		}

	case schema.NumericFloat:
		if wide != schema.NumericDouble {
			return nil
		}
		b := wrap.Float32Bound()
		lo = &ir.FloatLit{Value: -b}
		hi = &ir.FloatLit{Value: b}

	default:
		return nil
	}

	var cond ir.Expr
	if lo != nil {
		cond = &ir.Binary{Op: "<", X: v, Y: lo}
	}
	if hi != nil {
		over := &ir.Binary{Op: ">", X: v, Y: hi}
		if cond == nil {
			cond = over
		} else {
			cond = &ir.Binary{Op: "||", X: cond, Y: over}
		}
	}
	if cond == nil {
		return nil
	}

	return []ir.Stmt{&ir.If{
		Cond: cond,
		Then: &ir.Block{Stmts: []ir.Stmt{&ir.Raise{
			Kind:     ir.ErrRange,
			Field:    f.Name,
			Revision: view.Revision,
			Value:    v,
			Min:      lo,
			Max:      hi,
		}}},
	}}
}

// limitExpr renders a bound as a literal of the widened surface type
func limitExpr(wide schema.NumericKind, sv int64, uv uint64, fv float64) ir.Expr {
	switch {
	case wide.Floating():
		return &ir.FloatLit{Value: fv}
	case wide.Unsigned():
		return &ir.UintLit{Value: uv}
	default:
		return &ir.IntLit{Value: sv}
	}
}

// defaultExpr renders the unified default policy as a tree expression
func defaultExpr(f *merge.MergedField) ir.Expr {
	switch f.Unified.Default {
	case contract.DefaultAbsent:
		return &ir.AbsentLit{}
	case contract.DefaultEmptyList:
		t := valueBase(f)
		t.List = true
		return &ir.ZeroOf{Type: t}
	case contract.DefaultEmptyInstance:
		return &ir.ZeroOf{Type: valueBase(f)}
	case contract.DefaultFirstEnumValue:
		return &ir.FirstEnumValue{Enum: namedRef(f)}
	case contract.DefaultExplicit:
		return explicitLit(f)
	default:
		return &ir.ZeroOf{Type: valueBase(f)}
	}
}

// emptyExpr is the substitute for revisions that cannot represent the
// unified type: absent when the contract is nullable, the empty value
// otherwise.
func emptyExpr(f *merge.MergedField) ir.Expr {
	if f.Unified.Nullable {
		return &ir.AbsentLit{}
	}
	return &ir.ZeroOf{Type: resultType(f)}
}

// explicitLit parses a proto2 declared default literal into a typed
// literal node. Unparseable literals degrade to the type's zero.
func explicitLit(f *merge.MergedField) ir.Expr {
	var lit string
	for _, v := range f.PerRevision {
		if v.Field.Default != "" {
			lit = v.Field.Default
			break
		}
	}
	if lit == "" {
		return &ir.ZeroOf{Type: valueBase(f)}
	}

	switch f.Unified.Category {
	case schema.TypeString, schema.TypeBytes:
		return &ir.StringLit{Value: lit}
	case schema.TypeEnum:
		return &ir.Ident{Name: namedRef(f) + "." + lit}
	case schema.TypeNumeric:
		switch f.WideKind {
		case schema.NumericBool:
			return &ir.BoolLit{Value: lit == "true"}
		case schema.NumericFloat, schema.NumericDouble:
			if v, err := strconv.ParseFloat(lit, 64); err == nil {
				return &ir.FloatLit{Value: v}
			}
		case schema.NumericUint32, schema.NumericUint64:
			if v, err := strconv.ParseUint(lit, 10, 64); err == nil {
				return &ir.UintLit{Value: v}
			}
		default:
			if v, err := strconv.ParseInt(lit, 10, 64); err == nil {
				return &ir.IntLit{Value: v}
			}
		}
	}
	return &ir.ZeroOf{Type: valueBase(f)}
}

// conflictLabel tags synthesized functions with their originating conflict
// for documentation generation; unconflicted fields stay untagged.
func conflictLabel(f *merge.MergedField) string {
	if f.Conflict == merge.ConflictNone {
		return ""
	}
	return f.Conflict.String()
}
