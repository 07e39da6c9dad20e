// Package policy maps each conflict classification to a synthesis plan:
// which accessors exist for a merged field, how its reader falls back, and
// whether a unified mutator is offered at all. A unified mutator exists
// only when the write is representable in every revision without guessing
// the caller's intent; everywhere else writers are suppressed and callers
// must go through a revision-specific escape hatch.
package policy

import (
	"fmt"

	"github.com/protoverge/protoverge/internal/generator/merge"
)

// ReaderMode selects how the unified reader produces its value
type ReaderMode int

const (
	// ReaderPassthrough returns the revision's native value unchanged
	ReaderPassthrough ReaderMode = iota
	// ReaderWidened upcasts narrower revisions to the widest numeric type
	ReaderWidened
	// ReaderRawNumeric returns the raw number, mapping enum revisions to
	// their constant numbers
	ReaderRawNumeric
	// ReaderNewestOnly returns the newest revision's representation and an
	// empty/absent value on every other revision
	ReaderNewestOnly
	// ReaderScalarOnly returns the scalar side's representation and an
	// empty/absent value on message revisions
	ReaderScalarOnly
	// ReaderSequence always returns a sequence, lifting singular revisions
	// into zero- or one-element lists
	ReaderSequence
)

// String returns the reader mode name
func (m ReaderMode) String() string {
	switch m {
	case ReaderPassthrough:
		return "passthrough"
	case ReaderWidened:
		return "widened"
	case ReaderRawNumeric:
		return "raw_numeric"
	case ReaderNewestOnly:
		return "newest_only"
	case ReaderScalarOnly:
		return "scalar_only"
	case ReaderSequence:
		return "sequence"
	}
	return "unknown"
}

// WriterMode selects whether and how the unified mutator is synthesized
type WriterMode int

const (
	// WriterPassthrough stores the value unchanged in every revision
	WriterPassthrough WriterMode = iota
	// WriterChecked stores through inline range guards on revisions with a
	// narrower native type
	WriterChecked
	// WriterSequence stores a sequence, folding it onto singular revisions
	WriterSequence
	// WriterSuppressed synthesizes no unified mutator
	WriterSuppressed
)

// String returns the writer mode name
func (m WriterMode) String() string {
	switch m {
	case WriterPassthrough:
		return "passthrough"
	case WriterChecked:
		return "range_checked"
	case WriterSequence:
		return "sequence"
	case WriterSuppressed:
		return "suppressed"
	}
	return "unknown"
}

// Plan is the synthesis plan for one conflict classification
type Plan struct {
	Conflict merge.ConflictType
	Reader   ReaderMode
	Writer   WriterMode

	// EscapeHatches synthesizes one native reader per present revision
	EscapeHatches bool
	// EnumSurface adds the secondary merged-enum reader and mutator of
	// INT_ENUM fields
	EnumSurface bool
	// RangeChecked guards narrowing writes with inline bounds checks
	RangeChecked bool
	// MessagePresence adds a presence accessor scoped to the message-typed
	// revisions of PRIMITIVE_MESSAGE fields
	MessagePresence bool

	Note string // one-line summary shown in reports
}

// Registry holds the active plan per conflict type. It is an explicit
// value: callers construct one, optionally override entries, and pass it
// down to synthesis. Two registries never share state.
type Registry struct {
	plans map[merge.ConflictType]Plan
}

// DefaultRegistry returns a registry populated with the built-in plans.
// TYPE_MISMATCH deliberately has none: it aborts generation before any
// plan is consulted.
func DefaultRegistry() *Registry {
	r := &Registry{plans: make(map[merge.ConflictType]Plan)}
	for _, p := range []Plan{
		{
			Conflict: merge.ConflictNone,
			Reader:   ReaderPassthrough,
			Writer:   WriterPassthrough,
			Note:     "direct passthrough",
		},
		{
			Conflict: merge.ConflictOptionalRequired,
			Reader:   ReaderPassthrough,
			Writer:   WriterPassthrough,
			Note:     "identical representation, presence follows the weaker guarantee",
		},
		{
			Conflict:      merge.ConflictWidening,
			Reader:        ReaderWidened,
			Writer:        WriterChecked,
			EscapeHatches: true,
			RangeChecked:  true,
			Note:          "widened reader, range-checked narrowing writer",
		},
		{
			Conflict:      merge.ConflictFloatDouble,
			Reader:        ReaderWidened,
			Writer:        WriterChecked,
			EscapeHatches: true,
			RangeChecked:  true,
			Note:          "double reader, overflow-checked float writer",
		},
		{
			Conflict:      merge.ConflictSignedUnsigned,
			Reader:        ReaderWidened,
			Writer:        WriterChecked,
			EscapeHatches: true,
			RangeChecked:  true,
			Note:          "widened reader, sign- and range-checked writer",
		},
		{
			Conflict:      merge.ConflictIntEnum,
			Reader:        ReaderRawNumeric,
			Writer:        WriterChecked,
			EscapeHatches: true,
			EnumSurface:   true,
			RangeChecked:  true,
			Note:          "raw numeric surface plus merged-enum accessors",
		},
		{
			Conflict:      merge.ConflictStringBytes,
			Reader:        ReaderNewestOnly,
			Writer:        WriterSuppressed,
			EscapeHatches: true,
			Note:          "newest representation read-only, writers suppressed",
		},
		{
			Conflict:        merge.ConflictPrimitiveMessage,
			Reader:          ReaderScalarOnly,
			Writer:          WriterSuppressed,
			EscapeHatches:   true,
			MessagePresence: true,
			Note:            "scalar-side read-only, writers suppressed",
		},
		{
			Conflict:      merge.ConflictRepeatedSingle,
			Reader:        ReaderSequence,
			Writer:        WriterSequence,
			EscapeHatches: true,
			Note:          "sequence surface over mixed cardinality",
		},
	} {
		r.plans[p.Conflict] = p
	}
	return r
}

// PlanFor returns the plan for a conflict type. The second result is false
// when no plan exists, which for the default registry means TYPE_MISMATCH.
func (r *Registry) PlanFor(c merge.ConflictType) (Plan, bool) {
	p, ok := r.plans[c]
	return p, ok
}

// Register installs or replaces the plan for its conflict type. Registering
// a plan for TYPE_MISMATCH is rejected: mismatches abort generation and
// must never reach synthesis.
func (r *Registry) Register(p Plan) error {
	if p.Conflict == merge.ConflictTypeMismatch {
		return fmt.Errorf("cannot register a plan for %s: the conflict aborts generation", p.Conflict)
	}
	r.plans[p.Conflict] = p
	return nil
}

// DisableWriters suppresses the unified mutator of every plan, leaving
// readers, presence accessors and escape hatches intact. Projects that
// want read-only bindings turn builder synthesis off and route through
// this.
func (r *Registry) DisableWriters() {
	for c, p := range r.plans {
		p.Writer = WriterSuppressed
		p.RangeChecked = false
		r.plans[c] = p
	}
}

// Plans returns all registered plans in conflict-type order
func (r *Registry) Plans() []Plan {
	out := make([]Plan, 0, len(r.plans))
	for _, c := range merge.ConflictOrder {
		if p, ok := r.plans[c]; ok {
			out = append(out, p)
		}
	}
	return out
}
