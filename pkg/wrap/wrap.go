// Package wrap provides the runtime support types for generated unified
// accessors. Wrapper types produced by emission backends embed a Revision
// tag, return these error types from mutators and escape hatches, and call
// the Check* helpers for narrowing writes. The package is imported by
// generated code and by the synthesizer, which reads the numeric bounds
// here so inline range guards and runtime checks can never disagree.
package wrap

import (
	"fmt"
	"strings"
)

// Revision identifies one schema revision by its configured tag, e.g. "v1"
type Revision string

// Unknown is the zero Revision: a tag outside the configured revision set
const Unknown Revision = ""

// String returns the tag
func (r Revision) String() string { return string(r) }

// EnumNumber returns the wire number of a generated open-enum value. Merged
// enums are open: numbers outside the declared constants pass through.
func EnumNumber[E ~int32](e E) int32 { return int32(e) }

// EnumFromNumber converts a wire number into a generated open-enum value
// without validation, so unknown numbers stay representable.
func EnumFromNumber[E ~int32](n int32) E { return E(n) }

// RangeError reports a narrowing write whose value does not fit the
// destination revision's field type.
type RangeError struct {
	Value    interface{} // offending value as supplied
	Type     string      // destination type name, e.g. "int32"
	Min      interface{} // lowest representable value
	Max      interface{} // highest representable value
	Field    string      // canonical unified field name
	Revision Revision    // revision whose payload rejected the write
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("value %v exceeds %s range [%v, %v] for field %q in revision %s",
		e.Value, e.Type, e.Min, e.Max, e.Field, e.Revision)
}

// UnsupportedFieldError reports a write to a field the active revision
// does not carry. Readers never produce it; they substitute the unified
// default instead.
type UnsupportedFieldError struct {
	Field     string     // canonical unified field name
	Revision  Revision   // revision the value holds
	Supported []Revision // revisions that do carry the field
}

func (e *UnsupportedFieldError) Error() string {
	tags := make([]string, len(e.Supported))
	for i, r := range e.Supported {
		tags[i] = string(r)
	}
	return fmt.Sprintf("field %q is not carried by revision %s (supported in %s)",
		e.Field, e.Revision, strings.Join(tags, ", "))
}

// WrongRevisionError reports an escape hatch invoked on a value wrapping a
// different revision, or a revision tag outside the configured set.
type WrongRevisionError struct {
	Op   string   // accessor name, e.g. "FromV2"
	Want Revision // revision the operation is bound to, Unknown for unknown-tag
	Got  Revision // revision the value actually holds
}

func (e *WrongRevisionError) Error() string {
	if e.Want == Unknown {
		return fmt.Sprintf("%s: value holds unknown revision %s", e.Op, e.Got)
	}
	return fmt.Sprintf("%s requires revision %s, value holds revision %s", e.Op, e.Want, e.Got)
}

// CardinalityError reports a sequence write whose element count does not
// fit a singular destination field.
type CardinalityError struct {
	Field    string   // canonical unified field name
	Revision Revision // revision with the singular payload field
	Len      int      // elements supplied
}

func (e *CardinalityError) Error() string {
	return fmt.Sprintf("cannot store %d elements into singular field %q in revision %s",
		e.Len, e.Field, e.Revision)
}
