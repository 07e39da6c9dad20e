// Package contract derives the per-revision behavioral contract of a field:
// whether a presence accessor exists, whether the reader checks presence
// before returning, whether callers can observe absence as null, and what
// value stands in when the field is absent. Derivation is a pure decision
// table over the field's category, cardinality and presence discriminator.
package contract

import (
	"github.com/protoverge/protoverge/internal/generator/schema"
)

// DefaultPolicy names the value substituted when a field is absent
type DefaultPolicy int

const (
	// DefaultAbsent means absence is surfaced to the caller (nullable fields)
	DefaultAbsent DefaultPolicy = iota
	// DefaultZero is the 32-bit integer zero
	DefaultZero
	// DefaultZeroLong is the 64-bit integer zero
	DefaultZeroLong
	// DefaultZeroFloat is the float zero
	DefaultZeroFloat
	// DefaultZeroDouble is the double zero
	DefaultZeroDouble
	// DefaultFalse is the bool zero
	DefaultFalse
	// DefaultEmptyString is the empty string
	DefaultEmptyString
	// DefaultEmptyBytes is the empty byte sequence
	DefaultEmptyBytes
	// DefaultFirstEnumValue is the enum's first declared value
	DefaultFirstEnumValue
	// DefaultEmptyList is the empty sequence (repeated fields)
	DefaultEmptyList
	// DefaultEmptyInstance is the empty message instance (singular messages)
	DefaultEmptyInstance
	// DefaultExplicit is a proto2 declared default literal
	DefaultExplicit
)

// String returns the policy name used in reports
func (p DefaultPolicy) String() string {
	switch p {
	case DefaultAbsent:
		return "absent"
	case DefaultZero:
		return "zero"
	case DefaultZeroLong:
		return "zero_long"
	case DefaultZeroFloat:
		return "zero_float"
	case DefaultZeroDouble:
		return "zero_double"
	case DefaultFalse:
		return "false"
	case DefaultEmptyString:
		return "empty_string"
	case DefaultEmptyBytes:
		return "empty_bytes"
	case DefaultFirstEnumValue:
		return "first_enum_value"
	case DefaultEmptyList:
		return "empty_list"
	case DefaultEmptyInstance:
		return "empty_instance"
	case DefaultExplicit:
		return "explicit"
	}
	return "unknown"
}

// Contract is the derived behavioral contract of one field in one revision.
// Contracts are comparable; two fields agree behaviorally iff their
// contracts are equal.
type Contract struct {
	Cardinality          schema.Cardinality
	Category             schema.TypeCategory
	HasAccessor          bool
	ReaderChecksPresence bool
	Nullable             bool
	Default              DefaultPolicy
}

// Derive computes the contract for one field. Message-typed singular fields
// always carry a presence accessor and are never nullable: absence maps to
// an empty instance, not a null, so callers branch on the presence accessor
// instead of a null check.
func Derive(f *schema.Field) Contract {
	if f.Cardinality == schema.Repeated {
		return Contract{
			Cardinality: schema.Repeated,
			Category:    f.Category,
			Default:     DefaultEmptyList,
		}
	}

	c := Contract{Cardinality: schema.Singular, Category: f.Category}
	isMessage := f.Category == schema.TypeMessage

	switch f.Presence {
	case schema.PresenceProto2Required:
		c.HasAccessor = true
		c.Default = zeroDefault(f)
	case schema.PresenceProto2Optional,
		schema.PresenceProto3Explicit,
		schema.PresenceOneofMember:
		c.HasAccessor = true
		c.ReaderChecksPresence = true
		// A declared proto2 default stands in for absence, so absence is
		// never observable and the surface is not nullable.
		c.Nullable = !isMessage && f.Default == ""
		c.Default = absentDefault(f)
	case schema.PresenceProto3Implicit:
		c.HasAccessor = isMessage
		c.Default = zeroDefault(f)
	}

	if isMessage {
		c.HasAccessor = true
		c.Nullable = false
		c.Default = DefaultEmptyInstance
	}
	return c
}

// zeroDefault picks the type-zero policy, honoring proto2 explicit defaults
func zeroDefault(f *schema.Field) DefaultPolicy {
	if f.Default != "" {
		return DefaultExplicit
	}
	switch f.Category {
	case schema.TypeString:
		return DefaultEmptyString
	case schema.TypeBytes:
		return DefaultEmptyBytes
	case schema.TypeEnum:
		return DefaultFirstEnumValue
	case schema.TypeMessage:
		return DefaultEmptyInstance
	}
	switch f.Kind {
	case schema.NumericBool:
		return DefaultFalse
	case schema.NumericInt64, schema.NumericUint64:
		return DefaultZeroLong
	case schema.NumericFloat:
		return DefaultZeroFloat
	case schema.NumericDouble:
		return DefaultZeroDouble
	}
	return DefaultZero
}

// absentDefault is the policy for nullable rows: absence is surfaced unless
// proto2 declared an explicit default literal.
func absentDefault(f *schema.Field) DefaultPolicy {
	if f.Default != "" {
		return DefaultExplicit
	}
	return DefaultAbsent
}

// ZeroPolicyFor returns the type-zero policy for a unified surface of the
// given category and numeric kind, used when the merge widens a field and
// the per-revision defaults no longer agree.
func ZeroPolicyFor(category schema.TypeCategory, kind schema.NumericKind) DefaultPolicy {
	switch category {
	case schema.TypeString:
		return DefaultEmptyString
	case schema.TypeBytes:
		return DefaultEmptyBytes
	case schema.TypeEnum:
		return DefaultFirstEnumValue
	case schema.TypeMessage:
		return DefaultEmptyInstance
	}
	switch kind {
	case schema.NumericBool:
		return DefaultFalse
	case schema.NumericInt64, schema.NumericUint64:
		return DefaultZeroLong
	case schema.NumericFloat:
		return DefaultZeroFloat
	case schema.NumericDouble:
		return DefaultZeroDouble
	}
	return DefaultZero
}
