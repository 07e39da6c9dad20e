// Package merge matches fields, messages and enums with the same identity
// across all revisions, classifies how their declared contracts disagree
// into a closed set of conflict kinds, and unifies the per-revision
// contracts into one behavioral contract per field. The merged schema it
// produces is the single artifact handed to synthesis.
package merge

import (
	"fmt"

	"github.com/protoverge/protoverge/internal/generator/contract"
	"github.com/protoverge/protoverge/internal/generator/schema"
)

// ConflictType classifies how a merged field's per-revision declarations
// disagree. The set is closed: every pair of declarations lands on exactly
// one kind, with TypeMismatch as the no-rule-applies fallback.
type ConflictType int

const (
	// ConflictNone means every revision's declaration agrees
	ConflictNone ConflictType = iota
	// ConflictOptionalRequired means only the presence discriminator family differs
	ConflictOptionalRequired
	// ConflictWidening means a numeric type widened along the lattice
	ConflictWidening
	// ConflictFloatDouble means float vs double specifically
	ConflictFloatDouble
	// ConflictSignedUnsigned means signed vs unsigned at the same bit width
	ConflictSignedUnsigned
	// ConflictIntEnum means one revision integer, another enum
	ConflictIntEnum
	// ConflictStringBytes means one revision string, another bytes
	ConflictStringBytes
	// ConflictPrimitiveMessage means a scalar replaced by a nested structure
	ConflictPrimitiveMessage
	// ConflictRepeatedSingle means cardinality disagreement with agreeing element types
	ConflictRepeatedSingle
	// ConflictTypeMismatch means no reconciliation rule applies; generation aborts
	ConflictTypeMismatch
)

// conflictNames are the canonical report names
var conflictNames = map[ConflictType]string{
	ConflictNone:             "NONE",
	ConflictOptionalRequired: "OPTIONAL_REQUIRED",
	ConflictWidening:         "WIDENING",
	ConflictFloatDouble:      "FLOAT_DOUBLE",
	ConflictSignedUnsigned:   "SIGNED_UNSIGNED",
	ConflictIntEnum:          "INT_ENUM",
	ConflictStringBytes:      "STRING_BYTES",
	ConflictPrimitiveMessage: "PRIMITIVE_MESSAGE",
	ConflictRepeatedSingle:   "REPEATED_SINGLE",
	ConflictTypeMismatch:     "TYPE_MISMATCH",
}

// ConflictOrder lists all conflict kinds in canonical report order
var ConflictOrder = []ConflictType{
	ConflictNone,
	ConflictWidening,
	ConflictFloatDouble,
	ConflictSignedUnsigned,
	ConflictIntEnum,
	ConflictStringBytes,
	ConflictPrimitiveMessage,
	ConflictRepeatedSingle,
	ConflictOptionalRequired,
	ConflictTypeMismatch,
}

// String returns the canonical conflict name
func (c ConflictType) String() string {
	if name, ok := conflictNames[c]; ok {
		return name
	}
	return fmt.Sprintf("ConflictType(%d)", int(c))
}

// MarshalJSON emits the canonical conflict name
func (c ConflictType) MarshalJSON() ([]byte, error) {
	return []byte(`"` + c.String() + `"`), nil
}

// IsFatal reports whether the conflict aborts generation
func (c ConflictType) IsFatal() bool {
	return c == ConflictTypeMismatch
}

// RevisionField is one revision's view of a merged field
type RevisionField struct {
	Revision string
	Field    *schema.Field
	Contract contract.Contract
}

// MergedField is the union of one field across all revisions that provide
// it. Canonical name and number come from the newest revision carrying the
// field.
type MergedField struct {
	Name     string
	Number   int32
	Conflict ConflictType
	// WideKind is the unified numeric kind after widening; NumericNone for
	// non-numeric unified surfaces.
	WideKind schema.NumericKind
	// EnumRef is the short name of the enum side of an INT_ENUM conflict,
	// resolvable against the merged enums; empty otherwise.
	EnumRef string
	// Unified is the contract exposed to callers regardless of revision
	Unified contract.Contract
	// PerRevision holds the carrying revisions' views, in revision order
	PerRevision []RevisionField
	// Partial is true when at least one revision does not carry the field
	Partial bool
}

// ByRevision returns the named revision's view of the field
func (f *MergedField) ByRevision(tag string) (RevisionField, bool) {
	for _, rf := range f.PerRevision {
		if rf.Revision == tag {
			return rf, true
		}
	}
	return RevisionField{}, false
}

// Revisions returns the tags carrying the field, in revision order
func (f *MergedField) Revisions() []string {
	tags := make([]string, len(f.PerRevision))
	for i, rf := range f.PerRevision {
		tags[i] = rf.Revision
	}
	return tags
}

// Newest returns the last (newest) revision's view of the field
func (f *MergedField) Newest() RevisionField {
	return f.PerRevision[len(f.PerRevision)-1]
}

// MergedOneof is a real oneof group matched by name across revisions
type MergedOneof struct {
	Name      string
	Revisions []string
	// Members are the canonical names of the member fields
	Members []string
}

// MergedMessage is the canonical cross-revision identity of one message
type MergedMessage struct {
	// Name is the package-free message path, e.g. "Order.LineItem"
	Name string
	// Fields are ordered by canonical field number
	Fields []*MergedField
	Oneofs []*MergedOneof
	// Revisions lists the tags carrying the message, in revision order
	Revisions []string
	// Partial is true when at least one revision does not carry the message
	Partial bool
}

// Field returns the merged field with the given canonical name
func (m *MergedMessage) Field(name string) (*MergedField, bool) {
	for _, f := range m.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return nil, false
}

// MergedEnumValue is one enum constant unified by number
type MergedEnumValue struct {
	Name      string
	Number    int32
	Revisions []string
}

// MergedEnum is the canonical cross-revision identity of one enum
type MergedEnum struct {
	Name      string
	Values    []MergedEnumValue // ordered by number
	Revisions []string
}

// Diagnostic is a non-fatal observation recorded during merging
type Diagnostic struct {
	Kind        string   `json:"kind"`
	MessageName string   `json:"message,omitempty"`
	Field       string   `json:"field,omitempty"`
	Revisions   []string `json:"revisions,omitempty"`
	Detail      string   `json:"detail"`
}

// Stats summarizes a merge run
type Stats struct {
	Messages   int
	Fields     int
	Conflicted int
	ByConflict map[ConflictType]int
}

// MergedSchema is the root container handed to synthesis
type MergedSchema struct {
	// Revisions lists all revision tags in input order; the last is newest
	Revisions   []string
	Messages    []*MergedMessage
	Enums       []*MergedEnum
	Diagnostics []Diagnostic
	Stats       Stats
}

// Message returns the merged message with the given canonical name
func (s *MergedSchema) Message(name string) (*MergedMessage, bool) {
	for _, m := range s.Messages {
		if m.Name == name {
			return m, true
		}
	}
	return nil, false
}

// Enum returns the merged enum with the given canonical name
func (s *MergedSchema) Enum(name string) (*MergedEnum, bool) {
	for _, e := range s.Enums {
		if e.Name == name {
			return e, true
		}
	}
	return nil, false
}
