// Package schema defines the revision model: the typed, numbered field and
// message structure extracted from compiled descriptor sets, one Revision per
// input schema version. The model is the sole input to contract derivation
// and merging; nothing downstream touches descriptors directly.
package schema

import "strings"

// TypeCategory classifies a field's type for conflict analysis
type TypeCategory int

const (
	// TypeNumeric represents all scalar numeric types, including bool
	TypeNumeric TypeCategory = iota
	// TypeString represents string fields
	TypeString
	// TypeBytes represents bytes fields
	TypeBytes
	// TypeMessage represents message-typed fields (groups included)
	TypeMessage
	// TypeEnum represents enum-typed fields
	TypeEnum
)

// String returns the category name used in reports and error messages
func (c TypeCategory) String() string {
	switch c {
	case TypeNumeric:
		return "numeric"
	case TypeString:
		return "string"
	case TypeBytes:
		return "bytes"
	case TypeMessage:
		return "message"
	case TypeEnum:
		return "enum"
	}
	return "unknown"
}

// IsScalar reports whether the category is a scalar (numeric, string, bytes)
func (c TypeCategory) IsScalar() bool {
	return c == TypeNumeric || c == TypeString || c == TypeBytes
}

// NumericKind positions a numeric field on the widening lattice. Wire-level
// encoding variants collapse to one kind: int32, sint32 and sfixed32 are all
// NumericInt32. Bool is numeric for contract purposes but sits outside the
// lattice and only ever pairs with bool.
type NumericKind int

const (
	// NumericNone marks non-numeric fields
	NumericNone NumericKind = iota
	// NumericBool represents bool
	NumericBool
	// NumericInt32 represents int32, sint32, sfixed32
	NumericInt32
	// NumericUint32 represents uint32, fixed32
	NumericUint32
	// NumericInt64 represents int64, sint64, sfixed64
	NumericInt64
	// NumericUint64 represents uint64, fixed64
	NumericUint64
	// NumericFloat represents float
	NumericFloat
	// NumericDouble represents double
	NumericDouble
)

// String returns the canonical kind name
func (k NumericKind) String() string {
	switch k {
	case NumericBool:
		return "bool"
	case NumericInt32:
		return "int32"
	case NumericUint32:
		return "uint32"
	case NumericInt64:
		return "int64"
	case NumericUint64:
		return "uint64"
	case NumericFloat:
		return "float"
	case NumericDouble:
		return "double"
	}
	return "none"
}

// Bits returns the integer width in bits, or 0 for non-integer kinds
func (k NumericKind) Bits() int {
	switch k {
	case NumericInt32, NumericUint32:
		return 32
	case NumericInt64, NumericUint64:
		return 64
	}
	return 0
}

// Signed reports whether the kind is a signed integer
func (k NumericKind) Signed() bool {
	return k == NumericInt32 || k == NumericInt64
}

// Unsigned reports whether the kind is an unsigned integer
func (k NumericKind) Unsigned() bool {
	return k == NumericUint32 || k == NumericUint64
}

// Floating reports whether the kind is float or double
func (k NumericKind) Floating() bool {
	return k == NumericFloat || k == NumericDouble
}

// widenRank orders kinds on the widening lattice:
// int32/uint32 < int64/uint64 < float < double.
func (k NumericKind) widenRank() int {
	switch k {
	case NumericInt32, NumericUint32:
		return 1
	case NumericInt64, NumericUint64:
		return 2
	case NumericFloat:
		return 3
	case NumericDouble:
		return 4
	}
	return 0
}

// Widest returns the wider of two numeric kinds on the lattice. Mixing
// signed and unsigned integers promotes the result to int64: it is the one
// integer type that represents both the signed side's negatives and an
// unsigned 32-bit side's full range, and unsigned 64-bit stores are range
// checked on write anyway.
func Widest(a, b NumericKind) NumericKind {
	ra, rb := a.widenRank(), b.widenRank()
	if ra == rb {
		if a != b {
			return NumericInt64
		}
		return a
	}
	wide, narrow := a, b
	if rb > ra {
		wide, narrow = b, a
	}
	if wide.Unsigned() && narrow.Signed() {
		return NumericInt64
	}
	return wide
}

// Cardinality distinguishes singular from repeated fields
type Cardinality int

const (
	// Singular represents at-most-one-value fields
	Singular Cardinality = iota
	// Repeated represents list fields
	Repeated
)

// String returns "singular" or "repeated"
func (c Cardinality) String() string {
	if c == Repeated {
		return "repeated"
	}
	return "singular"
}

// Presence is the presence discriminator for singular fields. Repeated
// fields carry PresenceUnspecified; presence semantics do not apply to them.
type Presence int

const (
	// PresenceUnspecified marks repeated fields
	PresenceUnspecified Presence = iota
	// PresenceProto2Required represents proto2 required fields
	PresenceProto2Required
	// PresenceProto2Optional represents proto2 optional fields
	PresenceProto2Optional
	// PresenceProto3Implicit represents plain proto3 fields (no presence tracking for scalars)
	PresenceProto3Implicit
	// PresenceProto3Explicit represents proto3 fields declared with the optional keyword
	PresenceProto3Explicit
	// PresenceOneofMember represents members of a real (non-synthetic) oneof
	PresenceOneofMember
)

// String returns the discriminator name used in reports
func (p Presence) String() string {
	switch p {
	case PresenceProto2Required:
		return "proto2_required"
	case PresenceProto2Optional:
		return "proto2_optional"
	case PresenceProto3Implicit:
		return "proto3_implicit"
	case PresenceProto3Explicit:
		return "proto3_explicit"
	case PresenceOneofMember:
		return "oneof_member"
	}
	return "unspecified"
}

// Field is one typed, numbered field of a message in one revision
type Field struct {
	Name        string      // declared field name (snake_case in proto sources)
	JSONName    string      // descriptor-assigned JSON name
	Number      int32       // field number, unique within the message
	Category    TypeCategory
	Kind        NumericKind // NumericNone unless Category == TypeNumeric
	ProtoType   string      // wire-level type name, e.g. "sint32", "message"
	TypeName    string      // fully-qualified message/enum type, no leading dot
	Cardinality Cardinality
	Presence    Presence
	OneofName   string // owning real oneof, if any
	Default     string // proto2 explicit default literal, verbatim
}

// TypeLabel returns the name used when reporting this field's type: the
// referenced type for messages and enums, the wire type otherwise.
func (f *Field) TypeLabel() string {
	if f.TypeName != "" {
		return f.TypeName
	}
	return f.ProtoType
}

// TypeShort returns the last segment of the referenced type name. Revisions
// qualify types with their own packages, so cross-revision type comparison
// uses the short name.
func (f *Field) TypeShort() string {
	if f.TypeName == "" {
		return f.ProtoType
	}
	if i := strings.LastIndex(f.TypeName, "."); i >= 0 {
		return f.TypeName[i+1:]
	}
	return f.TypeName
}

// Oneof is a real oneof group; proto3 synthetic oneofs (explicit optional)
// never appear here.
type Oneof struct {
	Name    string
	Members []int32 // field numbers in declaration order
}

// Message is one message type in one revision
type Message struct {
	Name string // fully qualified, e.g. "shop.v1.Order"
	// Local is the package-free message path, e.g. "Order" or
	// "Order.LineItem". Cross-revision identity matches on Local, since
	// each revision typically qualifies its types with its own package.
	Local  string
	Fields []*Field // declaration order
	Oneofs []*Oneof // real oneofs only

	byNumber map[int32]*Field
}

// Field returns the field with the given number
func (m *Message) Field(number int32) (*Field, bool) {
	f, ok := m.byNumber[number]
	return f, ok
}

// index builds the number lookup; callers constructing messages by hand
// (tests) go through NewMessage instead.
func (m *Message) index() {
	m.byNumber = make(map[int32]*Field, len(m.Fields))
	for _, f := range m.Fields {
		m.byNumber[f.Number] = f
	}
}

// NewMessage builds a Message with its field index populated. The local
// name defaults to the full name, which is what tests constructing
// package-free messages by hand want.
func NewMessage(name string, fields ...*Field) *Message {
	m := &Message{Name: name, Local: name, Fields: fields}
	m.index()
	return m
}

// EnumValue is one declared enum value
type EnumValue struct {
	Name   string
	Number int32
}

// Enum is one enum type in one revision
type Enum struct {
	Name   string      // fully qualified
	Local  string      // package-free path, used for cross-revision identity
	Values []EnumValue // declaration order
}

// First returns the first declared value; proto2 enums may start at a
// nonzero number.
func (e *Enum) First() (EnumValue, bool) {
	if len(e.Values) == 0 {
		return EnumValue{}, false
	}
	return e.Values[0], true
}

// Revision is the complete model of one schema version
type Revision struct {
	Tag      string // caller-supplied revision tag, e.g. "v1"
	Source   string // descriptor set path this revision was loaded from
	Syntax   string // "proto2" or "proto3"
	Messages []*Message
	Enums    []*Enum

	msgByName   map[string]*Message
	msgByLocal  map[string]*Message
	enumByName  map[string]*Enum
	enumByLocal map[string]*Enum
}

// Message returns the message with the given fully-qualified name
func (r *Revision) Message(name string) (*Message, bool) {
	m, ok := r.msgByName[name]
	return m, ok
}

// MessageByLocal returns the message with the given package-free path
func (r *Revision) MessageByLocal(local string) (*Message, bool) {
	m, ok := r.msgByLocal[local]
	return m, ok
}

// Enum returns the enum with the given fully-qualified name
func (r *Revision) Enum(name string) (*Enum, bool) {
	e, ok := r.enumByName[name]
	return e, ok
}

// EnumByLocal returns the enum with the given package-free path
func (r *Revision) EnumByLocal(local string) (*Enum, bool) {
	e, ok := r.enumByLocal[local]
	return e, ok
}

func (r *Revision) index() {
	r.msgByName = make(map[string]*Message, len(r.Messages))
	r.msgByLocal = make(map[string]*Message, len(r.Messages))
	for _, m := range r.Messages {
		r.msgByName[m.Name] = m
		r.msgByLocal[m.Local] = m
	}
	r.enumByName = make(map[string]*Enum, len(r.Enums))
	r.enumByLocal = make(map[string]*Enum, len(r.Enums))
	for _, e := range r.Enums {
		r.enumByName[e.Name] = e
		r.enumByLocal[e.Local] = e
	}
}

// NewRevision builds a Revision with its lookup indexes populated
func NewRevision(tag, syntax string, messages []*Message, enums []*Enum) *Revision {
	r := &Revision{Tag: tag, Syntax: syntax, Messages: messages, Enums: enums}
	for _, m := range messages {
		if m.Local == "" {
			m.Local = m.Name
		}
		if m.byNumber == nil {
			m.index()
		}
	}
	for _, e := range enums {
		if e.Local == "" {
			e.Local = e.Name
		}
	}
	r.index()
	return r
}

// Set is the ordered collection of revisions under analysis. Order is the
// order revisions were supplied in; the last revision is the newest.
type Set struct {
	Revisions []*Revision
}

// Tags returns the revision tags in order
func (s *Set) Tags() []string {
	tags := make([]string, len(s.Revisions))
	for i, r := range s.Revisions {
		tags[i] = r.Tag
	}
	return tags
}

// ByTag returns the revision with the given tag
func (s *Set) ByTag(tag string) (*Revision, bool) {
	for _, r := range s.Revisions {
		if r.Tag == tag {
			return r, true
		}
	}
	return nil, false
}

// Newest returns the last revision in the set
func (s *Set) Newest() *Revision {
	if len(s.Revisions) == 0 {
		return nil
	}
	return s.Revisions[len(s.Revisions)-1]
}

// NormalizeName lowercases a field name and strips underscores, so that
// "total_cents", "totalCents" and "TotalCents" all compare equal during
// name-based identity resolution.
func NormalizeName(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), "_", "")
}
