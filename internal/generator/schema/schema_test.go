package schema

import "testing"

func TestWidest(t *testing.T) {
	tests := []struct {
		name     string
		a, b     NumericKind
		expected NumericKind
	}{
		{"same kind", NumericInt32, NumericInt32, NumericInt32},
		{"int32 to int64", NumericInt32, NumericInt64, NumericInt64},
		{"uint32 to uint64", NumericUint32, NumericUint64, NumericUint64},
		{"int32 to float", NumericInt32, NumericFloat, NumericFloat},
		{"int64 to double", NumericInt64, NumericDouble, NumericDouble},
		{"float to double", NumericFloat, NumericDouble, NumericDouble},
		{"uint64 to double", NumericUint64, NumericDouble, NumericDouble},
		{"signed unsigned same width", NumericInt32, NumericUint32, NumericInt64},
		{"signed unsigned 64-bit", NumericInt64, NumericUint64, NumericInt64},
		{"unsigned wide over signed narrow", NumericInt32, NumericUint64, NumericInt64},
		{"signed wide over unsigned narrow", NumericUint32, NumericInt64, NumericInt64},
		{"unsigned widening keeps sign", NumericUint32, NumericUint64, NumericUint64},
		{"none is identity", NumericNone, NumericInt32, NumericInt32},
		{"none with none", NumericNone, NumericNone, NumericNone},
		{"bool with bool", NumericBool, NumericBool, NumericBool},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Widest(tt.a, tt.b); got != tt.expected {
				t.Errorf("Widest(%s, %s) = %s, expected %s", tt.a, tt.b, got, tt.expected)
			}
			if got := Widest(tt.b, tt.a); got != tt.expected {
				t.Errorf("Widest(%s, %s) = %s, expected %s (must be symmetric)", tt.b, tt.a, got, tt.expected)
			}
		})
	}
}

func TestNumericKindPredicates(t *testing.T) {
	tests := []struct {
		kind     NumericKind
		bits     int
		signed   bool
		unsigned bool
		floating bool
	}{
		{NumericNone, 0, false, false, false},
		{NumericBool, 0, false, false, false},
		{NumericInt32, 32, true, false, false},
		{NumericUint32, 32, false, true, false},
		{NumericInt64, 64, true, false, false},
		{NumericUint64, 64, false, true, false},
		{NumericFloat, 0, false, false, true},
		{NumericDouble, 0, false, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			if got := tt.kind.Bits(); got != tt.bits {
				t.Errorf("Bits() = %d, expected %d", got, tt.bits)
			}
			if got := tt.kind.Signed(); got != tt.signed {
				t.Errorf("Signed() = %v, expected %v", got, tt.signed)
			}
			if got := tt.kind.Unsigned(); got != tt.unsigned {
				t.Errorf("Unsigned() = %v, expected %v", got, tt.unsigned)
			}
			if got := tt.kind.Floating(); got != tt.floating {
				t.Errorf("Floating() = %v, expected %v", got, tt.floating)
			}
		})
	}
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"total_cents", "totalcents"},
		{"totalCents", "totalcents"},
		{"TotalCents", "totalcents"},
		{"__weird__", "weird"},
		{"already", "already"},
	}
	for _, tt := range tests {
		if got := NormalizeName(tt.in); got != tt.expected {
			t.Errorf("NormalizeName(%q) = %q, expected %q", tt.in, got, tt.expected)
		}
	}
}

func TestFieldTypeLabels(t *testing.T) {
	scalar := &Field{Category: TypeNumeric, Kind: NumericInt32, ProtoType: "sint32"}
	if got := scalar.TypeLabel(); got != "sint32" {
		t.Errorf("TypeLabel() = %q, expected sint32", got)
	}
	if got := scalar.TypeShort(); got != "sint32" {
		t.Errorf("TypeShort() = %q, expected sint32", got)
	}

	msg := &Field{Category: TypeMessage, ProtoType: "message", TypeName: "shop.v1.Address"}
	if got := msg.TypeLabel(); got != "shop.v1.Address" {
		t.Errorf("TypeLabel() = %q, expected the qualified type", got)
	}
	if got := msg.TypeShort(); got != "Address" {
		t.Errorf("TypeShort() = %q, expected Address", got)
	}

	bare := &Field{Category: TypeEnum, ProtoType: "enum", TypeName: "Status"}
	if got := bare.TypeShort(); got != "Status" {
		t.Errorf("TypeShort() = %q, expected Status", got)
	}
}

func TestMessageFieldLookup(t *testing.T) {
	m := NewMessage("Order",
		&Field{Name: "count", Number: 1},
		&Field{Name: "total", Number: 7})

	f, ok := m.Field(7)
	if !ok || f.Name != "total" {
		t.Errorf("Field(7) = %v, %v, expected total", f, ok)
	}
	if _, ok := m.Field(99); ok {
		t.Errorf("Field(99) found, expected miss")
	}
	if m.Local != "Order" {
		t.Errorf("Local = %q, expected the name", m.Local)
	}
}

func TestEnumFirst(t *testing.T) {
	e := &Enum{Name: "Status", Values: []EnumValue{
		{Name: "STATUS_PENDING", Number: 3},
		{Name: "STATUS_UNKNOWN", Number: 0},
	}}
	v, ok := e.First()
	if !ok || v.Name != "STATUS_PENDING" || v.Number != 3 {
		t.Errorf("First() = %v, %v, expected the first declared value", v, ok)
	}

	empty := &Enum{Name: "Empty"}
	if _, ok := empty.First(); ok {
		t.Errorf("First() on an empty enum reported a value")
	}
}

func TestRevisionLookups(t *testing.T) {
	m := NewMessage("Order", &Field{Name: "count", Number: 1})
	m.Name = "shop.v1.Order"
	rev := NewRevision("v1", "proto3",
		[]*Message{m},
		[]*Enum{{Name: "shop.v1.Status", Local: "Status"}})

	if _, ok := rev.Message("shop.v1.Order"); !ok {
		t.Errorf("Message lookup by qualified name failed")
	}
	if _, ok := rev.MessageByLocal("Order"); !ok {
		t.Errorf("Message lookup by local name failed")
	}
	if _, ok := rev.Enum("shop.v1.Status"); !ok {
		t.Errorf("Enum lookup by qualified name failed")
	}
	if _, ok := rev.EnumByLocal("Status"); !ok {
		t.Errorf("Enum lookup by local name failed")
	}
}

func TestSetHelpers(t *testing.T) {
	set := &Set{Revisions: []*Revision{
		NewRevision("v1", "proto2", nil, nil),
		NewRevision("v2", "proto3", nil, nil),
		NewRevision("v3", "proto3", nil, nil),
	}}

	tags := set.Tags()
	if len(tags) != 3 || tags[0] != "v1" || tags[2] != "v3" {
		t.Errorf("Tags() = %v, expected [v1 v2 v3]", tags)
	}
	if r, ok := set.ByTag("v2"); !ok || r.Tag != "v2" {
		t.Errorf("ByTag(v2) = %v, %v", r, ok)
	}
	if _, ok := set.ByTag("v9"); ok {
		t.Errorf("ByTag(v9) found, expected miss")
	}
	if set.Newest().Tag != "v3" {
		t.Errorf("Newest() = %s, expected v3", set.Newest().Tag)
	}
	if (&Set{}).Newest() != nil {
		t.Errorf("Newest() on an empty set should be nil")
	}
}
