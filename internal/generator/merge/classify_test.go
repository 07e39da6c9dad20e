package merge

import (
	"testing"

	"github.com/protoverge/protoverge/internal/generator/schema"
)

func num(kind schema.NumericKind, presence schema.Presence) *schema.Field {
	return &schema.Field{
		Name:        "f",
		Number:      1,
		Category:    schema.TypeNumeric,
		Kind:        kind,
		ProtoType:   kind.String(),
		Cardinality: schema.Singular,
		Presence:    presence,
	}
}

func typed(cat schema.TypeCategory, typeName string) *schema.Field {
	proto := map[schema.TypeCategory]string{
		schema.TypeString:  "string",
		schema.TypeBytes:   "bytes",
		schema.TypeMessage: "message",
		schema.TypeEnum:    "enum",
	}[cat]
	return &schema.Field{
		Name:        "f",
		Number:      1,
		Category:    cat,
		ProtoType:   proto,
		TypeName:    typeName,
		Cardinality: schema.Singular,
		Presence:    schema.PresenceProto3Implicit,
	}
}

func repeated(f *schema.Field) *schema.Field {
	c := *f
	c.Cardinality = schema.Repeated
	c.Presence = schema.PresenceUnspecified
	return &c
}

func TestClassifyPair(t *testing.T) {
	implicit := schema.PresenceProto3Implicit

	tests := []struct {
		name     string
		a, b     *schema.Field
		expected ConflictType
	}{
		{"identical int32", num(schema.NumericInt32, implicit), num(schema.NumericInt32, implicit), ConflictNone},
		{"int32 to int64", num(schema.NumericInt32, implicit), num(schema.NumericInt64, implicit), ConflictWidening},
		{"int32 to double", num(schema.NumericInt32, implicit), num(schema.NumericDouble, implicit), ConflictWidening},
		{"uint32 to uint64", num(schema.NumericUint32, implicit), num(schema.NumericUint64, implicit), ConflictWidening},
		{"int32 to uint64 crosses width", num(schema.NumericInt32, implicit), num(schema.NumericUint64, implicit), ConflictWidening},
		{"float to double", num(schema.NumericFloat, implicit), num(schema.NumericDouble, implicit), ConflictFloatDouble},
		{"int32 vs uint32", num(schema.NumericInt32, implicit), num(schema.NumericUint32, implicit), ConflictSignedUnsigned},
		{"int64 vs uint64", num(schema.NumericInt64, implicit), num(schema.NumericUint64, implicit), ConflictSignedUnsigned},
		{"bool vs int32", num(schema.NumericBool, implicit), num(schema.NumericInt32, implicit), ConflictTypeMismatch},
		{"int32 vs enum", num(schema.NumericInt32, implicit), typed(schema.TypeEnum, "shop.v2.Status"), ConflictIntEnum},
		{"enum vs int64", typed(schema.TypeEnum, "shop.v1.Status"), num(schema.NumericInt64, implicit), ConflictIntEnum},
		{"float vs enum", num(schema.NumericFloat, implicit), typed(schema.TypeEnum, "shop.v2.Status"), ConflictTypeMismatch},
		{"bool vs enum", num(schema.NumericBool, implicit), typed(schema.TypeEnum, "shop.v2.Status"), ConflictTypeMismatch},
		{"string vs bytes", typed(schema.TypeString, ""), typed(schema.TypeBytes, ""), ConflictStringBytes},
		{"string vs message", typed(schema.TypeString, ""), typed(schema.TypeMessage, "shop.v2.Address"), ConflictPrimitiveMessage},
		{"int64 vs message", num(schema.NumericInt64, implicit), typed(schema.TypeMessage, "shop.v2.Money"), ConflictPrimitiveMessage},
		{"bytes vs message", typed(schema.TypeBytes, ""), typed(schema.TypeMessage, "shop.v2.Blob"), ConflictPrimitiveMessage},
		{"enum vs message", typed(schema.TypeEnum, "shop.v1.Status"), typed(schema.TypeMessage, "shop.v2.Status"), ConflictTypeMismatch},
		{"same message different packages", typed(schema.TypeMessage, "shop.v1.Address"), typed(schema.TypeMessage, "shop.v2.Address"), ConflictNone},
		{"different messages", typed(schema.TypeMessage, "shop.v1.Address"), typed(schema.TypeMessage, "shop.v2.Location"), ConflictTypeMismatch},
		{"same enum different packages", typed(schema.TypeEnum, "shop.v1.Status"), typed(schema.TypeEnum, "shop.v2.Status"), ConflictNone},
		{"different enums", typed(schema.TypeEnum, "shop.v1.Status"), typed(schema.TypeEnum, "shop.v2.State"), ConflictTypeMismatch},
		{"string vs string", typed(schema.TypeString, ""), typed(schema.TypeString, ""), ConflictNone},
		{"singular vs repeated same element", num(schema.NumericInt32, implicit), repeated(num(schema.NumericInt32, implicit)), ConflictRepeatedSingle},
		{"singular vs repeated message", typed(schema.TypeMessage, "shop.v1.Item"), repeated(typed(schema.TypeMessage, "shop.v2.Item")), ConflictRepeatedSingle},
		{"singular int32 vs repeated int64", num(schema.NumericInt32, implicit), repeated(num(schema.NumericInt64, implicit)), ConflictTypeMismatch},
		{"singular string vs repeated bytes", typed(schema.TypeString, ""), repeated(typed(schema.TypeBytes, "")), ConflictTypeMismatch},
		{"implicit vs explicit", num(schema.NumericInt32, implicit), num(schema.NumericInt32, schema.PresenceProto3Explicit), ConflictOptionalRequired},
		{"required vs optional", num(schema.NumericInt32, schema.PresenceProto2Required), num(schema.NumericInt32, schema.PresenceProto2Optional), ConflictOptionalRequired},
		{"required vs implicit", num(schema.NumericInt32, schema.PresenceProto2Required), num(schema.NumericInt32, implicit), ConflictOptionalRequired},
		{"proto2 optional vs proto3 explicit same family", num(schema.NumericInt32, schema.PresenceProto2Optional), num(schema.NumericInt32, schema.PresenceProto3Explicit), ConflictNone},
		{"oneof member vs explicit same family", num(schema.NumericInt32, schema.PresenceOneofMember), num(schema.NumericInt32, schema.PresenceProto3Explicit), ConflictNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyPair(tt.a, tt.b); got != tt.expected {
				t.Errorf("classifyPair() = %s, expected %s", got, tt.expected)
			}
			// Classification is symmetric
			if got := classifyPair(tt.b, tt.a); got != tt.expected {
				t.Errorf("classifyPair() reversed = %s, expected %s", got, tt.expected)
			}
		})
	}
}

func TestClassifyCardinalityBeforePresence(t *testing.T) {
	// A repeated vs presence-tracked singular pair is REPEATED_SINGLE, not
	// OPTIONAL_REQUIRED: cardinality is checked first.
	a := num(schema.NumericInt32, schema.PresenceProto3Explicit)
	b := repeated(num(schema.NumericInt32, schema.PresenceProto3Implicit))
	if got := classifyPair(a, b); got != ConflictRepeatedSingle {
		t.Errorf("classifyPair() = %s, expected %s", got, ConflictRepeatedSingle)
	}
}

func TestClassifyTypeBeforePresence(t *testing.T) {
	// A widening pair with differing presence reports the type conflict;
	// presence only matters when types agree.
	a := num(schema.NumericInt32, schema.PresenceProto3Implicit)
	b := num(schema.NumericInt64, schema.PresenceProto3Explicit)
	if got := classifyPair(a, b); got != ConflictWidening {
		t.Errorf("classifyPair() = %s, expected %s", got, ConflictWidening)
	}
}

func TestConflictTypeStrings(t *testing.T) {
	for _, c := range ConflictOrder {
		if c.String() == "" {
			t.Errorf("ConflictType %d has no name", c)
		}
	}
	if got := ConflictWidening.String(); got != "WIDENING" {
		t.Errorf("String() = %q, expected WIDENING", got)
	}
	if !ConflictTypeMismatch.IsFatal() {
		t.Errorf("TYPE_MISMATCH must be fatal")
	}
	for _, c := range ConflictOrder {
		if c != ConflictTypeMismatch && c.IsFatal() {
			t.Errorf("%s must not be fatal", c)
		}
	}
}
