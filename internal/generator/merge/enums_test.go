package merge

import (
	"strings"
	"testing"

	"github.com/protoverge/protoverge/internal/generator/schema"
)

func enumRev(tag string, enums ...*schema.Enum) *schema.Revision {
	return schema.NewRevision(tag, "proto3", nil, enums)
}

func statusEnum(values ...schema.EnumValue) *schema.Enum {
	return &schema.Enum{Name: "Status", Values: values}
}

func mustEnum(t *testing.T, merged *MergedSchema, name string) *MergedEnum {
	t.Helper()
	en, ok := merged.Enum(name)
	if !ok {
		t.Fatalf("enum %q not merged", name)
	}
	return en
}

func TestMergeEnumsUnifyByNumber(t *testing.T) {
	v1 := enumRev("v1", statusEnum(
		schema.EnumValue{Name: "STATUS_UNKNOWN", Number: 0},
		schema.EnumValue{Name: "STATUS_ACTIVE", Number: 1}))
	v2 := enumRev("v2", statusEnum(
		schema.EnumValue{Name: "STATUS_UNKNOWN", Number: 0},
		schema.EnumValue{Name: "STATUS_ACTIVE", Number: 1},
		schema.EnumValue{Name: "STATUS_SUSPENDED", Number: 2}))

	merged := runMerge(t, Options{}, v1, v2)
	en := mustEnum(t, merged, "Status")

	if len(en.Values) != 3 {
		t.Fatalf("merged %d values, expected 3", len(en.Values))
	}
	active := en.Values[1]
	if active.Name != "STATUS_ACTIVE" || active.Number != 1 {
		t.Errorf("value[1] = %s(%d), expected STATUS_ACTIVE(1)", active.Name, active.Number)
	}
	if len(active.Revisions) != 2 {
		t.Errorf("STATUS_ACTIVE revisions = %v, expected both", active.Revisions)
	}
	suspended := en.Values[2]
	if len(suspended.Revisions) != 1 || suspended.Revisions[0] != "v2" {
		t.Errorf("STATUS_SUSPENDED revisions = %v, expected [v2]", suspended.Revisions)
	}
	if len(merged.Diagnostics) != 0 {
		t.Errorf("clean enum merge produced diagnostics: %+v", merged.Diagnostics)
	}
}

func TestMergeEnumsRenamedValueNewestWins(t *testing.T) {
	v1 := enumRev("v1", statusEnum(
		schema.EnumValue{Name: "STATUS_UNKNOWN", Number: 0},
		schema.EnumValue{Name: "STATUS_ACTIVE", Number: 1}))
	v2 := enumRev("v2", statusEnum(
		schema.EnumValue{Name: "STATUS_UNKNOWN", Number: 0},
		schema.EnumValue{Name: "STATUS_ENABLED", Number: 1}))

	merged := runMerge(t, Options{}, v1, v2)
	en := mustEnum(t, merged, "Status")

	if en.Values[1].Name != "STATUS_ENABLED" {
		t.Errorf("value 1 = %q, expected the newest name STATUS_ENABLED", en.Values[1].Name)
	}
	if !hasDiagnostic(merged, "enum_value_renamed") {
		t.Fatalf("rename not diagnosed; diagnostics: %+v", merged.Diagnostics)
	}
	for _, d := range merged.Diagnostics {
		if d.Kind == "enum_value_renamed" {
			if d.MessageName != "Status" {
				t.Errorf("diagnostic enum = %q, expected Status", d.MessageName)
			}
			if !strings.Contains(d.Detail, "STATUS_ACTIVE") || !strings.Contains(d.Detail, "STATUS_ENABLED") {
				t.Errorf("diagnostic detail %q does not name both constants", d.Detail)
			}
		}
	}
}

func TestMergeEnumsRenumberedValueDiagnosed(t *testing.T) {
	v1 := enumRev("v1", statusEnum(
		schema.EnumValue{Name: "STATUS_UNKNOWN", Number: 0},
		schema.EnumValue{Name: "STATUS_ARCHIVED", Number: 5}))
	v2 := enumRev("v2", statusEnum(
		schema.EnumValue{Name: "STATUS_UNKNOWN", Number: 0},
		schema.EnumValue{Name: "STATUS_ARCHIVED", Number: 6}))

	merged := runMerge(t, Options{}, v1, v2)
	en := mustEnum(t, merged, "Status")

	// Merging by number keeps both declarations as distinct values.
	if len(en.Values) != 3 {
		t.Fatalf("merged %d values, expected 3 (0, 5 and 6)", len(en.Values))
	}
	if !hasDiagnostic(merged, "enum_value_renumbered") {
		t.Errorf("renumber not diagnosed; diagnostics: %+v", merged.Diagnostics)
	}
}

func TestMergeEnumsValuesSortedByNumber(t *testing.T) {
	v1 := enumRev("v1", statusEnum(
		schema.EnumValue{Name: "STATUS_HIGH", Number: 9},
		schema.EnumValue{Name: "STATUS_UNKNOWN", Number: 0},
		schema.EnumValue{Name: "STATUS_MID", Number: 4}))

	merged := runMerge(t, Options{}, v1)
	en := mustEnum(t, merged, "Status")

	var numbers []int32
	for _, v := range en.Values {
		numbers = append(numbers, v.Number)
	}
	for i := 1; i < len(numbers); i++ {
		if numbers[i-1] > numbers[i] {
			t.Fatalf("values out of order: %v", numbers)
		}
	}
}

func TestMergeEnumsPartialEnum(t *testing.T) {
	v1 := enumRev("v1")
	v2 := enumRev("v2", statusEnum(schema.EnumValue{Name: "STATUS_UNKNOWN", Number: 0}))

	merged := runMerge(t, Options{}, v1, v2)
	en := mustEnum(t, merged, "Status")

	if len(en.Revisions) != 1 || en.Revisions[0] != "v2" {
		t.Errorf("enum revisions = %v, expected [v2]", en.Revisions)
	}
}
