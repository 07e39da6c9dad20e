package synth

import (
	"context"
	"strings"
	"testing"

	"github.com/protoverge/protoverge/internal/generator/contract"
	"github.com/protoverge/protoverge/internal/generator/ir"
	"github.com/protoverge/protoverge/internal/generator/merge"
	"github.com/protoverge/protoverge/internal/generator/policy"
	"github.com/protoverge/protoverge/internal/generator/schema"
)

// numView builds one revision's view of a singular numeric field together
// with its derived contract.
func numView(tag, name string, kind schema.NumericKind, presence schema.Presence) merge.RevisionField {
	f := &schema.Field{
		Name:        name,
		Number:      1,
		Category:    schema.TypeNumeric,
		Kind:        kind,
		ProtoType:   kind.String(),
		Cardinality: schema.Singular,
		Presence:    presence,
	}
	return merge.RevisionField{Revision: tag, Field: f, Contract: contract.Derive(f)}
}

// typedView builds a view of a non-numeric singular field
func typedView(tag, name string, cat schema.TypeCategory, typeName string, presence schema.Presence) merge.RevisionField {
	proto := "string"
	switch cat {
	case schema.TypeBytes:
		proto = "bytes"
	case schema.TypeMessage:
		proto = "message"
	case schema.TypeEnum:
		proto = "enum"
	}
	f := &schema.Field{
		Name:        name,
		Number:      1,
		Category:    cat,
		ProtoType:   proto,
		TypeName:    typeName,
		Cardinality: schema.Singular,
		Presence:    presence,
	}
	return merge.RevisionField{Revision: tag, Field: f, Contract: contract.Derive(f)}
}

// repeatedView builds a view of a repeated numeric field
func repeatedView(tag, name string, kind schema.NumericKind) merge.RevisionField {
	f := &schema.Field{
		Name:        name,
		Number:      1,
		Category:    schema.TypeNumeric,
		Kind:        kind,
		ProtoType:   kind.String(),
		Cardinality: schema.Repeated,
	}
	return merge.RevisionField{Revision: tag, Field: f, Contract: contract.Derive(f)}
}

// testMessage wraps merged fields into a two-revision message
func testMessage(fields ...*merge.MergedField) *merge.MergedMessage {
	return &merge.MergedMessage{
		Name:      "Order",
		Fields:    fields,
		Revisions: []string{"v1", "v2"},
	}
}

func mustSynthesize(t *testing.T, m *merge.MergedMessage) *Artifact {
	t.Helper()
	art, err := New(policy.DefaultRegistry()).Message(m)
	if err != nil {
		t.Fatalf("Message() error: %v", err)
	}
	return art
}

func findFunc(t *testing.T, art *Artifact, name string) *ir.Func {
	t.Helper()
	for _, f := range art.Funcs {
		if f.Name == name {
			return f
		}
	}
	t.Fatalf("function %q not synthesized; got %v", name, funcNames(art))
	return nil
}

func hasFunc(art *Artifact, name string) bool {
	for _, f := range art.Funcs {
		if f.Name == name {
			return true
		}
	}
	return false
}

func funcNames(art *Artifact) []string {
	names := make([]string, len(art.Funcs))
	for i, f := range art.Funcs {
		names[i] = f.Name
	}
	return names
}

func TestUnconflictedSurface(t *testing.T) {
	v1 := numView("v1", "count", schema.NumericInt32, schema.PresenceProto3Implicit)
	v2 := numView("v2", "count", schema.NumericInt32, schema.PresenceProto3Implicit)
	field := &merge.MergedField{
		Name:        "count",
		Number:      1,
		Conflict:    merge.ConflictNone,
		WideKind:    schema.NumericInt32,
		Unified:     v2.Contract,
		PerRevision: []merge.RevisionField{v1, v2},
	}

	art := mustSynthesize(t, testMessage(field))

	expected := []string{"RevisionTag", "FromV1", "FromV2", "GetCount", "SetCount"}
	got := funcNames(art)
	if len(got) != len(expected) {
		t.Fatalf("synthesized %v, expected %v", got, expected)
	}
	for i := range expected {
		if got[i] != expected[i] {
			t.Errorf("func[%d] = %q, expected %q", i, got[i], expected[i])
		}
	}

	if art.Wrapper != "Order" {
		t.Errorf("Wrapper = %q, expected %q", art.Wrapper, "Order")
	}
	if art.Fields != 1 {
		t.Errorf("Fields = %d, expected 1", art.Fields)
	}

	roles := map[string]ir.Role{
		"RevisionTag": ir.RoleTag,
		"FromV1":      ir.RoleConstructor,
		"FromV2":      ir.RoleConstructor,
		"GetCount":    ir.RoleReader,
		"SetCount":    ir.RoleWriter,
	}
	for name, role := range roles {
		if f := findFunc(t, art, name); f.Role != role {
			t.Errorf("%s role = %s, expected %s", name, f.Role, role)
		}
	}

	// An unconflicted field carries no conflict label
	if f := findFunc(t, art, "GetCount"); f.Conflict != "" {
		t.Errorf("GetCount conflict label = %q, expected empty", f.Conflict)
	}
}

func TestEveryAccessorBodyIsOneSwitch(t *testing.T) {
	v1 := numView("v1", "count", schema.NumericInt32, schema.PresenceProto3Implicit)
	v2 := numView("v2", "count", schema.NumericInt64, schema.PresenceProto3Implicit)
	field := &merge.MergedField{
		Name:        "count",
		Number:      1,
		Conflict:    merge.ConflictWidening,
		WideKind:    schema.NumericInt64,
		Unified:     v2.Contract,
		PerRevision: []merge.RevisionField{v1, v2},
	}

	art := mustSynthesize(t, testMessage(field))

	for _, f := range art.Funcs {
		if f.Role == ir.RoleConstructor || f.Role == ir.RoleTag {
			continue
		}
		sw, ok := f.Body.Stmts[0].(*ir.Switch)
		if !ok {
			t.Errorf("%s body does not start with a revision switch", f.Name)
			continue
		}
		if _, ok := sw.Tag.(*ir.RevisionTag); !ok {
			t.Errorf("%s switches over %T, expected the revision tag", f.Name, sw.Tag)
		}
		if sw.Default == nil {
			t.Errorf("%s switch has no default arm", f.Name)
		}
	}
}

func TestConstructorBindsTagOnce(t *testing.T) {
	v1 := numView("v1", "count", schema.NumericInt32, schema.PresenceProto3Implicit)
	field := &merge.MergedField{
		Name:        "count",
		Conflict:    merge.ConflictNone,
		WideKind:    schema.NumericInt32,
		Unified:     v1.Contract,
		PerRevision: []merge.RevisionField{v1},
		Partial:     true,
	}

	art := mustSynthesize(t, testMessage(field))
	ctor := findFunc(t, art, "FromV1")

	if ctor.Revision != "v1" {
		t.Errorf("FromV1 revision = %q, expected %q", ctor.Revision, "v1")
	}
	dump := ir.Sprint(ctor)
	if !strings.Contains(dump, `(assign revision = "v1")`) {
		t.Errorf("FromV1 does not bind the revision tag:\n%s", dump)
	}
}

func TestMismatchedFieldAbortsSynthesis(t *testing.T) {
	v1 := numView("v1", "blob", schema.NumericInt32, schema.PresenceProto3Implicit)
	v2 := typedView("v2", "blob", schema.TypeMessage, "shop.v2.Blob", schema.PresenceProto3Implicit)
	field := &merge.MergedField{
		Name:        "blob",
		Conflict:    merge.ConflictTypeMismatch,
		Unified:     v1.Contract,
		PerRevision: []merge.RevisionField{v1, v2},
	}

	_, err := New(policy.DefaultRegistry()).Message(testMessage(field))
	if err == nil {
		t.Fatalf("Message() should fail for a TYPE_MISMATCH field")
	}
	if !strings.Contains(err.Error(), "TYPE_MISMATCH") {
		t.Errorf("error %q does not name the conflict", err)
	}
}

func TestSynthesisDeterministic(t *testing.T) {
	build := func() *Artifact {
		v1 := numView("v1", "total_cents", schema.NumericInt32, schema.PresenceProto3Implicit)
		v2 := numView("v2", "total_cents", schema.NumericInt64, schema.PresenceProto3Implicit)
		field := &merge.MergedField{
			Name:        "total_cents",
			Conflict:    merge.ConflictWidening,
			WideKind:    schema.NumericInt64,
			Unified:     v2.Contract,
			PerRevision: []merge.RevisionField{v1, v2},
		}
		return mustSynthesize(t, testMessage(field))
	}

	a, b := build(), build()
	if len(a.Funcs) != len(b.Funcs) {
		t.Fatalf("two runs synthesized %d and %d funcs", len(a.Funcs), len(b.Funcs))
	}
	for i := range a.Funcs {
		da, db := ir.Sprint(a.Funcs[i]), ir.Sprint(b.Funcs[i])
		if da != db {
			t.Errorf("func %d differs between runs:\n%s\n---\n%s", i, da, db)
		}
	}
}

func TestRunKeepsMessageOrder(t *testing.T) {
	var messages []*merge.MergedMessage
	for _, name := range []string{"Order", "Customer", "Shipment", "Invoice", "Refund"} {
		v1 := numView("v1", "count", schema.NumericInt32, schema.PresenceProto3Implicit)
		v2 := numView("v2", "count", schema.NumericInt32, schema.PresenceProto3Implicit)
		messages = append(messages, &merge.MergedMessage{
			Name:      name,
			Revisions: []string{"v1", "v2"},
			Fields: []*merge.MergedField{{
				Name:        "count",
				Conflict:    merge.ConflictNone,
				WideKind:    schema.NumericInt32,
				Unified:     v2.Contract,
				PerRevision: []merge.RevisionField{v1, v2},
			}},
		})
	}
	merged := &merge.MergedSchema{Revisions: []string{"v1", "v2"}, Messages: messages}

	arts, metrics, err := New(policy.DefaultRegistry()).Run(context.Background(), merged, 2)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if len(arts) != len(messages) {
		t.Fatalf("Run() produced %d artifacts, expected %d", len(arts), len(messages))
	}
	for i, art := range arts {
		if art.Message != messages[i].Name {
			t.Errorf("artifact[%d] = %q, expected %q", i, art.Message, messages[i].Name)
		}
	}
	if metrics.Messages != len(messages) {
		t.Errorf("Metrics.Messages = %d, expected %d", metrics.Messages, len(messages))
	}
	var funcs int
	for _, art := range arts {
		funcs += len(art.Funcs)
	}
	if metrics.Funcs != funcs {
		t.Errorf("Metrics.Funcs = %d, expected %d", metrics.Funcs, funcs)
	}
	if metrics.Workers != 2 {
		t.Errorf("Metrics.Workers = %d, expected 2", metrics.Workers)
	}
}

func TestRunCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	v1 := numView("v1", "count", schema.NumericInt32, schema.PresenceProto3Implicit)
	merged := &merge.MergedSchema{
		Revisions: []string{"v1"},
		Messages: []*merge.MergedMessage{{
			Name:      "Order",
			Revisions: []string{"v1"},
			Fields: []*merge.MergedField{{
				Name:        "count",
				Conflict:    merge.ConflictNone,
				WideKind:    schema.NumericInt32,
				Unified:     v1.Contract,
				PerRevision: []merge.RevisionField{v1},
			}},
		}},
	}

	if _, _, err := New(policy.DefaultRegistry()).Run(ctx, merged, 1); err == nil {
		t.Errorf("Run() should fail when the context is already canceled")
	}
}
