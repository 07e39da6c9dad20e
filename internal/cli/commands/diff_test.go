package commands

import (
	"encoding/json"
	"strings"
	"testing"

	"google.golang.org/protobuf/types/descriptorpb"

	"github.com/protoverge/protoverge/internal/generator/diff"
)

func TestDiffCommandJSON(t *testing.T) {
	chProject(t)
	writeRevision(t, "v1.binpb",
		message("Order",
			pbField("count", 1, descriptorpb.FieldDescriptorProto_TYPE_INT32),
			pbField("legacy_note", 2, descriptorpb.FieldDescriptorProto_TYPE_STRING)))
	writeRevision(t, "v2.binpb",
		message("Order",
			pbField("count", 1, descriptorpb.FieldDescriptorProto_TYPE_INT64)))
	writeConfig(t, "")

	out, err := execute("diff", "--json")
	if err != nil {
		t.Fatalf("diff failed: %v\n%s", err, out)
	}

	var report diff.Report
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("report is not JSON: %v\n%s", err, out)
	}
	if len(report.Revisions) != 2 || report.Revisions[0] != "v1" {
		t.Errorf("revisions = %v", report.Revisions)
	}
	if report.Totals.Messages != 1 || report.Totals.Fields != 2 {
		t.Errorf("totals = %+v", report.Totals)
	}
	// legacy_note vanished after v1: breaking.
	if report.Totals.Breaking != 1 {
		t.Errorf("breaking = %d, want 1 for the dropped field", report.Totals.Breaking)
	}
}

func TestDiffCommandTable(t *testing.T) {
	chProject(t)
	writeWideningProject(t)

	out, err := execute("diff")
	if err != nil {
		t.Fatalf("diff failed: %v\n%s", err, out)
	}
	for _, want := range []string{"Revisions: v1 → v2", "Order", "WIDENING", "v1:int32 → v2:int64", "none breaking"} {
		if !strings.Contains(out, want) {
			t.Errorf("diff output missing %q:\n%s", want, out)
		}
	}
}

func TestDiffFailOnBreaking(t *testing.T) {
	chProject(t)
	writeRevision(t, "v1.binpb",
		message("Doc", pbField("payload", 1, descriptorpb.FieldDescriptorProto_TYPE_STRING)))
	writeRevision(t, "v2.binpb",
		message("Doc", pbField("payload", 1, descriptorpb.FieldDescriptorProto_TYPE_BYTES)))
	writeConfig(t, "")

	if _, err := execute("diff"); err != nil {
		t.Fatalf("plain diff must not fail on breaking changes: %v", err)
	}

	_, err := execute("diff", "--fail-on-breaking")
	if err == nil || !strings.Contains(err.Error(), "breaking") {
		t.Errorf("expected breaking-change failure, got %v", err)
	}
}

func TestDiffMissingDescriptorFails(t *testing.T) {
	chProject(t)
	writeConfig(t, "")
	writeRevision(t, "v1.binpb", message("Order"))
	// v2.binpb deliberately absent.

	_, err := execute("diff")
	if err == nil || !strings.Contains(err.Error(), "VRG201") {
		t.Errorf("expected descriptor load failure, got %v", err)
	}
}
