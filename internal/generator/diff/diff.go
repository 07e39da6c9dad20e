// Package diff derives a structured cross-revision change report from a
// merged schema. The report is what the diff command renders and what
// --json emits; it classifies every unified field as breaking or not and
// leaves all rendering to the caller.
package diff

import (
	"github.com/protoverge/protoverge/internal/generator/merge"
	"github.com/protoverge/protoverge/internal/generator/policy"
)

// FieldDiff describes one unified field across the revision set
type FieldDiff struct {
	Name     string             `json:"name"`
	Number   int32              `json:"number"`
	Conflict merge.ConflictType `json:"conflict"`
	// Types maps each carrying revision to the field's declared type there
	Types map[string]string `json:"types"`
	// AddedIn is the first revision carrying the field, when that is not
	// the first revision of the set
	AddedIn string `json:"added_in,omitempty"`
	// RemovedIn is the first revision after the last one carrying the field
	RemovedIn string `json:"removed_in,omitempty"`
	Note      string `json:"note,omitempty"`
	Breaking  bool   `json:"breaking"`
}

// MessageDiff describes one merged message and its fields
type MessageDiff struct {
	Name      string      `json:"message"`
	AddedIn   string      `json:"added_in,omitempty"`
	RemovedIn string      `json:"removed_in,omitempty"`
	Fields    []FieldDiff `json:"fields"`
}

// Totals aggregates the report for summaries and exit-code decisions
type Totals struct {
	Messages   int `json:"messages"`
	Fields     int `json:"fields"`
	Conflicted int `json:"conflicted"`
	Breaking   int `json:"breaking"`
}

// Report is the complete structured diff of a revision set
type Report struct {
	Revisions []string      `json:"revisions"`
	Messages  []MessageDiff `json:"messages"`
	Totals    Totals        `json:"totals"`
}

// Build derives the report for a merged schema. The registry supplies the
// per-conflict plan notes; nil means the default plans. Build is pure and
// never fails: anything fatal aborted during the merge.
func Build(merged *merge.MergedSchema, reg *policy.Registry) *Report {
	if reg == nil {
		reg = policy.DefaultRegistry()
	}

	report := &Report{Revisions: merged.Revisions}
	for _, mm := range merged.Messages {
		md := MessageDiff{Name: mm.Name}
		md.AddedIn, md.RemovedIn = span(merged.Revisions, mm.Revisions)

		for _, mf := range mm.Fields {
			fd := fieldDiff(merged.Revisions, mf, reg)
			md.Fields = append(md.Fields, fd)

			report.Totals.Fields++
			if mf.Conflict != merge.ConflictNone {
				report.Totals.Conflicted++
			}
			if fd.Breaking {
				report.Totals.Breaking++
			}
		}

		report.Totals.Messages++
		report.Messages = append(report.Messages, md)
	}
	return report
}

func fieldDiff(setRevisions []string, mf *merge.MergedField, reg *policy.Registry) FieldDiff {
	fd := FieldDiff{
		Name:     mf.Name,
		Number:   mf.Number,
		Conflict: mf.Conflict,
		Types:    make(map[string]string, len(mf.PerRevision)),
	}
	for _, v := range mf.PerRevision {
		fd.Types[v.Revision] = v.Field.TypeLabel()
	}
	fd.AddedIn, fd.RemovedIn = span(setRevisions, mf.Revisions())
	if p, ok := reg.PlanFor(mf.Conflict); ok {
		fd.Note = p.Note
	}
	fd.Breaking = breaking(mf.Conflict, fd.RemovedIn != "")
	return fd
}

// breaking classifies a change as breaking for callers of the unified
// surface. Mixed cardinality, scalar/message and string/bytes mixes lose
// their unified writer; signed/unsigned mixes reject half the wide type's
// range on write; a field the newest revision dropped has no future.
// Widening, float/double, int/enum and presence shifts keep the full
// surface and stay warnings.
func breaking(c merge.ConflictType, removed bool) bool {
	if removed {
		return true
	}
	switch c {
	case merge.ConflictTypeMismatch,
		merge.ConflictRepeatedSingle,
		merge.ConflictPrimitiveMessage,
		merge.ConflictStringBytes,
		merge.ConflictSignedUnsigned:
		return true
	}
	return false
}

// span locates a carrier list inside the full revision sequence. AddedIn
// stays empty for identities present from the first revision; RemovedIn
// names the revision right after the last carrier, if any.
func span(all, carriers []string) (addedIn, removedIn string) {
	if len(carriers) == 0 || len(all) == 0 {
		return "", ""
	}
	first := indexOf(all, carriers[0])
	last := indexOf(all, carriers[len(carriers)-1])
	if first > 0 {
		addedIn = carriers[0]
	}
	if last >= 0 && last < len(all)-1 {
		removedIn = all[last+1]
	}
	return addedIn, removedIn
}

func indexOf(list []string, v string) int {
	for i, x := range list {
		if x == v {
			return i
		}
	}
	return -1
}
