package merge

import (
	"github.com/protoverge/protoverge/internal/generator/contract"
	generrors "github.com/protoverge/protoverge/internal/generator/errors"
	"github.com/protoverge/protoverge/internal/generator/schema"
)

// fieldGroup is a merged field under construction: the revisions' views
// joined so far plus the numbers and normalized names they answer to.
type fieldGroup struct {
	views     []RevisionField
	numbers   map[int32]bool
	names     map[string]bool // normalized
	canonical string          // explicit mapping target, if the group was born from one
}

func (g *fieldGroup) holdsRevision(tag string) bool {
	for _, v := range g.views {
		if v.Revision == tag {
			return true
		}
	}
	return false
}

// matcher resolves field identity inside one merged message. Priority per
// incoming field: explicit mapping override, then identical field number,
// then identical normalized name. A field joining a group that already
// holds its revision, or a name matching more than one group, is ambiguous
// and fatal.
type matcher struct {
	msgName  string
	mappings map[string]string // declared field name -> canonical name
	groups   []*fieldGroup
}

func newMatcher(msgName string, mappings map[string]string) *matcher {
	return &matcher{msgName: msgName, mappings: mappings}
}

// place assigns one revision's field to its merged group, creating a new
// group when nothing matches.
func (m *matcher) place(rev string, f *schema.Field, ct contract.Contract) error {
	if target, ok := m.mappings[f.Name]; ok {
		g := m.findByCanonical(target)
		if g == nil {
			g = m.newGroup(target)
		}
		return m.join(g, rev, f, ct)
	}

	if gs := m.findByNumber(f.Number); len(gs) > 0 {
		if len(gs) > 1 {
			return m.ambiguous(rev, f, gs)
		}
		return m.join(gs[0], rev, f, ct)
	}

	if gs := m.findByName(schema.NormalizeName(f.Name)); len(gs) > 0 {
		if len(gs) > 1 {
			return m.ambiguous(rev, f, gs)
		}
		return m.join(gs[0], rev, f, ct)
	}

	return m.join(m.newGroup(""), rev, f, ct)
}

func (m *matcher) newGroup(canonical string) *fieldGroup {
	g := &fieldGroup{
		numbers:   make(map[int32]bool),
		names:     make(map[string]bool),
		canonical: canonical,
	}
	if canonical != "" {
		g.names[schema.NormalizeName(canonical)] = true
	}
	m.groups = append(m.groups, g)
	return g
}

func (m *matcher) join(g *fieldGroup, rev string, f *schema.Field, ct contract.Contract) error {
	if g.holdsRevision(rev) {
		prior := groupFieldNames(g)
		return generrors.AmbiguousIdentity(m.msgName, f.Name, prior, g.views[0].Revision, rev)
	}
	g.views = append(g.views, RevisionField{Revision: rev, Field: f, Contract: ct})
	g.numbers[f.Number] = true
	g.names[schema.NormalizeName(f.Name)] = true
	return nil
}

func (m *matcher) findByCanonical(target string) *fieldGroup {
	for _, g := range m.groups {
		if g.canonical == target {
			return g
		}
	}
	// A group seeded by the canonical name itself (the revision that
	// already uses the target name) also answers.
	norm := schema.NormalizeName(target)
	for _, g := range m.groups {
		if g.names[norm] {
			return g
		}
	}
	return nil
}

func (m *matcher) findByNumber(number int32) []*fieldGroup {
	var out []*fieldGroup
	for _, g := range m.groups {
		if g.numbers[number] {
			out = append(out, g)
		}
	}
	return out
}

func (m *matcher) findByName(norm string) []*fieldGroup {
	var out []*fieldGroup
	for _, g := range m.groups {
		if g.names[norm] {
			out = append(out, g)
		}
	}
	return out
}

func (m *matcher) ambiguous(rev string, f *schema.Field, gs []*fieldGroup) error {
	var candidates []string
	for _, g := range gs {
		candidates = append(candidates, groupFieldNames(g)...)
	}
	other := gs[0].views[0].Revision
	return generrors.AmbiguousIdentity(m.msgName, f.Name, candidates, other, rev)
}

func groupFieldNames(g *fieldGroup) []string {
	seen := make(map[string]bool)
	var names []string
	for _, v := range g.views {
		if !seen[v.Field.Name] {
			seen[v.Field.Name] = true
			names = append(names, v.Field.Name)
		}
	}
	return names
}
