package merge

import (
	"path"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/protoverge/protoverge/internal/generator/contract"
	generrors "github.com/protoverge/protoverge/internal/generator/errors"
	"github.com/protoverge/protoverge/internal/generator/schema"
	"github.com/protoverge/protoverge/internal/logging"
)

// Options configures a merge run
type Options struct {
	// Mappings overrides field identity: message local name -> declared
	// field name -> canonical name.
	Mappings map[string]map[string]string
	// IncludeMessages, when non-empty, restricts merging to messages whose
	// local name matches one of the glob patterns.
	IncludeMessages []string
	// ExcludeMessages drops messages whose local name matches a pattern
	ExcludeMessages []string
	// ExcludeFields drops fields matching "Message.field" patterns
	ExcludeFields []string
	// Strict promotes merge diagnostics to an error after the run
	Strict bool
}

// Engine merges a revision set into one MergedSchema
type Engine struct {
	set       *schema.Set
	contracts *contract.Cache
	opts      Options
	log       *zap.SugaredLogger
}

// New creates a merge engine over the revision set. The contract cache may
// be shared with synthesis workers.
func New(set *schema.Set, contracts *contract.Cache, opts Options) *Engine {
	if contracts == nil {
		contracts = contract.NewCache()
	}
	return &Engine{
		set:       set,
		contracts: contracts,
		opts:      opts,
		log:       logging.For("merge"),
	}
}

// Merge matches messages and fields across all revisions and unifies their
// contracts. The first TYPE_MISMATCH or identity ambiguity aborts with a
// fatal error; everything else lands in the schema's diagnostics.
func (e *Engine) Merge() (*MergedSchema, error) {
	start := time.Now()
	merged := &MergedSchema{
		Revisions: e.set.Tags(),
		Stats:     Stats{ByConflict: make(map[ConflictType]int)},
	}

	for _, local := range e.messageUnion() {
		mm, err := e.mergeMessage(local, merged)
		if err != nil {
			return nil, err
		}
		merged.Messages = append(merged.Messages, mm)

		merged.Stats.Messages++
		for _, f := range mm.Fields {
			merged.Stats.Fields++
			merged.Stats.ByConflict[f.Conflict]++
			if f.Conflict != ConflictNone {
				merged.Stats.Conflicted++
			}
		}
	}
	merged.Enums = e.mergeEnums(merged)

	if e.opts.Strict && len(merged.Diagnostics) > 0 {
		first := merged.Diagnostics[0]
		return nil, generrors.New(generrors.CodeBadConfig,
			"strict mode: %d merge diagnostic(s), first: %s", len(merged.Diagnostics), first.Detail).
			WithMessageName(first.MessageName).
			WithField(first.Field)
	}

	e.log.Infow("merge complete",
		"messages", merged.Stats.Messages,
		"fields", merged.Stats.Fields,
		"conflicted", merged.Stats.Conflicted,
		"enums", len(merged.Enums),
		"diagnostics", len(merged.Diagnostics),
		"duration", time.Since(start))
	return merged, nil
}

// messageUnion returns the filtered union of message identities across all
// revisions, in first-seen order.
func (e *Engine) messageUnion() []string {
	seen := make(map[string]bool)
	var union []string
	for _, rev := range e.set.Revisions {
		for _, m := range rev.Messages {
			if seen[m.Local] || !e.includeMessage(m.Local) {
				continue
			}
			seen[m.Local] = true
			union = append(union, m.Local)
		}
	}
	return union
}

func (e *Engine) includeMessage(local string) bool {
	if matchAny(e.opts.ExcludeMessages, local) {
		return false
	}
	if len(e.opts.IncludeMessages) > 0 {
		return matchAny(e.opts.IncludeMessages, local)
	}
	return true
}

func (e *Engine) excludeField(msgLocal, fieldName string) bool {
	return matchAny(e.opts.ExcludeFields, msgLocal+"."+fieldName)
}

// matchAny globs value against the patterns; patterns are validated by the
// configuration layer, so match errors count as no match.
func matchAny(patterns []string, value string) bool {
	for _, p := range patterns {
		if ok, err := path.Match(p, value); err == nil && ok {
			return true
		}
	}
	return false
}

// mergeMessage unifies one message identity across the revisions carrying it
func (e *Engine) mergeMessage(local string, merged *MergedSchema) (*MergedMessage, error) {
	mm := &MergedMessage{Name: local}

	type presentRev struct {
		rev *schema.Revision
		msg *schema.Message
	}
	var present []presentRev
	for _, rev := range e.set.Revisions {
		if msg, ok := rev.MessageByLocal(local); ok {
			present = append(present, presentRev{rev, msg})
			mm.Revisions = append(mm.Revisions, rev.Tag)
		}
	}
	mm.Partial = len(present) < len(e.set.Revisions)

	m := newMatcher(local, e.opts.Mappings[local])
	for _, p := range present {
		for _, f := range p.msg.Fields {
			if e.excludeField(local, f.Name) {
				continue
			}
			ct := e.contracts.Derive(p.rev.Tag, local, f)
			if err := m.place(p.rev.Tag, f, ct); err != nil {
				return nil, err
			}
		}
	}

	// byView lets the oneof merge map (revision, field number) back to the
	// canonical merged field.
	type viewKey struct {
		rev    string
		number int32
	}
	byView := make(map[viewKey]*MergedField)

	for _, g := range m.groups {
		mf, err := e.unifyGroup(local, g, merged)
		if err != nil {
			return nil, err
		}
		mm.Fields = append(mm.Fields, mf)
		for _, v := range mf.PerRevision {
			byView[viewKey{v.Revision, v.Field.Number}] = mf
		}
	}
	sort.SliceStable(mm.Fields, func(i, j int) bool {
		if mm.Fields[i].Number != mm.Fields[j].Number {
			return mm.Fields[i].Number < mm.Fields[j].Number
		}
		return mm.Fields[i].Name < mm.Fields[j].Name
	})

	// Real oneof groups match by name across revisions.
	oneofSeen := make(map[string]*MergedOneof)
	for _, p := range present {
		for _, o := range p.msg.Oneofs {
			mo := oneofSeen[o.Name]
			if mo == nil {
				mo = &MergedOneof{Name: o.Name}
				oneofSeen[o.Name] = mo
				mm.Oneofs = append(mm.Oneofs, mo)
			}
			mo.Revisions = append(mo.Revisions, p.rev.Tag)
			for _, num := range o.Members {
				if mf, ok := byView[viewKey{p.rev.Tag, num}]; ok && !containsString(mo.Members, mf.Name) {
					mo.Members = append(mo.Members, mf.Name)
				}
			}
		}
	}

	e.log.Debugw("merged message",
		"message", local,
		"revisions", mm.Revisions,
		"fields", len(mm.Fields),
		"oneofs", len(mm.Oneofs))
	return mm, nil
}

// unifyGroup classifies one merged field's conflicts and unifies its
// contract.
func (e *Engine) unifyGroup(msgLocal string, g *fieldGroup, merged *MergedSchema) (*MergedField, error) {
	views := g.views
	newest := views[len(views)-1]

	conflict := ConflictNone
	for i := 0; i < len(views); i++ {
		for j := i + 1; j < len(views); j++ {
			c := classifyPair(views[i].Field, views[j].Field)
			if c == ConflictTypeMismatch {
				return nil, generrors.TypeMismatch(msgLocal, newest.Field.Name,
					views[i].Field.TypeLabel(), views[i].Revision,
					views[j].Field.TypeLabel(), views[j].Revision)
			}
			if c > conflict {
				conflict = c
			}
			if c == ConflictNone && views[i].Field.ProtoType != views[j].Field.ProtoType {
				merged.Diagnostics = append(merged.Diagnostics, Diagnostic{
					Kind:        "encoding_change",
					MessageName: msgLocal,
					Field:       newest.Field.Name,
					Revisions:   []string{views[i].Revision, views[j].Revision},
					Detail: "wire encoding changed from " + views[i].Field.ProtoType +
						" to " + views[j].Field.ProtoType + "; values are unaffected",
				})
			}
		}
	}

	mf := &MergedField{
		Name:        newest.Field.Name,
		Number:      newest.Field.Number,
		Conflict:    conflict,
		PerRevision: views,
		Partial:     len(views) < len(e.set.Revisions),
	}
	if g.canonical != "" {
		mf.Name = g.canonical
	}

	category, kind := unifiedType(conflict, views)
	mf.WideKind = kind
	if conflict == ConflictIntEnum {
		mf.EnumRef = enumShortName(views)
	}

	uc := contract.Contract{Category: category}
	uc.HasAccessor = true
	for _, v := range views {
		if !v.Contract.HasAccessor {
			uc.HasAccessor = false
		}
		if v.Contract.ReaderChecksPresence {
			uc.ReaderChecksPresence = true
		}
		if v.Contract.Nullable {
			uc.Nullable = true
		}
		if v.Contract.Cardinality == schema.Repeated {
			uc.Cardinality = schema.Repeated
		}
	}
	// A presence check is only honored when every revision backs it with
	// an accessor.
	uc.ReaderChecksPresence = uc.ReaderChecksPresence && uc.HasAccessor
	uc.Default = e.unifiedDefault(msgLocal, mf, uc, views, merged)
	mf.Unified = uc

	return mf, nil
}

// unifiedType picks the unified surface's category and numeric kind
func unifiedType(conflict ConflictType, views []RevisionField) (schema.TypeCategory, schema.NumericKind) {
	newest := views[len(views)-1]
	switch conflict {
	case ConflictWidening, ConflictFloatDouble, ConflictSignedUnsigned:
		kind := schema.NumericNone
		for _, v := range views {
			kind = schema.Widest(kind, v.Field.Kind)
		}
		return schema.TypeNumeric, kind

	case ConflictIntEnum:
		// The primary unified surface is the raw number; enum constants
		// are 32-bit, so the width comes from the integer revisions.
		kind := schema.NumericInt32
		for _, v := range views {
			if v.Field.Category == schema.TypeNumeric {
				kind = schema.Widest(kind, v.Field.Kind)
			}
		}
		return schema.TypeNumeric, kind

	case ConflictPrimitiveMessage:
		// The scalar side is the unified representation; message revisions
		// yield empty/absent through it.
		var category schema.TypeCategory
		kind := schema.NumericNone
		for _, v := range views {
			if v.Field.Category != schema.TypeMessage {
				category = v.Field.Category
				if v.Field.Category == schema.TypeNumeric {
					kind = schema.Widest(kind, v.Field.Kind)
				}
			}
		}
		return category, kind

	case ConflictStringBytes:
		// The newest revision's representation wins as the unified surface
		return newest.Field.Category, schema.NumericNone

	default:
		return newest.Field.Category, newest.Field.Kind
	}
}

// unifiedDefault resolves the unified default policy, recording a
// diagnostic when per-revision policies disagree and none of the structural
// rules apply.
func (e *Engine) unifiedDefault(msgLocal string, mf *MergedField, uc contract.Contract, views []RevisionField, merged *MergedSchema) contract.DefaultPolicy {
	if uc.Cardinality == schema.Repeated {
		return contract.DefaultEmptyList
	}
	if uc.Category == schema.TypeMessage {
		return contract.DefaultEmptyInstance
	}
	if uc.Nullable {
		return contract.DefaultAbsent
	}

	first := views[0].Contract.Default
	agree := true
	for _, v := range views[1:] {
		if v.Contract.Default != first {
			agree = false
			break
		}
	}
	if agree && sameExplicitLiteral(views) {
		return first
	}
	merged.Diagnostics = append(merged.Diagnostics, Diagnostic{
		Kind:        "default_mismatch",
		MessageName: msgLocal,
		Field:       mf.Name,
		Revisions:   mf.Revisions(),
		Detail:      "revisions disagree on the absent-value default; the unified surface uses the widened type's zero",
	})
	return contract.ZeroPolicyFor(uc.Category, mf.WideKind)
}

// sameExplicitLiteral guards DefaultExplicit agreement: the policy matching
// is not enough when the declared literals differ.
func sameExplicitLiteral(views []RevisionField) bool {
	if views[0].Contract.Default != contract.DefaultExplicit {
		return true
	}
	literal := views[0].Field.Default
	for _, v := range views[1:] {
		if v.Field.Default != literal {
			return false
		}
	}
	return true
}

func enumShortName(views []RevisionField) string {
	// Newest enum revision names the merged enum surface
	for i := len(views) - 1; i >= 0; i-- {
		if views[i].Field.Category == schema.TypeEnum {
			return views[i].Field.TypeShort()
		}
	}
	return ""
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
