package merge

import (
	"github.com/protoverge/protoverge/internal/generator/schema"
)

// classifyPair classifies the disagreement between two revisions' views of
// one field. Cardinality is checked first, then the type, and the presence
// discriminator only when type and cardinality agree. Folding across more
// than two revisions takes the strongest kind seen.
func classifyPair(a, b *schema.Field) ConflictType {
	if a.Cardinality != b.Cardinality {
		// Cardinality escalation is only reconcilable when the element
		// types agree; a repeated int32 vs a singular string has no rule.
		if sameElementType(a, b) {
			return ConflictRepeatedSingle
		}
		return ConflictTypeMismatch
	}
	if t := classifyType(a, b); t != ConflictNone {
		return t
	}
	if familyOf(a.Presence) != familyOf(b.Presence) {
		return ConflictOptionalRequired
	}
	return ConflictNone
}

// classifyType compares the declared types, ignoring cardinality and
// presence. ConflictNone means the types are reconcilable without a rule.
func classifyType(a, b *schema.Field) ConflictType {
	ca, cb := a.Category, b.Category
	switch {
	case ca == schema.TypeNumeric && cb == schema.TypeNumeric:
		return classifyNumeric(a.Kind, b.Kind)

	case ca == schema.TypeNumeric && cb == schema.TypeEnum,
		ca == schema.TypeEnum && cb == schema.TypeNumeric:
		numeric := a
		if ca == schema.TypeEnum {
			numeric = b
		}
		// Enum constants are numbers; only integer revisions can pair with
		// them. Float or bool against an enum has no rule.
		if numeric.Kind.Bits() != 0 {
			return ConflictIntEnum
		}
		return ConflictTypeMismatch

	case ca == schema.TypeString && cb == schema.TypeBytes,
		ca == schema.TypeBytes && cb == schema.TypeString:
		return ConflictStringBytes

	case ca.IsScalar() && cb == schema.TypeMessage,
		cb.IsScalar() && ca == schema.TypeMessage:
		return ConflictPrimitiveMessage

	case ca == schema.TypeMessage && cb == schema.TypeMessage,
		ca == schema.TypeEnum && cb == schema.TypeEnum:
		// Each revision qualifies referenced types with its own package,
		// so identity compares short names only.
		if a.TypeShort() == b.TypeShort() {
			return ConflictNone
		}
		return ConflictTypeMismatch

	case ca == cb:
		return ConflictNone

	default:
		return ConflictTypeMismatch
	}
}

// classifyNumeric positions two numeric kinds against each other on the
// widening lattice.
func classifyNumeric(ka, kb schema.NumericKind) ConflictType {
	if ka == kb {
		return ConflictNone
	}
	// Bool sits outside the lattice and pairs only with itself.
	if ka == schema.NumericBool || kb == schema.NumericBool {
		return ConflictTypeMismatch
	}
	if ka.Floating() && kb.Floating() {
		return ConflictFloatDouble
	}
	if ka.Bits() != 0 && ka.Bits() == kb.Bits() && ka.Signed() != kb.Signed() {
		return ConflictSignedUnsigned
	}
	return ConflictWidening
}

// sameElementType reports whether two fields carry the same element type,
// the precondition for REPEATED_SINGLE.
func sameElementType(a, b *schema.Field) bool {
	if a.Category != b.Category || a.Kind != b.Kind {
		return false
	}
	if a.Category == schema.TypeMessage || a.Category == schema.TypeEnum {
		return a.TypeShort() == b.TypeShort()
	}
	return true
}

// presenceFamily buckets discriminators that derive the same contract shape
type presenceFamily int

const (
	familyNoPresence presenceFamily = iota
	familyExplicit
	familyRequired
)

func familyOf(p schema.Presence) presenceFamily {
	switch p {
	case schema.PresenceProto2Required:
		return familyRequired
	case schema.PresenceProto2Optional, schema.PresenceProto3Explicit, schema.PresenceOneofMember:
		return familyExplicit
	default:
		return familyNoPresence
	}
}
