package schema

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/descriptorpb"

	generrors "github.com/protoverge/protoverge/internal/generator/errors"
	"github.com/protoverge/protoverge/internal/logging"
)

// wellKnownPackage is the proto package of the bundled well-known types;
// files in it are runtime plumbing, not user schema, and are skipped.
const wellKnownPackage = "google.protobuf"

// Input names one descriptor set to load: the revision tag and the path of
// the compiled FileDescriptorSet blob. Syntax, when non-empty, forces the
// dialect ("proto2" or "proto3") instead of trusting the descriptor; some
// toolchains emit sets with the syntax field unset.
type Input struct {
	Tag    string
	Path   string
	Syntax string
}

// Loader reads compiled descriptor sets into the revision model
type Loader struct {
	log *zap.SugaredLogger
}

// NewLoader creates a Loader
func NewLoader() *Loader {
	return &Loader{log: logging.For("schema")}
}

// LoadSet loads all inputs in order into a Set. Revision order is input
// order; the last input is treated as the newest revision.
func (l *Loader) LoadSet(inputs []Input) (*Set, error) {
	seen := make(map[string]bool, len(inputs))
	set := &Set{Revisions: make([]*Revision, 0, len(inputs))}
	for _, in := range inputs {
		if seen[in.Tag] {
			return nil, generrors.New(generrors.CodeBadConfig,
				"duplicate revision tag %q", in.Tag)
		}
		seen[in.Tag] = true

		rev, err := l.LoadInput(in)
		if err != nil {
			return nil, err
		}
		set.Revisions = append(set.Revisions, rev)
	}
	return set, nil
}

// Load reads one compiled FileDescriptorSet and builds the Revision for it
func (l *Loader) Load(path, tag string) (*Revision, error) {
	return l.LoadInput(Input{Tag: tag, Path: path})
}

// LoadInput is Load with an optional syntax override applied to every file
// in the set
func (l *Loader) LoadInput(in Input) (*Revision, error) {
	if in.Syntax != "" && in.Syntax != "proto2" && in.Syntax != "proto3" {
		return nil, generrors.New(generrors.CodeBadConfig,
			"revision %q: unknown syntax override %q (want proto2 or proto3)", in.Tag, in.Syntax)
	}

	data, err := os.ReadFile(in.Path)
	if err != nil {
		return nil, generrors.MalformedDescriptor(in.Path, in.Tag, err)
	}

	fds := &descriptorpb.FileDescriptorSet{}
	if err := proto.Unmarshal(data, fds); err != nil {
		return nil, generrors.MalformedDescriptor(in.Path, in.Tag, err)
	}

	rev := &Revision{Tag: in.Tag, Source: in.Path}
	// Map entries are collected up front so fields referencing them can be
	// recognized while walking any file in the set.
	mapEntries := collectMapEntries(fds)

	for _, file := range fds.GetFile() {
		if file.GetPackage() == wellKnownPackage {
			l.log.Debugw("skipping well-known types file", "file", file.GetName())
			continue
		}
		syntax := in.Syntax
		if syntax == "" {
			syntax = fileSyntax(file)
		}
		if rev.Syntax == "" {
			rev.Syntax = syntax
		}

		prefix := file.GetPackage()
		for _, msg := range file.GetMessageType() {
			if err := l.walkMessage(rev, in.Tag, in.Path, syntax, prefix, "", msg, mapEntries); err != nil {
				return nil, err
			}
		}
		for _, enum := range file.GetEnumType() {
			rev.Enums = append(rev.Enums, buildEnum(prefix, "", enum))
		}
	}

	if len(rev.Messages) == 0 {
		l.log.Warnw("descriptor set contains no user messages", "path", in.Path, "revision", in.Tag)
	}
	for _, m := range rev.Messages {
		m.index()
	}
	rev.index()
	l.log.Debugw("loaded revision",
		"revision", in.Tag, "syntax", rev.Syntax,
		"messages", len(rev.Messages), "enums", len(rev.Enums))
	return rev, nil
}

// fileSyntax maps the descriptor syntax string to proto2/proto3. Descriptors
// compiled from legacy proto2 sources leave the field unset.
func fileSyntax(file *descriptorpb.FileDescriptorProto) string {
	if file.GetSyntax() == "proto3" {
		return "proto3"
	}
	return "proto2"
}

// collectMapEntries gathers the fully-qualified names of synthetic map-entry
// messages across the whole set.
func collectMapEntries(fds *descriptorpb.FileDescriptorSet) map[string]bool {
	entries := make(map[string]bool)
	var walk func(prefix string, msg *descriptorpb.DescriptorProto)
	walk = func(prefix string, msg *descriptorpb.DescriptorProto) {
		name := qualify(prefix, msg.GetName())
		if msg.GetOptions().GetMapEntry() {
			entries[name] = true
		}
		for _, nested := range msg.GetNestedType() {
			walk(name, nested)
		}
	}
	for _, file := range fds.GetFile() {
		for _, msg := range file.GetMessageType() {
			walk(file.GetPackage(), msg)
		}
	}
	return entries
}

// walkMessage builds one message (and, depth-first, its nested messages and
// enums) into the revision. Map-entry messages and the map fields that
// reference them stay out of the model.
func (l *Loader) walkMessage(rev *Revision, tag, path, syntax, prefix, localPrefix string, msg *descriptorpb.DescriptorProto, mapEntries map[string]bool) error {
	name := qualify(prefix, msg.GetName())
	if mapEntries[name] {
		return nil
	}
	local := qualify(localPrefix, msg.GetName())

	m := &Message{Name: name, Local: local}
	oneofs := make([]*Oneof, len(msg.GetOneofDecl()))
	for i, decl := range msg.GetOneofDecl() {
		oneofs[i] = &Oneof{Name: decl.GetName()}
	}

	for _, fd := range msg.GetField() {
		typeName := strings.TrimPrefix(fd.GetTypeName(), ".")
		if fd.GetType() == descriptorpb.FieldDescriptorProto_TYPE_MESSAGE && mapEntries[typeName] {
			l.log.Debugw("skipping map field", "message", name, "field", fd.GetName())
			continue
		}

		field, err := buildField(syntax, fd)
		if err != nil {
			return generrors.MalformedDescriptor(path, tag, err).
				WithMessageName(name).WithField(fd.GetName())
		}

		if field.Presence == PresenceOneofMember {
			idx := int(fd.GetOneofIndex())
			if idx < 0 || idx >= len(oneofs) {
				return generrors.MalformedDescriptor(path, tag, nil).
					WithMessageName(name).WithField(field.Name).
					WithDetail("reason", "oneof index out of range")
			}
			field.OneofName = oneofs[idx].Name
			oneofs[idx].Members = append(oneofs[idx].Members, field.Number)
		}
		m.Fields = append(m.Fields, field)
	}

	// Synthetic oneofs (proto3 explicit optional) end up with no members
	// recorded; only real groups are kept.
	for _, o := range oneofs {
		if len(o.Members) > 0 {
			m.Oneofs = append(m.Oneofs, o)
		}
	}
	rev.Messages = append(rev.Messages, m)

	for _, nested := range msg.GetNestedType() {
		if err := l.walkMessage(rev, tag, path, syntax, name, local, nested, mapEntries); err != nil {
			return err
		}
	}
	for _, enum := range msg.GetEnumType() {
		rev.Enums = append(rev.Enums, buildEnum(name, local, enum))
	}
	return nil
}

// buildField maps one FieldDescriptorProto into the model
func buildField(syntax string, fd *descriptorpb.FieldDescriptorProto) (*Field, error) {
	if fd.GetName() == "" {
		return nil, fmt.Errorf("field with number %d has no name", fd.GetNumber())
	}
	if fd.GetNumber() <= 0 {
		return nil, fmt.Errorf("field %q has invalid number %d", fd.GetName(), fd.GetNumber())
	}

	category, kind, protoType, err := categorize(fd.GetType())
	if err != nil {
		return nil, err
	}

	field := &Field{
		Name:      fd.GetName(),
		JSONName:  fd.GetJsonName(),
		Number:    fd.GetNumber(),
		Category:  category,
		Kind:      kind,
		ProtoType: protoType,
		TypeName:  strings.TrimPrefix(fd.GetTypeName(), "."),
		Default:   fd.GetDefaultValue(),
	}

	if fd.GetLabel() == descriptorpb.FieldDescriptorProto_LABEL_REPEATED {
		field.Cardinality = Repeated
		field.Presence = PresenceUnspecified
		return field, nil
	}

	field.Cardinality = Singular
	field.Presence = detectPresence(syntax, fd)
	return field, nil
}

// detectPresence maps label, syntax and oneof membership to the presence
// discriminator. The proto3_optional flag marks the synthetic oneof protoc
// builds for `optional` in proto3; those fields are explicit-optional, not
// oneof members.
func detectPresence(syntax string, fd *descriptorpb.FieldDescriptorProto) Presence {
	switch {
	case fd.GetProto3Optional():
		return PresenceProto3Explicit
	case fd.OneofIndex != nil:
		return PresenceOneofMember
	case syntax == "proto2" && fd.GetLabel() == descriptorpb.FieldDescriptorProto_LABEL_REQUIRED:
		return PresenceProto2Required
	case syntax == "proto2":
		return PresenceProto2Optional
	default:
		return PresenceProto3Implicit
	}
}

// categorize maps the descriptor type enum to the model's category, numeric
// kind and wire type name
func categorize(t descriptorpb.FieldDescriptorProto_Type) (TypeCategory, NumericKind, string, error) {
	switch t {
	case descriptorpb.FieldDescriptorProto_TYPE_DOUBLE:
		return TypeNumeric, NumericDouble, "double", nil
	case descriptorpb.FieldDescriptorProto_TYPE_FLOAT:
		return TypeNumeric, NumericFloat, "float", nil
	case descriptorpb.FieldDescriptorProto_TYPE_INT64:
		return TypeNumeric, NumericInt64, "int64", nil
	case descriptorpb.FieldDescriptorProto_TYPE_SINT64:
		return TypeNumeric, NumericInt64, "sint64", nil
	case descriptorpb.FieldDescriptorProto_TYPE_SFIXED64:
		return TypeNumeric, NumericInt64, "sfixed64", nil
	case descriptorpb.FieldDescriptorProto_TYPE_UINT64:
		return TypeNumeric, NumericUint64, "uint64", nil
	case descriptorpb.FieldDescriptorProto_TYPE_FIXED64:
		return TypeNumeric, NumericUint64, "fixed64", nil
	case descriptorpb.FieldDescriptorProto_TYPE_INT32:
		return TypeNumeric, NumericInt32, "int32", nil
	case descriptorpb.FieldDescriptorProto_TYPE_SINT32:
		return TypeNumeric, NumericInt32, "sint32", nil
	case descriptorpb.FieldDescriptorProto_TYPE_SFIXED32:
		return TypeNumeric, NumericInt32, "sfixed32", nil
	case descriptorpb.FieldDescriptorProto_TYPE_UINT32:
		return TypeNumeric, NumericUint32, "uint32", nil
	case descriptorpb.FieldDescriptorProto_TYPE_FIXED32:
		return TypeNumeric, NumericUint32, "fixed32", nil
	case descriptorpb.FieldDescriptorProto_TYPE_BOOL:
		return TypeNumeric, NumericBool, "bool", nil
	case descriptorpb.FieldDescriptorProto_TYPE_STRING:
		return TypeString, NumericNone, "string", nil
	case descriptorpb.FieldDescriptorProto_TYPE_BYTES:
		return TypeBytes, NumericNone, "bytes", nil
	case descriptorpb.FieldDescriptorProto_TYPE_MESSAGE:
		return TypeMessage, NumericNone, "message", nil
	case descriptorpb.FieldDescriptorProto_TYPE_GROUP:
		return TypeMessage, NumericNone, "group", nil
	case descriptorpb.FieldDescriptorProto_TYPE_ENUM:
		return TypeEnum, NumericNone, "enum", nil
	}
	return TypeNumeric, NumericNone, "", fmt.Errorf("unknown field type %d", int32(t))
}

func buildEnum(prefix, localPrefix string, enum *descriptorpb.EnumDescriptorProto) *Enum {
	e := &Enum{
		Name:  qualify(prefix, enum.GetName()),
		Local: qualify(localPrefix, enum.GetName()),
	}
	for _, v := range enum.GetValue() {
		e.Values = append(e.Values, EnumValue{Name: v.GetName(), Number: v.GetNumber()})
	}
	return e
}

func qualify(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}

