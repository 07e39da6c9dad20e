// Package ir defines the abstract statement/expression tree produced by
// accessor synthesis. The tree is target-language neutral: emission
// backends turn it into concrete source text, the debug printer dumps it
// for inspection, and tests assert on its structure. Nodes contain only
// slices and values, never maps, so identical inputs build identical trees.
package ir

// Node is the base interface for all tree nodes
type Node interface {
	node()
}

// Expr is the interface for all expression nodes
type Expr interface {
	Node
	exprNode()
}

// Stmt is the interface for all statement nodes
type Stmt interface {
	Node
	stmtNode()
}

// TypeKind enumerates the abstract types accessors traffic in
type TypeKind int

const (
	// TypeInvalid marks an unset type reference
	TypeInvalid TypeKind = iota
	// TypeBool is the boolean type
	TypeBool
	// TypeInt32 is the signed 32-bit integer
	TypeInt32
	// TypeUint32 is the unsigned 32-bit integer
	TypeUint32
	// TypeInt64 is the signed 64-bit integer
	TypeInt64
	// TypeUint64 is the unsigned 64-bit integer
	TypeUint64
	// TypeFloat32 is the 32-bit float
	TypeFloat32
	// TypeFloat64 is the 64-bit float
	TypeFloat64
	// TypeString is the string type
	TypeString
	// TypeBytes is the byte-sequence type
	TypeBytes
	// TypeNamed references a message or merged enum by name
	TypeNamed
	// TypeRevisionTag is the revision discriminator type
	TypeRevisionTag
)

// String returns the abstract type name
func (k TypeKind) String() string {
	switch k {
	case TypeBool:
		return "bool"
	case TypeInt32:
		return "int32"
	case TypeUint32:
		return "uint32"
	case TypeInt64:
		return "int64"
	case TypeUint64:
		return "uint64"
	case TypeFloat32:
		return "float32"
	case TypeFloat64:
		return "float64"
	case TypeString:
		return "string"
	case TypeBytes:
		return "bytes"
	case TypeNamed:
		return "named"
	case TypeRevisionTag:
		return "revision"
	}
	return "invalid"
}

// TypeRef is an abstract type reference
type TypeRef struct {
	Kind TypeKind
	Name string // for TypeNamed
	// List marks a sequence of the element type
	List bool
	// Optional marks an absence-capable surface (nullable unified contract)
	Optional bool
}

// Role classifies what a synthesized function is for; emission backends and
// documentation generation key off it.
type Role int

const (
	// RoleReader is the unified read accessor
	RoleReader Role = iota
	// RoleEnumReader is the secondary merged-enum accessor of INT_ENUM fields
	RoleEnumReader
	// RoleWriter is the unified mutator
	RoleWriter
	// RoleEnumWriter is the merged-enum mutator of INT_ENUM fields
	RoleEnumWriter
	// RoleHas is the presence-check accessor
	RoleHas
	// RoleSupports reports whether the active revision carries the field
	RoleSupports
	// RoleEscape is a per-revision escape hatch returning the native value
	RoleEscape
	// RoleConstructor wraps one revision's payload into the unified value
	RoleConstructor
	// RoleTag returns the wrapped value's revision tag
	RoleTag
)

// String returns the role name used in dumps
func (r Role) String() string {
	switch r {
	case RoleReader:
		return "reader"
	case RoleEnumReader:
		return "enum_reader"
	case RoleWriter:
		return "writer"
	case RoleEnumWriter:
		return "enum_writer"
	case RoleHas:
		return "has"
	case RoleSupports:
		return "supports"
	case RoleEscape:
		return "escape"
	case RoleConstructor:
		return "constructor"
	case RoleTag:
		return "tag"
	}
	return "unknown"
}

// Param is one function parameter
type Param struct {
	Name string
	Type TypeRef
}

// Func is a synthesized accessor, mutator or constructor. Conflict and
// Field carry the originating merged-field metadata for documentation
// generation by emission backends.
type Func struct {
	Name    string
	Doc     string
	Recv    string // unified wrapper type the function belongs to
	Params  []Param
	Results []TypeRef
	Body    *Block

	Role     Role
	Field    string // canonical merged field name, "" for message-level funcs
	Conflict string // originating conflict kind name, "" when NONE
	Revision string // populated for escape hatches and constructors
}

func (f *Func) node() {}

// --- Expressions ---

// Ident references a local name (parameter or declared variable)
type Ident struct {
	Name string
}

func (e *Ident) node()     {}
func (e *Ident) exprNode() {}

// IntLit is a signed integer literal
type IntLit struct {
	Value int64
}

func (e *IntLit) node()     {}
func (e *IntLit) exprNode() {}

// UintLit is an unsigned integer literal
type UintLit struct {
	Value uint64
}

func (e *UintLit) node()     {}
func (e *UintLit) exprNode() {}

// FloatLit is a floating-point literal
type FloatLit struct {
	Value float64
}

func (e *FloatLit) node()     {}
func (e *FloatLit) exprNode() {}

// StringLit is a string literal
type StringLit struct {
	Value string
}

func (e *StringLit) node()     {}
func (e *StringLit) exprNode() {}

// BoolLit is a boolean literal
type BoolLit struct {
	Value bool
}

func (e *BoolLit) node()     {}
func (e *BoolLit) exprNode() {}

// AbsentLit is the absent/null value of an optional surface
type AbsentLit struct{}

func (e *AbsentLit) node()     {}
func (e *AbsentLit) exprNode() {}

// ZeroOf is the zero/empty value of a type: empty string, empty bytes,
// empty sequence, empty message instance, numeric zero.
type ZeroOf struct {
	Type TypeRef
}

func (e *ZeroOf) node()     {}
func (e *ZeroOf) exprNode() {}

// FirstEnumValue is the first declared constant of a merged enum
type FirstEnumValue struct {
	Enum string
}

func (e *FirstEnumValue) node()     {}
func (e *FirstEnumValue) exprNode() {}

// RevisionTag reads the wrapped value's stored revision tag. The tag is
// resolved once at construction time; accessors only ever read it.
type RevisionTag struct{}

func (e *RevisionTag) node()     {}
func (e *RevisionTag) exprNode() {}

// PayloadField reads one field from a specific revision's payload
type PayloadField struct {
	Revision string
	Field    string
}

func (e *PayloadField) node()     {}
func (e *PayloadField) exprNode() {}

// PayloadHas checks presence of one field on a specific revision's payload
type PayloadHas struct {
	Revision string
	Field    string
}

func (e *PayloadHas) node()     {}
func (e *PayloadHas) exprNode() {}

// Conv converts an expression to another abstract type (widening upcasts
// and checked narrowing stores).
type Conv struct {
	Type TypeRef
	X    Expr
}

func (e *Conv) node()     {}
func (e *Conv) exprNode() {}

// WrapList lifts a singular value into a one-element sequence
type WrapList struct {
	Elem TypeRef
	X    Expr
}

func (e *WrapList) node()     {}
func (e *WrapList) exprNode() {}

// EnumByNumber resolves a merged enum constant from its number
type EnumByNumber struct {
	Enum string
	X    Expr
}

func (e *EnumByNumber) node()     {}
func (e *EnumByNumber) exprNode() {}

// EnumNumber extracts the number of an enum value expression
type EnumNumber struct {
	X Expr
}

func (e *EnumNumber) node()     {}
func (e *EnumNumber) exprNode() {}

// Binary is a binary operation; Op is one of == != < <= > >= && ||
type Binary struct {
	Op string
	X  Expr
	Y  Expr
}

func (e *Binary) node()     {}
func (e *Binary) exprNode() {}

// Unary is a unary operation; Op is one of ! -
type Unary struct {
	Op string
	X  Expr
}

func (e *Unary) node()     {}
func (e *Unary) exprNode() {}

// Call invokes a runtime support function by qualified name
type Call struct {
	Fn   string
	Args []Expr
}

func (e *Call) node()     {}
func (e *Call) exprNode() {}

// Length is the element count of a sequence expression
type Length struct {
	X Expr
}

func (e *Length) node()     {}
func (e *Length) exprNode() {}

// Index reads one element of a sequence expression
type Index struct {
	X  Expr
	At Expr
}

func (e *Index) node()     {}
func (e *Index) exprNode() {}

// --- Statements ---

// Block is an ordered statement list
type Block struct {
	Stmts []Stmt
}

func (s *Block) node()     {}
func (s *Block) stmtNode() {}

// Add appends statements and returns the block for chaining during
// construction.
func (s *Block) Add(stmts ...Stmt) *Block {
	s.Stmts = append(s.Stmts, stmts...)
	return s
}

// Return exits the function with an optional value
type Return struct {
	Value Expr // nil for a bare return
}

func (s *Return) node()     {}
func (s *Return) stmtNode() {}

// VarDecl declares a local variable
type VarDecl struct {
	Name  string
	Type  TypeRef
	Value Expr
}

func (s *VarDecl) node()     {}
func (s *VarDecl) stmtNode() {}

// Assign stores a value into a target expression
type Assign struct {
	Target Expr
	Value  Expr
}

func (s *Assign) node()     {}
func (s *Assign) stmtNode() {}

// PayloadStore writes one field of a specific revision's payload
type PayloadStore struct {
	Revision string
	Field    string
	Value    Expr
}

func (s *PayloadStore) node()     {}
func (s *PayloadStore) stmtNode() {}

// If branches on a condition; Else may be nil, a *Block, or a nested *If
type If struct {
	Cond Expr
	Then *Block
	Else Stmt
}

func (s *If) node()     {}
func (s *If) stmtNode() {}

// Case is one arm of a revision switch
type Case struct {
	// Revisions are the tags this arm handles, in revision order
	Revisions []string
	Body      *Block
}

func (s *Case) node() {}

// Switch dispatches over the revision tag. Every accessor body is one
// switch; the default arm handles tags outside the revision set.
type Switch struct {
	Tag     Expr // always *RevisionTag in synthesized trees
	Cases   []*Case
	Default *Block
}

func (s *Switch) node()     {}
func (s *Switch) stmtNode() {}

// ErrorKind enumerates the typed runtime errors synthesized code can raise
type ErrorKind int

const (
	// ErrRange is a narrowing write outside the target revision's range
	ErrRange ErrorKind = iota
	// ErrUnsupportedField is a write to a field the revision does not carry
	ErrUnsupportedField
	// ErrWrongRevision is an escape hatch invoked on a foreign revision
	ErrWrongRevision
	// ErrCardinality is a sequence write that does not fit a singular field
	ErrCardinality
)

// String returns the error kind name used in dumps
func (k ErrorKind) String() string {
	switch k {
	case ErrRange:
		return "range"
	case ErrUnsupportedField:
		return "unsupported_field"
	case ErrWrongRevision:
		return "wrong_revision"
	case ErrCardinality:
		return "cardinality"
	}
	return "unknown"
}

// Raise aborts with a typed runtime error carrying enough context to name
// the field, the offending value and the violated bound at the call site.
type Raise struct {
	Kind     ErrorKind
	Field    string
	Revision string
	// Supported lists the carrying revisions for ErrUnsupportedField
	Supported []string
	// Value is the offending value for ErrRange/ErrCardinality
	Value Expr
	// Min and Max bound the representable range for ErrRange
	Min Expr
	Max Expr
}

func (s *Raise) node()     {}
func (s *Raise) stmtNode() {}

// ExprStmt evaluates an expression for effect
type ExprStmt struct {
	X Expr
}

func (s *ExprStmt) node()     {}
func (s *ExprStmt) stmtNode() {}
