package ir

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Walk traverses the tree rooted at n in depth-first order, calling fn for
// each node. Children are skipped when fn returns false.
func Walk(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	switch x := n.(type) {
	case *Func:
		if x.Body != nil {
			Walk(x.Body, fn)
		}
	case *Block:
		for _, s := range x.Stmts {
			Walk(s, fn)
		}
	case *Return:
		if x.Value != nil {
			Walk(x.Value, fn)
		}
	case *VarDecl:
		if x.Value != nil {
			Walk(x.Value, fn)
		}
	case *Assign:
		Walk(x.Target, fn)
		Walk(x.Value, fn)
	case *PayloadStore:
		Walk(x.Value, fn)
	case *If:
		Walk(x.Cond, fn)
		if x.Then != nil {
			Walk(x.Then, fn)
		}
		if x.Else != nil {
			Walk(x.Else, fn)
		}
	case *Switch:
		Walk(x.Tag, fn)
		for _, c := range x.Cases {
			Walk(c, fn)
		}
		if x.Default != nil {
			Walk(x.Default, fn)
		}
	case *Case:
		if x.Body != nil {
			Walk(x.Body, fn)
		}
	case *Raise:
		if x.Value != nil {
			Walk(x.Value, fn)
		}
		if x.Min != nil {
			Walk(x.Min, fn)
		}
		if x.Max != nil {
			Walk(x.Max, fn)
		}
	case *ExprStmt:
		Walk(x.X, fn)
	case *Conv:
		Walk(x.X, fn)
	case *WrapList:
		Walk(x.X, fn)
	case *EnumByNumber:
		Walk(x.X, fn)
	case *EnumNumber:
		Walk(x.X, fn)
	case *Binary:
		Walk(x.X, fn)
		Walk(x.Y, fn)
	case *Unary:
		Walk(x.X, fn)
	case *Call:
		for _, a := range x.Args {
			Walk(a, fn)
		}
	case *Length:
		Walk(x.X, fn)
	case *Index:
		Walk(x.X, fn)
		Walk(x.At, fn)
	}
}

// String renders the type reference the way dumps and documentation show it
func (t TypeRef) String() string {
	base := t.Kind.String()
	if t.Kind == TypeNamed {
		base = t.Name
	}
	if t.List {
		base = "list<" + base + ">"
	}
	if t.Optional {
		base = "optional<" + base + ">"
	}
	return base
}

// Fprint writes a deterministic s-expression dump of the tree to w. The
// dump exists for the debug surface and for golden tests; it is not an
// emission format.
func Fprint(w io.Writer, n Node) error {
	p := &printer{w: w}
	p.print(n, 0)
	return p.err
}

// Sprint returns the Fprint dump as a string
func Sprint(n Node) string {
	var b strings.Builder
	Fprint(&b, n)
	return b.String()
}

type printer struct {
	w   io.Writer
	err error
}

func (p *printer) writef(depth int, format string, args ...interface{}) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, "%s"+format+"\n", append([]interface{}{strings.Repeat("  ", depth)}, args...)...)
}

func (p *printer) print(n Node, depth int) {
	if n == nil {
		p.writef(depth, "(nil)")
		return
	}
	switch x := n.(type) {
	case *Func:
		p.writef(depth, "(func %s.%s role=%s field=%q conflict=%q %s -> %s", x.Recv, x.Name, x.Role, x.Field, x.Conflict, paramList(x.Params), resultList(x.Results))
		if x.Body != nil {
			p.print(x.Body, depth+1)
		}
		p.writef(depth, ")")
	case *Block:
		p.writef(depth, "(block")
		for _, s := range x.Stmts {
			p.print(s, depth+1)
		}
		p.writef(depth, ")")
	case *Return:
		if x.Value == nil {
			p.writef(depth, "(return)")
			return
		}
		p.writef(depth, "(return %s)", exprString(x.Value))
	case *VarDecl:
		p.writef(depth, "(var %s %s = %s)", x.Name, x.Type, exprString(x.Value))
	case *Assign:
		p.writef(depth, "(assign %s = %s)", exprString(x.Target), exprString(x.Value))
	case *PayloadStore:
		p.writef(depth, "(store %s.%s = %s)", x.Revision, x.Field, exprString(x.Value))
	case *If:
		p.writef(depth, "(if %s", exprString(x.Cond))
		p.print(x.Then, depth+1)
		if x.Else != nil {
			p.writef(depth, " else")
			p.print(x.Else, depth+1)
		}
		p.writef(depth, ")")
	case *Switch:
		p.writef(depth, "(switch %s", exprString(x.Tag))
		for _, c := range x.Cases {
			p.print(c, depth+1)
		}
		if x.Default != nil {
			p.writef(depth+1, "(default")
			p.print(x.Default, depth+2)
			p.writef(depth+1, ")")
		}
		p.writef(depth, ")")
	case *Case:
		p.writef(depth, "(case %s", strings.Join(x.Revisions, " "))
		p.print(x.Body, depth+1)
		p.writef(depth, ")")
	case *Raise:
		p.writef(depth, "(raise %s %s)", x.Kind, raiseDetail(x))
	case *ExprStmt:
		p.writef(depth, "(expr %s)", exprString(x.X))
	default:
		p.writef(depth, "%s", exprString(n))
	}
}

func raiseDetail(r *Raise) string {
	parts := []string{"field=" + strconv.Quote(r.Field)}
	if r.Revision != "" {
		parts = append(parts, "revision="+r.Revision)
	}
	if len(r.Supported) > 0 {
		parts = append(parts, "supported=["+strings.Join(r.Supported, " ")+"]")
	}
	if r.Value != nil {
		parts = append(parts, "value="+exprString(r.Value))
	}
	if r.Min != nil {
		parts = append(parts, "min="+exprString(r.Min))
	}
	if r.Max != nil {
		parts = append(parts, "max="+exprString(r.Max))
	}
	return strings.Join(parts, " ")
}

func paramList(params []Param) string {
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = p.Name + " " + p.Type.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func resultList(results []TypeRef) string {
	parts := make([]string, len(results))
	for i, r := range results {
		parts[i] = r.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func exprString(e Node) string {
	switch x := e.(type) {
	case nil:
		return "nil"
	case *Ident:
		return x.Name
	case *IntLit:
		return strconv.FormatInt(x.Value, 10)
	case *UintLit:
		return strconv.FormatUint(x.Value, 10) + "u"
	case *FloatLit:
		return strconv.FormatFloat(x.Value, 'g', -1, 64)
	case *StringLit:
		return strconv.Quote(x.Value)
	case *BoolLit:
		return strconv.FormatBool(x.Value)
	case *AbsentLit:
		return "absent"
	case *ZeroOf:
		return "(zero " + x.Type.String() + ")"
	case *FirstEnumValue:
		return "(first-enum " + x.Enum + ")"
	case *RevisionTag:
		return "(tag)"
	case *PayloadField:
		return "(payload " + x.Revision + "." + x.Field + ")"
	case *PayloadHas:
		return "(has " + x.Revision + "." + x.Field + ")"
	case *Conv:
		return "(conv " + x.Type.String() + " " + exprString(x.X) + ")"
	case *WrapList:
		return "(wrap-list " + x.Elem.String() + " " + exprString(x.X) + ")"
	case *EnumByNumber:
		return "(enum-by-number " + x.Enum + " " + exprString(x.X) + ")"
	case *EnumNumber:
		return "(enum-number " + exprString(x.X) + ")"
	case *Binary:
		return "(" + x.Op + " " + exprString(x.X) + " " + exprString(x.Y) + ")"
	case *Unary:
		return "(" + x.Op + " " + exprString(x.X) + ")"
	case *Call:
		parts := make([]string, len(x.Args))
		for i, a := range x.Args {
			parts[i] = exprString(a)
		}
		return "(call " + x.Fn + " " + strings.Join(parts, " ") + ")"
	case *Length:
		return "(len " + exprString(x.X) + ")"
	case *Index:
		return "(index " + exprString(x.X) + " " + exprString(x.At) + ")"
	}
	return fmt.Sprintf("(unknown %T)", e)
}
