package analyze

import (
	"strconv"
	"strings"

	"partial-generator/internal/common"
)

// String returns a readable Go-like rendering of the expression. Package
// qualifiers are shortened to their last path element.
func (e *TypeExpr) String() string {
	var sb strings.Builder
	e.write(&sb)

	return sb.String()
}

func (e *TypeExpr) write(sb *strings.Builder) {
	if e == nil {
		sb.WriteString("<nil>")
		return
	}

	switch e.Kind {
	case ExprLeaf:
		switch {
		case e.ID.Name != "":
			writeID(sb, e.ID)
		case e.GoType != nil:
			sb.WriteString(e.GoType.String())
		default:
			sb.WriteString("<leaf>")
		}
	case ExprParam:
		sb.WriteString(e.Param)
	case ExprNamed, ExprResult:
		writeID(sb, e.ID)

		args := e.Args
		if e.Kind == ExprResult {
			args = []*TypeExpr{e.Elem}
		}

		if len(args) > 0 {
			sb.WriteByte('[')

			for i, a := range args {
				if i > 0 {
					sb.WriteString(", ")
				}

				a.write(sb)
			}

			sb.WriteByte(']')
		}
	case ExprPointer, ExprNullable:
		sb.WriteByte('*')
		e.Elem.write(sb)
	case ExprSlice:
		sb.WriteString("[]")
		e.Elem.write(sb)
	case ExprArray:
		sb.WriteString("[" + strconv.FormatInt(e.Len, 10) + "]")
		e.Elem.write(sb)
	case ExprSet:
		sb.WriteString("map[")
		e.Key.write(sb)
		sb.WriteString("]struct{}")
	case ExprMap:
		sb.WriteString("map[")
		e.Key.write(sb)
		sb.WriteByte(']')
		e.Elem.write(sb)
	default:
		sb.WriteString(common.UnknownStr)
	}
}

func writeID(sb *strings.Builder, id TypeID) {
	if alias := common.PkgAlias(id.PkgPath); alias != "" {
		sb.WriteString(alias)
		sb.WriteByte('.')
	}

	sb.WriteString(id.Name)
}

// Equal reports whether two expressions have the same shape and name the
// same types.
func (e *TypeExpr) Equal(other *TypeExpr) bool {
	if e == nil || other == nil {
		return e == other
	}

	if e.Kind != other.Kind || e.ID != other.ID || e.Param != other.Param || e.Len != other.Len {
		return false
	}

	if e.Kind == ExprLeaf && e.ID.Name == "" {
		return e.String() == other.String()
	}

	if len(e.Args) != len(other.Args) {
		return false
	}

	for i := range e.Args {
		if !e.Args[i].Equal(other.Args[i]) {
			return false
		}
	}

	return e.Elem.Equal(other.Elem) && e.Key.Equal(other.Key)
}

// Walk calls fn for e and every expression nested in it, outermost first.
func (e *TypeExpr) Walk(fn func(*TypeExpr)) {
	if e == nil {
		return
	}

	fn(e)

	for _, a := range e.Args {
		a.Walk(fn)
	}

	e.Key.Walk(fn)
	e.Elem.Walk(fn)
}
