package dsl

import (
	"path"
	"strconv"
)

// Evaluate runs the compiled filter against a flattened tag map.
func Evaluate(ast *Ast, tags map[string]string) bool {
	switch ast.Kind {
	case KindTrue:
		return true
	case KindTagExists:
		_, ok := tags[ast.Key]
		if ast.Negated {
			return !ok
		}
		return ok
	case KindTagMatch:
		v, ok := tags[ast.Key]
		if !ok {
			return false
		}
		for _, alt := range ast.Values {
			if matchValue(alt, v) {
				return true
			}
		}
		return false
	case KindNumericCompare:
		v, ok := tags[ast.Key]
		if !ok {
			return false
		}
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return false
		}
		return compare(ast.Op, n, ast.Number)
	case KindAnd:
		for _, c := range ast.Children {
			if !Evaluate(c, tags) {
				return false
			}
		}
		return true
	case KindOr:
		for _, c := range ast.Children {
			if Evaluate(c, tags) {
				return true
			}
		}
		return false
	case KindNot:
		return !Evaluate(ast.Children[0], tags)
	default:
		return false
	}
}

func matchValue(v Value, actual string) bool {
	switch v.Kind {
	case ValueAny:
		return true
	case ValueExact:
		return v.Pattern == actual
	case ValueGlob:
		ok, err := path.Match(v.Pattern, actual)
		return err == nil && ok
	default:
		return false
	}
}

func compare(op CompareOp, a, b float64) bool {
	switch op {
	case OpEq:
		return a == b
	case OpNe:
		return a != b
	case OpLt:
		return a < b
	case OpLe:
		return a <= b
	case OpGt:
		return a > b
	case OpGe:
		return a >= b
	default:
		return false
	}
}
