// Package filter implements NogDB's query-time condition tree and the
// evaluator that matches it against a decoded record: the predicate
// language that backs find/findInEdge/findOutEdge/traverse filtering.
package filter

import (
	"strconv"
	"strings"

	"github.com/nogdb/nogdb/pkg/convert"
	"github.com/nogdb/nogdb/pkg/storage"
)

// Comparator names the comparison a leaf Condition performs.
type Comparator int

const (
	EQ Comparator = iota
	GT
	GE
	LT
	LE
	Contain
	BeginWith
	EndWith
	Like
	Between
	In
	Null
)

// Condition is a single leaf predicate: propertyName OP value(s).
type Condition struct {
	Property   string
	Comparator Comparator
	Value      interface{}   // used by EQ/GT/GE/LT/LE/Contain/BeginWith/EndWith/Like
	Values     []interface{} // used by In
	Low, High  interface{}   // used by Between
	IgnoreCase bool
	Not        bool
}

// Eq builds an EQ condition.
func Eq(property string, value interface{}) Condition {
	return Condition{Property: property, Comparator: EQ, Value: value}
}

// Gt builds a GT condition.
func Gt(property string, value interface{}) Condition {
	return Condition{Property: property, Comparator: GT, Value: value}
}

// BetweenCond builds a BETWEEN condition.
func BetweenCond(property string, low, high interface{}) Condition {
	return Condition{Property: property, Comparator: Between, Low: low, High: high}
}

// LogicOp names how a MultiCondition combines its children.
type LogicOp int

const (
	And LogicOp = iota
	Or
)

// Expr is a node in the condition tree: either a leaf Condition or a
// MultiCondition combining child Exprs.
type Expr interface {
	isExpr()
}

func (Condition) isExpr() {}

// MultiCondition combines child expressions with AND/OR.
type MultiCondition struct {
	Op       LogicOp
	Children []Expr
}

func (MultiCondition) isExpr() {}

// AndOf builds a conjunction of the given expressions.
func AndOf(children ...Expr) MultiCondition {
	return MultiCondition{Op: And, Children: children}
}

// OrOf builds a disjunction of the given expressions.
func OrOf(children ...Expr) MultiCondition {
	return MultiCondition{Op: Or, Children: children}
}

// PropertyLookup resolves a property name to its stored Bytes value for one
// record, the only thing the evaluator needs from the caller's schema/record
// layer.
type PropertyLookup func(name string) (storage.Bytes, bool)

// Evaluate reports whether expr matches the record exposed through lookup.
func Evaluate(expr Expr, lookup PropertyLookup) bool {
	switch e := expr.(type) {
	case Condition:
		return evalCondition(e, lookup)
	case MultiCondition:
		switch e.Op {
		case And:
			for _, c := range e.Children {
				if !Evaluate(c, lookup) {
					return false
				}
			}
			return true
		case Or:
			for _, c := range e.Children {
				if Evaluate(c, lookup) {
					return true
				}
			}
			return false
		}
	}
	return false
}

func evalCondition(c Condition, lookup PropertyLookup) bool {
	b, ok := lookup(c.Property)
	result := evalRaw(c, b, ok)
	if c.Not {
		return !result
	}
	return result
}

func evalRaw(c Condition, b storage.Bytes, present bool) bool {
	if c.Comparator == Null {
		return !present || b.Empty()
	}
	if !present || b.Empty() {
		return false
	}
	switch c.Comparator {
	case EQ:
		return compareEqual(c, b)
	case GT, GE, LT, LE, Between:
		return compareOrdered(c, b)
	case Contain, BeginWith, EndWith, Like:
		return compareText(c, b)
	case In:
		for _, v := range c.Values {
			if compareEqual(Condition{Value: v, IgnoreCase: c.IgnoreCase}, b) {
				return true
			}
		}
		return false
	}
	return false
}

func valueAsText(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	default:
		return toComparableString(v)
	}
}

func toComparableString(v interface{}) string {
	switch t := v.(type) {
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	default:
		return ""
	}
}

func compareEqual(c Condition, b storage.Bytes) bool {
	if b.Type == storage.PropertyTypeText {
		want := valueAsText(c.Value)
		got := convert.ToText(b)
		if c.IgnoreCase {
			return strings.EqualFold(want, got)
		}
		return want == got
	}
	if isNumericType(b.Type) {
		got, err := numericValue(b)
		if err != nil {
			return false
		}
		want, ok := convert.ToFloat64(c.Value)
		return ok && want == got
	}
	return false
}

func isNumericType(t storage.PropertyType) bool {
	switch t {
	case storage.PropertyTypeTinyInt, storage.PropertyTypeTinyIntU,
		storage.PropertyTypeSmallInt, storage.PropertyTypeSmallIntU,
		storage.PropertyTypeInteger, storage.PropertyTypeIntegerU,
		storage.PropertyTypeBigInt, storage.PropertyTypeBigIntU,
		storage.PropertyTypeReal:
		return true
	}
	return false
}

func numericValue(b storage.Bytes) (float64, error) {
	if b.Type == storage.PropertyTypeReal {
		return convert.ToReal(b)
	}
	switch b.Type {
	case storage.PropertyTypeTinyIntU, storage.PropertyTypeSmallIntU,
		storage.PropertyTypeIntegerU, storage.PropertyTypeBigIntU:
		v, err := convert.ToIntU(b)
		return float64(v), err
	default:
		v, err := convert.ToInt(b)
		return float64(v), err
	}
}

func compareOrdered(c Condition, b storage.Bytes) bool {
	got, err := numericValue(b)
	if err != nil {
		return false
	}
	switch c.Comparator {
	case GT:
		want, ok := convert.ToFloat64(c.Value)
		return ok && got > want
	case GE:
		want, ok := convert.ToFloat64(c.Value)
		return ok && got >= want
	case LT:
		want, ok := convert.ToFloat64(c.Value)
		return ok && got < want
	case LE:
		want, ok := convert.ToFloat64(c.Value)
		return ok && got <= want
	case Between:
		low, lok := convert.ToFloat64(c.Low)
		high, hok := convert.ToFloat64(c.High)
		return lok && hok && got >= low && got <= high
	}
	return false
}

func compareText(c Condition, b storage.Bytes) bool {
	got := convert.ToText(b)
	want := valueAsText(c.Value)
	if c.IgnoreCase {
		got = strings.ToLower(got)
		want = strings.ToLower(want)
	}
	switch c.Comparator {
	case Contain:
		return strings.Contains(got, want)
	case BeginWith:
		return strings.HasPrefix(got, want)
	case EndWith:
		return strings.HasSuffix(got, want)
	case Like:
		return likeMatch(got, want)
	}
	return false
}

// likeMatch implements SQL-style LIKE matching with % (any run) and _ (any
// single char) wildcards.
func likeMatch(s, pattern string) bool {
	return likeMatchRunes([]rune(s), []rune(pattern))
}

func likeMatchRunes(s, p []rune) bool {
	if len(p) == 0 {
		return len(s) == 0
	}
	if p[0] == '%' {
		if likeMatchRunes(s, p[1:]) {
			return true
		}
		for i := range s {
			if likeMatchRunes(s[i+1:], p[1:]) {
				return true
			}
		}
		return false
	}
	if len(s) == 0 {
		return false
	}
	if p[0] == '_' || p[0] == s[0] {
		return likeMatchRunes(s[1:], p[1:])
	}
	return false
}
