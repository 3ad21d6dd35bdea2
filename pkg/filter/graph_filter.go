package filter

// Predicate is a raw closure-form filter, the alternative to a condition
// tree for callers who need logic the declarative Expr language can't
// express (§9 notes both forms are needed).
type Predicate func(lookup PropertyLookup) bool

// Filter is a sum type over the two ways a record can be filtered: a
// declarative condition tree, or a raw predicate closure. Exactly one of
// Expr or Predicate is set.
type Filter struct {
	Expr      Expr
	Predicate Predicate
}

// FromExpr wraps a condition tree as a Filter.
func FromExpr(e Expr) Filter {
	return Filter{Expr: e}
}

// FromPredicate wraps a closure as a Filter.
func FromPredicate(p Predicate) Filter {
	return Filter{Predicate: p}
}

// Matches evaluates whichever form f holds. An empty Filter (zero value)
// matches everything.
func (f Filter) Matches(lookup PropertyLookup) bool {
	if f.Predicate != nil {
		return f.Predicate(lookup)
	}
	if f.Expr != nil {
		return Evaluate(f.Expr, lookup)
	}
	return true
}

// GraphFilter narrows a traversal or scan to a set of classes in addition
// to a record-level Filter: ClassFilter (allow-list, empty means "any
// class") and ExcludeClass (deny-list, applied after the allow-list).
type GraphFilter struct {
	ClassFilter  []string
	ExcludeClass []string
	Filter       Filter
}

// AllowsClass reports whether className passes this filter's class
// allow/deny lists.
func (g GraphFilter) AllowsClass(className string) bool {
	for _, excluded := range g.ExcludeClass {
		if excluded == className {
			return false
		}
	}
	if len(g.ClassFilter) == 0 {
		return true
	}
	for _, allowed := range g.ClassFilter {
		if allowed == className {
			return true
		}
	}
	return false
}

// Matches reports whether a record of className, exposed through lookup,
// passes both the class filter and the record-level Filter.
func (g GraphFilter) Matches(className string, lookup PropertyLookup) bool {
	return g.AllowsClass(className) && g.Filter.Matches(lookup)
}
