package filter

import (
	"testing"

	"github.com/nogdb/nogdb/pkg/storage"
	"github.com/stretchr/testify/assert"
)

func lookupFor(props map[string]storage.Bytes) PropertyLookup {
	return func(name string) (storage.Bytes, bool) {
		v, ok := props[name]
		return v, ok
	}
}

func TestEvaluateEqText(t *testing.T) {
	lookup := lookupFor(map[string]storage.Bytes{"name": storage.BytesFromText("alice")})
	assert.True(t, Evaluate(Eq("name", "alice"), lookup))
	assert.False(t, Evaluate(Eq("name", "bob"), lookup))
}

func TestEvaluateGtNumeric(t *testing.T) {
	lookup := lookupFor(map[string]storage.Bytes{"age": storage.BytesFromInt64(storage.PropertyTypeInteger, 30, 4)})
	assert.True(t, Evaluate(Gt("age", 18.0), lookup))
	assert.False(t, Evaluate(Gt("age", 40.0), lookup))
}

func TestEvaluateBetween(t *testing.T) {
	lookup := lookupFor(map[string]storage.Bytes{"age": storage.BytesFromInt64(storage.PropertyTypeInteger, 25, 4)})
	assert.True(t, Evaluate(BetweenCond("age", 18.0, 30.0), lookup))
	assert.False(t, Evaluate(BetweenCond("age", 26.0, 30.0), lookup))
}

func TestEvaluateAndOr(t *testing.T) {
	lookup := lookupFor(map[string]storage.Bytes{
		"name": storage.BytesFromText("alice"),
		"age":  storage.BytesFromInt64(storage.PropertyTypeInteger, 30, 4),
	})
	and := AndOf(Eq("name", "alice"), Gt("age", 18.0))
	assert.True(t, Evaluate(and, lookup))

	or := OrOf(Eq("name", "bob"), Gt("age", 18.0))
	assert.True(t, Evaluate(or, lookup))

	orFalse := OrOf(Eq("name", "bob"), Gt("age", 40.0))
	assert.False(t, Evaluate(orFalse, lookup))
}

func TestEvaluateNot(t *testing.T) {
	lookup := lookupFor(map[string]storage.Bytes{"name": storage.BytesFromText("alice")})
	cond := Eq("name", "alice")
	cond.Not = true
	assert.False(t, Evaluate(cond, lookup))
}

func TestEvaluateNullMissingProperty(t *testing.T) {
	lookup := lookupFor(map[string]storage.Bytes{})
	assert.True(t, Evaluate(Condition{Property: "missing", Comparator: Null}, lookup))
}

func TestEvaluateContainBeginEndWith(t *testing.T) {
	lookup := lookupFor(map[string]storage.Bytes{"name": storage.BytesFromText("alice smith")})
	assert.True(t, Evaluate(Condition{Property: "name", Comparator: Contain, Value: "smith"}, lookup))
	assert.True(t, Evaluate(Condition{Property: "name", Comparator: BeginWith, Value: "alice"}, lookup))
	assert.True(t, Evaluate(Condition{Property: "name", Comparator: EndWith, Value: "smith"}, lookup))
}

func TestEvaluateLike(t *testing.T) {
	lookup := lookupFor(map[string]storage.Bytes{"name": storage.BytesFromText("alice")})
	assert.True(t, Evaluate(Condition{Property: "name", Comparator: Like, Value: "al%e"}, lookup))
	assert.True(t, Evaluate(Condition{Property: "name", Comparator: Like, Value: "al_ce"}, lookup))
	assert.False(t, Evaluate(Condition{Property: "name", Comparator: Like, Value: "bob%"}, lookup))
}

func TestEvaluateIn(t *testing.T) {
	lookup := lookupFor(map[string]storage.Bytes{"name": storage.BytesFromText("bob")})
	cond := Condition{Property: "name", Comparator: In, Values: []interface{}{"alice", "bob"}}
	assert.True(t, Evaluate(cond, lookup))
}

func TestGraphFilterClassAllowDeny(t *testing.T) {
	gf := GraphFilter{ClassFilter: []string{"person", "company"}}
	assert.True(t, gf.AllowsClass("person"))
	assert.False(t, gf.AllowsClass("place"))

	gf2 := GraphFilter{ExcludeClass: []string{"company"}}
	assert.True(t, gf2.AllowsClass("person"))
	assert.False(t, gf2.AllowsClass("company"))
}

func TestFilterPredicateClosure(t *testing.T) {
	f := FromPredicate(func(lookup PropertyLookup) bool {
		v, ok := lookup("name")
		return ok && string(v.Data) == "alice"
	})
	lookup := lookupFor(map[string]storage.Bytes{"name": storage.BytesFromText("alice")})
	assert.True(t, f.Matches(lookup))
}
