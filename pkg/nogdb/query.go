package nogdb

import (
	"github.com/nogdb/nogdb/pkg/filter"
	"github.com/nogdb/nogdb/pkg/storage"
)

func (t *Transaction) propertyLookup(class *storage.ClassDef, rec *storage.Record) filter.PropertyLookup {
	return func(name string) (storage.Bytes, bool) {
		def, err := t.db.catalog.PropertyByName(class.ID, name)
		if err != nil {
			return storage.Bytes{}, false
		}
		v := rec.Get(def.ID)
		return v, !v.Empty()
	}
}

// Find scans every record of className matching gf, without descending
// into subclasses.
func (t *Transaction) Find(className string, gf filter.GraphFilter) (*ResultSet, error) {
	class, err := t.resolveClass(className)
	if err != nil {
		return nil, err
	}
	return t.scanClass(class, gf, 0)
}

// FindSubClassOf scans className and every one of its subclasses, matching
// gf against each record.
func (t *Transaction) FindSubClassOf(className string, gf filter.GraphFilter) (*ResultSet, error) {
	class, err := t.resolveClass(className)
	if err != nil {
		return nil, err
	}
	rs, err := t.scanClass(class, gf, 0)
	if err != nil {
		return nil, err
	}
	for _, sub := range t.db.catalog.SubClasses(class.ID) {
		subRS, err := t.scanClass(sub, gf, 0)
		if err != nil {
			return nil, err
		}
		rs.results = append(rs.results, subRS.results...)
	}
	return rs, nil
}

func (t *Transaction) scanClass(class *storage.ClassDef, gf filter.GraphFilter, depth int) (*ResultSet, error) {
	if !gf.AllowsClass(class.Name) {
		return &ResultSet{}, nil
	}
	tbl, err := t.classTable(class.ID)
	if err != nil {
		return nil, err
	}
	var out []Result
	err = storage.All(t.txn.KV(), tbl, func(position storage.PositionId, encoded []byte) error {
		rec, err := storage.DecodeRecord(encoded, true, class.Type == storage.ClassTypeEdge)
		if err != nil {
			return err
		}
		if gf.Filter.Matches(t.propertyLookup(class, rec)) {
			rid := storage.RecordID{ClassID: class.ID, PositionID: position}
			out = append(out, t.materialize(class, rid, rec, depth))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &ResultSet{results: out}, nil
}

// FindOutEdge finds the outgoing edges of vertex matching gf.
func (t *Transaction) FindOutEdge(vertex storage.RecordID, gf filter.GraphFilter) (*ResultSet, error) {
	return t.findAdjacent(vertex, gf, true)
}

// FindInEdge finds the incoming edges of vertex matching gf.
func (t *Transaction) FindInEdge(vertex storage.RecordID, gf filter.GraphFilter) (*ResultSet, error) {
	return t.findAdjacent(vertex, gf, false)
}

// FindEdge finds every edge (incoming and outgoing) touching vertex,
// matching gf.
func (t *Transaction) FindEdge(vertex storage.RecordID, gf filter.GraphFilter) (*ResultSet, error) {
	out, err := t.findAdjacent(vertex, gf, true)
	if err != nil {
		return nil, err
	}
	in, err := t.findAdjacent(vertex, gf, false)
	if err != nil {
		return nil, err
	}
	out.results = append(out.results, in.results...)
	return out, nil
}

func (t *Transaction) findAdjacent(vertex storage.RecordID, gf filter.GraphFilter, outgoing bool) (*ResultSet, error) {
	var neighbors []storage.Neighbor
	var err error
	if outgoing {
		neighbors, err = t.relations.Out(t.txn.KV(), vertex)
	} else {
		neighbors, err = t.relations.In(t.txn.KV(), vertex)
	}
	if err != nil {
		return nil, err
	}
	var out []Result
	for _, n := range neighbors {
		class, rec, err := t.loadRecord(n.Edge)
		if err != nil {
			return nil, err
		}
		if gf.Matches(class.Name, t.propertyLookup(class, rec)) {
			out = append(out, t.materialize(class, n.Edge, rec, 0))
		}
	}
	return &ResultSet{results: out}, nil
}

// ResultSet is a materialized, in-memory collection of query results,
// walked through a ResultSetCursor.
type ResultSet struct {
	results []Result
}

// Len returns the number of results.
func (rs *ResultSet) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.results)
}

// All returns every result.
func (rs *ResultSet) All() []Result {
	if rs == nil {
		return nil
	}
	return rs.results
}

// Cursor returns a fresh cursor over the result set.
func (rs *ResultSet) Cursor() *ResultSetCursor {
	return &ResultSetCursor{rs: rs, pos: -1}
}

// ResultSetCursor walks a ResultSet one record at a time, forward or
// backward, without materializing anything beyond what Find/Traverse
// already built into the underlying ResultSet.
type ResultSetCursor struct {
	rs  *ResultSet
	pos int
}

// Next advances the cursor, returning false once exhausted.
func (c *ResultSetCursor) Next() bool {
	c.pos++
	return c.pos < c.rs.Len()
}

// Prev moves the cursor backward, returning false once it runs before the
// first result.
func (c *ResultSetCursor) Prev() bool {
	c.pos--
	return c.pos >= 0
}

// First positions the cursor at the first result, returning false if the
// result set is empty.
func (c *ResultSetCursor) First() bool {
	if c.rs.Len() == 0 {
		c.pos = -1
		return false
	}
	c.pos = 0
	return true
}

// Last positions the cursor at the last result, returning false if the
// result set is empty.
func (c *ResultSetCursor) Last() bool {
	if c.rs.Len() == 0 {
		c.pos = -1
		return false
	}
	c.pos = c.rs.Len() - 1
	return true
}

// To positions the cursor at index i, returning false if i is out of
// range.
func (c *ResultSetCursor) To(i int) bool {
	if i < 0 || i >= c.rs.Len() {
		return false
	}
	c.pos = i
	return true
}

// Count returns the total number of results in the underlying set,
// independent of the cursor's current position.
func (c *ResultSetCursor) Count() int {
	return c.rs.Len()
}

// Current returns the result the cursor currently points to.
func (c *ResultSetCursor) Current() Result {
	return c.rs.results[c.pos]
}
