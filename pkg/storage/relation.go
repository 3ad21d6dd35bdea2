package storage

import (
	"github.com/nogdb/nogdb/pkg/kv"
)

// RelationIndex maintains the adjacency lists of the graph: for every
// vertex, the set of edges pointing in and the set of edges pointing out.
// Both directions are stored in dupsort tables keyed by the vertex's
// textual RecordID, valued by a fixed 12-byte (edge RecordID || neighbor
// RecordID) pair, so a single cursor walk over one key's duplicates yields
// every edge touching that vertex without a secondary lookup.
type RelationIndex struct {
	in, out *kv.Table
}

// OpenRelationIndex opens (creating if needed) the two dupsort sub-stores
// backing the relation index.
func OpenRelationIndex(txn *kv.Txn) (*RelationIndex, error) {
	in, err := txn.OpenTable(TableRelationsIn, kv.TableFlags{DupSort: true, Create: true})
	if err != nil {
		return nil, err
	}
	out, err := txn.OpenTable(TableRelationsOut, kv.TableFlags{DupSort: true, Create: true})
	if err != nil {
		return nil, err
	}
	return &RelationIndex{in: in, out: out}, nil
}

func relationValue(edge, neighbor RecordID) []byte {
	buf := make([]byte, 0, 12)
	buf = putRecordID(buf, edge)
	buf = putRecordID(buf, neighbor)
	return buf
}

func splitRelationValue(v []byte) (edge, neighbor RecordID) {
	return readRecordID(v[0:6]), readRecordID(v[6:12])
}

// AddEdge records edge as pointing from src to dst: an outgoing entry under
// src, and an incoming entry under dst.
func (r *RelationIndex) AddEdge(txn *kv.Txn, edge, src, dst RecordID) error {
	if err := txn.Put(r.out, []byte(src.String()), relationValue(edge, dst)); err != nil {
		return err
	}
	if err := txn.Put(r.in, []byte(dst.String()), relationValue(edge, src)); err != nil {
		return err
	}
	return nil
}

// RemoveEdge removes both the outgoing and incoming adjacency entries for
// edge. It cursor-seeks to the (vertex, value) pair and deletes exactly that
// duplicate — the non-cursor delete-by-value form is not implemented, since
// the original engine's own non-cursor remove does not work either (see
// DESIGN.md).
func (r *RelationIndex) RemoveEdge(txn *kv.Txn, edge, src, dst RecordID) error {
	if err := r.removeOne(txn, r.out, src, edge, dst); err != nil {
		return err
	}
	if err := r.removeOne(txn, r.in, dst, edge, src); err != nil {
		return err
	}
	return nil
}

func (r *RelationIndex) removeOne(txn *kv.Txn, tbl *kv.Table, vertex, edge, neighbor RecordID) error {
	cur, err := txn.Cursor(tbl)
	if err != nil {
		return err
	}
	defer cur.Close()
	want := relationValue(edge, neighbor)
	entry, ok, err := cur.SeekBothRange([]byte(vertex.String()), want)
	if err != nil {
		return err
	}
	if !ok || string(entry.Key) != vertex.String() || !bytesEqual(entry.Value, want) {
		return nil
	}
	return cur.DeleteCurrent()
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Neighbor pairs an edge's RecordID with the neighbor vertex it connects to.
type Neighbor struct {
	Edge     RecordID
	Neighbor RecordID
}

// Out returns every outgoing edge of vertex, in stored value order (by edge
// RecordID, then neighbor).
func (r *RelationIndex) Out(txn *kv.Txn, vertex RecordID) ([]Neighbor, error) {
	return r.scan(txn, r.out, vertex)
}

// In returns every incoming edge of vertex, in stored value order (by edge
// RecordID, then neighbor).
func (r *RelationIndex) In(txn *kv.Txn, vertex RecordID) ([]Neighbor, error) {
	return r.scan(txn, r.in, vertex)
}

func (r *RelationIndex) scan(txn *kv.Txn, tbl *kv.Table, vertex RecordID) ([]Neighbor, error) {
	cur, err := txn.Cursor(tbl)
	if err != nil {
		return nil, err
	}
	defer cur.Close()
	key := []byte(vertex.String())
	entry, ok, err := cur.SeekExact(key)
	if err != nil {
		return nil, err
	}
	var out []Neighbor
	for ok {
		edge, neighbor := splitRelationValue(entry.Value)
		out = append(out, Neighbor{Edge: edge, Neighbor: neighbor})
		entry, ok, err = cur.NextDup()
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// RemoveAllForVertex drops every adjacency entry (in both directions)
// recorded under vertex, used when the vertex itself is deleted.
func (r *RelationIndex) RemoveAllForVertex(txn *kv.Txn, vertex RecordID) error {
	for _, tbl := range []*kv.Table{r.in, r.out} {
		if err := txn.Delete(tbl, []byte(vertex.String()), nil); err != nil {
			return err
		}
	}
	return nil
}
