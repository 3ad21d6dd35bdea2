package nogdb

import (
	"context"
	"fmt"

	"github.com/nogdb/nogdb/pkg/kv"
	"github.com/nogdb/nogdb/pkg/storage"
)

// Transaction scopes every graph operation — including schema mutation —
// to one MVCC snapshot (read-only) or one buffered set of writes
// (read-write), mirroring the treatment of schema changes as regular
// transaction content.
type Transaction struct {
	db          *Database
	txn         *storage.Txn
	relations   *storage.RelationIndex
	tables      map[storage.ClassId]*kv.Table
	schemaDirty bool
}

// Commit finalizes the transaction's writes. If the transaction declared
// or dropped any class, property or index, the catalog's full state is
// persisted to the .classes/.properties/.indexes tables within the same
// underlying kv transaction, so the schema change becomes durable and
// visible to later transactions at exactly the same snapshot boundary as
// the transaction's other writes.
func (t *Transaction) Commit() error {
	if t.schemaDirty {
		if err := t.db.catalog.Persist(t.txn.KV(), t.db.classesTbl, t.db.propsTbl, t.db.indexesTbl); err != nil {
			return err
		}
	}
	return t.txn.Commit()
}

// Rollback discards the transaction's writes. If the transaction mutated
// the schema, the in-memory catalog — a single cache shared by every
// transaction — is rebuilt from disk to discard those uncommitted
// mutations, since they were applied eagerly for the other transaction
// methods built on top of it to see them mid-transaction.
func (t *Transaction) Rollback() error {
	err := t.txn.Rollback()
	if t.schemaDirty {
		if reloadErr := t.db.reloadCatalog(context.Background()); err == nil {
			err = reloadErr
		}
	}
	return err
}

// AddClass declares a new schema class as part of this write transaction.
func (t *Transaction) AddClass(name string, typ storage.ClassType, superClass storage.ClassId) (*storage.ClassDef, error) {
	if !t.txn.Writable {
		return nil, fmt.Errorf("%w: transaction is read-only", storage.ErrTxnInvalid)
	}
	def, err := t.db.catalog.AddClass(name, typ, superClass)
	if err != nil {
		return nil, err
	}
	t.schemaDirty = true
	return def, nil
}

// AddProperty declares a new property on class as part of this write
// transaction.
func (t *Transaction) AddProperty(class storage.ClassId, name string, typ storage.PropertyType) (*storage.PropertyDef, error) {
	if !t.txn.Writable {
		return nil, fmt.Errorf("%w: transaction is read-only", storage.ErrTxnInvalid)
	}
	def, err := t.db.catalog.AddProperty(class, name, typ)
	if err != nil {
		return nil, err
	}
	t.schemaDirty = true
	return def, nil
}

// AddIndex declares a new property index as part of this write transaction.
func (t *Transaction) AddIndex(class storage.ClassId, property storage.PropertyId, name string, unique bool) (*storage.IndexDef, error) {
	if !t.txn.Writable {
		return nil, fmt.Errorf("%w: transaction is read-only", storage.ErrTxnInvalid)
	}
	def, err := t.db.catalog.AddIndex(class, property, name, unique)
	if err != nil {
		return nil, err
	}
	t.schemaDirty = true
	return def, nil
}

// DropClass removes a schema class as part of this write transaction.
func (t *Transaction) DropClass(id storage.ClassId) error {
	if !t.txn.Writable {
		return fmt.Errorf("%w: transaction is read-only", storage.ErrTxnInvalid)
	}
	if err := t.db.catalog.DropClass(id); err != nil {
		return err
	}
	t.schemaDirty = true
	return nil
}

// DropIndex removes a property index as part of this write transaction.
func (t *Transaction) DropIndex(id storage.IndexId) error {
	if !t.txn.Writable {
		return fmt.Errorf("%w: transaction is read-only", storage.ErrTxnInvalid)
	}
	if err := t.db.catalog.DropIndex(id); err != nil {
		return err
	}
	t.schemaDirty = true
	return nil
}

func (t *Transaction) classTable(class storage.ClassId) (*kv.Table, error) {
	if tbl, ok := t.tables[class]; ok {
		return tbl, nil
	}
	tbl, err := storage.OpenClassTable(t.txn.KV(), class)
	if err != nil {
		return nil, err
	}
	t.tables[class] = tbl
	return tbl, nil
}

// PropertyValues maps property names to already-typed storage.Bytes values,
// the unit AddVertex/AddEdge/Update accept.
type PropertyValues map[string]storage.Bytes

func (t *Transaction) resolveClass(className string) (*storage.ClassDef, error) {
	return t.db.catalog.ClassByName(className)
}

func (t *Transaction) buildRecord(class *storage.ClassDef, props PropertyValues) (*storage.Record, error) {
	rec := storage.NewRecord()
	for name, v := range props {
		def, err := t.db.catalog.PropertyByName(class.ID, name)
		if err != nil {
			return nil, err
		}
		rec.Set(def.ID, v)
	}
	return rec, nil
}

func (t *Transaction) putRecord(class *storage.ClassDef, rec *storage.Record, withSrcDst bool) (storage.RecordID, error) {
	if !t.txn.Writable {
		return storage.RecordID{}, fmt.Errorf("%w: transaction is read-only", storage.ErrTxnInvalid)
	}
	tbl, err := t.classTable(class.ID)
	if err != nil {
		return storage.RecordID{}, err
	}
	position := t.db.data.NextPosition(class.ID)
	rec.Version = t.txn.Version()
	encoded := rec.Encode(true, withSrcDst)
	if err := storage.Put(t.txn.KV(), tbl, position, encoded); err != nil {
		return storage.RecordID{}, err
	}
	return storage.RecordID{ClassID: class.ID, PositionID: position}, nil
}

// AddVertex creates a new vertex of className with the given properties.
func (t *Transaction) AddVertex(className string, props PropertyValues) (storage.RecordID, error) {
	class, err := t.resolveClass(className)
	if err != nil {
		return storage.RecordID{}, err
	}
	if class.Type != storage.ClassTypeVertex {
		return storage.RecordID{}, fmt.Errorf("%w: class %q is not a vertex class", storage.ErrInvalidClassName, className)
	}
	rec, err := t.buildRecord(class, props)
	if err != nil {
		return storage.RecordID{}, err
	}
	return t.putRecord(class, rec, false)
}

// AddEdge creates a new edge of className from src to dst, registering it
// in the relation/adjacency index in both directions.
func (t *Transaction) AddEdge(className string, src, dst storage.RecordID, props PropertyValues) (storage.RecordID, error) {
	class, err := t.resolveClass(className)
	if err != nil {
		return storage.RecordID{}, err
	}
	if class.Type != storage.ClassTypeEdge {
		return storage.RecordID{}, fmt.Errorf("%w: class %q is not an edge class", storage.ErrInvalidClassName, className)
	}
	if _, err := t.FetchRecord(src); err != nil {
		return storage.RecordID{}, fmt.Errorf("%w: source vertex", storage.ErrNoExistVertex)
	}
	if _, err := t.FetchRecord(dst); err != nil {
		return storage.RecordID{}, fmt.Errorf("%w: destination vertex", storage.ErrNoExistVertex)
	}
	rec, err := t.buildRecord(class, props)
	if err != nil {
		return storage.RecordID{}, err
	}
	rec.SetSrcDst(src, dst)
	edgeID, err := t.putRecord(class, rec, true)
	if err != nil {
		return storage.RecordID{}, err
	}
	if err := t.relations.AddEdge(t.txn.KV(), edgeID, src, dst); err != nil {
		return storage.RecordID{}, err
	}
	return edgeID, nil
}

func (t *Transaction) loadRecord(rid storage.RecordID) (*storage.ClassDef, *storage.Record, error) {
	class, err := t.db.catalog.ClassByID(rid.ClassID)
	if err != nil {
		return nil, nil, err
	}
	tbl, err := t.classTable(rid.ClassID)
	if err != nil {
		return nil, nil, err
	}
	encoded, ok, err := storage.Get(t.txn.KV(), tbl, rid.PositionID)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		if class.Type == storage.ClassTypeEdge {
			return nil, nil, storage.ErrNoExistEdge
		}
		return nil, nil, storage.ErrNoExistVertex
	}
	rec, err := storage.DecodeRecord(encoded, true, class.Type == storage.ClassTypeEdge)
	if err != nil {
		return nil, nil, err
	}
	return class, rec, nil
}

// Update replaces props on the record at rid, leaving unspecified properties
// untouched and stamping a new version.
func (t *Transaction) Update(rid storage.RecordID, props PropertyValues) error {
	if !t.txn.Writable {
		return fmt.Errorf("%w: transaction is read-only", storage.ErrTxnInvalid)
	}
	class, rec, err := t.loadRecord(rid)
	if err != nil {
		return err
	}
	for name, v := range props {
		def, err := t.db.catalog.PropertyByName(class.ID, name)
		if err != nil {
			return err
		}
		rec.Set(def.ID, v)
	}
	rec.Version = t.txn.Version()
	tbl, err := t.classTable(class.ID)
	if err != nil {
		return err
	}
	return storage.Put(t.txn.KV(), tbl, rid.PositionID, rec.Encode(true, class.Type == storage.ClassTypeEdge))
}

// UpdateSrc re-points an edge's source endpoint, updating the relation
// index accordingly.
func (t *Transaction) UpdateSrc(edge storage.RecordID, newSrc storage.RecordID) error {
	return t.updateEndpoint(edge, &newSrc, nil)
}

// UpdateDst re-points an edge's destination endpoint, updating the relation
// index accordingly.
func (t *Transaction) UpdateDst(edge storage.RecordID, newDst storage.RecordID) error {
	return t.updateEndpoint(edge, nil, &newDst)
}

func (t *Transaction) updateEndpoint(edge storage.RecordID, newSrc, newDst *storage.RecordID) error {
	if !t.txn.Writable {
		return fmt.Errorf("%w: transaction is read-only", storage.ErrTxnInvalid)
	}
	class, err := t.db.catalog.ClassByID(edge.ClassID)
	if err != nil {
		return err
	}
	if class.Type != storage.ClassTypeEdge {
		return fmt.Errorf("%w: class %q is not an edge class", storage.ErrInvalidClassName, class.Name)
	}
	tbl, err := t.classTable(class.ID)
	if err != nil {
		return err
	}
	encoded, ok, err := storage.Get(t.txn.KV(), tbl, edge.PositionID)
	if err != nil {
		return err
	}
	if !ok {
		return storage.ErrNoExistEdge
	}
	rec, err := storage.DecodeRecord(encoded, true, true)
	if err != nil {
		return err
	}
	oldSrc, oldDst := rec.Src, rec.Dst
	if err := t.relations.RemoveEdge(t.txn.KV(), edge, oldSrc, oldDst); err != nil {
		return err
	}
	newSrcVal, newDstVal := oldSrc, oldDst
	if newSrc != nil {
		newSrcVal = *newSrc
	}
	if newDst != nil {
		newDstVal = *newDst
	}
	patched := storage.PatchSrcDst(encoded, newSrcVal, newDstVal)
	patched = storage.PatchVersion(patched, t.txn.Version())
	if err := storage.Put(t.txn.KV(), tbl, edge.PositionID, patched); err != nil {
		return err
	}
	return t.relations.AddEdge(t.txn.KV(), edge, newSrcVal, newDstVal)
}

// Remove deletes the record at rid. For an edge, both adjacency entries
// (under its source and destination) are dropped. For a vertex, every
// edge incident to it is fully removed first: each edge's own record is
// deleted and its reciprocal adjacency entry under the far endpoint is
// cleared, before the vertex's own in/out entries and record are dropped
// — leaving no dangling adjacency entries and no orphaned edge records,
// per the atomic-removal invariant on vertex deletion.
func (t *Transaction) Remove(rid storage.RecordID) error {
	if !t.txn.Writable {
		return fmt.Errorf("%w: transaction is read-only", storage.ErrTxnInvalid)
	}
	class, rec, err := t.loadRecord(rid)
	if err != nil {
		return err
	}
	tbl, err := t.classTable(class.ID)
	if err != nil {
		return err
	}
	if class.Type == storage.ClassTypeEdge {
		if err := t.relations.RemoveEdge(t.txn.KV(), rid, rec.Src, rec.Dst); err != nil {
			return err
		}
	} else {
		if err := t.removeIncidentEdges(rid); err != nil {
			return err
		}
		if err := t.relations.RemoveAllForVertex(t.txn.KV(), rid); err != nil {
			return err
		}
	}
	return storage.Delete(t.txn.KV(), tbl, rid.PositionID)
}

// removeIncidentEdges deletes every edge touching vertex — both its own
// record and the reciprocal adjacency entry recorded under the far
// endpoint — without touching vertex's own in/out entries, which the
// caller clears separately. A self-loop (an edge whose src and dst are
// both vertex) appears in both Out and In; the seen set makes sure it is
// removed only once.
func (t *Transaction) removeIncidentEdges(vertex storage.RecordID) error {
	out, err := t.relations.Out(t.txn.KV(), vertex)
	if err != nil {
		return err
	}
	in, err := t.relations.In(t.txn.KV(), vertex)
	if err != nil {
		return err
	}
	seen := make(map[storage.RecordID]bool, len(out)+len(in))
	remove := func(edge, other storage.RecordID, vertexIsSrc bool) error {
		if seen[edge] {
			return nil
		}
		seen[edge] = true
		src, dst := other, vertex
		if vertexIsSrc {
			src, dst = vertex, other
		}
		if err := t.relations.RemoveEdge(t.txn.KV(), edge, src, dst); err != nil {
			return err
		}
		edgeClass, err := t.db.catalog.ClassByID(edge.ClassID)
		if err != nil {
			return err
		}
		edgeTbl, err := t.classTable(edgeClass.ID)
		if err != nil {
			return err
		}
		return storage.Delete(t.txn.KV(), edgeTbl, edge.PositionID)
	}
	for _, n := range out {
		if err := remove(n.Edge, n.Neighbor, true); err != nil {
			return err
		}
	}
	for _, n := range in {
		if err := remove(n.Edge, n.Neighbor, false); err != nil {
			return err
		}
	}
	return nil
}

// RemoveAll deletes every record of className.
func (t *Transaction) RemoveAll(className string) error {
	class, err := t.resolveClass(className)
	if err != nil {
		return err
	}
	var positions []storage.PositionId
	tbl, err := t.classTable(class.ID)
	if err != nil {
		return err
	}
	if err := storage.All(t.txn.KV(), tbl, func(position storage.PositionId, _ []byte) error {
		positions = append(positions, position)
		return nil
	}); err != nil {
		return err
	}
	for _, p := range positions {
		if err := t.Remove(storage.RecordID{ClassID: class.ID, PositionID: p}); err != nil {
			return err
		}
	}
	return nil
}

// Result is a fully materialized record: its identity, class name and
// decoded properties (including pseudo-properties).
type Result struct {
	ID         storage.RecordID
	ClassName  string
	Depth      int
	Properties map[string]storage.Bytes
}

func (t *Transaction) materialize(class *storage.ClassDef, rid storage.RecordID, rec *storage.Record, depth int) Result {
	props := make(map[string]storage.Bytes, len(rec.Properties))
	for id, v := range rec.Properties {
		if def := t.lookupPropertyDef(class.ID, id); def != nil {
			props[def.Name] = v
		}
	}
	props[storage.ClassNamePseudoProperty] = storage.BytesFromText(class.Name)
	props[storage.RecordIDPseudoProperty] = storage.BytesFromText(rid.String())
	props[storage.DepthPseudoProperty] = storage.BytesFromInt64(storage.PropertyTypeInteger, int64(depth), 4)
	props[storage.VersionPseudoProperty] = storage.BytesFromUint64(storage.PropertyTypeBigIntU, uint64(rec.Version), 8)
	return Result{ID: rid, ClassName: class.Name, Depth: depth, Properties: props}
}

func (t *Transaction) lookupPropertyDef(class storage.ClassId, id storage.PropertyId) *storage.PropertyDef {
	for _, def := range t.db.catalog.Properties(class) {
		if def.ID == id {
			return def
		}
	}
	if parent, err := t.db.catalog.ClassByID(class); err == nil && parent.SuperClass != 0 {
		return t.lookupPropertyDef(parent.SuperClass, id)
	}
	return nil
}

// FetchRecord loads a single record's full state.
func (t *Transaction) FetchRecord(rid storage.RecordID) (Result, error) {
	class, rec, err := t.loadRecord(rid)
	if err != nil {
		return Result{}, err
	}
	return t.materialize(class, rid, rec, 0), nil
}

// FetchSrc returns the source vertex of an edge.
func (t *Transaction) FetchSrc(edge storage.RecordID) (Result, error) {
	_, rec, err := t.loadRecord(edge)
	if err != nil {
		return Result{}, err
	}
	return t.FetchRecord(rec.Src)
}

// FetchDst returns the destination vertex of an edge.
func (t *Transaction) FetchDst(edge storage.RecordID) (Result, error) {
	_, rec, err := t.loadRecord(edge)
	if err != nil {
		return Result{}, err
	}
	return t.FetchRecord(rec.Dst)
}

// FetchSrcDst returns both endpoints of an edge, source first.
func (t *Transaction) FetchSrcDst(edge storage.RecordID) (Result, Result, error) {
	src, err := t.FetchSrc(edge)
	if err != nil {
		return Result{}, Result{}, err
	}
	dst, err := t.FetchDst(edge)
	if err != nil {
		return Result{}, Result{}, err
	}
	return src, dst, nil
}
