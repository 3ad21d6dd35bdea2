package storage

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/nogdb/nogdb/pkg/kv"
)

// Sub-database names, lifted verbatim from the original engine's
// constant.hpp so an on-disk database produced by one run can always be
// recognized by the next.
const (
	TableDBInfo          = ".dbinfo"
	TableClasses         = ".classes"
	TableProperties      = ".properties"
	TableRelationsIn     = ".relations#in"
	TableRelationsOut    = ".relations#out"
	TableIndexes         = ".indexes"
	TableIndexingPrefix  = ".index_"
	DBInfoMaxClassID     = "?max_class_id"
	DBInfoNumClassID     = "?num_class_id"
	DBInfoMaxPropertyID  = "?max_property_id"
	DBInfoNumPropertyID  = "?num_property_id"
	DBInfoMaxIndexID     = "?max_index_id"
	DBInfoNumIndexID     = "?num_index_id"
)

type classRow struct {
	ID         ClassId
	Name       string
	Type       ClassType
	SuperClass ClassId
}

type propertyRow struct {
	ID    PropertyId
	Class ClassId
	Name  string
	Type  PropertyType
}

type indexRow struct {
	ID       IndexId
	Class    ClassId
	Property PropertyId
	Name     string
	Unique   bool
}

func classKey(id ClassId) []byte {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], uint16(id))
	return b[:]
}

func propertyKey(class ClassId, id PropertyId) []byte {
	var b [4]byte
	binary.BigEndian.PutUint16(b[0:2], uint16(class))
	binary.BigEndian.PutUint16(b[2:4], uint16(id))
	return b[:]
}

func indexKey(id IndexId) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(id))
	return b[:]
}

// Persist writes the catalog's full in-memory state into the .classes,
// .properties and .indexes tables within txn, first clearing the rows
// those tables already held so that dropped definitions are removed too.
// Called by a write Transaction's Commit whenever it declared or dropped a
// class, property or index, so the change is durable at the same commit
// boundary as the rest of the transaction's writes.
func (c *Catalog) Persist(txn *kv.Txn, classes, properties, indexes *kv.Table) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, tbl := range []*kv.Table{classes, properties, indexes} {
		var keys [][]byte
		if err := scanTable(txn, tbl, func(k, _ []byte) error {
			keys = append(keys, append([]byte(nil), k...))
			return nil
		}); err != nil {
			return err
		}
		for _, k := range keys {
			if err := txn.Delete(tbl, k, nil); err != nil {
				return err
			}
		}
	}

	for _, def := range c.classes {
		row := classRow{ID: def.ID, Name: def.Name, Type: def.Type, SuperClass: def.SuperClass}
		data, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("%w: marshal class %q: %v", ErrInternal, def.Name, err)
		}
		if err := txn.Put(classes, classKey(def.ID), data); err != nil {
			return err
		}
	}
	for classID, props := range c.properties {
		for _, def := range props {
			row := propertyRow{ID: def.ID, Class: def.Class, Name: def.Name, Type: def.Type}
			data, err := json.Marshal(row)
			if err != nil {
				return fmt.Errorf("%w: marshal property %q: %v", ErrInternal, def.Name, err)
			}
			if err := txn.Put(properties, propertyKey(classID, def.ID), data); err != nil {
				return err
			}
		}
	}
	for _, def := range c.indexes {
		row := indexRow{ID: def.ID, Class: def.Class, Property: def.Property, Name: def.Name, Unique: def.Unique}
		data, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("%w: marshal index %q: %v", ErrInternal, def.Name, err)
		}
		if err := txn.Put(indexes, indexKey(def.ID), data); err != nil {
			return err
		}
	}
	return nil
}

// LoadCatalog rebuilds a Catalog by scanning the .classes, .properties and
// .indexes tables. Run when a database is opened, and again by
// Database.reloadCatalog after a schema-changing transaction rolls back.
func LoadCatalog(txn *kv.Txn, classes, properties, indexes *kv.Table) (*Catalog, error) {
	c := NewCatalog()

	if err := scanTable(txn, classes, func(_, v []byte) error {
		var row classRow
		if err := json.Unmarshal(v, &row); err != nil {
			return fmt.Errorf("%w: unmarshal class row: %v", ErrInternal, err)
		}
		def := &ClassDef{ID: row.ID, Name: row.Name, Type: row.Type, SuperClass: row.SuperClass}
		c.classes[def.ID] = def
		c.classesByName[def.Name] = def.ID
		c.properties[def.ID] = make(map[PropertyId]*PropertyDef)
		if def.ID > c.maxClassID {
			c.maxClassID = def.ID
		}
		return nil
	}); err != nil {
		return nil, err
	}

	if err := scanTable(txn, properties, func(_, v []byte) error {
		var row propertyRow
		if err := json.Unmarshal(v, &row); err != nil {
			return fmt.Errorf("%w: unmarshal property row: %v", ErrInternal, err)
		}
		def := &PropertyDef{ID: row.ID, Class: row.Class, Name: row.Name, Type: row.Type}
		if _, ok := c.properties[def.Class]; !ok {
			c.properties[def.Class] = make(map[PropertyId]*PropertyDef)
		}
		c.properties[def.Class][def.ID] = def
		if def.ID > c.maxPropertyID {
			c.maxPropertyID = def.ID
		}
		return nil
	}); err != nil {
		return nil, err
	}

	if err := scanTable(txn, indexes, func(_, v []byte) error {
		var row indexRow
		if err := json.Unmarshal(v, &row); err != nil {
			return fmt.Errorf("%w: unmarshal index row: %v", ErrInternal, err)
		}
		def := &IndexDef{ID: row.ID, Class: row.Class, Property: row.Property, Name: row.Name, Unique: row.Unique}
		c.indexes[def.ID] = def
		c.indexesByName[def.Name] = def.ID
		if def.ID > c.maxIndexID {
			c.maxIndexID = def.ID
		}
		return nil
	}); err != nil {
		return nil, err
	}

	return c, nil
}

func scanTable(txn *kv.Txn, tbl *kv.Table, fn func(k, v []byte) error) error {
	cur, err := txn.Cursor(tbl)
	if err != nil {
		return err
	}
	defer cur.Close()
	entry, ok, err := cur.First()
	if err != nil {
		return err
	}
	for ok {
		if err := fn(entry.Key, entry.Value); err != nil {
			return err
		}
		entry, ok, err = cur.Next()
		if err != nil {
			return err
		}
	}
	return nil
}
