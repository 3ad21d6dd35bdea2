package storage

import (
	"encoding/binary"
	"fmt"

	"github.com/nogdb/nogdb/pkg/kv"
)

// DataStore holds, per class, a numeric-keyed table of encoded record blobs
// plus a monotonic position-id counter. Positions are never reused, even
// after the record occupying one is deleted, so a stale RecordID reliably
// reports "does not exist" rather than silently returning an unrelated
// record that happens to reuse the position.
type DataStore struct {
	counters map[ClassId]PositionId
}

// NewDataStore returns an empty position-counter tracker; counters are
// populated lazily the first time a class is written to or loaded from disk.
func NewDataStore() *DataStore {
	return &DataStore{counters: make(map[ClassId]PositionId)}
}

// positionKey encodes id in native byte order, the form a NumericKey
// (integer-key) table compares as a fixed-width integer.
func positionKey(id PositionId) []byte {
	var b [4]byte
	binary.NativeEndian.PutUint32(b[:], uint32(id))
	return b[:]
}

func classTableName(class ClassId) string {
	return fmt.Sprintf("%s%d", TableIndexingPrefix, class)
}

// OpenClassTable opens (creating if needed) the numeric-keyed table backing
// one class's records.
func OpenClassTable(txn *kv.Txn, class ClassId) (*kv.Table, error) {
	return txn.OpenTable(classTableName(class), kv.TableFlags{NumericKey: true, Create: true})
}

// NextPosition allocates the next position id for class. The in-memory
// counter is the source of truth within a process; SyncCounter should be
// called once at open time to seed it from the highest position already on
// disk.
func (d *DataStore) NextPosition(class ClassId) PositionId {
	d.counters[class]++
	return d.counters[class]
}

// SyncCounter ensures class's counter is at least highest, used when
// reloading a database so newly allocated ids never collide with ones
// already persisted.
func (d *DataStore) SyncCounter(class ClassId, highest PositionId) {
	if d.counters[class] < highest {
		d.counters[class] = highest
	}
}

// Put writes rec's encoded form at position in class's table.
func Put(txn *kv.Txn, tbl *kv.Table, position PositionId, encoded []byte) error {
	return txn.Put(tbl, positionKey(position), encoded)
}

// Get reads the encoded record blob at position, reporting ok=false if no
// record lives there (deleted or never written).
func Get(txn *kv.Txn, tbl *kv.Table, position PositionId) ([]byte, bool, error) {
	return txn.Get(tbl, positionKey(position))
}

// Delete removes the record blob at position, leaving the position
// permanently tombstoned.
func Delete(txn *kv.Txn, tbl *kv.Table, position PositionId) error {
	return txn.Delete(tbl, positionKey(position), nil)
}

// HighestPosition scans tbl for the greatest stored position id, used by
// SyncCounter to reseed the in-memory allocator after a reload.
func HighestPosition(txn *kv.Txn, tbl *kv.Table) (PositionId, error) {
	cur, err := txn.Cursor(tbl)
	if err != nil {
		return 0, err
	}
	defer cur.Close()
	entry, ok, err := cur.Last()
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	return PositionId(binary.NativeEndian.Uint32(entry.Key)), nil
}

// All iterates every (position, encoded blob) pair in class order, used by
// Find's full-class scan.
func All(txn *kv.Txn, tbl *kv.Table, fn func(position PositionId, encoded []byte) error) error {
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
		position := PositionId(binary.NativeEndian.Uint32(entry.Key))
		if err := fn(position, entry.Value); err != nil {
			return err
		}
		entry, ok, err = cur.Next()
		if err != nil {
			return err
		}
	}
	return nil
}
