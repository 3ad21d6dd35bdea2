// Package kv wraps an ordered, MVCC key-value engine (MDBX) behind the
// table/cursor contract NogDB's storage layer needs: named sub-databases
// within one environment, a numeric-key flag for position-id tables, and a
// dupsort (duplicate-key, value-ordered) flag for the relation index.
//
// The shape of this package — Environment/Txn/Cursor, table handles opened
// by name, Seek/Next/Prev cursor walking — follows the table interface used
// across the erigon/mdbx family of Go codebases rather than a key-value
// store that only ever deals in flat byte slices.
package kv

import (
	"context"
	"fmt"
	"os"

	"github.com/erigontech/mdbx-go/mdbx"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// TableFlags configures how a named sub-database is opened.
type TableFlags struct {
	// NumericKey stores keys as native-endian fixed width integers
	// (MDBX_INTEGERKEY), used by the data-record store's position-id keys.
	NumericKey bool
	// DupSort allows multiple values per key, kept sorted by value
	// (MDBX_DUPSORT), used by the relation/adjacency index.
	DupSort bool
	// Create creates the sub-database if it does not already exist.
	Create bool
}

func (f TableFlags) flags() mdbx.DBFlags {
	var fl mdbx.DBFlags
	if f.Create {
		fl |= mdbx.Create
	}
	if f.NumericKey {
		fl |= mdbx.IntegerKey
	}
	if f.DupSort {
		fl |= mdbx.DupSort
	}
	return fl
}

// Environment is one opened MDBX environment, i.e. one NogDB database
// directory on disk.
type Environment struct {
	InstanceID uuid.UUID
	env        *mdbx.Env
	log        zerolog.Logger
	path       string
}

// EnvOptions configures Open.
type EnvOptions struct {
	Path       string
	MaxTables  uint64
	MapSize    uint64
	MaxReaders uint
	Logger     zerolog.Logger
}

// Open creates (if needed) and opens the environment directory at
// opts.Path, ready to host named tables.
func Open(opts EnvOptions) (*Environment, error) {
	if opts.Path == "" {
		return nil, fmt.Errorf("kv: path is required")
	}
	if err := os.MkdirAll(opts.Path, 0o755); err != nil {
		return nil, fmt.Errorf("kv: create db dir: %w", err)
	}
	env, err := mdbx.NewEnv()
	if err != nil {
		return nil, fmt.Errorf("kv: new env: %w", err)
	}
	if opts.MaxTables == 0 {
		opts.MaxTables = 1024
	}
	if err := env.SetOption(mdbx.OptMaxDB, opts.MaxTables); err != nil {
		return nil, fmt.Errorf("kv: set max tables: %w", err)
	}
	if opts.MaxReaders > 0 {
		if err := env.SetOption(mdbx.OptMaxReaders, uint64(opts.MaxReaders)); err != nil {
			return nil, fmt.Errorf("kv: set max readers: %w", err)
		}
	}
	if opts.MapSize == 0 {
		opts.MapSize = 1 << 30 // 1 GiB
	}
	if err := env.SetGeometry(-1, -1, int(opts.MapSize), -1, -1, -1); err != nil {
		return nil, fmt.Errorf("kv: set geometry: %w", err)
	}
	if err := env.Open(opts.Path, 0, 0o644); err != nil {
		return nil, fmt.Errorf("kv: open env at %s: %w", opts.Path, err)
	}
	id := uuid.New()
	e := &Environment{InstanceID: id, env: env, log: opts.Logger, path: opts.Path}
	e.log.Debug().Str("path", opts.Path).Str("instance", id.String()).Msg("kv: environment opened")
	return e, nil
}

// Close releases the environment. It is not valid to use the environment or
// any table handle opened from it afterward.
func (e *Environment) Close() error {
	e.log.Debug().Str("instance", e.InstanceID.String()).Msg("kv: environment closing")
	e.env.Close()
	return nil
}

// Table is a handle to one named sub-database.
type Table struct {
	name  string
	flags TableFlags
	dbi   mdbx.DBI
}

// OpenTable opens (creating if requested) the named sub-database with the
// given flags. It must be called from within a read-write transaction the
// first time a table is created; subsequent opens may use any transaction.
func (t *Txn) OpenTable(name string, flags TableFlags) (*Table, error) {
	dbi, err := t.txn.OpenDBISimple(name, flags.flags())
	if err != nil {
		return nil, fmt.Errorf("kv: open table %q: %w", name, err)
	}
	return &Table{name: name, flags: flags, dbi: dbi}, nil
}

// Txn is a single MDBX transaction, read-only or read-write.
type Txn struct {
	txn      *mdbx.Txn
	writable bool
}

// Begin starts a new transaction. Read-write transactions serialize against
// each other; read-only transactions see a stable MVCC snapshot as of the
// moment they started and never block writers.
func (e *Environment) Begin(ctx context.Context, writable bool) (*Txn, error) {
	flags := mdbx.TxnReadOnly
	if writable {
		flags = 0
	}
	txn, err := e.env.BeginTxn(nil, flags)
	if err != nil {
		return nil, fmt.Errorf("kv: begin txn: %w", err)
	}
	return &Txn{txn: txn, writable: writable}, nil
}

// Commit finalizes a read-write transaction, or releases a read-only one's
// snapshot.
func (t *Txn) Commit() error {
	_, err := t.txn.Commit()
	if err != nil {
		return fmt.Errorf("kv: commit: %w", err)
	}
	return nil
}

// Abort discards a transaction without applying its writes.
func (t *Txn) Abort() {
	t.txn.Abort()
}

// Put stores value under key, overwriting any existing value unless the
// table is DupSort (in which case it is added as a new duplicate, unless it
// already exists).
func (t *Txn) Put(tbl *Table, key, value []byte) error {
	var flags mdbx.PutFlags
	if err := t.txn.Put(tbl.dbi, key, value, flags); err != nil {
		return fmt.Errorf("kv: put into %s: %w", tbl.name, err)
	}
	return nil
}

// Get fetches the (first, for DupSort tables) value stored under key.
// Returns (nil, false, nil) if the key does not exist.
func (t *Txn) Get(tbl *Table, key []byte) ([]byte, bool, error) {
	v, err := t.txn.Get(tbl.dbi, key)
	if err != nil {
		if mdbx.IsNotFound(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("kv: get from %s: %w", tbl.name, err)
	}
	return v, true, nil
}

// Delete removes key (and, for non-DupSort tables, its single value). For
// DupSort tables, when value is non-nil only that specific duplicate is
// removed; when value is nil, every duplicate under key is removed.
func (t *Txn) Delete(tbl *Table, key, value []byte) error {
	if err := t.txn.Del(tbl.dbi, key, value); err != nil {
		if mdbx.IsNotFound(err) {
			return nil
		}
		return fmt.Errorf("kv: delete from %s: %w", tbl.name, err)
	}
	return nil
}

// Cursor opens a navigable cursor over tbl.
func (t *Txn) Cursor(tbl *Table) (*Cursor, error) {
	c, err := t.txn.OpenCursor(tbl.dbi)
	if err != nil {
		return nil, fmt.Errorf("kv: open cursor on %s: %w", tbl.name, err)
	}
	return &Cursor{c: c, dupSort: tbl.flags.DupSort}, nil
}

// Cursor walks the ordered contents of a table, including, for DupSort
// tables, the value-sorted duplicates under one key.
type Cursor struct {
	c       *mdbx.Cursor
	dupSort bool
}

// Close releases the cursor.
func (c *Cursor) Close() { c.c.Close() }

// Entry is a single key/value pair yielded by the cursor.
type Entry struct {
	Key, Value []byte
}

func wrapNotFound(k, v []byte, err error) (Entry, bool, error) {
	if err != nil {
		if mdbx.IsNotFound(err) {
			return Entry{}, false, nil
		}
		return Entry{}, false, err
	}
	return Entry{Key: k, Value: v}, true, nil
}

// First seeks to the first entry in the table.
func (c *Cursor) First() (Entry, bool, error) {
	k, v, err := c.c.Get(nil, nil, mdbx.First)
	return wrapNotFound(k, v, err)
}

// Last seeks to the last entry in the table.
func (c *Cursor) Last() (Entry, bool, error) {
	k, v, err := c.c.Get(nil, nil, mdbx.Last)
	return wrapNotFound(k, v, err)
}

// Seek positions the cursor at the first key >= key (Find in the spec's
// terminology).
func (c *Cursor) Seek(key []byte) (Entry, bool, error) {
	k, v, err := c.c.Get(key, nil, mdbx.SetRange)
	return wrapNotFound(k, v, err)
}

// SeekExact positions the cursor exactly at key, failing if it is absent.
func (c *Cursor) SeekExact(key []byte) (Entry, bool, error) {
	k, v, err := c.c.Get(key, nil, mdbx.Set)
	if err != nil {
		if mdbx.IsNotFound(err) {
			return Entry{}, false, nil
		}
		return Entry{}, false, err
	}
	return Entry{Key: k, Value: v}, true, nil
}

// SeekBothRange (DupSort tables only) positions at key with the first value
// >= value among that key's duplicates — FindRange over (key, value) pairs,
// used by the relation index to locate one specific (edge, neighbor)
// duplicate before deleting it.
func (c *Cursor) SeekBothRange(key, value []byte) (Entry, bool, error) {
	k, v, err := c.c.Get(key, value, mdbx.GetBothRange)
	return wrapNotFound(k, v, err)
}

// Next advances to the next entry.
func (c *Cursor) Next() (Entry, bool, error) {
	k, v, err := c.c.Get(nil, nil, mdbx.Next)
	return wrapNotFound(k, v, err)
}

// NextDup (DupSort tables only) advances to the next duplicate under the
// current key, failing (ok=false) once duplicates under that key are
// exhausted.
func (c *Cursor) NextDup() (Entry, bool, error) {
	k, v, err := c.c.Get(nil, nil, mdbx.NextDup)
	return wrapNotFound(k, v, err)
}

// Prev retreats to the previous entry.
func (c *Cursor) Prev() (Entry, bool, error) {
	k, v, err := c.c.Get(nil, nil, mdbx.Prev)
	return wrapNotFound(k, v, err)
}

// DeleteCurrent removes the entry the cursor currently points to.
func (c *Cursor) DeleteCurrent() error {
	return c.c.Del(0)
}
