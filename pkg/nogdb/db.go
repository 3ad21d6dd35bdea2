// Package nogdb is the public graph-database API: open a database, begin
// transactions, and perform vertex/edge CRUD, lookups and traversals
// against it. Everything below this package (pkg/kv, pkg/storage,
// pkg/filter, pkg/convert) is storage plumbing; this is the surface an
// embedder actually calls.
package nogdb

import (
	"context"
	"fmt"

	"github.com/nogdb/nogdb/pkg/config"
	"github.com/nogdb/nogdb/pkg/kv"
	"github.com/nogdb/nogdb/pkg/storage"
)

// Database is one opened NogDB database directory.
type Database struct {
	env     *kv.Environment
	txnMgr  *storage.TxnManager
	catalog *storage.Catalog
	data    *storage.DataStore

	classesTbl, propsTbl, indexesTbl *kv.Table
}

// Open opens (creating if necessary) the database directory named in
// opts.Path, loading its schema catalog and data-position counters.
func Open(ctx context.Context, opts config.Options) (*Database, error) {
	opts = opts.WithDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if err := opts.EnsurePath(); err != nil {
		return nil, fmt.Errorf("nogdb: %w", err)
	}

	env, err := kv.Open(kv.EnvOptions{
		Path:       opts.Path,
		MaxTables:  opts.MaxDBs,
		MapSize:    opts.MapSize,
		MaxReaders: opts.MaxReaders,
		Logger:     opts.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("nogdb: %w", err)
	}

	db := &Database{env: env, data: storage.NewDataStore()}

	bootstrapTxn, err := env.Begin(ctx, true)
	if err != nil {
		env.Close()
		return nil, err
	}
	db.classesTbl, err = bootstrapTxn.OpenTable(storage.TableClasses, kv.TableFlags{Create: true})
	if err != nil {
		bootstrapTxn.Abort()
		env.Close()
		return nil, err
	}
	db.propsTbl, err = bootstrapTxn.OpenTable(storage.TableProperties, kv.TableFlags{Create: true})
	if err != nil {
		bootstrapTxn.Abort()
		env.Close()
		return nil, err
	}
	db.indexesTbl, err = bootstrapTxn.OpenTable(storage.TableIndexes, kv.TableFlags{Create: true})
	if err != nil {
		bootstrapTxn.Abort()
		env.Close()
		return nil, err
	}
	if _, err := storage.OpenRelationIndex(bootstrapTxn); err != nil {
		bootstrapTxn.Abort()
		env.Close()
		return nil, err
	}

	catalog, err := storage.LoadCatalog(bootstrapTxn, db.classesTbl, db.propsTbl, db.indexesTbl)
	if err != nil {
		bootstrapTxn.Abort()
		env.Close()
		return nil, err
	}
	db.catalog = catalog

	// Seed every class's position counter from the highest position already
	// stored, so newly added records never reuse an existing position.
	for _, class := range catalog.SubClasses(0) {
		tbl, err := storage.OpenClassTable(bootstrapTxn, class.ID)
		if err == nil {
			var highest storage.PositionId
			highest, err = storage.HighestPosition(bootstrapTxn, tbl)
			db.data.SyncCounter(class.ID, highest)
		}
		if err != nil {
			bootstrapTxn.Abort()
			env.Close()
			return nil, err
		}
	}

	if err := bootstrapTxn.Commit(); err != nil {
		env.Close()
		return nil, err
	}

	db.txnMgr = storage.NewTxnManager(env, opts.Logger, 0, 0)
	return db, nil
}

// Close releases the database's resources. Any open transactions must be
// committed or rolled back first.
func (db *Database) Close() error {
	return db.env.Close()
}

// SchemaReader exposes read-only schema lookups — the subset of the
// catalog safe to call outside a transaction. Mutating the schema
// (AddClass/AddProperty/AddIndex/DropClass/DropIndex) is only available
// on a write Transaction, so the change commits or rolls back at the same
// snapshot boundary as everything else the transaction does.
type SchemaReader interface {
	ClassByID(id storage.ClassId) (*storage.ClassDef, error)
	ClassByName(name string) (*storage.ClassDef, error)
	Properties(class storage.ClassId) []*storage.PropertyDef
	PropertyByName(class storage.ClassId, name string) (*storage.PropertyDef, error)
	SubClasses(parent storage.ClassId) []*storage.ClassDef
	IndexByName(name string) (*storage.IndexDef, error)
}

// Schema exposes read-only schema lookups. To declare or drop a class,
// property or index, use the corresponding method on a write Transaction.
func (db *Database) Schema() SchemaReader {
	return db.catalog
}

// reloadCatalog discards the in-memory catalog's uncommitted mutations by
// rebuilding it from the persisted .classes/.properties/.indexes tables.
// Called after a transaction that mutated the schema rolls back, since the
// catalog is a single in-process cache shared by every transaction.
func (db *Database) reloadCatalog(ctx context.Context) error {
	txn, err := db.env.Begin(ctx, false)
	if err != nil {
		return err
	}
	defer txn.Abort()
	catalog, err := storage.LoadCatalog(txn, db.classesTbl, db.propsTbl, db.indexesTbl)
	if err != nil {
		return err
	}
	db.catalog = catalog
	return nil
}

// Begin starts a new transaction. writable=true acquires the single writer
// slot, failing with ErrTxnInvalid while another write transaction is
// active; writable=false begins a read-only transaction pinned to the
// snapshot as of this call.
func (db *Database) Begin(ctx context.Context, writable bool) (*Transaction, error) {
	txn, err := db.txnMgr.Begin(ctx, writable)
	if err != nil {
		return nil, err
	}
	relations, err := storage.OpenRelationIndex(txn.KV())
	if err != nil {
		txn.Rollback()
		return nil, err
	}
	return &Transaction{
		db:        db,
		txn:       txn,
		relations: relations,
		tables:    make(map[storage.ClassId]*kv.Table),
	}, nil
}
