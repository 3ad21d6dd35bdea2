package nogdb

import (
	"context"
	"testing"

	"github.com/nogdb/nogdb/pkg/config"
	"github.com/nogdb/nogdb/pkg/filter"
	"github.com/nogdb/nogdb/pkg/storage"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *Database {
	t.Helper()
	db, err := Open(context.Background(), config.Options{Path: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func mustDeclareSchema(t *testing.T, db *Database) (personID, knowsID storage.ClassId) {
	t.Helper()
	txn, err := db.Begin(context.Background(), true)
	require.NoError(t, err)

	person, err := txn.AddClass("person", storage.ClassTypeVertex, 0)
	require.NoError(t, err)
	_, err = txn.AddProperty(person.ID, "name", storage.PropertyTypeText)
	require.NoError(t, err)
	_, err = txn.AddProperty(person.ID, "age", storage.PropertyTypeInteger)
	require.NoError(t, err)

	knows, err := txn.AddClass("knows", storage.ClassTypeEdge, 0)
	require.NoError(t, err)
	_, err = txn.AddProperty(knows.ID, "since", storage.PropertyTypeInteger)
	require.NoError(t, err)

	require.NoError(t, txn.Commit())
	return person.ID, knows.ID
}

func TestAddVertexAndFetchRecord(t *testing.T) {
	db := openTestDB(t)
	mustDeclareSchema(t, db)

	ctx := context.Background()
	txn, err := db.Begin(ctx, true)
	require.NoError(t, err)

	rid, err := txn.AddVertex("person", PropertyValues{"name": storage.BytesFromText("alice")})
	require.NoError(t, err)
	require.NoError(t, txn.Commit())

	readTxn, err := db.Begin(ctx, false)
	require.NoError(t, err)
	defer readTxn.Rollback()

	result, err := readTxn.FetchRecord(rid)
	require.NoError(t, err)
	require.Equal(t, "alice", string(result.Properties["name"].Data))
	require.Equal(t, "person", string(result.Properties[storage.ClassNamePseudoProperty].Data))
	require.Equal(t, rid.String(), string(result.Properties[storage.RecordIDPseudoProperty].Data))
}

func TestAddEdgeAndFetchEndpoints(t *testing.T) {
	db := openTestDB(t)
	mustDeclareSchema(t, db)
	ctx := context.Background()

	txn, err := db.Begin(ctx, true)
	require.NoError(t, err)

	alice, err := txn.AddVertex("person", PropertyValues{"name": storage.BytesFromText("alice")})
	require.NoError(t, err)
	bob, err := txn.AddVertex("person", PropertyValues{"name": storage.BytesFromText("bob")})
	require.NoError(t, err)

	edge, err := txn.AddEdge("knows", alice, bob, PropertyValues{"since": storage.BytesFromInt64(storage.PropertyTypeInteger, 2020, 4)})
	require.NoError(t, err)
	require.NoError(t, txn.Commit())

	readTxn, err := db.Begin(ctx, false)
	require.NoError(t, err)
	defer readTxn.Rollback()

	src, dst, err := readTxn.FetchSrcDst(edge)
	require.NoError(t, err)
	require.Equal(t, "alice", string(src.Properties["name"].Data))
	require.Equal(t, "bob", string(dst.Properties["name"].Data))

	out, err := readTxn.FindOutEdge(alice, filter.GraphFilter{})
	require.NoError(t, err)
	require.Equal(t, 1, out.Len())
}

func TestRemoveVertexClearsAdjacency(t *testing.T) {
	db := openTestDB(t)
	mustDeclareSchema(t, db)
	ctx := context.Background()

	txn, err := db.Begin(ctx, true)
	require.NoError(t, err)
	v1, err := txn.AddVertex("person", PropertyValues{"name": storage.BytesFromText("v1")})
	require.NoError(t, err)
	v2, err := txn.AddVertex("person", PropertyValues{"name": storage.BytesFromText("v2")})
	require.NoError(t, err)
	v3, err := txn.AddVertex("person", PropertyValues{"name": storage.BytesFromText("v3")})
	require.NoError(t, err)
	e1, err := txn.AddEdge("knows", v1, v2, nil)
	require.NoError(t, err)
	e2, err := txn.AddEdge("knows", v2, v3, nil)
	require.NoError(t, err)
	require.NoError(t, txn.Commit())

	txn2, err := db.Begin(ctx, true)
	require.NoError(t, err)
	require.NoError(t, txn2.Remove(v2))
	require.NoError(t, txn2.Commit())

	readTxn, err := db.Begin(ctx, false)
	require.NoError(t, err)
	defer readTxn.Rollback()

	_, err = readTxn.FetchRecord(v2)
	require.Error(t, err)

	// v2 was the destination of e1 and the source of e2; deleting it must
	// remove both edges' records and both reciprocal adjacency entries,
	// not just v2's own in/out lists.
	out, err := readTxn.FindOutEdge(v1, filter.GraphFilter{})
	require.NoError(t, err)
	require.Equal(t, 0, out.Len())

	in, err := readTxn.FindInEdge(v3, filter.GraphFilter{})
	require.NoError(t, err)
	require.Equal(t, 0, in.Len())

	_, err = readTxn.FetchRecord(e1)
	require.Error(t, err)
	_, err = readTxn.FetchRecord(e2)
	require.Error(t, err)
}

func TestTraverseOutBFS(t *testing.T) {
	db := openTestDB(t)
	mustDeclareSchema(t, db)
	ctx := context.Background()

	txn, err := db.Begin(ctx, true)
	require.NoError(t, err)
	a, err := txn.AddVertex("person", PropertyValues{"name": storage.BytesFromText("a")})
	require.NoError(t, err)
	b, err := txn.AddVertex("person", PropertyValues{"name": storage.BytesFromText("b")})
	require.NoError(t, err)
	c, err := txn.AddVertex("person", PropertyValues{"name": storage.BytesFromText("c")})
	require.NoError(t, err)
	_, err = txn.AddEdge("knows", a, b, nil)
	require.NoError(t, err)
	_, err = txn.AddEdge("knows", b, c, nil)
	require.NoError(t, err)
	require.NoError(t, txn.Commit())

	readTxn, err := db.Begin(ctx, false)
	require.NoError(t, err)
	defer readTxn.Rollback()

	rs, err := readTxn.TraverseOut(a).WithStrategy(BFS).DepthRange(0, -1).Run()
	require.NoError(t, err)
	require.Equal(t, 3, rs.Len())
}

func TestTraverseWhereEFiltersEdgeClass(t *testing.T) {
	db := openTestDB(t)
	mustDeclareSchema(t, db)
	ctx := context.Background()

	txn, err := db.Begin(ctx, true)
	require.NoError(t, err)
	blocks, err := txn.AddClass("blocks", storage.ClassTypeEdge, 0)
	require.NoError(t, err)

	a, err := txn.AddVertex("person", PropertyValues{"name": storage.BytesFromText("a")})
	require.NoError(t, err)
	b, err := txn.AddVertex("person", PropertyValues{"name": storage.BytesFromText("b")})
	require.NoError(t, err)
	c, err := txn.AddVertex("person", PropertyValues{"name": storage.BytesFromText("c")})
	require.NoError(t, err)
	_, err = txn.AddEdge("knows", a, b, nil)
	require.NoError(t, err)
	_, err = txn.AddEdge(blocks.Name, b, c, nil)
	require.NoError(t, err)
	require.NoError(t, txn.Commit())

	readTxn, err := db.Begin(ctx, false)
	require.NoError(t, err)
	defer readTxn.Rollback()

	rs, err := readTxn.TraverseOut(a).
		WithStrategy(BFS).
		DepthRange(0, -1).
		WhereE(filter.GraphFilter{ClassFilter: []string{"knows"}}).
		Run()
	require.NoError(t, err)
	require.Equal(t, 2, rs.Len())

	rsAll, err := readTxn.TraverseOut(a).WithStrategy(BFS).DepthRange(0, -1).Run()
	require.NoError(t, err)
	require.Equal(t, 3, rsAll.Len())
}
