package nogdb

import (
	"github.com/nogdb/nogdb/pkg/filter"
	"github.com/nogdb/nogdb/pkg/storage"
)

// Strategy selects the graph-walk order a Traversal uses.
type Strategy int

const (
	// BFS visits vertices nearest the source first.
	BFS Strategy = iota
	// DFS visits a full branch before backtracking.
	DFS
)

// Direction selects which edges a Traversal follows.
type Direction int

const (
	DirectionOut Direction = iota
	DirectionIn
	DirectionBoth
)

// Traversal configures a graph walk from one or more source vertices.
// Edge-class filtering (whereE) and vertex-class/property filtering
// (whereV) are tracked separately: whereE gates which adjacency entries
// the walk expands through, whereV gates which reached vertices make it
// into the result set. A vertex excluded by whereV is still expanded
// through — only whereE stops expansion.
type Traversal struct {
	txn          *Transaction
	sources      []storage.RecordID
	strategy     Strategy
	direction    Direction
	minDepth     int
	maxDepth     int
	edgeFilter   filter.GraphFilter
	vertexFilter filter.GraphFilter
}

// Traverse starts a traversal from a single vertex in the given direction.
func (t *Transaction) Traverse(source storage.RecordID, direction Direction) *Traversal {
	return &Traversal{txn: t, sources: []storage.RecordID{source}, direction: direction, maxDepth: -1}
}

// TraverseOut starts an outbound-only traversal from source.
func (t *Transaction) TraverseOut(source storage.RecordID) *Traversal {
	return t.Traverse(source, DirectionOut)
}

// TraverseIn starts an inbound-only traversal from source.
func (t *Transaction) TraverseIn(source storage.RecordID) *Traversal {
	return t.Traverse(source, DirectionIn)
}

// AddSource adds another starting vertex to the traversal, letting one walk
// explore outward from several roots at once.
func (tr *Traversal) AddSource(source storage.RecordID) *Traversal {
	tr.sources = append(tr.sources, source)
	return tr
}

// WithStrategy selects BFS or DFS ordering.
func (tr *Traversal) WithStrategy(s Strategy) *Traversal {
	tr.strategy = s
	return tr
}

// DepthRange bounds the traversal to [min, max] hops from its source(s); a
// negative max means unbounded.
func (tr *Traversal) DepthRange(min, max int) *Traversal {
	tr.minDepth, tr.maxDepth = min, max
	return tr
}

// WhereE restricts which edges the walk follows: an edge whose class does
// not pass gf's class allow/deny list is never expanded through, so
// vertices reachable only via an excluded edge class are never visited.
func (tr *Traversal) WhereE(gf filter.GraphFilter) *Traversal {
	tr.edgeFilter = gf
	return tr
}

// WhereV restricts which reached vertices are included in the result:
// gf's class allow/deny list and record-level Filter are both applied,
// but a vertex failing WhereV is still expanded through (its own
// neighbors may still be reachable, subject to WhereE).
func (tr *Traversal) WhereV(gf filter.GraphFilter) *Traversal {
	tr.vertexFilter = gf
	return tr
}

type frontierItem struct {
	id    storage.RecordID
	depth int
}

// Run executes the traversal and returns every vertex reached, subject to
// the configured depth bounds and filter.
func (tr *Traversal) Run() (*ResultSet, error) {
	visited := make(map[storage.RecordID]bool)
	var out []Result

	var queue []frontierItem
	for _, s := range tr.sources {
		if !visited[s] {
			visited[s] = true
			queue = append(queue, frontierItem{id: s, depth: 0})
		}
	}

	for len(queue) > 0 {
		var item frontierItem
		if tr.strategy == DFS {
			item = queue[len(queue)-1]
			queue = queue[:len(queue)-1]
		} else {
			item = queue[0]
			queue = queue[1:]
		}

		class, rec, err := tr.txn.loadRecord(item.id)
		if err != nil {
			return nil, err
		}
		withinRange := item.depth >= tr.minDepth && (tr.maxDepth < 0 || item.depth <= tr.maxDepth)
		if withinRange && tr.vertexFilter.Matches(class.Name, tr.txn.propertyLookup(class, rec)) {
			out = append(out, tr.txn.materialize(class, item.id, rec, item.depth))
		}

		if tr.maxDepth >= 0 && item.depth >= tr.maxDepth {
			continue
		}

		next, err := tr.neighbors(item.id)
		if err != nil {
			return nil, err
		}
		for _, n := range next {
			if visited[n] {
				continue
			}
			visited[n] = true
			queue = append(queue, frontierItem{id: n, depth: item.depth + 1})
		}
	}

	return &ResultSet{results: out}, nil
}

// neighbors returns the vertices reachable from vertex by one hop in the
// configured direction, through edges whose class passes tr.edgeFilter's
// class allow/deny list. Edges of an excluded class are not followed, so
// their far endpoint is not added through them; it is still added if some
// other edge of an included class reaches it.
func (tr *Traversal) neighbors(vertex storage.RecordID) ([]storage.RecordID, error) {
	var out []storage.RecordID
	if tr.direction == DirectionOut || tr.direction == DirectionBoth {
		ns, err := tr.txn.relations.Out(tr.txn.txn.KV(), vertex)
		if err != nil {
			return nil, err
		}
		filtered, err := tr.filterByEdgeClass(ns)
		if err != nil {
			return nil, err
		}
		out = append(out, filtered...)
	}
	if tr.direction == DirectionIn || tr.direction == DirectionBoth {
		ns, err := tr.txn.relations.In(tr.txn.txn.KV(), vertex)
		if err != nil {
			return nil, err
		}
		filtered, err := tr.filterByEdgeClass(ns)
		if err != nil {
			return nil, err
		}
		out = append(out, filtered...)
	}
	return out, nil
}

func (tr *Traversal) filterByEdgeClass(ns []storage.Neighbor) ([]storage.RecordID, error) {
	var out []storage.RecordID
	for _, n := range ns {
		edgeClass, err := tr.txn.db.catalog.ClassByID(n.Edge.ClassID)
		if err != nil {
			return nil, err
		}
		if !tr.edgeFilter.AllowsClass(edgeClass.Name) {
			continue
		}
		out = append(out, n.Neighbor)
	}
	return out, nil
}
