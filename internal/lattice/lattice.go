// Package lattice implements the node arena and per-position begin/end
// chains spec §3 and §9 describe: a dense array indexed by byte position
// over an arena of value-typed nodes identified by integer ids, avoiding
// a pointer graph entirely.
//
// Grounded on spec §9's explicit guidance ("Implement as an arena of
// value-typed nodes indexed by integer IDs; begin_nodes[p]/end_nodes[p]
// as small dynamic arrays of IDs... avoids reference-count overhead and
// eliminates dangling-pointer concerns") and shaped like the teacher's
// own slice-backed, no-pointer-graph structures (patricia.Trie entries,
// ChunkLoader's flat maps) rather than a linked node-and-pointer design.
package lattice

import "math"

// Category classifies how a node was produced (spec §3).
type Category uint8

const (
	Normal Category = iota
	History
	BoundaryOfNode
	Unknown
	Number
	Predictive
	WeakConnected
	Sentinel // BOS/EOS
)

// NodeID indexes into a Lattice's node arena. New allocates BOS as id 0
// and EOS as id 1; NoNode is the only id that names no node.
type NodeID int32

// NoNode is the nil back-pointer / nil predecessor value (spec §4.H
// "Back-pointer nullity").
const NoNode NodeID = -1

// InfiniteCost saturates accumulated path cost (spec §9 "Cost
// arithmetic... saturation on +inf").
const InfiniteCost int32 = math.MaxInt32 / 2

// Node is one instantiation of a token at a lattice position, or a
// synthetic BOS/EOS/unknown/number/predictive node (spec §3).
type Node struct {
	ID       NodeID
	Start    int // byte offset
	Span     int // byte length; > 0 for all but sentinels, which use 0
	Key      string
	Value    string
	LeftID   uint16
	RightID  uint16
	WordCost int16
	Lid, Rid uint16
	Category Category

	BestCost int32
	Prev     NodeID
}

// Lattice is the per-call arena: nodes plus begin/end chains keyed by
// byte position. Both chains are append-only during build; Viterbi only
// ever writes a node's BestCost/Prev fields (spec §3 invariants).
type Lattice struct {
	Key        []byte
	nodes      []Node
	beginNodes [][]NodeID // beginNodes[p] = nodes starting at p
	endNodes   [][]NodeID // endNodes[p] = nodes ending at p (start+span==p)
	BOS, EOS   NodeID
}

// New allocates a Lattice for one call's key; every position is a byte
// offset into key.
func New(key []byte) *Lattice {
	n := len(key)
	l := &Lattice{
		Key:        key,
		nodes:      make([]Node, 0, n*4+2),
		beginNodes: make([][]NodeID, n+1),
		endNodes:   make([][]NodeID, n+1),
	}
	l.BOS = l.addNode(Node{
		Start: 0, Span: 0, Category: Sentinel,
		BestCost: 0, Prev: NoNode,
	})
	l.endNodes[0] = append(l.endNodes[0], l.BOS)
	l.EOS = l.addNode(Node{
		Start: n, Span: 0, Category: Sentinel,
		BestCost: InfiniteCost, Prev: NoNode,
	})
	l.beginNodes[n] = append(l.beginNodes[n], l.EOS)
	return l
}

// addNode appends to the arena and returns the new node's id. It does
// not register the node in any chain; callers use Insert for that.
func (l *Lattice) addNode(n Node) NodeID {
	id := NodeID(len(l.nodes))
	n.ID = id
	l.nodes = append(l.nodes, n)
	return id
}

// Pending returns a Node pre-populated with the "not yet decoded"
// defaults (BestCost=+inf, Prev=NoNode); the lattice builder starts from
// this and fills in the token-derived fields before calling Insert, so a
// forgotten field can never alias node 0 (BOS) as a predecessor.
func Pending() Node {
	return Node{BestCost: InfiniteCost, Prev: NoNode}
}

// Insert allocates a node and registers it in both the begin-chain at
// its start position and the end-chain at start+span. Positions must be
// within [0, len(Key)] and UTF-8 aligned; the lattice builder is
// responsible for that invariant (spec §3).
func (l *Lattice) Insert(n Node) NodeID {
	id := l.addNode(n)
	end := n.Start + n.Span
	l.beginNodes[n.Start] = append(l.beginNodes[n.Start], id)
	if end <= len(l.Key) {
		l.endNodes[end] = append(l.endNodes[end], id)
	}
	return id
}

// Node returns the node for an id by value (nodes never outlive their
// arena; copying is cheap and avoids aliasing during Viterbi writes).
func (l *Lattice) Node(id NodeID) Node {
	return l.nodes[id]
}

// SetBest writes back the Viterbi result for a node; the only mutation
// permitted on an already-inserted node (spec §3 "Viterbi writes only
// the per-node best-cost/back-pointer fields").
func (l *Lattice) SetBest(id NodeID, cost int32, prev NodeID) {
	l.nodes[id].BestCost = cost
	l.nodes[id].Prev = prev
}

// SetCategory recategorises an already-inserted node. Used by the
// lattice builder's post-pass that marks nodes straddling a
// FIXED_BOUNDARY segment edge as WeakConnected (spec §4.G step 7), and
// by nothing else — Viterbi only ever calls SetBest.
func (l *Lattice) SetCategory(id NodeID, c Category) {
	l.nodes[id].Category = c
}

// BeginNodes returns the node ids starting at byte position p.
func (l *Lattice) BeginNodes(p int) []NodeID { return l.beginNodes[p] }

// EndNodes returns the node ids ending at byte position p.
func (l *Lattice) EndNodes(p int) []NodeID { return l.endNodes[p] }

// Len returns the number of bytes in the lattice key.
func (l *Lattice) Len() int { return len(l.Key) }

// NumNodes returns the total number of allocated nodes, including the
// two sentinels.
func (l *Lattice) NumNodes() int { return len(l.nodes) }
