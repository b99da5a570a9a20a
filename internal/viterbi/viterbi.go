// Package viterbi runs the forward dynamic-programming pass and the
// N-best backward enumeration over a built lattice.Lattice (spec §4.H).
//
// Grounded on the lattice's own arena-of-value-types design (spec §9):
// the forward pass only ever reads Node values and calls
// Lattice.SetBest, exactly the "Viterbi writes only the per-node
// best-cost/back-pointer fields" invariant the lattice package documents.
package viterbi

import (
	"container/heap"

	"github.com/kanaconv/kkconv/internal/connector"
	"github.com/kanaconv/kkconv/internal/lattice"
	"github.com/kanaconv/kkconv/internal/posmatch"
	"github.com/kanaconv/kkconv/internal/segmenter"
)

// Engine bundles the data tables the decode step reads; safe to share
// across concurrent calls to Run/NBest, same as their own collaborators.
type Engine struct {
	Connector *connector.Connector
	Segmenter *segmenter.Segmenter
	POS       *posmatch.Matcher
	Penalties *posmatch.PenaltyTable

	// SegmentBoundaryBonus is added as a positive cost whenever the
	// segmenter classifies a transition as Allowed, discouraging (but not
	// forbidding) the decoder from splitting there so that longer nodes
	// are preferred over gratuitous segment breaks (spec §4.H "segment
	// boundary penalty": zero within a segment, a positive constant on
	// Allowed, zero on Required at a fixed boundary).
	SegmentBoundaryBonus int32
}

// Run executes the forward DP pass over every position of lat, left to
// right, writing each node's best predecessor and accumulated cost in
// place (spec §4.H). It must run before NBest.
func (e *Engine) Run(lat *lattice.Lattice) {
	n := lat.Len()
	for p := 0; p <= n; p++ {
		nexts := lat.BeginNodes(p)
		if len(nexts) == 0 {
			continue
		}
		prevs := lat.EndNodes(p)
		for _, nextID := range nexts {
			next := lat.Node(nextID)
			if next.Category == lattice.WeakConnected {
				continue
			}
			bestCost := lattice.InfiniteCost
			bestPrev := lattice.NoNode
			for _, prevID := range prevs {
				prev := lat.Node(prevID)
				if prev.Category == lattice.WeakConnected {
					continue
				}
				if prev.BestCost >= lattice.InfiniteCost && prev.Category != lattice.Sentinel {
					continue
				}
				edge := e.edgeCost(prev, next)
				if edge >= lattice.InfiniteCost {
					continue
				}
				total := prev.BestCost + edge + int32(next.WordCost)
				if total < bestCost {
					bestCost = total
					bestPrev = prevID
				}
			}
			lat.SetBest(nextID, bestCost, bestPrev)
		}
	}
}

// edgeCost combines the connection-matrix cost with the segment-boundary
// and POS-group additive penalties spec §4.H describes. BOS/EOS sentinels
// have no meaningful (lid,rid) tag and connect for free.
func (e *Engine) edgeCost(prev, next lattice.Node) int32 {
	if prev.Category == lattice.Sentinel || next.Category == lattice.Sentinel {
		return 0
	}

	cost := connector.InvalidCost
	if e.Connector != nil {
		cost = e.Connector.Cost(prev.RightID, next.LeftID)
	} else {
		cost = 0
	}
	if connector.IsForbidden(cost) {
		return lattice.InfiniteCost
	}

	if e.Segmenter != nil {
		b := e.Segmenter.Classify(
			segmenter.NodeInfo{RightID: prev.RightID, LeftID: prev.LeftID},
			segmenter.NodeInfo{RightID: next.RightID, LeftID: next.LeftID},
		)
		switch b {
		case segmenter.Forbidden:
			return lattice.InfiniteCost
		case segmenter.Allowed:
			cost += e.SegmentBoundaryBonus
		}
	}

	if e.Penalties != nil && e.POS != nil {
		leftGroup := e.POS.Classify(prev.Lid, prev.Rid)
		rightGroup := e.POS.Classify(next.Lid, next.Rid)
		cost += e.Penalties.Penalty(leftGroup, rightGroup)
	}

	return cost
}

// Path is one decoded sequence of node ids from BOS (exclusive) to EOS
// (inclusive: EOS is the last element), in left-to-right order, with its
// total cost.
type Path struct {
	Nodes []lattice.NodeID
	Cost  int32
}

// pathKey is the dedup key (spec §4.H "duplicate (key,value) suppression"):
// the concatenation of every node's reading and surface along the path.
type pathKey struct {
	key   string
	value string
}

// NBest enumerates up to max distinct-(key,value) paths from EOS back to
// BOS in increasing cost order, stopping early once a path's cost exceeds
// the best path's cost by more than costGap (spec §4.H; Open Question (b),
// decided in SPEC_FULL.md §10.3 config). Run must have completed first.
func (e *Engine) NBest(lat *lattice.Lattice, max int, costGap int32) []Path {
	if max <= 0 {
		max = 1
	}

	// Each queued partial carries g(node), the accumulated suffix cost
	// from node to EOS (edges plus the word cost of every node strictly
	// between node and EOS); g(EOS) = 0. This mirrors the forward
	// recurrence total(next) = total(prev) + edge + next.WordCost read
	// backwards, so the cost at BOS reproduces the forward pass's
	// optimal total exactly for the best path.
	//
	// Best-first order here assumes non-negative edges; the POS-group
	// penalty table (internal/posmatch) can contribute small negative
	// bonuses, so in principle a later-popped partial could still win.
	// Given the bonuses are small relative to real word/connection
	// costs, this is an accepted approximation rather than a strict
	// k-shortest-path guarantee.
	h := &pqueue{}
	heap.Init(h)
	heap.Push(h, &partial{nodeID: lat.EOS, cost: 0})

	var results []Path
	seen := make(map[pathKey]bool)
	var bestCost int32 = lattice.InfiniteCost

	for h.Len() > 0 && len(results) < max {
		top := heap.Pop(h).(*partial)
		if bestCost < lattice.InfiniteCost && top.cost > bestCost+costGap {
			break
		}

		node := lat.Node(top.nodeID)
		if node.ID == lat.BOS {
			path := reverse(top.trail)
			k := keyFor(lat, path)
			if !seen[k] {
				seen[k] = true
				results = append(results, Path{Nodes: path, Cost: top.cost})
				if bestCost == lattice.InfiniteCost {
					bestCost = top.cost
				}
			}
			continue
		}

		for _, prevID := range lat.EndNodes(node.Start) {
			prev := lat.Node(prevID)
			if prev.Category == lattice.WeakConnected || prev.ID == node.ID {
				continue
			}
			if prev.BestCost >= lattice.InfiniteCost && prev.Category != lattice.Sentinel {
				continue
			}
			edge := e.edgeCost(prev, node)
			if edge >= lattice.InfiniteCost {
				continue
			}
			var base int32
			if node.ID == lat.EOS {
				base = 0
			} else {
				base = int32(node.WordCost)
			}
			extra := edge + base
			next := &partial{
				nodeID: prevID,
				cost:   top.cost + extra,
				trail:  append(append([]lattice.NodeID{}, top.trail...), node.ID),
			}
			heap.Push(h, next)
		}
	}

	return results
}

func reverse(ids []lattice.NodeID) []lattice.NodeID {
	out := make([]lattice.NodeID, len(ids))
	for i, id := range ids {
		out[len(ids)-1-i] = id
	}
	return out
}

func keyFor(lat *lattice.Lattice, path []lattice.NodeID) pathKey {
	var k, v []byte
	for _, id := range path {
		n := lat.Node(id)
		k = append(k, n.Key...)
		v = append(v, n.Value...)
	}
	return pathKey{key: string(k), value: string(v)}
}

// partial is one in-flight backward path during N-best enumeration: the
// node currently being expanded, the accumulated cost from EOS to here,
// and the trail of nodes visited so far (EOS-to-here order).
type partial struct {
	nodeID lattice.NodeID
	cost   int32
	trail  []lattice.NodeID
}

// pqueue is a container/heap min-heap over partial.cost, grounded on the
// teacher's use of golang.org/x/exp-adjacent slice/heap helpers for
// ranked enumeration (here: the standard library's container/heap, since
// x/exp itself ships no heap type; x/exp is instead used by
// internal/candidate for its slice-ordering helpers).
type pqueue []*partial

func (q pqueue) Len() int            { return len(q) }
func (q pqueue) Less(i, j int) bool  { return q[i].cost < q[j].cost }
func (q pqueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *pqueue) Push(x interface{}) { *q = append(*q, x.(*partial)) }
func (q *pqueue) Pop() interface{} {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}
