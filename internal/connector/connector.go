// Package connector implements the O(1) bigram connection-cost lookup
// spec §4.B describes: cost(right_id_of_left_node, left_id_of_right_node).
//
// Grounded on the teacher's row-compressed-array access pattern (plain
// slice indexing, no map) seen throughout pkg/dictionary's binary
// loaders; here the "binary blob" is the connection matrix instead of a
// word-frequency chunk.
package connector

import "math"

// InvalidCost is the sentinel meaning "forbidden transition" (spec §4.B).
// Arithmetic must treat it as +inf; Connector.Cost never returns a
// smaller-but-still-huge value that could silently survive addition.
const InvalidCost int32 = math.MaxInt32 / 2

// Connector is a dense, row-compressed left-id x right-id cost table.
// table[rightID*cols+leftID] holds the cost, matching the source's
// row-major (left-id, right-id) layout.
type Connector struct {
	table []int16
	cols  int // number of distinct left-ids (row width)
	rows  int // number of distinct right-ids
}

// New builds a Connector from a dense row-major table: table has rows*cols
// entries, table[r*cols+l] is the cost for (rightID=r, leftID=l).
func New(table []int16, rows, cols int) *Connector {
	return &Connector{table: table, rows: rows, cols: cols}
}

// Cost returns the connection cost between a left node's right-id and a
// right node's left-id. Out-of-range ids and the table's own sentinel
// value (int16 max) both map to InvalidCost.
func (c *Connector) Cost(rightIDOfLeft, leftIDOfRight uint16) int32 {
	if c == nil || c.table == nil {
		return InvalidCost
	}
	r, l := int(rightIDOfLeft), int(leftIDOfRight)
	if r < 0 || r >= c.rows || l < 0 || l >= c.cols {
		return InvalidCost
	}
	v := c.table[r*c.cols+l]
	if v == math.MaxInt16 {
		return InvalidCost
	}
	return int32(v)
}

// IsForbidden reports whether a cost returned by Cost denotes a forbidden
// transition; callers should treat it as +inf rather than add it.
func IsForbidden(cost int32) bool {
	return cost >= InvalidCost
}
