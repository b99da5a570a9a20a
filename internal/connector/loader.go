package connector

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"
)

// LoadFile reads a dense connection-cost table blob: a uint32 "kkc1"
// magic, two uint32 row/col counts, then rows*cols little-endian int16
// cost values in row-major order, matching Connector's own table layout.
//
// Grounded on the same encoding/binary + bufio header-then-records idiom
// the teacher's chunk loader uses for its word-frequency blobs.
func LoadFile(path string) (*Connector, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("connector: opening %s: %w", path, err)
	}
	defer f.Close()

	r := bufio.NewReader(f)

	var magic uint32
	if err := binary.Read(r, binary.LittleEndian, &magic); err != nil {
		return nil, fmt.Errorf("connector: reading header %s: %w", path, err)
	}
	if magic != 0x6b6b6331 { // "kkc1"
		return nil, fmt.Errorf("connector: %s is not a connection table blob", path)
	}

	var rows, cols uint32
	if err := binary.Read(r, binary.LittleEndian, &rows); err != nil {
		return nil, fmt.Errorf("connector: reading row count %s: %w", path, err)
	}
	if err := binary.Read(r, binary.LittleEndian, &cols); err != nil {
		return nil, fmt.Errorf("connector: reading col count %s: %w", path, err)
	}

	table := make([]int16, rows*cols)
	if err := binary.Read(r, binary.LittleEndian, table); err != nil {
		return nil, fmt.Errorf("connector: reading cost table %s: %w", path, err)
	}

	return New(table, int(rows), int(cols)), nil
}
