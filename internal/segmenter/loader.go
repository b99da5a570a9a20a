package segmenter

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// LoadFile reads the boundary-classification bitmap blob: a uint32
// "kks1" magic, row/col counts, then rows*cols required bytes followed
// by rows*cols forbidden bytes (one byte per bool, same dense
// (right-id, left-id) indexing as Segmenter.Classify expects).
func LoadFile(path string) (*Segmenter, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("segmenter: opening %s: %w", path, err)
	}
	defer f.Close()

	r := bufio.NewReader(f)

	var magic uint32
	if err := binary.Read(r, binary.LittleEndian, &magic); err != nil {
		return nil, fmt.Errorf("segmenter: reading header %s: %w", path, err)
	}
	if magic != 0x6b6b7331 { // "kks1"
		return nil, fmt.Errorf("segmenter: %s is not a segmenter bitmap blob", path)
	}

	var rows, cols uint32
	if err := binary.Read(r, binary.LittleEndian, &rows); err != nil {
		return nil, fmt.Errorf("segmenter: reading row count %s: %w", path, err)
	}
	if err := binary.Read(r, binary.LittleEndian, &cols); err != nil {
		return nil, fmt.Errorf("segmenter: reading col count %s: %w", path, err)
	}

	n := int(rows * cols)
	required, err := readBoolBitmap(r, n)
	if err != nil {
		return nil, fmt.Errorf("segmenter: reading required bitmap %s: %w", path, err)
	}
	forbidden, err := readBoolBitmap(r, n)
	if err != nil {
		return nil, fmt.Errorf("segmenter: reading forbidden bitmap %s: %w", path, err)
	}

	return New(required, forbidden, int(rows), int(cols)), nil
}

func readBoolBitmap(r *bufio.Reader, n int) ([]bool, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	out := make([]bool, n)
	for i, b := range buf {
		out[i] = b != 0
	}
	return out, nil
}
