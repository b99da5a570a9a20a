package posmatch

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"
)

// LoadMatcherFile reads a POS-group tag table blob: a uint32 "kkp1"
// magic, a uint32 entry count, then that many (lid uint16, rid uint16,
// group uint8) records (spec §9(d): the table is data, loaded verbatim).
func LoadMatcherFile(path string) (*Matcher, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("posmatch: opening %s: %w", path, err)
	}
	defer f.Close()

	r := bufio.NewReader(f)

	var magic uint32
	if err := binary.Read(r, binary.LittleEndian, &magic); err != nil {
		return nil, fmt.Errorf("posmatch: reading header %s: %w", path, err)
	}
	if magic != 0x6b6b7031 { // "kkp1"
		return nil, fmt.Errorf("posmatch: %s is not a POS-group table blob", path)
	}

	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("posmatch: reading entry count %s: %w", path, err)
	}

	entries := make([]Entry, count)
	for i := range entries {
		var rec struct {
			Lid, Rid uint16
			Group    uint8
		}
		if err := binary.Read(r, binary.LittleEndian, &rec); err != nil {
			return nil, fmt.Errorf("posmatch: reading entry %d from %s: %w", i, path, err)
		}
		entries[i] = Entry{Lid: rec.Lid, Rid: rec.Rid, Group: ID(rec.Group)}
	}

	return New(entries), nil
}

// LoadPenaltyTableFile reads a POS-group penalty table blob: a uint32
// "kkg1" magic, a uint32 row count, then that many (left uint8, right
// uint8, cost int32) records. Falls back to DefaultPenaltyTable when
// path is empty, since the penalty table is an optional tuning overlay
// (spec §4.H) rather than a required input like the tag table.
func LoadPenaltyTableFile(path string) (*PenaltyTable, error) {
	if path == "" {
		return DefaultPenaltyTable(), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("posmatch: opening %s: %w", path, err)
	}
	defer f.Close()

	r := bufio.NewReader(f)

	var magic uint32
	if err := binary.Read(r, binary.LittleEndian, &magic); err != nil {
		return nil, fmt.Errorf("posmatch: reading header %s: %w", path, err)
	}
	if magic != 0x6b6b6731 { // "kkg1"
		return nil, fmt.Errorf("posmatch: %s is not a POS-group penalty blob", path)
	}

	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("posmatch: reading row count %s: %w", path, err)
	}

	rows := make([]GroupPenalty, count)
	for i := range rows {
		var rec struct {
			Left, Right uint8
			Cost        int32
		}
		if err := binary.Read(r, binary.LittleEndian, &rec); err != nil {
			return nil, fmt.Errorf("posmatch: reading row %d from %s: %w", i, path, err)
		}
		rows[i] = GroupPenalty{Left: ID(rec.Left), Right: ID(rec.Right), Cost: rec.Cost}
	}

	return NewPenaltyTable(rows), nil
}
