// Loader reads a dictionary blob into a Dictionary (spec §4.A, §6
// "Packaging of dictionary blobs" — explicitly out of spec.md's own
// scope, but the ambient stack still needs a concrete on-disk format to
// exercise the rest of the engine against).
//
// Grounded on the teacher's pkg/dictionary.ChunkLoader: a binary.Read
// header (record count) followed by fixed-shape records, read with
// encoding/binary and bufio exactly like getChunkWordCount/loadChunkFile.
package dictionary

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"

	"github.com/kanaconv/kkconv/internal/posmatch"
)

// blobMagic identifies a kkconv dictionary blob; distinct from the
// teacher's dict_*.bin chunk format, which this format doesn't attempt
// to stay binary-compatible with.
const blobMagic uint32 = 0x6b6b6431 // "kkd1"

// LoadBlob reads a dictionary blob from path and adds every record to d.
func LoadBlob(d *Dictionary, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("dictionary: opening blob %s: %w", path, err)
	}
	defer f.Close()

	r := bufio.NewReader(f)

	var magic uint32
	if err := binary.Read(r, binary.LittleEndian, &magic); err != nil {
		return fmt.Errorf("dictionary: reading blob header %s: %w", path, err)
	}
	if magic != blobMagic {
		return fmt.Errorf("dictionary: %s is not a kkconv dictionary blob", path)
	}

	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return fmt.Errorf("dictionary: reading blob record count %s: %w", path, err)
	}

	for i := uint32(0); i < count; i++ {
		tok, err := readToken(r)
		if err != nil {
			if err == io.EOF {
				return fmt.Errorf("dictionary: blob %s truncated after %d/%d records", path, i, count)
			}
			return fmt.Errorf("dictionary: reading record %d from %s: %w", i, path, err)
		}
		d.Add(tok)
	}

	log.Debugf("dictionary: loaded %d records from %s", count, path)
	return nil
}

func readToken(r *bufio.Reader) (Token, error) {
	key, err := readString(r)
	if err != nil {
		return Token{}, err
	}
	value, err := readString(r)
	if err != nil {
		return Token{}, err
	}
	var fields struct {
		LeftID, RightID    uint16
		WordCost           int16
		Lid, Rid           uint16
		POSGroup           uint8
		Attributes         uint32
	}
	if err := binary.Read(r, binary.LittleEndian, &fields); err != nil {
		return Token{}, err
	}
	return Token{
		Key: key, Value: value,
		LeftID: fields.LeftID, RightID: fields.RightID,
		WordCost: fields.WordCost,
		Lid: fields.Lid, Rid: fields.Rid,
		POSGroup:   posmatch.ID(fields.POSGroup),
		Attributes: fields.Attributes,
	}, nil
}

func readString(r *bufio.Reader) (string, error) {
	var length uint16
	if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
		return "", err
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}
