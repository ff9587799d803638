package archive

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/eak1mov/go-beehive/bezier"
	"github.com/eak1mov/go-beehive/record"
	"github.com/eak1mov/go-beehive/tile"
)

// refValid marks a stored reference that has a tile. The low half holds the
// hardware graphics word.
const refValid = 1 << 16

func encodeRefs(refs []tile.Ref) []byte {
	words := make([]uint32, len(refs))
	for i, r := range refs {
		if id, ok := r.ID.Get(); ok {
			words[i] = refValid | uint32(record.GraphicsWord(id, r.Flags, 0))
		}
	}
	var buffer bytes.Buffer
	binary.Write(&buffer, binary.BigEndian, words)
	return buffer.Bytes()
}

func decodeRefs(data []byte, count int) ([]tile.Ref, error) {
	if len(data) != count*4 {
		return nil, fmt.Errorf("%w: %d bytes for %d cells", ErrInvalidArchive, len(data), count)
	}
	words := make([]uint32, count)
	if err := binary.Read(bytes.NewReader(data), binary.BigEndian, words); err != nil {
		return nil, err
	}
	refs := make([]tile.Ref, count)
	for i, w := range words {
		if w&refValid == 0 {
			continue
		}
		id, flags, _ := record.ParseGraphicsWord(uint16(w))
		refs[i] = tile.Ref{ID: tile.Some(id), Flags: flags}
	}
	return refs, nil
}

// encodePoints stores each point as six float64 values: position, then the
// two control points, all absolute.
func encodePoints(points []bezier.Point) []byte {
	var buffer bytes.Buffer
	binary.Write(&buffer, binary.BigEndian, points)
	return buffer.Bytes()
}

func decodePoints(data []byte) ([]bezier.Point, error) {
	size := binary.Size(bezier.Point{})
	if len(data)%size != 0 {
		return nil, fmt.Errorf("%w: %d bytes of bezier points", ErrInvalidArchive, len(data))
	}
	points := make([]bezier.Point, len(data)/size)
	if err := binary.Read(bytes.NewReader(data), binary.BigEndian, points); err != nil {
		return nil, err
	}
	return points, nil
}
