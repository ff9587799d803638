// Package record provides the binary formats consumed by the target
// platform: tile pixel data, block definitions, block maps, terrain height
// tables and collision words. All multi-byte values are big-endian.
package record

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/eak1mov/go-beehive/block"
	"github.com/eak1mov/go-beehive/terrain"
	"github.com/eak1mov/go-beehive/tile"
)

var ErrInvalidData = errors.New("beehive: invalid record data")

const (
	wordIDMask      = 1<<11 - 1
	wordFlipX       = 1 << 11
	wordFlipY       = 1 << 12
	wordPaletteLow  = 13
	wordPaletteMask = 3 << wordPaletteLow
	wordHighPlane   = 1 << 15
)

// GraphicsWord packs a plane cell: P BB V H IIIIIIIIIII.
func GraphicsWord(id tile.ID, flags tile.Flags, palette uint8) uint16 {
	w := uint16(id) & wordIDMask
	if flags&tile.FlipX != 0 {
		w |= wordFlipX
	}
	if flags&tile.FlipY != 0 {
		w |= wordFlipY
	}
	if flags&tile.HighPlane != 0 {
		w |= wordHighPlane
	}
	return w | uint16(palette)<<wordPaletteLow&wordPaletteMask
}

// ParseGraphicsWord is the inverse of GraphicsWord.
func ParseGraphicsWord(w uint16) (id tile.ID, flags tile.Flags, palette uint8) {
	if w&wordFlipX != 0 {
		flags |= tile.FlipX
	}
	if w&wordFlipY != 0 {
		flags |= tile.FlipY
	}
	if w&wordHighPlane != 0 {
		flags |= tile.HighPlane
	}
	return tile.ID(w & wordIDMask), flags, uint8(w & wordPaletteMask >> wordPaletteLow)
}

// WriteWords writes raw 16-bit words, used for collision maps as is.
func WriteWords(words []uint16, writer io.Writer) error {
	return binary.Write(writer, binary.BigEndian, words)
}

func ReadWords(data []byte) ([]uint16, error) {
	if len(data)%2 != 0 {
		return nil, fmt.Errorf("%w: odd word data length %d", ErrInvalidData, len(data))
	}
	words := make([]uint16, len(data)/2)
	if err := binary.Read(bytes.NewReader(data), binary.BigEndian, words); err != nil {
		return nil, err
	}
	return words, nil
}

// WriteBlockMap writes one 16-bit block index per block, row-major.
func WriteBlockMap(r *block.Result, writer io.Writer) error {
	indices := r.Indices()
	words := make([]uint16, len(indices))
	for i, idx := range indices {
		if idx > 0xFFFF {
			return fmt.Errorf("%w: block index %d does not fit 16 bits", ErrInvalidData, idx)
		}
		words[i] = uint16(idx)
	}
	return WriteWords(words, writer)
}

// WriteBlocks writes the representative blocks of r in index order, each as
// its row-major cells encoded by encode.
func WriteBlocks(r *block.Result, encode func(block.Cell) uint16, writer io.Writer) error {
	var words []uint16
	for _, b := range r.Unique() {
		for _, c := range b.Cells {
			words = append(words, encode(c))
		}
	}
	return WriteWords(words, writer)
}

// WriteTiles writes 4bpp pixel data, two pixels per byte with the left pixel
// in the high nibble. A pixel that does not fit a nibble is an error.
func WriteTiles(tiles []*tile.Tile, writer io.Writer) error {
	var buffer bytes.Buffer
	for n, t := range tiles {
		if len(t.Pixels)%2 != 0 {
			return fmt.Errorf("%w: %dx%d tile has an odd pixel count", ErrInvalidData, t.Width, t.Height)
		}
		if i := slices.IndexFunc(t.Pixels, func(c uint8) bool { return c >= tile.Colors }); i >= 0 {
			return fmt.Errorf("%w: tile %d pixel (%d, %d) has colour %d", ErrInvalidData, n, i%t.Width, i/t.Width, t.Pixels[i])
		}
		for i := 0; i < len(t.Pixels); i += 2 {
			buffer.WriteByte(t.Pixels[i]<<4 | t.Pixels[i+1])
		}
	}
	_, err := writer.Write(buffer.Bytes())
	return err
}

func ReadTiles(data []byte, width, height int) ([]*tile.Tile, error) {
	size := width * height / 2
	if size == 0 || len(data)%size != 0 {
		return nil, fmt.Errorf("%w: %d bytes of %dx%d tiles", ErrInvalidData, len(data), width, height)
	}
	tiles := make([]*tile.Tile, 0, len(data)/size)
	for off := 0; off < len(data); off += size {
		t := tile.New(width, height)
		for i, b := range data[off : off+size] {
			t.Pixels[2*i] = b >> 4
			t.Pixels[2*i+1] = b & 0xF
		}
		tiles = append(tiles, t)
	}
	return tiles, nil
}

// WriteTerrain writes each terrain tile as one signed byte per column.
func WriteTerrain(tiles []*terrain.Tile, writer io.Writer) error {
	for _, t := range tiles {
		if err := binary.Write(writer, binary.BigEndian, t.Heights); err != nil {
			return err
		}
	}
	return nil
}

// WriteTerrainAngles writes the angle byte of each terrain tile.
func WriteTerrainAngles(tiles []*terrain.Tile, writer io.Writer) error {
	angles := make([]byte, len(tiles))
	for i, t := range tiles {
		angles[i] = t.Angle()
	}
	_, err := writer.Write(angles)
	return err
}

func ReadTerrain(data []byte, width, height int) ([]*terrain.Tile, error) {
	if width <= 0 || len(data)%width != 0 {
		return nil, fmt.Errorf("%w: %d bytes of %d column terrain", ErrInvalidData, len(data), width)
	}
	tiles := make([]*terrain.Tile, 0, len(data)/width)
	reader := bytes.NewReader(data)
	for range len(data) / width {
		t := terrain.NewTile(width, height)
		if err := binary.Read(reader, binary.BigEndian, t.Heights); err != nil {
			return nil, err
		}
		for x := range t.Width() {
			if h := t.Height(x); h > height || h < -height {
				return nil, fmt.Errorf("%w: terrain height %d exceeds %d", ErrInvalidData, h, height)
			}
		}
		tiles = append(tiles, t)
	}
	return tiles, nil
}
