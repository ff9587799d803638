package record_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/eak1mov/go-beehive/block"
	"github.com/eak1mov/go-beehive/record"
	"github.com/eak1mov/go-beehive/terrain"
	"github.com/eak1mov/go-beehive/tile"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestGraphicsWord(t *testing.T) {
	for _, tc := range []struct {
		Name    string
		ID      tile.ID
		Flags   tile.Flags
		Palette uint8
		Want    uint16
	}{
		{Name: "Plain", ID: 5, Want: 0x0005},
		{Name: "FlipX", ID: 5, Flags: tile.FlipX, Want: 0x0805},
		{Name: "FlipY", ID: 5, Flags: tile.FlipY, Want: 0x1005},
		{Name: "Palette", ID: 0x7FF, Palette: 3, Want: 0x67FF},
		{Name: "All", ID: 1, Flags: tile.FlipXY | tile.HighPlane, Palette: 2, Want: 0xD801},
	} {
		t.Run(tc.Name, func(t *testing.T) {
			got := record.GraphicsWord(tc.ID, tc.Flags, tc.Palette)
			if got != tc.Want {
				t.Fatalf("GraphicsWord = %#04x, want = %#04x", got, tc.Want)
			}
			id, flags, palette := record.ParseGraphicsWord(got)
			if id != tc.ID || flags != tc.Flags || palette != tc.Palette {
				t.Errorf("ParseGraphicsWord = (%v, %v, %v), want = (%v, %v, %v)",
					id, flags, palette, tc.ID, tc.Flags, tc.Palette)
			}
		})
	}
}

func TestBlockRecords(t *testing.T) {
	f := block.Field{Width: 4, Height: 1, Cells: []block.Cell{
		{ID: 1}, {ID: 2}, {ID: 1}, {ID: 2},
	}}
	r, err := block.Pack(f, block.Dims{Width: 2, Height: 1}, nil, nil)
	require.NoError(t, err)

	var blockMap bytes.Buffer
	require.NoError(t, record.WriteBlockMap(r, &blockMap))
	if diff := cmp.Diff([]byte{0, 0, 0, 0}, blockMap.Bytes()); diff != "" {
		t.Errorf("block map mismatch (-want+got):\n%v", diff)
	}

	var blocks bytes.Buffer
	encode := func(c block.Cell) uint16 { return uint16(c.ID) | 0x8000 }
	require.NoError(t, record.WriteBlocks(r, encode, &blocks))
	if diff := cmp.Diff([]byte{0x80, 0x01, 0x80, 0x02}, blocks.Bytes()); diff != "" {
		t.Errorf("blocks mismatch (-want+got):\n%v", diff)
	}
}

func TestWords(t *testing.T) {
	words := []uint16{0x37FF, 0x0001, 0xFFFF}
	var buffer bytes.Buffer
	require.NoError(t, record.WriteWords(words, &buffer))
	if diff := cmp.Diff([]byte{0x37, 0xFF, 0x00, 0x01, 0xFF, 0xFF}, buffer.Bytes()); diff != "" {
		t.Errorf("encoded words mismatch (-want+got):\n%v", diff)
	}

	got, err := record.ReadWords(buffer.Bytes())
	require.NoError(t, err)
	if diff := cmp.Diff(words, got); diff != "" {
		t.Errorf("ReadWords mismatch (-want+got):\n%v", diff)
	}

	_, err = record.ReadWords([]byte{1, 2, 3})
	if !errors.Is(err, record.ErrInvalidData) {
		t.Errorf("ReadWords = %v, want ErrInvalidData", err)
	}
}

func TestTiles(t *testing.T) {
	a := tile.New(2, 2)
	a.Pixels = []uint8{1, 2, 0xF, 0}
	var buffer bytes.Buffer
	require.NoError(t, record.WriteTiles([]*tile.Tile{a}, &buffer))
	if diff := cmp.Diff([]byte{0x12, 0xF0}, buffer.Bytes()); diff != "" {
		t.Errorf("tile data mismatch (-want+got):\n%v", diff)
	}

	tiles, err := record.ReadTiles(buffer.Bytes(), 2, 2)
	require.NoError(t, err)
	require.Len(t, tiles, 1)
	if !tiles[0].Equal(a) {
		t.Errorf("ReadTiles = %v, want = %v", tiles[0].Pixels, a.Pixels)
	}

	_, err = record.ReadTiles([]byte{1, 2, 3}, 2, 2)
	if !errors.Is(err, record.ErrInvalidData) {
		t.Errorf("ReadTiles = %v, want ErrInvalidData", err)
	}
}

func TestWriteTilesRejectsWideColors(t *testing.T) {
	a := tile.New(2, 2)
	a.Pixels = []uint8{1, 2, tile.Colors, 0}
	var buffer bytes.Buffer
	err := record.WriteTiles([]*tile.Tile{a}, &buffer)
	if !errors.Is(err, record.ErrInvalidData) {
		t.Errorf("WriteTiles = %v, want ErrInvalidData", err)
	}
	if got := buffer.Len(); got != 0 {
		t.Errorf("WriteTiles wrote %d bytes, want none", got)
	}
}

func TestTerrainAngles(t *testing.T) {
	flat, rising := terrain.NewTile(8, 8), terrain.NewTile(8, 8)
	for x := range 8 {
		flat.SetHeight(x, 3)
		rising.SetHeight(x, x+1)
	}
	var buffer bytes.Buffer
	require.NoError(t, record.WriteTerrainAngles([]*terrain.Tile{flat, rising}, &buffer))
	if diff := cmp.Diff([]byte{0, 224}, buffer.Bytes()); diff != "" {
		t.Errorf("angle data mismatch (-want+got):\n%v", diff)
	}
}

func TestTerrain(t *testing.T) {
	a := terrain.NewTile(4, 8)
	a.Heights = []int8{0, 8, -3, 4}
	var buffer bytes.Buffer
	require.NoError(t, record.WriteTerrain([]*terrain.Tile{a}, &buffer))
	if diff := cmp.Diff([]byte{0, 8, 0xFD, 4}, buffer.Bytes()); diff != "" {
		t.Errorf("terrain data mismatch (-want+got):\n%v", diff)
	}

	tiles, err := record.ReadTerrain(buffer.Bytes(), 4, 8)
	require.NoError(t, err)
	require.Len(t, tiles, 1)
	if diff := cmp.Diff(a.Heights, tiles[0].Heights); diff != "" {
		t.Errorf("ReadTerrain mismatch (-want+got):\n%v", diff)
	}

	_, err = record.ReadTerrain([]byte{0, 9, 0, 0}, 4, 8)
	if !errors.Is(err, record.ErrInvalidData) {
		t.Errorf("ReadTerrain = %v, want ErrInvalidData", err)
	}
}
