package project_test

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/eak1mov/go-beehive/collision"
	"github.com/eak1mov/go-beehive/platform"
	"github.com/eak1mov/go-beehive/project"
	"github.com/eak1mov/go-beehive/terrain"
	"github.com/eak1mov/go-beehive/tile"
	"github.com/eak1mov/go-beehive/tilemap"
	"github.com/eak1mov/go-beehive/tileset"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"seehuhn.de/go/geom/vec"
)

var cmpRef = cmp.Comparer(func(a, b tile.Ref) bool { return a == b })

func newProject(t *testing.T, cfg platform.Config) *project.Project {
	t.Helper()
	p, err := project.New(cfg)
	require.NoError(t, err)
	return p
}

// patterned returns a tile whose pixel (x, y) is (x*seed + y) % 16, which is
// asymmetric under flips for seed 1.
func patterned(seed int) *tile.Tile {
	t := tile.New(8, 8)
	for y := range 8 {
		for x := range 8 {
			t.Set(x, y, uint8((x*seed+y)%16))
		}
	}
	return t
}

func solid(c uint8) *tile.Tile {
	t := tile.New(8, 8)
	for i := range t.Pixels {
		t.Pixels[i] = c
	}
	return t
}

func insert(t *testing.T, p *project.Project, tiles ...*tile.Tile) []tile.ID {
	t.Helper()
	var ids []tile.ID
	for _, tt := range tiles {
		id, err := p.Tiles.Insert(tt)
		require.NoError(t, err)
		ids = append(ids, id)
	}
	return ids
}

func ref(id tile.ID, flags tile.Flags) tile.Ref {
	return tile.Ref{ID: tile.Some(id), Flags: flags}
}

func TestDeleteTileRemapsReferences(t *testing.T) {
	p := newProject(t, platform.MegaDrive)
	a, b, c := patterned(1), patterned(3), patterned(5)
	insert(t, p, a, b, c)
	m, _, err := p.AddMap("level", 4, 1)
	require.NoError(t, err)
	m.Set(0, 0, ref(0, 0))
	m.Set(1, 0, ref(1, tile.FlipX))
	m.Set(2, 0, ref(2, tile.FlipY))
	m.Set(3, 0, ref(2, tile.HighPlane))
	p.Background = tile.Some(2)

	p.DeleteTile(0)

	want := []tile.Ref{{}, ref(1, tile.FlipX), ref(0, tile.FlipY), ref(0, tile.HighPlane)}
	if diff := cmp.Diff(want, m.Cells(), cmpRef); diff != "" {
		t.Errorf("cells mismatch (-want+got):\n%v", diff)
	}
	if got, want := p.Tiles.Len(), 2; got != want {
		t.Fatalf("Tiles.Len() = %v, want = %v", got, want)
	}
	if !p.Tiles.Tile(0).Equal(c) {
		t.Errorf("tile 0 does not hold the moved tile")
	}
	if got := p.Background; got != tile.Some(0) {
		t.Errorf("Background = %v, want 0", got)
	}

	// The moved tile is found under its new id.
	id, _, err := p.Tiles.FindDuplicate(c)
	require.NoError(t, err)
	if id != 0 {
		t.Errorf("FindDuplicate = %v, want 0", id)
	}
}

func TestDeleteTerrainTileRemapsReferences(t *testing.T) {
	p := newProject(t, platform.MegaDrive)
	for range 3 {
		id, err := p.Terrain.Add()
		require.NoError(t, err)
		p.Terrain.Tile(id).SetHeight(int(id), 1)
		p.Terrain.RecomputeHash(id)
	}
	_, c, err := p.AddMap("level", 3, 1)
	require.NoError(t, err)
	for x := range 3 {
		c.SetTerrainTile(x, 0, terrain.Some(terrain.ID(x)))
		c.SetFlags(x, 0, terrain.FlagSolid)
	}
	p.DefaultTerrain = terrain.Some(1)

	p.DeleteTerrainTile(1)

	for x, want := range []terrain.MaybeID{terrain.Some(0), terrain.None, terrain.Some(1)} {
		if got := c.TerrainTile(x, 0); got != want {
			t.Errorf("TerrainTile(%d, 0) = %v, want = %v", x, got, want)
		}
		if got := c.Flags(x, 0); got != terrain.FlagSolid {
			t.Errorf("Flags(%d, 0) = %v, want solid", x, got)
		}
	}
	if p.DefaultTerrain.Valid() {
		t.Errorf("DefaultTerrain = %v, want none", p.DefaultTerrain)
	}
	if got, want := p.Terrain.Tile(1).Heights, []int8{0, 0, 1, 0, 0, 0, 0, 0}; !cmp.Equal(got, want) {
		t.Errorf("moved terrain tile = %v, want = %v", got, want)
	}
}

func TestCleanupTilesMergesOrientations(t *testing.T) {
	p := newProject(t, platform.MegaDrive)
	a := patterned(1)
	insert(t, p, a, patterned(3), a.Transform(tile.FlipX))
	m, _, err := p.AddMap("level", 2, 1)
	require.NoError(t, err)
	m.Set(0, 0, ref(0, tile.HighPlane))
	m.Set(1, 0, ref(2, tile.FlipXY))

	removed := p.CleanupTiles()

	if got, want := removed, 2; got != want {
		t.Errorf("CleanupTiles() = %v, want = %v", got, want)
	}
	if got, want := p.Tiles.Len(), 1; got != want {
		t.Fatalf("Tiles.Len() = %v, want = %v", got, want)
	}
	want := []tile.Ref{ref(0, tile.HighPlane), ref(0, tile.FlipY)}
	if diff := cmp.Diff(want, m.Cells(), cmpRef); diff != "" {
		t.Errorf("cells mismatch (-want+got):\n%v", diff)
	}
}

func TestCleanupTilesKeepsStampAndBackgroundTiles(t *testing.T) {
	p := newProject(t, platform.MegaDrive)
	insert(t, p, patterned(1), patterned(3), patterned(5))
	s := p.AddStamp("tree", 1, 1)
	s.Set(0, 0, ref(2, 0))
	p.Background = tile.Some(1)

	if got, want := p.CleanupTiles(), 1; got != want {
		t.Errorf("CleanupTiles() = %v, want = %v", got, want)
	}
	if !p.Tiles.Tile(s.At(0, 0).ID.MustGet()).Equal(patterned(5)) {
		t.Errorf("stamp lost its tile")
	}
	if !p.Tiles.Tile(p.Background.MustGet()).Equal(patterned(3)) {
		t.Errorf("background lost its tile")
	}
}

func TestCleanupTerrainTiles(t *testing.T) {
	p := newProject(t, platform.MegaDrive)
	_, c, err := p.AddMap("level", 4, 1)
	require.NoError(t, err)
	flat := terrain.NewTile(8, 8)
	for x := range 8 {
		flat.SetHeight(x, 3)
	}
	for _, tt := range []*terrain.Tile{terrain.NewTile(8, 8), flat, flat, terrain.NewTile(8, 8)} {
		_, err := p.Terrain.Insert(tt)
		require.NoError(t, err)
	}
	p.DefaultTerrain = terrain.Some(0)
	c.SetTerrainTile(0, 0, terrain.Some(2))
	c.SetTerrainTile(1, 0, terrain.Some(1))
	empty := &collision.Path{}
	c.AddPath(empty)
	line := &collision.Path{}
	line.AddPoint(vec.Vec2{}, vec.Vec2{}, vec.Vec2{})
	line.AddPoint(vec.Vec2{X: 8}, vec.Vec2{}, vec.Vec2{})
	c.AddPath(line)

	removed := p.CleanupTerrainTiles()

	// Tile 2 duplicates tile 1 and tile 3 duplicates the default.
	if got, want := removed, 2; got != want {
		t.Errorf("CleanupTerrainTiles() = %v, want = %v", got, want)
	}
	if got := p.DefaultTerrain; got != terrain.Some(0) {
		t.Errorf("DefaultTerrain = %v, want 0", got)
	}
	if got, want := c.TerrainTile(0, 0), terrain.Some(1); got != want {
		t.Errorf("TerrainTile(0, 0) = %v, want = %v", got, want)
	}
	if got, want := len(c.Paths), 1; got != want {
		t.Errorf("len(Paths) = %v, want = %v", got, want)
	}
}

func TestCleanupTerrainTilesKeepsDefaultOverDuplicate(t *testing.T) {
	p := newProject(t, platform.MegaDrive)
	_, c, err := p.AddMap("level", 2, 1)
	require.NoError(t, err)
	for range 2 {
		_, err := p.Terrain.Add()
		require.NoError(t, err)
	}
	p.DefaultTerrain = terrain.Some(1)
	def := p.Terrain.Tile(1)
	c.SetTerrainTile(0, 0, terrain.Some(0))

	removed := p.CleanupTerrainTiles()

	if got, want := removed, 1; got != want {
		t.Errorf("CleanupTerrainTiles() = %v, want = %v", got, want)
	}
	require.Equal(t, 1, p.Terrain.Len())
	// The default tile survives and its duplicate is the one removed.
	id, ok := p.DefaultTerrain.Get()
	require.True(t, ok)
	require.Same(t, def, p.Terrain.Tile(id))
	if got, want := c.TerrainTile(0, 0), p.DefaultTerrain; got != want {
		t.Errorf("TerrainTile(0, 0) = %v, want = %v", got, want)
	}
}

func paletted(w, h int, at func(x, y int) uint8) *image.Paletted {
	palette := make(color.Palette, 16)
	for i := range palette {
		palette[i] = color.Gray{Y: uint8(i * 16)}
	}
	img := image.NewPaletted(image.Rect(0, 0, w, h), palette)
	for y := range h {
		for x := range w {
			img.SetColorIndex(x, y, at(x, y))
		}
	}
	return img
}

func TestImportTilesDeduplicates(t *testing.T) {
	p := newProject(t, platform.MegaDrive)
	// The right half mirrors the left half; a partial column is ignored.
	img := paletted(19, 8, func(x, y int) uint8 {
		if x >= 8 && x < 16 {
			x = 15 - x
		}
		return uint8((x + y) % 16)
	})

	refs, width, height, err := p.ImportTiles(img)
	require.NoError(t, err)
	if width != 2 || height != 1 {
		t.Fatalf("ImportTiles size = %dx%d, want 2x1", width, height)
	}
	want := []tile.Ref{ref(0, 0), ref(0, tile.FlipX)}
	if diff := cmp.Diff(want, refs, cmpRef); diff != "" {
		t.Errorf("refs mismatch (-want+got):\n%v", diff)
	}
	if got, want := p.Tiles.Len(), 1; got != want {
		t.Errorf("Tiles.Len() = %v, want = %v", got, want)
	}

	// Importing again reuses the stored tile.
	refs, _, _, err = p.ImportTiles(img)
	require.NoError(t, err)
	if diff := cmp.Diff(want, refs, cmpRef); diff != "" {
		t.Errorf("second import mismatch (-want+got):\n%v", diff)
	}
}

func TestImportTilesStoreFull(t *testing.T) {
	cfg := platform.MegaDrive
	cfg.MaxTiles = 2
	p := newProject(t, cfg)
	insert(t, p, solid(1))
	img := paletted(16, 8, func(x, y int) uint8 { return uint8(x / 8 * 5) })

	_, _, _, err := p.ImportTiles(img)
	if !errors.Is(err, tileset.ErrStoreFull) {
		t.Fatalf("ImportTiles = %v, want ErrStoreFull", err)
	}
	if got, want := p.Tiles.Len(), 1; got != want {
		t.Errorf("Tiles.Len() = %v, want = %v", got, want)
	}
}

func TestImportTilesRejectsWideColors(t *testing.T) {
	p := newProject(t, platform.MegaDrive)
	img := paletted(16, 8, func(x, y int) uint8 {
		if x == 12 && y == 3 {
			return tile.Colors
		}
		return 1
	})

	_, _, _, err := p.ImportTiles(img)
	if !errors.Is(err, project.ErrColorOutOfRange) {
		t.Fatalf("ImportTiles = %v, want ErrColorOutOfRange", err)
	}
	if got, want := p.Tiles.Len(), 0; got != want {
		t.Errorf("Tiles.Len() = %v, want = %v", got, want)
	}
}

func TestReplaceStamp(t *testing.T) {
	p := newProject(t, platform.MegaDrive)
	s := p.AddStamp("rock", 2, 1)

	err := p.ReplaceStamp(s.ID, []tile.Ref{ref(0, 0)}, 1, 1)
	if !errors.Is(err, project.ErrStampSizeMismatch) {
		t.Errorf("ReplaceStamp = %v, want ErrStampSizeMismatch", err)
	}
	err = p.ReplaceStamp(s.ID+1, nil, 0, 0)
	if !errors.Is(err, project.ErrStampNotFound) {
		t.Errorf("ReplaceStamp = %v, want ErrStampNotFound", err)
	}

	require.NoError(t, p.ReplaceStamp(s.ID, []tile.Ref{ref(0, 0), ref(1, tile.FlipX)}, 2, 1))
	if got, want := s.At(1, 0), ref(1, tile.FlipX); got != want {
		t.Errorf("stamp cell = %v, want = %v", got, want)
	}
}

func TestRemoveStampDropsPlacements(t *testing.T) {
	p := newProject(t, platform.MegaDrive)
	s := p.AddStamp("rock", 1, 1)
	other := p.AddStamp("tree", 1, 1)
	m, _, err := p.AddMap("level", 4, 4)
	require.NoError(t, err)
	m.Placements = []tilemap.Placement{{Stamp: s.ID}, {Stamp: other.ID, X: 1}, {Stamp: s.ID, X: 2}}

	require.NoError(t, p.RemoveStamp(s.ID))
	if diff := cmp.Diff([]tilemap.Placement{{Stamp: other.ID, X: 1}}, m.Placements); diff != "" {
		t.Errorf("placements mismatch (-want+got):\n%v", diff)
	}
}

func TestMaps(t *testing.T) {
	p := newProject(t, platform.MegaDrive)
	_, _, err := p.AddMap("b", 2, 2)
	require.NoError(t, err)
	_, _, err = p.AddMap("a", 2, 2)
	require.NoError(t, err)
	_, _, err = p.AddMap("a", 2, 2)
	if !errors.Is(err, project.ErrMapExists) {
		t.Errorf("AddMap = %v, want ErrMapExists", err)
	}
	if diff := cmp.Diff([]string{"a", "b"}, p.MapNames()); diff != "" {
		t.Errorf("MapNames mismatch (-want+got):\n%v", diff)
	}

	require.NoError(t, p.ResizeMap("a", 3, 4, false, false))
	if m, c := p.Maps["a"], p.Collision["a"]; m.Width() != 3 || c.Height() != 4 {
		t.Errorf("resized to %dx%d / %dx%d, want 3x4", m.Width(), m.Height(), c.Width(), c.Height())
	}
	if err := p.ResizeMap("c", 1, 1, false, false); !errors.Is(err, project.ErrMapNotFound) {
		t.Errorf("ResizeMap = %v, want ErrMapNotFound", err)
	}
	require.NoError(t, p.RemoveMap("b"))
	if got, want := p.Stats().Maps, 1; got != want {
		t.Errorf("Stats().Maps = %v, want = %v", got, want)
	}
}

func TestInvalidConfig(t *testing.T) {
	cfg := platform.MegaDrive
	cfg.MaxTiles = 0
	_, err := project.New(cfg)
	if !errors.Is(err, platform.ErrInvalidConfig) {
		t.Errorf("New = %v, want ErrInvalidConfig", err)
	}
}
