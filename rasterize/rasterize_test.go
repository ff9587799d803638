package rasterize_test

import (
	"errors"
	"slices"
	"testing"

	"github.com/eak1mov/go-beehive/collision"
	"github.com/eak1mov/go-beehive/platform"
	"github.com/eak1mov/go-beehive/rasterize"
	"github.com/eak1mov/go-beehive/terrain"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"seehuhn.de/go/geom/vec"
)

var cfg = platform.MegaDrive

// flat returns a horizontal path at world height y from x0 to x1 with
// three points (two curves).
func flat(y, x0, x1 float64, flags terrain.Flags) *collision.Path {
	p := &collision.Path{Flags: flags}
	for _, x := range []float64{x0, (x0 + x1) / 2, x1} {
		p.AddPoint(vec.Vec2{X: x, Y: y}, vec.Vec2{}, vec.Vec2{})
	}
	return p
}

func heights(hs ...int) *terrain.Tile {
	t := terrain.NewTile(len(hs), 8)
	for x, h := range hs {
		t.SetHeight(x, h)
	}
	return t
}

func TestFlatWaterPath(t *testing.T) {
	m := collision.New(cfg, "c", 8, 8)
	// World y 20 on a 64 pixel tall map is pixel row 44: tile row 5, 4 pixels
	// below the top of the tile.
	m.AddPath(flat(20, 0, 23, terrain.FlagWater))
	store := terrain.NewStore(cfg)

	report, err := rasterize.New(cfg).Generate(m, store)
	require.NoError(t, err)

	if got, want := store.Len(), 1; got != want {
		t.Fatalf("store.Len() = %v, want = %v", got, want)
	}
	if diff := cmp.Diff([]int8{4, 4, 4, 4, 4, 4, 4, 4}, store.Tile(0).Heights); diff != "" {
		t.Errorf("generated tile mismatch (-want+got):\n%v", diff)
	}
	for x := range 3 {
		if got := m.TerrainTile(x, 5); got != terrain.Some(0) {
			t.Errorf("TerrainTile(%d, 5) = %v, want 0", x, got)
		}
		if got := m.Flags(x, 5); got != terrain.FlagWater {
			t.Errorf("Flags(%d, 5) = %v, want water", x, got)
		}
	}
	if got := m.TerrainTile(3, 5); got.Valid() {
		t.Errorf("TerrainTile(3, 5) = %v, want none", got)
	}
	if got := m.Flags(3, 5); got != 0 {
		t.Errorf("Flags(3, 5) = %v, want 0", got)
	}
	if got, want := report, (rasterize.Report{Cells: 3, NewTiles: 1, ReusedTiles: 2}); !cmp.Equal(got, want) {
		t.Errorf("report = %+v, want = %+v", got, want)
	}
}

func TestMiddleGapKeepsProfile(t *testing.T) {
	m := collision.New(cfg, "c", 8, 8)
	// Both paths land in tile (1, 5): columns 0-2 at height 4, 5-7 at height 6.
	m.AddPath(flat(20, 8, 10.5, 0))
	m.AddPath(flat(22, 13, 15.5, 0))
	store := terrain.NewStore(cfg)

	_, err := rasterize.New(cfg).Generate(m, store)
	require.NoError(t, err)

	id, ok := m.TerrainTile(1, 5).Get()
	require.True(t, ok)
	if diff := cmp.Diff([]int8{4, 4, 4, 0, 0, 6, 6, 6}, store.Tile(id).Heights); diff != "" {
		t.Errorf("gapped tile mismatch (-want+got):\n%v", diff)
	}
}

func TestApproximate(t *testing.T) {
	for _, tc := range []struct {
		Name string
		In   *terrain.Tile
		Want []int8
	}{
		{Name: "Gap", In: heights(0, 3, 3, 0, 0, 5, 5, 0), Want: []int8{0, 3, 3, 0, 0, 5, 5, 0}},
		{Name: "Line", In: heights(0, 2, 3, 3, 3, 3, 6, 0), Want: []int8{0, 2, 3, 4, 4, 5, 6, 0}},
		{Name: "Steep", In: heights(0, 1, 8, 0, 0, 0, 0, 0), Want: []int8{0, 4, 7, 0, 0, 0, 0, 0}},
		{Name: "Flat", In: heights(2, 2, 2, 2, 2, 2, 2, 2), Want: []int8{2, 2, 2, 2, 2, 2, 2, 2}},
		{Name: "Single", In: heights(0, 0, 0, 5, 0, 0, 0, 0), Want: []int8{0, 0, 0, 5, 0, 0, 0, 0}},
		{Name: "Empty", In: heights(0, 0, 0, 0, 0, 0, 0, 0), Want: []int8{0, 0, 0, 0, 0, 0, 0, 0}},
	} {
		t.Run(tc.Name, func(t *testing.T) {
			rasterize.Approximate(tc.In)
			if diff := cmp.Diff(tc.Want, tc.In.Heights); diff != "" {
				t.Errorf("Approximate mismatch (-want+got):\n%v", diff)
			}
		})
	}
}

func TestHasGaps(t *testing.T) {
	gaps, x1, x2 := rasterize.HasGaps(heights(0, 0, 1, 2, 0, 0, 0, 0))
	if gaps || x1 != 2 || x2 != 3 {
		t.Errorf("HasGaps = (%v, %v, %v), want = (false, 2, 3)", gaps, x1, x2)
	}
	gaps, _, _ = rasterize.HasGaps(heights(1, 0, 1, 0, 0, 0, 0, 0))
	if !gaps {
		t.Errorf("HasGaps = false for a gapped tile")
	}
}

func TestManualFlagsPreserved(t *testing.T) {
	m := collision.New(cfg, "c", 8, 8)
	m.SetFlags(6, 6, terrain.FlagSolid)
	m.SetFlags(1, 5, terrain.FlagHole|terrain.FlagSpecial)
	m.SetTerrainTile(7, 7, terrain.Some(3))
	m.SetFlags(7, 7, terrain.FlagWater|terrain.FlagSolid)
	m.AddPath(flat(20, 0, 23, terrain.FlagWater))

	_, err := rasterize.New(cfg).Generate(m, terrain.NewStore(cfg))
	require.NoError(t, err)

	for _, tc := range []struct {
		X, Y int
		Want terrain.Flags
	}{
		{X: 6, Y: 6, Want: terrain.FlagSolid},
		{X: 1, Y: 5, Want: terrain.FlagHole | terrain.FlagWater},
		{X: 7, Y: 7, Want: terrain.FlagSolid},
	} {
		if got := m.Flags(tc.X, tc.Y); got != tc.Want {
			t.Errorf("Flags(%d, %d) = %#x, want = %#x", tc.X, tc.Y, got, tc.Want)
		}
	}
	if got := m.TerrainTile(7, 7); got.Valid() {
		t.Errorf("stale terrain at (7, 7) = %v, want none", got)
	}
}

func TestSkippedPaths(t *testing.T) {
	for _, tc := range []struct {
		Name string
		Path *collision.Path
	}{
		{Name: "OutsideMap", Path: flat(20, 100, 140, terrain.FlagWater)},
		{Name: "BelowMap", Path: flat(-30, 0, 23, terrain.FlagWater)},
		{Name: "TopRow", Path: flat(60, 0, 23, terrain.FlagWater)},
		{Name: "SingleCurve", Path: func() *collision.Path {
			p := &collision.Path{Flags: terrain.FlagWater}
			p.AddPoint(vec.Vec2{X: 0, Y: 20}, vec.Vec2{}, vec.Vec2{})
			p.AddPoint(vec.Vec2{X: 23, Y: 20}, vec.Vec2{}, vec.Vec2{})
			return p
		}()},
	} {
		t.Run(tc.Name, func(t *testing.T) {
			m := collision.New(cfg, "c", 8, 8)
			m.AddPath(tc.Path)
			before := slices.Clone(m.Words())
			store := terrain.NewStore(cfg)

			report, err := rasterize.New(cfg).Generate(m, store)
			require.NoError(t, err)
			if report.Cells != 0 || store.Len() != 0 {
				t.Errorf("report = %+v, store.Len() = %d, want nothing generated", report, store.Len())
			}
			if diff := cmp.Diff(before, m.Words()); diff != "" {
				t.Errorf("words mismatch (-want+got):\n%v", diff)
			}
		})
	}
}

func TestMinCurvesOption(t *testing.T) {
	m := collision.New(cfg, "c", 8, 8)
	p := &collision.Path{}
	p.AddPoint(vec.Vec2{X: 0, Y: 20}, vec.Vec2{}, vec.Vec2{})
	p.AddPoint(vec.Vec2{X: 7, Y: 20}, vec.Vec2{}, vec.Vec2{})
	m.AddPath(p)

	report, err := rasterize.New(cfg, rasterize.WithMinCurves(1)).Generate(m, terrain.NewStore(cfg))
	require.NoError(t, err)
	if got, want := report.Cells, 1; got != want {
		t.Errorf("report.Cells = %v, want = %v", got, want)
	}
}

func TestStoreFullLeavesStateUntouched(t *testing.T) {
	small := cfg
	small.MaxTerrainTiles = 2
	store := terrain.NewStore(small)
	_, err := store.Add()
	require.NoError(t, err)

	m := collision.New(small, "c", 8, 8)
	m.SetTerrainTile(4, 4, terrain.Some(0))
	m.SetFlags(4, 4, terrain.FlagWater)
	m.AddPath(flat(20, 0, 7, 0))
	m.AddPath(flat(45, 0, 7, 0))
	before := slices.Clone(m.Words())

	_, err = rasterize.New(small).Generate(m, store)
	if !errors.Is(err, terrain.ErrStoreFull) {
		t.Fatalf("Generate = %v, want ErrStoreFull", err)
	}
	if got, want := store.Len(), 1; got != want {
		t.Errorf("store.Len() = %v, want = %v", got, want)
	}
	if diff := cmp.Diff(before, m.Words()); diff != "" {
		t.Errorf("words changed (-want+got):\n%v", diff)
	}
}

func TestHashCollisionIsReported(t *testing.T) {
	store := terrain.NewStore(cfg)
	id, err := store.Insert(heights(4, 4, 4, 4, 4, 4, 4, 4))
	require.NoError(t, err)
	// Edit without RecomputeHash: the index still advertises the flat profile.
	store.Tile(id).SetHeight(0, 1)

	m := collision.New(cfg, "c", 8, 8)
	m.AddPath(flat(20, 0, 23, terrain.FlagWater))

	report, err := rasterize.New(cfg).Generate(m, store)
	require.NoError(t, err)
	if got, want := len(report.Integrity), 3; got != want {
		t.Fatalf("len(report.Integrity) = %v, want = %v", got, want)
	}
	for _, cerr := range report.Integrity {
		if !errors.Is(cerr, terrain.ErrHashCollision) {
			t.Errorf("integrity error %v does not wrap ErrHashCollision", cerr)
		}
		if got := m.TerrainTile(cerr.X, cerr.Y); got.Valid() {
			t.Errorf("colliding cell (%d, %d) was written: %v", cerr.X, cerr.Y, got)
		}
	}
	if got, want := store.Len(), 1; got != want {
		t.Errorf("store.Len() = %v, want = %v", got, want)
	}
}

func TestDeterministic(t *testing.T) {
	build := func() *collision.Map {
		m := collision.New(cfg, "c", 16, 8)
		p := &collision.Path{Flags: terrain.FlagSpecial}
		p.AddPoint(vec.Vec2{X: 0, Y: 10}, vec.Vec2{}, vec.Vec2{X: 10, Y: 20})
		p.AddPoint(vec.Vec2{X: 60, Y: 30}, vec.Vec2{X: -10, Y: 0}, vec.Vec2{X: 10, Y: 0})
		p.AddPoint(vec.Vec2{X: 127, Y: 12}, vec.Vec2{X: -20, Y: 5}, vec.Vec2{})
		m.AddPath(p)
		m.AddPath(flat(40, 30, 90, terrain.FlagWater))
		return m
	}

	store := terrain.NewStore(cfg)
	m := build()
	_, err := rasterize.New(cfg).Generate(m, store)
	require.NoError(t, err)
	first := slices.Clone(m.Words())
	n := store.Len()

	report, err := rasterize.New(cfg).Generate(m, store)
	require.NoError(t, err)
	if diff := cmp.Diff(first, m.Words()); diff != "" {
		t.Errorf("second run mismatch (-want+got):\n%v", diff)
	}
	if got := store.Len(); got != n || report.NewTiles != 0 {
		t.Errorf("second run added tiles: Len %d -> %d, NewTiles %d", n, got, report.NewTiles)
	}

	parallel := build()
	_, err = rasterize.New(cfg, rasterize.WithWorkers(4)).Generate(parallel, terrain.NewStore(cfg))
	require.NoError(t, err)
	if diff := cmp.Diff(first, parallel.Words()); diff != "" {
		t.Errorf("parallel run mismatch (-want+got):\n%v", diff)
	}
}
