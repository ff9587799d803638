package collision_test

import (
	"testing"

	"github.com/eak1mov/go-beehive/collision"
	"github.com/eak1mov/go-beehive/platform"
	"github.com/eak1mov/go-beehive/terrain"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"seehuhn.de/go/geom/rect"
	"seehuhn.de/go/geom/vec"
)

func TestNewIsEmpty(t *testing.T) {
	m := collision.New(platform.MegaDrive, "c", 3, 2)
	for y := range m.Height() {
		for x := range m.Width() {
			if got := m.TerrainTile(x, y); got.Valid() {
				t.Errorf("TerrainTile(%d, %d) = %v, want none", x, y, got)
			}
			if got := m.Flags(x, y); got != 0 {
				t.Errorf("Flags(%d, %d) = %v, want 0", x, y, got)
			}
		}
	}
}

func TestWordPacking(t *testing.T) {
	m := collision.New(platform.MegaDrive, "c", 1, 1)
	m.SetFlags(0, 0, terrain.FlagSolid|terrain.FlagWater)
	m.SetTerrainTile(0, 0, terrain.Some(5))

	if got, want := m.Word(0, 0), uint16(0x3005); got != want {
		t.Errorf("Word = %#04x, want = %#04x", got, want)
	}

	m.SetTerrainTile(0, 0, terrain.None)
	if got, want := m.Word(0, 0), uint16(0x37FF); got != want {
		t.Errorf("Word = %#04x, want = %#04x", got, want)
	}
	if got, want := m.Flags(0, 0), terrain.FlagSolid|terrain.FlagWater; got != want {
		t.Errorf("Flags = %v, want = %v", got, want)
	}
}

func TestOutOfRangePanics(t *testing.T) {
	m := collision.New(platform.MegaDrive, "c", 2, 2)
	require.Panics(t, func() { m.Word(0, 2) })
	require.Panics(t, func() { m.SetFlags(-1, 0, 0) })
}

func flatPath(y float64) *collision.Path {
	p := &collision.Path{Flags: terrain.FlagWater}
	p.AddPoint(vec.Vec2{X: 0, Y: y}, vec.Vec2{}, vec.Vec2{})
	p.AddPoint(vec.Vec2{X: 8, Y: y}, vec.Vec2{}, vec.Vec2{})
	return p
}

func TestResizeKeepsContentAndPaths(t *testing.T) {
	for _, tc := range []struct {
		Name      string
		ShiftDown bool
		ShiftX    bool
		WantCell  [2]int
		WantPathY float64
		WantPathX float64
	}{
		{Name: "Plain", WantCell: [2]int{1, 1}, WantPathY: 20, WantPathX: 0},
		{Name: "ShiftDown", ShiftDown: true, WantCell: [2]int{1, 3}, WantPathY: 4, WantPathX: 0},
		{Name: "ShiftRight", ShiftX: true, WantCell: [2]int{3, 1}, WantPathY: 20, WantPathX: 16},
	} {
		t.Run(tc.Name, func(t *testing.T) {
			m := collision.New(platform.MegaDrive, "c", 2, 2)
			m.SetTerrainTile(1, 1, terrain.Some(1))
			m.SetFlags(1, 1, terrain.FlagHole)
			m.AddPath(flatPath(4))

			m.Resize(4, 4, tc.ShiftX, tc.ShiftDown)

			x, y := tc.WantCell[0], tc.WantCell[1]
			if got := m.TerrainTile(x, y); got != terrain.Some(1) {
				t.Errorf("TerrainTile(%d, %d) = %v, want 1", x, y, got)
			}
			if got := m.Flags(x, y); got != terrain.FlagHole {
				t.Errorf("Flags(%d, %d) = %v, want hole", x, y, got)
			}
			pos := m.Paths[0].At(0)
			if diff := cmp.Diff(vec.Vec2{X: tc.WantPathX, Y: tc.WantPathY}, pos); diff != "" {
				t.Errorf("path start mismatch (-want+got):\n%v", diff)
			}
		})
	}
}

func TestFindPaths(t *testing.T) {
	m := collision.New(platform.MegaDrive, "c", 4, 4)
	m.AddPath(flatPath(4))
	m.AddPath(flatPath(30))

	got := m.FindPaths(rect.Rect{LLx: 0, LLy: 0, URx: 10, URy: 10})
	if diff := cmp.Diff([]int{0}, got); diff != "" {
		t.Errorf("FindPaths mismatch (-want+got):\n%v", diff)
	}

	m.RemovePath(0)
	if got := m.FindPaths(rect.Rect{LLx: 0, LLy: 0, URx: 10, URy: 10}); len(got) != 0 {
		t.Errorf("FindPaths after RemovePath = %v, want empty", got)
	}
}

func TestRemap(t *testing.T) {
	m := collision.New(platform.MegaDrive, "c", 2, 1)
	m.SetTerrainTile(0, 0, terrain.Some(2))
	m.SetFlags(0, 0, terrain.FlagSolid)
	require.True(t, m.Uses(2))

	m.Remap(func(id terrain.MaybeID) terrain.MaybeID {
		if id == terrain.Some(2) {
			return terrain.None
		}
		return id
	})
	require.False(t, m.Uses(2))
	if got := m.Flags(0, 0); got != terrain.FlagSolid {
		t.Errorf("Flags after Remap = %v, want solid", got)
	}
}
