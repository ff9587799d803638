package archive

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/eak1mov/go-beehive/collision"
	"github.com/eak1mov/go-beehive/platform"
	"github.com/eak1mov/go-beehive/project"
	"github.com/eak1mov/go-beehive/record"
	"github.com/eak1mov/go-beehive/terrain"
	"github.com/eak1mov/go-beehive/tile"
	"github.com/eak1mov/go-beehive/tilemap"
	"github.com/eak1mov/go-beehive/tileset"
)

// Load reads a project saved by Save. Stores come back indexed.
func Load(filePath string, cfg platform.Config, opts ...Option) (_ *project.Project, err error) {
	config := newConfig(opts)

	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?mode=ro", filePath))
	if err != nil {
		return nil, err
	}
	defer func() { err = errors.Join(err, db.Close()) }()

	metadata, err := readMetadata(db)
	if err != nil {
		return nil, err
	}
	if v := metadata["version"]; v != version {
		return nil, fmt.Errorf("%w: %q", ErrInvalidVersion, v)
	}
	if name := metadata["platform"]; name != cfg.Name {
		config.Logger.Warn("beehive: archive was saved for another platform", "archive", name, "platform", cfg.Name)
	}
	compression := parseCompression(metadata["compression"])
	if compression == CompressionUnknown {
		return nil, fmt.Errorf("%w: %w: %q", ErrInvalidArchive, ErrUnsupportedCompression, metadata["compression"])
	}

	tiles, err := readTiles(db, cfg)
	if err != nil {
		return nil, err
	}
	terrainTiles, err := readTerrain(db, cfg)
	if err != nil {
		return nil, err
	}
	if len(tiles) > cfg.MaxTiles || len(terrainTiles) > cfg.MaxTerrainTiles {
		return nil, fmt.Errorf("%w: %d tiles and %d terrain tiles exceed the platform limits",
			ErrInvalidArchive, len(tiles), len(terrainTiles))
	}

	p, err := project.Restore(cfg, tileset.Restore(cfg, tiles), terrain.RestoreStore(cfg, terrainTiles),
		append([]project.Option{project.WithLogger(config.Logger)}, config.Project...)...)
	if err != nil {
		return nil, err
	}
	if s := metadata["background"]; s != "" {
		id, err := strconv.ParseUint(s, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: background %q", ErrInvalidArchive, s)
		}
		p.Background = tile.Some(tile.ID(id))
	}
	if s := metadata["default_terrain"]; s != "" {
		id, err := strconv.ParseUint(s, 10, 16)
		if err != nil {
			return nil, fmt.Errorf("%w: default terrain %q", ErrInvalidArchive, s)
		}
		p.DefaultTerrain = terrain.Some(terrain.ID(id))
	}

	if err := readStamps(db, p, compression); err != nil {
		return nil, err
	}
	if err := readMaps(db, p, compression); err != nil {
		return nil, err
	}
	if err := checkReferences(p); err != nil {
		return nil, err
	}

	config.Logger.Debug("beehive: archive loaded", "tiles", len(tiles), "terrain", len(terrainTiles), "maps", len(p.Maps))
	return p, nil
}

func readMetadata(db *sql.DB) (map[string]string, error) {
	metadata := make(map[string]string)

	rows, err := db.Query("SELECT name, value FROM metadata")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, err
		}
		metadata[name] = value
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return metadata, nil
}

func readTiles(db *sql.DB, cfg platform.Config) ([]*tile.Tile, error) {
	rows, err := db.Query("SELECT id, palette, pixels FROM tiles ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tiles []*tile.Tile
	for rows.Next() {
		var id int
		var palette uint8
		var pixels []byte
		if err := rows.Scan(&id, &palette, &pixels); err != nil {
			return nil, err
		}
		if id != len(tiles) {
			return nil, fmt.Errorf("%w: tile id %d, want %d", ErrInvalidArchive, id, len(tiles))
		}
		decoded, err := record.ReadTiles(pixels, cfg.TileWidth, cfg.TileHeight)
		if err != nil {
			return nil, fmt.Errorf("tile %d: %w", id, err)
		}
		if len(decoded) != 1 {
			return nil, fmt.Errorf("%w: tile %d holds %d tiles", ErrInvalidArchive, id, len(decoded))
		}
		decoded[0].Palette = palette
		tiles = append(tiles, decoded[0])
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return tiles, nil
}

func readTerrain(db *sql.DB, cfg platform.Config) ([]*terrain.Tile, error) {
	rows, err := db.Query("SELECT id, heights FROM terrain ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tiles []*terrain.Tile
	for rows.Next() {
		var id int
		var heights []byte
		if err := rows.Scan(&id, &heights); err != nil {
			return nil, err
		}
		if id != len(tiles) {
			return nil, fmt.Errorf("%w: terrain tile id %d, want %d", ErrInvalidArchive, id, len(tiles))
		}
		decoded, err := record.ReadTerrain(heights, cfg.TileWidth, cfg.TileHeight)
		if err != nil {
			return nil, fmt.Errorf("terrain tile %d: %w", id, err)
		}
		if len(decoded) != 1 {
			return nil, fmt.Errorf("%w: terrain tile %d holds %d tiles", ErrInvalidArchive, id, len(decoded))
		}
		tiles = append(tiles, decoded[0])
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return tiles, nil
}

func readStamps(db *sql.DB, p *project.Project, compression Compression) error {
	rows, err := db.Query("SELECT id, name, width, height, cells FROM stamps")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var s tilemap.Stamp
		var data []byte
		if err := rows.Scan(&s.ID, &s.Name, &s.Width, &s.Height, &data); err != nil {
			return err
		}
		data, err := decompress(data, compression)
		if err != nil {
			return err
		}
		if s.Cells, err = decodeRefs(data, s.Width*s.Height); err != nil {
			return fmt.Errorf("stamp %d: %w", s.ID, err)
		}
		p.Stamps[s.ID] = &s
	}

	return rows.Err()
}

func readMaps(db *sql.DB, p *project.Project, compression Compression) error {
	rows, err := db.Query("SELECT name, width, height, cells, collision FROM maps ORDER BY name")
	if err != nil {
		return err
	}
	defer rows.Close()

	type row struct {
		name   string
		width  int
		height int
		cells  []byte
		words  []byte
	}
	var maps []row
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.name, &r.width, &r.height, &r.cells, &r.words); err != nil {
			return err
		}
		maps = append(maps, r)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	rows.Close()

	for _, r := range maps {
		data, err := decompress(r.cells, compression)
		if err != nil {
			return err
		}
		cells, err := decodeRefs(data, r.width*r.height)
		if err != nil {
			return fmt.Errorf("map %q: %w", r.name, err)
		}
		placements, err := readPlacements(db, r.name)
		if err != nil {
			return err
		}

		data, err = decompress(r.words, compression)
		if err != nil {
			return err
		}
		words, err := record.ReadWords(data)
		if err != nil {
			return fmt.Errorf("collision map %q: %w", r.name, err)
		}
		if len(words) != r.width*r.height {
			return fmt.Errorf("%w: collision map %q has %d words", ErrInvalidArchive, r.name, len(words))
		}
		paths, err := readPaths(db, r.name)
		if err != nil {
			return err
		}

		m := tilemap.Restore(r.name, r.width, r.height, cells, placements)
		c := collision.Restore(p.Config, r.name, r.width, r.height, words, paths)
		if err := p.AttachMap(m, c); err != nil {
			return err
		}
	}
	return nil
}

func readPlacements(db *sql.DB, name string) ([]tilemap.Placement, error) {
	rows, err := db.Query("SELECT stamp, x, y, flags FROM placements WHERE map = ? ORDER BY seq", name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var placements []tilemap.Placement
	for rows.Next() {
		var pl tilemap.Placement
		if err := rows.Scan(&pl.Stamp, &pl.X, &pl.Y, &pl.Flags); err != nil {
			return nil, err
		}
		placements = append(placements, pl)
	}
	return placements, rows.Err()
}

func readPaths(db *sql.DB, name string) ([]*collision.Path, error) {
	rows, err := db.Query("SELECT flags, layer, generate_width, points FROM paths WHERE map = ? ORDER BY seq", name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var paths []*collision.Path
	for rows.Next() {
		var path collision.Path
		var points []byte
		if err := rows.Scan(&path.Flags, &path.Layer, &path.GenerateWidth, &points); err != nil {
			return nil, err
		}
		if path.Points, err = decodePoints(points); err != nil {
			return nil, fmt.Errorf("map %q: %w", name, err)
		}
		paths = append(paths, &path)
	}
	return paths, rows.Err()
}

// checkReferences verifies that every id stored in the archive names an
// existing tile, terrain tile or stamp.
func checkReferences(p *project.Project) error {
	tiles, terrainTiles := p.Tiles.Len(), p.Terrain.Len()
	checkTile := func(where string, id tile.MaybeID) error {
		if v, ok := id.Get(); ok && int(v) >= tiles {
			return fmt.Errorf("%w: %s references tile %d of %d", ErrInvalidArchive, where, v, tiles)
		}
		return nil
	}
	checkCells := func(where string, cells []tile.Ref) error {
		for i, r := range cells {
			if err := checkTile(fmt.Sprintf("%s cell %d", where, i), r.ID); err != nil {
				return err
			}
		}
		return nil
	}

	if err := checkTile("background", p.Background); err != nil {
		return err
	}
	if v, ok := p.DefaultTerrain.Get(); ok && int(v) >= terrainTiles {
		return fmt.Errorf("%w: default terrain %d of %d", ErrInvalidArchive, v, terrainTiles)
	}
	for id, s := range p.Stamps {
		if err := checkCells(fmt.Sprintf("stamp %d", id), s.Cells); err != nil {
			return err
		}
	}
	for _, name := range p.MapNames() {
		m := p.Maps[name]
		if err := checkCells(fmt.Sprintf("map %q", name), m.Cells()); err != nil {
			return err
		}
		for _, pl := range m.Placements {
			if _, ok := p.Stamps[pl.Stamp]; !ok {
				return fmt.Errorf("%w: map %q places missing stamp %d", ErrInvalidArchive, name, pl.Stamp)
			}
		}
		c := p.Collision[name]
		for y := range c.Height() {
			for x := range c.Width() {
				if v, ok := c.TerrainTile(x, y).Get(); ok && int(v) >= terrainTiles {
					return fmt.Errorf("%w: collision map %q cell (%d, %d) references terrain tile %d of %d",
						ErrInvalidArchive, name, x, y, v, terrainTiles)
				}
			}
		}
	}
	return nil
}
