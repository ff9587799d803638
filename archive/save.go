package archive

import (
	"bytes"
	"database/sql"
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"
	"strconv"

	"github.com/eak1mov/go-beehive/project"
	"github.com/eak1mov/go-beehive/record"
	"github.com/eak1mov/go-beehive/terrain"
	"github.com/eak1mov/go-beehive/tile"
)

// Save writes p to a new SQLite file at filePath, replacing any existing file
// once the new one is complete.
func Save(filePath string, p *project.Project, opts ...Option) error {
	config := newConfig(opts)
	if config.Compression != CompressionNone && config.Compression != CompressionGzip {
		return fmt.Errorf("%w: %v", ErrUnsupportedCompression, config.Compression)
	}

	tmpPath := filePath + ".tmp"
	if err := os.Remove(tmpPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if err := save(tmpPath, p, config); err != nil {
		return errors.Join(err, os.Remove(tmpPath))
	}
	return os.Rename(tmpPath, filePath)
}

func save(filePath string, p *project.Project, config config) (err error) {
	db, err := sql.Open("sqlite3", filePath)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, db.Close()) }()

	if _, err := db.Exec(schema); err != nil {
		return err
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	metadata := map[string]string{
		"version":         version,
		"platform":        p.Config.Name,
		"compression":     config.Compression.String(),
		"background":      "",
		"default_terrain": "",
	}
	if id, ok := p.Background.Get(); ok {
		metadata["background"] = strconv.FormatUint(uint64(id), 10)
	}
	if id, ok := p.DefaultTerrain.Get(); ok {
		metadata["default_terrain"] = strconv.FormatUint(uint64(id), 10)
	}
	for k, v := range metadata {
		if _, err := tx.Exec("INSERT INTO metadata (name, value) VALUES (?, ?)", k, v); err != nil {
			return err
		}
	}

	config.Logger.Debug("beehive: saving tiles", "count", p.Tiles.Len())
	for id, t := range p.Tiles.All() {
		var pixels bytes.Buffer
		if err := record.WriteTiles([]*tile.Tile{t}, &pixels); err != nil {
			return err
		}
		if _, err := tx.Exec("INSERT INTO tiles (id, palette, pixels) VALUES (?, ?, ?)", id, t.Palette, pixels.Bytes()); err != nil {
			return err
		}
	}

	config.Logger.Debug("beehive: saving terrain", "count", p.Terrain.Len())
	for id, t := range p.Terrain.All() {
		var heights bytes.Buffer
		if err := record.WriteTerrain([]*terrain.Tile{t}, &heights); err != nil {
			return err
		}
		if _, err := tx.Exec("INSERT INTO terrain (id, heights) VALUES (?, ?)", id, heights.Bytes()); err != nil {
			return err
		}
	}

	for _, id := range slices.Sorted(maps.Keys(p.Stamps)) {
		s := p.Stamps[id]
		cells, err := compress(encodeRefs(s.Cells), config.Compression)
		if err != nil {
			return err
		}
		if _, err := tx.Exec("INSERT INTO stamps (id, name, width, height, cells) VALUES (?, ?, ?, ?, ?)",
			s.ID, s.Name, s.Width, s.Height, cells); err != nil {
			return err
		}
	}

	for _, name := range p.MapNames() {
		if err := saveMap(tx, p, name, config); err != nil {
			return fmt.Errorf("map %q: %w", name, err)
		}
	}

	return tx.Commit()
}

func saveMap(tx *sql.Tx, p *project.Project, name string, config config) error {
	m, c := p.Maps[name], p.Collision[name]

	cells, err := compress(encodeRefs(m.Cells()), config.Compression)
	if err != nil {
		return err
	}
	var words bytes.Buffer
	if err := record.WriteWords(c.Words(), &words); err != nil {
		return err
	}
	collision, err := compress(words.Bytes(), config.Compression)
	if err != nil {
		return err
	}
	if _, err := tx.Exec("INSERT INTO maps (name, width, height, cells, collision) VALUES (?, ?, ?, ?, ?)",
		name, m.Width(), m.Height(), cells, collision); err != nil {
		return err
	}

	for seq, pl := range m.Placements {
		if _, err := tx.Exec("INSERT INTO placements (map, seq, stamp, x, y, flags) VALUES (?, ?, ?, ?, ?, ?)",
			name, seq, pl.Stamp, pl.X, pl.Y, pl.Flags); err != nil {
			return err
		}
	}
	for seq, path := range c.Paths {
		if _, err := tx.Exec("INSERT INTO paths (map, seq, flags, layer, generate_width, points) VALUES (?, ?, ?, ?, ?, ?)",
			name, seq, path.Flags, path.Layer, path.GenerateWidth, encodePoints(path.Points)); err != nil {
			return err
		}
	}
	return nil
}
