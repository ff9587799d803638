package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/eak1mov/go-beehive/block"
	"github.com/eak1mov/go-beehive/project"
	"github.com/eak1mov/go-beehive/record"
	"github.com/eak1mov/go-beehive/terrain"
	"github.com/eak1mov/go-beehive/tile"
	"github.com/google/subcommands"
	"github.com/schollz/progressbar/v3"
)

type blocksCmd struct {
	inputPath  string
	outputPath string
	scan       string
}

func (c *blocksCmd) Name() string     { return "blocks" }
func (c *blocksCmd) Synopsis() string { return "pack maps into blocks and write hardware data" }
func (c *blocksCmd) Usage() string {
	return "beehive blocks -i <path> -o <dir> [-scan <order>]\n"
}
func (c *blocksCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.inputPath, "i", "", "Project file path")
	f.StringVar(&c.outputPath, "o", "", "Output directory")
	f.StringVar(&c.scan, "scan", block.ScanRowMajor.String(), "Block index order (rowmajor, hilbert)")
}

func writeFile(path string, write func(io.Writer) error) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	if err := write(writer); err != nil {
		return err
	}
	if err := writer.Flush(); err != nil {
		return err
	}
	return file.Close()
}

func (c *blocksCmd) export(p *project.Project) error {
	if err := os.MkdirAll(c.outputPath, 0o755); err != nil {
		return err
	}

	tiles := make([]*tile.Tile, 0, p.Tiles.Len())
	for _, t := range p.Tiles.All() {
		tiles = append(tiles, t)
	}
	if err := writeFile(filepath.Join(c.outputPath, "tiles.bin"), func(w io.Writer) error {
		return record.WriteTiles(tiles, w)
	}); err != nil {
		return err
	}

	terrainTiles := make([]*terrain.Tile, 0, p.Terrain.Len())
	for _, t := range p.Terrain.All() {
		terrainTiles = append(terrainTiles, t)
	}
	if err := writeFile(filepath.Join(c.outputPath, "terrain.bin"), func(w io.Writer) error {
		return record.WriteTerrain(terrainTiles, w)
	}); err != nil {
		return err
	}
	if err := writeFile(filepath.Join(c.outputPath, "terrain_angles.bin"), func(w io.Writer) error {
		return record.WriteTerrainAngles(terrainTiles, w)
	}); err != nil {
		return err
	}

	graphics, err := p.PackBlocks()
	if err != nil {
		return err
	}
	graphicsWord := func(cell block.Cell) uint16 {
		var palette uint8
		if int(cell.ID) < len(tiles) {
			palette = tiles[cell.ID].Palette
		}
		return record.GraphicsWord(tile.ID(cell.ID), tile.Flags(cell.Flags), palette)
	}
	for _, mb := range graphics {
		if err := writeBlocks(c.outputPath, mb.Name+".blk", mb.Result, graphicsWord); err != nil {
			return err
		}
	}

	collision, err := p.PackTerrainBlocks()
	if err != nil {
		return err
	}
	collisionWord := func(cell block.Cell) uint16 {
		return uint16(cell.ID)&terrain.IDMask | uint16(cell.Flags)&^terrain.IDMask
	}
	for _, mb := range collision {
		if err := writeBlocks(c.outputPath, mb.Name+".cblk", mb.Result, collisionWord); err != nil {
			return err
		}
	}
	return nil
}

// writeBlocks writes the unique blocks of r and its block map side by side.
func writeBlocks(dir, name string, r *block.Result, encode func(block.Cell) uint16) error {
	if err := writeFile(filepath.Join(dir, name), func(w io.Writer) error {
		return record.WriteBlocks(r, encode, w)
	}); err != nil {
		return err
	}
	return writeFile(filepath.Join(dir, name+"map"), func(w io.Writer) error {
		return record.WriteBlockMap(r, w)
	})
}

func (c *blocksCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if c.outputPath == "" {
		log.Println("missing output directory")
		return subcommands.ExitUsageError
	}

	scan, ok := block.ParseScan(c.scan)
	if !ok {
		log.Printf("invalid scan order: %q", c.scan)
		return subcommands.ExitUsageError
	}

	bar := progressbar.NewOptions(-1, progressbar.OptionShowIts(), progressbar.OptionShowCount())
	p, err := loadProject(c.inputPath,
		project.WithScanOrder(scan),
		project.WithProgress(func(string) { bar.Add(1) }),
	)
	if err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}

	err = c.export(p)
	bar.Finish()
	fmt.Println()

	if err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}

	return subcommands.ExitSuccess
}
