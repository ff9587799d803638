package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"image/png"
	"log"
	"log/slog"
	"os"

	"github.com/eak1mov/go-beehive/project"
	"github.com/eak1mov/go-beehive/tile"
	"github.com/google/subcommands"
)

type importCmd struct {
	inputPath string
	imagePath string
	mapName   string
	stampName string
}

func (c *importCmd) Name() string     { return "import" }
func (c *importCmd) Synopsis() string { return "import an indexed PNG into a map or a stamp" }
func (c *importCmd) Usage() string {
	return "beehive import -i <path> -png <path> (-map <name> | -stamp <name>)\n"
}
func (c *importCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.inputPath, "i", "", "Project file path, created if missing")
	f.StringVar(&c.imagePath, "png", "", "Indexed PNG image path")
	f.StringVar(&c.mapName, "map", "", "Map to write the image into, created if missing")
	f.StringVar(&c.stampName, "stamp", "", "Stamp to create from the image")
}

func readPaletted(path string) (*image.Paletted, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	img, err := png.Decode(file)
	if err != nil {
		return nil, err
	}
	paletted, ok := img.(*image.Paletted)
	if !ok {
		return nil, fmt.Errorf("%s: image is not indexed", path)
	}
	return paletted, nil
}

func (c *importCmd) openProject() (*project.Project, error) {
	p, err := loadProject(c.inputPath)
	if err == nil {
		return p, nil
	}
	if _, statErr := os.Stat(c.inputPath); !errors.Is(statErr, os.ErrNotExist) {
		return nil, err
	}
	cfg, err := loadPlatform()
	if err != nil {
		return nil, err
	}
	return project.New(cfg, project.WithLogger(slog.Default()), project.WithWorkers(*workers))
}

func (c *importCmd) importImage(p *project.Project, img *image.Paletted) error {
	refs, width, height, err := p.ImportTiles(img)
	if err != nil {
		return err
	}

	if c.stampName != "" {
		s := p.AddStamp(c.stampName, width, height)
		return p.ReplaceStamp(s.ID, refs, width, height)
	}

	m, ok := p.Maps[c.mapName]
	if !ok {
		m, _, err = p.AddMap(c.mapName, width, height)
		if err != nil {
			return err
		}
	}
	for pos, r := range tile.IterRefs(refs, width) {
		if x, y := pos[0], pos[1]; x < m.Width() && y < m.Height() {
			m.Set(x, y, r)
		}
	}
	return nil
}

func (c *importCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if (c.mapName == "") == (c.stampName == "") {
		log.Println("exactly one of -map and -stamp is required")
		return subcommands.ExitUsageError
	}

	img, err := readPaletted(c.imagePath)
	if err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}
	p, err := c.openProject()
	if err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}

	before := p.Tiles.Len()
	if err := c.importImage(p, img); err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}
	fmt.Printf("new tiles: %d (total %d)\n", p.Tiles.Len()-before, p.Tiles.Len())

	if err := saveProject(c.inputPath, p); err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}

	return subcommands.ExitSuccess
}
