package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/google/subcommands"
)

type statsCmd struct {
	inputPath string
}

func (c *statsCmd) Name() string     { return "stats" }
func (c *statsCmd) Synopsis() string { return "print project contents" }
func (c *statsCmd) Usage() string {
	return "beehive stats -i <path>\n"
}
func (c *statsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.inputPath, "i", "", "Project file path")
}

func (c *statsCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	p, err := loadProject(c.inputPath)
	if err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}

	s := p.Stats()
	fmt.Printf("platform:      %s\n", p.Config.Name)
	fmt.Printf("tiles:         %d / %d\n", s.Tiles, p.Config.MaxTiles)
	fmt.Printf("terrain tiles: %d / %d\n", s.TerrainTiles, p.Config.MaxTerrainTiles)
	fmt.Printf("stamps:        %d (%d placed)\n", s.Stamps, s.Placements)
	fmt.Printf("paths:         %d\n", s.Paths)
	fmt.Printf("maps:          %d\n", s.Maps)
	for _, name := range p.MapNames() {
		m := p.Maps[name]
		fmt.Printf("  %s: %dx%d, %d paths\n", name, m.Width(), m.Height(), len(p.Collision[name].Paths))
	}

	return subcommands.ExitSuccess
}
