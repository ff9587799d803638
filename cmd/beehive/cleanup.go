package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/google/subcommands"
)

type cleanupCmd struct {
	inputPath string
	tiles     bool
	terrain   bool
}

func (c *cleanupCmd) Name() string     { return "cleanup" }
func (c *cleanupCmd) Synopsis() string { return "remove unused and duplicate tiles" }
func (c *cleanupCmd) Usage() string {
	return "beehive cleanup -i <path> [-tiles=false] [-terrain=false]\n"
}
func (c *cleanupCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.inputPath, "i", "", "Project file path")
	f.BoolVar(&c.tiles, "tiles", true, "Clean up graphics tiles")
	f.BoolVar(&c.terrain, "terrain", true, "Clean up terrain tiles and empty paths")
}

func (c *cleanupCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	p, err := loadProject(c.inputPath)
	if err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}

	if c.tiles {
		fmt.Printf("tiles removed: %d\n", p.CleanupTiles())
	}
	if c.terrain {
		fmt.Printf("terrain tiles removed: %d\n", p.CleanupTerrainTiles())
	}

	if err := saveProject(c.inputPath, p); err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}

	return subcommands.ExitSuccess
}
