package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/eak1mov/go-beehive/project"
	"github.com/google/subcommands"
	"github.com/schollz/progressbar/v3"
)

type terrainCmd struct {
	inputPath string
	fromTiles string
}

func (c *terrainCmd) Name() string     { return "terrain" }
func (c *terrainCmd) Synopsis() string { return "regenerate terrain tiles from bezier paths or graphics" }
func (c *terrainCmd) Usage() string {
	return "beehive terrain -i <path> [-from-tiles <map>]\n"
}
func (c *terrainCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.inputPath, "i", "", "Project file path")
	f.StringVar(&c.fromTiles, "from-tiles", "", "Derive terrain for this map from its graphics tiles instead of paths")
}

func (c *terrainCmd) generate(p *project.Project) ([]project.MapReport, error) {
	if c.fromTiles == "" {
		return p.GenerateTerrain()
	}
	report, err := p.GenerateTerrainFromTiles(c.fromTiles)
	if err != nil && len(report.Integrity) == 0 {
		return nil, err
	}
	return []project.MapReport{{Name: c.fromTiles, Report: report}}, err
}

func (c *terrainCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	bar := progressbar.NewOptions(-1, progressbar.OptionShowIts(), progressbar.OptionShowCount())
	p, err := loadProject(c.inputPath, project.WithProgress(func(string) { bar.Add(1) }))
	if err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}

	reports, err := c.generate(p)
	bar.Finish()
	fmt.Println()

	// Hash collisions are reported but the regenerated terrain is still saved.
	status := subcommands.ExitSuccess
	if err != nil {
		log.Println(err)
		status = subcommands.ExitFailure
		if reports == nil {
			return status
		}
	}

	for _, r := range reports {
		fmt.Printf("%s: %d cells, %d new tiles, %d reused\n", r.Name, r.Report.Cells, r.Report.NewTiles, r.Report.ReusedTiles)
	}
	if err := saveProject(c.inputPath, p); err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}

	return status
}
