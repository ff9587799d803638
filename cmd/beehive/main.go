package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/eak1mov/go-beehive/archive"
	"github.com/eak1mov/go-beehive/platform"
	"github.com/eak1mov/go-beehive/project"
	"github.com/google/subcommands"
	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/viper"
)

var (
	platformName = flag.String("platform", platform.MegaDrive.Name, "Target platform preset")
	configPath   = flag.String("config", "", "Config file overriding preset fields")
	workers      = flag.Int("workers", 1, "Goroutines used by terrain generation and block packing")
	verbose      = flag.Bool("v", false, "Enable debug logging")
)

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(&statsCmd{}, "")
	subcommands.Register(&importCmd{}, "")
	subcommands.Register(&terrainCmd{}, "")
	subcommands.Register(&blocksCmd{}, "")
	subcommands.Register(&cleanupCmd{}, "")

	flag.Parse()
	if *verbose {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}
	os.Exit(int(subcommands.Execute(context.Background())))
}

// loadPlatform returns the selected preset with config file overrides.
func loadPlatform() (platform.Config, error) {
	cfg, ok := platform.Lookup(*platformName)
	if !ok {
		return platform.Config{}, fmt.Errorf("unknown platform %q", *platformName)
	}
	if *configPath != "" {
		v := viper.New()
		v.SetConfigFile(*configPath)
		if err := v.ReadInConfig(); err != nil {
			return platform.Config{}, err
		}
		if err := v.Unmarshal(&cfg); err != nil {
			return platform.Config{}, err
		}
	}
	return cfg, cfg.Validate()
}

func loadProject(path string, opts ...project.Option) (*project.Project, error) {
	cfg, err := loadPlatform()
	if err != nil {
		return nil, err
	}
	opts = append([]project.Option{project.WithLogger(slog.Default()), project.WithWorkers(*workers)}, opts...)
	return archive.Load(path, cfg,
		archive.WithLogger(slog.Default()),
		archive.WithProjectOptions(opts...),
	)
}

func saveProject(path string, p *project.Project) error {
	return archive.Save(path, p, archive.WithLogger(slog.Default()))
}
