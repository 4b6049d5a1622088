// Command tilerecon rebuilds Tiled maps from flattened map images and the
// tileset images they were drawn with.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/setanarut/tilerecon"
	"github.com/setanarut/tilerecon/utils"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string
	logFile    string

	tilesetPaths []string
	customPaths  map[string]string
	threshold    float64
	strict       bool
	workers      int

	cfg Config
	log *logrus.Logger
)

var rootCmd = &cobra.Command{
	Use:           "tilerecon",
	Short:         "Rebuild Tiled maps from flattened map images",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfg, err = LoadConfig(configPath); err != nil {
			return err
		}
		if cmd.Flags().Changed("log-level") {
			cfg.Log.Level = logLevel
		}
		if cmd.Flags().Changed("log-file") {
			cfg.Log.File = logFile
		}
		if cmd.Flags().Changed("threshold") {
			cfg.Conversion.BestEffortThreshold = threshold
		}
		if cmd.Flags().Changed("strict") {
			cfg.Conversion.StrictInference = strict
		}
		if cmd.Flags().Changed("workers") {
			cfg.Conversion.Workers = workers
		}
		if err := cfg.Conversion.Validate(); err != nil {
			return err
		}
		log, err = newLogger(cfg.Log)
		return err
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "YAML config file (default $"+configEnv+")")
	pf.StringVar(&logLevel, "log-level", "info", "log level")
	pf.StringVar(&logFile, "log-file", "", "also log to this rotating file")

	pf.StringSliceVarP(&tilesetPaths, "tileset", "t", nil, "tileset image or directory of images, in catalog order")
	pf.StringToStringVar(&customPaths, "tileset-path", nil, "image path written for a tileset, as name=path")
	pf.Float64Var(&threshold, "threshold", 0.1, "minimum best-effort score (exclusive)")
	pf.BoolVar(&strict, "strict", false, "fail when a tile cannot be inferred from its neighbors")
	pf.IntVar(&workers, "workers", 0, "parallel workers, 0 for GOMAXPROCS")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// buildCatalog imports every tileset in flag order. Images that cannot be
// cut into 8x8 tiles are skipped with a warning.
func buildCatalog() (*tilerecon.Catalog, error) {
	if len(tilesetPaths) == 0 {
		return nil, errors.New("no tilesets given, use --tileset")
	}
	var files []string
	for _, p := range tilesetPaths {
		fi, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !fi.IsDir() {
			files = append(files, p)
			continue
		}
		imgs, err := utils.ListImages(p)
		if err != nil {
			return nil, err
		}
		files = append(files, imgs...)
	}

	c := tilerecon.NewCatalog(cfg.Conversion)
	for _, f := range files {
		img, err := utils.ReadImage(f)
		if err != nil {
			return nil, err
		}
		ts, err := c.Add(tilerecon.NewTilesetSource(utils.BaseName(f), filepath.Base(f), img))
		if errors.Is(err, tilerecon.ErrInvalidDimensions) {
			log.WithField("tileset", f).Warn(err)
			continue
		}
		if err != nil {
			return nil, err
		}
		if p, ok := customPaths[ts.Name]; ok {
			ts.SetCustomPath(p)
		}
		log.WithField("tileset", ts.Name).Debugf("imported %d tiles (%dx%d grid)", len(ts.Tiles), ts.GridSize.X, ts.GridSize.Y)
	}
	if len(c.Tilesets) == 0 {
		return nil, errors.New("no usable tilesets")
	}
	return c, nil
}

func newConverter() (*tilerecon.Converter, error) {
	c, err := buildCatalog()
	if err != nil {
		return nil, err
	}
	conv := tilerecon.NewConverter(c, cfg.Conversion)
	conv.Log = log
	return conv, nil
}
