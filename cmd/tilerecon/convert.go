package main

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/setanarut/tilerecon"
	"github.com/setanarut/tilerecon/report"
	"github.com/setanarut/tilerecon/utils"
	"github.com/spf13/cobra"
)

var (
	outPath    string
	outDir     string
	indent     bool
	withReport bool
	families   int
)

var convertCmd = &cobra.Command{
	Use:   "convert <map image>",
	Short: "Convert one map image into a Tiled JSON map",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		applyOutputFlags(cmd)
		conv, err := newConverter()
		if err != nil {
			return err
		}
		img, err := utils.ReadImage(args[0])
		if err != nil {
			return err
		}
		name := utils.BaseName(args[0])
		res, err := conv.ConvertImage(cmd.Context(), name, img)
		if err != nil {
			return err
		}

		data, err := res.JSON(cfg.Output.Indent)
		if err != nil {
			return err
		}
		out := outPath
		if out == "" {
			out = filepath.Join(cfg.Output.Dir, name+".json")
		}
		if err := os.WriteFile(out, data, 0o644); err != nil {
			return err
		}
		log.WithField("map", name).Infof("wrote %s", out)

		if cfg.Output.Report {
			return writeReport(res, conv.Catalog, filepath.Join(filepath.Dir(out), name))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(convertCmd)

	convertCmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default <dir>/<map>.json)")
	addOutputFlags(convertCmd)
}

func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&indent, "indent", false, "indent JSON output")
	cmd.Flags().BoolVar(&withReport, "report", false, "write <map>.report.json and a color family swatch")
	cmd.Flags().IntVar(&families, "families", report.DefaultFamilies, "color families for unresolved tiles")
	cmd.Flags().StringVar(&outDir, "dir", "", "output directory")
}

// applyOutputFlags lets flags set on the command line win over the config
// file.
func applyOutputFlags(cmd *cobra.Command) {
	if cmd.Flags().Changed("indent") {
		cfg.Output.Indent = indent
	}
	if cmd.Flags().Changed("report") {
		cfg.Output.Report = withReport
	}
	if cmd.Flags().Changed("families") {
		cfg.Output.Families = families
	}
	if cmd.Flags().Changed("dir") {
		cfg.Output.Dir = outDir
	}
	if cfg.Output.Dir == "" {
		cfg.Output.Dir = "."
	}
}

// writeReport writes <base>.report.json and, when there are unresolved
// tiles, the <base>.families.png swatch.
func writeReport(res *tilerecon.Result, c *tilerecon.Catalog, base string) error {
	r, err := report.Build(res, c, cfg.Output.Families)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(base+".report.json", data, 0o644); err != nil {
		return err
	}
	if p := r.Palette(); len(p) > 0 {
		if err := utils.SavePalette(p, 32, base+".families.png"); err != nil {
			return err
		}
	}
	log.WithField("map", res.Map.Name).Infof("fidelity %.4f, mean dE %.2f, %d unresolved tiles in %d families",
		r.Fidelity, r.MeanDeltaE, len(r.Unresolved), len(r.Families))
	return nil
}
