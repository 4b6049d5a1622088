package main

import (
	"fmt"
	"io"

	"github.com/setanarut/tilerecon"
	"github.com/setanarut/tilerecon/utils"
	"github.com/spf13/cobra"
)

var cellX, cellY int

var inspectCmd = &cobra.Command{
	Use:   "inspect <map image>",
	Short: "Show the layers assigned to one map cell",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		conv, err := newConverter()
		if err != nil {
			return err
		}
		img, err := utils.ReadImage(args[0])
		if err != nil {
			return err
		}
		res, err := conv.ConvertImage(cmd.Context(), utils.BaseName(args[0]), img)
		if err != nil {
			return err
		}
		v, ok := res.Map.Inspect(cellX, cellY)
		if !ok {
			return fmt.Errorf("cell (%d,%d) is empty or outside the %dx%d map", cellX, cellY, res.Map.Width, res.Map.Height)
		}
		printView(cmd.OutOrStdout(), v)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)

	inspectCmd.Flags().IntVar(&cellX, "x", 0, "cell column")
	inspectCmd.Flags().IntVar(&cellY, "y", 0, "cell row")
}

func printView(w io.Writer, v tilerecon.TileView) {
	fmt.Fprintf(w, "cell (%d,%d)\n", v.Position.X, v.Position.Y)
	base := describe(v.Base)
	if v.BasePredicted {
		base += " (predicted)"
	}
	fmt.Fprintf(w, "  base:           %s\n", base)
	fmt.Fprintf(w, "  decoration:     %s\n", describe(v.Decoration))
	fmt.Fprintf(w, "  stacked object: %s\n", describe(v.StackedObject))
}

func describe(t *tilerecon.TilesetTile) string {
	if t == nil {
		return "-"
	}
	return fmt.Sprintf("%s #%d (%d,%d)", t.Tileset.Name, t.LocalIndex, t.Position.X, t.Position.Y)
}
