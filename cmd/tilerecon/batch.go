package main

import (
	"encoding/json"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/setanarut/tilerecon"
	"github.com/setanarut/tilerecon/utils"
	"github.com/spf13/cobra"
)

const manifestFile = "manifest.json"

var zipOutput bool

type manifest struct {
	BatchID string          `json:"batch_id"`
	Created time.Time       `json:"created"`
	Maps    []manifestEntry `json:"maps"`
}

type manifestEntry struct {
	Map   string `json:"map"`
	JobID string `json:"job_id,omitempty"`
	File  string `json:"file,omitempty"`
	Error string `json:"error,omitempty"`
}

var batchCmd = &cobra.Command{
	Use:   "batch <map image or directory>...",
	Short: "Convert many map images against one tileset catalog",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		applyOutputFlags(cmd)
		if cmd.Flags().Changed("zip") {
			cfg.Output.Zip = zipOutput
		}
		conv, err := newConverter()
		if err != nil {
			return err
		}
		files, err := mapFiles(args)
		if err != nil {
			return err
		}

		sources := make([]tilerecon.MapSource, len(files))
		for i, f := range files {
			sources[i] = tilerecon.MapSource{
				Name: utils.BaseName(f),
				Load: func() (image.Image, error) { return utils.ReadImage(f) },
			}
		}
		results := conv.ConvertBatch(cmd.Context(), sources)

		now := time.Now()
		man, entries, err := collect(results, now)
		if err != nil {
			return err
		}
		if cfg.Output.Report {
			for i, r := range results {
				if r.Err != nil {
					continue
				}
				base := filepath.Join(cfg.Output.Dir, strings.TrimSuffix(man.Maps[i].File, ".json"))
				if err := writeReport(r.Result, conv.Catalog, base); err != nil {
					log.WithField("map", r.Name).Warnf("report: %v", err)
				}
			}
		}

		if cfg.Output.Zip {
			return writeArchive(filepath.Join(cfg.Output.Dir, utils.ArchiveName(now)), entries, now)
		}
		for _, e := range entries {
			if err := os.WriteFile(filepath.Join(cfg.Output.Dir, e.Name), e.Data, 0o644); err != nil {
				return err
			}
		}
		log.Infof("wrote %d files to %s", len(entries), cfg.Output.Dir)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().BoolVar(&zipOutput, "zip", false, "pack the maps into maps_export_<date>.zip")
	addOutputFlags(batchCmd)
}

// mapFiles expands directories into their image files, keeping argument
// order.
func mapFiles(args []string) ([]string, error) {
	var files []string
	for _, a := range args {
		fi, err := os.Stat(a)
		if err != nil {
			return nil, err
		}
		if !fi.IsDir() {
			files = append(files, a)
			continue
		}
		imgs, err := utils.ListImages(a)
		if err != nil {
			return nil, err
		}
		files = append(files, imgs...)
	}
	return files, nil
}

// collect encodes the converted maps and appends the batch manifest, which
// has one entry per result. It fails when no map converted.
func collect(results []tilerecon.BatchResult, now time.Time) (manifest, []utils.ZipEntry, error) {
	man := manifest{BatchID: uuid.NewString(), Created: now}
	names := fileNamer{manifestFile: true}
	var entries []utils.ZipEntry
	for _, r := range results {
		e := manifestEntry{Map: r.Name}
		if r.Err != nil {
			e.Error = r.Err.Error()
			man.Maps = append(man.Maps, e)
			continue
		}
		data, err := r.Result.JSON(true)
		if err != nil {
			return man, nil, err
		}
		e.JobID = r.Result.JobID
		e.File = names.next(r.Name)
		man.Maps = append(man.Maps, e)
		entries = append(entries, utils.ZipEntry{Name: e.File, Data: data})
	}
	if len(entries) == 0 {
		return man, nil, fmt.Errorf("none of %d maps could be converted", len(results))
	}

	manData, err := json.MarshalIndent(man, "", "  ")
	if err != nil {
		return man, nil, err
	}
	return man, append(entries, utils.ZipEntry{Name: manifestFile, Data: manData}), nil
}

// fileNamer hands out distinct JSON file names. A repeated map name gets a
// _2, _3, ... suffix.
type fileNamer map[string]bool

func (n fileNamer) next(name string) string {
	file := name + ".json"
	for i := 2; n[file]; i++ {
		file = fmt.Sprintf("%s_%d.json", name, i)
	}
	n[file] = true
	return file
}

func writeArchive(path string, entries []utils.ZipEntry, modified time.Time) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := utils.WriteZip(f, entries, modified); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	log.Infof("wrote %s (%d files)", path, len(entries))
	return nil
}
