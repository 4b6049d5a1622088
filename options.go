package tilerecon

import (
	"fmt"
	"runtime"
)

type Options struct {
	// Substring of a tileset name that marks it as a decoration tileset.
	// Decoration tiles are matched ignoring their transparent pixels.
	DecorationsKeyword string `yaml:"decorations_keyword"`
	// Substrings of a tileset name that mark all of its tiles as liquid.
	// Neighbor inference prefers a liquid neighbor over the majority.
	LiquidKeywords []string `yaml:"liquid_keywords"`
	// Minimum score (exclusive) for a best-effort base tile when no exact
	// match exists.
	BestEffortThreshold float64 `yaml:"best_effort_threshold"`
	// Fail the conversion when a tile without base has no resolved neighbor.
	// Off: the tile is left empty in base_tiles.
	StrictInference bool `yaml:"strict_inference"`
	// Parallel scans during matching and parallel maps during a batch.
	// 0 uses GOMAXPROCS.
	Workers int `yaml:"workers"`
}

func DefaultOptions() Options {
	return Options{
		DecorationsKeyword:  "decorations",
		LiquidKeywords:      []string{"liquid"},
		BestEffortThreshold: 0.1,
		StrictInference:     false,
		Workers:             0,
	}
}

func (o Options) Validate() error {
	if o.DecorationsKeyword == "" {
		return fmt.Errorf("decorations_keyword must not be empty")
	}
	if o.BestEffortThreshold < 0 || o.BestEffortThreshold >= 1 {
		return fmt.Errorf("best_effort_threshold %.3f out of range [0,1)", o.BestEffortThreshold)
	}
	if o.Workers < 0 {
		return fmt.Errorf("workers must be >= 0, got %d", o.Workers)
	}
	return nil
}

func (o Options) workers() int {
	if o.Workers > 0 {
		return o.Workers
	}
	return max(1, runtime.GOMAXPROCS(0))
}
