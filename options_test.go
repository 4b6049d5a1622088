package tilerecon

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDefaultOptions(t *testing.T) {
	opt := DefaultOptions()
	require.NoError(t, opt.Validate())
	assert.Equal(t, "decorations", opt.DecorationsKeyword)
	assert.Equal(t, []string{"liquid"}, opt.LiquidKeywords)
	assert.Equal(t, 0.1, opt.BestEffortThreshold)
	assert.False(t, opt.StrictInference)
	assert.Equal(t, max(1, runtime.GOMAXPROCS(0)), opt.workers())
}

func TestOptionsValidate(t *testing.T) {
	for name, mod := range map[string]func(*Options){
		"empty keyword":      func(o *Options) { o.DecorationsKeyword = "" },
		"negative threshold": func(o *Options) { o.BestEffortThreshold = -0.1 },
		"threshold of one":   func(o *Options) { o.BestEffortThreshold = 1 },
		"negative workers":   func(o *Options) { o.Workers = -1 },
	} {
		opt := DefaultOptions()
		mod(&opt)
		assert.Error(t, opt.Validate(), name)
	}
}

func TestOptionsFromYAML(t *testing.T) {
	opt := DefaultOptions()
	err := yaml.Unmarshal([]byte("best_effort_threshold: 0.25\nstrict_inference: true\nworkers: 3\n"), &opt)
	require.NoError(t, err)

	assert.Equal(t, 0.25, opt.BestEffortThreshold)
	assert.True(t, opt.StrictInference)
	assert.Equal(t, 3, opt.workers())
	// Keys left out keep their defaults.
	assert.Equal(t, "decorations", opt.DecorationsKeyword)
}
