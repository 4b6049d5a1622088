package tilerecon

import (
	"context"
	"errors"
	"image"
	"testing"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loaded(img image.Image) func() (image.Image, error) {
	return func() (image.Image, error) { return img, nil }
}

func TestConvertBatchSkipsFailingMaps(t *testing.T) {
	opt := DefaultOptions()
	opt.Workers = 2
	conv := NewConverter(testCatalog(t, opt), opt)
	conv.Log, _ = logtest.NewNullLogger()

	errMissing := errors.New("missing file")
	sources := []MapSource{
		{Name: "one", Load: loaded(imageOf(newSheet(2, 1).put(0, 0, tileA).put(1, 0, tileB)))},
		{Name: "gone", Load: func() (image.Image, error) { return nil, errMissing }},
		{Name: "odd", Load: loaded(image.NewNRGBA(image.Rect(0, 0, 12, 12)))},
		{Name: "nil"},
		{Name: "two", Load: loaded(imageOf(newSheet(1, 1).put(0, 0, tileW)))},
	}

	results := conv.ConvertBatch(t.Context(), sources)

	require.Len(t, results, len(sources))
	for i, r := range results {
		assert.Equal(t, sources[i].Name, r.Name)
	}
	require.NoError(t, results[0].Err)
	assert.Equal(t, "one", results[0].Result.Map.Name)
	assert.Equal(t, []int{1, 2}, results[0].Result.Document.TileLayer(LayerBaseTiles).Data)

	assert.ErrorIs(t, results[1].Err, errMissing)
	assert.ErrorIs(t, results[2].Err, ErrInvalidDimensions)
	assert.Error(t, results[3].Err)
	assert.Nil(t, results[3].Result)

	require.NoError(t, results[4].Err)
	// Each map registers its own tilesets from gid 1.
	assert.Equal(t, 1, results[4].Result.Document.Tilesets[0].FirstGID)
	assert.Equal(t, "liquid_water", results[4].Result.Document.Tilesets[0].Name)
}

func TestConvertBatchStrictFailureIsPerMap(t *testing.T) {
	opt := DefaultOptions()
	opt.StrictInference = true
	conv := NewConverter(testCatalog(t, opt), opt)
	conv.Log, _ = logtest.NewNullLogger()

	results := conv.ConvertBatch(t.Context(), []MapSource{
		{Name: "lost", Load: loaded(imageOf(newSheet(1, 1).put(0, 0, stranger)))},
		{Name: "fine", Load: loaded(imageOf(newSheet(1, 1).put(0, 0, tileA)))},
	})

	assert.ErrorIs(t, results[0].Err, ErrFailedInference)
	assert.NoError(t, results[1].Err)
}

func TestConvertBatchCancelled(t *testing.T) {
	opt := DefaultOptions()
	conv := NewConverter(testCatalog(t, opt), opt)
	conv.Log, _ = logtest.NewNullLogger()

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	results := conv.ConvertBatch(ctx, []MapSource{
		{Name: "a", Load: loaded(imageOf(newSheet(1, 1).put(0, 0, tileA)))},
		{Name: "b", Load: loaded(imageOf(newSheet(1, 1).put(0, 0, tileB)))},
	})

	for _, r := range results {
		assert.ErrorIs(t, r.Err, context.Canceled)
		assert.Nil(t, r.Result)
	}
}
