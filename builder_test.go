package tilerecon

import (
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvert(t *testing.T) {
	opt := DefaultOptions()
	c := testCatalog(t, opt)
	logger, hook := logtest.NewNullLogger()
	conv := NewConverter(c, opt)
	conv.Log = logger

	s := newSheet(2, 1).put(0, 0, tileA).put(1, 0, mutate(tileB, 8))
	res, err := conv.Convert(t.Context(), "level1", s.pix, s.width(), s.height())
	require.NoError(t, err)

	_, err = uuid.Parse(res.JobID)
	assert.NoError(t, err)
	assert.Equal(t, "level1", res.Map.Name)
	assert.Equal(t, Stats{Tiles: 2, Exact: 1, BestEffort: 1, BestEffortScores: []float64{0.875}}, res.Stats)
	assert.Equal(t, []int{1, 2}, res.Document.TileLayer(LayerBaseTiles).Data)

	var unidentified []string
	for _, ts := range res.Unidentified {
		unidentified = append(unidentified, ts.Name)
	}
	assert.Equal(t, []string{"decorations", "liquid_water", "props"}, unidentified)

	var warned []any
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel {
			assert.Equal(t, "tileset could not be identified within the map image", e.Message)
			assert.Equal(t, res.JobID, e.Data["job"])
			warned = append(warned, e.Data["tileset"])
		}
	}
	assert.Equal(t, []any{"decorations", "liquid_water", "props"}, warned)

	data, err := res.JSON(false)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"name":"terrain"`)
}

func TestConvertJobIDsDiffer(t *testing.T) {
	opt := DefaultOptions()
	conv := NewConverter(testCatalog(t, opt), opt)
	conv.Log, _ = logtest.NewNullLogger()
	s := newSheet(1, 1).put(0, 0, tileA)

	a, err := conv.Convert(t.Context(), "a", s.pix, 8, 8)
	require.NoError(t, err)
	b, err := conv.Convert(t.Context(), "b", s.pix, 8, 8)
	require.NoError(t, err)
	assert.NotEqual(t, a.JobID, b.JobID)
}

func TestConvertInvalidDimensions(t *testing.T) {
	opt := DefaultOptions()
	conv := NewConverter(testCatalog(t, opt), opt)
	conv.Log, _ = logtest.NewNullLogger()

	_, err := conv.Convert(t.Context(), "odd", make([]byte, 10*8*4), 10, 8)
	assert.ErrorIs(t, err, ErrInvalidDimensions)
}

func TestConvertStrictFailure(t *testing.T) {
	opt := DefaultOptions()
	opt.StrictInference = true
	conv := NewConverter(testCatalog(t, opt), opt)
	conv.Log, _ = logtest.NewNullLogger()

	s := newSheet(1, 1).put(0, 0, stranger)
	res, err := conv.ConvertImage(t.Context(), "lost", imageOf(s))
	assert.ErrorIs(t, err, ErrFailedInference)
	assert.Nil(t, res)
}
