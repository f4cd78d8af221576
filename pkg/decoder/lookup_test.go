package decoder

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spotdecode/pkg/codebook"
	"spotdecode/pkg/intensity"
)

func simpleLookupFixture(t *testing.T) (*codebook.Codebook, *SimpleLookup) {
	t.Helper()
	cb := mustCodebook(t, 2, 2,
		codebook.Entry{Target: "A", Channels: []int{0, 1}},
		codebook.Entry{Target: "B", Channels: []int{0, 0}},
	)
	dec, err := NewSimpleLookup()
	require.NoError(t, err)
	return cb, dec
}

func TestSimpleLookupDecodesCleanSpot(t *testing.T) {
	cb, dec := simpleLookupFixture(t)
	tbl := newTestTable(t, 2, 2)
	addPatternSpot(t, tbl, "s0", []int{0, 1}, 0.9, 0.1)

	out, err := dec.Decode(context.Background(), tbl, cb)
	require.NoError(t, err)

	rec := out.Record(0)
	assert.Equal(t, "A", rec.Target)
	assert.Equal(t, 1.0, rec.Quality)
	assert.Equal(t, []bool{true, true}, rec.RoundPass)
	assert.Equal(t, NoCallNone, rec.Reason)
}

func TestSimpleLookupAmbiguousRound(t *testing.T) {
	cb, dec := simpleLookupFixture(t)
	tbl := newTestTable(t, 2, 2)
	// Both channels clear the threshold in round 0.
	addRawSpot(t, tbl, "s0", []float64{0.9, 0.8, 0.1, 0.9})

	out, err := dec.Decode(context.Background(), tbl, cb)
	require.NoError(t, err)

	rec := out.Record(0)
	assert.False(t, rec.Called())
	assert.Equal(t, NoCallAmbiguousRound, rec.Reason)
	assert.Equal(t, []bool{false, true}, rec.RoundPass)
}

func TestSimpleLookupBelowThreshold(t *testing.T) {
	cb, dec := simpleLookupFixture(t)
	tbl := newTestTable(t, 2, 2)
	addRawSpot(t, tbl, "s0", []float64{0.1, 0.2, 0.1, 0.9})

	out, err := dec.Decode(context.Background(), tbl, cb)
	require.NoError(t, err)

	rec := out.Record(0)
	assert.False(t, rec.Called())
	assert.Equal(t, NoCallBelowThreshold, rec.Reason)
}

func TestSimpleLookupNoMatch(t *testing.T) {
	cb, dec := simpleLookupFixture(t)
	tbl := newTestTable(t, 2, 2)
	// Barcode [1,1] is well formed but absent from the codebook.
	addPatternSpot(t, tbl, "s0", []int{1, 1}, 0.9, 0.1)

	out, err := dec.Decode(context.Background(), tbl, cb)
	require.NoError(t, err)

	rec := out.Record(0)
	assert.False(t, rec.Called())
	assert.Equal(t, NoCallNoMatch, rec.Reason)
	assert.Equal(t, []bool{true, true}, rec.RoundPass)
}

func TestSimpleLookupMissingRound(t *testing.T) {
	cb, dec := simpleLookupFixture(t)
	tbl := newTestTable(t, 2, 2)
	require.NoError(t, tbl.AddSpot(intensity.Spot{ID: "s0"},
		[]float64{0.9, 0.1, 0, 0.9},
		[]bool{false, false, true, false}))

	out, err := dec.Decode(context.Background(), tbl, cb)
	require.NoError(t, err)

	rec := out.Record(0)
	assert.False(t, rec.Called())
	assert.Equal(t, NoCallMissingRound, rec.Reason)
}

func TestSimpleLookupIsIdempotent(t *testing.T) {
	cb, dec := simpleLookupFixture(t)
	tbl := newTestTable(t, 2, 2)
	addPatternSpot(t, tbl, "a", []int{0, 1}, 0.9, 0.1)
	addPatternSpot(t, tbl, "b", []int{1, 1}, 0.9, 0.1)
	addRawSpot(t, tbl, "c", []float64{0.9, 0.8, 0.1, 0.9})
	addRawSpot(t, tbl, "d", []float64{math.Inf(1), 0.1, 0.2, 0.9})

	first, err := dec.Decode(context.Background(), tbl, cb)
	require.NoError(t, err)
	second, err := dec.Decode(context.Background(), tbl, cb)
	require.NoError(t, err)

	assert.Equal(t, first.Records(), second.Records())
}

func TestSimpleLookupRejectsBadThreshold(t *testing.T) {
	for _, bad := range []float64{-0.1, math.NaN(), math.Inf(1)} {
		_, err := NewSimpleLookup(func(o *SimpleLookupOptions) { o.Threshold = bad })
		var invalid *ErrInvalidOptions
		require.ErrorAs(t, err, &invalid, "threshold %v", bad)
		assert.Equal(t, "Threshold", invalid.Option)
	}
}
