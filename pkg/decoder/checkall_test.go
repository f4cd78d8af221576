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

func checkAllFixture(t *testing.T, optFns ...func(o *CheckAllOptions)) (*codebook.Codebook, *CheckAll) {
	t.Helper()
	cb := mustCodebook(t, 3, 2,
		codebook.Entry{Target: "A", Channels: []int{0, 1, 0}},
		codebook.Entry{Target: "B", Channels: []int{1, 0, 1}},
	)
	dec, err := NewCheckAll(optFns...)
	require.NoError(t, err)
	return cb, dec
}

func TestCheckAllZeroErrorRoundsMatchesExactDecoders(t *testing.T) {
	cb := mustCodebook(t, 2, 2,
		codebook.Entry{Target: "A", Channels: []int{0, 1}},
		codebook.Entry{Target: "B", Channels: []int{0, 0}},
	)
	tbl := newTestTable(t, 2, 2)
	addPatternSpot(t, tbl, "a", []int{0, 1}, 0.9, 0.1)
	addPatternSpot(t, tbl, "b", []int{0, 0}, 0.9, 0.1)

	ca, err := NewCheckAll(func(o *CheckAllOptions) { o.ErrorRounds = 0 })
	require.NoError(t, err)
	lookup, err := NewSimpleLookup()
	require.NoError(t, err)
	maxCh, err := NewPerRoundMaxChannel()
	require.NoError(t, err)

	caOut, err := ca.Decode(context.Background(), tbl, cb)
	require.NoError(t, err)
	lookupOut, err := lookup.Decode(context.Background(), tbl, cb)
	require.NoError(t, err)
	maxOut, err := maxCh.Decode(context.Background(), tbl, cb)
	require.NoError(t, err)

	// On clean one-hot input the exhaustive search with no corrections
	// agrees with both exact-match strategies.
	for s := 0; s < tbl.NumSpots(); s++ {
		assert.Equal(t, lookupOut.Record(s).Target, caOut.Record(s).Target)
		assert.Equal(t, maxOut.Record(s).Target, caOut.Record(s).Target)
		assert.Equal(t, 0.0, caOut.Record(s).Distance)
		assert.Equal(t, 1.0, caOut.Record(s).Quality)
	}
}

func TestCheckAllRecoversCorruptedRound(t *testing.T) {
	// Round 1 of an A spot is corrupted toward channel 0. Accepting the
	// corrupted assignment costs A one rank point; correcting the round
	// at a cheaper ErrorCost makes the corrected interpretation win.
	cb, dec := checkAllFixture(t, func(o *CheckAllOptions) {
		o.ErrorRounds = 1
		o.MaxCost = 0.5
		o.ErrorCost = 0.25
	})

	tbl := newTestTable(t, 3, 2)
	addPatternSpot(t, tbl, "s0", []int{0, 0, 0}, 0.9, 0.1)

	out, err := dec.Decode(context.Background(), tbl, cb)
	require.NoError(t, err)

	rec := out.Record(0)
	assert.Equal(t, "A", rec.Target)
	assert.InDelta(t, 0.25, rec.Distance, 1e-12)
	assert.InDelta(t, 0.5, rec.Quality, 1e-12)
	assert.Equal(t, []bool{true, false, true}, rec.RoundPass)
}

func TestCheckAllPrefersCheaperUncorrectedBarcode(t *testing.T) {
	// Two rounds corrupted away from A leave B the only interpretation
	// within the cost bound: a heavily corrupted spot is called as the
	// barcode it now resembles.
	cb, dec := checkAllFixture(t, func(o *CheckAllOptions) {
		o.ErrorRounds = 1
		o.MaxCost = 1
	})

	tbl := newTestTable(t, 3, 2)
	addPatternSpot(t, tbl, "s0", []int{1, 0, 0}, 0.9, 0.1)

	out, err := dec.Decode(context.Background(), tbl, cb)
	require.NoError(t, err)

	rec := out.Record(0)
	assert.Equal(t, "B", rec.Target)
	assert.InDelta(t, 1, rec.Distance, 1e-12)
	assert.Equal(t, []bool{true, true, true}, rec.RoundPass)
}

func TestCheckAllTiePrefersFewerCorrections(t *testing.T) {
	// Accepting A's mismatched round costs 1; correcting that round at
	// ErrorCost 1 also totals 1. The uncorrected interpretation wins the
	// tie, so every round still reads as passed.
	cb, dec := checkAllFixture(t, func(o *CheckAllOptions) {
		o.ErrorRounds = 1
		o.MaxCost = 2
	})

	tbl := newTestTable(t, 3, 2)
	addPatternSpot(t, tbl, "s0", []int{0, 0, 0}, 0.9, 0.1)

	out, err := dec.Decode(context.Background(), tbl, cb)
	require.NoError(t, err)

	rec := out.Record(0)
	assert.Equal(t, "A", rec.Target)
	assert.InDelta(t, 1, rec.Distance, 1e-12)
	assert.Equal(t, []bool{true, true, true}, rec.RoundPass)
}

func TestCheckAllTiePrefersEarlierEntry(t *testing.T) {
	cb := mustCodebook(t, 2, 2,
		codebook.Entry{Target: "A", Channels: []int{0, 1}},
		codebook.Entry{Target: "B", Channels: []int{1, 0}},
	)
	dec, err := NewCheckAll(func(o *CheckAllOptions) { o.ErrorRounds = 0 })
	require.NoError(t, err)

	tbl := newTestTable(t, 2, 2)
	// Flat intensities give every assignment rank cost 0, so both entries
	// total 0; the earlier entry is kept.
	addRawSpot(t, tbl, "s0", []float64{0.5, 0.5, 0.5, 0.5})

	out, err := dec.Decode(context.Background(), tbl, cb)
	require.NoError(t, err)
	assert.Equal(t, "A", out.Record(0).Target)
}

func TestCheckAllExceedsCostBound(t *testing.T) {
	cb, dec := checkAllFixture(t, func(o *CheckAllOptions) {
		o.ErrorRounds = 0
		o.MaxCost = 0.5
	})

	tbl := newTestTable(t, 3, 2)
	addPatternSpot(t, tbl, "s0", []int{0, 0, 0}, 0.9, 0.1)

	out, err := dec.Decode(context.Background(), tbl, cb)
	require.NoError(t, err)

	rec := out.Record(0)
	assert.False(t, rec.Called())
	assert.Equal(t, NoCallExceedsCostBound, rec.Reason)
	// The cheapest rejected interpretation is kept as a diagnostic.
	assert.InDelta(t, 1, rec.Distance, 1e-12)
}

func TestCheckAllGapCostMode(t *testing.T) {
	cb := mustCodebook(t, 2, 2,
		codebook.Entry{Target: "A", Channels: []int{0, 1}},
	)
	dec, err := NewCheckAll(func(o *CheckAllOptions) {
		o.ErrorRounds = 0
		o.CostMode = CostGap
	})
	require.NoError(t, err)

	tbl := newTestTable(t, 2, 2)
	// Round 1 narrowly favors the wrong channel: the gap cost is the 0.1
	// intensity shortfall rather than a whole rank point.
	addRawSpot(t, tbl, "s0", []float64{0.8, 0.2, 0.55, 0.45})

	out, err := dec.Decode(context.Background(), tbl, cb)
	require.NoError(t, err)

	rec := out.Record(0)
	assert.Equal(t, "A", rec.Target)
	assert.InDelta(t, 0.1, rec.Distance, 1e-12)
	assert.InDelta(t, 0.9, rec.Quality, 1e-12)
}

func TestCheckAllWildcardRoundCostsNothing(t *testing.T) {
	cb := mustCodebook(t, 2, 2,
		codebook.Entry{Target: "A", Channels: []int{0, codebook.Wildcard}},
	)
	dec, err := NewCheckAll(func(o *CheckAllOptions) { o.ErrorRounds = 0 })
	require.NoError(t, err)

	tbl := newTestTable(t, 2, 2)
	// Round 1 can look like anything without charging A.
	addRawSpot(t, tbl, "s0", []float64{0.9, 0.1, 0.5, 0.5})

	out, err := dec.Decode(context.Background(), tbl, cb)
	require.NoError(t, err)

	rec := out.Record(0)
	assert.Equal(t, "A", rec.Target)
	assert.Equal(t, 0.0, rec.Distance)
}

func TestCheckAllMissingMeasurementIsNoCall(t *testing.T) {
	cb, dec := checkAllFixture(t)

	tbl := newTestTable(t, 3, 2)
	require.NoError(t, tbl.AddSpot(intensity.Spot{ID: "s0"},
		[]float64{0.9, 0.1, 0.1, 0.9, 0.9, 0.1},
		[]bool{false, false, true, false, false, false}))

	out, err := dec.Decode(context.Background(), tbl, cb)
	require.NoError(t, err)
	assert.Equal(t, NoCallMissingRound, out.Record(0).Reason)
}

func TestCheckAllRejectsBadOptions(t *testing.T) {
	cases := map[string]func(o *CheckAllOptions){
		"ErrorRounds": func(o *CheckAllOptions) { o.ErrorRounds = -1 },
		"MaxCost":     func(o *CheckAllOptions) { o.MaxCost = 0 },
		"ErrorCost":   func(o *CheckAllOptions) { o.ErrorCost = math.NaN() },
		"CostMode":    func(o *CheckAllOptions) { o.CostMode = CostMode(7) },
	}
	for option, fn := range cases {
		_, err := NewCheckAll(fn)
		var invalid *ErrInvalidOptions
		require.ErrorAs(t, err, &invalid, option)
		assert.Equal(t, option, invalid.Option)
	}
}

func TestCheckAllErrorRoundsMustBeBelowRoundCount(t *testing.T) {
	cb := mustCodebook(t, 2, 2,
		codebook.Entry{Target: "A", Channels: []int{0, 1}},
	)
	dec, err := NewCheckAll(func(o *CheckAllOptions) { o.ErrorRounds = 2 })
	require.NoError(t, err)

	tbl := newTestTable(t, 2, 2)
	addPatternSpot(t, tbl, "s0", []int{0, 1}, 0.9, 0.1)

	_, err = dec.Decode(context.Background(), tbl, cb)
	var invalid *ErrInvalidOptions
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "ErrorRounds", invalid.Option)
}

func TestNextCombinationEnumeratesLexicographically(t *testing.T) {
	want := [][]int{{0, 1}, {0, 2}, {0, 3}, {1, 2}, {1, 3}, {2, 3}}

	var got [][]int
	for combo := firstCombination(2); combo != nil; combo = nextCombination(combo, 4) {
		got = append(got, append([]int(nil), combo...))
	}
	assert.Equal(t, want, got)
}

func TestParseCostMode(t *testing.T) {
	for name, want := range map[string]CostMode{
		"":     CostRank,
		"rank": CostRank,
		"gap":  CostGap,
	} {
		got, err := ParseCostMode(name)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseCostMode("hamming")
	assert.Error(t, err)
}
