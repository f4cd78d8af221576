package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"spotdecode/pkg/decoder"
)

func TestSummarize(t *testing.T) {
	tbl := decoder.NewResultTable([]decoder.Record{
		{SpotID: "s0", Target: "ACTB", Quality: 0.4, Distance: 0.3},
		{SpotID: "s1", Target: "GAPDH", Quality: 0.6, Distance: 0.2},
		{SpotID: "s2", Target: "ACTB", Quality: 0.8, Distance: 0.1},
		{SpotID: "s3", Target: "ACTB", Quality: 1.0, Distance: 0.0},
		{SpotID: "s4", Reason: decoder.NoCallBelowThreshold},
		{SpotID: "s5", Reason: decoder.NoCallAmbiguous},
		{SpotID: "s6", Reason: decoder.NoCallBelowThreshold},
	})

	s := Summarize(tbl)

	assert.Equal(t, 7, s.Spots)
	assert.Equal(t, 4, s.Called)
	assert.InDelta(t, 4.0/7.0, s.CallRate, 1e-12)

	assert.Equal(t, map[decoder.NoCallReason]int{
		decoder.NoCallBelowThreshold: 2,
		decoder.NoCallAmbiguous:      1,
	}, s.NoCallReasons)

	assert.Equal(t, map[string]int{"ACTB": 3, "GAPDH": 1}, s.TargetCounts)

	assert.InDelta(t, 0.7, s.MeanQuality, 1e-12)
	assert.InDelta(t, 0.6, s.MedianQuality, 1e-12)
	assert.InDelta(t, 0.15, s.MeanDistance, 1e-12)
	assert.InDelta(t, 0.3, s.P90Distance, 1e-12)
}

func TestSummarizeEmptyTable(t *testing.T) {
	s := Summarize(decoder.NewResultTable(nil))

	assert.Equal(t, 0, s.Spots)
	assert.Equal(t, 0, s.Called)
	assert.Equal(t, 0.0, s.CallRate)
	assert.Equal(t, 0.0, s.MeanQuality)
	assert.Empty(t, s.TargetCounts)
}

func TestSummaryString(t *testing.T) {
	tbl := decoder.NewResultTable([]decoder.Record{
		{SpotID: "s0", Target: "ACTB", Quality: 1, Distance: 0},
		{SpotID: "s1", Reason: decoder.NoCallNoMatch},
	})

	out := Summarize(tbl).String()
	assert.Contains(t, out, "Spots decoded:     2")
	assert.Contains(t, out, "Called:            1 (50.0%)")
	assert.Contains(t, out, "No-call reasons:")
	assert.Contains(t, out, string(decoder.NoCallNoMatch))
}
