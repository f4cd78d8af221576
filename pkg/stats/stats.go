// Package stats computes summary statistics over a decoded table. The
// summary is the reporting block printed after a decoding run; it never
// mutates the table it reads.
package stats

import (
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"

	"spotdecode/pkg/decoder"
)

// Summary aggregates the outcome of one decoding run.
type Summary struct {
	// Spots is the number of input spots (records in the table).
	Spots int

	// Called is the number of spots with an assigned identity.
	Called int

	// CallRate is Called/Spots, 0 for an empty table.
	CallRate float64

	// NoCallReasons counts no-call records per diagnostic reason.
	NoCallReasons map[decoder.NoCallReason]int

	// MeanQuality and MedianQuality summarize the quality scores of called
	// records.
	MeanQuality   float64
	MedianQuality float64

	// MeanDistance and P90Distance summarize the assignment distances or
	// costs of called records.
	MeanDistance float64
	P90Distance  float64

	// TargetCounts counts called records per target identity.
	TargetCounts map[string]int
}

// Summarize computes the summary of a decoded table.
func Summarize(t *decoder.Table) Summary {
	s := Summary{
		Spots:         t.Len(),
		NoCallReasons: make(map[decoder.NoCallReason]int),
		TargetCounts:  make(map[string]int),
	}

	var qualities, distances []float64
	for _, r := range t.Records() {
		if !r.Called() {
			s.NoCallReasons[r.Reason]++
			continue
		}
		s.Called++
		s.TargetCounts[r.Target]++
		qualities = append(qualities, r.Quality)
		distances = append(distances, r.Distance)
	}

	if s.Spots > 0 {
		s.CallRate = float64(s.Called) / float64(s.Spots)
	}
	if s.Called > 0 {
		s.MeanQuality = stat.Mean(qualities, nil)
		s.MeanDistance = stat.Mean(distances, nil)
		sort.Float64s(qualities)
		sort.Float64s(distances)
		s.MedianQuality = stat.Quantile(0.5, stat.Empirical, qualities, nil)
		s.P90Distance = stat.Quantile(0.9, stat.Empirical, distances, nil)
	}
	return s
}

// String renders the summary as the multi-line report block printed by the
// CLI after a run.
func (s Summary) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Spots decoded:     %d\n", s.Spots)
	fmt.Fprintf(&sb, "Called:            %d (%.1f%%)\n", s.Called, s.CallRate*100)
	fmt.Fprintf(&sb, "Mean quality:      %.3f (median %.3f)\n", s.MeanQuality, s.MedianQuality)
	fmt.Fprintf(&sb, "Mean distance:     %.4f (p90 %.4f)\n", s.MeanDistance, s.P90Distance)

	if len(s.NoCallReasons) > 0 {
		reasons := make([]string, 0, len(s.NoCallReasons))
		for reason := range s.NoCallReasons {
			reasons = append(reasons, string(reason))
		}
		sort.Strings(reasons)
		sb.WriteString("No-call reasons:\n")
		for _, reason := range reasons {
			fmt.Fprintf(&sb, "  %-20s %d\n", reason, s.NoCallReasons[decoder.NoCallReason(reason)])
		}
	}
	return sb.String()
}
