package decoder

import (
	"context"
	"fmt"
	"math"

	"spotdecode/pkg/codebook"
	"spotdecode/pkg/intensity"
)

// costTieTol is the tolerance under which two interpretation costs count as
// tied. Ties keep the earlier interpretation in search order: fewer
// corrected rounds first, then codebook entry order.
const costTieTol = 1e-12

// Compile-time check that CheckAll satisfies the decoding contract.
var _ Decoder = (*CheckAll)(nil)

// CostMode selects how a round's channel assignment is scored.
type CostMode int

const (
	// CostRank scores a channel by the number of channels in the round with
	// strictly greater intensity: 0 when the candidate is the round's
	// maximum. Magnitude-independent, so the worst case stays auditable.
	CostRank CostMode = iota

	// CostGap scores a channel by the intensity gap to the round's maximum.
	CostGap
)

func (m CostMode) String() string {
	switch m {
	case CostRank:
		return "rank"
	case CostGap:
		return "gap"
	default:
		return fmt.Sprintf("unknown(%d)", int(m))
	}
}

// ParseCostMode maps a configuration name to a CostMode.
func ParseCostMode(name string) (CostMode, error) {
	switch name {
	case "", "rank":
		return CostRank, nil
	case "gap":
		return CostGap, nil
	default:
		return 0, fmt.Errorf("unsupported cost mode %q", name)
	}
}

// CheckAllOptions configures the exhaustive combinatorial decoder.
type CheckAllOptions struct {
	// ErrorRounds is the maximum number of rounds the search may treat as
	// corrected ("misses") per interpretation. Must be non-negative and
	// strictly less than the round count.
	ErrorRounds int

	// MaxCost is the bound an interpretation's total cost must stay within
	// for the spot to be called. Must be positive.
	MaxCost float64

	// ErrorCost is the flat cost charged for each corrected round. Must be
	// positive; it is what makes "correct this round" compete with "accept
	// the measured assignment".
	ErrorCost float64

	// CostMode selects the per-round assignment cost function.
	CostMode CostMode

	// Workers bounds the parallel spot fan-out. Zero uses GOMAXPROCS.
	Workers int
}

// DefaultCheckAllOptions holds the default configuration.
var DefaultCheckAllOptions = CheckAllOptions{
	ErrorRounds: 1,
	MaxCost:     1,
	ErrorCost:   1,
	CostMode:    CostRank,
}

// CheckAll enumerates every codebook barcode together with every
// error-corrected variant allowed by ErrorRounds and selects the globally
// minimum-cost interpretation. The search space per spot is
// codebook size x C(rounds, <=ErrorRounds); partial sums are pruned against
// the best known total and MaxCost so the worst case stays bounded.
type CheckAll struct {
	opts CheckAllOptions
}

// NewCheckAll creates a CheckAll decoder with eagerly validated options.
func NewCheckAll(optFns ...func(o *CheckAllOptions)) (*CheckAll, error) {
	opts := DefaultCheckAllOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.ErrorRounds < 0 {
		return nil, &ErrInvalidOptions{Option: "ErrorRounds", Reason: fmt.Sprintf("must be >= 0, got %d", opts.ErrorRounds)}
	}
	if math.IsNaN(opts.MaxCost) || math.IsInf(opts.MaxCost, 0) || opts.MaxCost <= 0 {
		return nil, &ErrInvalidOptions{Option: "MaxCost", Reason: fmt.Sprintf("must be a positive finite number, got %v", opts.MaxCost)}
	}
	if math.IsNaN(opts.ErrorCost) || math.IsInf(opts.ErrorCost, 0) || opts.ErrorCost <= 0 {
		return nil, &ErrInvalidOptions{Option: "ErrorCost", Reason: fmt.Sprintf("must be a positive finite number, got %v", opts.ErrorCost)}
	}
	switch opts.CostMode {
	case CostRank, CostGap:
	default:
		return nil, &ErrInvalidOptions{Option: "CostMode", Reason: fmt.Sprintf("unknown cost mode %d", int(opts.CostMode))}
	}
	if err := validateWorkers(opts.Workers); err != nil {
		return nil, err
	}
	return &CheckAll{opts: opts}, nil
}

func (d *CheckAll) Name() string { return "check-all" }

// Decode implements the Decoder contract.
func (d *CheckAll) Decode(ctx context.Context, t *intensity.Table, cb *codebook.Codebook) (*Table, error) {
	if err := checkDimensions(t, cb); err != nil {
		return nil, err
	}
	if d.opts.ErrorRounds >= t.Rounds() {
		return nil, &ErrInvalidOptions{Option: "ErrorRounds", Reason: fmt.Sprintf(
			"must be less than the round count %d, got %d", t.Rounds(), d.opts.ErrorRounds)}
	}
	return decodeSpots(ctx, t, d.opts.Workers, func(s int) Record {
		return d.decodeSpot(t, cb, s)
	})
}

func (d *CheckAll) decodeSpot(t *intensity.Table, cb *codebook.Codebook, s int) Record {
	rounds, channels := t.Rounds(), t.Channels()
	rec := Record{
		SpotID:    t.Spot(s).ID,
		RoundPass: make([]bool, rounds),
	}

	// Assignment costs are undefined on unmeasured values.
	if t.HasMissing(s) {
		rec.Reason = NoCallMissingRound
		return rec
	}

	// Per-round, per-channel assignment cost for this spot.
	cost := make([][]float64, rounds)
	for r := 0; r < rounds; r++ {
		cost[r] = make([]float64, channels)
		maxVal := t.Value(s, r, 0)
		for c := 1; c < channels; c++ {
			if v := t.Value(s, r, c); v > maxVal {
				maxVal = v
			}
		}
		for c := 0; c < channels; c++ {
			v := t.Value(s, r, c)
			switch d.opts.CostMode {
			case CostRank:
				rank := 0
				for cc := 0; cc < channels; cc++ {
					if t.Value(s, r, cc) > v {
						rank++
					}
				}
				cost[r][c] = float64(rank)
			case CostGap:
				cost[r][c] = maxVal - v
			}
		}
	}

	// Uncorrected per-round cost of each codebook entry. Wildcard rounds
	// accept any channel and cost nothing.
	base := make([][]float64, cb.Len())
	baseTotal := make([]float64, cb.Len())
	minBase := math.Inf(1)
	for i := 0; i < cb.Len(); i++ {
		e := cb.Entry(i)
		base[i] = make([]float64, rounds)
		for r, ch := range e.Channels {
			if ch == codebook.Wildcard {
				continue
			}
			base[i][r] = cost[r][ch]
			baseTotal[i] += cost[r][ch]
		}
		if baseTotal[i] < minBase {
			minBase = baseTotal[i]
		}
	}

	// Explicit search over index combinations: number of corrected rounds
	// ascending, then entry order, so ties keep the preferred
	// interpretation without any magnitude-based tie-break.
	bestCost := math.Inf(1)
	bestEntry := -1
	var bestCombo []int
	for k := 0; k <= d.opts.ErrorRounds; k++ {
		for i := 0; i < cb.Len(); i++ {
			if k == 0 {
				if baseTotal[i] < bestCost-costTieTol && baseTotal[i] <= d.opts.MaxCost {
					bestCost = baseTotal[i]
					bestEntry = i
					bestCombo = nil
				}
				continue
			}
			bound := math.Min(bestCost-costTieTol, d.opts.MaxCost)
			combo := firstCombination(k)
			for combo != nil {
				total := float64(k) * d.opts.ErrorCost
				ci := 0
				for r := 0; r < rounds && total <= bound; r++ {
					if ci < k && combo[ci] == r {
						ci++
						continue
					}
					total += base[i][r]
				}
				if total <= bound {
					bestCost = total
					bestEntry = i
					bestCombo = append(bestCombo[:0], combo...)
					bound = math.Min(bestCost-costTieTol, d.opts.MaxCost)
				}
				combo = nextCombination(combo, rounds)
			}
		}
	}

	if bestEntry < 0 {
		rec.Reason = NoCallExceedsCostBound
		rec.Distance = minBase
		return rec
	}

	rec.Target = cb.Target(bestEntry)
	rec.Distance = bestCost
	rec.Quality = clamp01(1 - bestCost/d.opts.MaxCost)
	for r := range rec.RoundPass {
		rec.RoundPass[r] = true
	}
	for _, r := range bestCombo {
		rec.RoundPass[r] = false
	}
	return rec
}

// firstCombination returns the lexicographically first k-combination of
// round indices: [0, 1, ..., k-1].
func firstCombination(k int) []int {
	combo := make([]int, k)
	for i := range combo {
		combo[i] = i
	}
	return combo
}

// nextCombination advances combo to the next k-combination of {0..n-1} in
// lexicographic order, returning nil after the last one. The slice is
// modified in place.
func nextCombination(combo []int, n int) []int {
	k := len(combo)
	for i := k - 1; i >= 0; i-- {
		if combo[i] < n-k+i {
			combo[i]++
			for j := i + 1; j < k; j++ {
				combo[j] = combo[j-1] + 1
			}
			return combo
		}
	}
	return nil
}
