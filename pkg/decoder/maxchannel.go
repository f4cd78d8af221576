package decoder

import (
	"context"
	"fmt"
	"math"

	"spotdecode/pkg/codebook"
	"spotdecode/pkg/intensity"
)

// Compile-time check that PerRoundMaxChannel satisfies the decoding contract.
var _ Decoder = (*PerRoundMaxChannel)(nil)

// PerRoundMaxChannelOptions configures the per-round argmax decoder.
type PerRoundMaxChannelOptions struct {
	// MinIntensity is the floor a round's maximum must reach before the
	// round counts as a real activation. Rounds below the floor are marked
	// "no signal" and resolved through the codebook's masked lookup. Zero
	// disables the floor.
	MinIntensity float64

	// Workers bounds the parallel spot fan-out. Zero uses GOMAXPROCS.
	Workers int
}

// DefaultPerRoundMaxChannelOptions holds the default configuration.
var DefaultPerRoundMaxChannelOptions = PerRoundMaxChannelOptions{}

// PerRoundMaxChannel selects, per spot and round, the channel with maximum
// intensity regardless of absolute magnitude and looks the concatenated
// barcode up in the codebook. Ties break to the lowest channel index, so
// repeated runs are deterministic. More permissive than SimpleLookup: every
// round always yields a candidate unless the optional floor rejects it.
type PerRoundMaxChannel struct {
	opts PerRoundMaxChannelOptions
}

// NewPerRoundMaxChannel creates a PerRoundMaxChannel decoder with eagerly
// validated options.
func NewPerRoundMaxChannel(optFns ...func(o *PerRoundMaxChannelOptions)) (*PerRoundMaxChannel, error) {
	opts := DefaultPerRoundMaxChannelOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	if math.IsNaN(opts.MinIntensity) || math.IsInf(opts.MinIntensity, 0) || opts.MinIntensity < 0 {
		return nil, &ErrInvalidOptions{Option: "MinIntensity", Reason: fmt.Sprintf("must be a non-negative finite number, got %v", opts.MinIntensity)}
	}
	if err := validateWorkers(opts.Workers); err != nil {
		return nil, err
	}
	return &PerRoundMaxChannel{opts: opts}, nil
}

func (d *PerRoundMaxChannel) Name() string { return "per-round-max" }

// Decode implements the Decoder contract.
func (d *PerRoundMaxChannel) Decode(ctx context.Context, t *intensity.Table, cb *codebook.Codebook) (*Table, error) {
	if err := checkDimensions(t, cb); err != nil {
		return nil, err
	}
	return decodeSpots(ctx, t, d.opts.Workers, func(s int) Record {
		return d.decodeSpot(t, cb, s)
	})
}

func (d *PerRoundMaxChannel) decodeSpot(t *intensity.Table, cb *codebook.Codebook, s int) Record {
	rounds, channels := t.Rounds(), t.Channels()
	rec := Record{
		SpotID:    t.Spot(s).ID,
		RoundPass: make([]bool, rounds),
	}

	calls := make([]int, rounds)
	var mask []bool
	passed := 0
	for r := 0; r < rounds; r++ {
		if t.RoundHasMissing(s, r) {
			mask = maskRound(mask, rounds, r)
			continue
		}
		best, bestVal := 0, t.Value(s, r, 0)
		for c := 1; c < channels; c++ {
			if v := t.Value(s, r, c); v > bestVal {
				best, bestVal = c, v
			}
		}
		if d.opts.MinIntensity > 0 && bestVal < d.opts.MinIntensity {
			mask = maskRound(mask, rounds, r)
			continue
		}
		calls[r] = best
		rec.RoundPass[r] = true
		passed++
	}

	if mask == nil {
		target, ok := cb.Lookup(calls)
		if !ok {
			rec.Reason = NoCallNoMatch
			return rec
		}
		rec.Target = target
		rec.Quality = 1
		return rec
	}

	// Some rounds carried no signal; the decode only succeeds when the
	// surviving rounds pin down a unique codebook entry.
	matches := cb.LookupMasked(calls, mask)
	switch len(matches) {
	case 1:
		rec.Target = cb.Target(matches[0])
		rec.Quality = float64(passed) / float64(rounds)
	case 0:
		rec.Reason = NoCallBelowThreshold
	default:
		rec.Reason = NoCallAmbiguous
	}
	return rec
}

// maskRound lazily allocates the no-signal mask and marks round r.
func maskRound(mask []bool, rounds, r int) []bool {
	if mask == nil {
		mask = make([]bool, rounds)
	}
	mask[r] = true
	return mask
}
