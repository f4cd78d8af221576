package decoder

import (
	"context"
	"fmt"
	"math"

	"spotdecode/pkg/codebook"
	"spotdecode/pkg/intensity"
)

// Compile-time check that SimpleLookup satisfies the decoding contract.
var _ Decoder = (*SimpleLookup)(nil)

// SimpleLookupOptions configures the baseline exact-match decoder.
type SimpleLookupOptions struct {
	// Threshold is the intensity above which a channel counts as activated.
	// Exactly one channel per round must clear it; more than one makes the
	// round ambiguous.
	Threshold float64

	// Workers bounds the parallel spot fan-out. Zero uses GOMAXPROCS.
	Workers int
}

// DefaultSimpleLookupOptions holds the default configuration.
var DefaultSimpleLookupOptions = SimpleLookupOptions{
	Threshold: 0.5,
}

// SimpleLookup is the zero-tolerance baseline strategy: threshold each
// round's channels into a binary activation pattern, require exactly one
// activation per round, and exact-match the resulting barcode against the
// codebook. Fast, deterministic and least tolerant of noise.
type SimpleLookup struct {
	opts SimpleLookupOptions
}

// NewSimpleLookup creates a SimpleLookup decoder. Options are validated
// eagerly; an out-of-range threshold fails here, not mid-run.
func NewSimpleLookup(optFns ...func(o *SimpleLookupOptions)) (*SimpleLookup, error) {
	opts := DefaultSimpleLookupOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	if math.IsNaN(opts.Threshold) || math.IsInf(opts.Threshold, 0) || opts.Threshold < 0 {
		return nil, &ErrInvalidOptions{Option: "Threshold", Reason: fmt.Sprintf("must be a non-negative finite number, got %v", opts.Threshold)}
	}
	if err := validateWorkers(opts.Workers); err != nil {
		return nil, err
	}
	return &SimpleLookup{opts: opts}, nil
}

func (d *SimpleLookup) Name() string { return "simple-lookup" }

// Decode implements the Decoder contract.
func (d *SimpleLookup) Decode(ctx context.Context, t *intensity.Table, cb *codebook.Codebook) (*Table, error) {
	if err := checkDimensions(t, cb); err != nil {
		return nil, err
	}
	return decodeSpots(ctx, t, d.opts.Workers, func(s int) Record {
		return d.decodeSpot(t, cb, s)
	})
}

func (d *SimpleLookup) decodeSpot(t *intensity.Table, cb *codebook.Codebook, s int) Record {
	rounds, channels := t.Rounds(), t.Channels()
	rec := Record{
		SpotID:    t.Spot(s).ID,
		RoundPass: make([]bool, rounds),
	}

	barcode := make([]int, rounds)
	missing := false
	ambiguous := false
	silent := false
	for r := 0; r < rounds; r++ {
		if t.RoundHasMissing(s, r) {
			missing = true
			continue
		}
		active := -1
		for c := 0; c < channels; c++ {
			if t.Value(s, r, c) <= d.opts.Threshold {
				continue
			}
			if active >= 0 {
				active = -2 // more than one activation
				break
			}
			active = c
		}
		switch {
		case active == -1:
			silent = true
		case active == -2:
			ambiguous = true
		default:
			barcode[r] = active
			rec.RoundPass[r] = true
		}
	}

	// Reason priority: unmeasured data, then ambiguity, then silence.
	switch {
	case missing:
		rec.Reason = NoCallMissingRound
		return rec
	case ambiguous:
		rec.Reason = NoCallAmbiguousRound
		return rec
	case silent:
		rec.Reason = NoCallBelowThreshold
		return rec
	}

	target, ok := cb.Lookup(barcode)
	if !ok {
		rec.Reason = NoCallNoMatch
		return rec
	}
	rec.Target = target
	rec.Quality = 1
	return rec
}
