package decoder

import (
	"context"
	"fmt"

	"spotdecode/pkg/codebook"
	"spotdecode/pkg/intensity"
)

// Compile-time check that MultiBarcode satisfies the decoding contract.
var _ Decoder = (*MultiBarcode)(nil)

// Sub binds one underlying decoder to an optional codebook override. A nil
// Codebook means the sub-decoder uses the codebook passed to Decode.
type Sub struct {
	Decoder  Decoder
	Codebook *codebook.Codebook
}

// MultiBarcodeOptions configures the aggregating decoder.
type MultiBarcodeOptions struct {
	// Priority ranks the sub-decoders for conflict resolution: Priority[i]
	// is the rank of sub-decoder i, lower rank wins. Empty disables
	// priorities, in which case conflicting calls become
	// "no call - conflict". When set it must hold one distinct rank per
	// sub-decoder.
	Priority []int
}

// DefaultMultiBarcodeOptions holds the default configuration.
var DefaultMultiBarcodeOptions = MultiBarcodeOptions{}

// MultiBarcode runs several underlying decoders over the same intensity
// table and merges their decoded tables. The merge policy is explicit and
// deterministic: a spot called by exactly one sub-decoder takes that call;
// agreeing calls take the earliest sub-decoder's record; disagreeing calls
// are conflicts unless a priority order selects a winner.
type MultiBarcode struct {
	subs []Sub
	opts MultiBarcodeOptions
}

// NewMultiBarcode creates a MultiBarcode decoder over the given
// sub-decoders. Options are validated eagerly.
func NewMultiBarcode(subs []Sub, optFns ...func(o *MultiBarcodeOptions)) (*MultiBarcode, error) {
	if len(subs) == 0 {
		return nil, &ErrInvalidOptions{Option: "Subs", Reason: "at least one sub-decoder is required"}
	}
	for i, sub := range subs {
		if sub.Decoder == nil {
			return nil, &ErrInvalidOptions{Option: "Subs", Reason: fmt.Sprintf("sub-decoder %d is nil", i)}
		}
	}
	opts := DefaultMultiBarcodeOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	if len(opts.Priority) > 0 {
		if len(opts.Priority) != len(subs) {
			return nil, &ErrInvalidOptions{Option: "Priority", Reason: fmt.Sprintf(
				"expected %d ranks, got %d", len(subs), len(opts.Priority))}
		}
		seen := make(map[int]bool, len(opts.Priority))
		for _, rank := range opts.Priority {
			if seen[rank] {
				return nil, &ErrInvalidOptions{Option: "Priority", Reason: fmt.Sprintf("duplicate rank %d", rank)}
			}
			seen[rank] = true
		}
	}
	return &MultiBarcode{subs: subs, opts: opts}, nil
}

func (d *MultiBarcode) Name() string { return "multi-barcode" }

// Decode implements the Decoder contract. Every effective codebook is
// dimension-checked against the table before any sub-decoder runs.
func (d *MultiBarcode) Decode(ctx context.Context, t *intensity.Table, cb *codebook.Codebook) (*Table, error) {
	for _, sub := range d.subs {
		if err := checkDimensions(t, d.effectiveCodebook(sub, cb)); err != nil {
			return nil, err
		}
	}

	tables := make([]*Table, len(d.subs))
	for i, sub := range d.subs {
		tbl, err := sub.Decoder.Decode(ctx, t, d.effectiveCodebook(sub, cb))
		if err != nil {
			return nil, fmt.Errorf("sub-decoder %d (%s): %w", i, sub.Decoder.Name(), err)
		}
		if tbl.Len() != t.NumSpots() {
			return nil, fmt.Errorf("sub-decoder %d (%s): produced %d records for %d spots",
				i, sub.Decoder.Name(), tbl.Len(), t.NumSpots())
		}
		tables[i] = tbl
	}

	records := make([]Record, t.NumSpots())
	for s := range records {
		perSub := make([]Record, len(tables))
		for i, tbl := range tables {
			perSub[i] = tbl.Record(s)
		}
		records[s] = mergeSpot(perSub, d.opts.Priority)
	}
	return &Table{records: records}, nil
}

func (d *MultiBarcode) effectiveCodebook(sub Sub, shared *codebook.Codebook) *codebook.Codebook {
	if sub.Codebook != nil {
		return sub.Codebook
	}
	return shared
}

// mergeSpot is the conflict-resolution policy, a single deterministic unit:
//
//   - no sub-decoder called the spot: keep the first sub-decoder's no-call
//     record so the diagnostic reason survives
//   - exactly one call, or all calls agree: the earliest calling
//     sub-decoder's record wins
//   - disagreeing calls without priorities: "no call - conflict"
//   - disagreeing calls with priorities: the lowest-rank calling
//     sub-decoder's record wins
func mergeSpot(perSub []Record, priority []int) Record {
	called := make([]int, 0, len(perSub))
	for i, r := range perSub {
		if r.Called() {
			called = append(called, i)
		}
	}

	if len(called) == 0 {
		return perSub[0]
	}

	first := called[0]
	conflict := false
	for _, i := range called[1:] {
		if perSub[i].Target != perSub[first].Target {
			conflict = true
			break
		}
	}
	if !conflict {
		return perSub[first]
	}

	if len(priority) == 0 {
		rec := Record{
			SpotID:    perSub[first].SpotID,
			RoundPass: make([]bool, len(perSub[first].RoundPass)),
			Reason:    NoCallConflict,
		}
		return rec
	}

	winner := called[0]
	for _, i := range called[1:] {
		if priority[i] < priority[winner] {
			winner = i
		}
	}
	return perSub[winner]
}
