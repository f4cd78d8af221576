// Package decoder implements the spot-decoding engine: the shared decoding
// contract, the decoded result table and the five interchangeable decoding
// strategies (simple lookup, per-round max channel, metric distance,
// exhaustive check-all and multi-barcode aggregation).
//
// Decoding is a pure, data-parallel transformation. Every decoder validates
// its inputs and options before any spot is processed, produces exactly one
// record per input spot and leaves the intensity table and codebook
// untouched.
package decoder

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"spotdecode/pkg/codebook"
	"spotdecode/pkg/intensity"
)

// Decoder is the contract every decoding algorithm implements.
type Decoder interface {
	// Name identifies the algorithm for configuration and reporting.
	Name() string

	// Decode assigns identities to every spot of the table using the given
	// codebook. The returned table has exactly one record per input spot in
	// input order. Fatal validation errors abort before any spot is
	// processed; per-spot pathologies resolve to diagnostic no-calls.
	Decode(ctx context.Context, t *intensity.Table, cb *codebook.Codebook) (*Table, error)
}

// ErrDimensionMismatch is returned when the intensity table and codebook
// disagree on round or channel count.
type ErrDimensionMismatch struct {
	TableRounds, TableChannels       int
	CodebookRounds, CodebookChannels int
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: intensity table is %dx%d (rounds x channels), codebook is %dx%d",
		e.TableRounds, e.TableChannels, e.CodebookRounds, e.CodebookChannels)
}

// ErrInvalidOptions is returned when a decoder is constructed with an
// out-of-range or inconsistent option.
type ErrInvalidOptions struct {
	Option string
	Reason string
}

func (e *ErrInvalidOptions) Error() string {
	return fmt.Sprintf("invalid options: %s: %s", e.Option, e.Reason)
}

// checkDimensions verifies table/codebook dimension agreement before any
// spot is processed.
func checkDimensions(t *intensity.Table, cb *codebook.Codebook) error {
	if t.Rounds() != cb.Rounds() || t.Channels() != cb.Channels() {
		return &ErrDimensionMismatch{
			TableRounds: t.Rounds(), TableChannels: t.Channels(),
			CodebookRounds: cb.Rounds(), CodebookChannels: cb.Channels(),
		}
	}
	return nil
}

// validateWorkers rejects negative worker counts. Zero selects GOMAXPROCS.
func validateWorkers(workers int) error {
	if workers < 0 {
		return &ErrInvalidOptions{Option: "Workers", Reason: fmt.Sprintf("must be >= 0, got %d", workers)}
	}
	return nil
}

// decodeSpots fans the per-spot decode function out over a bounded worker
// group. Each spot's record is written to its own slot, so records are
// produced atomically and no ordering dependency exists between spots.
// Cancellation is coarse-grained: once ctx is done no further spots are
// started and the batch returns ctx.Err().
//
// Spots with non-finite measurements are resolved here to diagnostic
// no-calls so individual decoders only see well-formed numbers.
func decodeSpots(ctx context.Context, t *intensity.Table, workers int, spotFn func(s int) Record) (*Table, error) {
	n := t.NumSpots()
	records := make([]Record, n)

	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for s := 0; s < n; s++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s := s
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if !t.IsFinite(s) {
				records[s] = Record{
					SpotID:    t.Spot(s).ID,
					RoundPass: make([]bool, t.Rounds()),
					Reason:    NoCallInvalidIntensity,
				}
				return nil
			}
			records[s] = spotFn(s)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &Table{records: records}, nil
}
