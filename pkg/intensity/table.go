// Package intensity provides the measured-signal data model: for every
// detected spot, its intensity at every (round, channel) pair plus spot
// metadata. Tables are produced by the upstream spot finder and are
// read-only inputs to decoding.
package intensity

import (
	"fmt"
	"math"
)

// Spot holds the metadata of a single detected spot.
type Spot struct {
	// ID is the stable spot identifier carried into the decoded table.
	ID string

	// X, Y, Z are the spatial coordinates of the spot centroid.
	X, Y, Z float64

	// Radius is the detected spot scale in pixels.
	Radius float64
}

// Table is a dense per-spot intensity matrix with fixed (round, channel)
// dimensions. Values are stored spot-major, then round-major:
//
//	index = (spot*rounds + round)*channels + channel
//
// Missing measurements are flagged explicitly and never silently
// zero-filled; decoders distinguish "low signal" from "not measured".
type Table struct {
	rounds   int
	channels int
	spots    []Spot
	values   []float64
	missing  []bool
}

// NewTable creates an empty intensity table with the given dimensions.
func NewTable(rounds, channels int) (*Table, error) {
	if rounds <= 0 || channels <= 0 {
		return nil, fmt.Errorf("intensity table dimensions must be positive, got %dx%d", rounds, channels)
	}
	return &Table{rounds: rounds, channels: channels}, nil
}

// AddSpot appends one spot record. values must hold rounds*channels
// intensities in round-major order. missing may be nil (fully measured) or a
// mask of the same length marking unmeasured cells; the intensity value of a
// missing cell is ignored.
func (t *Table) AddSpot(spot Spot, values []float64, missing []bool) error {
	n := t.rounds * t.channels
	if len(values) != n {
		return fmt.Errorf("spot %q: expected %d intensity values, got %d", spot.ID, n, len(values))
	}
	if missing != nil && len(missing) != n {
		return fmt.Errorf("spot %q: expected %d missing flags, got %d", spot.ID, n, len(missing))
	}
	t.spots = append(t.spots, spot)
	t.values = append(t.values, values...)
	if missing == nil {
		missing = make([]bool, n)
	}
	t.missing = append(t.missing, missing...)
	return nil
}

// Rounds returns the number of imaging rounds.
func (t *Table) Rounds() int { return t.rounds }

// Channels returns the number of channels per round.
func (t *Table) Channels() int { return t.channels }

// NumSpots returns the number of spot records.
func (t *Table) NumSpots() int { return len(t.spots) }

// Spot returns the metadata of spot s.
func (t *Table) Spot(s int) Spot { return t.spots[s] }

// Value returns the measured intensity of spot s at (round, channel).
func (t *Table) Value(s, round, channel int) float64 {
	return t.values[(s*t.rounds+round)*t.channels+channel]
}

// IsMissing reports whether the measurement of spot s at (round, channel)
// was flagged as not measured.
func (t *Table) IsMissing(s, round, channel int) bool {
	return t.missing[(s*t.rounds+round)*t.channels+channel]
}

// RoundHasMissing reports whether any channel of the given round is
// unmeasured for spot s.
func (t *Table) RoundHasMissing(s, round int) bool {
	base := (s*t.rounds + round) * t.channels
	for c := 0; c < t.channels; c++ {
		if t.missing[base+c] {
			return true
		}
	}
	return false
}

// HasMissing reports whether spot s has any unmeasured cell.
func (t *Table) HasMissing(s int) bool {
	base := s * t.rounds * t.channels
	for i := 0; i < t.rounds*t.channels; i++ {
		if t.missing[base+i] {
			return true
		}
	}
	return false
}

// IsFinite reports whether every measured intensity of spot s is a finite
// number. Spots carrying NaN or infinite measurements are pathological and
// resolve to diagnostic no-calls rather than aborting a batch.
func (t *Table) IsFinite(s int) bool {
	base := s * t.rounds * t.channels
	for i := 0; i < t.rounds*t.channels; i++ {
		if t.missing[base+i] {
			continue
		}
		v := t.values[base+i]
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// SpotVector returns a copy of the flattened (round-major) intensity vector
// of spot s. Missing cells are copied as stored; callers that cannot handle
// unmeasured values must check HasMissing first.
func (t *Table) SpotVector(s int) []float64 {
	base := s * t.rounds * t.channels
	out := make([]float64, t.rounds*t.channels)
	copy(out, t.values[base:base+len(out)])
	return out
}
