package decoder

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"spotdecode/pkg/codebook"
	"spotdecode/pkg/intensity"
	"spotdecode/pkg/metric"
)

// equidistanceTol is the absolute tolerance under which two candidate
// distances count as tied. Ties are recorded as ambiguous no-calls rather
// than resolved arbitrarily.
const equidistanceTol = 1e-9

// Compile-time check that MetricDistance satisfies the decoding contract.
var _ Decoder = (*MetricDistance)(nil)

// Normalization selects how intensity vectors are scaled before distance
// computation.
type Normalization int

const (
	// NormNone leaves vectors unscaled.
	NormNone Normalization = iota
	// NormL2 scales the whole flattened vector to unit L2 norm.
	NormL2
	// NormPerRound scales each round's channel block to unit L2 norm
	// independently, removing per-round brightness differences.
	NormPerRound
)

func (n Normalization) String() string {
	switch n {
	case NormNone:
		return "none"
	case NormL2:
		return "l2"
	case NormPerRound:
		return "per-round"
	default:
		return fmt.Sprintf("unknown(%d)", int(n))
	}
}

// ParseNormalization maps a configuration name to a Normalization.
func ParseNormalization(name string) (Normalization, error) {
	switch name {
	case "", "none":
		return NormNone, nil
	case "l2":
		return NormL2, nil
	case "per-round":
		return NormPerRound, nil
	default:
		return 0, fmt.Errorf("unsupported normalization %q", name)
	}
}

// MetricDistanceOptions configures the nearest-entry decoder.
type MetricDistanceOptions struct {
	// Metric selects the distance function.
	Metric metric.Metric

	// Threshold is the maximum distance at which the nearest entry is still
	// assigned. Must be positive.
	Threshold float64

	// Normalization is applied to the spot vector before measuring.
	Normalization Normalization

	// NormalizeTargets applies the same normalization to the codebook's
	// one-hot vectors, weighting them consistently with the measurements.
	NormalizeTargets bool

	// Workers bounds the parallel spot fan-out. Zero uses GOMAXPROCS.
	Workers int
}

// DefaultMetricDistanceOptions holds the default configuration.
var DefaultMetricDistanceOptions = MetricDistanceOptions{
	Metric:           metric.Euclidean,
	Threshold:        0.5,
	Normalization:    NormNone,
	NormalizeTargets: true,
}

// MetricDistance flattens each spot's intensity array into a vector,
// normalizes it and assigns the codebook entry with minimum distance under
// the configured metric, provided that distance is below the threshold.
// Equidistant best candidates are recorded as ambiguous no-calls.
type MetricDistance struct {
	opts MetricDistanceOptions
	dist metric.Func
}

// NewMetricDistance creates a MetricDistance decoder with eagerly validated
// options.
func NewMetricDistance(optFns ...func(o *MetricDistanceOptions)) (*MetricDistance, error) {
	opts := DefaultMetricDistanceOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	if math.IsNaN(opts.Threshold) || math.IsInf(opts.Threshold, 0) || opts.Threshold <= 0 {
		return nil, &ErrInvalidOptions{Option: "Threshold", Reason: fmt.Sprintf("must be a positive finite number, got %v", opts.Threshold)}
	}
	switch opts.Normalization {
	case NormNone, NormL2, NormPerRound:
	default:
		return nil, &ErrInvalidOptions{Option: "Normalization", Reason: fmt.Sprintf("unknown normalization %d", int(opts.Normalization))}
	}
	dist, err := metric.Provider(opts.Metric)
	if err != nil {
		return nil, &ErrInvalidOptions{Option: "Metric", Reason: err.Error()}
	}
	if err := validateWorkers(opts.Workers); err != nil {
		return nil, err
	}
	return &MetricDistance{opts: opts, dist: dist}, nil
}

func (d *MetricDistance) Name() string { return "metric-distance" }

// Decode implements the Decoder contract.
func (d *MetricDistance) Decode(ctx context.Context, t *intensity.Table, cb *codebook.Codebook) (*Table, error) {
	if err := checkDimensions(t, cb); err != nil {
		return nil, err
	}

	// Codebook vectors are shared read-only across all workers.
	targets := make([][]float64, cb.Len())
	for i := range targets {
		v := cb.Vector(i)
		if d.opts.NormalizeTargets {
			d.normalize(v, cb.Rounds(), cb.Channels())
		}
		targets[i] = v
	}

	return decodeSpots(ctx, t, d.opts.Workers, func(s int) Record {
		return d.decodeSpot(t, cb, targets, s)
	})
}

func (d *MetricDistance) decodeSpot(t *intensity.Table, cb *codebook.Codebook, targets [][]float64, s int) Record {
	rounds := t.Rounds()
	rec := Record{
		SpotID:    t.Spot(s).ID,
		RoundPass: make([]bool, rounds),
	}

	// Distances to unmeasured values are undefined; never zero-fill.
	if t.HasMissing(s) {
		rec.Reason = NoCallMissingRound
		return rec
	}

	v := t.SpotVector(s)
	d.normalize(v, rounds, t.Channels())

	best, second := -1, -1
	bestDist, secondDist := math.Inf(1), math.Inf(1)
	for i, target := range targets {
		dist := d.dist(v, target)
		if dist < bestDist {
			second, secondDist = best, bestDist
			best, bestDist = i, dist
		} else if dist < secondDist {
			second, secondDist = i, dist
		}
	}

	rec.Distance = bestDist
	if second >= 0 && secondDist-bestDist <= equidistanceTol {
		rec.Reason = NoCallAmbiguous
		return rec
	}
	if bestDist > d.opts.Threshold {
		rec.Reason = NoCallBelowThreshold
		return rec
	}

	rec.Target = cb.Target(best)
	rec.Quality = clamp01(1 - bestDist/d.opts.Threshold)
	for r := range rec.RoundPass {
		rec.RoundPass[r] = true
	}
	return rec
}

// normalize scales v in place according to the configured normalization.
// Zero-norm blocks are left untouched.
func (d *MetricDistance) normalize(v []float64, rounds, channels int) {
	switch d.opts.Normalization {
	case NormL2:
		if n := floats.Norm(v, 2); n > 0 {
			floats.Scale(1/n, v)
		}
	case NormPerRound:
		for r := 0; r < rounds; r++ {
			block := v[r*channels : (r+1)*channels]
			if n := floats.Norm(block, 2); n > 0 {
				floats.Scale(1/n, block)
			}
		}
	}
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
