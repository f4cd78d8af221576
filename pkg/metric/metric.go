// Package metric provides the pluggable distance functions used by
// distance-based decoders. All functions are pure, symmetric and return a
// non-negative scalar for two equal-length vectors.
package metric

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// Func computes a dissimilarity between two equal-length vectors.
// Callers are responsible for ensuring the vectors have the same length.
type Func func(a, b []float64) float64

// Metric identifies a distance function.
type Metric int

const (
	// Euclidean is the L2 norm of the difference vector.
	Euclidean Metric = iota
	// SquaredEuclidean is the squared L2 distance; same ordering as
	// Euclidean but cheaper, with threshold semantics in squared units.
	SquaredEuclidean
	// Manhattan is the L1 norm of the difference vector.
	Manhattan
	// Cosine is 1 minus the cosine similarity. Zero-magnitude inputs are
	// maximally distant by convention.
	Cosine
)

func (m Metric) String() string {
	switch m {
	case Euclidean:
		return "euclidean"
	case SquaredEuclidean:
		return "squared-euclidean"
	case Manhattan:
		return "manhattan"
	case Cosine:
		return "cosine"
	default:
		return fmt.Sprintf("unknown(%d)", int(m))
	}
}

// Parse maps a configuration name to a Metric.
func Parse(name string) (Metric, error) {
	switch name {
	case "euclidean", "l2":
		return Euclidean, nil
	case "squared-euclidean", "sql2":
		return SquaredEuclidean, nil
	case "manhattan", "l1":
		return Manhattan, nil
	case "cosine":
		return Cosine, nil
	default:
		return 0, fmt.Errorf("unsupported metric %q", name)
	}
}

// Provider returns the distance function for the given metric.
func Provider(m Metric) (Func, error) {
	switch m {
	case Euclidean:
		return EuclideanDistance, nil
	case SquaredEuclidean:
		return SquaredEuclideanDistance, nil
	case Manhattan:
		return ManhattanDistance, nil
	case Cosine:
		return CosineDistance, nil
	default:
		return nil, fmt.Errorf("unsupported metric: %v", m)
	}
}

// EuclideanDistance returns the L2 distance between a and b.
func EuclideanDistance(a, b []float64) float64 {
	return floats.Distance(a, b, 2)
}

// SquaredEuclideanDistance returns the squared L2 distance between a and b.
func SquaredEuclideanDistance(a, b []float64) float64 {
	d := floats.Distance(a, b, 2)
	return d * d
}

// ManhattanDistance returns the L1 distance between a and b.
func ManhattanDistance(a, b []float64) float64 {
	return floats.Distance(a, b, 1)
}

// CosineDistance returns 1 minus the cosine similarity of a and b.
// If either vector has zero magnitude the similarity is undefined and the
// distance is 1.
func CosineDistance(a, b []float64) float64 {
	na := floats.Norm(a, 2)
	nb := floats.Norm(b, 2)
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - floats.Dot(a, b)/(na*nb)
}
