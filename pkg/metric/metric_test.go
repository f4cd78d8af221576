package metric

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistancesKnownValues(t *testing.T) {
	a := []float64{1, 0, 0, 1}
	b := []float64{0, 1, 0, 1}

	assert.InDelta(t, math.Sqrt(2), EuclideanDistance(a, b), 1e-12)
	assert.InDelta(t, 2, SquaredEuclideanDistance(a, b), 1e-12)
	assert.InDelta(t, 2, ManhattanDistance(a, b), 1e-12)
	assert.InDelta(t, 0.5, CosineDistance(a, b), 1e-12)
}

func TestDistanceOfIdenticalVectorsIsZero(t *testing.T) {
	v := []float64{0.3, 0.7, 0.1}
	for _, m := range []Metric{Euclidean, SquaredEuclidean, Manhattan, Cosine} {
		fn, err := Provider(m)
		require.NoError(t, err)
		assert.InDelta(t, 0, fn(v, v), 1e-12, "metric %v", m)
	}
}

func TestDistancesAreSymmetric(t *testing.T) {
	a := []float64{0.9, 0.1, 0.4}
	b := []float64{0.2, 0.8, 0.5}
	for _, m := range []Metric{Euclidean, SquaredEuclidean, Manhattan, Cosine} {
		fn, err := Provider(m)
		require.NoError(t, err)
		assert.Equal(t, fn(a, b), fn(b, a), "metric %v", m)
	}
}

func TestCosineDistanceZeroMagnitude(t *testing.T) {
	zero := []float64{0, 0}
	assert.Equal(t, 1.0, CosineDistance(zero, []float64{1, 0}))
	assert.Equal(t, 1.0, CosineDistance([]float64{1, 0}, zero))
}

func TestParse(t *testing.T) {
	cases := map[string]Metric{
		"euclidean":         Euclidean,
		"l2":                Euclidean,
		"squared-euclidean": SquaredEuclidean,
		"manhattan":         Manhattan,
		"l1":                Manhattan,
		"cosine":            Cosine,
	}
	for name, want := range cases {
		got, err := Parse(name)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := Parse("chebyshev")
	assert.Error(t, err)
}

func TestProviderRejectsUnknownMetric(t *testing.T) {
	_, err := Provider(Metric(42))
	assert.Error(t, err)
}
