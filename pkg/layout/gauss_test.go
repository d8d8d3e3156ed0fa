package layout

import (
	"math"
	"testing"
)

func TestGaussianMoments(t *testing.T) {
	const samples = 200000

	var sum, sumSq float64
	for i := 0; i < samples; i++ {
		v := Gaussian(0, 1)
		sum += v
		sumSq += v * v
	}
	mean := sum / samples
	variance := sumSq/samples - mean*mean

	// Loose statistical bounds; the point is catching gross implementation
	// errors, not certifying the distribution.
	if math.Abs(mean) > 0.05 {
		t.Errorf("mean = %g, want ~0", mean)
	}
	if math.Abs(variance-1) > 0.05 {
		t.Errorf("variance = %g, want ~1", variance)
	}
}

func TestGaussianShift(t *testing.T) {
	const samples = 100000

	var sum float64
	for i := 0; i < samples; i++ {
		sum += Gaussian(10, 2)
	}
	mean := sum / samples
	if math.Abs(mean-10) > 0.1 {
		t.Errorf("mean = %g, want ~10", mean)
	}
}

func TestGaussianFinite(t *testing.T) {
	for i := 0; i < 1000; i++ {
		if v := Gaussian(0, 2); math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("sample %d not finite: %g", i, v)
		}
	}
}
