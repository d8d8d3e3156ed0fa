package layout

import (
	"math"
	"math/rand/v2"
)

// Gaussian draws one normally distributed sample with the given mean and
// standard deviation, shared by all layout algorithms.
//
// Sampling uses Marsaglia polar rejection: uniform pairs are drawn on the
// square and rejected outside the unit disk (or exactly at the origin) before
// the transform. Samples come from the ambient process-wide source; there is
// no persistent seed.
func Gaussian(mean, stddev float64) float64 {
	for {
		u := 2*rand.Float64() - 1
		v := 2*rand.Float64() - 1
		s := u*u + v*v
		if s >= 1 || s == 0 {
			continue
		}
		return mean + stddev*u*math.Sqrt(-2*math.Log(s)/s)
	}
}
