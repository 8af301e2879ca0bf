package synth

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
)

// Gaussian draws a d×n matrix of independent standard normal values using
// the Box–Muller transform. Each pair of uniforms (u1, u2) yields
// z1 = sqrt(-2 ln u1) cos(2π u2) and z2 = sqrt(-2 ln u1) sin(2π u2), which
// fill two successive rows; for odd d the last z2 is discarded.
//
// All randomness comes from rng, so repeated calls continue the stream and
// never reuse draws.
func Gaussian(rng *rand.Rand, d, n int) *mat.Dense {
	if d <= 0 || n <= 0 {
		return &mat.Dense{}
	}
	z := mat.NewDense(d, n, nil)
	for row := 0; row < d; row += 2 {
		for j := 0; j < n; j++ {
			// u1 ∈ (0,1] so that ln u1 is finite
			u1 := 1 - rng.Float64()
			u2 := rng.Float64()
			r := math.Sqrt(-2 * math.Log(u1))
			theta := 2 * math.Pi * u2
			z.Set(row, j, r*math.Cos(theta))
			if row+1 < d {
				z.Set(row+1, j, r*math.Sin(theta))
			}
		}
	}
	return z
}
