package options

import (
	exprand "golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// NormCdf returns the cumulative distribution function of the standard
// normal distribution at x, i.e. the probability that a standard normal
// variable is less than or equal to x.
func NormCdf(x float64) float64 {
	return distuv.Normal{Mu: 0, Sigma: 1}.CDF(x)
}

// NormPdf returns the probability density of the standard normal
// distribution at x.
func NormPdf(x float64) float64 {
	return distuv.UnitNormal.Prob(x)
}

// NormQuantile returns the inverse CDF of the standard normal
// distribution, i.e. the z value such that NormCdf(z) == p.
func NormQuantile(p float64) float64 {
	return distuv.UnitNormal.Quantile(p)
}

// newNormalStream returns a standard normal sampler backed by its own
// seeded source, so independent streams never share generator state.
func newNormalStream(seed uint64) distuv.Normal {
	return distuv.Normal{Mu: 0, Sigma: 1, Src: exprand.NewSource(seed)}
}
