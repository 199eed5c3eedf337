package options

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormCdfKnownValues(t *testing.T) {
	assert.InDelta(t, 0.5, NormCdf(0), 1e-12)
	assert.InDelta(t, 0.8413447460685429, NormCdf(1), 1e-12)
	assert.InDelta(t, 0.9772498680518208, NormCdf(2), 1e-12)
	assert.InDelta(t, NormCdf(-1.5), 1-NormCdf(1.5), 1e-12)
}

func TestNormPdfSymmetric(t *testing.T) {
	assert.InDelta(t, 0.3989422804014327, NormPdf(0), 1e-12)
	assert.InDelta(t, NormPdf(0.7), NormPdf(-0.7), 1e-12)
}

func TestNormQuantileInvertsCdf(t *testing.T) {
	for _, p := range []float64{0.01, 0.1, 0.5, 0.9, 0.975, 0.999} {
		assert.InDelta(t, p, NormCdf(NormQuantile(p)), 1e-12)
	}
	assert.InDelta(t, 1.959963984540054, NormQuantile(0.975), 1e-9)
}

func TestNormalStreamsIndependent(t *testing.T) {
	first := newNormalStream(1)
	second := newNormalStream(1)
	assert.Equal(t, first.Rand(), second.Rand())

	third := newNormalStream(2)
	fourth := newNormalStream(1)
	fourth.Rand()
	assert.NotEqual(t, third.Rand(), fourth.Rand())
}
