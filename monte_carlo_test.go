package options

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonteCarloReproducibleForFixedSeed(t *testing.T) {
	first, err := NewMonteCarlo(100, 100, 1.0, 0.05, 0.20, 200000, 7)
	require.NoError(t, err)
	second, err := NewMonteCarlo(100, 100, 1.0, 0.05, 0.20, 200000, 7)
	require.NoError(t, err)

	assert.Equal(t, first.Simulate(), second.Simulate())
	assert.Equal(t, first.CallPrice(), second.CallPrice())
}

func TestMonteCarloDifferentSeedsDiffer(t *testing.T) {
	first, err := NewMonteCarlo(100, 100, 1.0, 0.05, 0.20, 10000, 1)
	require.NoError(t, err)
	second, err := NewMonteCarlo(100, 100, 1.0, 0.05, 0.20, 10000, 2)
	require.NoError(t, err)

	assert.NotEqual(t, first.CallPrice(), second.CallPrice())
}

func TestMonteCarloSimulateIdempotent(t *testing.T) {
	mc, err := NewMonteCarlo(100, 100, 1.0, 0.05, 0.20, 5000, 3)
	require.NoError(t, err)

	prices := mc.Simulate()
	assert.Len(t, prices, 5000)
	again := mc.Simulate()
	assert.Same(t, &prices[0], &again[0])
}

func TestMonteCarloApproachesAnalyticPrice(t *testing.T) {
	bs, err := NewBlackScholes(100, 100, 1.0, 0.05, 0.20)
	require.NoError(t, err)

	mc, err := NewMonteCarlo(100, 100, 1.0, 0.05, 0.20, 500000, 11)
	require.NoError(t, err)

	estimate, err := mc.ConfidenceInterval(CallOption, 0.95)
	require.NoError(t, err)

	// The analytic price should sit within a few standard errors of the
	// estimate at half a million paths.
	assert.InDelta(t, bs.CallPrice(), estimate.Price, 5*estimate.StdError)
	assert.InDelta(t, bs.PutPrice(), mc.PutPrice(), 0.1)
}

func TestMonteCarloConfidenceInterval(t *testing.T) {
	mc, err := NewMonteCarlo(100, 100, 1.0, 0.05, 0.20, 100000, 5)
	require.NoError(t, err)

	estimate, err := mc.ConfidenceInterval(CallOption, 0.95)
	require.NoError(t, err)

	assert.Greater(t, estimate.StdError, 0.0)
	assert.Less(t, estimate.Lower, estimate.Price)
	assert.Greater(t, estimate.Upper, estimate.Price)
	assert.InDelta(t, estimate.Price-estimate.Lower,
		estimate.Upper-estimate.Price, 1e-12)

	// A wider confidence level widens the band.
	wider, err := mc.ConfidenceInterval(CallOption, 0.99)
	require.NoError(t, err)
	assert.Greater(t, wider.Upper-wider.Lower,
		estimate.Upper-estimate.Lower)
}

func TestMonteCarloIntervalShrinksWithPaths(t *testing.T) {
	small, err := NewMonteCarlo(100, 100, 1.0, 0.05, 0.20, 10000, 9)
	require.NoError(t, err)
	large, err := NewMonteCarlo(100, 100, 1.0, 0.05, 0.20, 400000, 9)
	require.NoError(t, err)

	smallEst, err := small.ConfidenceInterval(CallOption, 0.95)
	require.NoError(t, err)
	largeEst, err := large.ConfidenceInterval(CallOption, 0.95)
	require.NoError(t, err)

	assert.Less(t, largeEst.StdError, smallEst.StdError)
}

func TestMonteCarloIntervalCoverage(t *testing.T) {
	// Across independent seeds the 95% interval should contain the
	// analytic price about 95% of the time. 33 of 40 leaves generous
	// slack for sampling noise while still catching a broken interval.
	bs, err := NewBlackScholes(100, 100, 1.0, 0.05, 0.20)
	require.NoError(t, err)
	reference := bs.CallPrice()

	covered := 0
	for seed := uint64(1); seed <= 40; seed++ {
		mc, err := NewMonteCarlo(100, 100, 1.0, 0.05, 0.20, 20000, seed)
		require.NoError(t, err)
		estimate, err := mc.ConfidenceInterval(CallOption, 0.95)
		require.NoError(t, err)
		if estimate.Lower <= reference && reference <= estimate.Upper {
			covered++
		}
	}
	assert.GreaterOrEqual(t, covered, 33)
}

func TestMonteCarloDegenerateContract(t *testing.T) {
	// Zero volatility collapses every path onto the forward.
	mc, err := NewMonteCarlo(100, 90, 1.0, 0.05, 0, 1000, 1)
	require.NoError(t, err)

	expected := 100 - 90*math.Exp(-0.05)
	assert.InDelta(t, expected, mc.CallPrice(), 1e-9)
	assert.InDelta(t, 0, mc.PutPrice(), 1e-12)
}

func TestMonteCarloInvalidParameters(t *testing.T) {
	_, err := NewMonteCarlo(100, 100, 1.0, 0.05, 0.20, 0, 1)
	assert.Error(t, err)

	_, err = NewMonteCarlo(0, 100, 1.0, 0.05, 0.20, 1000, 1)
	assert.Error(t, err)

	mc, err := NewMonteCarlo(100, 100, 1.0, 0.05, 0.20, 1000, 1)
	require.NoError(t, err)

	_, err = mc.ConfidenceInterval(CallOption, 0)
	assert.Error(t, err)
	_, err = mc.ConfidenceInterval(CallOption, 1)
	assert.Error(t, err)
	_, err = mc.ConfidenceInterval(OptionType("swap"), 0.95)
	assert.ErrorIs(t, err, ErrUnknownOptionType)
}

func TestMonteCarloPriceByType(t *testing.T) {
	mc, err := NewMonteCarlo(100, 100, 1.0, 0.05, 0.20, 10000, 4)
	require.NoError(t, err)

	call, err := mc.PriceByType(CallOption)
	require.NoError(t, err)
	assert.Equal(t, mc.CallPrice(), call)

	_, err = mc.PriceByType(OptionType("swap"))
	assert.ErrorIs(t, err, ErrUnknownOptionType)
}
