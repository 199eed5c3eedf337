package options

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBinomialTreeConvergesToBlackScholes(t *testing.T) {
	bs, err := NewBlackScholes(100, 100, 1.0, 0.05, 0.20)
	require.NoError(t, err)

	tree, err := NewBinomialTree(100, 100, 1.0, 0.05, 0.20, 1000)
	require.NoError(t, err)

	assert.InDelta(t, bs.CallPrice(), tree.CallPrice(), 0.01)
	assert.InDelta(t, bs.PutPrice(), tree.PutPrice(), 0.01)
}

func TestBinomialTreeErrorShrinksWithSteps(t *testing.T) {
	bs, err := NewBlackScholes(42, 40, 0.5, 0.10, 0.20)
	require.NoError(t, err)
	reference := bs.CallPrice()

	coarse, err := NewBinomialTree(42, 40, 0.5, 0.10, 0.20, 10)
	require.NoError(t, err)
	dense, err := NewBinomialTree(42, 40, 0.5, 0.10, 0.20, 1000)
	require.NoError(t, err)

	coarseErr := math.Abs(coarse.CallPrice() - reference)
	denseErr := math.Abs(dense.CallPrice() - reference)
	assert.Less(t, denseErr, coarseErr)
}

func TestBinomialTreeParityExactAtEveryStepCount(t *testing.T) {
	for _, steps := range []int{1, 2, 17, 100, 501} {
		tree, err := NewBinomialTree(100, 110, 0.5, 0.03, 0.25, steps)
		require.NoError(t, err)

		expected := 100 - 110*math.Exp(-0.03*0.5)
		assert.InDelta(t, expected, tree.CallPrice()-tree.PutPrice(), 1e-9,
			"steps=%d", steps)
	}
}

func TestBinomialTreeDegenerateBoundary(t *testing.T) {
	tree, err := NewBinomialTree(110, 100, 0, 0.05, 0.20, 100)
	require.NoError(t, err)
	assert.InDelta(t, 10, tree.CallPrice(), 1e-12)
	assert.InDelta(t, 0, tree.PutPrice(), 1e-12)

	tree, err = NewBinomialTree(90, 100, 1.0, 0.05, 0, 100)
	require.NoError(t, err)
	discounted := 100 * math.Exp(-0.05)
	assert.InDelta(t, discounted-90, tree.PutPrice(), 1e-12)
}

func TestBinomialTreeGreeksTrackAnalytic(t *testing.T) {
	bs, err := NewBlackScholes(100, 100, 1.0, 0.05, 0.20)
	require.NoError(t, err)
	analytic := bs.CeGreeks()

	tree, err := NewBinomialTree(100, 100, 1.0, 0.05, 0.20, 500)
	require.NoError(t, err)

	delta, err := tree.Delta(CallOption)
	require.NoError(t, err)
	assert.InDelta(t, analytic.Delta, delta, 0.02)

	// The lattice price is piecewise linear in spot, so the second
	// difference is lumpy; only convexity is guaranteed at this bump size.
	gamma, err := tree.Gamma(CallOption)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, gamma, 0.0)

	theta, err := tree.Theta(CallOption)
	require.NoError(t, err)
	assert.InDelta(t, analytic.Theta, theta, 2.0)
	assert.Less(t, theta, 0.0)
}

func TestBinomialTreeInvalidParameters(t *testing.T) {
	_, err := NewBinomialTree(100, 100, 1.0, 0.05, 0.20, 0)
	assert.Error(t, err)

	_, err = NewBinomialTree(100, 100, 1.0, 0.05, 0.20, -5)
	assert.Error(t, err)

	_, err = NewBinomialTree(-100, 100, 1.0, 0.05, 0.20, 100)
	assert.Error(t, err)
}

func TestBinomialTreeUnknownOptionType(t *testing.T) {
	tree, err := NewBinomialTree(100, 100, 1.0, 0.05, 0.20, 100)
	require.NoError(t, err)

	_, err = tree.PriceByType(OptionType("spread"))
	assert.ErrorIs(t, err, ErrUnknownOptionType)

	_, err = tree.Delta(OptionType("spread"))
	assert.ErrorIs(t, err, ErrUnknownOptionType)
}

func TestBinomialTreeSingleStep(t *testing.T) {
	// A one-step tree is a two-point distribution; the price must still
	// be a discounted risk-neutral expectation, bounded by the payoffs.
	tree, err := NewBinomialTree(100, 100, 1.0, 0.05, 0.20, 1)
	require.NoError(t, err)

	price := tree.CallPrice()
	assert.Greater(t, price, 0.0)
	assert.Less(t, price, 100.0)
}
