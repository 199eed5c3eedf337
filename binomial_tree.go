package options

import (
	"errors"
	"fmt"
	"math"

	"github.com/golang/glog"
)

const (
	// kBinomialBumpFraction is the relative spot bump used by the
	// finite-difference delta and gamma estimates.
	kBinomialBumpFraction = 0.0001

	// kOneDayInYears shortens the tree for the theta estimate.
	kOneDayInYears = 1.0 / 365.0
)

// BinomialTree prices a European option pair on a Cox-Ross-Rubinstein
// recombining lattice. With enough steps the price converges to the
// Black-Scholes value; put-call parity holds exactly at every step count
// because both legs are discounted over the same risk-neutral tree.
type BinomialTree struct {
	AssetPrice    float64
	StrikePrice   float64
	YearsToExpiry float64
	InterestRate  float64
	Volatility    float64
	NumSteps      int

	// CRR lattice parameters, fixed at construction.
	dt     float64
	up     float64
	down   float64
	pUp    float64
	growth float64
}

// NewBinomialTree validates the contract and precomputes the lattice
// parameters: dt = T/n, u = e^(sigma*sqrt(dt)), d = 1/u and the
// risk-neutral probability p = (e^(r*dt) - d) / (u - d).
func NewBinomialTree(
	assetPrice float64,
	strikePrice float64,
	yearsToExpiry float64,
	interestRate float64,
	volatility float64,
	numSteps int) (*BinomialTree, error) {

	err := validateContract(assetPrice, strikePrice, yearsToExpiry, volatility)
	if err != nil {
		return nil, err
	}
	if numSteps < 1 {
		msg := fmt.Sprintf("Number of tree steps must be at least 1, got %d.",
			numSteps)
		glog.Error(msg)
		return nil, errors.New(msg)
	}

	self := &BinomialTree{
		AssetPrice:    assetPrice,
		StrikePrice:   strikePrice,
		YearsToExpiry: yearsToExpiry,
		InterestRate:  interestRate,
		Volatility:    volatility,
		NumSteps:      numSteps,
	}
	if !self.degenerate() {
		self.dt = yearsToExpiry / float64(numSteps)
		self.up = math.Exp(volatility * math.Sqrt(self.dt))
		self.down = 1 / self.up
		self.growth = math.Exp(interestRate * self.dt)
		self.pUp = (self.growth - self.down) / (self.up - self.down)
	}
	return self, nil
}

func (self *BinomialTree) degenerate() bool {
	return self.YearsToExpiry == 0 || self.Volatility == 0
}

// price runs the backward induction for one leg. Terminal payoffs are
// filled into a single slice which is then collapsed in place, one layer
// per step, so the whole walk costs O(n) memory.
func (self *BinomialTree) price(optionType OptionType) float64 {
	if self.degenerate() {
		discounted := self.StrikePrice *
			math.Exp(-self.InterestRate*self.YearsToExpiry)
		if optionType == CallOption {
			return MaxFloat(0, self.AssetPrice-discounted)
		}
		return MaxFloat(0, discounted-self.AssetPrice)
	}

	n := self.NumSteps
	values := make([]float64, n+1)
	// Node j at the final layer holds S * u^j * d^(n-j).
	for j := 0; j <= n; j++ {
		terminal := self.AssetPrice *
			math.Pow(self.up, float64(j)) * math.Pow(self.down, float64(n-j))
		if optionType == CallOption {
			values[j] = MaxFloat(0, terminal-self.StrikePrice)
		} else {
			values[j] = MaxFloat(0, self.StrikePrice-terminal)
		}
	}

	discount := 1 / self.growth
	for step := n - 1; step >= 0; step-- {
		for j := 0; j <= step; j++ {
			values[j] = discount *
				(self.pUp*values[j+1] + (1-self.pUp)*values[j])
		}
	}
	return values[0]
}

func (self *BinomialTree) CallPrice() float64 {
	return self.price(CallOption)
}

func (self *BinomialTree) PutPrice() float64 {
	return self.price(PutOption)
}

// PriceByType returns the lattice price of the requested leg.
func (self *BinomialTree) PriceByType(optionType OptionType) (float64, error) {
	if !optionType.valid() {
		return math.NaN(), ErrUnknownOptionType
	}
	return self.price(optionType), nil
}

// rebuild returns a tree identical to self except for the given spot and
// expiry. The bumped trees share the contract, so the only error source
// is a bump driving a parameter out of range, which the bump sizes rule
// out for valid contracts.
func (self *BinomialTree) rebuild(
	assetPrice float64, yearsToExpiry float64) (*BinomialTree, error) {
	return NewBinomialTree(assetPrice, self.StrikePrice, yearsToExpiry,
		self.InterestRate, self.Volatility, self.NumSteps)
}

// Delta estimates dPrice/dSpot by central difference over a small
// relative spot bump.
func (self *BinomialTree) Delta(optionType OptionType) (float64, error) {
	if !optionType.valid() {
		return math.NaN(), ErrUnknownOptionType
	}
	eps := self.AssetPrice * kBinomialBumpFraction
	upTree, err := self.rebuild(self.AssetPrice+eps, self.YearsToExpiry)
	if err != nil {
		return math.NaN(), err
	}
	downTree, err := self.rebuild(self.AssetPrice-eps, self.YearsToExpiry)
	if err != nil {
		return math.NaN(), err
	}
	return (upTree.price(optionType) - downTree.price(optionType)) /
		(2 * eps), nil
}

// Gamma estimates the second spot derivative by the standard
// three-point central difference.
func (self *BinomialTree) Gamma(optionType OptionType) (float64, error) {
	if !optionType.valid() {
		return math.NaN(), ErrUnknownOptionType
	}
	eps := self.AssetPrice * kBinomialBumpFraction
	upTree, err := self.rebuild(self.AssetPrice+eps, self.YearsToExpiry)
	if err != nil {
		return math.NaN(), err
	}
	downTree, err := self.rebuild(self.AssetPrice-eps, self.YearsToExpiry)
	if err != nil {
		return math.NaN(), err
	}
	return (upTree.price(optionType) - 2*self.price(optionType) +
		downTree.price(optionType)) / (eps * eps), nil
}

// Theta estimates the per-year time decay by repricing on a tree one
// calendar day closer to expiry. Contracts expiring within a day fall
// back to the remaining expiry itself.
func (self *BinomialTree) Theta(optionType OptionType) (float64, error) {
	if !optionType.valid() {
		return math.NaN(), ErrUnknownOptionType
	}
	step := MinFloat(kOneDayInYears, self.YearsToExpiry)
	if step == 0 {
		return 0, nil
	}
	shorter, err := self.rebuild(self.AssetPrice, self.YearsToExpiry-step)
	if err != nil {
		return math.NaN(), err
	}
	return (shorter.price(optionType) - self.price(optionType)) / step, nil
}
