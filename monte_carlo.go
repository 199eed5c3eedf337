package options

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/golang/glog"
	"gonum.org/v1/gonum/stat"
)

const (
	// kMcChunkSize is the number of paths each worker goroutine owns.
	// Chunk boundaries also define the seed schedule, so the terminal
	// price array is reproducible regardless of how the chunks are
	// scheduled.
	kMcChunkSize = 65536
)

// MonteCarlo prices a European option pair by simulating terminal asset
// prices under the risk-neutral measure,
// S_T = S * exp((r - sigma^2/2)T + sigma*sqrt(T)*Z). Simulation happens
// once; both legs and the confidence intervals reuse the same terminal
// prices.
type MonteCarlo struct {
	AssetPrice     float64
	StrikePrice    float64
	YearsToExpiry  float64
	InterestRate   float64
	Volatility     float64
	NumSimulations int
	Seed           uint64

	terminalPrices []float64
}

// NewMonteCarlo validates the contract and fixes the simulation count and
// base seed. Chunk i draws from a fresh stream seeded with Seed+i, so two
// pricers constructed with the same seed and count produce identical
// terminal prices.
func NewMonteCarlo(
	assetPrice float64,
	strikePrice float64,
	yearsToExpiry float64,
	interestRate float64,
	volatility float64,
	numSimulations int,
	seed uint64) (*MonteCarlo, error) {

	err := validateContract(assetPrice, strikePrice, yearsToExpiry, volatility)
	if err != nil {
		return nil, err
	}
	if numSimulations < 1 {
		msg := fmt.Sprintf("Number of simulations must be at least 1, got %d.",
			numSimulations)
		glog.Error(msg)
		return nil, errors.New(msg)
	}

	return &MonteCarlo{
		AssetPrice:     assetPrice,
		StrikePrice:    strikePrice,
		YearsToExpiry:  yearsToExpiry,
		InterestRate:   interestRate,
		Volatility:     volatility,
		NumSimulations: numSimulations,
		Seed:           seed,
	}, nil
}

// NewMonteCarloAutoSeed builds a pricer seeded from the wall clock, for
// callers that want fresh paths rather than reproducibility.
func NewMonteCarloAutoSeed(
	assetPrice float64,
	strikePrice float64,
	yearsToExpiry float64,
	interestRate float64,
	volatility float64,
	numSimulations int) (*MonteCarlo, error) {

	return NewMonteCarlo(assetPrice, strikePrice, yearsToExpiry, interestRate,
		volatility, numSimulations, uint64(time.Now().UnixNano()))
}

// fillChunk simulates terminal prices into dst using the stream for the
// given chunk index.
func (self *MonteCarlo) fillChunk(dst []float64, chunkIndex int) {
	normals := newNormalStream(self.Seed + uint64(chunkIndex))
	drift := (self.InterestRate - 0.5*self.Volatility*self.Volatility) *
		self.YearsToExpiry
	diffusion := self.Volatility * math.Sqrt(self.YearsToExpiry)
	for i := range dst {
		dst[i] = self.AssetPrice * math.Exp(drift+diffusion*normals.Rand())
	}
}

// Simulate generates the terminal price array. Small runs are simulated
// inline; larger runs are split into fixed-size chunks executed on their
// own goroutines and joined before returning. Simulate is idempotent:
// repeated calls keep the first array.
func (self *MonteCarlo) Simulate() []float64 {
	if self.terminalPrices != nil {
		return self.terminalPrices
	}

	prices := make([]float64, self.NumSimulations)
	if self.NumSimulations <= kMcChunkSize {
		self.fillChunk(prices, 0)
		self.terminalPrices = prices
		return prices
	}

	var wg sync.WaitGroup
	for chunk, start := 0, 0; start < self.NumSimulations; chunk++ {
		end := start + kMcChunkSize
		if end > self.NumSimulations {
			end = self.NumSimulations
		}
		wg.Add(1)
		go func(dst []float64, chunkIndex int) {
			defer wg.Done()
			self.fillChunk(dst, chunkIndex)
		}(prices[start:end], chunk)
		start = end
	}
	wg.Wait()

	self.terminalPrices = prices
	return prices
}

// payoffs maps the terminal prices to discounted payoffs for one leg.
func (self *MonteCarlo) payoffs(optionType OptionType) []float64 {
	terminal := self.Simulate()
	discount := math.Exp(-self.InterestRate * self.YearsToExpiry)
	out := make([]float64, len(terminal))
	for i, st := range terminal {
		if optionType == CallOption {
			out[i] = discount * MaxFloat(0, st-self.StrikePrice)
		} else {
			out[i] = discount * MaxFloat(0, self.StrikePrice-st)
		}
	}
	return out
}

// CallPrice returns the discounted mean call payoff over the simulated
// terminal prices, running the simulation on first use.
func (self *MonteCarlo) CallPrice() float64 {
	return stat.Mean(self.payoffs(CallOption), nil)
}

// PutPrice returns the discounted mean put payoff.
func (self *MonteCarlo) PutPrice() float64 {
	return stat.Mean(self.payoffs(PutOption), nil)
}

// PriceByType returns the simulated price of the requested leg.
func (self *MonteCarlo) PriceByType(optionType OptionType) (float64, error) {
	if !optionType.valid() {
		return math.NaN(), ErrUnknownOptionType
	}
	return stat.Mean(self.payoffs(optionType), nil), nil
}

// ConfidenceInterval returns the estimate with a symmetric normal
// approximation interval, mean +/- z * stderr, where z is the two-sided
// quantile for the requested confidence level (0.95 gives z ~ 1.96).
func (self *MonteCarlo) ConfidenceInterval(
	optionType OptionType, confidence float64) (McEstimate, error) {

	if !optionType.valid() {
		return McEstimate{}, ErrUnknownOptionType
	}
	if confidence <= 0 || confidence >= 1 {
		msg := fmt.Sprintf(
			"Confidence level must be in (0, 1), got %v.", confidence)
		glog.Error(msg)
		return McEstimate{}, errors.New(msg)
	}

	discounted := self.payoffs(optionType)
	mean := stat.Mean(discounted, nil)
	stderr := stat.StdDev(discounted, nil) /
		math.Sqrt(float64(len(discounted)))
	z := NormQuantile((1 + confidence) / 2)
	return McEstimate{
		Price:      mean,
		StdError:   stderr,
		Confidence: confidence,
		Lower:      mean - z*stderr,
		Upper:      mean + z*stderr,
	}, nil
}

// McEstimate is a simulated price with its sampling error band.
type McEstimate struct {
	Price      float64
	StdError   float64
	Confidence float64
	Lower      float64
	Upper      float64
}
