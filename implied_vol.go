package options

import (
	"errors"
	"fmt"
	"math"

	"github.com/golang/glog"
)

const (
	kIvDefaultInitialSigma = 0.3
	kIvMaxIterations       = 100
	kIvTolerance           = 1e-6
	kIvMinSigma            = 0.01
	kIvMaxSigma            = 5.0
	kIvMinVega             = 1e-10
)

var (
	// ErrIvVegaTooSmall means the Newton iteration landed where the price
	// is insensitive to volatility, typically deep in or out of the money.
	ErrIvVegaTooSmall = errors.New(
		"implied volatility: vega vanished, Newton step undefined")

	// ErrIvNoConvergence means the iteration budget ran out before the
	// price error fell under tolerance. A clamped iterate that never
	// converged reports this rather than the boundary value.
	ErrIvNoConvergence = errors.New(
		"implied volatility: Newton iteration did not converge")

	// ErrIvNoBracket means the market price lies outside the model price
	// range over the searchable volatility interval, so no root exists
	// to bisect for.
	ErrIvNoBracket = errors.New(
		"implied volatility: market price outside attainable model range")
)

// IvSolver inverts the Black-Scholes price for one contract leg against
// an observed market price. Newton-Raphson is tried first; Bisection is
// the derivative-free fallback for the flat-vega regions where Newton
// stalls.
type IvSolver struct {
	AssetPrice    float64
	StrikePrice   float64
	YearsToExpiry float64
	InterestRate  float64
	OptionType    OptionType
	MarketPrice   float64
}

// NewIvSolver validates the contract and the observed price. Expired
// contracts are rejected here: there is no volatility left to imply.
func NewIvSolver(
	assetPrice float64,
	strikePrice float64,
	yearsToExpiry float64,
	interestRate float64,
	optionType OptionType,
	marketPrice float64) (*IvSolver, error) {

	err := validateContract(assetPrice, strikePrice, yearsToExpiry, 0)
	if err != nil {
		return nil, err
	}
	if yearsToExpiry == 0 {
		msg := "Cannot imply volatility for an expired contract."
		glog.Error(msg)
		return nil, errors.New(msg)
	}
	if !optionType.valid() {
		return nil, ErrUnknownOptionType
	}
	if marketPrice <= 0 {
		msg := fmt.Sprintf("Market price must be positive, got %v.",
			marketPrice)
		glog.Error(msg)
		return nil, errors.New(msg)
	}

	return &IvSolver{
		AssetPrice:    assetPrice,
		StrikePrice:   strikePrice,
		YearsToExpiry: yearsToExpiry,
		InterestRate:  interestRate,
		OptionType:    optionType,
		MarketPrice:   marketPrice,
	}, nil
}

// priceAt returns the model price and vega at the given volatility.
func (self *IvSolver) priceAt(sigma float64) (float64, float64, error) {
	bs, err := NewBlackScholes(self.AssetPrice, self.StrikePrice,
		self.YearsToExpiry, self.InterestRate, sigma)
	if err != nil {
		return math.NaN(), math.NaN(), err
	}
	price, err := bs.PriceByType(self.OptionType)
	if err != nil {
		return math.NaN(), math.NaN(), err
	}
	return price, bs.Vega(), nil
}

// Newton runs the Newton-Raphson iteration from the given starting
// volatility. Iterates are clamped to [kIvMinSigma, kIvMaxSigma]; success
// requires the price error to drop under tolerance within the iteration
// budget.
func (self *IvSolver) Newton(initialSigma float64) (float64, error) {
	sigma := initialSigma
	if sigma <= 0 {
		sigma = kIvDefaultInitialSigma
	}

	for i := 0; i < kIvMaxIterations; i++ {
		price, vega, err := self.priceAt(sigma)
		if err != nil {
			return math.NaN(), err
		}
		diff := price - self.MarketPrice
		if math.Abs(diff) < kIvTolerance {
			return sigma, nil
		}
		if vega < kIvMinVega {
			glog.Infof("Newton stalled at sigma=%v with vega=%v after %d "+
				"iterations.", sigma, vega, i)
			return math.NaN(), ErrIvVegaTooSmall
		}
		sigma = sigma - diff/vega
		if sigma < kIvMinSigma {
			sigma = kIvMinSigma
		} else if sigma > kIvMaxSigma {
			sigma = kIvMaxSigma
		}
	}
	return math.NaN(), ErrIvNoConvergence
}

// Bisection searches [kIvMinSigma, kIvMaxSigma] for the volatility whose
// model price matches the market price. The model price is monotone in
// volatility, so a sign change over the bracket guarantees a unique root.
func (self *IvSolver) Bisection() (float64, error) {
	lo, hi := kIvMinSigma, kIvMaxSigma
	fLo, _, err := self.priceAt(lo)
	if err != nil {
		return math.NaN(), err
	}
	fHi, _, err := self.priceAt(hi)
	if err != nil {
		return math.NaN(), err
	}
	fLo -= self.MarketPrice
	fHi -= self.MarketPrice
	if fLo*fHi > 0 {
		glog.Infof("No volatility bracket for market price %v: model range "+
			"[%v, %v].", self.MarketPrice, fLo+self.MarketPrice,
			fHi+self.MarketPrice)
		return math.NaN(), ErrIvNoBracket
	}

	for i := 0; i < kIvMaxIterations; i++ {
		mid := 0.5 * (lo + hi)
		fMid, _, err := self.priceAt(mid)
		if err != nil {
			return math.NaN(), err
		}
		fMid -= self.MarketPrice
		if math.Abs(fMid) < kIvTolerance || 0.5*(hi-lo) < kIvTolerance {
			return mid, nil
		}
		if fLo*fMid < 0 {
			hi = mid
		} else {
			lo, fLo = mid, fMid
		}
	}
	return 0.5 * (lo + hi), nil
}

// CalculateWithFallback is the front door: Newton from the default start,
// bisection if Newton fails numerically. A failure of both reports the
// bisection error with NaN. Parameter errors from an unknown option type
// propagate directly; they are not a reason to try another method.
func (self *IvSolver) CalculateWithFallback() (float64, error) {
	sigma, err := self.Newton(kIvDefaultInitialSigma)
	if err == nil {
		return sigma, nil
	}
	if !errors.Is(err, ErrIvVegaTooSmall) && !errors.Is(err, ErrIvNoConvergence) {
		return math.NaN(), err
	}
	glog.Infof("Newton failed (%v), falling back to bisection.", err)
	return self.Bisection()
}

// ChainIvResult is the outcome of solving a whole option chain.
type ChainIvResult struct {
	ImpliedVols []float64
	Failures    int
}

// SolveChainIv computes implied volatility for every quote, keeping NaN
// for the rows the solver rejects so the output stays index-aligned with
// the input. One bad quote never aborts the batch.
func SolveChainIv(quotes []OptionQuote, interestRate float64) ChainIvResult {
	result := ChainIvResult{
		ImpliedVols: make([]float64, len(quotes)),
	}
	for i, quote := range quotes {
		solver, err := NewIvSolver(quote.Spot, quote.Strike,
			quote.YearsToExpiry, interestRate, quote.Type, quote.LastPrice)
		if err != nil {
			result.ImpliedVols[i] = math.NaN()
			result.Failures++
			continue
		}
		sigma, err := solver.CalculateWithFallback()
		if err != nil {
			result.ImpliedVols[i] = math.NaN()
			result.Failures++
			continue
		}
		result.ImpliedVols[i] = sigma
	}
	if result.Failures > 0 {
		glog.Infof("Chain IV: %d of %d quotes failed to solve.",
			result.Failures, len(quotes))
	}
	return result
}

// IvErrorStats compares solved volatilities with the venue-reported ones,
// skipping rows where either side is NaN.
type IvErrorStats struct {
	Compared int
	Mae      float64
	Rmse     float64
}

// CompareWithReported measures how far the solved chain sits from the
// quotes' reported implied volatilities.
func CompareWithReported(
	quotes []OptionQuote, solved []float64) IvErrorStats {

	stats := IvErrorStats{}
	sumAbs, sumSq := 0.0, 0.0
	for i := range quotes {
		if i >= len(solved) {
			break
		}
		reported := quotes[i].ImpliedVolatility
		if math.IsNaN(solved[i]) || math.IsNaN(reported) || reported == 0 {
			continue
		}
		diff := solved[i] - reported
		sumAbs += math.Abs(diff)
		sumSq += diff * diff
		stats.Compared++
	}
	if stats.Compared > 0 {
		stats.Mae = sumAbs / float64(stats.Compared)
		stats.Rmse = math.Sqrt(sumSq / float64(stats.Compared))
	}
	return stats
}
