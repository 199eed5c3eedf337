package options

import (
	"math"
)

// BlackScholes prices a European option pair (one call, one put on the
// same strike and expiry) with the closed-form Black-Scholes-Merton
// formulas. All rates and volatilities are annualized decimals and the
// expiry is in years. The struct is immutable after construction, so a
// single instance is safe to share between goroutines.
type BlackScholes struct {
	AssetPrice    float64
	StrikePrice   float64
	YearsToExpiry float64
	InterestRate  float64
	Volatility    float64

	// d1 and d2 are computed once at construction. They are meaningless
	// on the degenerate boundary (zero expiry or zero volatility), where
	// the price collapses to discounted intrinsic value.
	d1 float64
	d2 float64
}

// NewBlackScholes validates the contract parameters and precomputes the
// d1/d2 terms shared by the price and Greek formulas.
func NewBlackScholes(
	assetPrice float64,
	strikePrice float64,
	yearsToExpiry float64,
	interestRate float64,
	volatility float64) (*BlackScholes, error) {

	err := validateContract(assetPrice, strikePrice, yearsToExpiry, volatility)
	if err != nil {
		return nil, err
	}

	self := &BlackScholes{
		AssetPrice:    assetPrice,
		StrikePrice:   strikePrice,
		YearsToExpiry: yearsToExpiry,
		InterestRate:  interestRate,
		Volatility:    volatility,
	}
	if !self.degenerate() {
		// d1 = [ln(S/K) + (r + sigma^2/2)T] / (sigma*sqrt(T))
		a := volatility * math.Sqrt(yearsToExpiry)
		self.d1 = (math.Log(assetPrice/strikePrice) +
			(interestRate+0.5*volatility*volatility)*yearsToExpiry) / a
		self.d2 = self.d1 - a
	}
	return self, nil
}

// degenerate reports whether the contract sits on the boundary where the
// log-normal terminal distribution collapses to a point mass.
func (self *BlackScholes) degenerate() bool {
	return self.YearsToExpiry == 0 || self.Volatility == 0
}

// discountFactor is e^(-rT), the present value of one unit paid at expiry.
func (self *BlackScholes) discountFactor() float64 {
	return math.Exp(-self.InterestRate * self.YearsToExpiry)
}

func (self *BlackScholes) D1() float64 {
	return self.d1
}

func (self *BlackScholes) D2() float64 {
	return self.d2
}

// CallPrice returns the Black-Scholes price of the call leg:
// C = S*N(d1) - K*e^(-rT)*N(d2).
func (self *BlackScholes) CallPrice() float64 {
	if self.degenerate() {
		return MaxFloat(0, self.AssetPrice-self.StrikePrice*self.discountFactor())
	}
	return self.AssetPrice*NormCdf(self.d1) -
		self.StrikePrice*self.discountFactor()*NormCdf(self.d2)
}

// PutPrice returns the Black-Scholes price of the put leg:
// P = K*e^(-rT)*N(-d2) - S*N(-d1).
func (self *BlackScholes) PutPrice() float64 {
	if self.degenerate() {
		return MaxFloat(0, self.StrikePrice*self.discountFactor()-self.AssetPrice)
	}
	return self.StrikePrice*self.discountFactor()*NormCdf(-self.d2) -
		self.AssetPrice*NormCdf(-self.d1)
}

// PriceByType returns the price of the requested leg. An unknown option
// type is a caller bug and is reported immediately.
func (self *BlackScholes) PriceByType(optionType OptionType) (float64, error) {
	switch optionType {
	case CallOption:
		return self.CallPrice(), nil
	case PutOption:
		return self.PutPrice(), nil
	default:
		return math.NaN(), ErrUnknownOptionType
	}
}

// Vega is the sensitivity of either leg to volatility: S*pdf(d1)*sqrt(T).
// It is shared by the call and the put and is strictly positive away from
// the degenerate boundary, which is what makes the implied-volatility map
// invertible.
func (self *BlackScholes) Vega() float64 {
	if self.degenerate() {
		return 0
	}
	return self.AssetPrice * NormPdf(self.d1) * math.Sqrt(self.YearsToExpiry)
}

// Gamma is the curvature of either leg in the asset price, shared by call
// and put: pdf(d1) / (S*sigma*sqrt(T)).
func (self *BlackScholes) Gamma() float64 {
	if self.degenerate() {
		return 0
	}
	return NormPdf(self.d1) /
		(self.AssetPrice * self.Volatility * math.Sqrt(self.YearsToExpiry))
}

// CeGreeks returns the analytic Greeks of the call leg.
func (self *BlackScholes) CeGreeks() OptionGreeks {
	if self.degenerate() {
		greeks := OptionGreeks{}
		if self.AssetPrice > self.StrikePrice*self.discountFactor() {
			greeks.Delta = 1
		}
		return greeks
	}
	b := self.discountFactor()
	return OptionGreeks{
		Delta: NormCdf(self.d1),
		Gamma: self.Gamma(),
		Vega:  self.Vega(),
		Theta: -self.AssetPrice*NormPdf(self.d1)*self.Volatility/
			(2*math.Sqrt(self.YearsToExpiry)) -
			self.InterestRate*self.StrikePrice*b*NormCdf(self.d2),
		Rho: self.StrikePrice * self.YearsToExpiry * b * NormCdf(self.d2),
	}
}

// PeGreeks returns the analytic Greeks of the put leg. Delta is the call
// delta minus one; gamma and vega are shared with the call.
func (self *BlackScholes) PeGreeks() OptionGreeks {
	if self.degenerate() {
		greeks := OptionGreeks{}
		if self.StrikePrice*self.discountFactor() > self.AssetPrice {
			greeks.Delta = -1
		}
		return greeks
	}
	b := self.discountFactor()
	return OptionGreeks{
		Delta: NormCdf(self.d1) - 1,
		Gamma: self.Gamma(),
		Vega:  self.Vega(),
		Theta: -self.AssetPrice*NormPdf(self.d1)*self.Volatility/
			(2*math.Sqrt(self.YearsToExpiry)) +
			self.InterestRate*self.StrikePrice*b*NormCdf(-self.d2),
		Rho: -self.StrikePrice * self.YearsToExpiry * b * NormCdf(-self.d2),
	}
}

// GreeksByType returns the Greeks of the requested leg.
func (self *BlackScholes) GreeksByType(
	optionType OptionType) (OptionGreeks, error) {

	switch optionType {
	case CallOption:
		return self.CeGreeks(), nil
	case PutOption:
		return self.PeGreeks(), nil
	default:
		return OptionGreeks{}, ErrUnknownOptionType
	}
}

// Result prices one leg and attaches its Greeks.
func (self *BlackScholes) Result(optionType OptionType) (PricingResult, error) {
	price, err := self.PriceByType(optionType)
	if err != nil {
		return PricingResult{}, err
	}
	greeks, err := self.GreeksByType(optionType)
	if err != nil {
		return PricingResult{}, err
	}
	return PricingResult{Price: price, Greeks: greeks}, nil
}
