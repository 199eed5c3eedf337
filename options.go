package options

import (
	"errors"
	"fmt"

	"github.com/golang/glog"
)

// OptionType identifies the exercise side of a European contract.
type OptionType string

const (
	CallOption OptionType = "call"
	PutOption  OptionType = "put"
)

var (
	// ErrUnknownOptionType is returned when an option type other than
	// CallOption or PutOption reaches a pricer. This is a caller
	// programming error, not a market condition.
	ErrUnknownOptionType = errors.New("option type must be 'call' or 'put'")
)

// OptionGreeks holds the closed-form sensitivities of a single option leg.
// Vega is per unit change in volatility, theta per year of elapsed time
// (negative for a long position) and rho per unit change in the rate.
type OptionGreeks struct {
	Delta float64
	Gamma float64
	Vega  float64
	Theta float64
	Rho   float64
}

// PricingResult bundles a computed price with the Greeks of the leg.
type PricingResult struct {
	Price  float64
	Greeks OptionGreeks
}

// validateContract checks the shared pricing parameters. Zero
// years-to-expiry and zero volatility are permitted; the pricers resolve
// those to discounted intrinsic value. Anything else out of range is an
// invalid parameter and is surfaced immediately, never corrected.
func validateContract(
	assetPrice float64,
	strikePrice float64,
	yearsToExpiry float64,
	volatility float64) error {

	if assetPrice <= 0 {
		msg := fmt.Sprintf("Asset price must be positive, got %v.", assetPrice)
		glog.Error(msg)
		return errors.New(msg)
	}
	if strikePrice <= 0 {
		msg := fmt.Sprintf("Strike price must be positive, got %v.", strikePrice)
		glog.Error(msg)
		return errors.New(msg)
	}
	if yearsToExpiry < 0 {
		msg := fmt.Sprintf("Years to expiry cannot be negative, got %v.",
			yearsToExpiry)
		glog.Error(msg)
		return errors.New(msg)
	}
	if volatility < 0 {
		msg := fmt.Sprintf("Volatility cannot be negative, got %v.", volatility)
		glog.Error(msg)
		return errors.New(msg)
	}
	return nil
}

func (self OptionType) valid() bool {
	return self == CallOption || self == PutOption
}

func MaxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func MinFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
