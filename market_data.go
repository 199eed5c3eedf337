package options

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/golang/glog"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const (
	// Cleaning thresholds. Quotes outside these bands are too illiquid or
	// too stale for the implied-volatility solver to say anything useful.
	kCleanMinIv            = 0.01
	kCleanMaxIv            = 2.0
	kCleanMaxSpreadRatio   = 0.10
	kCleanMinVolume        = 10
	kCleanMinMoneyness     = 0.85
	kCleanMaxMoneyness     = 1.15
	kCalendarDaysPerYear   = 365.0
	kQuoteExpirationLayout = "2006-01-02"
)

// OptionQuote is one row of an option chain: the venue fields plus the
// derived time-to-expiry and moneyness the pricers consume.
type OptionQuote struct {
	ContractSymbol    string
	Type              OptionType
	Strike            float64
	LastPrice         float64
	Bid               float64
	Ask               float64
	Volume            int
	OpenInterest      int
	ImpliedVolatility float64
	Expiration        time.Time
	Spot              float64

	// Derived at load time.
	DaysToExpiration float64
	YearsToExpiry    float64
	Moneyness        float64
}

// FillDerived computes days to expiration, year fraction and moneyness
// (spot over strike) relative to asOf.
func (self *OptionQuote) FillDerived(asOf time.Time) {
	self.DaysToExpiration = self.Expiration.Sub(asOf).Hours() / 24
	self.YearsToExpiry = self.DaysToExpiration / kCalendarDaysPerYear
	if self.Strike > 0 {
		self.Moneyness = self.Spot / self.Strike
	}
}

// MidPrice is the bid-ask midpoint, or the last price when either side
// of the book is empty.
func (self *OptionQuote) MidPrice() float64 {
	if self.Bid > 0 && self.Ask > 0 {
		return 0.5 * (self.Bid + self.Ask)
	}
	return self.LastPrice
}

// SpreadRatio is the bid-ask spread as a fraction of the last price.
// Quotes with no usable last price report an infinite ratio so the
// cleaner drops them.
func (self *OptionQuote) SpreadRatio() float64 {
	if self.LastPrice <= 0 {
		return math.Inf(1)
	}
	return (self.Ask - self.Bid) / self.LastPrice
}

var kQuoteCsvHeader = []string{
	"ContractSymbol",
	"Type",
	"Strike",
	"LastPrice",
	"Bid",
	"Ask",
	"Volume",
	"OpenInterest",
	"ImpliedVolatility",
	"Expiration",
	"Spot",
}

// SaveQuotesCsv writes the chain to path, header first, overwriting any
// existing file. Derived fields are not persisted; they are recomputed
// on load.
func SaveQuotesCsv(path string, quotes []OptionQuote) error {
	file, err := os.Create(path)
	if err != nil {
		msg := fmt.Sprintf("Creating %s failed with error=%s", path, err)
		glog.Error(msg)
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err = writer.Write(kQuoteCsvHeader); err != nil {
		return err
	}
	for _, quote := range quotes {
		err = writer.Write([]string{
			quote.ContractSymbol,
			string(quote.Type),
			strconv.FormatFloat(quote.Strike, 'f', -1, 64),
			strconv.FormatFloat(quote.LastPrice, 'f', -1, 64),
			strconv.FormatFloat(quote.Bid, 'f', -1, 64),
			strconv.FormatFloat(quote.Ask, 'f', -1, 64),
			strconv.Itoa(quote.Volume),
			strconv.Itoa(quote.OpenInterest),
			strconv.FormatFloat(quote.ImpliedVolatility, 'f', -1, 64),
			quote.Expiration.Format(kQuoteExpirationLayout),
			strconv.FormatFloat(quote.Spot, 'f', -1, 64),
		})
		if err != nil {
			return err
		}
	}

	glog.Info(fmt.Sprintf("Wrote %d quotes to %s.", len(quotes), path))
	return nil
}

// LoadQuotesCsv reads a chain written by SaveQuotesCsv. Columns are
// located by header name so the file survives column reordering.
// Derived fields are filled relative to asOf.
func LoadQuotesCsv(path string, asOf time.Time) ([]OptionQuote, error) {
	file, err := os.Open(path)
	if err != nil {
		msg := fmt.Sprintf("Opening %s failed with error=%s", path, err)
		glog.Error(msg)
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, err
	}

	indices := make(map[string]int)
	for i, col := range header {
		indices[col] = i
	}

	quotes := []OptionQuote{}
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		quote := OptionQuote{}
		quote.ContractSymbol = row[indices["ContractSymbol"]]
		quote.Type = OptionType(row[indices["Type"]])
		quote.Strike, _ = strconv.ParseFloat(row[indices["Strike"]], 64)
		quote.LastPrice, _ = strconv.ParseFloat(row[indices["LastPrice"]], 64)
		quote.Bid, _ = strconv.ParseFloat(row[indices["Bid"]], 64)
		quote.Ask, _ = strconv.ParseFloat(row[indices["Ask"]], 64)
		quote.Volume, _ = strconv.Atoi(row[indices["Volume"]])
		quote.OpenInterest, _ = strconv.Atoi(row[indices["OpenInterest"]])
		quote.ImpliedVolatility, _ =
			strconv.ParseFloat(row[indices["ImpliedVolatility"]], 64)
		quote.Expiration, _ = time.Parse(kQuoteExpirationLayout,
			row[indices["Expiration"]])
		quote.Spot, _ = strconv.ParseFloat(row[indices["Spot"]], 64)
		quote.FillDerived(asOf)

		quotes = append(quotes, quote)
	}

	glog.Info(fmt.Sprintf("Loaded %d quotes from %s.", len(quotes), path))
	return quotes, nil
}

// CleaningReport counts how many quotes each filter removed.
type CleaningReport struct {
	Input            int
	Kept             int
	Expired          int
	BadIv            int
	WideSpread       int
	LowVolume        int
	FarFromMoneyness int
}

// CleanQuotes applies the liquidity and sanity filters ahead of the
// implied-volatility solver: expired rows, implausible reported IVs,
// spreads of ten percent or more of last price, thin volume and strikes
// far from the money all go.
func CleanQuotes(quotes []OptionQuote) ([]OptionQuote, CleaningReport) {
	report := CleaningReport{Input: len(quotes)}
	kept := []OptionQuote{}

	for _, quote := range quotes {
		switch {
		case quote.YearsToExpiry <= 0:
			report.Expired++
		case quote.ImpliedVolatility <= kCleanMinIv ||
			quote.ImpliedVolatility >= kCleanMaxIv:
			report.BadIv++
		case quote.SpreadRatio() >= kCleanMaxSpreadRatio:
			report.WideSpread++
		case quote.Volume < kCleanMinVolume:
			report.LowVolume++
		case quote.Moneyness < kCleanMinMoneyness ||
			quote.Moneyness > kCleanMaxMoneyness:
			report.FarFromMoneyness++
		default:
			kept = append(kept, quote)
		}
	}

	report.Kept = len(kept)
	glog.Info(fmt.Sprintf("Cleaning kept %d of %d quotes "+
		"(expired=%d badIv=%d wideSpread=%d lowVolume=%d farMoneyness=%d).",
		report.Kept, report.Input, report.Expired, report.BadIv,
		report.WideSpread, report.LowVolume, report.FarFromMoneyness))
	return kept, report
}

// QuoteSummary describes one numeric column of a chain.
type QuoteSummary struct {
	Count  int
	Mean   float64
	StdDev float64
	Min    float64
	Max    float64
}

func summarize(values []float64) QuoteSummary {
	if len(values) == 0 {
		return QuoteSummary{}
	}
	return QuoteSummary{
		Count:  len(values),
		Mean:   stat.Mean(values, nil),
		StdDev: stat.StdDev(values, nil),
		Min:    floats.Min(values),
		Max:    floats.Max(values),
	}
}

// SummarizeChain reports distribution statistics for the columns the
// solver and the predictor care about.
func SummarizeChain(quotes []OptionQuote) map[string]QuoteSummary {
	strikes := make([]float64, len(quotes))
	lasts := make([]float64, len(quotes))
	ivs := make([]float64, len(quotes))
	moneyness := make([]float64, len(quotes))
	expiries := make([]float64, len(quotes))
	for i, quote := range quotes {
		strikes[i] = quote.Strike
		lasts[i] = quote.LastPrice
		ivs[i] = quote.ImpliedVolatility
		moneyness[i] = quote.Moneyness
		expiries[i] = quote.YearsToExpiry
	}
	return map[string]QuoteSummary{
		"strike":        summarize(strikes),
		"lastPrice":     summarize(lasts),
		"impliedVol":    summarize(ivs),
		"moneyness":     summarize(moneyness),
		"yearsToExpiry": summarize(expiries),
	}
}

// GenerateSampleQuotes builds a synthetic but realistic chain around the
// given spot: strikes on a grid across several monthly expiries, priced
// with Black-Scholes under a skewed volatility surface, with liquidity
// decaying away from the money. Deterministic for a given seed, so the
// demo and the tests see the same chain.
func GenerateSampleQuotes(
	spot float64,
	interestRate float64,
	asOf time.Time,
	seed uint64) []OptionQuote {

	rng := newNormalStream(seed)
	expiries := []int{30, 60, 90, 180}
	quotes := []OptionQuote{}

	for _, days := range expiries {
		expiration := asOf.AddDate(0, 0, days)
		t := float64(days) / kCalendarDaysPerYear
		for strike := spot * 0.80; strike <= spot*1.20+1e-9; strike += spot * 0.025 {
			moneyness := spot / strike
			// Smile: higher vol away from the money, put-side skew.
			sigma := 0.20 + 0.30*math.Pow(moneyness-1, 2) +
				0.05*(1-moneyness) + 0.01*rng.Rand()
			if sigma < kCleanMinIv {
				sigma = kCleanMinIv
			}

			bs, err := NewBlackScholes(spot, strike, t, interestRate, sigma)
			if err != nil {
				continue
			}
			for _, optionType := range []OptionType{CallOption, PutOption} {
				price, _ := bs.PriceByType(optionType)
				if price < 0.01 {
					continue
				}
				// Spread and volume tighten near the money.
				distance := math.Abs(moneyness - 1)
				half := price * (0.01 + 0.2*distance)
				volume := int(500 * math.Exp(-20*distance))

				quote := OptionQuote{
					ContractSymbol: fmt.Sprintf("SAMPLE%s%s%08.0f",
						expiration.Format("060102"),
						map[OptionType]string{CallOption: "C", PutOption: "P"}[optionType],
						strike*1000),
					Type:              optionType,
					Strike:            strike,
					LastPrice:         price,
					Bid:               MaxFloat(0, price-half),
					Ask:               price + half,
					Volume:            volume,
					OpenInterest:      volume * 4,
					ImpliedVolatility: sigma,
					Expiration:        expiration,
					Spot:              spot,
				}
				quote.FillDerived(asOf)
				quotes = append(quotes, quote)
			}
		}
	}

	glog.Info(fmt.Sprintf("Generated %d sample quotes around spot %v.",
		len(quotes), spot))
	return quotes
}
