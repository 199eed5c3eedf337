package options

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/fatih/color"
	"github.com/golang/glog"
)

const (
	kCompareBinomialSteps  = 500
	kCompareMcSimulations  = 200000
	kCompareMcSeed         = 42
	kCompareMcConfidence   = 0.95
	kParityTolerancePerLeg = 1e-6
)

// ModelComparison is one contract priced by all three models.
type ModelComparison struct {
	AssetPrice    float64
	StrikePrice   float64
	YearsToExpiry float64
	InterestRate  float64
	Volatility    float64

	BsCall       float64
	BsPut        float64
	BinomialCall float64
	BinomialPut  float64
	McCall       McEstimate
	McPut        McEstimate
}

// CompareModels prices one contract pair with the analytic formula, a
// dense binomial tree and a large Monte Carlo run, so the three agree to
// within the tree and sampling errors.
func CompareModels(
	assetPrice float64,
	strikePrice float64,
	yearsToExpiry float64,
	interestRate float64,
	volatility float64) (*ModelComparison, error) {

	bs, err := NewBlackScholes(assetPrice, strikePrice, yearsToExpiry,
		interestRate, volatility)
	if err != nil {
		return nil, err
	}
	tree, err := NewBinomialTree(assetPrice, strikePrice, yearsToExpiry,
		interestRate, volatility, kCompareBinomialSteps)
	if err != nil {
		return nil, err
	}
	mc, err := NewMonteCarlo(assetPrice, strikePrice, yearsToExpiry,
		interestRate, volatility, kCompareMcSimulations, kCompareMcSeed)
	if err != nil {
		return nil, err
	}

	mcCall, err := mc.ConfidenceInterval(CallOption, kCompareMcConfidence)
	if err != nil {
		return nil, err
	}
	mcPut, err := mc.ConfidenceInterval(PutOption, kCompareMcConfidence)
	if err != nil {
		return nil, err
	}

	return &ModelComparison{
		AssetPrice:    assetPrice,
		StrikePrice:   strikePrice,
		YearsToExpiry: yearsToExpiry,
		InterestRate:  interestRate,
		Volatility:    volatility,
		BsCall:        bs.CallPrice(),
		BsPut:         bs.PutPrice(),
		BinomialCall:  tree.CallPrice(),
		BinomialPut:   tree.PutPrice(),
		McCall:        mcCall,
		McPut:         mcPut,
	}, nil
}

// PrintTable renders the three-model comparison. Rows whose Monte Carlo
// interval covers the analytic price print green, the rest red.
func (self *ModelComparison) PrintTable() {
	fmt.Printf("Contract: S=%.2f K=%.2f T=%.4f r=%.4f sigma=%.4f\n",
		self.AssetPrice, self.StrikePrice, self.YearsToExpiry,
		self.InterestRate, self.Volatility)
	fmt.Printf("%-6s %-14s %-14s %-14s %-28s\n",
		"Leg", "BlackScholes", "Binomial", "MonteCarlo", "95% CI")

	greenColor := color.New(color.FgGreen).SprintFunc()
	redColor := color.New(color.FgRed).SprintFunc()

	rows := []struct {
		leg      string
		analytic float64
		binomial float64
		mc       McEstimate
	}{
		{"call", self.BsCall, self.BinomialCall, self.McCall},
		{"put", self.BsPut, self.BinomialPut, self.McPut},
	}
	for _, row := range rows {
		line := fmt.Sprintf("%-6s %-14.6f %-14.6f %-14.6f [%.6f, %.6f]",
			row.leg, row.analytic, row.binomial, row.mc.Price,
			row.mc.Lower, row.mc.Upper)
		if row.mc.Lower <= row.analytic && row.analytic <= row.mc.Upper {
			fmt.Println(greenColor(line))
		} else {
			fmt.Println(redColor(line))
		}
	}
}

// ParityReport measures C - P against S - K*e^(-rT) for each model.
type ParityReport struct {
	Expected      float64
	BsGap         float64
	BinomialGap   float64
	MonteCarloGap float64
	BsHolds       bool
	BinomialHolds bool
}

// CheckParity verifies put-call parity per model. The analytic and tree
// prices must satisfy it to numerical precision; Monte Carlo satisfies
// it up to sampling error, so only its gap is reported, not judged.
func (self *ModelComparison) CheckParity() ParityReport {
	expected := self.AssetPrice -
		self.StrikePrice*math.Exp(-self.InterestRate*self.YearsToExpiry)
	report := ParityReport{
		Expected:      expected,
		BsGap:         (self.BsCall - self.BsPut) - expected,
		BinomialGap:   (self.BinomialCall - self.BinomialPut) - expected,
		MonteCarloGap: (self.McCall.Price - self.McPut.Price) - expected,
	}
	report.BsHolds = math.Abs(report.BsGap) < kParityTolerancePerLeg
	report.BinomialHolds = math.Abs(report.BinomialGap) < kParityTolerancePerLeg
	if !report.BsHolds || !report.BinomialHolds {
		glog.Error(fmt.Sprintf("Parity violated: bsGap=%v binomialGap=%v",
			report.BsGap, report.BinomialGap))
	}
	return report
}

// ConvergencePoint is one row of a convergence table: a resolution and
// the absolute error against the analytic price.
type ConvergencePoint struct {
	Resolution int
	Price      float64
	AbsError   float64
}

// BinomialConvergence prices the call leg on trees of increasing step
// count and reports the error against Black-Scholes.
func BinomialConvergence(
	assetPrice float64,
	strikePrice float64,
	yearsToExpiry float64,
	interestRate float64,
	volatility float64,
	stepCounts []int) ([]ConvergencePoint, error) {

	bs, err := NewBlackScholes(assetPrice, strikePrice, yearsToExpiry,
		interestRate, volatility)
	if err != nil {
		return nil, err
	}
	reference := bs.CallPrice()

	points := make([]ConvergencePoint, 0, len(stepCounts))
	for _, steps := range stepCounts {
		tree, err := NewBinomialTree(assetPrice, strikePrice, yearsToExpiry,
			interestRate, volatility, steps)
		if err != nil {
			return nil, err
		}
		price := tree.CallPrice()
		points = append(points, ConvergencePoint{
			Resolution: steps,
			Price:      price,
			AbsError:   math.Abs(price - reference),
		})
	}
	return points, nil
}

// McConvergence runs Monte Carlo at increasing simulation counts with a
// fixed seed and reports the error against Black-Scholes.
func McConvergence(
	assetPrice float64,
	strikePrice float64,
	yearsToExpiry float64,
	interestRate float64,
	volatility float64,
	simulationCounts []int,
	seed uint64) ([]ConvergencePoint, error) {

	bs, err := NewBlackScholes(assetPrice, strikePrice, yearsToExpiry,
		interestRate, volatility)
	if err != nil {
		return nil, err
	}
	reference := bs.CallPrice()

	points := make([]ConvergencePoint, 0, len(simulationCounts))
	for _, count := range simulationCounts {
		mc, err := NewMonteCarlo(assetPrice, strikePrice, yearsToExpiry,
			interestRate, volatility, count, seed)
		if err != nil {
			return nil, err
		}
		price := mc.CallPrice()
		points = append(points, ConvergencePoint{
			Resolution: count,
			Price:      price,
			AbsError:   math.Abs(price - reference),
		})
	}
	return points, nil
}

// PrintConvergenceTable renders a convergence table, coloring each row
// by whether the error shrank from the previous resolution.
func PrintConvergenceTable(
	label string, reference float64, points []ConvergencePoint) {

	fmt.Printf("%s convergence (reference %.6f):\n", label, reference)
	fmt.Printf("%-12s %-14s %-14s\n", "Resolution", "Price", "AbsError")

	greenColor := color.New(color.FgGreen).SprintFunc()
	yellowColor := color.New(color.FgYellow).SprintFunc()
	for i, point := range points {
		line := fmt.Sprintf("%-12d %-14.6f %-14.6f",
			point.Resolution, point.Price, point.AbsError)
		if i > 0 && point.AbsError > points[i-1].AbsError {
			fmt.Println(yellowColor(line))
		} else {
			fmt.Println(greenColor(line))
		}
	}
}

// SmileBucket aggregates solved implied volatilities over a moneyness
// band within one expiry bucket.
type SmileBucket struct {
	ExpiryDays    int
	MoneynessLow  float64
	MoneynessHigh float64
	Count         int
	MeanIv        float64
}

// SmileAnalysis buckets the solved chain by expiry and moneyness, the
// table behind the smile plot. Quotes whose IV failed to solve are
// skipped.
func SmileAnalysis(
	quotes []OptionQuote, solved []float64) ([]SmileBucket, error) {

	if len(quotes) != len(solved) {
		msg := fmt.Sprintf("Smile analysis needs aligned inputs, "+
			"got %d quotes and %d vols.", len(quotes), len(solved))
		glog.Error(msg)
		return nil, errors.New(msg)
	}

	type key struct {
		days int
		band int
	}
	sums := map[key]*SmileBucket{}
	for i, quote := range quotes {
		if math.IsNaN(solved[i]) {
			continue
		}
		// Expiry buckets are months; moneyness bands are 5% wide.
		days := int(quote.DaysToExpiration/30) * 30
		band := int(math.Floor(quote.Moneyness / 0.05))
		k := key{days, band}
		bucket, ok := sums[k]
		if !ok {
			bucket = &SmileBucket{
				ExpiryDays:    days,
				MoneynessLow:  float64(band) * 0.05,
				MoneynessHigh: float64(band+1) * 0.05,
			}
			sums[k] = bucket
		}
		bucket.MeanIv += solved[i]
		bucket.Count++
	}

	buckets := make([]SmileBucket, 0, len(sums))
	for _, bucket := range sums {
		bucket.MeanIv /= float64(bucket.Count)
		buckets = append(buckets, *bucket)
	}
	sort.Slice(buckets, func(i, j int) bool {
		if buckets[i].ExpiryDays != buckets[j].ExpiryDays {
			return buckets[i].ExpiryDays < buckets[j].ExpiryDays
		}
		return buckets[i].MoneynessLow < buckets[j].MoneynessLow
	})
	return buckets, nil
}

// PrintSmileTable renders the bucketed smile.
func PrintSmileTable(buckets []SmileBucket) {
	fmt.Printf("%-12s %-18s %-8s %-10s\n",
		"ExpiryDays", "Moneyness", "Count", "MeanIv")
	blueColor := color.New(color.FgBlue).SprintFunc()
	for _, bucket := range buckets {
		fmt.Println(blueColor(fmt.Sprintf("%-12d [%.2f, %.2f)%-6s %-8d %-10.4f",
			bucket.ExpiryDays, bucket.MoneynessLow, bucket.MoneynessHigh, "",
			bucket.Count, bucket.MeanIv)))
	}
}
