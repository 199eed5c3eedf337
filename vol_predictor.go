package options

import (
	"errors"
	"fmt"
	"math"

	"github.com/golang/glog"
	exprand "golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

const (
	kPredictorFeatures     = 3
	kPredictorRidgeLambda  = 1e-3
	kPredictorTestFraction = 0.2
	kPredictorMinSamples   = 10
)

// VolPredictor maps (moneyness, years to expiry, call/put flag) to an
// implied volatility with standardized ridge least-squares. It is a
// deliberately small surface model: good enough to interpolate a cleaned
// chain, cheap enough to refit on every snapshot.
type VolPredictor struct {
	weights     []float64
	intercept   float64
	featureMean []float64
	featureStd  []float64
}

// PredictorReport is the held-out evaluation of a fitted predictor.
type PredictorReport struct {
	TrainSamples int
	TestSamples  int
	Mse          float64
	Mae          float64
	Mape         float64
}

func predictorFeatures(quote *OptionQuote) []float64 {
	isCall := 0.0
	if quote.Type == CallOption {
		isCall = 1.0
	}
	return []float64{quote.Moneyness, quote.YearsToExpiry, isCall}
}

// TrainVolPredictor fits the surface on a seeded shuffle of the chain,
// holding out a test fraction, and reports held-out MSE/MAE/MAPE.
// Targets must be index-aligned with quotes; NaN targets (failed IV
// solves) are dropped before the split.
func TrainVolPredictor(
	quotes []OptionQuote,
	targets []float64,
	seed uint64) (*VolPredictor, PredictorReport, error) {

	if len(quotes) != len(targets) {
		msg := fmt.Sprintf("Predictor needs aligned inputs, "+
			"got %d quotes and %d targets.", len(quotes), len(targets))
		glog.Error(msg)
		return nil, PredictorReport{}, errors.New(msg)
	}

	features := [][]float64{}
	clean := []float64{}
	for i := range quotes {
		if math.IsNaN(targets[i]) {
			continue
		}
		features = append(features, predictorFeatures(&quotes[i]))
		clean = append(clean, targets[i])
	}
	if len(clean) < kPredictorMinSamples {
		msg := fmt.Sprintf("Predictor needs at least %d usable samples, "+
			"got %d.", kPredictorMinSamples, len(clean))
		glog.Error(msg)
		return nil, PredictorReport{}, errors.New(msg)
	}

	// Seeded shuffle, then split off the held-out tail.
	rng := exprand.New(exprand.NewSource(seed))
	perm := rng.Perm(len(clean))
	nTest := int(float64(len(clean)) * kPredictorTestFraction)
	if nTest < 1 {
		nTest = 1
	}
	nTrain := len(clean) - nTest

	self := &VolPredictor{
		weights:     make([]float64, kPredictorFeatures),
		featureMean: make([]float64, kPredictorFeatures),
		featureStd:  make([]float64, kPredictorFeatures),
	}

	// Standardize on the training rows only.
	for j := 0; j < kPredictorFeatures; j++ {
		sum := 0.0
		for i := 0; i < nTrain; i++ {
			sum += features[perm[i]][j]
		}
		mean := sum / float64(nTrain)
		sumSq := 0.0
		for i := 0; i < nTrain; i++ {
			d := features[perm[i]][j] - mean
			sumSq += d * d
		}
		std := math.Sqrt(sumSq / float64(nTrain))
		if std == 0 {
			std = 1
		}
		self.featureMean[j] = mean
		self.featureStd[j] = std
	}

	// Solve (X'X + lambda*I) w = X'y on standardized features with an
	// explicit bias column.
	cols := kPredictorFeatures + 1
	x := mat.NewDense(nTrain, cols, nil)
	y := mat.NewVecDense(nTrain, nil)
	for i := 0; i < nTrain; i++ {
		row := features[perm[i]]
		for j := 0; j < kPredictorFeatures; j++ {
			x.Set(i, j, (row[j]-self.featureMean[j])/self.featureStd[j])
		}
		x.Set(i, kPredictorFeatures, 1)
		y.SetVec(i, clean[perm[i]])
	}

	var xtx mat.Dense
	xtx.Mul(x.T(), x)
	for j := 0; j < cols; j++ {
		xtx.Set(j, j, xtx.At(j, j)+kPredictorRidgeLambda)
	}
	var xty mat.VecDense
	xty.MulVec(x.T(), y)

	var w mat.VecDense
	if err := w.SolveVec(&xtx, &xty); err != nil {
		msg := fmt.Sprintf("Ridge solve failed with error=%s", err)
		glog.Error(msg)
		return nil, PredictorReport{}, errors.New(msg)
	}
	for j := 0; j < kPredictorFeatures; j++ {
		self.weights[j] = w.AtVec(j)
	}
	self.intercept = w.AtVec(kPredictorFeatures)

	report := PredictorReport{
		TrainSamples: nTrain,
		TestSamples:  nTest,
	}
	sumSq, sumAbs, sumPct := 0.0, 0.0, 0.0
	for i := nTrain; i < len(clean); i++ {
		predicted := self.predictFeatures(features[perm[i]])
		actual := clean[perm[i]]
		diff := predicted - actual
		sumSq += diff * diff
		sumAbs += math.Abs(diff)
		if actual != 0 {
			sumPct += math.Abs(diff / actual)
		}
	}
	report.Mse = sumSq / float64(nTest)
	report.Mae = sumAbs / float64(nTest)
	report.Mape = sumPct / float64(nTest)

	glog.Info(fmt.Sprintf("Predictor trained on %d samples, "+
		"held-out mae=%.4f mape=%.2f%%.",
		nTrain, report.Mae, 100*report.Mape))
	return self, report, nil
}

func (self *VolPredictor) predictFeatures(raw []float64) float64 {
	sum := self.intercept
	for j := 0; j < kPredictorFeatures; j++ {
		sum += self.weights[j] * (raw[j] - self.featureMean[j]) /
			self.featureStd[j]
	}
	return sum
}

// Predict returns the modeled implied volatility for one quote.
func (self *VolPredictor) Predict(quote *OptionQuote) float64 {
	return self.predictFeatures(predictorFeatures(quote))
}
