package main

import (
	"flag"
	"fmt"
	"time"

	"github.com/golang/glog"
	"github.com/joshi-prasad/options"
)

const (
	kDemoSpot = 100.0
	kDemoRate = 0.05
	kDemoSeed = 7
)

var symbolFlag = flag.String("symbol", "",
	"ticker to fetch a live option chain for; empty uses a sample chain")

func runPricingDemo() {
	bs, err := options.NewBlackScholes(42, 40, 0.5, 0.10, 0.20)
	if err != nil {
		glog.Error("Failed to build pricer. ", err)
		return
	}
	fmt.Println("==============================================")
	fmt.Println("Black-Scholes call ", bs.CallPrice())
	fmt.Println("Black-Scholes put  ", bs.PutPrice())
	greeks := bs.CeGreeks()
	fmt.Println("Call delta ", greeks.Delta)
	fmt.Println("Call gamma ", greeks.Gamma)
	fmt.Println("Call vega  ", greeks.Vega)
	fmt.Println("Call theta ", greeks.Theta)
	fmt.Println("Call rho   ", greeks.Rho)
	fmt.Println("==============================================")
}

func runComparisonDemo() {
	comparison, err := options.CompareModels(kDemoSpot, kDemoSpot, 1.0,
		kDemoRate, 0.20)
	if err != nil {
		glog.Error("Failed to compare models. ", err)
		return
	}
	comparison.PrintTable()

	parity := comparison.CheckParity()
	fmt.Println("Parity expected ", parity.Expected)
	fmt.Println("Parity gaps: bs=", parity.BsGap,
		" binomial=", parity.BinomialGap, " mc=", parity.MonteCarloGap)

	steps := []int{10, 25, 50, 100, 250, 500, 1000}
	points, err := options.BinomialConvergence(kDemoSpot, kDemoSpot, 1.0,
		kDemoRate, 0.20, steps)
	if err != nil {
		glog.Error("Failed to build convergence table. ", err)
		return
	}
	options.PrintConvergenceTable("Binomial", comparison.BsCall, points)
	if _, err = options.PlotConvergencePng("binomial_convergence.png",
		"Binomial tree convergence", points); err != nil {
		glog.Error("Failed to plot convergence. ", err)
	}

	counts := []int{1000, 10000, 100000, 1000000}
	mcPoints, err := options.McConvergence(kDemoSpot, kDemoSpot, 1.0,
		kDemoRate, 0.20, counts, kDemoSeed)
	if err != nil {
		glog.Error("Failed to build MC convergence table. ", err)
		return
	}
	options.PrintConvergenceTable("MonteCarlo", comparison.BsCall, mcPoints)
}

func runIvDemo() {
	trueSigma := 0.25
	bs, err := options.NewBlackScholes(kDemoSpot, 105, 0.5, kDemoRate,
		trueSigma)
	if err != nil {
		glog.Error("Failed to build pricer. ", err)
		return
	}
	solver, err := options.NewIvSolver(kDemoSpot, 105, 0.5, kDemoRate,
		options.CallOption, bs.CallPrice())
	if err != nil {
		glog.Error("Failed to build solver. ", err)
		return
	}
	solved, err := solver.CalculateWithFallback()
	if err != nil {
		glog.Error("IV solve failed. ", err)
		return
	}
	fmt.Println("==============================================")
	fmt.Println("True sigma   ", trueSigma)
	fmt.Println("Solved sigma ", solved)
	fmt.Println("==============================================")
}

func runChainDemo() {
	asOf := time.Now().UTC()
	var quotes []options.OptionQuote
	if *symbolFlag != "" {
		yf := options.NewYahooFinance()
		fetched, err := yf.FetchQuotes(*symbolFlag)
		if err != nil {
			glog.Error("Fetch failed, falling back to sample chain. ", err)
		} else {
			quotes = fetched
		}
	}
	if quotes == nil {
		quotes = options.GenerateSampleQuotes(kDemoSpot, kDemoRate, asOf,
			kDemoSeed)
	}

	if err := options.SaveQuotesCsv("chain.csv", quotes); err != nil {
		glog.Error("Failed to save chain. ", err)
		return
	}
	loaded, err := options.LoadQuotesCsv("chain.csv", asOf)
	if err != nil {
		glog.Error("Failed to load chain. ", err)
		return
	}

	cleaned, report := options.CleanQuotes(loaded)
	fmt.Println("Cleaning kept ", report.Kept, " of ", report.Input)
	for column, summary := range options.SummarizeChain(cleaned) {
		fmt.Printf("%-14s count=%d mean=%.4f std=%.4f min=%.4f max=%.4f\n",
			column, summary.Count, summary.Mean, summary.StdDev,
			summary.Min, summary.Max)
	}

	chainIv := options.SolveChainIv(cleaned, kDemoRate)
	fmt.Println("Chain IV failures ", chainIv.Failures)
	errStats := options.CompareWithReported(cleaned, chainIv.ImpliedVols)
	fmt.Printf("Solved vs reported IV: compared=%d mae=%.4f rmse=%.4f\n",
		errStats.Compared, errStats.Mae, errStats.Rmse)

	buckets, err := options.SmileAnalysis(cleaned, chainIv.ImpliedVols)
	if err != nil {
		glog.Error("Smile analysis failed. ", err)
		return
	}
	options.PrintSmileTable(buckets)
	if _, err = options.PlotSmileHtml("smile.html", "Volatility smile",
		cleaned, chainIv.ImpliedVols); err != nil {
		glog.Error("Failed to plot smile. ", err)
	}

	predictor, predictorReport, err := options.TrainVolPredictor(cleaned,
		chainIv.ImpliedVols, kDemoSeed)
	if err != nil {
		glog.Error("Predictor training failed. ", err)
		return
	}
	fmt.Printf("Predictor held-out mse=%.6f mae=%.4f mape=%.2f%%\n",
		predictorReport.Mse, predictorReport.Mae, 100*predictorReport.Mape)
	if len(cleaned) > 0 {
		fmt.Println("Predicted IV for first quote ",
			predictor.Predict(&cleaned[0]))
	}
}

func main() {
	flag.Set("alsologtostderr", "true")
	flag.Parse()

	runPricingDemo()
	runComparisonDemo()
	runIvDemo()
	runChainDemo()
}
