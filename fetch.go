package options

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/url"
	"time"

	"github.com/golang/glog"
)

const (
	kYfOptionChain = "optionChain"
	kYfResult      = "result"
	kYfQuote       = "quote"
	kYfMarketPrice = "regularMarketPrice"
	kYfOptions     = "options"
	kYfCalls       = "calls"
	kYfPuts        = "puts"

	kYfMaxRetries = 3
)

// YahooResponse wraps the decoded body of one chain request.
type YahooResponse struct {
	fetchedJson map[string]interface{}
}

func NewYahooResponse(resp map[string]interface{}) *YahooResponse {
	return &YahooResponse{
		fetchedJson: resp,
	}
}

// parseResult digs out optionChain.result[0], the object every other
// accessor reads from.
func (self *YahooResponse) parseResult() (map[string]interface{}, error) {
	chainInt, ok := self.fetchedJson[kYfOptionChain]
	if !ok {
		msg := fmt.Sprintf("Parsing chain failed. Field %s not found.",
			kYfOptionChain)
		glog.Error(msg)
		return map[string]interface{}{}, errors.New(msg)
	}
	chain, ok := chainInt.(map[string]interface{})
	if !ok {
		msg := fmt.Sprintf("Parsing chain failed. Incorrect field %s type.",
			kYfOptionChain)
		glog.Error(msg)
		return map[string]interface{}{}, errors.New(msg)
	}
	resultsInt, ok := chain[kYfResult]
	if !ok {
		msg := fmt.Sprintf("Parsing chain failed. Field %s not found.",
			kYfResult)
		glog.Error(msg)
		return map[string]interface{}{}, errors.New(msg)
	}
	results, ok := resultsInt.([]interface{})
	if !ok || len(results) == 0 {
		msg := "Parsing chain failed. Empty result array."
		glog.Error(msg)
		return map[string]interface{}{}, errors.New(msg)
	}
	result, ok := results[0].(map[string]interface{})
	if !ok {
		msg := "Parsing chain failed. Result element is not an object."
		glog.Error(msg)
		return map[string]interface{}{}, errors.New(msg)
	}
	return result, nil
}

func getFloat64Field(
	object map[string]interface{}, field string) (float64, error) {

	fieldValue, ok := object[field]
	if !ok {
		msg := fmt.Sprintf("Parsing chain failed. Field %s not found.", field)
		glog.Error(msg)
		return 0, errors.New(msg)
	}
	value, ok := fieldValue.(float64)
	if !ok {
		msg := fmt.Sprintf("Parsing chain failed."+
			"Field %s is not of float64 type.", field)
		glog.Error(msg)
		return 0, errors.New(msg)
	}
	return value, nil
}

func getStrField(
	object map[string]interface{}, field string) (string, error) {

	fieldValue, ok := object[field]
	if !ok {
		msg := fmt.Sprintf("Parsing chain failed. Field %s not found.", field)
		glog.Error(msg)
		return "", errors.New(msg)
	}
	value, ok := fieldValue.(string)
	if !ok {
		msg := fmt.Sprintf("Parsing chain failed."+
			"Field %s is not of string type.", field)
		glog.Error(msg)
		return "", errors.New(msg)
	}
	return value, nil
}

// optionalFloat reads a numeric field that venues omit for illiquid
// contracts, defaulting to zero.
func optionalFloat(object map[string]interface{}, field string) float64 {
	value, ok := object[field].(float64)
	if !ok {
		return 0
	}
	return value
}

// SpotPrice returns the underlying's regular market price.
func (self *YahooResponse) SpotPrice() (float64, error) {
	result, err := self.parseResult()
	if err != nil {
		return 0, err
	}
	quoteInt, ok := result[kYfQuote]
	if !ok {
		msg := fmt.Sprintf("Parsing chain failed. Field %s not found.",
			kYfQuote)
		glog.Error(msg)
		return 0, errors.New(msg)
	}
	quote, ok := quoteInt.(map[string]interface{})
	if !ok {
		msg := fmt.Sprintf("Parsing chain failed. Incorrect field %s type.",
			kYfQuote)
		glog.Error(msg)
		return 0, errors.New(msg)
	}
	return getFloat64Field(quote, kYfMarketPrice)
}

// parseContract converts one raw contract object into an OptionQuote.
func (self *YahooResponse) parseContract(
	raw map[string]interface{},
	optionType OptionType,
	spot float64,
	asOf time.Time) (OptionQuote, error) {

	symbol, err := getStrField(raw, "contractSymbol")
	if err != nil {
		return OptionQuote{}, err
	}
	strike, err := getFloat64Field(raw, "strike")
	if err != nil {
		return OptionQuote{}, err
	}
	expirationUnix, err := getFloat64Field(raw, "expiration")
	if err != nil {
		return OptionQuote{}, err
	}

	quote := OptionQuote{
		ContractSymbol:    symbol,
		Type:              optionType,
		Strike:            strike,
		LastPrice:         optionalFloat(raw, "lastPrice"),
		Bid:               optionalFloat(raw, "bid"),
		Ask:               optionalFloat(raw, "ask"),
		Volume:            int(optionalFloat(raw, "volume")),
		OpenInterest:      int(optionalFloat(raw, "openInterest")),
		ImpliedVolatility: optionalFloat(raw, "impliedVolatility"),
		Expiration:        time.Unix(int64(expirationUnix), 0).UTC(),
		Spot:              spot,
	}
	quote.FillDerived(asOf)
	return quote, nil
}

// Quotes flattens the calls and puts of every listed expiration into one
// chain. Malformed contracts are skipped, not fatal.
func (self *YahooResponse) Quotes(asOf time.Time) ([]OptionQuote, error) {
	result, err := self.parseResult()
	if err != nil {
		return nil, err
	}
	spot, err := self.SpotPrice()
	if err != nil {
		return nil, err
	}
	optionsInt, ok := result[kYfOptions]
	if !ok {
		msg := fmt.Sprintf("Parsing chain failed. Field %s not found.",
			kYfOptions)
		glog.Error(msg)
		return nil, errors.New(msg)
	}
	expirations, ok := optionsInt.([]interface{})
	if !ok {
		msg := fmt.Sprintf("Parsing chain failed. Incorrect field %s type.",
			kYfOptions)
		glog.Error(msg)
		return nil, errors.New(msg)
	}

	quotes := []OptionQuote{}
	skipped := 0
	for _, expInt := range expirations {
		exp, ok := expInt.(map[string]interface{})
		if !ok {
			skipped++
			continue
		}
		for _, side := range []struct {
			field      string
			optionType OptionType
		}{
			{kYfCalls, CallOption},
			{kYfPuts, PutOption},
		} {
			contracts, ok := exp[side.field].([]interface{})
			if !ok {
				continue
			}
			for _, contractInt := range contracts {
				raw, ok := contractInt.(map[string]interface{})
				if !ok {
					skipped++
					continue
				}
				quote, err := self.parseContract(raw, side.optionType, spot, asOf)
				if err != nil {
					skipped++
					continue
				}
				quotes = append(quotes, quote)
			}
		}
	}
	if skipped > 0 {
		glog.Info(fmt.Sprintf("Skipped %d malformed contracts.", skipped))
	}
	return quotes, nil
}

// YahooFinance fetches option chains over HTTP. The browser headers and
// the gzip handling match what the endpoint expects from a scraper.
type YahooFinance struct {
	urlChainPrefix string
	session        *http.Client
	headers        map[string]string
}

func NewYahooFinance() *YahooFinance {
	return &YahooFinance{
		urlChainPrefix: "https://query1.finance.yahoo.com/v7/finance/options/",
		session:        &http.Client{Timeout: 30 * time.Second},
		headers: map[string]string{
			"user-agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/80.0.3987.149 Safari/537.36",
			"accept":          "application/json",
			"accept-encoding": "gzip",
		},
	}
}

func (self *YahooFinance) NewGetRequest(url string) *http.Request {
	req, _ := http.NewRequest("GET", url, nil)
	for k, v := range self.headers {
		req.Header.Set(k, v)
	}
	return req
}

// FetchUrl retrieves one URL with the standard headers, retrying a bad
// status a bounded number of times, and returns the decoded body.
func (self *YahooFinance) FetchUrl(url string) (*bytes.Buffer, error) {
	var resp *http.Response
	var err error

	for attempt := 0; ; attempt++ {
		glog.Info("Fetching URL ", url)
		req := self.NewGetRequest(url)

		resp, err = self.session.Do(req)
		if err != nil {
			msg := fmt.Sprintf("Fetching URL=%s failed with error=%s", url, err)
			glog.Error(msg)
			return nil, err
		}
		if resp.StatusCode == http.StatusOK {
			break
		}

		errMsg := fmt.Sprintf("Fetching URL=%s failed with status=%d. ",
			url, resp.StatusCode)
		if attempt+1 >= kYfMaxRetries {
			glog.Error(errMsg, "Giving up.")
			return nil, errors.New(errMsg)
		}
		glog.Error(errMsg, "Retrying...")
	}

	var respBuf *bytes.Buffer
	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		respBuf, err = self.readGzipResponse(resp)
	default:
		respBuf, err = self.readResponse(resp)
	}
	if err != nil {
		msg := fmt.Sprintf("Reading the HTTP response failed with error=%s", err)
		glog.Error(msg)
		return nil, err
	}

	glog.Info(fmt.Sprintf("Successfully fetched URL=%s.", url))
	return respBuf, nil
}

func (self *YahooFinance) readGzipResponse(
	resp *http.Response) (*bytes.Buffer, error) {

	reader, err := gzip.NewReader(resp.Body)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	buf := new(bytes.Buffer)
	_, err = buf.ReadFrom(reader)
	if err != nil {
		return nil, err
	}
	return buf, nil
}

func (self *YahooFinance) readResponse(
	resp *http.Response) (*bytes.Buffer, error) {

	defer resp.Body.Close()
	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return bytes.NewBuffer(body), err
}

// FetchOptionChain downloads and decodes the chain for one ticker.
func (self *YahooFinance) FetchOptionChain(
	symbol string) (*YahooResponse, error) {

	chainUrl := self.urlChainPrefix + url.PathEscape(symbol)
	respBuf, err := self.FetchUrl(chainUrl)
	if err != nil {
		msg := fmt.Sprintf("Fetching chain for symbol=%s failed with err=%s",
			symbol, err)
		glog.Error(msg)
		return nil, err
	}

	var jsonData map[string]interface{}
	err = json.Unmarshal(respBuf.Bytes(), &jsonData)
	if err != nil {
		msg := fmt.Sprintf("Parsing chain response failed with error=%s.", err)
		glog.Error(msg)
		return nil, err
	}
	return NewYahooResponse(jsonData), nil
}

// FetchQuotes is the convenience path: fetch, decode and derive in one
// call.
func (self *YahooFinance) FetchQuotes(symbol string) ([]OptionQuote, error) {
	resp, err := self.FetchOptionChain(symbol)
	if err != nil {
		return nil, err
	}
	return resp.Quotes(time.Now().UTC())
}
