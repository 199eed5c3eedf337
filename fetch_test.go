package options

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chainJson(spot float64, expirationUnix int64) string {
	return fmt.Sprintf(`{
		"optionChain": {
			"result": [{
				"quote": {"regularMarketPrice": %v},
				"options": [{
					"expirationDate": %d,
					"calls": [{
						"contractSymbol": "TST240621C00100000",
						"strike": 100,
						"lastPrice": 5.5,
						"bid": 5.4,
						"ask": 5.6,
						"volume": 120,
						"openInterest": 900,
						"impliedVolatility": 0.27,
						"expiration": %d
					}],
					"puts": [{
						"contractSymbol": "TST240621P00100000",
						"strike": 100,
						"lastPrice": 3.1,
						"bid": 3.0,
						"ask": 3.2,
						"volume": 80,
						"openInterest": 700,
						"impliedVolatility": 0.29,
						"expiration": %d
					}]
				}]
			}],
			"error": null
		}
	}`, spot, expirationUnix, expirationUnix, expirationUnix)
}

func newChainServer(t *testing.T, status int, body string) *YahooFinance {
	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
			fmt.Fprint(w, body)
		}))
	t.Cleanup(server.Close)

	yf := NewYahooFinance()
	yf.urlChainPrefix = server.URL + "/"
	return yf
}

func TestFetchOptionChain(t *testing.T) {
	asOf := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	expiration := asOf.AddDate(0, 3, 0)

	yf := newChainServer(t, http.StatusOK,
		chainJson(102.5, expiration.Unix()))
	resp, err := yf.FetchOptionChain("TST")
	require.NoError(t, err)

	spot, err := resp.SpotPrice()
	require.NoError(t, err)
	assert.Equal(t, 102.5, spot)

	quotes, err := resp.Quotes(asOf)
	require.NoError(t, err)
	require.Len(t, quotes, 2)

	call := quotes[0]
	assert.Equal(t, CallOption, call.Type)
	assert.Equal(t, "TST240621C00100000", call.ContractSymbol)
	assert.Equal(t, 100.0, call.Strike)
	assert.Equal(t, 5.5, call.LastPrice)
	assert.Equal(t, 120, call.Volume)
	assert.Equal(t, 102.5, call.Spot)
	assert.Equal(t, expiration, call.Expiration)
	assert.InDelta(t, 1.025, call.Moneyness, 1e-9)
	assert.Greater(t, call.YearsToExpiry, 0.0)

	put := quotes[1]
	assert.Equal(t, PutOption, put.Type)
	assert.Equal(t, 0.29, put.ImpliedVolatility)
}

func TestFetchSkipsMalformedContracts(t *testing.T) {
	asOf := time.Now().UTC()
	body := `{
		"optionChain": {
			"result": [{
				"quote": {"regularMarketPrice": 50},
				"options": [{
					"calls": [{"strike": 55}],
					"puts": []
				}]
			}]
		}
	}`
	yf := newChainServer(t, http.StatusOK, body)
	resp, err := yf.FetchOptionChain("TST")
	require.NoError(t, err)

	quotes, err := resp.Quotes(asOf)
	require.NoError(t, err)
	assert.Empty(t, quotes)
}

func TestFetchGivesUpAfterRetries(t *testing.T) {
	yf := newChainServer(t, http.StatusForbidden, "denied")
	_, err := yf.FetchOptionChain("TST")
	assert.Error(t, err)
}

func TestFetchRejectsMalformedJson(t *testing.T) {
	yf := newChainServer(t, http.StatusOK, "not json")
	_, err := yf.FetchOptionChain("TST")
	assert.Error(t, err)
}

func TestFetchEmptyResult(t *testing.T) {
	yf := newChainServer(t, http.StatusOK,
		`{"optionChain": {"result": [], "error": "Quote not found"}}`)
	resp, err := yf.FetchOptionChain("TST")
	require.NoError(t, err)

	_, err = resp.SpotPrice()
	assert.Error(t, err)
	_, err = resp.Quotes(time.Now().UTC())
	assert.Error(t, err)
}
