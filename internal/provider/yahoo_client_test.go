package provider

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/finsight/internal/domain"
)

func TestToProviderSymbol(t *testing.T) {
	assert.Equal(t, "AAPL", toProviderSymbol("AAPL.US"))
	assert.Equal(t, "7203.T", toProviderSymbol("7203.JP"))
	assert.Equal(t, "BASF.DE", toProviderSymbol("BASF.DE"))
}

func TestNormalizeExchange(t *testing.T) {
	assert.Equal(t, "NYSE", normalizeExchange("NYQ"))
	assert.Equal(t, "NASDAQ", normalizeExchange("NMS"))
	assert.Equal(t, "NASDAQ", normalizeExchange("NGM"))
	assert.Equal(t, "NASDAQ", normalizeExchange("NAS"))
	assert.Equal(t, "NYSE", normalizeExchange("PCX"))
	assert.Equal(t, "stock", normalizeExchange("PNK"))
	assert.Equal(t, "LSE", normalizeExchange("FGI"))
	assert.Equal(t, "XETRA", normalizeExchange("XETRA"))
}

func TestNormalizeAssetKind(t *testing.T) {
	assert.Equal(t, domain.AssetKindETF, normalizeAssetKind("ETF"))
	assert.Equal(t, domain.AssetKindMutualFund, normalizeAssetKind("MUTUALFUND"))
	assert.Equal(t, domain.AssetKindCrypto, normalizeAssetKind("CRYPTOCURRENCY"))
	assert.Equal(t, domain.AssetKindEquity, normalizeAssetKind("EQUITY"))
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return &Client{http: server.Client(), log: zerolog.Nop(), base: server.URL}
}

func TestFetchMetaNormalizesExchangeAndCurrency(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"quoteResponse":{"result":[{
			"symbol":"VOD.L","longName":"Vodafone Group Plc","exchange":"FGI",
			"currency":"GBp","quoteType":"EQUITY","marketCap":20000000000,
			"sector":"Communication Services","exchangeTimezoneName":"Europe/London"
		}],"error":null}}`)
	})

	meta, err := client.FetchMeta("VOD.L")
	require.NoError(t, err)
	assert.Equal(t, "Vodafone Group Plc", meta.CompName)
	assert.Equal(t, "LSE", meta.Exchange)
	assert.Equal(t, domain.Currency("GBP"), meta.Currency)
	assert.Equal(t, domain.AssetKindEquity, meta.Kind)
	require.NotNil(t, meta.Sector)
	assert.Equal(t, "Communication Services", *meta.Sector)
}

func TestFetchMetaNoResultReturnsError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"quoteResponse":{"result":[],"error":null}}`)
	})

	_, err := client.FetchMeta("NOSUCH")
	assert.Error(t, err)
}

func TestFetchDailyNormalizesPenceAndFillsAdjClose(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"chart":{"result":[{
			"meta":{"currency":"GBp"},
			"timestamp":[1700000000,1700086400],
			"indicators":{
				"quote":[{"open":[1000,1010],"high":[1020,1030],"low":[990,1000],"close":[1010,1020],"volume":[500,600]}],
				"adjclose":[{"adjclose":[1005,1015]}]
			}
		}],"error":null}}`)
	})

	bars, err := client.FetchDaily("VOD.L")
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.InDelta(t, 10.0, bars[0].Open, 1e-9)
	assert.InDelta(t, 10.1, bars[0].Close, 1e-9)
	assert.InDelta(t, 10.05, bars[0].AdjClose, 1e-9)
	assert.Equal(t, int64(500), bars[0].Volume)
}

func TestFetchDailyChartErrorPropagates(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"chart":{"result":null,"error":{"code":"Not Found","description":"no data"}}}`)
	})

	_, err := client.FetchDaily("NOSUCH")
	assert.Error(t, err)
}
