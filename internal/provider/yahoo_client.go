// Package provider implements the market-data provider (C10): an HTTP
// client over Yahoo Finance's public chart and quote endpoints,
// normalizing exchange codes, currencies, and asset kinds to the
// conventions used by the rest of the system.
package provider

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/finsight/internal/domain"
)

var _ domain.MarketDataProvider = (*Client)(nil)

// Client fetches asset metadata and OHLCV history from Yahoo Finance.
type Client struct {
	http *http.Client
	log  zerolog.Logger
	base string
}

// NewClient builds a provider client with a 30s request timeout.
func NewClient(log zerolog.Logger) *Client {
	return &Client{
		http: &http.Client{Timeout: 30 * time.Second},
		log:  log.With().Str("component", "provider").Logger(),
		base: "https://query1.finance.yahoo.com",
	}
}

// toProviderSymbol translates a domestic ticker into Yahoo's own
// convention: ".US" is stripped, ".JP" becomes ".T", everything else
// is passed through unchanged.
func toProviderSymbol(ticker string) string {
	switch {
	case strings.HasSuffix(ticker, ".US"):
		return strings.TrimSuffix(ticker, ".US")
	case strings.HasSuffix(ticker, ".JP"):
		return strings.TrimSuffix(ticker, ".JP") + ".T"
	default:
		return ticker
	}
}

var exchangeAliases = map[string]string{
	"NYQ": "NYSE",
	"NMS": "NASDAQ",
	"NGM": "NASDAQ",
	"NAS": "NASDAQ",
	"PCX": "NYSE",
	"PNK": "stock",
	"FGI": "LSE",
}

func normalizeExchange(code string) string {
	if alias, ok := exchangeAliases[code]; ok {
		return alias
	}
	return code
}

func normalizeAssetKind(quoteType string) domain.AssetKind {
	switch strings.ToUpper(quoteType) {
	case "ETF":
		return domain.AssetKindETF
	case "MUTUALFUND":
		return domain.AssetKindMutualFund
	case "CRYPTOCURRENCY":
		return domain.AssetKindCrypto
	case "INDEX":
		return domain.AssetKindIndex
	case "CURRENCY":
		return domain.AssetKindForex
	default:
		return domain.AssetKindEquity
	}
}

type quoteResponse struct {
	QuoteResponse struct {
		Result []quoteResult `json:"result"`
		Error  interface{}   `json:"error"`
	} `json:"quoteResponse"`
}

type quoteResult struct {
	Symbol           string  `json:"symbol"`
	LongName         string  `json:"longName"`
	ShortName        string  `json:"shortName"`
	FullExchangeName string  `json:"fullExchangeName"`
	Exchange         string  `json:"exchange"`
	ExchangeTimezone string  `json:"exchangeTimezoneName"`
	Currency         string  `json:"currency"`
	QuoteType        string  `json:"quoteType"`
	MarketCap        float64 `json:"marketCap"`
	Sector           string  `json:"sector"`
}

// FetchMeta retrieves asset metadata for ticker, implementing
// domain.MarketDataProvider.
func (c *Client) FetchMeta(ticker string) (domain.AssetMeta, error) {
	symbol := toProviderSymbol(ticker)
	params := url.Values{}
	params.Set("symbols", symbol)
	params.Set("fields", "symbol,longName,shortName,fullExchangeName,exchange,exchangeTimezoneName,currency,quoteType,marketCap,sector")

	var payload quoteResponse
	if err := c.getJSON("/v7/finance/quote", params, &payload); err != nil {
		return domain.AssetMeta{}, fmt.Errorf("fetch meta for %s: %w", ticker, err)
	}
	if len(payload.QuoteResponse.Result) == 0 {
		return domain.AssetMeta{}, domain.NewError(domain.ErrInvalidAsset, fmt.Sprintf("no quote data for %s", ticker), nil)
	}
	r := payload.QuoteResponse.Result[0]

	name := r.LongName
	if name == "" {
		name = r.ShortName
	}
	currency := strings.ToUpper(r.Currency)
	meta := domain.AssetMeta{
		Ticker:   ticker,
		CompName: name,
		Exchange: normalizeExchange(r.Exchange),
		Currency: domain.Currency(currency),
		Kind:     normalizeAssetKind(r.QuoteType),
		Timezone: r.ExchangeTimezone,
	}
	if r.Sector != "" {
		sector := r.Sector
		meta.Sector = &sector
	}
	if r.MarketCap > 0 {
		marketCap := r.MarketCap
		meta.MarketCap = &marketCap
	}
	return meta, nil
}

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  interface{}   `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta struct {
		Currency string `json:"currency"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open   []float64 `json:"open"`
			High   []float64 `json:"high"`
			Low    []float64 `json:"low"`
			Close  []float64 `json:"close"`
			Volume []int64   `json:"volume"`
		} `json:"quote"`
		AdjClose []struct {
			AdjClose []float64 `json:"adjclose"`
		} `json:"adjclose"`
	} `json:"indicators"`
}

// earliestDailyHistory bounds how far back a full daily backfill reaches.
const earliestDailyHistory = 40 * 365 * 24 * time.Hour

// fiveMinuteRetention mirrors the provider's own intraday retention
// window; requesting further back than this returns no extra bars.
const fiveMinuteRetention = 60 * 24 * time.Hour

// FetchDaily retrieves the full available daily OHLCV history for
// ticker, implementing domain.MarketDataProvider. GBp-quoted prices
// are normalized to GBP.
func (c *Client) FetchDaily(ticker string) ([]domain.Bar, error) {
	end := time.Now().UTC()
	return c.fetchChart(ticker, end.Add(-earliestDailyHistory), end, "1d")
}

// FetchFiveMinute retrieves the provider's available five-minute
// OHLCV history for ticker, implementing domain.MarketDataProvider.
func (c *Client) FetchFiveMinute(ticker string) ([]domain.Bar, error) {
	end := time.Now().UTC()
	return c.fetchChart(ticker, end.Add(-fiveMinuteRetention), end, "5m")
}

func (c *Client) fetchChart(ticker string, start, end time.Time, interval string) ([]domain.Bar, error) {
	symbol := toProviderSymbol(ticker)
	params := url.Values{}
	params.Set("period1", fmt.Sprintf("%d", start.Unix()))
	params.Set("period2", fmt.Sprintf("%d", end.Unix()))
	params.Set("interval", interval)
	params.Set("events", "div,splits")

	var payload chartResponse
	if err := c.getJSON("/v8/finance/chart/"+url.PathEscape(symbol), params, &payload); err != nil {
		return nil, fmt.Errorf("fetch chart for %s: %w", ticker, err)
	}
	if payload.Chart.Error != nil {
		return nil, fmt.Errorf("chart error for %s: %v", ticker, payload.Chart.Error)
	}
	if len(payload.Chart.Result) == 0 || len(payload.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, nil
	}
	result := payload.Chart.Result[0]
	quote := result.Indicators.Quote[0]

	var adjClose []float64
	if len(result.Indicators.AdjClose) > 0 {
		adjClose = result.Indicators.AdjClose[0].AdjClose
	}

	isPence := strings.EqualFold(result.Meta.Currency, "GBp")
	divisor := 1.0
	if isPence {
		divisor = 100.0
	}

	bars := make([]domain.Bar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(quote.Close) {
			break
		}
		bar := domain.Bar{
			Date:  time.Unix(ts, 0).UTC(),
			Open:  safeAt(quote.Open, i) / divisor,
			High:  safeAt(quote.High, i) / divisor,
			Low:   safeAt(quote.Low, i) / divisor,
			Close: safeAt(quote.Close, i) / divisor,
		}
		if i < len(adjClose) {
			bar.AdjClose = adjClose[i] / divisor
		} else {
			bar.AdjClose = bar.Close
		}
		if i < len(quote.Volume) {
			bar.Volume = quote.Volume[i]
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

func safeAt(xs []float64, i int) float64 {
	if i < 0 || i >= len(xs) {
		return 0
	}
	return xs[i]
}

func (c *Client) getJSON(path string, params url.Values, out interface{}) error {
	reqURL := c.base + path + "?" + params.Encode()
	req, err := http.NewRequest(http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("provider returned status %d: %s", resp.StatusCode, string(body))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}
