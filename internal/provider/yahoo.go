package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/sieng/factor-engine/internal/contracts"
	"github.com/sieng/factor-engine/pkg/httputil"
	"github.com/sieng/factor-engine/pkg/logger"
)

const defaultYahooBaseURL = "https://query1.finance.yahoo.com"

// Yahoo fetches daily bars from the Yahoo Finance chart API.
type Yahoo struct {
	baseURL  string
	client   *httputil.Client
	recorder CallRecorder
	run      *contracts.Run
	log      *logger.Logger
}

// NewYahoo creates a Yahoo provider. An empty baseURL selects the public
// endpoint.
func NewYahoo(baseURL string, client *httputil.Client, recorder CallRecorder, run *contracts.Run, log *logger.Logger) *Yahoo {
	if baseURL == "" {
		baseURL = defaultYahooBaseURL
	}
	return &Yahoo{baseURL: baseURL, client: client, recorder: recorder, run: run, log: log}
}

func (y *Yahoo) Name() string { return "yahoo" }

// chartResponse mirrors the subset of the chart API payload we consume.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
				AdjClose []struct {
					AdjClose []*float64 `json:"adjclose"`
				} `json:"adjclose"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// FetchPrices downloads each requested series. Tickers that return no
// data, a not-found error or an unparseable payload are skipped.
func (y *Yahoo) FetchPrices(ctx context.Context, requests []PriceRequest) (map[string][]contracts.PriceObservation, error) {
	results := make(map[string][]contracts.PriceObservation)
	for _, req := range requests {
		interval := req.Interval
		if interval == "" {
			interval = "1d"
		}
		endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?period1=%d&period2=%d&interval=%s&events=div%%2Csplit",
			y.baseURL, url.PathEscape(req.Ticker), req.Start.Unix(), req.End.Unix(), interval)

		resp, err := y.client.Get(ctx, endpoint)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", req.Ticker, err)
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("read response for %s: %w", req.Ticker, err)
		}

		params := fmt.Sprintf("%s-%s-%s-%s", req.Ticker, req.Start.Format("2006-01-02"), req.End.Format("2006-01-02"), interval)
		if err := recordCall(ctx, y.recorder, y.run, y.Name(), "prices", params, body); err != nil {
			return nil, fmt.Errorf("record provider call: %w", err)
		}

		if resp.StatusCode == 404 {
			y.log.WithField("ticker", req.Ticker).Warn("ticker unknown to provider, skipping")
			continue
		}
		if resp.StatusCode != 200 {
			return nil, fmt.Errorf("fetch %s: unexpected status %d", req.Ticker, resp.StatusCode)
		}

		observations, err := parseChart(req.Ticker, body)
		if err != nil {
			y.log.WithError(err).WithField("ticker", req.Ticker).Warn("unusable chart payload, skipping")
			continue
		}
		if len(observations) == 0 {
			continue
		}
		results[req.Ticker] = observations
	}
	return results, nil
}

// FetchMetadata resolves listing metadata via the quote summary endpoint.
// Failures degrade to an entry with just the ticker.
func (y *Yahoo) FetchMetadata(ctx context.Context, tickers []string) (map[string]contracts.Symbol, error) {
	info := make(map[string]contracts.Symbol, len(tickers))
	for _, ticker := range tickers {
		endpoint := fmt.Sprintf("%s/v10/finance/quoteSummary/%s?modules=assetProfile%%2Cprice",
			y.baseURL, url.PathEscape(ticker))

		var payload struct {
			QuoteSummary struct {
				Result []struct {
					AssetProfile struct {
						Sector string `json:"sector"`
					} `json:"assetProfile"`
					Price struct {
						LongName string `json:"longName"`
						Currency string `json:"currency"`
					} `json:"price"`
				} `json:"result"`
			} `json:"quoteSummary"`
		}
		err := y.client.GetJSON(ctx, endpoint, nil, &payload)
		if err != nil || len(payload.QuoteSummary.Result) == 0 {
			info[ticker] = contracts.Symbol{Ticker: ticker}
			continue
		}

		raw, _ := json.Marshal(payload)
		if err := recordCall(ctx, y.recorder, y.run, y.Name(), "metadata", ticker, raw); err != nil {
			return nil, fmt.Errorf("record provider call: %w", err)
		}

		result := payload.QuoteSummary.Result[0]
		info[ticker] = contracts.Symbol{
			Ticker:   ticker,
			Name:     result.Price.LongName,
			Currency: result.Price.Currency,
			Sector:   result.AssetProfile.Sector,
		}
	}
	return info, nil
}

func parseChart(ticker string, body []byte) ([]contracts.PriceObservation, error) {
	var payload chartResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode chart: %w", err)
	}
	if payload.Chart.Error != nil {
		return nil, fmt.Errorf("chart error: %s", payload.Chart.Error.Code)
	}
	if len(payload.Chart.Result) == 0 {
		return nil, nil
	}

	result := payload.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, nil
	}
	quote := result.Indicators.Quote[0]

	var adjClose []*float64
	if len(result.Indicators.AdjClose) > 0 {
		adjClose = result.Indicators.AdjClose[0].AdjClose
	}

	observations := make([]contracts.PriceObservation, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		price := valueAt(adjClose, i)
		if price == nil {
			price = valueAt(quote.Close, i)
		}
		if price == nil {
			continue
		}
		obs := contracts.PriceObservation{
			Ticker:   ticker,
			Date:     time.Unix(ts, 0).UTC().Truncate(24 * time.Hour),
			AdjClose: *price,
		}
		if volume := valueAt(quote.Volume, i); volume != nil {
			obs.Volume = *volume
			obs.HasVolume = true
		}
		observations = append(observations, obs)
	}
	return observations, nil
}

func valueAt(values []*float64, i int) *float64 {
	if i >= len(values) {
		return nil
	}
	return values[i]
}
