package provider

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/sieng/factor-engine/internal/contracts"
	"github.com/sieng/factor-engine/pkg/httputil"
	"github.com/sieng/factor-engine/pkg/logger"
)

const defaultBolsaBaseURL = "https://www.bolsadesantiago.com"

// Bolsa scrapes daily closes from the Bolsa de Santiago historical quote
// pages. Prices come back in CLP with thousands separators.
type Bolsa struct {
	baseURL  string
	client   *httputil.Client
	recorder CallRecorder
	run      *contracts.Run
	log      *logger.Logger
}

// NewBolsa creates a Bolsa de Santiago provider. An empty baseURL selects
// the public site.
func NewBolsa(baseURL string, client *httputil.Client, recorder CallRecorder, run *contracts.Run, log *logger.Logger) *Bolsa {
	if baseURL == "" {
		baseURL = defaultBolsaBaseURL
	}
	return &Bolsa{baseURL: baseURL, client: client, recorder: recorder, run: run, log: log}
}

func (b *Bolsa) Name() string { return "bolsa" }

// FetchPrices scrapes each ticker's history table. Tickers whose page has
// no parsable rows are skipped.
func (b *Bolsa) FetchPrices(ctx context.Context, requests []PriceRequest) (map[string][]contracts.PriceObservation, error) {
	results := make(map[string][]contracts.PriceObservation)
	for _, req := range requests {
		// The site lists locally-suffixed tickers without the .SN suffix.
		local := strings.TrimSuffix(req.Ticker, ".SN")
		endpoint := fmt.Sprintf("%s/bolsa/historico?nemo=%s&desde=%s&hasta=%s",
			b.baseURL, url.QueryEscape(local),
			req.Start.Format("2006-01-02"), req.End.Format("2006-01-02"))

		resp, err := b.client.Get(ctx, endpoint)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", req.Ticker, err)
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("read response for %s: %w", req.Ticker, err)
		}

		params := fmt.Sprintf("%s-%s-%s", req.Ticker, req.Start.Format("2006-01-02"), req.End.Format("2006-01-02"))
		if err := recordCall(ctx, b.recorder, b.run, b.Name(), "prices", params, body); err != nil {
			return nil, fmt.Errorf("record provider call: %w", err)
		}

		if resp.StatusCode != 200 {
			b.log.WithFields(map[string]interface{}{
				"ticker": req.Ticker,
				"status": resp.StatusCode,
			}).Warn("ticker page unavailable, skipping")
			continue
		}

		observations := parseBolsaHistory(req.Ticker, string(body), req.Start, req.End)
		if len(observations) == 0 {
			continue
		}
		results[req.Ticker] = observations
	}
	return results, nil
}

// FetchMetadata returns stub entries; the exchange pages carry no reliable
// sector data, so metadata stays whatever the universe config declared.
func (b *Bolsa) FetchMetadata(_ context.Context, tickers []string) (map[string]contracts.Symbol, error) {
	info := make(map[string]contracts.Symbol, len(tickers))
	for _, ticker := range tickers {
		info[ticker] = contracts.Symbol{Ticker: ticker, Currency: "CLP"}
	}
	return info, nil
}

var bolsaDateRe = regexp.MustCompile(`^\d{2}/\d{2}/\d{4}$`)

// parseBolsaHistory extracts rows from the history table. Expected
// columns: fecha | precio cierre | volumen.
func parseBolsaHistory(ticker, html string, from, to time.Time) []contracts.PriceObservation {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var observations []contracts.PriceObservation
	doc.Find("table.tabla-historico tr, table#historico tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}

		dateText := strings.TrimSpace(cells.Eq(0).Text())
		if !bolsaDateRe.MatchString(dateText) {
			return
		}
		date, err := time.Parse("02/01/2006", dateText)
		if err != nil {
			return
		}
		if date.Before(from) || date.After(to) {
			return
		}

		price, ok := parseCLPNumber(cells.Eq(1).Text())
		if !ok {
			return
		}

		obs := contracts.PriceObservation{
			Ticker:   ticker,
			Date:     date.UTC(),
			AdjClose: price,
		}
		if cells.Length() >= 3 {
			if volume, ok := parseCLPNumber(cells.Eq(2).Text()); ok {
				obs.Volume = volume
				obs.HasVolume = true
			}
		}
		observations = append(observations, obs)
	})

	// Table rows come newest first.
	for i, j := 0, len(observations)-1; i < j; i, j = i+1, j-1 {
		observations[i], observations[j] = observations[j], observations[i]
	}
	return observations
}

// parseCLPNumber handles the local "1.234,56" formatting.
func parseCLPNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", ".")
	if s == "" || s == "-" {
		return 0, false
	}
	value, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}
