package forecast

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/tide-notifier/internal/domain"
	"github.com/couchcryptid/tide-notifier/internal/observability"
)

// DefaultURL is the Venice tide centre open-data forecast feed.
const DefaultURL = "https://dati.venezia.it/sites/default/files/dataset/opendata/previsione.json"

// feedTimeLayout is the timestamp format used by the feed, in local Venice time.
const feedTimeLayout = "2006-01-02 15:04:05"

// Client implements notify.MeasurementSource using the tide forecast feed.
type Client struct {
	url        string
	httpClient *http.Client
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a forecast feed client.
func NewClient(url string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	if url == "" {
		url = DefaultURL
	}
	return &Client{
		url: url,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		metrics: metrics,
		logger:  logger,
	}
}

// Fetch returns the forecast high-water peaks for day, highest first.
// An empty slice means the feed has no maximum for that day.
func (c *Client) Fetch(ctx context.Context, day time.Time) ([]domain.Measurement, error) {
	extremes, err := c.doRequest(ctx)
	if err != nil {
		c.metrics.ForecastRequests.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%w: forecast feed: %w", domain.ErrSourceUnavailable, err)
	}

	measurements := peaksForDay(extremes, day.Format(domain.DateLayout), c.logger)
	if len(measurements) == 0 {
		c.metrics.ForecastRequests.WithLabelValues("empty").Inc()
	} else {
		c.metrics.ForecastRequests.WithLabelValues("success").Inc()
	}
	return measurements, nil
}

func (c *Client) doRequest(ctx context.Context) ([]extreme, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.ForecastAPIDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, body)
	}

	var extremes []extreme
	if err := json.NewDecoder(resp.Body).Decode(&extremes); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return extremes, nil
}

// peaksForDay keeps the maxima falling on date (YYYY-MM-DD), ordered by level
// descending and then by time. Malformed entries are logged and skipped.
func peaksForDay(extremes []extreme, date string, logger *slog.Logger) []domain.Measurement {
	var peaks []domain.Measurement
	for _, e := range extremes {
		if !strings.EqualFold(strings.TrimSpace(e.Kind), "max") {
			continue
		}
		m, err := e.toMeasurement()
		if err != nil {
			logger.Warn("skipping malformed forecast entry", "error", err, "at", e.At, "value", e.Value)
			continue
		}
		if m.Date != date {
			continue
		}
		peaks = append(peaks, m)
	}

	slices.SortStableFunc(peaks, func(a, b domain.Measurement) int {
		if c := cmp.Compare(b.Level, a.Level); c != 0 {
			return c
		}
		return cmp.Compare(a.Time, b.Time)
	})
	return peaks
}

// Feed response types.

type extreme struct {
	IssuedAt string `json:"DATA_PREVISIONE"`
	At       string `json:"DATA_ESTREMALE"`
	Kind     string `json:"TIPO_ESTREMALE"` // "min" or "max"
	Value    string `json:"VALORE"`         // centimetres, may be signed
}

func (e extreme) toMeasurement() (domain.Measurement, error) {
	at, err := time.Parse(feedTimeLayout, strings.TrimSpace(e.At))
	if err != nil {
		return domain.Measurement{}, fmt.Errorf("parse extreme time: %w", err)
	}
	level, err := strconv.Atoi(strings.TrimSpace(e.Value))
	if err != nil {
		return domain.Measurement{}, fmt.Errorf("parse extreme value: %w", err)
	}
	return domain.Measurement{
		Date:  at.Format(domain.DateLayout),
		Time:  at.Format("15:04"),
		Level: level,
	}, nil
}
