// Package ledger talks to the upstream accounting API that renders
// balance-sheet and profit-and-loss reports per entity.
package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ledgerlens/ledgerlens/internal/credentials"
)

// Client fetches reports from the accounting API using per-entity credentials.
type Client struct {
	baseURL    string
	creds      credentials.Resolver
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient constructs a report client. resolver supplies the bearer token
// for each entity at call time so refreshed tokens are picked up immediately.
func NewClient(baseURL string, resolver credentials.Resolver, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		creds:      resolver,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

type reportEnvelope struct {
	Report struct {
		Sections []Section `json:"sections"`
	} `json:"report"`
}

// FetchReport retrieves one report for an entity over the given window.
// Balance sheets ignore the from date; profit-and-loss uses the full window.
func (c *Client) FetchReport(ctx context.Context, entityID int64, kind ReportKind, from, to time.Time) (Report, error) {
	token, err := c.creds.Resolve(ctx, entityID)
	if err != nil {
		return Report{}, &FetchError{EntityID: entityID, Kind: kind, Date: to, Err: err}
	}

	query := url.Values{}
	query.Set("company_id", strconv.FormatInt(entityID, 10))
	query.Set("end_date", to.Format("2006-01-02"))
	if kind == ReportProfitAndLoss {
		query.Set("start_date", from.Format("2006-01-02"))
	}

	endpoint := fmt.Sprintf("%s/api/1/reports/%s?%s", c.baseURL, kind, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Report{}, &FetchError{EntityID: entityID, Kind: kind, Date: to, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Report{}, &FetchError{EntityID: entityID, Kind: kind, Date: to, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		err := fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		return Report{}, &FetchError{EntityID: entityID, Kind: kind, Date: to, Err: err}
	}

	var envelope reportEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return Report{}, &FetchError{EntityID: entityID, Kind: kind, Date: to, Err: err}
	}

	if c.logger != nil {
		c.logger.Debug("fetched report",
			slog.Int64("entity_id", entityID),
			slog.String("kind", string(kind)),
			slog.Int("sections", len(envelope.Report.Sections)))
	}

	return Report{Kind: kind, EntityID: entityID, Sections: envelope.Report.Sections}, nil
}
