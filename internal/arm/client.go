// Package arm is a thin read-only adapter over the Azure Resource Manager
// billing endpoints. Every lookup degrades to an absent result on failure;
// only the subscription listing can return an error, since a run cannot
// proceed without it.
package arm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// DefaultBaseURL is the public ARM endpoint.
const DefaultBaseURL = "https://management.azure.com"

// Default api-versions for the three endpoint families. Configuration,
// not logic; each is independently overridable.
const (
	DefaultSubscriptionsAPIVersion = "2022-12-01"
	DefaultBillingAPIVersion       = "2020-05-01"
	DefaultLotsAPIVersion          = "2021-10-01"
)

// Config holds client settings. Zero values fall back to defaults.
type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration

	SubscriptionsAPIVersion string
	BillingAPIVersion       string
	LotsAPIVersion          string

	// HTTPClient overrides the default client, used by tests.
	HTTPClient *http.Client

	Logger zerolog.Logger
}

// Client talks to the ARM billing surface.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	log     zerolog.Logger

	subsVersion    string
	billingVersion string
	lotsVersion    string
}

// NewClient builds a Client from cfg, applying defaults for unset fields.
func NewClient(cfg Config) *Client {
	c := &Client{
		baseURL:        cfg.BaseURL,
		token:          cfg.Token,
		http:           cfg.HTTPClient,
		log:            cfg.Logger,
		subsVersion:    cfg.SubscriptionsAPIVersion,
		billingVersion: cfg.BillingAPIVersion,
		lotsVersion:    cfg.LotsAPIVersion,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.subsVersion == "" {
		c.subsVersion = DefaultSubscriptionsAPIVersion
	}
	if c.billingVersion == "" {
		c.billingVersion = DefaultBillingAPIVersion
	}
	if c.lotsVersion == "" {
		c.lotsVersion = DefaultLotsAPIVersion
	}
	if c.http == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		c.http = &http.Client{Timeout: timeout}
	}
	return c
}

// ListSubscriptions enumerates every subscription visible to the token.
// Unlike the per-entity lookups this returns an error: the caller treats
// an unreachable or empty listing as a fatal precondition.
func (c *Client) ListSubscriptions(ctx context.Context) ([]Subscription, error) {
	u := fmt.Sprintf("%s/subscriptions?api-version=%s", c.baseURL, url.QueryEscape(c.subsVersion))
	payload, ok := c.fetchJSON(ctx, u)
	if !ok {
		return nil, fmt.Errorf("subscription listing failed")
	}
	entries, _ := payload["value"].([]any)
	subs := make([]Subscription, 0, len(entries))
	for _, e := range entries {
		entry, _ := e.(map[string]any)
		subs = append(subs, Subscription{
			ID:   stringField(entry, "subscriptionId"),
			Name: stringField(entry, "displayName"),
		})
	}
	return subs, nil
}

// SubscriptionDetail fetches the billing policies of one subscription.
func (c *Client) SubscriptionDetail(ctx context.Context, subscriptionID string) (SubscriptionDetail, bool) {
	u := fmt.Sprintf("%s/subscriptions/%s?api-version=%s",
		c.baseURL, url.PathEscape(subscriptionID), url.QueryEscape(c.subsVersion))
	payload, ok := c.fetchJSON(ctx, u)
	if !ok {
		return SubscriptionDetail{}, false
	}
	policies, _ := payload["subscriptionPolicies"].(map[string]any)
	return SubscriptionDetail{
		BillingScopeID: stringField(policies, "billingScopeId"),
		QuotaID:        stringField(policies, "quotaId"),
	}, true
}

// BillingAccount fetches the agreement type of a billing account.
func (c *Client) BillingAccount(ctx context.Context, accountID string) (BillingAccount, bool) {
	u := fmt.Sprintf("%s/providers/Microsoft.Billing/billingAccounts/%s?api-version=%s",
		c.baseURL, url.PathEscape(accountID), url.QueryEscape(c.billingVersion))
	payload, ok := c.fetchJSON(ctx, u)
	if !ok {
		return BillingAccount{}, false
	}
	props, _ := payload["properties"].(map[string]any)
	return BillingAccount{AgreementType: stringField(props, "agreementType")}, true
}

// Customers fetches the customer listing of a billing account. Only the
// entry count matters; a CSP-managed account has at least one customer.
func (c *Client) Customers(ctx context.Context, accountID string) (CustomerPage, bool) {
	u := fmt.Sprintf("%s/providers/Microsoft.Billing/billingAccounts/%s/customers?api-version=%s",
		c.baseURL, url.PathEscape(accountID), url.QueryEscape(c.billingVersion))
	payload, ok := c.fetchJSON(ctx, u)
	if !ok {
		return CustomerPage{}, false
	}
	entries, _ := payload["value"].([]any)
	return CustomerPage{Count: len(entries)}, true
}

// ConsumptionLots fetches the consumption commitment lots of a billing
// account, summing the remaining balance across lots.
func (c *Client) ConsumptionLots(ctx context.Context, accountID string) (LotPage, bool) {
	filter := url.QueryEscape("lotType eq 'ConsumptionCommitment'")
	u := fmt.Sprintf("%s/providers/Microsoft.Billing/billingAccounts/%s/providers/Microsoft.Consumption/lots?api-version=%s&$filter=%s",
		c.baseURL, url.PathEscape(accountID), url.QueryEscape(c.lotsVersion), filter)
	payload, ok := c.fetchJSON(ctx, u)
	if !ok {
		return LotPage{}, false
	}
	entries, _ := payload["value"].([]any)
	page := LotPage{Count: len(entries)}
	for _, e := range entries {
		entry, _ := e.(map[string]any)
		props, _ := entry["properties"].(map[string]any)
		balance, _ := props["closedBalance"].(map[string]any)
		if v, isNum := balance["value"].(float64); isNum {
			page.Remaining = page.Remaining.Add(decimal.NewFromFloat(v))
		}
	}
	return page, true
}

// fetchJSON performs one GET and decodes the body into a generic map.
// Transport errors, non-2xx statuses, and malformed bodies all collapse
// into ok=false; callers treat absence uniformly as "field unknown".
func (c *Client) fetchJSON(ctx context.Context, rawURL string) (map[string]any, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		c.log.Debug().Err(err).Str("url", rawURL).Msg("building request failed")
		return nil, false
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug().Err(err).Str("url", rawURL).Msg("request failed")
		return nil, false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.Debug().Int("status", resp.StatusCode).Str("url", rawURL).Msg("non-success status")
		return nil, false
	}

	var payload map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		c.log.Debug().Err(err).Str("url", rawURL).Msg("decoding response failed")
		return nil, false
	}
	return payload, true
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}
