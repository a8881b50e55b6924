// Package crm pulls customer records from dealership management systems.
package crm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"voiceagent-server/internal/observability"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

var (
	ErrUnknownProvider = errors.New("unknown crm provider")
	ErrTooManyPages    = errors.New("crm returned too many pages")
)

// Provider identifies a supported dealership CRM.
type Provider string

const (
	ProviderDealerTrack  Provider = "dealertrack"
	ProviderReynolds     Provider = "reynolds"
	ProviderCDK          Provider = "cdk"
	ProviderDealerSocket Provider = "dealersocket"
)

type providerInfo struct {
	displayName   string
	customersPath string
}

var providers = map[Provider]providerInfo{
	ProviderDealerTrack:  {displayName: "DealerTrack", customersPath: "/v1/customers"},
	ProviderReynolds:     {displayName: "Reynolds & Reynolds", customersPath: "/api/customers"},
	ProviderCDK:          {displayName: "CDK Global", customersPath: "/drive/v1/customers"},
	ProviderDealerSocket: {displayName: "DealerSocket", customersPath: "/crm/customers"},
}

// DisplayName returns the human readable provider name.
func (p Provider) DisplayName() string {
	return providers[p].displayName
}

// Valid reports whether p is supported.
func (p Provider) Valid() bool {
	_, ok := providers[p]
	return ok
}

// ConnectorConfig describes one CRM pull.
type ConnectorConfig struct {
	Provider     Provider `json:"provider" binding:"required"`
	BaseURL      string   `json:"base_url" binding:"required,url"`
	TokenURL     string   `json:"token_url,omitempty" binding:"omitempty,url"`
	ClientID     string   `json:"client_id,omitempty"`
	ClientSecret string   `json:"client_secret,omitempty"`
	Scopes       []string `json:"scopes,omitempty"`
	DealerID     string   `json:"dealer_id,omitempty"`
	PageSize     int      `json:"page_size,omitempty" binding:"omitempty,min=1,max=1000"`
}

// Customer is a CRM customer record as delivered by the API. Values are kept close to
// the wire so the import pipeline can validate them the same way as file rows.
type Customer struct {
	ID             string       `json:"id"`
	FirstName      string       `json:"first_name"`
	LastName       string       `json:"last_name"`
	Name           string       `json:"name"`
	Email          string       `json:"email"`
	Phone          string       `json:"phone"`
	Tags           []string     `json:"tags"`
	VehicleAge     *json.Number `json:"vehicle_age"`
	Mileage        *json.Number `json:"mileage"`
	WarrantyStatus string       `json:"warranty_status"`
	LoyaltyTier    string       `json:"loyalty_tier"`
}

type customerPage struct {
	Customers     []Customer `json:"customers"`
	NextPageToken string     `json:"next_page_token"`
}

const (
	defaultPageSize = 200
	maxPages        = 1000
)

// Client fetches customers over HTTP.
type Client struct {
	httpClient *http.Client
	logger     *observability.Logger
}

// NewClient creates a CRM client. The given http client is used for token requests
// and as the transport for API calls.
func NewClient(httpClient *http.Client, logger *observability.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{httpClient: httpClient, logger: logger}
}

// FetchCustomers pages through every customer of the configured dealer.
func (c *Client) FetchCustomers(ctx context.Context, cfg ConnectorConfig) ([]Customer, error) {
	info, ok := providers[cfg.Provider]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
	ctx = observability.WithFields(ctx,
		observability.Field{Key: "crm_provider", Value: string(cfg.Provider)},
		observability.Field{Key: "dealer_id", Value: cfg.DealerID},
	)

	endpoint, err := url.JoinPath(cfg.BaseURL, info.customersPath)
	if err != nil {
		return nil, fmt.Errorf("invalid crm base url: %w", err)
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	httpClient := c.authorizedClient(ctx, cfg)

	var customers []Customer
	token := ""
	for page := 0; ; page++ {
		if page >= maxPages {
			return nil, ErrTooManyPages
		}
		p, err := c.fetchPage(ctx, httpClient, endpoint, cfg.DealerID, pageSize, token)
		if err != nil {
			c.logger.Error(ctx, "failed to fetch crm page", err)
			return nil, err
		}
		customers = append(customers, p.Customers...)
		if p.NextPageToken == "" {
			break
		}
		token = p.NextPageToken
	}

	c.logger.Info(ctx, fmt.Sprintf("fetched %d customers from %s", len(customers), info.displayName))
	return customers, nil
}

func (c *Client) authorizedClient(ctx context.Context, cfg ConnectorConfig) *http.Client {
	if cfg.TokenURL == "" {
		return c.httpClient
	}
	cc := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
		Scopes:       cfg.Scopes,
	}
	return cc.Client(context.WithValue(ctx, oauth2.HTTPClient, c.httpClient))
}

func (c *Client) fetchPage(ctx context.Context, httpClient *http.Client, endpoint, dealerID string, pageSize int, token string) (customerPage, error) {
	q := url.Values{}
	q.Set("page_size", strconv.Itoa(pageSize))
	if dealerID != "" {
		q.Set("dealer_id", dealerID)
	}
	if token != "" {
		q.Set("page_token", token)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return customerPage{}, fmt.Errorf("failed to build crm request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return customerPage{}, fmt.Errorf("crm request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return customerPage{}, fmt.Errorf("crm returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var p customerPage
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(&p); err != nil {
		return customerPage{}, fmt.Errorf("failed to decode crm response: %w", err)
	}
	return p, nil
}
