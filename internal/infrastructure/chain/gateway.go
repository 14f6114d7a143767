package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/ticketforge/ticketing-api/internal/domain"
	"github.com/ticketforge/ticketing-api/shared/resilience"
)

// GatewayClient talks to the chain gateway service that wraps the network's
// token management endpoints. It implements the issuer, minter and swap
// aggregator collaborators.
type GatewayClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	retry      *resilience.RetryConfig
}

type GatewayConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

func NewGatewayClient(cfg GatewayConfig) *GatewayClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &GatewayClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		retry:      resilience.DefaultRetryConfig(),
	}
}

// IssueCollection starts an asynchronous NFT collection issuance. The gateway
// acknowledges the request; the outcome arrives later on the messaging layer.
func (c *GatewayClient) IssueCollection(ctx context.Context, req domain.IssueRequest) error {
	return c.postJSON(ctx, "/collections/issue", req, nil)
}

type mintUnitRequest struct {
	Collection string   `json:"collection"`
	Name       string   `json:"name"`
	Royalties  string   `json:"royalties"`
	Attributes string   `json:"attributes"`
	URIs       []string `json:"uris"`
}

type mintUnitResponse struct {
	Nonce uint64 `json:"nonce"`
}

func (c *GatewayClient) MintUnit(ctx context.Context, collection domain.TokenID, name string, royalties *big.Int, attributes string, uris []string) (uint64, error) {
	if royalties == nil {
		royalties = big.NewInt(0)
	}
	req := mintUnitRequest{
		Collection: string(collection),
		Name:       name,
		Royalties:  royalties.String(),
		Attributes: attributes,
		URIs:       uris,
	}
	var res mintUnitResponse
	if err := c.postJSON(ctx, "/tokens/mint", req, &res); err != nil {
		return 0, err
	}
	return res.Nonce, nil
}

type transferRequest struct {
	To       string                `json:"to"`
	Payments []domain.TokenPayment `json:"payments"`
}

func (c *GatewayClient) TransferBatch(ctx context.Context, to domain.Address, payments []domain.TokenPayment) error {
	return c.postJSON(ctx, "/transfers/batch", transferRequest{To: string(to), Payments: payments}, nil)
}

func (c *GatewayClient) Transfer(ctx context.Context, to domain.Address, payment domain.TokenPayment) error {
	return c.postJSON(ctx, "/transfers", transferRequest{To: string(to), Payments: []domain.TokenPayment{payment}}, nil)
}

type swapRequest struct {
	Input  domain.TokenPayment  `json:"input"`
	Route  []domain.SwapStep    `json:"route"`
	Limits []domain.TokenAmount `json:"limits"`
}

// Swap routes the buyer's payment through the aggregator and returns the
// output payment actually received.
func (c *GatewayClient) Swap(ctx context.Context, input domain.TokenPayment, route []domain.SwapStep, limits []domain.TokenAmount) (domain.TokenPayment, error) {
	var out domain.TokenPayment
	err := c.postJSON(ctx, "/swaps/aggregate", swapRequest{Input: input, Route: route, Limits: limits}, &out)
	return out, err
}

// postJSON retries on transport failures and 5xx responses. The gateway
// deduplicates requests, so a retried call cannot double-execute.
func (c *GatewayClient) postJSON(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode gateway request: %w", err)
	}

	return resilience.Retry(ctx, c.retry, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return resilience.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		res, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("gateway request failed: %w", err)
		}
		defer res.Body.Close()

		if res.StatusCode < 200 || res.StatusCode >= 300 {
			b, _ := io.ReadAll(res.Body)
			err := fmt.Errorf("gateway: %s returned %s: %s", path, res.Status, strings.TrimSpace(string(b)))
			if res.StatusCode < 500 {
				return resilience.Permanent(err)
			}
			return err
		}

		if out == nil {
			return nil
		}
		if err := json.NewDecoder(res.Body).Decode(out); err != nil {
			return resilience.Permanent(fmt.Errorf("failed to decode gateway response: %w", err))
		}
		return nil
	})
}
