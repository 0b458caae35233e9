package solana

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"airdrop-sentinel/internal/domain"
	"airdrop-sentinel/internal/observability"
)

// TokenProgramID is the SPL token program owning standard token accounts.
const TokenProgramID = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"

// Default configuration values.
const (
	DefaultRequestTimeout = 10 * time.Second
	DefaultMaxAttempts    = 3
	DefaultRetryDelay     = 300 * time.Millisecond
	DefaultMaxDelay       = 2 * time.Second
	DefaultBackoffMult    = 2.0
)

// HTTPClient implements BalanceFetcher using HTTP JSON-RPC 2.0.
type HTTPClient struct {
	endpoint     string
	client       *http.Client
	tokenProgram string
	maxAttempts  int
	retryDelay   time.Duration
	maxDelay     time.Duration
	backoffMult  float64
	metrics      *observability.Metrics
	requestID    atomic.Uint64
}

// ClientOption configures HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout sets the per-request HTTP timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.client.Timeout = d
	}
}

// WithMaxAttempts sets the total number of attempts (first try included).
func WithMaxAttempts(n int) ClientOption {
	return func(c *HTTPClient) {
		c.maxAttempts = n
	}
}

// WithRetryDelay sets the initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.retryDelay = d
	}
}

// WithMaxDelay sets the maximum retry delay.
func WithMaxDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.maxDelay = d
	}
}

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.client = client
	}
}

// WithMetrics wires prometheus metrics into the client.
func WithMetrics(m *observability.Metrics) ClientOption {
	return func(c *HTTPClient) {
		c.metrics = m
	}
}

// WithTokenProgram overrides the token program queried for accounts.
func WithTokenProgram(programID string) ClientOption {
	return func(c *HTTPClient) {
		c.tokenProgram = programID
	}
}

// NewHTTPClient creates a new Solana RPC HTTP client.
func NewHTTPClient(endpoint string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		endpoint:     endpoint,
		client:       &http.Client{Timeout: DefaultRequestTimeout},
		tokenProgram: TokenProgramID,
		maxAttempts:  DefaultMaxAttempts,
		retryDelay:   DefaultRetryDelay,
		maxDelay:     DefaultMaxDelay,
		backoffMult:  DefaultBackoffMult,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// rpcRequest represents a JSON-RPC 2.0 request.
type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

// rpcResponse represents a JSON-RPC 2.0 response.
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

// rpcError represents a JSON-RPC 2.0 error.
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// call performs a JSON-RPC call with retries and exponential backoff.
// Transport failures are retried; a well-formed remote error is surfaced
// immediately without retrying.
func (c *HTTPClient) call(ctx context.Context, method string, params []interface{}, result interface{}) error {
	start := time.Now()
	err := c.doCall(ctx, method, params, result)
	if c.metrics != nil {
		c.metrics.RPCCallLatency.WithLabelValues(method).Observe(time.Since(start).Seconds())
		if err != nil {
			c.metrics.RPCCallErrors.WithLabelValues(string(KindOf(err))).Inc()
		}
	}
	return err
}

func (c *HTTPClient) doCall(ctx context.Context, method string, params []interface{}, result interface{}) error {
	reqID := c.requestID.Add(1)
	reqBody := rpcRequest{
		JSONRPC: "2.0",
		ID:      reqID,
		Method:  method,
		Params:  params,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return &NetworkError{Kind: ErrKindInvalidResponse, Err: fmt.Errorf("marshal request: %w", err)}
	}

	delay := c.retryDelay
	var lastErr error
	timedOut := false

	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return &NetworkError{Kind: ErrKindTimeout, Err: ctx.Err()}
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			return &NetworkError{Kind: ErrKindInvalidResponse, Err: fmt.Errorf("create request: %w", err)}
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			timedOut = isTimeoutErr(err)
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			timedOut = isTimeoutErr(err)
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			timedOut = false
			lastErr = fmt.Errorf("rate limited (429)")
			continue
		}

		if resp.StatusCode != http.StatusOK {
			timedOut = false
			lastErr = fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
			continue
		}

		var rpcResp rpcResponse
		if err := json.Unmarshal(respBody, &rpcResp); err != nil {
			timedOut = false
			lastErr = fmt.Errorf("unmarshal response: %w", err)
			continue
		}

		if rpcResp.Error != nil {
			// Remote errors are not retried.
			return &NetworkError{Kind: ErrKindRemote, Code: rpcResp.Error.Code, Message: rpcResp.Error.Message}
		}

		if result != nil && rpcResp.Result != nil {
			if err := json.Unmarshal(rpcResp.Result, result); err != nil {
				return &NetworkError{Kind: ErrKindInvalidResponse, Err: fmt.Errorf("unmarshal result: %w", err)}
			}
		}

		return nil
	}

	kind := ErrKindInvalidResponse
	if timedOut || ctx.Err() != nil {
		kind = ErrKindTimeout
	}
	return &NetworkError{Kind: kind, Err: fmt.Errorf("max attempts exceeded: %w", lastErr)}
}

// isTimeoutErr reports whether a transport error was a timeout.
func isTimeoutErr(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}

// FetchTokenBalances retrieves all token balances owned by the address via
// getTokenAccountsByOwner with jsonParsed encoding. Malformed accounts are
// skipped; a single bad entry never fails the whole fetch.
func (c *HTTPClient) FetchTokenBalances(ctx context.Context, owner string) ([]domain.TokenBalance, error) {
	params := []interface{}{
		owner,
		map[string]interface{}{"programId": c.tokenProgram},
		map[string]interface{}{"encoding": "jsonParsed"},
	}

	var result tokenAccountsResult
	if err := c.call(ctx, "getTokenAccountsByOwner", params, &result); err != nil {
		return nil, err
	}

	balances := make([]domain.TokenBalance, 0, len(result.Value))
	for _, acc := range result.Value {
		info := acc.Account.Data.Parsed.Info
		if info == nil || info.Mint == "" || info.TokenAmount == nil {
			continue
		}

		raw, err := decimal.NewFromString(info.TokenAmount.Amount)
		if err != nil {
			continue
		}

		balances = append(balances, domain.TokenBalance{
			Mint:   info.Mint,
			Amount: raw.Shift(int32(-info.TokenAmount.Decimals)),
		})
	}

	return balances, nil
}

// tokenAccountsResult is the raw RPC response for getTokenAccountsByOwner.
type tokenAccountsResult struct {
	Value []tokenAccountEntry `json:"value"`
}

type tokenAccountEntry struct {
	Account tokenAccountData `json:"account"`
}

type tokenAccountData struct {
	Data tokenParsedData `json:"data"`
}

type tokenParsedData struct {
	Parsed tokenParsedInner `json:"parsed"`
}

type tokenParsedInner struct {
	Info *tokenAccountInfo `json:"info"`
}

type tokenAccountInfo struct {
	Mint        string       `json:"mint"`
	TokenAmount *tokenAmount `json:"tokenAmount"`
}

type tokenAmount struct {
	Amount   string `json:"amount"` // raw integer amount as string
	Decimals int    `json:"decimals"`
}

var _ BalanceFetcher = (*HTTPClient)(nil)
