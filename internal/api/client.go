// Package api calls the remote finance API. Every call is authenticated
// with the session's bearer token and bound to the caller's context.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"gastos/internal/core"
)

const (
	defaultUserAgent = "gastos/1.0"
	maxErrorBody     = 64 << 10
)

// Client is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
}

type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

func NewClient(baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  defaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Dashboard returns the signed-in user's individual summary.
func (c *Client) Dashboard(ctx context.Context, token string) (core.DashboardSummary, error) {
	var out core.DashboardSummary
	err := c.do(ctx, token, http.MethodGet, "/dashboard/individual", nil, &out)
	return out, err
}

// ListTransactions lists transactions. FilterAll sends no scope parameter.
func (c *Client) ListTransactions(ctx context.Context, token string, filter core.ScopeFilter) ([]core.Transaction, error) {
	path := "/transactions"
	if q := filter.Query(); q != "" {
		path += "?" + url.Values{"scope": {q}}.Encode()
	}
	var out []core.Transaction
	if err := c.do(ctx, token, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []core.Transaction{}
	}
	return out, nil
}

func (c *Client) CreateTransaction(ctx context.Context, token string, tx core.NewTransaction) (core.Transaction, error) {
	var out core.Transaction
	err := c.do(ctx, token, http.MethodPost, "/transactions", tx, &out)
	return out, err
}

func (c *Client) DeleteTransaction(ctx context.Context, token, id string) error {
	return c.do(ctx, token, http.MethodDelete, "/transactions/"+url.PathEscape(id), nil, nil)
}

func (c *Client) Categories(ctx context.Context, token string) ([]core.Category, error) {
	var out []core.Category
	if err := c.do(ctx, token, http.MethodGet, "/categories", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Couple returns the user's couple link, or nil when not linked.
func (c *Client) Couple(ctx context.Context, token string) (*core.CoupleLink, error) {
	var out *core.CoupleLink
	if err := c.do(ctx, token, http.MethodGet, "/couple", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CoupleTransactions(ctx context.Context, token string) ([]core.Transaction, error) {
	var out []core.Transaction
	if err := c.do(ctx, token, http.MethodGet, "/couple/transactions", nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []core.Transaction{}
	}
	return out, nil
}

// Invite links the user with partnerEmail.
func (c *Client) Invite(ctx context.Context, token, partnerEmail string) error {
	body := struct {
		PartnerEmail string `json:"partner_email"`
	}{partnerEmail}
	return c.do(ctx, token, http.MethodPost, "/couple", body, nil)
}

func (c *Client) FundWallet(ctx context.Context, token string, amount core.Money) error {
	body := struct {
		Amount core.Money `json:"amount"`
	}{amount}
	return c.do(ctx, token, http.MethodPost, "/couple/wallet/fund", body, nil)
}

func (c *Client) do(ctx context.Context, token, method, path string, in, out any) error {
	op := method + " " + path

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s: %w", op, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build %s: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if err == io.EOF {
			return nil
		}
		return &TransportError{Op: "decode " + op, Err: err}
	}
	return nil
}

func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var payload struct {
		Error string `json:"error"`
	}
	msg := ""
	if json.Unmarshal(raw, &payload) == nil {
		msg = strings.TrimSpace(payload.Error)
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &Error{Status: resp.StatusCode, Message: msg}
}
