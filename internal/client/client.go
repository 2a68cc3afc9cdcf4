package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/quickinvoice/quickinvoice/internal/deliveries"
	"github.com/quickinvoice/quickinvoice/internal/invoices"
	"github.com/quickinvoice/quickinvoice/internal/ledger"
	"github.com/quickinvoice/quickinvoice/internal/platform/httpx"
	"github.com/quickinvoice/quickinvoice/internal/users"
)

const maxErrorBody = 64 << 10

// Client wraps the QuickInvoice REST API. Failed requests are reported once and
// never retried.
type Client struct {
	baseURL    string
	session    *Session
	httpClient *http.Client
	now        func() time.Time
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithClock replaces time.Now for overdue detection.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// New constructs a client for baseURL acting within session.
func New(baseURL string, session *Session, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		session: session,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Session returns the session the client acts in.
func (c *Client) Session() *Session {
	return c.session
}

// ListInvoices returns every invoice of the account.
func (c *Client) ListInvoices(ctx context.Context) ([]ledger.Invoice, error) {
	var out []ledger.Invoice
	if err := c.do(ctx, http.MethodGet, "/invoices", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetInvoice returns one invoice.
func (c *Client) GetInvoice(ctx context.Context, id string) (*ledger.Invoice, error) {
	var out ledger.Invoice
	if err := c.do(ctx, http.MethodGet, "/invoices/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateInvoice validates input locally, then submits it. Validation failures
// never reach the network.
func (c *Client) CreateInvoice(ctx context.Context, input invoices.CreateInvoiceInput) (*ledger.Invoice, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	var out ledger.Invoice
	if err := c.do(ctx, http.MethodPost, "/invoices", input, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// MarkPaid marks an invoice paid. Marking a paid invoice again yields ledger.ErrAlreadyPaid.
func (c *Client) MarkPaid(ctx context.Context, id string) (*ledger.Invoice, error) {
	var out ledger.Invoice
	err := c.do(ctx, http.MethodPatch, "/invoices/"+url.PathEscape(id)+"/pay", nil, &out)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusConflict {
		return nil, fmt.Errorf("%w: %w", ledger.ErrAlreadyPaid, apiErr)
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// SendInvoice moves a draft invoice to sent and emails the client.
func (c *Client) SendInvoice(ctx context.Context, id string) (*ledger.Invoice, error) {
	var out ledger.Invoice
	err := c.do(ctx, http.MethodPost, "/invoices/"+url.PathEscape(id)+"/send", nil, &out)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusConflict {
		return nil, fmt.Errorf("%w: %w", ledger.ErrInvalidTransition, apiErr)
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteInvoice removes an invoice.
func (c *Client) DeleteInvoice(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/invoices/"+url.PathEscape(id), nil, nil)
}

// Me returns the account profile.
func (c *Client) Me(ctx context.Context) (*users.Account, error) {
	var out users.Account
	if err := c.do(ctx, http.MethodGet, "/users/me", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// LogUsage meters one issued document. An exhausted free allowance yields users.ErrLimitExceeded.
func (c *Client) LogUsage(ctx context.Context, kind users.UsageKind) (users.Usage, error) {
	var out struct {
		Usage users.Usage `json:"usage"`
	}
	err := c.do(ctx, http.MethodPost, "/invoices/log", map[string]users.UsageKind{"type": kind}, &out)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusForbidden {
		return users.Usage{}, fmt.Errorf("%w: %w", users.ErrLimitExceeded, apiErr)
	}
	if err != nil {
		return users.Usage{}, err
	}
	return out.Usage, nil
}

// AccountDetails returns the bank settlement details of the account.
func (c *Client) AccountDetails(ctx context.Context) (users.BankDetails, error) {
	var out users.BankDetails
	err := c.do(ctx, http.MethodGet, "/users/me/account-details", nil, &out)
	return out, err
}

// SetAccountDetails replaces the bank settlement details of the account.
func (c *Client) SetAccountDetails(ctx context.Context, bank users.BankDetails) (users.BankDetails, error) {
	var out users.BankDetails
	err := c.do(ctx, http.MethodPut, "/users/me/account-details", bank, &out)
	return out, err
}

// ListDeliveries returns the account's deliveries, optionally filtered by status.
func (c *Client) ListDeliveries(ctx context.Context, status deliveries.Status) ([]deliveries.Delivery, error) {
	path := "/deliveries"
	if status != "" {
		path += "?status=" + url.QueryEscape(string(status))
	}
	var out []deliveries.Delivery
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateDelivery registers a pending delivery.
func (c *Client) CreateDelivery(ctx context.Context, input deliveries.DeliveryInput) (*deliveries.Delivery, error) {
	var out deliveries.Delivery
	if err := c.do(ctx, http.MethodPost, "/deliveries", input, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AdvanceDelivery moves a delivery to the next status.
func (c *Client) AdvanceDelivery(ctx context.Context, id string, status deliveries.Status) (*deliveries.Delivery, error) {
	var out deliveries.Delivery
	body := deliveries.StatusInput{Status: status}
	if err := c.do(ctx, http.MethodPatch, "/deliveries/"+url.PathEscape(id)+"/status", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ReceiptPDF downloads the PDF of a paid invoice.
func (c *Client) ReceiptPDF(ctx context.Context, id string) ([]byte, error) {
	resp, err := c.send(ctx, http.MethodGet, "/receipts/"+url.PathEscape(id)+"/pdf", nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	return io.ReadAll(resp.Body)
}

func (c *Client) do(ctx context.Context, method, path string, body, dest any) error {
	resp, err := c.send(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if dest == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("client: decode %s %s: %w", method, path, err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, path string, body any) (*http.Response, error) {
	token, err := c.session.Token()
	if err != nil {
		return nil, err
	}
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		defer func() {
			_ = resp.Body.Close()
		}()
		return nil, decodeProblem(resp)
	}
	return resp, nil
}

func decodeProblem(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	var problem httpx.ProblemDetail
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err := json.Unmarshal(raw, &problem); err == nil {
		apiErr.Title = problem.Title
		apiErr.Detail = problem.Detail
		apiErr.Fields = problem.Errors
	} else {
		apiErr.Detail = strings.TrimSpace(string(raw))
	}
	return apiErr
}
