// Package client talks to the voucher HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mhakimsaputra17/discount-voucher-management/internal/api"
	"github.com/mhakimsaputra17/discount-voucher-management/internal/auth"
	"github.com/mhakimsaputra17/discount-voucher-management/internal/voucher"
)

// Session is the explicit connection state a Client carries: where the API
// lives and the bearer token to present. An empty token sends requests
// unauthenticated.
type Session struct {
	BaseURL string
	Token   string
}

// TransportError reports a failed round trip: a network error, or a non-2xx
// response. It unwraps to the matching voucher sentinel so callers can use
// errors.Is whichever backend they talk to.
type TransportError struct {
	Op         string
	StatusCode int
	Message    string
	Code       string
	Fields     map[string]string
	Err        error
}

func (e *TransportError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: %d %s", e.Op, e.StatusCode, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return e.Op + ": transport failure"
	}
}

func (e *TransportError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}

	switch e.Code {
	case api.CodeFormat:
		return voucher.ErrFormat
	case api.CodeDuplicate:
		return voucher.ErrDuplicateCode
	case api.CodeNotFound:
		return voucher.ErrNotFound
	}

	switch e.StatusCode {
	case http.StatusBadRequest:
		if e.Fields != nil {
			return &voucher.ValidationError{Fields: e.Fields}
		}

		return voucher.ErrValidation
	case http.StatusNotFound:
		return voucher.ErrNotFound
	case http.StatusConflict:
		return voucher.ErrDuplicateCode
	case http.StatusUnauthorized:
		return auth.ErrInvalidToken
	}

	return nil
}

type Client struct {
	session Session
	http    *http.Client
}

func New(session Session, timeout time.Duration) *Client {
	return &Client{
		session: Session{BaseURL: strings.TrimRight(session.BaseURL, "/"), Token: session.Token},
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) Session() Session {
	return c.session
}

// Login exchanges credentials for a token and stores it in the session.
func (c *Client) Login(ctx context.Context, creds auth.Credentials) error {
	var resp api.LoginResponse
	if err := c.doJSON(ctx, "login", http.MethodPost, "/login", creds, &resp); err != nil {
		return err
	}

	c.session.Token = resp.Token

	return nil
}

func (c *Client) List(ctx context.Context, q voucher.Query) (voucher.Page, error) {
	var resp api.ListResponse
	if err := c.doJSON(ctx, "list vouchers", http.MethodGet, "/vouchers?"+queryValues(q, true).Encode(), nil, &resp); err != nil {
		return voucher.Page{}, err
	}

	return resp.ToPage(), nil
}

func (c *Client) Get(ctx context.Context, id int64) (*voucher.Voucher, error) {
	var resp api.Voucher
	if err := c.doJSON(ctx, "get voucher", http.MethodGet, voucherPath(id), nil, &resp); err != nil {
		return nil, err
	}

	return resp.ToVoucher(), nil
}

func (c *Client) Create(ctx context.Context, in voucher.Input) (*voucher.Voucher, error) {
	var resp api.Voucher
	if err := c.doJSON(ctx, "create voucher", http.MethodPost, "/vouchers", api.NewVoucherRequest(in), &resp); err != nil {
		return nil, err
	}

	return resp.ToVoucher(), nil
}

func (c *Client) Update(ctx context.Context, id int64, in voucher.Input) (*voucher.Voucher, error) {
	var resp api.Voucher
	if err := c.doJSON(ctx, "update voucher", http.MethodPut, voucherPath(id), api.NewVoucherRequest(in), &resp); err != nil {
		return nil, err
	}

	return resp.ToVoucher(), nil
}

func (c *Client) Delete(ctx context.Context, id int64) error {
	return c.doJSON(ctx, "delete voucher", http.MethodDelete, voucherPath(id), nil, nil)
}

func (c *Client) Stats(ctx context.Context) (voucher.Stats, error) {
	var resp api.Stats
	if err := c.doJSON(ctx, "voucher stats", http.MethodGet, "/vouchers/stats", nil, &resp); err != nil {
		return voucher.Stats{}, err
	}

	return resp.ToStats(), nil
}

// Import uploads a CSV file as multipart field "file".
func (c *Client) Import(ctx context.Context, filename string, r io.Reader) (*voucher.ImportResult, error) {
	const op = "upload csv"

	var body bytes.Buffer

	mw := multipart.NewWriter(&body)

	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}

	if _, err := io.Copy(fw, r); err != nil {
		return nil, &TransportError{Op: op, Err: fmt.Errorf("reading %s: %w", filename, err)}
	}

	if err := mw.Close(); err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/vouchers/upload-csv", &body)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}

	req.Header.Set("Content-Type", mw.FormDataContentType())

	var resp api.ImportResponse
	if err := c.send(op, req, &resp); err != nil {
		return nil, err
	}

	return resp.ToImportResult(), nil
}

// Export streams the CSV export for q's search and sort into w.
func (c *Client) Export(ctx context.Context, q voucher.Query, w io.Writer) error {
	const op = "export csv"

	req, err := c.newRequest(ctx, http.MethodGet, "/vouchers/export?"+queryValues(q, false).Encode(), nil)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if err := checkStatus(op, resp); err != nil {
		return err
	}

	if _, err := io.Copy(w, resp.Body); err != nil {
		return &TransportError{Op: op, Err: err}
	}

	return nil
}

func voucherPath(id int64) string {
	return "/vouchers/" + strconv.FormatInt(id, 10)
}

func queryValues(q voucher.Query, paged bool) url.Values {
	v := url.Values{}

	if q.Search != "" {
		v.Set("q", q.Search)
	}

	if q.Sort != "" {
		v.Set("sort", string(q.Sort))
	}

	if q.Order != "" {
		v.Set("order", string(q.Order))
	}

	if paged {
		v.Set("page", strconv.Itoa(q.Page))
		v.Set("limit", strconv.Itoa(q.Limit))
	}

	return v
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.session.BaseURL+path, body)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Accept", "application/json")

	if c.session.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.session.Token)
	}

	return req, nil
}

func (c *Client) doJSON(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader

	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return &TransportError{Op: op, Err: fmt.Errorf("encoding request: %w", err)}
		}

		body = bytes.NewReader(b)
	}

	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}

	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.send(op, req, out)
}

func (c *Client) send(op string, req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if err := checkStatus(op, resp); err != nil {
		return err
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("decoding response: %w", err)}
	}

	return nil
}

func checkStatus(op string, resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	te := &TransportError{Op: op, StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}

	var body api.Error
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body); err == nil && body.Error != "" {
		te.Message = body.Error
		te.Code = body.Code
		te.Fields = body.Fields
	}

	return te
}

// IsTransport reports whether err came from a failed round trip.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
