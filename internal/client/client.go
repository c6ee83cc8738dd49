// Package client is an HTTP and WebSocket client for the karte API.
// *Client satisfies session.Backend, so an editing session can run against
// a remote server exactly as it does against the in-process service.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/pkordes/travel-karte/internal/domain"
)

// APIError is a non-2xx response that does not map to a domain sentinel.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("karte api: status %d", e.Status)
	}
	return fmt.Sprintf("karte api: status %d: %s: %s", e.Status, e.Code, e.Message)
}

// Client talks to one karte API server.
type Client struct {
	base   *url.URL
	http   *http.Client
	dialer *websocket.Dialer
	log    *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithDialer replaces the default WebSocket dialer.
func WithDialer(d *websocket.Dialer) Option {
	return func(c *Client) { c.dialer = d }
}

// WithLogger sets the logger used by live feeds.
func WithLogger(log *slog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// New returns a Client for the server at baseURL, e.g. "http://localhost:8080".
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("client.New: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("client.New: unsupported scheme %q", u.Scheme)
	}
	c := &Client{
		base:   u,
		http:   &http.Client{Timeout: 30 * time.Second},
		dialer: websocket.DefaultDialer,
		log:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type karteBody struct {
	Basic    domain.BasicInfo         `json:"basic"`
	Payments []domain.Payment         `json:"payments"`
	Expenses []domain.Expense         `json:"expenses"`
	Comments []domain.Comment         `json:"comments"`
	Memo     string                   `json:"memo"`
	Editors  map[string]domain.Editor `json:"current_editors"`
}

func bodyOf(k domain.Karte) karteBody {
	return karteBody{
		Basic:    k.Basic,
		Payments: k.Payments,
		Expenses: k.Expenses,
		Comments: k.Comments,
		Memo:     k.Memo,
		Editors:  k.Editors,
	}
}

// Create posts a new karte and returns the stored record.
func (c *Client) Create(ctx context.Context, k domain.Karte) (domain.Karte, error) {
	var out domain.Karte
	if err := c.do(ctx, http.MethodPost, "/kartes", bodyOf(k), &out); err != nil {
		return domain.Karte{}, fmt.Errorf("client.Client.Create: %w", err)
	}
	return out, nil
}

// GetByID fetches one karte.
func (c *Client) GetByID(ctx context.Context, id uuid.UUID) (domain.Karte, error) {
	var out domain.Karte
	if err := c.do(ctx, http.MethodGet, "/kartes/"+id.String(), nil, &out); err != nil {
		return domain.Karte{}, fmt.Errorf("client.Client.GetByID: %w", err)
	}
	return out, nil
}

// ListRecent fetches up to q.Limit kartes, newest first, narrowed by
// q.Search. Zero values leave the server defaults in place.
func (c *Client) ListRecent(ctx context.Context, q domain.ListQuery) ([]domain.KarteListItem, error) {
	path := "/kartes"
	params := url.Values{}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	if s := strings.TrimSpace(q.Search); s != "" {
		params.Set("q", s)
	}
	if len(params) > 0 {
		path += "?" + params.Encode()
	}
	var out struct {
		Data []domain.KarteListItem `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, fmt.Errorf("client.Client.ListRecent: %w", err)
	}
	return out.Data, nil
}

// Save overwrites k on the server.
func (c *Client) Save(ctx context.Context, k domain.Karte) (domain.Karte, error) {
	var out domain.Karte
	if err := c.do(ctx, http.MethodPut, "/kartes/"+k.ID.String(), bodyOf(k), &out); err != nil {
		return domain.Karte{}, fmt.Errorf("client.Client.Save: %w", err)
	}
	return out, nil
}

// SetEditors replaces the presence map of a karte.
func (c *Client) SetEditors(ctx context.Context, id uuid.UUID, editors map[string]domain.Editor) (domain.Karte, error) {
	body := struct {
		Editors map[string]domain.Editor `json:"current_editors"`
	}{editors}
	var out domain.Karte
	if err := c.do(ctx, http.MethodPut, "/kartes/"+id.String()+"/editors", body, &out); err != nil {
		return domain.Karte{}, fmt.Errorf("client.Client.SetEditors: %w", err)
	}
	return out, nil
}

// Delete removes a karte.
func (c *Client) Delete(ctx context.Context, id uuid.UUID) error {
	if err := c.do(ctx, http.MethodDelete, "/kartes/"+id.String(), nil, nil); err != nil {
		return fmt.Errorf("client.Client.Delete: %w", err)
	}
	return nil
}

// Export downloads the server-rendered workbook of a stored karte.
func (c *Client) Export(ctx context.Context, id uuid.UUID) (domain.ExportFile, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/kartes/"+id.String()+"/export", nil)
	if err != nil {
		return domain.ExportFile{}, fmt.Errorf("client.Client.Export: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return domain.ExportFile{}, fmt.Errorf("client.Client.Export: %w", err)
	}
	defer resp.Body.Close()
	if err := checkResponse(resp); err != nil {
		return domain.ExportFile{}, fmt.Errorf("client.Client.Export: %w", err)
	}

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.ExportFile{}, fmt.Errorf("client.Client.Export: read: %w", err)
	}
	file := domain.ExportFile{ContentType: resp.Header.Get("Content-Type"), Content: content}
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
		file.Name = params["filename"]
	}
	if file.Name == "" {
		file.Name = id.String() + ".xlsx"
	}
	return file, nil
}

// do sends a JSON request and decodes a JSON response into out (when non-nil).
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkResponse(resp); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// checkResponse maps an error response to domain.ErrNotFound,
// domain.ErrValidation or an *APIError.
func checkResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	// A body that is not the usual error envelope still yields the status.
	_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body)

	switch resp.StatusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, body.Error.Message)
	case http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: %s", domain.ErrValidation, body.Error.Message)
	}
	return &APIError{Status: resp.StatusCode, Code: body.Error.Code, Message: body.Error.Message}
}

var errUnexpectedFrame = errors.New("unexpected frame")
