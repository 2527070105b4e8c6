// Package remote talks to the grocery organizing service.
//
// Responses are normalized here into [grocery.Entry] values, whatever shape
// the service chose, so callers never branch on response layout.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/calvinalkan/grocer/internal/grocery"
)

// DefaultTimeout bounds a single request when the caller sets none.
const DefaultTimeout = 10 * time.Second

// maxBody caps how much of a response is read.
const maxBody = 4 << 20

// ErrUnavailable wraps every failure to get a usable answer from the
// service: transport errors, timeouts, non-2xx statuses, error bodies and
// unparseable payloads.
var ErrUnavailable = errors.New("organizing service unavailable")

// ErrNotConfigured is returned when the client has no base URL.
var ErrNotConfigured = errors.New("organizing service not configured")

// Client is an HTTP client for the organizing service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a [Client].
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient = &http.Client{Timeout: d, Transport: c.httpClient.Transport}
		}
	}
}

// New returns a client for the service at baseURL. An empty baseURL yields a
// client whose calls fail with [ErrNotConfigured].
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// BaseURL returns the service root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Health probes GET /health. Any 2xx response without an error field counts
// as healthy.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, "/health", nil)

	return err
}

// Organize sends items to POST /grocery-list and returns them flattened into
// entries, with the section each one was filed under.
func (c *Client) Organize(ctx context.Context, items []string) ([]grocery.Entry, error) {
	if items == nil {
		items = []string{}
	}

	body, err := c.do(ctx, http.MethodPost, "/grocery-list", map[string]any{"items": items})
	if err != nil {
		return nil, err
	}

	return NormalizeOrganized(body)
}

// Ingredient is one recipe ingredient suggested by the service.
type Ingredient struct {
	Item     string `json:"item"`
	Quantity string `json:"quantity,omitempty"`
	Category string `json:"category,omitempty"`
}

// Entry converts the ingredient to a list entry.
func (in Ingredient) Entry() grocery.Entry {
	return grocery.Entry{Name: in.Item, Category: in.Category}
}

// Recipe sends a recipe description to POST /recipe-groceries and returns the
// suggested ingredients.
func (c *Client) Recipe(ctx context.Context, recipe string) ([]Ingredient, error) {
	body, err := c.do(ctx, http.MethodPost, "/recipe-groceries", map[string]any{"recipe": recipe})
	if err != nil {
		return nil, err
	}

	return NormalizeRecipe(body)
}

func (c *Client) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	if c.baseURL == "" {
		return nil, ErrNotConfigured
	}

	var reqBody io.Reader

	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}

		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	req.Header.Set("Accept", "application/json")

	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %w", ErrUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrUnavailable, path, err)
	}

	if msg := errorMessage(body); msg != "" {
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, msg)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s %s: status %d", ErrUnavailable, method, path, resp.StatusCode)
	}

	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: %s: invalid JSON response", ErrUnavailable, path)
	}

	return body, nil
}

// errorMessage returns the "error" field of a JSON body, if any.
func errorMessage(body []byte) string {
	e := gjson.GetBytes(body, "error")
	if !e.Exists() || e.Type == gjson.Null {
		return ""
	}

	if msg := strings.TrimSpace(e.String()); msg != "" {
		return msg
	}

	return "unknown error"
}

// NormalizeOrganized flattens an organize response into entries in response
// order. The payload may be wrapped in "organized_list" and may be an object
// mapping section names to arrays, or a flat array. Array elements are
// strings or objects carrying "name" or "item" and optionally "category".
func NormalizeOrganized(body []byte) ([]grocery.Entry, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: invalid JSON response", ErrUnavailable)
	}

	if msg := errorMessage(body); msg != "" {
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, msg)
	}

	v := gjson.ParseBytes(body)
	if wrapped := v.Get("organized_list"); wrapped.Exists() {
		v = wrapped
	}

	switch {
	case v.IsArray():
		return entriesFrom(v, ""), nil
	case v.IsObject():
		var out []grocery.Entry

		v.ForEach(func(key, value gjson.Result) bool {
			if value.IsArray() {
				out = append(out, entriesFrom(value, strings.TrimSpace(key.String()))...)
			}

			return true
		})

		return out, nil
	default:
		return nil, fmt.Errorf("%w: unexpected organize response", ErrUnavailable)
	}
}

func entriesFrom(arr gjson.Result, section string) []grocery.Entry {
	var out []grocery.Entry

	arr.ForEach(func(_, el gjson.Result) bool {
		var e grocery.Entry

		switch {
		case el.Type == gjson.String || el.Type == gjson.Number:
			e = grocery.Entry{Name: el.String(), Category: section}
		case el.IsObject():
			e = grocery.Entry{Name: firstString(el, "name", "item"), Category: firstString(el, "category")}
			if e.Category == "" {
				e.Category = section
			}
		default:
			return true
		}

		e.Name = strings.TrimSpace(e.Name)
		if e.Name != "" {
			out = append(out, e)
		}

		return true
	})

	return out
}

func firstString(obj gjson.Result, fields ...string) string {
	for _, f := range fields {
		if v := obj.Get(f); v.Exists() && v.Type != gjson.Null {
			if s := strings.TrimSpace(v.String()); s != "" {
				return s
			}
		}
	}

	return ""
}

// NormalizeRecipe extracts ingredients from a recipe response, accepting both
// {"ingredients": [...]} and {"groceries": {"ingredients": [...]}}.
func NormalizeRecipe(body []byte) ([]Ingredient, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: invalid JSON response", ErrUnavailable)
	}

	if msg := errorMessage(body); msg != "" {
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, msg)
	}

	arr := gjson.GetBytes(body, "groceries.ingredients")
	if !arr.Exists() {
		arr = gjson.GetBytes(body, "ingredients")
	}

	if !arr.IsArray() {
		return nil, fmt.Errorf("%w: response has no ingredients", ErrUnavailable)
	}

	var out []Ingredient

	arr.ForEach(func(_, el gjson.Result) bool {
		var in Ingredient

		if el.Type == gjson.String {
			in.Item = strings.TrimSpace(el.String())
		} else if el.IsObject() {
			in = Ingredient{
				Item:     firstString(el, "item", "name"),
				Quantity: firstString(el, "quantity"),
				Category: firstString(el, "category"),
			}
		}

		if in.Item != "" {
			out = append(out, in)
		}

		return true
	})

	return out, nil
}
