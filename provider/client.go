package provider

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

	"boostpanel-backend/config"
	"boostpanel-backend/metrics"
	"boostpanel-backend/models"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

const maxResponseBytes = 1 << 20

var ErrResponseTooLarge = errors.New("provider response exceeds 1 MiB")

type Result struct {
	StatusCode      int
	Body            []byte
	ProviderOrderID string
}

type StatusResult struct {
	Status string
	Body   []byte
}

// UpstreamError is a non-2xx answer (StatusCode set) or a transport failure
// (Err set).
type UpstreamError struct {
	StatusCode int
	Body       []byte
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return "provider request failed: " + e.Err.Error()
	}
	body := strings.TrimSpace(string(e.Body))
	if body == "" {
		return fmt.Sprintf("provider returned HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("provider returned HTTP %d: %s", e.StatusCode, body)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// retryable reports whether another attempt cannot double-submit: gateway
// errors and connection failures are retried, timeouts are not since the
// provider may already have accepted the order.
func (e *UpstreamError) retryable() bool {
	if e.Err != nil {
		// With a status code the provider has answered, so it may hold the order.
		if e.StatusCode != 0 {
			return false
		}
		return !errors.Is(e.Err, context.DeadlineExceeded) && !errors.Is(e.Err, context.Canceled)
	}
	switch e.StatusCode {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

type Client struct {
	http *http.Client
	cfg  config.ProviderConfig
	log  zerolog.Logger
}

func NewClient(cfg config.ProviderConfig, log zerolog.Logger) *Client {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	if cfg.RetryInitial <= 0 {
		cfg.RetryInitial = 500 * time.Millisecond
	}
	return &Client{http: &http.Client{}, cfg: cfg, log: log}
}

// PlaceOrder sends the service's rendered request template to its endpoint.
func (c *Client) PlaceOrder(ctx context.Context, svc *models.Service, targetURL string, quantity int) (*Result, error) {
	body, err := BuildRequestBody(svc.RequestTemplate, targetURL, quantity)
	if err != nil {
		return nil, &UpstreamError{Err: err}
	}

	start := time.Now()
	res, err := c.send(ctx, svc, svc.APIEndpoint, svc.APIMethod, body)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.ObserveProvider(outcome, time.Since(start))
	if err != nil {
		return nil, err
	}

	res.ProviderOrderID = firstString(res.Body, "order", "orderId", "order_id", "data.order", "data.id")
	return res, nil
}

// CheckStatus asks the service's status endpoint about a provider order.
func (c *Client) CheckStatus(ctx context.Context, svc *models.Service, providerOrderID string) (*StatusResult, error) {
	if svc.StatusEndpoint == "" {
		return nil, errors.New("service has no status endpoint")
	}
	body, _ := sjson.SetBytes([]byte("{}"), "order", providerOrderID)
	method := http.MethodPost
	if svc.APIMethod == http.MethodGet {
		method = http.MethodGet
	}

	res, err := c.send(ctx, svc, svc.StatusEndpoint, method, body)
	if err != nil {
		return nil, err
	}
	return &StatusResult{
		Status: firstString(res.Body, "status", "data.status"),
		Body:   res.Body,
	}, nil
}

func (c *Client) send(ctx context.Context, svc *models.Service, endpoint, method string, body []byte) (*Result, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.cfg.RetryInitial

	attempt := 0
	op := func() (*Result, error) {
		attempt++
		res, err := c.do(ctx, svc, endpoint, method, body)
		if err == nil {
			return res, nil
		}
		var ue *UpstreamError
		if errors.As(err, &ue) && ue.retryable() && attempt < c.cfg.MaxAttempts {
			c.log.Warn().Err(err).Int("attempt", attempt).Uint("service_id", svc.ID).Msg("provider call failed, retrying")
			return nil, err
		}
		return nil, backoff.Permanent(err)
	}

	res, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(c.cfg.MaxAttempts)),
	)
	if err != nil {
		var ue *UpstreamError
		if errors.As(err, &ue) {
			return nil, ue
		}
		return nil, &UpstreamError{Err: err}
	}
	return res, nil
}

func (c *Client) do(ctx context.Context, svc *models.Service, endpoint, method string, body []byte) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	var reader io.Reader
	if method == http.MethodGet {
		u, err := withQuery(endpoint, body)
		if err != nil {
			return nil, &UpstreamError{Err: err}
		}
		endpoint = u
	} else {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, &UpstreamError{Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range svc.APIHeaders {
		req.Header.Set(k, fmt.Sprint(v))
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &UpstreamError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Err: err}
	}
	// A cut-off body would be stored as if it were the provider's answer.
	if len(raw) > maxResponseBytes {
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Err: ErrResponseTooLarge}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Body: raw}
	}
	return &Result{StatusCode: resp.StatusCode, Body: raw}, nil
}

// BuildRequestBody renders a service request template. The placeholders
// {{targetUrl}}, {{link}} and {{quantity}} are substituted; a bare
// "{{quantity}}" string becomes a JSON number. The top-level keys targetUrl
// and quantity are added unless the template already consumes the matching
// placeholder.
func BuildRequestBody(tpl []byte, targetURL string, quantity int) ([]byte, error) {
	if len(bytes.TrimSpace(tpl)) == 0 {
		tpl = []byte("{}")
	}
	if !gjson.ValidBytes(tpl) || !gjson.ParseBytes(tpl).IsObject() {
		return nil, errors.New("request template must be a JSON object")
	}

	escaped, err := json.Marshal(targetURL)
	if err != nil {
		return nil, err
	}
	urlText := string(escaped[1 : len(escaped)-1])
	qty := fmt.Sprint(quantity)

	s := string(tpl)
	usesURL := strings.Contains(s, "{{targetUrl}}") || strings.Contains(s, "{{link}}")
	usesQty := strings.Contains(s, "{{quantity}}")

	s = strings.NewReplacer(
		`"{{quantity}}"`, qty,
		"{{quantity}}", qty,
		"{{targetUrl}}", urlText,
		"{{link}}", urlText,
	).Replace(s)

	out := []byte(s)
	if !usesURL {
		if out, err = sjson.SetBytes(out, "targetUrl", targetURL); err != nil {
			return nil, err
		}
	}
	if !usesQty {
		if out, err = sjson.SetBytes(out, "quantity", quantity); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// withQuery flattens the top-level scalars of a JSON object into the query.
func withQuery(endpoint string, body []byte) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", err
	}
	q := u.Query()
	gjson.ParseBytes(body).ForEach(func(k, v gjson.Result) bool {
		if v.IsObject() || v.IsArray() {
			q.Set(k.String(), v.Raw)
		} else {
			q.Set(k.String(), v.String())
		}
		return true
	})
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func firstString(body []byte, paths ...string) string {
	if !gjson.ValidBytes(body) {
		return ""
	}
	for _, p := range paths {
		if r := gjson.GetBytes(body, p); r.Exists() && r.String() != "" {
			return r.String()
		}
	}
	return ""
}
