package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/hermeslabs/hermes/internal/config"
)

// RequestBuilder produces one identical request per attempt. All attempts in a
// run share the same method, target, headers, and body source.
type RequestBuilder struct {
	method  string
	target  string
	headers []config.Header
	body    *BodySource
}

func NewRequestBuilder(cfg *config.Config) (*RequestBuilder, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	target := strings.TrimSpace(cfg.TargetURL)
	if target == "" {
		return nil, errors.New("target URL is required")
	}

	method := strings.TrimSpace(cfg.Method)
	if method == "" {
		method = http.MethodGet
	}
	method = strings.ToUpper(method)

	body, err := newBodySource(cfg)
	if err != nil {
		return nil, err
	}

	headers := make([]config.Header, 0, len(cfg.Headers))
	for _, h := range cfg.Headers {
		name := strings.TrimSpace(h.Name)
		if name == "" {
			return nil, fmt.Errorf("invalid header name %q", h.Name)
		}
		if strings.ContainsAny(name, "\r\n") {
			return nil, fmt.Errorf("invalid header name %q", h.Name)
		}
		if strings.ContainsAny(h.Value, "\r\n") {
			return nil, fmt.Errorf("invalid header value for %s", name)
		}
		headers = append(headers, config.Header{
			Name:  http.CanonicalHeaderKey(name),
			Value: h.Value,
		})
	}

	return &RequestBuilder{
		method:  method,
		target:  target,
		headers: headers,
		body:    body,
	}, nil
}

func (b *RequestBuilder) Build(ctx context.Context) (*http.Request, error) {
	if b == nil {
		return nil, errors.New("builder cannot be nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	reader, err := b.body.NewReader()
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, b.method, b.target, reader)
	if err != nil {
		_ = reader.Close()
		return nil, err
	}

	for _, h := range b.headers {
		req.Header.Add(h.Name, h.Value)
	}

	req.ContentLength = b.body.Len()
	req.GetBody = b.body.NewReader

	return req, nil
}

// Method returns the normalized HTTP method the builder will use.
func (b *RequestBuilder) Method() string { return b.method }

// Target returns the target URL the builder will use.
func (b *RequestBuilder) Target() string { return b.target }

// NewClient builds an HTTP client tuned for many short-lived requests against
// a single host. Per-attempt deadlines come from the request context, so the
// client itself carries no timeout.
func NewClient() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          256,
		MaxIdleConnsPerHost:   32,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{
		Transport: transport,
	}
}
