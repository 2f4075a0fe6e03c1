package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// Bound on how much of a response body gets drained before the connection is
// released for reuse.
const maxDrainBytes = 1 << 20

// Exchanger performs one request/response exchange per attempt. Any received
// response resolves the exchange with its status code; the status is never
// turned into an error, since 4xx and 5xx answers are exactly the data a
// rate-limit probe exists to collect.
type Exchanger struct {
	client  *http.Client
	builder *RequestBuilder
}

func NewExchanger(client *http.Client, builder *RequestBuilder) *Exchanger {
	if client == nil {
		client = NewClient()
	}
	return &Exchanger{client: client, builder: builder}
}

func (e *Exchanger) Exchange(ctx context.Context) (int, error) {
	req, err := e.builder.Build(ctx)
	if err != nil {
		return 0, err
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	// Drain so the transport can reuse the connection; a body that dies
	// mid-read counts against the attempt.
	if _, err := io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainBytes)); err != nil {
		return 0, fmt.Errorf("malformed response body: %w", err)
	}

	return resp.StatusCode, nil
}
