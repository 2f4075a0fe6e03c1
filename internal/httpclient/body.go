package httpclient

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hermeslabs/hermes/internal/config"
)

// BodySource holds the request payload for a run. The payload is resolved
// once, when the builder is constructed, and every attempt replays the same
// bytes: a body file is read a single time no matter how many requests the
// schedule fires, and a fresh reader per attempt keeps redirects and retries
// by the transport safe.
type BodySource struct {
	data []byte
}

// newBodySource resolves cfg's payload. An inline body wins over a body file;
// config.Validate rejects configs that carry both.
func newBodySource(cfg *config.Config) (*BodySource, error) {
	if cfg.Body != "" {
		return &BodySource{data: []byte(cfg.Body)}, nil
	}
	path := strings.TrimSpace(cfg.BodyFile)
	if path == "" {
		return &BodySource{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("body file: %w", err)
	}
	return &BodySource{data: data}, nil
}

// NewReader returns a fresh reader over the payload. Also used as
// http.Request.GetBody.
func (s *BodySource) NewReader() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(s.data)), nil
}

// Len returns the payload size for Content-Length.
func (s *BodySource) Len() int64 {
	return int64(len(s.data))
}
