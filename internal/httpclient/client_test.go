package httpclient

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/hermeslabs/hermes/internal/config"
)

func TestNewRequestBuilderRequiresTarget(t *testing.T) {
	_, err := NewRequestBuilder(&config.Config{})
	if err == nil {
		t.Fatal("expected error for missing target")
	}
}

func TestNewRequestBuilderNormalizesMethod(t *testing.T) {
	b, err := NewRequestBuilder(&config.Config{TargetURL: "http://example.com", Method: "post"})
	if err != nil {
		t.Fatalf("NewRequestBuilder() error = %v", err)
	}
	if b.Method() != http.MethodPost {
		t.Errorf("Method() = %q, want POST", b.Method())
	}
}

func TestNewRequestBuilderRejectsHeaderInjection(t *testing.T) {
	cfg := &config.Config{
		TargetURL: "http://example.com",
		Headers:   []config.Header{{Name: "X-Bad", Value: "a\r\nX-Injected: 1"}},
	}
	if _, err := NewRequestBuilder(cfg); err == nil {
		t.Fatal("expected error for header value with line breaks")
	}

	cfg.Headers = []config.Header{{Name: "X\r\nBad", Value: "v"}}
	if _, err := NewRequestBuilder(cfg); err == nil {
		t.Fatal("expected error for header name with line breaks")
	}
}

func TestBuildSetsOrderedHeaders(t *testing.T) {
	cfg := &config.Config{
		TargetURL: "http://example.com/path",
		Headers: []config.Header{
			{Name: "x-one", Value: "1"},
			{Name: "X-Two", Value: "2"},
		},
	}
	b, err := NewRequestBuilder(cfg)
	if err != nil {
		t.Fatalf("NewRequestBuilder() error = %v", err)
	}

	req, err := b.Build(context.Background())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if req.Header.Get("X-One") != "1" {
		t.Errorf("X-One = %q", req.Header.Get("X-One"))
	}
	if req.Header.Get("X-Two") != "2" {
		t.Errorf("X-Two = %q", req.Header.Get("X-Two"))
	}
}

func TestBuildProducesFreshBodyPerAttempt(t *testing.T) {
	cfg := &config.Config{
		TargetURL: "http://example.com",
		Method:    "POST",
		Body:      `{"k":"v"}`,
	}
	b, err := NewRequestBuilder(cfg)
	if err != nil {
		t.Fatalf("NewRequestBuilder() error = %v", err)
	}

	for i := 0; i < 2; i++ {
		req, err := b.Build(context.Background())
		if err != nil {
			t.Fatalf("Build() #%d error = %v", i, err)
		}
		data, err := io.ReadAll(req.Body)
		if err != nil {
			t.Fatalf("read body #%d: %v", i, err)
		}
		if string(data) != cfg.Body {
			t.Errorf("body #%d = %q, want %q", i, data, cfg.Body)
		}
		if req.ContentLength != int64(len(cfg.Body)) {
			t.Errorf("ContentLength = %d, want %d", req.ContentLength, len(cfg.Body))
		}
	}
}

func TestBodySourceReadsFileOnce(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "payload.json")
	payload := `{"file":true}`
	if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
		t.Fatal(err)
	}

	src, err := newBodySource(&config.Config{TargetURL: "http://example.com", BodyFile: path})
	if err != nil {
		t.Fatalf("newBodySource() error = %v", err)
	}

	// The payload is captured at construction; later file changes must not
	// leak into the run.
	if err := os.WriteFile(path, []byte("changed"), 0o644); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 2; i++ {
		reader, err := src.NewReader()
		if err != nil {
			t.Fatalf("NewReader() #%d error = %v", i, err)
		}
		data, err := io.ReadAll(reader)
		reader.Close()
		if err != nil {
			t.Fatal(err)
		}
		if string(data) != payload {
			t.Errorf("body #%d = %q, want %q", i, data, payload)
		}
	}
	if src.Len() != int64(len(payload)) {
		t.Errorf("Len() = %d, want %d", src.Len(), len(payload))
	}
}

func TestBodySourceMissingFile(t *testing.T) {
	_, err := newBodySource(&config.Config{BodyFile: filepath.Join(t.TempDir(), "absent.json")})
	if err == nil {
		t.Fatal("expected error for missing body file")
	}
}

func TestBodySourceEmpty(t *testing.T) {
	src, err := newBodySource(&config.Config{TargetURL: "http://example.com"})
	if err != nil {
		t.Fatalf("newBodySource() error = %v", err)
	}
	if src.Len() != 0 {
		t.Errorf("Len() = %d, want 0", src.Len())
	}
}
