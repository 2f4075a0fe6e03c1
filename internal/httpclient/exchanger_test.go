package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hermeslabs/hermes/internal/config"
	"github.com/hermeslabs/hermes/internal/metrics"
)

func newTestExchanger(t *testing.T, cfg *config.Config) *Exchanger {
	t.Helper()
	builder, err := NewRequestBuilder(cfg)
	if err != nil {
		t.Fatalf("NewRequestBuilder() error = %v", err)
	}
	return NewExchanger(NewClient(), builder)
}

func TestExchangeReturnsStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	ex := newTestExchanger(t, &config.Config{TargetURL: srv.URL})
	status, err := ex.Exchange(context.Background())
	if err != nil {
		t.Fatalf("Exchange() error = %v", err)
	}
	if status != http.StatusNoContent {
		t.Errorf("status = %d, want 204", status)
	}
}

func TestExchangeDoesNotTreatRejectionAsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "1")
		http.Error(w, "too many requests", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	ex := newTestExchanger(t, &config.Config{TargetURL: srv.URL})
	status, err := ex.Exchange(context.Background())
	if err != nil {
		t.Fatalf("a 429 answer is data, not a transport error: %v", err)
	}
	if status != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", status)
	}
}

func TestExchangeSendsMethodHeadersAndBody(t *testing.T) {
	var gotMethod, gotHeader, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotHeader = r.Header.Get("X-Probe")
		buf := make([]byte, r.ContentLength)
		r.Body.Read(buf)
		gotBody = string(buf)
	}))
	defer srv.Close()

	ex := newTestExchanger(t, &config.Config{
		TargetURL: srv.URL,
		Method:    "POST",
		Headers:   []config.Header{{Name: "X-Probe", Value: "hermes"}},
		Body:      `{"ping":1}`,
	})
	if _, err := ex.Exchange(context.Background()); err != nil {
		t.Fatalf("Exchange() error = %v", err)
	}
	if gotMethod != "POST" {
		t.Errorf("method = %q", gotMethod)
	}
	if gotHeader != "hermes" {
		t.Errorf("X-Probe = %q", gotHeader)
	}
	if gotBody != `{"ping":1}` {
		t.Errorf("body = %q", gotBody)
	}
}

func TestExchangeHonorsDeadline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ex := newTestExchanger(t, &config.Config{TargetURL: srv.URL})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := ex.Exchange(ctx)
	if err == nil {
		t.Fatal("expected deadline error")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("exchange did not respect the deadline: took %s", elapsed)
	}
	if kind := metrics.Classify(err); kind != metrics.ErrorTimeout {
		t.Errorf("Classify(%v) = %q, want timeout", err, kind)
	}
}

func TestExchangeConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	target := srv.URL
	srv.Close() // nothing listens here anymore

	ex := newTestExchanger(t, &config.Config{TargetURL: target})
	_, err := ex.Exchange(context.Background())
	if err == nil {
		t.Fatal("expected connection error")
	}
	if kind := metrics.Classify(err); kind != metrics.ErrorConnection {
		t.Errorf("Classify(%v) = %q, want connection", err, kind)
	}
}

func TestExchangeTruncatedBodyIsProtocolError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "100")
		w.Write([]byte("short"))
		// Hijack and drop the connection so the promised length never arrives.
		if hj, ok := w.(http.Hijacker); ok {
			conn, _, _ := hj.Hijack()
			if conn != nil {
				conn.Close()
			}
		}
	}))
	defer srv.Close()

	ex := newTestExchanger(t, &config.Config{TargetURL: srv.URL})
	_, err := ex.Exchange(context.Background())
	if err == nil {
		t.Fatal("expected error for truncated body")
	}
	if kind := metrics.Classify(err); kind != metrics.ErrorProtocol {
		t.Errorf("Classify(%v) = %q, want protocol", err, kind)
	}
}
