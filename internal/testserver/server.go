// Package testserver provides a small rate-limited HTTP target. It answers
// 200 while requests stay under the configured rate and 429 once the token
// bucket runs dry, which makes it a convenient local opponent for probing.
package testserver

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// Options configure the dummy target.
type Options struct {
	Addr    string        // listen address, e.g. ":8080"
	Rate    float64       // requests per second admitted before 429
	Burst   int           // token bucket burst (0 = ceil(Rate))
	Latency time.Duration // artificial delay added to every response
}

// Server is a rate-limited HTTP target.
type Server struct {
	opt      Options
	limiter  *rate.Limiter
	http     *http.Server
	listener net.Listener

	admitted int64
	rejected int64
}

func New(opt Options) (*Server, error) {
	if opt.Rate <= 0 {
		return nil, errors.New("rate must be > 0")
	}
	if opt.Addr == "" {
		opt.Addr = ":8080"
	}
	burst := opt.Burst
	if burst <= 0 {
		burst = int(math.Ceil(opt.Rate))
	}

	s := &Server{
		opt:     opt,
		limiter: rate.NewLimiter(rate.Limit(opt.Rate), burst),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handle)
	s.http = &http.Server{
		Addr:              opt.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	if s.opt.Latency > 0 {
		select {
		case <-time.After(s.opt.Latency):
		case <-r.Context().Done():
			return
		}
	}

	if !s.limiter.Allow() {
		atomic.AddInt64(&s.rejected, 1)
		w.Header().Set("Retry-After", "1")
		http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
		return
	}

	atomic.AddInt64(&s.admitted, 1)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintln(w, "ok")
}

// Start binds the listener. It returns once the address is bound, so callers
// can probe immediately after.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.opt.Addr)
	if err != nil {
		return err
	}
	s.listener = ln
	go func() {
		_ = s.http.Serve(ln)
	}()
	return nil
}

// Addr returns the bound listen address.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.opt.Addr
	}
	return s.listener.Addr().String()
}

// URL returns the root URL of the running server.
func (s *Server) URL() string {
	return "http://" + s.Addr()
}

// Admitted returns the number of 200 responses served.
func (s *Server) Admitted() int64 {
	return atomic.LoadInt64(&s.admitted)
}

// Rejected returns the number of 429 responses served.
func (s *Server) Rejected() int64 {
	return atomic.LoadInt64(&s.rejected)
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
