package metrics

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"net/url"
	"strings"
)

// Classify maps a transport error to its ErrorKind. A nil error yields the
// empty kind.
func Classify(err error) ErrorKind {
	if err == nil {
		return ""
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorTimeout
	}
	// Attempts abandoned at shutdown drain are finalized as timeouts.
	if errors.Is(err, context.Canceled) {
		return ErrorTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrorTimeout
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return ErrorConnection
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return ErrorConnection
	}
	var recordErr tls.RecordHeaderError
	if errors.As(err, &recordErr) {
		return ErrorConnection
	}
	var certErr *tls.CertificateVerificationError
	if errors.As(err, &certErr) {
		return ErrorConnection
	}

	if errors.Is(err, io.ErrUnexpectedEOF) {
		return ErrorProtocol
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return ErrorTimeout
		}
		// net/http reports malformed responses as opaque url.Errors; the
		// message prefix is the only discriminator it exposes.
		if strings.Contains(urlErr.Err.Error(), "malformed") {
			return ErrorProtocol
		}
		return ErrorConnection
	}

	if strings.Contains(err.Error(), "malformed") {
		return ErrorProtocol
	}
	return ErrorConnection
}

var kindLabels = map[ErrorKind]string{
	ErrorTimeout:    "Timeout",
	ErrorConnection: "Connection error",
	ErrorOverloaded: "Overloaded (queue full)",
	ErrorProtocol:   "Protocol error",
	ErrorConfig:     "Configuration error",
}

// Label returns a human-friendly name for an error kind.
func Label(kind ErrorKind) string {
	if label, ok := kindLabels[kind]; ok {
		return label
	}
	if kind == "" {
		return "None"
	}
	return string(kind)
}
