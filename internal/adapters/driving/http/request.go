package http

import (
	"net/http"

	"github.com/latchkey-io/latchkey-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.Request = (*Request)(nil)

// Request adapts an inbound *http.Request to the read-only view the
// authentication schemes consume.
type Request struct {
	r *http.Request
}

// NewRequest wraps an inbound request.
func NewRequest(r *http.Request) *Request {
	return &Request{r: r}
}

// Header returns the named header value, empty when absent.
func (req *Request) Header(name string) string {
	return req.r.Header.Get(name)
}

// Input returns the named request parameter: query string first, then
// form body. Empty when absent.
func (req *Request) Input(name string) string {
	if value := req.r.URL.Query().Get(name); value != "" {
		return value
	}
	return req.r.PostFormValue(name)
}
