package auth

import (
	"net/http"
	"strings"
)

// Policy decides which requests need a session token.
type Policy struct {
	ExemptPaths       map[string]struct{}
	ExemptPrefixes    []string
	ProtectedPrefixes []string
}

// NewDefaultPolicy builds a policy protecting /api/v1/ minus the exemptions.
func NewDefaultPolicy(exemptPaths []string, exemptPrefixes []string) Policy {
	set := make(map[string]struct{}, len(exemptPaths))
	for _, path := range exemptPaths {
		set[path] = struct{}{}
	}
	return Policy{ExemptPaths: set, ExemptPrefixes: exemptPrefixes, ProtectedPrefixes: []string{"/api/v1/"}}
}

// IsExempt returns true when a request should skip auth.
func (p Policy) IsExempt(r *http.Request) bool {
	if r == nil {
		return true
	}
	if _, ok := p.ExemptPaths[r.URL.Path]; ok {
		return true
	}
	for _, prefix := range p.ExemptPrefixes {
		if strings.HasPrefix(r.URL.Path, prefix) {
			return true
		}
	}
	return false
}

// RequiresSession reports whether the request path is protected.
func (p Policy) RequiresSession(r *http.Request) bool {
	if r == nil {
		return false
	}
	for _, prefix := range p.ProtectedPrefixes {
		if strings.HasPrefix(r.URL.Path, prefix) {
			return true
		}
	}
	return false
}
