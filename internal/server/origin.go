package server

import (
	"net/http"
	"slices"
	"strings"
)

type OriginChecker struct {
	allowedOrigins []string
}

func NewOriginChecker(allowedOrigins []string) *OriginChecker {
	return &OriginChecker{
		allowedOrigins,
	}
}

// Check accepts requests without an Origin header (non-browser clients).
func (c *OriginChecker) Check(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	if slices.Contains(c.allowedOrigins, "*") {
		return true
	}

	return slices.ContainsFunc(c.allowedOrigins, func(allowed string) bool {
		return strings.EqualFold(allowed, origin)
	})
}
