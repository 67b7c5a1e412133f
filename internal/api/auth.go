// Package api implements the HTTP surface of the VRP solver service.
package api

import (
	"context"
	"net/http"
)

type Principal struct {
	Tenant string
}

// getPrincipal extracts the tenant from headers. Callers without an
// X-Tenant-Id header are placed in the demo tenant.
func (s *Server) getPrincipal(r *http.Request) Principal {
	tenant := r.Header.Get("X-Tenant-Id")
	if tenant == "" {
		tenant = "t_demo"
	}
	return Principal{Tenant: tenant}
}

func (s *Server) withTenant(r *http.Request) (context.Context, string) {
	tenant := s.getPrincipal(r).Tenant
	ctx := context.WithValue(r.Context(), ctxKeyTenant{}, tenant)
	return ctx, tenant
}

type ctxKeyTenant struct{}
