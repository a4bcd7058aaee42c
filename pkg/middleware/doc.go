// Package middleware provides the HTTP request pipeline: request IDs,
// tenant resolution, bearer-token authentication, and rate limiting.
//
// # Ordering
//
// Middlewares have ordering dependencies. Required order, outer to inner:
//
//  1. RequestID - tags the request for logs and audit
//  2. Tenant - resolves the tenant from the host or X-Tenant header
//  3. RateLimit - keyed by client IP, shared across processes via Redis
//  4. Auth - verifies the bearer token and stores the Principal
//
// Tenant must run before Auth because login handlers need the tenant
// resolved while no principal exists yet. Credential-level rate limiting
// (per identifier) lives in the auth service, not here.
package middleware
