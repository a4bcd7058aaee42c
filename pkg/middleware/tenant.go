package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/crewdesk/crewdesk/pkg/contextkeys"
	"github.com/crewdesk/crewdesk/pkg/httputil"
	"github.com/crewdesk/crewdesk/pkg/tenants"
)

// TenantHeader overrides host-based tenant resolution. Used by local
// development and by tooling that fronts several tenants on one host.
const TenantHeader = "X-Tenant"

// TenantResolver resolves the tenant for every request from the request
// host's leftmost label (acme.crewdesk.example -> acme) or from the
// X-Tenant header when set. Lookups are cached with a short TTL so a
// suspension takes effect without a restart but the hot path stays off
// the database.
type TenantResolver struct {
	store *tenants.Store
	cache *expirable.LRU[string, *tenants.Tenant]
}

// NewTenantResolver creates a resolver caching up to size tenants.
func NewTenantResolver(store *tenants.Store, size int, ttl time.Duration) *TenantResolver {
	return &TenantResolver{
		store: store,
		cache: expirable.NewLRU[string, *tenants.Tenant](size, nil, ttl),
	}
}

// Middleware resolves and validates the tenant, rejecting requests for
// unknown tenants with 404 and for suspended or cancelled tenants with
// 403.
func (tr *TenantResolver) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subdomain := tr.subdomain(r)
		if subdomain == "" {
			httputil.WriteNotFound(w)
			return
		}

		tenant, err := tr.lookup(r.Context(), subdomain)
		if err != nil {
			httputil.WriteNotFound(w)
			return
		}
		if !tenant.Accessible() {
			httputil.WriteForbidden(w, "tenant is "+tenant.Status)
			return
		}

		next.ServeHTTP(w, r.WithContext(contextkeys.WithTenant(r.Context(), tenant)))
	})
}

func (tr *TenantResolver) subdomain(r *http.Request) string {
	if h := r.Header.Get(TenantHeader); h != "" {
		return strings.ToLower(h)
	}
	host := r.Host
	if i := strings.IndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}
	parts := strings.Split(host, ".")
	if len(parts) < 3 {
		return ""
	}
	return strings.ToLower(parts[0])
}

func (tr *TenantResolver) lookup(ctx context.Context, subdomain string) (*tenants.Tenant, error) {
	if t, ok := tr.cache.Get(subdomain); ok {
		return t, nil
	}
	t, err := tr.store.GetBySubdomain(ctx, subdomain)
	if err != nil {
		return nil, err
	}
	tr.cache.Add(subdomain, t)
	return t, nil
}

// Tenant returns the resolved tenant stored by the resolver, or nil.
func Tenant(ctx context.Context) *tenants.Tenant {
	t, _ := ctx.Value(contextkeys.TenantKey).(*tenants.Tenant)
	return t
}
