// Package portal is the studio portal's HTTP surface.
//
// A Server wraps a single ServeMux in two layers: metrics instrumentation on
// the outside and the route gate inside it. The gate decides page access from
// the session cookie; API routes under /api bypass it and call the access
// guard themselves before touching the store.
//
// Routes:
//
//	POST /api/auth/register|login|logout, GET /api/auth/me, POST /api/auth/password
//	GET|POST /api/bookings                      the caller's own bookings
//	/api/admin/users[/{id}], /api/admin/bookings[/{id}], /api/admin/stats
//	/, /login, /signup, /admin-login, /dashboard, /admin, /admin/users, /admin/bookings
//	/health, /health/ready, /metrics, /static/
//
// The server listens on a TCP address or, when tailscale is enabled, on a
// tsnet node (plain HTTP, HTTPS with tailnet certificates, or Funnel).
package portal
