// Package guard is the single authentication and authorization entry point
// for the routing layer.
//
// One call per request: ResolveAndAuthorize turns the presented credential
// into an identity and checks it against the required capability. The two
// failure modes map directly onto transport responses (401 for
// ErrUnauthenticated, 403 for ErrForbidden); RequireCapability packages the
// whole pass as chi middleware.
//
//	g := guard.New(identity.NewResolver(verifier))
//
//	r.Route("/tenants/{tenant_name}/orders", func(r chi.Router) {
//		r.Use(g.RequireCapability(accessctl.CapabilityOrderCreate))
//		r.Post("/", createOrder)
//	})
package guard
