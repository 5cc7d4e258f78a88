// Package httpmiddleware provides the HTTP middleware stack for the API
// server: panic recovery, request identification, CORS, rate limiting, and
// request logging.
package httpmiddleware

import "net/http"

// Middleware decorates an http.Handler. The alias keeps the functions in
// this package directly usable with chi's Use.
type Middleware = func(http.Handler) http.Handler
