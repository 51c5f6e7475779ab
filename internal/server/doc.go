// Package server provides HTTP routing and middleware for the development engine.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
// [Logging] records one line per request and [Recover] turns handler panics into 500 responses.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
//
// The engine's websocket endpoint (engine.Server) is one such handler. This package adds two more:
//   - [PlayerHandler] serves /player, the page a phone on the same network opens to browse finished downloads
//   - [HealthHandler] serves /healthz
//
// [ListenAndServe] runs a router until its context is cancelled.
package server
