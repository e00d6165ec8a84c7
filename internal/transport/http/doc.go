// Package http exposes the analysis service as a read-only JSON API.
//
// Handlers parse and validate query parameters, delegate to the service and
// render results with go-chi/render. Every failure is reported as an RFC 7807
// problem through the shared error handler.
package http
