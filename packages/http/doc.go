// Package http assembles requests, sends them, and routes responses to
// status handlers.
//
// A request runs through a fixed pipeline:
//   - URI resolution against the client's default URI, with path templates and query parameters
//   - body encoding through the content codec registry
//   - Accept-Encoding negotiation, then the installed signers
//   - transport, then transparent decompression
//   - dispatch to the handler for the exact status, its success or failure bucket, or the built-in handler
package http
