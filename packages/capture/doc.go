// Package capture extracts values from hitwire responses.
//
// It supports capturing values from:
//   - Response body (gjson paths)
//   - Response headers
//   - Response status code and duration
//
// Handler plugs a set of captures into a client's status handler table, so a
// request returns the captured values instead of the parsed body.
package capture
