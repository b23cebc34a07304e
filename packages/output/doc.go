// Package output prints hitwire requests and responses for the CLI.
//
// Supported output formats:
//   - Console: colored terminal output, status colored by class
//   - JSON: one indented JSON document per request or failure
//
// Render converts any handler result (decoded JSON, text, bytes, parsed
// HTML or XML, form values) into printable text.
package output
