// Package codec serializes request bodies and parses response payloads by
// content type.
//
// Encoders and parsers are looked up in the same order:
//   - an exact registration for the parameter-stripped content type
//   - the encoder of the content type's family (aliases, +json/+xml/+html)
//   - the plain-text encoder for text/* and *+text
//   - the binary encoder, which only accepts bytes, streams, files and writers
package codec
