// Package ir provides the value and identity types shared by weave-io
// packages.
//
// IRValue is the sealed set of values a compiled statement may bind as a
// parameter. MarshalCanonical gives every value one byte representation
// (RFC 8785) so statements can be fingerprinted by content.
//
// This package imports nothing internal. Every other internal package may
// import it.
package ir
