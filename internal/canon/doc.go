// Package canon provides a constrained value model with RFC 8785 canonical
// JSON encoding and domain-separated SHA-256 fingerprints.
//
// Fixtures and run reports are reduced to canon values before hashing, so
// two inputs that describe the same graph produce the same fingerprint no
// matter how their source files order keys or normalize strings.
//
// Floats and null are not representable. Integers are always int64.
package canon
