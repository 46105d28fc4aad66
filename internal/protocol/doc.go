// Package protocol owns the closed catalog of fixed-width field types.
//
// Ownership boundary:
// - field type keywords and byte widths
// - little-endian scalar primitives shared by the runtime codec
// - frame/ (header layout) and schema/ (parser + message model) subpackages
package protocol
