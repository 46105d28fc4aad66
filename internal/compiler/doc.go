// Package compiler runs the batch pipeline: discover schema files, parse
// them, generate every configured target and write the outputs.
//
// Ownership boundary:
// - schema discovery under a root directory
// - id assignment policy across files (per-file or shared counter)
// - fan-out of generation and writes on a worker pool
package compiler
