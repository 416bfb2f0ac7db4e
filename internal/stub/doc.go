// Package stub provides scriptable in-memory fakes for the adapter
// contracts: a Backend that echoes requests and fails on cue, and a
// Frontend wrapping the native one with injectable failures. Tests and
// examples use them to exercise the pipeline without a network.
package stub
