// Package storage provides the usage ledger's persistence backends: an
// in-memory store for tests and short-lived processes, and a SQLite
// store for durable ledgers. Both implement usage.Store.
package storage
