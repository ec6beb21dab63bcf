// Package store documents the persistence backends for schedules.
//
// Each backend implements schedule.Store:
//   - memory: in-process map, for unit tests and development
//   - sqlite: single-file durable store (modernc.org/sqlite, cgo-free)
//   - postgres: shared durable store (uptrace/bun over pgdriver)
//
// The durable backends additionally implement deflow.Storer so the engine
// can migrate, ping, and close them around its own lifecycle.
package store
