// Package surrealdb is a client for SurrealDB.
//
// # Connections
//
// [Connect] picks a backend from the endpoint URL scheme:
//
//   - ws:// and wss:// speak the RPC protocol over a WebSocket.
//   - http:// and https:// send each RPC call as its own HTTP request.
//   - mem:// and memory:// run an embedded engine in memory.
//   - sqlite: runs an embedded engine persisting its records in SQLite.
//
// To use a backend directly, such as the lxzan/gws based WebSocket backend,
// connect its router and wrap it with [FromRouter].
//
// Every backend sits behind a [github.com/surrealkit/surrealdb.go/pkg/router.Router].
// A DB is safe for concurrent use, but its commands run one at a time in
// the order they were sent, so a [DB.Use] or [DB.Set] is always seen by the
// commands sent after it.
//
// # Data Models
//
// Values travel as CBOR. The [github.com/surrealkit/surrealdb.go/pkg/models]
// package holds the SurrealDB specific types, most notably
// [models.RecordID], [models.Table] and [models.RecordRange].
//
// # Queries
//
// [Create], [Select], [Update], [Merge] and [Patch] build their SurrealQL
// statement from the target and data. [Query] runs statements you write
// yourself and reports the outcome of each of them.
//
// [Send] is the low-level entry point every other call goes through.
package surrealdb
