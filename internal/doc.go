// Package internal holds the Serendipity server implementation.
//
// Layout:
//   - api: router, handlers, middleware and problem responses
//   - domain: users and events services with their repository contracts
//   - storage: mongo, postgres and in-memory repository implementations
//   - auth: bearer tokens and password hashing
//   - config, metrics, telemetry, sanitize: shared infrastructure
package internal
