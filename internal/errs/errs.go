// Package errs define custom error types and utilities.
//
// Its purpose is to give every failure a single, consistent
// shape on the wire: an HTTP status plus a human-readable
// `detail` message. Internal causes stay in the logs.
package errs
