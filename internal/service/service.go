// Package service contains the business logic.
//
// It sits between the handler layer and the downstream backends. It
// receives the raw request body from the handler, runs it through the
// dispatch gate, decoding, classification and forwarding, and turns every
// failure into an *errs.HTTPError the global error handler can write
package service
