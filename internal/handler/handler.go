// Package handler is the first layer, the entry point
// after the router.
//
// It takes the raw request, calls the appropriate service
// and writes the result. It acts as the interface between
// the HTTP request and the dispatch logic.
package handler
