// Package validation contains the logic for validating
// decoded request data.
//
// It uses the `validator` library to enforce rules (like
// required fields) defined in struct tags and extracts
// validation errors into field-level messages for the logs
package validation
