// Package sanitizer normalizes user-entered form values before they are
// validated or sent to the backend.
//
// All functions are idempotent and never fail: invalid input comes back
// empty or unchanged so that validation can report it.
//
// Normalization includes:
//   - Names: collapse inner whitespace, trim
//   - Emails: trim, lowercase
//   - Phones: keep digits only, optionally strip a leading country code
package sanitizer
