// Package generators produces substitute values for contract fields at
// verification time: random numbers and strings, values matching a regex,
// UUIDs, the current date or time, values taken from provider state
// parameters and URLs pointing at a running mock server.
//
// Generators are grouped by category and keyed by path the same way as
// matching rules. ApplyBody, ApplyValues and ApplyStrings substitute the
// generated values into a copy of the recorded data.
package generators
