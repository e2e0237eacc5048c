// Package sanitizer normalizes user-supplied search and booking input before
// it reaches validation or a query.
//
// All functions are idempotent and never return errors: invalid input
// normalizes to the empty string (or an empty slice), which callers treat as
// "not provided".
//
// Normalization includes:
//   - Strings: collapse whitespace, trim leading/trailing spaces
//   - Cities: whitespace-normalized, case preserved (matching is case-insensitive at query time)
//   - Genders: lowercased, trimmed
//   - Phone numbers: E.164, parsed against a default region and validated
//   - Slices: normalized, de-duplicated, empties dropped
package sanitizer
