// Package routepath provides path normalization and query string
// handling for the navigation engine.
//
// All route matching operates on canonical paths: exactly one leading
// slash, no trailing slash except root, no repeated slashes, and no
// "." or ".." segments. Canonicalize rejects malformed or malicious
// input with an error; Normalize is the total best-effort variant used
// where a failure mode is not acceptable.
package routepath
