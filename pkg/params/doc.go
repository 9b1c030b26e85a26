// Package params provides typed access to route parameters.
//
// Raw path and query parameters arrive as strings; body parameters are
// already-typed values supplied at navigation time. A Resolver wraps one
// immutable Params set and decodes values on demand, memoizing each
// decoded result so repeated access is O(1).
//
// Decoding dispatches on an explicit Kind rather than inspecting a
// generic type parameter at runtime, so the set of supported
// conversions is closed and the string representations are stable:
// booleans accept true/1/yes/on and false/0/no/off, times are RFC 3339,
// durations are integer milliseconds.
package params
