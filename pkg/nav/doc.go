// Package nav orchestrates navigation: it resolves a raw target path
// through redirect rules, route matching, middleware, and guards, then
// commits the result onto a bounded history stack.
//
// A Navigator owns one root history plus a lazily created history per
// shell route, so nested navigation stacks advance independently. A
// single logical navigation may traverse several redirect hops (from
// registry rules, middleware, or guards); the hop count is bounded and
// exceeding the bound fails with a RedirectLoopError carrying the full
// path chain.
package nav
