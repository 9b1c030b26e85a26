// Package route implements the route table: pattern matching with
// static-over-dynamic priority, the registry of route entries and
// redirect rules, and the contract types (guards, middleware, route
// data) shared by the navigation pipeline.
//
// A pattern is a slash-delimited sequence of literal segments and named
// parameter segments prefixed with ":". Matching compares segment by
// segment; a parameter segment binds any non-empty path segment under
// its name. When several patterns match one path, the pattern with the
// fewest parameter segments wins, ties broken by registration order.
//
// The Guard and Middleware interfaces are declared here, next to the
// Data they operate on; the guard and middleware packages provide the
// pipelines and stock implementations.
package route
