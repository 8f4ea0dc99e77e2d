// Package registry maps the names used in graph descriptors (the `uses`
// attribute of a node) to the compiled Go constructors that produce node
// bodies.
//
// During application startup modules register their constructors, the
// registry is validated against the loaded descriptors so that every
// reference resolves, and graphs are then assembled through Resolve.
package registry
