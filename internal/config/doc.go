// Package config defines the format-agnostic descriptor model for startup
// graphs, along with the Loader interface implemented by the format
// packages.
//
// The `config.Model` is the single source of truth for `dag.Build` and the
// coordinator. Concrete loaders, such as for HCL and YAML, are provided in
// separate packages.
package config
