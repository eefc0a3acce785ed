// Package manager owns the model catalog and lifecycle: registration,
// reference-counted load/unload through pluggable adapters, and the
// cached-or-compute inference path. Catalog mutations are serialized;
// adapter calls never run under the catalog lock.
package manager
