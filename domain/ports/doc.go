// Package ports defines interfaces for infrastructure operations.
// The loader depends on these abstractions and infrastructure adapters
// implement them.
package ports
