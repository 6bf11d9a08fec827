// Package entities provides the core domain types of the loader: its
// configuration, the environment record handed to the module and the
// structured error detail shared by every error type.
package entities
