// Package fetch provides module sources and the streaming reader that pulls
// a module binary out of them.
package fetch
