package ports

import "github.com/reglet-dev/wasm-loader/domain/entities"

// Locator is implemented by module sources that read from a location a
// SourcePolicy can judge. In-memory sources do not implement it.
type Locator interface {
	Location() entities.SourceLocation
}

// SourcePolicy decides whether a module may be fetched from a location.
type SourcePolicy interface {
	CheckSource(loc entities.SourceLocation) bool
}

// DenialHandler is notified when a policy denies a request.
type DenialHandler interface {
	OnDenial(kind string, request interface{}, reason string)
}
