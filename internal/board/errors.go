package board

import "errors"

var (
	// ErrNoLayers indicates Compose was called before any layer was registered.
	ErrNoLayers = errors.New("no layers registered")

	// ErrDuplicateLayer indicates a layer name was registered twice.
	ErrDuplicateLayer = errors.New("duplicate layer")

	// ErrImporterCapabilityMismatch indicates an importer cannot provide
	// geometry for the active render mode.
	ErrImporterCapabilityMismatch = errors.New("importer does not support render mode")

	// ErrUnknownLayer indicates a query for a layer that was never composed.
	ErrUnknownLayer = errors.New("unknown layer")

	// ErrNotComposed indicates a query made before Compose succeeded.
	ErrNotComposed = errors.New("board not composed")

	// ErrComposed indicates a registration after Compose was attempted.
	ErrComposed = errors.New("board already composed")

	// ErrCompositionFailed indicates Compose failed; the board is unusable.
	ErrCompositionFailed = errors.New("composition failed")
)
