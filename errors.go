package spiderdb

import "github.com/nodeweave/spiderdb/pkg/core"

// Error kinds surfaced across the public boundary, re-exported from
// pkg/core so callers never need to import it directly.
var (
	ErrNotFound          = core.ErrNotFound
	ErrDimensionMismatch = core.ErrDimensionMismatch
	ErrZeroVector        = core.ErrZeroVector
	ErrEmptyIndex        = core.ErrEmptyIndex
	ErrInvalidParameter  = core.ErrInvalidParameter
	ErrIOError           = core.ErrIOError
	ErrCorrupt           = core.ErrCorrupt
)
