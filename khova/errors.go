package khova

import "errors"

// Errors
var (
	ErrBadGauss         = errors.New("bad Gauss code")
	ErrBadSigns         = errors.New("crossing signs inconsistent with Gauss code")
	ErrTooManyCrossings = errors.New("crossing count exceeds MaxCrossings")
	ErrBadLinkName      = errors.New("bad link name")
	ErrBadLinkExpr      = errors.New("bad link expression")
	ErrBadBraid         = errors.New("bad braid word")
	ErrBadDimension     = errors.New("bad matrix dimension")
	ErrCancelled        = errors.New("computation cancelled")
	ErrFailed           = errors.New("computation failed")
	ErrBadCatalogParam  = errors.New("bad catalog param")
	ErrBadEncoding      = errors.New("bad catalog encoding")
	ErrBadConfig        = errors.New("bad config")
)
